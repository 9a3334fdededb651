package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"bizreports/internal/domain/reports"
)

// FileDeliverer writes artifacts under dir/<account>/.
type FileDeliverer struct {
	dir string
}

// NewFileDeliverer creates a deliverer rooted at dir.
func NewFileDeliverer(dir string) *FileDeliverer {
	return &FileDeliverer{dir: dir}
}

// Deliver writes the artifact to a temp file and renames it into place.
func (d *FileDeliverer) Deliver(ctx context.Context, sched *reports.ScheduledReport, artifact *reports.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Join(d.dir, filepath.Base(sched.AccountID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(artifact.Body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}

	target := filepath.Join(dir, filepath.Base(artifact.Filename))
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("move export into place: %w", err)
	}
	return nil
}
