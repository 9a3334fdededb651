package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizreports/internal/domain/currency"
)

type countingLoader struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (l *countingLoader) Get(_ context.Context, id int64) (*currency.Currency, error) {
	l.calls.Add(1)
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	if l.err != nil {
		return nil, l.err
	}
	return &currency.Currency{ID: id, Name: "US Dollar", Code: "USD", Precision: 2}, nil
}

func TestCurrencyCache_ReadThrough(t *testing.T) {
	loader := &countingLoader{}
	c := NewCurrencyCache(loader, time.Minute)

	first, err := c.Get(context.Background(), 1)
	require.NoError(t, err)
	second, err := c.Get(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "US Dollar", second.Name)
	assert.Equal(t, int32(1), loader.calls.Load())

	first.Name = "mutated"
	third, _ := c.Get(context.Background(), 1)
	assert.Equal(t, "US Dollar", third.Name)
}

func TestCurrencyCache_CoalescesConcurrentMisses(t *testing.T) {
	loader := &countingLoader{delay: 20 * time.Millisecond}
	c := NewCurrencyCache(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(context.Background(), 7)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loader.calls.Load())
}

func TestCurrencyCache_Expiry(t *testing.T) {
	loader := &countingLoader{}
	c := NewCurrencyCache(loader, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.Get(context.Background(), 1)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = c.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), loader.calls.Load())
}

func TestCurrencyCache_ErrorsAreNotCached(t *testing.T) {
	loader := &countingLoader{err: errors.New("db down")}
	c := NewCurrencyCache(loader, time.Minute)

	_, err := c.Get(context.Background(), 1)
	require.Error(t, err)
	assert.Zero(t, c.Len())

	loader.err = nil
	_, err = c.Get(context.Background(), 1)
	assert.NoError(t, err)
}

func TestCurrencyCache_HandleNotification(t *testing.T) {
	loader := &countingLoader{}
	c := NewCurrencyCache(loader, 0)
	for _, id := range []int64{1, 2, 3} {
		_, err := c.Get(context.Background(), id)
		require.NoError(t, err)
	}

	c.handleNotification("2")
	assert.Equal(t, 2, c.Len())

	c.handleNotification("")
	assert.Zero(t, c.Len())
}

func TestCurrencyCache_StartWithoutPool(t *testing.T) {
	c := NewCurrencyCache(&countingLoader{}, 0)
	c.Start(context.Background())
	c.Stop()
	assert.False(t, c.started)
}

type gatedLoader struct {
	started chan struct{}
	release chan struct{}
}

func (l *gatedLoader) Get(ctx context.Context, id int64) (*currency.Currency, error) {
	close(l.started)
	<-l.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &currency.Currency{ID: id, Name: "Euro", Code: "EUR", Precision: 2}, nil
}

func TestCurrencyCache_LoadSurvivesCallerCancel(t *testing.T) {
	loader := &gatedLoader{started: make(chan struct{}), release: make(chan struct{})}
	c := NewCurrencyCache(loader, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, 3)
		done <- err
	}()

	<-loader.started
	cancel()
	close(loader.release)

	require.NoError(t, <-done)
	assert.Equal(t, 1, c.Len())
}
