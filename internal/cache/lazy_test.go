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
)

func TestLazy_BuildsOnce(t *testing.T) {
	var calls int32
	l := NewLazy("tfs", 0, func(ctx context.Context) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(10 * time.Millisecond)
		return []string{"STAT3", "MYC"}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := l.Get(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, []string{"STAT3", "MYC"}, v)
		}()
	}
	wg.Wait()

	_, err := l.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, l.Stats().Loaded)
}

func TestLazy_Refresh(t *testing.T) {
	n := 0
	l := NewLazy("counter", 0, func(ctx context.Context) (int, error) {
		n++
		return n, nil
	})

	v, err := l.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, _ = l.Get(context.Background())
	assert.Equal(t, 1, v)

	Group{l}.Refresh()
	assert.False(t, l.Stats().Loaded)

	v, _ = l.Get(context.Background())
	assert.Equal(t, 2, v)
	assert.Equal(t, int64(2), l.Stats().Builds)
}

func TestLazy_TTL(t *testing.T) {
	n := 0
	l := NewLazy("counter", time.Minute, func(ctx context.Context) (int, error) {
		n++
		return n, nil
	})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	v, _ := l.Get(context.Background())
	assert.Equal(t, 1, v)

	now = now.Add(30 * time.Second)
	v, _ = l.Get(context.Background())
	assert.Equal(t, 1, v)

	now = now.Add(time.Minute)
	v, _ = l.Get(context.Background())
	assert.Equal(t, 2, v)
}

func TestLazy_ErrorNotCached(t *testing.T) {
	fail := true
	l := NewLazy("flaky", 0, func(ctx context.Context) (string, error) {
		if fail {
			return "", errors.New("store locked")
		}
		return "ok", nil
	})

	_, err := l.Get(context.Background())
	assert.Error(t, err)
	assert.False(t, l.Stats().Loaded)

	fail = false
	v, err := l.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestLazy_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	l := NewLazy("tissues", 0, func(ctx context.Context) (string, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "built", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := l.Get(ctx)
		first <- err
	}()
	<-started
	cancel()

	second := make(chan error, 1)
	go func() {
		v, err := l.Get(context.Background())
		if err == nil && v != "built" {
			err = errors.New("unexpected value " + v)
		}
		second <- err
	}()
	close(release)

	assert.NoError(t, <-first)
	assert.NoError(t, <-second)
	assert.True(t, l.Stats().Loaded)
}
