package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastSettle(timeout time.Duration) SettleOptions {
	return SettleOptions{
		PollInterval: 10 * time.Millisecond,
		QuietPeriod:  30 * time.Millisecond,
		Timeout:      timeout,
	}
}

func TestSettle_StableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 stable"), 0644))

	info, err := Settle(context.Background(), path, fastSettle(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(len("%PDF-1.4 stable")), info.Size())
}

func TestSettle_GrowingFileWaitsForQuiet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.pdf")
	f, err := os.Create(path)
	require.NoError(t, err)

	chunk := []byte("0123456789")
	_, err = f.Write(chunk)
	require.NoError(t, err)

	// Keep appending for a while, then stop.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 4; i++ {
			time.Sleep(20 * time.Millisecond)
			f.Write(chunk)
			f.Sync()
		}
		f.Close()
	}()

	info, err := Settle(context.Background(), path, SettleOptions{
		PollInterval: 10 * time.Millisecond,
		QuietPeriod:  100 * time.Millisecond,
		Timeout:      5 * time.Second,
	})
	<-done
	require.NoError(t, err)
	assert.Equal(t, int64(5*len(chunk)), info.Size())
}

func TestSettle_EmptyFileNeverReady(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := Settle(context.Background(), path, SettleOptions{
		PollInterval: 10 * time.Millisecond,
		QuietPeriod:  20 * time.Millisecond,
		Timeout:      150 * time.Millisecond,
	})
	assert.ErrorIs(t, err, ErrNeverSettled)
}

func TestSettle_VanishedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("short lived"), 0644))

	go func() {
		time.Sleep(25 * time.Millisecond)
		os.Remove(path)
	}()

	_, err := Settle(context.Background(), path, SettleOptions{
		PollInterval: 10 * time.Millisecond,
		QuietPeriod:  200 * time.Millisecond,
		Timeout:      2 * time.Second,
	})
	assert.ErrorIs(t, err, ErrVanished)
}

func TestSettle_FileNeverExisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ghost.pdf")

	_, err := Settle(context.Background(), path, fastSettle(time.Second))
	assert.ErrorIs(t, err, ErrVanished)
}

func TestSettle_ContextCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := Settle(ctx, path, SettleOptions{
		PollInterval: 10 * time.Millisecond,
		QuietPeriod:  5 * time.Second,
		Timeout:      time.Minute,
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSettleOptions_Defaults(t *testing.T) {
	opts := SettleOptions{}.withDefaults()

	assert.Equal(t, DefaultPollInterval, opts.PollInterval)
	assert.Equal(t, DefaultQuietPeriod, opts.QuietPeriod)
	assert.Equal(t, DefaultSettleTimeout, opts.Timeout)
}
