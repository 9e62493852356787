package testutil

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

// NopLogger returns a logger that discards all output.
// Use this in tests to avoid log noise.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// DefaultWait bounds how long helpers wait for asynchronous results
const DefaultWait = time.Second

// Receive returns the next value from ch, failing the test if none arrives
// within DefaultWait or the channel is closed
func Receive[T any](t testing.TB, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed while waiting for value")
		}
		return v
	case <-time.After(DefaultWait):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

// AssertQuiet fails the test if ch yields a value within the given window
func AssertQuiet[T any](t testing.TB, ch <-chan T, window time.Duration) {
	t.Helper()
	select {
	case v, ok := <-ch:
		if ok {
			t.Fatalf("unexpected value %+v", v)
		}
	case <-time.After(window):
	}
}
