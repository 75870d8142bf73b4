package metrics

import (
	"context"
	"testing"
	"time"
)

func TestStartPromServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- StartPromServer(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("scrape endpoint: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scrape endpoint did not stop on context cancel")
	}
}
