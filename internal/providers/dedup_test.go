package providers

import (
	"sync"
	"testing"
)

func TestURLDedupMarkUsed(t *testing.T) {
	d := NewURLDedup()

	if !d.MarkUsed("https://cdn.example/a.mp4") {
		t.Error("first MarkUsed should return true")
	}
	if d.MarkUsed("https://cdn.example/a.mp4") {
		t.Error("second MarkUsed should return false")
	}
	if !d.Seen("https://cdn.example/a.mp4") {
		t.Error("URL should be seen after marking")
	}
	if d.Seen("https://cdn.example/b.mp4") {
		t.Error("unmarked URL should not be seen")
	}
}

func TestURLDedupReset(t *testing.T) {
	d := NewURLDedup()
	d.MarkUsed("https://cdn.example/a.mp4")
	d.MarkUsed("https://cdn.example/b.mp4")

	if d.Len() != 2 {
		t.Fatalf("expected 2 tracked URLs, got %d", d.Len())
	}

	d.Reset()

	if d.Len() != 0 {
		t.Errorf("expected empty set after reset, got %d", d.Len())
	}
	if !d.MarkUsed("https://cdn.example/a.mp4") {
		t.Error("URL should be usable again after reset")
	}
}

func TestURLDedupConcurrentMark(t *testing.T) {
	d := NewURLDedup()

	var wg sync.WaitGroup
	wins := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- d.MarkUsed("https://cdn.example/contested.mp4")
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("expected exactly one goroutine to claim the URL, got %d", winners)
	}
}
