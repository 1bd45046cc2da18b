package logging

import (
	"context"
	"log/slog"
	"testing"
)

func fixedClock() uint32 { return 1000 }

func TestLogAndEntriesOrdering(t *testing.T) {
	r := New(3, fixedClock, nil)
	r.Log("one")
	r.Log("two")
	r.Log("three")

	entries := r.Entries()
	if len(entries) != 3 {
		t.Fatalf("len(Entries()) = %d, want 3", len(entries))
	}
	want := []string{"one", "two", "three"}
	for i, e := range entries {
		if e.Message != want[i] {
			t.Errorf("entries[%d].Message = %q, want %q", i, e.Message, want[i])
		}
		if e.TimestampMS != 1000 {
			t.Errorf("entries[%d].TimestampMS = %d, want 1000", i, e.TimestampMS)
		}
	}
}

func TestLogWrapsAtCapacity(t *testing.T) {
	r := New(2, fixedClock, nil)
	r.Log("one")
	r.Log("two")
	r.Log("three") // should evict "one"

	entries := r.Entries()
	if len(entries) != 2 {
		t.Fatalf("len(Entries()) = %d, want 2", len(entries))
	}
	if entries[0].Message != "two" || entries[1].Message != "three" {
		t.Errorf("Entries() = %+v, want [two three]", entries)
	}
}

func TestClearRequiresAuth(t *testing.T) {
	allowed := false
	r := New(4, fixedClock, func(ctx context.Context) bool { return allowed })
	r.Log("secret")

	if r.Clear(context.Background()) {
		t.Fatal("Clear() succeeded without authentication")
	}
	if len(r.Entries()) != 1 {
		t.Fatal("Clear() without auth should not have emptied the ring")
	}

	allowed = true
	if !r.Clear(context.Background()) {
		t.Fatal("Clear() failed despite authentication")
	}
	if len(r.Entries()) != 0 {
		t.Fatal("Clear() with auth should have emptied the ring")
	}
}

func TestHandlerAppendsRenderedMessageToRing(t *testing.T) {
	r := New(4, fixedClock, nil)
	h := NewHandler(slog.NewTextHandler(discardWriter{}, nil), r)

	logger := slog.New(h)
	logger.Info("boot checked", "state", "checking")

	entries := r.Entries()
	if len(entries) != 1 {
		t.Fatalf("len(Entries()) = %d, want 1", len(entries))
	}
	if entries[0].Message == "" {
		t.Fatal("Handler did not append a rendered message")
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
