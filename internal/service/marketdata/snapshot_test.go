package marketdata

import (
	"math"
	"testing"

	"SigFuse/internal/domain/models"
)

func feed(b *SnapshotBuilder, prices ...float64) {
	for i, p := range prices {
		b.Observe(&models.Quote{Instrument: "AAPL", Price: p, Timestamp: int64(i)})
	}
}

func TestSnapshotLogReturns(t *testing.T) {
	b := NewSnapshotBuilder("AAPL", 10)
	feed(b, 100, 110, 121)

	snap := b.Snapshot()
	if snap.LastPrice != 121 {
		t.Fatalf("expected last price 121, got %f", snap.LastPrice)
	}
	if len(snap.Returns) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(snap.Returns))
	}
	want := math.Log(1.1)
	for i, r := range snap.Returns {
		if math.Abs(r-want) > 1e-12 {
			t.Fatalf("return %d: expected %f, got %f", i, want, r)
		}
	}
	// Constant log returns mean zero variance.
	if snap.RealizedVol > 1e-12 {
		t.Fatalf("expected zero realized vol, got %f", snap.RealizedVol)
	}
}

func TestSnapshotWindowTrims(t *testing.T) {
	b := NewSnapshotBuilder("AAPL", 3)
	feed(b, 1, 2, 3, 4, 5, 6, 7)

	snap := b.Snapshot()
	if len(snap.Returns) != 3 {
		t.Fatalf("expected window of 3 returns, got %d", len(snap.Returns))
	}
	if snap.LastPrice != 7 {
		t.Fatalf("expected last price 7, got %f", snap.LastPrice)
	}
}

func TestSnapshotIgnoresBadQuotes(t *testing.T) {
	b := NewSnapshotBuilder("AAPL", 10)
	b.Observe(nil)
	b.Observe(&models.Quote{Instrument: "AAPL", Price: -5})
	if b.Ready() {
		t.Fatalf("bad quotes must not make the builder ready")
	}
	feed(b, 100, 101)
	if !b.Ready() {
		t.Fatalf("expected ready after two valid quotes")
	}
}
