package configstore

import (
	"context"
	"testing"

	"openenterprise/srccore/platform"
	"openenterprise/srccore/platform/simulated"
)

func TestReadOnErasedFlashReturnsDefaulted(t *testing.T) {
	flash := simulated.NewFlash(platform.DefaultFlashSize, platform.DefaultSectorSize)
	flash.Unlock(context.Background())
	store := New(flash, platform.DefaultSRCRegionOffset)

	cfg, err := store.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := Defaulted()
	if cfg != want {
		t.Errorf("Read on erased flash = %+v, want %+v", cfg, want)
	}
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	flash := simulated.NewFlash(platform.DefaultFlashSize, platform.DefaultSectorSize)
	flash.Unlock(context.Background())
	store := New(flash, platform.DefaultSRCRegionOffset)
	ctx := context.Background()

	cfg := Defaulted()
	cfg.BoardID = "BOARD-42"
	cfg.LastBackupAt = 12345
	cfg.RemovalScheduled = true
	cfg.FirmwareHash[0] = 0xAB

	if err := store.Write(ctx, cfg); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != cfg {
		t.Errorf("round trip = %+v, want %+v", got, cfg)
	}
}

func TestReadUnrecognizedSectorPromotesToDefault(t *testing.T) {
	flash := simulated.NewFlash(platform.DefaultFlashSize, platform.DefaultSectorSize)
	flash.Unlock(context.Background())
	ctx := context.Background()
	// Write garbage that isn't all-0xFF and doesn't carry the magic.
	garbage := make([]byte, 64)
	for i := range garbage {
		garbage[i] = byte(i)
	}
	if err := flash.Write(ctx, platform.DefaultSRCRegionOffset, garbage); err != nil {
		t.Fatalf("seed write: %v", err)
	}

	store := New(flash, platform.DefaultSRCRegionOffset)
	cfg, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if cfg != Defaulted() {
		t.Errorf("Read on garbage sector = %+v, want Defaulted()", cfg)
	}
}

func TestBoardIDTruncation(t *testing.T) {
	flash := simulated.NewFlash(platform.DefaultFlashSize, platform.DefaultSectorSize)
	flash.Unlock(context.Background())
	store := New(flash, platform.DefaultSRCRegionOffset)
	ctx := context.Background()

	cfg := Defaulted()
	long := ""
	for i := 0; i < 50; i++ {
		long += "x"
	}
	cfg.BoardID = long

	if err := store.Write(ctx, cfg); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got.BoardID) != boardIDMaxLen {
		t.Errorf("BoardID length = %d, want %d", len(got.BoardID), boardIDMaxLen)
	}
}
