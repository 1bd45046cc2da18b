// Package removal implements Component F, the Removal Handler.
// Grounded on original_source/firmware/src/recovery_core.c's removal
// path and on spec.md §4.F.
package removal

import (
	"bytes"
	"context"

	"openenterprise/srccore/configstore"
	"openenterprise/srccore/platform"
	"openenterprise/srccore/srcerr"
)

// Handler retires the core after verifying the system is healthy.
type Handler struct {
	spi     platform.SPI
	crypto  platform.Crypto
	sys     platform.System
	profile platform.BoardProfile
	store   *configstore.Store
	log     func(string)
}

// New builds a Removal Handler.
func New(spi platform.SPI, crypto platform.Crypto, sys platform.System, profile platform.BoardProfile, store *configstore.Store, log func(string)) *Handler {
	if log == nil {
		log = func(string) {}
	}
	return &Handler{spi: spi, crypto: crypto, sys: sys, profile: profile, store: store, log: log}
}

// Run executes the removal sequence (spec.md §4.F):
//  1. verify current firmware matches Config.FirmwareHash, abort otherwise
//  2. zero the reserved SRC region, one sector at a time
//  3. disable and persist Config (write may land in the now-zeroed region)
//  4. lock flash
//  5. reboot
//
// The bool return reports whether removal was aborted (firmware
// mismatch): RemovalScheduled is cleared and Config persisted either
// way, but the caller must know whether to resume normal flow (aborted)
// or expect Reboot to have already been invoked (completed). Aborting
// clears RemovalScheduled per spec.md §4.F step 1's rationale: "removal
// implies the system is healthy and user wants us gone; we refuse to
// retire on a system we do not recognize."
func (h *Handler) Run(ctx context.Context, cfg configstore.Config) (configstore.Config, bool, error) {
	size := h.profile.FirmwareRegionSize()
	buf := make([]byte, size)
	if err := h.spi.Read(ctx, platform.DefaultFirmwareRegionOffset, buf); err != nil {
		return cfg, false, srcerr.Wrap(srcerr.IoError, "removal.Run", err)
	}

	hash := h.crypto.SHA256(buf)
	if !bytes.Equal(hash[:], cfg.FirmwareHash[:]) {
		h.log("removal: firmware mismatch, aborting removal")
		cfg.RemovalScheduled = false
		if err := h.store.Write(ctx, cfg); err != nil {
			return cfg, true, err
		}
		return cfg, true, nil
	}

	// Legacy profiles move the SRC region's offset but keep its size
	// (spec.md §6).
	regionSize := platform.DefaultSRCRegionSize
	sector := h.sectorSize()
	zero := make([]byte, sector)
	base := h.profile.SRCRegionOffset
	for off := uint32(0); off < uint32(regionSize); off += sector {
		if err := h.spi.EraseSector(ctx, base+off); err != nil {
			return cfg, false, srcerr.Wrap(srcerr.IoError, "removal.Run", err)
		}
		if err := h.spi.Write(ctx, base+off, zero); err != nil {
			return cfg, false, srcerr.Wrap(srcerr.IoError, "removal.Run", err)
		}
	}

	cfg.Enabled = false
	cfg.RemovalScheduled = false
	// This write intentionally lands in the region we just zeroed; the
	// next boot reads this record back with Enabled=false and goes to
	// Disabled instead of supervising.
	if err := h.store.Write(ctx, cfg); err != nil {
		return cfg, false, srcerr.Wrap(srcerr.IoError, "removal.Run", err)
	}

	if err := h.spi.Lock(ctx); err != nil {
		return cfg, false, srcerr.Wrap(srcerr.IoError, "removal.Run", err)
	}

	h.sys.Reboot(ctx)
	return cfg, false, nil
}

func (h *Handler) sectorSize() uint32 {
	if h.profile.SectorSize == 0 {
		return platform.DefaultSectorSize
	}
	return h.profile.SectorSize
}
