// Package backupengine implements Component D, the Backup Engine.
// Grounded directly on
// original_source/firmware/src/recovery_core.c's src_perform_backup for
// exact short-circuit and rotation ordering, expressed through the
// platform seam instead of raw libc calls.
package backupengine

import (
	"bytes"
	"context"

	"openenterprise/srccore/configstore"
	"openenterprise/srccore/manifest"
	"openenterprise/srccore/platform"
	"openenterprise/srccore/srcerr"
)

const (
	recoveryDir = "/SECURITY_RECOVERY/"
	fileA       = recoveryDir + "A.bin"
	fileB       = recoveryDir + "B.bin"
	fileSig     = recoveryDir + "signature.sig"
	fileMani    = recoveryDir + "manifest.json"
	fileMeta    = recoveryDir + "metadata.txt"
)

// Engine rotates the firmware backup on USB when the firmware has
// changed and the cooldown has elapsed.
type Engine struct {
	spi     platform.SPI
	usb     platform.USB
	crypto  platform.Crypto
	sys     platform.System
	profile platform.BoardProfile
	store   *configstore.Store
	log     func(string)

	generation uint32
}

// New builds a Backup Engine.
func New(spi platform.SPI, usb platform.USB, crypto platform.Crypto, sys platform.System, profile platform.BoardProfile, store *configstore.Store, log func(string)) *Engine {
	if log == nil {
		log = func(string) {}
	}
	return &Engine{spi: spi, usb: usb, crypto: crypto, sys: sys, profile: profile, store: store, log: log}
}

// Run executes one backup cycle. It is idempotent: calling it twice in
// a row with unchanged firmware writes nothing on the second call
// (spec.md §8 round-trip law); the second call still reads and hashes
// the firmware region.
func (e *Engine) Run(ctx context.Context, cfg configstore.Config) (configstore.Config, error) {
	if !cfg.Enabled {
		return cfg, nil
	}
	if cfg.DisableUntil != 0 && e.sys.NowMS() < cfg.DisableUntil {
		return cfg, nil
	}

	// A Config that has never recorded a backup (zero timestamp and zero
	// hash) is not held back by the cooldown.
	neverBackedUp := cfg.LastBackupAt == 0 && cfg.FirmwareHash == ([32]byte{})
	if !neverBackedUp && platform.ElapsedSince(e.sys.NowMS(), cfg.LastBackupAt) < uint32(platform.DefaultBackupCooldown.Milliseconds()) {
		return cfg, nil
	}

	if !e.usb.IsPresent(ctx) {
		e.log("backup: usb not present, skipping")
		return cfg, nil
	}

	size := e.profile.FirmwareRegionSize()
	buf := make([]byte, size)
	if err := e.spi.Read(ctx, platform.DefaultFirmwareRegionOffset, buf); err != nil {
		e.log("backup: firmware read failed")
		return cfg, srcerr.Wrap(srcerr.IoError, "backupengine.Run", err)
	}

	hash := e.crypto.SHA256(buf)
	if bytes.Equal(hash[:], cfg.FirmwareHash[:]) {
		e.log("backup: firmware unchanged, no-op")
		return cfg, nil
	}

	// Rotate: delete B, A->B, write new A. Stop on first fatal error;
	// deliberately not transactional (spec.md §4.D).
	if e.usb.FileExists(ctx, fileB) {
		if err := e.usb.DeleteFile(ctx, fileB); err != nil {
			e.log("backup: delete B failed")
			return cfg, srcerr.Wrap(srcerr.IoError, "backupengine.Run", err)
		}
	}
	hadA := e.usb.FileExists(ctx, fileA)
	if hadA {
		if err := e.usb.RenameFile(ctx, fileA, fileB); err != nil {
			e.log("backup: rotate A->B failed")
			return cfg, srcerr.Wrap(srcerr.IoError, "backupengine.Run", err)
		}
	}
	if err := e.usb.WriteFile(ctx, fileA, buf); err != nil {
		e.log("backup: write A failed")
		return cfg, srcerr.Wrap(srcerr.IoError, "backupengine.Run", err)
	}

	sig, err := e.crypto.Sign(buf)
	if err != nil {
		e.log("backup: sign failed")
		return cfg, srcerr.Wrap(srcerr.IoError, "backupengine.Run", err)
	}
	if err := e.usb.WriteFile(ctx, fileSig, sig); err != nil {
		e.log("backup: write signature failed")
		return cfg, srcerr.Wrap(srcerr.IoError, "backupengine.Run", err)
	}

	e.generation++
	now := e.sys.NowMS()
	m := manifest.Manifest{
		BoardID:      cfg.BoardID,
		Generation:   e.generation,
		TimestampMS:  now,
		HasA:         true,
		HasB:         hadA,
		SignatureLen: len(sig),
	}
	_ = e.usb.WriteFile(ctx, fileMani, manifest.Render(m))
	_ = e.usb.WriteFile(ctx, fileMeta, manifest.RenderMetadata(hash, now))

	cfg.FirmwareHash = hash
	cfg.LastBackupAt = now
	if err := e.store.Write(ctx, cfg); err != nil {
		return cfg, err
	}

	e.log("backup: rotation complete")
	return cfg, nil
}
