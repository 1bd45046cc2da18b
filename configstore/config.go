// Package configstore implements Component A, the Configuration Store:
// the single persistent Config record, flash-resident at the board
// profile's SRC region offset. Generalized from the shape of
// config/config.go (a single authoritative record with a
// documented default when no override is present) — here the "override"
// is whatever was last written to flash, and the "default" is the
// first-boot sentinel-promoted Config.
package configstore

import (
	"context"
	"encoding/binary"

	"openenterprise/srccore/platform"
	"openenterprise/srccore/srcerr"
)

const (
	boardIDMaxLen = 31
	recordSize    = 4 /*magic*/ + 1 /*enabled*/ + 4 /*disableUntil*/ + 4 /*lastBackupAt*/ +
		4 /*lastRecoveryAt*/ + 1 /*removalScheduled*/ + (boardIDMaxLen + 1) /*boardID*/ +
		32 /*firmwareHash*/ + 32 /*tpmHashStash*/

	// recordMagic marks a sector written by this store, distinguishing a
	// genuinely-defaulted-and-persisted Config from random flash noise
	// that merely isn't all 0xFF.
	recordMagic = 0x53524331 // "SRC1"
)

// Config is the persistent record described in spec.md §3. Default
// board id on first boot is "DEFAULT", following
// original_source/firmware/src/recovery_core.c's src_init.
type Config struct {
	Enabled          bool
	DisableUntil     uint32 // monotonic ms, 0 = not disabled
	LastBackupAt     uint32 // monotonic ms
	LastRecoveryAt   uint32 // monotonic ms
	RemovalScheduled bool
	BoardID          string // ASCII, <= 31 bytes
	FirmwareHash     [32]byte
	// TPMHashStash is round-tripped, never interpreted, by the core
	// (spec.md §9, advanced-security boards only).
	TPMHashStash [32]byte
}

// Defaulted returns the Config a fresh board starts with: enabled,
// zero hash, board id "DEFAULT". It is not persisted by this call —
// callers must invoke Store.Write once some other mutation occurs, per
// spec.md §4.A.
func Defaulted() Config {
	return Config{Enabled: true, BoardID: "DEFAULT"}
}

func (c Config) encode() []byte {
	buf := make([]byte, recordSize)
	binary.BigEndian.PutUint32(buf[0:4], recordMagic)
	if c.Enabled {
		buf[4] = 1
	}
	binary.BigEndian.PutUint32(buf[5:9], c.DisableUntil)
	binary.BigEndian.PutUint32(buf[9:13], c.LastBackupAt)
	binary.BigEndian.PutUint32(buf[13:17], c.LastRecoveryAt)
	if c.RemovalScheduled {
		buf[17] = 1
	}
	idOff := 18
	id := c.BoardID
	if len(id) > boardIDMaxLen {
		id = id[:boardIDMaxLen]
	}
	copy(buf[idOff:idOff+boardIDMaxLen], id)
	buf[idOff+boardIDMaxLen] = byte(len(id))
	hashOff := idOff + boardIDMaxLen + 1
	copy(buf[hashOff:hashOff+32], c.FirmwareHash[:])
	stashOff := hashOff + 32
	copy(buf[stashOff:stashOff+32], c.TPMHashStash[:])
	return buf
}

func decode(buf []byte) (Config, bool) {
	if len(buf) < recordSize {
		return Config{}, false
	}
	if binary.BigEndian.Uint32(buf[0:4]) != recordMagic {
		return Config{}, false
	}
	var c Config
	c.Enabled = buf[4] != 0
	c.DisableUntil = binary.BigEndian.Uint32(buf[5:9])
	c.LastBackupAt = binary.BigEndian.Uint32(buf[9:13])
	c.LastRecoveryAt = binary.BigEndian.Uint32(buf[13:17])
	c.RemovalScheduled = buf[17] != 0
	idOff := 18
	idLen := int(buf[idOff+boardIDMaxLen])
	if idLen > boardIDMaxLen {
		idLen = boardIDMaxLen
	}
	c.BoardID = string(buf[idOff : idOff+idLen])
	hashOff := idOff + boardIDMaxLen + 1
	copy(c.FirmwareHash[:], buf[hashOff:hashOff+32])
	stashOff := hashOff + 32
	copy(c.TPMHashStash[:], buf[stashOff:stashOff+32])
	return c, true
}

func isErasedSentinel(buf []byte) bool {
	for _, b := range buf {
		if b != 0xFF {
			return false
		}
	}
	return true
}

// Store is the flash-backed Configuration Store.
type Store struct {
	spi    platform.SPI
	offset uint32
}

// New builds a Store at the given board profile's SRC region offset.
func New(spi platform.SPI, srcRegionOffset uint32) *Store {
	return &Store{spi: spi, offset: srcRegionOffset}
}

// Read loads Config from flash. An erased (all-0xFF) or otherwise
// unrecognized sector is promoted to Defaulted() without being written
// back, per spec.md §4.A.
func (s *Store) Read(ctx context.Context) (Config, error) {
	buf := make([]byte, recordSize)
	if err := s.spi.Read(ctx, s.offset, buf); err != nil {
		return Config{}, srcerr.Wrap(srcerr.IoError, "configstore.Read", err)
	}
	if isErasedSentinel(buf) {
		return Defaulted(), nil
	}
	cfg, ok := decode(buf)
	if !ok {
		return Defaulted(), nil
	}
	return cfg, nil
}

// Write erases the first sector of the SRC region and writes the
// encoded Config, retrying once on IoError before giving up (spec.md
// §7: "Config write: retry once, then log").
func (s *Store) Write(ctx context.Context, cfg Config) error {
	buf := cfg.encode()
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := s.spi.EraseSector(ctx, s.offset); err != nil {
			lastErr = err
			continue
		}
		if err := s.spi.Write(ctx, s.offset, buf); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return srcerr.Wrap(srcerr.IoError, "configstore.Write", lastErr)
}
