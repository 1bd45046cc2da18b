package statecore

import (
	"context"
	"fmt"

	"openenterprise/srccore/platform"
)

// StatusSummary is the optional status-summary query mentioned in
// spec.md §7: "a short string covering {integrity OK?, tampering
// detected?, write-protect active?, last backup age}." Rendered here
// both as a struct, for programmatic callers, and as a short string,
// for the debug log sink — grounded on console.go's write* helpers
// that render live device state to a text stream.
type StatusSummary struct {
	IntegrityOK        bool
	TamperingDetected  bool
	WriteProtectActive bool
	LastBackupAgeMS    uint32
}

// Status computes the current StatusSummary by re-hashing the live
// firmware region and comparing it to the persisted hash. It does not
// mutate Core state.
func (c *Core) Status(ctx context.Context) (StatusSummary, error) {
	size := c.runtime.Profile.FirmwareRegionSize()
	buf := make([]byte, size)
	if err := c.spi.Read(ctx, platform.DefaultFirmwareRegionOffset, buf); err != nil {
		return StatusSummary{}, err
	}
	hash := c.crypto.SHA256(buf)

	matches := hash == c.cfg.FirmwareHash
	zeroHash := c.cfg.FirmwareHash == [32]byte{}

	return StatusSummary{
		IntegrityOK:        matches || zeroHash,
		TamperingDetected:  !matches && !zeroHash,
		WriteProtectActive: c.spi.Locked(),
		LastBackupAgeMS:    platform.ElapsedSince(c.sys.NowMS(), c.cfg.LastBackupAt),
	}, nil
}

// String renders a StatusSummary the way the debug log sink expects.
func (s StatusSummary) String() string {
	return fmt.Sprintf(
		"integrity_ok=%t tampering_detected=%t write_protect=%t last_backup_age_ms=%d",
		s.IntegrityOK, s.TamperingDetected, s.WriteProtectActive, s.LastBackupAgeMS,
	)
}
