// Package boardprofile selects a platform.BoardProfile at construction
// time. Adapted from config/config.go: a compiled-in
// default plus an optional override file, "empty override = use
// default" — there the override files carried network settings, here
// they carry legacy/advanced-security board parameters (spec.md §9:
// "Treat as parameter overrides on BoardProfile, not as separate code
// paths").
package boardprofile

import (
	_ "embed"
	"strconv"
	"strings"
	"time"

	"openenterprise/srccore/platform"
)

// Overrides for legacy/advanced-security boards. An empty file means
// "use the compiled default" (platform.DefaultProfile()), exactly as
// config.WakeInterval falls back to DefaultWakeInterval.
var (
	//go:embed legacy.text
	legacyOverride string

	//go:embed src_offset.text
	srcOffsetOverride string

	//go:embed boot_timeout.text
	bootTimeoutOverride string

	//go:embed advanced_security.text
	advancedSecurityOverride string
)

// Legacy board SRC-region offsets, per spec.md §6: "legacy profiles may
// move to 3 MiB/6 MiB for small-flash boards."
const (
	LegacySRCOffsetSmall = 3 * 1024 * 1024
	LegacySRCOffsetLarge = 6 * 1024 * 1024
)

// Resolve builds the BoardProfile in effect for this board, applying
// any non-empty override over platform.DefaultProfile().
func Resolve() platform.BoardProfile {
	p := platform.DefaultProfile()

	legacy := strings.TrimSpace(legacyOverride) == "1" || strings.EqualFold(strings.TrimSpace(legacyOverride), "true")
	if legacy {
		p.SPIInterfaceKind = platform.SPILPC
		p.BootTimeout = platform.LegacyBootTimeout
		p.SectorSize = platform.LargeSectorSize
		p.SRCRegionOffset = LegacySRCOffsetSmall
	}

	if v := strings.TrimSpace(srcOffsetOverride); v != "" {
		if n, err := strconv.ParseUint(v, 0, 32); err == nil {
			p.SRCRegionOffset = uint32(n)
		}
	}

	if v := strings.TrimSpace(bootTimeoutOverride); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			p.BootTimeout = d
		}
	}

	if v := strings.TrimSpace(advancedSecurityOverride); v == "1" || strings.EqualFold(v, "true") {
		p.AdvancedSecurity = true
	}

	return p
}
