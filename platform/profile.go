package platform

import "time"

// SPIInterfaceKind distinguishes standard SPI-attached flash from
// legacy LPC-only boards (spec.md §3 BoardProfile).
type SPIInterfaceKind uint8

const (
	SPIStandard SPIInterfaceKind = iota
	SPILPC
)

// BoardProfile is chosen once at init and overrides the package
// defaults below for legacy or advanced-security boards. It never
// changes the state machine, only its parameters (spec.md §9).
type BoardProfile struct {
	FlashSize        uint32
	SectorSize       uint32
	SRCRegionOffset  uint32
	BootTimeout      time.Duration
	SPIInterfaceKind SPIInterfaceKind

	// AdvancedSecurity marks a board with an attestation/TPM capability.
	// The core never computes or verifies this; it only round-trips the
	// TPMHashStash field in Config, per spec.md §9 ("Attestation and TPM
	// storage ... are out of scope for the core").
	AdvancedSecurity bool
}

// Flash layout and timing defaults (spec.md §3, §6).
const (
	DefaultFirmwareRegionOffset = 0x00000000
	DefaultFirmwareRegionSize   = 8 * 1024 * 1024
	DefaultSRCRegionOffset      = 0x00100000
	DefaultSRCRegionSize        = 512 * 1024
	DefaultFlashSize            = 16 * 1024 * 1024
	DefaultSectorSize           = 4 * 1024
	LargeSectorSize             = 64 * 1024

	DefaultBootTimeout = 30 * time.Second
	LegacyBootTimeout  = 60 * time.Second

	DefaultBackupCooldown = 10 * time.Minute
	MaxDisableDuration     = 7 * 24 * time.Hour

	MinSignatureSize = 64
	MaxSignatureSize = 512
)

// DefaultProfile returns the standard (non-legacy) board profile.
func DefaultProfile() BoardProfile {
	return BoardProfile{
		FlashSize:        DefaultFlashSize,
		SectorSize:       DefaultSectorSize,
		SRCRegionOffset:  DefaultSRCRegionOffset,
		BootTimeout:      DefaultBootTimeout,
		SPIInterfaceKind: SPIStandard,
	}
}

// FirmwareRegionSize reports the size of the main firmware region.
// Present as a method for symmetry with future per-profile overrides;
// today every profile shares the same firmware-region size.
func (p BoardProfile) FirmwareRegionSize() uint32 {
	return DefaultFirmwareRegionSize
}
