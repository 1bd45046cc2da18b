// Package platform declares the external collaborators the Security
// Recovery Core depends on: raw SPI flash, a USB mass-storage shim,
// cryptographic primitives, boot-success sensors, and platform timing
// and control. Every one of these is out of scope for the core itself
// (spec.md §1) — they are specified here only as the narrow interfaces
// the core calls through, chosen once at construction and injected,
// never reached for as package-level globals.
package platform

import "context"

// SPI is the raw SPI flash driver. Offsets and lengths are always
// absolute from the start of the device; the core, not this interface,
// is responsible for bounds-checking.
type SPI interface {
	Init(ctx context.Context) error
	Read(ctx context.Context, offset uint32, buf []byte) error
	Write(ctx context.Context, offset uint32, buf []byte) error
	EraseSector(ctx context.Context, offset uint32) error
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
	Locked() bool
	Size() uint32
}

// USB is the USB mass-storage filesystem shim. Paths are forward-slash
// absolute paths inside the mounted recovery tree (e.g.
// "/SECURITY_RECOVERY/A.bin").
type USB interface {
	Init(ctx context.Context) error
	IsPresent(ctx context.Context) bool
	FileExists(ctx context.Context, path string) bool
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte) error
	DeleteFile(ctx context.Context, path string) error
	RenameFile(ctx context.Context, oldPath, newPath string) error
}

// Crypto is the cryptographic primitive collaborator.
type Crypto interface {
	Init(ctx context.Context) error
	SHA256(buf []byte) [32]byte
	Sign(buf []byte) ([]byte, error)
	Verify(buf, signature []byte) bool
}

// Sensors exposes the four independent boot-success signals. Each
// method reports the instantaneous (possibly torn, possibly ISR-updated)
// value; the Boot Supervisor is responsible for edge-latching across
// polls, not this interface.
type Sensors interface {
	GPIOSignalSeen() bool
	WatchdogCleared() bool
	POSTCode() uint8
	FirmwareFlagSet() bool
}

// System is platform timing and control.
type System interface {
	// NowMS returns a monotonic millisecond counter that wraps at 2^32.
	NowMS() uint32
	Reboot(ctx context.Context)
	EnterSafeMode(ctx context.Context)
	// Authenticate gates destructive/administrative operations (clearing
	// the log ring buffer, confirming a scheduled removal). Returns true
	// if the caller is authorized.
	Authenticate(ctx context.Context) bool
}

// ElapsedSince returns the unsigned millisecond difference between now
// and a prior monotonic timestamp, correct across a 2^32 wraparound.
// Per spec.md §8: "treat now - last_backup_at as unsigned difference."
func ElapsedSince(now, prior uint32) uint32 {
	return now - prior
}
