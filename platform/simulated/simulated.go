// Package simulated provides in-memory fakes for every platform
// interface, used by every test here that needs a platform and by
// cmd/srcsim.
// Grounded on bindicator_stub.go's !tinygo stub convention: a
// host-buildable stand-in for hardware-only
// code, built unconditionally here since none of this package touches
// real silicon.
package simulated

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"sync"

	"openenterprise/srccore/srcerr"
)

// Flash is an in-memory platform.SPI.
type Flash struct {
	mu         sync.Mutex
	data       []byte
	sectorSize uint32
	locked     bool
	erased     [256]bool // not read or updated by any Flash method
}

// NewFlash allocates a Flash of the given size, pre-filled with the
// erased sentinel byte 0xFF (spec.md §4.A).
func NewFlash(size, sectorSize uint32) *Flash {
	data := make([]byte, size)
	for i := range data {
		data[i] = 0xFF
	}
	return &Flash{data: data, sectorSize: sectorSize, locked: true}
}

func (f *Flash) Init(ctx context.Context) error { return nil }

func (f *Flash) Size() uint32 { return uint32(len(f.data)) }

func (f *Flash) Read(ctx context.Context, offset uint32, buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	end, err := boundsCheck(offset, uint32(len(buf)), uint32(len(f.data)))
	if err != nil {
		return err
	}
	copy(buf, f.data[offset:end])
	return nil
}

func (f *Flash) Write(ctx context.Context, offset uint32, buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked {
		return srcerr.New(srcerr.IoError, "simulated.Flash.Write: flash is locked")
	}
	end, err := boundsCheck(offset, uint32(len(buf)), uint32(len(f.data)))
	if err != nil {
		return err
	}
	copy(f.data[offset:end], buf)
	return nil
}

func (f *Flash) EraseSector(ctx context.Context, offset uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked {
		return srcerr.New(srcerr.IoError, "simulated.Flash.EraseSector: flash is locked")
	}
	if offset%f.sectorSize != 0 {
		return srcerr.New(srcerr.InvalidParameter, "simulated.Flash.EraseSector")
	}
	end, err := boundsCheck(offset, f.sectorSize, uint32(len(f.data)))
	if err != nil {
		return err
	}
	for i := offset; i < end; i++ {
		f.data[i] = 0xFF
	}
	return nil
}

func (f *Flash) Lock(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = true
	return nil
}

func (f *Flash) Unlock(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = false
	return nil
}

// Locked reports whether Lock was called more recently than Unlock.
func (f *Flash) Locked() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locked
}

func boundsCheck(offset, length, size uint32) (uint32, error) {
	if length == 0 {
		return 0, srcerr.New(srcerr.InvalidParameter, "simulated.boundsCheck")
	}
	end := offset + length
	if end < offset || end > size {
		return 0, srcerr.New(srcerr.BoundsExceeded, "simulated.boundsCheck")
	}
	return end, nil
}

// USB is an in-memory platform.USB: a flat path->bytes map, simulating
// the fixed /SECURITY_RECOVERY/ tree.
type USB struct {
	mu      sync.Mutex
	present bool
	files   map[string][]byte
	// WriteProtected makes every mutating call fail with IoError,
	// modeling a write-protected or read-only medium.
	WriteProtected bool
}

// NewUSB builds a USB fake, present by default.
func NewUSB() *USB {
	return &USB{present: true, files: make(map[string][]byte)}
}

func (u *USB) Init(ctx context.Context) error { return nil }

// SetPresent controls IsPresent, modeling device insertion/removal.
func (u *USB) SetPresent(present bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.present = present
}

func (u *USB) IsPresent(ctx context.Context) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.present
}

func (u *USB) FileExists(ctx context.Context, path string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.files[path]
	return ok
}

func (u *USB) ReadFile(ctx context.Context, path string) ([]byte, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	data, ok := u.files[path]
	if !ok {
		return nil, srcerr.New(srcerr.IoError, "simulated.USB.ReadFile")
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (u *USB) WriteFile(ctx context.Context, path string, data []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.WriteProtected {
		return srcerr.New(srcerr.IoError, "simulated.USB.WriteFile")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	u.files[path] = cp
	return nil
}

func (u *USB) DeleteFile(ctx context.Context, path string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.WriteProtected {
		return srcerr.New(srcerr.IoError, "simulated.USB.DeleteFile")
	}
	delete(u.files, path)
	return nil
}

func (u *USB) RenameFile(ctx context.Context, oldPath, newPath string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.WriteProtected {
		return srcerr.New(srcerr.IoError, "simulated.USB.RenameFile")
	}
	data, ok := u.files[oldPath]
	if !ok {
		return srcerr.New(srcerr.IoError, "simulated.USB.RenameFile")
	}
	u.files[newPath] = data
	delete(u.files, oldPath)
	return nil
}

// PutFile is a test helper seeding a file without going through
// WriteProtected checks.
func (u *USB) PutFile(path string, data []byte) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.files[path] = append([]byte(nil), data...)
}

// Crypto is an in-memory platform.Crypto backed by stdlib SHA-256 and
// Ed25519: no prior hardware crypto primitive is reusable here (out of
// scope for SRC itself, spec.md §1), so the fake stands in for the
// embedded public-key verification scheme spec.md §6 describes.
type Crypto struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// NewCrypto generates a fresh Ed25519 keypair for the fake's lifetime.
func NewCrypto() (*Crypto, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, srcerr.Wrap(srcerr.NotInitialized, "simulated.NewCrypto", err)
	}
	return &Crypto{pub: pub, priv: priv}, nil
}

func (c *Crypto) Init(ctx context.Context) error { return nil }

func (c *Crypto) SHA256(buf []byte) [32]byte { return sha256.Sum256(buf) }

func (c *Crypto) Sign(buf []byte) ([]byte, error) {
	return ed25519.Sign(c.priv, buf), nil
}

func (c *Crypto) Verify(buf, signature []byte) bool {
	if len(signature) < 64 {
		return false
	}
	return ed25519.Verify(c.pub, buf, signature)
}

// PublicKey exposes the embedded public key, for constructing an
// independent verifier in tests.
func (c *Crypto) PublicKey() ed25519.PublicKey { return c.pub }

// Sensors is a manually-driven platform.Sensors fake.
type Sensors struct {
	mu            sync.Mutex
	gpio          bool
	watchdog      bool
	postCode      uint8
	firmwareFlag  bool
}

func NewSensors() *Sensors { return &Sensors{} }

func (s *Sensors) SetGPIO(v bool)         { s.mu.Lock(); s.gpio = v; s.mu.Unlock() }
func (s *Sensors) SetWatchdog(v bool)     { s.mu.Lock(); s.watchdog = v; s.mu.Unlock() }
func (s *Sensors) SetPOSTCode(v uint8)    { s.mu.Lock(); s.postCode = v; s.mu.Unlock() }
func (s *Sensors) SetFirmwareFlag(v bool) { s.mu.Lock(); s.firmwareFlag = v; s.mu.Unlock() }

func (s *Sensors) GPIOSignalSeen() bool  { s.mu.Lock(); defer s.mu.Unlock(); return s.gpio }
func (s *Sensors) WatchdogCleared() bool { s.mu.Lock(); defer s.mu.Unlock(); return s.watchdog }
func (s *Sensors) POSTCode() uint8       { s.mu.Lock(); defer s.mu.Unlock(); return s.postCode }
func (s *Sensors) FirmwareFlagSet() bool { s.mu.Lock(); defer s.mu.Unlock(); return s.firmwareFlag }

// System is a manually-driven platform.System fake.
type System struct {
	mu            sync.Mutex
	nowMS         uint32
	RebootCount   int
	SafeModeCount int
	AuthAllowed   bool
}

func NewSystem() *System { return &System{AuthAllowed: true} }

func (s *System) SetNowMS(v uint32) { s.mu.Lock(); s.nowMS = v; s.mu.Unlock() }
func (s *System) Advance(deltaMS uint32) {
	s.mu.Lock()
	s.nowMS += deltaMS
	s.mu.Unlock()
}

func (s *System) NowMS() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nowMS
}

func (s *System) Reboot(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RebootCount++
}

func (s *System) EnterSafeMode(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SafeModeCount++
}

func (s *System) Authenticate(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.AuthAllowed
}
