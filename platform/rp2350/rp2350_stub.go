//go:build !tinygo

// This file stubs out rp2350.Flash for the regular Go toolchain (vet,
// staticcheck, host-side tests); the real implementation in rp2350.go
// is cgo/TinyGo-only and only builds for the target board.
package rp2350

import (
	"context"

	"openenterprise/srccore/srcerr"
)

// Flash is the host stub for the TinyGo-only hardware driver.
type Flash struct {
	size   uint32
	locked bool
}

// New builds a stub Flash driver; Init, Read, Write and EraseSector
// report NotInitialized since there is no real device behind it on this
// toolchain. Size and the software lock flag work as on the device.
func New(size uint32) *Flash {
	return &Flash{size: size, locked: true}
}

func (f *Flash) Init(ctx context.Context) error {
	return srcerr.New(srcerr.NotInitialized, "rp2350.Flash.Init: host stub, build with tinygo")
}

func (f *Flash) Size() uint32 { return f.size }

func (f *Flash) Read(ctx context.Context, offset uint32, buf []byte) error {
	return srcerr.New(srcerr.NotInitialized, "rp2350.Flash.Read: host stub, build with tinygo")
}

func (f *Flash) Write(ctx context.Context, offset uint32, buf []byte) error {
	return srcerr.New(srcerr.NotInitialized, "rp2350.Flash.Write: host stub, build with tinygo")
}

func (f *Flash) EraseSector(ctx context.Context, offset uint32) error {
	return srcerr.New(srcerr.NotInitialized, "rp2350.Flash.EraseSector: host stub, build with tinygo")
}

func (f *Flash) Lock(ctx context.Context) error {
	f.locked = true
	return nil
}

func (f *Flash) Unlock(ctx context.Context) error {
	f.locked = false
	return nil
}

func (f *Flash) Locked() bool { return f.locked }

// Reboot is a no-op on the host stub.
func Reboot() {}
