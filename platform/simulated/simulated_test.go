package simulated

import (
	"bytes"
	"context"
	"testing"
)

func TestFlashStartsLocked(t *testing.T) {
	f := NewFlash(4096, 1024)
	ctx := context.Background()
	if !f.Locked() {
		t.Fatal("a fresh Flash should start locked")
	}
	if err := f.Write(ctx, 0, []byte{1}); err == nil {
		t.Fatal("Write on a locked Flash should fail")
	}
	if err := f.EraseSector(ctx, 0); err == nil {
		t.Fatal("EraseSector on a locked Flash should fail")
	}
	if err := f.Unlock(ctx); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := f.Write(ctx, 0, []byte{1}); err != nil {
		t.Fatalf("Write after Unlock: %v", err)
	}
}

func TestFlashReadWriteRoundTrip(t *testing.T) {
	f := NewFlash(4096, 1024)
	ctx := context.Background()
	if err := f.Unlock(ctx); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	data := []byte("hello flash")

	if err := f.Write(ctx, 10, data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := make([]byte, len(data))
	if err := f.Read(ctx, 10, out); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("Read() = %q, want %q", out, data)
	}
}

func TestFlashOutOfBoundsRejected(t *testing.T) {
	f := NewFlash(16, 4)
	ctx := context.Background()
	if err := f.Unlock(ctx); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := f.Read(ctx, 15, make([]byte, 2)); err == nil {
		t.Fatal("Read past the end of flash should fail")
	}
	if err := f.Write(ctx, 15, make([]byte, 2)); err == nil {
		t.Fatal("Write past the end of flash should fail")
	}
}

func TestFlashEraseSectorMustBeAligned(t *testing.T) {
	f := NewFlash(4096, 1024)
	ctx := context.Background()
	if err := f.Unlock(ctx); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := f.EraseSector(ctx, 1); err == nil {
		t.Fatal("EraseSector at a non-aligned offset should fail")
	}
	if err := f.EraseSector(ctx, 1024); err != nil {
		t.Fatalf("EraseSector at an aligned offset: %v", err)
	}
}

func TestFlashEraseSectorRestoresErasedSentinel(t *testing.T) {
	f := NewFlash(4096, 1024)
	ctx := context.Background()
	if err := f.Unlock(ctx); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := f.Write(ctx, 0, []byte{0, 0, 0}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.EraseSector(ctx, 0); err != nil {
		t.Fatalf("EraseSector: %v", err)
	}
	out := make([]byte, 3)
	if err := f.Read(ctx, 0, out); err != nil {
		t.Fatalf("Read: %v", err)
	}
	for _, b := range out {
		if b != 0xFF {
			t.Fatalf("byte after erase = %#x, want 0xFF", b)
		}
	}
}

func TestUSBWriteProtection(t *testing.T) {
	u := NewUSB()
	u.WriteProtected = true
	ctx := context.Background()

	if err := u.WriteFile(ctx, "/x", []byte("y")); err == nil {
		t.Fatal("WriteFile should fail on a write-protected medium")
	}
	u.PutFile("/x", []byte("y")) // test helper bypasses protection
	if !u.FileExists(ctx, "/x") {
		t.Fatal("PutFile should have seeded the file")
	}
	if err := u.DeleteFile(ctx, "/x"); err == nil {
		t.Fatal("DeleteFile should fail on a write-protected medium")
	}
}

func TestCryptoSignVerifyRoundTrip(t *testing.T) {
	c, err := NewCrypto()
	if err != nil {
		t.Fatalf("NewCrypto: %v", err)
	}
	msg := []byte("firmware bytes")
	sig, err := c.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !c.Verify(msg, sig) {
		t.Fatal("Verify should accept a valid signature")
	}
	if c.Verify([]byte("tampered"), sig) {
		t.Fatal("Verify should reject a signature over different bytes")
	}
	if c.Verify(msg, sig[:32]) {
		t.Fatal("Verify should reject an undersized signature")
	}
}
