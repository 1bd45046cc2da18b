//go:build tinygo

// Package rp2350 implements platform.SPI against the RP2350's on-board
// QSPI flash using direct ROM calls, bypassing TinyGo's machine.Flash
// (which assumes a single linear firmware image rather than the
// Security Recovery Core's own firmware-region/SRC-region flash
// layout). Adapted from ota/ota.go's ROM-lookup and flash
// erase/program plumbing: the A/B partition table, TBYB confirmation,
// and WiFi-shutdown-before-reboot hooks are dropped (this core has no
// partition table and no networking, spec.md §1's Non-goals), leaving
// a general offset-addressed SPI driver.
package rp2350

/*
#include <stdint.h>
#include <stddef.h>

#define ROM_TABLE_CODE(c1, c2) ((c1) | ((c2) << 8))

#define ROM_FUNC_CONNECT_INTERNAL_FLASH ROM_TABLE_CODE('I', 'F')
#define ROM_FUNC_FLASH_EXIT_XIP         ROM_TABLE_CODE('E', 'X')
#define ROM_FUNC_FLASH_RANGE_ERASE      ROM_TABLE_CODE('R', 'E')
#define ROM_FUNC_FLASH_RANGE_PROGRAM    ROM_TABLE_CODE('R', 'P')
#define ROM_FUNC_FLASH_FLUSH_CACHE      ROM_TABLE_CODE('F', 'C')
#define ROM_FUNC_REBOOT                 ROM_TABLE_CODE('R', 'B')

#define BOOTROM_FUNC_TABLE_OFFSET   0x14
#define BOOTROM_WELL_KNOWN_PTR_SIZE 2
#define BOOTROM_TABLE_LOOKUP_OFFSET (BOOTROM_FUNC_TABLE_OFFSET + BOOTROM_WELL_KNOWN_PTR_SIZE)
#define RT_FLAG_FUNC_ARM_SEC 0x0004

#define XIP_BASE 0x10000000
#define FLASH_SECTOR_ERASE_CMD 0x20

typedef void *(*rom_table_lookup_fn)(uint32_t code, uint32_t mask);
typedef void (*flash_connect_internal_fn)(void);
typedef void (*flash_exit_xip_fn)(void);
typedef void (*flash_range_erase_fn)(uint32_t addr, size_t count, uint32_t block_size, uint8_t block_cmd);
typedef void (*flash_range_program_fn)(uint32_t addr, const uint8_t *data, size_t count);
typedef void (*flash_flush_cache_fn)(void);
typedef int (*rom_reboot_fn)(uint32_t flags, uint32_t delay_ms, uint32_t p0, uint32_t p1);

static inline void *rom_func_lookup_inline(uint32_t code) {
    rom_table_lookup_fn rom_table_lookup =
        (rom_table_lookup_fn)(uintptr_t)*(uint16_t*)(BOOTROM_TABLE_LOOKUP_OFFSET);
    return rom_table_lookup(code, RT_FLAG_FUNC_ARM_SEC);
}

// rp2350_flash_program writes len bytes at the given raw flash offset
// (not an XIP address). Caller is responsible for erasing first.
static void rp2350_flash_program(uint32_t offset, const uint8_t *data, uint32_t len) {
    flash_connect_internal_fn connect = (flash_connect_internal_fn)rom_func_lookup_inline(ROM_FUNC_CONNECT_INTERNAL_FLASH);
    flash_exit_xip_fn exit_xip = (flash_exit_xip_fn)rom_func_lookup_inline(ROM_FUNC_FLASH_EXIT_XIP);
    flash_range_program_fn program = (flash_range_program_fn)rom_func_lookup_inline(ROM_FUNC_FLASH_RANGE_PROGRAM);
    flash_flush_cache_fn flush = (flash_flush_cache_fn)rom_func_lookup_inline(ROM_FUNC_FLASH_FLUSH_CACHE);
    if (!connect || !exit_xip || !program || !flush) return;

    uint32_t status;
    __asm__ volatile ("mrs %0, primask" : "=r" (status));
    __asm__ volatile ("cpsid i");
    connect();
    exit_xip();
    program(offset, data, len);
    flush();
    __asm__ volatile ("msr primask, %0" : : "r" (status));
}

// rp2350_flash_erase_sector erases one 4KB sector at the given raw
// flash offset.
static void rp2350_flash_erase_sector(uint32_t offset) {
    flash_connect_internal_fn connect = (flash_connect_internal_fn)rom_func_lookup_inline(ROM_FUNC_CONNECT_INTERNAL_FLASH);
    flash_exit_xip_fn exit_xip = (flash_exit_xip_fn)rom_func_lookup_inline(ROM_FUNC_FLASH_EXIT_XIP);
    flash_range_erase_fn erase = (flash_range_erase_fn)rom_func_lookup_inline(ROM_FUNC_FLASH_RANGE_ERASE);
    flash_flush_cache_fn flush = (flash_flush_cache_fn)rom_func_lookup_inline(ROM_FUNC_FLASH_FLUSH_CACHE);
    if (!connect || !exit_xip || !erase || !flush) return;

    uint32_t status;
    __asm__ volatile ("mrs %0, primask" : "=r" (status));
    __asm__ volatile ("cpsid i");
    connect();
    exit_xip();
    erase(offset, 4096, 4096, FLASH_SECTOR_ERASE_CMD);
    flush();
    __asm__ volatile ("msr primask, %0" : : "r" (status));
}

static int rp2350_rom_reboot(uint32_t delay_ms) {
    rom_reboot_fn func = (rom_reboot_fn) rom_func_lookup_inline(ROM_FUNC_REBOOT);
    if (!func) return -1;
    return func(0, delay_ms, 0, 0);
}
*/
import "C"

import (
	"context"
	"unsafe"

	"openenterprise/srccore/platform"
	"openenterprise/srccore/srcerr"
)

const xipBase = 0x10000000

// Flash is a platform.SPI backed by the RP2350's internal QSPI flash.
// It starts locked: callers must Unlock before any Write/EraseSector,
// matching spec.md §5's "unlock before first write, lock after
// Removing" and platform/simulated.Flash's fake.
type Flash struct {
	size   uint32
	locked bool
}

// New builds a Flash driver for a device of the given total size.
func New(size uint32) *Flash {
	return &Flash{size: size, locked: true}
}

func (f *Flash) Init(ctx context.Context) error { return nil }

func (f *Flash) Size() uint32 { return f.size }

// Read reads directly from the memory-mapped XIP window; RP2350 flash
// is always readable regardless of the software lock above.
func (f *Flash) Read(ctx context.Context, offset uint32, buf []byte) error {
	end := uint64(offset) + uint64(len(buf))
	if len(buf) == 0 || end > uint64(f.size) {
		return srcerr.New(srcerr.BoundsExceeded, "rp2350.Flash.Read")
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(xipBase+offset))), len(buf))
	copy(buf, src)
	return nil
}

func (f *Flash) Write(ctx context.Context, offset uint32, buf []byte) error {
	if f.locked {
		return srcerr.New(srcerr.IoError, "rp2350.Flash.Write: flash is locked")
	}
	end := uint64(offset) + uint64(len(buf))
	if len(buf) == 0 || end > uint64(f.size) {
		return srcerr.New(srcerr.BoundsExceeded, "rp2350.Flash.Write")
	}
	C.rp2350_flash_program(C.uint32_t(offset), (*C.uint8_t)(&buf[0]), C.uint32_t(len(buf)))
	return nil
}

func (f *Flash) EraseSector(ctx context.Context, offset uint32) error {
	if f.locked {
		return srcerr.New(srcerr.IoError, "rp2350.Flash.EraseSector: flash is locked")
	}
	if offset%platform.DefaultSectorSize != 0 {
		return srcerr.New(srcerr.InvalidParameter, "rp2350.Flash.EraseSector")
	}
	if uint64(offset)+platform.DefaultSectorSize > uint64(f.size) {
		return srcerr.New(srcerr.BoundsExceeded, "rp2350.Flash.EraseSector")
	}
	C.rp2350_flash_erase_sector(C.uint32_t(offset))
	return nil
}

// Lock and Unlock are a software-only gate: the RP2350 ROM exposes no
// hardware write-protect register reachable without a secure-boot
// configuration this core does not assume, so the invariant "no writes
// while locked" is enforced here rather than at the flash controller.
func (f *Flash) Lock(ctx context.Context) error {
	f.locked = true
	return nil
}

func (f *Flash) Unlock(ctx context.Context) error {
	f.locked = false
	return nil
}

func (f *Flash) Locked() bool { return f.locked }

// Reboot triggers a normal ROM-level system reboot, used by a
// platform.System implementation wiring this package's Flash
// alongside real sensors.
func Reboot() {
	C.rp2350_rom_reboot(100)
}
