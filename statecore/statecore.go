// Package statecore implements Component C, the State Machine, and the
// Runtime/Core value that owns it. Per spec.md §9's design note, the
// package-level statics (current_state, config, boot_status,
// removal_scheduled in the original C source) are generalized into one
// owning value constructed once and passed by exclusive borrow into
// Tick — mirroring how main.go threads *slog.Logger and *cywnet.Stack
// through function parameters rather than reaching for globals from
// deep call sites.
package statecore

import (
	"context"

	"openenterprise/srccore/backupengine"
	"openenterprise/srccore/bootsupervisor"
	"openenterprise/srccore/configstore"
	"openenterprise/srccore/platform"
	"openenterprise/srccore/recoveryengine"
	"openenterprise/srccore/removal"
)

// State is one of the eight states in spec.md §4.C's transition table.
type State uint8

const (
	Init State = iota
	Checking
	Success
	Failed
	Recovering
	Active
	Disabled
	Removing
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Checking:
		return "checking"
	case Success:
		return "success"
	case Failed:
		return "failed"
	case Recovering:
		return "recovering"
	case Active:
		return "active"
	case Disabled:
		return "disabled"
	case Removing:
		return "removing"
	default:
		return "unknown"
	}
}

// Runtime holds the volatile, per-boot state spec.md §9's design note
// says must be reconstructable from Config at any point: current
// state and the board profile. The boot supervisor's armed deadline is
// kept in the Supervisor itself. It is never persisted.
type Runtime struct {
	State   State
	Profile platform.BoardProfile
}

// Core owns the single Config record and everything it drives. It is
// constructed once; Tick is called repeatedly by an external host loop
// at roughly 100ms cadence (spec.md §5).
type Core struct {
	spi    platform.SPI
	usb    platform.USB
	crypto platform.Crypto
	sens   platform.Sensors
	sys    platform.System

	store      *configstore.Store
	supervisor *bootsupervisor.Supervisor
	backup     *backupengine.Engine
	recovery   *recoveryengine.Engine
	remover    *removal.Handler
	log        func(string)

	runtime Runtime
	cfg     configstore.Config

	safeMode bool
}

// New builds a Core over its platform collaborators and board profile.
// It does not read Config or initialize hardware; the first Tick, in
// state Init, does that.
func New(spi platform.SPI, usb platform.USB, crypto platform.Crypto, sens platform.Sensors, sys platform.System, profile platform.BoardProfile, log func(string)) *Core {
	if log == nil {
		log = func(string) {}
	}
	store := configstore.New(spi, profile.SRCRegionOffset)
	return &Core{
		spi:        spi,
		usb:        usb,
		crypto:     crypto,
		sens:       sens,
		sys:        sys,
		store:      store,
		supervisor: bootsupervisor.New(sens, sys),
		backup:     backupengine.New(spi, usb, crypto, sys, profile, store, log),
		recovery:   recoveryengine.New(spi, usb, crypto, sys, profile, store, log),
		remover:    removal.New(spi, crypto, sys, profile, store, log),
		log:        log,
		runtime:    Runtime{State: Init, Profile: profile},
	}
}

// Config returns a copy of the current persisted Config, for
// diagnostics and tests.
func (c *Core) Config() configstore.Config { return c.cfg }

// State returns the current state machine state.
func (c *Core) State() State { return c.runtime.State }

// IsSafeMode reports whether the core has entered Safe Mode. Once
// true, Tick makes no further destructive progress (spec.md §4.C).
func (c *Core) IsSafeMode() bool { return c.safeMode }

// ScheduleRemoval sets the persistent removal flag so the NEXT Init
// enters Removing (spec.md §4.C: "Any -> Removing (on next init)").
func (c *Core) ScheduleRemoval(ctx context.Context) error {
	c.cfg.RemovalScheduled = true
	return c.store.Write(ctx, c.cfg)
}

// DisableTemporary disables destructive operations until now+durationMS,
// clamped to the 7-day maximum (spec.md §3 invariant). A core that is
// checking, failed, or running moves to Disabled, so neither recovery
// nor backup runs until the period expires and Tick rearms the
// supervisor.
func (c *Core) DisableTemporary(ctx context.Context, durationMS uint32) error {
	maxMS := uint32(platform.MaxDisableDuration.Milliseconds())
	if durationMS > maxMS {
		durationMS = maxMS
	}
	c.cfg.DisableUntil = c.sys.NowMS() + durationMS
	if err := c.store.Write(ctx, c.cfg); err != nil {
		return err
	}
	switch c.runtime.State {
	case Checking, Success, Failed, Active:
		c.runtime.State = Disabled
	}
	return nil
}

// isDisabled reports whether the core is currently disabled, either
// persistently (Enabled=false) or temporarily (now < DisableUntil).
func (c *Core) isDisabled() bool {
	if !c.cfg.Enabled {
		return true
	}
	if c.cfg.DisableUntil == 0 {
		return false
	}
	return c.sys.NowMS() < c.cfg.DisableUntil
}

// init performs state Init's work: hardware init, Config load, and the
// three-way branch to Removing / Disabled / Checking (spec.md §4.C).
func (c *Core) init(ctx context.Context) error {
	if err := c.spi.Init(ctx); err != nil {
		return err
	}
	// Flash starts locked; the core unlocks it for the duration of the
	// boot attempt and only locks it again on successful Removal
	// (spec.md §5: "unlock before first write, lock after Removing").
	if err := c.spi.Unlock(ctx); err != nil {
		return err
	}
	if err := c.crypto.Init(ctx); err != nil {
		return err
	}
	_ = c.usb.Init(ctx) // USB absence is non-fatal (spec.md §6)

	cfg, err := c.store.Read(ctx)
	if err != nil {
		return err
	}
	c.cfg = cfg

	if c.cfg.RemovalScheduled {
		c.runtime.State = Removing
		return nil
	}
	if c.isDisabled() {
		c.runtime.State = Disabled
		return nil
	}

	c.supervisor.Start(uint32(c.runtime.Profile.BootTimeout.Milliseconds()))
	c.runtime.State = Checking
	c.log("state: init complete, checking boot")
	return nil
}

// Tick advances the state machine by exactly one step and returns. A
// tick runs to completion without yielding (spec.md §5): long
// operations (flash reads, signature verification, flash writes) block
// synchronously within the call.
func (c *Core) Tick(ctx context.Context) error {
	if c.safeMode {
		return nil
	}

	switch c.runtime.State {
	case Init:
		return c.init(ctx)

	case Checking:
		switch c.supervisor.Poll() {
		case bootsupervisor.Succeeded:
			c.log("state: boot success")
			c.runtime.State = Success
		case bootsupervisor.TimedOut:
			c.log("state: boot timeout")
			c.runtime.State = Failed
		}
		return nil

	case Success:
		cfg, err := c.backup.Run(ctx, c.cfg)
		if err == nil {
			c.cfg = cfg
		}
		c.runtime.State = Active
		return err

	case Failed:
		c.log("state: attempting recovery")
		cfg, ok := c.recovery.Run(ctx, c.cfg)
		c.cfg = cfg
		if ok {
			c.runtime.State = Recovering
			c.sys.Reboot(ctx)
			return nil
		}
		c.log("state: recovery failed, entering safe mode")
		c.safeMode = true
		c.sys.EnterSafeMode(ctx)
		return nil

	case Recovering:
		// Host reboot is expected to re-enter Init on the next boot; if
		// Tick is still being called, there is nothing further to do.
		return nil

	case Active:
		cfg, err := c.backup.Run(ctx, c.cfg)
		if err == nil {
			c.cfg = cfg
		}
		return err

	case Disabled:
		if c.cfg.DisableUntil != 0 && c.sys.NowMS() >= c.cfg.DisableUntil {
			c.cfg.DisableUntil = 0
			if err := c.store.Write(ctx, c.cfg); err != nil {
				return err
			}
			c.supervisor.Start(uint32(c.runtime.Profile.BootTimeout.Milliseconds()))
			c.runtime.State = Checking
			c.log("state: disable period expired, rearming")
		}
		return nil

	case Removing:
		cfg, aborted, err := c.remover.Run(ctx, c.cfg)
		c.cfg = cfg
		if err != nil {
			return err
		}
		if aborted {
			c.runtime.State = Init
		}
		return nil
	}
	return nil
}
