// Package bootsupervisor implements Component B, the Boot Supervisor:
// starts a deadline at init, polls the four boot-success sensors, and
// emits Pending/Succeeded/TimedOut. Generalized from main.go's
// "functional watchdog" — lastSuccessfulRefresh,
// consecutiveFailures, systemHealthy accumulated across wake cycles —
// here widened from a single wall-clock refresh signal to a
// four-sensor OR-latch, per spec.md §4.B.
package bootsupervisor

import (
	"openenterprise/srccore/platform"
)

// Result is the outcome of a Poll.
type Result uint8

const (
	Pending Result = iota
	Succeeded
	TimedOut
)

// Supervisor tracks one boot attempt's accumulated sensor state. Sensors
// are edge-latched: once any has asserted, it stays asserted for the
// remainder of the attempt (spec.md §4.B — "a spurious success is safer
// than a spurious recovery").
type Supervisor struct {
	sensors platform.Sensors
	sys     platform.System

	t0        uint32
	timeoutMS uint32

	latchGPIO     bool
	latchWatchdog bool
	latchPOST     bool
	latchFlag     bool
}

// New builds a Supervisor bound to its sensor and clock collaborators.
func New(sensors platform.Sensors, sys platform.System) *Supervisor {
	return &Supervisor{sensors: sensors, sys: sys}
}

// Start arms the supervisor for one boot attempt with the given
// timeout in milliseconds, capturing t0 = now().
func (s *Supervisor) Start(timeoutMS uint32) {
	s.t0 = s.sys.NowMS()
	s.timeoutMS = timeoutMS
	s.latchGPIO = false
	s.latchWatchdog = false
	s.latchPOST = false
	s.latchFlag = false
}

// Poll accumulates the current sensor readings and returns the boot
// decision. The decision is a logical OR over the four latched
// sensors; TimedOut is returned iff none have latched and the timeout
// has elapsed (spec.md §4.B).
func (s *Supervisor) Poll() Result {
	if s.sensors.GPIOSignalSeen() {
		s.latchGPIO = true
	}
	if s.sensors.WatchdogCleared() {
		s.latchWatchdog = true
	}
	if s.sensors.POSTCode() >= 0xA0 {
		s.latchPOST = true
	}
	if s.sensors.FirmwareFlagSet() {
		s.latchFlag = true
	}

	if s.latchGPIO || s.latchWatchdog || s.latchPOST || s.latchFlag {
		return Succeeded
	}

	elapsed := platform.ElapsedSince(s.sys.NowMS(), s.t0)
	if elapsed > s.timeoutMS {
		return TimedOut
	}
	return Pending
}
