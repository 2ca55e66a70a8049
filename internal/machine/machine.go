// Package machine assembles the CPU, Bus, Clock, PPU, and Joypad into a
// single runnable console: load a ROM, feed button state in, pull
// composited frames and serial bytes out.
//
// Grounded on the teacher's internal/emu.Machine, generalized from its
// milestone-0 test-pattern stub into the real fixed per-step loop of
// spec.md §5 (poll input, step the CPU or debit a halt cycle, let pending
// interrupts resolve through the CPU's own servicing path, advance the
// PPU/clock via Bus.Tick, repeat until a frame completes).
package machine

import (
	"fmt"

	"github.com/kaelbrook/pocketgb/internal/bus"
	"github.com/kaelbrook/pocketgb/internal/cpu"
	"github.com/kaelbrook/pocketgb/internal/joypad"
	"github.com/kaelbrook/pocketgb/internal/ppu"
)

// Config carries settings that affect emulation behavior but not semantics
// spec.md treats as invariant.
type Config struct {
	Trace bool // stored only; Machine itself does not log (cmd/pocketgb installs a logging DebugHook for -trace)
}

// DebugHook receives a StepInfo after every retired CPU instruction. Used by
// the optional debugger/tracer surface from spec.md §4.6; nil disables it.
type DebugHook func(StepInfo)

// StepInfo is a snapshot passed to a DebugHook after one CPU instruction.
type StepInfo struct {
	PC     uint16
	Opcode byte
	MCycles int
}

// Machine wires a CPU, Bus, and the Bus's PPU/Clock/Joypad into one runnable
// console.
type Machine struct {
	cfg Config
	bus *bus.Bus
	cpu *cpu.CPU

	paused bool
	hook   DebugHook

	serial []byte // accumulated serial output, for hosts without their own sink
}

// serialSink adapts Machine into an io.Writer so Bus can report SB/SC bytes.
type serialSink struct{ m *Machine }

func (s serialSink) Write(p []byte) (int, error) {
	s.m.serial = append(s.m.serial, p...)
	return len(p), nil
}

// New loads rom (and, if non-empty, boot) into a freshly wired Machine.
func New(cfg Config, rom []byte, boot []byte) (*Machine, error) {
	b, err := bus.New(rom)
	if err != nil {
		return nil, fmt.Errorf("machine: %w", err)
	}
	m := &Machine{cfg: cfg, bus: b}
	b.SetSerialWriter(serialSink{m})

	m.cpu = cpu.New(b)
	if len(boot) > 0 {
		if err := b.SetBootROM(boot); err != nil {
			return nil, fmt.Errorf("machine: %w", err)
		}
		m.cpu.SP = 0xFFFE
		m.cpu.PC = 0x0000
	} else {
		m.cpu.ResetNoBoot()
		m.cpu.SetPC(0x0100)
	}
	return m, nil
}

// Bus exposes the underlying bus, e.g. for a host shell driving cmd/cpurunner-style tooling.
func (m *Machine) Bus() *bus.Bus { return m.bus }

// CPU exposes the underlying CPU, for tests and debugger surfaces.
func (m *Machine) CPU() *cpu.CPU { return m.cpu }

// SetDebugHook installs or clears the per-instruction debugger callback.
func (m *Machine) SetDebugHook(h DebugHook) { m.hook = h }

// Pause stops RunFrame from executing further instructions until Continue is called.
func (m *Machine) Pause() { m.paused = true }

// Continue clears a pause set by Pause or by the debug hook.
func (m *Machine) Continue() { m.paused = false }

// Paused reports whether the machine is currently halted for debugging.
func (m *Machine) Paused() bool { return m.paused }

// SetButtons updates the joypad's held-button state for button.
func (m *Machine) SetButtons(b joypad.Button, held bool) {
	m.bus.Joypad().SetHeld(b, held)
}

// Step retires exactly one CPU instruction (or one halted-cycle poll),
// advances the bus/PPU/clock by the machine cycles it consumed, and invokes
// the debug hook if set. Any *cpu.Fault panicking out of the CPU is left to
// propagate to the caller; cmd/pocketgb does not recover it, so a fault
// ends that process with Go's panic report.
func (m *Machine) Step() {
	pc := m.cpu.PC
	op := m.bus.Read8(pc)
	mcycles := m.cpu.Step()
	if m.hook != nil {
		m.hook(StepInfo{PC: pc, Opcode: op, MCycles: mcycles})
	}
}

// RunFrame retires instructions until the PPU reports a completed frame
// (VBlank entered) or the machine is paused.
func (m *Machine) RunFrame() {
	for !m.paused {
		m.Step()
		if m.bus.PPU().ConsumeFrame() {
			return
		}
	}
}

// Framebuffer returns the most recently composited 160x144 frame.
func (m *Machine) Framebuffer() [ppu.ScreenHeight][ppu.ScreenWidth]ppu.Pixel {
	return m.bus.PPU().Frame()
}

// DrainSerial returns and clears any serial bytes accumulated since the
// last call, for host shells that don't install their own writer.
func (m *Machine) DrainSerial() []byte {
	s := m.serial
	m.serial = nil
	return s
}
