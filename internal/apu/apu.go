// Package apu models the DMG sound registers (NR10-NR52, wave RAM) so
// software that polls or sets them behaves correctly, and exposes a silent
// PCM stream of the shape a host audio backend expects.
//
// Grounded on the teacher's internal/apu package for the register map and
// masks; the teacher's channel synthesis (square/wave/noise generation,
// envelope and sweep clocking, frame-sequencer timing) is dropped here
// because audio synthesis is an explicit non-goal of this core. What
// remains is the ambient plumbing: a register file real software can drive
// without faulting, and a Stream an ebitengine/oto player can consume.
package apu

// readMask reports which bits of each register actually read back as
// written; the rest float high, matching real DMG APU behavior for
// read-as-1 bits in write-only/partially-writable registers.
var readMask = map[uint16]byte{
	0xFF10: 0x7F, 0xFF11: 0xC0, 0xFF12: 0xFF, 0xFF13: 0x00, 0xFF14: 0x40,
	0xFF16: 0xC0, 0xFF17: 0xFF, 0xFF18: 0x00, 0xFF19: 0x40,
	0xFF1A: 0x80, 0xFF1B: 0x00, 0xFF1C: 0x60, 0xFF1D: 0x00, 0xFF1E: 0x40,
	0xFF20: 0x00, 0xFF21: 0xFF, 0xFF22: 0xFF, 0xFF23: 0x40,
	0xFF24: 0xFF, 0xFF25: 0xFF, 0xFF26: 0x80,
}

// APU stores the NRxx register file and wave RAM. Reads see the written
// value OR'd with each register's fixed high bits; writes while NR52's
// power bit is clear are ignored except to NR52 itself, matching hardware.
type APU struct {
	regs    [0x30]byte // 0xFF10-0xFF3F, indexed by addr-0xFF10
	powerOn bool
}

// New creates an APU with power off, matching DMG post-boot NR52.
func New() *APU {
	return &APU{}
}

// CPURead returns the register at addr (0xFF10-0xFF3F).
func (a *APU) CPURead(addr uint16) byte {
	if addr < 0xFF10 || addr > 0xFF3F {
		return 0xFF
	}
	v := a.regs[addr-0xFF10]
	if mask, ok := readMask[addr]; ok {
		return v | ^mask
	}
	return v
}

// CPUWrite handles a CPU write to addr (0xFF10-0xFF3F). Wave RAM
// (0xFF30-0xFF3F) is always writable; the channel registers are only
// writable while NR52 reports the APU powered on.
func (a *APU) CPUWrite(addr uint16, v byte) {
	if addr < 0xFF10 || addr > 0xFF3F {
		return
	}
	if addr == 0xFF26 {
		a.powerOn = v&0x80 != 0
		a.regs[addr-0xFF10] = v & 0x80
		if !a.powerOn {
			for i := 0x10; i < 0x26; i++ {
				a.regs[i-0x10] = 0
			}
		}
		return
	}
	if addr >= 0xFF30 {
		a.regs[addr-0xFF10] = v
		return
	}
	if !a.powerOn {
		return
	}
	a.regs[addr-0xFF10] = v
}

// Stream produces silence: audio synthesis is out of scope, but a host
// shell can still wire a real playback device against this source.
type Stream struct{}

// Read fills p with silence, implementing io.Reader for an oto player.
func (Stream) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
