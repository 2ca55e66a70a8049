// Package bus implements the 64 KiB memory-mapped address space: cartridge
// ROM/RAM banking via internal/cart, VRAM/OAM/PPU registers via internal/ppu,
// the JOYP register via internal/joypad, the timer registers via
// internal/clock, work RAM, high RAM, OAM DMA, and boot-ROM unmapping.
//
// Grounded on the teacher's internal/bus.Bus, split so the CPU, timer and
// joypad concerns each live in their own component per spec.md §2/§5 instead
// of being folded into the bus struct directly.
package bus

import (
	"fmt"
	"io"

	"github.com/kaelbrook/pocketgb/internal/apu"
	"github.com/kaelbrook/pocketgb/internal/cart"
	"github.com/kaelbrook/pocketgb/internal/clock"
	"github.com/kaelbrook/pocketgb/internal/joypad"
	"github.com/kaelbrook/pocketgb/internal/ppu"
)

const oamDMALengthMCycles = 160

// Bus wires the CPU-visible address space to the cartridge, WRAM, HRAM, and
// the PPU/timer/joypad peripherals.
type Bus struct {
	cart cart.Cartridge

	wram [0x2000]byte // 0xC000-0xDFFF, echoed at 0xE000-0xFDFF
	hram [0x7F]byte   // 0xFF80-0xFFFE

	ppu    *ppu.PPU
	clock  *clock.Clock
	joypad *joypad.Joypad
	apu    *apu.APU

	ie    byte // 0xFFFF
	ifReg byte // 0xFF0F, lower 5 bits used

	sb byte      // 0xFF01
	sc byte      // 0xFF02
	sw io.Writer // serial output sink, optional

	bootROM     []byte
	bootEnabled bool

	dma      byte // 0xFF46, last value written
	dmaSrc   uint16
	dmaIndex int // -1 when no DMA in flight, else 0..159
}

// New builds a Bus around rom, picking a cartridge implementation from its
// header. Returns an error if the header names an unsupported mapper or the
// image size doesn't match the header (spec.md §7, load-time fatal).
func New(rom []byte) (*Bus, error) {
	c, err := cart.NewCartridge(rom)
	if err != nil {
		return nil, err
	}
	return NewWithCartridge(c), nil
}

// NewWithCartridge wires a pre-built cartridge implementation (used by
// tests and tools that want to bypass header parsing).
func NewWithCartridge(c cart.Cartridge) *Bus {
	b := &Bus{cart: c, dmaIndex: -1}
	b.ppu = ppu.New(b.requestInterrupt)
	b.clock = clock.New(b.requestInterrupt)
	b.joypad = joypad.New(b.requestInterrupt)
	b.apu = apu.New()
	return b
}

// APU exposes the internal APU for the host shell's audio device wiring.
func (b *Bus) APU() *apu.APU { return b.apu }

func (b *Bus) requestInterrupt(bit int) {
	b.ifReg |= 1 << uint(bit)
}

// PPU exposes the internal PPU for the host shell's blit path and for tests.
func (b *Bus) PPU() *ppu.PPU { return b.ppu }

// Clock exposes the internal Clock so the CPU can debit machine cycles to it.
func (b *Bus) Clock() *clock.Clock { return b.clock }

// Joypad exposes the internal Joypad so the host shell can report held buttons.
func (b *Bus) Joypad() *joypad.Joypad { return b.joypad }

// Cart returns the underlying cartridge implementation.
func (b *Bus) Cart() cart.Cartridge { return b.cart }

// SetSerialWriter sets a sink that receives bytes written via SB/SC (0xFF01/0xFF02).
func (b *Bus) SetSerialWriter(w io.Writer) { b.sw = w }

// SetBootROM loads a 256-byte boot ROM to be mapped at 0x0000-0x00FF until a
// write to 0xFF50 permanently unmaps it.
func (b *Bus) SetBootROM(data []byte) error {
	if len(data) != 0x100 {
		return fmt.Errorf("bus: boot rom must be exactly 256 bytes, got %d", len(data))
	}
	b.bootROM = make([]byte, 0x100)
	copy(b.bootROM, data)
	b.bootEnabled = true
	return nil
}

// Read8 reads one byte from the 64 KiB address space.
func (b *Bus) Read8(addr uint16) byte {
	switch {
	case addr < 0x8000:
		if b.bootEnabled && addr < 0x0100 {
			return b.bootROM[addr]
		}
		return b.cart.Read(addr)
	case addr <= 0x9FFF:
		return b.ppu.CPURead(addr)
	case addr <= 0xBFFF:
		return b.cart.Read(addr)
	case addr <= 0xDFFF:
		return b.wram[addr-0xC000]
	case addr <= 0xFDFF: // echo RAM mirrors 0xC000-0xDDFF
		return b.wram[addr-0x2000-0xC000]
	case addr <= 0xFE9F:
		if b.dmaInFlight() {
			return 0xFF
		}
		return b.ppu.CPURead(addr)
	case addr <= 0xFEFF:
		return 0xFF // unusable region
	case addr == 0xFF00:
		return b.joypad.Read()
	case addr == 0xFF01:
		return b.sb
	case addr == 0xFF02:
		return 0x7E | (b.sc & 0x81)
	case addr >= 0xFF04 && addr <= 0xFF07:
		return b.clock.Read(addr)
	case addr == 0xFF0F:
		return 0xE0 | (b.ifReg & 0x1F)
	case addr >= 0xFF10 && addr <= 0xFF3F:
		return b.apu.CPURead(addr)
	case addr == 0xFF46:
		return b.dma
	case addr == 0xFF50:
		return 0xFF
	case isPPURegister(addr):
		return b.ppu.CPURead(addr)
	case addr >= 0xFF80 && addr <= 0xFFFE:
		return b.hram[addr-0xFF80]
	case addr == 0xFFFF:
		return b.ie
	default:
		return 0xFF
	}
}

// Read16 reads a little-endian 16-bit value.
func (b *Bus) Read16(addr uint16) uint16 {
	lo := uint16(b.Read8(addr))
	hi := uint16(b.Read8(addr + 1))
	return lo | hi<<8
}

// Write8 writes one byte to the 64 KiB address space.
func (b *Bus) Write8(addr uint16, value byte) {
	switch {
	case addr < 0x8000:
		b.cart.Write(addr, value)
	case addr <= 0x9FFF:
		b.ppu.CPUWrite(addr, value)
	case addr <= 0xBFFF:
		b.cart.Write(addr, value)
	case addr <= 0xDFFF:
		b.wram[addr-0xC000] = value
	case addr <= 0xFDFF:
		b.wram[addr-0x2000-0xC000] = value
	case addr <= 0xFE9F:
		if b.dmaInFlight() {
			return
		}
		b.ppu.CPUWrite(addr, value)
	case addr <= 0xFEFF:
		// unusable region, no-op
	case addr == 0xFF00:
		b.joypad.Write(value)
	case addr == 0xFF01:
		b.sb = value
	case addr == 0xFF02:
		b.writeSC(value)
	case addr >= 0xFF04 && addr <= 0xFF07:
		b.clock.Write(addr, value)
	case addr == 0xFF0F:
		b.ifReg = value & 0x1F
	case addr >= 0xFF10 && addr <= 0xFF3F:
		b.apu.CPUWrite(addr, value)
	case addr == 0xFF46:
		b.startOAMDMA(value)
	case addr == 0xFF50:
		b.bootEnabled = false
	case isPPURegister(addr):
		b.ppu.CPUWrite(addr, value)
	case addr >= 0xFF80 && addr <= 0xFFFE:
		b.hram[addr-0xFF80] = value
	case addr == 0xFFFF:
		b.ie = value
	}
}

// Write16 writes a little-endian 16-bit value.
func (b *Bus) Write16(addr uint16, value uint16) {
	b.Write8(addr, byte(value))
	b.Write8(addr+1, byte(value>>8))
}

func (b *Bus) writeSC(value byte) {
	b.sc = value & 0x81
	if b.sc&0x80 == 0 {
		return
	}
	if b.sw != nil {
		_, _ = b.sw.Write([]byte{b.sb})
	}
	b.ifReg |= 1 << 3 // SERIAL
	b.sc &^= 0x80
}

func isPPURegister(addr uint16) bool {
	switch addr {
	case 0xFF40, 0xFF41, 0xFF42, 0xFF43, 0xFF44, 0xFF45, 0xFF47, 0xFF48, 0xFF49, 0xFF4A, 0xFF4B:
		return true
	default:
		return false
	}
}

// IF returns the raw interrupt-flag byte (lower 5 bits meaningful), for the
// CPU's interrupt-service check.
func (b *Bus) IF() byte { return b.ifReg & 0x1F }

// SetIF overwrites the interrupt-flag byte, used by the CPU to clear a
// serviced interrupt's bit.
func (b *Bus) SetIF(v byte) { b.ifReg = v & 0x1F }

// IE returns the interrupt-enable byte.
func (b *Bus) IE() byte { return b.ie }

func (b *Bus) dmaInFlight() bool { return b.dmaIndex >= 0 }

func (b *Bus) startOAMDMA(value byte) {
	b.dma = value
	b.dmaSrc = uint16(value) << 8
	b.dmaIndex = 0
}

// Tick advances the clock and PPU by mcycles machine cycles and steps any
// OAM DMA transfer in progress, one byte per machine cycle, matching
// spec.md §4.1's 160-machine-cycle timed model.
func (b *Bus) Tick(mcycles int) {
	for i := 0; i < mcycles; i++ {
		b.clock.Tick(1)
		if b.dmaInFlight() {
			v := b.dmaByte(b.dmaSrc + uint16(b.dmaIndex))
			b.ppu.WriteOAMDuringDMA(uint16(b.dmaIndex), v)
			b.dmaIndex++
			if b.dmaIndex >= oamDMALengthMCycles {
				b.dmaIndex = -1
			}
		}
		b.ppu.Step(b.clock.Timestamp())
	}
}

// dmaByte reads a DMA source byte bypassing the in-flight-DMA OAM lockout
// that normal Read8 applies (DMA may itself source from OAM-adjacent RAM).
func (b *Bus) dmaByte(addr uint16) byte {
	switch {
	case addr < 0x8000:
		if b.bootEnabled && addr < 0x0100 {
			return b.bootROM[addr]
		}
		return b.cart.Read(addr)
	case addr <= 0x9FFF:
		return b.ppu.CPURead(addr)
	case addr <= 0xBFFF:
		return b.cart.Read(addr)
	case addr <= 0xDFFF:
		return b.wram[addr-0xC000]
	case addr <= 0xFDFF:
		return b.wram[addr-0x2000-0xC000]
	default:
		return 0xFF
	}
}
