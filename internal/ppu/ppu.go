// Package ppu implements the picture processing unit: VRAM/OAM storage,
// the LCDC/STAT/scroll/palette registers, the mode-2/3/0 and VBlank
// scanline schedule, and per-scanline background/window/object compositing
// into a 160x144 framebuffer of Pixel{ColorIndex, Source} values.
//
// Grounded on the teacher's internal/ppu package. The teacher's Tick(cycles)
// dot-counter and mode scheduling are kept; Step(timestamp) is a thin
// adapter driving that same schedule from the Clock's monotonic
// machine-cycle timestamp per spec.md §4.4, and scanline composition uses
// the teacher's unwired fetcher/FIFO helpers (fetcher.go, scanline.go),
// extended here with a sprite FIFO and the spec's five-step pixel mixing
// rule instead of rendering background only.
package ppu

const (
	ScreenWidth  = 160
	ScreenHeight = 144

	dotsPerLine  = 456
	linesPerFrame = 154
)

// Source identifies which layer produced a composited pixel.
type Source int

const (
	SourceBackdrop Source = iota
	SourceBackground
	SourceWindow
	SourceSprite
)

// Pixel is one composited framebuffer entry.
type Pixel struct {
	ColorIndex byte // 0..3, already resolved through the owning palette
	Source     Source
}

// InterruptRequester is a callback signature to request IF bits (0:VBlank, 1:STAT, etc.).
type InterruptRequester func(bit int)

// PPU models VRAM/OAM, LCDC/STAT/scroll/palette regs, and composites
// completed scanlines into a framebuffer.
type PPU struct {
	vram [0x2000]byte // 0x8000-0x9FFF
	oam  [0xA0]byte   // 0xFE00-0xFE9F

	lcdc byte // FF40
	stat byte // FF41 (mode bits 0-1, coincidence flag bit2, enables bits3-6)
	scy  byte // FF42
	scx  byte // FF43
	ly   byte // FF44
	lyc  byte // FF45
	bgp  byte // FF47
	obp0 byte // FF48
	obp1 byte // FF49
	wy   byte // FF4A
	wx   byte // FF4B

	dot int // dots (T-states) within current line [0..455]

	windowLine   int  // internal window-line counter, advances only on rendered lines
	windowActive bool // latched once WY==LY is seen this frame

	lastTimestamp uint64
	frame         [ScreenHeight][ScreenWidth]Pixel
	frameReady    bool

	req InterruptRequester
}

func New(req InterruptRequester) *PPU { return &PPU{req: req} }

// CPURead returns bytes for VRAM, OAM, and PPU IO registers. Returns 0xFF for others.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == 3 {
			return 0xFF
		}
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return 0xFF
		}
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		return 0x80 | (p.stat & 0x7F)
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and PPU IO regs.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == 3 {
			return
		}
		p.vram[addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return
		}
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		prev := p.lcdc
		p.lcdc = value
		if (p.lcdc&0x80) == 0 && (prev&0x80) != 0 {
			p.ly = 0
			p.dot = 0
			p.windowLine = 0
			p.windowActive = false
			p.setMode(0)
			p.updateLYC()
			p.blankFrame()
		} else if (p.lcdc&0x80) != 0 && (prev&0x80) == 0 {
			p.ly = 0
			p.dot = 0
			p.windowLine = 0
			p.windowActive = false
			p.setMode(2)
			p.updateLYC()
		}
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		p.ly = 0
		p.dot = 0
		p.updateLYC()
		if (p.lcdc & 0x80) != 0 {
			p.setMode(2)
		}
	case addr == 0xFF45:
		p.lyc = value
		p.updateLYC()
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
	case addr == 0xFF49:
		p.obp1 = value
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	}
}

// WriteOAMDuringDMA writes OAM byte index (0..159) directly, bypassing the
// CPU-visible mode-2/3 lockout: OAM DMA owns the bus during its transfer.
func (p *PPU) WriteOAMDuringDMA(index uint16, v byte) {
	if index < uint16(len(p.oam)) {
		p.oam[index] = v
	}
}

// Step advances the PPU to the Clock's monotonic machine-cycle timestamp.
// Each machine cycle is 4 dots (T-states).
func (p *PPU) Step(timestamp uint64) {
	delta := timestamp - p.lastTimestamp
	p.lastTimestamp = timestamp
	if delta == 0 || delta > 1<<20 {
		// first call, or a rewound/garbage timestamp: resync without a storm of work
		delta = 1
	}
	p.tick(int(delta) * 4)
}

// Read implements ppu.VRAMReader for the scanline fetcher helpers.
func (p *PPU) Read(addr uint16) byte {
	if addr >= 0x8000 && addr <= 0x9FFF {
		return p.vram[addr-0x8000]
	}
	return 0xFF
}

func (p *PPU) tick(dots int) {
	if dots <= 0 {
		return
	}
	for i := 0; i < dots; i++ {
		if (p.lcdc & 0x80) == 0 {
			continue
		}
		p.dot++

		var mode byte
		if p.ly >= ScreenHeight {
			mode = 1
		} else {
			switch {
			case p.dot < 80:
				mode = 2
			case p.dot < 80+172:
				mode = 3
			default:
				mode = 0
			}
		}
		wasMode3 := (p.stat & 0x03) == 3
		p.setMode(mode)
		if wasMode3 && mode == 0 {
			p.renderLine(p.ly)
		}

		if p.dot >= dotsPerLine {
			p.dot = 0
			p.ly++
			if p.ly == ScreenHeight {
				p.frameReady = true
				if p.req != nil {
					p.req(0) // VBlank
				}
				if (p.stat & (1 << 4)) != 0 {
					if p.req != nil {
						p.req(1)
					}
				}
			} else if p.ly >= linesPerFrame {
				p.ly = 0
				p.windowLine = 0
				p.windowActive = false
			}
			p.updateLYC()
			if p.ly >= ScreenHeight {
				p.setMode(1)
			} else {
				p.setMode(2)
			}
		}
	}
}

func (p *PPU) setMode(mode byte) {
	prev := p.stat & 0x03
	if prev == mode {
		return
	}
	p.stat = (p.stat &^ 0x03) | (mode & 0x03)
	switch mode {
	case 0:
		if (p.stat & (1 << 3)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	case 2:
		if (p.stat & (1 << 5)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	}
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
		if (p.stat & (1 << 6)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	} else {
		p.stat &^= 1 << 2
	}
}

func (p *PPU) blankFrame() {
	for y := 0; y < ScreenHeight; y++ {
		for x := 0; x < ScreenWidth; x++ {
			p.frame[y][x] = Pixel{ColorIndex: 0, Source: SourceBackdrop}
		}
	}
}

// Frame returns a copy of the 160x144 framebuffer. Lines are composited
// into it as they are drawn, so it holds a complete frame once ConsumeFrame
// has reported VBlank.
func (p *PPU) Frame() [ScreenHeight][ScreenWidth]Pixel { return p.frame }

// ConsumeFrame reports whether VBlank has been entered since the last call,
// clearing the flag; used by the host loop to decide when to present.
func (p *PPU) ConsumeFrame() bool {
	ready := p.frameReady
	p.frameReady = false
	return ready
}

func (p *PPU) BGP() byte  { return p.bgp }
func (p *PPU) OBP0() byte { return p.obp0 }
func (p *PPU) OBP1() byte { return p.obp1 }
func (p *PPU) LCDC() byte { return p.lcdc }
func (p *PPU) SCY() byte  { return p.scy }
func (p *PPU) SCX() byte  { return p.scx }
func (p *PPU) LY() byte   { return p.ly }
func (p *PPU) WY() byte   { return p.wy }
func (p *PPU) WX() byte   { return p.wx }
