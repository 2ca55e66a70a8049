package ppu

import "testing"

// statMode reads the current mode bits out of STAT (FF41).
func statMode(p *PPU) byte { return p.CPURead(0xFF41) & 0x03 }

// step advances the PPU by n machine cycles (4 dots each), as Bus.Tick does.
func step(p *PPU, mcycles int) {
	var ts uint64
	for i := 0; i < mcycles; i++ {
		ts++
		p.Step(ts)
	}
}

func TestModeSequenceOneLine(t *testing.T) {
	var irqs []int
	p := New(func(bit int) { irqs = append(irqs, bit) })
	p.CPUWrite(0xFF40, 0x80) // LCD on
	if m := statMode(p); m != 2 {
		t.Fatalf("expected mode 2 after LCD on, got %d", m)
	}
	step(p, 20) // 80 dots
	if m := statMode(p); m != 3 {
		t.Fatalf("expected mode 3 after OAM scan, got %d", m)
	}
	step(p, 43) // 172 dots
	if m := statMode(p); m != 0 {
		t.Fatalf("expected mode 0 after pixel transfer, got %d", m)
	}
	step(p, 456/4-63) // remainder of the 456-dot line
	if m := statMode(p); m != 2 {
		t.Fatalf("expected mode 2 at start of next line, got %d", m)
	}
	if p.LY() != 1 {
		t.Fatalf("expected LY=1, got %d", p.LY())
	}
}

func TestVBlankOncePerFrame(t *testing.T) {
	var vblanks int
	p := New(func(bit int) {
		if bit == 0 {
			vblanks++
		}
	})
	p.CPUWrite(0xFF40, 0x80)
	step(p, 456/4*154) // exactly one full frame
	if vblanks != 1 {
		t.Fatalf("expected exactly 1 vblank per frame, got %d", vblanks)
	}
	if !p.ConsumeFrame() {
		t.Fatal("expected a frame to be ready after one full frame's worth of cycles")
	}
	if p.ConsumeFrame() {
		t.Fatal("ConsumeFrame should clear the ready flag")
	}
}

func TestLCDOffBlanksFrame(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF40, 0x80)
	p.CPUWrite(0xFF47, 0xE4) // BGP: identity-ish, doesn't matter, frame should read 0
	p.CPUWrite(0xFF40, 0x00) // LCD off
	frame := p.Frame()
	for y := 0; y < ScreenHeight; y++ {
		for x := 0; x < ScreenWidth; x++ {
			if frame[y][x].ColorIndex != 0 || frame[y][x].Source != SourceBackdrop {
				t.Fatalf("expected blank backdrop pixel at (%d,%d), got %+v", x, y, frame[y][x])
			}
		}
	}
}

func TestSpriteScanLimitsToTen(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF40, 0x80|0x02) // LCD + sprites on
	for i := 0; i < 15; i++ {
		base := uint16(i * 4)
		p.WriteOAMDuringDMA(base+0, 20)             // Y so that ly=4 intersects (Y-16=4 -> Y=20)
		p.WriteOAMDuringDMA(base+1, byte(8+i))       // distinct X
		p.WriteOAMDuringDMA(base+2, 0)               // tile 0
		p.WriteOAMDuringDMA(base+3, 0)                // attr
	}
	hits := p.scanSprites(4)
	if len(hits) != maxSpritesPerLine {
		t.Fatalf("expected %d sprites selected, got %d", maxSpritesPerLine, len(hits))
	}
}

func TestSpritePriorityLeftmostXWins(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF40, 0x80|0x02)
	// Top row only: tile 0 is color index 1 across the row, tile 1 is color index 2.
	p.CPUWrite(0x8000, 0xFF)
	p.CPUWrite(0x8001, 0x00)
	p.CPUWrite(0x8010, 0x00)
	p.CPUWrite(0x8011, 0xFF)

	// OAM 0 at x=10 (covers 10..17), using tile 0 (color index 1).
	p.WriteOAMDuringDMA(0, 20) // Y=20 -> row 4 on ly=4
	p.WriteOAMDuringDMA(1, 18) // X-8=10
	p.WriteOAMDuringDMA(2, 0)
	p.WriteOAMDuringDMA(3, 0)

	// OAM 1 at x=8 (covers 8..15), further left, using tile 1 (color index 2).
	p.WriteOAMDuringDMA(4, 20)
	p.WriteOAMDuringDMA(5, 16) // X-8=8
	p.WriteOAMDuringDMA(6, 1)
	p.WriteOAMDuringDMA(7, 0)

	hits := p.scanSprites(4)
	var color [ScreenWidth]byte
	var has [ScreenWidth]bool
	var behind [ScreenWidth]bool
	var pal [ScreenWidth]byte
	p.resolveSpritePriority(hits, &color, &has, &behind, &pal)

	if !has[12] {
		t.Fatal("expected column 12 to be covered by a sprite")
	}
	// Both sprites cover column 12; the leftmost-starting one (x=8, tile 1,
	// color index 2) must win over the one starting at x=10 (color index 1).
	if color[12] != 2 {
		t.Fatalf("expected leftmost sprite (color index 2) to win at column 12, got %d", color[12])
	}
}

func TestSpriteBehindNonZeroBackgroundIsHidden(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF47, 0xE4) // BGP identity
	p.CPUWrite(0xFF48, 0xE4) // OBP0 identity

	// BG tile 2, mapped at column 1 (screen x=8..15), color index 2 in the
	// leftmost pixel of its top row (screen x=8).
	p.CPUWrite(0x8020, 0x00)
	p.CPUWrite(0x8021, 0x80)
	p.CPUWrite(0x9801, 0x02)

	// Sprite tile 1, color index 1 in the leftmost pixel of its top row,
	// placed behind the background (attribute bit 7).
	p.CPUWrite(0x8010, 0x80)
	p.CPUWrite(0x8011, 0x00)
	p.WriteOAMDuringDMA(0, 16)   // Y-16=0: covers screen row 0
	p.WriteOAMDuringDMA(1, 16)   // X-8=8: covers screen column 8
	p.WriteOAMDuringDMA(2, 1)    // tile 1
	p.WriteOAMDuringDMA(3, 0x80) // behind BG/window

	p.CPUWrite(0xFF40, 0x93) // LCD+BG(8000 addressing)+sprites on
	p.renderLine(0)

	px := p.Frame()[0][8]
	if px.Source != SourceBackground {
		t.Fatalf("expected the background pixel to win over a behind-BG sprite over non-zero BG color, got source=%v color=%d", px.Source, px.ColorIndex)
	}
}
