package ppu

// RenderBGScanlineUsingFetcher renders 160 BG pixels for the given LY using the isolated fetcher.
func RenderBGScanlineUsingFetcher(mem VRAMReader, mapBase uint16, tileData8000 bool, scx, scy, ly byte) [160]byte {
	var out [160]byte

	bgY := uint16(ly) + uint16(scy)
	fineY := byte(bgY & 7)
	mapY := (bgY >> 3) & 31

	startX := uint16(scx)
	tileX := (startX >> 3) & 31
	fineX := int(startX & 7)

	tileIndexAddr := mapBase + mapY*32 + tileX

	var q fifo
	f := newBGFetcher(mem, &q)
	f.Configure(tileData8000, tileIndexAddr, fineY)
	f.Fetch()
	for i := 0; i < fineX; i++ {
		_, _ = q.Pop()
	}

	for x := 0; x < 160; x++ {
		if q.Len() == 0 {
			tileX = (tileX + 1) & 31
			tileIndexAddr = mapBase + mapY*32 + tileX
			f.Configure(tileData8000, tileIndexAddr, fineY)
			f.Fetch()
		}
		px, _ := q.Pop()
		out[x] = px
	}
	return out
}

// RenderWindowScanlineUsingFetcher renders the window layer for a scanline using the fetcher.
func RenderWindowScanlineUsingFetcher(mem VRAMReader, mapBase uint16, tileData8000 bool, wxStart int, winLine byte) [160]byte {
	var out [160]byte
	if wxStart >= 160 {
		return out
	}
	if wxStart < 0 {
		wxStart = 0
	}
	mapY := (uint16(winLine) >> 3) & 31
	fineY := winLine & 7
	tileX := uint16(0)
	tileIndexAddr := mapBase + mapY*32 + tileX
	var q fifo
	f := newBGFetcher(mem, &q)
	f.Configure(tileData8000, tileIndexAddr, fineY)
	f.Fetch()
	for x := wxStart; x < 160; x++ {
		if q.Len() == 0 {
			tileX = (tileX + 1) & 31
			tileIndexAddr = mapBase + mapY*32 + tileX
			f.Configure(tileData8000, tileIndexAddr, fineY)
			f.Fetch()
		}
		px, _ := q.Pop()
		out[x] = px
	}
	return out
}

// spriteHit is one candidate object pixel contributed to scanline ly.
type spriteHit struct {
	x        int  // screen X of this sprite's leftmost column
	oamIndex int  // 0..39, lower wins ties
	colors   [8]byte
	behindBG bool // attr bit7: 1 = sprite hidden behind non-zero BG/window colors
	palette  byte // 0 or 1, selects OBP0/OBP1
}

const maxSpritesPerLine = 10

// scanSprites selects up to 10 objects intersecting ly, OAM-ordered, and
// decodes each one's 8-pixel color-index row for this line.
func (p *PPU) scanSprites(ly byte) []spriteHit {
	tall := p.lcdc&0x04 != 0
	height := 8
	if tall {
		height = 16
	}

	var hits []spriteHit
	for i := 0; i < 40 && len(hits) < maxSpritesPerLine; i++ {
		base := i * 4
		spriteY := int(p.oam[base]) - 16
		spriteX := int(p.oam[base+1]) - 8
		tile := p.oam[base+2]
		attr := p.oam[base+3]

		row := int(ly) - spriteY
		if row < 0 || row >= height {
			continue
		}
		if attr&0x40 != 0 { // Y flip
			row = height - 1 - row
		}
		if tall {
			tile &^= 0x01
		}
		tileAddr := 0x8000 + uint16(tile)*16 + uint16(row)*2
		lo := p.Read(tileAddr)
		hi := p.Read(tileAddr + 1)

		var colors [8]byte
		for px := 0; px < 8; px++ {
			bit := px
			if attr&0x20 == 0 { // no X flip: bit 7 is leftmost pixel
				bit = 7 - px
			}
			ci := ((hi>>uint(bit))&1)<<1 | ((lo >> uint(bit)) & 1)
			colors[px] = ci
		}

		pal := byte(0)
		if attr&0x10 != 0 {
			pal = 1
		}
		hits = append(hits, spriteHit{
			x:        spriteX,
			oamIndex: i,
			colors:   colors,
			behindBG: attr&0x80 != 0,
			palette:  pal,
		})
	}
	return hits
}

// renderLine composites background, window, and sprites for ly into the
// framebuffer, applying the DMG priority rule: a sprite pixel is shown
// unless its color index is 0 (transparent) or it is marked behind-BG and
// the background/window pixel at that column is non-zero.
func (p *PPU) renderLine(ly byte) {
	if ly >= ScreenHeight {
		return
	}

	bgEnabled := p.lcdc&0x01 != 0
	var bgRow [160]byte
	if bgEnabled {
		mapBase := uint16(0x9800)
		if p.lcdc&0x08 != 0 {
			mapBase = 0x9C00
		}
		tileData8000 := p.lcdc&0x10 != 0
		bgRow = RenderBGScanlineUsingFetcher(p, mapBase, tileData8000, p.scx, p.scy, ly)
	}

	windowEnabled := p.lcdc&0x20 != 0 && bgEnabled
	if p.wy == ly {
		p.windowActive = true
	}
	wxStart := int(p.wx) - 7
	if windowEnabled && p.windowActive && wxStart < ScreenWidth {
		mapBase := uint16(0x9800)
		if p.lcdc&0x40 != 0 {
			mapBase = 0x9C00
		}
		tileData8000 := p.lcdc&0x10 != 0
		winRow := RenderWindowScanlineUsingFetcher(p, mapBase, tileData8000, wxStart, byte(p.windowLine))
		for x := wxStart; x < ScreenWidth; x++ {
			if x < 0 {
				continue
			}
			bgRow[x] = winRow[x]
		}
		p.windowLine++
	}

	var bgSource [ScreenWidth]Source
	for x := 0; x < ScreenWidth; x++ {
		bgSource[x] = SourceBackground
	}
	if windowEnabled && p.windowActive {
		for x := wxStart; x < ScreenWidth; x++ {
			if x >= 0 {
				bgSource[x] = SourceWindow
			}
		}
	}

	var spriteColor [ScreenWidth]byte
	var spriteSrc [ScreenWidth]bool
	var spriteBehind [ScreenWidth]bool
	var spritePalette [ScreenWidth]byte

	if p.lcdc&0x02 != 0 {
		hits := p.scanSprites(ly)
		// DMG priority: among sprites overlapping a column, the one with
		// the smaller X wins; ties broken by lower OAM index.
		p.resolveSpritePriority(hits, &spriteColor, &spriteSrc, &spriteBehind, &spritePalette)
	}

	for x := 0; x < ScreenWidth; x++ {
		bgCI := byte(0)
		if bgEnabled {
			bgCI = bgRow[x]
		}
		if spriteSrc[x] && !(spriteBehind[x] && bgCI != 0) {
			pal := p.obp0
			if spritePalette[x] == 1 {
				pal = p.obp1
			}
			p.frame[ly][x] = Pixel{ColorIndex: applyPalette(pal, spriteColor[x]), Source: SourceSprite}
			continue
		}
		if !bgEnabled {
			p.frame[ly][x] = Pixel{ColorIndex: 0, Source: SourceBackdrop}
			continue
		}
		p.frame[ly][x] = Pixel{ColorIndex: applyPalette(p.bgp, bgCI), Source: bgSource[x]}
	}
}

// resolveSpritePriority picks, for each column any hit covers, the winner
// under DMG's leftmost-X-then-lowest-OAM-index rule.
func (p *PPU) resolveSpritePriority(hits []spriteHit, color *[ScreenWidth]byte, has *[ScreenWidth]bool, behind *[ScreenWidth]bool, pal *[ScreenWidth]byte) {
	type claim struct {
		x, oamIndex int
	}
	best := make(map[int]claim)
	for _, h := range hits {
		for px := 0; px < 8; px++ {
			x := h.x + px
			if x < 0 || x >= ScreenWidth || h.colors[px] == 0 {
				continue
			}
			c, ok := best[x]
			if !ok || h.x < c.x || (h.x == c.x && h.oamIndex < c.oamIndex) {
				best[x] = claim{x: h.x, oamIndex: h.oamIndex}
				color[x] = h.colors[px]
				has[x] = true
				behind[x] = h.behindBG
				pal[x] = h.palette
			}
		}
	}
}

// applyPalette maps a 2-bit color index through a BGP/OBPn palette byte.
func applyPalette(palette, colorIndex byte) byte {
	return (palette >> (colorIndex * 2)) & 0x03
}
