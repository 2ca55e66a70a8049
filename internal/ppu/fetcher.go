package ppu

// VRAMReader abstracts VRAM byte access for the fetcher and the scanline
// renderers built on top of it, so both can run against either a live PPU
// or a bare mock in tests.
type VRAMReader interface {
	Read(addr uint16) byte
}

// fifo is the background/window pixel FIFO: a ring buffer of 2-bit color
// indices, sized for four tiles' worth of pending pixels so a fetch can run
// ahead of the renderer pulling pixels out one at a time.
type fifo struct {
	buf  [32]byte
	head int
	tail int
	size int
}

func (q *fifo) Clear()   { q.head, q.tail, q.size = 0, 0, 0 }
func (q *fifo) Len() int { return q.size }
func (q *fifo) Push(ci byte) bool {
	if q.size == len(q.buf) {
		return false
	}
	q.buf[q.tail] = ci & 0x03
	q.tail = (q.tail + 1) % len(q.buf)
	q.size++
	return true
}
func (q *fifo) Pop() (byte, bool) {
	if q.size == 0 {
		return 0, false
	}
	v := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return v, true
}

// bgFetcher decodes one background or window tile row (8 pixels) and pushes
// it into a fifo. Background and window share this type since they differ
// only in which tile map and fine-Y they're configured with.
type bgFetcher struct {
	mem           VRAMReader
	fifo          *fifo
	tileData8000  bool   // true: 0x8000 unsigned addressing; false: 0x8800 signed addressing
	tileIndexAddr uint16 // map address holding the tile number to fetch next
	fineY         byte   // row within the 8x8 tile, 0-7
}

func newBGFetcher(mem VRAMReader, f *fifo) *bgFetcher { return &bgFetcher{mem: mem, fifo: f} }

// Configure points the fetcher at a specific tile map entry and tile row
// ahead of the next Fetch call. tileIndexAddr is an absolute VRAM address
// that already includes the tile map base, since tilemap selection happens
// once per scanline, not once per tile.
func (fch *bgFetcher) Configure(tileData8000 bool, tileIndexAddr uint16, fineY byte) {
	fch.tileData8000 = tileData8000
	fch.tileIndexAddr = tileIndexAddr
	fch.fineY = fineY & 7
}

// Fetch decodes the configured tile row's 8 pixels and pushes their color
// indices into the fifo, most significant pixel (leftmost) first.
func (fch *bgFetcher) Fetch() {
	tileNum := fch.mem.Read(fch.tileIndexAddr)
	base := fch.tileRowAddr(tileNum)
	lo := fch.mem.Read(base)
	hi := fch.mem.Read(base + 1)
	for px := byte(0); px < 8; px++ {
		bit := 7 - px
		ci := ((hi>>bit)&1)<<1 | ((lo >> bit) & 1)
		fch.fifo.Push(ci)
	}
}

// tileRowAddr resolves a tile number to the VRAM address of its row's two
// bitplane bytes, honoring the 0x8000/0x8800 addressing mode.
func (fch *bgFetcher) tileRowAddr(tileNum byte) uint16 {
	if fch.tileData8000 {
		return 0x8000 + uint16(tileNum)*16 + uint16(fch.fineY)*2
	}
	return 0x9000 + uint16(int8(tileNum))*16 + uint16(fch.fineY)*2
}
