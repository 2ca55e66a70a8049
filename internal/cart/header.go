package cart

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	headerStart = 0x0100
	headerEnd   = 0x014F
)

var nintendoLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E, 0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// Header holds the decoded contents of the cartridge header at
// 0x0100-0x014F, plus a few derived fields useful for logging.
type Header struct {
	Title          string // 0x0134-0x0143, trimmed of NUL padding
	CGBFlag        byte   // 0x0143
	NewLicensee    string // 0x0144-0x0145, meaningful only when OldLicensee == 0x33
	SGBFlag        byte   // 0x0146
	CartType       byte   // 0x0147
	ROMSizeCode    byte   // 0x0148
	RAMSizeCode    byte   // 0x0149
	Destination    byte   // 0x014A
	OldLicensee    byte   // 0x014B
	ROMVersion     byte   // 0x014C
	HeaderChecksum byte   // 0x014D
	GlobalChecksum uint16 // 0x014E-0x014F

	ROMSizeBytes int
	ROMBanks     int
	RAMSizeBytes int
	CartTypeStr  string
}

// TooShortError reports a ROM image too small to even contain a header.
type TooShortError struct {
	Got, Want int
}

func (e *TooShortError) Error() string {
	return fmt.Sprintf("cart: rom image is %d bytes, too short for a header (need at least %d)", e.Got, e.Want)
}

// LogoMatches reports whether rom's Nintendo logo bytes at 0x0104-0x0133
// match the fixed bitmap every licensed cartridge carries. Real hardware
// refuses to boot on a mismatch; this core doesn't enforce that (plenty of
// homebrew and test ROMs skip it), but a host shell can check it and warn.
func LogoMatches(rom []byte) bool {
	if len(rom) < 0x0134 {
		return false
	}
	for i, want := range nintendoLogo {
		if rom[0x0104+i] != want {
			return false
		}
	}
	return true
}

// ParseHeader decodes the cartridge header embedded in rom. Returns an
// error only when rom is too short to contain one; a missing or corrupted
// Nintendo logo and a mismatched header checksum are left to LogoMatches
// and HeaderChecksumOK respectively, since otherwise-valid ROMs sometimes
// skip one or both.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < headerEnd+1 {
		return nil, &TooShortError{Got: len(rom), Want: headerEnd + 1}
	}

	title := strings.TrimRight(string(rom[0x0134:0x0144]), "\x00")

	h := &Header{
		Title:          title,
		CGBFlag:        rom[0x0143],
		NewLicensee:    string(rom[0x0144:0x0146]),
		SGBFlag:        rom[0x0146],
		CartType:       rom[0x0147],
		ROMSizeCode:    rom[0x0148],
		RAMSizeCode:    rom[0x0149],
		Destination:    rom[0x014A],
		OldLicensee:    rom[0x014B],
		ROMVersion:     rom[0x014C],
		HeaderChecksum: rom[0x014D],
		GlobalChecksum: binary.BigEndian.Uint16(rom[0x014E:0x0150]),
	}
	h.ROMSizeBytes, h.ROMBanks = romSizeFromCode(h.ROMSizeCode)
	h.RAMSizeBytes = ramSizeFromCode(h.RAMSizeCode)
	h.CartTypeStr = cartTypeName(h.CartType)
	return h, nil
}

// HeaderChecksumOK recomputes the header checksum over 0x0134-0x014C and
// compares it against the byte the cartridge declares at 0x014D.
func HeaderChecksumOK(rom []byte) bool {
	if len(rom) < 0x014E {
		return false
	}
	var sum byte
	for _, b := range rom[0x0134:0x014D] {
		sum = sum - b - 1
	}
	return sum == rom[0x014D]
}

var romSizeTable = map[byte]struct {
	bytes, banks int
}{
	0x00: {32 * 1024, 2},
	0x01: {64 * 1024, 4},
	0x02: {128 * 1024, 8},
	0x03: {256 * 1024, 16},
	0x04: {512 * 1024, 32},
	0x05: {1 * 1024 * 1024, 64},
	0x06: {2 * 1024 * 1024, 128},
	0x07: {4 * 1024 * 1024, 256},
	0x08: {8 * 1024 * 1024, 512},
	0x52: {1152 * 1024, 72},
	0x53: {1280 * 1024, 80},
	0x54: {1536 * 1024, 96},
}

func romSizeFromCode(code byte) (size, banks int) {
	if e, ok := romSizeTable[code]; ok {
		return e.bytes, e.banks
	}
	return 0, 0
}

var ramSizeTable = map[byte]int{
	0x00: 0,
	0x02: 8 * 1024,
	0x03: 32 * 1024,
	0x04: 128 * 1024,
	0x05: 64 * 1024,
}

func ramSizeFromCode(code byte) int { return ramSizeTable[code] }

var cartTypeNames = []struct {
	low, high byte
	name      string
}{
	{0x00, 0x00, "ROM ONLY"},
	{0x01, 0x03, "MBC1 (variants)"},
	{0x05, 0x06, "MBC2 (variants)"},
	{0x0F, 0x13, "MBC3 (variants)"},
	{0x19, 0x1E, "MBC5 (variants)"},
}

func cartTypeName(code byte) string {
	for _, e := range cartTypeNames {
		if code >= e.low && code <= e.high {
			return e.name
		}
	}
	return "Other/unknown"
}
