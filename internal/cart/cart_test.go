package cart

import "testing"

func makeROM(cartType byte, romSizeCode byte, banks int) []byte {
	rom := make([]byte, banks*0x4000)
	rom[0x0147] = cartType
	rom[0x0148] = romSizeCode
	rom[0x0149] = 0x00
	// distinguish each bank's first byte for bank-select tests
	for b := 0; b < banks; b++ {
		rom[b*0x4000] = byte(b)
	}
	return rom
}

func TestNewCartridgeUnknownTypeIsFatal(t *testing.T) {
	rom := makeROM(0x0B, 0x00, 2) // MMM01, unsupported
	_, err := NewCartridge(rom)
	if err == nil {
		t.Fatal("expected an error for unsupported cartridge type")
	}
	var target *UnsupportedCartTypeError
	if !errorsAs(err, &target) {
		t.Fatalf("expected UnsupportedCartTypeError, got %v (%T)", err, err)
	}
}

func TestNewCartridgeSizeMismatch(t *testing.T) {
	rom := makeROM(0x00, 0x01, 4) // declares 64KiB (4 banks) but...
	rom = rom[:0x4000]            // ...is truncated to 1 bank
	_, err := NewCartridge(rom)
	if err == nil {
		t.Fatal("expected a size mismatch error")
	}
}

func TestROMOnlyIgnoresWrites(t *testing.T) {
	rom := makeROM(0x00, 0x00, 2)
	c := NewROMOnly(rom)
	before := c.Read(0x0000)
	c.Write(0x2000, 0xFF)
	if got := c.Read(0x0000); got != before {
		t.Fatalf("ROM-only write should be a no-op, got %#02x want %#02x", got, before)
	}
}

func TestMBC1BankZeroAliasesToOne(t *testing.T) {
	rom := makeROM(0x01, 0x00, 4)
	m := NewMBC1(rom, 0)
	m.Write(0x2000, 0x00) // select bank 0 in lower slot
	if got := m.Read(0x4000); got != 1 {
		t.Fatalf("bank 0 should alias to bank 1, read %#02x", got)
	}
}

func TestMBC1SwitchesUpperROMBank(t *testing.T) {
	rom := makeROM(0x01, 0x00, 4)
	m := NewMBC1(rom, 0)
	m.Write(0x2000, 0x03)
	if got := m.Read(0x4000); got != 3 {
		t.Fatalf("expected bank 3's first byte (3), got %d", got)
	}
}

func TestMBC1RAMEnableGatesAccess(t *testing.T) {
	rom := makeROM(0x02, 0x00, 2)
	m := NewMBC1(rom, 0x2000)
	m.Write(0xA000, 0x42) // RAM disabled, should be dropped
	if got := m.Read(0xA000); got != 0xFF {
		t.Fatalf("write to disabled RAM should not land, got %#02x", got)
	}
	m.Write(0x0000, 0x0A) // enable RAM
	m.Write(0xA000, 0x42)
	if got := m.Read(0xA000); got != 0x42 {
		t.Fatalf("RAM write/read after enable failed, got %#02x", got)
	}
}

func TestMBC3BankSwitchAndRAM(t *testing.T) {
	rom := makeROM(0x13, 0x00, 8)
	m := NewMBC3(rom, 0x2000)
	m.Write(0x2000, 0x05)
	if got := m.Read(0x4000); got != 5 {
		t.Fatalf("expected bank 5, got %d", got)
	}
	m.Write(0x0000, 0x0A)
	m.Write(0x4000, 0x01) // ram bank 1
	m.Write(0xA000, 0x99)
	if got := m.Read(0xA000); got != 0x99 {
		t.Fatalf("MBC3 RAM round-trip failed, got %#02x", got)
	}
}

// errorsAs is a tiny local shim so this file doesn't need a second import
// alongside "errors" just for As.
func errorsAs(err error, target **UnsupportedCartTypeError) bool {
	e, ok := err.(*UnsupportedCartTypeError)
	if !ok {
		return false
	}
	*target = e
	return true
}
