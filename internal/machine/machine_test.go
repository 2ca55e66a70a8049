package machine

import "testing"

// minimalROM builds a 32KB ROM-only cartridge image with a header valid
// enough for cart.NewCartridge to accept, whose reset vector at 0x0100
// runs a tight JR -2 loop so a fixed instruction budget is predictable.
func minimalROM() []byte {
	rom := make([]byte, 32*1024)
	rom[0x0147] = 0x00
	rom[0x0148] = 0x00
	rom[0x0149] = 0x00
	rom[0x0100] = 0x18 // JR
	rom[0x0101] = 0xFE // -2: jump back to self
	return rom
}

// TestScenario_PowerOnToBootUnmap runs a boot ROM whose last instruction
// writes 1 to 0xFF50, and checks PC reaches 0x0100 and that reads of 0x0000
// thereafter return the cartridge's byte, not the boot ROM's.
func TestScenario_PowerOnToBootUnmap(t *testing.T) {
	rom := minimalROM()
	rom[0x0000] = 0xAB // distinct from the boot rom's filler NOPs

	boot := make([]byte, 0x100) // zero-filled: an implicit run of NOPs
	boot[0xFC] = 0x3E           // LD A,0x01
	boot[0xFD] = 0x01
	boot[0xFE] = 0xE0 // LDH (0xFF50),A -- unmaps the boot rom on retirement
	boot[0xFF] = 0x50

	m, err := New(Config{}, rom, boot)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 300 && m.CPU().PC != 0x0100; i++ {
		m.Step()
	}
	if m.CPU().PC != 0x0100 {
		t.Fatalf("PC never reached 0x0100, stuck at %#04x", m.CPU().PC)
	}
	if v := m.Bus().Read8(0x0000); v != 0xAB {
		t.Fatalf("reads of 0x0000 after boot unmap got %#02x, want the cartridge's 0xAB", v)
	}
}

func TestNewSkipsBootWhenNoneProvided(t *testing.T) {
	m, err := New(Config{}, minimalROM(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.CPU().PC != 0x0100 {
		t.Fatalf("PC: got %#04x, want 0x0100", m.CPU().PC)
	}
	if m.CPU().SP != 0xFFFE {
		t.Fatalf("SP: got %#04x, want 0xFFFE", m.CPU().SP)
	}
}

func TestNewWithBootStartsAtZero(t *testing.T) {
	boot := make([]byte, 0x100)
	m, err := New(Config{}, minimalROM(), boot)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.CPU().PC != 0x0000 {
		t.Fatalf("PC: got %#04x, want 0x0000", m.CPU().PC)
	}
}

func TestStepInvokesDebugHook(t *testing.T) {
	m, err := New(Config{}, minimalROM(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var calls int
	m.SetDebugHook(func(info StepInfo) {
		calls++
		if info.PC != 0x0100 {
			t.Fatalf("hook saw pc %#04x, want 0x0100", info.PC)
		}
	})
	m.Step()
	if calls != 1 {
		t.Fatalf("expected debug hook to fire once, got %d", calls)
	}
}

func TestSetButtonsReachesJoypad(t *testing.T) {
	m, err := New(Config{}, minimalROM(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.Bus().Write8(0xFF00, 0x20) // P14 low: select the D-pad row
	before := m.Bus().Read8(0xFF00) & 0x0F
	m.SetButtons(0, true) // joypad.Right
	after := m.Bus().Read8(0xFF00) & 0x0F
	if after == before {
		t.Fatal("expected pressing a button to change the joypad register's low nibble")
	}
}

func TestPauseStopsRunFrame(t *testing.T) {
	m, err := New(Config{}, minimalROM(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.Pause()
	if !m.Paused() {
		t.Fatal("expected Paused() to report true after Pause()")
	}
	m.RunFrame() // should return immediately without looping forever
	m.Continue()
	if m.Paused() {
		t.Fatal("expected Paused() to report false after Continue()")
	}
}
