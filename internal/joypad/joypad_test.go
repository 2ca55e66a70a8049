package joypad

import "testing"

func TestSelectDPadReflectsHeldButtons(t *testing.T) {
	j := New(nil)
	j.Write(0x20) // select D-pad (P14=0, P15=1)
	j.SetHeld(Up, true)

	got := j.Read()
	if got&0x04 != 0 {
		t.Fatalf("Up bit should read 0 (pressed), got JOYP=%#02x", got)
	}
	if got&0x01 == 0 {
		t.Fatalf("Right bit should read 1 (not pressed), got JOYP=%#02x", got)
	}
}

func TestPressEdgeRaisesInterruptOnlyOnce(t *testing.T) {
	var n int
	j := New(func(bit int) {
		if bit == 4 {
			n++
		}
	})
	j.Write(0x20) // D-pad selected
	j.SetHeld(Down, true)
	if n != 1 {
		t.Fatalf("expected 1 JOYPAD interrupt on press edge, got %d", n)
	}
	j.SetHeld(Down, true) // held again, no new edge
	if n != 1 {
		t.Fatalf("expected no additional interrupt while held, got %d", n)
	}
	j.SetHeld(Down, false)
	if n != 1 {
		t.Fatalf("release should not raise JOYPAD, got %d", n)
	}
}

func TestUnselectedRowDoesNotRaiseInterrupt(t *testing.T) {
	var n int
	j := New(func(bit int) { n++ })
	j.Write(0x10) // only buttons row selected (P15=0), D-pad deselected
	j.SetHeld(Up, true)
	if n != 0 {
		t.Fatalf("press in deselected row should not raise an interrupt, got %d calls", n)
	}
}
