// Package joypad maintains the button-latch register reflecting currently
// held buttons under the two-bit row selector at 0xFF00, and raises the
// JOYPAD interrupt on fresh presses in the selected row.
//
// Grounded on the teacher's internal/bus.Bus JOYP handling
// (joypSelect/joypad/joypLower4/updateJoypadIRQ), pulled out into its own
// component per spec.md §2/§4.5.
package joypad

// InterruptRequester raises an IF bit.
type InterruptRequester func(bit int)

// Button is one of the eight logical Game Boy buttons.
type Button int

const (
	Right Button = iota
	Left
	Up
	Down
	A
	B
	Select
	Start
)

var dpadMask = map[Button]byte{Right: 0x01, Left: 0x02, Up: 0x04, Down: 0x08}
var buttonMask = map[Button]byte{A: 0x01, B: 0x02, Select: 0x04, Start: 0x08}

// Joypad models the JOYP register (0xFF00) plus the host-held-button set.
type Joypad struct {
	held     byte // bit i set per Button iota order: right,left,up,down,a,b,select,start
	selector byte // last CPU-written selector bits (0x10 | 0x20), active-low
	lastLow4 byte // last computed lower 4 bits, for edge detection

	req InterruptRequester
}

// New creates a Joypad that raises interrupts through req.
func New(req InterruptRequester) *Joypad {
	j := &Joypad{selector: 0x30, req: req}
	j.lastLow4 = j.lower4()
	return j
}

func heldBit(b Button) byte { return 1 << uint(b) }

// SetHeld marks a button as currently held (down) or released (up), then
// re-evaluates the latch for an interrupt-worthy press edge.
func (j *Joypad) SetHeld(b Button, down bool) {
	if down {
		j.held |= heldBit(b)
	} else {
		j.held &^= heldBit(b)
	}
	j.refresh()
}

// Read returns the JOYP register (0xFF00).
func (j *Joypad) Read() byte {
	return 0xC0 | j.selector | j.lower4()
}

// Write handles a CPU write to JOYP: only the row-selector bits (4,5) are
// writable. Changing the selection re-latches the data bits without raising
// JOYPAD, so a button already held when its row is selected does not fire.
func (j *Joypad) Write(value byte) {
	j.selector = value & 0x30
	j.lastLow4 = j.lower4()
}

// lower4 computes the active-low 4-bit data nibble for the currently
// selected row(s), starting from all-1 (not pressed) and clearing a bit
// for every currently held button in a selected row.
func (j *Joypad) lower4() byte {
	bits := byte(0x0F)
	if j.selector&0x10 == 0 { // P14 low selects D-pad
		for b, mask := range dpadMask {
			if j.held&heldBit(b) != 0 {
				bits &^= mask
			}
		}
	}
	if j.selector&0x20 == 0 { // P15 low selects buttons
		for b, mask := range buttonMask {
			if j.held&heldBit(b) != 0 {
				bits &^= mask
			}
		}
	}
	return bits
}

// refresh recomputes the latch and raises JOYPAD on any 1->0 transition
// (a fresh press) in the currently selected row.
func (j *Joypad) refresh() {
	newLow4 := j.lower4()
	fallingEdges := j.lastLow4 &^ newLow4
	if fallingEdges != 0 && j.req != nil {
		j.req(4) // JOYPAD
	}
	j.lastLow4 = newLow4
}
