// Package ui hosts the windowed front end: an ebiten.Game that blits the
// Machine's composited framebuffer, maps keyboard input to joypad buttons,
// and drives a silent audio player so a real backend has somewhere to plug
// in later.
//
// Grounded on the teacher's internal/ui.App (Update/Draw/Layout split,
// audio.Context/Player wiring, Z/X/Enter/Shift key convention). The
// teacher's save-state slots, ROM-picker menu, and per-ROM compatibility
// palette are dropped: those are CGB/save-state features this core's
// non-goals exclude, not ambient plumbing.
package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/kaelbrook/pocketgb/internal/apu"
	"github.com/kaelbrook/pocketgb/internal/joypad"
	"github.com/kaelbrook/pocketgb/internal/machine"
	"github.com/kaelbrook/pocketgb/internal/ppu"
)

const sampleRate = 44100

// shade maps a 2-bit DMG color index to an RGBA gray, lightest (00) to
// darkest (11), matching the classic four-shade DMG palette.
var shade = [4]color.RGBA{
	{0xE0, 0xF8, 0xD0, 0xFF},
	{0x88, 0xC0, 0x70, 0xFF},
	{0x34, 0x68, 0x56, 0xFF},
	{0x08, 0x18, 0x20, 0xFF},
}

var keymap = map[ebiten.Key]joypad.Button{
	ebiten.KeyArrowRight: joypad.Right,
	ebiten.KeyArrowLeft:  joypad.Left,
	ebiten.KeyArrowUp:    joypad.Up,
	ebiten.KeyArrowDown:  joypad.Down,
	ebiten.KeyZ:          joypad.A,
	ebiten.KeyX:          joypad.B,
	ebiten.KeyEnter:      joypad.Start,
	ebiten.KeyShiftRight: joypad.Select,
}

// App is the ebiten.Game implementation driving a machine.Machine.
type App struct {
	cfg Config
	m   *machine.Machine
	tex *ebiten.Image

	audioCtx    *audio.Context
	audioPlayer *audio.Player
}

// NewApp wires an ebiten front end around m.
func NewApp(cfg Config, m *machine.Machine) *App {
	cfg.Defaults()
	a := &App{cfg: cfg, m: m, tex: ebiten.NewImage(ppu.ScreenWidth, ppu.ScreenHeight)}

	if !cfg.Mute {
		a.audioCtx = audio.NewContext(sampleRate)
		if p, err := a.audioCtx.NewPlayer(apu.Stream{}); err == nil {
			a.audioPlayer = p
			a.audioPlayer.Play()
		}
	}

	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(ppu.ScreenWidth*cfg.Scale, ppu.ScreenHeight*cfg.Scale)
	return a
}

// Run starts the ebiten main loop; it blocks until the window closes.
func (a *App) Run() error { return ebiten.RunGame(a) }

// Update polls held keys into the joypad and steps the machine one frame.
func (a *App) Update() error {
	for key, button := range keymap {
		a.m.SetButtons(button, ebiten.IsKeyPressed(key))
	}
	a.m.RunFrame()
	return nil
}

// Draw blits the machine's last composited frame to the screen.
func (a *App) Draw(screen *ebiten.Image) {
	frame := a.m.Framebuffer()
	for y := 0; y < ppu.ScreenHeight; y++ {
		for x := 0; x < ppu.ScreenWidth; x++ {
			a.tex.Set(x, y, shade[frame[y][x].ColorIndex&0x03])
		}
	}
	screen.DrawImage(a.tex, nil)
}

// Layout reports the fixed internal resolution; ebiten scales it to the window.
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ppu.ScreenWidth, ppu.ScreenHeight
}
