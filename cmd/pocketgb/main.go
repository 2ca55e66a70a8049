// Command pocketgb is the windowed and headless front end: it loads a
// cartridge image (and optional boot ROM) into an internal/machine.Machine
// and either runs it behind an ebiten window or steps it for a fixed number
// of frames, logs the final frame's CRC32 and, with -png-out, writes that
// frame to a PNG, for scripted test harnesses.
//
// Grounded on the teacher's cmd/gbemu, generalized to the new
// internal/machine/internal/ui APIs and re-flagged with urfave/cli per the
// valerio-go-jeebie example's cmd/jeebie. Battery-backed save RAM and the
// save-state/menu UI are dropped: persistence and save states are non-goals
// of this core.
package main

import (
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"log"
	"os"

	"github.com/urfave/cli"

	"github.com/kaelbrook/pocketgb/internal/cart"
	"github.com/kaelbrook/pocketgb/internal/machine"
	"github.com/kaelbrook/pocketgb/internal/ppu"
	"github.com/kaelbrook/pocketgb/internal/ui"
)

func main() {
	app := cli.NewApp()
	app.Name = "pocketgb"
	app.Usage = "pocketgb [options] <ROM file>"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "rom", Usage: "path to the ROM image"},
		cli.StringFlag{Name: "boot", Usage: "path to a 256-byte boot ROM"},
		cli.BoolFlag{Name: "trace", Usage: "log every retired instruction to stderr"},
		cli.IntFlag{Name: "scale", Usage: "integer window upscaling factor", Value: 3},
		cli.BoolFlag{Name: "mute", Usage: "disable the audio player"},
		cli.BoolFlag{Name: "headless", Usage: "run without a window and log the final frame's CRC32 (see -png-out)"},
		cli.IntFlag{Name: "frames", Usage: "frames to run in headless mode", Value: 60},
		cli.StringFlag{Name: "png-out", Usage: "path to write the final frame as a PNG (headless mode)"},
		cli.StringFlag{Name: "expect-crc32", Usage: "fail if the final frame's CRC32 doesn't match this hex value (headless mode)"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" && c.NArg() > 0 {
		romPath = c.Args().Get(0)
	}
	if romPath == "" {
		cli.ShowAppHelp(c)
		return errors.New("pocketgb: no ROM path provided")
	}

	rom := mustRead(romPath)
	if h, err := cart.ParseHeader(rom); err == nil {
		log.Printf("rom: %q type=%s banks=%d ram=%dB", h.Title, h.CartTypeStr, h.ROMBanks, h.RAMSizeBytes)
		if !cart.LogoMatches(rom) {
			log.Printf("rom: warning: nintendo logo bytes don't match, this may not be a licensed cartridge image")
		}
	}

	var boot []byte
	if bootPath := c.String("boot"); bootPath != "" {
		boot = mustRead(bootPath)
	}

	m, err := machine.New(machine.Config{Trace: c.Bool("trace")}, rom, boot)
	if err != nil {
		return fmt.Errorf("pocketgb: %w", err)
	}
	if c.Bool("trace") {
		m.SetDebugHook(func(info machine.StepInfo) {
			log.Printf("pc=%#04x op=%#02x cycles=%d", info.PC, info.Opcode, info.MCycles)
		})
	}

	if c.Bool("headless") {
		return runHeadless(m, c.Int("frames"), c.String("png-out"), c.String("expect-crc32"))
	}

	app := ui.NewApp(ui.Config{
		Title: "pocketgb - " + romPath,
		Scale: c.Int("scale"),
		Mute:  c.Bool("mute"),
	}, m)
	return app.Run()
}

// runHeadless steps m for frames frames, then optionally writes the final
// frame to pngPath and/or checks it against an expected CRC32.
func runHeadless(m *machine.Machine, frames int, pngPath, expectHex string) error {
	if frames <= 0 {
		frames = 1
	}
	for i := 0; i < frames; i++ {
		m.RunFrame()
	}

	img := frameToImage(m.Framebuffer())
	crc := crc32.ChecksumIEEE(img.Pix)
	log.Printf("headless: frames=%d fb_crc32=%08x", frames, crc)

	if pngPath != "" {
		if err := savePNG(img, pngPath); err != nil {
			return fmt.Errorf("pocketgb: write png: %w", err)
		}
		log.Printf("wrote %s", pngPath)
	}

	if expectHex != "" {
		got := fmt.Sprintf("%08x", crc)
		if got != expectHex {
			return fmt.Errorf("pocketgb: frame crc32 mismatch: got %s, want %s", got, expectHex)
		}
	}
	return nil
}

var shade = [4]struct{ r, g, b byte }{
	{0xE0, 0xF8, 0xD0},
	{0x88, 0xC0, 0x70},
	{0x34, 0x68, 0x56},
	{0x08, 0x18, 0x20},
}

func frameToImage(frame [ppu.ScreenHeight][ppu.ScreenWidth]ppu.Pixel) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, ppu.ScreenWidth, ppu.ScreenHeight))
	for y := 0; y < ppu.ScreenHeight; y++ {
		for x := 0; x < ppu.ScreenWidth; x++ {
			s := shade[frame[y][x].ColorIndex&0x03]
			o := img.PixOffset(x, y)
			img.Pix[o] = s.r
			img.Pix[o+1] = s.g
			img.Pix[o+2] = s.b
			img.Pix[o+3] = 0xFF
		}
	}
	return img
}

func savePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func mustRead(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("pocketgb: %v", err)
	}
	return data
}
