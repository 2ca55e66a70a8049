package ui

// Config contains window/input settings for the ebiten host shell.
type Config struct {
	Title string // window title
	Scale int    // integer upscaling factor
	Mute  bool   // disable the audio player entirely
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "pocketgb"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
}
