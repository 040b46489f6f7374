package emu

// Config contains settings that affect emulation behavior.
type Config struct {
	Trace    bool // log undefined opcodes encountered during execution
	LimitFPS bool // pace StepFrame to the DMG's ~59.73 Hz refresh rate

	// Palette is the ARGB "main" color the PPU's 4-shade ramp is derived
	// from (color[1]/color[2] are main masked down, color[3] is always
	// transparent black). Zero selects the default opaque white ramp.
	Palette uint32
}
