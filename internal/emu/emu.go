// Package emu wires cartridge, bus, CPU, and scheduler into one
// runnable DMG instance and exposes the small surface a frontend or
// headless runner needs: load a ROM, step a frame, read back pixels.
package emu

import (
	"io"
	"log"
	"os"

	"github.com/lowbyte-dev/dmg-core/internal/bus"
	"github.com/lowbyte-dev/dmg-core/internal/cart"
	"github.com/lowbyte-dev/dmg-core/internal/cpu"
	"github.com/lowbyte-dev/dmg-core/internal/scheduler"
)

// Buttons is the pressed/released state of the eight DMG inputs for one
// frame.
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

func (b Buttons) mask() byte {
	var m byte
	if b.Right {
		m |= bus.JoypRight
	}
	if b.Left {
		m |= bus.JoypLeft
	}
	if b.Up {
		m |= bus.JoypUp
	}
	if b.Down {
		m |= bus.JoypDown
	}
	if b.A {
		m |= bus.JoypA
	}
	if b.B {
		m |= bus.JoypB
	}
	if b.Select {
		m |= bus.JoypSelectBtn
	}
	if b.Start {
		m |= bus.JoypStart
	}
	return m
}

// Machine is one emulated DMG: a cartridge plugged into a bus, a CPU
// driving it, and a scheduler pacing whole-frame execution.
type Machine struct {
	cfg    Config
	romPath string
	header *cart.Header

	bus   *bus.Bus
	cpu   *cpu.CPU
	sched *scheduler.Scheduler
}

// New creates a Machine with no cartridge loaded.
func New(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// LoadCartridge wires rom into a fresh Bus/CPU/Scheduler, replacing any
// cartridge previously loaded. The CPU starts at the typical DMG
// post-boot state via ResetPostBoot; there is no boot ROM path.
func (m *Machine) LoadCartridge(rom []byte) error {
	b, err := bus.New(rom)
	if err != nil {
		return err
	}
	h, _ := cart.ParseHeader(rom)

	m.bus = b
	m.header = h
	m.cpu = cpu.New(b)
	m.sched = scheduler.New(m.cpu)
	m.sched.PaceToRealtime = m.cfg.LimitFPS
	if m.cfg.Palette != 0 {
		m.bus.SetPalette(m.cfg.Palette)
	}
	if m.cfg.Trace {
		m.cpu.OnUnknownOpcode = func(pc uint16, op byte) {
			log.Printf("undefined opcode %#02x at pc=%#04x", op, pc)
		}
	}
	m.ResetPostBoot()
	return nil
}

// LoadROMFromFile reads path and loads it as the current cartridge.
func (m *Machine) LoadROMFromFile(path string) error {
	rom, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := m.LoadCartridge(rom); err != nil {
		return err
	}
	m.romPath = path
	return nil
}

// ResetPostBoot reinitializes CPU registers and the IO defaults a real
// boot ROM would have left behind, without reloading the cartridge.
func (m *Machine) ResetPostBoot() {
	if m.cpu == nil {
		return
	}
	m.cpu.ResetNoBoot()
	m.cpu.SetPC(0x0100)
	m.bus.Write(0xFF00, 0xCF)
	m.bus.Write(0xFF05, 0x00)
	m.bus.Write(0xFF06, 0x00)
	m.bus.Write(0xFF07, 0x00)
	m.bus.Write(0xFF40, 0x91)
	m.bus.Write(0xFF42, 0x00)
	m.bus.Write(0xFF43, 0x00)
	m.bus.Write(0xFF45, 0x00)
	m.bus.Write(0xFF47, 0xFC)
	m.bus.Write(0xFF48, 0xFF)
	m.bus.Write(0xFF49, 0xFF)
	m.bus.Write(0xFF4A, 0x00)
	m.bus.Write(0xFF4B, 0x00)
	m.bus.Write(0xFFFF, 0x00)
	if m.sched != nil {
		m.sched.Reset()
	}
}

// StepFrame runs the CPU for exactly one video frame (70224 T-cycles)
// and leaves the freshly rendered picture in Framebuffer().
func (m *Machine) StepFrame() {
	if m.sched == nil {
		return
	}
	m.sched.StepFrame()
}

// StepFrameNoRender is StepFrame without a distinct rendering path: the
// PPU always renders into its own framebuffer as it ticks, so headless
// callers (test ROM runners) gain nothing by skipping it.
func (m *Machine) StepFrameNoRender() { m.StepFrame() }

// FrameCount returns the number of frames the PPU has fully rendered.
// Callers polling Framebuffer() from another goroutine can compare this
// against a previously observed value to tell whether a new picture has
// landed.
func (m *Machine) FrameCount() uint64 {
	if m.bus == nil {
		return 0
	}
	return m.bus.PPU().FrameCount()
}

// Framebuffer returns the current 160x144 RGBA8888 picture. The slice is
// owned by the PPU and is overwritten on the next StepFrame.
func (m *Machine) Framebuffer() []byte {
	if m.bus == nil {
		return make([]byte, 160*144*4)
	}
	return m.bus.PPU().Framebuffer()
}

// SetButtons updates which of the eight DMG buttons are held this frame.
func (m *Machine) SetButtons(b Buttons) {
	if m.bus == nil {
		return
	}
	m.bus.SetJoypadState(b.mask())
}

// SetSerialWriter routes bytes written to the serial port (used by test
// ROMs to report pass/fail) to w.
func (m *Machine) SetSerialWriter(w io.Writer) {
	if m.bus != nil {
		m.bus.SetSerialWriter(w)
	}
}

// ROMPath returns the path LoadROMFromFile loaded, or "" if the
// cartridge was loaded from an in-memory byte slice.
func (m *Machine) ROMPath() string { return m.romPath }

// ROMTitle returns the cartridge header title, or "" if no cartridge
// (or an unparseable header) is loaded.
func (m *Machine) ROMTitle() string {
	if m.header == nil {
		return ""
	}
	return m.header.Title
}

// LoadBattery restores persistent cartridge RAM from data, returning
// false if the current cartridge has no battery backup.
func (m *Machine) LoadBattery(data []byte) bool {
	if m.bus == nil {
		return false
	}
	bb, ok := m.bus.Cart().(cart.BatteryBacked)
	if !ok || !bb.HasBattery() {
		return false
	}
	bb.LoadRAM(data)
	return true
}

// SaveBattery returns the current cartridge's persistent RAM, or
// (nil, false) if it has no battery backup.
func (m *Machine) SaveBattery() ([]byte, bool) {
	if m.bus == nil {
		return nil, false
	}
	bb, ok := m.bus.Cart().(cart.BatteryBacked)
	if !ok || !bb.HasBattery() {
		return nil, false
	}
	return bb.SaveRAM(), true
}
