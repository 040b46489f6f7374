package ppu

import (
	"testing"

	"github.com/lowbyte-dev/dmg-core/internal/interrupt"
)

// helper to read mode bits from STAT (FF41)
func statMode(p *PPU) byte { return p.CPURead(0xFF41) & 0x03 }

func TestPPUModeSequenceOneLine(t *testing.T) {
	var irq interrupt.Bus
	p := New(&irq)
	// Turn LCD on
	p.CPUWrite(0xFF40, 0x80)
	if m := statMode(p); m != 2 {
		t.Fatalf("expected mode 2 after LCD on, got %d", m)
	}
	// After 80 dots -> mode 3
	p.Tick(80)
	if m := statMode(p); m != 3 {
		t.Fatalf("expected mode 3 at dot 80, got %d", m)
	}
	// After 252 dots -> HBlank (mode 0)
	p.Tick(172)
	if m := statMode(p); m != 0 {
		t.Fatalf("expected mode 0 at dot 252, got %d", m)
	}
	// End of line -> next line mode 2 and LY increments
	p.Tick(456 - 252)
	if ly := p.CPURead(0xFF44); ly != 1 {
		t.Fatalf("expected LY=1, got %d", ly)
	}
	if m := statMode(p); m != 2 {
		t.Fatalf("expected mode 2 at new line, got %d", m)
	}
}

func TestPPUVBlankAndSTATOnVBlank(t *testing.T) {
	var irq interrupt.Bus
	p := New(&irq)
	// Enable STAT interrupt on VBlank (bit4)
	p.CPUWrite(0xFF41, 1<<4)
	// Turn LCD on
	p.CPUWrite(0xFF40, 0x80)
	irq.SetIE(0x1F)
	// Advance to start of LY=144: 144 lines * 456 dots
	p.Tick(144 * 456)
	if irq.IF()&(1<<interrupt.VBlank) == 0 {
		t.Fatalf("expected VBlank IF set at LY=144")
	}
	if irq.IF()&(1<<interrupt.LCDStat) == 0 {
		t.Fatalf("expected STAT IF set on VBlank when enabled")
	}
}

func TestFrameCountIncrementsOncePerFrame(t *testing.T) {
	var irq interrupt.Bus
	p := New(&irq)
	p.CPUWrite(0xFF40, 0x80) // LCD on
	if p.FrameCount() != 0 {
		t.Fatalf("expected FrameCount=0 before any ticks, got %d", p.FrameCount())
	}
	// One full frame is 154 lines * 456 dots = 70224 T-cycles.
	p.Tick(154 * 456)
	if p.FrameCount() != 1 {
		t.Fatalf("expected FrameCount=1 after one frame, got %d", p.FrameCount())
	}
	p.Tick(154 * 456)
	if p.FrameCount() != 2 {
		t.Fatalf("expected FrameCount=2 after two frames, got %d", p.FrameCount())
	}
}

func TestSTATModeAndLYCCoincidence(t *testing.T) {
	var irq interrupt.Bus
	p := New(&irq)
	irq.SetIE(0x1F)
	// Enable STAT for HBlank (bit3), OAM (bit5), and LYC (bit6)
	p.CPUWrite(0xFF41, (1<<3)|(1<<5)|(1<<6))
	// Set LYC=2 to trigger coincidence on line 2
	p.CPUWrite(0xFF45, 2)
	// Turn LCD on
	p.CPUWrite(0xFF40, 0x80)
	// Advance to HBlank of first line
	p.Tick(80 + 172)
	if irq.IF()&(1<<interrupt.LCDStat) == 0 {
		t.Fatalf("expected STAT IRQ on HBlank when enabled")
	}
	// Clear and advance to LY=2 to test LYC coincidence
	irq.SetIF(0)
	p.Tick((456 - (80 + 172)) + 456 + 1)
	if irq.IF()&(1<<interrupt.LCDStat) == 0 {
		t.Fatalf("expected STAT IRQ on LYC coincidence at LY=2")
	}
}
