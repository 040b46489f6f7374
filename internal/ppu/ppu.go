// Package ppu models the DMG picture processing unit: VRAM/OAM storage,
// the LCDC/STAT/LY mode machine, and the BG/window/sprite scanline
// renderer that produces an RGBA framebuffer.
package ppu

import "github.com/lowbyte-dev/dmg-core/internal/interrupt"

// PPU owns VRAM/OAM, LCDC/STAT/LY/LYC/palette/scroll registers, and the
// dot-based mode machine. It exposes CPU-facing Read/Write for VRAM, OAM,
// and its IO registers, and renders into an internal framebuffer.
type PPU struct {
	vram [0x2000]byte // 0x8000-0x9FFF
	oam  [0xA0]byte   // 0xFE00-0xFE9F

	lcdc byte // FF40
	stat byte // FF41 (mode bits 0-1, coincidence flag bit2, enables bits3-6)
	scy  byte // FF42
	scx  byte // FF43
	ly   byte // FF44
	lyc  byte // FF45
	bgp  byte // FF47
	obp0 byte // FF48
	obp1 byte // FF49
	wy   byte // FF4A
	wx   byte // FF4B

	dot     int  // dots within current line [0..455]
	winLine byte // internal window-line counter, advances on lines the window is drawn

	irq *interrupt.Bus

	shades [4][4]byte // 2-bit shade index -> RGBA, derived from the configured main color

	fb [160 * 144 * 4]byte // RGBA8888

	// lineRegs captures, per rendered scanline, register state a test or
	// debugger may want after the frame has moved on.
	lineRegs [144]LineRegs

	// frame counts completed frames, incremented once per LY 143->144
	// transition. Callers use it as a version stamp to tell whether a new
	// picture has landed in Framebuffer() since they last looked.
	frame uint64
}

// LineRegs is a snapshot of per-scanline renderer state captured at the
// moment that line was composited.
type LineRegs struct {
	WinLine int // internal window-line counter used to render this line
}

// LineRegs returns the snapshot captured when line ly was last rendered,
// or the zero value if ly is out of range or hasn't been rendered yet.
func (p *PPU) LineRegs(ly int) LineRegs {
	if ly < 0 || ly >= len(p.lineRegs) {
		return LineRegs{}
	}
	return p.lineRegs[ly]
}

// New returns a PPU that requests interrupts through irq. A nil irq is
// replaced with a private interrupt bus, useful for tests that only care
// about rendering. The shade ramp starts at DefaultMainColor; call
// SetPalette to configure a different main color.
func New(irq *interrupt.Bus) *PPU {
	if irq == nil {
		irq = &interrupt.Bus{}
	}
	return &PPU{irq: irq, shades: derivePalette(DefaultMainColor)}
}

// SetPalette recomputes the 4-shade ramp from a configured ARGB main
// color (spec: color[0]=main, color[1]=main&0xFFAAAAAA,
// color[2]=main&0xFF555555, color[3]=transparent black).
func (p *PPU) SetPalette(main uint32) {
	p.shades = derivePalette(main)
}

// FrameCount returns the number of frames fully rendered so far.
func (p *PPU) FrameCount() uint64 { return p.frame }

// Read returns a raw VRAM/OAM byte, bypassing the CPU-visible access-mode
// gating in CPURead. Used internally by the scanline renderer.
func (p *PPU) Read(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		return p.oam[addr-0xFE00]
	default:
		return 0xFF
	}
}

// CPURead returns bytes for VRAM, OAM, and PPU IO registers. Returns 0xFF for others.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		// VRAM is inaccessible to CPU during mode 3.
		if (p.stat & 0x03) == 3 {
			return 0xFF
		}
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		// OAM is inaccessible during modes 2 and 3.
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return 0xFF
		}
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		// Bit7 reads as 1; bits 6-3 are enables; bit2 coincidence; bits1-0 mode.
		return 0x80 | (p.stat & 0x7F)
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and PPU IO regs.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == 3 {
			return
		}
		p.vram[addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return
		}
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		prev := p.lcdc
		p.lcdc = value
		if (p.lcdc&0x80) == 0 && (prev&0x80) != 0 {
			// Turning LCD off resets LY/mode.
			p.ly = 0
			p.dot = 0
			p.winLine = 0
			p.setMode(0)
			p.updateLYC()
		} else if (p.lcdc&0x80) != 0 && (prev&0x80) == 0 {
			// Turning LCD on: start at LY=0, mode 2 (OAM).
			p.ly = 0
			p.dot = 0
			p.winLine = 0
			p.setMode(2)
			p.updateLYC()
		}
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		p.ly = 0
		p.dot = 0
		p.updateLYC()
		if (p.lcdc & 0x80) != 0 {
			p.setMode(2)
		}
	case addr == 0xFF45:
		p.lyc = value
		p.updateLYC()
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
	case addr == 0xFF49:
		p.obp1 = value
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	}
}

// Tick advances PPU state by the given number of dots (CPU T-cycles). On
// the dot where a visible line transitions from OAM scan into pixel
// transfer, the whole scanline is composited into the framebuffer at
// once rather than pixel-by-pixel.
func (p *PPU) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		if (p.lcdc & 0x80) == 0 { // LCD off
			continue
		}
		p.dot++

		var mode byte
		if p.ly >= 144 {
			mode = 1
		} else {
			switch {
			case p.dot < 80:
				mode = 2
			case p.dot < 80+172:
				mode = 3
			default:
				mode = 0
			}
		}
		prevMode := p.stat & 0x03
		p.setMode(mode)
		if mode == 3 && prevMode == 2 {
			p.renderScanline()
		}

		if p.dot >= 456 {
			p.dot = 0
			p.ly++
			if p.ly == 144 {
				p.frame++
				p.irq.Request(interrupt.VBlank)
				if (p.stat & (1 << 4)) != 0 {
					p.irq.Request(interrupt.LCDStat)
				}
			} else if p.ly > 153 {
				p.ly = 0
				p.winLine = 0
			}
			p.updateLYC()
			if p.ly >= 144 {
				p.setMode(1)
			} else {
				p.setMode(2)
			}
		}
	}
}

func (p *PPU) setMode(mode byte) {
	prev := p.stat & 0x03
	if prev == mode {
		return
	}
	p.stat = (p.stat &^ 0x03) | (mode & 0x03)
	switch mode {
	case 0: // HBlank
		if (p.stat & (1 << 3)) != 0 {
			p.irq.Request(interrupt.LCDStat)
		}
	case 2: // OAM
		if (p.stat & (1 << 5)) != 0 {
			p.irq.Request(interrupt.LCDStat)
		}
	}
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
		if (p.stat & (1 << 6)) != 0 {
			p.irq.Request(interrupt.LCDStat)
		}
	} else {
		p.stat &^= 1 << 2
	}
}

// renderScanline composes BG, window, and sprites for the current line
// into the framebuffer. Mirrors original_source's PPU::WriteBGLine /
// PPU::WriteSprites ordering: BG+window first, sprites blended on top
// with background-priority suppression against the raw BG color index 0
// (before BGP remapping).
func (p *PPU) renderScanline() {
	if (p.lcdc&0x80) == 0 || p.ly >= 144 {
		return
	}
	p.lineRegs[p.ly] = LineRegs{WinLine: int(p.winLine)}

	var bgci [160]byte
	if p.lcdc&0x01 != 0 {
		mapBase := uint16(0x9800)
		if p.lcdc&0x08 != 0 {
			mapBase = 0x9C00
		}
		tileData8000 := p.lcdc&0x10 != 0
		bgci = RenderBGScanlineUsingFetcher(p, mapBase, tileData8000, p.scx, p.scy, p.ly)
	}

	if p.lcdc&0x20 != 0 && p.ly >= p.wy && p.wx <= 166 {
		winMapBase := uint16(0x9800)
		if p.lcdc&0x40 != 0 {
			winMapBase = 0x9C00
		}
		tileData8000 := p.lcdc&0x10 != 0
		wxStart := int(p.wx) - 7
		winci := RenderWindowScanlineUsingFetcher(p, winMapBase, tileData8000, wxStart, p.winLine)
		start := wxStart
		if start < 0 {
			start = 0
		}
		for x := start; x < 160; x++ {
			bgci[x] = winci[x]
		}
		p.winLine++
	}

	var spriteci [160]byte
	var spriteOBP1 [160]bool
	if p.lcdc&0x02 != 0 {
		sprites := p.spritesOnLine(p.ly)
		spriteci, spriteOBP1 = composeSpriteLineDetailed(p, sprites, p.ly, bgci)
	}

	rowBase := int(p.ly) * 160 * 4
	for x := 0; x < 160; x++ {
		var c [4]byte
		if spriteci[x] != 0 {
			pal := p.obp0
			if spriteOBP1[x] {
				pal = p.obp1
			}
			c = p.shadeFor(pal, spriteci[x])
		} else {
			c = p.shadeFor(p.bgp, bgci[x])
		}
		i := rowBase + x*4
		p.fb[i+0], p.fb[i+1], p.fb[i+2], p.fb[i+3] = c[0], c[1], c[2], c[3]
	}
}

// Framebuffer returns the last-rendered frame as RGBA8888, row-major,
// 160x144.
func (p *PPU) Framebuffer() []byte { return p.fb[:] }

// Expose palettes and scroll for renderer convenience.
func (p *PPU) BGP() byte  { return p.bgp }
func (p *PPU) OBP0() byte { return p.obp0 }
func (p *PPU) OBP1() byte { return p.obp1 }
func (p *PPU) LCDC() byte { return p.lcdc }
func (p *PPU) SCY() byte  { return p.scy }
func (p *PPU) SCX() byte  { return p.scx }
func (p *PPU) WY() byte   { return p.wy }
func (p *PPU) WX() byte   { return p.wx }
