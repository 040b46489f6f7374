package ppu

import "sort"

// Sprite is one OAM entry prepared for scanline composition. X/Y are
// already in screen space (spriteXpos-8, spriteYpos-16, per
// original_source's PPU::WriteSprites convention) and Y additionally
// encodes which 8-pixel tile half to read for 8x16 sprites, so that
// ly-Y always yields a row in [0,7] for Tile. Attr is the raw OAM
// attribute byte.
type Sprite struct {
	X, Y     int
	Tile     byte
	Attr     byte
	OAMIndex int
}

// DefaultMainColor is the ARGB "main" color used when no palette has been
// configured: opaque white, producing the classic white/light-grey/
// dark-grey/black DMG ramp.
const DefaultMainColor uint32 = 0xFFFFFFFF

// derivePalette expands a single configured ARGB "main" color into the
// four DMG shades: color[0] is main itself, color[1] and color[2] are
// main masked down to successively darker bit patterns, and color[3] is
// fully transparent black.
func derivePalette(main uint32) [4][4]byte {
	return [4][4]byte{
		argbToRGBA(main),
		argbToRGBA(main & 0xFFAAAAAA),
		argbToRGBA(main & 0xFF555555),
		argbToRGBA(0x00000000),
	}
}

func argbToRGBA(v uint32) [4]byte {
	a := byte(v >> 24)
	r := byte(v >> 16)
	g := byte(v >> 8)
	b := byte(v)
	return [4]byte{r, g, b, a}
}

// shadeFor maps a 2-bit color index through a BGP/OBP0/OBP1 register to
// an RGBA color using p's configured palette.
func (p *PPU) shadeFor(palette, ci byte) [4]byte {
	shade := (palette >> (ci * 2)) & 0x03
	return p.shades[shade]
}

// spritesOnLine scans OAM in index order and returns up to 10 sprites
// intersecting ly, with tile/row already resolved for 8x8 or 8x16 mode
// (LCDC bit2) and Y-flip.
func (p *PPU) spritesOnLine(ly byte) []Sprite {
	height := 8
	if p.lcdc&0x04 != 0 {
		height = 16
	}

	var out []Sprite
	for i := 0; i < 40 && len(out) < 10; i++ {
		base := i * 4
		oamY := int(p.oam[base+0])
		oamX := int(p.oam[base+1])
		tileIndex := p.oam[base+2]
		attr := p.oam[base+3]

		screenY := oamY - 16
		screenX := oamX - 8

		rawRow := int(ly) - screenY
		if rawRow < 0 || rawRow >= height {
			continue
		}

		bitmapRow := rawRow
		if attr&0x40 != 0 { // Y flip
			bitmapRow = height - 1 - rawRow
		}

		tile := tileIndex
		half := 0
		if height == 16 {
			half = bitmapRow / 8
			tile = tileIndex &^ 1
			if half == 1 {
				tile |= 1
			}
		}
		rowInTile := bitmapRow % 8

		out = append(out, Sprite{
			X:        screenX,
			Y:        int(ly) - rowInTile,
			Tile:     tile,
			Attr:     attr,
			OAMIndex: i,
		})
	}
	return out
}

// orderedByPriority sorts sprites by DMG priority: lower X first, OAM
// index breaks ties (both draw-order and overlap priority on non-CGB
// hardware).
func orderedByPriority(sprites []Sprite) []Sprite {
	ordered := make([]Sprite, len(sprites))
	copy(ordered, sprites)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].X != ordered[j].X {
			return ordered[i].X < ordered[j].X
		}
		return ordered[i].OAMIndex < ordered[j].OAMIndex
	})
	return ordered
}

// composeSpriteLineDetailed is the shared implementation behind
// ComposeSpriteLine; it additionally reports which pixels should read
// through OBP1 instead of OBP0 so the framebuffer renderer can pick the
// right palette.
func composeSpriteLineDetailed(mem VRAMReader, sprites []Sprite, ly byte, bgci [160]byte) (ci [160]byte, obp1 [160]bool) {
	var written [160]bool

	for _, s := range orderedByPriority(sprites) {
		row := int(ly) - s.Y
		if row < 0 || row > 7 {
			continue
		}
		base := uint16(0x8000) + uint16(s.Tile)*16 + uint16(row)*2
		lo := mem.Read(base)
		hi := mem.Read(base + 1)
		xflip := s.Attr&0x20 != 0
		behindBG := s.Attr&0x80 != 0
		useOBP1 := s.Attr&0x10 != 0

		for col := 0; col < 8; col++ {
			sx := s.X + col
			if sx < 0 || sx >= 160 || written[sx] {
				continue
			}
			bit := 7 - col
			if xflip {
				bit = col
			}
			px := ((hi>>uint(bit))&1)<<1 | ((lo >> uint(bit)) & 1)
			if px == 0 {
				continue
			}
			if behindBG && bgci[sx] != 0 {
				continue
			}
			ci[sx] = px
			obp1[sx] = useOBP1
			written[sx] = true
		}
	}
	return ci, obp1
}

// ComposeSpriteLine renders up to 10 visible sprites for a scanline into
// a row of color indices (0 = no sprite pixel). Sprites apply in DMG
// priority order (lowest X first, OAM index breaks ties); a sprite pixel
// flagged background-priority (attr bit7) is suppressed wherever the
// background color index for that pixel is non-zero.
func ComposeSpriteLine(mem VRAMReader, sprites []Sprite, ly byte, bgci [160]byte) [160]byte {
	ci, _ := composeSpriteLineDetailed(mem, sprites, ly, bgci)
	return ci
}
