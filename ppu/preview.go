package ppu

import (
	"image"
	"image/color"
)

// Preview geometry: the two pattern tables side by side, each a 16x16
// grid of 8x8 tiles.
const (
	PREVIEW_WIDTH  = 256
	PREVIEW_HEIGHT = 128

	TILE_SIZE      = 8
	TILE_BYTES     = 16
	TILES_PER_ROW  = 16
	PATTERN_TILES  = 256
	PATTERN_TABLES = 2
)

// A fixed four-entry ramp; tile pixels are 2-bit indices and the
// preview doesn't consult palette RAM.
var previewPalette = [4]color.RGBA{
	{0x00, 0x00, 0x00, 0xFF},
	{0x55, 0x55, 0x55, 0xFF},
	{0xAA, 0xAA, 0xAA, 0xFF},
	{0xFF, 0xFF, 0xFF, 0xFF},
}

// TilePreview decodes the CHR pattern tables into an RGBA image. Each
// tile is 16 bytes: 8 low-bitplane rows followed by 8 high-bitplane
// rows. This is diagnostic output only; background and sprite
// composition are not modeled.
// https://www.nesdev.org/wiki/PPU_pattern_tables
func (p *PPU) TilePreview() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, PREVIEW_WIDTH, PREVIEW_HEIGHT))

	for table := 0; table < PATTERN_TABLES; table++ {
		for tile := 0; tile < PATTERN_TILES; tile++ {
			base := table*PATTERN_TILES*TILE_BYTES + tile*TILE_BYTES
			if base+TILE_BYTES > len(p.chr) {
				return img
			}

			ox := table*PREVIEW_WIDTH/2 + (tile%TILES_PER_ROW)*TILE_SIZE
			oy := (tile / TILES_PER_ROW) * TILE_SIZE

			for y := 0; y < TILE_SIZE; y++ {
				lo := p.chr[base+y]
				hi := p.chr[base+y+TILE_SIZE]
				for x := 0; x < TILE_SIZE; x++ {
					shift := uint(7 - x)
					val := ((hi>>shift)&1)<<1 | ((lo >> shift) & 1)
					img.SetRGBA(ox+x, oy+y, previewPalette[val])
				}
			}
		}
	}

	return img
}
