// Package ui hosts the machine in an ebiten window and blits the
// PPU's pattern-table preview each frame.
package ui

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Linouth/znes/console"
	"github.com/Linouth/znes/ppu"
)

// One NTSC frame is 341*262 PPU dots; the driver runs three dots per
// CPU instruction tick.
const CPU_TICKS_PER_FRAME = 341 * 262 / console.PPU_TICKS_PER_CPU_TICK

type game struct {
	mach  *console.Machine
	frame *ebiten.Image
}

func (g *game) Update() error {
	if ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	for i := 0; i < CPU_TICKS_PER_FRAME; i++ {
		if err := g.mach.Step(); err != nil {
			return err
		}
	}

	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	img := g.mach.TilePreview()
	g.frame.WritePixels(img.Pix)
	screen.DrawImage(g.frame, nil)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ppu.PREVIEW_WIDTH, ppu.PREVIEW_HEIGHT
}

// Run opens the window and drives the machine until it errors or the
// user quits. The error from the machine comes back to the caller.
func Run(m *console.Machine, scale int) error {
	ebiten.SetWindowSize(ppu.PREVIEW_WIDTH*scale, ppu.PREVIEW_HEIGHT*scale)
	ebiten.SetWindowTitle("znes")

	g := &game{
		mach:  m,
		frame: ebiten.NewImage(ppu.PREVIEW_WIDTH, ppu.PREVIEW_HEIGHT),
	}

	if err := ebiten.RunGame(g); err != nil && err != ebiten.Termination {
		return err
	}

	return nil
}
