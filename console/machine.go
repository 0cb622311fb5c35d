// Package console wires the CPU, PPU and MMU into an NROM NES and
// drives them at the 1:3 CPU-to-PPU tick ratio.
package console

import (
	"context"
	"fmt"
	"image"

	"github.com/Linouth/znes/mmu"
	"github.com/Linouth/znes/mos6502"
	"github.com/Linouth/znes/nesrom"
	"github.com/Linouth/znes/ppu"
)

const (
	RAM_SIZE     = 2048 // built-in system RAM, mirrored through 0x0000-0x1FFF
	IO_REG_SIZE  = 24   // APU/IO register window at 0x4000-0x4017
	PRG_RAM_SIZE = 8192 // cartridge work RAM at 0x6000-0x7FFF
)

// The PPU runs three dots per CPU instruction tick.
const PPU_TICKS_PER_CPU_TICK = 3

// Machine owns the subsystems and the shared NMI line. The PPU raises
// the line during its tick; the CPU samples and clears it before its
// next fetch.
type Machine struct {
	rom *nesrom.ROM
	cpu *mos6502.CPU
	ppu *ppu.PPU
	mem *mmu.MMU
	nmi bool

	ram    [RAM_SIZE]uint8
	ioRegs [IO_REG_SIZE]uint8
	prgRAM [PRG_RAM_SIZE]uint8
}

// New builds the NROM memory map around the loaded cartridge.
// https://www.nesdev.org/wiki/CPU_memory_map
func New(rom *nesrom.ROM) (*Machine, error) {
	if rom.Mapper() != 0 {
		return nil, fmt.Errorf("%w: %d", nesrom.ErrUnsupportedMapper, rom.Mapper())
	}

	m := &Machine{rom: rom}
	m.ppu = ppu.New(rom.CHR(), &m.nmi)
	m.mem = mmu.New()

	// The PPU handles the whole 0x4000 window so a stray OAMDMA
	// kick is caught; the other APU/IO bytes are plain backing
	// memory.
	regions := []mmu.Region{
		{Start: 0x0000, End: 0x2000, Mem: m.ram[:], Writable: true},
		{Start: 0x2000, End: 0x4000, Mem: m.ppu.Regs(), Writable: true, Ports: m.ppu},
		{Start: 0x4000, End: 0x4018, Mem: m.ioRegs[:], Writable: true, Ports: m.ppu},
		{Start: 0x6000, End: 0x8000, Mem: m.prgRAM[:], Writable: true},
		{Start: 0x8000, End: 0x10000, Mem: rom.PRG(), Writable: false},
	}
	for _, r := range regions {
		if err := m.mem.Map(r); err != nil {
			return nil, err
		}
	}
	m.mem.Sort()

	m.cpu = mos6502.New(m.mem, &m.nmi)
	if err := m.cpu.Reset(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Machine) String() string {
	return fmt.Sprintf("cpu: %s\nppu: %s", m.cpu, m.ppu)
}

// Step executes one CPU instruction and the matching PPU dots.
func (m *Machine) Step() error {
	if err := m.cpu.Tick(); err != nil {
		return err
	}
	for i := 0; i < PPU_TICKS_PER_CPU_TICK; i++ {
		m.ppu.Tick()
	}

	return nil
}

// Run steps the machine until an error surfaces or the context is
// cancelled.
func (m *Machine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := m.Step(); err != nil {
			return err
		}
	}
}

// TilePreview exposes the PPU's pattern table decode for the window.
func (m *Machine) TilePreview() *image.RGBA {
	return m.ppu.TilePreview()
}
