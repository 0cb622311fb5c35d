// Package mmu implements the CPU-side memory management unit. The
// 16-bit address space is covered by a set of non-overlapping regions,
// each backed by a byte buffer. A region smaller than its mapped range
// mirrors through it, which is how the 2KB of system RAM covers
// 0x0000-0x1FFF and the 8 PPU ports cover 0x2000-0x3FFF.
// https://www.nesdev.org/wiki/CPU_memory_map
package mmu

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnmappedMemory      = errors.New("unmapped memory")
	ErrMemoryAlreadyMapped = errors.New("memory already mapped")
	ErrWritingROMemory     = errors.New("write to read-only memory")
)

// PortHandler is notified of accesses to a hardware register region.
// data is nil for a read and points at the byte just stored for a
// write. The PPU is the only implementation; a handler must not call
// back into the CPU or the MMU.
type PortHandler interface {
	Access(addr uint16, data *uint8) error
}

// Region maps the half-open range [Start, End) onto Mem. End is wider
// than uint16 so a region can run to the top of the address space
// (End == 0x10000). Accesses mirror modulo len(Mem) when the range is
// larger than the backing buffer.
type Region struct {
	Start    uint16
	End      uint32
	Mem      []uint8
	Writable bool
	Ports    PortHandler
}

func (r *Region) contains(addr uint16) bool {
	return addr >= r.Start && uint32(addr) < r.End
}

// index translates addr to an offset into Mem, mirroring as needed.
func (r *Region) index(addr uint16) int {
	return int(addr-r.Start) % len(r.Mem)
}

// MMU holds the region list. Regions are appended during console
// wiring, sorted, and read-only afterwards.
type MMU struct {
	regions []Region
	sorted  bool
}

func New() *MMU {
	return &MMU{}
}

// Map appends a region. The new range must not intersect any region
// already mapped.
func (m *MMU) Map(r Region) error {
	for i := range m.regions {
		o := &m.regions[i]
		if uint32(r.Start) < o.End && uint32(o.Start) < r.End {
			return fmt.Errorf("%w: [0x%04x, 0x%05x) intersects [0x%04x, 0x%05x)",
				ErrMemoryAlreadyMapped, r.Start, r.End, o.Start, o.End)
		}
	}

	m.regions = append(m.regions, r)
	m.sorted = false
	return nil
}

// Sort orders the regions by start address so lookup can binary
// search. Called once after wiring; lookup also sorts lazily so a
// partially wired MMU still behaves.
func (m *MMU) Sort() {
	sort.Slice(m.regions, func(i, j int) bool {
		return m.regions[i].Start < m.regions[j].Start
	})
	m.sorted = true
}

// lookup returns the region containing addr, or nil.
func (m *MMU) lookup(addr uint16) *Region {
	if !m.sorted {
		m.Sort()
	}

	// First region starting beyond addr; the candidate is the one
	// before it.
	i := sort.Search(len(m.regions), func(i int) bool {
		return m.regions[i].Start > addr
	})
	if i == 0 {
		return nil
	}

	if r := &m.regions[i-1]; r.contains(addr) {
		return r
	}

	return nil
}

// ReadByte returns the byte mapped at addr. A port region is notified
// before the value is returned.
func (m *MMU) ReadByte(addr uint16) (uint8, error) {
	r := m.lookup(addr)
	if r == nil {
		return 0, fmt.Errorf("%w: read at 0x%04x", ErrUnmappedMemory, addr)
	}

	if r.Ports != nil {
		if err := r.Ports.Access(addr, nil); err != nil {
			return 0, err
		}
	}

	return r.Mem[r.index(addr)], nil
}

// WriteByte stores val at addr. A port region is notified after the
// store so the handler observes the new value.
func (m *MMU) WriteByte(addr uint16, val uint8) error {
	r := m.lookup(addr)
	if r == nil {
		return fmt.Errorf("%w: write at 0x%04x", ErrUnmappedMemory, addr)
	}

	if !r.Writable {
		return fmt.Errorf("%w: write at 0x%04x", ErrWritingROMemory, addr)
	}

	r.Mem[r.index(addr)] = val

	if r.Ports != nil {
		return r.Ports.Access(addr, &val)
	}

	return nil
}

// ReadBytes fills buf starting at addr, one ReadByte per element. The
// address wraps at 16 bits and mirroring applies per byte, so a run
// may cross region and mirror boundaries.
func (m *MMU) ReadBytes(addr uint16, buf []uint8) error {
	for i := range buf {
		b, err := m.ReadByte(addr + uint16(i))
		if err != nil {
			return err
		}
		buf[i] = b
	}

	return nil
}
