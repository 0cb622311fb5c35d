// Package mos6502 implements the MOS Technologies 6502 processor as
// used in the NES: instruction decode, addressing modes, flag
// algebra, the stack and NMI servicing. Memory accesses go through
// the Memory interface the console's MMU satisfies.
package mos6502

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownOpcode          = errors.New("unknown opcode")
	ErrUnimplementedOperation = errors.New("unimplemented operation")
	ErrNullAddress            = errors.New("no effective address for store")
)

// Memory is the bus the CPU executes against.
type Memory interface {
	ReadByte(addr uint16) (uint8, error)
	WriteByte(addr uint16, val uint8) error
}

const STACK_PAGE = 0x0100

// Interrupt and reset vectors.
// https://www.nesdev.org/wiki/CPU_memory_map
const (
	NMI_VECTOR   = 0xFFFA
	RESET_VECTOR = 0xFFFC
)

// Status register bits. Z and N are not stored: they derive from the
// most recent arithmetic/load result (prev) whenever the register is
// read. Bit 5 is unused in hardware and always reads as set.
const (
	FLAG_C = 1 << 0
	FLAG_Z = 1 << 1
	FLAG_I = 1 << 2
	FLAG_D = 1 << 3
	FLAG_B = 1 << 4
	FLAG_U = 1 << 5
	FLAG_V = 1 << 6
	FLAG_N = 1 << 7
)

type CPU struct {
	acc    uint8
	x, y   uint8
	status uint8 // C, I, D, B, V live here; Z and N derive from prev
	sp     uint8 // stack lives at 0x0100 + sp
	pc     uint16
	prev   uint8 // most recent result, for lazy Z/N
	ticks  uint64

	mem Memory
	nmi *bool
}

func New(mem Memory, nmi *bool) *CPU {
	return &CPU{mem: mem, nmi: nmi}
}

func (c *CPU) String() string {
	return fmt.Sprintf("pc=0x%04x acc=0x%02x x=0x%02x y=0x%02x sp=0x%02x status=%08b ticks=%d",
		c.pc, c.acc, c.x, c.y, c.sp, c.Status(), c.ticks)
}

func (c *CPU) PC() uint16    { return c.pc }
func (c *CPU) SP() uint8     { return c.sp }
func (c *CPU) Acc() uint8    { return c.acc }
func (c *CPU) X() uint8      { return c.x }
func (c *CPU) Y() uint8      { return c.y }
func (c *CPU) Ticks() uint64 { return c.ticks }

// Status assembles the architectural P byte: stored bits plus the
// derived Z and N and the always-set bit 5.
func (c *CPU) Status() uint8 {
	s := c.status&^uint8(FLAG_Z|FLAG_N) | FLAG_U
	if c.prev == 0 {
		s |= FLAG_Z
	}
	if c.prev&0x80 > 0 {
		s |= FLAG_N
	}

	return s
}

// setStatus installs a popped P byte. The B bit is a stack artifact
// and is dropped; Z and N are folded back into prev so later reads
// derive the same values. prev cannot hold both at once: when Z and N
// are both set, only Z survives.
func (c *CPU) setStatus(val uint8) {
	c.status = val &^ uint8(FLAG_B)
	switch {
	case val&FLAG_Z > 0:
		c.prev = 0x00
	case val&FLAG_N > 0:
		c.prev = 0x80
	default:
		c.prev = 0x01
	}
}

func (c *CPU) flag(f uint8) bool {
	return c.Status()&f > 0
}

func (c *CPU) setFlag(f uint8, on bool) {
	if on {
		c.status |= f
	} else {
		c.status &^= f
	}
}

func (c *CPU) read16(addr uint16) (uint16, error) {
	lsb, err := c.mem.ReadByte(addr)
	if err != nil {
		return 0, err
	}
	msb, err := c.mem.ReadByte(addr + 1)
	if err != nil {
		return 0, err
	}

	return uint16(msb)<<8 | uint16(lsb), nil
}

// Reset loads the reset vector and puts the register file into its
// power-on state.
// https://www.nesdev.org/wiki/CPU_power_up_state
func (c *CPU) Reset() error {
	v, err := c.read16(RESET_VECTOR)
	if err != nil {
		return err
	}

	c.pc = v
	c.sp = 0xFD
	c.status = 0x34 // interrupts disabled
	c.prev = 0x01
	c.ticks = 0

	return nil
}

func (c *CPU) push(val uint8) error {
	err := c.mem.WriteByte(STACK_PAGE|uint16(c.sp), val)
	c.sp--
	return err
}

func (c *CPU) pop() (uint8, error) {
	c.sp++
	return c.mem.ReadByte(STACK_PAGE | uint16(c.sp))
}

func (c *CPU) push16(val uint16) error {
	if err := c.push(uint8(val >> 8)); err != nil {
		return err
	}
	return c.push(uint8(val))
}

func (c *CPU) pop16() (uint16, error) {
	lsb, err := c.pop()
	if err != nil {
		return 0, err
	}
	msb, err := c.pop()
	if err != nil {
		return 0, err
	}

	return uint16(msb)<<8 | uint16(lsb), nil
}

// serviceNMI pushes the interrupted context and vectors to the NMI
// handler. The shared flag is consumed here.
func (c *CPU) serviceNMI() error {
	if err := c.push16(c.pc); err != nil {
		return err
	}
	if err := c.push(c.Status()); err != nil {
		return err
	}

	*c.nmi = false

	v, err := c.read16(NMI_VECTOR)
	if err != nil {
		return err
	}
	c.pc = v

	return nil
}

// Tick executes one instruction: NMI check, fetch, decode, eval.
func (c *CPU) Tick() error {
	if c.nmi != nil && *c.nmi {
		if err := c.serviceNMI(); err != nil {
			return err
		}
	}

	b, err := c.mem.ReadByte(c.pc)
	if err != nil {
		return err
	}
	c.pc++

	op, ok := opcodes[b]
	if !ok {
		return fmt.Errorf("%w: 0x%02x at 0x%04x", ErrUnknownOpcode, b, c.pc-1)
	}
	if op.fn == nil {
		return fmt.Errorf("%w: %s (0x%02x) at 0x%04x", ErrUnimplementedOperation, op.name, b, c.pc-1)
	}

	if err := c.eval(op); err != nil {
		return err
	}

	c.ticks++
	return nil
}

// eval fetches the operand bytes, resolves the effective address for
// the addressing mode, builds the handler argument for the
// instruction class, runs the handler and stores its result if it
// produced one.
func (c *CPU) eval(op opcode) error {
	var operands [2]uint8
	for i := 0; i < int(op.bytes)-1; i++ {
		b, err := c.mem.ReadByte(c.pc)
		if err != nil {
			return err
		}
		operands[i] = b
		c.pc++
	}

	var addr uint16
	hasAddr := true
	switch op.mode {
	case ZERO_PAGE:
		addr = uint16(operands[0])
	case ZERO_PAGE_X:
		addr = uint16(operands[0] + c.x)
	case ZERO_PAGE_Y:
		addr = uint16(operands[0] + c.y)
	case ABSOLUTE, ABSOLUTE_X, ABSOLUTE_Y:
		addr = uint16(operands[1])<<8 | uint16(operands[0])
		switch op.mode {
		case ABSOLUTE_X:
			addr += uint16(c.x)
		case ABSOLUTE_Y:
			addr += uint16(c.y)
		}
	case INDIRECT:
		ptr := uint16(operands[1])<<8 | uint16(operands[0])
		a, err := c.read16(ptr)
		if err != nil {
			return err
		}
		addr = a
	case INDIRECT_X:
		a, err := c.read16(uint16(operands[0] + c.x))
		if err != nil {
			return err
		}
		addr = a
	case INDIRECT_Y:
		a, err := c.read16(uint16(operands[0]))
		if err != nil {
			return err
		}
		addr = a + uint16(c.y)
	default:
		hasAddr = false
	}

	var arg uint16
	switch op.class {
	case MEMORY_READ:
		switch op.mode {
		case IMPLICIT:
		case ACCUMULATOR:
			arg = uint16(c.acc)
		case IMMEDIATE, RELATIVE:
			arg = uint16(operands[0])
		default:
			b, err := c.mem.ReadByte(addr)
			if err != nil {
				return err
			}
			arg = uint16(b)
		}
	case JUMP:
		switch op.mode {
		case RELATIVE:
			arg = uint16(operands[0])
		case ABSOLUTE, INDIRECT:
			arg = addr
		}
	}

	ret, store, err := op.fn(c, arg)
	if err != nil {
		return err
	}

	if store {
		if op.mode == ACCUMULATOR {
			c.acc = ret
			return nil
		}
		if !hasAddr {
			return fmt.Errorf("%w: %s", ErrNullAddress, op.name)
		}
		return c.mem.WriteByte(addr, ret)
	}

	return nil
}
