package console

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Linouth/znes/mos6502"
)

// readAddress prompts for a hex address on stdin.
func readAddress(prompt string) uint16 {
	fmt.Print(prompt)

	var a uint16
	fmt.Scanf("%x\n", &a)

	return a
}

// dumpByte reads through the MMU for display; unmapped holes render
// as ?? instead of aborting the monitor.
func (m *Machine) dumpByte(addr uint16) string {
	b, err := m.mem.ReadByte(addr)
	if err != nil {
		return "??"
	}

	return fmt.Sprintf("%02x", b)
}

// Monitor is an interactive debugging shell: breakpoints,
// single-stepping and hex dumps of the mapped address space.
func (m *Machine) Monitor(ctx context.Context) {
	sigQuit := make(chan os.Signal, 1)
	signal.Notify(sigQuit, syscall.SIGINT, syscall.SIGTERM)

	breaks := make(map[uint16]struct{})

	for {
		fmt.Printf("%s\n\n", m.cpu)
		fmt.Println("(B)reak - add breakpoint")
		fmt.Println("(C)lear - clear breakpoints")
		fmt.Println("(R)un - run to completion")
		fmt.Println("(S)tep - step the cpu one instruction")
		fmt.Println("R(e)set - hit the reset button")
		fmt.Println("(M)emory - select a memory range to display")
		fmt.Println("S(t)ack - show last 3 items on the stack")
		fmt.Println("(Q)uit - shut the machine down")
		fmt.Printf("Choice: ")

		var in rune
		fmt.Scanf("%c\n", &in)

		switch in {
		case 'b', 'B':
			breaks[readAddress("Breakpoint (eg: ff15): ")] = struct{}{}
		case 'c', 'C':
			breaks = make(map[uint16]struct{})
		case 'q', 'Q':
			return
		case 'r', 'R':
			cctx, cancel := context.WithCancel(ctx)
			go func(ctx context.Context) {
				select {
				case <-sigQuit:
					cancel()
				case <-ctx.Done():
				}
			}(cctx)
			if err := m.runUntil(cctx, breaks); err != nil {
				log.Printf("execution stopped: %v", err)
			}
			cancel()
		case 's', 'S':
			if err := m.Step(); err != nil {
				log.Printf("step: %v", err)
			}
		case 't', 'T':
			fmt.Println()
			for i := 0; i < 3; i++ {
				a := mos6502.STACK_PAGE | uint16(m.cpu.SP()+uint8(i)+1)
				fmt.Printf("0x%04x: 0x%s ", a, m.dumpByte(a))
			}
			fmt.Printf("\n\n")
		case 'e', 'E':
			if err := m.cpu.Reset(); err != nil {
				log.Printf("reset: %v", err)
			}
		case 'm', 'M':
			fmt.Println()
			low := readAddress("Low address (eg f00d): ")
			high := readAddress("High address (eg beef): ")
			fmt.Println()

			x := 1
			for i := low; ; i++ {
				fmt.Printf("0x%04x: 0x%s ", i, m.dumpByte(i))
				if x%5 == 0 {
					fmt.Println()
				}
				if i == high || i == 0xFFFF {
					break
				}
				x += 1
			}
			fmt.Printf("\n\n")
		}
	}
}

// runUntil steps until a breakpoint, an error or cancellation.
func (m *Machine) runUntil(ctx context.Context, breaks map[uint16]struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := m.Step(); err != nil {
			return err
		}

		if _, ok := breaks[m.cpu.PC()]; ok {
			fmt.Printf("breakpoint at 0x%04x\n", m.cpu.PC())
			return nil
		}
	}
}
