package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Linouth/znes/console"
	"github.com/Linouth/znes/nesrom"
	"github.com/Linouth/znes/ui"
)

var (
	romFile = flag.String("rom", "", "Path to NES ROM to run (or pass it as the first argument).")
	monitor = flag.Bool("monitor", false, "Start the interactive monitor instead of the window.")
	scale   = flag.Int("scale", 2, "Window scale factor.")
)

func main() {
	flag.Parse()

	path := *romFile
	if path == "" {
		path = flag.Arg(0)
	}
	if path == "" {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] rom.nes\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	rf, err := os.Open(path)
	if err != nil {
		log.Fatalf("Couldn't open %q: %v", path, err)
	}
	defer rf.Close()

	rom, err := nesrom.New(rf)
	if err != nil {
		log.Fatalf("Invalid ROM: %v", err)
	}
	log.Printf("loaded %s", rom)

	mach, err := console.New(rom)
	if err != nil {
		log.Fatalf("Couldn't wire the machine: %v", err)
	}

	if *monitor {
		mach.Monitor(context.Background())
		return
	}

	if err := ui.Run(mach, *scale); err != nil {
		log.Fatalf("Execution stopped: %v", err)
	}
}
