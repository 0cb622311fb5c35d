package nesrom

import (
	"bytes"
	"errors"
	"testing"
)

// image builds a minimal iNES byte stream for the loader.
func image(prgBlocks, chrBlocks uint8, flags6, flags7 uint8, trainer bool) []byte {
	h := []byte{0x4e, 0x45, 0x53, 0x1a, prgBlocks, chrBlocks, flags6, flags7, 0, 0, 0, 0, 0, 0, 0, 0}

	var b bytes.Buffer
	b.Write(h)
	if trainer {
		b.Write(make([]byte, TRAINER_SIZE))
	}

	prg := make([]byte, PRG_BLOCK_SIZE*int(prgBlocks))
	for i := range prg {
		prg[i] = uint8(i)
	}
	b.Write(prg)
	b.Write(make([]byte, CHR_BLOCK_SIZE*int(chrBlocks)))

	return b.Bytes()
}

func TestNew(t *testing.T) {
	cases := []struct {
		prg, chr       uint8
		flags6, flags7 uint8
		trainer        bool
	}{
		{1, 1, 0x00, 0x00, false},
		{2, 1, 0x01, 0x00, false},
		{1, 1, 0x04, 0x00, true},
	}

	for i, tc := range cases {
		rom, err := New(bytes.NewReader(image(tc.prg, tc.chr, tc.flags6, tc.flags7, tc.trainer)))
		if err != nil {
			t.Fatalf("%d: New: %v", i, err)
		}

		if len(rom.PRG()) != PRG_BLOCK_SIZE*int(tc.prg) {
			t.Errorf("%d: PRG len = %d, want %d", i, len(rom.PRG()), PRG_BLOCK_SIZE*int(tc.prg))
		}
		if len(rom.CHR()) != CHR_BLOCK_SIZE*int(tc.chr) {
			t.Errorf("%d: CHR len = %d, want %d", i, len(rom.CHR()), CHR_BLOCK_SIZE*int(tc.chr))
		}
		// The trainer must not shift the PRG data.
		if rom.PRG()[1] != 0x01 {
			t.Errorf("%d: PRG[1] = 0x%02x, want 0x01", i, rom.PRG()[1])
		}
	}
}

func TestNewBadMagic(t *testing.T) {
	img := image(1, 1, 0, 0, false)
	img[0] = 'B'

	if _, err := New(bytes.NewReader(img)); !errors.Is(err, ErrBadMagic) {
		t.Errorf("Got %v, want %v", err, ErrBadMagic)
	}
}

func TestNewTruncated(t *testing.T) {
	cases := []int{0, 8, 20, HEADER_SIZE + PRG_BLOCK_SIZE/2}

	for i, n := range cases {
		img := image(1, 1, 0, 0, false)[:n]
		if _, err := New(bytes.NewReader(img)); err == nil {
			t.Errorf("%d: parsed a %d-byte image without error", i, n)
		}
	}
}

func TestMapper(t *testing.T) {
	cases := []struct {
		flags6, flags7 uint8
		want           uint8
	}{
		{0x00, 0x00, 0},
		{0x10, 0x00, 1},
		{0x40, 0x40, 0x44},
	}

	for i, tc := range cases {
		rom, err := New(bytes.NewReader(image(1, 1, tc.flags6, tc.flags7, false)))
		if err != nil {
			t.Fatalf("%d: New: %v", i, err)
		}
		if got := rom.Mapper(); got != tc.want {
			t.Errorf("%d: Got %d, want %d", i, got, tc.want)
		}
	}
}
