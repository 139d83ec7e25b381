package nes

import (
	"errors"
	"testing"

	"github.com/55utah/fc-core/test"
)

func TestNewCartridge(t *testing.T) {
	cases := []struct {
		name   string
		prg    int
		chr    int
		mirror byte
		err    error
	}{
		{"NROM-128", 0x4000, 0x2000, MirrorHorizontal, nil},
		{"NROM-256", 0x8000, 0x2000, MirrorVertical, nil},
		{"no CHR", 0x8000, 0, MirrorSingle1, nil},
		{"empty PRG", 0, 0x2000, MirrorHorizontal, ErrInvalidPRGSize},
		{"odd PRG", 0x6000, 0x2000, MirrorHorizontal, ErrInvalidPRGSize},
		{"large PRG", 0x10000, 0x2000, MirrorHorizontal, ErrInvalidPRGSize},
		{"large CHR", 0x8000, 0x4000, MirrorHorizontal, ErrInvalidCHRSize},
		{"four screen", 0x8000, 0x2000, 4, ErrInvalidMirror},
	}
	for _, c := range cases {
		card, err := NewCartridge(make([]byte, c.prg), make([]byte, c.chr), 0, c.mirror)
		if c.err != nil {
			test.ExpectSuccess(t, errors.Is(err, c.err), c.name)
			test.ExpectSuccess(t, card == nil, c.name)
			continue
		}
		if test.ExpectSuccess(t, err, c.name) {
			test.ExpectEquality(t, len(card.CHR), chrBankSize, c.name)
			test.ExpectEquality(t, card.Mirror, c.mirror, c.name)
		}
	}
}

func TestCartridgeCopiesData(t *testing.T) {
	prg := make([]byte, 0x4000)
	chr := make([]byte, 0x2000)
	card, err := NewCartridge(prg, chr, 0, MirrorHorizontal)
	test.DemandSuccess(t, err)

	prg[0] = 0xFF
	chr[0] = 0xFF
	test.ExpectEquality(t, card.PRG[0], 0x00)
	test.ExpectEquality(t, card.CHR[0], 0x00)
}

func TestMapper0(t *testing.T) {
	prg := make([]byte, 0x4000)
	prg[0x0010] = 0xAB
	chr := make([]byte, 0x2000)
	chr[0x1FFF] = 0xCD
	card, err := NewCartridge(prg, chr, 0, MirrorHorizontal)
	test.DemandSuccess(t, err)

	mapper, err := NewMapper(card)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, mapper.Read(0x8010), 0xAB)
	test.ExpectEquality(t, mapper.Read(0xC010), 0xAB)
	test.ExpectEquality(t, mapper.Read(0x1FFF), 0xCD)

	card.Mapper = 1
	_, err = NewMapper(card)
	test.ExpectSuccess(t, errors.Is(err, ErrUnsupportedMapper))
}
