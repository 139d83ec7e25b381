/*
mapper0 (NROM)，固定映射，不切换bank
PRG只有16KB时, 0xC000-0xFFFF是0x8000-0xBFFF的镜像
*/

package nes

import (
	"fmt"
)

/**
CPU地址:
[$8000, $C000) PRG bank 0
[$C000, $10000) PRG 最后一个bank (16KB的卡带就是bank 0)

$FFFA-FFFB = NMI
$FFFC-FFFD = RESET
$FFFE-FFFF = IRQ/BRK

PPU地址:
[$0000, $2000) CHR, 即pattern table
*/

type Mapper0 struct {
	card     *Cartridge
	prgBanks int
	prgBank1 int
	prgBank2 int
}

func NewMapper0(card *Cartridge) Mapper {
	prgBanks := len(card.PRG) / prgBankSize
	prgBank1 := 0
	prgBank2 := prgBanks - 1
	return &Mapper0{card, prgBanks, prgBank1, prgBank2}
}

func (mapper *Mapper0) Read(addr uint16) byte {
	card := mapper.card
	switch {
	case addr < 0x2000:
		return card.CHR[addr]
	case addr >= 0xC000:
		index := mapper.prgBank2*prgBankSize + int(addr-0xC000)
		return card.PRG[index]
	case addr >= 0x8000:
		index := mapper.prgBank1*prgBankSize + int(addr-0x8000)
		return card.PRG[index]
	default:
		// 总线不会把其他地址转给mapper
		panic(fmt.Sprintf("unhandled mapper0 read at addr: 0x%04X", addr))
	}
}
