package nes

import "fmt"

// Mapper 卡带一侧的地址映射，只有读，没有写入卡带的路径
type Mapper interface {
	Read(address uint16) byte
}

func NewMapper(card *Cartridge) (Mapper, error) {
	switch card.Mapper {
	case 0:
		return NewMapper0(card), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedMapper, card.Mapper)
	}
}
