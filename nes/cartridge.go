package nes

import (
	"fmt"

	"github.com/55utah/fc-core/logger"
)

const (
	prgBankSize = 0x4000 // PRG块 16KB
	chrBankSize = 0x2000 // CHR块 8KB
)

/*
卡带只保存外部解析好的PRG/CHR两块数据，解析.nes文件不在这里做

mirror取值见memory.go的Mirror*常量
mapper是iNES头里的mapper号，目前只有mapper0
*/
type Cartridge struct {
	PRG    []byte
	CHR    []byte
	Mirror byte // 0 水平 1 垂直
	Mapper byte // mapper种类
}

func NewCartridge(prg []byte, chr []byte, mapper byte, mirror byte) (*Cartridge, error) {
	if len(prg) != prgBankSize && len(prg) != 2*prgBankSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidPRGSize, len(prg))
	}
	// 没有CHR的卡带用的是CHR RAM，这里给一块8KB的空数据
	if len(chr) == 0 {
		chr = make([]byte, chrBankSize)
	}
	if len(chr) != chrBankSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidCHRSize, len(chr))
	}
	if int(mirror) >= len(MirrorLookup) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMirror, mirror)
	}

	// 拷贝一份，外部修改不影响卡带
	card := &Cartridge{
		PRG:    append([]byte(nil), prg...),
		CHR:    append([]byte(nil), chr...),
		Mirror: mirror,
		Mapper: mapper,
	}
	logger.Logf("cartridge", "PRG-ROM: %d x 16kb, CHR-ROM: %d x 8kb, mapper: %d, mirror: %d",
		len(prg)/prgBankSize, len(chr)/chrBankSize, mapper, mirror)
	return card, nil
}
