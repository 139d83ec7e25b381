package nes

import (
	"errors"
	"fmt"
)

var (
	// 卡带相关，在装载卡带时返回
	ErrUnsupportedMapper = errors.New("unsupported mapper")
	ErrInvalidPRGSize    = errors.New("invalid PRG-ROM size")
	ErrInvalidCHRSize    = errors.New("invalid CHR-ROM size")
	ErrInvalidMirror     = errors.New("invalid mirroring mode")

	// 运行时的致命错误，出现后模拟无法继续
	ErrIllegalOpcode = errors.New("illegal opcode")
	ErrHalted        = errors.New("cpu halted")
)

// OpcodeError 遇到未实现的指令，带上出错的指令、地址和当时的寄存器
type OpcodeError struct {
	Opcode    byte
	Address   uint16
	Registers Registers
}

func (e *OpcodeError) Error() string {
	return fmt.Sprintf("illegal opcode $%02X at $%04X (%s)", e.Opcode, e.Address, e.Registers)
}

func (e *OpcodeError) Is(target error) bool {
	return target == ErrIllegalOpcode
}
