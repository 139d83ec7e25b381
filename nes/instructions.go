package nes

// 寻址方式
const (
	_ = iota
	modeAbsolute
	modeAbsoluteX
	modeAbsoluteY
	modeAccumulator
	modeImmediate
	modeImplied
	modeIndexedIndirect
	modeIndirect
	modeIndirectIndexed
	modeRelative
	modeZeroPage
	modeZeroPageX
	modeZeroPageY
)

// 指令操作，和寻址方式分开，译码查表，执行按操作分派
type operation byte

const (
	_ operation = iota
	opADC
	opAND
	opASL
	opBCC
	opBCS
	opBEQ
	opBIT
	opBMI
	opBNE
	opBPL
	opBRK
	opBVC
	opBVS
	opCLC
	opCLD
	opCLI
	opCLV
	opCMP
	opCPX
	opCPY
	opDEC
	opDEX
	opDEY
	opEOR
	opINC
	opINX
	opINY
	opJMP
	opJSR
	opLDA
	opLDX
	opLDY
	opLSR
	opNOP
	opORA
	opPHA
	opPHP
	opPLA
	opPLP
	opROL
	opROR
	opRTI
	opRTS
	opSBC
	opSEC
	opSED
	opSEI
	opSTA
	opSTX
	opSTY
	opTAX
	opTAY
	opTSX
	opTXA
	opTXS
	opTYA
)

type instruction struct {
	opcode byte
	name   string
	op     operation
	mode   byte
	size   byte // 指令字节数
	cycles byte // 基础周期数，不包括额外的周期
	// 跨page时额外的周期, 只有读内存的变址指令有
	pageCycles byte
}

// 官方文档的151条指令，其他的非官方指令都视为非法
var instructionTable = []instruction{
	{0x69, "ADC", opADC, modeImmediate, 2, 2, 0},
	{0x65, "ADC", opADC, modeZeroPage, 2, 3, 0},
	{0x75, "ADC", opADC, modeZeroPageX, 2, 4, 0},
	{0x6D, "ADC", opADC, modeAbsolute, 3, 4, 0},
	{0x7D, "ADC", opADC, modeAbsoluteX, 3, 4, 1},
	{0x79, "ADC", opADC, modeAbsoluteY, 3, 4, 1},
	{0x61, "ADC", opADC, modeIndexedIndirect, 2, 6, 0},
	{0x71, "ADC", opADC, modeIndirectIndexed, 2, 5, 1},

	{0x29, "AND", opAND, modeImmediate, 2, 2, 0},
	{0x25, "AND", opAND, modeZeroPage, 2, 3, 0},
	{0x35, "AND", opAND, modeZeroPageX, 2, 4, 0},
	{0x2D, "AND", opAND, modeAbsolute, 3, 4, 0},
	{0x3D, "AND", opAND, modeAbsoluteX, 3, 4, 1},
	{0x39, "AND", opAND, modeAbsoluteY, 3, 4, 1},
	{0x21, "AND", opAND, modeIndexedIndirect, 2, 6, 0},
	{0x31, "AND", opAND, modeIndirectIndexed, 2, 5, 1},

	{0x0A, "ASL", opASL, modeAccumulator, 1, 2, 0},
	{0x06, "ASL", opASL, modeZeroPage, 2, 5, 0},
	{0x16, "ASL", opASL, modeZeroPageX, 2, 6, 0},
	{0x0E, "ASL", opASL, modeAbsolute, 3, 6, 0},
	{0x1E, "ASL", opASL, modeAbsoluteX, 3, 7, 0},

	{0x90, "BCC", opBCC, modeRelative, 2, 2, 0},
	{0xB0, "BCS", opBCS, modeRelative, 2, 2, 0},
	{0xF0, "BEQ", opBEQ, modeRelative, 2, 2, 0},
	{0x30, "BMI", opBMI, modeRelative, 2, 2, 0},
	{0xD0, "BNE", opBNE, modeRelative, 2, 2, 0},
	{0x10, "BPL", opBPL, modeRelative, 2, 2, 0},
	{0x50, "BVC", opBVC, modeRelative, 2, 2, 0},
	{0x70, "BVS", opBVS, modeRelative, 2, 2, 0},

	{0x24, "BIT", opBIT, modeZeroPage, 2, 3, 0},
	{0x2C, "BIT", opBIT, modeAbsolute, 3, 4, 0},

	// BRK后面跟一个填充字节，压栈的是PC+2
	{0x00, "BRK", opBRK, modeImplied, 2, 7, 0},

	{0x18, "CLC", opCLC, modeImplied, 1, 2, 0},
	{0xD8, "CLD", opCLD, modeImplied, 1, 2, 0},
	{0x58, "CLI", opCLI, modeImplied, 1, 2, 0},
	{0xB8, "CLV", opCLV, modeImplied, 1, 2, 0},

	{0xC9, "CMP", opCMP, modeImmediate, 2, 2, 0},
	{0xC5, "CMP", opCMP, modeZeroPage, 2, 3, 0},
	{0xD5, "CMP", opCMP, modeZeroPageX, 2, 4, 0},
	{0xCD, "CMP", opCMP, modeAbsolute, 3, 4, 0},
	{0xDD, "CMP", opCMP, modeAbsoluteX, 3, 4, 1},
	{0xD9, "CMP", opCMP, modeAbsoluteY, 3, 4, 1},
	{0xC1, "CMP", opCMP, modeIndexedIndirect, 2, 6, 0},
	{0xD1, "CMP", opCMP, modeIndirectIndexed, 2, 5, 1},

	{0xE0, "CPX", opCPX, modeImmediate, 2, 2, 0},
	{0xE4, "CPX", opCPX, modeZeroPage, 2, 3, 0},
	{0xEC, "CPX", opCPX, modeAbsolute, 3, 4, 0},

	{0xC0, "CPY", opCPY, modeImmediate, 2, 2, 0},
	{0xC4, "CPY", opCPY, modeZeroPage, 2, 3, 0},
	{0xCC, "CPY", opCPY, modeAbsolute, 3, 4, 0},

	{0xC6, "DEC", opDEC, modeZeroPage, 2, 5, 0},
	{0xD6, "DEC", opDEC, modeZeroPageX, 2, 6, 0},
	{0xCE, "DEC", opDEC, modeAbsolute, 3, 6, 0},
	{0xDE, "DEC", opDEC, modeAbsoluteX, 3, 7, 0},

	{0xCA, "DEX", opDEX, modeImplied, 1, 2, 0},
	{0x88, "DEY", opDEY, modeImplied, 1, 2, 0},

	{0x49, "EOR", opEOR, modeImmediate, 2, 2, 0},
	{0x45, "EOR", opEOR, modeZeroPage, 2, 3, 0},
	{0x55, "EOR", opEOR, modeZeroPageX, 2, 4, 0},
	{0x4D, "EOR", opEOR, modeAbsolute, 3, 4, 0},
	{0x5D, "EOR", opEOR, modeAbsoluteX, 3, 4, 1},
	{0x59, "EOR", opEOR, modeAbsoluteY, 3, 4, 1},
	{0x41, "EOR", opEOR, modeIndexedIndirect, 2, 6, 0},
	{0x51, "EOR", opEOR, modeIndirectIndexed, 2, 5, 1},

	{0xE6, "INC", opINC, modeZeroPage, 2, 5, 0},
	{0xF6, "INC", opINC, modeZeroPageX, 2, 6, 0},
	{0xEE, "INC", opINC, modeAbsolute, 3, 6, 0},
	{0xFE, "INC", opINC, modeAbsoluteX, 3, 7, 0},

	{0xE8, "INX", opINX, modeImplied, 1, 2, 0},
	{0xC8, "INY", opINY, modeImplied, 1, 2, 0},

	{0x4C, "JMP", opJMP, modeAbsolute, 3, 3, 0},
	{0x6C, "JMP", opJMP, modeIndirect, 3, 5, 0},
	{0x20, "JSR", opJSR, modeAbsolute, 3, 6, 0},

	{0xA9, "LDA", opLDA, modeImmediate, 2, 2, 0},
	{0xA5, "LDA", opLDA, modeZeroPage, 2, 3, 0},
	{0xB5, "LDA", opLDA, modeZeroPageX, 2, 4, 0},
	{0xAD, "LDA", opLDA, modeAbsolute, 3, 4, 0},
	{0xBD, "LDA", opLDA, modeAbsoluteX, 3, 4, 1},
	{0xB9, "LDA", opLDA, modeAbsoluteY, 3, 4, 1},
	{0xA1, "LDA", opLDA, modeIndexedIndirect, 2, 6, 0},
	{0xB1, "LDA", opLDA, modeIndirectIndexed, 2, 5, 1},

	{0xA2, "LDX", opLDX, modeImmediate, 2, 2, 0},
	{0xA6, "LDX", opLDX, modeZeroPage, 2, 3, 0},
	{0xB6, "LDX", opLDX, modeZeroPageY, 2, 4, 0},
	{0xAE, "LDX", opLDX, modeAbsolute, 3, 4, 0},
	{0xBE, "LDX", opLDX, modeAbsoluteY, 3, 4, 1},

	{0xA0, "LDY", opLDY, modeImmediate, 2, 2, 0},
	{0xA4, "LDY", opLDY, modeZeroPage, 2, 3, 0},
	{0xB4, "LDY", opLDY, modeZeroPageX, 2, 4, 0},
	{0xAC, "LDY", opLDY, modeAbsolute, 3, 4, 0},
	{0xBC, "LDY", opLDY, modeAbsoluteX, 3, 4, 1},

	{0x4A, "LSR", opLSR, modeAccumulator, 1, 2, 0},
	{0x46, "LSR", opLSR, modeZeroPage, 2, 5, 0},
	{0x56, "LSR", opLSR, modeZeroPageX, 2, 6, 0},
	{0x4E, "LSR", opLSR, modeAbsolute, 3, 6, 0},
	{0x5E, "LSR", opLSR, modeAbsoluteX, 3, 7, 0},

	{0xEA, "NOP", opNOP, modeImplied, 1, 2, 0},

	{0x09, "ORA", opORA, modeImmediate, 2, 2, 0},
	{0x05, "ORA", opORA, modeZeroPage, 2, 3, 0},
	{0x15, "ORA", opORA, modeZeroPageX, 2, 4, 0},
	{0x0D, "ORA", opORA, modeAbsolute, 3, 4, 0},
	{0x1D, "ORA", opORA, modeAbsoluteX, 3, 4, 1},
	{0x19, "ORA", opORA, modeAbsoluteY, 3, 4, 1},
	{0x01, "ORA", opORA, modeIndexedIndirect, 2, 6, 0},
	{0x11, "ORA", opORA, modeIndirectIndexed, 2, 5, 1},

	{0x48, "PHA", opPHA, modeImplied, 1, 3, 0},
	{0x08, "PHP", opPHP, modeImplied, 1, 3, 0},
	{0x68, "PLA", opPLA, modeImplied, 1, 4, 0},
	{0x28, "PLP", opPLP, modeImplied, 1, 4, 0},

	{0x2A, "ROL", opROL, modeAccumulator, 1, 2, 0},
	{0x26, "ROL", opROL, modeZeroPage, 2, 5, 0},
	{0x36, "ROL", opROL, modeZeroPageX, 2, 6, 0},
	{0x2E, "ROL", opROL, modeAbsolute, 3, 6, 0},
	{0x3E, "ROL", opROL, modeAbsoluteX, 3, 7, 0},

	{0x6A, "ROR", opROR, modeAccumulator, 1, 2, 0},
	{0x66, "ROR", opROR, modeZeroPage, 2, 5, 0},
	{0x76, "ROR", opROR, modeZeroPageX, 2, 6, 0},
	{0x6E, "ROR", opROR, modeAbsolute, 3, 6, 0},
	{0x7E, "ROR", opROR, modeAbsoluteX, 3, 7, 0},

	{0x40, "RTI", opRTI, modeImplied, 1, 6, 0},
	{0x60, "RTS", opRTS, modeImplied, 1, 6, 0},

	{0xE9, "SBC", opSBC, modeImmediate, 2, 2, 0},
	{0xE5, "SBC", opSBC, modeZeroPage, 2, 3, 0},
	{0xF5, "SBC", opSBC, modeZeroPageX, 2, 4, 0},
	{0xED, "SBC", opSBC, modeAbsolute, 3, 4, 0},
	{0xFD, "SBC", opSBC, modeAbsoluteX, 3, 4, 1},
	{0xF9, "SBC", opSBC, modeAbsoluteY, 3, 4, 1},
	{0xE1, "SBC", opSBC, modeIndexedIndirect, 2, 6, 0},
	{0xF1, "SBC", opSBC, modeIndirectIndexed, 2, 5, 1},

	{0x38, "SEC", opSEC, modeImplied, 1, 2, 0},
	{0xF8, "SED", opSED, modeImplied, 1, 2, 0},
	{0x78, "SEI", opSEI, modeImplied, 1, 2, 0},

	// 写内存的指令跨page没有额外周期，基础周期里已经算了
	{0x85, "STA", opSTA, modeZeroPage, 2, 3, 0},
	{0x95, "STA", opSTA, modeZeroPageX, 2, 4, 0},
	{0x8D, "STA", opSTA, modeAbsolute, 3, 4, 0},
	{0x9D, "STA", opSTA, modeAbsoluteX, 3, 5, 0},
	{0x99, "STA", opSTA, modeAbsoluteY, 3, 5, 0},
	{0x81, "STA", opSTA, modeIndexedIndirect, 2, 6, 0},
	{0x91, "STA", opSTA, modeIndirectIndexed, 2, 6, 0},

	{0x86, "STX", opSTX, modeZeroPage, 2, 3, 0},
	{0x96, "STX", opSTX, modeZeroPageY, 2, 4, 0},
	{0x8E, "STX", opSTX, modeAbsolute, 3, 4, 0},

	{0x84, "STY", opSTY, modeZeroPage, 2, 3, 0},
	{0x94, "STY", opSTY, modeZeroPageX, 2, 4, 0},
	{0x8C, "STY", opSTY, modeAbsolute, 3, 4, 0},

	{0xAA, "TAX", opTAX, modeImplied, 1, 2, 0},
	{0xA8, "TAY", opTAY, modeImplied, 1, 2, 0},
	{0xBA, "TSX", opTSX, modeImplied, 1, 2, 0},
	{0x8A, "TXA", opTXA, modeImplied, 1, 2, 0},
	{0x9A, "TXS", opTXS, modeImplied, 1, 2, 0},
	{0x98, "TYA", opTYA, modeImplied, 1, 2, 0},
}

// 按opcode索引，nil表示非法指令
var instructions [256]*instruction

func init() {
	for i := range instructionTable {
		inst := &instructionTable[i]
		if instructions[inst.opcode] != nil {
			panic("duplicate opcode in instruction table")
		}
		instructions[inst.opcode] = inst
	}
}
