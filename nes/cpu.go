package nes

import (
	"fmt"
)

/*
CPU模块，对外需要以下接口：
Step 执行一条指令
Reset
TriggerIRQ
NMI通过Interrupt中断线由PPU触发
还需要一个NewCPU方法
*/

// 各中断的地址信息，2byte
const (
	// NMI中断
	NMI = 0xfffa
	// 每次启动触发
	RESET = 0xfffc
	// IRQ/BRK共用中断地址
	// 硬件/apu触发
	IRQ = 0xfffe
	// 软件触发
	BRK = 0xfffe
)

const CPUFrequency = 1789773

// 状态寄存器各位
const (
	flagC = 1 << iota
	flagZ
	flagI
	flagD
	flagB
	flagU
	flagV
	flagN
)

// Interrupt NMI中断线，PPU在VBlank开始时拉起，CPU每次取指令前检查，响应后清除
type Interrupt struct {
	asserted bool
	raised   uint64
}

func (line *Interrupt) Raise() {
	line.asserted = true
	line.raised++
}

func (line *Interrupt) Asserted() bool {
	return line.asserted
}

func (line *Interrupt) clear() {
	line.asserted = false
}

// Raised 中断线被拉起的总次数
func (line *Interrupt) Raised() uint64 {
	return line.raised
}

// Registers 寄存器快照
type Registers struct {
	PC uint16
	SP byte
	A  byte
	X  byte
	Y  byte
	P  byte
}

func (r Registers) String() string {
	return fmt.Sprintf("A:%02X X:%02X Y:%02X P:%02X SP:%02X PC:%04X", r.A, r.X, r.Y, r.P, r.SP, r.PC)
}

type CPU struct {
	Memory
	Cycles uint64
	PC     uint16
	SP     byte // 堆栈寄存器
	A      byte
	X      byte
	Y      byte
	C      byte // 8个状态FLAG C - 进位标志
	Z      byte // Z - 结果为零标志
	I      byte // I - 中断屏蔽
	D      byte // D - 十进制模式，NES不支持，只保存状态
	B      byte // BRK
	U      byte // 未使用
	V      byte // 溢出标志，计算结果产生溢出
	N      byte // 负标志，结果为负

	nmi       *Interrupt
	irq       bool // IRQ请求
	stall     int  // 剩余等待时钟数
	haltOnBRK bool
	// 致命错误，出现后cpu停止执行
	err error
}

// 指令执行需要的信息
type stepInfo struct {
	address uint16
	pc      uint16
	mode    byte
}

func NewCPU(mem Memory, nmi *Interrupt) *CPU {
	cpu := CPU{Memory: mem, nmi: nmi}
	cpu.Reset()
	return &cpu
}

func (cpu *CPU) Read16(addr uint16) uint16 {
	low := cpu.Read(addr)
	high := cpu.Read(addr + 1)
	return (uint16(high) << 8) | uint16(low)
}

// 这里模拟cpu的bug，读取16位数据时低字节进位不会加到高字节上
// 例如JMP ($10FF), 理论上讲是读取$10FF和$1100这两个字节的数据, 但是实际上是读取的$10FF和$1000这两个字节的数据.
// 零页的间接寻址也是这样，($FF),Y 读取的是$FF和$00
func (cpu *CPU) read16bug(address uint16) uint16 {
	a := address
	b := (a & 0xFF00) | uint16(byte(a)+1)
	lo := cpu.Read(a)
	hi := cpu.Read(b)
	return (uint16(hi) << 8) | uint16(lo)
}

// 栈操作：push/push16/pull/pull16
// 压栈 SP指针向0x00靠近
func (cpu *CPU) push(value byte) {
	// SP  0x00=0xff 对应真实地址的 0x100-0x1ff
	cpu.Write(0x100|uint16(cpu.SP), value)
	cpu.SP--
}

func (cpu *CPU) push16(value uint16) {
	hi := value >> 8
	lo := value & 0xff
	cpu.push(byte(hi))
	cpu.push(byte(lo))
}

// pop a byte from stack
func (cpu *CPU) pull() byte {
	cpu.SP++
	return cpu.Read(0x100 | uint16(cpu.SP))
}

func (cpu *CPU) pull16() uint16 {
	lo := uint16(cpu.pull())
	hi := uint16(cpu.pull())
	return (hi << 8) | lo
}

// 标志寄存器相关
// 零标志
func (cpu *CPU) setZ(value byte) {
	if value == 0 {
		cpu.Z = 1
	} else {
		cpu.Z = 0
	}
}

// 负标志
func (cpu *CPU) setN(value byte) {
	if value&0x80 != 0 {
		cpu.N = 1
	} else {
		cpu.N = 0
	}
}

func (cpu *CPU) setZN(value byte) {
	cpu.setN(value)
	cpu.setZ(value)
}

func (cpu *CPU) Flags() byte {
	var flags byte
	flags |= cpu.C << 0
	flags |= cpu.Z << 1
	flags |= cpu.I << 2
	flags |= cpu.D << 3
	flags |= cpu.B << 4
	flags |= cpu.U << 5
	flags |= cpu.V << 6
	flags |= cpu.N << 7
	return flags
}

func (cpu *CPU) SetFlags(p byte) {
	cpu.C = (p >> 0) & 1
	cpu.Z = (p >> 1) & 1
	cpu.I = (p >> 2) & 1
	cpu.D = (p >> 3) & 1
	cpu.B = (p >> 4) & 1
	cpu.U = (p >> 5) & 1
	cpu.V = (p >> 6) & 1
	cpu.N = (p >> 7) & 1
}

func (cpu *CPU) Registers() Registers {
	return Registers{PC: cpu.PC, SP: cpu.SP, A: cpu.A, X: cpu.X, Y: cpu.Y, P: cpu.Flags()}
}

// Err 导致cpu停止的错误, 正常运行时为nil
func (cpu *CPU) Err() error {
	return cpu.err
}

// 中断触发相关, 处理irq、nmi中断
func (cpu *CPU) TriggerIRQ() {
	cpu.irq = true
}

func (cpu *CPU) TriggerNMI() {
	cpu.nmi.Raise()
}

// 硬件中断压栈的状态B位为0, BRK为1
func (cpu *CPU) interrupt(vector uint16) {
	cpu.push16(cpu.PC)
	cpu.push(cpu.Flags()&^flagB | flagU)
	cpu.PC = cpu.Read16(vector)
	cpu.I = 1
	cpu.Cycles += 7
}

// 特殊处理，如果是跨branch（地址跳转），cycle++，如果跨page，cycle再+1
func (cpu *CPU) addBranchCycles(info *stepInfo) {
	cpu.Cycles++
	if cpu.pageDiff(info.pc, info.address) {
		cpu.Cycles++
	}
}

// 判断地址是否跨页, 跨页则返回true
func (cpu *CPU) pageDiff(old uint16, new uint16) bool {
	return old&0xff00 != new&0xff00
}

func (cpu *CPU) Reset() {
	cpu.PC = cpu.Read16(RESET)
	cpu.Cycles = 0
	cpu.A = 0
	cpu.X = 0
	cpu.Y = 0
	// 栈指针初始化为$FD即指向$1FD
	cpu.SP = 0xfd
	cpu.SetFlags(0x24)
	cpu.irq = false
	cpu.stall = 0
	cpu.err = nil
	if cpu.nmi != nil {
		cpu.nmi.clear()
	}
}

// step执行一个指令：读指令-寻址-将数据提供给指令方法执行-计算时钟数
// 中断只在取指令之前响应，响应中断本身算一步
func (cpu *CPU) Step() (int64, error) {
	if cpu.err != nil {
		return 0, cpu.err
	}

	if cpu.stall > 0 {
		cpu.stall--
		cpu.Cycles++
		return 1, nil
	}

	// 处理下中断的情况, NMI优先
	if cpu.nmi != nil && cpu.nmi.Asserted() {
		cpu.nmi.clear()
		cpu.interrupt(NMI)
		return 7, nil
	}
	if cpu.irq && cpu.I == 0 {
		cpu.irq = false
		cpu.interrupt(IRQ)
		return 7, nil
	}

	// 初始1byte必定是opcode
	opcode := cpu.Read(cpu.PC)
	inst := instructions[opcode]
	if inst == nil {
		cpu.err = &OpcodeError{Opcode: opcode, Address: cpu.PC, Registers: cpu.Registers()}
		return 0, cpu.err
	}
	mode := inst.mode
	lastCycles := cpu.Cycles

	var address uint16
	var pageCrossed bool

	switch mode {
	case modeAbsolute:
		address = cpu.Read16(cpu.PC + 1)
	case modeAbsoluteX:
		address = cpu.Read16(cpu.PC+1) + uint16(cpu.X)
		pageCrossed = cpu.pageDiff(address-uint16(cpu.X), address)
	case modeAbsoluteY:
		address = cpu.Read16(cpu.PC+1) + uint16(cpu.Y)
		pageCrossed = cpu.pageDiff(address-uint16(cpu.Y), address)
	case modeAccumulator, modeImplied:
		// 无需地址置0
		address = 0
	case modeImmediate:
		address = cpu.PC + 1
	// 变址间接寻址
	case modeIndexedIndirect:
		// 将指令的数据 + X 结果作为地址去获取数据作为新地址, 指针在零页内回绕
		address = cpu.read16bug(uint16(cpu.Read(cpu.PC+1) + cpu.X))
	// 间接寻址
	case modeIndirect:
		address = cpu.read16bug(cpu.Read16(cpu.PC + 1))
	// 间接变址寻址
	case modeIndirectIndexed:
		address = cpu.read16bug(uint16(cpu.Read(cpu.PC+1))) + uint16(cpu.Y)
		pageCrossed = cpu.pageDiff(address-uint16(cpu.Y), address)
	// 相对寻址
	case modeRelative:
		offset := uint16(cpu.Read(cpu.PC + 1))
		if offset < 0x80 {
			address = cpu.PC + 2 + offset
		} else {
			address = cpu.PC + 2 + offset - 0x100
		}
	case modeZeroPage:
		address = uint16(cpu.Read(cpu.PC + 1))
	case modeZeroPageX:
		address = uint16(cpu.Read(cpu.PC+1) + cpu.X)
	case modeZeroPageY:
		address = uint16(cpu.Read(cpu.PC+1) + cpu.Y)
	default:
		panic("unknown address mode.")
	}

	cpu.PC += uint16(inst.size)

	cpu.Cycles += uint64(inst.cycles)
	if pageCrossed {
		cpu.Cycles += uint64(inst.pageCycles)
	}

	info := &stepInfo{address, cpu.PC, mode}
	cpu.execute(inst.op, info)

	return int64(cpu.Cycles - lastCycles), cpu.err
}

func (cpu *CPU) execute(op operation, info *stepInfo) {
	switch op {
	case opADC:
		cpu.adc(info)
	case opAND:
		cpu.and(info)
	case opASL:
		cpu.asl(info)
	case opBCC:
		cpu.branch(info, cpu.C == 0)
	case opBCS:
		cpu.branch(info, cpu.C != 0)
	case opBEQ:
		cpu.branch(info, cpu.Z != 0)
	case opBIT:
		cpu.bit(info)
	case opBMI:
		cpu.branch(info, cpu.N != 0)
	case opBNE:
		cpu.branch(info, cpu.Z == 0)
	case opBPL:
		cpu.branch(info, cpu.N == 0)
	case opBRK:
		cpu.brk(info)
	case opBVC:
		cpu.branch(info, cpu.V == 0)
	case opBVS:
		cpu.branch(info, cpu.V != 0)
	case opCLC:
		cpu.C = 0
	case opCLD:
		cpu.D = 0
	case opCLI:
		cpu.I = 0
	case opCLV:
		cpu.V = 0
	case opCMP:
		cpu.compare(cpu.A, cpu.Read(info.address))
	case opCPX:
		cpu.compare(cpu.X, cpu.Read(info.address))
	case opCPY:
		cpu.compare(cpu.Y, cpu.Read(info.address))
	case opDEC:
		cpu.dec(info)
	case opDEX:
		cpu.X--
		cpu.setZN(cpu.X)
	case opDEY:
		cpu.Y--
		cpu.setZN(cpu.Y)
	case opEOR:
		cpu.A ^= cpu.Read(info.address)
		cpu.setZN(cpu.A)
	case opINC:
		cpu.inc(info)
	case opINX:
		cpu.X++
		cpu.setZN(cpu.X)
	case opINY:
		cpu.Y++
		cpu.setZN(cpu.Y)
	case opJMP:
		cpu.PC = info.address
	case opJSR:
		cpu.push16(cpu.PC - 1)
		cpu.PC = info.address
	case opLDA:
		cpu.A = cpu.Read(info.address)
		cpu.setZN(cpu.A)
	case opLDX:
		cpu.X = cpu.Read(info.address)
		cpu.setZN(cpu.X)
	case opLDY:
		cpu.Y = cpu.Read(info.address)
		cpu.setZN(cpu.Y)
	case opLSR:
		cpu.lsr(info)
	case opNOP:
	case opORA:
		cpu.A |= cpu.Read(info.address)
		cpu.setZN(cpu.A)
	case opPHA:
		cpu.push(cpu.A)
	case opPHP:
		// PHP压栈时B和U都是1
		cpu.push(cpu.Flags() | flagB | flagU)
	case opPLA:
		cpu.A = cpu.pull()
		cpu.setZN(cpu.A)
	case opPLP:
		cpu.SetFlags(cpu.pull()&^flagB | flagU)
	case opROL:
		cpu.rol(info)
	case opROR:
		cpu.ror(info)
	case opRTI:
		cpu.SetFlags(cpu.pull()&^flagB | flagU)
		cpu.PC = cpu.pull16()
	case opRTS:
		cpu.PC = cpu.pull16() + 1
	case opSBC:
		cpu.sbc(info)
	case opSEC:
		cpu.C = 1
	case opSED:
		cpu.D = 1
	case opSEI:
		cpu.I = 1
	case opSTA:
		cpu.Write(info.address, cpu.A)
	case opSTX:
		cpu.Write(info.address, cpu.X)
	case opSTY:
		cpu.Write(info.address, cpu.Y)
	case opTAX:
		cpu.X = cpu.A
		cpu.setZN(cpu.X)
	case opTAY:
		cpu.Y = cpu.A
		cpu.setZN(cpu.Y)
	case opTSX:
		cpu.X = cpu.SP
		cpu.setZN(cpu.X)
	case opTXA:
		cpu.A = cpu.X
		cpu.setZN(cpu.A)
	case opTXS:
		cpu.SP = cpu.X
	case opTYA:
		cpu.A = cpu.Y
		cpu.setZN(cpu.A)
	default:
		panic(fmt.Sprintf("unhandled operation %d", op))
	}
}

// ADC - add with carry -- A = A + M + C
func (cpu *CPU) adc(info *stepInfo) {
	a := cpu.A
	b := cpu.Read(info.address)
	c := cpu.C
	cpu.A = a + b + c
	cpu.setZN(cpu.A)
	if int(a)+int(b)+int(c) > 0xFF {
		cpu.C = 1
	} else {
		cpu.C = 0
	}
	// 两个加数符号相同而结果符号不同时溢出
	if (a^b)&0x80 == 0 && (a^cpu.A)&0x80 != 0 {
		cpu.V = 1
	} else {
		cpu.V = 0
	}
}

// SBC - subtract with carry -- A = A - M - (1 - C)
func (cpu *CPU) sbc(info *stepInfo) {
	a := cpu.A
	b := cpu.Read(info.address)
	c := cpu.C
	cpu.A = a - b - (1 - c)
	cpu.setZN(cpu.A)
	// 没有借位时C为1
	if int(a)-int(b)-int(1-c) >= 0 {
		cpu.C = 1
	} else {
		cpu.C = 0
	}
	// 被减数和减数符号不同, 且结果和被减数符号不同时溢出
	if (a^b)&0x80 != 0 && (a^cpu.A)&0x80 != 0 {
		cpu.V = 1
	} else {
		cpu.V = 0
	}
}

// INC - Increment memory
func (cpu *CPU) inc(info *stepInfo) {
	value := cpu.Read(info.address) + 1
	cpu.Write(info.address, value)
	cpu.setZN(value)
}

// DEC - Decrement memory
func (cpu *CPU) dec(info *stepInfo) {
	value := cpu.Read(info.address) - 1
	cpu.Write(info.address, value)
	cpu.setZN(value)
}

// AND - A & memory
func (cpu *CPU) and(info *stepInfo) {
	cpu.A &= cpu.Read(info.address)
	cpu.setZN(cpu.A)
}

func (cpu *CPU) compare(a, b byte) {
	cpu.setZN(a - b)
	if a >= b {
		cpu.C = 1
	} else {
		cpu.C = 0
	}
}

// BIT - Bit test memory with A
func (cpu *CPU) bit(info *stepInfo) {
	value := cpu.Read(info.address)
	cpu.setZ(cpu.A & value)
	cpu.V = (value >> 6) & 1
	cpu.N = (value >> 7) & 1
}

// ASL - Arithmetic Shift Left --  C <- |7|6|5|4|3|2|1|0| <- 0
func (cpu *CPU) asl(info *stepInfo) {
	if info.mode == modeAccumulator {
		cpu.C = (cpu.A >> 7) & 1
		cpu.A <<= 1
		cpu.setZN(cpu.A)
	} else {
		value := cpu.Read(info.address)
		cpu.C = (value >> 7) & 1
		value <<= 1
		cpu.Write(info.address, value)
		cpu.setZN(value)
	}
}

// LSR - Logical Shift Right
func (cpu *CPU) lsr(info *stepInfo) {
	if info.mode == modeAccumulator {
		cpu.C = cpu.A & 1
		cpu.A >>= 1
		cpu.setZN(cpu.A)
	} else {
		value := cpu.Read(info.address)
		cpu.C = value & 1
		value >>= 1
		cpu.Write(info.address, value)
		cpu.setZN(value)
	}
}

// ROL - Rotate Left
func (cpu *CPU) rol(info *stepInfo) {
	c := cpu.C
	if info.mode == modeAccumulator {
		cpu.C = (cpu.A >> 7) & 1
		cpu.A = (cpu.A << 1) | c
		cpu.setZN(cpu.A)
	} else {
		value := cpu.Read(info.address)
		cpu.C = (value >> 7) & 1
		value = (value << 1) | c
		cpu.setZN(value)
		cpu.Write(info.address, value)
	}
}

// ROR - Rotate Right
func (cpu *CPU) ror(info *stepInfo) {
	c := cpu.C
	if info.mode == modeAccumulator {
		cpu.C = cpu.A & 1
		cpu.A = (cpu.A >> 1) | (c << 7)
		cpu.setZN(cpu.A)
	} else {
		value := cpu.Read(info.address)
		cpu.C = value & 1
		value = (value >> 1) | (c << 7)
		cpu.setZN(value)
		cpu.Write(info.address, value)
	}
}

// 条件成立才跳转
func (cpu *CPU) branch(info *stepInfo, cond bool) {
	if cond {
		cpu.PC = info.address
		cpu.addBranchCycles(info)
	}
}

// BRK 强制中断
func (cpu *CPU) brk(info *stepInfo) {
	if cpu.haltOnBRK {
		cpu.err = fmt.Errorf("%w: BRK at $%04X (%s)", ErrHalted, cpu.PC-2, cpu.Registers())
		return
	}
	cpu.push16(cpu.PC)
	cpu.push(cpu.Flags() | flagB | flagU)
	cpu.I = 1
	cpu.PC = cpu.Read16(BRK)
}

/*
P 状态寄存器
BIT	名称	含义
0	C	进位标志，如果计算结果产生进位，则置 1
1	Z	零标志，如果结算结果为 0，则置 1
2	I	中断去使能标志，置 1 则可屏蔽掉 IRQ 中断
3	D	十进制模式，未使用
4	B	BRK
5	U	未使用
6	V	溢出标志，如果结算结果产生了溢出，则置 1
7	N	负标志，如果计算结果为负，则置 1
*/

/*

额外的时钟
有两种情况会额外增加时钟

(1)分支指令进行跳转时,分支指令比如 BNE，BEQ 这类指令，
如果检测条件为真，这时需要额外增加 1 个时钟

(2)跨 Page 访问
新地址和旧地址如果 Page 不一样，即 (newAddr & 0xFF00) !== (oldAddr & 0xFF00)，
则需要额外增加一个时钟。例如 0x1234 与 0x12FF 为同一 Page，但是与 0x1334 为不同 Page
以上两种情况可以同时存在，所以一条指令可能会额外增加 1 ~ 2 个时钟

*/
