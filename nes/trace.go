package nes

import (
	"fmt"
	"io"
)

// 下一步是否会取指令, 停机/DMA等待/响应中断时不会
func (cpu *CPU) fetching() bool {
	if cpu.err != nil || cpu.stall > 0 {
		return false
	}
	if cpu.nmi != nil && cpu.nmi.Asserted() {
		return false
	}
	return !(cpu.irq && cpu.I == 0)
}

// 按nestest.log的格式输出下一条要执行的指令和寄存器，调试用
// C000  4C F5 C5  JMP                             A:00 X:00 Y:00 P:24 SP:FD CYC:7
func (cpu *CPU) trace(w io.Writer) {
	opcode := cpu.Read(cpu.PC)
	bytes := byte(1)
	name := "???"
	if inst := instructions[opcode]; inst != nil {
		bytes = inst.size
		name = inst.name
	}
	// 只读指令本身的字节, 和执行时取指的范围一致
	w0 := fmt.Sprintf("%02X", opcode)
	w1, w2 := "  ", "  "
	if bytes >= 2 {
		w1 = fmt.Sprintf("%02X", cpu.Read(cpu.PC+1))
	}
	if bytes >= 3 {
		w2 = fmt.Sprintf("%02X", cpu.Read(cpu.PC+2))
	}
	fmt.Fprintf(w,
		"%04X  %s %s %s  %s %28s"+
			"A:%02X X:%02X Y:%02X P:%02X SP:%02X CYC:%d\n",
		cpu.PC, w0, w1, w2, name, "",
		cpu.A, cpu.X, cpu.Y, cpu.Flags(), cpu.SP, cpu.Cycles)
}
