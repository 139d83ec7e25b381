package nes

import (
	"context"
	"errors"
	"image"
	"io"

	"github.com/55utah/fc-core/logger"
)

/**
这个模块作为cpu/ppu/mapper/card/RAM的封装
CPU和PPU的先后顺序只在Step里保证: 先执行一条指令, 再让PPU走3倍的点
*/

type Console struct {
	CPU    *CPU
	PPU    *PPU
	Card   *Cartridge
	Mapper Mapper

	memory *CPUMemory
	nmi    *Interrupt

	// 已经交给frame handler的帧数
	frames uint64
	// 导致停机的错误, 只记录第一次
	err error

	trace         io.Writer
	haltOnBRK     bool
	onFrame       func(frame *image.RGBA)
	onInstruction func(regs Registers)
}

func NewConsole(card *Cartridge, options ...Option) (*Console, error) {
	if card == nil {
		return nil, errors.New("no cartridge")
	}
	mapper, err := NewMapper(card)
	if err != nil {
		return nil, err
	}

	console := &Console{Card: card, Mapper: mapper}
	if err := console.setOptions(options...); err != nil {
		return nil, err
	}

	console.nmi = &Interrupt{}
	console.PPU = NewPPU(mapper, card.Mirror, console.nmi)
	console.memory = NewCPUMemory(console.PPU, mapper)
	console.CPU = NewCPU(console.memory, console.nmi)
	console.CPU.haltOnBRK = console.haltOnBRK
	console.memory.cpu = console.CPU

	logger.Logf("console", "power on, reset vector $%04X", console.CPU.PC)
	return console, nil
}

func (console *Console) Reset() {
	console.CPU.Reset()
	console.PPU.Reset()
	console.err = nil
	logger.Logf("console", "reset, reset vector $%04X", console.CPU.PC)
}

// Step 执行一条指令(或一次中断响应/DMA等待), 返回消耗的cpu时钟数
func (console *Console) Step() (int64, error) {
	cpu := console.CPU
	if cpu.fetching() {
		if console.trace != nil {
			cpu.trace(console.trace)
		}
		if console.onInstruction != nil {
			console.onInstruction(cpu.Registers())
		}
	}

	cpuCycles, err := cpu.Step()

	// PPU的时钟是CPU三倍
	ppuCycles := cpuCycles * 3
	for i := int64(0); i < ppuCycles; i++ {
		console.PPU.Step()
		if console.PPU.FrameReady() {
			console.frames++
			if console.onFrame != nil {
				console.onFrame(console.PPU.Buffer())
			}
		}
	}

	if err != nil && console.err == nil {
		console.err = err
		logger.Logf("console", "halted after %d cycles: %v", cpu.Cycles, err)
	}
	return cpuCycles, err
}

// StepFrame 一直执行到下一帧完成
func (console *Console) StepFrame() error {
	frames := console.frames
	for frames == console.frames {
		if _, err := console.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (console *Console) StepSeconds(seconds float64) error {
	cycles := int64(CPUFrequency * seconds)
	for cycles > 0 {
		n, err := console.Step()
		if err != nil {
			return err
		}
		cycles -= n
	}
	return nil
}

// Run 持续执行直到ctx取消或者停机, 每条指令之间检查一次ctx
func (console *Console) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := console.Step(); err != nil {
			return err
		}
	}
}

// Buffer 最近完成的一帧
func (console *Console) Buffer() *image.RGBA {
	return console.PPU.Buffer()
}

// RAM 主机2KB内存, 直接返回底层数组的切片
func (console *Console) RAM() []byte {
	return console.memory.RAM[:]
}

// Frames 已经完成的帧数
func (console *Console) Frames() uint64 {
	return console.frames
}

// Attach 挂载IO设备(手柄/APU等), 见CPUMemory.Attach
func (console *Console) Attach(start, end uint16, dev Memory) error {
	return console.memory.Attach(start, end, dev)
}
