package nes

import (
	"errors"
	"fmt"
	"image"
	"io"
)

// Option 创建Console时的配置项
type Option func(console *Console) error

func (console *Console) setOptions(options ...Option) error {
	for i, option := range options {
		if err := option(console); err != nil {
			return fmt.Errorf("failed to set option index %d: %w", i, err)
		}
	}
	return nil
}

// Trace 每条指令执行前按nestest.log格式输出一行
func Trace(w io.Writer) Option {
	return func(console *Console) error {
		if w == nil {
			return errors.New("trace writer is nil")
		}
		console.trace = w
		return nil
	}
}

// HaltOnBRK 遇到BRK时停机而不是跳转到中断向量, 跑测试程序时用
func HaltOnBRK(halt bool) Option {
	return func(console *Console) error {
		console.haltOnBRK = halt
		return nil
	}
}

// FrameHandler 每完成一帧调用一次, 传入的图像下一帧会被覆盖
func FrameHandler(handler func(frame *image.RGBA)) Option {
	return func(console *Console) error {
		if handler == nil {
			return errors.New("frame handler is nil")
		}
		console.onFrame = handler
		return nil
	}
}

// InstructionHandler 每条指令执行前调用, 传入当时的寄存器
func InstructionHandler(handler func(regs Registers)) Option {
	return func(console *Console) error {
		if handler == nil {
			return errors.New("instruction handler is nil")
		}
		console.onInstruction = handler
		return nil
	}
}
