package nes

import (
	"io"

	"github.com/bradleyjkemp/memviz"
)

// PPUState PPU的扫描位置和几个常用标志位
type PPUState struct {
	ScanLine int
	Dot      int
	Frame    int

	VBlank         bool
	NMIEnabled     bool
	ShowBackground bool
	ShowSprites    bool
	SpriteZeroHit  bool
	SpriteOverflow bool

	// 内部滚动寄存器
	V uint16
	T uint16
	X byte
	W byte
}

// State 整机状态快照, 只用来查看和调试, 不能用来恢复
type State struct {
	Registers Registers
	Cycles    uint64
	Stall     int
	NMIRaised uint64
	PPU       PPUState
	Frames    uint64
	Halted    string
}

func (console *Console) State() State {
	cpu := console.CPU
	ppu := console.PPU
	state := State{
		Registers: cpu.Registers(),
		Cycles:    cpu.Cycles,
		Stall:     cpu.stall,
		NMIRaised: console.nmi.Raised(),
		PPU: PPUState{
			ScanLine:       ppu.ScanLine,
			Dot:            ppu.Cycle,
			Frame:          ppu.Frame,
			VBlank:         ppu.nmiOccurred,
			NMIEnabled:     ppu.nmiOutput,
			ShowBackground: ppu.flagShowBack == 1,
			ShowSprites:    ppu.flagShowSprite == 1,
			SpriteZeroHit:  ppu.flagSpriteZeroHit == 1,
			SpriteOverflow: ppu.flagSpriteOverflow == 1,
			V:              ppu.v,
			T:              ppu.t,
			X:              ppu.x,
			W:              ppu.w,
		},
		Frames: console.frames,
	}
	if console.err != nil {
		state.Halted = console.err.Error()
	}
	return state
}

// DumpState 把当前状态以graphviz dot格式写到w
func (console *Console) DumpState(w io.Writer) {
	state := console.State()
	memviz.Map(w, &state)
}
