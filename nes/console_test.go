package nes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/55utah/fc-core/logger"
	"github.com/55utah/fc-core/test"
	fcnes "github.com/fogleman/nes/nes"
)

// 32KB的PRG, 程序从$8000开始, NMI处理在$9000, IRQ处理在$9800, 默认都是RTI
func testPRG(program []byte) []byte {
	prg := make([]byte, 0x8000)
	copy(prg, program)
	prg[0x1000] = 0x40
	prg[0x1800] = 0x40
	prg[0x7FFA], prg[0x7FFB] = 0x00, 0x90
	prg[0x7FFC], prg[0x7FFD] = 0x00, 0x80
	prg[0x7FFE], prg[0x7FFF] = 0x00, 0x98
	return prg
}

func newTestConsole(t *testing.T, prg []byte, options ...Option) *Console {
	t.Helper()
	card, err := NewCartridge(prg, nil, 0, MirrorHorizontal)
	test.DemandSuccess(t, err)
	console, err := NewConsole(card, options...)
	test.DemandSuccess(t, err)
	return console
}

func TestConsoleProgram(t *testing.T) {
	// LDA #$42; STA $0200; BRK
	console := newTestConsole(t, testPRG([]byte{0xA9, 0x42, 0x8D, 0x00, 0x02, 0x00}), HaltOnBRK(true))

	err := console.Run(context.Background())
	test.ExpectSuccess(t, errors.Is(err, ErrHalted))
	test.ExpectEquality(t, console.RAM()[0x200], 0x42)
	test.ExpectEquality(t, console.CPU.PC, 0x8007)

	entries := logger.Entries()
	test.DemandSuccess(t, len(entries) > 0)
	last := entries[len(entries)-1]
	test.ExpectEquality(t, last.Tag, "console")
	test.ExpectSuccess(t, strings.Contains(last.Detail, "halted"))

	// 停机后再调用返回同一个错误
	_, again := console.Step()
	test.DemandSuccess(t, errors.Is(again, ErrHalted))
	test.ExpectEquality(t, again.Error(), err.Error())
}

func TestConsoleRunCancelled(t *testing.T) {
	console := newTestConsole(t, testPRG([]byte{0x4C, 0x00, 0x80}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := console.Run(ctx)
	test.ExpectSuccess(t, errors.Is(err, context.Canceled))
	test.ExpectEquality(t, console.CPU.Cycles, uint64(0))
}

func TestConsoleStepFrame(t *testing.T) {
	program := []byte{
		0xA9, 0x3F, // LDA #$3F
		0x8D, 0x06, 0x20, // STA $2006
		0xA9, 0x00, // LDA #$00
		0x8D, 0x06, 0x20, // STA $2006
		0xA9, 0x21, // LDA #$21
		0x8D, 0x07, 0x20, // STA $2007
		0x4C, 0x0F, 0x80, // JMP $800F
	}

	var frames []*image.RGBA
	console := newTestConsole(t, testPRG(program), FrameHandler(func(frame *image.RGBA) {
		frames = append(frames, Snapshot(frame))
	}))

	for i := 0; i < 3; i++ {
		test.DemandSuccess(t, console.StepFrame())
	}
	test.ExpectEquality(t, console.Frames(), uint64(3))
	test.DemandEquality(t, len(frames), 3)

	want := Palette[0x21]
	img := console.Buffer()
	for y := 0; y < ScreenHeight; y++ {
		for x := 0; x < ScreenWidth; x++ {
			if img.RGBAAt(x, y) != want {
				t.Fatalf("pixel (%d, %d) is %v, want %v", x, y, img.RGBAAt(x, y), want)
			}
		}
	}
	test.ExpectSuccess(t, bytes.Equal(frames[2].Pix, img.Pix))
}

func TestConsolePPUClock(t *testing.T) {
	// LDA #$02; STA $4014; JMP $8000, 包含DMA等待
	console := newTestConsole(t, testPRG([]byte{0xA9, 0x02, 0x8D, 0x14, 0x40, 0x4C, 0x00, 0x80}))
	ppu := console.PPU
	position := func() int {
		return ppu.Frame*DotsPerLine*LinesPerFrame + ppu.ScanLine*DotsPerLine + ppu.Cycle
	}

	for i := 0; i < 5000; i++ {
		before := position()
		cycles, err := console.Step()
		test.DemandSuccess(t, err)
		if !test.ExpectEquality(t, position()-before, int(cycles)*3, i) {
			break
		}
	}
}

func TestConsoleDMAStall(t *testing.T) {
	// LDA #$02; STA $4014; NOP
	console := newTestConsole(t, testPRG([]byte{0xA9, 0x02, 0x8D, 0x14, 0x40, 0xEA}))
	console.RAM()[0x203] = 0x77

	for i := 0; i < 2; i++ {
		_, err := console.Step()
		test.DemandSuccess(t, err)
	}
	test.ExpectEquality(t, console.PPU.oamData[3], 0x77)

	stalls := 0
	for {
		cycles, err := console.Step()
		test.DemandSuccess(t, err)
		if cycles != 1 {
			test.ExpectEquality(t, cycles, int64(2))
			break
		}
		stalls++
	}
	test.ExpectEquality(t, stalls, 513)
	test.ExpectEquality(t, console.CPU.PC, 0x8006)
}

func TestConsoleNMI(t *testing.T) {
	// 打开NMI后死循环, NMI里 INC $10
	prg := testPRG([]byte{0xA9, 0x80, 0x8D, 0x00, 0x20, 0x4C, 0x05, 0x80})
	copy(prg[0x1000:], []byte{0xE6, 0x10, 0x40})
	console := newTestConsole(t, prg)

	for i := 0; i < 5; i++ {
		test.DemandSuccess(t, console.StepFrame())
	}
	// 让最后一次NMI处理完
	test.DemandSuccess(t, console.StepSeconds(0.001))

	raised := console.nmi.Raised()
	test.ExpectSuccess(t, raised >= 4)
	test.ExpectEquality(t, uint64(console.RAM()[0x10]), raised)
	test.ExpectEquality(t, console.CPU.SP, 0xFD)
}

func TestConsoleStepSeconds(t *testing.T) {
	console := newTestConsole(t, testPRG([]byte{0x4C, 0x00, 0x80}))
	test.DemandSuccess(t, console.StepSeconds(1.0/60))
	want := uint64(CPUFrequency / 60)
	test.ExpectSuccess(t, console.CPU.Cycles >= want && console.CPU.Cycles < want+7, console.CPU.Cycles)
}

func TestConsoleTrace(t *testing.T) {
	var w strings.Builder
	// LDX #$05; NOP
	console := newTestConsole(t, testPRG([]byte{0xA2, 0x05, 0xEA}), Trace(&w))

	for i := 0; i < 2; i++ {
		_, err := console.Step()
		test.DemandSuccess(t, err)
	}

	lines := strings.Split(strings.TrimSuffix(w.String(), "\n"), "\n")
	test.DemandEquality(t, len(lines), 2)
	test.ExpectSuccess(t, strings.HasPrefix(lines[0], "8000  A2 05     LDX "), lines[0])
	test.ExpectSuccess(t, strings.HasSuffix(lines[0], "A:00 X:00 Y:00 P:24 SP:FD CYC:0"), lines[0])
	test.ExpectSuccess(t, strings.HasPrefix(lines[1], "8002  EA        NOP "), lines[1])
	test.ExpectSuccess(t, strings.HasSuffix(lines[1], "A:00 X:05 Y:00 P:24 SP:FD CYC:2"), lines[1])
}

func TestConsoleOptions(t *testing.T) {
	card, err := NewCartridge(testPRG(nil), nil, 0, MirrorVertical)
	test.DemandSuccess(t, err)

	_, err = NewConsole(card, HaltOnBRK(true), Trace(nil))
	test.ExpectFailure(t, err)
	test.ExpectSuccess(t, err != nil && strings.Contains(err.Error(), "index 1"))

	_, err = NewConsole(card, FrameHandler(nil))
	test.ExpectFailure(t, err)

	_, err = NewConsole(nil)
	test.ExpectFailure(t, err)

	card, err = NewCartridge(testPRG(nil), nil, 4, MirrorVertical)
	test.DemandSuccess(t, err)
	_, err = NewConsole(card)
	test.ExpectSuccess(t, errors.Is(err, ErrUnsupportedMapper))
}

func TestConsoleReset(t *testing.T) {
	console := newTestConsole(t, testPRG([]byte{0xE8, 0x02}))

	_, err := console.Step()
	test.DemandSuccess(t, err)
	_, err = console.Step()
	test.ExpectSuccess(t, errors.Is(err, ErrIllegalOpcode))
	test.ExpectInequality(t, console.State().Halted, "")

	console.Reset()
	test.ExpectEquality(t, console.State().Halted, "")
	test.ExpectEquality(t, console.CPU.Registers(), Registers{PC: 0x8000, SP: 0xFD, P: 0x24})
	_, err = console.Step()
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, console.CPU.X, 1)
}

func TestConsoleAttach(t *testing.T) {
	// LDA $4016; STA $00
	console := newTestConsole(t, testPRG([]byte{0xAD, 0x16, 0x40, 0x85, 0x00}))
	test.DemandSuccess(t, console.Attach(0x4016, 0x4016, &ioDevice{value: 0x41}))

	for i := 0; i < 2; i++ {
		_, err := console.Step()
		test.DemandSuccess(t, err)
	}
	test.ExpectEquality(t, console.RAM()[0], 0x41)
}

// 写一个只有mapper0的iNES文件给参考实现加载
func writeINES(t *testing.T, prg []byte) string {
	t.Helper()
	header := []byte{'N', 'E', 'S', 0x1A, byte(len(prg) / prgBankSize), 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	data := append(header, prg...)
	data = append(data, make([]byte, chrBankSize)...)
	path := filepath.Join(t.TempDir(), "diff.nes")
	test.DemandSuccess(t, os.WriteFile(path, data, 0o644))
	return path
}

// 和github.com/fogleman/nes的cpu逐条对比寄存器和时钟
func TestCPUDifferential(t *testing.T) {
	program := map[uint16][]byte{
		0x8000: {
			0xA2, 0x00, // LDX #$00
			0xA0, 0x10, // LDY #$10
			0x8A,       // TXA            <- $8004
			0x0A,       // ASL A
			0x69, 0x37, // ADC #$37
			0x9D, 0x00, 0x03, // STA $0300,X
			0x5D, 0x00, 0x03, // EOR $0300,X
			0x2A,       // ROL A
			0x85, 0x10, // STA $10
			0xE6, 0x10, // INC $10
			0xA5, 0x10, // LDA $10
			0x38,       // SEC
			0xE5, 0x11, // SBC $11
			0x85, 0x11, // STA $11
			0x48,             // PHA
			0x08,             // PHP
			0x68,             // PLA
			0x28,             // PLP
			0x20, 0x40, 0x80, // JSR $8040
			0xB1, 0x14, // LDA ($14),Y
			0xC9, 0x80, // CMP #$80
			0xB0, 0x02, // BCS +2
			0x66, 0x13, // ROR $13
			0xE8,       // INX
			0x24, 0x13, // BIT $13
			0x88,       // DEY
			0xD0, 0xD5, // BNE $8004
			0xA0, 0x10, // LDY #$10
			0x4C, 0x04, 0x80, // JMP $8004
		},
		0x8040: {
			0xBD, 0x00, 0x03, // LDA $0300,X
			0x4A,             // LSR A
			0x99, 0x00, 0x04, // STA $0400,Y
			0x6C, 0x50, 0x80, // JMP ($8050)
		},
		0x8050: {0x52, 0x80, 0x60}, // -> $8052 RTS
	}
	prg := testPRG(nil)
	for addr, code := range program {
		copy(prg[addr-0x8000:], code)
	}

	reference, err := fcnes.NewConsole(writeINES(t, prg))
	test.DemandSuccess(t, err)
	console := newTestConsole(t, prg)

	ref := reference.CPU
	for i := 0; i < 20000; i++ {
		want := Registers{PC: ref.PC, SP: ref.SP, A: ref.A, X: ref.X, Y: ref.Y, P: ref.Flags()}
		if !test.ExpectEquality(t, console.CPU.Registers(), want, "step", i) {
			break
		}
		cycles, err := console.Step()
		test.DemandSuccess(t, err)
		if !test.ExpectEquality(t, cycles, int64(ref.Step()), "cycles at step", i) {
			break
		}
	}
	test.ExpectSuccess(t, bytes.Equal(console.RAM(), reference.RAM))
}

func TestConsoleInstructionHandler(t *testing.T) {
	// LDX #$05; INX; JMP $8000
	var seen []Registers
	console := newTestConsole(t, testPRG([]byte{0xA2, 0x05, 0xE8, 0x4C, 0x00, 0x80}),
		InstructionHandler(func(regs Registers) {
			seen = append(seen, regs)
		}))

	for i := 0; i < 3; i++ {
		_, err := console.Step()
		test.DemandSuccess(t, err)
	}
	test.DemandEquality(t, len(seen), 3)
	test.ExpectEquality(t, seen[0].PC, 0x8000)
	test.ExpectEquality(t, seen[1].PC, 0x8002)
	test.ExpectEquality(t, seen[1].X, 0x05)
	test.ExpectEquality(t, seen[2].PC, 0x8003)
	test.ExpectEquality(t, seen[2].X, 0x06)
}

// 每条指令用随机寄存器和RAM各跑一步, 和参考实现比较寄存器/时钟/RAM
// 指令放在$0700, 所有数据地址都落在RAM里, 避免碰到PPU和IO
func TestOpcodesAgainstReference(t *testing.T) {
	prg := testPRG(nil)
	reference, err := fcnes.NewConsole(writeINES(t, prg))
	test.DemandSuccess(t, err)
	console := newTestConsole(t, prg)
	cpu, ref := console.CPU, reference.CPU

	const origin = 0x0700
	rng := rand.New(rand.NewSource(0x6502))
	ram := make([]byte, len(console.RAM()))

	for _, inst := range instructions {
		if inst == nil {
			continue
		}
		inst := inst
		t.Run(fmt.Sprintf("%02X_%s", inst.opcode, inst.name), func(t *testing.T) {
			for i := 0; i < 64; i++ {
				rng.Read(ram)
				a, x, y, sp := byte(rng.Intn(256)), byte(rng.Intn(256)), byte(rng.Intn(256)), byte(rng.Intn(256))
				// B不是真实的寄存器位, U总是1
				p := byte(rng.Intn(256))&^0x10 | 0x20

				// 绝对地址高字节限制在$00-$06, 加上变址也不会超出RAM
				lo, hi := byte(rng.Intn(256)), byte(rng.Intn(7))
				ram[origin], ram[origin+1], ram[origin+2] = inst.opcode, lo, hi
				switch inst.mode {
				case modeIndexedIndirect:
					ram[lo+x+1] = byte(rng.Intn(7))
				case modeIndirectIndexed:
					ram[lo+1] = byte(rng.Intn(7))
				}

				copy(console.RAM(), ram)
				copy(reference.RAM, ram)
				cpu.PC, cpu.SP, cpu.A, cpu.X, cpu.Y = origin, sp, a, x, y
				cpu.SetFlags(p)
				ref.PC, ref.SP, ref.A, ref.X, ref.Y = origin, sp, a, x, y
				ref.SetFlags(p)

				cycles, err := cpu.Step()
				test.DemandSuccess(t, err, i)
				refCycles := ref.Step()

				want := Registers{PC: ref.PC, SP: ref.SP, A: ref.A, X: ref.X, Y: ref.Y, P: ref.Flags()}
				ok := test.ExpectEquality(t, cpu.Registers(), want, "fixture", i)
				ok = test.ExpectEquality(t, cycles, int64(refCycles), "cycles", i) && ok
				ok = test.ExpectSuccess(t, bytes.Equal(console.RAM(), reference.RAM), "ram", i) && ok
				if !ok {
					return
				}
			}
		})
	}
}
