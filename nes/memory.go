package nes

import "fmt"

/*
CPU地址空间:
[$0000, $2000) cpu 内存{0-0x0800，[0x0800-0x1000, 0x1000-0x1800, 0x1800-0x2000]都是0-0x0800的镜像}
[$2000, $4000) PPU 寄存器, 8个寄存器每8字节镜像一次
[$4000, $4020) APU/手柄等IO寄存器, 这里只留出挂载外部设备的接口, $4014是OAM DMA
[$4020, $8000) 扩展区和SRAM, mapper0没有, 读到的是open bus
[$8000, $0x10000) 程序代码区 PRG-ROM
*/

type Memory interface {
	Write(addr uint16, value byte)
	Read(addr uint16) byte
}

// 挂到IO区间的外部设备
type device struct {
	start, end uint16
	mem        Memory
}

type CPUMemory struct {
	RAM     [0x0800]byte
	ppu     *PPU
	mapper  Mapper
	cpu     *CPU // DMA时用来暂停cpu
	devices []device
	// 最近一次总线上的数据，读未映射的地址时返回它(open bus)
	bus byte
}

func NewCPUMemory(ppu *PPU, mapper Mapper) *CPUMemory {
	return &CPUMemory{ppu: ppu, mapper: mapper}
}

// Attach 把设备挂到[start, end]的IO地址上，手柄/APU之类的外部模块通过这里接入
func (mem *CPUMemory) Attach(start, end uint16, dev Memory) error {
	if start < 0x4000 || end > 0x401f || start > end {
		return fmt.Errorf("attach range $%04X-$%04X outside IO window", start, end)
	}
	if start <= 0x4014 && end >= 0x4014 {
		return fmt.Errorf("attach range $%04X-$%04X overlaps OAM DMA", start, end)
	}
	for _, d := range mem.devices {
		if start <= d.end && end >= d.start {
			return fmt.Errorf("attach range $%04X-$%04X overlaps $%04X-$%04X", start, end, d.start, d.end)
		}
	}
	mem.devices = append(mem.devices, device{start, end, dev})
	return nil
}

func (mem *CPUMemory) findDevice(addr uint16) Memory {
	for _, d := range mem.devices {
		if addr >= d.start && addr <= d.end {
			return d.mem
		}
	}
	return nil
}

func (mem *CPUMemory) Read(addr uint16) byte {
	switch {
	case addr < 0x2000:
		mem.bus = mem.RAM[addr%0x0800]
	case addr < 0x4000:
		// 这边addr访问ppu寄存器，存在镜像，需要对8取余
		mem.bus = mem.ppu.readRegister(ppuCtrl + addr%8)
	case addr < 0x4020:
		if dev := mem.findDevice(addr); dev != nil {
			mem.bus = dev.Read(addr)
		}
	case addr >= 0x8000:
		mem.bus = mem.mapper.Read(addr)
	}
	return mem.bus
}

func (mem *CPUMemory) Write(addr uint16, value byte) {
	mem.bus = value
	switch {
	case addr < 0x2000:
		mem.RAM[addr%0x0800] = value
	case addr < 0x4000:
		mem.ppu.writeRegister(ppuCtrl+addr%8, value)
	case addr == 0x4014:
		mem.writeDMA(value)
	case addr < 0x4020:
		if dev := mem.findDevice(addr); dev != nil {
			dev.Write(addr, value)
		}
	}
	// PRG-ROM和未映射的区域，写入直接丢弃
}

// 0x4014 将0xXX00-0xXXff的内存复制到精灵OAM 256byte内存, cpu暂停513或514个周期
func (mem *CPUMemory) writeDMA(value byte) {
	address := uint16(value) << 8
	for i := 0; i < 256; i++ {
		mem.ppu.writeOAMData(mem.Read(address))
		address++
	}
	if mem.cpu != nil {
		mem.cpu.stall += 513
		if mem.cpu.Cycles%2 == 1 {
			mem.cpu.stall++
		}
	}
}

// PPU的地址空间. PPU拥有16kb的地址空间， 也就是从0-0x3fff, 完全独立于CPU. 再高的地址会被镜像.
type PPUMemory struct {
	ppu    *PPU
	mapper Mapper
	mirror byte
}

func NewPPUMemory(ppu *PPU, mapper Mapper, mirror byte) Memory {
	return &PPUMemory{ppu, mapper, mirror}
}

func (mem *PPUMemory) Read(addr uint16) byte {
	addr = addr % 0x4000
	switch {
	// 0-0x2000是pattern table图样表，这部分来自卡带的CHR-ROM，除了这部分，其他的都是PPU自己的内存（读+写）
	case addr < 0x2000:
		return mem.mapper.Read(addr)
	case addr < 0x3f00:
		return mem.ppu.NameTable[MirrorAddress(mem.mirror, addr)%2048]
	default:
		return mem.ppu.ReadPalette(addr % 32)
	}
}

func (mem *PPUMemory) Write(addr uint16, value byte) {
	addr = addr % 0x4000
	switch {
	// CHR-ROM只读
	case addr < 0x2000:
	case addr < 0x3f00:
		mem.ppu.NameTable[MirrorAddress(mem.mirror, addr)%2048] = value
	default:
		mem.ppu.WritePalette(addr%32, value)
	}
}

// Mirroring Modes
// 镜像模式，一般常用的是 MirrorHorizontal、MirrorVertical
// 四屏模式需要卡带额外提供2KB显存，mapper0不支持

const (
	MirrorHorizontal = 0
	MirrorVertical   = 1
	MirrorSingle0    = 2
	MirrorSingle1    = 3
)

var MirrorLookup = [...][4]uint16{
	{0, 0, 1, 1},
	{0, 1, 0, 1},
	{0, 0, 0, 0},
	{1, 1, 1, 1},
}

// 0x3000-0x3eff是0x2000-0x2eff的镜像, 先折叠到0x2000-0x2fff再按模式映射到两块1KB的显存
func MirrorAddress(mode byte, address uint16) uint16 {
	address = (address - 0x2000) % 0x1000
	table := address / 0x0400
	offset := address % 0x0400
	return 0x2000 + MirrorLookup[mode][table]*0x0400 + offset
}
