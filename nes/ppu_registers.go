package nes

// https://wiki.nesdev.org/w/index.php?title=PPU_registers
// cpu看到的8个PPU寄存器, $2008-$3FFF都是它们的镜像
const (
	ppuCtrl    = 0x2000
	ppuMask    = 0x2001
	ppuStatus  = 0x2002
	ppuOAMAddr = 0x2003
	ppuOAMData = 0x2004
	ppuScroll  = 0x2005
	ppuAddr    = 0x2006
	ppuData    = 0x2007
	paletteRAM = 0x3F00
)

// v/t寄存器的各个字段 (loopy)
// yyy NN YYYYY XXXXX
const (
	loopyCoarseX   uint16 = 0x001F
	loopyCoarseY   uint16 = 0x03E0
	loopyNameTable uint16 = 0x0C00
	loopyFineY     uint16 = 0x7000

	// 扫描线结束时从t拷回v的部分
	loopyHorizontal = loopyCoarseX | 0x0400
	loopyVertical   = loopyFineY | loopyCoarseY | 0x0800
)

func bit(value byte, n uint) byte {
	return (value >> n) & 1
}

// 只写的寄存器读出来是最近一次写入的值
func (ppu *PPU) readRegister(address uint16) byte {
	switch address {
	case ppuStatus:
		return ppu.readStatus()
	case ppuOAMData:
		return ppu.readOAMData()
	case ppuData:
		return ppu.readData()
	default:
		return ppu.register
	}
}

func (ppu *PPU) writeRegister(address uint16, value byte) {
	ppu.register = value
	switch address {
	case ppuCtrl:
		ppu.writeControl(value)
	case ppuMask:
		ppu.writeMask(value)
	case ppuOAMAddr:
		ppu.oamAddress = value
	case ppuOAMData:
		ppu.writeOAMData(value)
	case ppuScroll:
		ppu.writeScroll(value)
	case ppuAddr:
		ppu.writeAddress(value)
	case ppuData:
		ppu.writeData(value)
	}
}

// PPUCTRL, https://github.com/dustpg/BlogFM/issues/15
func (ppu *PPU) writeControl(value byte) {
	ppu.flagNameTable = value & 3
	ppu.flagIncrement = bit(value, 2)
	ppu.flagSpriteTable = bit(value, 3)
	ppu.flagBackgroundTable = bit(value, 4)
	ppu.flagSpriteSize = bit(value, 5)
	ppu.flagMasterSlave = bit(value, 6)
	ppu.t = ppu.t&^loopyNameTable | uint16(value&3)<<10

	// VBlank期间打开D7会立即产生NMI
	ppu.nmiOutput = bit(value, 7) == 1
	ppu.nmiChange()
}

// PPUMASK
func (ppu *PPU) writeMask(value byte) {
	ppu.flagDisplayMode = bit(value, 0)
	ppu.flagShowLeftBack = bit(value, 1)
	ppu.flagShowLeftSprite = bit(value, 2)
	ppu.flagShowBack = bit(value, 3)
	ppu.flagShowSprite = bit(value, 4)
}

// PPUSTATUS, 读取会清掉VBlank和双写翻转位
func (ppu *PPU) readStatus() byte {
	status := ppu.register & 0x1F
	status |= ppu.flagSpriteOverflow << 5
	status |= ppu.flagSpriteZeroHit << 6
	if ppu.nmiOccurred {
		status |= 0x80
	}

	ppu.nmiOccurred = false
	ppu.nmiChange()
	ppu.w = 0
	return status
}

// 属性字节的2-4位不存在
func (ppu *PPU) readOAMData() byte {
	value := ppu.oamData[ppu.oamAddress]
	if ppu.oamAddress%4 == 2 {
		value &^= 0x1C
	}
	return value
}

// 写完指针自增, DMA也走这里
func (ppu *PPU) writeOAMData(value byte) {
	ppu.oamData[ppu.oamAddress] = value
	ppu.oamAddress++
}

// $2005和$2006共用w, 返回这次是否是第一次写
func (ppu *PPU) toggle() bool {
	first := ppu.w == 0
	ppu.w ^= 1
	return first
}

// PPUSCROLL, 先X后Y
func (ppu *PPU) writeScroll(value byte) {
	if ppu.toggle() {
		ppu.t = ppu.t&^loopyCoarseX | uint16(value>>3)
		ppu.x = value & 7
		return
	}
	ppu.t &^= loopyFineY | loopyCoarseY
	ppu.t |= uint16(value&7)<<12 | uint16(value>>3)<<5
}

// PPUADDR, 先高6位后低8位, 第二次写完才生效
func (ppu *PPU) writeAddress(value byte) {
	if ppu.toggle() {
		ppu.t = ppu.t&0x00FF | uint16(value&0x3F)<<8
		return
	}
	ppu.t = ppu.t&0xFF00 | uint16(value)
	ppu.v = ppu.t
}

// PPUDATA每次访问后地址加1或32
func (ppu *PPU) incrementAddress() {
	step := uint16(1)
	if ppu.flagIncrement == 1 {
		step = 32
	}
	ppu.v = (ppu.v + step) & 0x7FFF
}

// PPUDATA读有一次延迟, 返回上一次读到的缓冲
// 调色板直接返回, 缓冲里放下面被盖住的名称表
func (ppu *PPU) readData() byte {
	address := ppu.v
	ppu.incrementAddress()

	value := ppu.Read(address)
	if address%0x4000 >= paletteRAM {
		ppu.bufferedData = ppu.Read(address - 0x1000)
		return value
	}
	value, ppu.bufferedData = ppu.bufferedData, value
	return value
}

func (ppu *PPU) writeData(value byte) {
	address := ppu.v
	ppu.incrementAddress()
	ppu.Write(address, value)
}

// $3F10/$3F14/$3F18/$3F1C 和 $3F00/$3F04/$3F08/$3F0C 是同一个字节
func paletteSlot(address uint16) uint16 {
	slot := address % 32
	if slot&0x13 == 0x10 {
		slot &^= 0x10
	}
	return slot
}

func (ppu *PPU) ReadPalette(address uint16) byte {
	return ppu.paletteData[paletteSlot(address)]
}

func (ppu *PPU) WritePalette(address uint16, value byte) {
	ppu.paletteData[paletteSlot(address)] = value
}
