/*
PPU
逐点生成画面, 寄存器读写见ppu_registers.go
*/
package nes

import (
	"image"
)

const (
	ScreenWidth  = 256
	ScreenHeight = 240

	// 每条扫描线341个点, 每帧262条扫描线, 帧长固定
	DotsPerLine   = 341
	LinesPerFrame = 262

	vblankLine    = 241
	preRenderLine = LinesPerFrame - 1

	maxSpritesPerLine = 8
)

type PPU struct {
	Memory
	Cycle    int
	ScanLine int
	Frame    int

	paletteData [32]byte
	NameTable   [2048]byte
	oamData     [256]byte // 64个精灵, 每个4字节: Y tile 属性 X

	// 前台是最近完成的一帧, 后台是正在画的一帧
	front      *image.RGBA
	back       *image.RGBA
	frameReady bool

	// 最近一次写寄存器的值, 读只写寄存器时返回它
	register byte

	nmi         *Interrupt
	nmiOccurred bool // VBlank
	nmiOutput   bool // $2000 D7
	nmiPrevious bool

	// loopy寄存器
	v uint16 // 当前VRAM地址
	t uint16 // 临时VRAM地址, 也就是左上角的滚动位置
	x byte   // fine X
	w byte   // $2005/$2006 第几次写

	// 背景流水线, 每8个点取一个tile
	nameTableByte      byte
	attributeTableByte byte
	lowTileByte        byte
	highTileByte       byte
	tileData           uint64 // 两个tile, 高32位正在输出

	// 本行的精灵, 下标小的优先
	spriteCount      int
	spritePatterns   [maxSpritesPerLine]uint32
	spritePositions  [maxSpritesPerLine]byte
	spritePriorities [maxSpritesPerLine]byte
	spriteIndexes    [maxSpritesPerLine]byte

	// PPUCTRL
	flagNameTable       byte
	flagIncrement       byte // 0: +1; 1: +32
	flagSpriteTable     byte // 8x16时不用
	flagBackgroundTable byte
	flagSpriteSize      byte // 0: 8x8; 1: 8x16
	flagMasterSlave     byte

	// PPUMASK
	flagDisplayMode    byte // 1 灰度
	flagShowLeftBack   byte
	flagShowLeftSprite byte
	flagShowBack       byte
	flagShowSprite     byte

	// PPUSTATUS
	flagSpriteOverflow byte
	flagSpriteZeroHit  byte

	oamAddress   byte
	bufferedData byte
}

func NewPPU(mapper Mapper, mirror byte, nmi *Interrupt) *PPU {
	ppu := PPU{nmi: nmi}
	ppu.Memory = NewPPUMemory(&ppu, mapper, mirror)
	// 两块缓冲只分配一次, 之后交换
	ppu.front = image.NewRGBA(image.Rect(0, 0, ScreenWidth, ScreenHeight))
	ppu.back = image.NewRGBA(image.Rect(0, 0, ScreenWidth, ScreenHeight))
	ppu.Reset()
	return &ppu
}

func (ppu *PPU) Reset() {
	ppu.writeControl(0)
	ppu.writeMask(0)
	ppu.oamAddress = 0
	ppu.nmiOccurred = false
	ppu.nmiPrevious = false
	ppu.w = 0
	ppu.frameReady = false
	ppu.Cycle = DotsPerLine - 1
	ppu.ScanLine = ScreenHeight
	ppu.Frame = 0
}

func (ppu *PPU) rendering() bool {
	return ppu.flagShowBack != 0 || ppu.flagShowSprite != 0
}

func (ppu *PPU) spriteHeight() int {
	if ppu.flagSpriteSize == 1 {
		return 16
	}
	return 8
}

// Step 前进一个点
//
//	0-239   可见扫描线
//	240     空闲
//	241-260 VBlank, 241的第1个点开始
//	261     预渲染线, 为第0行预取
func (ppu *PPU) Step() {
	ppu.Cycle++
	if ppu.Cycle == DotsPerLine {
		ppu.Cycle = 0
		ppu.ScanLine++
		if ppu.ScanLine == LinesPerFrame {
			ppu.ScanLine = 0
			ppu.Frame++
		}
	}

	line, dot := ppu.ScanLine, ppu.Cycle
	visibleLine := line < ScreenHeight
	preLine := line == preRenderLine

	// 关闭渲染时也输出背景色
	if visibleLine && dot >= 1 && dot <= ScreenWidth {
		ppu.renderPixel()
	}
	if ppu.rendering() {
		ppu.renderStep(visibleLine, preLine)
	}

	switch {
	case line == vblankLine && dot == 1:
		ppu.setVBank()
	case preLine && dot == 1:
		ppu.clearVBank()
		ppu.flagSpriteZeroHit = 0
		ppu.flagSpriteOverflow = 0
	}
}

// 打开渲染时才有的工作: 背景取数, 滚动, 精灵计算
//
//	1-256   取本行的tile, 每8个点一个
//	257     t的水平部分拷回v, 计算下一行的精灵
//	280-304 预渲染线上t的垂直部分拷回v
//	321-336 为下一行预取两个tile
func (ppu *PPU) renderStep(visibleLine, preLine bool) {
	dot := ppu.Cycle
	if visibleLine || preLine {
		if dot >= 1 && dot <= 256 || dot >= 321 && dot <= 336 {
			ppu.tileData <<= 4
			ppu.fetchTile(dot % 8)
			if dot%8 == 0 {
				ppu.incrementX()
			}
		}
		switch {
		case dot == 256:
			ppu.incrementY()
		case dot == 257:
			ppu.copyX()
		case preLine && dot >= 280 && dot <= 304:
			ppu.copyY()
		}
	}

	if dot == 257 {
		if visibleLine {
			ppu.evaluateSprites()
		} else {
			ppu.spriteCount = 0
		}
	}
}

// FrameReady 新的一帧是否可以取走, 读取后清除
func (ppu *PPU) FrameReady() bool {
	ready := ppu.frameReady
	ppu.frameReady = false
	return ready
}

// Buffer 最近完成的一帧, 下下帧开始时会被覆盖, 需要保留请用Snapshot拷贝
func (ppu *PPU) Buffer() *image.RGBA {
	return ppu.front
}

// 背景和精灵合成一个点, 颜色低2位为0表示透明
func (ppu *PPU) renderPixel() {
	x, y := ppu.Cycle-1, ppu.ScanLine

	background := ppu.backgroundPixel()
	i, sprite := ppu.spritePixel()
	if x < 8 {
		if ppu.flagShowLeftBack == 0 {
			background = 0
		}
		if ppu.flagShowLeftSprite == 0 {
			sprite = 0
		}
	}

	backOpaque := background%4 != 0
	spriteOpaque := sprite%4 != 0

	var color byte
	switch {
	case backOpaque && spriteOpaque:
		if ppu.spriteIndexes[i] == 0 && x < 255 {
			ppu.flagSpriteZeroHit = 1
		}
		color = background
		if ppu.spritePriorities[i] == 0 {
			color = sprite | 0x10
		}
	case spriteOpaque:
		color = sprite | 0x10
	case backOpaque:
		color = background
	}

	index := ppu.ReadPalette(uint16(color))
	ppu.back.SetRGBA(x, y, paletteColor(index, ppu.flagDisplayMode == 1))
}

func (ppu *PPU) backgroundPixel() byte {
	if ppu.flagShowBack == 0 {
		return 0
	}
	shift := 32 + (7-uint(ppu.x))*4
	return byte(ppu.tileData>>shift) & 0x0F
}

// 返回本行第几个精灵和它的4位颜色
func (ppu *PPU) spritePixel() (byte, byte) {
	if ppu.flagShowSprite == 0 {
		return 0, 0
	}
	x := ppu.Cycle - 1
	for i := 0; i < ppu.spriteCount; i++ {
		offset := x - int(ppu.spritePositions[i])
		if offset < 0 || offset >= 8 {
			continue
		}
		color := byte(ppu.spritePatterns[i]>>((7-offset)*4)) & 0x0F
		if color%4 != 0 {
			return byte(i), color
		}
	}
	return 0, 0
}

// 按OAM顺序找出落在下一行的精灵, 超过8个置溢出位
func (ppu *PPU) evaluateSprites() {
	height := ppu.spriteHeight()
	count := 0
	for i := 0; i < 64; i++ {
		sprite := ppu.oamData[i*4 : i*4+4]
		row := ppu.ScanLine - int(sprite[0])
		if row < 0 || row >= height {
			continue
		}
		if count == maxSpritesPerLine {
			ppu.flagSpriteOverflow = 1
			break
		}
		ppu.spritePatterns[count] = ppu.fetchSpritePattern(i, row)
		ppu.spritePositions[count] = sprite[3]
		ppu.spritePriorities[count] = bit(sprite[2], 5)
		ppu.spriteIndexes[count] = byte(i)
		count++
	}
	ppu.spriteCount = count
}

// 第i个精灵第row行的8个像素
// 属性: 7 垂直翻转, 6 水平翻转, 5 在背景后面, 0-1 调色板
func (ppu *PPU) fetchSpritePattern(i, row int) uint32 {
	tile := ppu.oamData[i*4+1]
	attribute := ppu.oamData[i*4+2]

	height := ppu.spriteHeight()
	if attribute&0x80 != 0 {
		row = height - 1 - row
	}

	table := ppu.flagSpriteTable
	if height == 16 {
		// 8x16用tile最低位选图样表, 上半是偶数tile, 下半是下一个
		table = tile & 1
		tile &^= 1
		if row >= 8 {
			tile++
			row -= 8
		}
	}

	address := patternAddress(table, tile, uint16(row))
	return packRow(ppu.Read(address), ppu.Read(address+8), (attribute&3)<<2, attribute&0x40 != 0)
}

// 图样表里某个tile某一行的低位平面地址, 高位平面在+8
func patternAddress(table, tile byte, row uint16) uint16 {
	return uint16(table)<<12 | uint16(tile)<<4 | row
}

// 两个位平面加上调色板高2位, 拼成8个4位的像素, 最左边的在最高位
func packRow(low, high, palette byte, mirrored bool) uint32 {
	var pixels uint32
	for i := 0; i < 8; i++ {
		shift := 7 - i
		if mirrored {
			shift = i
		}
		pixel := palette | (low>>shift)&1 | ((high>>shift)&1)<<1
		pixels = pixels<<4 | uint32(pixel)
	}
	return pixels
}

// 8个点一轮: 名称表, 属性表, 低位平面, 高位平面, 然后装进tileData
func (ppu *PPU) fetchTile(phase int) {
	switch phase {
	case 1:
		ppu.nameTableByte = ppu.Read(0x2000 | ppu.v&0x0FFF)
	case 3:
		ppu.attributeTableByte = ppu.fetchAttribute() << 2
	case 5:
		ppu.lowTileByte = ppu.Read(ppu.backgroundAddress())
	case 7:
		ppu.highTileByte = ppu.Read(ppu.backgroundAddress() + 8)
	case 0:
		row := packRow(ppu.lowTileByte, ppu.highTileByte, ppu.attributeTableByte, false)
		ppu.tileData |= uint64(row)
	}
}

// 属性表在每个名称表最后64字节, 一个字节管4x4个tile, 每2x2个tile占2位
func (ppu *PPU) fetchAttribute() byte {
	coarseX := ppu.v & loopyCoarseX
	coarseY := (ppu.v & loopyCoarseY) >> 5
	address := 0x23C0 | ppu.v&loopyNameTable | coarseY>>2<<3 | coarseX>>2
	shift := coarseY&2<<1 | coarseX&2
	return (ppu.Read(address) >> shift) & 3
}

func (ppu *PPU) backgroundAddress() uint16 {
	fineY := (ppu.v & loopyFineY) >> 12
	return patternAddress(ppu.flagBackgroundTable, ppu.nameTableByte, fineY)
}

func (ppu *PPU) copyX() {
	ppu.v = ppu.v&^loopyHorizontal | ppu.t&loopyHorizontal
}

func (ppu *PPU) copyY() {
	ppu.v = ppu.v&^loopyVertical | ppu.t&loopyVertical
}

// coarse X到31之后回到0, 换到水平相邻的名称表
func (ppu *PPU) incrementX() {
	if ppu.v&loopyCoarseX == loopyCoarseX {
		ppu.v &^= loopyCoarseX
		ppu.v ^= 0x0400
		return
	}
	ppu.v++
}

// fine Y满8行进到下一行tile, 第29行之后换到垂直相邻的名称表
// coarse Y是30/31时指向属性表, 回到0但不换表
func (ppu *PPU) incrementY() {
	if ppu.v&loopyFineY != loopyFineY {
		ppu.v += 0x1000
		return
	}
	ppu.v &^= loopyFineY

	coarseY := (ppu.v & loopyCoarseY) >> 5
	switch coarseY {
	case 29:
		coarseY = 0
		ppu.v ^= 0x0800
	case 31:
		coarseY = 0
	default:
		coarseY++
	}
	ppu.v = ppu.v&^loopyCoarseY | coarseY<<5
}

// VBlank开始, 交换缓冲
func (ppu *PPU) setVBank() {
	ppu.front, ppu.back = ppu.back, ppu.front
	ppu.frameReady = true
	ppu.nmiOccurred = true
	ppu.nmiChange()
}

func (ppu *PPU) clearVBank() {
	ppu.nmiOccurred = false
	ppu.nmiChange()
}

// VBlank和$2000 D7同时为1的上升沿拉起中断线
func (ppu *PPU) nmiChange() {
	nmi := ppu.nmiOutput && ppu.nmiOccurred
	if nmi && !ppu.nmiPrevious && ppu.nmi != nil {
		ppu.nmi.Raise()
	}
	ppu.nmiPrevious = nmi
}

/*
PPU地址空间
0x0000-0x1fff 两个4KB图样表, PPUCTRL的D3/D4分别给精灵和背景选表, 每个tile 16字节
0x2000-0x2fff 四个1KB名称表, 按卡带镜像方式落在2KB显存上, 每个名称表最后64字节是属性表
0x3000-0x3eff 0x2000-0x2eff的镜像
0x3f00-0x3f1f 调色板, 前16字节背景, 后16字节精灵, 之后到0x3fff都是镜像

PPU时钟是CPU的三倍
*/
