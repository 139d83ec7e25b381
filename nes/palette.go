package nes

import (
	"image/color"

	fcnes "github.com/fogleman/nes/nes"
)

// Palette NES主调色板, 64种颜色, 调色板内存里存的是这里的下标
// 0x0D-0x0F等几个位置是重复的黑色
var Palette = fcnes.Palette

// 灰度模式下只保留亮度(高2位), 颜色取该亮度的灰色一列
func paletteColor(index byte, greyscale bool) color.RGBA {
	if greyscale {
		index &= 0x30
	}
	return Palette[index%64]
}
