package nes

import (
	"image"

	"golang.org/x/image/draw"
)

// Snapshot 拷贝一帧. Buffer返回的图像会被PPU反复覆盖, 需要长期保留的帧先拷贝
func Snapshot(img *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(img.Bounds())
	copy(dst.Pix, img.Pix)
	return dst
}

// Scale 按整数倍放大一帧, 最近邻采样保持像素边缘
func Scale(img *image.RGBA, ratio int) *image.RGBA {
	if ratio < 1 {
		ratio = 1
	}
	b := img.Bounds()
	target := image.NewRGBA(image.Rect(0, 0, b.Dx()*ratio, b.Dy()*ratio))
	draw.NearestNeighbor.Scale(target, target.Bounds(), img, b, draw.Src, nil)
	return target
}
