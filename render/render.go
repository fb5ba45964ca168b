// 把每个tick的快照绘制成图片
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"

	"github.com/hoshinonyaruko/snake-bonus/grid"
	"github.com/hoshinonyaruko/snake-bonus/locale"
	"github.com/hoshinonyaruko/snake-bonus/memimg"
	"github.com/hoshinonyaruko/snake-bonus/structs"
)

// SpriteSource 按名字取贴图，memimg.Cache 实现了它
type SpriteSource interface {
	Get(name string) (image.Image, bool)
}

// 贴图缺失时使用的颜色
var (
	backgroundColor = color.RGBA{R: 34, G: 85, B: 34, A: 255}
	gridColor       = color.RGBA{R: 46, G: 102, B: 46, A: 255}
	headColor       = color.RGBA{R: 0, G: 160, B: 0, A: 255}
	bodyColor       = color.RGBA{R: 0, G: 230, B: 0, A: 255}
	borderColor     = color.RGBA{R: 200, G: 40, B: 40, A: 255}

	kindColors = map[string]color.RGBA{
		"Food":             {R: 230, G: 30, B: 30, A: 255},
		"PoisonedFood":     {R: 140, G: 40, B: 180, A: 255},
		"Bomb":             {R: 20, G: 20, B: 20, A: 255},
		"Speedup":          {R: 250, G: 200, B: 0, A: 255},
		"Clock":            {R: 60, G: 140, B: 240, A: 255},
		"DoublePoints":     {R: 255, G: 140, B: 0, A: 255},
		"InvertedControls": {R: 240, G: 240, B: 240, A: 255},
	}
)

// KindColor 物品没有贴图时的颜色
func KindColor(kind string) color.RGBA {
	if c, ok := kindColors[kind]; ok {
		return c
	}
	return color.RGBA{R: 128, G: 128, B: 128, A: 255}
}

// Render 绘制快照，sprites 可以为 nil
func Render(snap structs.Snapshot, blockSize int, sprites SpriteSource, texts locale.Texts) image.Image {
	return draw(snap, blockSize, sprites, texts).Image()
}

// SavePNG 渲染并保存到 fileName。先写同目录下的临时文件再改名，
// 并发请求同一个文件时读者不会读到写了一半的图片
func SavePNG(fileName string, snap structs.Snapshot, blockSize int, sprites SpriteSource, texts locale.Texts) error {
	dc := draw(snap, blockSize, sprites, texts)
	dir := filepath.Dir(fileName)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(fileName)+".*.tmp")
	if err != nil {
		return err
	}
	if err := dc.EncodePNG(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode %s: %w", fileName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), fileName); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func draw(snap structs.Snapshot, blockSize int, sprites SpriteSource, texts locale.Texts) *gg.Context {
	// 渲染用的网格，格子大小是 blockSize 而不是模拟用的 cellsize
	g := grid.Grid{Width: snap.Width, Height: snap.Height, CellSize: blockSize}
	width, height := g.ToPixel(structs.Position{X: snap.Width, Y: snap.Height})
	dc := gg.NewContext(width, height)

	renderBackground(dc, sprites, width, height)
	renderGrid(dc, width, height, blockSize)
	if snap.Bordered {
		dc.SetColor(borderColor)
		dc.SetLineWidth(4)
		dc.DrawRectangle(0, 0, float64(width), float64(height))
		dc.Stroke()
	}

	for _, b := range snap.Bonuses {
		drawCell(dc, g, sprites, b.Kind, b.Pos, KindColor(b.Kind))
	}
	// 倒着画，蛇头最后画在最上层
	for i := len(snap.Snake) - 1; i >= 0; i-- {
		seg := snap.Snake[i]
		fallback := bodyColor
		if i == 0 {
			fallback = headColor
		}
		drawCell(dc, g, sprites, seg.Sprite, seg.Pos, fallback)
	}

	renderHUD(dc, snap, texts, width)
	if snap.State == "game_over" {
		renderGameOver(dc, snap, texts, width, height)
	}
	return dc
}

func drawCell(dc *gg.Context, g grid.Grid, sprites SpriteSource, name string, pos structs.Position, fallback color.Color) {
	x, y := g.ToPixel(pos)
	if sprites != nil {
		if img, found := sprites.Get(name); found {
			dc.DrawImage(img, x, y)
			return
		}
	}
	dc.SetColor(fallback)
	dc.DrawRectangle(float64(x), float64(y), float64(g.CellSize), float64(g.CellSize))
	dc.Fill()
}

func renderBackground(dc *gg.Context, sprites SpriteSource, width, height int) {
	if sprites != nil {
		if bgImg, found := sprites.Get(memimg.Background + "_blur"); found {
			// 缩放并定位背景图像
			bgWidth := float64(bgImg.Bounds().Dx())
			bgHeight := float64(bgImg.Bounds().Dy())
			scale := math.Max(float64(width)/bgWidth, float64(height)/bgHeight)
			dc.Push()
			dc.Scale(scale, scale)
			offsetX := (float64(width) - bgWidth*scale) / 2.0 / scale
			offsetY := (float64(height) - bgHeight*scale) / 2.0 / scale
			dc.DrawImage(bgImg, int(offsetX), int(offsetY))
			dc.Pop()
			return
		}
	}
	dc.SetColor(backgroundColor)
	dc.Clear()
}

func renderGrid(dc *gg.Context, width, height, blockSize int) {
	dc.SetColor(gridColor)
	dc.SetLineWidth(1)
	for x := 0; x <= width; x += blockSize {
		dc.DrawLine(float64(x), 0, float64(x), float64(height))
		dc.Stroke()
	}
	for y := 0; y <= height; y += blockSize {
		dc.DrawLine(0, float64(y), float64(width), float64(y))
		dc.Stroke()
	}
}

func renderHUD(dc *gg.Context, snap structs.Snapshot, texts locale.Texts, width int) {
	dc.SetColor(color.White)
	dc.DrawStringAnchored(fmt.Sprintf("%s: %04d", texts.ScoreLabel, snap.Score), float64(width-10), 14, 1, 0.5)
	for i, e := range snap.Effects {
		line := fmt.Sprintf("%s %ds", e.Label, e.RemainingSeconds)
		dc.DrawStringAnchored(line, float64(width-10), float64(32+i*16), 1, 0.5)
	}
}

func renderGameOver(dc *gg.Context, snap structs.Snapshot, texts locale.Texts, width, height int) {
	dc.SetRGBA(0, 0, 0, 0.6)
	dc.DrawRectangle(0, 0, float64(width), float64(height))
	dc.Fill()

	cx, cy := float64(width)/2, float64(height)/2
	dc.SetColor(color.White)
	dc.DrawStringAnchored(texts.GameOver, cx, cy-20, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%s: %d", texts.ScoreLabel, snap.Score), cx, cy, 0.5, 0.5)
	if snap.Cause != "" {
		dc.DrawStringAnchored(texts.Cause(snap.Cause), cx, cy+20, 0.5, 0.5)
	}
}
