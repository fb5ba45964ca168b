// 网格几何：屏幕尺寸与格子大小换算成离散坐标
package grid

import (
	"errors"

	"github.com/hoshinonyaruko/snake-bonus/structs"
)

// MaxPlacementAttempts 随机找空格的最大尝试次数，超过即放弃本次放置
const MaxPlacementAttempts = 1000

// ErrNoFreeCell 找不到空格
var ErrNoFreeCell = errors.New("no free cell found")

// Rand 网格需要的随机数接口
type Rand interface {
	Intn(n int) int
}

// Grid 离散网格，Width/Height 以格为单位
type Grid struct {
	Width    int
	Height   int
	CellSize int
}

// New 根据屏幕像素尺寸和格子大小创建网格
func New(screenWidth, screenHeight, cellSize int) Grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	return Grid{
		Width:    screenWidth / cellSize,
		Height:   screenHeight / cellSize,
		CellSize: cellSize,
	}
}

// Cells 格子总数
func (g Grid) Cells() int {
	return g.Width * g.Height
}

// ToCell 像素坐标转换为格子坐标
func (g Grid) ToCell(px, py int) structs.Position {
	return structs.Position{X: floorDiv(px, g.CellSize), Y: floorDiv(py, g.CellSize)}
}

// ToPixel 格子坐标转换为像素坐标（格子左上角）
func (g Grid) ToPixel(p structs.Position) (int, int) {
	return p.X * g.CellSize, p.Y * g.CellSize
}

// Contains 位置是否在地图内
func (g Grid) Contains(p structs.Position) bool {
	return p.X >= 0 && p.X < g.Width && p.Y >= 0 && p.Y < g.Height
}

// Wrap 确保位置不会超出地图边界（环形地图）
func (g Grid) Wrap(p structs.Position) structs.Position {
	return structs.Position{X: mod(p.X, g.Width), Y: mod(p.Y, g.Height)}
}

// Delta 返回从 from 到 to 的最短位移，考虑穿墙
func (g Grid) Delta(from, to structs.Position) structs.Position {
	return structs.Position{
		X: shortest(to.X-from.X, g.Width),
		Y: shortest(to.Y-from.Y, g.Height),
	}
}

// RandomFreeCell 在整个网格上均匀抽样，跳过 excluding 中的格子。
// 调用方需保证还有空格；尝试 MaxPlacementAttempts 次后返回 ErrNoFreeCell。
func (g Grid) RandomFreeCell(rng Rand, excluding map[structs.Position]bool) (structs.Position, error) {
	if g.Width <= 0 || g.Height <= 0 || len(excluding) >= g.Cells() {
		return structs.Position{}, ErrNoFreeCell
	}
	for attempts := 0; attempts < MaxPlacementAttempts; attempts++ {
		pos := structs.Position{
			X: rng.Intn(g.Width),
			Y: rng.Intn(g.Height),
		}
		if !excluding[pos] {
			return pos, nil
		}
	}
	return structs.Position{}, ErrNoFreeCell
}

func mod(a, n int) int {
	if n <= 0 {
		return a
	}
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}

func floorDiv(a, n int) int {
	if n <= 0 {
		return a
	}
	q := a / n
	if a%n != 0 && a < 0 {
		q--
	}
	return q
}

func shortest(d, n int) int {
	if n <= 0 {
		return d
	}
	d = mod(d, n)
	if d > n/2 {
		d -= n
	}
	return d
}
