package snake

import (
	"github.com/hoshinonyaruko/snake-bonus/grid"
	"github.com/hoshinonyaruko/snake-bonus/structs"
)

// 贴图名，与贴图目录中的文件名一致
const (
	BodyHorizontal  = "body_horizontal"
	BodyVertical    = "body_vertical"
	BodyTopLeft     = "body_topleft"
	BodyTopRight    = "body_topright"
	BodyBottomLeft  = "body_bottomleft"
	BodyBottomRight = "body_bottomright"
)

// HeadSprite 蛇头贴图名，例如 head_up
func HeadSprite(d structs.Direction) string {
	return "head_" + string(d)
}

// TailSprite 蛇尾贴图名，方向为尾尖指向
func TailSprite(d structs.Direction) string {
	return "tail_" + string(d)
}

// Orientations 根据相邻格子的位移推导每一格的贴图，纯函数。
// 位移按穿墙的最短路径计算；生长时复制出来的重叠格沿用同一个尾巴贴图。
// heading 只在蛇长为1时用来决定蛇头朝向。
func Orientations(body []structs.Position, g grid.Grid, heading structs.Direction) []string {
	sprites := make([]string, len(body))
	for i := range body {
		prev := prevDistinct(body, i)
		next := nextDistinct(body, i)
		switch {
		case i == 0:
			if next < 0 {
				sprites[i] = HeadSprite(heading)
				continue
			}
			// 身体在蛇头的哪边，蛇头就朝反方向
			sprites[i] = HeadSprite(toDirection(g.Delta(body[i], body[next])).Opposite())
		case next < 0:
			if prev < 0 {
				sprites[i] = TailSprite(heading.Opposite())
				continue
			}
			sprites[i] = TailSprite(toDirection(g.Delta(body[i], body[prev])).Opposite())
		default:
			if prev < 0 {
				// 与蛇头重叠的复制格，当作蛇尾
				sprites[i] = TailSprite(toDirection(g.Delta(body[i], body[next])))
				continue
			}
			sprites[i] = bodySprite(g.Delta(body[i], body[next]), g.Delta(body[i], body[prev]))
		}
	}
	return sprites
}

// Segments 每一格及其贴图
func (s *Snake) Segments(g grid.Grid) []structs.Segment {
	sprites := Orientations(s.Body, g, s.current)
	out := make([]structs.Segment, len(s.Body))
	for i, pos := range s.Body {
		out[i] = structs.Segment{Pos: pos, Sprite: sprites[i]}
	}
	return out
}

func bodySprite(toTail, toHead structs.Position) string {
	if toTail.X == toHead.X {
		return BodyVertical
	}
	if toTail.Y == toHead.Y {
		return BodyHorizontal
	}
	left := toTail.X < 0 || toHead.X < 0
	top := toTail.Y < 0 || toHead.Y < 0
	switch {
	case left && top:
		return BodyTopLeft
	case left:
		return BodyBottomLeft
	case top:
		return BodyTopRight
	default:
		return BodyBottomRight
	}
}

func toDirection(d structs.Position) structs.Direction {
	switch {
	case d.X > 0:
		return structs.Right
	case d.X < 0:
		return structs.Left
	case d.Y > 0:
		return structs.Down
	default:
		return structs.Up
	}
}

func prevDistinct(body []structs.Position, i int) int {
	for j := i - 1; j >= 0; j-- {
		if body[j] != body[i] {
			return j
		}
	}
	return -1
}

func nextDistinct(body []structs.Position, i int) int {
	for j := i + 1; j < len(body); j++ {
		if body[j] != body[i] {
			return j
		}
	}
	return -1
}
