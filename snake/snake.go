// 关于蛇的移动、转向与生长
package snake

import (
	"github.com/hoshinonyaruko/snake-bonus/grid"
	"github.com/hoshinonyaruko/snake-bonus/structs"
)

// MoveResult 一次移动的结果
type MoveResult int

const (
	Continue MoveResult = iota
	Died                // 有边框模式下撞墙
)

// Snake 描述一条贪食蛇：Body[0] 是蛇头，最后一个是蛇尾。
type Snake struct {
	Body     []structs.Position
	Username string // 只用于计分归属，不参与模拟

	current  structs.Direction
	pending  structs.Direction
	inverted bool
	// growth 记录尾部还有几个因生长而复制出来的格子
	growth int
}

// StartBody 开局固定的三格蛇身
func StartBody() []structs.Position {
	return []structs.Position{{X: 5, Y: 5}, {X: 4, Y: 5}, {X: 3, Y: 5}}
}

// New 开局的蛇，朝右
func New(username string) *Snake {
	return NewWithBody(username, StartBody(), structs.Right)
}

// NewWithBody 使用指定蛇身与方向创建蛇，body 至少要有一格
func NewWithBody(username string, body []structs.Position, dir structs.Direction) *Snake {
	if len(body) == 0 {
		body = StartBody()
	}
	b := make([]structs.Position, len(body))
	copy(b, body)
	return &Snake{
		Body:     b,
		Username: username,
		current:  dir,
		pending:  dir,
	}
}

func (s *Snake) Head() structs.Position {
	return s.Body[0]
}

func (s *Snake) Len() int {
	return len(s.Body)
}

// Direction 上一次移动的方向
func (s *Snake) Direction() structs.Direction {
	return s.current
}

// Pending 下一次 Tick 将提交的方向
func (s *Snake) Pending() structs.Direction {
	return s.pending
}

func (s *Snake) Inverted() bool {
	return s.inverted
}

// SetInverted 由效果栈每个tick重新推导，不要在别处修改
func (s *Snake) SetInverted(v bool) {
	s.inverted = v
}

// SetDesiredDirection 处理玩家转向。反转操控时先取反，再拒绝与当前方向相反的输入。
// 返回是否被接受。
func (s *Snake) SetDesiredDirection(d structs.Direction) bool {
	if s.inverted {
		d = d.Opposite()
	}
	if d == s.current.Opposite() {
		return false
	}
	s.pending = d
	return true
}

// Tick 提交待定方向并前进一格。
// Bounded 模式下出界返回 Died，蛇身保持不变。
func (s *Snake) Tick(g grid.Grid, policy structs.BoundaryPolicy) MoveResult {
	s.current = s.pending
	newHead := s.Head().Add(s.current.Delta())

	switch policy {
	case structs.Bounded:
		if !g.Contains(newHead) {
			return Died
		}
	default:
		newHead = g.Wrap(newHead)
	}

	// 新蛇头放在最前，丢掉最后一格。生长时尾部是复制出来的格子，丢掉它正好净增一格
	newBody := make([]structs.Position, 0, len(s.Body))
	newBody = append(newBody, newHead)
	newBody = append(newBody, s.Body[:len(s.Body)-1]...)
	s.Body = newBody
	if s.growth > 0 {
		s.growth--
	}
	return Continue
}

// Grow 复制尾巴，长度立即+1
func (s *Snake) Grow() {
	s.Body = append(s.Body, s.Body[len(s.Body)-1])
	s.growth++
}

// Shrink 去掉尾巴，长度为1时不做处理并返回 false
func (s *Snake) Shrink() bool {
	if len(s.Body) <= 1 {
		return false
	}
	s.Body = s.Body[:len(s.Body)-1]
	if s.growth > 0 {
		s.growth--
	}
	return true
}

// IsSelfColliding 蛇头是否咬到自己。生长复制出来的尾格不算。
func (s *Snake) IsSelfColliding() bool {
	head := s.Head()
	for _, bodyPart := range s.Body[1 : len(s.Body)-s.growth] {
		if bodyPart == head {
			return true
		}
	}
	return false
}
