package structs

// Position 描述游戏地图上的一个格子坐标（以格为单位，不是像素）。
type Position struct {
	X int `json:"x"` // X坐标
	Y int `json:"y"` // Y坐标
}

// Add 位移后的位置
func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// Direction 蛇的移动方向
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// ParseDirection 解析外部传入的方向字符串
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case Up, Down, Left, Right:
		return Direction(s), true
	}
	return "", false
}

// Opposite 相反方向
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	}
	return d
}

// Delta 方向对应的单格位移
func (d Direction) Delta() Position {
	switch d {
	case Up:
		return Position{X: 0, Y: -1}
	case Down:
		return Position{X: 0, Y: 1}
	case Left:
		return Position{X: -1, Y: 0}
	case Right:
		return Position{X: 1, Y: 0}
	}
	return Position{}
}

// BoundaryPolicy 边界策略：穿墙或撞墙
type BoundaryPolicy int

const (
	Wrapped BoundaryPolicy = iota // 穿墙，坐标取模
	Bounded                       // 有边框，出界即死亡
)

// PolicyFor 由 border_mode 设置得到边界策略
func PolicyFor(borderMode bool) BoundaryPolicy {
	if borderMode {
		return Bounded
	}
	return Wrapped
}

// Segment 渲染用的蛇身格子，Sprite 为朝向对应的贴图名
type Segment struct {
	Pos    Position `json:"pos"`
	Sprite string   `json:"sprite"`
}

// BonusView 渲染用的奖励物品
type BonusView struct {
	Kind             string   `json:"kind"`
	Pos              Position `json:"pos"`
	RemainingSeconds int      `json:"remaining_seconds"`
}

// EffectView 当前生效中的效果
type EffectView struct {
	Kind             string `json:"kind"`
	Label            string `json:"label"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

// Snapshot 每个tick交给渲染层的只读快照
type Snapshot struct {
	Username   string       `json:"username"`
	Width      int          `json:"width"`  // 地图宽度（格）
	Height     int          `json:"height"` // 地图高度（格）
	Snake      []Segment    `json:"snake"`
	Bonuses    []BonusView  `json:"bonuses"`
	Effects    []EffectView `json:"effects"`
	Score      int          `json:"score"`
	Multiplier int          `json:"multiplier"`
	State      string       `json:"state"`
	Cause      string       `json:"cause,omitempty"` // 死亡原因，仅在游戏结束时有值
	Bordered   bool         `json:"bordered"`
}
