// 效果栈：吃到奖励物品后的限时效果，每个tick推导派生状态
package effects

import (
	"time"

	"github.com/hoshinonyaruko/snake-bonus/bonus"
)

const (
	SpeedupRate = 2.0
	SlowRate    = 1 / 1.5
)

// Active 一个生效中的效果
type Active struct {
	Kind      bonus.Kind
	ExpiresAt time.Time
}

// Remaining 剩余时间，不会为负
func (a Active) Remaining(now time.Time) time.Duration {
	if left := a.ExpiresAt.Sub(now); left > 0 {
		return left
	}
	return 0
}

// Summary 由当前效果集合推导出的派生状态，每个tick整体重算
type Summary struct {
	TickRateMultiplier float64
	ScoreMultiplier    int
	Inverted           bool
}

// Neutral 空效果栈的状态
var Neutral = Summary{TickRateMultiplier: 1, ScoreMultiplier: 1}

// Stack 效果集合
type Stack struct {
	active []Active
}

// Add 追加一个效果，到期时间为 now+d
func (s *Stack) Add(k bonus.Kind, d time.Duration, now time.Time) {
	s.active = append(s.active, Active{Kind: k, ExpiresAt: now.Add(d)})
}

// Active 按加入顺序返回效果的副本
func (s *Stack) Active() []Active {
	out := make([]Active, len(s.active))
	copy(out, s.active)
	return out
}

// Tick 丢弃已到期的效果并重新计算 Summary。
// 加速与减速同时存在时加速优先。
func (s *Stack) Tick(now time.Time) Summary {
	kept := s.active[:0]
	for _, a := range s.active {
		if now.Before(a.ExpiresAt) {
			kept = append(kept, a)
		}
	}
	s.active = kept
	return s.Summary()
}

// Summary 只读计算，不丢弃过期条目
func (s *Stack) Summary() Summary {
	var speed, slow, double, inverted bool
	for _, a := range s.active {
		switch a.Kind {
		case bonus.Speedup:
			speed = true
		case bonus.Clock:
			slow = true
		case bonus.DoublePoints:
			double = true
		case bonus.InvertedControls:
			inverted = true
		}
	}

	sum := Neutral
	switch {
	case speed:
		sum.TickRateMultiplier = SpeedupRate
	case slow:
		sum.TickRateMultiplier = SlowRate
	}
	if double {
		sum.ScoreMultiplier = 2
	}
	sum.Inverted = inverted
	return sum
}
