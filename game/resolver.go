package game

import (
	"time"

	"github.com/hoshinonyaruko/snake-bonus/bonus"
	"github.com/hoshinonyaruko/snake-bonus/effects"
	"github.com/hoshinonyaruko/snake-bonus/structs"
)

// Cause 游戏结束的原因
type Cause string

const (
	CauseNone     Cause = ""
	CauseWall     Cause = "wall"
	CauseSelf     Cause = "self"
	CauseBomb     Cause = "bomb"
	CausePoison   Cause = "poison"   // 只剩一格时吃到毒食物
	CauseBankrupt Cause = "bankrupt" // 毒食物扣分后分数为负
)

// Event 一次吃到物品的记录
type Event struct {
	Kind       bonus.Kind
	Pos        structs.Position
	ScoreDelta int
}

// resolve 处理蛇头与物品的碰撞以及自身碰撞。
// 同一格的多个物品按种类顺序逐个处理，全部被吃掉；出现致命结果后其余物品只移除不计分。
func (s *Session) resolve(now time.Time, sum effects.Summary) ([]Event, Cause) {
	var events []Event
	cause := CauseNone

	for _, o := range s.registry.Consume(s.snake.Head()) {
		if cause != CauseNone {
			continue
		}
		rule := bonus.RuleFor(o.Kind)
		delta := 0

		switch o.Kind {
		case bonus.Food:
			s.snake.Grow()
			delta = rule.Score * sum.ScoreMultiplier
		case bonus.PoisonedFood:
			if !s.snake.Shrink() {
				cause = CausePoison
				break
			}
			if s.score+rule.Score < 0 {
				delta = -s.score
				cause = CauseBankrupt
				break
			}
			delta = rule.Score
		case bonus.Bomb:
			cause = CauseBomb
		case bonus.Speedup, bonus.Clock, bonus.DoublePoints, bonus.InvertedControls:
			s.effects.Add(o.Kind, rule.EffectDuration, now)
			delta = rule.Score * sum.ScoreMultiplier
		}

		s.score += delta
		events = append(events, Event{Kind: o.Kind, Pos: o.Pos, ScoreDelta: delta})
	}

	if cause == CauseNone && s.snake.IsSelfColliding() {
		cause = CauseSelf
	}
	return events, cause
}
