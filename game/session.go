// 一局游戏：把蛇、物品表、效果栈串进tick循环
package game

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"golang.org/x/exp/rand"

	"github.com/hoshinonyaruko/snake-bonus/bonus"
	"github.com/hoshinonyaruko/snake-bonus/effects"
	"github.com/hoshinonyaruko/snake-bonus/grid"
	"github.com/hoshinonyaruko/snake-bonus/snake"
	"github.com/hoshinonyaruko/snake-bonus/structs"
)

// DefaultTickRate 基础速度，每秒移动10格
const DefaultTickRate = 10

// maxCatchUp 单次 Advance 最多补跑的tick数
const maxCatchUp = 600

var (
	ErrSessionOver   = errors.New("session is over")
	ErrSessionPaused = errors.New("session is paused")
	ErrNotPaused     = errors.New("session is not paused")
)

// State 会话状态
type State int

const (
	Running State = iota
	Paused
	GameOver
	Quit // 从暂停菜单返回主菜单，不记分
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case GameOver:
		return "game_over"
	case Quit:
		return "quit"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal 结束状态，不再接受tick
func (s State) Terminal() bool {
	return s == GameOver || s == Quit
}

// ScoreSink 游戏结束时接收最终分数
type ScoreSink interface {
	RecordScore(username string, score int) error
}

// Options 开局参数，来自设置与应用配置
type Options struct {
	Grid     grid.Grid
	Policy   structs.BoundaryPolicy
	Username string
	TickRate float64 // 每秒tick数，0 使用 DefaultTickRate
	Seed     uint64  // 0 时用开局时间做种子
	Sink     ScoreSink
	Labels   func(bonus.Kind) string // 效果的显示文字，nil 时使用种类名
}

// TickResult 一个tick的结果。游戏结束不是错误，而是 Over 为 true。
type TickResult struct {
	Over    bool
	Cause   Cause
	Score   int
	Eaten   []Event
	Spawned []bonus.Object
	Expired []bonus.Object
}

// Session 一局完整的游戏
type Session struct {
	opts     Options
	snake    *snake.Snake
	registry *bonus.Registry
	effects  effects.Stack
	summary  effects.Summary
	rng      *rand.Rand

	score int
	state State
	cause Cause
	ticks uint64

	startedAt   time.Time
	nextTick    time.Time
	pausedAt    time.Time
	pausedTotal time.Duration
}

// NewSession 开始一局新游戏
func NewSession(opts Options, now time.Time) *Session {
	if opts.TickRate <= 0 {
		opts.TickRate = DefaultTickRate
	}
	if opts.Labels == nil {
		opts.Labels = bonus.Kind.String
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(now.UnixNano())
	}
	rng := rand.New(rand.NewSource(seed))

	s := &Session{
		opts:      opts,
		snake:     snake.New(opts.Username),
		registry:  bonus.NewRegistry(opts.Grid, rng, now),
		summary:   effects.Neutral,
		rng:       rng,
		state:     Running,
		startedAt: now,
	}
	s.nextTick = now.Add(s.TickInterval())
	// 开局就放一个食物，第一帧不会是空地图
	s.registry.EnsureFood(now, s.bodySet())
	log.Printf("session started, username[%v] grid[%dx%d] bordered[%v]", opts.Username, opts.Grid.Width, opts.Grid.Height, opts.Policy == structs.Bounded)
	return s
}

func (s *Session) State() State                   { return s.state }
func (s *Session) Score() int                     { return s.score }
func (s *Session) Cause() Cause                   { return s.cause }
func (s *Session) Ticks() uint64                  { return s.ticks }
func (s *Session) Snake() *snake.Snake            { return s.snake }
func (s *Session) Registry() *bonus.Registry      { return s.registry }
func (s *Session) Summary() effects.Summary       { return s.summary }
func (s *Session) Username() string               { return s.opts.Username }
func (s *Session) Grid() grid.Grid                { return s.opts.Grid }
func (s *Session) Policy() structs.BoundaryPolicy { return s.opts.Policy }

// GameTime 把墙钟时间换算成游戏时间，暂停的时长不计入
func (s *Session) GameTime(now time.Time) time.Time {
	paused := s.pausedTotal
	if s.state == Paused {
		paused += now.Sub(s.pausedAt)
	}
	return now.Add(-paused)
}

// TickInterval 当前两次移动之间的间隔，由效果栈决定
func (s *Session) TickInterval() time.Duration {
	rate := s.opts.TickRate * s.summary.TickRateMultiplier
	return time.Duration(math.Round(float64(time.Second) / rate))
}

// SetDirection 转发玩家输入，只在运行中生效
func (s *Session) SetDirection(d structs.Direction) bool {
	if s.state != Running {
		return false
	}
	return s.snake.SetDesiredDirection(d)
}

// Tick 推进一步
func (s *Session) Tick(now time.Time) (TickResult, error) {
	switch s.state {
	case Paused:
		return TickResult{}, ErrSessionPaused
	case GameOver, Quit:
		return TickResult{}, ErrSessionOver
	}

	t := s.GameTime(now)
	s.ticks++
	var res TickResult

	if s.snake.Tick(s.opts.Grid, s.opts.Policy) == snake.Died {
		return s.finish(res, CauseWall), nil
	}

	res.Expired = s.registry.Expire(t)
	res.Spawned = s.registry.Spawn(t, s.bodySet())

	// 先丢掉已过期的效果，再用当前倍率计分
	sum := s.effects.Tick(t)
	events, cause := s.resolve(t, sum)
	res.Eaten = events
	if cause != CauseNone {
		return s.finish(res, cause), nil
	}

	if o, ok := s.registry.EnsureFood(t, s.bodySet()); ok {
		res.Spawned = append(res.Spawned, o)
	}

	s.summary = s.effects.Tick(t)
	s.snake.SetInverted(s.summary.Inverted)
	res.Score = s.score
	return res, nil
}

// Advance 补跑所有截止时间已到的tick，每个tick之后按新的速度排下一个。
// 适合请求驱动的客户端（HTTP），终端客户端直接用 Tick。
func (s *Session) Advance(now time.Time) []TickResult {
	var results []TickResult
	for i := 0; s.state == Running && !now.Before(s.nextTick); i++ {
		if i >= maxCatchUp {
			log.Printf("advance fell behind by %v, skipping ahead, username[%v]", now.Sub(s.nextTick), s.opts.Username)
			s.nextTick = now.Add(s.TickInterval())
			break
		}
		res, err := s.Tick(s.nextTick)
		if err != nil {
			break
		}
		results = append(results, res)
		s.nextTick = s.nextTick.Add(s.TickInterval())
	}
	return results
}

// Pause 只能从运行中进入暂停
func (s *Session) Pause(now time.Time) error {
	switch s.state {
	case Paused:
		return nil
	case GameOver, Quit:
		return ErrSessionOver
	}
	s.state = Paused
	s.pausedAt = now
	return nil
}

// Resume 恢复运行，暂停的时长从游戏时间中扣除
func (s *Session) Resume(now time.Time) error {
	switch s.state {
	case Running:
		return ErrNotPaused
	case GameOver, Quit:
		return ErrSessionOver
	}
	d := now.Sub(s.pausedAt)
	s.pausedTotal += d
	s.nextTick = s.nextTick.Add(d)
	s.state = Running
	return nil
}

// Quit 放弃本局返回菜单，不记录分数
func (s *Session) Quit() error {
	if s.state.Terminal() {
		return ErrSessionOver
	}
	s.state = Quit
	log.Printf("session quit, username[%v] score[%v]", s.opts.Username, s.score)
	return nil
}

func (s *Session) finish(res TickResult, cause Cause) TickResult {
	s.state = GameOver
	s.cause = cause
	res.Over = true
	res.Cause = cause
	res.Score = s.score
	log.Printf("game over, username[%v] score[%v] cause[%v] ticks[%v]", s.opts.Username, s.score, cause, s.ticks)

	if s.opts.Sink != nil {
		if err := s.opts.Sink.RecordScore(s.opts.Username, s.score); err != nil {
			log.Printf("failed to record score for %v: %v", s.opts.Username, err)
		}
	}
	return res
}

func (s *Session) bodySet() map[structs.Position]bool {
	set := make(map[structs.Position]bool, s.snake.Len())
	for _, p := range s.snake.Body {
		set[p] = true
	}
	return set
}

// Snapshot 生成渲染快照
func (s *Session) Snapshot(now time.Time) structs.Snapshot {
	t := s.GameTime(now)
	snap := structs.Snapshot{
		Username:   s.opts.Username,
		Width:      s.opts.Grid.Width,
		Height:     s.opts.Grid.Height,
		Snake:      s.snake.Segments(s.opts.Grid),
		Score:      s.score,
		Multiplier: s.summary.ScoreMultiplier,
		State:      s.state.String(),
		Cause:      string(s.cause),
		Bordered:   s.opts.Policy == structs.Bounded,
	}
	for _, o := range s.registry.Objects() {
		snap.Bonuses = append(snap.Bonuses, structs.BonusView{
			Kind:             o.Kind.String(),
			Pos:              o.Pos,
			RemainingSeconds: ceilSeconds(o.Remaining(t)),
		})
	}
	for _, a := range s.effects.Active() {
		if !t.Before(a.ExpiresAt) {
			continue
		}
		snap.Effects = append(snap.Effects, structs.EffectView{
			Kind:             a.Kind.String(),
			Label:            s.opts.Labels(a.Kind),
			RemainingSeconds: ceilSeconds(a.Remaining(t)),
		})
	}
	return snap
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
