package game

import (
	"errors"
	"testing"
	"time"

	"github.com/hoshinonyaruko/snake-bonus/bonus"
	"github.com/hoshinonyaruko/snake-bonus/grid"
	"github.com/hoshinonyaruko/snake-bonus/structs"
)

var start = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type recordedScore struct {
	username string
	score    int
}

// memorySink 记录所有上报的分数
type memorySink struct {
	records []recordedScore
}

func (m *memorySink) RecordScore(username string, score int) error {
	m.records = append(m.records, recordedScore{username, score})
	return nil
}

// newTestSession 开局后清空地图，由各个用例自己摆放物品
func newTestSession(policy structs.BoundaryPolicy, sink ScoreSink) *Session {
	s := NewSession(Options{
		Grid:     grid.New(800, 600, 20),
		Policy:   policy,
		Username: "tester",
		Seed:     7,
		Sink:     sink,
	}, start)
	for _, o := range s.Registry().Objects() {
		s.Registry().Consume(o.Pos)
	}
	return s
}

func TestNewSessionStartsWithFood(t *testing.T) {
	s := NewSession(Options{Grid: grid.New(800, 600, 20), Username: "tester", Seed: 11}, start)
	if s.Registry().Count(bonus.Food) != 1 {
		t.Fatalf("Expected one food at start, got %d", s.Registry().Count(bonus.Food))
	}
	food := s.Registry().Objects()[0]
	for _, p := range s.Snake().Body {
		if p == food.Pos {
			t.Errorf("food placed on the snake at %v", p)
		}
	}
	if !food.SpawnedAt.Equal(start) {
		t.Errorf("Expected food spawned at start, got %v", food.SpawnedAt)
	}
	// 补出来的食物不影响正常的生成节奏
	if !s.Registry().LastSpawn(bonus.Food).Equal(start) {
		t.Errorf("forced food must not move the spawn cadence")
	}
	snap := s.Snapshot(start)
	if len(snap.Bonuses) != 1 || snap.Bonuses[0].Kind != "Food" {
		t.Errorf("Expected the food in the first snapshot, got %+v", snap.Bonuses)
	}
}

func at(ms int) time.Time {
	return start.Add(time.Duration(ms) * time.Millisecond)
}

// 蛇头正前方一格
var ahead = structs.Position{X: 6, Y: 5}

func TestScenarioFoodGrowsAndScores(t *testing.T) {
	s := newTestSession(structs.Wrapped, nil)
	s.Registry().Place(bonus.Food, ahead, start)

	res, err := s.Tick(at(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Over {
		t.Fatalf("unexpected game over: %v", res.Cause)
	}
	if s.Snake().Len() != 4 {
		t.Errorf("expected length 4, got %d", s.Snake().Len())
	}
	if s.Score() != 10 {
		t.Errorf("expected score 10, got %d", s.Score())
	}
	if len(res.Eaten) != 1 || res.Eaten[0].ScoreDelta != 10 {
		t.Errorf("unexpected events %+v", res.Eaten)
	}
	// 食物被吃后必须立即补一个
	if s.Registry().Count(bonus.Food) != 1 {
		t.Errorf("expected a replacement food, got %d", s.Registry().Count(bonus.Food))
	}
}

func TestScenarioPoisonAtLengthOneIsFatal(t *testing.T) {
	sink := &memorySink{}
	s := newTestSession(structs.Wrapped, sink)
	s.Snake().Shrink()
	s.Snake().Shrink()
	s.score = 30
	s.Registry().Place(bonus.PoisonedFood, ahead, start)

	res, _ := s.Tick(at(100))
	if !res.Over || res.Cause != CausePoison {
		t.Fatalf("expected poison death, got %+v", res)
	}
	if s.State() != GameOver {
		t.Errorf("expected game over state, got %s", s.State())
	}
	if s.Score() != 30 {
		t.Errorf("score must be unchanged, got %d", s.Score())
	}
	if len(sink.records) != 1 || sink.records[0] != (recordedScore{"tester", 30}) {
		t.Errorf("unexpected recorded scores %+v", sink.records)
	}
}

func TestPoisonShrinksAndDeducts(t *testing.T) {
	s := newTestSession(structs.Wrapped, nil)
	s.score = 8
	s.Registry().Place(bonus.PoisonedFood, ahead, start)

	res, _ := s.Tick(at(100))
	if res.Over {
		t.Fatalf("score 8 minus 8 is zero, not negative: %+v", res)
	}
	if s.Score() != 0 || s.Snake().Len() != 2 {
		t.Errorf("expected score 0 and length 2, got %d / %d", s.Score(), s.Snake().Len())
	}
}

func TestPoisonBankruptcyClampsAndEnds(t *testing.T) {
	s := newTestSession(structs.Wrapped, nil)
	s.score = 5
	s.Registry().Place(bonus.PoisonedFood, ahead, start)

	res, _ := s.Tick(at(100))
	if !res.Over || res.Cause != CauseBankrupt {
		t.Fatalf("expected bankrupt death, got %+v", res)
	}
	if s.Score() != 0 {
		t.Errorf("score must clamp to 0, got %d", s.Score())
	}
}

func TestScenarioBombEndsGame(t *testing.T) {
	s := newTestSession(structs.Wrapped, nil)
	s.score = 100
	s.Registry().Place(bonus.Bomb, ahead, start)

	res, _ := s.Tick(at(100))
	if !res.Over || res.Cause != CauseBomb {
		t.Fatalf("expected bomb death, got %+v", res)
	}
	if s.Score() != 100 {
		t.Errorf("bomb must not change score, got %d", s.Score())
	}
	if _, err := s.Tick(at(200)); !errors.Is(err, ErrSessionOver) {
		t.Errorf("expected ErrSessionOver after game over, got %v", err)
	}
}

func TestScenarioDoublePoints(t *testing.T) {
	s := newTestSession(structs.Wrapped, nil)
	s.Registry().Place(bonus.DoublePoints, ahead, start)
	s.Registry().Place(bonus.Food, structs.Position{X: 7, Y: 5}, start)

	s.Tick(at(100))
	if s.Score() != 5 || s.Summary().ScoreMultiplier != 2 {
		t.Fatalf("expected score 5 with multiplier 2, got %d / %d", s.Score(), s.Summary().ScoreMultiplier)
	}
	res, _ := s.Tick(at(200))
	if len(res.Eaten) != 1 || res.Eaten[0].ScoreDelta != 20 {
		t.Fatalf("food should award 20, got %+v", res.Eaten)
	}
	if s.Score() != 25 {
		t.Errorf("expected score 25, got %d", s.Score())
	}

	res, err := s.Tick(at(61000))
	if err != nil || res.Over {
		t.Fatalf("unexpected end: %v %+v", err, res)
	}
	if s.Summary().ScoreMultiplier != 1 {
		t.Errorf("multiplier must revert to 1 after 60s, got %d", s.Summary().ScoreMultiplier)
	}
}

func TestSpeedupAndClockChangeTickInterval(t *testing.T) {
	s := newTestSession(structs.Wrapped, nil)
	if s.TickInterval() != 100*time.Millisecond {
		t.Fatalf("base interval = %v", s.TickInterval())
	}
	s.Registry().Place(bonus.Clock, ahead, start)
	s.Tick(at(100))
	if s.TickInterval() != 150*time.Millisecond {
		t.Errorf("slow interval = %v", s.TickInterval())
	}
	s.Registry().Place(bonus.Speedup, structs.Position{X: 7, Y: 5}, start)
	s.Tick(at(250))
	if s.TickInterval() != 50*time.Millisecond {
		t.Errorf("speedup should win, interval = %v", s.TickInterval())
	}
	if s.Score() != 6 {
		t.Errorf("expected 3+3 points, got %d", s.Score())
	}
}

func TestInvertedControlsPickup(t *testing.T) {
	s := newTestSession(structs.Wrapped, nil)
	s.Registry().Place(bonus.InvertedControls, ahead, start)
	s.Tick(at(100))
	if !s.Snake().Inverted() {
		t.Fatal("controls should be inverted")
	}
	if s.Score() != 9 {
		t.Errorf("expected 9 points, got %d", s.Score())
	}
	if !s.SetDirection(structs.Up) || s.Snake().Pending() != structs.Down {
		t.Errorf("up should map to down, pending %s", s.Snake().Pending())
	}
	s.Tick(at(15200))
	if s.Snake().Inverted() {
		t.Error("inversion must clear after 15s")
	}
}

func TestBoundedWallDeath(t *testing.T) {
	sink := &memorySink{}
	s := NewSession(Options{
		Grid:     grid.Grid{Width: 7, Height: 10, CellSize: 20},
		Policy:   structs.Bounded,
		Username: "tester",
		Seed:     3,
		Sink:     sink,
	}, start)
	if res, _ := s.Tick(at(100)); res.Over {
		t.Fatalf("first move stays inside: %+v", res)
	}
	head := s.Snake().Head()
	res, _ := s.Tick(at(200))
	if !res.Over || res.Cause != CauseWall {
		t.Fatalf("expected wall death, got %+v", res)
	}
	if s.Snake().Head() != head {
		t.Errorf("body must not move on wall death")
	}
	if len(sink.records) != 1 {
		t.Errorf("expected exactly one recorded score, got %d", len(sink.records))
	}
}

func TestSelfCollisionEndsGame(t *testing.T) {
	s := newTestSession(structs.Wrapped, nil)
	for i := 0; i < 3; i++ {
		s.Snake().Grow()
	}
	// 长度6，连续三次转向撞到自己
	s.SetDirection(structs.Up)
	s.Tick(at(100))
	s.SetDirection(structs.Left)
	s.Tick(at(200))
	s.SetDirection(structs.Down)
	res, _ := s.Tick(at(300))
	if !res.Over || res.Cause != CauseSelf {
		t.Fatalf("expected self collision, got %+v (body %v)", res, s.Snake().Body)
	}
}

func TestPauseFreezesSimulation(t *testing.T) {
	s := newTestSession(structs.Wrapped, nil)
	s.Registry().Place(bonus.Food, structs.Position{X: 30, Y: 20}, start)

	if err := s.Pause(at(1000)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Tick(at(1100)); !errors.Is(err, ErrSessionPaused) {
		t.Fatalf("expected ErrSessionPaused, got %v", err)
	}
	if s.SetDirection(structs.Up) {
		t.Error("input must be ignored while paused")
	}
	if got := s.Advance(at(100000)); len(got) != 0 {
		t.Errorf("advance ran %d ticks while paused", len(got))
	}
	if err := s.Resume(at(101000)); err != nil {
		t.Fatal(err)
	}
	if got := s.GameTime(at(101000)); !got.Equal(at(1000)) {
		t.Errorf("game time = %v, want %v", got, at(1000))
	}
	// 暂停了100秒，存活60秒的食物不应过期
	s.Tick(at(101100))
	found := false
	for _, o := range s.Registry().Objects() {
		if o.Pos == (structs.Position{X: 30, Y: 20}) {
			found = true
		}
	}
	if !found {
		t.Error("food expired during pause")
	}
}

func TestResumeRequiresPause(t *testing.T) {
	s := newTestSession(structs.Wrapped, nil)
	if err := s.Resume(at(10)); !errors.Is(err, ErrNotPaused) {
		t.Errorf("expected ErrNotPaused, got %v", err)
	}
}

func TestQuitFromPauseRecordsNothing(t *testing.T) {
	sink := &memorySink{}
	s := newTestSession(structs.Wrapped, sink)
	s.Pause(at(100))
	if err := s.Quit(); err != nil {
		t.Fatal(err)
	}
	if s.State() != Quit || len(sink.records) != 0 {
		t.Errorf("unexpected state %s / records %v", s.State(), sink.records)
	}
	if err := s.Pause(at(200)); !errors.Is(err, ErrSessionOver) {
		t.Errorf("expected ErrSessionOver, got %v", err)
	}
}

func TestAdvanceRunsElapsedTicks(t *testing.T) {
	s := newTestSession(structs.Wrapped, nil)
	results := s.Advance(at(1000))
	if len(results) != 10 {
		t.Fatalf("expected 10 ticks, got %d", len(results))
	}
	if s.Ticks() != 10 {
		t.Errorf("tick counter = %d", s.Ticks())
	}
	if got := s.Advance(at(1050)); len(got) != 0 {
		t.Errorf("no deadline passed, got %d ticks", len(got))
	}
}

func TestInvariantsOverLongRun(t *testing.T) {
	s := newTestSession(structs.Wrapped, nil)
	dirs := []structs.Direction{structs.Up, structs.Right, structs.Down, structs.Right}
	now := start
	for i := 0; i < 3000 && s.State() == Running; i++ {
		if i%7 == 0 {
			s.SetDirection(dirs[(i/7)%len(dirs)])
		}
		before := s.Snake().Len()
		now = now.Add(100 * time.Millisecond)
		res, err := s.Tick(now)
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		for _, k := range bonus.Kinds() {
			if s.Registry().Count(k) > bonus.RuleFor(k).MaxCount {
				t.Fatalf("tick %d: %s over max", i, k)
			}
		}
		if m := s.Summary().ScoreMultiplier; m != 1 && m != 2 {
			t.Fatalf("tick %d: multiplier %d", i, m)
		}
		if res.Over {
			break
		}
		want := before
		for _, e := range res.Eaten {
			switch e.Kind {
			case bonus.Food:
				want++
			case bonus.PoisonedFood:
				want--
			}
		}
		if s.Snake().Len() != want {
			t.Fatalf("tick %d: length %d, want %d", i, s.Snake().Len(), want)
		}
		h := s.Snake().Head()
		if !s.Grid().Contains(h) {
			t.Fatalf("tick %d: head %v outside grid", i, h)
		}
		if s.Score() < 0 {
			t.Fatalf("tick %d: negative score", i)
		}
	}
}

func TestSnapshot(t *testing.T) {
	s := newTestSession(structs.Bounded, nil)
	s.Registry().Place(bonus.DoublePoints, ahead, start)
	s.Tick(at(100))
	snap := s.Snapshot(at(10100))
	if snap.Username != "tester" || !snap.Bordered || snap.State != "running" {
		t.Errorf("unexpected header %+v", snap)
	}
	if len(snap.Snake) != 3 || snap.Snake[0].Sprite != "head_right" {
		t.Errorf("unexpected snake %+v", snap.Snake)
	}
	if len(snap.Effects) != 1 || snap.Effects[0].Kind != "DoublePoints" || snap.Effects[0].RemainingSeconds != 50 {
		t.Errorf("unexpected effects %+v", snap.Effects)
	}
	if snap.Multiplier != 2 {
		t.Errorf("multiplier = %d", snap.Multiplier)
	}
	if len(snap.Bonuses) == 0 {
		t.Error("expected at least the forced food")
	}
}
