// 游戏事件的合成提示音
package sound

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"github.com/hoshinonyaruko/snake-bonus/bonus"
	"github.com/hoshinonyaruko/snake-bonus/game"
)

// SampleRate 所有提示音的采样率
const SampleRate = beep.SampleRate(44100)

// Cue 一种提示音
type Cue int

const (
	Eat Cue = iota
	Poison
	PowerUp
	Death
)

func (c Cue) String() string {
	switch c {
	case Eat:
		return "eat"
	case Poison:
		return "poison"
	case PowerUp:
		return "powerup"
	case Death:
		return "death"
	}
	return fmt.Sprintf("cue(%d)", int(c))
}

type note struct {
	freq     float64
	duration time.Duration
}

// 每种提示音的音符序列
var melodies = map[Cue][]note{
	Eat:     {{660, 70 * time.Millisecond}},
	Poison:  {{220, 110 * time.Millisecond}, {165, 140 * time.Millisecond}},
	PowerUp: {{523.25, 60 * time.Millisecond}, {659.25, 60 * time.Millisecond}, {783.99, 90 * time.Millisecond}},
	Death:   {{330, 150 * time.Millisecond}, {220, 150 * time.Millisecond}, {110, 300 * time.Millisecond}},
}

// Duration 提示音总时长
func Duration(c Cue) time.Duration {
	var total time.Duration
	for _, n := range melodies[c] {
		total += n.duration
	}
	return total
}

// Stream 生成提示音的有限长度流
func Stream(c Cue) (beep.Streamer, error) {
	notes, ok := melodies[c]
	if !ok {
		return nil, fmt.Errorf("unknown cue %v", c)
	}
	parts := make([]beep.Streamer, 0, len(notes))
	for _, n := range notes {
		tone, err := generators.SineTone(SampleRate, n.freq)
		if err != nil {
			return nil, fmt.Errorf("cue %v: %w", c, err)
		}
		total := SampleRate.N(n.duration)
		shaped := newEnvelope(beep.Take(total, tone), total, SampleRate.N(5*time.Millisecond), total/3)
		parts = append(parts, shaped)
	}
	return &effects.Volume{Streamer: beep.Seq(parts...), Base: 2, Volume: -1.5}, nil
}

// CuesFor 把一个tick的结果换成要播放的提示音，同一tick内不重复
func CuesFor(res game.TickResult) []Cue {
	var cues []Cue
	seen := make(map[Cue]bool)
	add := func(c Cue) {
		if !seen[c] {
			seen[c] = true
			cues = append(cues, c)
		}
	}
	for _, e := range res.Eaten {
		switch e.Kind {
		case bonus.Food:
			add(Eat)
		case bonus.PoisonedFood:
			add(Poison)
		case bonus.Speedup, bonus.Clock, bonus.DoublePoints, bonus.InvertedControls:
			add(PowerUp)
		}
	}
	if res.Over {
		add(Death)
	}
	return cues
}

// Player 播放提示音
type Player interface {
	Play(c Cue)
	Close()
}

// Nop 关闭声音时使用
type Nop struct{}

func (Nop) Play(Cue) {}
func (Nop) Close()   {}

// Speaker 通过系统音频输出播放
type Speaker struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
}

// NewSpeaker 初始化音频设备，失败时调用方应退回 Nop
func NewSpeaker() (*Speaker, error) {
	if err := speaker.Init(SampleRate, SampleRate.N(time.Second/10)); err != nil {
		return nil, err
	}
	sp := &Speaker{mixer: &beep.Mixer{}, initialized: true}
	speaker.Play(sp.mixer)
	return sp, nil
}

// Play 把提示音加入混音器，不阻塞
func (sp *Speaker) Play(c Cue) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if !sp.initialized {
		return
	}
	s, err := Stream(c)
	if err != nil {
		return
	}
	speaker.Lock()
	sp.mixer.Add(s)
	speaker.Unlock()
}

// Close 清空混音器
func (sp *Speaker) Close() {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if !sp.initialized {
		return
	}
	speaker.Lock()
	sp.mixer.Clear()
	speaker.Unlock()
	sp.initialized = false
}

// envelope 起音和释音的线性音量包络
type envelope struct {
	streamer beep.Streamer
	position int
	attack   int
	release  int
	total    int
}

func newEnvelope(s beep.Streamer, total, attack, release int) beep.Streamer {
	return &envelope{streamer: s, attack: attack, release: release, total: total}
}

func (e *envelope) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = e.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		vol := 1.0
		if e.attack > 0 && e.position < e.attack {
			vol = float64(e.position) / float64(e.attack)
		}
		if releaseStart := e.total - e.release; e.release > 0 && e.position >= releaseStart {
			vol = float64(e.total-e.position) / float64(e.release)
		}
		samples[i][0] *= vol
		samples[i][1] *= vol
		e.position++
	}
	return n, ok
}

func (e *envelope) Err() error { return e.streamer.Err() }
