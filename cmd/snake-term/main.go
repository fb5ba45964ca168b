// snake-term 在终端里玩，设置、最高分与服务端共用 config.json
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/hoshinonyaruko/snake-bonus/bonus"
	"github.com/hoshinonyaruko/snake-bonus/config"
	"github.com/hoshinonyaruko/snake-bonus/game"
	"github.com/hoshinonyaruko/snake-bonus/grid"
	"github.com/hoshinonyaruko/snake-bonus/locale"
	"github.com/hoshinonyaruko/snake-bonus/sound"
	"github.com/hoshinonyaruko/snake-bonus/sqlite"
	"github.com/hoshinonyaruko/snake-bonus/structs"
)

// 每格占两列，终端字符大约是两倍高
const cellColumns = 2

var (
	styleDefault = tcell.StyleDefault
	styleHead    = tcell.StyleDefault.Foreground(tcell.ColorLime).Bold(true)
	styleBody    = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleBorder  = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleHUD     = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleTitle   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
)

type glyph struct {
	r     rune
	style tcell.Style
}

var bonusGlyphs = map[string]glyph{
	bonus.Food.String():             {'*', tcell.StyleDefault.Foreground(tcell.ColorRed)},
	bonus.PoisonedFood.String():     {'%', tcell.StyleDefault.Foreground(tcell.ColorPurple)},
	bonus.Bomb.String():             {'X', tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorMaroon)},
	bonus.Speedup.String():          {'>', tcell.StyleDefault.Foreground(tcell.ColorYellow)},
	bonus.Clock.String():            {'c', tcell.StyleDefault.Foreground(tcell.ColorBlue)},
	bonus.DoublePoints.String():     {'2', tcell.StyleDefault.Foreground(tcell.ColorOrange)},
	bonus.InvertedControls.String(): {'?', tcell.StyleDefault.Foreground(tcell.ColorAqua)},
}

var keyDirections = map[tcell.Key]structs.Direction{
	tcell.KeyUp:    structs.Up,
	tcell.KeyDown:  structs.Down,
	tcell.KeyLeft:  structs.Left,
	tcell.KeyRight: structs.Right,
}

var runeDirections = map[rune]structs.Direction{
	'w': structs.Up,
	's': structs.Down,
	'a': structs.Left,
	'd': structs.Right,
}

type app struct {
	screen   tcell.Screen
	cfg      *config.AppConfig
	settings *config.SettingsStore
	store    *sqlite.Store
	player   sound.Player // 第一次需要发声时才初始化
	session  *game.Session
	texts    locale.Texts
	best     int
	showHelp bool
}

func main() {
	// tcell 占用了终端，日志写到文件
	logFile, err := os.OpenFile("snake-term.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err == nil {
		log.SetOutput(logFile)
		defer logFile.Close()
	}

	cfg := config.LoadConfig("./config.json")
	settings, err := config.OpenSettings(cfg.Settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open settings: %v\n", err)
		os.Exit(1)
	}
	done := make(chan struct{})
	defer close(done)
	if err := settings.Watch(done); err != nil {
		log.Printf("settings hot reload disabled: %v", err)
	}

	store, err := sqlite.Open(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open score database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init screen: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	a := &app{screen: screen, cfg: cfg, settings: settings, store: store}
	defer func() {
		if a.player != nil {
			a.player.Close()
		}
	}()

	a.run()
}

// play 设置里关了声音就不播，声卡在第一次播放时才打开
func (a *app) play(c sound.Cue) {
	if !a.settings.Get().SoundEnabled {
		return
	}
	if a.player == nil {
		sp, err := sound.NewSpeaker()
		if err != nil {
			// 没有声卡也能玩
			log.Printf("audio initialization failed: %v", err)
			a.player = sound.Nop{}
			return
		}
		a.player = sp
	}
	a.player.Play(c)
}

// nextLanguage 按顺序切换到下一种语言，当前语言不在列表里时从头开始
func nextLanguage(current string, langs []string) string {
	if len(langs) == 0 {
		return current
	}
	for i, l := range langs {
		if l == current {
			return langs[(i+1)%len(langs)]
		}
	}
	return langs[0]
}

// applySettingKey 结束画面上的设置按键，返回 false 表示不是设置键
func applySettingKey(st config.Settings, r rune, langs []string) (config.Settings, bool) {
	switch r {
	case 'b':
		st.BorderMode = !st.BorderMode
	case 'm':
		st.SoundEnabled = !st.SoundEnabled
	case 'l':
		st.Language = nextLanguage(st.Language, langs)
	default:
		return st, false
	}
	return st, true
}

// editSettings 保存修改后的设置，边框和用户名在下一局生效，语言立即生效
func (a *app) editSettings(r rune) bool {
	st, ok := applySettingKey(a.settings.Get(), r, locale.Languages())
	if !ok {
		return false
	}
	if err := a.settings.Save(st); err != nil {
		log.Printf("failed to save settings: %v", err)
		return true
	}
	a.texts = locale.For(st.Language)
	return true
}

// gridFor 配置的网格按终端大小裁剪，留一行给分数，有边框时再留出边框
func (a *app) gridFor(bordered bool) grid.Grid {
	g := grid.New(a.cfg.Width, a.cfg.Height, a.cfg.CellSize)
	w, h := a.screen.Size()
	if bordered {
		w -= 2 * cellColumns
		h -= 2
	}
	if maxW := w / cellColumns; g.Width > maxW {
		g.Width = maxW
	}
	if maxH := h - 1; g.Height > maxH {
		g.Height = maxH
	}
	return g
}

func (a *app) newSession() {
	st := a.settings.Get()
	a.texts = locale.For(st.Language)
	texts := a.texts
	a.session = game.NewSession(game.Options{
		Grid:     a.gridFor(st.BorderMode),
		Policy:   structs.PolicyFor(st.BorderMode),
		Username: st.Username,
		TickRate: a.cfg.TickRate,
		Sink:     a.store,
		Labels:   func(k bonus.Kind) string { return texts.Effect(k.String()) },
	}, time.Now())
	if best, ok, err := a.store.BestScore(st.Username); err == nil && ok {
		a.best = best
	} else {
		a.best = 0
	}
}

func (a *app) run() {
	a.newSession()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	timer := time.NewTimer(a.session.TickInterval())
	defer timer.Stop()

	for {
		select {
		case ev := <-events:
			if !a.handleEvent(ev) {
				return
			}
		case <-timer.C:
			res, err := a.session.Tick(time.Now())
			if err == nil {
				for _, c := range sound.CuesFor(res) {
					a.play(c)
				}
				if res.Over && res.Score > a.best {
					a.best = res.Score
				}
			} else if !errors.Is(err, game.ErrSessionPaused) && !errors.Is(err, game.ErrSessionOver) {
				log.Printf("tick failed: %v", err)
			}
			timer.Reset(a.session.TickInterval())
		}
		a.draw()
	}
}

// handleEvent 返回 false 时退出程序
func (a *app) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		a.screen.Sync()
		return true
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyCtrlC {
			return false
		}
		now := time.Now()
		if a.showHelp {
			// 帮助打开时任意键关闭
			a.showHelp = false
			return true
		}
		switch a.session.State() {
		case game.Running:
			if d, ok := keyDirections[ev.Key()]; ok {
				a.session.SetDirection(d)
				return true
			}
			if ev.Key() == tcell.KeyEscape || (ev.Key() == tcell.KeyRune && ev.Rune() == 'p') {
				a.session.Pause(now)
				return true
			}
			if ev.Key() == tcell.KeyRune {
				if d, ok := runeDirections[ev.Rune()]; ok {
					a.session.SetDirection(d)
				}
			}
		case game.Paused:
			if ev.Key() == tcell.KeyEscape || (ev.Key() == tcell.KeyRune && ev.Rune() == 'p') {
				a.session.Resume(now)
				return true
			}
			if ev.Key() == tcell.KeyRune && ev.Rune() == 'q' {
				a.session.Quit()
				return false
			}
			if ev.Key() == tcell.KeyRune && ev.Rune() == 'h' {
				a.showHelp = true
				return true
			}
		case game.GameOver, game.Quit:
			if ev.Key() == tcell.KeyRune && ev.Rune() == 'r' {
				a.newSession()
				return true
			}
			if ev.Key() == tcell.KeyEscape || (ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
				return false
			}
			if ev.Key() == tcell.KeyRune && ev.Rune() == 'h' {
				a.showHelp = true
				return true
			}
			if ev.Key() == tcell.KeyRune {
				a.editSettings(ev.Rune())
			}
		}
	}
	return true
}

func (a *app) draw() {
	snap := a.session.Snapshot(time.Now())
	a.screen.Clear()

	if snap.Bordered {
		for x := -1; x <= snap.Width; x++ {
			a.setCell(x, -1, glyph{'#', styleBorder})
			a.setCell(x, snap.Height, glyph{'#', styleBorder})
		}
		for y := 0; y < snap.Height; y++ {
			a.setCell(-1, y, glyph{'#', styleBorder})
			a.setCell(snap.Width, y, glyph{'#', styleBorder})
		}
	}
	for _, b := range snap.Bonuses {
		g, ok := bonusGlyphs[b.Kind]
		if !ok {
			g = glyph{'+', styleDefault}
		}
		a.setCell(b.Pos.X, b.Pos.Y, g)
	}
	for i := len(snap.Snake) - 1; i >= 0; i-- {
		g := glyph{'o', styleBody}
		if i == 0 {
			g = glyph{'@', styleHead}
		}
		a.setCell(snap.Snake[i].Pos.X, snap.Snake[i].Pos.Y, g)
	}

	hud := fmt.Sprintf("%s: %04d  x%d", a.texts.ScoreLabel, snap.Score, snap.Multiplier)
	for _, e := range snap.Effects {
		hud += fmt.Sprintf("  %s %ds", e.Label, e.RemainingSeconds)
	}
	a.drawText(0, a.hudRow(snap), styleHUD, hud)

	switch snap.State {
	case "paused":
		a.drawCentered(snap, -1, styleTitle, a.texts.PauseTitle)
		a.drawCentered(snap, 1, styleDefault, "[p] / [Esc]   [q]   [h]")
	case "game_over", "quit":
		if snap.State == "game_over" {
			a.drawCentered(snap, -2, styleTitle, a.texts.GameOver)
			a.drawCentered(snap, 0, styleDefault, fmt.Sprintf("%s: %d", a.texts.ScoreLabel, snap.Score))
			a.drawCentered(snap, 1, styleDefault, fmt.Sprintf("%s: %d", a.texts.BestScores, a.best))
			a.drawCentered(snap, 2, styleDefault, a.texts.Cause(snap.Cause))
		}
		a.drawCentered(snap, 4, styleDefault, "[r]   [q]   [h]")
		a.drawCentered(snap, 5, styleDefault, settingsLine(a.settings.Get()))
	}
	if a.showHelp {
		a.drawHelp(snap)
	}
	a.screen.Show()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func settingsLine(st config.Settings) string {
	return fmt.Sprintf("[b] border %s  [m] sound %s  [l] %s", onOff(st.BorderMode), onOff(st.SoundEnabled), st.Language)
}

// drawHelp 每种物品一行：图标、名字、说明
func (a *app) drawHelp(snap structs.Snapshot) {
	ox, oy := a.origin(snap.Bordered)
	w, _ := a.screen.Size()
	kinds := bonus.Kinds()
	top := oy + snap.Height/2 - (len(kinds)+2)/2
	if top < 0 {
		top = 0
	}
	for y := top; y < top+len(kinds)+2; y++ {
		for x := ox; x < w; x++ {
			a.screen.SetContent(x, y, ' ', nil, styleDefault)
		}
	}
	a.drawText(ox+1, top, styleTitle, a.texts.HelpTitle)
	for i, k := range kinds {
		g := bonusGlyphs[k.String()]
		row := top + 1 + i
		a.screen.SetContent(ox+1, row, g.r, nil, g.style)
		a.drawText(ox+3, row, styleDefault, fmt.Sprintf("%s: %s", a.texts.ObjectName(k.String()), a.texts.Describe(k.String())))
	}
}

// 有边框时整个画面右下移一格
func (a *app) origin(bordered bool) (int, int) {
	if bordered {
		return cellColumns, 1
	}
	return 0, 0
}

func (a *app) hudRow(snap structs.Snapshot) int {
	_, oy := a.origin(snap.Bordered)
	row := snap.Height + oy
	if snap.Bordered {
		row++
	}
	_, h := a.screen.Size()
	if row >= h {
		row = h - 1
	}
	return row
}

func (a *app) setCell(x, y int, g glyph) {
	ox, oy := a.origin(a.session.Policy() == structs.Bounded)
	col := ox + x*cellColumns
	row := oy + y
	a.screen.SetContent(col, row, g.r, nil, g.style)
	a.screen.SetContent(col+1, row, ' ', nil, g.style)
}

func (a *app) drawText(x, y int, style tcell.Style, s string) {
	for _, r := range s {
		a.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func (a *app) drawCentered(snap structs.Snapshot, dy int, style tcell.Style, s string) {
	ox, oy := a.origin(snap.Bordered)
	x := ox + (snap.Width*cellColumns-len([]rune(s)))/2
	if x < 0 {
		x = 0
	}
	a.drawText(x, oy+snap.Height/2+dy, style, s)
}
