package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hoshinonyaruko/snake-bonus/bonus"
	"github.com/hoshinonyaruko/snake-bonus/config"
	"github.com/hoshinonyaruko/snake-bonus/game"
	"github.com/hoshinonyaruko/snake-bonus/grid"
	"github.com/hoshinonyaruko/snake-bonus/locale"
	"github.com/hoshinonyaruko/snake-bonus/render"
	"github.com/hoshinonyaruko/snake-bonus/sqlite"
	"github.com/hoshinonyaruko/snake-bonus/structs"
)

// ErrNoSession 该用户没有进行中的游戏
var ErrNoSession = errors.New("no session for username")

// Options 服务端参数，由 main 从 config.json 填入
type Options struct {
	Grid      grid.Grid
	BlockSize int // 渲染时每格的像素
	TickRate  float64
	SelfPath  string
	StaticDir string
	Store     *sqlite.Store         // 可以为 nil，此时不记分
	Settings  *config.SettingsStore // 可以为 nil，此时使用默认设置
	Sprites   render.SpriteSource   // 可以为 nil，此时用纯色绘制
	Clock     func() time.Time      // 测试时替换
}

// Hub 按用户名保存进行中的游戏
type Hub struct {
	opts     Options
	mu       sync.Mutex
	sessions map[string]*game.Session
}

// NewHub 创建会话表
func NewHub(opts Options) *Hub {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = opts.Grid.CellSize
	}
	if opts.StaticDir == "" {
		opts.StaticDir = "./static"
	}
	return &Hub{opts: opts, sessions: make(map[string]*game.Session)}
}

// Register 注册全部路由
func (h *Hub) Register(router gin.IRouter) {
	// 开局
	router.GET("/start", h.StartHandler())
	// 处理玩家改变方向
	router.GET("/update-direction", h.UpdateDirection())
	router.GET("/pause", h.PauseHandler())
	router.GET("/resume", h.ResumeHandler())
	router.GET("/quit", h.QuitHandler())
	// 渲染函数 返回静态地址
	router.GET("/render-map", h.RenderMapHandler())
	router.GET("/state", h.StateHandler())
	router.GET("/best-scores", h.BestScoresHandler())
	// 删除地图
	router.GET("/delete-map", h.DeleteMapHandler())
	// 设置与帮助
	router.GET("/settings", h.SettingsHandler())
	router.GET("/update-settings", h.UpdateSettingsHandler())
	router.GET("/help", h.HelpHandler())
}

func (h *Hub) settings() config.Settings {
	if h.opts.Settings == nil {
		return config.DefaultSettings()
	}
	return h.opts.Settings.Get()
}

// withSession 在锁内找到会话并执行 fn
func (h *Hub) withSession(username string, fn func(*game.Session) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[username]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSession, username)
	}
	return fn(s)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNoSession):
		return http.StatusNotFound
	case errors.Is(err, game.ErrSessionOver), errors.Is(err, game.ErrSessionPaused), errors.Is(err, game.ErrNotPaused):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func requireUsername(c *gin.Context) (string, bool) {
	username := c.Query("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required query parameter: username"})
		return "", false
	}
	return username, true
}

// StartHandler 开始新的一局，同名的旧局被替换
func (h *Hub) StartHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		st := h.settings()
		username := c.DefaultQuery("username", st.Username)
		if !config.ValidUsername(username) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username must be 1-9 letters or digits"})
			return
		}
		bordered := st.BorderMode
		if v := c.Query("border"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid border value"})
				return
			}
			bordered = b
		}

		texts := locale.For(st.Language)
		opts := game.Options{
			Grid:     h.opts.Grid,
			Policy:   structs.PolicyFor(bordered),
			Username: username,
			TickRate: h.opts.TickRate,
			Labels:   func(k bonus.Kind) string { return texts.Effect(k.String()) },
		}
		if h.opts.Store != nil {
			opts.Sink = h.opts.Store
		}

		now := h.opts.Clock()
		s := game.NewSession(opts, now)
		h.mu.Lock()
		h.sessions[username] = s
		h.mu.Unlock()

		c.JSON(http.StatusOK, gin.H{"message": "Game started", "snapshot": s.Snapshot(now)})
	}
}

// UpdateDirection 处理玩家改变方向
func (h *Hub) UpdateDirection() gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := requireUsername(c)
		if !ok {
			return
		}
		d, valid := structs.ParseDirection(c.Query("direction"))
		if !valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid direction '%s' provided", c.Query("direction"))})
			return
		}

		var accepted bool
		err := h.withSession(username, func(s *game.Session) error {
			// 先补跑到当前时间，方向作用在下一步
			s.Advance(h.opts.Clock())
			accepted = s.SetDirection(d)
			return nil
		})
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"accepted": accepted})
	}
}

// PauseHandler 暂停
func (h *Hub) PauseHandler() gin.HandlerFunc {
	return h.transition(func(s *game.Session, now time.Time) error {
		s.Advance(now)
		return s.Pause(now)
	})
}

// ResumeHandler 从暂停中恢复
func (h *Hub) ResumeHandler() gin.HandlerFunc {
	return h.transition(func(s *game.Session, now time.Time) error {
		return s.Resume(now)
	})
}

// QuitHandler 放弃本局，不记录分数
func (h *Hub) QuitHandler() gin.HandlerFunc {
	return h.transition(func(s *game.Session, now time.Time) error {
		return s.Quit()
	})
}

func (h *Hub) transition(fn func(*game.Session, time.Time) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := requireUsername(c)
		if !ok {
			return
		}
		var snap structs.Snapshot
		err := h.withSession(username, func(s *game.Session) error {
			now := h.opts.Clock()
			if err := fn(s, now); err != nil {
				return err
			}
			snap = s.Snapshot(now)
			return nil
		})
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"snapshot": snap})
	}
}

// StateHandler 补跑到当前时间并返回快照
func (h *Hub) StateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := requireUsername(c)
		if !ok {
			return
		}
		snap, err := h.advance(username)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"snapshot": snap})
	}
}

func (h *Hub) advance(username string) (structs.Snapshot, error) {
	var snap structs.Snapshot
	err := h.withSession(username, func(s *game.Session) error {
		now := h.opts.Clock()
		s.Advance(now)
		snap = s.Snapshot(now)
		return nil
	})
	return snap, err
}

// RenderMapHandler 补跑、绘图并返回图片地址
func (h *Hub) RenderMapHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := requireUsername(c)
		if !ok {
			return
		}
		snap, err := h.advance(username)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		// 绘图
		texts := locale.For(h.settings().Language)
		fileName := filepath.Join(h.opts.StaticDir, username+".png")
		if err := render.SavePNG(fileName, snap, h.opts.BlockSize, h.opts.Sprites, texts); err != nil {
			log.Printf("render failed for %v: %v", username, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to render game map"})
			return
		}

		imageUrl := fmt.Sprintf("%s/static/%s.png", h.opts.SelfPath, username)
		c.JSON(http.StatusOK, gin.H{"image_url": imageUrl, "snapshot": snap})
	}
}

// BestScoresHandler 排行榜
func (h *Hub) BestScoresHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.opts.Store == nil {
			c.JSON(http.StatusOK, gin.H{"scores": []sqlite.ScoreEntry{}})
			return
		}
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		scores, err := h.opts.Store.TopScores(limit)
		if err != nil {
			log.Printf("failed to read best scores: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to read best scores"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"scores": scores})
	}
}

// DeleteMapHandler 删除会话
func (h *Hub) DeleteMapHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := requireUsername(c)
		if !ok {
			return
		}
		h.mu.Lock()
		_, exists := h.sessions[username]
		delete(h.sessions, username)
		h.mu.Unlock()
		if !exists {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("%v: %s", ErrNoSession, username)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Game map deleted successfully"})
	}
}

// SettingsHandler 返回当前设置
func (h *Hub) SettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"settings": h.settings(), "languages": locale.Languages()})
	}
}

// UpdateSettingsHandler 修改设置并写回文件，只改传入的字段，下一局生效
func (h *Hub) UpdateSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.opts.Settings == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "settings are not persisted on this server"})
			return
		}
		st := h.opts.Settings.Get()

		if v, ok := c.GetQuery("language"); ok {
			if !locale.Has(v) {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported language '%s'", v)})
				return
			}
			st.Language = v
		}
		if v, ok := c.GetQuery("username"); ok {
			if !config.ValidUsername(v) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "username must be 1-9 letters or digits"})
				return
			}
			st.Username = v
		}
		for key, field := range map[string]*bool{"border_mode": &st.BorderMode, "sound_enabled": &st.SoundEnabled} {
			v, ok := c.GetQuery(key)
			if !ok {
				continue
			}
			b, err := strconv.ParseBool(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s value", key)})
				return
			}
			*field = b
		}

		if err := h.opts.Settings.Save(st); err != nil {
			log.Printf("failed to save settings: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to save settings"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"settings": h.opts.Settings.Get()})
	}
}

// HelpEntry 帮助里的一种物品
type HelpEntry struct {
	Kind            string  `json:"kind"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Score           int     `json:"score"`
	MaxCount        int     `json:"max_count"`
	LifetimeSeconds float64 `json:"lifetime_seconds"`
	EffectSeconds   float64 `json:"effect_seconds"`
}

// HelpHandler 物品说明，language 缺省时用设置里的语言
func (h *Hub) HelpHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := c.DefaultQuery("language", h.settings().Language)
		if !locale.Has(lang) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported language '%s'", lang)})
			return
		}
		texts := locale.For(lang)
		entries := make([]HelpEntry, 0, len(bonus.Kinds()))
		for _, k := range bonus.Kinds() {
			rule := bonus.RuleFor(k)
			entries = append(entries, HelpEntry{
				Kind:            k.String(),
				Name:            texts.ObjectName(k.String()),
				Description:     texts.Describe(k.String()),
				Score:           rule.Score,
				MaxCount:        rule.MaxCount,
				LifetimeSeconds: rule.Lifetime.Seconds(),
				EffectSeconds:   rule.EffectDuration.Seconds(),
			})
		}
		c.JSON(http.StatusOK, gin.H{"language": lang, "title": texts.HelpTitle, "objects": entries})
	}
}
