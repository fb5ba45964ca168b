package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hoshinonyaruko/snake-bonus/config"
	"github.com/hoshinonyaruko/snake-bonus/grid"
	"github.com/hoshinonyaruko/snake-bonus/sqlite"
	"github.com/hoshinonyaruko/snake-bonus/structs"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

type snapshotResponse struct {
	Snapshot structs.Snapshot `json:"snapshot"`
	ImageURL string           `json:"image_url"`
	Accepted bool             `json:"accepted"`
	Error    string           `json:"error"`
}

func newTestRouter(t *testing.T, store *sqlite.Store) (*gin.Engine, *fakeClock, string) {
	t.Helper()
	return newRouterWithSettings(t, store, nil)
}

func newRouterWithSettings(t *testing.T, store *sqlite.Store, settings *config.SettingsStore) (*gin.Engine, *fakeClock, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	static := t.TempDir()
	hub := NewHub(Options{
		Grid:      grid.New(400, 300, 20),
		BlockSize: 10,
		SelfPath:  "http://localhost:38870",
		StaticDir: static,
		Store:     store,
		Settings:  settings,
		Clock:     clock.Now,
	})
	router := gin.New()
	hub.Register(router)
	return router, clock, static
}

func get(t *testing.T, router *gin.Engine, target string) (int, snapshotResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	router.ServeHTTP(w, req)
	var resp snapshotResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad json from %s: %v (%s)", target, err, w.Body.String())
	}
	return w.Code, resp
}

func TestStartAndState(t *testing.T) {
	router, clock, _ := newTestRouter(t, nil)

	code, resp := get(t, router, "/start?username=alice")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%s)", code, resp.Error)
	}
	if len(resp.Snapshot.Snake) != 3 || resp.Snapshot.State != "running" {
		t.Fatalf("unexpected start snapshot %+v", resp.Snapshot)
	}
	if resp.Snapshot.Width != 20 || resp.Snapshot.Height != 15 {
		t.Errorf("Expected 20x15 grid, got %dx%d", resp.Snapshot.Width, resp.Snapshot.Height)
	}
	// 开局就有食物
	if len(resp.Snapshot.Bonuses) != 1 || resp.Snapshot.Bonuses[0].Kind != "Food" {
		t.Errorf("Expected one food at start, got %+v", resp.Snapshot.Bonuses)
	}

	// 一个tick后蛇头右移一格
	clock.now = clock.now.Add(100 * time.Millisecond)
	_, resp = get(t, router, "/state?username=alice")
	if head := resp.Snapshot.Snake[0].Pos; head != (structs.Position{X: 6, Y: 5}) {
		t.Errorf("Expected head at (6,5), got %v", head)
	}
}

func TestStartRejectsBadInput(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)
	if code, _ := get(t, router, "/start?username=bad_name!"); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid username, got %d", code)
	}
	if code, _ := get(t, router, "/start?username=bob&border=maybe"); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid border, got %d", code)
	}
	_, resp := get(t, router, "/start?username=bob&border=true")
	if !resp.Snapshot.Bordered {
		t.Error("border=true should start a bordered game")
	}
}

func TestUpdateDirection(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)
	get(t, router, "/start?username=alice")

	if code, _ := get(t, router, "/update-direction?username=alice&direction=sideways"); code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", code)
	}
	if code, _ := get(t, router, "/update-direction?username=nobody&direction=up"); code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", code)
	}
	_, resp := get(t, router, "/update-direction?username=alice&direction=left")
	if resp.Accepted {
		t.Error("reversal should not be accepted")
	}
	_, resp = get(t, router, "/update-direction?username=alice&direction=up")
	if !resp.Accepted {
		t.Error("turning up should be accepted")
	}
}

func TestPauseResumeQuit(t *testing.T) {
	router, clock, _ := newTestRouter(t, nil)
	get(t, router, "/start?username=alice")

	if code, _ := get(t, router, "/resume?username=alice"); code != http.StatusConflict {
		t.Errorf("Expected 409 resuming a running game, got %d", code)
	}
	_, resp := get(t, router, "/pause?username=alice")
	if resp.Snapshot.State != "paused" {
		t.Fatalf("Expected paused, got %s", resp.Snapshot.State)
	}

	// 暂停期间不移动
	clock.now = clock.now.Add(5 * time.Second)
	_, resp = get(t, router, "/state?username=alice")
	if head := resp.Snapshot.Snake[0].Pos; head != (structs.Position{X: 5, Y: 5}) {
		t.Errorf("snake moved while paused: %v", head)
	}

	_, resp = get(t, router, "/resume?username=alice")
	if resp.Snapshot.State != "running" {
		t.Errorf("Expected running, got %s", resp.Snapshot.State)
	}
	_, resp = get(t, router, "/quit?username=alice")
	if resp.Snapshot.State != "quit" {
		t.Errorf("Expected quit, got %s", resp.Snapshot.State)
	}
	if code, _ := get(t, router, "/pause?username=alice"); code != http.StatusConflict {
		t.Errorf("Expected 409 pausing a finished game, got %d", code)
	}
}

func TestRenderMapWritesImage(t *testing.T) {
	router, _, static := newTestRouter(t, nil)
	get(t, router, "/start?username=alice")

	code, resp := get(t, router, "/render-map?username=alice")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%s)", code, resp.Error)
	}
	if resp.ImageURL != "http://localhost:38870/static/alice.png" {
		t.Errorf("unexpected image url %s", resp.ImageURL)
	}
	if _, err := os.Stat(filepath.Join(static, "alice.png")); err != nil {
		t.Errorf("image not written: %v", err)
	}
}

func TestBestScoresAndDelete(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "game.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	store.RecordScore("alice", 40)
	store.RecordScore("bob", 70)

	router, _, _ := newTestRouter(t, store)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/best-scores?limit=5", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var body struct {
		Scores []sqlite.ScoreEntry `json:"scores"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Scores) != 2 || body.Scores[0].Username != "bob" {
		t.Errorf("unexpected leaderboard %+v", body.Scores)
	}

	get(t, router, "/start?username=alice")
	if code, _ := get(t, router, "/delete-map?username=alice"); code != http.StatusOK {
		t.Errorf("Expected 200, got %d", code)
	}
	code, resp := get(t, router, "/state?username=alice")
	if code != http.StatusNotFound || !strings.Contains(resp.Error, "alice") {
		t.Errorf("Expected 404 after delete, got %d %q", code, resp.Error)
	}
}

type settingsResponse struct {
	Settings  config.Settings `json:"settings"`
	Languages []string        `json:"languages"`
	Error     string          `json:"error"`
}

func getSettings(t *testing.T, router *gin.Engine, target string) (int, settingsResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	var resp settingsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad json from %s: %v (%s)", target, err, w.Body.String())
	}
	return w.Code, resp
}

func TestSettingsDefaults(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)
	code, resp := getSettings(t, router, "/settings")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if resp.Settings != config.DefaultSettings() {
		t.Errorf("Expected defaults, got %+v", resp.Settings)
	}
	if len(resp.Languages) != 2 || resp.Languages[0] != "en" || resp.Languages[1] != "ru" {
		t.Errorf("unexpected languages %v", resp.Languages)
	}
	// 没有设置文件时不能修改
	if code, _ := getSettings(t, router, "/update-settings?language=ru"); code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without a settings store, got %d", code)
	}
}

func TestUpdateSettingsPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	settings, err := config.OpenSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	router, _, _ := newRouterWithSettings(t, nil, settings)

	code, resp := getSettings(t, router, "/update-settings?language=ru&username=Kolya&border_mode=true&sound_enabled=false")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%s)", code, resp.Error)
	}
	want := config.Settings{Language: "ru", BorderMode: true, SoundEnabled: false, Username: "Kolya"}
	if resp.Settings != want {
		t.Errorf("Expected %+v, got %+v", want, resp.Settings)
	}

	reopened, err := config.OpenSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := reopened.Get(); got != want {
		t.Errorf("settings not persisted: %+v", got)
	}

	// 只改传入的字段
	_, resp = getSettings(t, router, "/update-settings?sound_enabled=true")
	want.SoundEnabled = true
	if resp.Settings != want {
		t.Errorf("partial update changed other fields: %+v", resp.Settings)
	}

	// 新的一局使用新设置
	_, snap := get(t, router, "/start")
	if snap.Snapshot.Username != "Kolya" || !snap.Snapshot.Bordered {
		t.Errorf("start ignored saved settings: user=%s bordered=%v", snap.Snapshot.Username, snap.Snapshot.Bordered)
	}
}

func TestUpdateSettingsRejectsBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	settings, err := config.OpenSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	router, _, _ := newRouterWithSettings(t, nil, settings)

	for _, target := range []string{
		"/update-settings?username=bad_name!",
		"/update-settings?username=muchtoolongname",
		"/update-settings?username=",
		"/update-settings?language=de",
		"/update-settings?border_mode=maybe",
		"/update-settings?sound_enabled=loud",
	} {
		if code, _ := getSettings(t, router, target); code != http.StatusBadRequest {
			t.Errorf("%s: Expected 400, got %d", target, code)
		}
	}
	if got := settings.Get(); got != config.DefaultSettings() {
		t.Errorf("rejected updates changed settings: %+v", got)
	}
}

type helpResponse struct {
	Language string      `json:"language"`
	Title    string      `json:"title"`
	Objects  []HelpEntry `json:"objects"`
	Error    string      `json:"error"`
}

func getHelp(t *testing.T, router *gin.Engine, target string) (int, helpResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	var resp helpResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad json from %s: %v (%s)", target, err, w.Body.String())
	}
	return w.Code, resp
}

func TestHelpListsEveryObject(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)

	code, resp := getHelp(t, router, "/help")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%s)", code, resp.Error)
	}
	if resp.Language != "en" || resp.Title != "Help" {
		t.Errorf("unexpected header %s %q", resp.Language, resp.Title)
	}
	if len(resp.Objects) != 7 {
		t.Fatalf("Expected 7 objects, got %d", len(resp.Objects))
	}
	food := resp.Objects[0]
	if food.Kind != "Food" || food.Score != 10 || food.MaxCount != 10 || food.LifetimeSeconds != 60 || food.EffectSeconds != 0 {
		t.Errorf("unexpected food entry %+v", food)
	}
	for _, e := range resp.Objects {
		if e.Name == "" || e.Description == "" {
			t.Errorf("%s: missing text", e.Kind)
		}
	}
	if dp := resp.Objects[5]; dp.Kind != "DoublePoints" || dp.EffectSeconds != 60 {
		t.Errorf("unexpected double points entry %+v", dp)
	}

	_, resp = getHelp(t, router, "/help?language=ru")
	if resp.Title != "Справка" || resp.Objects[1].Name != "Яд" {
		t.Errorf("unexpected ru help %q %+v", resp.Title, resp.Objects[1])
	}
	if code, _ := getHelp(t, router, "/help?language=de"); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown language, got %d", code)
	}
}
