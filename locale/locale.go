// 前端显示的多语言文字
package locale

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
)

//go:embed locale.json
var localeData []byte

// Texts 一种语言的全部文字
type Texts struct {
	ScoreLabel string            `json:"score_label"`
	GameOver   string            `json:"game_over"`
	PauseTitle string            `json:"pause_title"`
	BestScores string            `json:"best_scores"`
	Causes     map[string]string `json:"causes"`
	Effects    map[string]string `json:"effects"`
	HelpTitle  string            `json:"help_title"`
	Objects    map[string]string `json:"objects"`
	Help       map[string]string `json:"help"`
}

var tables map[string]Texts

func init() {
	if err := json.Unmarshal(localeData, &tables); err != nil {
		panic(fmt.Sprintf("locale: %v", err))
	}
}

// Languages 可用的语言代码，已排序
func Languages() []string {
	out := make([]string, 0, len(tables))
	for lang := range tables {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Has 是否有这种语言
func Has(language string) bool {
	_, ok := tables[language]
	return ok
}

// For 返回指定语言的文字，没有时退回英文
func For(language string) Texts {
	if t, ok := tables[language]; ok {
		return t
	}
	return tables["en"]
}

// Effect 效果的显示名，没有翻译时返回种类名
func (t Texts) Effect(kind string) string {
	if s, ok := t.Effects[kind]; ok {
		return s
	}
	return kind
}

// Cause 死亡原因的显示文字
func (t Texts) Cause(cause string) string {
	if s, ok := t.Causes[cause]; ok {
		return s
	}
	return cause
}

// ObjectName 物品的显示名
func (t Texts) ObjectName(kind string) string {
	if s, ok := t.Objects[kind]; ok {
		return s
	}
	return kind
}

// Describe 帮助里物品的说明，没有时返回空串
func (t Texts) Describe(kind string) string {
	return t.Help[kind]
}
