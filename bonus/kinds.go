package bonus

import "time"

// Kind 奖励物品种类，闭合枚举。新增种类时同时补上 rules 表中的一行。
type Kind int

const (
	Food Kind = iota
	PoisonedFood
	Bomb
	Speedup
	Clock
	DoublePoints
	InvertedControls

	kindCount
)

var kindNames = [kindCount]string{
	Food:             "Food",
	PoisonedFood:     "PoisonedFood",
	Bomb:             "Bomb",
	Speedup:          "Speedup",
	Clock:            "Clock",
	DoublePoints:     "DoublePoints",
	InvertedControls: "InvertedControls",
}

func (k Kind) String() string {
	if !k.Valid() {
		return "Unknown"
	}
	return kindNames[k]
}

// Valid 是否是已声明的种类
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

// Kinds 按表顺序返回全部种类
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// Rule 每种物品的固定参数
type Rule struct {
	MaxCount       int
	Lifetime       time.Duration
	SpawnInterval  time.Duration
	Score          int           // 基础分，吃到时乘以当前倍率（毒食物除外）
	EffectDuration time.Duration // 0 表示没有持续效果
}

var rules = [kindCount]Rule{
	Food:             {MaxCount: 10, Lifetime: 60 * time.Second, SpawnInterval: 5 * time.Second, Score: 10},
	PoisonedFood:     {MaxCount: 5, Lifetime: 15 * time.Second, SpawnInterval: 10 * time.Second, Score: -8},
	Bomb:             {MaxCount: 3, Lifetime: 30 * time.Second, SpawnInterval: 15 * time.Second, Score: 0},
	Speedup:          {MaxCount: 3, Lifetime: 15 * time.Second, SpawnInterval: 20 * time.Second, Score: 3, EffectDuration: 15 * time.Second},
	Clock:            {MaxCount: 1, Lifetime: 15 * time.Second, SpawnInterval: 25 * time.Second, Score: 3, EffectDuration: 15 * time.Second},
	DoublePoints:     {MaxCount: 1, Lifetime: 60 * time.Second, SpawnInterval: 30 * time.Second, Score: 5, EffectDuration: 60 * time.Second},
	InvertedControls: {MaxCount: 1, Lifetime: 15 * time.Second, SpawnInterval: 35 * time.Second, Score: 9, EffectDuration: 15 * time.Second},
}

// RuleFor 返回种类的固定参数，未知种类返回零值（上限为0，永远不会生成）
func RuleFor(k Kind) Rule {
	if !k.Valid() {
		return Rule{}
	}
	return rules[k]
}
