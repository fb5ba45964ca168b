// 奖励物品的生成、过期与查询
package bonus

import (
	"fmt"
	"time"

	"github.com/hoshinonyaruko/snake-bonus/grid"
	"github.com/hoshinonyaruko/snake-bonus/structs"
)

// Object 地图上的一个奖励物品
type Object struct {
	Kind      Kind
	Pos       structs.Position
	SpawnedAt time.Time
}

// Remaining 剩余存活时间，不会为负
func (o Object) Remaining(now time.Time) time.Duration {
	left := RuleFor(o.Kind).Lifetime - now.Sub(o.SpawnedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Expired 存活时间达到上限即过期
func (o Object) Expired(now time.Time) bool {
	return now.Sub(o.SpawnedAt) >= RuleFor(o.Kind).Lifetime
}

// Registry 按种类保存存活物品以及每种物品上次生成的时间
type Registry struct {
	grid      grid.Grid
	rng       grid.Rand
	objects   [kindCount][]Object
	lastSpawn [kindCount]time.Time
}

// NewRegistry 创建物品表，所有种类的生成计时从 start 开始
func NewRegistry(g grid.Grid, rng grid.Rand, start time.Time) *Registry {
	r := &Registry{grid: g, rng: rng}
	for k := range r.lastSpawn {
		r.lastSpawn[k] = start
	}
	return r
}

// Count 某种类的存活数量
func (r *Registry) Count(k Kind) int {
	return len(r.objects[k])
}

// LastSpawn 某种类上次按节奏生成的时间
func (r *Registry) LastSpawn(k Kind) time.Time {
	return r.lastSpawn[k]
}

// Objects 按种类顺序、同种类按生成顺序返回所有存活物品
func (r *Registry) Objects() []Object {
	var out []Object
	for k := range r.objects {
		out = append(out, r.objects[k]...)
	}
	return out
}

// MarkOccupied 把所有存活物品的位置写入 occupied
func (r *Registry) MarkOccupied(occupied map[structs.Position]bool) {
	for k := range r.objects {
		for _, o := range r.objects[k] {
			occupied[o.Pos] = true
		}
	}
}

// Place 直接在 pos 放置一个物品，不检查数量上限与时间间隔
func (r *Registry) Place(k Kind, pos structs.Position, now time.Time) Object {
	o := Object{Kind: k, Pos: pos, SpawnedAt: now}
	r.objects[k] = append(r.objects[k], o)
	return o
}

// Spawn 生成阶段：距上次生成超过间隔且未达上限的种类各尝试放置一个。
// occupied 由调用方提供（通常是蛇身），存活物品的位置会自动加入。
// 放置失败时不更新 lastSpawn，下个tick继续尝试。
func (r *Registry) Spawn(now time.Time, occupied map[structs.Position]bool) []Object {
	taken := r.occupiedWith(occupied)
	var spawned []Object
	for _, k := range Kinds() {
		rule := RuleFor(k)
		if now.Sub(r.lastSpawn[k]) <= rule.SpawnInterval || len(r.objects[k]) >= rule.MaxCount {
			continue
		}
		o, err := r.place(k, now, taken)
		if err != nil {
			continue
		}
		r.lastSpawn[k] = now
		spawned = append(spawned, o)
	}
	return spawned
}

// EnsureFood 地图上没有食物时立即补一个，不受间隔限制，也不重置食物的生成节奏
func (r *Registry) EnsureFood(now time.Time, occupied map[structs.Position]bool) (Object, bool) {
	if len(r.objects[Food]) > 0 {
		return Object{}, false
	}
	o, err := r.place(Food, now, r.occupiedWith(occupied))
	if err != nil {
		return Object{}, false
	}
	return o, true
}

// Expire 过期阶段：删除存活时间 >= lifetime 的物品并返回它们
func (r *Registry) Expire(now time.Time) []Object {
	var expired []Object
	for k := range r.objects {
		kept := r.objects[k][:0]
		for _, o := range r.objects[k] {
			if o.Expired(now) {
				expired = append(expired, o)
				continue
			}
			kept = append(kept, o)
		}
		r.objects[k] = kept
	}
	return expired
}

// Consume 删除并返回位于 pos 的全部物品，每个物品只会被返回一次
func (r *Registry) Consume(pos structs.Position) []Object {
	var eaten []Object
	for k := range r.objects {
		kept := r.objects[k][:0]
		for _, o := range r.objects[k] {
			if o.Pos == pos {
				eaten = append(eaten, o)
				continue
			}
			kept = append(kept, o)
		}
		r.objects[k] = kept
	}
	return eaten
}

func (r *Registry) place(k Kind, now time.Time, taken map[structs.Position]bool) (Object, error) {
	pos, err := r.grid.RandomFreeCell(r.rng, taken)
	if err != nil {
		return Object{}, fmt.Errorf("place %s: %w", k, err)
	}
	taken[pos] = true
	return r.Place(k, pos, now), nil
}

func (r *Registry) occupiedWith(occupied map[structs.Position]bool) map[structs.Position]bool {
	taken := make(map[structs.Position]bool, len(occupied)+16)
	for p := range occupied {
		taken[p] = true
	}
	r.MarkOccupied(taken)
	return taken
}
