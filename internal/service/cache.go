package service

import (
	"sync"
	"time"

	"LotterySync/internal/model"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultCacheEntries = 512
	defaultCacheTTL     = 10 * 24 * time.Hour
)

// DrawCache (区域, 日期) -> 开奖摘要快照；过去日期的结果不会变，过期时间按天计。
// 空结果同样缓存；只在抓取前后显式失效，读取从不隐式失效。
// gens 记录每个键的失效次数，读库期间发生过失效的结果不再写入。
type DrawCache struct {
	mu      sync.Mutex
	entries *expirable.LRU[string, []model.DrawSummary]
	gens    map[string]uint64
}

func NewDrawCache(maxEntries int, ttl time.Duration) *DrawCache {
	if maxEntries <= 0 {
		maxEntries = defaultCacheEntries
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &DrawCache{
		entries: expirable.NewLRU[string, []model.DrawSummary](maxEntries, nil, ttl),
		gens:    make(map[string]uint64),
	}
}

func cacheKey(region model.RegionCode, drawDate time.Time) string {
	return string(region) + ":" + model.DateOnly(drawDate).Format(model.DateLayout)
}

// Get 命中时返回快照副本
func (c *DrawCache) Get(region model.RegionCode, drawDate time.Time) ([]model.DrawSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries.Get(cacheKey(region, drawDate))
	if !ok {
		return nil, false
	}
	return cloneSummaries(v), true
}

func (c *DrawCache) Set(region model.RegionCode, drawDate time.Time, draws []model.DrawSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(cacheKey(region, drawDate), cloneSummaries(draws))
}

// Generation 读库前取得，配合 SetIfCurrent 使用
func (c *DrawCache) Generation(region model.RegionCode, drawDate time.Time) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[cacheKey(region, drawDate)]
}

// SetIfCurrent 自 gen 之后该键未失效过才写入，返回是否写入
func (c *DrawCache) SetIfCurrent(region model.RegionCode, drawDate time.Time, draws []model.DrawSummary, gen uint64) bool {
	key := cacheKey(region, drawDate)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != gen {
		return false
	}
	c.entries.Add(key, cloneSummaries(draws))
	return true
}

func (c *DrawCache) Invalidate(region model.RegionCode, drawDate time.Time) {
	key := cacheKey(region, drawDate)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	c.entries.Remove(key)
}

func (c *DrawCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

func cloneSummaries(in []model.DrawSummary) []model.DrawSummary {
	out := make([]model.DrawSummary, len(in))
	for i, d := range in {
		out[i] = d
		out[i].Prizes = make([]model.PrizeSummary, len(d.Prizes))
		for j, p := range d.Prizes {
			out[i].Prizes[j] = p
			out[i].Prizes[j].Numbers = make([]string, len(p.Numbers))
			copy(out[i].Prizes[j].Numbers, p.Numbers)
		}
	}
	return out
}
