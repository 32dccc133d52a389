package symbol

import (
	"strings"
	"sync"
)

// DefaultStablecoins 默认折叠到 USDT 的稳定币后缀（按序扫描，只替换第一个命中）
var DefaultStablecoins = []string{
	"USDT",
	"USD",
	"BUSD",
	"USDC",
	"DAI",
	"TUSD",
	"FDUSD",
	"USDP",
	"USDD",
}

// Normalizer maps raw exchange-specific symbols to a canonical comparable
// form: separators stripped, upper-cased, USD-pegged quote suffixes folded to
// USDT. Results are memoized since every ticker of every cycle goes through
// here.
type Normalizer struct {
	mu          sync.RWMutex
	cache       map[string]string
	stablecoins []string
}

// NewNormalizer creates a normalizer with the given stablecoin suffix list.
// An empty list falls back to DefaultStablecoins.
func NewNormalizer(stablecoins []string) *Normalizer {
	list := make([]string, 0, len(stablecoins))
	for _, s := range stablecoins {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		list = append(list, u)
	}
	if len(list) == 0 {
		list = append(list, DefaultStablecoins...)
	}
	return &Normalizer{
		cache:       make(map[string]string),
		stablecoins: list,
	}
}

// Normalize returns the canonical symbol for a raw one. Empty input returns
// the empty string.
func (n *Normalizer) Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	n.mu.RLock()
	if v, ok := n.cache[raw]; ok {
		n.mu.RUnlock()
		return v
	}
	n.mu.RUnlock()

	v := n.normalize(raw)

	n.mu.Lock()
	n.cache[raw] = v
	n.mu.Unlock()
	return v
}

func (n *Normalizer) normalize(raw string) string {
	s := strings.NewReplacer("-", "", "_", "").Replace(raw)
	s = strings.ToUpper(s)
	for _, sc := range n.stablecoins {
		if strings.HasSuffix(s, sc) {
			// only one replacement, do not cascade
			s = s[:len(s)-len(sc)] + "USDT"
			break
		}
	}
	return s
}
