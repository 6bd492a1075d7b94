package platform

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"tiktok-crawler-go/internal/crawler"
)

// Factory builds a fresh Runner for one run.
type Factory func() crawler.Runner

type entry struct {
	name    string
	factory Factory
}

var (
	mu      sync.RWMutex
	entries = map[string]entry{}
)

// Register binds a platform name and its aliases to factory. Lookups ignore case and
// surrounding space. Registering a taken key panics.
func Register(name string, aliases []string, factory Factory) {
	if factory == nil {
		panic("platform: factory is nil")
	}
	e := entry{name: normalize(name), factory: factory}
	if e.name == "" {
		panic("platform: empty name")
	}
	mu.Lock()
	defer mu.Unlock()
	for _, k := range append([]string{name}, aliases...) {
		n := normalize(k)
		if n == "" {
			continue
		}
		if _, exists := entries[n]; exists {
			panic(fmt.Sprintf("platform: duplicate register: %s", n))
		}
		entries[n] = e
	}
}

func lookup(name string) (entry, bool) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := entries[normalize(name)]
	return e, ok
}

func New(name string) (crawler.Runner, error) {
	e, ok := lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown platform: %s (available: %s)", name, strings.Join(Names(), ", "))
	}
	return e.factory(), nil
}

// Canonical resolves an alias to the registered platform name.
func Canonical(name string) (string, bool) {
	e, ok := lookup(name)
	return e.name, ok
}

func Exists(name string) bool {
	_, ok := lookup(name)
	return ok
}

// Names lists registered platform names without aliases, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	var out []string
	for _, e := range entries {
		if !slices.Contains(out, e.name) {
			out = append(out, e.name)
		}
	}
	slices.Sort(out)
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
