package useragent

import (
	"math/rand"
	"sync"
)

// Rotator hands out user agent strings for outbound fetches.
type Rotator struct {
	agents []string
	mu     sync.Mutex
	rand   *rand.Rand
}

func NewRotator(seed int64) *Rotator {
	// In production, load these from config or a remote service
	return &Rotator{
		agents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
		},
		rand: rand.New(rand.NewSource(seed)),
	}
}

// Next returns a random user agent string.
func (r *Rotator) Next() string {
	if len(r.agents) == 0 {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.agents[r.rand.Intn(len(r.agents))]
}
