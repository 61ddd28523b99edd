// Package token generates collision-resistant correlation identifiers.
// Every request/response pairing in the monitor (chat sessions, export
// requests, batch downloads) draws its token from a single Generator.
package token

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	mrand "math/rand"
	"sync"
	"time"
)

// Generator produces process-unique random tokens.
type Generator struct {
	mu       sync.Mutex
	fallback *mrand.Rand
}

// New creates a Generator.
func New() *Generator {
	return &Generator{
		fallback: mrand.New(mrand.NewSource(time.Now().UnixNano())),
	}
}

// Int63 returns a random non-negative int64 drawn from the full 63-bit
// space, large enough that concurrent requests never collide in practice.
func (g *Generator) Int63() int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		g.mu.Lock()
		defer g.mu.Unlock()
		return g.fallback.Int63()
	}
	return n.Int64()
}

// ChatSession returns an event name shared between the operator-side and
// participant-side views of one conversation.
func (g *Generator) ChatSession() string {
	return fmt.Sprintf("CHAT_%d", g.Int63())
}
