package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand"
	"sync"
)

// Source yields uniform integers in [0, n).
type Source interface {
	Int63n(n int64) int64
}

type cryptoSource struct{}

// Crypto returns a Source backed by crypto/rand. It panics if the system
// entropy source fails, which leaves no safe way to continue a draw.
func Crypto() Source {
	return cryptoSource{}
}

func (cryptoSource) Int63n(n int64) int64 {
	if n <= 0 {
		panic("random: invalid argument to Int63n")
	}
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		panic(fmt.Sprintf("random: crypto source failed: %v", err))
	}
	return v.Int64()
}

type lockedSource struct {
	mu  sync.Mutex
	rnd *mrand.Rand
}

// Seeded returns a deterministic, goroutine-safe Source.
func Seeded(seed int64) Source {
	return &lockedSource{rnd: mrand.New(mrand.NewSource(seed))}
}

func (s *lockedSource) Int63n(n int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Int63n(n)
}

// String draws n characters from alphabet.
func String(src Source, n int, alphabet string) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[src.Int63n(int64(len(alphabet)))]
	}
	return string(b)
}
