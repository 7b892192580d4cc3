// Package pow implements the message proof of work: a nonce is acceptable when
// blake2b-256(blake2b-256(essence) || nonce) ends in at least the required
// number of zero bits (the minimum weight magnitude).
package pow

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"sync/atomic"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"xdao.co/streams-tangle/ledger"
)

// MaxWeightMagnitude is the largest difficulty Mine accepts.
const MaxWeightMagnitude = 48

// checkInterval is how many hashes a worker computes between context checks.
const checkInterval = 1 << 10

var ErrDifficulty = errors.New("pow: weight magnitude out of range")

// Score returns the number of trailing zero bits of the nonce hash.
func Score(essence []byte, nonce uint64) int {
	seed := blake2b.Sum256(essence)
	return score(seed, nonce)
}

// Valid reports whether nonce satisfies mwm for essence.
func Valid(essence []byte, nonce uint64, mwm uint8) bool {
	return mwm == 0 || Score(essence, nonce) >= int(mwm)
}

// Mine searches for a nonce satisfying mwm using workers goroutines. Each worker
// walks a disjoint residue class of the nonce space.
func Mine(ctx context.Context, essence []byte, mwm uint8, workers int) (uint64, error) {
	if mwm == 0 {
		return 0, nil
	}
	if mwm > MaxWeightMagnitude {
		return 0, fmt.Errorf("%w: %d > %d", ErrDifficulty, mwm, MaxWeightMagnitude)
	}
	if workers < 1 {
		workers = 1
	}
	seed := blake2b.Sum256(essence)

	var (
		found atomic.Bool
		nonce atomic.Uint64
	)
	searchCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(searchCtx)
	step := uint64(workers)
	for w := 0; w < workers; w++ {
		start := uint64(w)
		g.Go(func() error {
			for n, i := start, 0; ; n, i = n+step, i+1 {
				if i%checkInterval == 0 && gctx.Err() != nil {
					return nil
				}
				if score(seed, n) >= int(mwm) {
					if found.CompareAndSwap(false, true) {
						nonce.Store(n)
					}
					stop()
					return nil
				}
			}
		})
	}
	_ = g.Wait()
	if found.Load() {
		return nonce.Load(), nil
	}
	return 0, ctx.Err()
}

// Apply mines a nonce for m in place.
func Apply(ctx context.Context, m *ledger.Message, mwm uint8, workers int) error {
	essence, err := ledger.Essence(m)
	if err != nil {
		return err
	}
	n, err := Mine(ctx, essence, mwm, workers)
	if err != nil {
		return err
	}
	m.Nonce = n
	return nil
}

// Check verifies the nonce carried by m.
func Check(m *ledger.Message, mwm uint8) (bool, error) {
	essence, err := ledger.Essence(m)
	if err != nil {
		return false, err
	}
	return Valid(essence, m.Nonce, mwm), nil
}

func score(seed [blake2b.Size256]byte, nonce uint64) int {
	var buf [blake2b.Size256 + 8]byte
	copy(buf[:], seed[:])
	binary.LittleEndian.PutUint64(buf[blake2b.Size256:], nonce)
	h := blake2b.Sum256(buf[:])
	n := 0
	for i := len(h) - 1; i >= 0; i-- {
		if h[i] == 0 {
			n += 8
			continue
		}
		n += bits.TrailingZeros8(h[i])
		break
	}
	return n
}
