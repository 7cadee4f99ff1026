package wallet

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// RingMember is one candidate ring entry: a global output index plus
// the one-time key and amount commitment the daemon reports for it.
type RingMember struct {
	GlobalIndex uint64
	OneTimeKey  *Point
	Commitment  *Point
}

// DecoyRpc is the daemon surface the decoy selector needs: the total
// population of outputs sharing an amount bucket, and the ability to
// fetch specific global indices from that bucket.
type DecoyRpc interface {
	OutputCount(ctx context.Context, amount uint64) (uint64, error)
	FetchOutputs(ctx context.Context, amount uint64, globalIndices []uint64) ([]RingMember, error)
}

// DecoySelectionConfig parameterizes BuildRing (spec.md §4.F).
type DecoySelectionConfig struct {
	RingSize      int
	Height        uint64
	Deterministic bool
	Seed          uint64 // used only when Deterministic is set
}

const decoyMaxRetries = 3

func decoyRetryBackoff(attempt int) time.Duration {
	return time.Duration(100<<uint(attempt)) * time.Millisecond
}

// BuildRing assembles a ring of exactly RingSize members for a real
// spend: the real output placed at a uniformly random index, the
// remaining RingSize-1 positions filled with decoys drawn from the
// amount bucket's global output population via a recency-weighted
// triangular distribution. Makes up to 3 attempts in total on RPC
// failure, with exponential backoff (100ms, then 200ms) between them
// (spec.md §4.F).
func BuildRing(ctx context.Context, rpc DecoyRpc, amount uint64, real RingMember, cfg DecoySelectionConfig) ([]RingMember, int, error) {
	if cfg.RingSize != RingSize {
		return nil, 0, fmt.Errorf("%w: ring size must be %d, got %d", ErrInvalidConfig, RingSize, cfg.RingSize)
	}
	if cfg.Height == 0 {
		return nil, 0, fmt.Errorf("%w: decoy selection height not set", ErrInvalidConfig)
	}

	var lastErr error
	for attempt := 0; attempt < decoyMaxRetries; attempt++ {
		ring, realIndex, err := attemptBuildRing(ctx, rpc, amount, real, cfg)
		if err == nil {
			return ring, realIndex, nil
		}
		lastErr = err
		if attempt+1 < decoyMaxRetries {
			select {
			case <-time.After(decoyRetryBackoff(attempt)):
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			}
		}
	}
	return nil, 0, fmt.Errorf("%w: %v", ErrDecoySelectionFail, lastErr)
}

func attemptBuildRing(ctx context.Context, rpc DecoyRpc, amount uint64, real RingMember, cfg DecoySelectionConfig) ([]RingMember, int, error) {
	count, err := rpc.OutputCount(ctx, amount)
	if err != nil {
		return nil, 0, err
	}
	if count == 0 {
		return nil, 0, fmt.Errorf("no candidate outputs for amount bucket")
	}

	needed := cfg.RingSize - 1
	indices := sampleDecoyIndices(count, needed, real.GlobalIndex, cfg)

	members, err := rpc.FetchOutputs(ctx, amount, indices)
	if err != nil {
		return nil, 0, err
	}
	if len(members) != needed {
		return nil, 0, fmt.Errorf("daemon returned %d outputs, wanted %d", len(members), needed)
	}

	ring := make([]RingMember, 0, cfg.RingSize)
	realIndex, err := randomIndex(cfg.RingSize, cfg.Deterministic, cfg.Seed, "position")
	if err != nil {
		return nil, 0, err
	}
	for i := 0; i < cfg.RingSize; i++ {
		if i == realIndex {
			ring = append(ring, real)
		} else {
			ring = append(ring, members[0])
			members = members[1:]
		}
	}
	return ring, realIndex, nil
}

// sampleDecoyIndices draws `needed` distinct global indices from
// [0, count), excluding exclude, biased toward the high (recent) end
// via max(u, v) of two uniform draws — the standard way to turn a
// uniform sampler into one weighted toward one boundary without a
// closed-form inverse CDF.
func sampleDecoyIndices(count uint64, needed int, exclude uint64, cfg DecoySelectionConfig) []uint64 {
	seen := map[uint64]bool{exclude: true}
	out := make([]uint64, 0, needed)
	source := newDecoyRandSource(cfg)

	for len(out) < needed {
		u := source.float()
		v := source.float()
		bias := u
		if v > bias {
			bias = v
		}
		idx := uint64(bias * float64(count-1))
		if seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out
}

// decoyRandSource abstracts over the OS CSPRNG (default) and a
// seeded deterministic source (for fingerprint-reproducible rings).
type decoyRandSource struct {
	deterministic bool
	state         uint64
}

func newDecoyRandSource(cfg DecoySelectionConfig) *decoyRandSource {
	return &decoyRandSource{deterministic: cfg.Deterministic, state: cfg.Seed}
}

func (s *decoyRandSource) float() float64 {
	if s.deterministic {
		s.state = s.state*6364136223846793005 + 1442695040888963407
		return float64(s.state>>11) / float64(1<<53)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1<<53))
	if err != nil {
		return 0.5
	}
	return float64(n.Int64()) / float64(1<<53)
}

func randomIndex(n int, deterministic bool, seed uint64, salt string) (int, error) {
	if deterministic {
		h := Keccak256(leUint64(seed), []byte(salt))
		return int(uint32(h[0])|uint32(h[1])<<8) % n, nil
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
