package wallet

import "time"

// Config carries every knob a WalletState is constructed from
// (spec.md §6 "Config knobs").
type Config struct {
	Network            Network
	RefreshFromHeight  uint64
	DaemonAddress      string
	Timeout            time.Duration
	Credentials        *Credentials
	ReconnectionPolicy ReconnectionPolicy
	SubaddressLookahead uint32 // N in (account 0, 0..=N)
	RingSize           int
	Priority           TransactionPriority
	SweepAll           bool
	Language           string
	TimeProvider       TimeProvider
}

// DefaultReconnectionPolicy mirrors the teacher's conservative
// defaults: a handful of attempts, capped exponential backoff.
func DefaultReconnectionPolicy() ReconnectionPolicy {
	return ReconnectionPolicy{
		MaxAttempts:         5,
		InitialDelay:        time.Second,
		MaxDelay:            30 * time.Second,
		BackoffMultiplier:   2.0,
		HealthCheckInterval: 60 * time.Second,
	}
}

// DefaultConfig returns a Config with the subaddress-lookahead and
// ring-size decided for this engine (see the project's design notes
// for the lookahead-default rationale).
func DefaultConfig(network Network) Config {
	return Config{
		Network:             network,
		Timeout:             30 * time.Second,
		ReconnectionPolicy:  DefaultReconnectionPolicy(),
		SubaddressLookahead: 20,
		RingSize:            RingSize,
		Priority:            PriorityDefault,
		Language:            "english",
		TimeProvider:        SystemTimeProvider(),
	}
}

// Validate checks the invariants the spec fixes regardless of caller input.
func (c Config) Validate() error {
	if c.RingSize != 0 && c.RingSize != RingSize {
		return ErrInvalidConfig
	}
	return nil
}
