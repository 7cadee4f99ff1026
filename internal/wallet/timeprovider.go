package wallet

import "time"

// TimeProvider abstracts wall-clock access (spec.md §6 "Environment").
// Config carries one and WalletState.Send passes it to CommitTx, which
// does not read it: TxRecord has no timestamp field, and the reconnect
// and decoy-retry backoff delays wait on the real clock.
type TimeProvider interface {
	UnixSeconds() uint64
	Now() time.Time
}

// systemTimeProvider is the default TimeProvider, backed by the OS clock.
type systemTimeProvider struct{}

// SystemTimeProvider returns the default wall-clock TimeProvider.
func SystemTimeProvider() TimeProvider { return systemTimeProvider{} }

func (systemTimeProvider) UnixSeconds() uint64 { return uint64(time.Now().Unix()) }
func (systemTimeProvider) Now() time.Time      { return time.Now() }

// FixedTimeProvider is a TimeProvider that always reports the same
// instant, for deterministic tests.
type FixedTimeProvider struct {
	At time.Time
}

func (f FixedTimeProvider) UnixSeconds() uint64 { return uint64(f.At.Unix()) }
func (f FixedTimeProvider) Now() time.Time      { return f.At }
