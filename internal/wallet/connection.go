package wallet

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// ReconnectionPolicy parameterizes the health-check/reconnect loop
// (spec.md §4.J "Connection manager").
type ReconnectionPolicy struct {
	MaxAttempts         int
	InitialDelay        time.Duration
	MaxDelay            time.Duration
	BackoffMultiplier   float64
	HealthCheckInterval time.Duration
}

// DelayForAttempt returns min(InitialDelay * Multiplier^attempt, MaxDelay).
func (p ReconnectionPolicy) DelayForAttempt(attempt int) time.Duration {
	delay := float64(p.InitialDelay)
	for i := 0; i < attempt; i++ {
		delay *= p.BackoffMultiplier
	}
	if time.Duration(delay) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// Credentials holds daemon basic-auth credentials in a buffer callers
// can scrub once the connection is torn down.
type Credentials struct {
	Username *zeroizing
	Password *zeroizing
}

// NewCredentials copies user/pass into zeroizing buffers.
func NewCredentials(user, pass string) *Credentials {
	c := &Credentials{Username: newZeroizing(len(user)), Password: newZeroizing(len(pass))}
	copy(c.Username.Bytes(), user)
	copy(c.Password.Bytes(), pass)
	return c
}

// Clear scrubs both buffers.
func (c *Credentials) Clear() {
	c.Username.Clear()
	c.Password.Clear()
}

// BuildURL assembles a daemon URL, percent-encoding any embedded
// credentials.
func BuildURL(daemonAddress string, creds *Credentials) (string, error) {
	u, err := url.Parse(daemonAddress)
	if err != nil {
		return "", fmt.Errorf("%w: invalid daemon address: %v", ErrInvalidConfig, err)
	}
	if creds != nil {
		u.User = url.UserPassword(string(creds.Username.Bytes()), string(creds.Password.Bytes()))
	}
	return u.String(), nil
}

// connectFunc builds a fresh Transport from a daemon address. Supplied
// by the caller so the connection manager stays transport-agnostic
// (the internal/rpc/http and internal/rpc/ws packages each provide one).
type connectFunc func(ctx context.Context, daemonAddress string, timeout time.Duration) (Transport, error)

// ConnectionManager owns the live Transport handle, a background
// health-check loop, and the reconnection policy that loop drives on
// failure (spec.md §4.J, §5 "Ordering guarantees").
type ConnectionManager struct {
	mu            sync.RWMutex
	transport     Transport
	daemonAddress string
	timeout       time.Duration
	policy        ReconnectionPolicy
	connect       connectFunc

	connected bool
	attempts  int

	cancelHealthCheck context.CancelFunc
	healthCheckDone   chan struct{}
}

// NewConnectionManager builds a manager that is not yet connected.
func NewConnectionManager(connect connectFunc, policy ReconnectionPolicy) *ConnectionManager {
	return &ConnectionManager{connect: connect, policy: policy}
}

// Connect establishes a transport and starts the health-check task.
func (m *ConnectionManager) Connect(ctx context.Context, daemonAddress string, timeout time.Duration) error {
	transport, err := m.connect(ctx, daemonAddress, timeout)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.transport = transport
	m.daemonAddress = daemonAddress
	m.timeout = timeout
	m.connected = true
	m.attempts = 0
	m.mu.Unlock()

	m.startHealthCheck()
	return nil
}

// Disconnect cancels the health-check task, awaits its exit, and
// drops the transport handle.
func (m *ConnectionManager) Disconnect() {
	m.mu.Lock()
	cancel := m.cancelHealthCheck
	done := m.healthCheckDone
	m.cancelHealthCheck = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	m.mu.Lock()
	m.transport = nil
	m.connected = false
	m.mu.Unlock()
}

// IsConnected reports the manager's last known connection state.
func (m *ConnectionManager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Post forwards to the current transport, failing with ErrNotConnected
// if none is established.
func (m *ConnectionManager) Post(ctx context.Context, route string, body []byte) ([]byte, error) {
	m.mu.RLock()
	transport := m.transport
	m.mu.RUnlock()

	if transport == nil {
		return nil, ErrNotConnected
	}
	return transport.Post(ctx, route, body)
}

// healthCheckProbe is the shape of a health-check probe. Nothing takes
// one: the health-check loop below always posts RouteGetHeight itself.
type healthCheckProbe func(ctx context.Context, t Transport) error

func (m *ConnectionManager) startHealthCheck() {
	m.mu.Lock()
	if m.cancelHealthCheck != nil {
		m.mu.Unlock()
		m.stopHealthCheckLocked()
		m.mu.Lock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancelHealthCheck = cancel
	m.healthCheckDone = done
	interval := m.policy.HealthCheckInterval
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.mu.RLock()
				transport := m.transport
				m.mu.RUnlock()
				if transport == nil {
					return
				}
				probeCtx, cancelProbe := context.WithTimeout(ctx, m.timeout)
				_, err := transport.Post(probeCtx, RouteGetHeight, nil)
				cancelProbe()
				if err != nil {
					m.attemptReconnect(ctx)
				}
			}
		}
	}()
}

func (m *ConnectionManager) stopHealthCheckLocked() {
	m.mu.Lock()
	cancel := m.cancelHealthCheck
	done := m.healthCheckDone
	m.cancelHealthCheck = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// attemptReconnect runs the backoff loop described in spec.md §4.J: up
// to MaxAttempts tries, sleeping DelayForAttempt(n) between them,
// resetting the attempt counter on the first success.
func (m *ConnectionManager) attemptReconnect(ctx context.Context) {
	m.mu.Lock()
	daemonAddress := m.daemonAddress
	timeout := m.timeout
	policy := m.policy
	m.connected = false
	m.mu.Unlock()

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(policy.DelayForAttempt(attempt)):
		}

		transport, err := m.connect(ctx, daemonAddress, timeout)
		if err != nil {
			continue
		}
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		_, err = transport.Post(probeCtx, RouteGetHeight, nil)
		cancel()
		if err == nil {
			m.mu.Lock()
			m.transport = transport
			m.connected = true
			m.attempts = 0
			m.mu.Unlock()
			return
		}
	}
}
