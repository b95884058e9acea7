package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Source is a change feed that can be (re)subscribed. Subscribe blocks until
// the subscription ends; onReady fires once the feed is live.
type Source interface {
	Subscribe(ctx context.Context, onReady func()) error
}

type State string

const (
	StateConnecting   State = "connecting"
	StateSubscribed   State = "subscribed"
	StateReconnecting State = "reconnecting"
	StateDisconnected State = "disconnected"
	StateClosed       State = "closed"
)

var ErrClosed = errors.New("connection manager closed")

type ConnectionConfig struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
	// AutoRetry keeps retrying at MaxDelay after MaxAttempts instead of
	// waiting for Refresh.
	AutoRetry bool
	Sleep     func(ctx context.Context, d time.Duration) error
	// OnState is called on every state change with the current attempt count.
	OnState func(state State, attempts int)
	// OnReady is called every time the feed becomes live, used to resync.
	OnReady func()
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		MaxAttempts: 3,
	}
}

// ConnectionManager keeps one subscription alive with exponential backoff
// and stops after MaxAttempts consecutive failures until Refresh is called.
type ConnectionManager struct {
	src Source
	cfg ConnectionConfig
	log *zap.Logger

	mu       sync.Mutex
	state    State
	attempts int
	bo       *backoff.ExponentialBackOff
	refresh  chan struct{}
	closed   chan struct{}
	once     sync.Once
}

func NewConnectionManager(src Source, cfg ConnectionConfig, log *zap.Logger) *ConnectionManager {
	def := DefaultConnectionConfig()
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepCtx
	}
	if log == nil {
		log = zap.NewNop()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.BaseDelay
	bo.MaxInterval = cfg.MaxDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	bo.Reset()

	return &ConnectionManager{
		src:     src,
		cfg:     cfg,
		log:     log,
		state:   StateConnecting,
		bo:      bo,
		refresh: make(chan struct{}, 1),
		closed:  make(chan struct{}),
	}
}

// Run drives the subscription until ctx is cancelled or Close is called.
func (m *ConnectionManager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-m.closed:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		if ctx.Err() != nil {
			return m.stop(ctx)
		}

		err := m.src.Subscribe(ctx, m.ready)
		if ctx.Err() != nil {
			return m.stop(ctx)
		}

		attempts := m.fail()
		m.log.Warn("change feed subscription lost",
			zap.Int("attempt", attempts),
			zap.Error(err),
		)

		if attempts > m.cfg.MaxAttempts && !m.cfg.AutoRetry {
			m.setState(StateDisconnected)
			select {
			case <-m.refresh:
				m.resetAttempts()
				m.setState(StateConnecting)
				continue
			case <-ctx.Done():
				return m.stop(ctx)
			}
		}

		delay := m.nextDelay()
		m.setState(StateReconnecting)
		if err := m.cfg.Sleep(ctx, delay); err != nil {
			return m.stop(ctx)
		}
	}
}

// Refresh requests an immediate reconnect after the manager gave up.
func (m *ConnectionManager) Refresh() {
	select {
	case m.refresh <- struct{}{}:
	default:
	}
}

func (m *ConnectionManager) Close() {
	m.once.Do(func() { close(m.closed) })
}

func (m *ConnectionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *ConnectionManager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

func (m *ConnectionManager) ready() {
	m.mu.Lock()
	m.attempts = 0
	m.bo.Reset()
	m.mu.Unlock()
	m.setState(StateSubscribed)
	if m.cfg.OnReady != nil {
		m.cfg.OnReady()
	}
}

func (m *ConnectionManager) fail() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	return m.attempts
}

func (m *ConnectionManager) resetAttempts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = 0
	m.bo.Reset()
}

func (m *ConnectionManager) nextDelay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.bo.NextBackOff()
	if d == backoff.Stop || d > m.cfg.MaxDelay {
		d = m.cfg.MaxDelay
	}
	return d
}

func (m *ConnectionManager) setState(s State) {
	m.mu.Lock()
	m.state = s
	attempts := m.attempts
	m.mu.Unlock()
	if m.cfg.OnState != nil {
		m.cfg.OnState(s, attempts)
	}
}

func (m *ConnectionManager) stop(ctx context.Context) error {
	m.setState(StateClosed)
	select {
	case <-m.closed:
		return nil
	default:
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
