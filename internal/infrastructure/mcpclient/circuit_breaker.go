package mcpclient

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// circuitState gates repeated CallTool attempts against an upstream
// that is failing outright rather than merely slow.
type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

func (s circuitState) String() string {
	switch s {
	case circuitClosed:
		return "closed"
	case circuitOpen:
		return "open"
	case circuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type circuitBreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
}

func defaultCircuitBreakerConfig() circuitBreakerConfig {
	return circuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// circuitBreaker guards CallTool on one connection. A connection
// already in Failed state never reaches the breaker: a server that
// never came up at all fails fast without retry.
type circuitBreaker struct {
	cfg circuitBreakerConfig
	mu  sync.Mutex

	state           circuitState
	failures        int
	successes       int
	lastFailureTime time.Time
}

func newCircuitBreaker(cfg circuitBreakerConfig) *circuitBreaker {
	return &circuitBreaker{cfg: cfg, state: circuitClosed}
}

func (cb *circuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitClosed:
		return true
	case circuitOpen:
		if time.Since(cb.lastFailureTime) > cb.cfg.Timeout {
			cb.state = circuitHalfOpen
			return true
		}
		return false
	case circuitHalfOpen:
		return true
	default:
		return false
	}
}

func (cb *circuitBreaker) recordResult(server string, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.successes = 0
		cb.lastFailureTime = time.Now()
		if cb.state == circuitHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
			if cb.state != circuitOpen {
				log.Warn().Str("server", server).Int("failures", cb.failures).Msg("mcp circuit breaker opening")
			}
			cb.state = circuitOpen
		}
		return
	}

	cb.successes++
	if cb.state == circuitHalfOpen && cb.successes >= cb.cfg.SuccessThreshold {
		log.Info().Str("server", server).Msg("mcp circuit breaker closing")
		cb.state = circuitClosed
		cb.failures = 0
		cb.successes = 0
	} else if cb.state == circuitClosed {
		cb.failures = 0
	}
}

func (cb *circuitBreaker) State() circuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
