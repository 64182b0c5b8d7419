package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Level summarizes a provider's breaker state.
type Level int

const (
	// LevelHealthy means the breaker is closed.
	LevelHealthy Level = iota
	// LevelDegraded means the breaker is half-open and probing.
	LevelDegraded
	// LevelDown means the breaker is open and calls fail fast.
	LevelDown
)

// ProviderHealth is a point-in-time health report for one provider.
type ProviderHealth struct {
	Name          string
	CircuitState  gobreaker.State
	Counts        gobreaker.Counts
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

// Level maps the breaker state to a health level.
func (h ProviderHealth) Level() Level {
	switch h.CircuitState {
	case gobreaker.StateOpen:
		return LevelDown
	case gobreaker.StateHalfOpen:
		return LevelDegraded
	default:
		return LevelHealthy
	}
}

// Registry tracks provider clients and when their calls last succeeded or failed.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*providerEntry
}

type providerEntry struct {
	client      *Client
	lastSuccess time.Time
	lastFailure time.Time
	lastError   string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]*providerEntry)}
}

// Register adds or replaces a provider client. Replacing forgets earlier stamps.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = &providerEntry{client: client}
}

// RecordSuccess stamps the last successful call of a registered provider.
func (r *Registry) RecordSuccess(name string) {
	r.update(name, func(e *providerEntry) {
		e.lastSuccess = time.Now()
	})
}

// RecordFailure stamps the last failed call of a registered provider and keeps
// its error text.
func (r *Registry) RecordFailure(name string, err error) {
	r.update(name, func(e *providerEntry) {
		e.lastFailure = time.Now()
		if err != nil {
			e.lastError = err.Error()
		}
	})
}

func (r *Registry) update(name string, fn func(*providerEntry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.providers[name]; ok {
		fn(e)
	}
}

// Health reports one provider. ok is false if name is not registered.
func (r *Registry) Health(name string) (health ProviderHealth, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.providers[name]
	if !ok {
		return ProviderHealth{}, false
	}
	return e.health(name), true
}

// All reports every provider, sorted by name.
func (r *Registry) All() []ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderHealth, 0, len(r.providers))
	for name, e := range r.providers {
		out = append(out, e.health(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (e *providerEntry) health(name string) ProviderHealth {
	return ProviderHealth{
		Name:          name,
		CircuitState:  e.client.CircuitBreakerState(),
		Counts:        e.client.CircuitBreakerCounts(),
		LastSuccessAt: timePtr(e.lastSuccess),
		LastFailureAt: timePtr(e.lastFailure),
		LastError:     e.lastError,
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
