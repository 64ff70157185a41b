package exec

import (
	"context"
	"errors"
	"sync"

	"github.com/IamSiddharthChoudhary/Assessly/internal/models"
)

var ErrLanguageNotRegistered = errors.New("language not registered")

// Output is what a strategy produced before the dispatcher normalizes it.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// Simulated marks a placeholder response from a backend that is not
	// available in this deployment; the dispatcher reports zero execution
	// time for these.
	Simulated bool
}

// Strategy runs code for one language. Implementations must be safe for
// concurrent use: each Run is independent and shares no mutable state with
// other calls.
type Strategy interface {
	Run(ctx context.Context, code, stdin string) (Output, error)
}

// Registry maps language tags to execution strategies. Adding a real backend
// for a language is registering a strategy; the calling contract never
// changes.
type Registry struct {
	mu         sync.RWMutex
	strategies map[models.Language]Strategy
}

func NewRegistry() *Registry {
	return &Registry{strategies: make(map[models.Language]Strategy)}
}

func (r *Registry) Register(lang models.Language, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[lang] = s
}

func (r *Registry) Get(lang models.Language) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[lang]
	if !ok {
		return nil, ErrLanguageNotRegistered
	}
	return s, nil
}

func (r *Registry) Languages() []models.Language {
	r.mu.RLock()
	defer r.mu.RUnlock()
	langs := make([]models.Language, 0, len(r.strategies))
	for _, l := range models.SupportedLanguages() {
		if _, ok := r.strategies[l]; ok {
			langs = append(langs, l)
		}
	}
	return langs
}
