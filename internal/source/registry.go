package source

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Defaults apply to every adapter the registry constructs itself. Zero
// values fall back to each adapter's own defaults.
type Defaults struct {
	// FetchTimeout bounds one upstream request.
	FetchTimeout time.Duration

	// FullTextMinRunes enables the article full-text upgrade for RSS
	// sources whose feed body is shorter than this many runes.
	FullTextMinRunes int
}

// UnknownSourceError reports a Create for a name nobody registered.
type UnknownSourceError struct {
	Name  string
	Known []string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown source %q, available: %s", e.Name, strings.Join(e.Known, ", "))
}

// Registry maps source keys to adapter factories. It is a constructed
// catalog value passed to the pipeline, not process-wide state.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	defaults  Defaults
	logger    zerolog.Logger
}

// NewRegistry returns an empty registry. Call Discover to load the
// built-in adapter set; defaults flow into every adapter the registry
// builds.
func NewRegistry(defaults Defaults, logger zerolog.Logger) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		defaults:  defaults,
		logger:    logger,
	}
}

// Register adds or replaces a factory under a case-insensitive key.
func (r *Registry) Register(name string, factory Factory) {
	key := normalizeKey(name)
	if key == "" || factory == nil {
		return
	}
	r.mu.Lock()
	r.factories[key] = factory
	r.mu.Unlock()
}

// Create instantiates the adapter registered under name. The lookup is
// case-insensitive; failure lists every known source.
func (r *Registry) Create(name string) (Adapter, error) {
	key := normalizeKey(name)

	r.mu.RLock()
	factory, ok := r.factories[key]
	r.mu.RUnlock()

	if !ok {
		return nil, &UnknownSourceError{Name: name, Known: r.Names()}
	}

	adapter, err := factory()
	if err != nil {
		return nil, fmt.Errorf("create adapter %q: %w", key, err)
	}
	return adapter, nil
}

// Names returns all registered source keys, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.factories))
	for key := range r.factories {
		names = append(names, key)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Discover registers the built-in adapter set. Each factory is probed
// once so its source name yields the registry key; a factory that fails
// to construct is logged and skipped without aborting the rest.
func (r *Registry) Discover() {
	registered := 0
	for _, factory := range builtinFactories(r.defaults) {
		adapter, err := factory()
		if err != nil {
			r.logger.Warn().Err(err).Msg("skipping built-in adapter that failed to construct")
			continue
		}
		key := DeriveKey(adapter.Name())
		if key == "" {
			r.logger.Warn().Str("source", adapter.Name()).Msg("skipping built-in adapter with unusable name")
			continue
		}
		r.Register(key, factory)
		registered++
	}
	r.logger.Debug().Int("sources", registered).Msg("source discovery complete")
}

// Reset clears every registration and rediscovers the built-in set.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.factories = make(map[string]Factory)
	r.mu.Unlock()

	r.Discover()
}

// DeriveKey turns a display source name into its registry key:
// lowercase, a conventional trailing "feed" stripped, spaces collapsed
// to underscores. "OpenAI Blog" becomes "openai_blog".
func DeriveKey(sourceName string) string {
	name := strings.ToLower(strings.TrimSpace(sourceName))
	name = strings.TrimSuffix(name, " feed")
	return strings.Join(strings.Fields(name), "_")
}

func normalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
