package sites

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/maltedev/offer-extractor/internal/models"
)

var ErrUnknownSite = errors.New("unknown site")

// Registry indexes extractors by site identifier.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]*Extractor
	logger     *slog.Logger
}

// NewRegistry builds a registry from profiles. Later profiles replace
// earlier ones with the same identifier.
func NewRegistry(logger *slog.Logger, profiles ...Profile) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		extractors: make(map[string]*Extractor, len(profiles)),
		logger:     logger,
	}
	for _, p := range profiles {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry holds the builtin profiles.
func DefaultRegistry(logger *slog.Logger) *Registry {
	r, err := NewRegistry(logger, Builtin()...)
	if err != nil {
		panic(fmt.Sprintf("builtin profiles: %v", err))
	}
	return r
}

func (r *Registry) Register(p Profile) error {
	p.ID = normalizeID(p.ID)
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.extractors[p.ID] = NewExtractor(p, r.logger)
	return nil
}

func (r *Registry) Get(id string) (*Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.extractors[normalizeID(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSite, id)
	}
	return e, nil
}

// ForCountry returns the extractors serving country, ordered by identifier.
func (r *Registry) ForCountry(country models.Country) []*Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Extractor
	for _, e := range r.extractors {
		if strings.EqualFold(string(e.profile.Country), string(country)) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].profile.ID < out[j].profile.ID })
	return out
}

// IDs returns the registered identifiers in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.extractors))
	for id := range r.extractors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Profiles returns every registered profile ordered by identifier.
func (r *Registry) Profiles() []Profile {
	ids := r.IDs()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Profile, 0, len(ids))
	for _, id := range ids {
		if e, ok := r.extractors[id]; ok {
			out = append(out, e.profile)
		}
	}
	return out
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
