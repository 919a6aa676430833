// Package catalog caches the remote activity type vocabulary and resolves
// user input (a key or a display label) to a canonical type key.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strings"
	"sync"

	"github.com/tonimelisma/gupload/internal/connect"
)

// ErrFetchFailed wraps any failure to retrieve the vocabulary.
var ErrFetchFailed = errors.New("catalog: fetching activity types failed")

// Fetcher retrieves the vocabulary. *connect.Client satisfies it.
type Fetcher interface {
	ActivityTypes(ctx context.Context) ([]connect.ActivityType, error)
}

// Catalog maps lowercase keys and lowercase labels to canonical keys. It is
// loaded at most once; a failed load leaves it empty so the next call retries.
type Catalog struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu     sync.Mutex
	lookup map[string]string
	types  []connect.ActivityType
}

// New creates an unloaded Catalog.
func New(fetcher Fetcher, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}

	return &Catalog{fetcher: fetcher, logger: logger}
}

// Load fetches the vocabulary on first use and returns a copy of the lookup
// table. Every canonical key maps to itself.
func (c *Catalog) Load(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	return maps.Clone(c.lookup), nil
}

// Types returns the fetched entries sorted by key.
func (c *Catalog) Types(ctx context.Context) ([]connect.ActivityType, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	out := make([]connect.ActivityType, len(c.types))
	copy(out, c.types)

	return out, nil
}

// Resolve maps input to a canonical key. Matching ignores case and
// surrounding whitespace and accepts either a key or a label.
func (c *Catalog) Resolve(ctx context.Context, input string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return "", false, err
	}

	key, ok := c.lookup[normalize(input)]

	return key, ok, nil
}

// ensureLoaded must be called with mu held.
func (c *Catalog) ensureLoaded(ctx context.Context) error {
	if c.lookup != nil {
		return nil
	}

	types, err := c.fetcher.ActivityTypes(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	lookup := make(map[string]string, 2*len(types))

	for _, t := range types {
		if l := normalize(t.Label); l != "" {
			lookup[l] = t.Key
		}
	}

	// Keys win over labels that happen to collide with another key.
	for _, t := range types {
		lookup[normalize(t.Key)] = t.Key
	}

	sorted := make([]connect.ActivityType, len(types))
	copy(sorted, types)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	c.lookup = lookup
	c.types = sorted

	c.logger.Debug("activity type catalog loaded", slog.Int("types", len(types)))

	return nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
