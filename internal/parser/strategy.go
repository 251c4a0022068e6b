package parser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/symindex/pkg/types"
)

// ErrRegistryFrozen is returned when a strategy is registered after the
// registry produced its dispatch table.
var ErrRegistryFrozen = errors.New("strategy registry is frozen")

// Method identifies a strategy's priority bucket
type Method int

const (
	// ExternalTool strategies are tried first
	ExternalTool Method = iota
	// Structured strategies use a real parser for the language
	Structured
	// Regex strategies are the universal fallback
	Regex

	methodCount
)

// String returns the bucket name
func (m Method) String() string {
	switch m {
	case ExternalTool:
		return "external-tool"
	case Structured:
		return "structured"
	case Regex:
		return "regex"
	default:
		return "unknown"
	}
}

// Strategy extracts items from a single file.
//
// TryParse returns an empty result and a nil error when the strategy does not
// claim the file. A non-nil error is a failure for this file only.
// Implementations must be safe for concurrent use.
type Strategy interface {
	Name() string
	Method() Method
	TryParse(ctx context.Context, path string) ([]types.Item, error)
}

// Registry collects strategies before scanning begins
type Registry struct {
	buckets [methodCount][]Strategy
	frozen  bool
	timeout time.Duration
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// SetTimeout bounds each strategy invocation. Zero means unbounded.
func (r *Registry) SetTimeout(d time.Duration) {
	r.timeout = d
}

// Register adds a strategy to its priority bucket
func (r *Registry) Register(s Strategy) error {
	if r.frozen {
		return fmt.Errorf("register %s: %w", s.Name(), ErrRegistryFrozen)
	}
	m := s.Method()
	if m < 0 || m >= methodCount {
		return fmt.Errorf("register %s: invalid method %d", s.Name(), m)
	}
	r.buckets[m] = append(r.buckets[m], s)
	return nil
}

// MustRegister is like Register but panics on a contract violation
func (r *Registry) MustRegister(s Strategy) {
	if err := r.Register(s); err != nil {
		panic(err)
	}
}

// Freeze ends the registration phase and returns the dispatch table.
// Calling Freeze again returns an equivalent table.
func (r *Registry) Freeze() *Table {
	r.frozen = true
	t := &Table{timeout: r.timeout}
	for m := range r.buckets {
		t.buckets[m] = append([]Strategy(nil), r.buckets[m]...)
	}
	return t
}

// Table is the immutable, priority-ordered strategy dispatch table.
// It is safe for concurrent use.
type Table struct {
	buckets [methodCount][]Strategy
	timeout time.Duration
}

// Strategies returns the strategies in dispatch order
func (t *Table) Strategies() []Strategy {
	var all []Strategy
	for _, bucket := range t.buckets {
		all = append(all, bucket...)
	}
	return all
}

// Parse runs the strategy chain for path. The first strategy returning a
// non-empty result wins. If every strategy declines the file has no items.
// A strategy error stops the chain and is returned as *types.ParseError,
// as is a winning result holding an invalid item.
func (t *Table) Parse(ctx context.Context, path string) ([]types.Item, error) {
	for _, bucket := range t.buckets {
		for _, s := range bucket {
			items, err := t.try(ctx, s, path)
			if err != nil {
				return nil, &types.ParseError{Path: path, Strategy: s.Name(), Err: err}
			}
			if len(items) == 0 {
				continue
			}
			for i, item := range items {
				if err := item.Validate(); err != nil {
					return nil, &types.ParseError{
						Path:     path,
						Strategy: s.Name(),
						Err:      fmt.Errorf("item %d (%q): %w", i, item.Name, err),
					}
				}
			}
			return items, nil
		}
	}
	return nil, nil
}

func (t *Table) try(ctx context.Context, s Strategy, path string) ([]types.Item, error) {
	if t.timeout <= 0 {
		return s.TryParse(ctx, path)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return s.TryParse(ctx, path)
}
