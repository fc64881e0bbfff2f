// Package configship is the public SDK surface: a Client answers "value of
// feature or property F for entity E" against the current configuration
// snapshot. The Client owns no goroutines and mutates nothing; it is safe to
// share across any number of concurrent callers. Refreshing the underlying
// store is the job of a source (see internal/source) wired in by the host.
package configship

import (
	"errors"
	"fmt"
	"sort"

	"github.com/TimurManjosov/configship/internal/snapshot"
	"github.com/TimurManjosov/configship/pkg/values"
)

// Re-exported so SDK consumers only need this package for the common path.
type (
	Value  = values.Value
	Kind   = values.Kind
	Entity = values.Entity
)

var (
	// ErrFeatureNotFound is returned when the feature id is absent from the snapshot.
	ErrFeatureNotFound = errors.New("feature not found")
	// ErrPropertyNotFound is returned when the property id is absent from the snapshot.
	ErrPropertyNotFound = errors.New("property not found")
	// ErrMismatchType is returned when a value is requested as an incompatible type.
	ErrMismatchType = values.ErrMismatchType
	// ErrNoSnapshot is returned when no snapshot has been installed yet.
	ErrNoSnapshot = snapshot.ErrNoSnapshot
)

// Client evaluates features and properties against the store's current
// snapshot. Create one per store; lifecycle is create, refresh the store any
// number of times, drop.
type Client struct {
	store *snapshot.Store
}

// NewClient wraps a snapshot store. The caller owns the store and its
// refresh lifecycle.
func NewClient(store *snapshot.Store) *Client {
	return &Client{store: store}
}

// Store exposes the underlying snapshot store, e.g. for wiring a refresher.
func (c *Client) Store() *snapshot.Store { return c.store }

// FeatureIDs lists the ids that can be passed to GetFeature, sorted.
func (c *Client) FeatureIDs() ([]string, error) {
	snap, err := c.store.Current()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(snap.Features))
	for id := range snap.Features {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// PropertyIDs lists the ids that can be passed to GetProperty, sorted.
func (c *Client) PropertyIDs() ([]string, error) {
	snap, err := c.store.Current()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(snap.Properties))
	for id := range snap.Properties {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// GetFeature returns a handle pinned to the current snapshot: it evaluates
// the same entities to the same values even if the store is refreshed
// afterwards. Call GetFeature again to pick up newer configuration.
func (c *Client) GetFeature(featureID string) (*Feature, error) {
	snap, err := c.store.Current()
	if err != nil {
		return nil, err
	}
	def, ok := snap.Features[featureID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFeatureNotFound, featureID)
	}
	return &Feature{snap: snap, def: def}, nil
}

// GetProperty returns a handle pinned to the current snapshot.
func (c *Client) GetProperty(propertyID string) (*Property, error) {
	snap, err := c.store.Current()
	if err != nil {
		return nil, err
	}
	def, ok := snap.Properties[propertyID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPropertyNotFound, propertyID)
	}
	return &Property{snap: snap, def: def}, nil
}
