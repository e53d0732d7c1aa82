package bvh

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

// defaultCapacity mirrors Box2D's dynamic tree default initial pool size.
const defaultCapacity = 16

// Config configures a new BVH. The zero value is valid: Capacity defaults to
// defaultCapacity and Logger defaults to golog.Global.
type Config struct {
	// Capacity is the initial node-pool capacity. Zero means "use the
	// default"; negative is rejected by New.
	Capacity int

	// Logger receives Debug-level events for bottom-up rebuild summaries and
	// rejected duplicate inserts/removes. Never used above Debug; Insert and
	// Remove log only when they reject a call, and Traversal never logs.
	Logger golog.Logger
}

func (c Config) validate() (Config, error) {
	if c.Capacity < 0 {
		return c, errors.Errorf("invalid initial capacity (%d) for bvh", c.Capacity)
	}
	if c.Capacity == 0 {
		c.Capacity = defaultCapacity
	}
	if c.Logger == nil {
		c.Logger = golog.Global()
	}
	return c, nil
}
