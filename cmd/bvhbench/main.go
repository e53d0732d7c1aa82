// Package main is a command that exercises a bvh.BVH with randomly placed
// items, reporting the wall time of each phase: insertion, bottom-up
// rebuild, region queries and removal.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/google/uuid"

	"go.viam.com/bvh/bvh"
)

func main() {
	count := flag.Int("n", 10000, "number of items to insert")
	extent := flag.Float64("extent", 1000, "side length of the cube items are scattered over")
	queries := flag.Int("queries", 1000, "number of region queries to run after rebuild")
	flag.Parse()

	logger := golog.NewDebugLogger("bvhbench")

	tree, err := bvh.New[uuid.UUID](bvh.Config{Capacity: *count, Logger: logger})
	if err != nil {
		logger.Fatalw("failed to construct tree", "error", err)
	}

	ids := make([]uuid.UUID, *count)
	rng := rand.New(rand.NewSource(1))

	insertStart := time.Now()
	for i := range ids {
		ids[i] = uuid.New()
		center := randomVector(rng, *extent)
		size := r3.Vector{X: 1, Y: 1, Z: 1}
		tree.Insert(ids[i], bvh.NewBounds(center, size))
	}
	logger.Infow("insert phase complete", "items", *count, "elapsed", time.Since(insertStart))

	rebuildStart := time.Now()
	tree.BottomUp()
	logger.Infow("bottom-up rebuild complete", "elapsed", time.Since(rebuildStart))

	if err := tree.CheckInvariants(); err != nil {
		logger.Errorw("invariant check failed after rebuild", "error", err)
	}

	queryStart := time.Now()
	hits := 0
	for i := 0; i < *queries; i++ {
		center := randomVector(rng, *extent)
		region := bvh.NewBounds(center, r3.Vector{X: 10, Y: 10, Z: 10})
		tree.Query(region, func(uuid.UUID) { hits++ })
	}
	logger.Infow("query phase complete", "queries", *queries, "hits", hits, "elapsed", time.Since(queryStart))

	removeStart := time.Now()
	for _, id := range ids {
		tree.Remove(id)
	}
	logger.Infow("remove phase complete", "elapsed", time.Since(removeStart))

	fmt.Printf("final height=%d len=%d capacity=%d\n", tree.Height(), tree.Len(), tree.Capacity())
}

func randomVector(rng *rand.Rand, extent float64) r3.Vector {
	return r3.Vector{
		X: (rng.Float64() - 0.5) * extent,
		Y: (rng.Float64() - 0.5) * extent,
		Z: (rng.Float64() - 0.5) * extent,
	}
}
