// Package chain implements the cluster-chain walker: iterating a FAT
// cluster chain from a starting cluster to end-of-chain, with mandatory
// cycle detection and the ability to extend a chain by one cluster.
package chain

import (
	"fmt"

	"github.com/dargueta/fatshell/ferrors"
	"github.com/dargueta/fatshell/internal/fat"
)

// Walker walks cluster chains against a single FAT Accessor.
type Walker struct {
	fat *fat.Accessor
}

// New builds a Walker over the given FAT Accessor.
func New(accessor *fat.Accessor) *Walker {
	return &Walker{fat: accessor}
}

// All returns every cluster in the chain starting at start, in order,
// stopping at (but not including) end-of-chain. A cluster revisited within
// the same walk signals ferrors.ErrCorruptChain rather than looping
// forever, since walking a corrupt image without a cycle guard is the
// prototypical way this kind of tool hangs.
func (w *Walker) All(start uint32) ([]uint32, error) {
	visited := map[uint32]bool{}
	chain := []uint32{}

	current := start
	for {
		if visited[current] {
			return chain, ferrors.WithMessage(ferrors.ErrCorruptChain,
				fmt.Sprintf("cluster %d revisited in chain starting at %d", current, start))
		}
		visited[current] = true
		chain = append(chain, current)

		next, err := w.fat.ReadEntry(current)
		if err != nil {
			return chain, err
		}
		if fat.IsEndOfChain(next) {
			return chain, nil
		}
		if fat.IsBadCluster(next) || next < 2 {
			return chain, ferrors.WithMessage(ferrors.ErrCorruptChain,
				fmt.Sprintf("cluster %d points to invalid cluster 0x%x", current, next))
		}
		current = next
	}
}

// Skip returns the cluster n steps into the chain starting at start
// (Skip(start, 0) == start). It signals ferrors.ErrOffsetBeyondEOF if the
// chain ends before n steps are taken.
func (w *Walker) Skip(start uint32, n uint32) (uint32, error) {
	current := start
	visited := map[uint32]bool{current: true}

	for i := uint32(0); i < n; i++ {
		next, err := w.fat.ReadEntry(current)
		if err != nil {
			return 0, err
		}
		if fat.IsEndOfChain(next) {
			return 0, ferrors.New(ferrors.ErrOffsetBeyondEOF)
		}
		if fat.IsBadCluster(next) || next < 2 || visited[next] {
			return 0, ferrors.WithMessage(ferrors.ErrCorruptChain,
				fmt.Sprintf("cluster %d points to invalid cluster 0x%x", current, next))
		}
		visited[next] = true
		current = next
	}

	return current, nil
}

// Extend allocates a free cluster, links tailCluster's FAT entry to it, and
// marks the new cluster end-of-chain. It returns the newly allocated
// cluster.
func (w *Walker) Extend(tailCluster uint32) (uint32, error) {
	newCluster, err := w.fat.Allocate()
	if err != nil {
		return 0, err
	}
	if err := w.fat.WriteEntry(tailCluster, newCluster); err != nil {
		return 0, err
	}
	return newCluster, nil
}
