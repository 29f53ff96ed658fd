package command

import (
	"context"
	"fmt"
)

// SeedLocker serialises seed runs. Acquire blocks until the caller is the only
// seeder or ctx is done, and returns the release function.
type SeedLocker interface {
	Acquire(ctx context.Context) (func(), error)
}

// LocalLocker serialises seeds within one process.
type LocalLocker struct {
	sem chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{sem: make(chan struct{}, 1)}
}

func (l *LocalLocker) Acquire(ctx context.Context) (func(), error) {
	select {
	case l.sem <- struct{}{}:
		return func() { <-l.sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for seed lock: %w", ctx.Err())
	}
}

// ChainLocker acquires every locker in order and releases them in reverse.
// A process-local lock in front of a distributed one keeps a single instance
// from polling Redis against itself.
type ChainLocker []SeedLocker

func (c ChainLocker) Acquire(ctx context.Context) (func(), error) {
	releases := make([]func(), 0, len(c))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, l := range c {
		release, err := l.Acquire(ctx)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}
