package tesseract

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrClosed is returned by Recognize after the engine was closed.
var ErrClosed = errors.New("tesseract engine is closed")

// pool hands out at most size items, creating them on demand. Close waits
// until every acquired item is released before closing them.
type pool[T io.Closer] struct {
	newItem func() (T, error)
	free    chan T

	mu     sync.Mutex
	all    []T
	size   int
	closed bool
	inUse  sync.WaitGroup
}

func newPool[T io.Closer](size int, newItem func() (T, error)) *pool[T] {
	if size <= 0 {
		size = 1
	}
	return &pool[T]{newItem: newItem, free: make(chan T, size), size: size}
}

// add puts an already created item into the pool.
func (p *pool[T]) add(item T) {
	p.mu.Lock()
	p.all = append(p.all, item)
	p.mu.Unlock()
	p.free <- item
}

// acquire returns a free item, creates one while fewer than size exist, or
// waits for a release. Every successful acquire must be paired with release.
func (p *pool[T]) acquire(ctx context.Context) (T, error) {
	var zero T

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return zero, ErrClosed
	}
	p.inUse.Add(1)
	select {
	case item := <-p.free:
		p.mu.Unlock()
		return item, nil
	default:
	}
	if len(p.all) < p.size {
		item, err := p.newItem()
		if err != nil {
			p.mu.Unlock()
			p.inUse.Done()
			return zero, err
		}
		p.all = append(p.all, item)
		p.mu.Unlock()
		return item, nil
	}
	p.mu.Unlock()

	select {
	case item := <-p.free:
		return item, nil
	case <-ctx.Done():
		p.inUse.Done()
		return zero, ctx.Err()
	}
}

// release returns an item taken with acquire.
func (p *pool[T]) release(item T) {
	p.free <- item
	p.inUse.Done()
}

// created returns the number of items the pool has made.
func (p *pool[T]) created() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.all)
}

// close stops new acquires, waits for the outstanding ones and closes every
// item. Calling it again is a no-op.
func (p *pool[T]) close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.inUse.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for _, item := range p.all {
		if err := item.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.all = nil
	return errors.Join(errs...)
}
