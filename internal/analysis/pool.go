package analysis

import (
	"context"
	"sync"
)

// pool runs indexed jobs on a bounded set of workers.
type pool struct {
	size int
}

func newPool(size int) *pool {
	if size < 1 {
		size = 1
	}
	return &pool{size: size}
}

// run calls fn for every index in [0, n) and waits for all calls to
// return. Indexes not yet started when ctx is done are skipped.
func (p *pool) run(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	workers := p.size
	if n < workers {
		workers = n
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(ctx, i)
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
}
