package scanner

import (
	"context"
	"runtime"
	"sync"
)

// DefaultWorkers returns the default pool size: one worker per CPU.
func DefaultWorkers() int {
	return runtime.NumCPU()
}

// forEachFile runs fn for indexes [0, n) on a pool of workers. Each worker takes
// one index at a time and finishes it before taking the next. No index is handed
// out once ctx is done; the returned error is ctx.Err() in that case.
func forEachFile(ctx context.Context, workers, n int, fn func(idx int)) error {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if workers > n {
		workers = n
	}
	if workers == 0 {
		return ctx.Err()
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					continue
				}
				fn(idx)
			}
		}()
	}

dispatch:
	for idx := 0; idx < n; idx++ {
		// check before blocking so a cancelled scan never starts another file
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- idx:
		}
	}
	close(jobs)
	wg.Wait()

	return ctx.Err()
}
