package loader

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

func (l *loader) Prefetch(ctx context.Context, accessorIndices ...int) error {
	if len(accessorIndices) == 0 {
		accessorIndices = make([]int, len(l.doc.Accessors))
		for i := range accessorIndices {
			accessorIndices[i] = i
		}
	}
	if len(accessorIndices) == 0 {
		return nil
	}

	pool := l.pool()

	// The pool is shared by concurrent Prefetch calls, so a WaitGroup marks
	// the end of this batch rather than pool.Wait().
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	start := time.Now()

	for id, index := range accessorIndices {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		idx := index
		pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				data, err := l.accessorData(ctx, idx)
				if err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
					return nil, err
				}
				return data, nil
			},
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	l.logger.Debug("accessors prefetched",
		"accessors", len(accessorIndices),
		"workers", l.decodeWorkers,
		"failed", len(errs),
		"elapsed", time.Since(start),
	)
	return errors.Join(errs...)
}

// pool returns the decode worker pool, starting it on first use. Workers are
// sized once from the loader options.
func (l *loader) pool() worker.DynamicWorkerPool {
	l.decodePoolOnce.Do(func() {
		l.decodePool = worker.NewDynamicWorkerPool(l.decodeWorkers, l.decodeQueueSize, 1*time.Second)
	})
	return l.decodePool
}
