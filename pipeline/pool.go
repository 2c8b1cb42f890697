package pipeline

import (
	"sync"
)

// workerPool runs submitted tasks on a fixed number of goroutines
type workerPool struct {
	tasks chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

func newWorkerPool(size int) *workerPool {
	if size < 1 {
		size = 1
	}

	pool := &workerPool{
		tasks: make(chan func(), size*2),
	}
	pool.wg.Add(size)
	for i := 0; i < size; i++ {
		go pool.worker()
	}
	return pool
}

func (p *workerPool) worker() {
	defer p.wg.Done()
	for fn := range p.tasks {
		fn()
	}
}

// Submit blocks while the queue is full
func (p *workerPool) Submit(fn func()) {
	p.tasks <- fn
}

// Stop waits for queued tasks to finish
func (p *workerPool) Stop() {
	p.once.Do(func() {
		close(p.tasks)
		p.wg.Wait()
	})
}
