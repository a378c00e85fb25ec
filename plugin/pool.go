package plugin

import "sync"

// workerPool is the shared bounded pool actions submit to, matching
// original_source/daemon/plugins/common/plugin.py's
// action_threadpool_executor (ThreadPoolExecutor(max_workers=cpu*16)).
type workerPool struct {
	tasks chan func()
	wg    sync.WaitGroup
	once  sync.Once
	done  chan struct{}
}

func newWorkerPool(size int) *workerPool {
	if size < 1 {
		size = 1
	}
	p := &workerPool{
		tasks: make(chan func(), size*4),
		done:  make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *workerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			task()
		}
	}
}

// submit enqueues task. It drops the task rather than blocking
// indefinitely if the pool has already been stopped.
func (p *workerPool) submit(task func()) {
	select {
	case <-p.done:
	case p.tasks <- task:
	}
}

func (p *workerPool) stop() {
	p.once.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}
