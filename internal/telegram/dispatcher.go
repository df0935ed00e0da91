package telegram

import (
	"context"
	"sync"
	"time"
)

// JobTimeout ограничивает время обработки одного обновления.
const JobTimeout = 30 * time.Second

// Dispatcher выполняет задачи по очереди для каждого ключа и параллельно для разных ключей.
// На каждый ключ с непустой очередью работает одна горутина.
type Dispatcher struct {
	ctx    context.Context
	mu     sync.Mutex
	queues map[int64][]func(context.Context)
	wg     sync.WaitGroup
}

// NewDispatcher создаёт диспетчер. Задачи получают значения ctx, но не его отмену:
// принятые до остановки обновления дорабатываются, каждое не дольше JobTimeout.
func NewDispatcher(ctx context.Context) *Dispatcher {
	return &Dispatcher{
		ctx:    context.WithoutCancel(ctx),
		queues: make(map[int64][]func(context.Context)),
	}
}

// Submit ставит задачу в очередь ключа.
func (d *Dispatcher) Submit(key int64, job func(context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, running := d.queues[key]
	d.queues[key] = append(q, job)
	if !running {
		d.wg.Add(1)
		go d.drain(key)
	}
}

func (d *Dispatcher) drain(key int64) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		q := d.queues[key]
		if len(q) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		job := q[0]
		q[0] = nil
		d.queues[key] = q[1:]
		d.mu.Unlock()

		jobCtx, cancel := context.WithTimeout(d.ctx, JobTimeout)
		job(jobCtx)
		cancel()
	}
}

// Wait дожидается выполнения всех поставленных задач.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
