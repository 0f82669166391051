// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type TimerTask struct {
	Id       int64
	Execute  time.Time
	Interval time.Duration
	Callback func()
	index    int
}

type TimerQueue []*TimerTask

func (q TimerQueue) Len() int { return len(q) }

func (q TimerQueue) Less(i, j int) bool {
	return q[i].Execute.Before(q[j].Execute)
}

func (q TimerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *TimerQueue) Push(x interface{}) {
	n := len(*q)
	task := x.(*TimerTask)
	task.index = n
	*q = append(*q, task)
}

func (q *TimerQueue) Pop() interface{} {
	old := *q
	n := len(old)
	task := old[n-1]
	task.index = -1
	*q = old[0 : n-1]
	return task
}

// TimerManager is a cancellable deferred-task queue. The clock is injected
// so tests can advance virtual time and call RunDue deterministically.
type TimerManager struct {
	queue    TimerQueue
	mutex    sync.Mutex
	nextId   int64
	clock    clockwork.Clock
	stop     chan struct{}
	stopOnce sync.Once
}

func NewTimerManager(clock clockwork.Clock) *TimerManager {
	manager := &TimerManager{
		queue:  make(TimerQueue, 0),
		nextId: 1,
		clock:  clock,
		stop:   make(chan struct{}),
	}
	heap.Init(&manager.queue)
	return manager
}

// Start launches the background processing loop.
func (m *TimerManager) Start() {
	go m.process()
}

func (m *TimerManager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

// AddTimer schedules callback after delay. A non-zero interval reschedules
// the task after each run until it is removed.
func (m *TimerManager) AddTimer(delay time.Duration, interval time.Duration, callback func()) int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	task := &TimerTask{
		Id:       m.nextId,
		Execute:  m.clock.Now().Add(delay),
		Interval: interval,
		Callback: callback,
	}
	m.nextId++

	heap.Push(&m.queue, task)
	return task.Id
}

func (m *TimerManager) RemoveTimer(timerId int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i, task := range m.queue {
		if task.Id == timerId {
			heap.Remove(&m.queue, i)
			break
		}
	}
}

// RunDue executes every task due at the current clock time. Callbacks run
// sequentially outside the queue lock, in due order, so round mutation
// driven by timers is never concurrent with itself.
func (m *TimerManager) RunDue() {
	m.mutex.Lock()
	now := m.clock.Now()

	var due []*TimerTask
	for m.queue.Len() > 0 {
		task := m.queue[0]
		if task.Execute.After(now) {
			break
		}

		heap.Pop(&m.queue)
		due = append(due, task)

		if task.Interval > 0 {
			task.Execute = now.Add(task.Interval)
			heap.Push(&m.queue, task)
		}
	}
	m.mutex.Unlock()

	for _, task := range due {
		task.Callback()
	}
}

func (m *TimerManager) process() {
	ticker := m.clock.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			m.RunDue()
		case <-m.stop:
			return
		}
	}
}
