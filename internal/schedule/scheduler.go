package schedule

import (
	"sort"
	"sync"
	"time"
)

// Scheduler runs a function after a delay. Pulling this behind an interface
// keeps offset arithmetic testable without real time passing.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

// Wall schedules on the real clock. Negative delays fire immediately,
// matching time.AfterFunc.
type Wall struct{}

func (Wall) AfterFunc(d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}
	time.AfterFunc(d, fn)
}

// Manual is a logical-clock scheduler for tests. Tasks fire synchronously
// from Advance, in offset order; ties fire in scheduling order.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []manualTask
}

type manualTask struct {
	at  time.Duration
	seq int
	fn  func()
}

func NewManual() *Manual { return &Manual{} }

func (m *Manual) AfterFunc(d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		d = 0
	}
	m.seq++
	m.tasks = append(m.tasks, manualTask{at: m.now + d, seq: m.seq, fn: fn})
}

// Now returns the current logical time.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of tasks not yet fired.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Advance moves the logical clock forward and runs every task that became
// due, including tasks scheduled by tasks that already fired in this call.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		sort.SliceStable(m.tasks, func(i, j int) bool {
			if m.tasks[i].at != m.tasks[j].at {
				return m.tasks[i].at < m.tasks[j].at
			}
			return m.tasks[i].seq < m.tasks[j].seq
		})
		if len(m.tasks) == 0 || m.tasks[0].at > target {
			m.now = target
			m.mu.Unlock()
			return
		}
		next := m.tasks[0]
		m.tasks = m.tasks[1:]
		m.now = next.at
		m.mu.Unlock()

		next.fn()
	}
}
