package world

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Scheduler откладывает задачу на заданное число тиков
type Scheduler interface {
	RunAfter(delayTicks int64, job func())
}

type scheduledJob struct {
	due int64
	seq uint64 // Порядок постановки для задач с одинаковым тиком
	run func()
}

type jobQueue []scheduledJob

func (q jobQueue) Len() int { return len(q) }
func (q jobQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].seq < q[j].seq
}
func (q jobQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *jobQueue) Push(x interface{}) { *q = append(*q, x.(scheduledJob)) }
func (q *jobQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// TickScheduler — планировщик задач хоста на игровых тиках.
// Задачи выполняются один раз, отмены нет; при остановке невыполненные задачи теряются.
type TickScheduler struct {
	mu    sync.Mutex
	tick  int64
	seq   uint64
	queue jobQueue
}

// NewTickScheduler создаёт планировщик с нулевым тиком
func NewTickScheduler() *TickScheduler {
	return &TickScheduler{}
}

// RunAfter ставит задачу на выполнение через delayTicks тиков (минимум один)
func (s *TickScheduler) RunAfter(delayTicks int64, job func()) {
	if job == nil {
		return
	}
	if delayTicks < 1 {
		delayTicks = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	heap.Push(&s.queue, scheduledJob{due: s.tick + delayTicks, seq: s.seq, run: job})
}

// Tick продвигает время на один тик и выполняет созревшие задачи.
// Задачи выполняются вне блокировки и могут планировать новые.
func (s *TickScheduler) Tick() int {
	s.mu.Lock()
	s.tick++
	due := make([]func(), 0)
	for s.queue.Len() > 0 && s.queue[0].due <= s.tick {
		job := heap.Pop(&s.queue).(scheduledJob)
		due = append(due, job.run)
	}
	s.mu.Unlock()

	for _, run := range due {
		run()
	}
	return len(due)
}

// Advance выполняет n тиков подряд
func (s *TickScheduler) Advance(n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

// Run крутит тики с частотой tickRateHz до отмены контекста
func (s *TickScheduler) Run(ctx context.Context, tickRateHz int) {
	if tickRateHz <= 0 {
		tickRateHz = 20
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRateHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Pending возвращает количество ожидающих задач
func (s *TickScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// CurrentTick возвращает номер текущего тика
func (s *TickScheduler) CurrentTick() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}
