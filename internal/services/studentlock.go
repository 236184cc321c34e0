package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// StudentLocker serializes reconciler/planner critical sections per student.
// Weight-1 semaphores instead of mutexes so acquisition honors context
// cancellation. Different students never contend.
type StudentLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*semaphore.Weighted
}

func NewStudentLocker() *StudentLocker {
	return &StudentLocker{locks: map[uuid.UUID]*semaphore.Weighted{}}
}

func (l *StudentLocker) Acquire(ctx context.Context, studentID uuid.UUID) (func(), error) {
	l.mu.Lock()
	sem, ok := l.locks[studentID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.locks[studentID] = sem
	}
	l.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}
