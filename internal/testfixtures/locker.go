package testfixtures

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careops/clinic-scheduling/internal/schedule"
)

// Locker serializes critical sections per (doctor, date) with plain
// mutexes, standing in for the Redis schedule lock.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*sync.Mutex)}
}

func (l *Locker) WithScheduleLock(ctx context.Context, doctorID uuid.UUID, date time.Time, fn func(ctx context.Context) error) error {
	key := doctorID.String() + "/" + schedule.DateOf(date).Format("2006-01-02")

	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}
