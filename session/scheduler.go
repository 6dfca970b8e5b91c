package session

import (
	"sync"
	"time"
)

// Stopper cancels a scheduled callback. Stop never blocks and may be called
// more than once.
type Stopper interface {
	Stop()
}

// Scheduler runs callbacks later. Every must invoke f serially.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Stopper
	Every(d time.Duration, f func()) Stopper
}

// SystemScheduler schedules on the wall clock.
type SystemScheduler struct{}

type timerStopper struct{ t *time.Timer }

func (s timerStopper) Stop() { s.t.Stop() }

func (SystemScheduler) AfterFunc(d time.Duration, f func()) Stopper {
	return timerStopper{time.AfterFunc(d, f)}
}

type ticker struct {
	once sync.Once
	done chan struct{}
}

func (t *ticker) Stop() { t.once.Do(func() { close(t.done) }) }

// Every runs f on its own goroutine once per period until stopped. A tick
// that arrives together with Stop is dropped.
func (SystemScheduler) Every(d time.Duration, f func()) Stopper {
	t := &ticker{done: make(chan struct{})}
	go func() {
		tk := time.NewTicker(d)
		defer tk.Stop()
		for {
			select {
			case <-t.done:
				return
			case <-tk.C:
				select {
				case <-t.done:
					return
				default:
				}
				f()
			}
		}
	}()
	return t
}
