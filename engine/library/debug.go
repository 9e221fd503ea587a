package library

import (
	"sync"

	"github.com/sasha-s/go-deadlock"
)

// ValidateSaneExecutionTime arms a go-deadlock watchdog. If the returned func
// is not called within deadlock.Opts.DeadlockTimeout the stuck goroutine is
// reported. Calling the returned func more than once is a no-op.
func ValidateSaneExecutionTime() func() {
	mu := &deadlock.Mutex{}
	mu.Lock()
	go func() {
		mu.Lock()
		mu.Unlock()
	}()
	var once sync.Once
	return func() {
		once.Do(mu.Unlock)
	}
}
