package spacevault

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

const maxUnlockWorkers = 1024

// ParallelConfig bounds how many password checks run at once. Each check
// is a full scrypt derivation, so a search over many spaces is CPU bound.
type ParallelConfig struct {
	Enabled bool

	// MaxWorkers of 0 means runtime.NumCPU()
	MaxWorkers int
}

func (p *ParallelConfig) Validate() error {
	switch {
	case !p.Enabled:
		return nil
	case p.MaxWorkers < 0:
		return NewValidationError("parallel.max_workers", p.MaxWorkers, "parallel max workers cannot be negative")
	case p.MaxWorkers > maxUnlockWorkers:
		return NewValidationError("parallel.max_workers", p.MaxWorkers,
			fmt.Sprintf("parallel max workers must not exceed %d", maxUnlockWorkers))
	}
	return nil
}

func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{Enabled: true, MaxWorkers: runtime.NumCPU()}
}

// workers returns the pool size for the given number of jobs, never more
// than there are jobs
func (p ParallelConfig) workers(jobs int) int {
	if !p.Enabled {
		return 1
	}
	n := p.MaxWorkers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return min(n, jobs)
}

type unlockJob struct {
	info   EncryptedSpaceInfo
	result *DecryptedSpaceInfo
}

// firstError keeps the first error reported by any worker
type firstError struct {
	once sync.Once
	err  error
}

func (f *firstError) set(err error) {
	f.once.Do(func() { f.err = err })
}

// decryptAll checks password against every job and stores successful
// decryptions in place. On any failure, including ctx cancellation and a
// worker panic, all results are wiped and the first error is returned.
func decryptAll(ctx context.Context, cfg ParallelConfig, jobs []unlockJob, password []byte) error {
	if len(jobs) == 0 {
		return nil
	}

	next := make(chan int, len(jobs))
	for i := range jobs {
		next <- i
	}
	close(next)

	var (
		wg    sync.WaitGroup
		fail  firstError
		abort = make(chan struct{})
		stop  sync.Once
	)
	report := func(err error) {
		fail.set(err)
		stop.Do(func() { close(abort) })
	}

	worker := func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				report(fmt.Errorf("unlock worker panicked: %v", r))
			}
		}()
		for i := range next {
			select {
			case <-abort:
				return
			default:
			}
			d, err := DecryptSpace(ctx, &jobs[i].info, password)
			if err != nil {
				report(err)
				return
			}
			jobs[i].result = d
		}
	}

	n := cfg.workers(len(jobs))
	wg.Add(n)
	for range n {
		go worker()
	}
	wg.Wait()

	if fail.err == nil {
		return nil
	}
	for i := range jobs {
		if jobs[i].result != nil {
			jobs[i].result.PrivateKey.Wipe()
			jobs[i].result = nil
		}
	}
	return fail.err
}
