package services

import (
	"sync"
	"testing"
	"time"

	"github.com/celestiaorg/ec2api/test/mocks"
)

// recordingTimer fires immediately and records every requested delay
type recordingTimer struct {
	mu     sync.Mutex
	delays []time.Duration
	c      chan time.Time
}

func newRecordingTimer() *recordingTimer {
	return &recordingTimer{c: make(chan time.Time, 1)}
}

func (t *recordingTimer) Start(d time.Duration) {
	t.mu.Lock()
	t.delays = append(t.delays, d)
	t.mu.Unlock()
	t.c <- time.Now()
}

func (t *recordingTimer) Stop() {}

func (t *recordingTimer) C() <-chan time.Time {
	return t.c
}

func (t *recordingTimer) Delays() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.delays...)
}

// testOptions keeps waiters and retries fast
func testOptions(t *testing.T, timer *recordingTimer) Options {
	t.Helper()
	return Options{
		EnableSecurityGroups: true,
		DefaultAMI:           mocks.DefaultAMI,
		DefaultInstanceType:  mocks.DefaultInstanceType,
		KeyDir:               t.TempDir(),
		AttachConcurrency:    1,
		Describe: DescribeOptions{
			MaxAttempts:  5,
			InitialDelay: time.Second,
			Timer:        timer,
		},
		Waiter: WaiterOptions{
			MaxWait:  5 * time.Second,
			MinDelay: time.Millisecond,
			MaxDelay: 5 * time.Millisecond,
		},
	}
}
