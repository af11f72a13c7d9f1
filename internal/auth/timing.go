package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig controls the artificial delay applied to failed logins and
// recovery lookups so that account enumeration cannot be done by clock.
type TimingConfig struct {
	BaseDelayMs    int
	RandomDelayMs  int
	DelayOnSuccess bool
}

// TimingDelay pads authentication paths to a uniform duration. Lookups that
// fail early (unknown username) and lookups that fail late (bad password)
// should be indistinguishable to a caller measuring response time.
type TimingDelay struct {
	config TimingConfig
}

func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config}
}

// target computes base plus jitter for a single invocation. Jitter uses
// crypto/rand so the padding itself is not predictable.
func (td *TimingDelay) target() time.Duration {
	delay := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs > 0 {
		if n, err := randIntn(td.config.RandomDelayMs); err == nil {
			delay += time.Duration(n) * time.Millisecond
		}
	}
	return delay
}

// Wait sleeps for the configured delay. Successful operations skip the delay
// unless DelayOnSuccess is set.
func (td *TimingDelay) Wait(success bool) {
	if success && !td.config.DelayOnSuccess {
		return
	}
	time.Sleep(td.target())
}

// WaitFrom sleeps only for the remainder of the configured delay, counting
// time already spent since startTime. Work done before the call (hashing,
// database round trips) counts toward the target.
func (td *TimingDelay) WaitFrom(startTime time.Time, success bool) {
	if success && !td.config.DelayOnSuccess {
		return
	}
	if remaining := td.target() - time.Since(startTime); remaining > 0 {
		time.Sleep(remaining)
	}
}

func randIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint64(buf[:]) % uint64(max)), nil
}
