package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle is an RTT-adaptive concurrency backpressure signal, adapted
// from the teacher's crawler.AdaptiveLimiter. It is not part of the
// spec's {minInterval, lastAcquireTime} crawl-delay contract -- Limiter
// alone implements that -- but supplements it: workers call Wait before
// dispatching a fetch and ObserveRTT afterward, so a host that starts
// responding slowly automatically throttles concurrent throughput
// without the operator having to pre-guess a safe fetch rate.
type Throttle struct {
	limiter   *rate.Limiter
	targetRTT time.Duration
	mu        sync.RWMutex

	emaRTT      time.Duration
	currentRate float64
	disabled    bool
}

const (
	throttleMinRate   = 5.0
	throttleMaxRate   = 100.0
	throttleEMAAlpha  = 0.2
	throttleRecovery  = 1.1
	throttleBackoff   = 0.5
	throttleRateEps   = 0.1
)

// NewThrottle returns a Throttle starting at initialRPS requests per
// second, adapting toward targetRTT.
func NewThrottle(initialRPS int, targetRTT time.Duration) *Throttle {
	clamped := clampThrottleRate(float64(initialRPS))
	return &Throttle{
		limiter:     rate.NewLimiter(rate.Limit(clamped), int(math.Ceil(clamped))),
		targetRTT:   targetRTT,
		currentRate: clamped,
		emaRTT:      targetRTT,
	}
}

// Wait blocks until the throttle's current rate allows the next fetch.
func (t *Throttle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// ObserveRTT folds a completed fetch's round-trip time into the
// exponential moving average and adjusts the allowed rate: slower than
// targetRTT backs off (capped at a 50% single-step drop), faster
// recovers by 10% per observation.
func (t *Throttle) ObserveRTT(rtt time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disabled {
		return
	}

	newEMA := time.Duration(throttleEMAAlpha*float64(rtt) + (1-throttleEMAAlpha)*float64(t.emaRTT))
	t.emaRTT = newEMA

	ratio := float64(t.targetRTT) / float64(newEMA)

	var newRate float64
	if ratio < 1 {
		proposed := t.currentRate * ratio
		floor := t.currentRate * throttleBackoff
		if proposed < floor {
			newRate = floor
		} else {
			newRate = proposed
		}
	} else {
		newRate = t.currentRate * throttleRecovery
	}
	newRate = clampThrottleRate(newRate)

	if math.Abs(newRate-t.currentRate) > throttleRateEps {
		t.currentRate = newRate
		t.limiter.SetLimit(rate.Limit(newRate))
		t.limiter.SetBurst(int(math.Ceil(newRate)))
	}
}

// SetRate manually overrides the rate and disables further adaptation,
// for an operator-supplied fixed requests-per-second setting.
func (t *Throttle) SetRate(rps int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	clamped := clampThrottleRate(float64(rps))
	t.currentRate = clamped
	t.disabled = true
	t.limiter.SetLimit(rate.Limit(clamped))
	t.limiter.SetBurst(int(math.Ceil(clamped)))
}

// CurrentRate returns the throttle's current requests-per-second limit.
func (t *Throttle) CurrentRate() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return int(math.Round(t.currentRate))
}

func clampThrottleRate(rps float64) float64 {
	if rps < throttleMinRate {
		return throttleMinRate
	}
	if rps > throttleMaxRate {
		return throttleMaxRate
	}
	return rps
}
