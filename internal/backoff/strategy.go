// Package backoff computes delays between retry attempts.
package backoff

import (
	"math/rand/v2"
	"strings"
	"time"
)

// Params bounds a backoff schedule.
type Params struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	// Jitter is the fraction of the delay added at random, clamped to [0, 1].
	Jitter float64
}

// Normalize fills zero fields with 100ms initial, 10s max and a multiplier
// of 2.
func (p Params) Normalize() Params {
	if p.Initial <= 0 {
		p.Initial = 100 * time.Millisecond
	}
	if p.Max <= 0 {
		p.Max = 10 * time.Second
	}
	if p.Max < p.Initial {
		p.Max = p.Initial
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	p.Jitter = clampJitter(p.Jitter)
	return p
}

// Strategy returns the delay before retry attempt n, counted from 0.
type Strategy interface {
	Delay(attempt int, p Params) time.Duration
}

// Exponential grows the delay by Multiplier per attempt and adds up to Jitter
// of it at random. The result never exceeds Max.
type Exponential struct{}

func (Exponential) Delay(attempt int, p Params) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// float overflow guard
	if attempt > 30 {
		attempt = 30
	}

	d := time.Duration(float64(p.Initial) * pow(p.Multiplier, attempt))
	if d < 0 || d > p.Max {
		d = p.Max
	}

	if p.Jitter > 0 {
		d += time.Duration(float64(d) * p.Jitter * rand.Float64())
		if d > p.Max {
			d = p.Max
		}
	}
	return d
}

// Decorrelated picks a delay between Initial and min(Max, Initial*3^attempt).
// It spreads retries of many clients better than Exponential.
type Decorrelated struct{}

func (Decorrelated) Delay(attempt int, p Params) time.Duration {
	if attempt <= 0 {
		return p.Initial
	}
	if attempt > 10 {
		attempt = 10
	}

	base := float64(p.Initial)
	upper := base * pow(3, attempt)
	if upper > float64(p.Max) || upper < 0 {
		upper = float64(p.Max)
	}
	if upper < base {
		upper = base
	}

	d := time.Duration(base + rand.Float64()*(upper-base))
	if d < 0 || d > p.Max {
		d = p.Max
	}
	return d
}

// ByName resolves "exponential" (also "") and "decorrelated".
func ByName(name string) (Strategy, bool) {
	switch strings.ToLower(name) {
	case "", "exponential":
		return Exponential{}, true
	case "decorrelated":
		return Decorrelated{}, true
	}
	return nil, false
}

func clampJitter(jitter float64) float64 {
	if jitter < 0 {
		return 0
	}
	if jitter > 1 {
		return 1
	}
	return jitter
}

func pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
