package typing

import (
	"math/rand"
	"time"
)

// TimingPolicy computes the delay before the next character event.
type TimingPolicy struct {
	typing   time.Duration
	deleting time.Duration
	pause    time.Duration
	initial  time.Duration
	variable *Range
	rng      *rand.Rand
}

// NewTimingPolicy snapshots the timing fields of cfg. A nil rng is replaced
// by a time-seeded source.
func NewTimingPolicy(cfg Config, rng *rand.Rand) *TimingPolicy {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	policy := &TimingPolicy{rng: rng}
	policy.update(cfg)
	return policy
}

func (p *TimingPolicy) update(cfg Config) {
	cfg = cfg.Normalize()
	p.typing = cfg.TypingSpeed
	p.deleting = cfg.DeletingSpeed
	p.pause = cfg.PauseDuration
	p.initial = cfg.InitialDelay
	p.variable = cfg.VariableSpeed
}

// NextTypingDelay samples the variable range when one is set, otherwise it
// returns the fixed typing speed.
func (p *TimingPolicy) NextTypingDelay() time.Duration {
	if p.variable != nil {
		return p.variable.Random(p.rng)
	}
	return p.typing
}

// NextDeletingDelay is always the fixed deleting speed; variable speed only
// affects typing.
func (p *TimingPolicy) NextDeletingDelay() time.Duration {
	return p.deleting
}

func (p *TimingPolicy) Pause() time.Duration {
	return p.pause
}

func (p *TimingPolicy) InitialDelay() time.Duration {
	return p.initial
}
