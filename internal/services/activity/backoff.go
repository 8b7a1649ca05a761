package activity

import "time"

type BackoffConfig struct {
	Step1 time.Duration // default: 30 seconds
	Step2 time.Duration // default: 1 minute
	Step3 time.Duration // default: 5 minutes
	Step4 time.Duration // default: 15 minutes
}

func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Step1: 30 * time.Second,
		Step2: 1 * time.Minute,
		Step3: 5 * time.Minute,
		Step4: 15 * time.Minute,
	}
}

type Backoff struct {
	cfg BackoffConfig
}

func NewBackoff(cfg BackoffConfig) *Backoff {
	def := DefaultBackoffConfig()
	if cfg.Step1 <= 0 {
		cfg.Step1 = def.Step1
	}
	if cfg.Step2 <= 0 {
		cfg.Step2 = def.Step2
	}
	if cfg.Step3 <= 0 {
		cfg.Step3 = def.Step3
	}
	if cfg.Step4 <= 0 {
		cfg.Step4 = def.Step4
	}
	return &Backoff{cfg: cfg}
}

// Delay returns the pause after the given number of consecutive failures.
func (b *Backoff) Delay(failures int) time.Duration {
	switch {
	case failures <= 1:
		return b.cfg.Step1
	case failures == 2:
		return b.cfg.Step2
	case failures == 3:
		return b.cfg.Step3
	default:
		return b.cfg.Step4
	}
}
