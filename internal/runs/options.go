package runs

import (
	"fmt"
	"strings"
	"time"

	"github.com/dohr-michael/sheetchat/internal/config"
)

// Strategy selects how the poller waits between status checks.
type Strategy string

const (
	// StrategyInterval polls at a fixed delay and traces every poll.
	StrategyInterval Strategy = "interval"
	// StrategyBlocking polls quickly and stays silent until the run ends.
	StrategyBlocking Strategy = "blocking"
)

// Backoff selects how the delay evolves between polls.
type Backoff string

const (
	BackoffFixed       Backoff = "fixed"
	BackoffExponential Backoff = "exponential"
)

// Options configures a Poller.
type Options struct {
	Strategy    Strategy
	Interval    time.Duration
	Backoff     Backoff
	MaxInterval time.Duration
	// MaxWait bounds the total wait for one run. Zero or negative means unbounded.
	MaxWait time.Duration
}

// DefaultOptions returns the interval strategy with a fixed 5s delay and a 10m budget.
func DefaultOptions() Options {
	return Options{
		Strategy:    StrategyInterval,
		Interval:    5 * time.Second,
		Backoff:     BackoffFixed,
		MaxInterval: 30 * time.Second,
		MaxWait:     10 * time.Minute,
	}
}

// OptionsFromConfig converts the poll section of the config.
func OptionsFromConfig(cfg config.PollConfig) (Options, error) {
	opts := DefaultOptions()

	switch s := Strategy(strings.ToLower(cfg.Strategy)); s {
	case "":
	case StrategyInterval, StrategyBlocking:
		opts.Strategy = s
		if s == StrategyBlocking {
			opts.Interval = time.Second
		}
	default:
		return Options{}, fmt.Errorf("unknown poll strategy %q", cfg.Strategy)
	}

	switch b := Backoff(strings.ToLower(cfg.Backoff)); b {
	case "":
	case BackoffFixed, BackoffExponential:
		opts.Backoff = b
	default:
		return Options{}, fmt.Errorf("unknown poll backoff %q", cfg.Backoff)
	}

	if cfg.Interval > 0 {
		opts.Interval = cfg.Interval.Duration()
	}
	if cfg.MaxInterval > 0 {
		opts.MaxInterval = cfg.MaxInterval.Duration()
	}
	if cfg.MaxWait != 0 {
		opts.MaxWait = cfg.MaxWait.Duration()
	}
	return opts, nil
}

// next returns the delay to use after d.
func (o Options) next(d time.Duration) time.Duration {
	if o.Backoff != BackoffExponential {
		return d
	}
	d *= 2
	if o.MaxInterval > 0 && d > o.MaxInterval {
		d = o.MaxInterval
	}
	return d
}

func (o Options) traced() bool {
	return o.Strategy != StrategyBlocking
}
