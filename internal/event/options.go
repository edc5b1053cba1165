package event

import (
	"log/slog"

	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/trace"
)

// Defaults for raise group limits.
const (
	DefaultMaxDepth   = 64
	DefaultMaxMembers = 1024
)

type config struct {
	tracer     trace.Tracer
	clock      *Clock
	ids        RaiseIDGenerator
	maxDepth   int
	maxMembers int
	logger     *slog.Logger
}

func defaultConfig() config {
	return config{
		tracer:     trace.Discard,
		clock:      defaultClock,
		ids:        UUIDv7Generator{},
		maxDepth:   DefaultMaxDepth,
		maxMembers: DefaultMaxMembers,
	}
}

func (c config) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

// Option configures an Event. Options of the root event apply to the whole
// raise group, dependents included.
type Option func(*config)

// WithTracer sends trace entries of raises rooted at this event to t.
func WithTracer(t trace.Tracer) Option {
	return func(c *config) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithClock stamps trace entries with sequence numbers from clock.
func WithClock(clock *Clock) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithRaiseIDs sets the raise ID generator.
// Default: UUIDv7Generator.
func WithRaiseIDs(g RaiseIDGenerator) Option {
	return func(c *config) {
		if g != nil {
			c.ids = g
		}
	}
}

// WithMaxDepth limits how many dependent levels a raise may pull in.
// Default: 64 (DefaultMaxDepth). Values below 0 are treated as 0, which
// allows no dependents at all.
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		c.maxDepth = max(depth, 0)
	}
}

// WithMaxMembers limits the number of events, root included, in one raise
// group. Default: 1024 (DefaultMaxMembers).
func WithMaxMembers(n int) Option {
	return func(c *config) {
		c.maxMembers = max(n, 1)
	}
}

// WithLogger sets the logger. Default: slog.Default() at log time.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

type registerConfig struct {
	priority        Priority
	key             any
	label           string
	ignoreCancelled bool
}

// RegisterOption configures a listener registration.
type RegisterOption func(*registerConfig)

// WithPriority sets the listener priority. Default: PriorityNormal.
func WithPriority(p Priority) RegisterOption {
	return func(c *registerConfig) { c.priority = p }
}

// WithKey tags the registration so it can be removed with DeregisterKey.
// The key must be comparable. Several registrations may share a key.
func WithKey(key any) RegisterOption {
	return func(c *registerConfig) { c.key = key }
}

// WithLabel names the listener in traces and logs.
func WithLabel(label string) RegisterOption {
	return func(c *registerConfig) { c.label = label }
}

// IgnoreCancelled skips the listener while its args are cancelled.
func IgnoreCancelled() RegisterOption {
	return func(c *registerConfig) { c.ignoreCancelled = true }
}

// Cancellation selects how a dependent's cancellation relates to its
// parent's.
type Cancellation int

const (
	// SharedCancellation makes parent and dependent share one flag.
	SharedCancellation Cancellation = iota
	// UnsharedCancellation gives the dependent its own flag.
	UnsharedCancellation
)

func (c Cancellation) String() string {
	if c == UnsharedCancellation {
		return "unshared"
	}
	return "shared"
}

type dependentConfig struct {
	cancellation Cancellation
}

// DependentOption configures a dependent registration.
type DependentOption func(*dependentConfig)

// WithCancellation sets the cancellation mode. Default: SharedCancellation.
func WithCancellation(mode Cancellation) DependentOption {
	return func(c *dependentConfig) { c.cancellation = mode }
}
