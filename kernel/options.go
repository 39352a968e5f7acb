package kernel

import "time"

// Config holds kernel construction parameters, defaulted to §6's
// configuration table and overridden via Option values.
type Config struct {
	MaxTasks          int
	PriorityLevels    int
	MaxSemaphores     int
	MaxQueues         int
	MaxTaskNameLen    int
	TickPeriod        time.Duration
	DefaultTimeSlice  uint32
	DefaultStackSize  int
	Policy            Policy
	Logger            Logger
}

func defaultConfig() Config {
	return Config{
		MaxTasks:         32,
		PriorityLevels:   16,
		MaxSemaphores:    16,
		MaxQueues:        16,
		MaxTaskNameLen:   16,
		TickPeriod:       10 * time.Millisecond,
		DefaultTimeSlice: 10,
		DefaultStackSize: 2048,
		Policy:           PolicyPriority,
		Logger:           NopLogger{},
	}
}

// Option configures a Kernel at construction time, following the same
// private-struct-plus-exported-interface shape the reference toolkit uses
// for its own loop construction options.
type Option interface{ apply(*Config) }

type optionFunc func(*Config)

func (f optionFunc) apply(c *Config) { f(c) }

// WithPolicy sets the initial scheduling policy. Default PolicyPriority.
func WithPolicy(p Policy) Option {
	return optionFunc(func(c *Config) { c.Policy = p })
}

// WithMaxTasks sets the task registry's capacity (MAX_TASKS). Default 32.
func WithMaxTasks(n int) Option {
	return optionFunc(func(c *Config) { c.MaxTasks = n })
}

// WithPriorityLevels sets the number of priority classes (P_MAX). Default 16.
func WithPriorityLevels(n int) Option {
	return optionFunc(func(c *Config) { c.PriorityLevels = n })
}

// WithMaxSemaphores sets the semaphore/mutex/event-group slot pool capacity
// (MAX_SEMAPHORES). Default 16.
func WithMaxSemaphores(n int) Option {
	return optionFunc(func(c *Config) { c.MaxSemaphores = n })
}

// WithMaxQueues sets the message-queue slot pool capacity (MAX_QUEUES).
// Default 16.
func WithMaxQueues(n int) Option {
	return optionFunc(func(c *Config) { c.MaxQueues = n })
}

// WithTickPeriod sets the wall-clock duration of one tick (SYSTEM_TICK_MS).
// Default 10ms. The kernel uses it only for MsToTicks/TicksToMs conversion;
// its clock advances purely on Tick() calls, and a timedriver is given its
// own period separately.
func WithTickPeriod(d time.Duration) Option {
	return optionFunc(func(c *Config) { c.TickPeriod = d })
}

// WithDefaultTimeSlice sets the RR policy's default slice length in ticks
// (DEFAULT_TIME_SLICE). Default 10.
func WithDefaultTimeSlice(ticks uint32) Option {
	return optionFunc(func(c *Config) { c.DefaultTimeSlice = ticks })
}

// WithLogger sets the diagnostic sink. Default is a no-op logger.
func WithLogger(l Logger) Option {
	return optionFunc(func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	})
}

func resolveOptions(opts []Option) Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(&cfg)
	}
	return cfg
}
