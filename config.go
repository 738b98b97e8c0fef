package ripple

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Config collects the runtime's tunables. It follows the
// teacher's Config-struct-with-defaults shape (utils.Config /
// utils.DefaultConfig in the pong game) rather than a flag-driven setup,
// since this is a library, not a CLI.
type Config struct {
	NumWorkers             int           `yaml:"numWorkers"`
	MailboxCapacity        int           `yaml:"mailboxCapacity"`
	WorkerRunqueueCapacity int           `yaml:"workerRunqueueCapacity"`
	Throughput             int           `yaml:"throughput"`
	ThroughputDeadline     time.Duration `yaml:"throughputDeadline"`
	DefaultAffinity        bool          `yaml:"defaultAffinity"`
}

const (
	defaultMailboxCapacity        = 1000
	defaultWorkerRunqueueCapacity = 1000
	defaultThroughput             = 8
)

// DefaultConfig returns the runtime's defaults: no deadline, affinity on,
// capacity 1000 throughout, throughput 8 messages per worker visit, and
// NumWorkers 1. NewActorSystem replaces NumWorkers with its numWorkers
// argument.
func DefaultConfig() Config {
	return Config{
		NumWorkers:             1,
		MailboxCapacity:        defaultMailboxCapacity,
		WorkerRunqueueCapacity: defaultWorkerRunqueueCapacity,
		Throughput:             defaultThroughput,
		ThroughputDeadline:     0, // disabled
		DefaultAffinity:        true,
	}
}

// LoadConfig decodes a Config from YAML, starting from DefaultConfig so a
// partial document only overrides the fields it mentions.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, err
	}
	return cfg, nil
}

// Option mutates a Config at ActorSystem construction time.
type Option func(*Config)

// WithWorkers sets the number of worker threads (goroutines). Each
// worker's logical CPU index is its own index modulo runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(c *Config) { c.NumWorkers = n }
}

// WithMailboxCapacity overrides the per-cell mailbox bound.
func WithMailboxCapacity(n int) Option {
	return func(c *Config) { c.MailboxCapacity = n }
}

// WithWorkerRunqueueCapacity overrides the per-worker runqueue bound.
func WithWorkerRunqueueCapacity(n int) Option {
	return func(c *Config) { c.WorkerRunqueueCapacity = n }
}

// WithThroughput overrides the max messages processed per worker visit.
func WithThroughput(n int) Option {
	return func(c *Config) { c.Throughput = n }
}

// WithThroughputDeadline overrides the wall-clock ceiling per worker
// visit. A zero or negative duration disables the deadline.
func WithThroughputDeadline(d time.Duration) Option {
	return func(c *Config) { c.ThroughputDeadline = d }
}

// WithDefaultAffinity overrides whether newly created cells stick to the
// first worker that runs them.
func WithDefaultAffinity(b bool) Option {
	return func(c *Config) { c.DefaultAffinity = b }
}
