package lostfound

import "go.uber.org/zap"

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	redis     bool
	addrs     []string
	password  string
	seed      bool
	demo      bool
	embedder  Embedder
	annotator Annotator
	logger    *zap.Logger
}

// WithRedis stores items in Redis at the given addresses.
func WithRedis(addrs ...string) Option {
	return func(c *clientConfig) {
		c.redis = true
		c.addrs = addrs
	}
}

// WithPassword sets the Redis password.
func WithPassword(password string) Option {
	return func(c *clientConfig) { c.password = password }
}

// WithSeed toggles the sample found items of a fresh store (default on).
func WithSeed(enabled bool) Option {
	return func(c *clientConfig) { c.seed = enabled }
}

// WithDemoMatch forces the first stored item to the top of every ranking (default off).
func WithDemoMatch(enabled bool) Option {
	return func(c *clientConfig) { c.demo = enabled }
}

// WithEmbedder enables the image embedding signal.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) { c.embedder = e }
}

// WithAnnotator enables image annotation for queries, new items and lookups.
func WithAnnotator(a Annotator) Option {
	return func(c *clientConfig) { c.annotator = a }
}

// WithLogger sets the logger (default: no-op).
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// MatchOption configures a single Match call.
type MatchOption func(*matchConfig)

type matchConfig struct {
	lookup    bool
	questions bool
	limit     int
}

// Lookup annotates items without an embedding on demand instead of trusting stored labels.
func Lookup() MatchOption {
	return func(c *matchConfig) { c.lookup = true }
}

// WithQuestions returns verification questions when the top match is high risk.
func WithQuestions() MatchOption {
	return func(c *matchConfig) { c.questions = true }
}

// Limit caps the returned matches.
func Limit(n int) MatchOption {
	return func(c *matchConfig) { c.limit = n }
}
