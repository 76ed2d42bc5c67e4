package quaddna

import (
	"github.com/sonicdna/quaddna/internal/fingerprint"
	"github.com/sonicdna/quaddna/internal/match"
	"github.com/sonicdna/quaddna/internal/peaks"
	"github.com/sonicdna/quaddna/internal/spectrogram"
	"github.com/sonicdna/quaddna/internal/store"
	"github.com/sonicdna/quaddna/internal/telemetry"
	"github.com/sonicdna/quaddna/internal/verify"
)

// Config holds configuration options for the quaddna service, covering the
// pipeline's storage, decode, and scoring parameters.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// Logger is the logger instance to use. If nil, a default logger is
	// created.
	Logger *telemetry.Logger

	// Epsilon is the range-search tolerance applied per hash dimension.
	Epsilon float64

	// VerifyThreshold is vThresh: the strict-greater vScore boundary a
	// candidate must clear to be reported as a match.
	VerifyThreshold float64

	Spectrogram spectrogram.Config
	Peaks       peaks.Config
	Fingerprint fingerprint.Config
	Match       match.Config
	Verify      verify.Config

	// store lets callers inject an already-open Store.
	store *store.Store
}

// Option is a functional option for configuring the service.
type Option func(*Config)

// WithDBPath sets the database file path.
func WithDBPath(path string) Option {
	return func(c *Config) { c.DBPath = path }
}

// WithLogger sets a custom logger.
func WithLogger(log *telemetry.Logger) Option {
	return func(c *Config) { c.Logger = log }
}

// WithSampleRate overrides the spectrogram's informational sample rate.
// Nothing resamples to this value: IngestFile and QueryFile always resample
// to audiodecode.TargetSampleRate (7000 Hz), and Ingest and Query use the
// samples they are given as they are.
func WithSampleRate(rate int) Option {
	return func(c *Config) { c.Spectrogram.SampleRate = rate }
}

// WithEpsilon overrides the range-search tolerance ε.
func WithEpsilon(eps float64) Option {
	return func(c *Config) { c.Epsilon = eps }
}

// WithTolerance overrides tol/tolerance across the fingerprint generator
// and the match engine's coarse filter, keeping them in lockstep the way
// the source's single `tolerance` constant does.
func WithTolerance(tol float64) Option {
	return func(c *Config) {
		c.Fingerprint.Tolerance = tol
		c.Match.Tolerance = tol
	}
}

// WithVerifyThreshold overrides vThresh.
func WithVerifyThreshold(v float64) Option {
	return func(c *Config) { c.VerifyThreshold = v }
}

// withStore injects an already-open store, which New then uses instead of
// opening DBPath.
func withStore(st *store.Store) Option {
	return func(c *Config) { c.store = st }
}

// defaultConfig returns a Config with the reference pipeline's numeric
// defaults.
func defaultConfig() *Config {
	return &Config{
		DBPath:          "quaddna.sqlite3",
		Epsilon:         store.Epsilon,
		VerifyThreshold: 0.2,
		Spectrogram:     spectrogram.DefaultConfig(),
		Peaks:           peaks.DefaultConfig(),
		Fingerprint:     fingerprint.DefaultConfig(),
		Match:           match.DefaultConfig(),
		Verify:          verify.DefaultConfig(),
	}
}
