// Package sampler draws random sets of distinct clips from the audio corpus.
//
// A draw picks a file uniformly among those long enough for the requested
// clip length, then a start offset uniformly on a fixed grid within that
// file. Drawing a (file, start, stop) triple already drawn counts as a
// failure; failures accumulate across the whole request and the loop stops
// once they reach the threshold. Returning fewer clips than requested is a
// normal outcome, not an error.
package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"audioserver/internal/catalog"
	"audioserver/internal/config"
	"audioserver/internal/logging"
	"audioserver/internal/services"
)

const (
	component               = "sampler"
	DefaultResolution       = 0.01
	DefaultFailureThreshold = 5
)

// CorpusSource lists the files a clip of minDuration seconds fits in.
type CorpusSource interface {
	ListEligible(ctx context.Context, minDuration float64) ([]catalog.SourceFile, error)
}

// Resolver turns a drawn triple into a stable clip.
type Resolver interface {
	ResolveRange(ctx context.Context, file catalog.SourceFile, rng catalog.Range) (catalog.Clip, error)
}

// Candidate is one accepted draw before identity resolution.
type Candidate struct {
	File  catalog.SourceFile
	Range catalog.Range
}

// Outcome summarizes a draw loop.
type Outcome struct {
	Candidates []Candidate
	Requested  int
	Failures   int
	CorpusSize int
}

// Short reports whether fewer clips were drawn than requested.
func (o Outcome) Short() bool {
	return len(o.Candidates) < o.Requested
}

// Options configures a Sampler.
type Options struct {
	// Resolution is the start-offset grid in seconds.
	Resolution       float64
	FailureThreshold int
	// Rand overrides the random source; tests pass a seeded generator.
	Rand   *rand.Rand
	Logger *slog.Logger
}

// Sampler draws clip sets.
type Sampler struct {
	corpus    CorpusSource
	resolver  Resolver
	resMs     int64
	threshold int
	logger    *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New constructs a Sampler. Non-positive options fall back to the defaults.
func New(corpus CorpusSource, resolver Resolver, opts Options) *Sampler {
	resMs := catalog.Millis(opts.Resolution)
	if resMs <= 0 {
		resMs = catalog.Millis(DefaultResolution)
	}
	threshold := opts.FailureThreshold
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	rng := opts.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Sampler{
		corpus:    corpus,
		resolver:  resolver,
		resMs:     resMs,
		threshold: threshold,
		logger:    logging.NewComponentLogger(opts.Logger, component),
		rng:       rng,
	}
}

// NewFromConfig wires a Sampler with the configured resolution and threshold.
func NewFromConfig(cfg *config.Config, corpus CorpusSource, resolver Resolver, logger *slog.Logger) *Sampler {
	return New(corpus, resolver, Options{
		Resolution:       cfg.Sampling.Resolution,
		FailureThreshold: cfg.Sampling.FailureThreshold,
		Logger:           logger,
	})
}

// Sample draws up to targetCount distinct clips of clipLength seconds and
// resolves each through the identity store, in draw order.
func (s *Sampler) Sample(ctx context.Context, targetCount int, clipLength float64) ([]catalog.Clip, error) {
	outcome, err := s.Draw(ctx, targetCount, clipLength)
	if err != nil {
		return nil, err
	}
	clips := make([]catalog.Clip, 0, len(outcome.Candidates))
	for _, cand := range outcome.Candidates {
		clip, err := s.resolver.ResolveRange(ctx, cand.File, cand.Range)
		if err != nil {
			return nil, err
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

// Draw runs the bounded draw loop without resolving identities.
func (s *Sampler) Draw(ctx context.Context, targetCount int, clipLength float64) (Outcome, error) {
	outcome := Outcome{Requested: max(targetCount, 0)}
	if targetCount <= 0 {
		return outcome, nil
	}
	clipMs := catalog.Millis(clipLength)
	if clipMs <= 0 {
		return outcome, services.Wrap(services.ErrInvalidRange, component, "draw",
			fmt.Sprintf("clip length %v must be positive", clipLength), nil)
	}

	corpus, err := s.corpus.ListEligible(ctx, clipLength)
	if err != nil {
		return outcome, services.Wrap(nil, component, "draw", "list eligible files", err)
	}
	eligible := corpus[:0:0]
	for _, file := range corpus {
		if file.DurationMs() >= clipMs {
			eligible = append(eligible, file)
		}
	}
	outcome.CorpusSize = len(eligible)
	if len(eligible) == 0 {
		s.logShort(ctx, outcome, clipMs, "no file is long enough")
		return outcome, nil
	}

	draws := s.fork()
	seen := make(map[catalog.ClipKey]struct{}, targetCount)
	for len(outcome.Candidates) < targetCount && outcome.Failures < s.threshold {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		file := eligible[draws.IntN(len(eligible))]
		steps := (file.DurationMs() - clipMs) / s.resMs
		startMs := draws.Int64N(steps+1) * s.resMs
		rng := catalog.Range{StartMs: startMs, StopMs: startMs + clipMs}

		key := catalog.ClipKey{FileID: file.ID, Range: rng}
		if _, dup := seen[key]; dup {
			outcome.Failures++
			continue
		}
		seen[key] = struct{}{}
		outcome.Candidates = append(outcome.Candidates, Candidate{File: file, Range: rng})
	}

	if outcome.Short() {
		s.logShort(ctx, outcome, clipMs, "duplicate draws reached the failure threshold")
	}
	return outcome, nil
}

// fork seeds a generator for one draw loop from the shared source, so
// concurrent requests only contend for the two seed words.
func (s *Sampler) fork() *rand.Rand {
	s.mu.Lock()
	seed1, seed2 := s.rng.Uint64(), s.rng.Uint64()
	s.mu.Unlock()
	return rand.New(rand.NewPCG(seed1, seed2))
}

func (s *Sampler) logShort(ctx context.Context, outcome Outcome, clipMs int64, reason string) {
	attrs := logging.DecisionAttrs("sampling_budget", "insufficient_corpus", reason)
	attrs = append(attrs,
		logging.Int("requested", outcome.Requested),
		logging.Int("drawn", len(outcome.Candidates)),
		logging.Int("failures", outcome.Failures),
		logging.Int("corpus_files", outcome.CorpusSize),
		logging.String("clip_length", catalog.FormatOffset(clipMs)))
	logging.WithContext(ctx, s.logger).Info("sampled fewer clips than requested", logging.Args(attrs...)...)
}
