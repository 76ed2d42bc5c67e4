// Package quaddna implements the quad-based geometric audio fingerprinting
// pipeline: spectrogram -> peak extraction -> quad fingerprinting -> spatial
// index -> coarse match filter -> peak-level verification.
package quaddna

import (
	"context"
	"fmt"

	"github.com/sonicdna/quaddna/internal/audiodecode"
	"github.com/sonicdna/quaddna/internal/ferrors"
	"github.com/sonicdna/quaddna/internal/fingerprint"
	"github.com/sonicdna/quaddna/internal/match"
	"github.com/sonicdna/quaddna/internal/peaks"
	"github.com/sonicdna/quaddna/internal/spectrogram"
	"github.com/sonicdna/quaddna/internal/store"
	"github.com/sonicdna/quaddna/internal/telemetry"
	"github.com/sonicdna/quaddna/internal/verify"
)

// Result is what Query returns: the identified title (or "No Match"), the
// winning candidate's vote count, its estimated reference-frame offset, and
// its verification score.
type Result struct {
	Title        string
	NMatches     int
	OffsetFrames int32
	VScore       float64
}

// NoMatch is the sentinel title returned when no candidate clears
// VerifyThreshold. This is a lawful outcome, not an error.
const NoMatch = "No Match"

// Service is the library-style API: Ingest registers a reference clip,
// Query searches for the best-matching reference against a clip.
type Service struct {
	store *store.Store
	log   *telemetry.Logger
	cfg   *Config
}

// New opens (or creates) the fingerprint store at cfg.DBPath and returns a
// ready-to-use Service.
func New(opts ...Option) (*Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.GetLogger()
	}

	st := cfg.store
	if st == nil {
		var err error
		st, err = store.Open(cfg.DBPath, cfg.Logger)
		if err != nil {
			return nil, err
		}
	}

	return &Service{store: st, log: cfg.Logger, cfg: cfg}, nil
}

// Close releases the service's store handle.
func (s *Service) Close() error {
	return s.store.Close()
}

// Ingest computes the quad fingerprints of samples (mono float64 at
// Config.Spectrogram.SampleRate) and persists them under title. Re-ingesting
// an already-known title is a logged no-op, per the idempotent-ingest
// invariant.
func (s *Service) Ingest(ctx context.Context, samples []float64, title string) error {
	fps, pks, err := s.fingerprintClip(samples)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	_, dup, err := s.store.Ingest(title, fps, pks)
	if err != nil {
		return err
	}
	if dup {
		s.log.Infof("ingest %q: already present, no-op", title)
		return nil
	}
	s.log.Infof("ingested %q: %d peaks, %d hashes", title, len(pks), len(fps))
	return nil
}

// IngestFile decodes a WAV file from disk and ingests it under title.
func (s *Service) IngestFile(ctx context.Context, path, title string) error {
	samples, err := audiodecode.DecodeFile(path)
	if err != nil {
		return err
	}
	return s.Ingest(ctx, samples, title)
}

// Query computes the quad fingerprints of samples, range-searches the
// store, filters and ranks candidates, and verifies the top one. It returns
// Result{Title: NoMatch} (not an error) when no candidate clears
// VerifyThreshold.
func (s *Service) Query(ctx context.Context, samples []float64) (Result, error) {
	fps, pks, err := s.fingerprintClip(samples)
	if err != nil {
		return Result{}, err
	}

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	candidates, err := match.Run(s.store, fps, s.cfg.Epsilon, s.cfg.Match)
	if err != nil {
		return Result{}, err
	}
	if len(candidates) == 0 {
		return Result{Title: NoMatch}, nil
	}

	top := candidates[0]
	vr, err := verify.Candidate(s.store, top, pks, s.cfg.Verify)
	if err != nil {
		return Result{}, err
	}

	if vr.VScore <= s.cfg.VerifyThreshold {
		return Result{Title: NoMatch}, nil
	}

	title, err := s.store.TitleOf(vr.AudioID)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Title:        title,
		NMatches:     vr.NMatches,
		OffsetFrames: int32(vr.Offset),
		VScore:       vr.VScore,
	}, nil
}

// AudioRecord is one entry returned by ListAudios.
type AudioRecord struct {
	ID    uint
	Title string
}

// ListAudios returns every ingested AudioRecord.
func (s *Service) ListAudios() ([]AudioRecord, error) {
	rows, err := s.store.ListAudios()
	if err != nil {
		return nil, err
	}
	out := make([]AudioRecord, len(rows))
	for i, r := range rows {
		out[i] = AudioRecord{ID: r.ID, Title: r.Title}
	}
	return out, nil
}

// DeleteAudio removes an ingested audio record, its peaks, and its hash
// entries.
func (s *Service) DeleteAudio(audioID uint) error {
	return s.store.DeleteAudio(audioID)
}

// QueryFile decodes a WAV file from disk and queries it.
func (s *Service) QueryFile(ctx context.Context, path string) (Result, error) {
	samples, err := audiodecode.DecodeFile(path)
	if err != nil {
		return Result{}, err
	}
	return s.Query(ctx, samples)
}

// fingerprintClip runs the spectrogram -> peaks -> quad-fingerprint stages
// shared by Ingest and Query.
func (s *Service) fingerprintClip(samples []float64) ([]fingerprint.Fingerprint, []peaks.Peak, error) {
	S, err := spectrogram.Compute(samples, s.cfg.Spectrogram)
	if err != nil {
		return nil, nil, err
	}

	pks := peaks.Extract(S, s.cfg.Peaks)
	if len(pks) < 4 {
		return nil, nil, &ferrors.InputError{Msg: fmt.Sprintf("insufficient peaks: got %d, need at least 4", len(pks))}
	}

	fps := fingerprint.Generate(S, pks, s.cfg.Fingerprint)
	return fps, pks, nil
}
