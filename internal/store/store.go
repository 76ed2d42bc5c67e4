// Package store persists AudioRecords, their peaks, and their quad hashes
// over gorm + glebarez/sqlite, and maintains a bulk-rebuilt 4-D spatial
// index (RTree) range-searched by the match engine.
package store

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cloudflare/circl/hash/blake2b"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/glebarez/sqlite"

	"github.com/sonicdna/quaddna/internal/ferrors"
	"github.com/sonicdna/quaddna/internal/fingerprint"
	"github.com/sonicdna/quaddna/internal/peaks"
	"github.com/sonicdna/quaddna/internal/telemetry"
)

// Epsilon is the default range-search tolerance, ε, applied per hash
// dimension.
const Epsilon = 0.01

// snapshotRowID is the single IndexSnapshotRow's primary key.
const snapshotRowID = 1

// Store wraps a gorm.DB handle over the Audio/Peak/Hash schema plus the
// in-memory spatial index rebuilt from (and persisted back to) it.
type Store struct {
	mu sync.RWMutex

	db    *gorm.DB
	sqlDB *sql.DB
	tree  *RTree
	log   *telemetry.Logger

	// digests maps a content digest (over a title's raw-quad set) to the
	// title that produced it, so a re-ingest under a different title with
	// identical acoustic content can be logged as a collision. This is a
	// supplementary cross-check; the binding idempotency rule is the
	// title-uniqueness invariant enforced by the Audios table.
	digests map[[blake2b.Size256]byte]string
}

// Open opens (or creates) the SQLite database at path, migrates the
// schema, and restores the spatial index from its persisted snapshot. A
// nil log falls back to telemetry.GetLogger().
func Open(path string, log *telemetry.Logger) (*Store, error) {
	if log == nil {
		log = telemetry.GetLogger()
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), gormConfig)
	if err != nil {
		return nil, &ferrors.StoreError{Op: "open", Err: err}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, &ferrors.StoreError{Op: "underlying sql.DB", Err: err}
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&AudioRow{}, &PeakRow{}, &HashRow{}, &IndexSnapshotRow{}); err != nil {
		sqlDB.Close()
		return nil, &ferrors.StoreError{Op: "auto migrate", Err: err}
	}

	s := &Store{db: db, sqlDB: sqlDB, log: log, digests: make(map[[blake2b.Size256]byte]string)}

	var snap IndexSnapshotRow
	err = db.First(&snap, snapshotRowID).Error
	switch {
	case err == nil:
		entries, derr := decodeIndexSnapshot(snap.Data)
		if derr != nil {
			sqlDB.Close()
			return nil, &ferrors.StoreError{Op: "decoding index snapshot", Err: derr}
		}
		s.tree = NewRTreeFromEntries(entries)
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.tree = NewRTree()
	default:
		sqlDB.Close()
		return nil, &ferrors.StoreError{Op: "loading index snapshot", Err: err}
	}

	if err := s.rehashDigests(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return s, nil
}

// rehashDigests recomputes the content-digest -> title map from the
// durable HashRows, so collision detection survives a process restart.
func (s *Store) rehashDigests() error {
	var audios []AudioRow
	if err := s.db.Find(&audios).Error; err != nil {
		return &ferrors.StoreError{Op: "loading audios for digest rebuild", Err: err}
	}
	for _, a := range audios {
		var rows []HashRow
		if err := s.db.Where("audio_id = ?", a.ID).Order("id").Find(&rows).Error; err != nil {
			return &ferrors.StoreError{Op: "loading hashes for digest rebuild", Err: err}
		}
		digest := contentDigest(rows)
		s.digests[digest] = a.Title
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ingest persists a newly fingerprinted audio under title, its peaks, and
// its quad hashes in one transaction, then updates the spatial index.
// Re-ingesting an already-known title is a no-op reported as dup=true (the
// existence check short-circuits before any row is written), matching the
// idempotent-ingest invariant.
func (s *Store) Ingest(title string, fps []fingerprint.Fingerprint, pks []peaks.Peak) (audioID uint, dup bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing AudioRow
	err = s.db.Where("title = ?", title).First(&existing).Error
	if err == nil {
		return existing.ID, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, &ferrors.StoreError{Op: "checking existing title", Err: err}
	}

	var inserted []IndexEntry

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		row := AudioRow{ExternalID: uuid.NewString(), Title: title, CreatedAt: time.Now()}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("creating audio row: %w", err)
		}
		audioID = row.ID

		peakRows := make([]PeakRow, 0, len(pks))
		seen := make(map[[2]int]bool, len(pks))
		for _, p := range pks {
			key := [2]int{p.T, p.F}
			if seen[key] {
				continue
			}
			seen[key] = true
			peakRows = append(peakRows, PeakRow{AudioID: audioID, T: p.T, F: p.F})
		}
		if len(peakRows) > 0 {
			if err := tx.CreateInBatches(peakRows, 500).Error; err != nil {
				return fmt.Errorf("inserting peaks: %w", err)
			}
		}

		hashRows := make([]HashRow, 0, len(fps))
		for _, fp := range fps {
			hashRows = append(hashRows, HashRow{
				AudioID: audioID,
				Cx:      fp.Hash.Cx, Cy: fp.Hash.Cy, Dx: fp.Hash.Dx, Dy: fp.Hash.Dy,
				AX: fp.Raw.AT, AY: fp.Raw.AF, BX: fp.Raw.BT, BY: fp.Raw.BF,
			})
		}
		if len(hashRows) > 0 {
			if err := tx.CreateInBatches(hashRows, 500).Error; err != nil {
				return fmt.Errorf("inserting hashes: %w", err)
			}
		}

		digest := contentDigest(hashRows)
		if other, collide := s.digests[digest]; collide && other != title {
			s.log.Warnf("content digest collision: %q hashes identically to already-ingested %q", title, other)
		}
		s.digests[digest] = title

		inserted = make([]IndexEntry, 0, len(hashRows))
		for _, hr := range hashRows {
			inserted = append(inserted, IndexEntry{
				HashID: hr.ID,
				Point:  Point{hr.Cx, hr.Cy, hr.Dx, hr.Dy},
			})
		}

		s.tree.Insert(inserted...)

		blob, err := encodeIndexSnapshot(s.tree.Entries())
		if err != nil {
			return fmt.Errorf("encoding index snapshot: %w", err)
		}
		snap := IndexSnapshotRow{ID: snapshotRowID, Data: blob}
		if err := tx.Save(&snap).Error; err != nil {
			return fmt.Errorf("saving index snapshot: %w", err)
		}

		return nil
	})
	if txErr != nil {
		return 0, false, &ferrors.StoreError{Op: "ingest", Err: txErr}
	}

	return audioID, false, nil
}

// HashEntry is a range-search result joined back to its owning audio.
type HashEntry struct {
	HashID  uint64
	AudioID uint
	Hash    fingerprint.Hash
	Raw     fingerprint.RawQuad
}

// RangeSearch returns every indexed HashEntry whose hash lies in the
// axis-aligned box [h_i-eps, h_i+eps] for every dimension.
func (s *Store) RangeSearch(h fingerprint.Hash, eps float64) ([]HashEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo := Point{h.Cx - eps, h.Cy - eps, h.Dx - eps, h.Dy - eps}
	hi := Point{h.Cx + eps, h.Cy + eps, h.Dx + eps, h.Dy + eps}
	hits := s.tree.RangeSearch(lo, hi)
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]uint64, len(hits))
	for i, e := range hits {
		ids[i] = e.HashID
	}

	var rows []HashRow
	if err := s.db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, &ferrors.StoreError{Op: "range search join", Err: err}
	}

	out := make([]HashEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, HashEntry{
			HashID:  r.ID,
			AudioID: r.AudioID,
			Hash:    fingerprint.Hash{Cx: r.Cx, Cy: r.Cy, Dx: r.Dx, Dy: r.Dy},
			Raw:     fingerprint.RawQuad{AT: r.AX, AF: r.AY, BT: r.BX, BF: r.BY},
		})
	}
	return out, nil
}

// PeaksInWindow returns the peaks of audioID with tLo <= t <= tHi, sorted
// ascending by t.
func (s *Store) PeaksInWindow(audioID uint, tLo, tHi int) ([]peaks.Peak, error) {
	var rows []PeakRow
	err := s.db.Where("audio_id = ? AND t >= ? AND t <= ?", audioID, tLo, tHi).
		Order("t asc, f asc").Find(&rows).Error
	if err != nil {
		return nil, &ferrors.StoreError{Op: "peaks in window", Err: err}
	}
	out := make([]peaks.Peak, len(rows))
	for i, r := range rows {
		out[i] = peaks.Peak{T: r.T, F: r.F}
	}
	return out, nil
}

// ListAudios returns every ingested AudioRecord, ordered by id.
func (s *Store) ListAudios() ([]AudioRow, error) {
	var rows []AudioRow
	if err := s.db.Order("id").Find(&rows).Error; err != nil {
		return nil, &ferrors.StoreError{Op: "list audios", Err: err}
	}
	return rows, nil
}

// TitleOf returns the title of the audio with the given id.
func (s *Store) TitleOf(audioID uint) (string, error) {
	var row AudioRow
	if err := s.db.First(&row, audioID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", &ferrors.StoreError{Op: "title of", Err: fmt.Errorf("audio %d not found", audioID)}
		}
		return "", &ferrors.StoreError{Op: "title of", Err: err}
	}
	return row.Title, nil
}

// DeleteAudio removes an AudioRecord, its peaks, and its hash entries, and
// rebuilds the spatial index. Cascading delete is part of the schema's
// lifecycle contract even though the core pipeline never exercises it.
func (s *Store) DeleteAudio(audioID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removedIDs []uint64
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		var rows []HashRow
		if err := tx.Where("audio_id = ?", audioID).Find(&rows).Error; err != nil {
			return fmt.Errorf("loading hashes to delete: %w", err)
		}
		for _, r := range rows {
			removedIDs = append(removedIDs, r.ID)
		}

		if err := tx.Where("audio_id = ?", audioID).Delete(&HashRow{}).Error; err != nil {
			return fmt.Errorf("deleting hashes: %w", err)
		}
		if err := tx.Where("audio_id = ?", audioID).Delete(&PeakRow{}).Error; err != nil {
			return fmt.Errorf("deleting peaks: %w", err)
		}
		if err := tx.Delete(&AudioRow{}, audioID).Error; err != nil {
			return fmt.Errorf("deleting audio: %w", err)
		}

		ids := make(map[uint64]bool, len(removedIDs))
		for _, id := range removedIDs {
			ids[id] = true
		}
		s.tree.Remove(ids)

		blob, err := encodeIndexSnapshot(s.tree.Entries())
		if err != nil {
			return fmt.Errorf("encoding index snapshot: %w", err)
		}
		return tx.Save(&IndexSnapshotRow{ID: snapshotRowID, Data: blob}).Error
	})
	if txErr != nil {
		return &ferrors.StoreError{Op: "delete audio", Err: txErr}
	}
	return nil
}

// contentDigest derives a content-level fingerprint over a title's raw
// quad set using BLAKE2b-256, independent of row insertion order, for the
// collision cross-check described in SPEC_FULL.md §8.
func contentDigest(rows []HashRow) [blake2b.Size256]byte {
	// Order-independent fold: XOR each row's 16-byte coordinate encoding
	// into an accumulator, then BLAKE2b the result, so re-ingesting the
	// same acoustic content under insertion-order-shuffled rows still
	// digests identically.
	var acc [16]byte
	for _, r := range rows {
		var buf [16]byte
		binary.LittleEndian.PutUint32(buf[0:4], uint32(r.AX))
		binary.LittleEndian.PutUint32(buf[4:8], uint32(r.AY))
		binary.LittleEndian.PutUint32(buf[8:12], uint32(r.BX))
		binary.LittleEndian.PutUint32(buf[12:16], uint32(r.BY))
		for i := range acc {
			acc[i] ^= buf[i]
		}
	}
	h, _ := blake2b.New256(nil)
	h.Write(acc[:])
	var out [blake2b.Size256]byte
	copy(out[:], h.Sum(nil))
	return out
}
