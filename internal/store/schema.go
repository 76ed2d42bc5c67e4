package store

import "time"

// AudioRow is the `Audios` table: unique by title.
type AudioRow struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	ExternalID string `gorm:"uniqueIndex;size:36"`
	Title      string `gorm:"uniqueIndex" json:"title"`
	CreatedAt  time.Time
}

func (AudioRow) TableName() string { return "audios" }

// PeakRow is one entry of the `Peaks` table; primary key is the
// (audio_id, t, f) triple, enforcing the per-audio peak uniqueness
// invariant at the schema level.
type PeakRow struct {
	AudioID uint `gorm:"primaryKey;autoIncrement:false"`
	T       int  `gorm:"primaryKey;autoIncrement:false"`
	F       int  `gorm:"primaryKey;autoIncrement:false"`
}

func (PeakRow) TableName() string { return "peaks" }

// HashRow stores both the `Hashes` spatial coordinates and the `Quads`
// raw-coordinate row, keyed by the same hash_id, matching the 1:1
// Quads.hash_id -> Hashes.id relationship in §6. The 4-D spatial index
// (RTree) is the fast path for range queries and is restored from
// IndexSnapshotRow, not from this table; range-search hits are joined back
// to these rows by ID.
type HashRow struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	AudioID uint   `gorm:"index:idx_hash_audio"`

	Cx float64
	Cy float64
	Dx float64
	Dy float64

	AX int
	AY int
	BX int
	BY int
}

func (HashRow) TableName() string { return "hashes" }

// IndexSnapshotRow persists a compressed, serialized copy of the in-memory
// RTree so Open restores the index from this one blob instead of from the
// HashRows table. There is at most one row (ID=1); it is overwritten on
// every ingest and delete.
type IndexSnapshotRow struct {
	ID   uint `gorm:"primaryKey"`
	Data []byte
}

func (IndexSnapshotRow) TableName() string { return "index_snapshot" }
