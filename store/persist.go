package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/leaplabs/leap-server/models"
)

// SnapshotPersister keeps one state_snapshots row per user in the cloud
// database.
type SnapshotPersister struct {
	db     *gorm.DB
	userID uint
}

// NewSnapshotPersister binds a persister to one user's snapshot row.
func NewSnapshotPersister(db *gorm.DB, userID uint) *SnapshotPersister {
	return &SnapshotPersister{db: db, userID: userID}
}

func (p *SnapshotPersister) Load() ([]byte, bool, error) {
	if p.db == nil {
		return nil, false, errors.New("database unavailable")
	}
	var snap models.StateSnapshot
	err := p.db.Where("user_id = ?", p.userID).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return snap.Data, true, nil
}

func (p *SnapshotPersister) Save(data []byte) error {
	if p.db == nil {
		return errors.New("database unavailable")
	}
	snap := models.StateSnapshot{
		UserID:  p.userID,
		Version: EnvelopeVersion,
		Data:    data,
	}
	return p.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "data", "updated_at"}),
	}).Create(&snap).Error
}

// FilePersister keeps the envelope in a local JSON file. Used standalone in
// offline mode and as the fallback behind the database.
type FilePersister struct {
	path string
}

// NewFilePersister stores snapshots under dir, one file per user.
func NewFilePersister(dir string, userID uint) *FilePersister {
	return &FilePersister{path: filepath.Join(dir, fmt.Sprintf("state-%d.json", userID))}
}

func (p *FilePersister) Load() ([]byte, bool, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (p *FilePersister) Save(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, p.path)
}

// fallbackPersister writes to the primary and falls back to the secondary
// when the primary fails, so a dead database degrades to local files
// instead of losing progress.
type fallbackPersister struct {
	primary   Persister
	secondary Persister
}

// NewFallbackPersister chains two persisters, primary first.
func NewFallbackPersister(primary, secondary Persister) Persister {
	return &fallbackPersister{primary: primary, secondary: secondary}
}

func (p *fallbackPersister) Load() ([]byte, bool, error) {
	data, ok, err := p.primary.Load()
	if err == nil && ok {
		return data, true, nil
	}
	return p.secondary.Load()
}

func (p *fallbackPersister) Save(data []byte) error {
	if err := p.primary.Save(data); err != nil {
		return p.secondary.Save(data)
	}
	// Keep the local copy fresh too so offline restarts see current data.
	_ = p.secondary.Save(data)
	return nil
}
