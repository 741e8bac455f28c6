package roster

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type recordSnapshotModel struct {
	RecordKey string         `gorm:"primaryKey;column:record_key"`
	Payload   datatypes.JSON `gorm:"column:payload"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}

func (recordSnapshotModel) TableName() string { return "record_snapshots" }

// PostgresRecordStore keeps the record set as one snapshot row, upserted
// wholesale on every write.
type PostgresRecordStore struct {
	db  *gorm.DB
	key string
}

func NewPostgresRecordStore(db *gorm.DB, key string) (*PostgresRecordStore, error) {
	if err := db.AutoMigrate(&recordSnapshotModel{}); err != nil {
		return nil, err
	}
	return &PostgresRecordStore{db: db, key: key}, nil
}

func (p *PostgresRecordStore) Get(ctx context.Context) (string, bool, error) {
	var row recordSnapshotModel
	err := p.db.WithContext(ctx).First(&row, "record_key = ?", p.key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(row.Payload), true, nil
}

func (p *PostgresRecordStore) Set(ctx context.Context, payload string) error {
	row := recordSnapshotModel{
		RecordKey: p.key,
		Payload:   datatypes.JSON(payload),
		UpdatedAt: time.Now().UTC(),
	}
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "record_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&row).Error
}
