package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
)

// recordRow is the MySQL representation of a record. The document itself is
// stored as JSON; collection, protocol, owner, status and request id are
// extracted into indexed columns on write so queries stay plain SQL while
// documents stay schemaless.
type recordRow struct {
	Path       string    `gorm:"primaryKey;column:path;size:512"`
	Collection string    `gorm:"column:collection;size:64;index"`
	ProtocolID string    `gorm:"column:protocol_id;size:64;index"`
	OwnerID    string    `gorm:"column:owner_id;size:64;index"`
	Status     string    `gorm:"column:status;size:32;index"`
	RequestID  string    `gorm:"column:request_id;size:64;index"`
	Doc        string    `gorm:"column:doc;type:longtext"`
	Rev        int64     `gorm:"column:rev"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (recordRow) TableName() string {
	return "records"
}

// GormStore is the production record store on MySQL through GORM.
type GormStore struct {
	db  *gorm.DB
	hub *hub
	now func() time.Time
}

// NewGormStore migrates the records table and returns the store.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&recordRow{}); err != nil {
		return nil, fmt.Errorf("migrate records table: %w", err)
	}
	return &GormStore{db: db, hub: newHub(), now: time.Now}, nil
}

func (s *GormStore) Get(ctx context.Context, path string) (*Record, error) {
	if _, err := parsePath(path); err != nil {
		return nil, err
	}
	var row recordRow
	err := s.db.WithContext(ctx).Where("path = ?", path).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return rowToRecord(row)
}

func (s *GormStore) Write(ctx context.Context, path string, data map[string]any, mode WriteMode, opts ...WriteOption) (*Record, error) {
	var cfg writeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	info, err := parsePath(path)
	if err != nil {
		return nil, err
	}

	var row recordRow
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		row, txErr = writeRow(tx, path, info, data, mode, cfg, s.now())
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.hub.notify(info.collection)
	return rowToRecord(row)
}

func (s *GormStore) Apply(ctx context.Context, ops ...WriteOp) ([]Record, error) {
	infos := make([]pathInfo, len(ops))
	for i, op := range ops {
		info, err := parsePath(op.Path)
		if err != nil {
			return nil, err
		}
		infos[i] = info
	}

	rows := make([]recordRow, len(ops))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		for i, op := range ops {
			row, txErr := writeRow(tx, op.Path, infos[i], op.Data, op.Mode, writeConfig{}, now)
			if txErr != nil {
				return txErr
			}
			rows[i] = row
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	for _, c := range distinctCollections(infos) {
		s.hub.notify(c)
	}

	out := make([]Record, len(rows))
	for i, row := range rows {
		rec, err := rowToRecord(row)
		if err != nil {
			return nil, err
		}
		out[i] = *rec
	}
	return out, nil
}

// writeRow upserts one record inside a transaction.
func writeRow(tx *gorm.DB, path string, info pathInfo, data map[string]any, mode WriteMode, cfg writeConfig, now time.Time) (recordRow, error) {
	var existing recordRow
	err := tx.Where("path = ?", path).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row, encErr := encodeRow(path, info, data, 1, now, now)
		if encErr != nil {
			return recordRow{}, encErr
		}
		if err := tx.Create(&row).Error; err != nil {
			return recordRow{}, err
		}
		return row, nil
	case err != nil:
		return recordRow{}, err
	}

	if cfg.knownRev > 0 && existing.Rev != cfg.knownRev {
		log.Printf("Warning: write to %s clobbers rev %d (caller last saw rev %d)", path, existing.Rev, cfg.knownRev)
	}

	doc := data
	if mode == Merge {
		var current map[string]any
		if err := json.Unmarshal([]byte(existing.Doc), &current); err != nil {
			return recordRow{}, fmt.Errorf("corrupt document at %s: %w", path, err)
		}
		for k, v := range data {
			current[k] = v
		}
		doc = current
	}

	row, err := encodeRow(path, info, doc, existing.Rev+1, existing.CreatedAt, now)
	if err != nil {
		return recordRow{}, err
	}
	if err := tx.Save(&row).Error; err != nil {
		return recordRow{}, err
	}
	return row, nil
}

func encodeRow(path string, info pathInfo, data map[string]any, rev int64, createdAt, updatedAt time.Time) (recordRow, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return recordRow{}, fmt.Errorf("encode document at %s: %w", path, err)
	}
	owner, status, requestID := indexValues(info, data)
	return recordRow{
		Path:       path,
		Collection: info.collection,
		ProtocolID: info.protocolID,
		OwnerID:    owner,
		Status:     status,
		RequestID:  requestID,
		Doc:        string(raw),
		Rev:        rev,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}, nil
}

func (s *GormStore) List(ctx context.Context, q Query) ([]Record, error) {
	if q.Collection == "" {
		return nil, ErrBadQuery
	}

	query := s.db.WithContext(ctx).Where("collection = ?", q.Collection)
	if q.ProtocolID != "" {
		query = query.Where("protocol_id = ?", q.ProtocolID)
	}
	if q.OwnerID != "" {
		query = query.Where("owner_id = ?", q.OwnerID)
	}
	if len(q.Statuses) > 0 {
		query = query.Where("status IN ?", q.Statuses)
	}
	if q.RequestID != "" {
		query = query.Where("request_id = ?", q.RequestID)
	}

	var rows []recordRow
	if err := query.Order("path").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := rowToRecord(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	applyOrder(out, q)
	return out, nil
}

func (s *GormStore) Subscribe(ctx context.Context, q Query) (<-chan Snapshot, error) {
	return liveQuery(ctx, s.hub, s.List, q)
}

func rowToRecord(row recordRow) (*Record, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(row.Doc), &data); err != nil {
		return nil, fmt.Errorf("corrupt document at %s: %w", row.Path, err)
	}
	info, err := parsePath(row.Path)
	if err != nil {
		return nil, err
	}
	return &Record{
		ID:         info.id,
		Path:       row.Path,
		Collection: row.Collection,
		Data:       normalizeData(data),
		Rev:        row.Rev,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}
