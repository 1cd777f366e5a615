package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/infrastructure/cache"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// documentRow is the physical shape of a stored document.
type documentRow struct {
	Collection string         `gorm:"primaryKey;size:64;not null"`
	DocID      string         `gorm:"primaryKey;column:doc_id;size:64;not null"`
	Data       datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt  time.Time      `gorm:"not null;autoUpdateTime"`
}

func (documentRow) TableName() string {
	return "documents"
}

// changeNotice is the payload published on the change feed after every write.
type changeNotice struct {
	Collection string `json:"collection"`
	DocID      string `json:"doc_id"`
}

func changeChannel(collection string) string {
	return "docstore:changes:" + collection
}

// PostgresStore implements Store on a JSONB documents table. Every write
// publishes a notice on a per-collection redis channel; subscribers re-run
// their query and receive the full result set, matching the Store contract.
type PostgresStore struct {
	db    *Database
	redis *cache.RedisClient
	log   *logger.Logger
}

func NewPostgresStore(db *Database, redis *cache.RedisClient, log *logger.Logger) (*PostgresStore, error) {
	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate documents table: %w", err)
	}
	return &PostgresStore{db: db, redis: redis, log: log}, nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Record, error) {
	var row documentRow
	result := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}

	var rec Record
	if err := json.Unmarshal(row.Data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode document %s/%s: %w", collection, id, err)
	}
	return rec, nil
}

func (s *PostgresStore) Put(ctx context.Context, collection, id string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	row := documentRow{
		Collection: collection,
		DocID:      id,
		Data:       datatypes.JSON(data),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return err
	}

	s.publishChange(ctx, collection, id)
	return nil
}

func (s *PostgresStore) UpdateFields(ctx context.Context, collection, id string, fields Record) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode field update: %w", err)
	}

	result := s.db.WithContext(ctx).Model(&documentRow{}).
		Where("collection = ? AND doc_id = ?", collection, id).
		Updates(map[string]interface{}{
			"data":       gorm.Expr("data || ?::jsonb", string(patch)),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	s.publishChange(ctx, collection, id)
	return nil
}

func (s *PostgresStore) BatchUpdateFields(ctx context.Context, collection string, updates map[string]Record) error {
	if len(updates) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, fields := range updates {
			patch, err := json.Marshal(fields)
			if err != nil {
				return fmt.Errorf("failed to encode field update for %s: %w", id, err)
			}
			result := tx.Model(&documentRow{}).
				Where("collection = ? AND doc_id = ?", collection, id).
				Updates(map[string]interface{}{
					"data":       gorm.Expr("data || ?::jsonb", string(patch)),
					"updated_at": time.Now().UTC(),
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publishChange(ctx, collection, "")
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, collection string, filters []Filter) ([]Document, error) {
	query := s.db.WithContext(ctx).Model(&documentRow{}).Where("collection = ?", collection)

	for _, f := range filters {
		switch f.Op {
		case OpEqual:
			probe, err := json.Marshal(Record{f.Field: f.Value})
			if err != nil {
				return nil, fmt.Errorf("failed to encode filter value: %w", err)
			}
			query = query.Where("data @> ?::jsonb", string(probe))
		case OpContains:
			elem, err := json.Marshal([]interface{}{f.Value})
			if err != nil {
				return nil, fmt.Errorf("failed to encode filter value: %w", err)
			}
			query = query.Where(fmt.Sprintf("data->'%s' @> ?::jsonb", f.Field), string(elem))
		default:
			return nil, fmt.Errorf("unsupported filter op %q", f.Op)
		}
	}

	var rows []documentRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		var rec Record
		if err := json.Unmarshal(row.Data, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode document %s/%s: %w", collection, row.DocID, err)
		}
		docs = append(docs, Document{ID: row.DocID, Data: rec})
	}
	return docs, nil
}

func (s *PostgresStore) Subscribe(ctx context.Context, collection string, filters []Filter, fn func([]Document)) (func(), error) {
	docs, err := s.Query(ctx, collection, filters)
	if err != nil {
		return nil, err
	}
	fn(docs)

	subCtx, cancel := context.WithCancel(context.Background())
	go func() {
		err := s.redis.SubscribeChannel(subCtx, changeChannel(collection), func([]byte) error {
			current, err := s.Query(subCtx, collection, filters)
			if err != nil {
				s.log.Error("subscription re-query failed",
					zap.String("collection", collection),
					zap.Error(err))
				return nil
			}
			fn(current)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("change feed subscription ended",
				zap.String("collection", collection),
				zap.Error(err))
		}
	}()

	return cancel, nil
}

func (s *PostgresStore) publishChange(ctx context.Context, collection, id string) {
	notice := changeNotice{Collection: collection, DocID: id}
	if err := s.redis.PublishEvent(ctx, changeChannel(collection), notice); err != nil {
		// Writes stay durable even when the feed hiccups; subscribers catch
		// up on the next notice.
		s.log.Warn("failed to publish change notice",
			zap.String("collection", collection),
			zap.String("doc_id", id),
			zap.Error(err))
	}
}
