package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"imbridge/internal/model"
	"imbridge/pkg/metrics"
	"imbridge/pkg/otel"
)

type FailedItemRepository struct {
	db *pgxpool.Pool
}

func NewFailedItemRepository(db *pgxpool.Pool) *FailedItemRepository {
	return &FailedItemRepository{db: db}
}

// Create 记录一条处理失败的批次条目
func (r *FailedItemRepository) Create(ctx context.Context, item *model.FailedItem) error {
	query := `
		INSERT INTO failed_items (batch_kind, item_id, status, error, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("insert", "failed_items", time.Since(start))
	}()

	return otel.DBExec(ctx, "insert", query, func(ctx context.Context) error {
		var payload any
		if len(item.Payload) > 0 {
			payload = item.Payload
		}
		return r.db.QueryRow(ctx, query,
			item.BatchKind, item.ItemID, item.Status, item.Error, payload,
		).Scan(&item.ID, &item.CreatedAt)
	})
}

// ListRecent 按时间倒序返回最近的失败条目，batchKind 为空时不过滤
func (r *FailedItemRepository) ListRecent(ctx context.Context, batchKind string, limit int) ([]model.FailedItem, error) {
	query := `
		SELECT id, batch_kind, item_id, status, error, COALESCE(payload, 'null'::jsonb), created_at
		FROM failed_items
		WHERE $1 = '' OR batch_kind = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("select", "failed_items", time.Since(start))
	}()

	var items []model.FailedItem
	err := otel.DBExec(ctx, "select", query, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, batchKind, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var it model.FailedItem
			if err := rows.Scan(&it.ID, &it.BatchKind, &it.ItemID, &it.Status, &it.Error, &it.Payload, &it.CreatedAt); err != nil {
				return err
			}
			items = append(items, it)
		}
		return rows.Err()
	})
	return items, err
}
