package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/armory-backend/pkg/pagination"
)

// Keyed rows expose the primary key used as the scan cursor.
type Keyed interface {
	PrimaryKey() uuid.UUID
}

// Page is one slice of a paginated scan. An empty NextToken means the scan is exhausted.
type Page[T any] struct {
	Items     []T
	NextToken string
}

// PageFunc fetches the page that follows token ("" for the first page).
type PageFunc[T any] func(ctx context.Context, token string) (Page[T], error)

// ReadAll follows continuation tokens until the store stops returning one.
// Any page error aborts the scan; partial results are discarded.
func ReadAll[T any](ctx context.Context, fetch PageFunc[T]) ([]T, error) {
	var (
		all   []T
		token string
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := fetch(ctx, token)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if page.NextToken == "" {
			return all, nil
		}
		if page.NextToken == token {
			return nil, fmt.Errorf("scan did not advance past token %q", token)
		}
		token = page.NextToken
	}
}

// ScanTable pages through table in primary-key order using keyset pagination.
func ScanTable[T Keyed](conn *gorm.DB, table string, pageSize int) PageFunc[T] {
	limit := pagination.NormalizeLimit(pageSize)
	return func(ctx context.Context, token string) (Page[T], error) {
		cursor, err := pagination.ParseCursor(token)
		if err != nil {
			return Page[T]{}, fmt.Errorf("scan %s: %w", table, err)
		}

		query := conn.WithContext(ctx).Table(table).Order("id ASC").Limit(pagination.LimitWithBuffer(pageSize))
		if cursor != nil {
			query = query.Where("id > ?", cursor.AfterID)
		}

		var rows []T
		if err := query.Find(&rows).Error; err != nil {
			return Page[T]{}, fmt.Errorf("scan %s: %w", table, err)
		}

		if len(rows) > limit {
			rows = rows[:limit]
			next := pagination.EncodeCursor(pagination.Cursor{AfterID: rows[limit-1].PrimaryKey()})
			return Page[T]{Items: rows, NextToken: next}, nil
		}
		return Page[T]{Items: rows}, nil
	}
}
