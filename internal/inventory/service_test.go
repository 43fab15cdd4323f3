package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/armory-backend/pkg/db"
	"github.com/angelmondragon/armory-backend/pkg/db/models"
	"github.com/angelmondragon/armory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/armory-backend/pkg/errors"
	"github.com/angelmondragon/armory-backend/pkg/logger"
	"github.com/angelmondragon/armory-backend/pkg/outbox"
	"github.com/angelmondragon/armory-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/armory-backend/pkg/pagination"
)

func newInventoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`CREATE TABLE ammo_lots (
  id TEXT PRIMARY KEY,
  item_id TEXT NOT NULL,
  caliber TEXT,
  rounds_available INTEGER,
  brand TEXT,
  grain_weight INTEGER,
  created_at DATETIME,
  updated_at DATETIME
)`).Error)
	require.NoError(t, conn.Exec(`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
)`).Error)
	return conn
}

func newInventoryService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(db.Wrap(conn), NewRepository(conn, ""), outbox.NewService(outbox.NewRepository(conn), logger.Nop()), logger.Nop())
	require.NoError(t, err)
	return svc
}

func outboxBatches(t *testing.T, conn *gorm.DB) []payloads.ChangeBatch {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, conn.Order("rowid ASC").Find(&rows).Error)
	batches := make([]payloads.ChangeBatch, 0, len(rows))
	for _, row := range rows {
		assert.Equal(t, enums.EventAmmoChanged, row.EventType)
		assert.Equal(t, enums.AggregateAmmoLot, row.AggregateType)
		var batch payloads.ChangeBatch
		_, err := outbox.DecodeEnvelope(row.Payload, &batch)
		require.NoError(t, err)
		batches = append(batches, batch)
	}
	return batches
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestCreateEmitsInsert(t *testing.T) {
	ctx := context.Background()
	conn := newInventoryDB(t)
	svc := newInventoryService(t, conn)

	lot, err := svc.Create(ctx, "admin-1", LotInput{Caliber: strPtr(" 9mm "), RoundsAvailable: intPtr(120), Brand: strPtr("")})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, lot.ID)
	require.NotEqual(t, uuid.Nil, lot.ItemID)
	assert.Equal(t, "9mm", lot.CaliberKey())
	assert.Nil(t, lot.Brand)

	batches := outboxBatches(t, conn)
	require.Len(t, batches, 1)
	require.Len(t, batches[0].Records, 1)
	record := batches[0].Records[0]
	assert.Equal(t, enums.ChangeInsert, record.EventName)
	require.NotNil(t, record.NewImage)
	assert.Equal(t, 120, record.NewImage.Rounds())
	assert.Nil(t, record.OldImage)
	assert.False(t, batches[0].HasModify())
}

func TestUpdateEmitsModifyWithBothImages(t *testing.T) {
	ctx := context.Background()
	conn := newInventoryDB(t)
	svc := newInventoryService(t, conn)

	lot, err := svc.Create(ctx, "admin-1", LotInput{Caliber: strPtr("9mm"), RoundsAvailable: intPtr(120)})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "admin-1", lot.ID, LotInput{RoundsAvailable: intPtr(80)})
	require.NoError(t, err)
	assert.Equal(t, 80, updated.Rounds())
	assert.Equal(t, "9mm", updated.CaliberKey())

	stored, err := svc.Get(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, stored.Rounds())

	batches := outboxBatches(t, conn)
	require.Len(t, batches, 2)
	record := batches[1].Records[0]
	assert.Equal(t, enums.ChangeModify, record.EventName)
	assert.Equal(t, 80, record.NewImage.Rounds())
	assert.Equal(t, 120, record.OldImage.Rounds())
	assert.True(t, batches[1].HasModify())
}

func TestAdjustEmitsOneBatch(t *testing.T) {
	ctx := context.Background()
	conn := newInventoryDB(t)
	svc := newInventoryService(t, conn)

	a, err := svc.Create(ctx, "", LotInput{Caliber: strPtr("9mm"), RoundsAvailable: intPtr(500)})
	require.NoError(t, err)
	b, err := svc.Create(ctx, "", LotInput{Caliber: strPtr("9mm"), RoundsAvailable: intPtr(500)})
	require.NoError(t, err)

	lots, err := svc.Adjust(ctx, "admin-1", []Adjustment{{ID: a.ID, RoundsAvailable: 120}, {ID: b.ID, RoundsAvailable: 80}})
	require.NoError(t, err)
	require.Len(t, lots, 2)

	batches := outboxBatches(t, conn)
	require.Len(t, batches, 3)
	adjust := batches[2]
	require.Len(t, adjust.Records, 2)
	for _, record := range adjust.Records {
		assert.Equal(t, enums.ChangeModify, record.EventName)
		assert.Equal(t, 500, record.OldImage.Rounds())
	}
	assert.Equal(t, 120, adjust.Records[0].NewImage.Rounds())
	assert.Equal(t, 80, adjust.Records[1].NewImage.Rounds())
}

func TestAdjustRollsBackOnUnknownLot(t *testing.T) {
	ctx := context.Background()
	conn := newInventoryDB(t)
	svc := newInventoryService(t, conn)

	a, err := svc.Create(ctx, "", LotInput{Caliber: strPtr("9mm"), RoundsAvailable: intPtr(500)})
	require.NoError(t, err)

	_, err = svc.Adjust(ctx, "", []Adjustment{{ID: a.ID, RoundsAvailable: 10}, {ID: uuid.New(), RoundsAvailable: 10}})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	stored, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 500, stored.Rounds())
	assert.Len(t, outboxBatches(t, conn), 1)
}

func TestAdjustValidation(t *testing.T) {
	svc := newInventoryService(t, newInventoryDB(t))
	id := uuid.New()

	cases := map[string][]Adjustment{
		"empty":     nil,
		"nil id":    {{RoundsAvailable: 1}},
		"negative":  {{ID: id, RoundsAvailable: -1}},
		"duplicate": {{ID: id, RoundsAvailable: 1}, {ID: id, RoundsAvailable: 2}},
	}
	for name, adjustments := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Adjust(context.Background(), "", adjustments)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
}

func TestDeleteEmitsRemove(t *testing.T) {
	ctx := context.Background()
	conn := newInventoryDB(t)
	svc := newInventoryService(t, conn)

	lot, err := svc.Create(ctx, "", LotInput{Caliber: strPtr(".308"), RoundsAvailable: intPtr(40)})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "admin-1", lot.ID))

	_, err = svc.Get(ctx, lot.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	batches := outboxBatches(t, conn)
	require.Len(t, batches, 2)
	record := batches[1].Records[0]
	assert.Equal(t, enums.ChangeRemove, record.EventName)
	assert.Nil(t, record.NewImage)
	assert.Equal(t, 40, record.OldImage.Rounds())

	err = svc.Delete(ctx, "", lot.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestCreateRejectsNegativeRounds(t *testing.T) {
	svc := newInventoryService(t, newInventoryDB(t))
	_, err := svc.Create(context.Background(), "", LotInput{RoundsAvailable: intPtr(-5)})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestListPagesLots(t *testing.T) {
	ctx := context.Background()
	svc := newInventoryService(t, newInventoryDB(t))
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, "", LotInput{Caliber: strPtr("9mm"), RoundsAvailable: intPtr(i)})
		require.NoError(t, err)
	}

	first, err := svc.List(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.List(ctx, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Len(t, second.Items, 1)
	assert.Empty(t, second.NextCursor)

	_, err = svc.List(ctx, pagination.Params{Cursor: "%%%"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

type failingEmitter struct{}

func (failingEmitter) Emit(context.Context, *gorm.DB, outbox.DomainEvent) (string, error) {
	return "", errors.New("outbox unavailable")
}

func TestEmitFailureRollsBackWrite(t *testing.T) {
	ctx := context.Background()
	conn := newInventoryDB(t)
	svc, err := NewService(db.Wrap(conn), NewRepository(conn, ""), failingEmitter{}, nil)
	require.NoError(t, err)

	_, err = svc.Create(ctx, "", LotInput{Caliber: strPtr("9mm"), RoundsAvailable: intPtr(1)})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())

	var count int64
	require.NoError(t, conn.Table("ammo_lots").Count(&count).Error)
	assert.Zero(t, count)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	conn := newInventoryDB(t)
	_, err := NewService(nil, NewRepository(conn, ""), failingEmitter{}, nil)
	assert.Error(t, err)
	_, err = NewService(db.Wrap(conn), nil, failingEmitter{}, nil)
	assert.Error(t, err)
	_, err = NewService(db.Wrap(conn), NewRepository(conn, ""), nil, nil)
	assert.Error(t, err)
}
