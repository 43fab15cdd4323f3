package alerts

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/armory-backend/internal/inventory"
	"github.com/angelmondragon/armory-backend/internal/persons"
	"github.com/angelmondragon/armory-backend/internal/thresholds"
	"github.com/angelmondragon/armory-backend/pkg/db/models"
	"github.com/angelmondragon/armory-backend/pkg/enums"
)

// Uses non-default table names to prove the evaluator reads whatever
// collections it is configured with.
func newStoreDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE stock (id TEXT PRIMARY KEY, item_id TEXT NOT NULL, caliber TEXT, rounds_available INTEGER, brand TEXT, grain_weight INTEGER, created_at DATETIME, updated_at DATETIME)`,
		`CREATE TABLE limits (id TEXT PRIMARY KEY, caliber TEXT NOT NULL, min_rounds INTEGER NOT NULL, person_id TEXT NOT NULL, enabled BOOLEAN, created_at DATETIME, updated_at DATETIME)`,
		`CREATE TABLE contacts (id TEXT PRIMARY KEY, name TEXT NOT NULL, phone TEXT, email TEXT, preferred_channel TEXT, active BOOLEAN, created_at DATETIME, updated_at DATETIME)`,
	} {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func TestEvaluateAgainstStore(t *testing.T) {
	ctx := context.Background()
	conn := newStoreDB(t)
	lots := inventory.NewRepository(conn, "stock")
	rules := thresholds.NewRepository(conn, "limits")
	people := persons.NewRepository(conn, "contacts")

	for _, rounds := range []int{120, 80} {
		l := lot("9mm", rounds)
		require.NoError(t, lots.CreateTx(conn, &l))
	}
	for i := 0; i < 5; i++ {
		l := lot(".308", 100)
		require.NoError(t, lots.CreateTx(conn, &l))
	}

	sms := enums.ChannelSMS
	person, err := people.Create(ctx, &models.Person{Name: "Dana", Phone: "+15550001111", PreferredChannel: &sms})
	require.NoError(t, err)
	_, err = rules.Create(ctx, &models.ThresholdRule{Caliber: "9mm", MinRounds: 300, PersonID: person.ID})
	require.NoError(t, err)
	_, err = rules.Create(ctx, &models.ThresholdRule{Caliber: ".308", MinRounds: 500, PersonID: person.ID})
	require.NoError(t, err)

	dispatcher := &recordingDispatcher{}
	evaluator, err := NewEvaluator(Config{PageSize: 2}, lots, rules, people, dispatcher, nil, nil)
	require.NoError(t, err)

	summary, err := evaluator.HandleBatch(ctx, modifyBatch)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Rules)
	assert.Equal(t, 1, summary.Dispatched, ".308 totals 500 which is not below 500")
	require.Len(t, dispatcher.calls, 1)
	assert.Equal(t, "+15550001111", dispatcher.calls[0].Recipient)
	assert.Contains(t, dispatcher.calls[0].Message, "200")
}
