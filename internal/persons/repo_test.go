package persons

import (
	"context"
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
)

func newPersonsDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`CREATE TABLE persons (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  phone TEXT,
  email TEXT,
  preferred_channel TEXT,
  active BOOLEAN,
  created_at DATETIME,
  updated_at DATETIME
)`).Error)
	return conn
}

func TestRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newPersonsDB(t), "persons")

	whatsapp := enums.ChannelWhatsApp
	created, err := repo.Create(ctx, &models.Person{Name: "Dana", Phone: "+15550001111", PreferredChannel: &whatsapp})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dana", found.Name)
	assert.Equal(t, enums.ChannelWhatsApp, found.Channel())
	assert.Nil(t, found.Active)
	assert.True(t, found.IsActive())

	inactive := false
	found.Active = &inactive
	found.PreferredChannel = nil
	require.NoError(t, repo.Update(ctx, found))

	reloaded, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive())
	assert.Equal(t, enums.ChannelSMS, reloaded.Channel())

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.FindByID(ctx, created.ID)
	assert.True(t, db.IsNotFound(err))
	assert.True(t, db.IsNotFound(repo.Delete(ctx, created.ID)))
	assert.True(t, db.IsNotFound(repo.Update(ctx, &models.Person{ID: uuid.New(), Name: "ghost"})))
}

func TestRepositoryPagesReadAll(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newPersonsDB(t), "persons")
	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, &models.Person{Name: fmt.Sprintf("p%d", i)})
		require.NoError(t, err)
	}

	first, err := repo.Pages(2)(ctx, "")
	require.NoError(t, err)
	assert.Len(t, first.Items, 2)
	assert.NotEmpty(t, first.NextToken)

	all, err := db.ReadAll(ctx, repo.Pages(2))
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
