package implementation

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"sloth-wake-be/internal/model"
	"sloth-wake-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWakeHistoryRepositoryAgainstPostgres(t *testing.T) {
	if err := godotenv.Load("../../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn, false)
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(&model.WakeHistory{}))

	repo := NewWakeHistoryRepository(gormDB)
	ctx := context.Background()
	sessionID := "it-" + uuid.NewString()
	released := true
	started := time.Now().UTC().Truncate(time.Millisecond)

	t.Cleanup(func() {
		gormDB.Where("session_id = ?", sessionID).Delete(&model.WakeHistory{})
	})

	require.NoError(t, repo.Insert(ctx, &model.WakeHistory{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Event:      model.WakeEventEnd,
		Phase:      "RELEASE",
		NudgeCount: 2,
		Released:   &released,
		OccurredAt: started.Add(time.Minute),
	}))
	require.NoError(t, repo.Insert(ctx, &model.WakeHistory{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Event:      model.WakeEventStart,
		Phase:      "AWAKENING",
		OccurredAt: started,
	}))

	rows, err := repo.FindBySessionID(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, model.WakeEventStart, rows[0].Event)
	assert.Nil(t, rows[0].Released)
	assert.Equal(t, model.WakeEventEnd, rows[1].Event)
	require.NotNil(t, rows[1].Released)
	assert.True(t, *rows[1].Released)
	assert.Equal(t, 2, rows[1].NudgeCount)
}
