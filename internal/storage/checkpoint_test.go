package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertCheckpointData(t *testing.T, s *SQLiteStorage) {
	t.Helper()
	food := mustCategory(t, s, "Food", nil)
	mustCategory(t, s, "Fuel", nil)
	for i := 1; i <= 3; i++ {
		mustTransaction(t, s, service.TransactionInput{
			Date:   fmt.Sprintf("2024-01-0%d", i),
			Amount: "10",
			Splits: []service.SplitInput{split(&food, "10")},
		})
	}
	_, err := s.AddRule(context.Background(), model.Rule{
		Set:      model.Overrides{CategoryID: &food},
		Priority: model.DefaultRulePriority,
		Enabled:  true,
	})
	require.NoError(t, err)
}

func TestCheckpointManager_Create(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	insertCheckpointData(t, store)

	manager, err := store.NewCheckpointManager()
	require.NoError(t, err)

	ctx := context.Background()

	tests := []struct {
		errType     error
		name        string
		tag         string
		description string
		wantErr     bool
	}{
		{
			name:        "Create checkpoint with tag",
			tag:         "before-import",
			description: "Test checkpoint",
		},
		{
			name:        "Create checkpoint without tag",
			description: "Generated tag",
		},
		{
			name:    "Reject path traversal",
			tag:     "../invalid",
			wantErr: true,
			errType: ErrInvalidCheckpointID,
		},
		{
			name:    "Reject duplicate",
			tag:     "before-import",
			wantErr: true,
			errType: ErrCheckpointExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := manager.Create(ctx, tt.tag, tt.description)

			if tt.wantErr {
				assert.ErrorIs(t, err, tt.errType)
				return
			}

			require.NoError(t, err)
			if tt.tag != "" {
				assert.Equal(t, tt.tag, info.ID)
			} else {
				assert.Contains(t, info.ID, "checkpoint-")
			}

			assert.Equal(t, tt.description, info.Description)
			assert.Positive(t, info.FileSize)
			assert.Equal(t, 3, info.Transactions)
			assert.Equal(t, 3, info.Splits)
			assert.Equal(t, 2, info.Categories)
			assert.Equal(t, 1, info.Rules)
			assert.Equal(t, ExpectedSchemaVersion, info.SchemaVersion)
			assert.False(t, info.IsAuto)

			dir := filepath.Join(filepath.Dir(store.Path()), "checkpoints")
			_, err = os.Stat(filepath.Join(dir, info.ID+".db"))
			assert.NoError(t, err)
			_, err = os.Stat(filepath.Join(dir, info.ID+".meta.json"))
			assert.NoError(t, err)

			got, err := manager.Get(ctx, info.ID)
			require.NoError(t, err)
			assert.Equal(t, info.ID, got.ID)
		})
	}
}

func TestCheckpointManager_InMemory(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, err = store.NewCheckpointManager()
	assert.ErrorIs(t, err, ErrInMemoryDatabase)
}

func TestCheckpointManager_List(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	manager, err := store.NewCheckpointManager()
	require.NoError(t, err)
	ctx := context.Background()

	_, err = manager.Create(ctx, "checkpoint-1", "First checkpoint")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = manager.Create(ctx, "checkpoint-2", "Second checkpoint")
	require.NoError(t, err)

	checkpoints, err := manager.List(ctx)
	require.NoError(t, err)
	require.Len(t, checkpoints, 2)

	assert.Equal(t, "checkpoint-2", checkpoints[0].ID)
	assert.Equal(t, "checkpoint-1", checkpoints[1].ID)
}

func TestCheckpointManager_Restore(t *testing.T) {
	store, _ := createTestStorage(t)
	insertCheckpointData(t, store)
	ctx := context.Background()

	manager, err := store.NewCheckpointManager()
	require.NoError(t, err)

	_, err = manager.Create(ctx, "restore-test", "Checkpoint for restore test")
	require.NoError(t, err)

	_, err = store.DeleteTransaction(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, manager.Restore(ctx, "restore-test"))

	reopened, err := NewSQLiteStorage(store.Path())
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	require.NoError(t, reopened.Migrate(ctx))

	var count int
	require.NoError(t, reopened.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&count))
	assert.Equal(t, 3, count)

	err = manager.Restore(ctx, "non-existent")
	assert.ErrorIs(t, err, ErrCheckpointNotFound)
}

func TestCheckpointManager_Delete(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	manager, err := store.NewCheckpointManager()
	require.NoError(t, err)
	ctx := context.Background()

	_, err = manager.Create(ctx, "delete-test", "Checkpoint for delete test")
	require.NoError(t, err)

	require.NoError(t, manager.Delete(ctx, "delete-test"))

	checkpoints, err := manager.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, checkpoints)

	var rows int
	require.NoError(t, store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM checkpoint_metadata").Scan(&rows))
	assert.Zero(t, rows)

	assert.ErrorIs(t, manager.Delete(ctx, "delete-test"), ErrCheckpointNotFound)
	_, err = manager.Get(ctx, "delete-test")
	assert.ErrorIs(t, err, ErrCheckpointNotFound)
}

func TestCheckpointManager_IntegrityCheck(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	manager, err := store.NewCheckpointManager()
	require.NoError(t, err)
	ctx := context.Background()

	_, err = manager.Create(ctx, "integrity-test", "Checkpoint for integrity test")
	require.NoError(t, err)

	checkpointPath := filepath.Join(filepath.Dir(store.Path()), "checkpoints", "integrity-test.db")
	require.NoError(t, os.WriteFile(checkpointPath, []byte("corrupted data"), 0600))

	err = manager.Restore(ctx, "integrity-test")
	assert.ErrorIs(t, err, ErrCheckpointCorrupted)
}

func TestCheckpointManager_AutoCheckpointRetention(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	manager, err := store.NewCheckpointManager()
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < maxAutoCheckpoints+2; i++ {
		info, err := manager.AutoCheckpoint(ctx, fmt.Sprintf("seed-%d", i))
		require.NoError(t, err)
		assert.True(t, info.IsAuto)
		time.Sleep(20 * time.Millisecond)
	}
	_, err = manager.Create(ctx, "manual", "kept")
	require.NoError(t, err)

	checkpoints, err := manager.List(ctx)
	require.NoError(t, err)

	autoCount := 0
	for _, cp := range checkpoints {
		if cp.IsAuto {
			autoCount++
			assert.Contains(t, cp.Description, "Automatic checkpoint before seed-")
		}
	}
	assert.Equal(t, maxAutoCheckpoints, autoCount)
	assert.Len(t, checkpoints, maxAutoCheckpoints+1)
}
