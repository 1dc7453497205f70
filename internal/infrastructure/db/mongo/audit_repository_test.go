package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursereg/registration-system/internal/core/domain"
)

// Runs against a live server when MONGO_TEST_URI is set.
func TestAuditRepository_RoundTrip(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx := context.Background()
	client, db, err := Connect(ctx, Config{URI: uri, Database: fmt.Sprintf("coursereg_test_%d", time.Now().UnixNano())})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	repo := NewAuditRepository(db)
	require.NoError(t, repo.EnsureIndexes(ctx))

	base := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	actions := []domain.LedgerAction{domain.ActionRegistered, domain.ActionDropped, domain.ActionRestored}
	// Inserted out of order to exercise the sort.
	for _, i := range []int{2, 0, 1} {
		require.NoError(t, repo.Insert(ctx, &domain.RegistrationEvent{
			RegistrationID: 7,
			StudentID:      3,
			CourseID:       1,
			Action:         actions[i],
			ActorID:        3,
			ActorRole:      domain.RoleStudent,
			OccurredAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Insert(ctx, &domain.RegistrationEvent{RegistrationID: 8, Action: domain.ActionRegistered, OccurredAt: base}))

	events, err := repo.ListByRegistration(ctx, 7)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, e := range events {
		assert.Equal(t, actions[i], e.Action)
	}

	none, err := repo.ListByRegistration(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, none)
}
