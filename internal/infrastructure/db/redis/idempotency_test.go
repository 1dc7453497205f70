package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursereg/registration-system/internal/core/ports"
)

func TestIdempotencyKey_ScopedPerStudent(t *testing.T) {
	assert.Equal(t, "idem:42:abc", idempotencyKey("42", "abc"))
	assert.NotEqual(t, idempotencyKey("1", "k"), idempotencyKey("2", "k"))
}

// Runs against a live server when REDIS_TEST_ADDR is set.
func TestIdempotencyStore_LookupSave(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	ctx := context.Background()
	client, err := Connect(ctx, Config{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewIdempotencyStore(client, time.Minute)
	scope := fmt.Sprintf("test-%d", time.Now().UnixNano())
	t.Cleanup(func() { client.Del(context.Background(), idempotencyKey(scope, "k1")) })

	_, found, err := store.Lookup(ctx, scope, "k1")
	require.NoError(t, err)
	assert.False(t, found)

	first := &ports.RegistrationResult{RegistrationID: 9, CourseID: 3, Status: "registered", Message: "Successfully registered for the course"}
	require.NoError(t, store.Save(ctx, scope, "k1", first))
	require.NoError(t, store.Save(ctx, scope, "k1", &ports.RegistrationResult{RegistrationID: 10}))

	got, found, err := store.Lookup(ctx, scope, "k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, first, got)

	ttl, err := client.TTL(ctx, idempotencyKey(scope, "k1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
