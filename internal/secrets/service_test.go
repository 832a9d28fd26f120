package secrets

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaultkey/vaultkey/internal/common"
	"github.com/vaultkey/vaultkey/internal/cryptox"
	"github.com/vaultkey/vaultkey/internal/logging"
	secretsrepo "github.com/vaultkey/vaultkey/internal/repositories/secrets"
	"github.com/vaultkey/vaultkey/internal/store"
)

const testMasterKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func newTestService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	db, err := store.Open(context.Background(), "file:"+t.Name()+"?mode=memory&cache=shared&_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`INSERT INTO users (userId) VALUES ('alice'), ('bob')`)
	require.NoError(t, err)

	return NewService(secretsrepo.NewSQLiteRepository(db), logging.NewNopLogger()), db
}

func TestSaveAndRetrieve(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveSecret(ctx, "alice", "db/password", "s3cret", testMasterKey, nil))

	got, err := svc.RetrieveSecret(ctx, "alice", "db/password", testMasterKey)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got.Value)
	assert.Equal(t, "db/password", got.Key)
	assert.Nil(t, got.ExpiresAt)
}

func TestSaveValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name, key, value, msg string
	}{
		{"empty key", "", "v", "Key is required"},
		{"whitespace key", "   ", "v", "Key is required"},
		{"empty value", "k", "", "Value is required"},
		{"whitespace value", "k", " \t ", "Value is required"},
		{"bad key charset", "k!", "v", "Key name can only contain alphanumeric characters, underscores, hyphens, dots, and slashes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.SaveSecret(ctx, "alice", tc.key, tc.value, testMasterKey, nil)
			require.ErrorIs(t, err, common.ErrValidation)
			assert.EqualError(t, err, tc.msg)
		})
	}

	err := svc.SaveSecret(ctx, "alice", "k", "v", "short", nil)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestSaveUpsertsInPlace(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveSecret(ctx, "alice", "k", "first", testMasterKey, nil))

	expiry := time.Now().Add(time.Hour)
	require.NoError(t, svc.SaveSecret(ctx, "alice", "k", "second", testMasterKey, &expiry))

	got, err := svc.RetrieveSecret(ctx, "alice", "k", testMasterKey)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Value)
	require.NotNil(t, got.ExpiresAt)

	// Still one row: the update replaced, not duplicated.
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM secrets`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSaveUpdateClearsExpiry(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	expiry := time.Now().Add(time.Hour)
	require.NoError(t, svc.SaveSecret(ctx, "alice", "k", "v", testMasterKey, &expiry))

	// Value and expiry are fully replaced on update.
	require.NoError(t, svc.SaveSecret(ctx, "alice", "k", "v2", testMasterKey, nil))

	got, err := svc.RetrieveSecret(ctx, "alice", "k", testMasterKey)
	require.NoError(t, err)
	assert.Nil(t, got.ExpiresAt)
}

func TestRetrieveAbsentAndExpired(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RetrieveSecret(ctx, "alice", "missing", testMasterKey)
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.EqualError(t, err, "Secret not found: missing")

	past := time.Now().Add(-time.Hour)
	require.NoError(t, svc.SaveSecret(ctx, "alice", "stale", "v", testMasterKey, &past))

	_, err = svc.RetrieveSecret(ctx, "alice", "stale", testMasterKey)
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.EqualError(t, err, "Secret expired: stale")
}

func TestRetrieveWrongMasterKey(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveSecret(ctx, "alice", "k", "v", testMasterKey, nil))

	otherKey, err := cryptox.GenerateMasterKey()
	require.NoError(t, err)

	_, err = svc.RetrieveSecret(ctx, "alice", "k", otherKey)
	assert.ErrorIs(t, err, common.ErrCrypto)
}

func TestRetrieveStampsLastAccessed(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveSecret(ctx, "alice", "k", "v", testMasterKey, nil))

	_, err := svc.RetrieveSecret(ctx, "alice", "k", testMasterKey)
	require.NoError(t, err)

	var lastAccessed *string
	require.NoError(t, db.QueryRow(`SELECT lastAccessedAt FROM secrets WHERE key = 'k'`).Scan(&lastAccessed))
	assert.NotNil(t, lastAccessed)
}

func TestUserIsolation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveSecret(ctx, "alice", "shared", "alice-value", testMasterKey, nil))
	require.NoError(t, svc.SaveSecret(ctx, "bob", "shared", "bob-value", testMasterKey, nil))

	got, err := svc.RetrieveSecret(ctx, "alice", "shared", testMasterKey)
	require.NoError(t, err)
	assert.Equal(t, "alice-value", got.Value)

	got, err = svc.RetrieveSecret(ctx, "bob", "shared", testMasterKey)
	require.NoError(t, err)
	assert.Equal(t, "bob-value", got.Value)

	// Removing Alice's row leaves Bob's intact.
	require.NoError(t, svc.RemoveSecret(ctx, "alice", "shared"))
	_, err = svc.RetrieveSecret(ctx, "bob", "shared", testMasterKey)
	assert.NoError(t, err)
}

func TestRemoveAbsentFails(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.RemoveSecret(context.Background(), "alice", "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.EqualError(t, err, "Secret not found: missing")
}

func TestListReturnsMetadataOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveSecret(ctx, "alice", "k1", "v1", testMasterKey, nil))
	require.NoError(t, svc.SaveSecret(ctx, "alice", "k2", "v2", testMasterKey, nil))

	infos, err := svc.ListAllSecrets(ctx, "alice", ListFilter{})
	require.NoError(t, err)
	require.Len(t, infos, 2)
	for _, info := range infos {
		assert.NotEmpty(t, info.Key)
		assert.NotEmpty(t, info.CreatedAt)
	}
}

func TestListExpiryAndPatternFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	require.NoError(t, svc.SaveSecret(ctx, "alice", "db/prod", "v", testMasterKey, nil))
	require.NoError(t, svc.SaveSecret(ctx, "alice", "db/stale", "v", testMasterKey, &past))
	require.NoError(t, svc.SaveSecret(ctx, "alice", "api/prod", "v", testMasterKey, nil))

	infos, err := svc.ListAllSecrets(ctx, "alice", ListFilter{})
	require.NoError(t, err)
	assert.Len(t, infos, 2)

	infos, err = svc.ListAllSecrets(ctx, "alice", ListFilter{IncludeExpired: true})
	require.NoError(t, err)
	assert.Len(t, infos, 3)

	infos, err = svc.ListAllSecrets(ctx, "alice", ListFilter{IncludeExpired: true, Pattern: "db/*"})
	require.NoError(t, err)
	assert.Len(t, infos, 2)
}

func TestPurgeExpired(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	require.NoError(t, svc.SaveSecret(ctx, "alice", "stale1", "v", testMasterKey, &past))
	require.NoError(t, svc.SaveSecret(ctx, "alice", "stale2", "v", testMasterKey, &past))
	require.NoError(t, svc.SaveSecret(ctx, "alice", "live", "v", testMasterKey, nil))

	n, err := svc.PurgeExpired(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	infos, err := svc.ListAllSecrets(ctx, "alice", ListFilter{IncludeExpired: true})
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}
