package auth

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaultkey/vaultkey/internal/common"
	"github.com/vaultkey/vaultkey/internal/logging"
	"github.com/vaultkey/vaultkey/internal/repositories/tokens"
	"github.com/vaultkey/vaultkey/internal/store"
)

func newTestManager(t *testing.T) (*TokenManager, *sql.DB) {
	t.Helper()
	db, err := store.Open(context.Background(), "file:"+t.Name()+"?mode=memory&cache=shared&_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`INSERT INTO users (userId) VALUES ('alice'), ('bob')`)
	require.NoError(t, err)

	return NewTokenManager(tokens.NewSQLiteRepository(db), logging.NewNopLogger()), db
}

func TestIssueTokenShape(t *testing.T) {
	m, _ := newTestManager(t)

	issued, err := m.IssueToken(context.Background(), "alice", time.Hour, 5)
	require.NoError(t, err)

	assert.Len(t, issued.Token, 64)
	assert.Regexp(t, "^[a-f0-9]{64}$", issued.Token)
	assert.Regexp(t, "^[a-f0-9]{64}$", issued.TokenHash)
	assert.NotEqual(t, issued.Token, issued.TokenHash)

	expiry, err := common.ParseTime(issued.ExpiresAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), expiry, 5*time.Second)
}

func TestIssueTokenRejectsBadUserID(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.IssueToken(context.Background(), "", time.Hour, 5)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestVerifyTokenRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	issued, err := m.IssueToken(ctx, "alice", time.Hour, 5)
	require.NoError(t, err)

	userID, err := m.VerifyToken(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", userID)

	// Verification stamps lastUsedAt.
	listed, err := m.ListTokens(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.NotNil(t, listed[0].LastUsedAt)
}

func TestVerifyTokenFailsUniformly(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	expired, err := m.IssueToken(ctx, "alice", -time.Minute, 5)
	require.NoError(t, err)

	revoked, err := m.IssueToken(ctx, "alice", time.Hour, 5)
	require.NoError(t, err)
	require.NoError(t, m.InvalidateToken(ctx, revoked.Token))

	cases := map[string]string{
		"malformed": "not-a-token",
		"uppercase": "ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789",
		"unknown":   "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		"expired":   expired.Token,
		"revoked":   revoked.Token,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := m.VerifyToken(ctx, token)
			require.ErrorIs(t, err, common.ErrAuthentication)
			assert.EqualError(t, err, "Invalid token")
		})
	}
}

func TestIssueTokenEvictsOldestAtCapacity(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	var issued []*IssuedToken
	for i := 0; i < 6; i++ {
		tok, err := m.IssueToken(ctx, "alice", time.Hour, 3)
		require.NoError(t, err)
		issued = append(issued, tok)
	}

	n, err := m.repo.CountValid(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// The three newest grants survive; the three oldest were evicted.
	for i, tok := range issued {
		_, err := m.VerifyToken(ctx, tok.Token)
		if i < 3 {
			assert.Error(t, err, "token %d should be evicted", i)
		} else {
			assert.NoError(t, err, "token %d should survive", i)
		}
	}
}

func TestCapacityIsPerUser(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	aliceTok, err := m.IssueToken(ctx, "alice", time.Hour, 1)
	require.NoError(t, err)

	// Bob filling his own cap must not evict Alice.
	for i := 0; i < 3; i++ {
		_, err := m.IssueToken(ctx, "bob", time.Hour, 1)
		require.NoError(t, err)
	}

	_, err = m.VerifyToken(ctx, aliceTok.Token)
	assert.NoError(t, err)
}

func TestExpiredTokensDoNotHoldCapacity(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := m.IssueToken(ctx, "alice", -time.Minute, 3)
		require.NoError(t, err)
	}

	// Cap counts valid tokens only, so no eviction happens here.
	tok, err := m.IssueToken(ctx, "alice", time.Hour, 3)
	require.NoError(t, err)

	_, err = m.VerifyToken(ctx, tok.Token)
	assert.NoError(t, err)
}

func TestInvalidateTokenIsIdempotent(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	issued, err := m.IssueToken(ctx, "alice", time.Hour, 5)
	require.NoError(t, err)

	require.NoError(t, m.InvalidateToken(ctx, issued.Token))
	require.NoError(t, m.InvalidateToken(ctx, issued.Token))

	unknown := fmt.Sprintf("%064x", 0)
	assert.NoError(t, m.InvalidateToken(ctx, unknown))

	// A malformed token is not an error either; its hash matches no row.
	assert.NoError(t, m.InvalidateToken(ctx, "not-a-token"))
	assert.NoError(t, m.InvalidateToken(ctx, ""))
}

func TestInvalidateAllForUser(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	var issued []*IssuedToken
	for i := 0; i < 3; i++ {
		tok, err := m.IssueToken(ctx, "alice", time.Hour, 5)
		require.NoError(t, err)
		issued = append(issued, tok)
	}
	bobTok, err := m.IssueToken(ctx, "bob", time.Hour, 5)
	require.NoError(t, err)

	n, err := m.InvalidateAllForUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	for _, tok := range issued {
		_, err := m.VerifyToken(ctx, tok.Token)
		assert.ErrorIs(t, err, common.ErrAuthentication)
	}
	_, err = m.VerifyToken(ctx, bobTok.Token)
	assert.NoError(t, err)
}
