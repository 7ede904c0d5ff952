package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueValidateRevoke(t *testing.T) {
	ctx := context.Background()
	svc := New("test-secret", nil)

	token, err := svc.IssueToken(ctx, "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	user, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "admin", user)

	require.NoError(t, svc.RevokeToken(ctx, token))

	_, err = svc.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrRevokedToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	svc := New("test-secret", nil)

	for _, token := range []string{"", "not.a.jwt", "aaaa.bbbb.cccc"} {
		_, err := svc.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", token)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	ctx := context.Background()
	issuer := New("secret-one", nil)
	verifier := New("secret-two", nil)

	token, err := issuer.IssueToken(ctx, "admin")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsTokenMissingFromWhitelist(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	issuer := New("shared-secret", kv)

	token, err := issuer.IssueToken(ctx, "admin")
	require.NoError(t, err)

	// Same secret, fresh whitelist: the signature checks out but the
	// token was never whitelisted here.
	other := New("shared-secret", NewMemoryKV())
	_, err = other.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrRevokedToken)
}

func TestMemoryKVExpiry(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	require.NoError(t, kv.Set(ctx, "k", "v", 10*time.Millisecond))

	val, found, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v", val)

	time.Sleep(20 * time.Millisecond)

	_, found, err = kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}
