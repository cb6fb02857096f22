package auth

import (
	"testing"
	"time"

	"github.com/erp/acct/internal/domain/accounting"
	"github.com/erp/acct/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "acct-test",
	})
}

func TestIssueAndValidate(t *testing.T) {
	svc := newTestJWTService()

	token, expiresAt, err := svc.Issue(IssueInput{
		UserID:      "u-1",
		Username:    "billing-bot",
		Permissions: []string{accounting.PermissionBillingRun, accounting.PermissionLedgerRead},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "billing-bot", claims.Username)

	actor := claims.Actor()
	assert.True(t, actor.HasPermission(accounting.PermissionBillingRun))
	assert.False(t, actor.HasPermission(accounting.PermissionSettingsWrite))
}

func TestIssue_CustomTTL(t *testing.T) {
	svc := newTestJWTService()
	_, expiresAt, err := svc.Issue(IssueInput{UserID: "u-1", TTL: time.Hour})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)
}

func TestIssue_Errors(t *testing.T) {
	_, _, err := newTestJWTService().Issue(IssueInput{})
	assert.ErrorIs(t, err, ErrMissingUserID)

	_, _, err = NewJWTService(config.JWTConfig{}).Issue(IssueInput{UserID: "u-1"})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestValidate_Expired(t *testing.T) {
	svc := newTestJWTService()
	token, _, err := svc.Issue(IssueInput{UserID: "u-1"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidate_Rejects(t *testing.T) {
	issued, _, err := newTestJWTService().Issue(IssueInput{UserID: "u-1"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		svc   *JWTService
		token string
	}{
		{"garbage", newTestJWTService(), "not-a-token"},
		{"other secret", NewJWTService(config.JWTConfig{
			Secret: "another-secret-key-of-32-characters", AccessTokenExpiration: time.Minute, Issuer: "acct-test",
		}), issued},
		{"other issuer", NewJWTService(config.JWTConfig{
			Secret: "test-secret-key-at-least-32-chars", AccessTokenExpiration: time.Minute, Issuer: "someone-else",
		}), issued},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.Validate(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestClaims_ActorCopiesPermissions(t *testing.T) {
	claims := &Claims{UserID: "u-1", Permissions: []string{"billing:*"}}
	actor := claims.Actor()
	actor.Permissions[0] = "changed"
	assert.Equal(t, "billing:*", claims.Permissions[0])
	assert.True(t, claims.ExpiresAtTime().IsZero())
}
