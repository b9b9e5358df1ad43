package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/optifolio/src/config"
)

func testAuthService(t *testing.T) *AuthService {
	t.Helper()
	config.Cfg = &config.AppConfig{AccessTokenExpiry: time.Minute}
	return NewAuthService("unit-test-secret-at-least-32-bytes-long")
}

func TestTokenRoundTripCarriesUserID(t *testing.T) {
	svc := testAuthService(t)

	token, err := svc.GenerateToken(42)
	require.NoError(t, err)

	userID, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc := testAuthService(t)
	token, err := svc.GenerateToken(42)
	require.NoError(t, err)

	other := NewAuthService("a-completely-different-signing-secret!!")
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"well formed", "Bearer abc.def.ghi", "abc.def.ghi", false},
		{"case insensitive scheme", "bearer abc", "abc", false},
		{"missing token", "Bearer ", "", true},
		{"wrong scheme", "Basic abc", "", true},
		{"no scheme", "abc.def.ghi", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractBearerToken(tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedAuthHeader)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	svc := testAuthService(t)
	hash, err := svc.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NoError(t, svc.CompareHashAndPassword(hash, "correct horse battery staple"))
	assert.Error(t, svc.CompareHashAndPassword(hash, "wrong password"))
}
