package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/vehicle-logbook/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func hash(t *testing.T, password string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(b)
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	operators := "driver:operator:" + hash(t, "password123") + ";auditor:viewer:" + hash(t, "readonly99")
	s, err := NewService("test-secret", time.Hour, operators)
	require.NoError(t, err)
	return s
}

func TestNewService(t *testing.T) {
	s := newTestService(t)
	assert.Equal(t, time.Hour, s.tokenExp)
	assert.Len(t, s.operators, 2)

	_, err := NewService("", time.Hour, "")
	assert.Error(t, err)

	s, err = NewService("secret", 0, "")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, s.tokenExp)
}

func TestParseOperators(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{"empty", "", 0, false},
		{"single", "admin:admin:$2a$10$abc", 1, false},
		{"trailing separator", "admin:admin:$2a$10$abc; ", 1, false},
		{"missing hash", "admin:admin", 0, true},
		{"unknown role", "admin:root:$2a$10$abc", 0, true},
		{"empty username", ":admin:$2a$10$abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops, err := ParseOperators(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOperator)
				return
			}
			require.NoError(t, err)
			assert.Len(t, ops, tt.want)
		})
	}
}

func TestService_HashAndCheckPassword(t *testing.T) {
	s := newTestService(t)

	h, err := s.HashPassword("testpassword123")
	require.NoError(t, err)
	assert.NotEqual(t, "testpassword123", h)
	assert.True(t, s.CheckPassword("testpassword123", h))
	assert.False(t, s.CheckPassword("wrongpassword", h))
}

func TestService_Authenticate(t *testing.T) {
	s := newTestService(t)

	op, err := s.Authenticate("driver", "password123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleOperator, op.Role)

	_, err = s.Authenticate("driver", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Authenticate("ghost", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_TokenRoundTrip(t *testing.T) {
	s := newTestService(t)
	op := &models.Operator{Username: "driver", Role: models.RoleOperator}

	token, exp, err := s.GenerateToken(op)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := s.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "driver", claims.Username)
	assert.Equal(t, models.RoleOperator, claims.Role)
	assert.Equal(t, exp, claims.Exp)
}

func TestService_ValidateToken_Invalid(t *testing.T) {
	s := newTestService(t)

	_, err := s.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewService("other-secret", time.Hour, "")
	require.NoError(t, err)
	token, _, err := other.GenerateToken(&models.Operator{Username: "x", Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = s.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"username": "x", "role": "admin"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.ValidateToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_ValidateToken_Expired(t *testing.T) {
	s := newTestService(t)
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := s.GenerateToken(&models.Operator{Username: "driver", Role: models.RoleOperator})
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestService_ExtractTokenFromHeader(t *testing.T) {
	s := newTestService(t)

	token, err := s.ExtractTokenFromHeader("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer "} {
		_, err := s.ExtractTokenFromHeader(header)
		assert.ErrorIs(t, err, ErrInvalidToken, header)
	}
}
