package userservice

import (
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{
			name:   "well formed header",
			header: "Bearer abc.def.ghi",
			want:   "abc.def.ghi",
		},
		{
			name:   "prefix is case insensitive",
			header: "bearer abc.def.ghi",
			want:   "abc.def.ghi",
		},
		{
			name:   "surrounding whitespace is trimmed",
			header: "Bearer   abc.def.ghi  ",
			want:   "abc.def.ghi",
		},
		{
			name:    "empty header",
			header:  "",
			wantErr: ErrMissingCredential,
		},
		{
			name:    "wrong scheme",
			header:  "Basic abc.def.ghi",
			wantErr: ErrMissingCredential,
		},
		{
			name:    "prefix without token",
			header:  "Bearer ",
			wantErr: ErrMissingCredential,
		},
		{
			name:    "prefix with only whitespace",
			header:  "Bearer    ",
			wantErr: ErrMissingCredential,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := ExtractBearerToken(tt.header)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	s := &UserService{secret: []byte("test-secret")}

	token, err := s.NewAccessToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := s.DecodeAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, 42, id)
}

func TestDecodeAccessToken(t *testing.T) {
	s := &UserService{secret: []byte("test-secret")}

	t.Run("garbage token", func(t *testing.T) {
		_, err := s.DecodeAccessToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("wrong signing secret", func(t *testing.T) {
		other := &UserService{secret: []byte("other-secret")}
		token, err := other.NewAccessToken(42)
		require.NoError(t, err)

		_, err = s.DecodeAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Subject:   "42",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
		require.NoError(t, err)

		_, err = s.DecodeAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("missing subject", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
		require.NoError(t, err)

		_, err = s.DecodeAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("non numeric subject", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Subject:   "not-an-id",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
		require.NoError(t, err)

		_, err = s.DecodeAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("unsigned token", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Subject:   strconv.Itoa(42),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = s.DecodeAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})
}
