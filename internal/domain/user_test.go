package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResidentID(t *testing.T) {
	cases := []struct {
		front, digit string
		birth        time.Time
		gender       Gender
	}{
		{"990412", "1", time.Date(1999, 4, 12, 0, 0, 0, 0, time.UTC), GenderMale},
		{"990412", "2", time.Date(1999, 4, 12, 0, 0, 0, 0, time.UTC), GenderFemale},
		{"050229", "3", time.Time{}, ""},
		{"040229", "4", time.Date(2004, 2, 29, 0, 0, 0, 0, time.UTC), GenderFemale},
		{"010101", "3", time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC), GenderMale},
	}
	for _, tc := range cases {
		birth, gender, err := ParseResidentID(tc.front, tc.digit)
		if tc.gender == "" {
			require.ErrorIs(t, err, ErrInvalidResidentID, tc.front)
			continue
		}
		require.NoError(t, err, tc.front)
		assert.Equal(t, tc.birth, birth)
		assert.Equal(t, tc.gender, gender)
	}
}

func TestParseResidentIDRejectsMalformedInput(t *testing.T) {
	for _, in := range [][2]string{
		{"99041", "1"},
		{"9904121", "1"},
		{"991301", "1"},
		{"990412", "5"},
		{"990412", "12"},
		{"99o412", "1"},
	} {
		_, _, err := ParseResidentID(in[0], in[1])
		require.ErrorIs(t, err, ErrInvalidResidentID, in)
	}
}

func TestTokenClass(t *testing.T) {
	for _, raw := range []string{"APP", "KIOSK", "REFRESH", "ADMIN"} {
		class, err := ParseTokenClass(raw)
		require.NoError(t, err)
		assert.True(t, class.Valid())
	}
	_, err := ParseTokenClass("app")
	require.Error(t, err)
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	want := Identity{Subject: "u1", Class: TokenClassKiosk, Context: "kiosk-1"}
	got, ok := IdentityFromContext(WithIdentity(context.Background(), want))
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestIssuedTokenExpiresIn(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	tok := IssuedToken{IssuedAt: now, ExpiresAt: now.Add(60 * time.Second)}
	assert.Equal(t, int64(60), tok.ExpiresIn())
}
