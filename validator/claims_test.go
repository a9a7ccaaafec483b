package validator

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackrose-eve/eve-oauth2/core"
)

func TestParseCharacterID(t *testing.T) {
	valid := map[string]int64{
		"CHARACTER:EVE:2112625428": 2112625428,
		"CHARACTER:EVE:1":          1,
	}
	for subject, want := range valid {
		t.Run(subject, func(t *testing.T) {
			got, err := ParseCharacterID(subject)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	invalid := []string{
		"",
		"CHARACTER:EVE",
		"CHARACTER:EVE:",
		"CHARACTER:EVE:abc",
		"CHARACTER:EVE:0",
		"CHARACTER:EVE:-5",
		"CHARACTER:EVE:+5",
		"CHARACTER:EVE:12:34",
		"CHARACTER:EVE:99999999999999999999",
	}
	for _, subject := range invalid {
		t.Run("invalid "+subject, func(t *testing.T) {
			_, err := ParseCharacterID(subject)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrMalformedToken))
		})
	}
}

func TestIdentityClaims(t *testing.T) {
	c := &IdentityClaims{
		Subject: "CHARACTER:EVE:90000001",
		Scopes:  []string{"publicData", "esi-skills.read_skills.v1"},
	}

	id, err := c.CharacterID()
	require.NoError(t, err)
	assert.Equal(t, int64(90000001), id)

	assert.True(t, c.HasScope("publicData"))
	assert.False(t, c.HasScope("esi-wallet.read_character_wallet.v1"))
}

func TestDecodeClaims(t *testing.T) {
	t.Run("single scope and audience strings", func(t *testing.T) {
		tc, extra, err := decodeClaims([]byte(`{
			"scp": "publicData",
			"aud": "EVE Online",
			"exp": 1700000000,
			"iat": 1699998800.5,
			"custom": true
		}`))
		require.NoError(t, err)
		assert.Equal(t, stringList{"publicData"}, tc.Scopes)
		assert.Equal(t, stringList{"EVE Online"}, tc.Audience)
		assert.Equal(t, time.Unix(1700000000, 0).UTC(), tc.ExpiresAt.Time)
		assert.Equal(t, time.Unix(1699998800, 500000000).UTC(), tc.IssuedAt.Time)
		assert.Nil(t, tc.NotBefore)
		assert.Equal(t, map[string]any{"custom": true}, extra)
	})

	t.Run("arrays", func(t *testing.T) {
		tc, extra, err := decodeClaims([]byte(`{"scp": ["a", "b"], "aud": ["client", "EVE Online"]}`))
		require.NoError(t, err)
		assert.Equal(t, stringList{"a", "b"}, tc.Scopes)
		assert.Equal(t, stringList{"client", "EVE Online"}, tc.Audience)
		assert.Nil(t, extra)
	})

	t.Run("scp absent", func(t *testing.T) {
		tc, _, err := decodeClaims([]byte(`{"scp": null}`))
		require.NoError(t, err)
		assert.Nil(t, tc.Scopes)
	})

	invalid := map[string]string{
		"not an object":      `[1, 2]`,
		"numeric scope":      `{"scp": 5}`,
		"string exp":         `{"exp": "tomorrow"}`,
		"numeric string exp": `{"exp": "99999999999"}`,
		"string iat":         `{"iat": "1700000000"}`,
		"exp beyond int64":   `{"exp": 1e19}`,
		"nbf below int64":    `{"nbf": -1e19}`,
		"mixed audience":     `{"aud": ["a", 1]}`,
	}
	for name, payload := range invalid {
		t.Run(name, func(t *testing.T) {
			_, _, err := decodeClaims([]byte(payload))
			assert.Error(t, err)
		})
	}
}

func TestStringList_UnmarshalJSON(t *testing.T) {
	var l stringList
	require.NoError(t, json.Unmarshal([]byte(`"one"`), &l))
	assert.Equal(t, stringList{"one"}, l)
}
