package validator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/blackrose-eve/eve-oauth2/core"
)

// IdentityClaims is the verified content of an EVE SSO access token.
type IdentityClaims struct {
	// Subject is e.g. "CHARACTER:EVE:2112625428".
	Subject string
	// Name is the character name.
	Name     string
	Issuer   string
	Audience []string
	// Scopes granted; EVE sends scp as a string for a single scope.
	Scopes    []string
	IssuedAt  time.Time
	ExpiresAt time.Time
	NotBefore time.Time // zero when absent
	TokenID   string
	KeyID     string

	AuthorizedParty string // azp: the client id
	Tenant          string
	Tier            string
	Region          string
	// Owner changes when the character changes accounts.
	Owner string

	// Extra holds claims not mapped above.
	Extra map[string]any
}

// CharacterID returns the numeric character id from Subject.
func (c *IdentityClaims) CharacterID() (int64, error) {
	return ParseCharacterID(c.Subject)
}

// HasScope reports whether scope was granted.
func (c *IdentityClaims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// ParseCharacterID extracts the character id from a subject of the form
// "CHARACTER:EVE:<id>". Any other shape is ErrMalformedToken.
func ParseCharacterID(subject string) (int64, error) {
	parts := strings.Split(subject, ":")
	if len(parts) != 3 {
		return 0, core.NewError(core.ErrMalformedToken,
			fmt.Sprintf("subject %q does not have 3 components", subject), nil)
	}

	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || id <= 0 || parts[2][0] == '+' {
		return 0, core.NewError(core.ErrMalformedToken,
			fmt.Sprintf("subject %q does not end in a character id", subject), err)
	}

	return id, nil
}

// stringList decodes a JSON string or array of strings.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = stringList{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected a string or an array of strings: %w", err)
	}
	*l = many
	return nil
}

// numericDate is a JWT NumericDate: a JSON number of seconds since the
// epoch, possibly fractional. Strings and values outside the int64 range of
// seconds are rejected.
type numericDate struct {
	time.Time
}

// maxNumericDate is 2^63 seconds, the first value time.Unix cannot take.
const maxNumericDate = float64(math.MaxInt64)

func (d *numericDate) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return fmt.Errorf("numeric date must be a JSON number, got %s", data)
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("expected a numeric date: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= maxNumericDate || f <= -maxNumericDate {
		return fmt.Errorf("numeric date %s is out of range", data)
	}

	sec, frac := math.Modf(f)
	d.Time = time.Unix(int64(sec), int64(frac*1e9)).UTC()
	return nil
}

// tokenClaims is the wire form of an EVE access token payload.
type tokenClaims struct {
	Issuer          string       `json:"iss"`
	Subject         string       `json:"sub"`
	Audience        stringList   `json:"aud"`
	Scopes          stringList   `json:"scp"`
	ExpiresAt       *numericDate `json:"exp"`
	NotBefore       *numericDate `json:"nbf"`
	IssuedAt        *numericDate `json:"iat"`
	TokenID         string       `json:"jti"`
	KeyID           string       `json:"kid"`
	Name            string       `json:"name"`
	AuthorizedParty string       `json:"azp"`
	Tenant          string       `json:"tenant"`
	Tier            string       `json:"tier"`
	Region          string       `json:"region"`
	Owner           string       `json:"owner"`
}

var knownClaims = []string{
	"iss", "sub", "aud", "scp", "exp", "nbf", "iat", "jti", "kid",
	"name", "azp", "tenant", "tier", "region", "owner",
}

func decodeClaims(payload []byte) (*tokenClaims, map[string]any, error) {
	var tc tokenClaims
	if err := json.Unmarshal(payload, &tc); err != nil {
		return nil, nil, err
	}

	var all map[string]any
	if err := json.Unmarshal(payload, &all); err != nil {
		return nil, nil, err
	}
	for _, k := range knownClaims {
		delete(all, k)
	}
	if len(all) == 0 {
		all = nil
	}

	return &tc, all, nil
}

func (tc *tokenClaims) identity(extra map[string]any) *IdentityClaims {
	c := &IdentityClaims{
		Subject:         tc.Subject,
		Name:            tc.Name,
		Issuer:          tc.Issuer,
		Audience:        tc.Audience,
		Scopes:          tc.Scopes,
		TokenID:         tc.TokenID,
		KeyID:           tc.KeyID,
		AuthorizedParty: tc.AuthorizedParty,
		Tenant:          tc.Tenant,
		Tier:            tc.Tier,
		Region:          tc.Region,
		Owner:           tc.Owner,
		Extra:           extra,
	}
	if tc.IssuedAt != nil {
		c.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time
	}
	if tc.NotBefore != nil {
		c.NotBefore = tc.NotBefore.Time
	}
	return c
}
