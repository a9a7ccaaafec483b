package validator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/blackrose-eve/eve-oauth2/core"
	"github.com/blackrose-eve/eve-oauth2/jwks"
)

// Signature algorithms
const (
	RS256 = SignatureAlgorithm("RS256") // RSASSA-PKCS-v1.5 using SHA-256
	RS384 = SignatureAlgorithm("RS384") // RSASSA-PKCS-v1.5 using SHA-384
	RS512 = SignatureAlgorithm("RS512") // RSASSA-PKCS-v1.5 using SHA-512
	ES256 = SignatureAlgorithm("ES256") // ECDSA using P-256 and SHA-256
	ES384 = SignatureAlgorithm("ES384") // ECDSA using P-384 and SHA-384
	ES512 = SignatureAlgorithm("ES512") // ECDSA using P-521 and SHA-512
	PS256 = SignatureAlgorithm("PS256") // RSASSA-PSS using SHA256 and MGF1-SHA256
	PS384 = SignatureAlgorithm("PS384") // RSASSA-PSS using SHA384 and MGF1-SHA384
	PS512 = SignatureAlgorithm("PS512") // RSASSA-PSS using SHA512 and MGF1-SHA512
)

// Defaults for EVE Online access tokens.
const (
	DefaultIssuer    = "https://login.eveonline.com"
	DefaultAudience  = "EVE Online"
	DefaultAlgorithm = RS256

	// MaxAllowedClockSkew bounds WithAllowedClockSkew.
	MaxAllowedClockSkew = 5 * time.Minute

	instrumentationName = "github.com/blackrose-eve/eve-oauth2/validator"
)

// Metric names.
const (
	MetricVerifications        = "token_verifications_total"
	MetricVerificationDuration = "token_verification_duration_seconds"
)

// SignatureAlgorithm is a signature algorithm.
type SignatureAlgorithm string

// Public-key algorithms only.
var allowedSigningAlgorithms = map[SignatureAlgorithm]bool{
	RS256: true,
	RS384: true,
	RS512: true,
	ES256: true,
	ES384: true,
	ES512: true,
	PS256: true,
	PS384: true,
	PS512: true,
}

// KeySource provides the current provider key set. *jwks.Cache implements it.
type KeySource interface {
	Keys(ctx context.Context) (*jwks.KeySet, error)
}

// Validator verifies EVE SSO access tokens.
type Validator struct {
	keys             KeySource          // Required.
	algorithm        SignatureAlgorithm // Default RS256.
	issuer           string
	audience         string
	allowedClockSkew time.Duration
	now              func() time.Time
	logger           core.Logger
	metrics          core.Metrics
	tracer           trace.Tracer
}

// New sets up a new Validator. WithKeySource is required; issuer, audience
// and algorithm default to EVE Online's.
//
// Example:
//
//	cache, _ := jwks.New()
//	v, err := validator.New(
//	    validator.WithKeySource(cache),
//	    validator.WithAllowedClockSkew(30*time.Second),
//	)
func New(opts ...Option) (*Validator, error) {
	v := &Validator{
		algorithm: DefaultAlgorithm,
		issuer:    DefaultIssuer,
		audience:  DefaultAudience,
		now:       time.Now,
		logger:    core.NopLogger{},
		metrics:   core.NoopMetrics{},
		tracer:    otel.GetTracerProvider().Tracer(instrumentationName),
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if v.keys == nil {
		return nil, errors.New("key source is required (use WithKeySource)")
	}

	return v, nil
}

// Verify checks raw and returns its claims.
//
// Checks run in order and stop at the first failure: token format
// (ErrMalformedToken), signing key (ErrKeyUnavailable), signature
// (ErrInvalidSignature), issuer (ErrInvalidIssuer), audience
// (ErrInvalidAudience), expiry (ErrTokenExpired, ErrTokenNotYetValid), and
// required claims (ErrMalformedToken).
func (v *Validator) Verify(ctx context.Context, raw string) (claims *IdentityClaims, err error) {
	ctx, span := v.tracer.Start(ctx, "validator.verify")
	started := v.now()

	defer func() {
		result := "ok"
		if err != nil {
			result = core.CodeOf(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
			v.logger.Debug("token rejected", "result", result, "error", err)
		} else {
			span.SetAttributes(attribute.String("eve.subject", claims.Subject))
		}
		tags := map[string]string{"result": result}
		v.metrics.IncCounter(MetricVerifications, tags)
		v.metrics.ObserveHistogram(MetricVerificationDuration, v.now().Sub(started).Seconds(), tags)
		span.End()
	}()

	return v.verify(ctx, raw)
}

func (v *Validator) verify(ctx context.Context, raw string) (*IdentityClaims, error) {
	if err := validateTokenFormat(raw); err != nil {
		return nil, core.NewError(core.ErrMalformedToken, "invalid token format", err)
	}

	msg, err := jws.Parse([]byte(raw))
	if err != nil {
		return nil, core.NewError(core.ErrMalformedToken, "could not parse the token", err)
	}
	sigs := msg.Signatures()
	if len(sigs) != 1 {
		return nil, core.NewError(core.ErrMalformedToken,
			fmt.Sprintf("token has %d signatures, expected 1", len(sigs)), nil)
	}
	headers := sigs[0].ProtectedHeaders()

	ks, err := v.keys.Keys(ctx)
	if err != nil {
		return nil, core.NewError(core.ErrKeyUnavailable, "could not get the signing keys", err)
	}
	key, err := SelectSigningKey(ks.Keys, v.algorithm, headers.KeyID())
	if err != nil {
		return nil, core.NewError(core.ErrKeyUnavailable, "no signing key for the token", err)
	}

	if err := validateSigningMethod(string(v.algorithm), headers.Algorithm().String()); err != nil {
		return nil, core.NewError(core.ErrInvalidSignature, "signing method is invalid", err)
	}
	payload, err := jws.Verify([]byte(raw), jws.WithKey(jwa.SignatureAlgorithm(v.algorithm), key.JWK()))
	if err != nil {
		return nil, core.NewError(core.ErrInvalidSignature, "signature verification failed", err)
	}

	tc, extra, err := decodeClaims(payload)
	if err != nil {
		return nil, core.NewError(core.ErrMalformedToken, "could not decode the token claims", err)
	}

	if err := v.validateClaims(tc); err != nil {
		return nil, err
	}

	return tc.identity(extra), nil
}

func (v *Validator) validateClaims(tc *tokenClaims) error {
	if tc.Issuer != v.issuer {
		return core.NewError(core.ErrInvalidIssuer,
			fmt.Sprintf("expected issuer %q but token has %q", v.issuer, tc.Issuer), nil)
	}

	if !slices.Contains(tc.Audience, v.audience) {
		return core.NewError(core.ErrInvalidAudience,
			fmt.Sprintf("token audience %q does not include %q", []string(tc.Audience), v.audience), nil)
	}

	now := v.now()
	if tc.ExpiresAt == nil {
		return core.NewError(core.ErrMalformedToken, "token has no exp claim", nil)
	}
	if !tc.ExpiresAt.After(now.Add(-v.allowedClockSkew)) {
		return core.NewError(core.ErrTokenExpired,
			fmt.Sprintf("token expired at %s", tc.ExpiresAt.Format(time.RFC3339)), nil)
	}
	if tc.NotBefore != nil && tc.NotBefore.After(now.Add(v.allowedClockSkew)) {
		return core.NewError(core.ErrTokenNotYetValid,
			fmt.Sprintf("token is not valid before %s", tc.NotBefore.Format(time.RFC3339)), nil)
	}

	var missing []string
	if tc.Subject == "" {
		missing = append(missing, "sub")
	}
	if tc.Name == "" {
		missing = append(missing, "name")
	}
	if tc.TokenID == "" {
		missing = append(missing, "jti")
	}
	if tc.IssuedAt == nil {
		missing = append(missing, "iat")
	}
	if len(missing) > 0 {
		return core.NewError(core.ErrMalformedToken,
			fmt.Sprintf("token is missing required claims %v", missing), nil)
	}

	return nil
}

func validateSigningMethod(validAlg, tokenAlg string) error {
	if validAlg != tokenAlg {
		return fmt.Errorf("expected %q signing algorithm but token specified %q", validAlg, tokenAlg)
	}
	return nil
}
