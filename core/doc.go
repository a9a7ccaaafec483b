/*
Package core holds the pieces shared by every package of this module: the
error taxonomy, the logging interface and its adapters, and the metrics
interface and its Prometheus implementation.

# Error Handling

Every failure is returned as a *Error whose Kind can be matched with errors.Is:

	claims, err := v.Verify(ctx, rawToken)
	if err != nil {
	    switch {
	    case errors.Is(err, core.ErrTokenExpired):
	        // Ask the user to log in again
	    case errors.Is(err, core.ErrKeyUnavailable):
	        // The provider could not be reached; the token was NOT accepted
	    }
	}

Errors wrap their causes, so a KeyUnavailable error produced because the
provider was down also matches core.ErrProviderUnreachable. KindOf returns the
outermost kind only, and CodeOf its machine code:

	log.Printf("verification failed: %s", core.CodeOf(err)) // "key_unavailable"

# Logging

Logger is a small structured interface. Adapters are provided for zap,
zerolog and logrus:

	zl, _ := zap.NewProduction()
	logger := core.NewZapLogger(zl.Sugar())

Key/value pairs follow the message:

	logger.Info("jwks refreshed", "keys", 2, "duration", d)

# Metrics

Metrics abstracts counters, histograms and gauges. NewPrometheusMetrics
registers collectors lazily against the given registerer:

	reg := prometheus.NewRegistry()
	metrics := core.NewPrometheusMetrics(reg)
*/
package core
