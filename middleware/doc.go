/*
Package middleware protects HTTP handlers with EVE SSO access tokens.

The token is read from the Authorization header by default, verified, and
the resulting claims are put in the request context:

	mw, err := middleware.New(sso)
	if err != nil {
	    log.Fatal(err)
	}

	http.Handle("/me", mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	    claims := middleware.MustClaims(r.Context())
	    fmt.Fprintf(w, "logged in as %s", claims.Name)
	})))

For gin, use Gin:

	router.GET("/me", mw.Gin(), func(c *gin.Context) {
	    claims, _ := middleware.GinClaims(c)
	    c.JSON(http.StatusOK, gin.H{"name": claims.Name})
	})

For echo, use Echo:

	e.GET("/me", func(c echo.Context) error {
	    claims, _ := middleware.EchoClaims(c)
	    return c.JSON(http.StatusOK, map[string]string{"name": claims.Name})
	}, mw.Echo())

For gRPC servers, install the interceptors. The token is read from the
"authorization" metadata entry:

	srv := grpc.NewServer(
	    grpc.UnaryInterceptor(mw.UnaryServerInterceptor()),
	    grpc.StreamInterceptor(mw.StreamServerInterceptor()),
	)

Rejected calls fail with Unauthenticated, PermissionDenied or Unavailable,
mirroring the HTTP statuses below.

Rejections go through the ErrorHandler. The default one answers 401 for a
missing or invalid token, 403 for a missing scope, and 503 when the
provider's signing keys are unavailable.
*/
package middleware
