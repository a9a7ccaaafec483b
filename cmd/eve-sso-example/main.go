// Command eve-sso-example is a small web application that logs EVE Online
// characters in.
//
// Create an application at https://developers.eveonline.com with the
// callback URL http://localhost:8000/callback, then:
//
//	ESI_CLIENT_ID=... ESI_CLIENT_SECRET=... APPLICATION_DOMAIN=localhost:8000 go run ./cmd/eve-sso-example
//
// and open http://localhost:8000/login. The variables may also be put in a
// .env file, and every setting can be given as EVE_SSO_* or in a YAML file
// passed with -config.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	eveoauth2 "github.com/blackrose-eve/eve-oauth2"
	"github.com/blackrose-eve/eve-oauth2/config"
	"github.com/blackrose-eve/eve-oauth2/core"
	"github.com/blackrose-eve/eve-oauth2/middleware"
)

func main() {
	configFile := flag.String("config", "", "optional YAML settings file")
	flag.Parse()

	if err := run(*configFile); err != nil {
		log.Fatal(err)
	}
}

func run(configFile string) error {
	var loaderOpts []config.LoaderOption
	if configFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(configFile))
	}
	settings, err := config.Load(loaderOpts...)
	if err != nil {
		return err
	}

	logger, err := settings.Logger(os.Stdout)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := append(settings.Options(),
		eveoauth2.WithLogger(logger),
		eveoauth2.WithMetrics(core.NewPrometheusMetrics(registry)),
	)

	store, redisClient := settings.KeySetStore()
	if store != nil {
		defer redisClient.Close()
		opts = append(opts, eveoauth2.WithKeySetStore(store))
	}

	sso, err := eveoauth2.New(opts...)
	if err != nil {
		return err
	}

	mw, err := middleware.New(sso, middleware.WithLogger(logger))
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &server{
		sso:           sso,
		logger:        logger,
		secureCookies: strings.HasPrefix(settings.RedirectURL, "https://"),
	}
	httpServer := &http.Server{
		Addr:              settings.ListenAddr,
		Handler:           newRouter(srv, registry, mw),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", settings.ListenAddr, "redirect_url", settings.RedirectURL)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
