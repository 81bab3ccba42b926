package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/getsentry/stackvis/internal/convert"
	"github.com/getsentry/stackvis/internal/errorutil"
	"github.com/getsentry/stackvis/internal/httputil"
	"github.com/getsentry/stackvis/internal/metrics"
	"github.com/getsentry/stackvis/internal/publish"
)

const diagnosticsHeader = "X-Stackvis-Diagnostics"

type environment struct {
	config    *ServiceConfig
	publisher *publish.Publisher
}

type route struct {
	method  string
	path    string
	handler http.Handler
}

func newEnvironment(c *ServiceConfig) *environment {
	e := environment{config: c}
	if len(c.KafkaBrokers) > 0 {
		e.publisher = publish.NewPublisher(newMessageWriter(c.KafkaBrokers, c.KafkaTopic))
	}
	return &e
}

func (e *environment) shutdown() {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Close(); err != nil {
		log.Error().Err(err).Msg("error closing kafka writer")
	}
}

func (e *environment) newRouter() (http.Handler, error) {
	routes := []route{
		{http.MethodPost, "/convert", http.HandlerFunc(e.postConvert)},
		{http.MethodGet, "/health", http.HandlerFunc(e.getHealth)},
	}

	compress, err := httpcompression.DefaultAdapter()
	if err != nil {
		return nil, err
	}

	router := httprouter.New()
	for _, r := range routes {
		router.Handler(r.method, r.path, compress(httputil.DecompressPayload(r.handler)))
	}
	// promhttp negotiates its own encoding.
	router.Handler(http.MethodGet, "/metrics", metrics.Handler())
	return router, nil
}

func (e *environment) getHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (e *environment) postConvert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	params, logger, ok := httputil.GetBoolQueryParameters(w, r, "folded", "live", "negate", "publish")
	if !ok {
		return
	}

	b, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Warn().Err(err).Msg("can't read request body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	out, err := convert.ConvertBytes(b, convert.Options{
		Folded: params["folded"],
		Live:   params["live"],
		Negate: params["negate"],
	})
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	hub.Scope().SetTag("mode", string(out.Mode))

	if params["publish"] {
		if e.publisher == nil {
			http.Error(w, errNoBrokers.Error(), http.StatusServiceUnavailable)
			return
		}
		conversionID := strings.ReplaceAll(uuid.New().String(), "-", "")
		n, err := e.publisher.Publish(ctx, conversionID, out)
		if err != nil && !errors.Is(err, errorutil.ErrNoResults) {
			hub.CaptureException(err)
			logger.Error().Err(err).Str("conversion_id", conversionID).Msg("can't publish trees")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		metrics.ObservePublished("kafka", n)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(diagnosticsHeader, strconv.Itoa(out.Diagnostics.Len()))
	w.WriteHeader(http.StatusOK)
	if err := out.Encode(w, false); err != nil {
		logger.Warn().Err(err).Msg("can't write response")
	}
}

func newServeCommand(c *ServiceConfig) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve conversions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port == "" {
				port = c.Port
			}
			l, err := net.Listen("tcp", ":"+port)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), c, l)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Port to listen on. Defaults to $PORT.")
	return cmd
}

// serve blocks until ctx is done or the server fails, then shuts down
// gracefully.
func serve(ctx context.Context, c *ServiceConfig, l net.Listener) error {
	e := newEnvironment(c)
	defer e.shutdown()

	router, err := e.newRouter()
	if err != nil {
		return err
	}

	server := http.Server{
		Handler:     sentryhttp.New(sentryhttp.Options{}).Handle(router),
		ReadTimeout: 30 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(l)
	}()
	log.Info().Str("addr", l.Addr().String()).Msg("stackvis started")

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("stackvis graceful shutdown completed")
	return nil
}
