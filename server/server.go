package server

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v3"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/sig-0/remesas/rates"
	"github.com/sig-0/remesas/server/config"
	"github.com/sig-0/remesas/settlement"
)

// RateSource provides the current rate snapshot
type RateSource interface {
	Current() *rates.Snapshot
}

var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type Server struct {
	logger *slog.Logger
	config *config.Config

	book       RateSource
	settlement *settlement.Service
	fallback   FallbackRates
	signer     signer

	mux *chi.Mux
}

// identitySecretSize is the size of a generated identity secret
const identitySecretSize = 32

// New creates a new server instance
func New(
	book RateSource,
	svc *settlement.Service,
	opts ...Option,
) (*Server, error) {
	s := &Server{
		logger:     noopLogger,
		book:       book,
		settlement: svc,
		config:     config.DefaultConfig(),
		fallback:   DefaultFallbackRates(),
		mux:        chi.NewMux(),
	}

	// Apply the options
	for _, opt := range opts {
		opt(s)
	}

	// Validate the configuration
	if err := config.ValidateConfig(s.config); err != nil {
		return nil, fmt.Errorf("invalid configuration, %w", err)
	}

	// Set up the identity signer
	secret := []byte(s.config.IdentitySecret)
	if len(secret) == 0 {
		secret = make([]byte, identitySecretSize)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("unable to generate identity secret, %w", err)
		}

		s.logger.Warn("no identity secret configured, issued identities will not survive a restart")
	}

	s.signer = signer{secret: secret}

	// Set up the CORS middleware
	if s.config.CORSConfig != nil {
		corsMiddleware := cors.New(cors.Options{
			AllowedOrigins:       s.config.CORSConfig.AllowedOrigins,
			AllowedMethods:       s.config.CORSConfig.AllowedMethods,
			AllowedHeaders:       s.config.CORSConfig.AllowedHeaders,
			ExposedHeaders:       s.config.CORSConfig.ExposedHeaders,
			OptionsSuccessStatus: http.StatusOK,
		})

		s.mux.Use(corsMiddleware.Handler)
	}

	s.mux.Use(httplog.RequestLogger(s.logger, &httplog.Options{
		Level:         slog.LevelInfo,
		Schema:        httplog.SchemaOTEL,
		RecoverPanics: true,
		Skip: func(r *http.Request, respStatus int) bool {
			return respStatus == 404 || respStatus == 405 || r.URL.Path == "/health"
		},
	}))

	s.registerRoutes()

	return s, nil
}

// registerRoutes registers the standard service endpoints
func (s *Server) registerRoutes() {
	// Register the health check handler
	s.mux.Get("/health", func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})

	s.mux.Get("/openapi.yaml", s.OpenAPI)
	s.mux.Get("/docs", s.Redoc)

	// Rate summary, consumed by the static web frontend
	s.mux.Get("/api/rates", s.RateSummary)
	s.mux.Options("/api/rates", func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})

	s.mux.Route("/v1", func(r chi.Router) {
		r.Use(s.identity)

		r.Get("/rates", s.Rates)
		r.Get("/convert", s.Convert)

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", s.CreateTransaction)
			r.Get("/", s.Transactions)
			r.Get("/{id}", s.Transaction)
			r.Post("/{id}/receipt", s.AttachReceipt)
			r.Get("/{id}/instructions", s.PaymentInstructions)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.Accounts)
			r.With(requireAdmin).Post("/", s.SaveAccount)
			r.With(requireAdmin).Delete("/{id}", s.DeleteAccount)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)

			r.Get("/transactions", s.AllTransactions)
			r.Patch("/transactions/{id}", s.UpdateTransactionStatus)
			r.Get("/margins", s.Margins)
			r.Put("/margins", s.UpdateMargins)
		})
	})
}

// Handler returns the server HTTP handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Serve serves the remesas service
func (s *Server) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.mux,
		ReadHeaderTimeout: 60 * time.Second,
	}

	group, gCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer s.logger.Info("server shut down")

		ln, err := net.Listen("tcp", server.Addr)
		if err != nil {
			return err
		}

		s.logger.Info(
			fmt.Sprintf(
				"server started at %s",
				ln.Addr().String(),
			),
		)

		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	group.Go(func() error {
		<-gCtx.Done()

		s.logger.Info("server to be shutdown")

		wsCtx, cancel := context.WithTimeout(context.Background(), time.Second*30)
		defer cancel()

		return server.Shutdown(wsCtx)
	})

	return group.Wait()
}
