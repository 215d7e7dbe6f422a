// Package httpapi exposes the backend over HTTP/JSON: accounts and tokens
// under /v1/auth, the signed-in user's listings, image upload slots and the
// monthly quota.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/willnicht/willnicht/internal/logging"
	"github.com/willnicht/willnicht/internal/server/models"
	"github.com/willnicht/willnicht/internal/server/services"
)

type UserService interface {
	Register(ctx context.Context, email, password string) (*services.TokenPair, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

type ListingService interface {
	Create(ctx context.Context, userID string, l *models.Listing) (*models.Listing, error)
	List(ctx context.Context, userID string, limit, offset int) ([]*models.Listing, error)
	Get(ctx context.Context, userID, id string) (*models.Listing, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteAll(ctx context.Context, userID string) error
	Quota(ctx context.Context, userID string) (*models.Quota, error)
	UploadSlot(ctx context.Context, userID, contentType string) (string, string, error)
}

type HTTPServer struct {
	address   string
	users     UserService
	listings  ListingService
	logger    logging.Logger
	jwtSecret []byte
}

func NewHTTPServer(a string, l logging.Logger, us UserService, ls ListingService, secretKey string) *HTTPServer {
	return &HTTPServer{
		address:   a,
		logger:    l.With("module", "http_server"),
		users:     us,
		listings:  ls,
		jwtSecret: []byte(secretKey),
	}
}

// Handler returns the routing tree.
func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/ping", s.handlePing)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.handleSignUp)
			r.Post("/signin", s.handleSignIn)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/signout", s.handleSignOut)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Post("/uploads", s.handleUploadSlot)
			r.Get("/quota", s.handleQuota)

			r.Get("/listings", s.handleListListings)
			r.Post("/listings", s.handleCreateListing)
			r.Delete("/listings", s.handleDeleteAllListings)
			r.Get("/listings/{id}", s.handleGetListing)
			r.Delete("/listings/{id}", s.handleDeleteListing)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

// Run serves until ctx is done and then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown", "err", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
