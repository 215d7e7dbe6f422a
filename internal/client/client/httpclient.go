package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/willnicht/willnicht/internal/client/models"
	"github.com/willnicht/willnicht/internal/common"
	"github.com/willnicht/willnicht/internal/logging"
	"github.com/willnicht/willnicht/internal/netx"
)

const (
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 8 << 20
	uploadMediaType  = "image/jpeg"
)

type HTTPClient struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  logging.Logger

	mu      sync.RWMutex
	session *models.Session

	refreshMu sync.Mutex
	quota     singleflight.Group
	hub       *identityHub
}

// NewHTTPClient returns an adapter for the backend at baseURL. A zero
// timeout means DefaultTimeout.
func NewHTTPClient(baseURL string, timeout time.Duration, logger logging.Logger) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: timeout,
		logger:  logger.With("module", "remote_store"),
		hub:     newIdentityHub(),
	}, nil
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type uploadRequest struct {
	ContentType string `json:"content_type"`
}

type uploadSlot struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type pingResponse struct {
	Status string `json:"status"`
}

// accessClaims mirrors the claims the backend signs. The client never
// verifies the signature; it only reads the expiry and identity.
type accessClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Email  string `json:"email"`
}

func sessionFromTokens(tr tokenResponse) (*models.Session, error) {
	if tr.AccessToken == "" || tr.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token response is incomplete", ErrUnavailable)
	}

	claims := &accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tr.AccessToken, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	s := &models.Session{
		UserID:       tr.UserID,
		Email:        tr.Email,
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
	}
	if s.UserID == "" {
		s.UserID = claims.UserID
	}
	if s.Email == "" {
		s.Email = claims.Email
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// Session returns a copy of the current session, or nil when signed out.
func (c *HTTPClient) Session() *models.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *HTTPClient) setSession(s *models.Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

func (c *HTTPClient) Subscribe(ctx context.Context) <-chan models.IdentityEvent {
	return c.hub.subscribe(ctx)
}

func (c *HTTPClient) startSession(ctx context.Context, path string, in any, kind models.IdentityEventKind) (*models.Session, error) {
	var tr tokenResponse
	if err := c.call(ctx, http.MethodPost, path, in, &tr, false); err != nil {
		return nil, err
	}

	s, err := sessionFromTokens(tr)
	if err != nil {
		return nil, err
	}
	c.setSession(s)

	c.logger.Info(ctx, "identity changed", "event", string(kind), "user_id", s.UserID)
	c.hub.publish(models.IdentityEvent{Kind: kind, Session: c.Session()})

	return c.Session(), nil
}

func (c *HTTPClient) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	return c.startSession(ctx, "/v1/auth/signup", credentials{Email: email, Password: password}, models.SignedIn)
}

func (c *HTTPClient) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	return c.startSession(ctx, "/v1/auth/signin", credentials{Email: email, Password: password}, models.SignedIn)
}

func (c *HTTPClient) RestoreSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	if refreshToken == "" {
		return nil, ErrNotSignedIn
	}
	return c.startSession(ctx, "/v1/auth/refresh", refreshRequest{RefreshToken: refreshToken}, models.SessionRestored)
}

// SignOut revokes the refresh token on the backend and always drops the
// local session. The returned error only reports the revocation.
func (c *HTTPClient) SignOut(ctx context.Context) error {
	s := c.Session()
	if s == nil {
		return nil
	}

	err := c.call(ctx, http.MethodPost, "/v1/auth/signout", refreshRequest{RefreshToken: s.RefreshToken}, nil, false)
	if err != nil {
		c.logger.Warn(ctx, "remote sign-out failed", "err", err)
	}

	c.endSession(ctx)
	return err
}

func (c *HTTPClient) endSession(ctx context.Context) {
	c.setSession(nil)
	c.logger.Info(ctx, "identity changed", "event", string(models.SignedOut))
	c.hub.publish(models.IdentityEvent{Kind: models.SignedOut})
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	var resp pingResponse
	if err := c.call(ctx, http.MethodGet, "/v1/ping", nil, &resp, false); err != nil {
		return err
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

// CreateListing uploads l.ImageData to a presigned slot, if there is any, and
// inserts the record. The whole sequence shares one timeout.
func (c *HTTPClient) CreateListing(ctx context.Context, l *models.Listing) (*models.Listing, error) {
	if c.Session() == nil {
		return nil, ErrNotSignedIn
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rec := *l
	if len(l.ImageData) > 0 {
		var slot uploadSlot
		if err := c.call(ctx, http.MethodPost, "/v1/uploads", uploadRequest{ContentType: uploadMediaType}, &slot, true); err != nil {
			return nil, err
		}
		if err := netx.UploadToPresignedURL(ctx, c.http, slot.URL, uploadMediaType, l.ImageData); err != nil {
			return nil, mapError(err)
		}
		rec.ImageKey = slot.Key
	}

	var created models.Listing
	if err := c.call(ctx, http.MethodPost, "/v1/listings", &rec, &created, true); err != nil {
		return nil, err
	}
	return &created, nil
}

// FetchListings returns the caller's listings newest first.
func (c *HTTPClient) FetchListings(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var listings []models.Listing
	if err := c.call(ctx, http.MethodGet, "/v1/listings?"+q.Encode(), nil, &listings, true); err != nil {
		return nil, err
	}
	if listings == nil {
		listings = []models.Listing{}
	}
	return listings, nil
}

func (c *HTTPClient) FetchListing(ctx context.Context, id string) (*models.Listing, error) {
	var l models.Listing
	if err := c.call(ctx, http.MethodGet, "/v1/listings/"+url.PathEscape(id), nil, &l, true); err != nil {
		return nil, err
	}
	return &l, nil
}

// DeleteListing removes one listing. A listing that is already gone counts
// as deleted.
func (c *HTTPClient) DeleteListing(ctx context.Context, id string) error {
	err := c.call(ctx, http.MethodDelete, "/v1/listings/"+url.PathEscape(id), nil, nil, true)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (c *HTTPClient) DeleteAllListings(ctx context.Context) error {
	return c.call(ctx, http.MethodDelete, "/v1/listings", nil, nil, true)
}

func (c *HTTPClient) EvaluationCount(ctx context.Context) (*models.Quota, error) {
	var q models.Quota
	if err := c.call(ctx, http.MethodGet, "/v1/quota", nil, &q, true); err != nil {
		return nil, err
	}
	return &q, nil
}

// CheckQuota reports whether one more listing may be created this period.
// The answer is advisory; the insert re-checks on the backend. Concurrent
// checks for the same identity share one request.
func (c *HTTPClient) CheckQuota(ctx context.Context) (bool, error) {
	s := c.Session()
	if s == nil {
		return false, ErrNotSignedIn
	}

	v, err, _ := c.quota.Do("quota:"+s.UserID, func() (any, error) {
		return c.EvaluationCount(ctx)
	})
	if err != nil {
		return false, err
	}
	return v.(*models.Quota).CanCreate, nil
}

// call performs one JSON request under the adapter timeout. For
// authenticated calls an expired access token is refreshed once and the
// request is retried with the new token.
func (c *HTTPClient) call(ctx context.Context, method, path string, in, out any, authed bool) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = b
	}

	var token string
	if authed {
		s := c.Session()
		if s == nil {
			return ErrNotSignedIn
		}
		token = s.AccessToken
	}

	status, body, err := c.roundTrip(ctx, method, path, payload, token)
	if err != nil {
		return mapError(err)
	}

	if authed && status == http.StatusUnauthorized && errorMessage(body) == common.ErrTokenExpired.Error() {
		if err := c.refresh(ctx, token); err != nil {
			return err
		}
		s := c.Session()
		if s == nil {
			return ErrNotSignedIn
		}

		status, body, err = c.roundTrip(ctx, method, path, payload, s.AccessToken)
		if err != nil {
			return mapError(err)
		}
	}

	if status < 200 || status >= 300 {
		return mapStatus(status, errorMessage(body))
	}

	if out != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// refresh exchanges the refresh token for a new pair unless another caller
// already replaced staleToken. A rejected refresh token ends the session.
func (c *HTTPClient) refresh(ctx context.Context, staleToken string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	s := c.Session()
	if s == nil {
		return ErrNotSignedIn
	}
	if s.AccessToken != staleToken {
		return nil
	}

	var tr tokenResponse
	err := c.call(ctx, http.MethodPost, "/v1/auth/refresh", refreshRequest{RefreshToken: s.RefreshToken}, &tr, false)
	if errors.Is(err, ErrUnauthorized) {
		c.logger.Warn(ctx, "refresh token rejected", "err", err)
		c.endSession(ctx)
		return err
	}
	if err != nil {
		return err
	}

	next, err := sessionFromTokens(tr)
	if err != nil {
		return err
	}
	c.setSession(next)
	c.logger.Debug(ctx, "access token refreshed", "user_id", next.UserID)
	return nil
}

func (c *HTTPClient) roundTrip(ctx context.Context, method, path string, payload []byte, token string) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, data, nil
}

func errorMessage(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		return strings.TrimSpace(string(body))
	}
	return e.Error
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrTimeout
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func mapStatus(status int, msg string) error {
	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case status == http.StatusForbidden:
		if msg == common.ErrorQuotaExceeded.Error() {
			return ErrQuotaExceeded
		}
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, msg)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrTimeout
	case status >= 500:
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, status, msg)
	default:
		return fmt.Errorf("unexpected status %d: %s", status, msg)
	}
}

var _ Client = (*HTTPClient)(nil)
