package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"recs/internal/models"
	"recs/internal/observability"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

// DefaultTimeout is the per-request timeout when Options.Timeout is zero.
const DefaultTimeout = 15 * time.Second

const maxErrorBody = 4 << 10

// Options configures an HTTPClient.
type Options struct {
	BaseURL string
	// Token is sent as a bearer token. Obtaining it is out of scope.
	Token     string
	Timeout   time.Duration
	RateLimit float64
	Burst     int
	// Transport overrides the default round tripper.
	Transport http.RoundTripper
}

// HTTPClient implements API over the recs JSON HTTP interface.
//
// HTTPClient is safe for concurrent use.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

// NewHTTPClient creates a client for the server at opts.BaseURL.
func NewHTTPClient(opts Options) *HTTPClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: opts.Transport,
		},
		limiter: limiter,
		now:     time.Now,
	}
}

type commentRequest struct {
	Content string `json:"content"`
}

// errorResponse matches the server's {"detail": "..."} error body.
type errorResponse struct {
	Detail string `json:"detail"`
}

func (c *HTTPClient) FetchMe(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, "fetch_me", http.MethodGet, "/users/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTPClient) FetchUser(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, "fetch_user", http.MethodGet, "/users/"+url.PathEscape(username), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTPClient) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	var users []models.User
	path := "/users/search?" + url.Values{"q": {query}}.Encode()
	if err := c.do(ctx, "search_users", http.MethodGet, path, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *HTTPClient) Follow(ctx context.Context, username string) error {
	return c.do(ctx, "follow", http.MethodPost, "/users/"+url.PathEscape(username)+"/follow", nil, nil)
}

func (c *HTTPClient) Unfollow(ctx context.Context, username string) error {
	return c.do(ctx, "unfollow", http.MethodDelete, "/users/"+url.PathEscape(username)+"/follow", nil, nil)
}

func (c *HTTPClient) FetchFeed(ctx context.Context) ([]models.Rec, error) {
	var recs []models.Rec
	if err := c.do(ctx, "fetch_feed", http.MethodGet, "/recs/feed", nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (c *HTTPClient) FetchUserRecs(ctx context.Context, username string) ([]models.Rec, error) {
	var recs []models.Rec
	if err := c.do(ctx, "fetch_user_recs", http.MethodGet, "/recs/user/"+url.PathEscape(username), nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (c *HTTPClient) FetchRec(ctx context.Context, id uint) (*models.Rec, error) {
	var r models.Rec
	if err := c.do(ctx, "fetch_rec", http.MethodGet, recPath(id), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *HTTPClient) CreateRec(ctx context.Context, input models.CreateRecInput) (*models.Rec, error) {
	var r models.Rec
	if err := c.do(ctx, "create_rec", http.MethodPost, "/recs/", input, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *HTTPClient) DeleteRec(ctx context.Context, id uint) error {
	return c.do(ctx, "delete_rec", http.MethodDelete, recPath(id), nil, nil)
}

func (c *HTTPClient) Like(ctx context.Context, id uint) error {
	return c.do(ctx, "like", http.MethodPost, recPath(id)+"/like", nil, nil)
}

func (c *HTTPClient) Unlike(ctx context.Context, id uint) error {
	return c.do(ctx, "unlike", http.MethodDelete, recPath(id)+"/like", nil, nil)
}

func (c *HTTPClient) FetchComments(ctx context.Context, recID uint) ([]models.Comment, error) {
	var comments []models.Comment
	if err := c.do(ctx, "fetch_comments", http.MethodGet, recPath(recID)+"/comments", nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (c *HTTPClient) PostComment(ctx context.Context, recID uint, text string) (*models.Comment, error) {
	var comment models.Comment
	if err := c.do(ctx, "post_comment", http.MethodPost, recPath(recID)+"/comments", commentRequest{Content: text}, &comment); err != nil {
		return nil, err
	}
	if comment.RecID == 0 {
		comment.RecID = recID
	}
	return &comment, nil
}

func (c *HTTPClient) FetchNotifications(ctx context.Context) ([]models.Notification, error) {
	var list []models.Notification
	if err := c.do(ctx, "fetch_notifications", http.MethodGet, "/notifications/", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *HTTPClient) MarkNotificationsRead(ctx context.Context) error {
	return c.do(ctx, "mark_notifications_read", http.MethodPost, "/notifications/read", nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	done := observability.TrackRemoteCall(op)
	defer func() { done(err) }()

	if c.tokenExpired() {
		return &Error{Op: op, Err: ErrSessionExpired}
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &Error{Op: op, Err: err}
		}
	}

	route := path
	if i := strings.IndexByte(route, '?'); i >= 0 {
		route = route[:i]
	}
	ctx, span := observability.GetTraceLayer().TraceRemoteCall(ctx, op, method, route)
	defer span.End()
	defer func() { observability.RecordErrorInContext(ctx, err) }()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id := observability.ExtractCorrelationID(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(raw))
		var parsed errorResponse
		if json.Unmarshal(raw, &parsed) == nil && parsed.Detail != "" {
			msg = parsed.Detail
		}
		return &Error{Op: op, Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// tokenExpired inspects a JWT bearer token without verifying it. Tokens that do
// not parse as JWTs are left for the server to judge.
func (c *HTTPClient) tokenExpired() bool {
	if c.token == "" {
		return false
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(c.token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(c.now())
}

func recPath(id uint) string {
	return "/recs/" + strconv.FormatUint(uint64(id), 10)
}
