package sessionapi

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
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/SijoOrganization/sijo-qcm-front/internal/model"
	"github.com/SijoOrganization/sijo-qcm-front/internal/response"
	"github.com/SijoOrganization/sijo-qcm-front/internal/validator"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

var (
	ErrTokenExpired      = errors.New("session token expired")
	ErrTokenMalformed    = errors.New("session token malformed")
	ErrMalformedResponse = errors.New("malformed response")
)

// APIError is a non-2xx answer from the Session API.
type APIError struct {
	StatusCode int
	Code       response.ErrCode
	Message    string
	// RequestID is the server's id for the failed call, when it sent one.
	RequestID string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("session api %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("session api %d: %s", e.StatusCode, e.Message)
}

// StatusCode returns the HTTP status of err if it is an *APIError, else 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Client talks to the candidate Session API over REST/JSON.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        zerolog.Logger
}

type Option func(*Client)

// WithToken attaches a bearer token to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default HTTP client (tests use httptest's).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log.With().Str("component", "session_api").Logger() }
}

// New returns a Session API client with sane timeouts.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   3 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConnsPerHost: 10,
			},
		},
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the bearer token in use.
func (c *Client) Token() string { return c.token }

// SetToken swaps the bearer token, e.g. after Login.
func (c *Client) SetToken(token string) { c.token = token }

// CheckToken rejects a JWT whose exp claim has passed. The signature is not
// verified here; the server remains the authority. No token is not an error.
func (c *Client) CheckToken() error {
	if c.token == "" {
		return nil
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(c.token, &claims); err != nil {
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(time.Now()) {
		return ErrTokenExpired
	}
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// Endpoints
// ────────────────────────────────────────────────────────────────────────────

// Login exchanges a candidate access code for a bearer token and keeps it.
func (c *Client) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	var out model.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/candidate/login", req, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

func (c *Client) StartQuiz(ctx context.Context, req model.StartQuizRequest) (*model.QuizSessionResponse, error) {
	var out model.QuizSessionResponse
	if err := c.do(ctx, http.MethodPost, "/candidate/start-quiz", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SessionInfo(ctx context.Context, sessionID string) (*model.SessionInfo, error) {
	var out model.SessionInfo
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID, "info"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Status(ctx context.Context, sessionID string) (*model.QuizSessionStatus, error) {
	var out model.QuizSessionStatus
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID, "status"), nil, &out); err != nil {
		return nil, err
	}
	if out.SessionID == "" {
		out.SessionID = sessionID
	}
	return &out, nil
}

func (c *Client) CurrentQuestion(ctx context.Context, sessionID string) (*model.Question, error) {
	var out model.Question
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID, "current-question"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TimeRemaining(ctx context.Context, sessionID string) (int, error) {
	var out model.TimeRemaining
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID, "time-remaining"), nil, &out); err != nil {
		return 0, err
	}
	return out.RemainingTimeSeconds, nil
}

func (c *Client) SubmitAnswer(ctx context.Context, sessionID string, req model.SubmitAnswerRequest) error {
	return c.do(ctx, http.MethodPost, sessionPath(sessionID, "submit-answer"), req, nil)
}

func (c *Client) Navigate(ctx context.Context, sessionID string, questionIndex int) error {
	return c.do(ctx, http.MethodPost, sessionPath(sessionID, "navigate"), model.NavigateRequest{QuestionIndex: questionIndex}, nil)
}

func (c *Client) MarkForReview(ctx context.Context, sessionID, questionID string) error {
	return c.do(ctx, http.MethodPost, sessionPath(sessionID, "mark-review"), model.MarkReviewRequest{QuestionID: questionID}, nil)
}

func (c *Client) Pause(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodPost, sessionPath(sessionID, "pause"), struct{}{}, nil)
}

func (c *Client) Resume(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodPost, sessionPath(sessionID, "resume"), struct{}{}, nil)
}

func (c *Client) Finish(ctx context.Context, sessionID string) (*model.FinishResult, error) {
	var out model.FinishResult
	if err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "finish"), struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ReportActivity(ctx context.Context, sessionID string, activity model.ActivityType) error {
	return c.do(ctx, http.MethodPost, sessionPath(sessionID, "report-activity"), model.ReportActivityRequest{ActivityType: activity}, nil)
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ────────────────────────────────────────────────────────────────────────────

func sessionPath(sessionID, action string) string {
	return "/candidate/session/" + url.PathEscape(sessionID) + "/" + action
}

// envelope matches response.Response loosely; Metadata marks a wrapped body.
type envelope struct {
	Data     json.RawMessage     `json:"data"`
	Error    *response.ErrorBody `json:"error"`
	Metadata *response.Metadata  `json:"metadata"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	reqID := response.NewRequestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(response.HeaderRequestID, reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Str("request_id", reqID).
		Msg("Session API call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		if out != nil {
			return fmt.Errorf("%w: empty body", ErrMalformedResponse)
		}
		return nil
	}

	payload := raw
	var env envelope
	if json.Unmarshal(raw, &env) == nil && env.Metadata != nil {
		payload = env.Data
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := validator.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, validator.TranslateErrors(err))
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	apiErr := &APIError{StatusCode: status, Message: http.StatusText(status)}

	var env envelope
	if json.Unmarshal(raw, &env) == nil && env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		if env.Metadata != nil {
			apiErr.RequestID = env.Metadata.RequestID
		}
		return apiErr
	}

	// Bare backends answer {"message": "..."}.
	var bare struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &bare) == nil {
		switch {
		case bare.Message != "":
			apiErr.Message = bare.Message
		case bare.Error != "":
			apiErr.Message = bare.Error
		}
	}
	return apiErr
}
