// Package rest talks to a remote progress backend over its REST API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
)

// Client implements app.Backend against a remote progress service.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Code  string          `json:"code"`
}

func (c *Client) LearningPath(ctx context.Context, learnerID, projectID string) (domain.LearningPathView, error) {
	var view domain.LearningPathView
	err := c.do(ctx, "LearningPath", http.MethodGet, c.path("api", "video", "modules", learnerID, projectID), nil, &view)
	return view, err
}

func (c *Client) QuizProgress(ctx context.Context, learnerID, quizID string) (domain.QuizProgress, error) {
	var p domain.QuizProgress
	err := c.do(ctx, "QuizProgress", http.MethodGet, c.path("api", "quizzes", "progress", learnerID, quizID), nil, &p)
	return p, err
}

func (c *Client) QuizEligibility(ctx context.Context, learnerID, quizID string) (bool, error) {
	var resp domain.EligibilityResponse
	err := c.do(ctx, "QuizEligibility", http.MethodGet, c.path("api", "quizzes", "eligibility", learnerID, quizID), nil, &resp)
	return resp.Eligible, err
}

func (c *Client) SubmitQuizAttempt(ctx context.Context, req domain.SubmitQuizRequest) (domain.SubmitAck, error) {
	var ack domain.SubmitAck
	if err := domain.Validate(req); err != nil {
		return ack, err
	}
	err := c.do(ctx, "SubmitQuizAttempt", http.MethodPost, c.path("api", "quizzes", "submit", req.LearnerID), req, &ack)
	return ack, err
}

func (c *Client) UpdateVideoProgress(ctx context.Context, update domain.VideoProgressUpdate) error {
	if err := domain.Validate(update); err != nil {
		return err
	}
	return c.do(ctx, "UpdateVideoProgress", http.MethodPut, c.path("api", "video", "progress", update.LearnerID), update, nil)
}

func (c *Client) CompleteVideo(ctx context.Context, completion domain.VideoCompletion) (domain.CompletionAck, error) {
	var ack domain.CompletionAck
	if err := domain.Validate(completion); err != nil {
		return ack, err
	}
	err := c.do(ctx, "CompleteVideo", http.MethodPost, c.path("api", "video", "completed", completion.LearnerID), completion, &ack)
	return ack, err
}

func (c *Client) SaveNotebookEntries(ctx context.Context, update domain.NotebookUpdate) error {
	if err := domain.Validate(update); err != nil {
		return err
	}
	return c.do(ctx, "SaveNotebookEntries", http.MethodPut, c.path("api", "video", "notebook", update.LearnerID), update, nil)
}

func (c *Client) path(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

// do performs one call. Every failure comes back as a *domain.TransportError;
// error bodies carrying a known code unwrap to the matching sentinel.
func (c *Client) do(ctx context.Context, op, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &domain.TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	c.logger.Debug("backend call",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return &domain.TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		cause := errors.New(http.StatusText(resp.StatusCode))
		if sentinel, ok := domain.ErrorForCode(env.Code); ok {
			cause = fmt.Errorf("%w: %s", sentinel, env.Error)
		} else if env.Error != "" {
			cause = errors.New(env.Error)
		}
		return &domain.TransportError{Op: op, Status: resp.StatusCode, Err: cause}
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &domain.TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: empty data", domain.ErrMalformedResponse)}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &domain.TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)}
	}
	if err := domain.Validate(out); err != nil {
		return &domain.TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)}
	}
	return nil
}
