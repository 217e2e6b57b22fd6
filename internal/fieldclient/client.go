// Package fieldclient is a small HTTP client for field crews. It covers the
// daily loop: log in, list today's tasks, acknowledge safety documents,
// move tasks through their workflow, and watch for changes.
package fieldclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/parks-gardens/fieldops-api/internal/dto"
	"github.com/parks-gardens/fieldops-api/internal/models"
	"github.com/parks-gardens/fieldops-api/internal/safety"
)

const defaultTimeout = 30 * time.Second

var (
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrReasonRequired = errors.New("a reason is required to report a task incomplete")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int             `json:"-"`
	Code       string          `json:"code"`
	Message    string          `json:"message"`
	Details    json.RawMessage `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (%d)", e.Code, e.Message, e.StatusCode)
}

// Client talks to the field operations API.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken reuses a token from an earlier login.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the bearer token in use, if any.
func (c *Client) Token() string { return c.token }

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	var resp dto.AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp, nil
}

// MyTasks lists the caller's tasks. date is YYYY-MM-DD in the field
// timezone, or empty for every date.
func (c *Client) MyTasks(ctx context.Context, date string) ([]dto.TaskDTO, error) {
	path := "/api/my-tasks"
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}
	var tasks []dto.TaskDTO
	if err := c.do(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Task fetches one task.
func (c *Client) Task(ctx context.Context, id uint64) (*dto.TaskDTO, error) {
	var task dto.TaskDTO
	if err := c.do(ctx, http.MethodGet, taskPath(id, ""), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Acknowledge records that the caller read one of the task's documents.
func (c *Client) Acknowledge(ctx context.Context, taskID uint64, docType models.DocumentType) (*models.SafetyAcknowledgment, error) {
	var ack models.SafetyAcknowledgment
	body := map[string]models.DocumentType{"document_type": docType}
	if err := c.do(ctx, http.MethodPost, taskPath(taskID, "/acknowledgments"), body, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// StatusUpdate is the body of a status change.
type StatusUpdate struct {
	Status            models.TaskStatus `json:"status"`
	StartTime         *time.Time        `json:"start_time,omitempty"`
	EndTime           *time.Time        `json:"end_time,omitempty"`
	IncompleteReason  *string           `json:"incomplete_reason,omitempty"`
	AcknowledgmentIDs []uint64          `json:"acknowledgment_ids,omitempty"`
}

// UpdateStatus moves a task to a new status.
func (c *Client) UpdateStatus(ctx context.Context, taskID uint64, update StatusUpdate) (*dto.TaskDTO, error) {
	var task dto.TaskDTO
	if err := c.do(ctx, http.MethodPut, taskPath(taskID, "/status"), update, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Document is an attached safety document as shown to a worker before
// they start a task.
type Document struct {
	Ref   models.DocumentRef
	Title string
	Items []string
}

// Documents lists the safety documents attached to task.
func Documents(task *dto.TaskDTO) []Document {
	var docs []Document
	if task.RiskAssessmentID != nil {
		docs = append(docs, Document{
			Ref:   models.DocumentRef{Type: models.DocumentTypeRiskAssessment, ID: *task.RiskAssessmentID},
			Title: deref(task.RiskAssessmentTitle),
			Items: append(append([]string{}, task.Hazards...), task.Controls...),
		})
	}
	if task.SWMSID != nil {
		docs = append(docs, Document{
			Ref:   models.DocumentRef{Type: models.DocumentTypeSWMS, ID: *task.SWMSID},
			Title: deref(task.SWMSTitle),
			Items: append(append([]string{}, task.Steps...), task.PPE...),
		})
	}
	return docs
}

// ConfirmFunc asks the worker whether they have read doc.
type ConfirmFunc func(doc Document) bool

// StartTask walks the worker through the task's safety documents and
// starts it. Nothing is sent to the server unless every attached document
// is confirmed; a declined document cancels the attempt with
// safety.ErrAcknowledgmentRequired.
func (c *Client) StartTask(ctx context.Context, taskID uint64, confirm ConfirmFunc) (*dto.TaskDTO, error) {
	task, err := c.Task(ctx, taskID)
	if err != nil {
		return nil, err
	}

	docs := Documents(task)
	refs := make([]models.DocumentRef, len(docs))
	for i, d := range docs {
		refs[i] = d.Ref
	}

	gate := safety.NewGate(refs)
	gate.Open()
	for _, doc := range docs {
		if !confirm(doc) {
			break
		}
		if err := gate.Acknowledge(doc.Ref.Type); err != nil {
			gate.Cancel()
			return nil, err
		}
	}
	if err := gate.Confirm(); err != nil {
		gate.Cancel()
		return nil, err
	}

	ackIDs := make([]uint64, 0, len(docs))
	for _, doc := range docs {
		ack, err := c.Acknowledge(ctx, taskID, doc.Ref.Type)
		if err != nil {
			return nil, fmt.Errorf("acknowledge %s: %w", doc.Ref.Type.Label(), err)
		}
		ackIDs = append(ackIDs, ack.ID)
	}

	return c.UpdateStatus(ctx, taskID, StatusUpdate{
		Status:            models.TaskStatusInProgress,
		AcknowledgmentIDs: ackIDs,
	})
}

// CompleteTask marks an in-progress task completed.
func (c *Client) CompleteTask(ctx context.Context, taskID uint64) (*dto.TaskDTO, error) {
	return c.UpdateStatus(ctx, taskID, StatusUpdate{Status: models.TaskStatusCompleted})
}

// ReportIncomplete sends a task back for rescheduling.
func (c *Client) ReportIncomplete(ctx context.Context, taskID uint64, reason string) (*dto.TaskDTO, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	return c.UpdateStatus(ctx, taskID, StatusUpdate{
		Status:           models.TaskStatusNeedsRescheduling,
		IncompleteReason: &reason,
	})
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if !strings.HasPrefix(path, "/api/auth/") {
		return ErrNotLoggedIn
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func taskPath(id uint64, suffix string) string {
	return "/api/tasks/" + strconv.FormatUint(id, 10) + suffix
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
