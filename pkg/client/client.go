// Package client talks to the school administration backend's class and
// section endpoints. It owns no state: every call is a single request whose
// outcome is a value or a *Error.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/classdesk/pkg/model"
)

// Resources is the contract consumed by the UI nodes and the exporter.
type Resources interface {
	ListClasses(ctx context.Context) ([]model.Class, error)
	RenameClass(ctx context.Context, classID int64, newName string) (model.Class, error)
	DeleteClass(ctx context.Context, classID int64) error
	ListSections(ctx context.Context, classID int64) ([]model.Section, error)
	CreateSection(ctx context.Context, classID int64, name string, capacity int) error
	RenameSection(ctx context.Context, section model.Section) error
	DeleteSection(ctx context.Context, sectionID int64) error
}

// DefaultTimeout bounds a single request when Options.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Options configures an HTTPClient.
type Options struct {
	BaseURL    string        // e.g. http://localhost:8080/api
	Token      string        // bearer token supplied by the auth collaborator
	Timeout    time.Duration // per request
	HTTPClient *http.Client  // optional, for tests
}

// HTTPClient implements Resources over the JSON envelope API.
type HTTPClient struct {
	base    *url.URL
	token   string
	timeout time.Duration
	http    *http.Client
}

var _ Resources = (*HTTPClient)(nil)

// New creates an HTTPClient for the given base URL.
func New(opts Options) (*HTTPClient, error) {
	raw := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if raw == "" {
		return nil, fmt.Errorf("client: base URL is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("client: parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("client: unsupported URL scheme %q", base.Scheme)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &HTTPClient{base: base, token: opts.Token, timeout: timeout, http: hc}, nil
}

// ListClasses fetches every class.
func (c *HTTPClient) ListClasses(ctx context.Context) ([]model.Class, error) {
	const op = "list classes"
	env, err := c.do(ctx, op, http.MethodGet, "/classes", nil, nil)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, refusedList(op, env)
	}
	classes, err := decodeClasses(env.Data)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Op: op, Message: "malformed class list", Cause: err}
	}
	return classes, nil
}

// RenameClass sets a class name. The returned class carries the server's
// authoritative name when the response includes one.
func (c *HTTPClient) RenameClass(ctx context.Context, classID int64, newName string) (model.Class, error) {
	const op = "rename class"
	name, err := model.ValidateClassName(newName)
	if err != nil {
		return model.Class{}, validationError(op, err)
	}
	body := map[string]any{"class_id": classID, "class_name": name}
	env, err := c.do(ctx, op, http.MethodPut, "/classes", nil, body)
	if err != nil {
		return model.Class{}, err
	}
	if !env.Success {
		return model.Class{}, refusedWrite(op, env)
	}
	renamed := model.Class{ID: classID, Name: name}
	if cls, ok := decodeClassObject(env.Data); ok {
		if cls.ID == 0 {
			cls.ID = classID
		}
		if cls.Name == "" {
			cls.Name = name
		}
		renamed = cls
	}
	return renamed, nil
}

// DeleteClass removes a class. The backend refuses while the class still owns
// sections or students; the client does not pre-check.
func (c *HTTPClient) DeleteClass(ctx context.Context, classID int64) error {
	const op = "delete class"
	env, err := c.do(ctx, op, http.MethodDelete, "/classes", nil, map[string]any{"class_id": classID})
	if err != nil {
		return err
	}
	if !env.Success {
		return refusedWrite(op, env)
	}
	return nil
}

// ListSections fetches the sections of one class. Sections belonging to a
// different class are dropped here so they can never render under this one.
func (c *HTTPClient) ListSections(ctx context.Context, classID int64) ([]model.Section, error) {
	const op = "list sections"
	q := url.Values{"class_id": []string{strconv.FormatInt(classID, 10)}}
	env, err := c.do(ctx, op, http.MethodGet, "/sections", q, nil)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, refusedList(op, env)
	}
	sections, err := decodeSections(env.Data, classID)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Op: op, Message: "malformed section list", Cause: err}
	}
	return sections, nil
}

// CreateSection adds a section to a class after validating the draft.
func (c *HTTPClient) CreateSection(ctx context.Context, classID int64, name string, capacity int) error {
	const op = "create section"
	trimmed, err := model.ValidateSectionName(name)
	if err != nil {
		return validationError(op, err)
	}
	if err := model.ValidateCapacity(capacity); err != nil {
		return validationError(op, err)
	}
	body := map[string]any{"class_id": classID, "section_name": trimmed, "capacity": capacity}
	env, err := c.do(ctx, op, http.MethodPost, "/sections", nil, body)
	if err != nil {
		return err
	}
	if !env.Success {
		return refusedWrite(op, env)
	}
	return nil
}

// RenameSection updates a section's name and capacity. class_id is sent
// unchanged; sections never move between classes.
func (c *HTTPClient) RenameSection(ctx context.Context, section model.Section) error {
	const op = "update section"
	trimmed, err := model.ValidateSectionName(section.Name)
	if err != nil {
		return validationError(op, err)
	}
	if err := model.ValidateCapacity(section.Capacity); err != nil {
		return validationError(op, err)
	}
	body := map[string]any{
		"section_id":   section.ID,
		"class_id":     section.ClassID,
		"section_name": trimmed,
		"capacity":     section.Capacity,
	}
	env, err := c.do(ctx, op, http.MethodPut, "/sections", nil, body)
	if err != nil {
		return err
	}
	if !env.Success {
		return refusedWrite(op, env)
	}
	return nil
}

// DeleteSection removes a section. The backend refuses while students are
// assigned to it.
func (c *HTTPClient) DeleteSection(ctx context.Context, sectionID int64) error {
	const op = "delete section"
	env, err := c.do(ctx, op, http.MethodDelete, "/sections", nil, map[string]any{"section_id": sectionID})
	if err != nil {
		return err
	}
	if !env.Success {
		return refusedWrite(op, env)
	}
	return nil
}

// envelope is the uniform response shape: {success, data?, message?}.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (e envelope) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// refusedWrite reports a 2xx response with success=false on a mutation: the
// server declined the write.
func refusedWrite(op string, env envelope) *Error {
	msg := env.text()
	if msg == "" {
		msg = "request was refused"
	}
	return &Error{Kind: KindConflict, Op: op, Message: msg, Status: http.StatusOK}
}

// refusedList reports a 2xx response with success=false on a read.
func refusedList(op string, env envelope) *Error {
	msg := env.text()
	if msg == "" {
		msg = "server returned no data"
	}
	return &Error{Kind: KindNetwork, Op: op, Message: msg, Status: http.StatusOK}
}

// do performs one request and classifies every failure into a *Error. A nil
// error means a 2xx response with a decoded envelope.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, query url.Values, body any) (envelope, error) {
	var env envelope

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return env, &Error{Kind: KindValidation, Op: op, Message: "could not encode request", Cause: err}
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return env, &Error{Kind: KindNetwork, Op: op, Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		msg := "could not reach server"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "request timed out"
		}
		return env, &Error{Kind: KindNetwork, Op: op, Message: msg, Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return env, &Error{Kind: KindNetwork, Op: op, Status: resp.StatusCode, Message: "could not read response", Cause: err}
	}
	decodeErr := json.Unmarshal(data, &env)

	if kind, failed := kindForStatus(resp.StatusCode); failed {
		msg := env.text()
		if decodeErr != nil || msg == "" {
			msg = strings.ToLower(http.StatusText(resp.StatusCode))
		}
		return env, &Error{Kind: kind, Op: op, Message: msg, Status: resp.StatusCode}
	}
	if decodeErr != nil {
		return env, &Error{Kind: KindNetwork, Op: op, Status: resp.StatusCode, Message: "malformed response", Cause: decodeErr}
	}
	return env, nil
}
