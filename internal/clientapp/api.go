package clientapp

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
	"strings"

	"github.com/dme-bo/briskolive/internal/blob"
	"github.com/dme-bo/briskolive/internal/importer"
	"github.com/dme-bo/briskolive/internal/listing"
	"github.com/dme-bo/briskolive/internal/newsletter"
	"github.com/dme-bo/briskolive/internal/notes"
	"github.com/dme-bo/briskolive/internal/record"
)

var (
	errTimedOut    = errors.New("the server took too long to respond")
	errUnavailable = errors.New("service unavailable")
	errNotFound    = errors.New("not found")
)

// apiError carries the API's {"error": ...} message.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string { return e.Message }

func (e *apiError) Is(target error) bool {
	return target == errNotFound && e.Status == http.StatusNotFound
}

func isTimeout(err error) bool {
	if errors.Is(err, errTimedOut) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// errorMessage turns an API failure into something fit for a notice.
func errorMessage(err error, fallback string) string {
	var apiErr *apiError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	if errors.Is(err, errUnavailable) {
		return "Service unavailable"
	}
	return fallback
}

// apiDo sends one request to the API. Transport timeouts and 504 replies
// both come back as errTimedOut; other 4xx/5xx replies as *apiError. On
// success the caller owns the response body.
func (s *server) apiDo(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	apiReq, err := http.NewRequestWithContext(ctx, method, s.apiBaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		apiReq.Header.Set("Content-Type", contentType)
	}
	apiResp, err := s.apiClient.Do(apiReq)
	if err != nil {
		if isTimeout(err) {
			return nil, errTimedOut
		}
		return nil, fmt.Errorf("%w: %v", errUnavailable, err)
	}
	if apiResp.StatusCode == http.StatusGatewayTimeout {
		_ = apiResp.Body.Close()
		return nil, errTimedOut
	}
	if apiResp.StatusCode >= http.StatusBadRequest {
		defer apiResp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(apiResp.Body, 64<<10))
		msg := http.StatusText(apiResp.StatusCode)
		var errPayload map[string]string
		if err := json.Unmarshal(respBody, &errPayload); err == nil && strings.TrimSpace(errPayload["error"]) != "" {
			msg = errPayload["error"]
		}
		return nil, &apiError{Status: apiResp.StatusCode, Message: msg}
	}
	return apiResp, nil
}

// apiJSON sends payload as JSON when it is non-nil and decodes the reply into
// dst. Numbers are kept as json.Number so record fields print as stored.
func (s *server) apiJSON(ctx context.Context, method, path string, payload, dst any) (int, error) {
	var body io.Reader
	contentType := ""
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	apiResp, err := s.apiDo(ctx, method, path, body, contentType)
	if err != nil {
		return 0, err
	}
	defer apiResp.Body.Close()
	if dst == nil {
		return apiResp.StatusCode, nil
	}
	dec := json.NewDecoder(apiResp.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		if isTimeout(err) {
			return 0, errTimedOut
		}
		return apiResp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
	}
	return apiResp.StatusCode, nil
}

func pagePath(slug string, rest ...string) string {
	parts := []string{"/api/pages", url.PathEscape(slug)}
	for _, part := range rest {
		parts = append(parts, url.PathEscape(part))
	}
	return strings.Join(parts, "/")
}

func (s *server) fetchRecords(ctx context.Context, slug string, query url.Values) (listing.Result, error) {
	var out listing.Result
	path := pagePath(slug, "records")
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	_, err := s.apiJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (s *server) fetchRecord(ctx context.Context, slug, id string) (record.Record, error) {
	var out record.Record
	_, err := s.apiJSON(ctx, http.MethodGet, pagePath(slug, "records", id), nil, &out)
	return out, err
}

func (s *server) fetchImportEnabled(ctx context.Context, slug string) (bool, error) {
	var out struct {
		Enabled bool `json:"enabled"`
	}
	_, err := s.apiJSON(ctx, http.MethodGet, pagePath(slug, "import"), nil, &out)
	return out.Enabled, err
}

func (s *server) postImport(ctx context.Context, slug string, body io.Reader, contentType string) (importer.Result, error) {
	var out importer.Result
	apiResp, err := s.apiDo(ctx, http.MethodPost, pagePath(slug, "import"), body, contentType)
	if err != nil {
		return out, err
	}
	defer apiResp.Body.Close()
	if err := json.NewDecoder(apiResp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode import result: %w", err)
	}
	return out, nil
}

func (s *server) fetchContent(ctx context.Context) (newsletterContent, error) {
	var out newsletterContent
	_, err := s.apiJSON(ctx, http.MethodGet, "/api/newsletter/content", nil, &out)
	return out, err
}

func (s *server) fetchPreview(ctx context.Context, jobIDs, projectIDs []string) (newsletter.Preview, error) {
	var out newsletter.Preview
	q := url.Values{}
	q.Set("jobs", strings.Join(jobIDs, ","))
	q.Set("projects", strings.Join(projectIDs, ","))
	_, err := s.apiJSON(ctx, http.MethodGet, "/api/newsletter/preview?"+q.Encode(), nil, &out)
	return out, err
}

func (s *server) fetchArchive(ctx context.Context) (bool, []blob.Info, error) {
	var out struct {
		Enabled bool        `json:"enabled"`
		Items   []blob.Info `json:"items"`
	}
	_, err := s.apiJSON(ctx, http.MethodGet, "/api/newsletter/archive", nil, &out)
	return out.Enabled, out.Items, err
}

// apiNotes is the notes of one record as seen through the API.
type apiNotes struct {
	s           *server
	slug, id    string
	lastHistory []record.Note
}

var _ notes.Repository = (*apiNotes)(nil)

func (n *apiNotes) List(ctx context.Context) ([]record.Note, error) {
	if n.lastHistory != nil {
		history := n.lastHistory
		n.lastHistory = nil
		return history, nil
	}
	var out struct {
		Notes []record.Note `json:"notes"`
	}
	if _, err := n.s.apiJSON(ctx, http.MethodGet, pagePath(n.slug, "records", n.id, "notes"), nil, &out); err != nil {
		return nil, err
	}
	return out.Notes, nil
}

// Append posts every draft in one save-all call. The API replies with the
// refreshed history, which the next List hands back without another trip.
func (n *apiNotes) Append(ctx context.Context, drafts []record.NoteDraft) ([]record.Note, error) {
	var out struct {
		Saved   int           `json:"saved"`
		History []record.Note `json:"history"`
		Error   string        `json:"error"`
	}
	payload := map[string]any{"author": n.s.staffName, "drafts": drafts}
	status, err := n.s.apiJSON(ctx, http.MethodPost, pagePath(n.slug, "records", n.id, "notes"), payload, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusMultiStatus {
		return make([]record.Note, out.Saved), &apiError{Status: status, Message: out.Error}
	}
	n.lastHistory = out.History
	if n.lastHistory == nil {
		n.lastHistory = []record.Note{}
	}
	saved := out.Saved
	if saved > len(out.History) {
		saved = len(out.History)
	}
	return out.History[:saved], nil
}
