package clientapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/dme-bo/briskolive/internal/listing"
	"github.com/dme-bo/briskolive/internal/newsletter"
	"github.com/dme-bo/briskolive/internal/record"
)

type newsletterContent struct {
	record.NewsletterContent
	HasLogo bool `json:"hasLogo"`
}

// newsletterRoutes serves everything under /newsletter/.
func (s *server) newsletterRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/newsletter/"), "/")
	switch {
	case rest == "":
		http.Redirect(w, r, "/newsletter", http.StatusFound)
	case rest == "content":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.saveContentProxy(w, r)
	case rest == "logo":
		switch r.Method {
		case http.MethodGet:
			s.streamProxy(w, r, "/api/newsletter/logo", "")
		case http.MethodPost:
			s.uploadLogoProxy(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case rest == "pdf":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.pdfProxy(w, r)
	case strings.HasPrefix(rest, "archive/"):
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		name := path.Base(strings.TrimPrefix(rest, "archive/"))
		s.streamProxy(w, r, "/api/newsletter/archive/"+url.PathEscape(name), "")
	default:
		http.NotFound(w, r)
	}
}

func selectedIDs(values url.Values, key string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, raw := range values[key] {
		id := strings.TrimSpace(raw)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (s *server) allRecords(ctx context.Context, slug string) ([]record.Record, error) {
	result, err := s.fetchRecords(ctx, slug, url.Values{"per_page": {listing.FormatPageSize(0)}})
	if err != nil {
		return nil, err
	}
	return result.Rows, nil
}

func (s *server) newsletterPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	jobIDs := selectedIDs(q, "job")
	projectIDs := selectedIDs(q, "project")
	ctx := r.Context()

	data := pageData{
		Title:      "Newsletter",
		Nav:        navLinks("newsletter"),
		Error:      strings.TrimSpace(q.Get("error")),
		Message:    strings.TrimSpace(q.Get("message")),
		DismissURL: withoutParams(r.URL, "error", "message"),
	}
	var failures []string
	fail := func(what string, err error) bool {
		if isTimeout(err) {
			s.stuck(w, r, "")
			return true
		}
		s.logger.Error("newsletter load failed", "part", what, "err", err)
		failures = append(failures, what)
		return false
	}

	content, err := s.fetchContent(ctx)
	if err != nil && fail("content", err) {
		return
	}
	data.Content = content
	data.Partners = strings.Join(content.RegionalPartners, "\n")
	data.FooterLines = strings.Join(content.Footer, "\n")

	jobs, err := s.allRecords(ctx, newsletter.JobsCollection)
	if err != nil && fail("jobs", err) {
		return
	}
	data.Jobs = buildChoices(jobs, "title", "company", jobIDs)

	projects, err := s.allRecords(ctx, newsletter.ProjectsCollection)
	if err != nil && fail("projects", err) {
		return
	}
	data.Projects = buildChoices(projects, "name", "client", projectIDs)

	preview, err := s.fetchPreview(ctx, jobIDs, projectIDs)
	if err != nil && fail("preview", err) {
		return
	}
	// aboutHtml is sanitized by the API before it leaves the server.
	data.PreviewHTML = template.HTML(preview.AboutHTML)
	data.PreviewJobs = preview.Jobs
	data.PreviewProj = preview.Projects
	data.Missing = preview.Missing

	enabled, items, err := s.fetchArchive(ctx)
	if err != nil && fail("archive", err) {
		return
	}
	data.ArchiveEnabled = enabled
	data.Archive = items

	if len(failures) > 0 && data.Error == "" {
		data.Error = "Could not load " + strings.Join(failures, ", ")
	}
	s.render(w, s.newsletterTmpl, http.StatusOK, data)
}

func splitLines(raw string) []string {
	out := []string{}
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func (s *server) saveContentProxy(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/newsletter", "error", "Invalid form submission")
		return
	}
	payload := record.NewsletterContent{
		Title:            strings.TrimSpace(r.FormValue("title")),
		Edition:          strings.TrimSpace(r.FormValue("edition")),
		Intro:            strings.TrimSpace(r.FormValue("intro")),
		TempStaffing:     strings.TrimSpace(r.FormValue("temp_staffing")),
		RegionalPartners: splitLines(r.FormValue("regional_partners")),
		Defence:          strings.TrimSpace(r.FormValue("defence")),
		AboutUs:          strings.TrimSpace(r.FormValue("about_us")),
		Footer:           splitLines(r.FormValue("footer")),
	}
	_, err := s.apiJSON(r.Context(), http.MethodPut, "/api/newsletter/content", payload, nil)
	if isTimeout(err) {
		s.stuck(w, r, "/newsletter")
		return
	}
	if err != nil {
		s.logger.Error("save newsletter content failed", "err", err)
		redirectWith(w, r, "/newsletter", "error", errorMessage(err, "Unable to save content"))
		return
	}
	redirectWith(w, r, "/newsletter", "message", "Newsletter content saved")
}

func (s *server) uploadLogoProxy(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(7 << 20); err != nil {
		redirectWith(w, r, "/newsletter", "error", "Invalid upload form")
		return
	}
	file, header, err := r.FormFile("logo")
	if err != nil {
		redirectWith(w, r, "/newsletter", "error", "Logo file is required")
		return
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("logo", header.Filename)
	if err != nil {
		redirectWith(w, r, "/newsletter", "error", "Unable to prepare upload")
		return
	}
	if _, err := io.Copy(part, file); err != nil {
		redirectWith(w, r, "/newsletter", "error", "Unable to read upload")
		return
	}
	if err := writer.Close(); err != nil {
		redirectWith(w, r, "/newsletter", "error", "Unable to finalize upload")
		return
	}

	apiResp, err := s.apiDo(r.Context(), http.MethodPost, "/api/newsletter/logo", &body, writer.FormDataContentType())
	if isTimeout(err) {
		s.stuck(w, r, "/newsletter")
		return
	}
	if err != nil {
		redirectWith(w, r, "/newsletter", "error", errorMessage(err, "Unable to upload logo"))
		return
	}
	_ = apiResp.Body.Close()
	redirectWith(w, r, "/newsletter", "message", "Logo updated")
}

// pdfProxy renders the selected issue through the API and hands the PDF
// to the browser as a download.
func (s *server) pdfProxy(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/newsletter", "error", "Invalid form submission")
		return
	}
	jobIDs := selectedIDs(r.PostForm, "job")
	projectIDs := selectedIDs(r.PostForm, "project")
	back := url.Values{"job": jobIDs, "project": projectIDs}
	backURL := "/newsletter?" + back.Encode()

	payload := map[string]any{
		"jobIds":     jobIDs,
		"projectIds": projectIDs,
		"archive":    parseBoolFormValue(r.FormValue("archive")),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		redirectWith(w, r, backURL, "error", "Unable to build newsletter")
		return
	}
	apiResp, err := s.apiDo(r.Context(), http.MethodPost, "/api/newsletter/pdf", bytes.NewReader(raw), "application/json")
	if isTimeout(err) {
		s.stuck(w, r, backURL)
		return
	}
	if err != nil {
		s.logger.Error("newsletter render failed", "err", err)
		redirectWith(w, r, backURL, "error", errorMessage(err, "Unable to build newsletter"))
		return
	}
	defer apiResp.Body.Close()

	disposition := strings.Replace(apiResp.Header.Get("Content-Disposition"), "inline", "attachment", 1)
	if disposition == "" {
		disposition = "attachment; filename=\"newsletter.pdf\""
	}
	w.Header().Set("Content-Type", newsletter.ContentType)
	w.Header().Set("Content-Disposition", disposition)
	if value := apiResp.Header.Get("Content-Length"); value != "" {
		w.Header().Set("Content-Length", value)
	}
	for _, key := range []string{"X-Archive-Key", "X-Archive-Error"} {
		if value := apiResp.Header.Get(key); value != "" {
			w.Header().Set(key, value)
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, apiResp.Body)
}

// streamProxy copies a binary API response through unchanged.
func (s *server) streamProxy(w http.ResponseWriter, r *http.Request, apiPath, retryURL string) {
	apiResp, err := s.apiDo(r.Context(), http.MethodGet, apiPath, nil, "")
	if isTimeout(err) {
		s.stuck(w, r, retryURL)
		return
	}
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, errNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, errorMessage(err, "unavailable"), status)
		return
	}
	defer apiResp.Body.Close()
	for _, key := range []string{"Content-Type", "Content-Disposition", "Content-Length", "Cache-Control"} {
		if value := apiResp.Header.Get(key); value != "" {
			w.Header().Set(key, value)
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, apiResp.Body)
}
