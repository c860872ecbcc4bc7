package apiapp

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dme-bo/briskolive/internal/blob"
	"github.com/dme-bo/briskolive/internal/newsletter"
	"github.com/dme-bo/briskolive/internal/record"
)

type contentResponse struct {
	record.NewsletterContent
	HasLogo bool `json:"hasLogo"`
}

type pdfRequest struct {
	JobIDs     []string `json:"jobIds"`
	ProjectIDs []string `json:"projectIds"`
	Archive    bool     `json:"archive"`
}

func contentView(c record.NewsletterContent) contentResponse {
	hasLogo := len(c.Logo) > 0
	c.Logo = nil
	return contentResponse{NewsletterContent: c, HasLogo: hasLogo}
}

func (s *server) newsletterContentHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		c, err := s.newsletter.Content(r.Context())
		if err != nil {
			s.storeError(w, r, err, "unable to load newsletter content")
			return
		}
		writeJSON(w, http.StatusOK, contentView(c))
	case http.MethodPut:
		var c record.NewsletterContent
		if err := decodeJSON(r, &c); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		c.Logo, c.LogoMime = nil, ""
		saved, err := s.newsletter.SaveContent(r.Context(), c)
		if err != nil {
			s.storeError(w, r, err, "unable to save newsletter content")
			return
		}
		writeJSON(w, http.StatusOK, contentView(saved))
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) newsletterLogoHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		c, err := s.newsletter.Content(r.Context())
		if err != nil {
			s.storeError(w, r, err, "unable to load newsletter content")
			return
		}
		if len(c.Logo) == 0 {
			writeError(w, http.StatusNotFound, "no logo uploaded")
			return
		}
		w.Header().Set("Content-Type", c.LogoMime)
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(c.Logo)
	case http.MethodPost:
		raw, _, _, err := parseUploadedFileWithField(r, "logo", maxLogoBytes, []string{"image/png", "image/jpeg", "image/webp"}, "logo file is required")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.newsletter.SetLogo(r.Context(), raw); err != nil {
			if errors.Is(err, newsletter.ErrInvalidLogo) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			s.storeError(w, r, err, "unable to save logo")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "logo updated"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) newsletterPDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req pdfRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := s.newsletter.Generate(r.Context(), newsletter.Selection{JobIDs: req.JobIDs, ProjectIDs: req.ProjectIDs}, req.Archive)
	switch {
	case errors.Is(err, newsletter.ErrArchiveDisabled):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil && len(out.PDF) > 0:
		// Rendered but not archived; still hand the PDF back.
		s.logger.Error("newsletter archive failed", "err", err)
		w.Header().Set("X-Archive-Error", "archive failed")
	case err != nil:
		s.storeError(w, r, err, "unable to build newsletter")
		return
	}
	if out.Archived != nil {
		w.Header().Set("X-Archive-Key", out.Archived.Key)
	}
	w.Header().Set("Content-Type", newsletter.ContentType)
	w.Header().Set("Content-Disposition", "inline; filename="+strconv.Quote(out.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.PDF)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.PDF)
}

func (s *server) newsletterPreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	preview, err := s.newsletter.Preview(r.Context(), newsletter.Selection{
		JobIDs:     splitIDs(q.Get("jobs")),
		ProjectIDs: splitIDs(q.Get("projects")),
	})
	if err != nil {
		s.storeError(w, r, err, "unable to build preview")
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *server) newsletterArchiveList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.newsletter.ArchiveEnabled() {
		writeJSON(w, http.StatusOK, map[string]any{"enabled": false, "items": []blob.Info{}})
		return
	}
	items, err := s.newsletter.Archived(r.Context())
	if err != nil {
		s.storeError(w, r, err, "unable to list archive")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"enabled": true, "items": items})
}

// newsletterArchiveItem streams /api/newsletter/archive/{name}. With
// ?link=1 it returns a presigned URL instead when the backend has one.
func (s *server) newsletterArchiveItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := path.Base(strings.TrimPrefix(r.URL.Path, "/api/newsletter/archive/"))
	if name == "" || name == "." || name == "/" {
		http.NotFound(w, r)
		return
	}
	if !s.newsletter.ArchiveEnabled() {
		writeError(w, http.StatusNotFound, newsletter.ErrArchiveDisabled.Error())
		return
	}

	if parseBoolQueryValue(r.URL.Query().Get("link")) {
		url, err := s.newsletter.ArchivedURL(r.Context(), name, 15*time.Minute)
		if errors.Is(err, blob.ErrUnsupported) {
			writeError(w, http.StatusNotImplemented, "archive backend cannot presign links")
			return
		}
		if err != nil {
			s.storeError(w, r, err, "unable to sign archive link")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": url})
		return
	}

	info, body, err := s.newsletter.OpenArchived(r.Context(), name)
	if errors.Is(err, blob.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		s.storeError(w, r, err, "unable to open archived newsletter")
		return
	}
	defer body.Close()
	contentType := info.ContentType
	if contentType == "" {
		contentType = newsletter.ContentType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "inline; filename="+strconv.Quote(name))
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}
