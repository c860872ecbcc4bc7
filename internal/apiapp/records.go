package apiapp

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dme-bo/briskolive/internal/export"
	"github.com/dme-bo/briskolive/internal/importer"
	"github.com/dme-bo/briskolive/internal/listing"
	"github.com/dme-bo/briskolive/internal/notes"
	"github.com/dme-bo/briskolive/internal/pages"
	"github.com/dme-bo/briskolive/internal/record"
)

type saveNotesRequest struct {
	Author string             `json:"author"`
	Drafts []record.NoteDraft `json:"drafts"`
}

type importStatusResponse struct {
	Enabled bool `json:"enabled"`
}

func (s *server) pagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pages": pages.All()})
}

// pageHandler routes /api/pages/{page}/...
func (s *server) pageHandler(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/pages/"), "/")
	if trimmed == "" {
		http.NotFound(w, r)
		return
	}
	parts := strings.Split(trimmed, "/")
	page, ok := pages.Lookup(parts[0])
	if !ok {
		writeError(w, http.StatusNotFound, "unknown page")
		return
	}

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, page)
	case len(parts) == 2 && parts[1] == "records":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.listRecords(w, r, page)
	case len(parts) == 3 && parts[1] == "records":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.getRecord(w, r, page, parts[2])
	case len(parts) == 4 && parts[1] == "records" && parts[3] == "notes":
		switch r.Method {
		case http.MethodGet:
			s.listNotes(w, r, page, parts[2])
		case http.MethodPost:
			s.saveNotes(w, r, page, parts[2])
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "import":
		if !page.Importable {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, importStatusResponse{Enabled: s.importer.Enabled()})
		case http.MethodPost:
			s.importRecords(w, r, page)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "export.xlsx":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.exportRecords(w, r, page)
	default:
		http.NotFound(w, r)
	}
}

func listQuery(r *http.Request, page pages.Page) listing.Query {
	q := r.URL.Query()
	return listing.Query{
		Search:    strings.TrimSpace(q.Get("q")),
		Selection: page.Engine().ParseSelection(q),
		Page:      parsePositiveInt(q.Get("page"), 1),
		PageSize:  listing.ParsePageSize(q.Get("per_page")),
	}
}

func (s *server) listRecords(w http.ResponseWriter, r *http.Request, page pages.Page) {
	records, err := s.store.ListRecords(r.Context(), page.Collection)
	if err != nil {
		s.storeError(w, r, err, "unable to load records")
		return
	}
	writeJSON(w, http.StatusOK, listing.Run(records, page.ListingConfig(), listQuery(r, page)))
}

func (s *server) getRecord(w http.ResponseWriter, r *http.Request, page pages.Page, id string) {
	rec, err := s.store.GetRecord(r.Context(), page.Collection, id)
	if err != nil {
		s.storeError(w, r, err, "unable to load record")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *server) listNotes(w http.ResponseWriter, r *http.Request, page pages.Page, id string) {
	history, err := notes.ForRecord(s.store, page.Collection, id, 0).List(r.Context())
	if err != nil {
		s.storeError(w, r, err, "unable to load notes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": history})
}

func (s *server) saveNotes(w http.ResponseWriter, r *http.Request, page pages.Page, id string) {
	var req saveNotesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := s.store.GetRecord(r.Context(), page.Collection, id); err != nil {
		s.storeError(w, r, err, "unable to load record")
		return
	}
	author := strings.TrimSpace(req.Author)
	if author == "" {
		author = s.staffName
	}

	res, err := notes.SaveAll(r.Context(), notes.ForRecord(s.store, page.Collection, id, 0), author, req.Drafts)
	if res.Saved > 0 {
		s.metrics.NotesSaved(res.Saved)
	}
	if err != nil {
		s.logger.Error("save notes failed", "page", page.Slug, "record", id, "saved", res.Saved, "err", err)
		if res.Saved > 0 {
			writeJSON(w, http.StatusMultiStatus, map[string]any{"saved": res.Saved, "error": "some notes could not be saved"})
			return
		}
		s.storeError(w, r, err, "unable to save notes")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) importRecords(w http.ResponseWriter, r *http.Request, page pages.Page) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes+(2<<20))
	raw, _, fileName, err := parseUploadedFileWithField(r, "file", maxImportBytes, nil, "import file is required")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.importer.Import(r.Context(), page, fileName, bytes.NewReader(raw), r.FormValue("password"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, importer.ErrPasswordRejected), errors.Is(err, importer.ErrImportsDisabled):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, importer.ErrParse):
		writeError(w, http.StatusBadRequest, err.Error())
	case res.Partial():
		writeJSON(w, http.StatusMultiStatus, res)
	default:
		s.storeError(w, r, err, "import failed")
	}
}

func (s *server) exportRecords(w http.ResponseWriter, r *http.Request, page pages.Page) {
	records, err := s.store.ListRecords(r.Context(), page.Collection)
	if err != nil {
		s.storeError(w, r, err, "unable to load records")
		return
	}
	rows := listing.Filtered(records, page.ListingConfig(), listQuery(r, page))
	data, err := export.XLSX(page, rows)
	if err != nil {
		s.logger.Error("export failed", "page", page.Slug, "err", err)
		writeError(w, http.StatusInternalServerError, "unable to build export")
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(export.Filename(page, s.now())))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
