package clientapp

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dme-bo/briskolive/internal/listing"
	"github.com/dme-bo/briskolive/internal/notes"
	"github.com/dme-bo/briskolive/internal/pages"
	"github.com/dme-bo/briskolive/internal/record"
)

const maxDrafts = 10

// pageRoutes serves / and everything under /{page}.
func (s *server) pageRoutes(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(r.URL.Path, "/")
	if trimmed == "" {
		http.Redirect(w, r, "/members", http.StatusFound)
		return
	}
	parts := strings.Split(trimmed, "/")
	page, ok := pages.Lookup(parts[0])
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.listPage(w, r, page)
	case len(parts) == 2 && parts[1] == "import":
		if !page.Importable {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			s.importPage(w, r, page)
		case http.MethodPost:
			s.importProxy(w, r, page)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "export.xlsx":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.exportProxy(w, r, page)
	case len(parts) == 2:
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.detailPage(w, r, page, parts[1])
	case len(parts) == 3 && parts[2] == "notes":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.saveNotesProxy(w, r, page, parts[1])
	default:
		http.NotFound(w, r)
	}
}

func listStateFrom(r *http.Request, page pages.Page) listState {
	q := r.URL.Query()
	return listState{
		slug:      page.Slug,
		search:    strings.TrimSpace(q.Get("q")),
		selection: page.Engine().ParseSelection(q),
		page:      parsePositiveInt(q.Get("page"), 1),
		size:      listing.ParsePageSize(q.Get("per_page")),
	}
}

func (s *server) listPage(w http.ResponseWriter, r *http.Request, page pages.Page) {
	state := listStateFrom(r, page)
	query := state.values()
	query.Set("per_page", listing.FormatPageSize(state.size))

	data := pageData{
		Title:       page.Title,
		Nav:         navLinks(page.Slug),
		Error:       strings.TrimSpace(r.URL.Query().Get("error")),
		Message:     strings.TrimSpace(r.URL.Query().Get("message")),
		DismissURL:  withoutParams(r.URL, "error", "message"),
		Page:        page,
		Search:      state.search,
		Columns:     page.Columns,
		Filtered:    state.search != "" || state.selection.Active(),
		ClearURL:    "/" + page.Slug,
		CurrentSize: listing.FormatPageSize(state.size),
		PageSizes:   buildPageSizes(state),
		ExportURL:   listState{slug: page.Slug, search: state.search, selection: state.selection, size: listing.DefaultPageSize}.url("/export.xlsx"),
		PageNumber:  1,
		TotalPages:  1,
	}

	result, err := s.fetchRecords(r.Context(), page.Slug, query)
	if err != nil {
		if isTimeout(err) {
			s.stuck(w, r, "")
			return
		}
		s.logger.Error("list load failed", "page", page.Slug, "err", err)
		data.Error = "Could not load " + strings.ToLower(page.Title) + ": " + errorMessage(err, "service unavailable")
		data.Filters = buildFilters(page, nil, state.selection)
		s.render(w, s.listTmpl, http.StatusBadGateway, data)
		return
	}

	data.Filters = buildFilters(page, result.Options, state.selection)
	data.Rows = buildRows(page, result.Rows)
	data.Total = result.Total
	data.PageNumber = result.Page.Page
	data.TotalPages = result.TotalPages
	data.HasPrev = result.HasPrev
	data.HasNext = result.HasNext
	if result.HasPrev {
		data.PrevURL = state.withPage(result.Page.Page - 1).url("")
	}
	if result.HasNext {
		data.NextURL = state.withPage(result.Page.Page + 1).url("")
	}
	s.render(w, s.listTmpl, http.StatusOK, data)
}

func (s *server) detailPage(w http.ResponseWriter, r *http.Request, page pages.Page, id string) {
	q := r.URL.Query()
	tab := strings.TrimSpace(q.Get("tab"))
	draftCount := parsePositiveInt(q.Get("drafts"), 1)
	s.renderDetail(w, r, page, id, tab, make([]record.NoteDraft, min(draftCount, maxDrafts)), "")
}

// renderDetail draws the detail view. drafts are the note forms to show
// on the notes tab; notice is a failure to report on top of any ?error.
func (s *server) renderDetail(w http.ResponseWriter, r *http.Request, page pages.Page, id, tab string, drafts []record.NoteDraft, notice string) {
	detailURL := "/" + page.Slug + "/" + url.PathEscape(id)
	rec, err := s.fetchRecord(r.Context(), page.Slug, id)
	switch {
	case isTimeout(err):
		s.stuck(w, r, detailURL+"?tab="+url.QueryEscape(tab))
		return
	case errors.Is(err, errNotFound):
		redirectWith(w, r, "/"+page.Slug, "error", page.Singular+" not found")
		return
	case err != nil:
		s.logger.Error("record load failed", "page", page.Slug, "id", id, "err", err)
		redirectWith(w, r, "/"+page.Slug, "error", "Could not load "+strings.ToLower(page.Singular)+": "+errorMessage(err, "service unavailable"))
		return
	}

	active := page.Tab(tab).Slug
	if tab == pages.NotesTab {
		active = pages.NotesTab
	}
	status := http.StatusOK
	data := pageData{
		Title:       strings.TrimSpace(rec.String(page.NameField)),
		Nav:         navLinks(page.Slug),
		Error:       strings.TrimSpace(r.URL.Query().Get("error")),
		Message:     strings.TrimSpace(r.URL.Query().Get("message")),
		DismissURL:  detailURL + "?tab=" + url.QueryEscape(active),
		Page:        page,
		Record:      rec,
		RecordName:  strings.TrimSpace(rec.String(page.NameField)),
		Tabs:        buildTabs(page, id, active),
		ActiveTab:   active,
		NotesActive: active == pages.NotesTab,
	}
	if data.Title == "" {
		data.Title = page.Singular
	}
	if notice != "" {
		data.Error = notice
		status = http.StatusBadGateway
	}

	if data.NotesActive {
		panel := notes.NewPanel(&apiNotes{s: s, slug: page.Slug, id: id}, s.staffName)
		if err := panel.Activate(r.Context()); err != nil {
			if isTimeout(err) {
				s.stuck(w, r, detailURL+"?tab="+pages.NotesTab)
				return
			}
			s.logger.Error("notes load failed", "page", page.Slug, "id", id, "err", err)
			if data.Error == "" {
				data.Error = "Could not load notes: " + errorMessage(err, "service unavailable")
			}
		}
		data.Notes = panel.History()
		if len(drafts) == 0 {
			drafts = make([]record.NoteDraft, 1)
		}
		data.Drafts = drafts
		if len(drafts) < maxDrafts {
			data.MoreDrafts = detailURL + "?tab=" + pages.NotesTab + "&drafts=" + strconv.Itoa(len(drafts)+1)
		}
	} else {
		data.Fields = buildFields(page, page.Tab(active), rec)
	}
	s.render(w, s.detailTmpl, status, data)
}

// draftsFromForm reads the repeated body/next_action/follow_up_date fields
// of the notes form in order.
func draftsFromForm(form url.Values, author string) []record.NoteDraft {
	bodies := form["body"]
	actions := form["next_action"]
	followUps := form["follow_up_date"]
	n := max(len(bodies), len(actions), len(followUps))
	if n > maxDrafts {
		n = maxDrafts
	}
	at := func(values []string, i int) string {
		if i < len(values) {
			return values[i]
		}
		return ""
	}
	out := make([]record.NoteDraft, n)
	for i := range out {
		out[i] = record.NoteDraft{
			Author:       author,
			Body:         at(bodies, i),
			NextAction:   at(actions, i),
			FollowUpDate: at(followUps, i),
		}
	}
	return out
}

// saveNotesProxy saves every draft on the notes tab. On failure the page is
// drawn again with the drafts still filled in.
func (s *server) saveNotesProxy(w http.ResponseWriter, r *http.Request, page pages.Page, id string) {
	notesURL := "/" + page.Slug + "/" + url.PathEscape(id) + "?tab=" + pages.NotesTab
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, notesURL, "error", "Invalid form submission")
		return
	}
	drafts := draftsFromForm(r.PostForm, s.staffName)

	panel := notes.NewPanel(&apiNotes{s: s, slug: page.Slug, id: id}, s.staffName)
	if err := panel.Activate(r.Context()); err != nil {
		if isTimeout(err) {
			s.stuck(w, r, notesURL)
			return
		}
		if errors.Is(err, errNotFound) {
			redirectWith(w, r, "/"+page.Slug, "error", page.Singular+" not found")
			return
		}
	}
	for _, d := range drafts {
		if err := panel.UpdateDraft(panel.AddDraft(), d); err != nil {
			redirectWith(w, r, notesURL, "error", "Invalid form submission")
			return
		}
	}

	saved, err := panel.SaveAll(r.Context())
	if err != nil {
		notice := panel.Notice()
		if isTimeout(err) {
			notice = "Saving notes timed out. Your drafts are below; try again."
		}
		s.logger.Error("save notes failed", "page", page.Slug, "id", id, "saved", saved, "err", err)
		// Drafts the API already stored are gone from the panel.
		s.renderDetail(w, r, page, id, pages.NotesTab, panel.Drafts(), notice)
		return
	}
	switch saved {
	case 0:
		http.Redirect(w, r, notesURL, http.StatusFound)
	case 1:
		redirectWith(w, r, notesURL, "message", "1 note saved")
	default:
		redirectWith(w, r, notesURL, "message", strconv.Itoa(saved)+" notes saved")
	}
}

func (s *server) importPage(w http.ResponseWriter, r *http.Request, page pages.Page) {
	enabled, err := s.fetchImportEnabled(r.Context(), page.Slug)
	if isTimeout(err) {
		s.stuck(w, r, "")
		return
	}
	data := pageData{
		Title:         "Import " + strings.ToLower(page.Title),
		Nav:           navLinks(page.Slug),
		Error:         strings.TrimSpace(r.URL.Query().Get("error")),
		Message:       strings.TrimSpace(r.URL.Query().Get("message")),
		DismissURL:    "/" + page.Slug + "/import",
		Page:          page,
		ImportEnabled: enabled,
	}
	if err != nil {
		s.logger.Error("import status failed", "page", page.Slug, "err", err)
		data.Error = "Could not reach the import service: " + errorMessage(err, "service unavailable")
	}
	s.render(w, s.importTmpl, http.StatusOK, data)
}

// importProxy re-posts the uploaded file and password to the API and shows
// the result on the import page.
func (s *server) importProxy(w http.ResponseWriter, r *http.Request, page pages.Page) {
	importURL := "/" + page.Slug + "/import"
	if err := r.ParseMultipartForm(22 << 20); err != nil {
		redirectWith(w, r, importURL, "error", "Invalid upload form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		redirectWith(w, r, importURL, "error", "Choose a file to import")
		return
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("password", r.FormValue("password"))
	part, err := writer.CreateFormFile("file", header.Filename)
	if err != nil {
		redirectWith(w, r, importURL, "error", "Unable to prepare upload")
		return
	}
	if _, err := io.Copy(part, file); err != nil {
		redirectWith(w, r, importURL, "error", "Unable to read upload")
		return
	}
	if err := writer.Close(); err != nil {
		redirectWith(w, r, importURL, "error", "Unable to finalize upload")
		return
	}

	res, err := s.postImport(r.Context(), page.Slug, &body, writer.FormDataContentType())
	if isTimeout(err) {
		s.stuck(w, r, importURL)
		return
	}
	if err != nil {
		s.logger.Warn("import rejected", "page", page.Slug, "file", header.Filename, "err", err)
		redirectWith(w, r, importURL, "error", errorMessage(err, "Import failed"))
		return
	}

	data := pageData{
		Title:         "Import " + strings.ToLower(page.Title),
		Nav:           navLinks(page.Slug),
		DismissURL:    importURL,
		Page:          page,
		ImportEnabled: true,
		ImportResult:  &res,
	}
	if res.Error != "" {
		data.Error = "Import stopped at row " + strconv.Itoa(res.StoppedAt) + ": " + res.Error
	} else {
		data.Message = strconv.Itoa(res.Written) + " of " + strconv.Itoa(res.Parsed) + " rows imported"
	}
	s.render(w, s.importTmpl, http.StatusOK, data)
}

func (s *server) exportProxy(w http.ResponseWriter, r *http.Request, page pages.Page) {
	q := r.URL.Query()
	query := url.Values{}
	if search := strings.TrimSpace(q.Get("q")); search != "" {
		query.Set("q", search)
	}
	page.Engine().ParseSelection(q).Encode(query)
	path := pagePath(page.Slug, "export.xlsx")
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	listURL := "/" + page.Slug
	if encoded := query.Encode(); encoded != "" {
		listURL += "?" + encoded
	}
	apiResp, err := s.apiDo(r.Context(), http.MethodGet, path, nil, "")
	if isTimeout(err) {
		s.stuck(w, r, "")
		return
	}
	if err != nil {
		s.logger.Error("export failed", "page", page.Slug, "err", err)
		redirectWith(w, r, listURL, "error", "Export failed: "+errorMessage(err, "service unavailable"))
		return
	}
	defer apiResp.Body.Close()
	for _, key := range []string{"Content-Type", "Content-Disposition", "Content-Length"} {
		if value := apiResp.Header.Get(key); value != "" {
			w.Header().Set(key, value)
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, apiResp.Body)
}
