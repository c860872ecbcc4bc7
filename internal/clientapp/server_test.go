package clientapp

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dme-bo/briskolive/internal/apiapp"
	"github.com/dme-bo/briskolive/internal/record"
	"github.com/dme-bo/briskolive/internal/store/memory"
	"github.com/xuri/excelize/v2"
)

const testImportPassword = "olive-import-2024"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededStore() *memory.Store {
	s := memory.New()
	s.Seed("members",
		record.Record{ID: "m1", Fields: map[string]any{"name": "Col Rajesh Kumar", "city": "Pune", "skills": "Driving, Security", "status": "Active"}},
		record.Record{ID: "m2", Fields: map[string]any{"name": "Lt Col Priya Singh", "city": "Delhi", "skills": "Admin", "status": "Active"}},
		record.Record{ID: "m3", Fields: map[string]any{"name": "Maj Anil Rao", "city": "Pune", "skills": "Logistics", "status": "Inactive"}},
	)
	s.Seed("jobs", record.Record{ID: "j1", Fields: map[string]any{"title": "Security Supervisor", "company": "Acme Facilities", "location": "Pune"}})
	s.Seed("projects", record.Record{ID: "p1", Fields: map[string]any{"name": "Metro Depot Guarding", "client": "City Rail"}})
	return s
}

// newTestClient runs the real API over a memory store. wrap, when set, sits
// in front of the API so tests can inject failures.
func newTestClient(t *testing.T, wrap func(http.Handler) http.Handler) (http.Handler, *memory.Store) {
	t.Helper()
	st := seededStore()
	api, err := apiapp.NewHandler(apiapp.Config{
		RequestTimeout: 5 * time.Second,
		ImportPassword: testImportPassword,
		Logger:         quietLogger(),
	}, st, nil)
	if err != nil {
		t.Fatalf("api handler: %v", err)
	}
	if wrap != nil {
		api = wrap(api)
	}
	apiServer := httptest.NewServer(api)
	t.Cleanup(apiServer.Close)

	s := newServer(Config{
		APIBaseURL:    apiServer.URL,
		ClientTimeout: 2 * time.Second,
		Logger:        quietLogger(),
	})
	return s.routes(), st
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postForm(t *testing.T, h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, h, http.MethodPost, target, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func TestRootRedirectsToMembers(t *testing.T) {
	h, _ := newTestClient(t, nil)
	rec := do(t, h, http.MethodGet, "/", nil, "")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/members" {
		t.Fatalf("got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if rec := do(t, h, http.MethodGet, "/nowhere", nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown page: %d", rec.Code)
	}
}

func TestListPageFiltersAndSearch(t *testing.T) {
	h, _ := newTestClient(t, nil)

	rec := do(t, h, http.MethodGet, "/members?f.city=Pune", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"Col Rajesh Kumar", "Maj Anil Rao", "2 records", `value="Pune" selected`, "Page 1 of 1"} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in list page", want)
		}
	}
	if strings.Contains(body, "Priya") {
		t.Fatalf("Delhi member should be filtered out")
	}
	if !strings.Contains(body, "/members/export.xlsx?f.city=Pune") {
		t.Fatalf("export link should carry the filter")
	}

	rec = do(t, h, http.MethodGet, "/members?q=priya", nil, "")
	if !strings.Contains(rec.Body.String(), "Lt Col Priya Singh") || strings.Contains(rec.Body.String(), "Maj Anil Rao") {
		t.Fatalf("search did not narrow the list")
	}

	rec = do(t, h, http.MethodGet, "/members?q=nobody-matches", nil, "")
	if !strings.Contains(rec.Body.String(), "No records found") {
		t.Fatalf("expected empty state")
	}
}

func TestListLoadFailureShowsNotice(t *testing.T) {
	h, _ := newTestClient(t, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/records") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(`{"error":"unable to load records"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	rec := do(t, h, http.MethodGet, "/members", nil, "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Could not load members: unable to load records", "Dismiss", "No records found"} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q", want)
		}
	}
}

func TestTimeoutRendersStuckPage(t *testing.T) {
	st := seededStore()
	api, err := apiapp.NewHandler(apiapp.Config{Logger: quietLogger()}, st, nil)
	if err != nil {
		t.Fatal(err)
	}
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		api.ServeHTTP(w, r)
	}))
	t.Cleanup(slow.Close)

	h := newServer(Config{APIBaseURL: slow.URL, ClientTimeout: 50 * time.Millisecond, Logger: quietLogger()}).routes()
	rec := do(t, h, http.MethodGet, "/members?q=col", nil, "")
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Still waiting") || !strings.Contains(body, `href="/members?q=col"`) {
		t.Fatalf("stuck page missing retry: %s", body)
	}
}

func TestAPITimeoutReplyRendersStuckPage(t *testing.T) {
	h, _ := newTestClient(t, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusGatewayTimeout)
			_, _ = w.Write([]byte(`{"error":"request timed out"}`))
		})
	})
	if rec := do(t, h, http.MethodGet, "/members/m1", nil, ""); rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestDetailTabs(t *testing.T) {
	h, _ := newTestClient(t, nil)
	rec := do(t, h, http.MethodGet, "/members/m1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"Col Rajesh Kumar", "Profile", "Contact", "?tab=notes", "Full Name"} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q", want)
		}
	}

	rec = do(t, h, http.MethodGet, "/members/m1?tab=skills", nil, "")
	if !strings.Contains(rec.Body.String(), `<span class="tag">Driving</span>`) {
		t.Fatalf("skills should render as tags: %s", rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/members/m1?tab=notes&drafts=2", nil, "")
	body = rec.Body.String()
	if !strings.Contains(body, "No notes yet") || !strings.Contains(body, "New note 2") {
		t.Fatalf("notes tab: %s", body)
	}

	rec = do(t, h, http.MethodGet, "/members/ghost", nil, "")
	if rec.Code != http.StatusFound || !strings.Contains(rec.Header().Get("Location"), "Member+not+found") {
		t.Fatalf("missing record: %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestSaveNotes(t *testing.T) {
	h, st := newTestClient(t, nil)
	ctx := context.Background()

	form := url.Values{
		"body":           {"", ""},
		"next_action":    {"", ""},
		"follow_up_date": {"2024-03-10", ""},
	}
	rec := postForm(t, h, "/members/m1/notes", form)
	if rec.Code != http.StatusFound {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "tab=notes") || !strings.Contains(loc, "1+note+saved") {
		t.Fatalf("location %q", loc)
	}
	saved, _ := st.ListNotes(ctx, "members", "m1")
	if len(saved) != 1 {
		t.Fatalf("expected 1 note, got %d", len(saved))
	}
	if saved[0].Body != "" || saved[0].FollowUpDate != "2024-03-10" || saved[0].Author != "Staff" || saved[0].CreatedAt.IsZero() {
		t.Fatalf("unexpected note %+v", saved[0])
	}

	rec = postForm(t, h, "/members/m1/notes", url.Values{"body": {"   "}})
	if rec.Code != http.StatusFound || strings.Contains(rec.Header().Get("Location"), "saved") {
		t.Fatalf("empty save: %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if again, _ := st.ListNotes(ctx, "members", "m1"); len(again) != 1 {
		t.Fatalf("empty draft must not be stored")
	}

	rec = do(t, h, http.MethodGet, "/members/m1?tab=notes", nil, "")
	if !strings.Contains(rec.Body.String(), "Follow up:</strong> 2024-03-10") {
		t.Fatalf("history not shown: %s", rec.Body.String())
	}
}

func TestSaveNotesFailureKeepsDrafts(t *testing.T) {
	h, st := newTestClient(t, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/notes") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(`{"error":"unable to save notes"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	rec := postForm(t, h, "/members/m1/notes", url.Values{"body": {"Call back Monday"}, "next_action": {"Share job list"}})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Could not save notes", "Call back Monday", "Share job list"} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q", want)
		}
	}
	if saved, _ := st.ListNotes(context.Background(), "members", "m1"); len(saved) != 0 {
		t.Fatalf("nothing should be stored")
	}
}

func TestSaveNotesPartialKeepsOnlyUnsavedDrafts(t *testing.T) {
	h, _ := newTestClient(t, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/notes") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusMultiStatus)
				_, _ = w.Write([]byte(`{"saved":1,"error":"some notes could not be saved"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	form := url.Values{
		"body":           {"Called about Pune opening", "Send CV to Deccan Infra"},
		"next_action":    {"", ""},
		"follow_up_date": {"", ""},
	}
	rec := postForm(t, h, "/members/m1/notes", form)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Send CV to Deccan Infra") || !strings.Contains(body, "Saved 1 of 2 notes") {
		t.Fatalf("unsaved draft or notice missing: %s", body)
	}
	if strings.Contains(body, "Called about Pune opening") {
		t.Fatalf("stored draft must not be offered again: %s", body)
	}
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	part, err := mw.CreateFormFile(fileField, fileName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestImportProxy(t *testing.T) {
	h, st := newTestClient(t, nil)
	csv := []byte("Full Name,City\nCapt Meera Iyer,Chennai\n")

	rec := do(t, h, http.MethodGet, "/members/import", nil, "")
	if !strings.Contains(rec.Body.String(), `name="password"`) {
		t.Fatalf("import form missing: %s", rec.Body.String())
	}

	body, ct := multipartBody(t, map[string]string{"password": "wrong-password"}, "file", "members.csv", csv)
	rec = do(t, h, http.MethodPost, "/members/import", body, ct)
	if rec.Code != http.StatusFound || !strings.Contains(rec.Header().Get("Location"), "import+password+rejected") {
		t.Fatalf("wrong password: %d %q", rec.Code, rec.Header().Get("Location"))
	}

	body, ct = multipartBody(t, map[string]string{"password": testImportPassword}, "file", "members.csv", csv)
	rec = do(t, h, http.MethodPost, "/members/import", body, ct)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "1 of 1 rows imported") {
		t.Fatalf("import: %d %s", rec.Code, rec.Body.String())
	}
	if list, _ := st.ListRecords(context.Background(), "members"); len(list) != 4 {
		t.Fatalf("expected 4 members, got %d", len(list))
	}

	if rec := do(t, h, http.MethodPut, "/members/import", nil, ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestExportProxy(t *testing.T) {
	h, _ := newTestClient(t, nil)
	rec := do(t, h, http.MethodGet, "/members/export.xlsx?f.city=Pune&page=2", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment;") {
		t.Fatalf("disposition %q", rec.Header().Get("Content-Disposition"))
	}
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
}

func TestNewsletterFlow(t *testing.T) {
	h, _ := newTestClient(t, nil)

	rec := do(t, h, http.MethodGet, "/newsletter?job=j1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{`value="j1" checked`, "Metro Depot Guarding", "<strong>Security Supervisor</strong>", "No projects selected for this edition."} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q", want)
		}
	}

	rec = postForm(t, h, "/newsletter/content", url.Values{
		"title":             {"Olive Dispatch"},
		"regional_partners": {"Pune Veterans Cell\n\nDelhi Resettlement Office\n"},
		"about_us":          {"We place **veterans**.\n\n<script>alert(1)</script>"},
	})
	if rec.Code != http.StatusFound || !strings.Contains(rec.Header().Get("Location"), "message=") {
		t.Fatalf("save content: %d %q", rec.Code, rec.Header().Get("Location"))
	}

	body = do(t, h, http.MethodGet, "/newsletter", nil, "").Body.String()
	if !strings.Contains(body, "Olive Dispatch") || !strings.Contains(body, "<strong>veterans</strong>") {
		t.Fatalf("saved content not shown: %s", body)
	}
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Fatalf("about us preview must be sanitized")
	}

	rec = postForm(t, h, "/newsletter/pdf", url.Values{"job": {"j1"}, "project": {"p1"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("pdf status %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "application/pdf" || !strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment;") {
		t.Fatalf("pdf headers %v", rec.Header())
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("body is not a PDF")
	}
}

func TestAppCSS(t *testing.T) {
	h, _ := newTestClient(t, nil)
	rec := do(t, h, http.MethodGet, "/assets/app.css", nil, "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/css") {
		t.Fatalf("css: %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
}
