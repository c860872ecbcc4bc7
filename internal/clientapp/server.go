package clientapp

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dme-bo/briskolive/internal/middleware"
	"github.com/dme-bo/briskolive/internal/settings"
)

type Config struct {
	Addr          string
	APIBaseURL    string
	ClientTimeout time.Duration
	StaffName     string
	Logger        *slog.Logger
}

//go:embed templates/layout.html templates/list.html templates/detail.html templates/import.html templates/newsletter.html templates/stuck.html assets/app.css
var templatesFS embed.FS

type server struct {
	apiBaseURL     string
	apiClient      *http.Client
	staffName      string
	logger         *slog.Logger
	listTmpl       *template.Template
	detailTmpl     *template.Template
	importTmpl     *template.Template
	newsletterTmpl *template.Template
	stuckTmpl      *template.Template
}

func ConfigFromSettings(s settings.Settings) Config {
	return Config{
		Addr:          s.ClientAddr,
		APIBaseURL:    s.APIBaseURL,
		ClientTimeout: s.ClientTimeout,
		StaffName:     s.StaffName,
	}
}

func DefaultConfigFromEnv() Config {
	return ConfigFromSettings(settings.FromEnv())
}

func Run(ctx context.Context, cfg Config) error {
	s := newServer(cfg)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(fmt.Sprintf("client listening on http://localhost%s", cfg.Addr), "api", s.apiBaseURL)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func newServer(cfg Config) *server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.ClientTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	staff := strings.TrimSpace(cfg.StaffName)
	if staff == "" {
		staff = "Staff"
	}
	return &server{
		apiBaseURL:     strings.TrimRight(cfg.APIBaseURL, "/"),
		apiClient:      &http.Client{Timeout: timeout},
		staffName:      staff,
		logger:         logger,
		listTmpl:       parsePage("templates/list.html"),
		detailTmpl:     parsePage("templates/detail.html"),
		importTmpl:     parsePage("templates/import.html"),
		newsletterTmpl: parsePage("templates/newsletter.html"),
		stuckTmpl:      parsePage("templates/stuck.html"),
	}
}

var templateFuncs = template.FuncMap{
	"join": strings.Join,
	"add":  func(a, b int) int { return a + b },
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("02 Jan 2006 15:04")
	},
	"kb": func(n int64) string {
		return strconv.FormatFloat(float64(n)/1024, 'f', 1, 64) + " KB"
	},
}

func parsePage(name string) *template.Template {
	return template.Must(template.New("layout.html").Funcs(templateFuncs).ParseFS(templatesFS, "templates/layout.html", name))
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", http.HandlerFunc(s.pageRoutes))
	mux.Handle("/assets/app.css", http.HandlerFunc(s.appCSSFile))
	mux.Handle("/newsletter", http.HandlerFunc(s.newsletterPage))
	mux.Handle("/newsletter/", http.HandlerFunc(s.newsletterRoutes))

	csp := strings.Join([]string{
		"default-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data:",
		"script-src 'self' 'unsafe-inline'",
		"connect-src 'self'",
		"frame-ancestors 'none'",
	}, "; ")

	return middleware.Chain(
		mux,
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: csp}),
		middleware.RequestLogger(s.logger, nil),
	)
}

func (s *server) appCSSFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := templatesFS.ReadFile("assets/app.css")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(data)
}

// stuck answers when the API did not reply in time. retryURL is where the
// retry link points; POST handlers pass the page they came from.
func (s *server) stuck(w http.ResponseWriter, r *http.Request, retryURL string) {
	if retryURL == "" {
		retryURL = r.URL.RequestURI()
	}
	data := pageData{
		Title:    "Still waiting",
		Nav:      navLinks(""),
		RetryURL: retryURL,
	}
	s.render(w, s.stuckTmpl, http.StatusGatewayTimeout, data)
}

func (s *server) render(w http.ResponseWriter, tmpl *template.Template, status int, data pageData) {
	if err := renderHTMLTemplate(w, tmpl, status, data); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		s.logger.Error("template render failed", "template", tmpl.Name(), "err", err)
	}
}

func renderHTMLTemplate(w http.ResponseWriter, tmpl *template.Template, status int, data pageData) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// redirectWith sends the browser back to target with a notice.
func redirectWith(w http.ResponseWriter, r *http.Request, target, key, message string) {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	http.Redirect(w, r, target+sep+key+"="+url.QueryEscape(message), http.StatusFound)
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseBoolFormValue(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// withoutParams returns the request URI minus the named query keys.
func withoutParams(u *url.URL, keys ...string) string {
	q := u.Query()
	for _, key := range keys {
		q.Del(key)
	}
	if encoded := q.Encode(); encoded != "" {
		return u.Path + "?" + encoded
	}
	return u.Path
}
