package apiapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dme-bo/briskolive/internal/blob"
	blobs3 "github.com/dme-bo/briskolive/internal/blob/s3"
	"github.com/dme-bo/briskolive/internal/importer"
	"github.com/dme-bo/briskolive/internal/metrics"
	"github.com/dme-bo/briskolive/internal/middleware"
	"github.com/dme-bo/briskolive/internal/newsletter"
	"github.com/dme-bo/briskolive/internal/settings"
	"github.com/dme-bo/briskolive/internal/store"
)

const (
	maxImportBytes = 20 << 20
	maxLogoBytes   = 5 << 20
)

type Config struct {
	Addr           string
	RequestTimeout time.Duration

	StoreDriver   string
	SQLitePath    string
	PostgresDSN   string
	MongoURI      string
	MongoDatabase string

	ImportPasswordHash string
	ImportPassword     string

	ArchiveDriver  string
	ArchiveDir     string
	ArchiveS3      blobs3.Config
	NewsletterSeed string

	StaffName string
	Logger    *slog.Logger
}

type server struct {
	store      store.Store
	importer   *importer.Importer
	newsletter *newsletter.Builder
	metrics    *metrics.Metrics
	logger     *slog.Logger
	timeout    time.Duration
	staffName  string
	now        func() time.Time
}

func ConfigFromSettings(s settings.Settings) Config {
	return Config{
		Addr:               s.APIAddr,
		RequestTimeout:     s.RequestTimeout,
		StoreDriver:        s.StoreDriver,
		SQLitePath:         s.SQLitePath,
		PostgresDSN:        s.PostgresDSN,
		MongoURI:           s.MongoURI,
		MongoDatabase:      s.MongoDatabase,
		ImportPasswordHash: s.ImportPasswordHash,
		ImportPassword:     s.ImportPassword,
		ArchiveDriver:      s.ArchiveDriver,
		ArchiveDir:         s.ArchiveDir,
		ArchiveS3: blobs3.Config{
			Bucket:    s.ArchiveS3Bucket,
			Region:    s.ArchiveS3Region,
			Endpoint:  s.ArchiveS3Endpoint,
			Prefix:    s.ArchiveS3Prefix,
			PathStyle: s.ArchiveS3PathStyle,
		},
		NewsletterSeed: s.NewsletterSeed,
		StaffName:      s.StaffName,
	}
}

func DefaultConfigFromEnv() Config {
	return ConfigFromSettings(settings.FromEnv())
}

func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Logger = logger

	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			logger.Warn("close store", "err", err)
		}
	}()

	archive, err := OpenArchive(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	s, err := newServer(cfg, st, archive)
	if err != nil {
		return err
	}
	if !s.importer.Enabled() {
		logger.Warn("imports disabled: set IMPORT_PASSWORD_HASH or IMPORT_PASSWORD")
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("api listening on http://localhost%s", cfg.Addr), "store", cfg.StoreDriver)
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

// newServer wires the handlers around an opened store. archive may be nil.
func newServer(cfg Config, st store.Store, archive blob.Store) (*server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gate, err := importer.NewGate(cfg.ImportPasswordHash, cfg.ImportPassword)
	if err != nil {
		return nil, err
	}
	m := metrics.New()

	builder := newsletter.NewBuilder(st, st, archive, logger).WithObserver(m)
	if cfg.NewsletterSeed != "" {
		seed, err := newsletter.LoadSeed(cfg.NewsletterSeed)
		if err != nil {
			return nil, err
		}
		builder.WithSeed(seed)
	}

	staff := strings.TrimSpace(cfg.StaffName)
	if staff == "" {
		staff = "Staff"
	}
	return &server{
		store:      st,
		importer:   importer.New(st, gate, m, logger),
		newsletter: builder,
		metrics:    m,
		logger:     logger,
		timeout:    cfg.RequestTimeout,
		staffName:  staff,
		now:        time.Now,
	}, nil
}

// NewHandler builds the API around an already opened store, which the
// caller keeps ownership of. archive may be nil.
func NewHandler(cfg Config, st store.Store, archive blob.Store) (http.Handler, error) {
	s, err := newServer(cfg, st, archive)
	if err != nil {
		return nil, err
	}
	return s.routes(), nil
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/health", http.HandlerFunc(s.health))
	mux.Handle("/api/pages", http.HandlerFunc(s.pagesHandler))
	mux.Handle("/api/pages/", http.HandlerFunc(s.pageHandler))
	mux.Handle("/api/newsletter/content", http.HandlerFunc(s.newsletterContentHandler))
	mux.Handle("/api/newsletter/logo", http.HandlerFunc(s.newsletterLogoHandler))
	mux.Handle("/api/newsletter/pdf", http.HandlerFunc(s.newsletterPDF))
	mux.Handle("/api/newsletter/preview", http.HandlerFunc(s.newsletterPreview))
	mux.Handle("/api/newsletter/archive", http.HandlerFunc(s.newsletterArchiveList))
	mux.Handle("/api/newsletter/archive/", http.HandlerFunc(s.newsletterArchiveItem))
	mux.Handle("/metrics", s.metrics.Handler())

	csp := strings.Join([]string{
		"default-src 'none'",
		"img-src 'self' data:",
		"frame-ancestors 'none'",
	}, "; ")

	return middleware.Chain(
		mux,
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: csp}),
		middleware.Deadline(s.timeout, s.metrics.RequestTimedOut),
		middleware.RequestLogger(s.logger, s.metrics.ObserveRequest),
	)
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// storeError answers for a failed store call. Deadline overruns become the
// standard 504 and a cancelled request gets no body.
func (s *server) storeError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn(message, "path", r.URL.Path, "err", err)
		middleware.WriteTimeout(w)
	case errors.Is(err, context.Canceled):
		s.logger.Info("request cancelled", "path", r.URL.Path)
	default:
		s.logger.Error(message, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusBadGateway, message)
	}
}

func parsePositiveInt(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseBoolQueryValue(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// splitIDs reads a comma separated id list such as ?jobs=a,b.
func splitIDs(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseUploadedFileWithField(r *http.Request, fieldName string, maxBytes int64, allowedMimes []string, requiredMessage string) ([]byte, string, string, error) {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	if err := r.ParseMultipartForm(maxBytes + (2 << 20)); err != nil {
		return nil, "", "", errors.New("invalid upload form")
	}
	file, header, err := r.FormFile(fieldName)
	if err != nil {
		return nil, "", "", errors.New(requiredMessage)
	}
	defer file.Close()
	raw, err := io.ReadAll(io.LimitReader(file, maxBytes))
	if err != nil {
		return nil, "", "", errors.New("unable to read uploaded file")
	}
	if len(raw) == 0 {
		return nil, "", "", errors.New("uploaded file is empty")
	}
	detected := http.DetectContentType(raw)
	if len(allowedMimes) > 0 {
		ok := false
		for _, allowed := range allowedMimes {
			if strings.EqualFold(strings.TrimSpace(allowed), detected) {
				ok = true
				break
			}
		}
		if !ok {
			return nil, "", "", errors.New("unsupported file type")
		}
	}
	fileName := strings.TrimSpace(header.Filename)
	if fileName == "" {
		ext := filepath.Ext(fieldName)
		if ext == "" {
			ext = ".bin"
		}
		fileName = fieldName + ext
	}
	return raw, detected, fileName, nil
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
