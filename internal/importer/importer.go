// Package importer bulk-creates records from an uploaded spreadsheet. An
// import is gated by a shared password checked against a stored hash.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dme-bo/briskolive/internal/pages"
	"github.com/dme-bo/briskolive/internal/security"
	"github.com/dme-bo/briskolive/internal/store"
)

var (
	ErrPasswordRejected = errors.New("import password rejected")
	ErrImportsDisabled  = errors.New("imports are disabled: no import password configured")
	ErrParse            = errors.New("could not parse import file")
	ErrWriteFailed      = errors.New("import stopped on write failure")
)

// Gate verifies the import password.
type Gate struct {
	hash string
}

// NewGate takes a stored hash. When hash is empty and password is set, the
// password is hashed once here so the plain text is not kept.
func NewGate(hash, password string) (Gate, error) {
	if hash != "" {
		if _, err := security.ParseHash(hash); err != nil {
			return Gate{}, fmt.Errorf("IMPORT_PASSWORD_HASH: %w", err)
		}
		return Gate{hash: hash}, nil
	}
	if password == "" {
		return Gate{}, nil
	}
	hashed, err := security.HashPassword(password)
	if err != nil {
		return Gate{}, fmt.Errorf("IMPORT_PASSWORD: %w", err)
	}
	return Gate{hash: hashed}, nil
}

func (g Gate) Enabled() bool { return g.hash != "" }

func (g Gate) Check(password string) error {
	if !g.Enabled() {
		return ErrImportsDisabled
	}
	if !security.VerifyPassword(password, g.hash) {
		return ErrPasswordRejected
	}
	return nil
}

// Result reports how far an import got. StoppedAt is the 0-based index of
// the row whose write failed, or -1.
type Result struct {
	Parsed    int    `json:"parsed"`
	Written   int    `json:"written"`
	StoppedAt int    `json:"stoppedAt"`
	Error     string `json:"error,omitempty"`
}

// Partial reports whether some rows were written before a failure.
func (r Result) Partial() bool {
	return r.Written > 0 && r.StoppedAt >= 0
}

// Observer is told about every finished import.
type Observer interface {
	ImportFinished(page string, res Result, err error)
}

type Importer struct {
	records  store.RecordRepository
	gate     Gate
	observer Observer
	logger   *slog.Logger
}

func New(records store.RecordRepository, gate Gate, observer Observer, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{records: records, gate: gate, observer: observer, logger: logger}
}

func (im *Importer) Enabled() bool { return im.gate.Enabled() }

// Import checks the password, parses the whole file and then writes rows one
// by one. Nothing is written when the password or parse fails. Rows written
// before a failed write are kept.
func (im *Importer) Import(ctx context.Context, page pages.Page, filename string, r io.Reader, password string) (Result, error) {
	return im.run(ctx, page, filename, r, func() error { return im.gate.Check(password) })
}

// ImportUnchecked runs the pipeline without the password gate. It backs the
// operator CLI, which already has direct store access.
func (im *Importer) ImportUnchecked(ctx context.Context, page pages.Page, filename string, r io.Reader) (Result, error) {
	return im.run(ctx, page, filename, r, nil)
}

func (im *Importer) run(ctx context.Context, page pages.Page, filename string, r io.Reader, check func() error) (res Result, err error) {
	res = Result{StoppedAt: -1}
	defer func() {
		if err != nil {
			res.Error = err.Error()
		}
		if im.observer != nil {
			im.observer.ImportFinished(page.Slug, res, err)
		}
	}()

	if check != nil {
		if err := check(); err != nil {
			return res, err
		}
	}
	rows, err := Parse(r, filename)
	if err != nil {
		return res, err
	}
	return im.write(ctx, page, rows)
}

func (im *Importer) write(ctx context.Context, page pages.Page, rows []Row) (Result, error) {
	res := Result{Parsed: len(rows), StoppedAt: -1}
	for i, row := range rows {
		if _, err := im.records.CreateRecord(ctx, page.Collection, Fields(page, row)); err != nil {
			res.StoppedAt = i
			im.logger.Error("import write failed", "page", page.Slug, "row", i, "written", res.Written, "err", err)
			return res, fmt.Errorf("%w at row %d: %w", ErrWriteFailed, i, err)
		}
		res.Written++
	}
	im.logger.Info("import finished", "page", page.Slug, "rows", res.Written)
	return res, nil
}
