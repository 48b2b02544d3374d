// Package importer feeds the contact collection from outside sources: a
// watched drop directory of vCard and JSON card files, and an iCalendar
// export for schedules and birthdays.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/david8015838-create/nexus-mind/internal/apperr"
	"github.com/david8015838-create/nexus-mind/internal/codec"
	"github.com/david8015838-create/nexus-mind/internal/contactservice"
	"github.com/david8015838-create/nexus-mind/internal/models"
)

// Importer ingests contact files dropped into a directory. Processed files
// are renamed in place with a .done suffix, failed ones with .err, so a
// re-scan never imports the same file twice.
type Importer struct {
	svc    *contactservice.Service
	dir    string
	logger *slog.Logger

	// settle is how long a file must sit untouched before processing, so
	// half-written drops are not picked up.
	settle time.Duration
}

// New creates an importer over the given drop directory.
func New(svc *contactservice.Service, dir string, logger *slog.Logger) *Importer {
	return &Importer{svc: svc, dir: dir, logger: logger, settle: 200 * time.Millisecond}
}

// Run sweeps any files already in the drop directory, then watches for new
// ones until ctx is cancelled.
func (im *Importer) Run(ctx context.Context) error {
	if err := os.MkdirAll(im.dir, 0o755); err != nil {
		return fmt.Errorf("importer: create drop dir: %w", err)
	}

	im.Sweep(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(im.dir); err != nil {
		return err
	}
	im.logger.Info("importer: started", slog.String("dir", im.dir))

	for {
		select {
		case <-ctx.Done():
			im.logger.Info("importer: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !importable(ev.Name) {
				continue
			}
			// Let the writer finish before reading.
			select {
			case <-time.After(im.settle):
			case <-ctx.Done():
				return nil
			}
			im.process(ctx, ev.Name)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.logger.Error("importer: watch error", slog.String("error", watchErr.Error()))
		}
	}
}

// Sweep processes every importable file currently in the drop directory.
func (im *Importer) Sweep(ctx context.Context) {
	entries, err := os.ReadDir(im.dir)
	if err != nil {
		im.logger.Warn("importer: sweep failed", slog.String("error", err.Error()))
		return
	}
	for _, e := range entries {
		if e.IsDir() || !importable(e.Name()) {
			continue
		}
		im.process(ctx, filepath.Join(im.dir, e.Name()))
	}
}

func importable(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".vcf", ".json":
		return true
	}
	return false
}

func (im *Importer) process(ctx context.Context, path string) {
	n, err := im.ImportFile(ctx, path)
	if err != nil {
		im.logger.Error("importer: file failed", slog.String("path", path), slog.String("error", err.Error()))
		im.rename(path, ".err")
		return
	}
	im.logger.Info("importer: file imported", slog.String("path", path), slog.Int("contacts", n))
	im.rename(path, ".done")
}

func (im *Importer) rename(path, suffix string) {
	if err := os.Rename(path, path+suffix); err != nil {
		im.logger.Warn("importer: rename failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// ImportFile imports a single .vcf or .json card file and returns the
// number of contacts created or updated.
func (im *Importer) ImportFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var contacts []models.Contact
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vcf":
		contacts, err = ParseVCF(f, im.logger)
	case ".json":
		contacts, err = parseJSONCards(f)
	default:
		return 0, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, c := range contacts {
		if err := im.upsert(ctx, c); err != nil {
			im.logger.Warn("importer: contact rejected",
				slog.String("name", c.Name), slog.String("error", err.Error()))
			continue
		}
		imported++
	}
	if imported == 0 {
		return 0, fmt.Errorf("no contacts imported from %s", filepath.Base(path))
	}
	return imported, nil
}

func (im *Importer) upsert(ctx context.Context, c models.Contact) error {
	if c.ID != "" {
		if _, err := im.svc.GetContact(ctx, c.ID); err == nil {
			_, err = im.svc.UpdateContact(ctx, c)
			return err
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
	}
	_, err := im.svc.CreateContact(ctx, c)
	return err
}

// parseJSONCards reads a JSON card file holding either a single contact
// document or an array of them, in the serialized (dates as strings) form.
func parseJSONCards(f *os.File) ([]models.Contact, error) {
	dec := json.NewDecoder(f)

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var docs []any
	switch v := raw.(type) {
	case []any:
		docs = v
	case map[string]any:
		docs = []any{v}
	default:
		return nil, fmt.Errorf("JSON card file must hold an object or array")
	}

	contacts := make([]models.Contact, 0, len(docs))
	for _, doc := range docs {
		m, ok := doc.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("JSON card entries must be objects")
		}
		var c models.Contact
		if err := codec.DecodeInto(m, &c); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}
