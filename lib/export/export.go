package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/icco/movieland/lib/validation"
	"github.com/icco/movieland/models"
)

// DateLayout is the layout used for date_created in exported documents.
const DateLayout = "02-01-2006 15:04:05"

// Document is the exported shape of a Database.
type Document struct {
	MovieList   []models.Movie `json:"movie_list"`
	DateCreated string         `json:"date_created"`
}

// NewDocument converts a Database into its exported shape.
func NewDocument(database *models.Database) Document {
	list := database.MovieList
	if list == nil {
		list = []models.Movie{}
	}
	return Document{
		MovieList:   list,
		DateCreated: database.DateCreated.Format(DateLayout),
	}
}

// Marshal renders and validates the exported document.
func Marshal(database *models.Database) ([]byte, error) {
	if database == nil {
		return nil, fmt.Errorf("database is nil")
	}

	data, err := json.MarshalIndent(NewDocument(database), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal database: %w", err)
	}

	if err := validation.ValidateDatabaseExport(data); err != nil {
		return nil, fmt.Errorf("failed to validate export: %w", err)
	}

	return data, nil
}

// Pending is an export rendered and written to a temporary file next to its
// destination, waiting for Commit.
type Pending struct {
	path string
	tmp  string
}

// Prepare validates the document and stages it beside path. Nothing is
// visible at path until Commit.
func Prepare(path string, database *models.Database) (*Pending, error) {
	data, err := Marshal(database)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".movieland-*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to close export: %w", err)
	}

	return &Pending{path: path, tmp: tmp.Name()}, nil
}

// Commit moves the staged document into place.
func (p *Pending) Commit() error {
	if err := os.Rename(p.tmp, p.path); err != nil {
		return fmt.Errorf("failed to move export into place: %w", err)
	}
	p.tmp = ""
	return nil
}

// Discard removes the staged document if it was not committed.
func (p *Pending) Discard() {
	if p.tmp != "" {
		_ = os.Remove(p.tmp)
		p.tmp = ""
	}
}

// WriteFile writes the exported document to path. The file is replaced
// atomically so readers never see a partial document.
func WriteFile(path string, database *models.Database) error {
	pending, err := Prepare(path, database)
	if err != nil {
		return err
	}
	defer pending.Discard()
	return pending.Commit()
}
