// Package backup encodes whole-store backup documents and stores them in a
// backup archive (local directory or S3 bucket).
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/plantrack/internal/domain/project"
)

var (
	// ErrMalformed is returned when a backup document cannot be decoded.
	ErrMalformed = errors.New("malformed backup")

	// ErrNotFound is returned when an archive has no backup with the name.
	ErrNotFound = errors.New("backup not found")

	// ErrInvalidName is returned for names that are not a single path element.
	ErrInvalidName = errors.New("invalid backup name")
)

// Document is the backup file layout.
type Document struct {
	Projects  []project.Project  `json:"projects"`
	Templates []project.Template `json:"templates"`
}

// Encode renders both collections as a backup document.
func Encode(projects []project.Project, templates []project.Template) ([]byte, error) {
	doc := Document{Projects: projects, Templates: templates}
	if doc.Projects == nil {
		doc.Projects = []project.Project{}
	}
	if doc.Templates == nil {
		doc.Templates = []project.Template{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return data, nil
}

// Decoded is the content of an accepted backup. Templates is nil when the
// document carries none, meaning the current templates stay.
type Decoded struct {
	Projects  []project.Project
	Templates []project.Template
}

// Decode accepts a {projects, templates} document or a bare project array.
// Anything else is ErrMalformed.
func Decode(data []byte) (Decoded, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Decoded{}, fmt.Errorf("%w: empty input", ErrMalformed)
	}

	switch data[0] {
	case '[':
		var projects []project.Project
		if err := json.Unmarshal(data, &projects); err != nil {
			return Decoded{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return Decoded{Projects: projects}, nil
	case '{':
		var doc struct {
			Projects  *[]project.Project  `json:"projects"`
			Templates *[]project.Template `json:"templates"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return Decoded{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if doc.Projects == nil {
			return Decoded{}, fmt.Errorf("%w: missing projects", ErrMalformed)
		}
		out := Decoded{Projects: *doc.Projects}
		if out.Projects == nil {
			out.Projects = []project.Project{}
		}
		if doc.Templates != nil {
			out.Templates = *doc.Templates
			if out.Templates == nil {
				out.Templates = []project.Template{}
			}
		}
		return out, nil
	}
	return Decoded{}, fmt.Errorf("%w: expected an object or array", ErrMalformed)
}

// FileName returns the conventional backup name for a given day.
func FileName(at time.Time) string {
	return "PM_System_Backup_" + at.Format("20060102") + ".json"
}
