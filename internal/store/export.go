package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tripmapper/internal/models"
)

// ImportMode selects how an imported document is combined with local data
type ImportMode string

const (
	// ModeReplace discards all local routes and takes the file wholesale
	ModeReplace ImportMode = "replace"
	// ModeNewOnly adds routes whose ids are not present locally and
	// leaves existing routes untouched
	ModeNewOnly ImportMode = "new-only"
	// ModeMerge adds new routes and updates existing ones only when the
	// incoming copy is strictly newer
	ModeMerge ImportMode = "merge"
)

// ErrUnknownImportMode rejects import requests with a bad mode value
var ErrUnknownImportMode = errors.New("unknown import mode")

// ExportDocument is the interchange format for route backups and transfers
type ExportDocument struct {
	ExportedAt time.Time       `json:"exportedAt"`
	AppVersion string          `json:"appVersion"`
	RouteCount int             `json:"routeCount"`
	Routes     []*models.Route `json:"routes"`
}

// ImportResult summarizes what an import did, per route disposition
type ImportResult struct {
	Added       int    `json:"added"`
	Updated     int    `json:"updated"`
	Skipped     int    `json:"skipped"`
	TotalInFile int    `json:"totalInFile"`
	BackupPath  string `json:"backupPath,omitempty"`
}

// Export snapshots every stored route into a portable document
func (s *Store) Export(appVersion string) (*ExportDocument, error) {
	routes, err := s.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to export routes: %w", err)
	}
	return &ExportDocument{
		ExportedAt: time.Now().UTC(),
		AppVersion: appVersion,
		RouteCount: len(routes),
		Routes:     routes,
	}, nil
}

// ParseExportDocument decodes and sanity-checks an export payload
func ParseExportDocument(data []byte) (*ExportDocument, error) {
	var doc ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse export document: %w", err)
	}
	if doc.Routes == nil {
		return nil, errors.New("export document has no routes field")
	}
	for _, route := range doc.Routes {
		if route == nil || route.ID == "" {
			return nil, errors.New("export document contains a route without an id")
		}
	}
	return &doc, nil
}

// Import applies a document to the local store under the given mode.
// Before anything is mutated the current local set is written out as a
// timestamped backup in backupDir, unless the store is empty.
func (s *Store) Import(doc *ExportDocument, mode ImportMode, backupDir string, appVersion string) (*ImportResult, error) {
	switch mode {
	case ModeReplace, ModeNewOnly, ModeMerge:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownImportMode, mode)
	}

	result := &ImportResult{TotalInFile: len(doc.Routes)}

	backupPath, err := s.backupBeforeImport(backupDir, appVersion)
	if err != nil {
		return nil, err
	}
	result.BackupPath = backupPath

	local, err := s.GetAll()
	if err != nil {
		return nil, err
	}
	existing := make(map[string]*models.Route, len(local))
	for _, route := range local {
		existing[route.ID] = route
	}

	if mode == ModeReplace {
		for id := range existing {
			if _, err := s.Delete(id); err != nil {
				return nil, err
			}
		}
	}

	for _, incoming := range doc.Routes {
		current, present := existing[incoming.ID]

		switch {
		case mode == ModeReplace || !present:
			if _, err := s.Put(incoming); err != nil {
				return nil, err
			}
			result.Added++
		case mode == ModeNewOnly:
			result.Skipped++
		case incomingIsNewer(incoming, current):
			if _, err := s.Put(incoming); err != nil {
				return nil, err
			}
			result.Updated++
		default:
			result.Skipped++
		}
	}

	return result, nil
}

// incomingIsNewer decides merge precedence by update timestamp, falling back
// to creation timestamp when either side never recorded an update. An exact
// tie keeps the local copy.
func incomingIsNewer(incoming, local *models.Route) bool {
	in, loc := incoming.UpdatedAt, local.UpdatedAt
	if in.IsZero() || loc.IsZero() {
		in, loc = incoming.CreatedAt, local.CreatedAt
	}
	return in.After(loc)
}

func (s *Store) backupBeforeImport(backupDir, appVersion string) (string, error) {
	count, err := s.Count()
	if err != nil {
		return "", err
	}
	if count == 0 {
		// nothing to lose, nothing to back up
		return "", nil
	}

	doc, err := s.Export(appVersion)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal backup: %w", err)
	}

	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	path := filepath.Join(backupDir, fmt.Sprintf("routes-backup-%s.json", time.Now().UTC().Format("20060102-150405")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	return path, nil
}
