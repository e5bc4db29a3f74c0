package data

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"market-reconcile/internal/model"
)

// ManifestEntry records which file a day's prices came from.
type ManifestEntry struct {
	Date    model.Date `json:"date"`
	Variant int        `json:"variant"` // filename suffix that succeeded
	File    string     `json:"file"`
	Size    int64      `json:"size"`
	SHA256  string     `json:"sha256"`
	Points  int        `json:"points"`
}

// Manifest describes the raw files behind one persisted year.
type Manifest struct {
	Year      int             `json:"year"`
	BuildID   string          `json:"build_id"`
	UpdatedAt string          `json:"updated_at"` // ISO 8601 timestamp
	Points    int             `json:"points"`
	Days      []ManifestEntry `json:"days"`
}

// ManifestPath returns the manifest location of year under cacheRoot.
func ManifestPath(cacheRoot string, year int) string {
	return filepath.Join(cacheRoot, strconv.Itoa(year), "manifest.json")
}

// LoadManifest loads a manifest from a JSON file
func LoadManifest(filePath string) (*Manifest, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	return &m, nil
}

// SaveManifest saves a manifest to a JSON file
func SaveManifest(m *Manifest, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(filePath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// FileChecksum returns the hex SHA-256 of the file at path.
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ManifestProblem is one day whose cached file no longer matches the manifest.
type ManifestProblem struct {
	Date   model.Date
	File   string
	Reason string
}

// VerifyManifest re-hashes every file listed in m and reports missing or
// modified ones. It also reports calendar days the manifest does not list.
func VerifyManifest(m *Manifest) []ManifestProblem {
	var problems []ManifestProblem
	listed := make(map[model.Date]bool, len(m.Days))
	for _, d := range m.Days {
		listed[d.Date] = true
		sum, err := FileChecksum(d.File)
		switch {
		case os.IsNotExist(err):
			problems = append(problems, ManifestProblem{Date: d.Date, File: d.File, Reason: "missing"})
		case err != nil:
			problems = append(problems, ManifestProblem{Date: d.Date, File: d.File, Reason: err.Error()})
		case sum != d.SHA256:
			problems = append(problems, ManifestProblem{Date: d.Date, File: d.File, Reason: "checksum mismatch"})
		}
	}
	for _, day := range model.DaysOfYear(m.Year) {
		if !listed[day] {
			problems = append(problems, ManifestProblem{Date: day, Reason: "not in manifest"})
		}
	}
	return problems
}
