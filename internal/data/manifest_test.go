package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-reconcile/internal/model"
)

func TestVerifyManifest(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{Year: 2022}
	for _, day := range model.DaysOfYear(2022) {
		path := filepath.Join(dir, DayFilename(day, 1))
		require.NoError(t, os.WriteFile(path, []byte("MARGINALPDBC;\n"+day.String()+"\n*\n"), 0o644))
		sum, err := FileChecksum(path)
		require.NoError(t, err)
		m.Days = append(m.Days, ManifestEntry{Date: day, Variant: 1, File: path, SHA256: sum})
	}
	assert.Empty(t, VerifyManifest(m))

	tampered := m.Days[10]
	require.NoError(t, os.WriteFile(tampered.File, []byte("changed"), 0o644))
	removed := m.Days[20]
	require.NoError(t, os.Remove(removed.File))
	m.Days = m.Days[:364] // drop Dec 31

	problems := VerifyManifest(m)
	require.Len(t, problems, 3)
	assert.Equal(t, ManifestProblem{Date: tampered.Date, File: tampered.File, Reason: "checksum mismatch"}, problems[0])
	assert.Equal(t, ManifestProblem{Date: removed.Date, File: removed.File, Reason: "missing"}, problems[1])
	assert.Equal(t, model.NewDate(2022, time.December, 31), problems[2].Date)
	assert.Equal(t, "not in manifest", problems[2].Reason)
}
