package db

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrationsEmbedded(t *testing.T) {
	migrations, err := LoadMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "001_core.sql", migrations[0].Name)
	assert.Equal(t, 2, migrations[1].Version)
	assert.True(t, strings.Contains(migrations[1].SQL, "uq_appointments_slot"))
	assert.Equal(t, "003_placeholders.sql", migrations[2].Name)
	assert.True(t, strings.Contains(migrations[2].SQL, "uq_appointments_placeholder"))
}

func TestLoadMigrationsOrderingAndSkips(t *testing.T) {
	fsys := fstest.MapFS{
		"m/010_late.sql":  {Data: []byte("SELECT 10")},
		"m/002_mid.sql":   {Data: []byte("SELECT 2")},
		"m/001_first.sql": {Data: []byte("SELECT 1")},
		"m/README.md":     {Data: []byte("docs")},
		"m/notes.sql":     {Data: []byte("SELECT 0")},
		"m/abc_bad.sql":   {Data: []byte("SELECT 0")},
	}

	migrations, err := loadMigrations(fsys, "m")
	require.NoError(t, err)

	var versions []int
	for _, m := range migrations {
		versions = append(versions, m.Version)
	}
	assert.Equal(t, []int{1, 2, 10}, versions)
	assert.Equal(t, "SELECT 10", migrations[2].SQL)
}
