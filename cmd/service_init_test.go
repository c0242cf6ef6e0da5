package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terralens/landsat-dash/internal/config"
)

func setYearBounds(min, max int) {
	cfg = &config.Config{
		Composite: config.CompositeConfig{MinYear: min, MaxYear: max},
	}
}

func TestYearSpan_Defaults(t *testing.T) {
	setYearBounds(2013, 2025)

	from, to, err := yearSpan(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2013, from)
	assert.Equal(t, 2025, to)
}

func TestYearSpan_Explicit(t *testing.T) {
	setYearBounds(2013, 2025)

	from, to, err := yearSpan(2018, 2020)
	require.NoError(t, err)
	assert.Equal(t, 2018, from)
	assert.Equal(t, 2020, to)
}

func TestYearSpan_SingleYear(t *testing.T) {
	setYearBounds(2013, 2025)

	from, to, err := yearSpan(2019, 2019)
	require.NoError(t, err)
	assert.Equal(t, 2019, from)
	assert.Equal(t, 2019, to)
}

func TestYearSpan_Inverted(t *testing.T) {
	setYearBounds(2013, 2025)

	_, _, err := yearSpan(2020, 2015)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid year range")
}

func TestYearSpan_OutOfBounds(t *testing.T) {
	setYearBounds(2013, 2025)

	_, _, err := yearSpan(2010, 2020)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "outside configured")

	_, _, err = yearSpan(2020, 2030)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "outside configured")
}

func TestInitEngine_MissingCredentials(t *testing.T) {
	cfg = &config.Config{}

	engine, err := initEngine()
	assert.Nil(t, engine)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "engine credentials")
}

func TestInitEngine_MalformedCredentials(t *testing.T) {
	cfg = &config.Config{
		EE: config.EEConfig{ServiceAccount: `{"type":"user"}`},
	}

	engine, err := initEngine()
	assert.Nil(t, engine)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "engine credentials")
}

func TestInitEngine_KeyFileMissing(t *testing.T) {
	cfg = &config.Config{
		EE: config.EEConfig{ServiceAccountFile: filepath.Join(t.TempDir(), "absent.json")},
	}

	engine, err := initEngine()
	assert.Nil(t, engine)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "read engine key file")
}

func TestInitEngine_KeyFileFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"user"}`), 0o600))

	cfg = &config.Config{
		EE: config.EEConfig{ServiceAccountFile: path},
	}

	engine, err := initEngine()
	assert.Nil(t, engine)
	assert.Error(t, err)
	// The file was read; the failure comes from parsing, not IO.
	assert.Contains(t, err.Error(), "engine credentials")
	assert.NotContains(t, err.Error(), "read engine key file")
}
