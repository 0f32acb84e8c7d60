package scanconfig

import (
	"testing"

	"github.com/banshee-data/scan360/internal/fsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefault(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	cfg := Default()
	cfg.DBSCANEps = 0.42
	cfg.RegionShape = RegionCone

	require.NoError(t, Save(fs, cfg))

	loaded, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_InvalidJSONIsFatal(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile(FileName, []byte("{not json"), 0644))

	_, err := Load(fs)
	assert.Error(t, err)
}

func TestValidate_RejectsBadRegionShape(t *testing.T) {
	cfg := Default()
	cfg.RegionShape = "triangle"
	assert.Error(t, cfg.Validate())
}

func TestSave_RefusesInvalidConfig(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	cfg := Default()
	cfg.DBSCANEps = -1
	assert.Error(t, Save(fs, cfg))
}
