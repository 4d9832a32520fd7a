package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/datallboy/modfetch/internal/domain"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/configured/skyrim", 0755))
	require.NoError(t, fs.MkdirAll("/env/skyrim", 0755))
	require.NoError(t, fs.MkdirAll("/steam/steamapps/common/The Elder Scrolls V Skyrim Special Edition", 0755))

	env := map[string]string{}
	loc := NewGameLocator(fs, map[string]string{}, []string{"/steam"})
	loc.getenv = func(k string) string { return env[k] }

	dir, err := loc.Locate("SkyrimSpecialEdition")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/steam", "steamapps", "common", "The Elder Scrolls V Skyrim Special Edition"), dir)

	env["SKYRIMSPECIALEDITION_PATH"] = "/env/skyrim"
	dir, err = loc.Locate("SkyrimSpecialEdition")
	require.NoError(t, err)
	assert.Equal(t, "/env/skyrim", dir)

	loc.paths["skyrimspecialedition"] = "/configured/skyrim"
	dir, err = loc.Locate("SkyrimSpecialEdition")
	require.NoError(t, err)
	assert.Equal(t, "/configured/skyrim", dir)

	_, err = loc.Locate("Starfield")
	assert.True(t, errors.Is(err, ErrGameNotFound))
}

func TestGameFileCopy(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/games/fo4/Data/Fallout4 - Meshes.ba2", []byte("mesh data"), 0644))

	loc := NewGameLocator(fs, map[string]string{"Fallout4": "/games/fo4"}, nil)
	fetcher := NewGameFileFetcher(fs, loc)

	target := filepath.Join(t.TempDir(), "Fallout4 - Meshes.ba2")
	tr, err := fetcher.Fetch(context.Background(), domain.GameFileSource{Game: "Fallout4", Path: `Data\Fallout4 - Meshes.ba2`}, target, func(int64, int64) {})
	require.NoError(t, err)
	assert.Equal(t, int64(len("mesh data")), tr.Size)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "mesh data", string(data))
}

func TestGameFileMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/games/fo4", 0755))

	loc := NewGameLocator(fs, map[string]string{"Fallout4": "/games/fo4"}, nil)
	fetcher := NewGameFileFetcher(fs, loc)

	_, err := fetcher.Fetch(context.Background(), domain.GameFileSource{Game: "Fallout4", Path: "Data/missing.ba2"}, filepath.Join(t.TempDir(), "x"), func(int64, int64) {})
	var fsErr *domain.FilesystemError
	require.ErrorAs(t, err, &fsErr)
	assert.False(t, domain.IsRetryable(err))
}
