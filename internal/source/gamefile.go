package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/datallboy/modfetch/internal/domain"
	"github.com/spf13/afero"
)

// ErrGameNotFound is returned when no install directory exists for a game.
var ErrGameNotFound = errors.New("game installation not found")

// steamFolders maps manifest game ids onto steamapps/common folder names.
var steamFolders = map[string]string{
	"SkyrimSpecialEdition": "The Elder Scrolls V Skyrim Special Edition",
	"Skyrim":               "Skyrim",
	"Fallout4":             "Fallout 4",
	"FalloutNewVegas":      "Fallout New Vegas",
	"Fallout3":             "Fallout 3",
	"Oblivion":             "Oblivion",
	"Morrowind":            "Morrowind",
}

// GameLocator finds game install directories. Lookup order: configured
// paths, the <GAME>_PATH environment variable, then Steam libraries.
type GameLocator struct {
	fs         afero.Fs
	paths      map[string]string
	steamRoots []string
	getenv     func(string) string
}

func NewGameLocator(fs afero.Fs, paths map[string]string, steamRoots []string) *GameLocator {
	roots := append([]string{}, steamRoots...)
	roots = append(roots, defaultSteamRoots()...)

	// config keys arrive lowercased
	byGame := make(map[string]string, len(paths))
	for game, dir := range paths {
		byGame[strings.ToLower(game)] = dir
	}

	return &GameLocator{
		fs:         fs,
		paths:      byGame,
		steamRoots: roots,
		getenv:     os.Getenv,
	}
}

func defaultSteamRoots() []string {
	var roots []string
	if runtime.GOOS == "windows" {
		for _, env := range []string{"PROGRAMFILES(X86)", "PROGRAMFILES"} {
			if dir := os.Getenv(env); dir != "" {
				roots = append(roots, filepath.Join(dir, "Steam"))
			}
		}
		return roots
	}

	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots,
			filepath.Join(home, ".steam", "steam"),
			filepath.Join(home, ".local", "share", "Steam"),
		)
	}
	return roots
}

// Locate returns the install directory for game.
func (l *GameLocator) Locate(game string) (string, error) {
	if dir, ok := l.paths[strings.ToLower(game)]; ok && l.isDir(dir) {
		return dir, nil
	}

	if dir := l.getenv(strings.ToUpper(game) + "_PATH"); dir != "" && l.isDir(dir) {
		return dir, nil
	}

	folder := game
	if f, ok := steamFolders[game]; ok {
		folder = f
	}
	for _, root := range l.steamRoots {
		dir := filepath.Join(root, "steamapps", "common", folder)
		if l.isDir(dir) {
			return dir, nil
		}
	}

	return "", fmt.Errorf("%w: %s (install it, or set %s_PATH)", ErrGameNotFound, game, strings.ToUpper(game))
}

func (l *GameLocator) isDir(dir string) bool {
	ok, err := afero.DirExists(l.fs, dir)
	return err == nil && ok
}

// GameFileFetcher copies files out of a located game installation.
type GameFileFetcher struct {
	fs      afero.Fs
	locator *GameLocator
}

func NewGameFileFetcher(fs afero.Fs, locator *GameLocator) *GameFileFetcher {
	return &GameFileFetcher{fs: fs, locator: locator}
}

func (f *GameFileFetcher) Fetch(ctx context.Context, src domain.GameFileSource, target string, progress ProgressFunc) (*Transfer, error) {
	dir, err := f.locator.Locate(src.Game)
	if err != nil {
		return nil, &domain.FilesystemError{Op: "locate", Path: src.Game, Err: err}
	}

	rel := filepath.FromSlash(strings.ReplaceAll(src.Path, "\\", "/"))
	srcPath := filepath.Join(dir, rel)

	exists, err := afero.Exists(f.fs, srcPath)
	if err != nil || !exists {
		return nil, &domain.FilesystemError{Op: "open", Path: srcPath, Err: os.ErrNotExist}
	}

	return copyInto(ctx, f.fs, srcPath, target, progress)
}
