package domain

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	req, err := NewRequest(HTTPSource{URL: "https://example.com/files/Mod%20Pack.7z"}).
		Into("/downloads").
		WithMirror("https://mirror.example.com/Mod Pack.7z").
		WithValidation(ValidationSpec{SHA256: "abc"}).
		WithPriority(3).
		WithMeta("k", "v").
		Build()
	require.NoError(t, err)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "Mod Pack.7z", req.FileName())
	assert.Equal(t, filepath.Join("/downloads", "Mod Pack.7z"), req.Target())
	assert.Equal(t, []string{"https://mirror.example.com/Mod Pack.7z"}, req.Mirrors)
	assert.Equal(t, 3, req.Priority)
	assert.Equal(t, "v", req.Metadata["k"])
	assert.Equal(t, req.ID, req.ArchiveID())
}

func TestBuilderRejectsInvalid(t *testing.T) {
	_, err := NewRequest(HTTPSource{URL: "https://example.com/a.zip"}).Build()
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	_, err = NewRequest(nil).Into("/tmp").Build()
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	_, err = NewRequest(HTTPSource{URL: "https://example.com/"}).Into("/tmp").Named("x.bin").Build()
	assert.NoError(t, err)
}

func TestManualRequestNeedsNoName(t *testing.T) {
	_, err := NewRequest(ManualSource{Prompt: "get it yourself"}).Into("/tmp").Build()
	assert.NoError(t, err)
}

func TestCandidatesDeduplicates(t *testing.T) {
	src := HTTPSource{URL: "https://a/x", Mirrors: []string{"https://b/x", "https://a/x"}}
	assert.Equal(t, []string{"https://a/x", "https://b/x", "https://c/x"}, src.Candidates("https://c/x", "https://b/x", ""))
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "a_b_c.7z", SanitizeFileName(`a/b:c.7z`))
	assert.Equal(t, "Tom & Jerry", SanitizeFileName("Tom &amp; Jerry. "))
	assert.Equal(t, "", SanitizeFileName(".."))
}

func TestGameFileDefaultName(t *testing.T) {
	src := GameFileSource{Game: "SkyrimSpecialEdition", Path: `Data\Skyrim - Textures0.bsa`}
	assert.Equal(t, "Skyrim - Textures0.bsa", src.DefaultName())
}
