package services

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"math"
	"path/filepath"
	"testing"

	"sonora/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func newTestExtractor(t *testing.T, tags TagReader, props PropertiesReader, opts ...ExtractorOption) *Extractor {
	t.Helper()
	opts = append([]ExtractorOption{
		WithTagReader(tags),
		WithPropertiesReader(props),
		WithLogger(zaptest.NewLogger(t)),
	}, opts...)
	return NewExtractor("zh-CN", opts...)
}

// TestExtractTagsTier tests extraction from a readable tag
func TestExtractTagsTier(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "whatever.mp3", garbage(256))

	e := newTestExtractor(t,
		fakeTagReader{tags: []Tag{{Title: "  晴天 ", Artist: "周杰伦", Album: "None"}}},
		fakeProperties{seconds: 269.5})

	m, err := e.Extract(path)
	require.NoError(t, err)

	assert.Equal(t, "晴天", m.Title)
	assert.Equal(t, "周杰伦", m.Artist)
	assert.Equal(t, "未知专辑", m.Album)
	assert.Equal(t, 269500.0, m.Duration)
	assert.Equal(t, path, m.FullPath)
	assert.Equal(t, types.TierTags, m.Tier)
	assert.Nil(t, m.CoverData)
	assert.Nil(t, m.CoverMIMEType)
}

// TestExtractSelectsFirstNonEmptyTag tests that an empty primary tag is skipped
func TestExtractSelectsFirstNonEmptyTag(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.mp3", garbage(256))

	e := newTestExtractor(t,
		fakeTagReader{tags: []Tag{{Title: " "}, {Title: "Secondary", Artist: "Band"}}},
		fakeProperties{seconds: 10})

	m, err := e.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "Secondary", m.Title)
	assert.Equal(t, "Band", m.Artist)
	assert.Equal(t, types.TierTags, m.Tier)
}

// TestExtractFallbackTiers tests how tag-parse outcomes degrade
func TestExtractFallbackTiers(t *testing.T) {
	tests := []struct {
		name         string
		content      []byte
		reader       fakeTagReader
		expectedTier types.MetadataTier
		expectedMS   float64
	}{
		{
			name:         "no tags",
			content:      garbage(256),
			reader:       fakeTagReader{err: ErrNoTags},
			expectedTier: types.TierFilename,
			expectedMS:   3000,
		},
		{
			name:         "only empty tags",
			content:      garbage(256),
			reader:       fakeTagReader{tags: []Tag{{}, {Album: "  "}}},
			expectedTier: types.TierFilename,
			expectedMS:   3000,
		},
		{
			name:         "truncated container",
			content:      garbage(256),
			reader:       fakeTagReader{err: io.ErrUnexpectedEOF},
			expectedTier: types.TierMinimal,
			expectedMS:   0,
		},
		{
			name:         "parser gave up",
			content:      garbage(256),
			reader:       fakeTagReader{err: ErrCorruptContainer},
			expectedTier: types.TierMinimal,
			expectedMS:   0,
		},
		{
			name:         "unknown error on identifiable audio",
			content:      append([]byte("ID3\x04\x00\x00"), garbage(250)...),
			reader:       fakeTagReader{err: errors.New("invalid frame")},
			expectedTier: types.TierMinimal,
			expectedMS:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "Song Title - Some Artist.mp3", tt.content)
			e := newTestExtractor(t, tt.reader, fakeProperties{seconds: 3})

			m, err := e.Extract(path)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedTier, m.Tier)
			assert.Equal(t, "Song Title", m.Title)
			assert.Equal(t, "Some Artist", m.Artist)
			assert.Equal(t, "未知专辑", m.Album)
			assert.Equal(t, tt.expectedMS, m.Duration)
			assert.Nil(t, m.CoverData)
			assert.Nil(t, m.CoverMIMEType)
		})
	}
}

// TestExtractErrors tests the failures that are not absorbed into a tier
func TestExtractErrors(t *testing.T) {
	dir := t.TempDir()
	plain := writeFile(t, dir, "notes.mp3", garbage(64))

	tests := []struct {
		name     string
		path     string
		reader   fakeTagReader
		sentinel error
		kind     ErrorKind
	}{
		{name: "empty path", path: "", sentinel: ErrInvalidInput, kind: KindInvalidInput},
		{name: "blank path", path: "   ", sentinel: ErrInvalidInput, kind: KindInvalidInput},
		{name: "missing file", path: filepath.Join(dir, "missing.mp3"), sentinel: ErrNotFound, kind: KindNotFound},
		{name: "file used as directory", path: filepath.Join(plain, "x.mp3"), sentinel: ErrNotFound, kind: KindNotFound},
		{name: "directory", path: dir, sentinel: ErrUnreadableFile, kind: KindUnreadableFile},
		{
			name:     "unidentifiable container",
			path:     plain,
			reader:   fakeTagReader{err: errors.New("seek: invalid offset")},
			sentinel: ErrUnreadableFile,
			kind:     KindUnreadableFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExtractor(t, tt.reader, fakeProperties{seconds: 1})

			m, err := e.Extract(tt.path)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.ErrorIs(t, err, tt.sentinel)

			var extractErr *ExtractError
			require.ErrorAs(t, err, &extractErr)
			assert.Equal(t, tt.kind, extractErr.Kind)
		})
	}
}

// TestExtractDurationNormalization tests that unusable durations become zero
func TestExtractDurationNormalization(t *testing.T) {
	tests := []struct {
		name     string
		props    fakeProperties
		expected float64
	}{
		{name: "normal", props: fakeProperties{seconds: 1.25}, expected: 1250},
		{name: "zero", props: fakeProperties{seconds: 0}, expected: 0},
		{name: "negative", props: fakeProperties{seconds: -4}, expected: 0},
		{name: "nan", props: fakeProperties{seconds: math.NaN()}, expected: 0},
		{name: "infinite", props: fakeProperties{seconds: math.Inf(1)}, expected: 0},
		{name: "read error", props: fakeProperties{err: errors.New("no stream")}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "a.flac", garbage(256))
			e := newTestExtractor(t, fakeTagReader{tags: []Tag{{Title: "T"}}}, tt.props)

			m, err := e.Extract(path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m.Duration)
		})
	}
}

// TestExtractCover tests cover encoding and MIME resolution
func TestExtractCover(t *testing.T) {
	tests := []struct {
		name         string
		pictures     []Picture
		expectedMIME string
		expectCover  bool
	}{
		{
			name:         "reported mime",
			pictures:     []Picture{{MIMEType: "image/webp", Data: []byte("RIFFxxxxWEBP")}},
			expectedMIME: "image/webp",
			expectCover:  true,
		},
		{
			name:         "sniffed png",
			pictures:     []Picture{{Data: pngHeader}},
			expectedMIME: "image/png",
			expectCover:  true,
		},
		{
			name:         "malformed mime falls back to jpeg",
			pictures:     []Picture{{MIMEType: "PNG", Data: []byte("not an image")}},
			expectedMIME: "image/jpeg",
			expectCover:  true,
		},
		{
			name:        "empty first picture means no cover",
			pictures:    []Picture{{MIMEType: "image/png"}, {MIMEType: "image/png", Data: pngHeader}},
			expectCover: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "a.mp3", garbage(256))
			e := newTestExtractor(t,
				fakeTagReader{tags: []Tag{{Title: "T", Pictures: tt.pictures}}},
				fakeProperties{seconds: 1})

			m, err := e.Extract(path)
			require.NoError(t, err)

			if !tt.expectCover {
				assert.False(t, m.HasCover())
				assert.Nil(t, m.CoverData)
				assert.Nil(t, m.CoverMIMEType)
				return
			}

			require.True(t, m.HasCover())
			require.NotNil(t, m.CoverMIMEType)
			assert.Equal(t, tt.expectedMIME, *m.CoverMIMEType)

			decoded, err := base64.StdEncoding.DecodeString(*m.CoverData)
			require.NoError(t, err)
			assert.Equal(t, tt.pictures[0].Data, decoded)
		})
	}
}

// TestExtractLocalePlaceholders tests the English placeholder set
func TestExtractLocalePlaceholders(t *testing.T) {
	path := writeFile(t, t.TempDir(), "   .mp3", garbage(256))
	e := NewExtractor("en-US",
		WithTagReader(fakeTagReader{err: ErrNoTags}),
		WithPropertiesReader(fakeProperties{}))

	m, err := e.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "Unknown Title", m.Title)
	assert.Equal(t, "Unknown Artist", m.Artist)
	assert.Equal(t, "Unknown Album", m.Album)
	assert.Equal(t, Placeholders{Title: "Unknown Title", Artist: "Unknown Artist", Album: "Unknown Album"}, e.Placeholders())
}

// TestExtractLegacyCharset tests GB18030 decoding of non-UTF-8 tag text
func TestExtractLegacyCharset(t *testing.T) {
	encoded, err := simplifiedchinese.GB18030.NewEncoder().String("你好")
	require.NoError(t, err)

	path := writeFile(t, t.TempDir(), "a.mp3", garbage(256))
	reader := fakeTagReader{tags: []Tag{{Title: encoded, Artist: "A"}}}

	legacy := newTestExtractor(t, reader, fakeProperties{}, WithLegacyCharset("gb18030"))
	m, err := legacy.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "你好", m.Title)

	lossy := newTestExtractor(t, reader, fakeProperties{})
	m, err = lossy.Extract(path)
	require.NoError(t, err)
	assert.Contains(t, m.Title, "�")
}

// TestExtractID3v23 tests the dhowden/tag reader on a real ID3v2.3 tag
func TestExtractID3v23(t *testing.T) {
	content := buildID3v23("Blue", "Joni Mitchell", "Blue", pngHeader, "image/png")
	path := writeFile(t, t.TempDir(), "ignored - name.mp3", content)

	e := NewExtractor("en",
		WithPropertiesReader(fakeProperties{seconds: 180}),
		WithLogger(zaptest.NewLogger(t)))

	m, err := e.Extract(path)
	require.NoError(t, err)

	assert.Equal(t, types.TierTags, m.Tier)
	assert.Equal(t, "Blue", m.Title)
	assert.Equal(t, "Joni Mitchell", m.Artist)
	assert.Equal(t, "Blue", m.Album)
	assert.Equal(t, 180000.0, m.Duration)
	require.NotNil(t, m.CoverMIMEType)
	assert.Equal(t, "image/png", *m.CoverMIMEType)
	require.NotNil(t, m.CoverData)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngHeader), *m.CoverData)
}

// TestExtractUntaggedWAV tests the filename tier and real duration of an untagged WAV
func TestExtractUntaggedWAV(t *testing.T) {
	path := writeFile(t, t.TempDir(), "Artist Name - Track Name.wav", silentWAV(2))

	e := NewExtractor("zh-CN", WithLogger(zaptest.NewLogger(t)))

	m, err := e.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, types.TierFilename, m.Tier)
	assert.Equal(t, "Artist Name", m.Title)
	assert.Equal(t, "Track Name", m.Artist)
	assert.InDelta(t, 2000.0, m.Duration, 50)
}

// TestExtractNonAudioFiles tests that files which are neither tagged nor audio are unreadable
func TestExtractNonAudioFiles(t *testing.T) {
	jpeg := append([]byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00"), garbage(512)...)

	tests := []struct {
		name    string
		file    string
		content []byte
	}{
		{name: "text", file: "notes.txt", content: bytes.Repeat([]byte("just some notes\n"), 35)},
		{name: "jpeg", file: "cover.jpg", content: jpeg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)
			e := NewExtractor("en", WithLogger(zaptest.NewLogger(t)))

			var m *types.AudioMetadata
			var err error
			require.NotPanics(t, func() { m, err = e.Extract(path) })
			assert.Nil(t, m)
			assert.ErrorIs(t, err, ErrUnreadableFile)
		})
	}
}

// TestExtractNoTagsNoStream tests the untagged case when no stream can be read
func TestExtractNoTagsNoStream(t *testing.T) {
	dir := t.TempDir()
	noStream := fakeProperties{err: ErrNoAudioStream}

	plain := writeFile(t, dir, "plain.mp3", garbage(256))
	_, err := newTestExtractor(t, fakeTagReader{err: ErrNoTags}, noStream).Extract(plain)
	assert.ErrorIs(t, err, ErrUnreadableFile)
	assert.ErrorIs(t, err, ErrNoAudioStream)

	// recognizable audio keeps the filename tier without a duration
	wav := writeFile(t, dir, "A - B.wav", silentWAV(1))
	m, err := newTestExtractor(t, fakeTagReader{err: ErrNoTags}, noStream).Extract(wav)
	require.NoError(t, err)
	assert.Equal(t, types.TierFilename, m.Tier)
	assert.Zero(t, m.Duration)
}

// TestExtractIsIdempotent tests that an unmodified file yields the same record twice
func TestExtractIsIdempotent(t *testing.T) {
	content := buildID3v23("Both Sides Now", "Joni Mitchell", "Clouds", pngHeader, "image/png")
	path := writeFile(t, t.TempDir(), "clouds.mp3", content)

	e := NewExtractor("en", WithLogger(zaptest.NewLogger(t)))

	first, err := e.Extract(path)
	require.NoError(t, err)
	second, err := e.Extract(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, types.TierTags, first.Tier)
}

// TestExtractEmptyFile tests that an empty file degrades to the minimal tier
func TestExtractEmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.mp3", nil)

	e := NewExtractor("zh-CN", WithPropertiesReader(fakeProperties{seconds: 2}))

	m, err := e.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, types.TierMinimal, m.Tier)
	assert.Equal(t, "empty", m.Title)
	assert.Equal(t, "未知艺术家", m.Artist)
	assert.Zero(t, m.Duration)
}

// TestExtractErrorMessage tests the error text
func TestExtractErrorMessage(t *testing.T) {
	err := newExtractError(KindNotFound, "/x/y.mp3", errors.New("boom"))
	assert.Equal(t, `file not found "/x/y.mp3": boom`, err.Error())
	assert.False(t, errors.Is(err, ErrUnreadableFile))
}
