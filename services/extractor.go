package services

import (
	"encoding/base64"
	"errors"
	"io"
	"io/fs"
	"math"
	"os"
	"strings"
	"syscall"

	"sonora/types"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
)

const defaultCoverMIMEType = "image/jpeg"

// sniffLen is enough for every matcher in h2non/filetype
const sniffLen = 262

// MetadataExtractor produces a best-effort metadata record for a local audio file
type MetadataExtractor interface {
	Extract(path string) (*types.AudioMetadata, error)
}

// Extractor reads tags and degrades to filename-derived fields instead of failing.
// It keeps no state between calls and is safe for concurrent use.
type Extractor struct {
	tags   TagReader
	props  PropertiesReader
	text   textDecoder
	labels Placeholders
	logger *zap.Logger
}

// ExtractorOption configures an Extractor
type ExtractorOption func(*Extractor)

// WithTagReader replaces the default dhowden/tag reader
func WithTagReader(r TagReader) ExtractorOption {
	return func(e *Extractor) {
		e.tags = r
	}
}

// WithPropertiesReader replaces the default TagLib properties reader
func WithPropertiesReader(r PropertiesReader) ExtractorOption {
	return func(e *Extractor) {
		e.props = r
	}
}

// WithLegacyCharset decodes non-UTF-8 text with the named charset before
// falling back to replacement characters. Only "gb18030" is recognized.
func WithLegacyCharset(name string) ExtractorOption {
	return func(e *Extractor) {
		e.text = newTextDecoder(name)
	}
}

// WithLogger sets the logger used for fallback diagnostics
func WithLogger(logger *zap.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor creates an extractor whose placeholders follow locale
func NewExtractor(locale string, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		tags:   NewTagReader(),
		props:  NewPropertiesReader(),
		labels: PlaceholdersFor(locale),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Placeholders returns the localized values used for missing fields
func (e *Extractor) Placeholders() Placeholders {
	return e.labels
}

// Extract returns the metadata of the file at path.
//
// Only a blank path, a missing file, an unreadable file and a file that is
// neither tagged nor recognizable audio are errors; everything else yields a
// record from one of the fallback tiers. The file is streamed, never loaded whole.
func (e *Extractor) Extract(path string) (*types.AudioMetadata, error) {
	if strings.TrimSpace(path) == "" {
		return nil, newExtractError(KindInvalidInput, path, errors.New("path is empty"))
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return nil, newExtractError(KindNotFound, path, err)
		}
		return nil, newExtractError(KindUnreadableFile, path, err)
	}
	if info.IsDir() {
		return nil, newExtractError(KindUnreadableFile, path, &fs.PathError{Op: "read", Path: path, Err: syscall.EISDIR})
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, newExtractError(KindUnreadableFile, path, err)
	}
	defer f.Close()

	sniff, err := readHead(f)
	if err != nil {
		return nil, newExtractError(KindUnreadableFile, path, err)
	}

	tags, err := e.tags.ReadTags(f)
	if err != nil {
		switch classifyParseError(err, sniff) {
		case parseNoTags:
			ms, propErr := e.durationMS(path)
			if propErr != nil && !filetype.IsAudio(sniff) {
				return nil, newExtractError(KindUnreadableFile, path, propErr)
			}
			e.logger.Debug("no tags, using filename", zap.String("path", path))
			return e.fromFilename(path, types.TierFilename, ms), nil
		case parseCorrupt:
			e.logger.Info("damaged container, using filename", zap.String("path", path), zap.Error(err))
			return e.fromFilename(path, types.TierMinimal, 0), nil
		default:
			return nil, newExtractError(KindUnreadableFile, path, err)
		}
	}

	selected, ok := selectTag(tags)
	if !ok {
		e.logger.Debug("empty tags, using filename", zap.String("path", path))
		ms, _ := e.durationMS(path)
		return e.fromFilename(path, types.TierFilename, ms), nil
	}

	ms, _ := e.durationMS(path)

	record := &types.AudioMetadata{
		Title:    e.text.field(selected.Title, e.labels.Title),
		Artist:   e.text.field(selected.Artist, e.labels.Artist),
		Album:    e.text.field(selected.Album, e.labels.Album),
		Duration: ms,
		FullPath: path,
		Tier:     types.TierTags,
	}
	record.CoverData, record.CoverMIMEType = encodeCover(selected.Pictures)

	return record, nil
}

// fromFilename builds a record from the filename. The minimal tier is used
// for damaged containers and carries no duration.
func (e *Extractor) fromFilename(path string, tier types.MetadataTier, durationMS float64) *types.AudioMetadata {
	title, artist := titleArtistFromFilename(path, e.text, e.labels)

	return &types.AudioMetadata{
		Title:    title,
		Artist:   artist,
		Album:    e.labels.Album,
		Duration: durationMS,
		FullPath: path,
		Tier:     tier,
	}
}

// durationMS reads the stream length. Non-finite and non-positive values become 0.
func (e *Extractor) durationMS(path string) (float64, error) {
	if e.props == nil {
		return 0, nil
	}

	seconds, err := e.props.DurationSeconds(path)
	if err != nil {
		e.logger.Debug("duration unavailable", zap.String("path", path), zap.Error(err))
		return 0, err
	}
	return normalizeDurationMS(seconds), nil
}

func normalizeDurationMS(seconds float64) float64 {
	ms := seconds * 1000
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms <= 0 {
		return 0
	}
	return ms
}

// selectTag returns the primary tag, or the first non-empty one after it
func selectTag(tags []Tag) (Tag, bool) {
	for _, t := range tags {
		if !t.empty() {
			return t, true
		}
	}
	return Tag{}, false
}

// encodeCover encodes the first picture; an empty first picture means no cover
func encodeCover(pictures []Picture) (data, mimeType *string) {
	if len(pictures) == 0 || len(pictures[0].Data) == 0 {
		return nil, nil
	}

	pic := pictures[0]
	encoded := base64.StdEncoding.EncodeToString(pic.Data)
	mime := coverMIMEType(pic)
	return &encoded, &mime
}

// coverMIMEType prefers the reported type, then the sniffed image type, then image/jpeg
func coverMIMEType(pic Picture) string {
	if mime := strings.ToLower(strings.TrimSpace(pic.MIMEType)); strings.Contains(mime, "/") {
		return mime
	}

	if kind, err := filetype.Image(head(pic.Data)); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	return defaultCoverMIMEType
}

type parseOutcome int

const (
	parseFatal parseOutcome = iota
	parseNoTags
	parseCorrupt
)

// classifyParseError decides which tag-parse failures degrade instead of aborting.
//
// No tags: filename tier with duration. Truncated or damaged but
// identifiable audio: minimal tier. Anything else: fatal.
func classifyParseError(err error, sniff []byte) parseOutcome {
	switch {
	case errors.Is(err, ErrNoTags):
		return parseNoTags
	case errors.Is(err, ErrCorruptContainer),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return parseCorrupt
	case filetype.IsAudio(sniff):
		return parseCorrupt
	}
	return parseFatal
}

// readHead reads the first sniffLen bytes of f and rewinds it
func readHead(f io.ReadSeeker) ([]byte, error) {
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func head(data []byte) []byte {
	if len(data) > sniffLen {
		return data[:sniffLen]
	}
	return data
}
