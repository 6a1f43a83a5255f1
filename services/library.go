package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"sonora/types"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc is called after each file; it may be called from several goroutines
type ProgressFunc func(done, total int, file string)

// ScanResult is the outcome of scanning a set of files
type ScanResult struct {
	Tracks  []types.Track
	Skipped int
}

// LibraryService discovers audio files and turns them into library tracks
type LibraryService struct {
	extractor  MetadataExtractor
	extensions map[string]bool
	workers    int
	logger     *zap.Logger
}

// NewLibraryService creates a library service; extensions are matched case-insensitively without the dot
func NewLibraryService(extractor MetadataExtractor, extensions []string, workers int, logger *zap.Logger) *LibraryService {
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	if workers < 1 {
		workers = 1
	}
	return &LibraryService{
		extractor:  extractor,
		extensions: exts,
		workers:    workers,
		logger:     logger,
	}
}

// IsAudioFile reports whether the file extension is one the library imports
func (l *LibraryService) IsAudioFile(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return l.extensions[ext]
}

// FindAudioFiles recursively lists audio files under root in lexical order
func (l *LibraryService) FindAudioFiles(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			l.logger.Warn("error accessing path", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil // keep walking
		}

		if d.Type().IsRegular() && l.IsAudioFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Scan extracts every file with bounded parallelism. Files failing with a
// fatal extraction error are skipped; tracks with the same id are kept once,
// in file order.
func (l *LibraryService) Scan(ctx context.Context, files []string, progress ProgressFunc) (*ScanResult, error) {
	tracks := make([]*types.Track, len(files))
	var done, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			meta, err := l.extractor.Extract(file)
			if err != nil {
				skipped.Add(1)
				l.logger.Warn("skipping file", zap.String("path", file), zap.Error(err))
			} else {
				track := TrackFromMetadata(meta)
				tracks[i] = &track
			}

			if progress != nil {
				progress(int(done.Add(1)), len(files), file)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &ScanResult{Skipped: int(skipped.Load())}
	seen := make(map[string]bool, len(tracks))
	for _, t := range tracks {
		if t == nil || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		result.Tracks = append(result.Tracks, *t)
	}
	return result, nil
}

// ScanDirectory is FindAudioFiles followed by Scan
func (l *LibraryService) ScanDirectory(ctx context.Context, root string, progress ProgressFunc) (*ScanResult, error) {
	files, err := l.FindAudioFiles(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}
	return l.Scan(ctx, files, progress)
}

// TrackID derives the library id the UI uses: hex MD5 of title followed by duration
func TrackID(title string, durationMS float64) string {
	sum := md5.Sum([]byte(title + strconv.FormatFloat(durationMS, 'f', -1, 64)))
	return hex.EncodeToString(sum[:])
}

// TrackFromMetadata converts an extraction record into a library track
func TrackFromMetadata(m *types.AudioMetadata) types.Track {
	return types.Track{
		ID:            TrackID(m.Title, m.Duration),
		Title:         m.Title,
		Artist:        m.Artist,
		Album:         m.Album,
		Duration:      m.Duration,
		Path:          m.FullPath,
		CoverData:     m.CoverData,
		CoverMIMEType: m.CoverMIMEType,
	}
}

// GetContentType returns the MIME type served for an audio file
func GetContentType(filePath string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))
	switch ext {
	case "flac":
		return "audio/flac"
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	case "m4a":
		return "audio/mp4"
	case "aac":
		return "audio/aac"
	case "ogg":
		return "audio/ogg"
	}

	if kind := filetype.GetType(ext); kind != filetype.Unknown {
		return kind.MIME.Value
	}
	return "application/octet-stream"
}
