package services

import (
	"errors"
	"fmt"
	"io"

	"github.com/dhowden/tag"
	"go.senan.xyz/taglib"
)

// Picture is an embedded image as reported by the tag parser
type Picture struct {
	MIMEType string
	Data     []byte
}

// Tag is one tag block found in a container
type Tag struct {
	Title    string
	Artist   string
	Album    string
	Pictures []Picture
}

func (t Tag) empty() bool {
	return trimField(t.Title) == "" && trimField(t.Artist) == "" &&
		trimField(t.Album) == "" && len(t.Pictures) == 0
}

// TagReader parses the tag blocks of a file.
//
// Tags are returned primary first. Implementations return ErrNoTags when the
// container has no tag block they understand and ErrCorruptContainer (or
// io.ErrUnexpectedEOF) when the container is damaged.
type TagReader interface {
	ReadTags(r io.ReadSeeker) ([]Tag, error)
}

// PropertiesReader reports audio stream properties of a file
type PropertiesReader interface {
	DurationSeconds(path string) (float64, error)
}

// dhowdenTagReader reads ID3v1/v2, MP4 atoms, FLAC/OGG Vorbis comments and DSF via dhowden/tag
type dhowdenTagReader struct{}

// NewTagReader returns the default TagReader
func NewTagReader() TagReader {
	return dhowdenTagReader{}
}

func (dhowdenTagReader) ReadTags(r io.ReadSeeker) (tags []Tag, err error) {
	defer func() {
		if r := recover(); r != nil {
			tags, err = nil, fmt.Errorf("%w: parser panic: %v", ErrCorruptContainer, r)
		}
	}()

	m, err := tag.ReadFrom(r)
	if errors.Is(err, tag.ErrNoTagsFound) {
		return nil, ErrNoTags
	}
	if err != nil {
		return nil, err
	}

	tags = append(tags, tagFromMetadata(m))

	// An MP3 may carry a trailing ID3v1 block next to its ID3v2 tag
	if m.FileType() == tag.MP3 && m.Format() != tag.ID3v1 {
		if v1, err := tag.ReadID3v1Tags(r); err == nil {
			tags = append(tags, tagFromMetadata(v1))
		}
	}

	return tags, nil
}

func tagFromMetadata(m tag.Metadata) Tag {
	t := Tag{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
	}
	if pic := m.Picture(); pic != nil {
		t.Pictures = append(t.Pictures, Picture{MIMEType: pic.MIMEType, Data: pic.Data})
	}
	return t
}

// taglibProperties reads stream properties through TagLib (WebAssembly build, no cgo)
type taglibProperties struct{}

// NewPropertiesReader returns the default PropertiesReader
func NewPropertiesReader() PropertiesReader {
	return taglibProperties{}
}

// ErrNoAudioStream is returned when TagLib finds no stream in a file
var ErrNoAudioStream = errors.New("no audio stream")

// DurationSeconds returns the stream length. TagLib panics on files whose
// extension it does not handle; that is reported as an error.
func (taglibProperties) DurationSeconds(path string) (seconds float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			seconds, err = 0, fmt.Errorf("failed to read audio properties: %w: %v", ErrNoAudioStream, r)
		}
	}()

	props, err := taglib.ReadProperties(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read audio properties: %w", err)
	}
	if props.Length <= 0 && props.SampleRate == 0 {
		return 0, fmt.Errorf("failed to read audio properties: %w", ErrNoAudioStream)
	}
	return props.Length.Seconds(), nil
}
