package services

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeTagReader returns canned tags or an error
type fakeTagReader struct {
	tags []Tag
	err  error
}

func (f fakeTagReader) ReadTags(io.ReadSeeker) ([]Tag, error) {
	return f.tags, f.err
}

// fakeProperties returns a canned duration in seconds
type fakeProperties struct {
	seconds float64
	err     error
}

func (f fakeProperties) DurationSeconds(string) (float64, error) {
	return f.seconds, f.err
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

// writeFile creates a file under a temp dir and returns its path
func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

// garbage returns n bytes no matcher recognizes as a known file type
func garbage(n int) []byte {
	return bytes.Repeat([]byte("zq"), n/2+1)[:n]
}

func syncsafe(n int) []byte {
	return []byte{byte(n >> 21 & 0x7f), byte(n >> 14 & 0x7f), byte(n >> 7 & 0x7f), byte(n & 0x7f)}
}

func id3v23Frame(id string, body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(id)
	size := make([]byte, 4)
	binary.BigEndian.PutUint32(size, uint32(len(body)))
	buf.Write(size)
	buf.Write([]byte{0, 0})
	buf.Write(body)
	return buf.Bytes()
}

func id3v23Text(id, value string) []byte {
	return id3v23Frame(id, append([]byte{0x00}, value...))
}

// buildID3v23 builds an ID3v2.3 tagged file followed by a little silence
func buildID3v23(title, artist, album string, cover []byte, coverMIME string) []byte {
	var frames bytes.Buffer
	if title != "" {
		frames.Write(id3v23Text("TIT2", title))
	}
	if artist != "" {
		frames.Write(id3v23Text("TPE1", artist))
	}
	if album != "" {
		frames.Write(id3v23Text("TALB", album))
	}
	if cover != nil {
		var apic bytes.Buffer
		apic.WriteByte(0x00)
		apic.WriteString(coverMIME)
		apic.WriteByte(0x00)
		apic.WriteByte(0x03) // front cover
		apic.WriteByte(0x00) // empty description
		apic.Write(cover)
		frames.Write(id3v23Frame("APIC", apic.Bytes()))
	}

	var file bytes.Buffer
	file.WriteString("ID3")
	file.Write([]byte{0x03, 0x00, 0x00})
	file.Write(syncsafe(frames.Len()))
	file.Write(frames.Bytes())
	file.Write(make([]byte, 64))
	return file.Bytes()
}

// silentWAV builds a PCM WAV (8 kHz, mono, 16-bit) holding seconds of silence
func silentWAV(seconds int) []byte {
	const sampleRate, channels, bitsPerSample = 8000, 1, 16
	byteRate := sampleRate * channels * bitsPerSample / 8
	dataLen := byteRate * seconds

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVEfmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*bitsPerSample/8))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}
