package services

import (
	"path/filepath"
	"strings"
	"unicode"
)

// fileStem returns the base name without its extension
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// trimPart strips whitespace and leftover separator dashes around a split half
func trimPart(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == 0
	})
}

// splitStem derives title and artist from a file stem.
//
// "Title - Artist" is tried on the first dash; if either half is blank,
// "Artist - Title" is tried on the last dash. ok is false when neither split
// gives two non-blank halves.
func splitStem(stem string) (title, artist string, ok bool) {
	if left, right, found := strings.Cut(stem, "-"); found {
		left, right = trimPart(left), trimPart(right)
		if left != "" && right != "" {
			return left, right, true
		}
	}

	if i := strings.LastIndex(stem, "-"); i >= 0 {
		left, right := trimPart(stem[:i]), trimPart(stem[i+1:])
		if left != "" && right != "" {
			return right, left, true
		}
	}

	return "", "", false
}

// titleArtistFromFilename applies the filename heuristic with placeholder fallbacks
func titleArtistFromFilename(path string, text textDecoder, labels Placeholders) (title, artist string) {
	stem := text.decode(fileStem(path))

	if t, a, ok := splitStem(stem); ok {
		return t, a
	}

	title = trimField(stem)
	if title == "" {
		title = labels.Title
	}
	return title, labels.Artist
}
