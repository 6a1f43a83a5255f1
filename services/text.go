package services

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/language"
)

// absentSentinel is what some taggers write instead of leaving a field empty
const absentSentinel = "None"

// Placeholders are the localized values used when a field is unavailable
type Placeholders struct {
	Title  string
	Artist string
	Album  string
}

var placeholderTable = []Placeholders{
	{Title: "未知标题", Artist: "未知艺术家", Album: "未知专辑"},
	{Title: "Unknown Title", Artist: "Unknown Artist", Album: "Unknown Album"},
}

var placeholderMatcher = language.NewMatcher([]language.Tag{
	language.SimplifiedChinese,
	language.English,
})

// PlaceholdersFor picks the placeholder set for a BCP 47 locale.
// Unparseable locales get Chinese, the UI's own language; parseable ones
// that match neither set get English.
func PlaceholdersFor(locale string) Placeholders {
	tag, err := language.Parse(locale)
	if err != nil {
		return placeholderTable[0]
	}

	_, idx, confidence := placeholderMatcher.Match(tag)
	if confidence == language.No {
		return placeholderTable[1]
	}
	return placeholderTable[idx]
}

// textDecoder turns raw tag or filename strings into valid UTF-8
type textDecoder struct {
	legacy encoding.Encoding
}

func newTextDecoder(legacyCharset string) textDecoder {
	if strings.EqualFold(legacyCharset, "gb18030") {
		return textDecoder{legacy: simplifiedchinese.GB18030}
	}
	return textDecoder{}
}

// decode never fails: invalid sequences become U+FFFD
func (d textDecoder) decode(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	if d.legacy != nil {
		if out, err := d.legacy.NewDecoder().String(s); err == nil && utf8.ValidString(out) {
			return out
		}
	}

	out, err := xunicode.UTF8.NewDecoder().String(s)
	if err != nil || !utf8.ValidString(out) {
		return strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	return out
}

// field returns the cleaned value, or the placeholder when it is blank or the absent sentinel
func (d textDecoder) field(raw, placeholder string) string {
	v := trimField(d.decode(raw))
	if v == "" || v == absentSentinel {
		return placeholder
	}
	return v
}

func trimField(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == 0
	})
}
