package roster

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ParseNames splits free text on newlines and commas, trims every token and
// drops the empty ones.
func ParseNames(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == ','
	})
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			names = append(names, f)
		}
	}
	return names
}

// ReadNames reads an uploaded .csv or .txt file as plain text and parses it
// with ParseNames. A leading UTF-8 or UTF-16 byte-order mark selects the
// encoding; files without one are read as UTF-8.
func ReadNames(r io.Reader) ([]string, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	raw, err := io.ReadAll(decoded)
	if err != nil {
		return nil, fmt.Errorf("read roster file: %w", err)
	}
	return ParseNames(string(raw)), nil
}

// SampleNames is a demo roster. It contains duplicates on purpose.
var SampleNames = []string{
	"陳小明", "林大華", "張美麗", "王志強", "李曉芬",
	"周杰倫", "蔡依林", "吳名氏", "趙子龍", "孫悟空",
	"陳小明", "黃阿瑪", "許功蓋", "曾參祥", "郭台銘",
	"馬雲龍", "李小龍", "林青霞", "林大華", "王祖賢",
}
