package marc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Encode serializes a record for storage.
func Encode(r *Record) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("encode record: nil record")
	}
	return json.Marshal(r)
}

// Decode deserializes stored record content.
func Decode(content []byte) (*Record, error) {
	r := &Record{}
	if len(content) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(content, r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return r, nil
}

// ParseLines parses the line format produced by Record.String.
//
// Each non-blank line is one field:
//
//	001 00 *a12345678 *b870970
//	245 00 *aA title with spaces
//
// The field name is the first token, the indicator the second, and each
// subfield starts with " *" followed by its one character name. Lines
// beginning with '#' are comments.
func ParseLines(text string) (*Record, error) {
	r := &Record{}
	sc := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), " \t\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		f, err := parseField(strings.TrimSpace(line))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		r.Fields = append(r.Fields, f)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}
	return r, nil
}

// MustParseLines is ParseLines for fixtures and tests. It panics on error.
func MustParseLines(text string) *Record {
	r, err := ParseLines(text)
	if err != nil {
		panic(err)
	}
	return r
}

func parseField(line string) (Field, error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return Field{}, fmt.Errorf("field %q: missing indicator", line)
	}
	f := Field{Name: parts[0], Indicator: parts[1]}
	if len(f.Name) != 3 {
		return Field{}, fmt.Errorf("field %q: name must be three characters", f.Name)
	}
	if len(parts) == 2 {
		return f, nil
	}
	rest := parts[2]
	if !strings.HasPrefix(rest, "*") {
		return Field{}, fmt.Errorf("field %s: subfields must start with '*'", f.Name)
	}
	for _, seg := range strings.Split(rest[1:], " *") {
		if seg == "" {
			return Field{}, fmt.Errorf("field %s: empty subfield", f.Name)
		}
		name, size := utf8.DecodeRuneInString(seg)
		f.Subfields = append(f.Subfields, Subfield{Name: string(name), Value: seg[size:]})
	}
	return f, nil
}
