package schema

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/koustreak/DatAct/internal/errs"
)

// Kind is the storage kind of a data slot.
type Kind uint8

const (
	KindInt  Kind = iota + 1 // signed 64-bit integer
	KindChar                 // one raw byte
	KindText                 // string bounded by the slot's capacity
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindChar:
		return "char"
	case KindText:
		return "text"
	default:
		return "invalid"
	}
}

// ParseKind maps a descriptor type name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "int", "integer":
		return KindInt, nil
	case "char", "byte":
		return KindChar, nil
	case "text", "string", "blob":
		return KindText, nil
	}
	return 0, errs.Newf(errs.ErrKindInvalidInput, "unknown column type %q", s)
}

// Field is a caller-owned data slot. Writes and updates read their values
// from it, reads unpack into it. The zero Field is invalid; use IntField,
// CharField or TextField.
type Field struct {
	kind Kind
	i    int64
	c    byte
	s    string
	size int
}

// IntField allocates an integer slot.
func IntField() *Field { return &Field{kind: KindInt, size: 8} }

// CharField allocates a single byte slot.
func CharField() *Field { return &Field{kind: KindChar, size: 1} }

// TextField allocates a text slot holding at most size bytes.
func TextField(size int) *Field { return &Field{kind: KindText, size: size} }

// NewField allocates a slot of the given kind. size only matters for text.
func NewField(kind Kind, size int) *Field {
	switch kind {
	case KindInt:
		return IntField()
	case KindChar:
		return CharField()
	default:
		return TextField(size)
	}
}

func (f *Field) Kind() Kind { return f.kind }

// Size is the slot's byte capacity.
func (f *Field) Size() int { return f.size }

func (f *Field) Int() int64   { return f.i }
func (f *Field) Char() byte   { return f.c }
func (f *Field) Text() string { return f.s }

func (f *Field) SetInt(v int64) {
	f.mustBe(KindInt)
	f.i = v
}

func (f *Field) SetChar(v byte) {
	f.mustBe(KindChar)
	f.c = v
}

// SetText stores s, truncated to the slot capacity on a rune boundary.
func (f *Field) SetText(s string) {
	f.mustBe(KindText)
	f.s = truncate(s, f.size)
}

// SetBytes stores raw engine bytes according to the slot kind. A nil b is
// a NULL and clears the slot.
func (f *Field) SetBytes(b []byte) {
	if b == nil {
		f.Clear()
		return
	}
	switch f.kind {
	case KindInt:
		v, _ := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
		f.i = v
	case KindChar:
		f.c = 0
		if len(b) > 0 {
			f.c = b[0]
		}
	case KindText:
		f.s = truncate(string(b), f.size)
	}
}

// Clear resets the slot to its zero value.
func (f *Field) Clear() {
	f.i, f.c, f.s = 0, 0, ""
}

// Set assigns a value parsed from its textual form, as found in
// descriptor files and on the command line.
func (f *Field) Set(s string) error {
	switch f.kind {
	case KindInt:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return errs.Newf(errs.ErrKindInvalidInput, "invalid integer %q", s)
		}
		f.i = v
	case KindChar:
		if len(s) != 1 {
			return errs.Newf(errs.ErrKindInvalidInput, "char value must be exactly one byte, got %q", s)
		}
		f.c = s[0]
	case KindText:
		f.s = truncate(s, f.size)
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "invalid field kind %d", f.kind)
	}
	return nil
}

// Literal formats the value as an SQL literal. Integers are unquoted; char
// and text values are wrapped in quote with embedded quotes doubled.
func (f *Field) Literal(quote byte) string {
	switch f.kind {
	case KindInt:
		return strconv.FormatInt(f.i, 10)
	case KindChar:
		if f.c == 0 {
			return string([]byte{quote, quote})
		}
		return quoted(string([]byte{f.c}), quote)
	default:
		return quoted(f.s, quote)
	}
}

// String returns the plain value, without quoting.
func (f *Field) String() string {
	switch f.kind {
	case KindInt:
		return strconv.FormatInt(f.i, 10)
	case KindChar:
		if f.c == 0 {
			return ""
		}
		return string([]byte{f.c})
	default:
		return f.s
	}
}

func (f *Field) mustBe(k Kind) {
	if f.kind != k {
		panic(fmt.Sprintf("schema: %s value stored in %s field", k, f.kind))
	}
}

func quoted(s string, quote byte) string {
	q := string([]byte{quote})
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte(quote)
	sb.WriteString(strings.ReplaceAll(s, q, q+q))
	sb.WriteByte(quote)
	return sb.String()
}

func truncate(s string, size int) string {
	if size <= 0 || len(s) <= size {
		return s
	}
	cut := size
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
