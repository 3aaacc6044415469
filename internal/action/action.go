// Package action defines the action code bit-set callers hand to the
// dispatcher: one or more command bits combined with a 3-bit index that
// selects a canned key template.
package action

import (
	"fmt"
	"strings"

	"github.com/koustreak/DatAct/internal/errs"
)

// Code combines command bits with a key index.
type Code uint32

// Key indexes. KeyMask extracts them as a number, not as a bit-set.
const (
	Key0 Code = iota
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6

	KeyMask Code = 0x00000007
)

// MaxKeys is the number of canned key templates a database may declare.
const MaxKeys = 7

// File actions.
const (
	Open   Code = 0x00000100
	Close  Code = 0x00000200
	Read   Code = 0x00000400
	Write  Code = 0x00000800
	Update Code = 0x00001000
	Delete Code = 0x00002000
)

// Engine actions.
const (
	Prepare  Code = 0x00010000
	Step     Code = 0x00020000
	Finalize Code = 0x00040000
	Exec     Code = 0x00080000
	Init     Code = 0x00100000
	Distinct Code = 0x00200000
	Reset    Code = 0x00400000
	Count    Code = 0x00800000
)

// CommandMask covers every command bit.
const CommandMask = Open | Close | Read | Write | Update | Delete |
	Prepare | Step | Finalize | Exec | Init | Distinct | Reset | Count

var names = []struct {
	bit  Code
	name string
}{
	{Open, "OPEN"},
	{Close, "CLOSE"},
	{Read, "READ"},
	{Write, "WRITE"},
	{Update, "UPDATE"},
	{Delete, "DELETE"},
	{Prepare, "PREPARE"},
	{Step, "STEP"},
	{Finalize, "FINALIZE"},
	{Exec, "EXEC"},
	{Init, "INIT"},
	{Distinct, "DISTINCT"},
	{Reset, "RESET"},
	{Count, "COUNT"},
}

// Has reports whether any of the bits in mask are set.
func (c Code) Has(mask Code) bool {
	return c&mask != 0
}

// KeyIndex returns the canned key template index.
func (c Code) KeyIndex() int {
	return int(c & KeyMask)
}

// Command returns c with the key index stripped.
func (c Code) Command() Code {
	return c &^ KeyMask
}

// WithKey returns c selecting canned key template i.
func (c Code) WithKey(i int) Code {
	return c.Command() | Code(i)&KeyMask
}

// String renders the code as "READ|STEP|KEY2". Unknown bits are shown in hex.
func (c Code) String() string {
	var parts []string
	rest := c.Command()
	for _, n := range names {
		if rest&n.bit != 0 {
			parts = append(parts, n.name)
			rest &^= n.bit
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	if k := c.KeyIndex(); k != 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("KEY%d", k))
	}
	return strings.Join(parts, "|")
}

// Parse converts a "read|step|key2" style string into a Code.
// Names are case-insensitive.
func Parse(s string) (Code, error) {
	var c Code
	for _, part := range strings.Split(s, "|") {
		p := strings.ToUpper(strings.TrimSpace(part))
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "KEY") {
			var k int
			if _, err := fmt.Sscanf(p, "KEY%d", &k); err != nil || k < 0 || k >= MaxKeys {
				return 0, errs.Newf(errs.ErrKindInvalidInput, "invalid key index %q", part)
			}
			c = c.WithKey(k)
			continue
		}
		found := false
		for _, n := range names {
			if n.name == p {
				c |= n.bit
				found = true
				break
			}
		}
		if !found {
			return 0, errs.Newf(errs.ErrKindInvalidInput, "unknown action %q", part)
		}
	}
	return c, nil
}
