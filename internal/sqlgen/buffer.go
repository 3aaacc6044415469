package sqlgen

import (
	"github.com/koustreak/DatAct/internal/errs"
)

// DefaultCapacity is the maximum length of a generated script.
const DefaultCapacity = 500

// Buffer is a bounded output span. Every write is counted against the
// capacity even when it no longer fits, so an oversize script is reported
// by Err instead of being cut into invalid SQL.
type Buffer struct {
	buf []byte
	n   int // bytes written, or that would have been written
	cap int
}

// NewBuffer returns an empty buffer holding at most capacity bytes.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{buf: make([]byte, 0, capacity), cap: capacity}
}

// WriteString appends s, or as much of it as fits.
func (b *Buffer) WriteString(s string) {
	if len(b.buf) == b.n {
		room := b.cap - len(b.buf)
		if room > len(s) {
			room = len(s)
		}
		if room > 0 {
			b.buf = append(b.buf, s[:room]...)
		}
	}
	b.n += len(s)
}

// WriteByte appends c if it fits. It never fails.
func (b *Buffer) WriteByte(c byte) error {
	if len(b.buf) == b.n && len(b.buf) < b.cap {
		b.buf = append(b.buf, c)
	}
	b.n++
	return nil
}

// Unwrite backs the cursor up over the last k bytes.
func (b *Buffer) Unwrite(k int) {
	if k > b.n {
		k = b.n
	}
	b.n -= k
	if len(b.buf) > b.n {
		b.buf = b.buf[:b.n]
	}
}

// Len is the logical length, including bytes that did not fit.
func (b *Buffer) Len() int { return b.n }

// Remaining is the capacity left. It goes negative once the buffer overflows.
func (b *Buffer) Remaining() int { return b.cap - b.n }

// Overflowed reports whether the written text exceeds the capacity.
func (b *Buffer) Overflowed() bool { return b.n > b.cap }

// Err returns a buffer overflow error if the text did not fit.
func (b *Buffer) Err() error {
	if b.Overflowed() {
		return errs.Newf(errs.ErrKindBufferOverflow, "script needs %d bytes, buffer holds %d", b.n, b.cap)
	}
	return nil
}

// String returns the text that fit in the buffer.
func (b *Buffer) String() string { return string(b.buf) }
