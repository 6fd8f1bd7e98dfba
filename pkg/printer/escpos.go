package printer

import (
	"bytes"
	"fmt"
	"strings"
)

// ESC/POS command constants
const (
	ESC = 0x1B
	GS  = 0x1D
	LF  = 0x0A
)

// Text alignment
const (
	AlignLeft   = 0
	AlignCenter = 1
	AlignRight  = 2
)

// DefaultCharWidth is the line width of 58mm paper in font A.
const DefaultCharWidth = 32

// Document builds an ESC/POS byte stream for thermal printers.
type Document struct {
	buf   bytes.Buffer
	width int // print width in characters
}

// NewDocument creates a new ESC/POS document with the given character width.
// The stream starts with the initialize command.
func NewDocument(charWidth int) *Document {
	if charWidth <= 0 {
		charWidth = DefaultCharWidth
	}
	d := &Document{width: charWidth}
	d.Init()
	return d
}

// Width returns the configured line width in characters.
func (d *Document) Width() int {
	return d.width
}

// Init sends the ESC @ (initialize printer) command.
func (d *Document) Init() *Document {
	d.buf.Write([]byte{ESC, '@'})
	return d
}

// LineFeed sends a line feed.
func (d *Document) LineFeed() *Document {
	d.buf.WriteByte(LF)
	return d
}

// FeedLines prints the buffer and feeds n lines (ESC d n).
func (d *Document) FeedLines(n int) *Document {
	if n < 0 {
		n = 0
	}
	if n > 255 {
		n = 255
	}
	d.buf.Write([]byte{ESC, 'd', byte(n)})
	return d
}

// SetAlign sets text alignment: AlignLeft, AlignCenter, AlignRight.
func (d *Document) SetAlign(align int) *Document {
	d.buf.Write([]byte{ESC, 'a', byte(align)})
	return d
}

// SetBold enables or disables bold text.
func (d *Document) SetBold(on bool) *Document {
	b := byte(0)
	if on {
		b = 1
	}
	d.buf.Write([]byte{ESC, 'E', b})
	return d
}

// FontA selects the standard 12x24 font with no print modes set (ESC ! 0).
func (d *Document) FontA() *Document {
	d.buf.Write([]byte{ESC, '!', 0x00})
	return d
}

// Text writes a line of text followed by a line feed.
// Characters outside printable 7-bit ASCII are dropped.
func (d *Document) Text(s string) *Document {
	d.buf.WriteString(Sanitize(s))
	d.buf.WriteByte(LF)
	return d
}

// TextF writes a formatted line of text followed by a line feed.
func (d *Document) TextF(format string, args ...interface{}) *Document {
	return d.Text(fmt.Sprintf(format, args...))
}

// Separator prints a full-width separator line (e.g. "--------------------------------").
func (d *Document) Separator(char byte) *Document {
	d.buf.WriteString(strings.Repeat(string(char), d.width))
	d.buf.WriteByte(LF)
	return d
}

// Rule prints a dashed horizontal rule.
func (d *Document) Rule() *Document {
	return d.Separator('-')
}

// Columns prints left and right on one line with the right field ending at
// the last column. The left field is truncated so at least one space remains.
func (d *Document) Columns(left, right string) *Document {
	d.buf.WriteString(JustifyColumns(left, right, d.width))
	d.buf.WriteByte(LF)
	return d
}

// Bitmap paints a raster image with GS v 0 (normal density).
// A nil raster writes nothing.
func (d *Document) Bitmap(r *Raster) *Document {
	if r == nil || len(r.Data) == 0 {
		return d
	}
	d.buf.Write(r.Header())
	d.buf.Write(r.Data)
	return d
}

// Cut feeds to the cutter and performs a partial cut (GS V A 3).
func (d *Document) Cut() *Document {
	d.buf.Write([]byte{GS, 'V', 0x41, 0x03})
	return d
}

// Bytes returns the accumulated ESC/POS byte stream.
func (d *Document) Bytes() []byte {
	return d.buf.Bytes()
}

// JustifyColumns lays out left and right within width characters. The result
// is exactly width characters long unless right alone does not fit.
func JustifyColumns(left, right string, width int) string {
	left = Sanitize(left)
	right = Sanitize(right)

	leftMax := width - len(right) - 1
	if leftMax < 0 {
		leftMax = 0
	}
	if len(left) > leftMax {
		left = left[:leftMax]
	}

	spaces := width - len(left) - len(right)
	if spaces < 1 {
		spaces = 1
	}
	return left + strings.Repeat(" ", spaces) + right
}

// Sanitize strips every character outside printable 7-bit ASCII (0x20-0x7E).
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c <= 0x7E {
			b.WriteByte(c)
		}
	}
	return b.String()
}
