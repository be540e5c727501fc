package identifier

import (
	"strconv"
	"strings"
)

// DefaultPadLength is the system-wide zero-padding width.
const DefaultPadLength = 3

// LabelFormat selects how a sequence number becomes a label: RootFormat or NestedFormat.
type LabelFormat interface {
	padLength() int
	isLabelFormat()
}

// RootFormat renders Prefix followed by the zero-padded number, e.g. "US001".
type RootFormat struct {
	Prefix    string
	PadLength int
}

// NestedFormat renders the parent's label, Separator and the zero-padded
// number, e.g. "US001-001".
type NestedFormat struct {
	Separator string
	PadLength int
}

func (f RootFormat) padLength() int   { return f.PadLength }
func (RootFormat) isLabelFormat()     {}
func (f NestedFormat) padLength() int { return f.PadLength }
func (NestedFormat) isLabelFormat()   {}

// Formatter renders labels. It has no state beyond the default width, so
// equal inputs always give equal labels and a label can be previewed
// before a value is allocated.
type Formatter struct {
	defaultPad int
}

// NewFormatter returns a Formatter; defaultPad < 1 means DefaultPadLength.
func NewFormatter(defaultPad int) Formatter {
	if defaultPad < 1 {
		defaultPad = DefaultPadLength
	}
	return Formatter{defaultPad: defaultPad}
}

// Format renders seq with format. parentLabel is used by NestedFormat only.
// Numbers wider than the pad length are never truncated.
func (f Formatter) Format(seq int64, format LabelFormat, parentLabel string) string {
	pad := format.padLength()
	if pad < 1 {
		pad = f.defaultPad
	}
	if pad < 1 {
		pad = DefaultPadLength
	}
	number := zeroPad(seq, pad)

	switch lf := format.(type) {
	case NestedFormat:
		return parentLabel + lf.Separator + number
	case RootFormat:
		return lf.Prefix + number
	default:
		return number
	}
}

func zeroPad(seq int64, width int) string {
	digits := strconv.FormatInt(seq, 10)
	if len(digits) >= width {
		return digits
	}
	return strings.Repeat("0", width-len(digits)) + digits
}
