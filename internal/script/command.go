// Package script models AviSynth input scripts as classified command lists.
package script

import (
	"fmt"
	"strings"
)

// Kind identifies the role a script line plays in the filter chain.
type Kind int

const (
	KindGeneric Kind = iota
	KindComment
	KindLoadPlugin
	KindTrim
	KindIndexedSource
	KindDeinterlace
	KindSelectEven
	KindCrop
	KindColorMatrix
	KindUndot
	KindTweak
	KindResize
)

var kindNames = map[Kind]string{
	KindGeneric:       "Generic",
	KindComment:       "Comment",
	KindLoadPlugin:    "LoadPlugin",
	KindTrim:          "Trim",
	KindIndexedSource: "IndexedSource",
	KindDeinterlace:   "Deinterlace",
	KindSelectEven:    "SelectEven",
	KindCrop:          "Crop",
	KindColorMatrix:   "ColorMatrix",
	KindUndot:         "Undot",
	KindTweak:         "Tweak",
	KindResize:        "Resize",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Call identifiers recognized inside script lines.
const (
	TrimCall        = "Trim("
	LoadPluginCall  = "LoadPlugin("
	DeinterlaceCall = "QTGMC("
	SelectEvenCall  = "SelectEven("
	CropCall        = "crop("
	ColorMatrixCall = "ColorMatrix("
	UndotCall       = "Undot("
	TweakCall       = "Tweak("
	ResizeCall      = "Spline36Resize("

	DGIndexSourceCall  = `DGSource("`
	D2VIndexSourceCall = `DGDecode_mpeg2source("`
)

// markers is checked in order; the first substring match wins.
var markers = []struct {
	call string
	kind Kind
}{
	{TrimCall, KindTrim},
	{LoadPluginCall, KindLoadPlugin},
	{DeinterlaceCall, KindDeinterlace},
	{SelectEvenCall, KindSelectEven},
	{CropCall, KindCrop},
	{ColorMatrixCall, KindColorMatrix},
	{UndotCall, KindUndot},
	{TweakCall, KindTweak},
	{ResizeCall, KindResize},
}

// Command is a single classified script line. Commands are compared by value.
type Command struct {
	Kind Kind
	Text string
}

// NewTrim builds a Trim command selecting the inclusive frame range [start, end].
func NewTrim(start, end int64) Command {
	return Command{Kind: KindTrim, Text: fmt.Sprintf("Trim(%d,%d)", start, end)}
}

// Args returns the comma separated arguments between the first '(' and the
// first ')' of the command text.
func (c Command) Args() []string {
	open := strings.Index(c.Text, "(")
	if open < 0 {
		return nil
	}
	rest := c.Text[open+1:]
	end := strings.Index(rest, ")")
	if end < 0 {
		return nil
	}
	inner := strings.TrimSpace(rest[:end])
	if inner == "" {
		return nil
	}
	parts := strings.Split(inner, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func (c Command) String() string {
	return c.Text
}

// classify returns the kind of a non-blank, non-directive line based on the
// recognized call markers. Indexed sources are handled by the parser.
func classify(line string) Kind {
	if strings.HasPrefix(line, "#") {
		return KindComment
	}
	for _, m := range markers {
		if strings.Contains(line, m.call) {
			return m.kind
		}
	}
	return KindGeneric
}
