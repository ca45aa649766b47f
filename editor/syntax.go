package editor

import (
	"strings"

	"github.com/lowlevel-dev/survival/platform"
)

// TokenColor identifies which of the fixed highlight colours a tokenised
// span uses (spec.md §4.7's per-line tokeniser).
type TokenColor int

const (
	ColorDefault TokenColor = iota
	ColorComment
	ColorString
	ColorPreprocessor
	ColorNumber
	ColorKeyword
	ColorTypeName
)

// Palette maps each TokenColor to an actual framebuffer colour. Callers
// pass one to Render (the theme isn't part of spec.md's data model);
// DefaultPalette is a ready-made choice.
type Palette [7]platform.Color

// DefaultPalette is a readable default: white text on the default
// background, comments dimmed green, strings amber, preprocessor cyan,
// numbers magenta, keywords yellow, type names light blue.
var DefaultPalette = Palette{
	ColorDefault:      platform.RGB(220, 220, 220),
	ColorComment:      platform.RGB(90, 160, 90),
	ColorString:       platform.RGB(210, 160, 60),
	ColorPreprocessor: platform.RGB(90, 200, 200),
	ColorNumber:       platform.RGB(190, 90, 190),
	ColorKeyword:      platform.RGB(220, 200, 60),
	ColorTypeName:     platform.RGB(110, 150, 220),
}

// keywords is the 24 ISO-C reserved words that are not type specifiers
// (spec.md §4.7): the C89/C99 keyword set with the type-specifier keywords
// (the contents of typeNames below) removed.
var keywords = []string{
	"auto", "break", "case", "const", "continue", "default", "do",
	"else", "enum", "extern", "for", "goto", "if", "register",
	"return", "sizeof", "static", "struct", "switch", "typedef",
	"union", "volatile", "while", "restrict",
}

// typeNames is spec.md §4.7's type table: standard C types, fixed-width
// integer aliases, platform status/handle types, and the NULL/TRUE/FALSE
// constants.
var typeNames = []string{
	"void", "char", "short", "int", "long", "float", "double", "signed",
	"unsigned", "_Bool", "size_t", "ssize_t", "ptrdiff_t", "wchar_t",
	"int8_t", "int16_t", "int32_t", "int64_t",
	"uint8_t", "uint16_t", "uint32_t", "uint64_t", "uintptr_t", "intptr_t",
	"EFI_STATUS", "EFI_HANDLE",
	"NULL", "TRUE", "FALSE",
}

// lookupWord performs the linear scan with early length-mismatch bail-out
// spec.md §4.7 specifies (no hashing).
func lookupWord(table []string, word string) bool {
	for _, w := range table {
		if len(w) != len(word) {
			continue
		}
		if w == word {
			return true
		}
	}
	return false
}

// IsCHSourceFile reports whether path's extension selects the syntax
// highlighting path (spec.md §3.8, §4.7: ".c"/".h" files only).
func IsCHSourceFile(path string) bool {
	return strings.HasSuffix(path, ".c") || strings.HasSuffix(path, ".h")
}

// RecomputeSyntaxState runs the single forward scan of spec.md §4.7: for
// each line it records whether the line *starts* inside a block comment,
// then mutates that boolean on every "/*"/"*/" it sees. The returned slice
// has one byte per line: 0 = outside, 1 = inside, matching spec.md §3.8's
// on-disk vector shape even though this module never persists it.
func (d *Document) RecomputeSyntaxState() []byte {
	state := make([]byte, len(d.lines))
	inComment := false
	for y, line := range d.lines {
		if inComment {
			state[y] = 1
		}
		i := 0
		for i < len(line) {
			if !inComment && i+1 < len(line) && line[i] == '/' && line[i+1] == '*' {
				inComment = true
				i += 2
				continue
			}
			if inComment && i+1 < len(line) && line[i] == '*' && line[i+1] == '/' {
				inComment = false
				i += 2
				continue
			}
			if !inComment && i+1 < len(line) && line[i] == '/' && line[i+1] == '/' {
				break
			}
			i++
		}
	}
	return state
}

// TokenizeLine produces one TokenColor per byte of line, following spec.md
// §4.7's 8-step priority order. startsInComment is the syntax-state-vector
// value recorded for this line by RecomputeSyntaxState.
func TokenizeLine(line []byte, startsInComment bool) []TokenColor {
	colors := make([]TokenColor, len(line))
	i := 0
	inComment := startsInComment

	if inComment {
		for i < len(line) {
			colors[i] = ColorComment
			if i+1 < len(line) && line[i] == '*' && line[i+1] == '/' {
				colors[i+1] = ColorComment
				i += 2
				inComment = false
				break
			}
			i++
		}
	}

	// Rule 5: '#' at line start (after optional leading whitespace) colours
	// the whole remaining line as a preprocessor directive.
	if !inComment {
		j := i
		for j < len(line) && (line[j] == ' ' || line[j] == '\t') {
			j++
		}
		if j < len(line) && line[j] == '#' {
			for ; i < len(line); i++ {
				colors[i] = ColorPreprocessor
			}
			return colors
		}
	}

	for i < len(line) {
		switch {
		case line[i] == '/' && i+1 < len(line) && line[i+1] == '/':
			for ; i < len(line); i++ {
				colors[i] = ColorComment
			}

		case line[i] == '/' && i+1 < len(line) && line[i+1] == '*':
			start := i
			i += 2
			closed := false
			for i < len(line) {
				if line[i] == '*' && i+1 < len(line) && line[i+1] == '/' {
					i += 2
					closed = true
					break
				}
				i++
			}
			if !closed {
				i = len(line)
			}
			for k := start; k < i; k++ {
				colors[k] = ColorComment
			}

		case line[i] == '"' || line[i] == '\'':
			quote := line[i]
			start := i
			i++
			for i < len(line) {
				if line[i] == '\\' && i+1 < len(line) {
					i += 2
					continue
				}
				if line[i] == quote {
					i++
					break
				}
				i++
			}
			for k := start; k < i; k++ {
				colors[k] = ColorString
			}

		case isNumberStart(line, i):
			start := i
			for i < len(line) && isNumberByte(line[i]) {
				i++
			}
			for k := start; k < i; k++ {
				colors[k] = ColorNumber
			}

		case isIdentStart(line[i]):
			start := i
			for i < len(line) && isIdentByte(line[i]) {
				i++
			}
			word := string(line[start:i])
			color := ColorDefault
			switch {
			case lookupWord(keywords, word):
				color = ColorKeyword
			case lookupWord(typeNames, word):
				color = ColorTypeName
			}
			for k := start; k < i; k++ {
				colors[k] = color
			}

		default:
			colors[i] = ColorDefault
			i++
		}
	}
	return colors
}

// isNumberStart reports whether line[i] begins a numeric literal: a digit,
// or '.' followed by a digit, provided it isn't a continuation of an
// identifier (spec.md §4.7 rule 6: "not preceded by [A-Za-z_]").
func isNumberStart(line []byte, i int) bool {
	if i > 0 && isIdentByte(line[i-1]) && !isDigit(line[i-1]) {
		return false
	}
	if isDigit(line[i]) {
		return true
	}
	return line[i] == '.' && i+1 < len(line) && isDigit(line[i+1])
}

// isNumberByte reports whether b continues a numeric literal: digits,
// hex letters, 'x'/'X', '.', and the u/l suffix letters.
func isNumberByte(b byte) bool {
	switch {
	case isDigit(b):
		return true
	case b >= 'a' && b <= 'f', b >= 'A' && b <= 'F':
		return true
	case b == 'x' || b == 'X' || b == '.' || b == 'u' || b == 'l' || b == 'U' || b == 'L':
		return true
	default:
		return false
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentByte(b byte) bool {
	return isIdentStart(b) || isDigit(b)
}
