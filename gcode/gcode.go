// Package gcode tokenizes a single line of G-code into a ParsedCommand.
//
// Parsing is intentionally line-at-a-time rather than whole-document: the
// welder state machine consumes one command per step, so there is no reason
// to materialize a full AST of the input file in memory.
package gcode

import (
	"strconv"
	"strings"

	tdstrconv "github.com/tdewolff/parse/v2/strconv"
)

// ParsedCommand is the result of tokenizing one line of G-code.
//
// A line with no G/M/T command word (blank, comment-only, unrecognized
// syntax) yields a ParsedCommand with Letter == 0; callers treat that as a
// non-motion pass-through line rather than as an error.
type ParsedCommand struct {
	Letter  byte
	Number  float64
	Params  map[byte]float64
	Comment string
	Raw     string

	// FeatureType is the slicer feature tag ("Perimeter", "Infill", ...)
	// carried by a standalone ";TYPE:<name>" comment line, or "" otherwise.
	FeatureType string
}

// Mnemonic returns the command word, e.g. "G1", or "" if there is none.
func (c ParsedCommand) Mnemonic() string {
	if c.Letter == 0 {
		return ""
	}
	return string(c.Letter) + formatInt(c.Number)
}

// IsG returns true if the command is G<n> for the given n.
func (c ParsedCommand) IsG(n float64) bool {
	return c.Letter == 'G' && c.Number == n
}

// Param returns the value of parameter letter p, and whether it was present.
func (c ParsedCommand) Param(p byte) (float64, bool) {
	if c.Params == nil {
		return 0, false
	}
	v, ok := c.Params[p]
	return v, ok
}

// ParamDefault returns the value of parameter letter p, or def if absent.
func (c ParsedCommand) ParamDefault(p byte, def float64) float64 {
	if v, ok := c.Param(p); ok {
		return v
	}
	return def
}

func formatInt(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	// Non-integral G/M codes (e.g. G38.2) are rare in the motion vocabulary
	// this program cares about; fall back to a plain decimal.
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// parser states
const (
	stNormal = iota
	stWord
	stParenComment
	stEOLComment
)

// Parse tokenizes a single line of G-code. It never panics: unparsable
// characters are skipped, and if no command word is found the returned
// ParsedCommand has Letter == 0.
func Parse(line string) ParsedCommand {
	var (
		cmd        ParsedCommand
		state      = stNormal
		address    byte
		numBuf     strings.Builder
		commentBuf strings.Builder
		haveCmd    bool
		params     map[byte]float64
	)

	finishWord := func() {
		numStr := numBuf.String()
		numBuf.Reset()
		if numStr == "" {
			return
		}
		v, n := tdstrconv.ParseFloat([]byte(numStr))
		if n == 0 {
			return
		}
		if address == 'N' {
			// Line numbers are not part of this program's motion vocabulary.
			return
		}
		if !haveCmd && (address == 'G' || address == 'M' || address == 'T') {
			cmd.Letter = address
			cmd.Number = v
			haveCmd = true
			return
		}
		if params == nil {
			params = make(map[byte]float64, 6)
		}
		params[address] = v
	}

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch state {
		case stNormal:
			switch {
			case c == ';':
				state = stEOLComment
			case c == '(':
				state = stParenComment
			case c == ' ' || c == '\t' || c == '\r' || c == '\n':
				// ignore
			case isLetter(c):
				address = toUpper(byte(c))
				state = stWord
			default:
				// Unexpected character outside of a word; ignore it rather
				// than treating the whole line as malformed.
			}
		case stWord:
			if isDigit(byte(c)) || c == '.' || c == '-' || c == '+' {
				numBuf.WriteRune(c)
			} else {
				finishWord()
				state = stNormal
				i-- // reprocess c in stNormal
			}
		case stParenComment:
			if c == ')' {
				state = stNormal
			} else {
				commentBuf.WriteRune(c)
			}
		case stEOLComment:
			commentBuf.WriteRune(c)
		}
	}
	if state == stWord {
		finishWord()
	}

	cmd.Params = params
	cmd.Comment = strings.TrimSpace(commentBuf.String())
	cmd.Raw = line
	if rest, ok := strings.CutPrefix(cmd.Comment, "TYPE:"); ok && !haveCmd && params == nil {
		cmd.FeatureType = strings.TrimSpace(rest)
	}
	return cmd
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 32
	}
	return c
}
