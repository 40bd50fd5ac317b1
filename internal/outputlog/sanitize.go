package outputlog

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Sanitize drops terminal control sequences from a line of step output.
// SGR colour sequences survive so the UI can render them; cursor movement,
// erase, OSC hyperlinks and bare control characters other than tab are
// removed.
func Sanitize(line string) string {
	if !needsSanitize(line) {
		return line
	}

	var b strings.Builder
	b.Grow(len(line))

	state := ansi.NormalState
	for len(line) > 0 {
		seq, width, n, newState := ansi.DecodeSequence(line, state, nil)
		if n <= 0 {
			break
		}
		state = newState
		line = line[n:]

		switch {
		case isEscape(seq):
			if isSGR(seq) {
				b.WriteString(seq)
			}
		case width == 0 && len(seq) == 1 && isControl(seq[0]):
			if seq[0] == '\t' {
				b.WriteByte('\t')
			}
		default:
			b.WriteString(seq)
		}
	}
	return b.String()
}

func needsSanitize(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isControl(c) && c != '\t' {
			return true
		}
	}
	return false
}

func isControl(c byte) bool {
	return c < 0x20 || c == 0x7f
}

func isEscape(seq string) bool {
	if seq == "" {
		return false
	}
	switch seq[0] {
	case ansi.ESC, ansi.CSI, ansi.OSC, ansi.DCS, ansi.APC, ansi.PM, ansi.SOS:
		return len(seq) > 1 || seq[0] != ansi.ESC
	}
	return false
}

// isSGR matches CSI ... m with only digits and separators as parameters.
func isSGR(seq string) bool {
	var params string
	switch {
	case strings.HasPrefix(seq, "\x1b["):
		params = seq[2:]
	case seq[0] == ansi.CSI:
		params = seq[1:]
	default:
		return false
	}
	if !strings.HasSuffix(params, "m") {
		return false
	}
	params = params[:len(params)-1]
	for i := 0; i < len(params); i++ {
		c := params[i]
		if (c < '0' || c > '9') && c != ';' && c != ':' {
			return false
		}
	}
	return true
}
