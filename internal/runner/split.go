package runner

import (
	"bufio"
	"bytes"
)

// scanLines is a bufio.SplitFunc that ends tokens at \n, \r\n or a bare \r.
// The terminator is kept as the last byte of the token (\r\n becomes \n) so
// callers can tell progress redraws from finished lines.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i+1], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				tok := append(append([]byte(nil), data[:i]...), '\n')
				return i + 2, tok, nil
			}
			return i + 1, data[:i+1], nil
		}
		if atEOF {
			return i + 1, data[:i+1], nil
		}
		// need one more byte to tell \r from \r\n
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// LineFunc receives one line of output. replace is true when the previous
// line ended with a bare carriage return and should be overwritten.
type LineFunc func(line string, replace bool)

func streamLines(scanner *bufio.Scanner, onLine LineFunc) error {
	scanner.Split(scanLines)
	prevCR := false
	for scanner.Scan() {
		tok := scanner.Text()
		cr := false
		switch {
		case len(tok) > 0 && tok[len(tok)-1] == '\r':
			cr = true
			tok = tok[:len(tok)-1]
		case len(tok) > 0 && tok[len(tok)-1] == '\n':
			tok = tok[:len(tok)-1]
		}
		// a redraw that only clears the line carries no text
		if cr && tok == "" {
			continue
		}
		if onLine != nil {
			onLine(tok, prevCR)
		}
		prevCR = cr
	}
	return scanner.Err()
}
