package bio

import (
	"bufio"
	"io"
	"strings"

	"github.com/FocuswithJustin/horae/core/errors"
)

// Read parses the "<token> <tag>" line format. The tag is the last field of
// the line and may be separated from the token by a space or a tab. The token
// may be empty (a line such as " O" is valid) but never holds whitespace, so
// a line has at most two fields. Blank lines are ignored.
func Read(r io.Reader) ([]Token, error) {
	var tokens []Token
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cut := strings.LastIndexAny(line, " \t")
		if cut < 0 {
			return nil, &errors.ParseError{Format: "BIO", Line: lineNo, Message: "missing tag separator"}
		}
		word, tag := line[:cut], line[cut+1:]
		if strings.ContainsAny(word, " \t") {
			return nil, &errors.ParseError{Format: "BIO", Line: lineNo, Message: "more than two fields"}
		}
		if _, _, err := ParseTag(tag); err != nil {
			return nil, &errors.ParseError{Format: "BIO", Line: lineNo, Message: "bad tag " + tag, Err: err}
		}
		tokens = append(tokens, Token{Word: word, Tag: Tag(tag)})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.NewIO("read", "", err)
	}
	return tokens, nil
}

// Write emits one "<token> <tag>" line per token, separated by a single space.
func Write(w io.Writer, tokens []Token) error {
	bw := bufio.NewWriter(w)
	for _, t := range tokens {
		if _, err := bw.WriteString(t.Word + " " + string(t.Tag) + "\n"); err != nil {
			return errors.NewIO("write", "", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return errors.NewIO("write", "", err)
	}
	return nil
}
