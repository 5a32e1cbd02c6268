package knitout

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/errors"
)

// MaxKnownVersion is the newest knitout version this package understands.
const MaxKnownVersion = 2

var headerRe = regexp.MustCompile(`^;!knitout-(\d+)$`)

// ParseHeader checks the ";!knitout-N" magic line and returns N.
func ParseHeader(line string) (int, error) {
	m := headerRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return 0, errors.MalformedHeaderError(line).SetLine(1)
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, errors.MalformedHeaderError(line).SetLine(1)
	}
	return v, nil
}

// Reader yields instructions from a knitout stream in source order.
type Reader struct {
	sc      *bufio.Scanner
	line    int
	version int
	started bool
}

// NewReader returns a Reader over r. The header is checked on the first call to Next.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{sc: sc}
}

// Version returns the header version, valid after the first call to Next.
func (r *Reader) Version() int {
	return r.version
}

// Line returns the 1-based number of the last line read.
func (r *Reader) Line() int {
	return r.line
}

// Next returns the next instruction, or io.EOF when the stream is exhausted.
func (r *Reader) Next() (Instruction, error) {
	if !r.started {
		r.started = true
		if !r.sc.Scan() {
			if err := r.sc.Err(); err != nil {
				return nil, errors.Wrap(err, errors.ErrRuntime, "read input")
			}
			return nil, errors.MalformedHeaderError("").SetLine(1)
		}
		r.line = 1
		v, err := ParseHeader(r.sc.Text())
		if err != nil {
			return nil, err
		}
		r.version = v
	}
	for r.sc.Scan() {
		r.line++
		ins, err := ParseLine(strings.TrimRight(r.sc.Text(), "\r"), r.line)
		if err != nil {
			return nil, err
		}
		if ins != nil {
			return ins, nil
		}
	}
	if err := r.sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrRuntime, "read input").SetLine(r.line + 1)
	}
	return nil, io.EOF
}
