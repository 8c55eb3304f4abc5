package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/cachesim/mem/cache"
)

// ErrUnknownOp is wrapped by the ParseError of a line whose operation is
// neither r nor w.
var ErrUnknownOp = errors.New("unknown operation")

// ErrMalformedLine is wrapped by the ParseError of a line that does not have
// exactly an operation and an address.
var ErrMalformedLine = errors.New("expecting \"<r|w> <hex-address>\"")

// A Request is one access of a memory trace.
type Request struct {
	Line    int
	Kind    cache.AccessKind
	Address uint32
}

// A ParseError reports a trace line that cannot be turned into a Request.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("trace line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// A Reader reads requests from a memory trace. Each line holds an operation,
// r or w, and a hexadecimal address. Blank lines are skipped.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a Reader that reads from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next returns the next request. It returns io.EOF after the last request.
func (r *Reader) Next() (Request, error) {
	for r.scanner.Scan() {
		r.line++

		text := strings.TrimSpace(r.scanner.Text())
		if text == "" {
			continue
		}

		return parseLine(r.line, text)
	}

	if err := r.scanner.Err(); err != nil {
		return Request{}, err
	}

	return Request{}, io.EOF
}

// ReadAll reads every request of the trace.
func ReadAll(r io.Reader) ([]Request, error) {
	reader := NewReader(r)

	var reqs []Request
	for {
		req, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return reqs, nil
		}

		if err != nil {
			return reqs, err
		}

		reqs = append(reqs, req)
	}
}

func parseLine(line int, text string) (Request, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return Request{}, &ParseError{Line: line, Text: text, Err: ErrMalformedLine}
	}

	req := Request{Line: line}

	switch fields[0] {
	case "r", "R":
		req.Kind = cache.AccessRead
	case "w", "W":
		req.Kind = cache.AccessWrite
	default:
		return Request{}, &ParseError{
			Line: line,
			Text: text,
			Err:  fmt.Errorf("%w %q", ErrUnknownOp, fields[0]),
		}
	}

	address, err := cache.ParseAddress(fields[1])
	if err != nil {
		return Request{}, &ParseError{Line: line, Text: text, Err: err}
	}

	req.Address = address

	return req, nil
}
