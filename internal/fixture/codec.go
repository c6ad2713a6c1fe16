// Package fixture reads and writes the bracketed integer lists used for
// benchmark inputs, expected outputs and program results.
package fixture

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
)

// typeTags are the integer type suffixes a program may append to result values.
var typeTags = []string{"i8", "i16", "i32", "i64", "u8", "u16", "u32", "u64"}

// ParseError reports a token that is not an integer.
type ParseError struct {
	Index int
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse element %d %q: %v", e.Index, e.Token, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Format encodes values as "[v0,v1,...]".
func Format(values []int64) []byte {
	buf := make([]byte, 0, 2+len(values)*4)
	buf = append(buf, '[')
	for i, v := range values {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendInt(buf, v, 10)
	}
	return append(buf, ']')
}

// WriteTo streams the Format encoding of values to w.
func WriteTo(w io.Writer, values []int64) error {
	bw := bufio.NewWriter(w)
	var scratch [20]byte
	if err := bw.WriteByte('['); err != nil {
		return err
	}
	for i, v := range values {
		if i > 0 {
			if err := bw.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := bw.Write(strconv.AppendInt(scratch[:0], v, 10)); err != nil {
			return err
		}
	}
	if err := bw.WriteByte(']'); err != nil {
		return err
	}
	return bw.Flush()
}

// Parse decodes a bracketed, comma-separated integer list. Surrounding
// whitespace and brackets are ignored and each element may carry an integer
// type tag such as "i32".
func Parse(data []byte) ([]int64, error) {
	body := bytes.Trim(bytes.TrimSpace(data), "[]\n")
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return []int64{}, nil
	}

	values := make([]int64, 0, bytes.Count(body, []byte{','})+1)
	for idx := 0; ; idx++ {
		token := body
		next := bytes.IndexByte(body, ',')
		if next >= 0 {
			token = body[:next]
		}
		token = bytes.TrimSpace(token)

		value, err := parseToken(token)
		if err != nil {
			return nil, &ParseError{Index: idx, Token: string(token), Err: err}
		}
		values = append(values, value)

		if next < 0 {
			return values, nil
		}
		body = body[next+1:]
	}
}

// ParseFile reads and parses the list stored at path.
func ParseFile(path string) ([]int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	values, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}

// ParseSamples decodes whitespace-separated timing samples.
func ParseSamples(data []byte) ([]int64, error) {
	fields := bytes.Fields(data)
	samples := make([]int64, 0, len(fields))
	for idx, field := range fields {
		value, err := strconv.ParseInt(string(field), 10, 64)
		if err != nil {
			return nil, &ParseError{Index: idx, Token: string(field), Err: err}
		}
		samples = append(samples, value)
	}
	return samples, nil
}

func parseToken(token []byte) (int64, error) {
	for _, tag := range typeTags {
		if bytes.HasSuffix(token, []byte(tag)) {
			token = token[:len(token)-len(tag)]
			break
		}
	}
	return strconv.ParseInt(string(token), 10, 64)
}
