package media

import (
	"fmt"
	"strconv"
	"strings"

	"localtube/pkg/apperr"
)

// ByteRange is an inclusive span of byte offsets.
type ByteRange struct {
	Start int64
	End   int64
}

func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range header value for a 206 response.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// RangeError is returned for a Range header that cannot be served. It
// matches apperr.ErrRangeNotSatisfiable.
type RangeError struct {
	Header string
	Size   int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range %q not satisfiable for %d bytes", e.Header, e.Size)
}

func (e *RangeError) Unwrap() error {
	return apperr.ErrRangeNotSatisfiable
}

// ParseRange parses a Range header against a resource of size bytes. It
// returns ok=false when header is empty. Only the first range of a
// multi-range header is considered; an open end is clamped to size-1.
func ParseRange(header string, size int64) (r ByteRange, ok bool, err error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return ByteRange{}, false, nil
	}
	invalid := &RangeError{Header: header, Size: size}

	spec, found := strings.CutPrefix(header, "bytes=")
	if !found || size <= 0 {
		return ByteRange{}, false, invalid
	}
	spec, _, _ = strings.Cut(spec, ",")
	startStr, endStr, found := strings.Cut(strings.TrimSpace(spec), "-")
	if !found {
		return ByteRange{}, false, invalid
	}
	startStr, endStr = strings.TrimSpace(startStr), strings.TrimSpace(endStr)

	if startStr == "" {
		// suffix form: the last n bytes
		n, err := parseOffset(endStr)
		if err != nil || n <= 0 {
			return ByteRange{}, false, invalid
		}
		if n > size {
			n = size
		}
		return ByteRange{Start: size - n, End: size - 1}, true, nil
	}

	start, err := parseOffset(startStr)
	if err != nil || start < 0 || start >= size {
		return ByteRange{}, false, invalid
	}
	end := size - 1
	if endStr != "" {
		end, err = parseOffset(endStr)
		if err != nil || end < start {
			return ByteRange{}, false, invalid
		}
		if end >= size {
			end = size - 1
		}
	}
	return ByteRange{Start: start, End: end}, true, nil
}

// parseOffset accepts only ASCII digits; strconv alone would also take a sign.
func parseOffset(s string) (int64, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.ParseInt(s, 10, 64)
}
