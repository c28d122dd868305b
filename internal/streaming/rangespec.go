package streaming

import (
	"strconv"
	"strings"

	"clipforge/internal/services"
)

// ByteRange is a resolved inclusive byte span within a file.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes the span covers.
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ParseRange resolves a Range header of the form "bytes=start-end" against
// a file of the given size. A missing end defaults to the last byte and an
// end past the file is clamped. Malformed headers and spans starting past
// the end of the file are range errors, which the handler answers with 416.
func ParseRange(header string, size int64) (ByteRange, error) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return ByteRange{}, services.Wrap(services.ErrRange, "stream", "parse", "unsupported range unit", nil)
	}
	if strings.Contains(spec, ",") {
		return ByteRange{}, services.Wrap(services.ErrRange, "stream", "parse", "multipart ranges not supported", nil)
	}
	startText, endText, ok := strings.Cut(spec, "-")
	if !ok {
		return ByteRange{}, services.Wrap(services.ErrRange, "stream", "parse", "missing range separator", nil)
	}

	start, err := strconv.ParseInt(strings.TrimSpace(startText), 10, 64)
	if err != nil || start < 0 {
		return ByteRange{}, services.Wrap(services.ErrRange, "stream", "parse", "invalid range start", err)
	}
	if start > size-1 {
		return ByteRange{}, services.Wrap(services.ErrRange, "stream", "parse", "range start beyond end of file", nil)
	}

	end := size - 1
	if trimmed := strings.TrimSpace(endText); trimmed != "" {
		end, err = strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return ByteRange{}, services.Wrap(services.ErrRange, "stream", "parse", "invalid range end", err)
		}
		if end > size-1 {
			end = size - 1
		}
	}
	if end < start {
		return ByteRange{}, services.Wrap(services.ErrRange, "stream", "parse", "range end precedes start", nil)
	}
	return ByteRange{Start: start, End: end}, nil
}
