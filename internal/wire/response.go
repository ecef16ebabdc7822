package wire

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/cbout22/ghcp/internal/errdefs"
)

// maxHeaderBytes bounds the status line plus headers.
const maxHeaderBytes = 1 << 20

// framing is how the body length is determined.
type framing struct {
	chunked       bool
	contentLength int64 // -1 when absent
}

// readResponse consumes one response from br. Headers are read even when
// the status is not 2xx so the StatusError can carry them.
func readResponse(br *bufio.Reader, host, path string) ([]byte, error) {
	statusLine, err := br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && statusLine == "" {
			return nil, errdefs.New(errdefs.ErrNetwork, "connection closed before status line from %s", host)
		}
		return nil, err
	}

	header, frame, err := readHeader(br, len(statusLine))
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(statusLine, "HTTP/1.1 2") && !strings.HasPrefix(statusLine, "HTTP/1.0 2") {
		return nil, errdefs.Statusf(host, path, statusLine, header)
	}

	switch {
	case frame.chunked:
		return readChunked(br)
	case frame.contentLength >= 0:
		return readFixed(br, frame.contentLength)
	default:
		return readUntilEOF(br)
	}
}

// readHeader reads header lines up to the blank line. Names are
// lower-cased; a repeated name keeps its last value.
func readHeader(br *bufio.Reader, consumed int) (map[string]string, framing, error) {
	header := make(map[string]string)
	frame := framing{contentLength: -1}

	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, frame, err
		}
		consumed += len(line)
		if consumed > maxHeaderBytes {
			return nil, frame, errdefs.New(errdefs.ErrParse, "response header exceeds %d bytes", maxHeaderBytes)
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		header[name] = value

		switch name {
		case "content-length":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil || n < 0 {
				return nil, frame, errdefs.New(errdefs.ErrParse, "invalid Content-Length %q", value)
			}
			frame.contentLength = n
		case "transfer-encoding":
			if strings.Contains(strings.ToLower(value), "chunked") {
				frame.chunked = true
			}
		}
	}

	return header, frame, nil
}

func readFixed(br *bufio.Reader, n int64) ([]byte, error) {
	if n > MaxBodySize {
		return nil, errdefs.New(errdefs.ErrParse, "body of %d bytes exceeds limit", n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(br, body); err != nil {
		return nil, errdefs.Wrap(errdefs.ErrNetwork, "reading body", err)
	}
	return body, nil
}

func readUntilEOF(br *bufio.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(br, MaxBodySize+1))
	if err != nil {
		return nil, errdefs.Wrap(errdefs.ErrNetwork, "reading body", err)
	}
	if len(body) > MaxBodySize {
		return nil, errdefs.New(errdefs.ErrParse, "body exceeds limit")
	}
	return body, nil
}

// readChunked decodes a chunked body. Chunk extensions are ignored and
// trailers are skipped; EOF while skipping trailers is not an error.
func readChunked(br *bufio.Reader) ([]byte, error) {
	var body []byte
	crlf := make([]byte, 2)

	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, errdefs.Wrap(errdefs.ErrNetwork, "reading chunk size", err)
		}

		sizeText, _, _ := strings.Cut(line, ";")
		sizeText = strings.TrimSpace(sizeText)
		size, err := strconv.ParseUint(sizeText, 16, 63)
		if err != nil {
			return nil, errdefs.New(errdefs.ErrParse, "invalid chunk size %q", sizeText)
		}

		if size == 0 {
			skipTrailers(br)
			return body, nil
		}

		if uint64(len(body))+size > MaxBodySize {
			return nil, errdefs.New(errdefs.ErrParse, "chunked body exceeds limit")
		}

		start := len(body)
		body = append(body, make([]byte, size)...)
		if _, err := io.ReadFull(br, body[start:]); err != nil {
			return nil, errdefs.Wrap(errdefs.ErrNetwork, "reading chunk", err)
		}
		if _, err := io.ReadFull(br, crlf); err != nil {
			return nil, errdefs.Wrap(errdefs.ErrNetwork, "reading chunk terminator", err)
		}
	}
}

func skipTrailers(br *bufio.Reader) {
	for {
		line, err := br.ReadString('\n')
		if err != nil || strings.TrimRight(line, "\r\n") == "" {
			return
		}
	}
}
