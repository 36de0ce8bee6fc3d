package core

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// decodeContent undoes a Content-Encoding so rules see the plain body.
// Stacked encodings are undone from last applied to first.
func decodeContent(encoding string, data []byte) ([]byte, error) {
	codings := strings.Split(encoding, ",")
	for i := len(codings) - 1; i >= 0; i-- {
		coding := strings.ToLower(strings.TrimSpace(codings[i]))
		var r io.Reader
		switch coding {
		case "", "identity":
			continue
		case "gzip", "x-gzip":
			zr, err := gzip.NewReader(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("opening gzip body: %w", err)
			}
			defer zr.Close()
			r = zr
		case "br":
			r = brotli.NewReader(bytes.NewReader(data))
		case "deflate":
			zr, err := zlib.NewReader(bytes.NewReader(data))
			if err != nil {
				// Some clients send raw deflate without the zlib wrapper.
				r = flate.NewReader(bytes.NewReader(data))
			} else {
				defer zr.Close()
				r = zr
			}
		default:
			return nil, fmt.Errorf("unsupported content encoding %q", coding)
		}
		decoded, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("decoding %s body: %w", coding, err)
		}
		data = decoded
	}
	return data, nil
}
