package fetch

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/charmap"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	utf8BOM   = []byte{0xef, 0xbb, 0xbf}
)

// Decode turns raw page bytes into text. Gzip data is inflated first. The
// bytes are read as UTF-8 when valid, otherwise as Windows-1252 when they
// use its printable 0x80-0x9F range, otherwise as Latin-1.
func Decode(raw []byte) (string, error) {
	data, err := gunzip(raw)
	if err != nil {
		return "", err
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}

	dec := charmap.ISO8859_1.NewDecoder()
	if hasC1Bytes(data) {
		dec = charmap.Windows1252.NewDecoder()
	}
	out, err := dec.Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return string(out), nil
}

// DecodeWithContentType honours a charset declared by a byte order mark,
// the Content-Type header or a meta tag, and falls back to Decode when the
// page declares nothing.
func DecodeWithContentType(raw []byte, contentType string) (string, error) {
	data, err := gunzip(raw)
	if err != nil {
		return "", err
	}

	enc, name, certain := charset.DetermineEncoding(data, contentType)
	if name == "utf-8" || (!certain && name == "windows-1252") {
		return Decode(data)
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDecodeFailed, name, err)
	}
	return string(out), nil
}

func gunzip(raw []byte) ([]byte, error) {
	if !bytes.HasPrefix(raw, gzipMagic) {
		return raw, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", ErrDecodeFailed, err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", ErrDecodeFailed, err)
	}
	return data, nil
}

func hasC1Bytes(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 && b <= 0x9f {
			return true
		}
	}
	return false
}
