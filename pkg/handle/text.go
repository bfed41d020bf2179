package handle

import (
	"context"

	"golang.org/x/text/encoding/unicode"
)

// ReadText reads a file and decodes it as UTF-8 text. A leading byte order
// mark is dropped and invalid sequences become U+FFFD.
func ReadText(ctx context.Context, f File) (string, error) {
	data, err := f.Read(ctx)
	if err != nil {
		return "", err
	}
	return DecodeText(data)
}

// DecodeText decodes raw file bytes the way ReadText does.
func DecodeText(data []byte) (string, error) {
	out, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
	if err != nil {
		return "", Wrap("decode", "", err)
	}
	return string(out), nil
}

// WriteText writes text as UTF-8 without a byte order mark.
func WriteText(ctx context.Context, f File, text string) error {
	return f.Write(ctx, []byte(text))
}
