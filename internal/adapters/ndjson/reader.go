package ndjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/bft-labs/logship/internal/domain"
)

// Reader decodes a stream of newline-delimited JSON objects into records.
// Top-level keys keep the order they appear in on the input, which is the
// order they will be serialized in again on the way out.
type Reader struct {
	dec *json.Decoder
}

func NewReader(r io.Reader) *Reader {
	dec := json.NewDecoder(r)
	// Numbers stay json.Number so re-serialization emits them verbatim
	// instead of going through float64.
	dec.UseNumber()
	return &Reader{dec: dec}
}

// Next returns the next record on the stream, or io.EOF once the input is
// exhausted. Anything other than a JSON object is an error; input ending
// inside a record reports io.ErrUnexpectedEOF, never a clean io.EOF.
func (r *Reader) Next() (*domain.Record, error) {
	tok, err := r.dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read record: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("read record: expected object, got %v", tok)
	}

	rec := domain.NewRecord()
	for r.dec.More() {
		keyTok, err := r.dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read field name: %w", truncation(err))
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("read field name: unexpected token %v", keyTok)
		}
		var value any
		if err := r.dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("read field %q: %w", key, truncation(err))
		}
		rec.Set(key, value)
	}

	// Consume the closing brace.
	if _, err := r.dec.Token(); err != nil {
		return nil, fmt.Errorf("read record close: %w", truncation(err))
	}
	return rec, nil
}

// truncation maps bare io.EOF to io.ErrUnexpectedEOF. It guards the reads
// inside an open object, where running out of input is a cut-off record
// rather than a clean end of stream.
func truncation(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
