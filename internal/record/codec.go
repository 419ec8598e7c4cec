// Package record converts between the domain record model and the
// JSON segment format written by the backup pipeline. A segment is a
// single JSON array; key and value travel as base64 text.
package record

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quantica-technologies/kafka-backup-harness/internal/domain"
	"github.com/quantica-technologies/kafka-backup-harness/pkg/errors"
	"github.com/quantica-technologies/kafka-backup-harness/pkg/utils"
)

// Wire is the JSON form of a single record inside a segment. It is
// also the shape the fixture generator synthesizes. A null value marks
// a sentinel entry that carries no payload.
type Wire struct {
	Topic     string     `json:"topic"`
	Partition int32      `json:"partition"`
	Offset    int64      `json:"offset"`
	Key       *string    `json:"key,omitempty"`
	Value     *string    `json:"value"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// FromRecord builds the wire form of a domain record
func FromRecord(r domain.Record) Wire {
	w := Wire{
		Topic:     r.Topic,
		Partition: r.Partition,
		Offset:    r.Offset,
	}
	if r.Key != nil {
		key := base64.StdEncoding.EncodeToString(r.Key)
		w.Key = &key
	}
	if r.Value != nil {
		value := base64.StdEncoding.EncodeToString(r.Value)
		w.Value = &value
	}
	if !r.Timestamp.IsZero() {
		ts := r.Timestamp
		w.Timestamp = &ts
	}
	return w
}

// IsSentinel reports whether the entry carries no value payload
func (w Wire) IsSentinel() bool {
	return w.Value == nil
}

// Record decodes the wire entry back to raw bytes. A sentinel entry
// yields nil. Malformed base64 fails with INVALID_ENCODING; generators
// are expected to only ever produce validly encoded fixtures.
func (w Wire) Record() (*domain.Record, error) {
	if w.Value == nil {
		return nil, nil
	}

	value, err := base64.StdEncoding.DecodeString(*w.Value)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidEncoding, "record value is not valid base64")
	}

	rec := &domain.Record{
		Topic:     w.Topic,
		Partition: w.Partition,
		Offset:    w.Offset,
		Value:     value,
	}

	if w.Key != nil {
		key, err := base64.StdEncoding.DecodeString(*w.Key)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidEncoding, "record key is not valid base64")
		}
		rec.Key = key
	}

	if w.Timestamp != nil {
		rec.Timestamp = *w.Timestamp
	}

	return rec, nil
}

// Encode serializes the records as one JSON array
func Encode(records []domain.Record) ([]byte, error) {
	entries := make([]Wire, len(records))
	for i, r := range records {
		entries[i] = FromRecord(r)
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMalformedPayload, "failed to serialize record segment")
	}
	return data, nil
}

// Decode is the structural inverse of Encode. Sentinel entries decode
// to nil; callers filter them with Compact. Gzip-compressed segments
// are unwrapped transparently since the pipeline under test compresses
// what it uploads. Structurally invalid input fails with
// MALFORMED_PAYLOAD; there is no partial recovery.
func Decode(data []byte) ([]*domain.Record, error) {
	if utils.IsGzip(data) {
		raw, err := utils.Decompress(data)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeMalformedPayload, "segment gzip envelope is corrupt")
		}
		data = raw
	}

	var entries []Wire
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMalformedPayload, "segment is not a JSON record array")
	}

	records := make([]*domain.Record, len(entries))
	for i, entry := range entries {
		rec, err := entry.Record()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeMalformedPayload, fmt.Sprintf("segment entry %d", i))
		}
		records[i] = rec
	}
	return records, nil
}

// Compact drops sentinel (nil) entries from a decoded segment
func Compact(records []*domain.Record) []domain.Record {
	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
