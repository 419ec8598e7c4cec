package domain

import "time"

// Record represents a single keyed Kafka record flowing through the
// backup pipeline under test
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte // nil for key-less records
	Value     []byte // nil marks a sentinel entry
	Timestamp time.Time
}

// HasKey reports whether the record carries a key
func (r *Record) HasKey() bool {
	return r.Key != nil
}
