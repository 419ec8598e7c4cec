// Package generator synthesizes keyed test records and paces their
// emission so the backup pipeline under test can be exercised at a
// controlled rate.
package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/quantica-technologies/kafka-backup-harness/internal/domain"
	"github.com/quantica-technologies/kafka-backup-harness/internal/record"
	"github.com/quantica-technologies/kafka-backup-harness/pkg/metrics"
	"github.com/quantica-technologies/kafka-backup-harness/pkg/utils"
)

// Emit spaces the records so the whole sequence completes in
// approximately the given duration: a 1ms ticker emits
// max(1, count/durationMillis) records per tick. The floor of one tick
// batch per millisecond means tiny inputs finish early rather than
// bursting. Records are never reordered, dropped, or duplicated. The
// returned channel is single-consumer per call; calling Emit again
// restarts emission from the beginning.
func Emit(ctx context.Context, records []record.Wire, duration time.Duration) <-chan record.Wire {
	out := make(chan record.Wire)

	go func() {
		defer close(out)
		if len(records) == 0 {
			return
		}

		perTick := 1
		if ms := duration.Milliseconds(); ms > 0 {
			if rate := int64(len(records)) / ms; rate > 1 {
				perTick = int(rate)
			}
		}

		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()

		i := 0
		for i < len(records) {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for n := 0; n < perTick && i < len(records); n++ {
					select {
					case out <- records[i]:
						metrics.RecordsGenerated.Inc()
						i++
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out
}

// ProducerMessages maps wire records to the messaging client's
// producer-record shape, decoding base64 key/value back to raw bytes.
// Key-less records map to key-less producer messages; sentinel entries
// map to value-less ones. Performs no I/O; malformed base64 is fatal.
func ProducerMessages(records []record.Wire) ([]*sarama.ProducerMessage, error) {
	msgs := make([]*sarama.ProducerMessage, 0, len(records))
	for _, w := range records {
		rec, err := w.Record()
		if err != nil {
			return nil, err
		}

		msg := &sarama.ProducerMessage{
			Topic:     w.Topic,
			Partition: w.Partition,
		}
		if w.Timestamp != nil {
			msg.Timestamp = *w.Timestamp
		}
		if rec != nil {
			msg.Value = sarama.ByteEncoder(rec.Value)
			if rec.Key != nil {
				msg.Key = sarama.ByteEncoder(rec.Key)
			}
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Series builds a deterministic fixture stream: keys*perKey records
// over the given number of distinct keys, timestamps spaced by
// padding, partitions assigned by key hash, offsets increasing per
// partition, plus one trailing sentinel marking the end of the stream.
func Series(topic string, partitions int32, keys, perKey int, padding time.Duration) []record.Wire {
	base := time.Now().UTC().Truncate(time.Second)
	out := make([]record.Wire, 0, keys*perKey+1)
	offsets := make(map[int32]int64, partitions)

	i := 0
	for k := 0; k < keys; k++ {
		key := []byte(fmt.Sprintf("key-%d", k))
		partition := utils.Partition(key, partitions)

		for v := 0; v < perKey; v++ {
			rec := domain.Record{
				Topic:     topic,
				Partition: partition,
				Offset:    offsets[partition],
				Key:       key,
				Value:     []byte(fmt.Sprintf("value-%d-%d", k, v)),
				Timestamp: base.Add(time.Duration(i) * padding),
			}
			offsets[partition]++
			out = append(out, record.FromRecord(rec))
			i++
		}
	}

	sentinel := record.FromRecord(domain.Record{
		Topic:     topic,
		Timestamp: base.Add(time.Duration(i) * padding),
	})
	return append(out, sentinel)
}
