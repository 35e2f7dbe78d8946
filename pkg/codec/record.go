package codec

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// RecordSize is the encoded size of a RecordInfo in bytes
const RecordSize = 5

// RecordInfo represents one sample in a database
type RecordInfo struct {
	TimeOffset uint32 // Seconds elapsed since the database origin
	Value      uint8  // Sample payload
}

// DecodeRecord deserializes a record from the first 5 bytes of data
// Format: [TimeOffset(4)][Value(1)]
func DecodeRecord(data []byte) (RecordInfo, error) {
	if len(data) < RecordSize {
		return RecordInfo{}, fmt.Errorf("record: %w: %d < %d", ErrShortBuffer, len(data), RecordSize)
	}

	return RecordInfo{
		TimeOffset: binary.LittleEndian.Uint32(data[0:4]),
		Value:      data[4],
	}, nil
}

// Encode serializes the record into 5 bytes
func (r RecordInfo) Encode() []byte {
	return r.AppendEncode(make([]byte, 0, RecordSize))
}

// AppendEncode appends the encoded record to dst
func (r RecordInfo) AppendEncode(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, r.TimeOffset)
	return append(dst, r.Value)
}

// Compare orders records by time offset only; the value is ignored
func (r RecordInfo) Compare(other RecordInfo) int {
	switch {
	case r.TimeOffset < other.TimeOffset:
		return -1
	case r.TimeOffset > other.TimeOffset:
		return 1
	default:
		return 0
	}
}

// Less reports whether r has a smaller time offset than other
func (r RecordInfo) Less(other RecordInfo) bool {
	return r.TimeOffset < other.TimeOffset
}

// SortRecords sorts records ascending by time offset. Records sharing an
// offset may come out in any order.
func SortRecords(records []RecordInfo) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Less(records[j])
	})
}
