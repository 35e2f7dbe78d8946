package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// RecordsNumberOffset is the file offset of the record count field
	RecordsNumberOffset = TimestampSize
	// HeaderSize is the encoded size of a DbHeader in bytes
	HeaderSize = TimestampSize + 8
)

// DbHeader is the fixed block at the start of every database file
type DbHeader struct {
	OriginDate    Timestamp // Reference point for every record's time offset
	RecordsNumber uint64    // Number of record slots following the header
}

// DecodeHeader deserializes a header from the first 15 bytes of data
// Format: [OriginDate(7)][RecordsNumber(8)]
func DecodeHeader(data []byte) (DbHeader, error) {
	if len(data) < HeaderSize {
		return DbHeader{}, fmt.Errorf("header: %w: %d < %d", ErrShortBuffer, len(data), HeaderSize)
	}

	origin, err := DecodeTimestamp(data[:TimestampSize])
	if err != nil {
		return DbHeader{}, err
	}

	return DbHeader{
		OriginDate:    origin,
		RecordsNumber: binary.LittleEndian.Uint64(data[RecordsNumberOffset:HeaderSize]),
	}, nil
}

// Encode serializes the header into 15 bytes
func (h DbHeader) Encode() []byte {
	buf := h.OriginDate.AppendEncode(make([]byte, 0, HeaderSize))
	return binary.LittleEndian.AppendUint64(buf, h.RecordsNumber)
}

// MaxRecordIndex is the largest slot index whose offset fits in an int64
const MaxRecordIndex = (math.MaxInt64 - HeaderSize) / RecordSize

// RecordOffset returns the absolute file offset of record slot index. The
// result is only meaningful for index <= MaxRecordIndex.
func RecordOffset(index uint64) int64 {
	return HeaderSize + RecordSize*int64(index)
}

// FileSize returns the size of a consistent file holding n records
func FileSize(n uint64) int64 {
	return RecordOffset(n)
}
