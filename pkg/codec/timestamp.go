package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// TimestampSize is the encoded size of a Timestamp in bytes
const TimestampSize = 7

var (
	// ErrShortBuffer is returned when a decode is given fewer bytes than the fixed layout needs
	ErrShortBuffer = errors.New("buffer too short")
	// ErrBeforeOrigin is returned when a point in time precedes the origin timestamp
	ErrBeforeOrigin = errors.New("time is before origin")
	// ErrOffsetOverflow is returned when a time offset does not fit in 32 bits
	ErrOffsetOverflow = errors.New("time offset overflows uint32")
)

// Timestamp is a calendar date-time with second precision and no timezone.
// Every value is UTC+0 by convention.
type Timestamp struct {
	Year   uint16
	Month  uint8
	Day    uint8
	Hour   uint8
	Minute uint8
	Second uint8
}

// FromTime converts t to UTC and truncates it to the second
func FromTime(t time.Time) Timestamp {
	t = t.UTC()
	return Timestamp{
		Year:   uint16(t.Year()),
		Month:  uint8(t.Month()),
		Day:    uint8(t.Day()),
		Hour:   uint8(t.Hour()),
		Minute: uint8(t.Minute()),
		Second: uint8(t.Second()),
	}
}

// DecodeTimestamp reads a Timestamp from the first 7 bytes of data
// Format: [Year(2)][Month(1)][Day(1)][Hour(1)][Minute(1)][Second(1)]
func DecodeTimestamp(data []byte) (Timestamp, error) {
	if len(data) < TimestampSize {
		return Timestamp{}, fmt.Errorf("timestamp: %w: %d < %d", ErrShortBuffer, len(data), TimestampSize)
	}

	return Timestamp{
		Year:   binary.LittleEndian.Uint16(data[0:2]),
		Month:  data[2],
		Day:    data[3],
		Hour:   data[4],
		Minute: data[5],
		Second: data[6],
	}, nil
}

// Encode serializes the timestamp into 7 bytes
func (t Timestamp) Encode() []byte {
	return t.AppendEncode(make([]byte, 0, TimestampSize))
}

// AppendEncode appends the encoded timestamp to dst
func (t Timestamp) AppendEncode(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, t.Year)
	return append(dst, t.Month, t.Day, t.Hour, t.Minute, t.Second)
}

// IsValid reports whether every field is within its calendar range
func (t Timestamp) IsValid() bool {
	if t.Month < 1 || t.Month > 12 {
		return false
	}
	if t.Day < 1 || t.Day > daysIn(t.Month, t.Year) {
		return false
	}
	return t.Hour < 24 && t.Minute < 60 && t.Second < 60
}

func isLeap(year uint16) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func daysIn(month uint8, year uint16) uint8 {
	switch month {
	case 2:
		if isLeap(year) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

// Compare returns -1, 0 or +1 comparing fields from year down to second
func (t Timestamp) Compare(other Timestamp) int {
	a := [...]int{int(t.Year), int(t.Month), int(t.Day), int(t.Hour), int(t.Minute), int(t.Second)}
	b := [...]int{int(other.Year), int(other.Month), int(other.Day), int(other.Hour), int(other.Minute), int(other.Second)}
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// Before reports whether t sorts strictly before other
func (t Timestamp) Before(other Timestamp) bool {
	return t.Compare(other) < 0
}

// Time returns the timestamp as a UTC time.Time. Invalid fields are
// normalized the way time.Date normalizes them.
func (t Timestamp) Time() time.Time {
	return time.Date(int(t.Year), time.Month(t.Month), int(t.Day),
		int(t.Hour), int(t.Minute), int(t.Second), 0, time.UTC)
}

// Offset returns the number of whole seconds between t and at
func (t Timestamp) Offset(at time.Time) (uint32, error) {
	delta := at.UTC().Truncate(time.Second).Sub(t.Time())
	if delta < 0 {
		return 0, fmt.Errorf("%w: %s < %s", ErrBeforeOrigin, at.UTC().Format(time.DateTime), t)
	}

	seconds := int64(delta / time.Second)
	if seconds > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d seconds", ErrOffsetOverflow, seconds)
	}
	return uint32(seconds), nil
}

// At returns the point in time offset seconds after t
func (t Timestamp) At(offset uint32) time.Time {
	return t.Time().Add(time.Duration(offset) * time.Second)
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Second)
}
