package codec

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp_EncodeDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		ts   Timestamp
	}{
		{"origin sample", Timestamp{1994, 7, 8, 6, 55, 34}},
		{"zero value", Timestamp{}},
		{"max year", Timestamp{65535, 12, 31, 23, 59, 59}},
		{"leap day", Timestamp{2000, 2, 29, 0, 0, 0}},
		{"year needing both bytes", Timestamp{0x0102, 1, 1, 1, 1, 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded := tc.ts.Encode()
			require.Len(t, encoded, TimestampSize)

			decoded, err := DecodeTimestamp(encoded)
			require.NoError(t, err)
			assert.Equal(t, tc.ts, decoded)
		})
	}
}

func TestTimestamp_EncodeLayout(t *testing.T) {
	ts := Timestamp{Year: 1994, Month: 7, Day: 8, Hour: 6, Minute: 55, Second: 34}

	// 1994 = 0x07CA
	assert.Equal(t, []byte{0xCA, 0x07, 7, 8, 6, 55, 34}, ts.Encode())
}

func TestDecodeTimestamp_ShortBuffer(t *testing.T) {
	for n := 0; n < TimestampSize; n++ {
		_, err := DecodeTimestamp(make([]byte, n))
		if !errors.Is(err, ErrShortBuffer) {
			t.Errorf("len %d: expected ErrShortBuffer, got %v", n, err)
		}
	}
}

func TestFromTime(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	in := time.Date(1994, 7, 8, 8, 55, 34, 999_999_999, loc)

	ts := FromTime(in)

	assert.Equal(t, Timestamp{1994, 7, 8, 6, 55, 34}, ts)
	assert.True(t, ts.Time().Equal(in.Truncate(time.Second)))
}

func TestTimestamp_IsValid(t *testing.T) {
	testCases := []struct {
		name  string
		ts    Timestamp
		valid bool
	}{
		{"ordinary", Timestamp{1994, 7, 8, 6, 55, 34}, true},
		{"month zero", Timestamp{2020, 0, 1, 0, 0, 0}, false},
		{"month thirteen", Timestamp{2020, 13, 1, 0, 0, 0}, false},
		{"day zero", Timestamp{2020, 1, 0, 0, 0, 0}, false},
		{"hour 24", Timestamp{2020, 1, 1, 24, 0, 0}, false},
		{"minute 60", Timestamp{2020, 1, 1, 0, 60, 0}, false},
		{"second 60", Timestamp{2020, 1, 1, 0, 0, 60}, false},
		{"end of day", Timestamp{2020, 1, 1, 23, 59, 59}, true},
		{"january 31", Timestamp{2021, 1, 31, 0, 0, 0}, true},
		{"january 32", Timestamp{2021, 1, 32, 0, 0, 0}, false},
		{"april 31", Timestamp{2021, 4, 31, 0, 0, 0}, false},
		{"april 30", Timestamp{2021, 4, 30, 0, 0, 0}, true},
		{"feb 29 in 1900", Timestamp{1900, 2, 29, 0, 0, 0}, false},
		{"feb 29 in 2000", Timestamp{2000, 2, 29, 0, 0, 0}, true},
		{"feb 29 in 2024", Timestamp{2024, 2, 29, 0, 0, 0}, true},
		{"feb 29 in 2023", Timestamp{2023, 2, 29, 0, 0, 0}, false},
		{"feb 30 in 2000", Timestamp{2000, 2, 30, 0, 0, 0}, false},
		{"feb 28 in 1900", Timestamp{1900, 2, 28, 0, 0, 0}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, tc.ts.IsValid(), "timestamp %s", tc.ts)
		})
	}
}

func TestTimestamp_Compare(t *testing.T) {
	base := Timestamp{2000, 6, 15, 12, 30, 30}

	testCases := []struct {
		name  string
		other Timestamp
		want  int
	}{
		{"equal", base, 0},
		{"later year wins over earlier month", Timestamp{2001, 1, 1, 0, 0, 0}, -1},
		{"earlier year", Timestamp{1999, 12, 31, 23, 59, 59}, 1},
		{"later month", Timestamp{2000, 7, 1, 0, 0, 0}, -1},
		{"earlier day", Timestamp{2000, 6, 14, 23, 59, 59}, 1},
		{"later hour", Timestamp{2000, 6, 15, 13, 0, 0}, -1},
		{"earlier minute", Timestamp{2000, 6, 15, 12, 29, 59}, 1},
		{"later second", Timestamp{2000, 6, 15, 12, 30, 31}, -1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, base.Compare(tc.other))
			assert.Equal(t, -tc.want, tc.other.Compare(base))
			assert.Equal(t, tc.want < 0, base.Before(tc.other))
		})
	}
}

func TestTimestamp_Offset(t *testing.T) {
	origin := Timestamp{1994, 7, 8, 6, 55, 34}

	t.Run("same instant", func(t *testing.T) {
		off, err := origin.Offset(origin.Time())
		require.NoError(t, err)
		assert.Equal(t, uint32(0), off)
	})

	t.Run("one day later", func(t *testing.T) {
		off, err := origin.Offset(origin.Time().Add(24*time.Hour + 500*time.Millisecond))
		require.NoError(t, err)
		assert.Equal(t, uint32(86400), off)
		assert.Equal(t, origin.Time().Add(24*time.Hour), origin.At(off))
	})

	t.Run("before origin", func(t *testing.T) {
		_, err := origin.Offset(origin.Time().Add(-time.Second))
		assert.ErrorIs(t, err, ErrBeforeOrigin)
	})

	t.Run("past uint32 range", func(t *testing.T) {
		_, err := origin.Offset(origin.Time().Add(140 * 365 * 24 * time.Hour))
		assert.ErrorIs(t, err, ErrOffsetOverflow)
	})
}

func TestTimestamp_String(t *testing.T) {
	assert.Equal(t, "1994-07-08 06:55:34", Timestamp{1994, 7, 8, 6, 55, 34}.String())
}
