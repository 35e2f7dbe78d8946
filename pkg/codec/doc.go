// Package codec provides the fixed-size binary encodings used by enod database files.
//
// Every structure has a constant encoded size and every multi-byte integer is
// little-endian. The codec never touches the filesystem; pkg/store owns all I/O.
//
// # File Layout
//
//	offset 0..7   Timestamp  origin date
//	offset 7..15  uint64     number of records
//	offset 15..   records, 5 bytes each
//
// Record i occupies bytes [15+5i, 20+5i). There is no padding, footer, magic
// number or checksum.
//
// # Timestamp
//
//	[Year(2)][Month(1)][Day(1)][Hour(1)][Minute(1)][Second(1)]
//
// Timestamps carry no timezone; FromTime normalizes to UTC and drops
// sub-second precision. IsValid checks calendar ranges, including February in
// leap years (divisible by 4, and not by 100 unless also by 400).
//
// # Record
//
//	[TimeOffset(4)][Value(1)]
//
// TimeOffset counts seconds since the database origin, which bounds a single
// database to roughly 136 years. Records order by TimeOffset only.
//
// # Usage
//
//	origin := codec.FromTime(time.Now())
//	header := codec.DbHeader{OriginDate: origin}
//	buf := header.Encode() // 15 bytes
//
//	decoded, err := codec.DecodeHeader(buf)
//	if err != nil {
//	    return err // fewer than 15 bytes
//	}
//
// Decoders return an error wrapping ErrShortBuffer when given fewer bytes than
// the layout needs. They never validate field values; use Timestamp.IsValid for that.
package codec
