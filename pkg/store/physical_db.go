package store

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ssargent/enod/pkg/codec"
)

// PhysicalDB is a single database file: a header followed by fixed-size records.
//
// All operations are serialized by an internal mutex and use positional
// reads and writes, so a PhysicalDB may be shared between goroutines. It must
// be the only writer of its file; the cached header is refreshed only by Load
// and Reload.
type PhysicalDB struct {
	path   string
	file   *os.File
	header codec.DbHeader // In-memory copy, mutated by UpdateRecordCount
	mutex  sync.Mutex
	log    logrus.FieldLogger
}

// Option configures a PhysicalDB
type Option func(*PhysicalDB)

// WithLogger sets the logger used for lifecycle and diagnostic messages
func WithLogger(logger logrus.FieldLogger) Option {
	return func(db *PhysicalDB) {
		if logger != nil {
			db.log = logger
		}
	}
}

func newPhysicalDB(path string, opts []Option) *PhysicalDB {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	db := &PhysicalDB{path: path, log: discard}
	for _, opt := range opts {
		opt(db)
	}
	db.log = db.log.WithField("db", path)
	return db
}

// Create writes a new, empty database file at path.
// Warning: an existing file at path is truncated and its contents are lost.
// The origin date is taken from origin, or from the current time when origin
// is nil. The file is left closed; it is opened on first use.
func Create(path string, origin *time.Time, opts ...Option) (*PhysicalDB, error) {
	date := time.Now()
	if origin != nil {
		date = *origin
	}

	db := newPhysicalDB(path, opts)
	db.header = codec.DbHeader{
		OriginDate:    codec.FromTime(date),
		RecordsNumber: 0,
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, db.ioErr("create", err)
	}

	if _, err := file.Write(db.header.Encode()); err != nil {
		_ = file.Close()
		return nil, db.ioErr("write header", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return nil, db.ioErr("sync", err)
	}
	if err := file.Close(); err != nil {
		return nil, db.ioErr("close", err)
	}

	db.log.WithField("origin", db.header.OriginDate.String()).Debug("created database")
	return db, nil
}

// Attach returns a PhysicalDB for an existing file without touching it.
// The cached header stays zero until Reload, so Attach suits CheckFile and
// Repair on files whose header may not be readable.
func Attach(path string, opts ...Option) *PhysicalDB {
	return newPhysicalDB(path, opts)
}

// Load attaches to an existing database file and primes the cached header from disk
func Load(path string, opts ...Option) (*PhysicalDB, error) {
	db := Attach(path, opts...)
	if err := db.Reload(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the backing file path
func (db *PhysicalDB) Path() string {
	return db.path
}

// Header returns the cached header
func (db *PhysicalDB) Header() codec.DbHeader {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.header
}

// IsOpen reports whether a file handle is currently held
func (db *PhysicalDB) IsOpen() bool {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.file != nil
}

// Open opens the backing file for reading and writing. It is a no-op when
// the file is already open.
func (db *PhysicalDB) Open() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.open()
}

func (db *PhysicalDB) open() error {
	if db.file != nil {
		return nil
	}

	file, err := os.OpenFile(db.path, os.O_RDWR, 0)
	if err != nil {
		return db.ioErr("open", err)
	}
	db.file = file
	db.log.Debug("opened database")
	return nil
}

// Close syncs and releases the file handle. It is a no-op when the file is
// already closed.
func (db *PhysicalDB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.close()
}

func (db *PhysicalDB) close() error {
	if db.file == nil {
		return nil
	}

	file := db.file
	db.file = nil

	if err := file.Sync(); err != nil {
		_ = file.Close()
		return db.ioErr("sync", err)
	}
	if err := file.Close(); err != nil {
		return db.ioErr("close", err)
	}
	db.log.Debug("closed database")
	return nil
}

// ReadHeader reads the header from disk. The cached header is not modified.
func (db *PhysicalDB) ReadHeader() (codec.DbHeader, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.readHeader()
}

func (db *PhysicalDB) readHeader() (codec.DbHeader, error) {
	if err := db.open(); err != nil {
		return codec.DbHeader{}, err
	}

	buf := make([]byte, codec.HeaderSize)
	if err := db.readAt("read header", buf, 0); err != nil {
		return codec.DbHeader{}, err
	}

	header, err := codec.DecodeHeader(buf)
	if err != nil {
		return codec.DbHeader{}, db.ioErr("decode header", err)
	}
	return header, nil
}

// Reload replaces the cached header with the one on disk
func (db *PhysicalDB) Reload() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	header, err := db.readHeader()
	if err != nil {
		return err
	}
	db.header = header
	return nil
}

// ReadRecord reads the record in slot index
func (db *PhysicalDB) ReadRecord(index uint64) (codec.RecordInfo, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.readRecord(index)
}

func (db *PhysicalDB) readRecord(index uint64) (codec.RecordInfo, error) {
	if err := db.open(); err != nil {
		return codec.RecordInfo{}, err
	}

	op := fmt.Sprintf("read record %d", index)
	if index > codec.MaxRecordIndex {
		return codec.RecordInfo{}, db.ioErr(op, fmt.Errorf("slot offset out of range: %w", io.ErrUnexpectedEOF))
	}

	buf := make([]byte, codec.RecordSize)
	if err := db.readAt(op, buf, codec.RecordOffset(index)); err != nil {
		return codec.RecordInfo{}, err
	}

	record, err := codec.DecodeRecord(buf)
	if err != nil {
		return codec.RecordInfo{}, db.ioErr("decode record", err)
	}
	return record, nil
}

// Records reads up to limit consecutive records starting at slot from. The
// range is bounded by the record count on disk.
func (db *PhysicalDB) Records(from, limit uint64) ([]codec.RecordInfo, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	header, err := db.readHeader()
	if err != nil {
		return nil, err
	}
	if from >= header.RecordsNumber || limit == 0 {
		return []codec.RecordInfo{}, nil
	}

	n := header.RecordsNumber - from
	if n > limit {
		n = limit
	}

	available, err := db.availableSlots()
	if err != nil {
		return nil, err
	}
	if from+n > available {
		return nil, db.ioErr(fmt.Sprintf("read records %d..%d", from, from+n),
			fmt.Errorf("only %d complete records on disk: %w", available, io.ErrUnexpectedEOF))
	}

	buf := make([]byte, n*codec.RecordSize)
	if err := db.readAt(fmt.Sprintf("read records %d..%d", from, from+n), buf, codec.RecordOffset(from)); err != nil {
		return nil, err
	}

	records := make([]codec.RecordInfo, 0, n)
	for off := 0; off < len(buf); off += codec.RecordSize {
		record, err := codec.DecodeRecord(buf[off:])
		if err != nil {
			return nil, db.ioErr("decode record", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// UpdateRecordCount adds delta to the cached record count and writes the
// result to the header on disk. The adjustment is relative to the cached
// value, not the one on disk.
func (db *PhysicalDB) UpdateRecordCount(delta int64) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.updateRecordCount(delta)
}

func (db *PhysicalDB) updateRecordCount(delta int64) error {
	if err := db.open(); err != nil {
		return err
	}

	if delta < 0 && uint64(-delta) > db.header.RecordsNumber {
		return db.ioErr("update record count",
			fmt.Errorf("%w: %d%+d", ErrCountUnderflow, db.header.RecordsNumber, delta))
	}

	next := db.header.RecordsNumber + uint64(delta)
	buf := binary.LittleEndian.AppendUint64(make([]byte, 0, 8), next)
	if err := db.writeAt("update record count", buf, codec.RecordsNumberOffset); err != nil {
		return err
	}

	db.header.RecordsNumber = next
	return nil
}

// AppendRecord writes record at the end of the file, syncs it, then bumps
// the record count. A failure between the sync and the count update leaves
// a record that CheckFile reports as IssueMismatchRecordAmount.
func (db *PhysicalDB) AppendRecord(record codec.RecordInfo) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.appendRecord(record)
}

func (db *PhysicalDB) appendRecord(record codec.RecordInfo) error {
	if err := db.open(); err != nil {
		return err
	}

	end, err := db.size()
	if err != nil {
		return err
	}

	if err := db.writeAt("append record", record.Encode(), end); err != nil {
		return err
	}
	if err := db.file.Sync(); err != nil {
		return db.ioErr("sync", err)
	}

	return db.updateRecordCount(1)
}

// AppendAt appends value stamped with the number of seconds between the
// origin date and at
func (db *PhysicalDB) AppendAt(at time.Time, value uint8) (codec.RecordInfo, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	offset, err := db.header.OriginDate.Offset(at)
	if err != nil {
		return codec.RecordInfo{}, err
	}

	record := codec.RecordInfo{TimeOffset: offset, Value: value}
	return record, db.appendRecord(record)
}

// Size returns the current size of the backing file in bytes
func (db *PhysicalDB) Size() (int64, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if err := db.open(); err != nil {
		return 0, err
	}
	return db.size()
}

func (db *PhysicalDB) size() (int64, error) {
	stat, err := db.file.Stat()
	if err != nil {
		return 0, db.ioErr("stat", err)
	}
	return stat.Size(), nil
}

// availableSlots returns the number of complete record slots in the file
func (db *PhysicalDB) availableSlots() (uint64, error) {
	size, err := db.size()
	if err != nil {
		return 0, err
	}
	if size <= codec.HeaderSize {
		return 0, nil
	}
	return uint64(size-codec.HeaderSize) / codec.RecordSize, nil
}

func (db *PhysicalDB) readAt(op string, buf []byte, off int64) error {
	n, err := db.file.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return db.ioErr(op, fmt.Errorf("read %d of %d bytes at offset %d: %w", n, len(buf), off, err))
}

func (db *PhysicalDB) writeAt(op string, buf []byte, off int64) error {
	if _, err := db.file.WriteAt(buf, off); err != nil {
		return db.ioErr(op, err)
	}
	return nil
}

func (db *PhysicalDB) ioErr(op string, err error) error {
	return &IOError{Op: op, Path: db.path, Err: err}
}
