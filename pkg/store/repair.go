package store

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ssargent/enod/pkg/codec"
)

// maxRepairPasses bounds the check/fix loop in Repair
const maxRepairPasses = 8

// ReorderRecords sorts every record by time offset and rewrites the whole
// record region, syncing once at the end. The record count is taken from the
// header on disk. Every record is rewritten even if only one was out of place.
// A failure mid-rewrite leaves the region with a mix of old and new records.
func (db *PhysicalDB) ReorderRecords() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	header, err := db.readHeader()
	if err != nil {
		return err
	}

	available, err := db.availableSlots()
	if err != nil {
		return err
	}

	capacity := header.RecordsNumber
	if capacity > available {
		capacity = available
	}

	records := make([]codec.RecordInfo, 0, capacity)
	for i := uint64(0); i < header.RecordsNumber; i++ {
		record, err := db.readRecord(i)
		if err != nil {
			return err
		}
		records = append(records, record)
	}

	codec.SortRecords(records)

	buf := make([]byte, 0, len(records)*codec.RecordSize)
	for _, record := range records {
		buf = record.AppendEncode(buf)
	}

	if err := db.writeAt("rewrite records", buf, codec.HeaderSize); err != nil {
		return err
	}
	if err := db.file.Sync(); err != nil {
		return db.ioErr("sync", err)
	}

	db.log.WithField("records", len(records)).Info("reordered records")
	return nil
}

// ReconcileRecordCount makes the header count match the number of complete
// record slots on disk, truncating a trailing partial slot if there is one.
// It repairs the state left by an append interrupted before its count update.
func (db *PhysicalDB) ReconcileRecordCount() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	header, err := db.readHeader()
	if err != nil {
		return err
	}

	size, err := db.size()
	if err != nil {
		return err
	}

	slots, err := db.availableSlots()
	if err != nil {
		return err
	}

	if complete := codec.FileSize(slots); size > complete {
		if err := db.file.Truncate(complete); err != nil {
			return db.ioErr("truncate", err)
		}
	}

	// UpdateRecordCount is relative to the cache, so start from the disk value
	db.header = header
	delta := int64(slots) - int64(header.RecordsNumber)
	if delta != 0 {
		if err := db.updateRecordCount(delta); err != nil {
			return err
		}
	}
	if err := db.file.Sync(); err != nil {
		return db.ioErr("sync", err)
	}

	db.log.WithFields(logrus.Fields{
		"before": header.RecordsNumber,
		"after":  slots,
	}).Info("reconciled record count")
	return nil
}

// Repair runs CheckFile and applies the matching fix until the file checks
// clean. It returns the issues it fixed, in order. Issues with no fix
// (unreadable header or records, invalid origin) stop the loop with an error
// wrapping ErrUnrepairable.
func (db *PhysicalDB) Repair() ([]DbIssue, error) {
	fixed := []DbIssue{}

	for pass := 0; pass < maxRepairPasses; pass++ {
		issue, err := db.CheckFile()
		if err != nil {
			return fixed, err
		}

		switch issue.Kind {
		case IssueNone:
			return fixed, nil
		case IssueUnorderedRecord:
			err = db.ReorderRecords()
		case IssueMismatchRecordAmount:
			err = db.ReconcileRecordCount()
		default:
			return fixed, fmt.Errorf("%w: %s", ErrUnrepairable, issue)
		}
		if err != nil {
			return fixed, fmt.Errorf("failed to repair %s: %w", issue, err)
		}

		fixed = append(fixed, issue)
	}

	return fixed, fmt.Errorf("%w: issues remain after %d passes", ErrUnrepairable, maxRepairPasses)
}
