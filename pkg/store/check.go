package store

import (
	"github.com/sirupsen/logrus"

	"github.com/ssargent/enod/pkg/codec"
)

// CheckFile scans the whole file and returns the first issue it finds, or
// an IssueNone result. Only one issue is reported per call; callers fixing
// issues must check again to discover the next one.
//
// The checks run in order: header readable, origin date valid, every counted
// record readable and non-decreasing in time offset, and finally no bytes
// beyond the last counted record. A file shorter than its record count is
// reported as IssueRecordCorrupted at the first missing slot.
//
// An error is returned only when the file cannot be opened or sized. A
// missing or unopenable file is an *IOError, not IssueHeaderCorrupted:
// IssueHeaderCorrupted means the file opened but holds fewer than
// codec.HeaderSize bytes.
func (db *PhysicalDB) CheckFile() (DbIssue, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if err := db.open(); err != nil {
		return DbIssue{}, err
	}

	issue, err := db.checkFile()
	if err != nil {
		return DbIssue{}, err
	}

	if !issue.IsNone() {
		db.log.WithFields(logrus.Fields{
			"issue": issue.Kind.String(),
			"index": issue.Index,
		}).Warn("database check found an issue")
	}
	return issue, nil
}

func (db *PhysicalDB) checkFile() (DbIssue, error) {
	header, err := db.readHeader()
	if err != nil {
		db.log.WithError(err).Debug("header unreadable")
		return DbIssue{Kind: IssueHeaderCorrupted}, nil
	}

	if !header.OriginDate.IsValid() {
		return DbIssue{Kind: IssueOriginDateInvalid}, nil
	}

	var previous uint32
	for i := uint64(0); i < header.RecordsNumber; i++ {
		record, err := db.readRecord(i)
		if err != nil {
			db.log.WithError(err).Debug("record unreadable")
			return DbIssue{Kind: IssueRecordCorrupted, Index: i}, nil
		}
		if record.TimeOffset < previous {
			return DbIssue{Kind: IssueUnorderedRecord, Index: i}, nil
		}
		previous = record.TimeOffset
	}

	size, err := db.size()
	if err != nil {
		return DbIssue{}, err
	}
	if size > codec.FileSize(header.RecordsNumber) {
		return DbIssue{Kind: IssueMismatchRecordAmount}, nil
	}

	return DbIssue{Kind: IssueNone}, nil
}
