package store

import (
	"fmt"
)

// IssueKind classifies an on-disk inconsistency found by CheckFile
type IssueKind int

const (
	// IssueNone means no known issue was found
	IssueNone IssueKind = iota
	// IssueUnorderedRecord means a record's time offset is smaller than its predecessor's
	IssueUnorderedRecord
	// IssueHeaderCorrupted means the header could not be read in full
	IssueHeaderCorrupted
	// IssueOriginDateInvalid means the header's origin date is not a calendar date
	IssueOriginDateInvalid
	// IssueRecordCorrupted means a slot covered by the record count could not be read
	IssueRecordCorrupted
	// IssueMismatchRecordAmount means the file holds more bytes than the record count accounts for
	IssueMismatchRecordAmount
)

var issueKindNames = map[IssueKind]string{
	IssueNone:                 "none",
	IssueUnorderedRecord:      "unordered_record",
	IssueHeaderCorrupted:      "header_corrupted",
	IssueOriginDateInvalid:    "origin_date_invalid",
	IssueRecordCorrupted:      "record_corrupted",
	IssueMismatchRecordAmount: "mismatch_record_amount",
}

func (k IssueKind) String() string {
	if name, ok := issueKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("issue(%d)", int(k))
}

// MarshalText encodes the kind by name
func (k IssueKind) MarshalText() ([]byte, error) {
	if _, ok := issueKindNames[k]; !ok {
		return nil, fmt.Errorf("unknown issue kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind from its name
func (k *IssueKind) UnmarshalText(text []byte) error {
	parsed, err := ParseIssueKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseIssueKind returns the kind with the given name
func ParseIssueKind(name string) (IssueKind, error) {
	for kind, n := range issueKindNames {
		if n == name {
			return kind, nil
		}
	}
	return IssueNone, fmt.Errorf("unknown issue kind %q", name)
}

// DbIssue is the result of a file check. Index is the offending record
// slot for IssueRecordCorrupted and IssueUnorderedRecord, zero otherwise.
type DbIssue struct {
	Kind  IssueKind `json:"kind"`
	Index uint64    `json:"index,omitempty"`
}

// IsNone reports whether the check found nothing wrong
func (i DbIssue) IsNone() bool {
	return i.Kind == IssueNone
}

// Repairable reports whether Repair knows how to fix the issue
func (i DbIssue) Repairable() bool {
	return i.Kind == IssueUnorderedRecord || i.Kind == IssueMismatchRecordAmount
}

func (i DbIssue) String() string {
	switch i.Kind {
	case IssueRecordCorrupted, IssueUnorderedRecord:
		return fmt.Sprintf("%s at record %d", i.Kind, i.Index)
	default:
		return i.Kind.String()
	}
}
