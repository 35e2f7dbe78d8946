package api

import (
	"time"

	"github.com/ssargent/enod/pkg/catalog"
	"github.com/ssargent/enod/pkg/codec"
	"github.com/ssargent/enod/pkg/store"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind   string
	Port   int
	APIKey string
}

// SeriesManager is the series registry the API serves
type SeriesManager interface {
	Create(name string, origin *time.Time) (*catalog.Series, *store.PhysicalDB, error)
	Get(ref string) (*catalog.Series, *store.PhysicalDB, error)
	Attach(ref string) (*catalog.Series, *store.PhysicalDB, func(), error)
	List() ([]*catalog.Series, error)
	Remove(ref string) error
}

// CreateSeriesRequest is the body of POST /series
type CreateSeriesRequest struct {
	Name   string     `json:"name"`
	Origin *time.Time `json:"origin,omitempty"`
}

// AppendRecordRequest is the body of POST /series/{id}/records. Exactly one
// of TimeOffset and At must be set.
type AppendRecordRequest struct {
	TimeOffset *uint32    `json:"time_offset,omitempty"`
	At         *time.Time `json:"at,omitempty"`
	Value      *int       `json:"value"`
}

// SeriesResponse describes a series together with its on-disk header
type SeriesResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Origin      string    `json:"origin"`
	CreatedAt   time.Time `json:"created_at"`
	RecordCount uint64    `json:"record_count"`
	SizeBytes   int64     `json:"size_bytes"`
}

// RecordResponse is a single record with its absolute time
type RecordResponse struct {
	Index      uint64    `json:"index"`
	TimeOffset uint32    `json:"time_offset"`
	Value      uint8     `json:"value"`
	Time       time.Time `json:"time"`
}

// RepairResponse lists the issues a repair fixed
type RepairResponse struct {
	Fixed []store.DbIssue `json:"fixed"`
}

func newRecordResponse(origin codec.Timestamp, index uint64, record codec.RecordInfo) RecordResponse {
	return RecordResponse{
		Index:      index,
		TimeOffset: record.TimeOffset,
		Value:      record.Value,
		Time:       origin.At(record.TimeOffset),
	}
}
