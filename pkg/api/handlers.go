package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ssargent/enod/pkg/catalog"
	"github.com/ssargent/enod/pkg/codec"
	"github.com/ssargent/enod/pkg/store"
)

const (
	defaultRecordLimit = 100
	maxRecordLimit     = 10000
)

// Server holds the API server state
type Server struct {
	manager SeriesManager
	config  ServerConfig
	metrics *Metrics
	log     logrus.FieldLogger
}

// NewServer creates a new API server
func NewServer(manager SeriesManager, config ServerConfig, metrics *Metrics, logger logrus.FieldLogger) *Server {
	return &Server{
		manager: manager,
		config:  config,
		metrics: metrics,
		log:     logger,
	}
}

// timed runs fn and records it as a database operation
func (s *Server) timed(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.metrics.RecordDBOperation(operation, err == nil, time.Since(start))
	return err
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrNameTaken), errors.Is(err, store.ErrUnrepairable):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrInvalidName),
		errors.Is(err, codec.ErrBeforeOrigin),
		errors.Is(err, codec.ErrOffsetOverflow):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error(message)
	}
	sendError(w, fmt.Sprintf("%s: %v", message, err), status)
}

func (s *Server) describe(series *catalog.Series, db *store.PhysicalDB) (SeriesResponse, error) {
	header, err := db.ReadHeader()
	if err != nil {
		return SeriesResponse{}, err
	}
	size, err := db.Size()
	if err != nil {
		return SeriesResponse{}, err
	}

	s.metrics.UpdateSeries(series.Name, header.RecordsNumber, size)

	return SeriesResponse{
		ID:          series.ID.String(),
		Name:        series.Name,
		Origin:      header.OriginDate.String(),
		CreatedAt:   series.CreatedAt,
		RecordCount: header.RecordsNumber,
		SizeBytes:   size,
	}, nil
}

// handleHealth reports that the server is up
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleListSeries returns every registered series
func (s *Server) handleListSeries(w http.ResponseWriter, r *http.Request) {
	var all []*catalog.Series
	err := s.timed("list_series", func() (err error) {
		all, err = s.manager.List()
		return err
	})
	if err != nil {
		s.fail(w, "Failed to list series", err)
		return
	}

	s.metrics.SetSeriesCount(len(all))
	sendSuccess(w, all)
}

// handleCreateSeries registers a series and writes its database file
func (s *Server) handleCreateSeries(w http.ResponseWriter, r *http.Request) {
	var req CreateSeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid JSON request", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		sendError(w, "name is required", http.StatusBadRequest)
		return
	}

	var (
		series *catalog.Series
		db     *store.PhysicalDB
	)
	err := s.timed("create_series", func() (err error) {
		series, db, err = s.manager.Create(req.Name, req.Origin)
		return err
	})
	if err != nil {
		s.fail(w, "Failed to create series", err)
		return
	}

	resp, err := s.describe(series, db)
	if err != nil {
		s.fail(w, "Failed to read series", err)
		return
	}
	sendCreated(w, resp)
}

// handleGetSeries returns a series with its header and file size
func (s *Server) handleGetSeries(w http.ResponseWriter, r *http.Request) {
	series, db, err := s.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "Failed to get series", err)
		return
	}

	resp, err := s.describe(series, db)
	if err != nil {
		s.fail(w, "Failed to read series", err)
		return
	}
	sendSuccess(w, resp)
}

// handleDeleteSeries unregisters a series and removes its file
func (s *Server) handleDeleteSeries(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "id")
	// A series whose file no longer loads can still be deleted
	series, _, err := s.manager.Get(ref)
	if errors.Is(err, catalog.ErrNotFound) {
		s.fail(w, "Failed to delete series", err)
		return
	}
	if err != nil {
		s.log.WithError(err).WithField("series", ref).Debug("deleting series that failed to load")
	}

	if err := s.timed("delete_series", func() error { return s.manager.Remove(ref) }); err != nil {
		s.fail(w, "Failed to delete series", err)
		return
	}

	if series != nil {
		s.metrics.ForgetSeries(series.Name)
	}
	sendSuccess(w, map[string]string{"message": "Series deleted successfully"})
}

// handleAppendRecord appends one record to a series
func (s *Server) handleAppendRecord(w http.ResponseWriter, r *http.Request) {
	var req AppendRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid JSON request", http.StatusBadRequest)
		return
	}
	if req.Value == nil || *req.Value < 0 || *req.Value > math.MaxUint8 {
		sendError(w, "value must be an integer between 0 and 255", http.StatusBadRequest)
		return
	}
	if (req.TimeOffset == nil) == (req.At == nil) {
		sendError(w, "exactly one of time_offset and at is required", http.StatusBadRequest)
		return
	}

	series, db, err := s.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "Failed to get series", err)
		return
	}

	value := uint8(*req.Value)
	var record codec.RecordInfo
	err = s.timed("append", func() (err error) {
		if req.At != nil {
			record, err = db.AppendAt(*req.At, value)
			return err
		}
		record = codec.RecordInfo{TimeOffset: *req.TimeOffset, Value: value}
		return db.AppendRecord(record)
	})
	if err != nil {
		s.fail(w, "Failed to append record", err)
		return
	}

	header := db.Header()
	if size, err := db.Size(); err == nil {
		s.metrics.UpdateSeries(series.Name, header.RecordsNumber, size)
	}

	sendCreated(w, newRecordResponse(header.OriginDate, header.RecordsNumber-1, record))
}

// handleListRecords returns a page of records. Query parameters: from
// (first index, default 0) and limit (default 100, at most 10000).
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	from, err := queryUint(r, "from", 0)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := queryUint(r, "limit", defaultRecordLimit)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if limit > maxRecordLimit {
		limit = maxRecordLimit
	}

	_, db, err := s.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "Failed to get series", err)
		return
	}

	var records []codec.RecordInfo
	err = s.timed("read_records", func() (err error) {
		records, err = db.Records(from, limit)
		return err
	})
	if err != nil {
		s.fail(w, "Failed to read records", err)
		return
	}

	origin := db.Header().OriginDate
	resp := make([]RecordResponse, 0, len(records))
	for i, record := range records {
		resp = append(resp, newRecordResponse(origin, from+uint64(i), record))
	}
	sendSuccess(w, resp)
}

// handleGetRecord returns the record at one index
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(chi.URLParam(r, "index"), 10, 64)
	if err != nil {
		sendError(w, "index must be a non-negative integer", http.StatusBadRequest)
		return
	}

	_, db, err := s.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "Failed to get series", err)
		return
	}

	header, err := db.ReadHeader()
	if err != nil {
		s.fail(w, "Failed to read header", err)
		return
	}
	if index >= header.RecordsNumber {
		sendError(w, fmt.Sprintf("record %d not found", index), http.StatusNotFound)
		return
	}

	var record codec.RecordInfo
	err = s.timed("read_record", func() (err error) {
		record, err = db.ReadRecord(index)
		return err
	})
	if err != nil {
		s.fail(w, "Failed to read record", err)
		return
	}
	sendSuccess(w, newRecordResponse(header.OriginDate, index, record))
}

// handleCheck runs a consistency check and returns the first issue found
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	_, db, release, err := s.manager.Attach(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "Failed to get series", err)
		return
	}
	defer release()

	var issue store.DbIssue
	err = s.timed("check", func() (err error) {
		issue, err = db.CheckFile()
		return err
	})
	if err != nil {
		s.fail(w, "Failed to check series", err)
		return
	}

	if !issue.IsNone() {
		s.metrics.RecordIssue(issue.Kind.String())
	}
	sendSuccess(w, issue)
}

// handleRepair fixes every repairable issue in a series
func (s *Server) handleRepair(w http.ResponseWriter, r *http.Request) {
	series, db, release, err := s.manager.Attach(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "Failed to get series", err)
		return
	}
	defer release()

	var fixed []store.DbIssue
	err = s.timed("repair", func() (err error) {
		fixed, err = db.Repair()
		return err
	})
	for _, issue := range fixed {
		s.metrics.RecordIssue(issue.Kind.String())
	}
	if err != nil {
		s.fail(w, "Failed to repair series", err)
		return
	}

	s.log.WithFields(logrus.Fields{
		"series": series.Name,
		"fixed":  len(fixed),
	}).Info("repaired series")
	sendSuccess(w, RepairResponse{Fixed: fixed})
}

// refreshSeriesMetrics updates the per-series gauges from disk
func (s *Server) refreshSeriesMetrics() {
	all, err := s.manager.List()
	if err != nil {
		s.log.WithError(err).Warn("failed to list series for metrics")
		return
	}
	s.metrics.SetSeriesCount(len(all))

	for _, series := range all {
		_, db, err := s.manager.Get(series.ID.String())
		if err != nil {
			s.log.WithError(err).WithField("series", series.Name).Debug("skipping series metrics")
			continue
		}
		if _, err := s.describe(series, db); err != nil {
			s.log.WithError(err).WithField("series", series.Name).Debug("skipping series metrics")
		}
	}
}

// startMetricsUpdater periodically updates series metrics until ctx is done
func (s *Server) startMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.refreshSeriesMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshSeriesMetrics()
		}
	}
}

func queryUint(r *http.Request, name string, fallback uint64) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}
