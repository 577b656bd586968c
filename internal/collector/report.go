package collector

import (
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/switchmap/pkg/models"
)

// Status is the outcome of polling one device.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// DeviceReport describes what happened to one device during a run.
type DeviceReport struct {
	Hostname string
	Address  string
	Vendor   models.Vendor
	Status   Status
	Reason   string
	Err      error

	Observed     int
	Inserted     int
	Updated      int
	Failed       int
	ParseSkipped int
	Duration     time.Duration
}

func (r DeviceReport) fields() []zap.Field {
	fields := []zap.Field{
		zap.String("switch", r.Hostname),
		zap.String("address", r.Address),
		zap.String("vendor", string(r.Vendor)),
		zap.String("status", string(r.Status)),
		zap.Int("observed", r.Observed),
		zap.Int("inserted", r.Inserted),
		zap.Int("updated", r.Updated),
		zap.Int("store_failures", r.Failed),
		zap.Int("parse_skipped", r.ParseSkipped),
		zap.Duration("duration", r.Duration),
	}
	if r.Reason != "" {
		fields = append(fields, zap.String("reason", r.Reason))
	}
	if r.Err != nil {
		fields = append(fields, zap.Error(r.Err))
	}
	return fields
}

// Summary aggregates the reports of one run.
type Summary struct {
	RunID    string
	Started  time.Time
	Finished time.Time

	Devices       int
	Processed     int
	Skipped       int
	Failed        int
	Observed      int
	Inserted      int
	Updated       int
	StoreFailures int
	ParseSkipped  int

	Reports []DeviceReport
}

// NewSummary aggregates per-device reports into a run summary.
func NewSummary(runID string, started, finished time.Time, reports []DeviceReport) *Summary {
	s := &Summary{
		RunID:    runID,
		Started:  started,
		Finished: finished,
		Devices:  len(reports),
		Reports:  reports,
	}
	for _, r := range reports {
		switch r.Status {
		case StatusOK:
			s.Processed++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
		s.Observed += r.Observed
		s.Inserted += r.Inserted
		s.Updated += r.Updated
		s.StoreFailures += r.Failed
		s.ParseSkipped += r.ParseSkipped
	}
	return s
}

// Fields returns the summary as structured log fields.
func (s *Summary) Fields() []zap.Field {
	return []zap.Field{
		zap.String("run_id", s.RunID),
		zap.Int("devices", s.Devices),
		zap.Int("processed", s.Processed),
		zap.Int("skipped", s.Skipped),
		zap.Int("failed", s.Failed),
		zap.Int("observed", s.Observed),
		zap.Int("inserted", s.Inserted),
		zap.Int("updated", s.Updated),
		zap.Int("store_failures", s.StoreFailures),
		zap.Int("parse_skipped", s.ParseSkipped),
		zap.Duration("duration", s.Finished.Sub(s.Started)),
	}
}
