// Package inventory persists MAC/port/VLAN observations in the
// network_inventory table with first-seen and last-seen timestamps.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/HerbHall/switchmap/pkg/models"
)

// ListOptions controls pagination and sorting for list queries.
type ListOptions struct {
	Limit     int    // Max results per page (default 50, max 1000).
	Offset    int    // Number of results to skip.
	SortBy    string // Column name (validated against sortColumns).
	SortOrder string // "asc" or "desc" (default "desc").
}

// ListResult wraps a paginated result set with a total count.
type ListResult[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// Filter controls which rows List returns. Empty fields match everything.
type Filter struct {
	SwitchName string
	MACAddress string
	VLAN       string
	Search     string // Substring of switch name, MAC, or port name.
}

// Key identifies one inventory row.
type Key struct {
	SwitchName string
	MACAddress string
	PortName   string
	VLAN       string
}

// Switch describes the device a batch of observations came from.
type Switch struct {
	Name    string
	Address string
	Vendor  models.Vendor
}

// Result reports the outcome of one Upsert batch.
type Result struct {
	Inserted int
	Updated  int
	Failed   int
	Errors   []error
}

// Applied is the number of records written, new or refreshed.
func (r Result) Applied() int {
	return r.Inserted + r.Updated
}

// ErrNotFound is returned by Get when no row matches the key.
var ErrNotFound = errors.New("not found")

// RecordError wraps a failure to upsert a single observation.
type RecordError struct {
	Observation models.Observation
	Err         error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("upsert %s on %q vlan %q: %v", e.Observation.MAC, e.Observation.Port, e.Observation.VLAN, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Repository is the read/write surface of the inventory.
type Repository interface {
	// Upsert records every observation for sw. Per-record failures are
	// reported in Result; the error is non-nil only when the batch as a
	// whole could not run.
	Upsert(ctx context.Context, sw Switch, records []models.Observation) (Result, error)

	// Get returns a single row by its unique key.
	Get(ctx context.Context, key Key) (*models.InventoryRecord, error)

	// List returns a filtered, paginated list of rows.
	List(ctx context.Context, filter Filter, opts ListOptions) (*ListResult[models.InventoryRecord], error)
}

var sortColumns = map[string]string{
	"switch_name": "switch_name",
	"mac_address": "mac_address",
	"port_name":   "port_name",
	"vlan":        "vlan",
	"created_at":  "created_at",
	"updated_at":  "updated_at",
}

// normalizeListOptions applies defaults and caps to list options.
func normalizeListOptions(opts ListOptions) ListOptions {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Limit > 1000 {
		opts.Limit = 1000
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if opts.SortOrder != "asc" {
		opts.SortOrder = "desc"
	}
	return opts
}
