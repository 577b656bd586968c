package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/switchmap/internal/store"
	"github.com/HerbHall/switchmap/pkg/models"
)

// Compile-time interface guard.
var _ Repository = (*Store)(nil)

// Store implements Repository on the shared SQLite database.
type Store struct {
	db     *store.SQLiteStore
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New runs the inventory migrations on db and returns a ready Store.
func New(ctx context.Context, db *store.SQLiteStore, opts ...Option) (*Store, error) {
	s := &Store{
		db:     db,
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
		locks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := db.Migrate(ctx, Component, migrations()); err != nil {
		return nil, fmt.Errorf("migrate inventory: %w", err)
	}
	return s, nil
}

// switchLock returns the mutex serializing writes for one switch name.
func (s *Store) switchLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

const (
	insertSQL = `INSERT INTO network_inventory
		(switch_name, switch_ip, vendor, mac_address, port_name, vlan, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (switch_name, mac_address, port_name, vlan) DO NOTHING`

	touchSQL = `UPDATE network_inventory SET updated_at = ?
		WHERE switch_name = ? AND mac_address = ? AND port_name = ? AND vlan = ?`
)

// Upsert inserts new (switch, MAC, port, VLAN) tuples with
// created_at = updated_at = now and refreshes only updated_at on tuples
// that already exist. Each record runs under its own savepoint so one bad
// record does not undo the rest of the batch.
func (s *Store) Upsert(ctx context.Context, sw Switch, records []models.Observation) (Result, error) {
	var res Result
	if len(records) == 0 {
		return res, nil
	}

	lock := s.switchLock(sw.Name)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()
	err := s.db.Tx(ctx, func(tx *sql.Tx) error {
		insert, err := tx.PrepareContext(ctx, insertSQL)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer insert.Close()

		touch, err := tx.PrepareContext(ctx, touchSQL)
		if err != nil {
			return fmt.Errorf("prepare update: %w", err)
		}
		defer touch.Close()

		for _, rec := range records {
			inserted, err := upsertOne(ctx, tx, insert, touch, sw, rec, now)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				res.Failed++
				res.Errors = append(res.Errors, &RecordError{Observation: rec, Err: err})
				continue
			}
			if inserted {
				res.Inserted++
			} else {
				res.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("upsert inventory for %q: %w", sw.Name, err)
	}

	s.logger.Debug("inventory upserted",
		zap.String("switch", sw.Name),
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func upsertOne(ctx context.Context, tx *sql.Tx, insert, touch *sql.Stmt, sw Switch, rec models.Observation, now time.Time) (bool, error) {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT record"); err != nil {
		return false, err
	}

	inserted, err := func() (bool, error) {
		r, err := insert.ExecContext(ctx, sw.Name, sw.Address, string(sw.Vendor), rec.MAC, rec.Port, rec.VLAN, now, now)
		if err != nil {
			return false, err
		}
		n, err := r.RowsAffected()
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
		if _, err := touch.ExecContext(ctx, now, sw.Name, rec.MAC, rec.Port, rec.VLAN); err != nil {
			return false, err
		}
		return false, nil
	}()
	if err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO record"); rbErr != nil {
			return false, errors.Join(err, rbErr)
		}
		_, _ = tx.ExecContext(ctx, "RELEASE record")
		return false, err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE record"); err != nil {
		return false, err
	}
	return inserted, nil
}

// columns is the shared column list for inventory queries.
const columns = `switch_name, switch_ip, vendor, mac_address, port_name, vlan, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.InventoryRecord, error) {
	var (
		r      models.InventoryRecord
		vendor string
	)
	if err := row.Scan(&r.SwitchName, &r.SwitchAddress, &vendor, &r.MACAddress,
		&r.PortName, &r.VLAN, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Vendor = models.Vendor(vendor)
	return &r, nil
}

func (s *Store) Get(ctx context.Context, key Key) (*models.InventoryRecord, error) {
	row := s.db.DB().QueryRowContext(ctx,
		`SELECT `+columns+` FROM network_inventory
		WHERE switch_name = ? AND mac_address = ? AND port_name = ? AND vlan = ?`,
		key.SwitchName, key.MACAddress, key.PortName, key.VLAN)
	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get inventory %s/%s: %w", key.SwitchName, key.MACAddress, err)
	}
	return r, nil
}

func (s *Store) List(ctx context.Context, filter Filter, opts ListOptions) (*ListResult[models.InventoryRecord], error) {
	opts = normalizeListOptions(opts)

	sortCol := "updated_at"
	if col, ok := sortColumns[opts.SortBy]; ok {
		sortCol = col
	}

	where := "1=1"
	var args []any
	if filter.SwitchName != "" {
		where += " AND switch_name = ?"
		args = append(args, filter.SwitchName)
	}
	if filter.MACAddress != "" {
		where += " AND mac_address = ?"
		args = append(args, filter.MACAddress)
	}
	if filter.VLAN != "" {
		where += " AND vlan = ?"
		args = append(args, filter.VLAN)
	}
	if filter.Search != "" {
		where += " AND (switch_name LIKE ? OR mac_address LIKE ? OR port_name LIKE ?)"
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	var total int
	//nolint:gosec // where uses parameterized placeholders only
	err := s.db.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM network_inventory WHERE "+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count inventory: %w", err)
	}

	queryArgs := make([]any, 0, len(args)+2)
	queryArgs = append(queryArgs, args...)
	queryArgs = append(queryArgs, opts.Limit, opts.Offset)

	orderDir := "DESC"
	if opts.SortOrder == "asc" {
		orderDir = "ASC"
	}

	//nolint:gosec // where and sortCol are validated above, not user input
	query := fmt.Sprintf(
		"SELECT %s FROM network_inventory WHERE %s ORDER BY %s %s, rowid ASC LIMIT ? OFFSET ?",
		columns, where, sortCol, orderDir,
	)

	rows, err := s.db.DB().QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	items := []models.InventoryRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory row: %w", err)
		}
		items = append(items, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory: %w", err)
	}

	return &ListResult[models.InventoryRecord]{Items: items, Total: total}, nil
}
