package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/HerbHall/switchmap/pkg/models"
)

// Compile-time interface guard.
var _ Directory = (*ZabbixSQL)(nil)

// zabbixHostsQuery lists SNMP interfaces (type 2) of hosts in one group
// with their linked templates. A host linked to several templates yields
// several rows.
const zabbixHostsQuery = `SELECT h.host, hi.ip, si.community, ht.templateid
FROM hosts h
JOIN hosts_groups hg ON h.hostid = hg.hostid
JOIN interface hi ON h.hostid = hi.hostid
LEFT JOIN interface_snmp si ON si.interfaceid = hi.interfaceid
LEFT JOIN hosts_templates ht ON h.hostid = ht.hostid
WHERE hg.groupid = ? AND hi.type = 2
ORDER BY h.host, hi.main DESC`

// ZabbixSQL reads devices directly from the Zabbix MySQL schema.
type ZabbixSQL struct {
	db               *sql.DB
	groupID          int
	templates        map[int64]models.Vendor
	defaultCommunity string
	timeout          time.Duration
	logger           *zap.Logger
}

// NewZabbixSQL opens a MySQL connection pool for cfg.DSN. The DSN is
// validated here; the first connection is made by Devices.
func NewZabbixSQL(cfg ZabbixConfig, defaultCommunity string, logger *zap.Logger) (*ZabbixSQL, error) {
	if cfg.DSN == "" {
		return nil, errors.New("zabbix_sql directory requires directory.zabbix.dsn")
	}
	mcfg, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse zabbix dsn: %w", err)
	}
	if cfg.Timeout > 0 && mcfg.Timeout == 0 {
		mcfg.Timeout = cfg.Timeout
	}
	connector, err := mysql.NewConnector(mcfg)
	if err != nil {
		return nil, fmt.Errorf("create mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(10 * time.Minute)

	return NewZabbixSQLFromDB(db, cfg, defaultCommunity, logger)
}

// NewZabbixSQLFromDB wraps an existing database handle.
func NewZabbixSQLFromDB(db *sql.DB, cfg ZabbixConfig, defaultCommunity string, logger *zap.Logger) (*ZabbixSQL, error) {
	templates, err := templateVendors(cfg.Templates)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ZabbixSQL{
		db:               db,
		groupID:          cfg.GroupID,
		templates:        templates,
		defaultCommunity: defaultCommunity,
		timeout:          timeout,
		logger:           logger,
	}, nil
}

func (z *ZabbixSQL) Devices(ctx context.Context) ([]models.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, z.timeout)
	defer cancel()

	if err := z.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping zabbix database: %w", err)
	}

	rows, err := z.db.QueryContext(ctx, zabbixHostsQuery, z.groupID)
	if err != nil {
		return nil, fmt.Errorf("query zabbix hosts: %w", err)
	}
	defer rows.Close()

	c := newCollector()
	for rows.Next() {
		var (
			host, ip   string
			comm       sql.NullString
			templateID sql.NullInt64
		)
		if err := rows.Scan(&host, &ip, &comm, &templateID); err != nil {
			return nil, fmt.Errorf("scan zabbix host: %w", err)
		}
		vendor := models.VendorUnknown
		if templateID.Valid {
			if v, ok := z.templates[templateID.Int64]; ok {
				vendor = v
			}
		}
		c.add(models.Device{
			Hostname:   host,
			Address:    ip,
			Credential: community(comm.String, z.defaultCommunity),
			Vendor:     vendor,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zabbix hosts: %w", err)
	}

	devices := c.devices()
	z.logger.Debug("zabbix database hosts loaded",
		zap.Int("group_id", z.groupID),
		zap.Int("devices", len(devices)),
	)
	return devices, nil
}

// Close releases the database pool.
func (z *ZabbixSQL) Close() error {
	return z.db.Close()
}
