package inventory

import (
	"database/sql"

	"github.com/HerbHall/switchmap/internal/store"
)

// Component is the name inventory migrations are tracked under.
const Component = "inventory"

func migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create network_inventory table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS network_inventory (
						switch_name TEXT     NOT NULL,
						switch_ip   TEXT     NOT NULL DEFAULT '',
						vendor      TEXT     NOT NULL DEFAULT '',
						mac_address TEXT     NOT NULL CHECK (mac_address <> ''),
						port_name   TEXT     NOT NULL,
						vlan        TEXT     NOT NULL,
						created_at  DATETIME NOT NULL,
						updated_at  DATETIME NOT NULL,
						UNIQUE (switch_name, mac_address, port_name, vlan)
					)`,
					`CREATE INDEX IF NOT EXISTS idx_network_inventory_mac ON network_inventory(mac_address)`,
				}
				for _, s := range stmts {
					if _, err := tx.Exec(s); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
