package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/HerbHall/switchmap/internal/directory"
)

// EnvPrefix prefixes environment overrides: SWITCHMAP_DATABASE_PATH=...
const EnvPrefix = "SWITCHMAP"

// Load reads configuration from configPath, or from switchmap.yaml in the
// usual locations when configPath is empty, layered over defaults and
// SWITCHMAP_* environment variables. A missing default config file is not
// an error; a missing explicit one is.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("switchmap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/switchmap")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return &Config{v: v}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.path", "switchmap.db")

	v.SetDefault("snmp.transport", TransportGoSNMP)
	v.SetDefault("snmp.version", "2c")
	v.SetDefault("snmp.port", 161)
	v.SetDefault("snmp.timeout", "5s")
	v.SetDefault("snmp.retries", 1)
	v.SetDefault("snmp.max_repetitions", 0)
	v.SetDefault("snmp.snmpwalk_path", "snmpwalk")

	v.SetDefault("collector.concurrency", 8)
	v.SetDefault("collector.query_timeout", "30s")
	v.SetDefault("collector.queries_per_second", 0)
	v.SetDefault("collector.detect_vendor", true)
	v.SetDefault("collector.resolve_bridge_ports", false)
	v.SetDefault("collector.ping_precheck", false)
	v.SetDefault("collector.ping_timeout", "2s")
	v.SetDefault("collector.ping_count", 1)

	v.SetDefault("directory.type", directory.TypeStatic)
	v.SetDefault("directory.default_community", "public")
	v.SetDefault("directory.hosts_file", "")
	v.SetDefault("directory.zabbix.dsn", "")
	v.SetDefault("directory.zabbix.url", "")
	v.SetDefault("directory.zabbix.user", "")
	v.SetDefault("directory.zabbix.password", "")
	v.SetDefault("directory.zabbix.group_id", 0)
	v.SetDefault("directory.zabbix.templates", directory.DefaultTemplates)
	v.SetDefault("directory.zabbix.timeout", "10s")
	v.SetDefault("directory.zabbix.legacy_auth", false)

	v.SetDefault("ssh.hosts_file", "")
	v.SetDefault("ssh.username", "")
	v.SetDefault("ssh.password", "")
	v.SetDefault("ssh.port", 22)
	v.SetDefault("ssh.dial_timeout", "20s")
	v.SetDefault("ssh.command_timeout", "60s")
	v.SetDefault("ssh.concurrency", 4)
	v.SetDefault("ssh.profiles_file", "")
	v.SetDefault("ssh.failure_log", "")
	v.SetDefault("ssh.known_hosts", "")
	v.SetDefault("ssh.legacy_algorithms", false)

	v.SetDefault("metrics.textfile", "")
}
