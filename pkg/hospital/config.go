// Package hospital models the single hospital integration this process
// drives: which connector acquires records, how to reach the hospital's own
// store, and what confirmation write runs after dispatch.
package hospital

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type ConnectorType string

const (
	ConnectorPullDBView   ConnectorType = "pull_db_view"
	ConnectorPullRESTAPI  ConnectorType = "pull_rest_api"
	ConnectorPushRESTAPI  ConnectorType = "push_rest_api"
	ConnectorPushDBInsert ConnectorType = "push_db_insert"
)

func (t ConnectorType) IsPull() bool {
	return t == ConnectorPullDBView || t == ConnectorPullRESTAPI
}

// Supported hospital database engines. Postgres connects with DSN-style
// parameters, MySQL with a connection string.
const (
	EnginePostgres = "postgres"
	EngineMySQL    = "mysql"
)

// Postprocess modes. An absent postprocess block means mode none and the
// executor trivially succeeds.
const (
	PostprocessUpdateFlag = "update_flag"
	PostprocessInsertLog  = "insert_log"
)

type DBConfig struct {
	Type             string   `yaml:"type"`
	DSN              string   `yaml:"dsn"`
	ConnectionString string   `yaml:"connection_string"`
	Host             string   `yaml:"host"`
	Port             string   `yaml:"port"`
	Database         string   `yaml:"database"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	SSLMode          string   `yaml:"sslmode"`
	ViewName         string   `yaml:"view_name"`
	Query            string   `yaml:"query"`
	InsertTable      string   `yaml:"insert_table"`
	InsertColumns    []string `yaml:"insert_columns"`
}

type APIConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

type PostprocessConfig struct {
	Mode string `yaml:"mode"`
	// Retry distinguishes absent (executor default) from an explicit bound;
	// a nonpositive bound performs no attempts.
	Retry          *int                   `yaml:"retry"`
	Table          string                 `yaml:"table"`
	KeyColumn      string                 `yaml:"key_column"`
	FlagColumn     string                 `yaml:"flag_column"`
	FlagValue      interface{}            `yaml:"flag_value"`
	KeyValue       interface{}            `yaml:"key_value"`
	KeyValueSource string                 `yaml:"key_value_source"`
	Columns        []string               `yaml:"columns"`
	Values         map[string]interface{} `yaml:"values"`
	Sources        map[string]string      `yaml:"sources"`
}

type Config struct {
	HospitalID       string             `yaml:"hospital_id"`
	ConnectorType    ConnectorType      `yaml:"connector_type"`
	Enabled          bool               `yaml:"enabled"`
	ScheduleMinutes  int                `yaml:"schedule_minutes"`
	TransformProfile string             `yaml:"transform_profile"`
	DB               *DBConfig          `yaml:"db"`
	API              *APIConfig         `yaml:"api"`
	Postprocess      *PostprocessConfig `yaml:"postprocess"`
}

// AppConfig wraps the one hospital configuration this process drives.
type AppConfig struct {
	Hospital Config `yaml:"hospital"`
}

// Load reads and validates the hospital configuration file. Unknown connector
// types, postprocess modes and database engines are rejected here, before any
// pipeline run can reach them.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hospital config: %w", err)
	}

	cfg := &AppConfig{
		Hospital: Config{Enabled: true, ScheduleMinutes: 5},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse hospital config: %w", err)
	}
	if err := cfg.Hospital.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HospitalID == "" {
		return fmt.Errorf("hospital_id is required")
	}

	switch c.ConnectorType {
	case ConnectorPullDBView, ConnectorPullRESTAPI, ConnectorPushRESTAPI, ConnectorPushDBInsert:
	default:
		return fmt.Errorf("unknown connector_type %q", c.ConnectorType)
	}

	if c.ConnectorType.IsPull() && c.ScheduleMinutes <= 0 {
		return fmt.Errorf("schedule_minutes must be positive for pull connectors")
	}

	switch c.ConnectorType {
	case ConnectorPullDBView, ConnectorPushDBInsert:
		if c.DB == nil {
			return fmt.Errorf("connector_type %s requires a db block", c.ConnectorType)
		}
	case ConnectorPullRESTAPI:
		if c.API == nil || c.API.URL == "" {
			return fmt.Errorf("connector_type %s requires an api block with url", c.ConnectorType)
		}
	}

	if c.DB != nil {
		switch c.DB.Type {
		case EnginePostgres, EngineMySQL:
		default:
			return fmt.Errorf("unsupported db type %q", c.DB.Type)
		}
	}

	if c.Postprocess != nil {
		switch c.Postprocess.Mode {
		case PostprocessUpdateFlag, PostprocessInsertLog:
		default:
			return fmt.Errorf("unknown postprocess mode %q", c.Postprocess.Mode)
		}
	}

	return nil
}
