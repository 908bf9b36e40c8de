// Package hospitaldb opens short-lived sessions against a hospital's own
// database for view pulls and confirmation writes. Sessions hide the gorm
// handle behind a small interface so the executor and connectors can be
// tested without a live engine.
package hospitaldb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vitalink/platform/pkg/hospital"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var ErrUnsupportedEngine = errors.New("unsupported hospital database engine")

// Session is one open hospital database connection.
type Session interface {
	Query(query string, args ...interface{}) ([]map[string]interface{}, error)
	Exec(query string, args ...interface{}) error
	Close() error
}

// Factory opens a Session for the given hospital database configuration.
// Tests substitute their own.
type Factory func(cfg *hospital.DBConfig) (Session, error)

// Open connects to the configured engine. Connection parameters are
// engine-specific: DSN-style for postgres, connection-string-style for mysql.
func Open(cfg *hospital.DBConfig) (Session, error) {
	if cfg == nil {
		return nil, errors.New("missing hospital database configuration")
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case hospital.EnginePostgres:
		dsn, err := postgresDSN(cfg)
		if err != nil {
			return nil, err
		}
		dialector = postgres.Open(dsn)
	case hospital.EngineMySQL:
		dsn, err := mysqlDSN(cfg)
		if err != nil {
			return nil, err
		}
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEngine, cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to hospital database: %w", err)
	}
	return &gormSession{db: db}, nil
}

func postgresDSN(cfg *hospital.DBConfig) (string, error) {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return dsn, nil
	}
	if cfg.Host == "" || cfg.Database == "" {
		return "", errors.New("incomplete postgres connection parameters")
	}
	port := cfg.Port
	if port == "" {
		port = "5432"
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.Host, cfg.Username, cfg.Password, cfg.Database, port, sslmode,
	), nil
}

func mysqlDSN(cfg *hospital.DBConfig) (string, error) {
	if conn := strings.TrimSpace(cfg.ConnectionString); conn != "" {
		return conn, nil
	}
	if cfg.Host == "" || cfg.Database == "" {
		return "", errors.New("incomplete mysql connection parameters")
	}
	port := cfg.Port
	if port == "" {
		port = "3306"
	}
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.Username, cfg.Password, cfg.Host, port, cfg.Database,
	), nil
}

type gormSession struct {
	db *gorm.DB
}

func (s *gormSession) Query(query string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := s.db.Raw(query, args...).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		record := make(map[string]interface{}, len(columns))
		for i, name := range columns {
			if raw, ok := values[i].([]byte); ok {
				record[name] = string(raw)
				continue
			}
			record[name] = values[i]
		}
		results = append(results, record)
	}
	return results, rows.Err()
}

func (s *gormSession) Exec(query string, args ...interface{}) error {
	return s.db.Exec(query, args...).Error
}

func (s *gormSession) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
