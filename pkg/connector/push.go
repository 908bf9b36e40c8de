package connector

import (
	"context"
	"fmt"
	"strings"

	"github.com/vitalink/platform/pkg/canonical"
	"github.com/vitalink/platform/pkg/hospital"
	"github.com/vitalink/platform/pkg/hospital/hospitaldb"
)

// RESTPusher accepts an inbound push payload synchronously: a single object
// becomes a one-element sequence, a list passes through.
type RESTPusher struct{}

func (p *RESTPusher) Receive(ctx context.Context, cfg *hospital.Config, payload interface{}) ([]canonical.RawRecord, error) {
	return wrapPayload(payload)
}

// DBInsertPusher accepts push payloads the same way and additionally writes
// one row per canonical record into the configured hospital table.
type DBInsertPusher struct {
	sessions hospitaldb.Factory
}

func (p *DBInsertPusher) Receive(ctx context.Context, cfg *hospital.Config, payload interface{}) ([]canonical.RawRecord, error) {
	return wrapPayload(payload)
}

// Insert writes one accepted record into the configured insert table,
// sourcing values by column name from the flat hospital record. Without
// table or column configuration it is a no-op reporting zero inserted rows.
func (p *DBInsertPusher) Insert(cfg *hospital.Config, record map[string]interface{}) (int, error) {
	if cfg.DB == nil || cfg.DB.InsertTable == "" || len(cfg.DB.InsertColumns) == 0 {
		return 0, nil
	}

	columns := cfg.DB.InsertColumns
	values := make([]interface{}, len(columns))
	for i, column := range columns {
		values[i] = record[column]
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		cfg.DB.InsertTable, strings.Join(columns, ", "), placeholders,
	)

	session, err := p.sessions(cfg.DB)
	if err != nil {
		return 0, &ConnectorError{Op: "db_push_insert", Err: err}
	}
	defer session.Close()

	if err := session.Exec(query, values...); err != nil {
		return 0, &ConnectorError{Op: "db_push_insert", Err: err}
	}
	return 1, nil
}

func wrapPayload(payload interface{}) ([]canonical.RawRecord, error) {
	switch body := payload.(type) {
	case []interface{}:
		return asRawRecords(body), nil
	case map[string]interface{}:
		return []canonical.RawRecord{canonical.RawRecord(body)}, nil
	case canonical.RawRecord:
		return []canonical.RawRecord{body}, nil
	default:
		return nil, &ConnectorError{Op: "push_receive", Err: fmt.Errorf("unsupported payload shape %T", payload)}
	}
}
