package connector

import (
	"context"
	"fmt"

	"github.com/vitalink/platform/pkg/canonical"
	"github.com/vitalink/platform/pkg/hospital"
	"github.com/vitalink/platform/pkg/hospital/hospitaldb"
)

// DBViewPuller reads the configured query, or the whole configured view,
// from the hospital database. Any connection or query error is run-fatal;
// there are no partial results.
type DBViewPuller struct {
	sessions hospitaldb.Factory
}

func (p *DBViewPuller) Fetch(ctx context.Context, cfg *hospital.Config) ([]canonical.RawRecord, error) {
	if cfg.DB == nil {
		return nil, nil
	}

	query := cfg.DB.Query
	if query == "" {
		query = fmt.Sprintf("SELECT * FROM %s", cfg.DB.ViewName)
	}

	session, err := p.sessions(cfg.DB)
	if err != nil {
		return nil, &ConnectorError{Op: "db_view_fetch", Err: err}
	}
	defer session.Close()

	rows, err := session.Query(query)
	if err != nil {
		return nil, &ConnectorError{Op: "db_view_fetch", Err: err}
	}

	records := make([]canonical.RawRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, canonical.RawRecord(row))
	}
	return records, nil
}
