// Package connector bridges a hospital's native data source or sink to raw,
// untyped records. The four variants form a closed set resolved from the
// configured connector type before any pipeline run; unknown tags are
// rejected by the factory, never deep in the pipeline.
package connector

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vitalink/platform/pkg/canonical"
	"github.com/vitalink/platform/pkg/hospital"
	"github.com/vitalink/platform/pkg/hospital/hospitaldb"
)

// ConnectorError is an I/O failure acquiring or accepting raw records. It is
// fatal to the pipeline run it occurs in.
type ConnectorError struct {
	Op  string
	Err error
}

func (e *ConnectorError) Error() string {
	return fmt.Sprintf("connector %s: %v", e.Op, e.Err)
}

func (e *ConnectorError) Unwrap() error { return e.Err }

// Puller acquires raw records on a scheduler tick.
type Puller interface {
	Fetch(ctx context.Context, cfg *hospital.Config) ([]canonical.RawRecord, error)
}

// Pusher accepts raw records delivered by the hospital.
type Pusher interface {
	Receive(ctx context.Context, cfg *hospital.Config, payload interface{}) ([]canonical.RawRecord, error)
}

// Inserter is the optional push-side capability of writing accepted records
// into the hospital's own store. Satisfied by DBInsertPusher.
type Inserter interface {
	Insert(cfg *hospital.Config, record map[string]interface{}) (int, error)
}

// Factory resolves connector variants and carries their I/O collaborators.
type Factory struct {
	Sessions   hospitaldb.Factory
	HTTPClient *http.Client
}

func (f *Factory) Puller(connectorType hospital.ConnectorType) (Puller, error) {
	switch connectorType {
	case hospital.ConnectorPullDBView:
		return &DBViewPuller{sessions: f.sessions()}, nil
	case hospital.ConnectorPullRESTAPI:
		return &RESTPuller{client: f.HTTPClient}, nil
	default:
		return nil, fmt.Errorf("connector type %q is not a pull variant", connectorType)
	}
}

func (f *Factory) Pusher(connectorType hospital.ConnectorType) (Pusher, error) {
	switch connectorType {
	case hospital.ConnectorPushRESTAPI:
		return &RESTPusher{}, nil
	case hospital.ConnectorPushDBInsert:
		return &DBInsertPusher{sessions: f.sessions()}, nil
	default:
		return nil, fmt.Errorf("connector type %q is not a push variant", connectorType)
	}
}

func (f *Factory) sessions() hospitaldb.Factory {
	if f.Sessions != nil {
		return f.Sessions
	}
	return hospitaldb.Open
}
