package pipeline

import (
	"context"

	"github.com/vitalink/platform/pkg/canonical"
	"github.com/vitalink/platform/pkg/connector"
	"github.com/vitalink/platform/pkg/hospital"
	"github.com/vitalink/platform/pkg/transform"
)

// PushResult is returned synchronously to the push caller. A failed
// confirmation write is a structured outcome, not an error.
type PushResult struct {
	Status    string                    `json:"status"`
	ErrorCode string                    `json:"error_code,omitempty"`
	Response  *canonical.ClientResponse `json:"response,omitempty"`
	Inserted  int                       `json:"inserted,omitempty"`
}

const (
	PushStatusOK                = "ok"
	PushStatusPostprocessFailed = "postprocess_failed"
)

// ReceivePush runs the push path: transform, dispatch, confirm, once per
// canonical record in the delivered payload. Unlike the pull path there is
// no run-level telemetry wrapper; the outcome goes straight back to the
// invoker. Parse, connector and dispatch failures return an error for the
// endpoint to surface as a structured error response.
func (r *Runner) ReceivePush(ctx context.Context, cfg *hospital.Config, payload interface{}) (*PushResult, error) {
	transformer, err := transform.New(cfg.TransformProfile)
	if err != nil {
		return nil, err
	}
	pusher, err := r.connectors.Pusher(cfg.ConnectorType)
	if err != nil {
		return nil, err
	}

	raw, err := pusher.Receive(ctx, cfg, payload)
	if err != nil {
		return nil, err
	}

	var lastResponse *canonical.ClientResponse
	inserted := 0
	for _, fields := range raw {
		record, err := transformer.ToCanonical(fields)
		if err != nil {
			return nil, err
		}

		// The insert sources values by column name from the flat hospital
		// record, not the nested canonical form.
		if inserter, ok := pusher.(connector.Inserter); ok {
			n, err := inserter.Insert(cfg, fields)
			if err != nil {
				return nil, err
			}
			inserted += n
		}

		response, err := r.dispatcher.Send(ctx, transformer.ToBackend(record))
		if err != nil {
			return nil, err
		}
		lastResponse = transformer.FromBackend(response)

		result := r.executor.Run(cfg, record.ToMap())
		if !result.Success {
			return &PushResult{
				Status:    PushStatusPostprocessFailed,
				ErrorCode: result.ErrorCode,
				Inserted:  inserted,
			}, nil
		}
	}

	return &PushResult{
		Status:   PushStatusOK,
		Response: lastResponse,
		Inserted: inserted,
	}, nil
}
