// Package pipeline orchestrates one hospital integration run: acquire raw
// records, normalize, dispatch to the backend scorer, confirm in the
// hospital's own store, and account for the whole run in the telemetry
// ledger. Run-fatal errors (parse, connector, dispatch) are caught only
// here, at the run boundary.
package pipeline

import (
	"context"
	"time"

	"github.com/vitalink/platform/pkg/canonical"
	"github.com/vitalink/platform/pkg/common/logger"
	"github.com/vitalink/platform/pkg/connector"
	"github.com/vitalink/platform/pkg/dispatch"
	"github.com/vitalink/platform/pkg/hospital"
	"github.com/vitalink/platform/pkg/observability/metrics"
	"github.com/vitalink/platform/pkg/postprocess"
	"github.com/vitalink/platform/pkg/telemetry"
	"github.com/vitalink/platform/pkg/transform"
)

// PipelineErrorCode marks a run aborted by a parse, connector or dispatch
// failure in the status ledger.
const PipelineErrorCode = "PIPE_STAGE_001"

// PostprocessRunner is the executor contract; satisfied by
// *postprocess.Executor.
type PostprocessRunner interface {
	Run(cfg *hospital.Config, record map[string]interface{}) postprocess.Result
}

type Runner struct {
	ledger     telemetry.Ledger
	dispatcher dispatch.Dispatcher
	executor   PostprocessRunner
	connectors *connector.Factory
}

func NewRunner(ledger telemetry.Ledger, dispatcher dispatch.Dispatcher, executor PostprocessRunner, connectors *connector.Factory) *Runner {
	return &Runner{
		ledger:     ledger,
		dispatcher: dispatcher,
		executor:   executor,
		connectors: connectors,
	}
}

// RunPull executes the full pull pipeline for one hospital configuration.
// It never returns an error: every outcome is reflected in the ledger. Run
// status is "success" whenever no error escaped the stages, even when the
// final record's confirmation write failed; confirmation health is tracked
// separately through the postprocess failure counter.
func (r *Runner) RunPull(ctx context.Context, cfg *hospital.Config) {
	start := time.Now().UTC()
	r.logEvent(ctx, &telemetry.Event{
		Level:      telemetry.LevelInfo,
		Name:       "pipeline_start",
		HospitalID: cfg.HospitalID,
		Stage:      "fetch",
		Message:    "starting pull run",
	})

	recordCount, postprocessOK, err := r.runPull(ctx, cfg)
	now := time.Now().UTC()

	if err != nil {
		r.logEvent(ctx, &telemetry.Event{
			Level:      telemetry.LevelError,
			Name:       "pipeline_failed",
			HospitalID: cfg.HospitalID,
			Stage:      "pipeline",
			ErrorCode:  PipelineErrorCode,
			Message:    err.Error(),
		})
		status := &telemetry.Status{
			HospitalID:    cfg.HospitalID,
			LastRunAt:     now,
			LastStatus:    telemetry.StatusFailure,
			LastErrorCode: PipelineErrorCode,
		}
		if err := r.ledger.UpsertStatus(ctx, status, false); err != nil {
			logger.Log.WithError(err).Error("Failed to upsert hospital status")
		}
		metrics.ObservePipelineRun(false, 0, false)
		return
	}

	duration := now.Sub(start).Milliseconds()
	r.logEvent(ctx, &telemetry.Event{
		Level:       telemetry.LevelInfo,
		Name:        "pipeline_complete",
		HospitalID:  cfg.HospitalID,
		Stage:       "postprocess",
		Message:     "pull run complete",
		DurationMS:  &duration,
		RecordCount: &recordCount,
	})
	status := &telemetry.Status{
		HospitalID:    cfg.HospitalID,
		LastRunAt:     now,
		LastSuccessAt: &now,
		LastStatus:    telemetry.StatusSuccess,
	}
	if err := r.ledger.UpsertStatus(ctx, status, !postprocessOK); err != nil {
		logger.Log.WithError(err).Error("Failed to upsert hospital status")
	}
	metrics.ObservePipelineRun(true, recordCount, !postprocessOK)
}

// runPull returns the number of canonical records produced (the completion
// event records this, not the count successfully postprocessed), whether all
// confirmation writes succeeded, and the run-fatal error if one occurred.
func (r *Runner) runPull(ctx context.Context, cfg *hospital.Config) (int, bool, error) {
	transformer, err := transform.New(cfg.TransformProfile)
	if err != nil {
		return 0, true, err
	}
	puller, err := r.connectors.Puller(cfg.ConnectorType)
	if err != nil {
		return 0, true, err
	}

	raw, err := puller.Fetch(ctx, cfg)
	if err != nil {
		return 0, true, err
	}

	// A transform failure is not caught per record: it aborts the rest of
	// the run the same way a connector failure does.
	records := make([]*canonical.Payload, 0, len(raw))
	for _, fields := range raw {
		payload, err := transformer.ToCanonical(fields)
		if err != nil {
			return 0, true, err
		}
		records = append(records, payload)
	}

	postprocessOK := true
	for _, payload := range records {
		response, err := r.dispatcher.Send(ctx, transformer.ToBackend(payload))
		if err != nil {
			return len(records), postprocessOK, err
		}
		_ = transformer.FromBackend(response)

		result := r.executor.Run(cfg, payload.ToMap())
		if !result.Success {
			postprocessOK = false
			one := 1
			r.logEvent(ctx, &telemetry.Event{
				Level:       telemetry.LevelError,
				Name:        "postprocess_failed",
				HospitalID:  cfg.HospitalID,
				Stage:       "postprocess",
				ErrorCode:   result.ErrorCode,
				Message:     "confirmation write failed",
				RecordCount: &one,
			})
			// The pull pipeline stops at the first confirmation failure.
			break
		}
	}

	return len(records), postprocessOK, nil
}

// logEvent writes to the structured log and the durable ledger; the ledger
// row is the audit trail, the log line is for operators.
func (r *Runner) logEvent(ctx context.Context, event *telemetry.Event) {
	entry := logger.Log.WithFields(map[string]interface{}{
		"event":       event.Name,
		"hospital_id": event.HospitalID,
		"stage":       event.Stage,
	})
	if event.ErrorCode != "" {
		entry = entry.WithField("error_code", event.ErrorCode)
	}
	if event.Level == telemetry.LevelError {
		entry.Error(event.Message)
	} else {
		entry.Info(event.Message)
	}

	if err := r.ledger.RecordEvent(ctx, event); err != nil {
		logger.Log.WithError(err).Error("Failed to record telemetry event")
	}
}
