package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	pipelineRunsSucceeded    atomic.Int64
	pipelineRunsFailed       atomic.Int64
	pipelineRecordsProcessed atomic.Int64
	postprocessFailures      atomic.Int64
	pushRequestsAccepted     atomic.Int64
)

func ObservePipelineRun(success bool, records int, postprocessFailed bool) {
	if success {
		pipelineRunsSucceeded.Add(1)
	} else {
		pipelineRunsFailed.Add(1)
	}
	pipelineRecordsProcessed.Add(int64(records))
	if postprocessFailed {
		postprocessFailures.Add(1)
	}
}

func ObservePushAccepted() {
	pushRequestsAccepted.Add(1)
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP vitalink_pipeline_runs_succeeded_total Number of pull pipeline runs that completed without a run-fatal error.\n")
	fmt.Fprintf(w, "# TYPE vitalink_pipeline_runs_succeeded_total counter\n")
	fmt.Fprintf(w, "vitalink_pipeline_runs_succeeded_total %d\n", pipelineRunsSucceeded.Load())

	fmt.Fprintf(w, "# HELP vitalink_pipeline_runs_failed_total Number of pull pipeline runs aborted by a parse, connector or dispatch failure.\n")
	fmt.Fprintf(w, "# TYPE vitalink_pipeline_runs_failed_total counter\n")
	fmt.Fprintf(w, "vitalink_pipeline_runs_failed_total %d\n", pipelineRunsFailed.Load())

	fmt.Fprintf(w, "# HELP vitalink_pipeline_records_processed_total Number of canonical records produced by pull pipeline runs.\n")
	fmt.Fprintf(w, "# TYPE vitalink_pipeline_records_processed_total counter\n")
	fmt.Fprintf(w, "vitalink_pipeline_records_processed_total %d\n", pipelineRecordsProcessed.Load())

	fmt.Fprintf(w, "# HELP vitalink_postprocess_failures_total Number of pull pipeline runs whose confirmation write failed.\n")
	fmt.Fprintf(w, "# TYPE vitalink_postprocess_failures_total counter\n")
	fmt.Fprintf(w, "vitalink_postprocess_failures_total %d\n", postprocessFailures.Load())

	fmt.Fprintf(w, "# HELP vitalink_push_requests_accepted_total Number of inbound push requests accepted.\n")
	fmt.Fprintf(w, "# TYPE vitalink_push_requests_accepted_total counter\n")
	fmt.Fprintf(w, "vitalink_push_requests_accepted_total %d\n", pushRequestsAccepted.Load())
}
