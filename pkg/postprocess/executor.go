// Package postprocess runs the hospital-side confirmation write after a
// record has been dispatched to the backend. Failures are always reported as
// a typed Result with a code from a closed set; nothing here returns an
// error to the caller, so a broken confirmation write can never abort a
// pipeline run on its own.
package postprocess

import (
	"fmt"
	"strings"

	"github.com/vitalink/platform/pkg/hospital"
	"github.com/vitalink/platform/pkg/hospital/hospitaldb"
)

const (
	CodeConfigMissing   = "POSTPROCESS_CONFIG_MISSING"
	CodeKeyMissing      = "POSTPROCESS_KEY_MISSING"
	CodeValueMissing    = "POSTPROCESS_VALUE_MISSING"
	CodeDBUnsupported   = "POSTPROCESS_DB_UNSUPPORTED"
	CodeModeUnsupported = "POSTPROCESS_UNSUPPORTED"
	CodeFailed          = "POSTPROCESS_FAILED"
)

const DefaultRetry = 3

// Result reports one postprocess outcome. ErrorCode is empty on success.
type Result struct {
	Success   bool
	ErrorCode string
}

type Executor struct {
	sessions hospitaldb.Factory
}

func NewExecutor(sessions hospitaldb.Factory) *Executor {
	if sessions == nil {
		sessions = hospitaldb.Open
	}
	return &Executor{sessions: sessions}
}

// Run attempts the configured confirmation write up to the configured retry
// bound. Attempts are independent; the first success wins and exhaustion
// reports the last attempt's code. Absent configuration succeeds trivially.
// An explicit nonpositive bound performs no attempts and fails outright.
func (e *Executor) Run(cfg *hospital.Config, record map[string]interface{}) Result {
	if cfg.Postprocess == nil {
		return Result{Success: true}
	}

	retries := DefaultRetry
	if cfg.Postprocess.Retry != nil {
		retries = *cfg.Postprocess.Retry
	}

	last := Result{Success: false, ErrorCode: CodeFailed}
	for attempt := 0; attempt < retries; attempt++ {
		last = e.runOnce(cfg, record)
		if last.Success {
			return Result{Success: true}
		}
	}
	return last
}

func (e *Executor) runOnce(cfg *hospital.Config, record map[string]interface{}) Result {
	switch cfg.Postprocess.Mode {
	case hospital.PostprocessUpdateFlag:
		return e.updateFlag(cfg, record)
	case hospital.PostprocessInsertLog:
		return e.insertLog(cfg, record)
	default:
		return Result{Success: false, ErrorCode: CodeModeUnsupported}
	}
}

func (e *Executor) updateFlag(cfg *hospital.Config, record map[string]interface{}) Result {
	pp := cfg.Postprocess
	if cfg.DB == nil {
		return Result{Success: false, ErrorCode: CodeConfigMissing}
	}
	if pp.Table == "" || pp.KeyColumn == "" || pp.FlagColumn == "" {
		return Result{Success: false, ErrorCode: CodeConfigMissing}
	}

	keyValue := resolveValue(pp.KeyValueSource, record, pp.KeyValue)
	if keyValue == nil {
		return Result{Success: false, ErrorCode: CodeKeyMissing}
	}

	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?", pp.Table, pp.FlagColumn, pp.KeyColumn)
	return e.exec(cfg.DB, query, pp.FlagValue, keyValue)
}

func (e *Executor) insertLog(cfg *hospital.Config, record map[string]interface{}) Result {
	pp := cfg.Postprocess
	if cfg.DB == nil {
		return Result{Success: false, ErrorCode: CodeConfigMissing}
	}
	if pp.Table == "" || len(pp.Columns) == 0 {
		return Result{Success: false, ErrorCode: CodeConfigMissing}
	}

	values := make([]interface{}, len(pp.Columns))
	for i, column := range pp.Columns {
		values[i] = resolveValue(pp.Sources[column], record, pp.Values[column])
		if values[i] == nil {
			return Result{Success: false, ErrorCode: CodeValueMissing}
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(pp.Columns)), ", ")
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		pp.Table, strings.Join(pp.Columns, ", "), placeholders,
	)
	return e.exec(cfg.DB, query, values...)
}

// exec issues one committed statement. Attempts that fail value resolution
// never reach this point, so each I/O attempt is exactly one statement.
func (e *Executor) exec(db *hospital.DBConfig, query string, args ...interface{}) Result {
	switch db.Type {
	case hospital.EnginePostgres, hospital.EngineMySQL:
	default:
		return Result{Success: false, ErrorCode: CodeDBUnsupported}
	}

	session, err := e.sessions(db)
	if err != nil {
		return Result{Success: false, ErrorCode: CodeFailed}
	}
	defer session.Close()

	if err := session.Exec(query, args...); err != nil {
		return Result{Success: false, ErrorCode: CodeFailed}
	}
	return Result{Success: true}
}

// resolveValue prefers a source-field lookup in the record whenever a source
// is configured; the literal fallback applies when the source is absent or
// unconfigured.
func resolveValue(source string, record map[string]interface{}, fallback interface{}) interface{} {
	if record == nil || source == "" {
		return fallback
	}
	if value, ok := record[source]; ok {
		return value
	}
	return fallback
}
