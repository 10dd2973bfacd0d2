// Package logging provides audit logging that outputs Mangle-queryable facts.
// Audit logs are structured events that can be parsed into Mangle predicates
// for declarative querying and analysis of planner runs.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// AUDIT EVENT TYPES - Maps to Mangle predicates
// =============================================================================

// AuditEventType defines the type of audit event (maps to Mangle predicate)
type AuditEventType string

const (
	// Run lifecycle events -> run_event/5
	AuditRunStart    AuditEventType = "run_start"
	AuditRunComplete AuditEventType = "run_complete"
	AuditRunAbort    AuditEventType = "run_abort"

	// Heuristic evaluation events -> eval_event/5
	AuditEvalState   AuditEventType = "eval_state"
	AuditEvalDeadEnd AuditEventType = "eval_dead_end"

	// Landmark events -> landmark_event/5
	AuditLandmarkGenerate  AuditEventType = "landmark_generate"
	AuditLandmarkDiscard   AuditEventType = "landmark_discard"
	AuditLandmarkAchievers AuditEventType = "landmark_achievers"
	AuditLandmarkCycles    AuditEventType = "landmark_cycles"

	// Search events -> search_event/5
	AuditSearchStart     AuditEventType = "search_start"
	AuditSearchComplete  AuditEventType = "search_complete"
	AuditSearchExhausted AuditEventType = "search_exhausted"

	// Grounding events -> ground_event/5
	AuditGroundStart    AuditEventType = "ground_start"
	AuditGroundComplete AuditEventType = "ground_complete"

	// Store operations -> store_op/5
	AuditStoreSave  AuditEventType = "store_save"
	AuditStoreLoad  AuditEventType = "store_load"
	AuditStoreError AuditEventType = "store_error"

	// Bench events -> bench_event/6
	AuditBenchStart    AuditEventType = "bench_start"
	AuditBenchCase     AuditEventType = "bench_case"
	AuditBenchComplete AuditEventType = "bench_complete"

	// Performance -> perf_metric/4
	AuditPerfMetric AuditEventType = "perf_metric"
	AuditPerfSlow   AuditEventType = "perf_slow"

	// Error events -> error_event/4
	AuditErrorGeneric  AuditEventType = "error_generic"
	AuditErrorCritical AuditEventType = "error_critical"
)

// =============================================================================
// AUDIT EVENT STRUCTURE
// =============================================================================

// AuditEvent represents a structured audit log entry that can be parsed to Mangle.
// Format: predicate(timestamp, category, ...args)
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"`      // Unix milliseconds
	EventType  AuditEventType         `json:"event"`   // Maps to Mangle predicate
	Category   string                 `json:"cat"`     // Log category
	RunID      string                 `json:"run"`     // Run correlation
	Target     string                 `json:"target"`  // Target of operation (task, table, ...)
	Action     string                 `json:"action"`  // Action being performed
	Success    bool                   `json:"success"` // Operation succeeded
	DurationMs int64                  `json:"dur_ms"`  // Duration in milliseconds
	Error      string                 `json:"error"`   // Error message if failed
	Message    string                 `json:"msg"`     // Human-readable message
	Fields     map[string]interface{} `json:"fields"`  // Additional structured fields
	MangleFact string                 `json:"mangle"`  // Pre-formatted Mangle fact
}

// =============================================================================
// AUDIT LOGGER
// =============================================================================

var (
	auditFile   *os.File
	auditMu     sync.Mutex
	auditLogger *AuditLogger
)

// AuditLogger handles structured audit logging with Mangle fact generation
type AuditLogger struct {
	runID    string
	category Category
}

// InitAudit initializes the audit logging system
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil // Already initialized
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.log", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file

	// Write header
	header := fmt.Sprintf("# Audit log started at %s\n# Format: Mangle-queryable structured events\n", time.Now().Format(time.RFC3339))
	auditFile.WriteString(header)

	return nil
}

// CloseAudit closes the audit log file
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns the global audit logger
func Audit() *AuditLogger {
	if auditLogger == nil {
		auditLogger = &AuditLogger{}
	}
	return auditLogger
}

// AuditWithRun creates an audit logger scoped to a planner run
func AuditWithRun(runID string) *AuditLogger {
	return &AuditLogger{runID: runID}
}

// AuditWithContext creates a fully-scoped audit logger
func AuditWithContext(runID string, category Category) *AuditLogger {
	return &AuditLogger{runID: runID, category: category}
}

// =============================================================================
// AUDIT LOGGING METHODS
// =============================================================================

// Log writes an audit event
func (a *AuditLogger) Log(event AuditEvent) {
	if !IsDebugMode() || auditFile == nil {
		return
	}

	// Fill in defaults
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.RunID == "" && a.runID != "" {
		event.RunID = a.runID
	}
	if event.Category == "" && a.category != "" {
		event.Category = string(a.category)
	}
	if event.Fields == nil {
		event.Fields = make(map[string]interface{})
	}

	// Generate Mangle fact
	event.MangleFact = generateMangleFact(event)

	auditMu.Lock()
	defer auditMu.Unlock()

	// Write JSON line
	data, err := json.Marshal(event)
	if err == nil {
		auditFile.WriteString(string(data) + "\n")
	}
}

// generateMangleFact creates a Mangle-compatible fact string from an event
func generateMangleFact(e AuditEvent) string {
	switch e.EventType {
	case AuditRunStart, AuditRunComplete, AuditRunAbort:
		return fmt.Sprintf("run_event(%d, /%s, \"%s\", \"%s\", %v).",
			e.Timestamp, e.EventType, e.RunID, e.Target, e.Success)

	case AuditEvalState, AuditEvalDeadEnd:
		value := int64(-1)
		if v, ok := e.Fields["value"].(int64); ok {
			value = v
		}
		return fmt.Sprintf("eval_event(%d, /%s, \"%s\", %d, %d).",
			e.Timestamp, e.EventType, e.Target, value, e.DurationMs)

	case AuditLandmarkGenerate, AuditLandmarkDiscard, AuditLandmarkAchievers, AuditLandmarkCycles:
		count := 0
		if c, ok := e.Fields["count"].(int); ok {
			count = c
		}
		return fmt.Sprintf("landmark_event(%d, /%s, \"%s\", %d, %v).",
			e.Timestamp, e.EventType, e.Target, count, e.Success)

	case AuditSearchStart, AuditSearchComplete, AuditSearchExhausted:
		expansions := 0
		if x, ok := e.Fields["expansions"].(int); ok {
			expansions = x
		}
		return fmt.Sprintf("search_event(%d, /%s, \"%s\", %d, %v).",
			e.Timestamp, e.EventType, e.Target, expansions, e.Success)

	case AuditGroundStart, AuditGroundComplete:
		facts := 0
		if f, ok := e.Fields["facts"].(int); ok {
			facts = f
		}
		return fmt.Sprintf("ground_event(%d, /%s, \"%s\", %d, %v).",
			e.Timestamp, e.EventType, e.Target, facts, e.Success)

	case AuditStoreSave, AuditStoreLoad, AuditStoreError:
		rows := int64(0)
		if r, ok := e.Fields["rows"].(int64); ok {
			rows = r
		}
		return fmt.Sprintf("store_op(%d, /%s, \"%s\", %v, %d).",
			e.Timestamp, e.EventType, e.Target, e.Success, rows)

	case AuditBenchStart, AuditBenchCase, AuditBenchComplete:
		return fmt.Sprintf("bench_event(%d, /%s, \"%s\", \"%s\", %v, %d).",
			e.Timestamp, e.EventType, e.RunID, e.Target, e.Success, e.DurationMs)

	case AuditPerfMetric, AuditPerfSlow:
		return fmt.Sprintf("perf_metric(%d, \"%s\", \"%s\", %d).",
			e.Timestamp, e.Category, e.Action, e.DurationMs)

	case AuditErrorGeneric, AuditErrorCritical:
		return fmt.Sprintf("error_event(%d, /%s, \"%s\", \"%s\").",
			e.Timestamp, e.EventType, e.Category, escapeString(e.Error))

	default:
		return fmt.Sprintf("audit_event(%d, /%s, \"%s\", \"%s\", %v).",
			e.Timestamp, e.EventType, e.Category, escapeString(e.Message), e.Success)
	}
}

func escapeString(s string) string {
	// Escape quotes and backslashes for Mangle strings
	var b strings.Builder
	b.Grow(len(s) + len(s)/10)

	for _, c := range s {
		switch c {
		case '"':
			b.WriteString("\\\"")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

// =============================================================================
// CONVENIENCE METHODS FOR COMMON EVENTS
// =============================================================================

// RunStart logs the start of a planner run
func (a *AuditLogger) RunStart(runID, taskName string) {
	a.Log(AuditEvent{
		EventType: AuditRunStart,
		RunID:     runID,
		Target:    taskName,
		Success:   true,
		Message:   fmt.Sprintf("Run started: %s (task %s)", runID, taskName),
	})
}

// RunComplete logs the end of a planner run
func (a *AuditLogger) RunComplete(runID, taskName string, durationMs int64, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType:  AuditRunComplete,
		RunID:      runID,
		Target:     taskName,
		Success:    success,
		DurationMs: durationMs,
		Error:      errMsg,
		Message:    fmt.Sprintf("Run completed: %s (success=%v, %dms)", runID, success, durationMs),
	})
}

// EvalState logs one heuristic evaluation
func (a *AuditLogger) EvalState(taskName string, value int64, durationMs int64) {
	eventType := AuditEvalState
	if value < 0 {
		eventType = AuditEvalDeadEnd
	}
	a.Log(AuditEvent{
		EventType:  eventType,
		Target:     taskName,
		Success:    value >= 0,
		DurationMs: durationMs,
		Fields:     map[string]interface{}{"value": value},
		Message:    fmt.Sprintf("Heuristic eval: %s -> %d (%dms)", taskName, value, durationMs),
	})
}

// LandmarkEvent logs a landmark pipeline step with a node count
func (a *AuditLogger) LandmarkEvent(eventType AuditEventType, taskName string, count int) {
	a.Log(AuditEvent{
		EventType: eventType,
		Target:    taskName,
		Success:   true,
		Fields:    map[string]interface{}{"count": count},
		Message:   fmt.Sprintf("Landmark %s: %s (%d nodes)", eventType, taskName, count),
	})
}

// SearchComplete logs the end of a search with its expansion count
func (a *AuditLogger) SearchComplete(taskName string, expansions int, solved bool, durationMs int64) {
	eventType := AuditSearchComplete
	if !solved {
		eventType = AuditSearchExhausted
	}
	a.Log(AuditEvent{
		EventType:  eventType,
		Target:     taskName,
		Success:    solved,
		DurationMs: durationMs,
		Fields:     map[string]interface{}{"expansions": expansions},
		Message:    fmt.Sprintf("Search: %s -> solved=%v after %d expansions (%dms)", taskName, solved, expansions, durationMs),
	})
}

// GroundComplete logs the end of Datalog grounding with the fact count
func (a *AuditLogger) GroundComplete(taskName string, facts int, durationMs int64, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType:  AuditGroundComplete,
		Target:     taskName,
		Success:    success,
		DurationMs: durationMs,
		Error:      errMsg,
		Fields:     map[string]interface{}{"facts": facts},
		Message:    fmt.Sprintf("Grounding: %s -> %d facts (%dms)", taskName, facts, durationMs),
	})
}

// StoreOp logs a run-store operation
func (a *AuditLogger) StoreOp(op AuditEventType, target string, rows int64, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType: op,
		Target:    target,
		Success:   success,
		Error:     errMsg,
		Fields:    map[string]interface{}{"rows": rows},
		Message:   fmt.Sprintf("Store %s: %s (%d rows, success=%v)", op, target, rows, success),
	})
}

// BenchCase logs one benchmark case result
func (a *AuditLogger) BenchCase(runID, caseName string, durationMs int64, success bool) {
	a.Log(AuditEvent{
		EventType:  AuditBenchCase,
		RunID:      runID,
		Target:     caseName,
		Success:    success,
		DurationMs: durationMs,
		Message:    fmt.Sprintf("Bench case: %s (success=%v, %dms)", caseName, success, durationMs),
	})
}

// PerfMetric logs a performance metric
func (a *AuditLogger) PerfMetric(operation string, durationMs int64, threshold int64) {
	eventType := AuditPerfMetric
	success := true
	if threshold > 0 && durationMs > threshold {
		eventType = AuditPerfSlow
		success = false
	}
	fields := map[string]interface{}{}
	if threshold > 0 {
		fields["threshold_ms"] = threshold
	}
	a.Log(AuditEvent{
		EventType:  eventType,
		Action:     operation,
		DurationMs: durationMs,
		Success:    success,
		Fields:     fields,
		Message:    fmt.Sprintf("Perf: %s took %dms (threshold=%dms)", operation, durationMs, threshold),
	})
}

// Error logs an error event
func (a *AuditLogger) Error(category string, err error, critical bool) {
	eventType := AuditErrorGeneric
	if critical {
		eventType = AuditErrorCritical
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	a.Log(AuditEvent{
		EventType: eventType,
		Category:  category,
		Success:   false,
		Error:     msg,
		Message:   fmt.Sprintf("Error in %s: %s", category, msg),
	})
}
