// Package logging provides config-driven categorized file-based logging for planNERD.
// Logs are written to .plannerd/logs/ with separate files per category.
// Logging is controlled by debug_mode in .plannerd/config.json - when false, no logs are written.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/system
type Category string

const (
	// Core system categories
	CategoryBoot        Category = "boot"        // Boot/initialization
	CategoryTask        Category = "task"        // Task loading and validation
	CategoryPerformance Category = "performance" // Performance metrics, slow operations

	// Grounding categories
	CategoryGround Category = "ground" // Datalog task grounding

	// Planner core categories
	CategoryRelaxed   Category = "relaxed"   // Relaxed exploration engine
	CategoryHeuristic Category = "heuristic" // Heuristic evaluation
	CategoryLandmarks Category = "landmarks" // Landmark generation and analysis
	CategorySearch    Category = "search"    // Search engine loop

	// Harness categories
	CategoryStore Category = "store" // Run store operations
	CategoryBench Category = "bench" // Benchmark suite runs
)

// loggingConfig mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports
type loggingConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Categories map[string]bool `json:"categories"`
	Level      string          `json:"level"`
	JSONFormat bool            `json:"json_format"` // Output structured JSON for machine parsing
}

// configFile structure for reading .plannerd/config.json
type configFile struct {
	Logging loggingConfig `json:"logging"`
}

// StructuredLogEntry represents a JSON log entry
// Format: log_entry(Timestamp, Category, Level, Message, File, Line)
type StructuredLogEntry struct {
	Timestamp int64                  `json:"ts"`            // Unix milliseconds
	Category  string                 `json:"cat"`           // Log category
	Level     string                 `json:"lvl"`           // debug/info/warn/error
	Message   string                 `json:"msg"`           // Log message
	File      string                 `json:"file"`          // Source file (optional)
	Line      int                    `json:"line"`          // Source line (optional)
	RunID     string                 `json:"run,omitempty"` // Run correlation ID
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger wraps a standard logger with category and file output
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers      = make(map[Category]*Logger)
	loggersMu    sync.RWMutex
	logsDir      string
	workspace    string
	config       loggingConfig
	configLoaded bool
	configMu     sync.RWMutex
	logLevel     int // 0=debug, 1=info, 2=warn, 3=error
)

// Log levels
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Initialize sets up the logging directory and loads config.
// Should be called once at startup with the workspace path.
func Initialize(ws string) error {
	if ws == "" {
		return fmt.Errorf("workspace path required")
	}

	workspace = ws
	logsDir = filepath.Join(workspace, ".plannerd", "logs")

	// Load config first to check if debug mode is enabled
	if err := loadConfig(); err != nil {
		// Log to stderr if we can't load config
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not load config: %v\n", err)
		// Default to disabled (production mode)
		config.DebugMode = false
	}

	// Only create logs directory if debug mode is enabled
	if !config.DebugMode {
		return nil // Silent no-op in production mode
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	// Create a boot log entry
	bootLogger := Get(CategoryBoot)
	bootLogger.Info("=== planNERD Logging System Initialized ===")
	bootLogger.Info("Workspace: %s", workspace)
	bootLogger.Info("Logs directory: %s", logsDir)
	bootLogger.Info("Debug mode: %v", config.DebugMode)
	bootLogger.Info("Log level: %s", config.Level)

	// Log enabled categories
	if len(config.Categories) > 0 {
		enabledCount := 0
		for cat, enabled := range config.Categories {
			if enabled {
				enabledCount++
			}
			bootLogger.Debug("Category '%s': %v", cat, enabled)
		}
		bootLogger.Info("Enabled categories: %d/%d", enabledCount, len(config.Categories))
	} else {
		bootLogger.Info("All categories enabled (no category filter)")
	}

	return nil
}

// loadConfig reads the logging config from .plannerd/config.json
func loadConfig() error {
	configMu.Lock()
	defer configMu.Unlock()

	configPath := filepath.Join(workspace, ".plannerd", "config.json")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config = production mode (no logging)
			config.DebugMode = false
			configLoaded = true
			return nil
		}
		return err
	}

	var cf configFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	config = cf.Logging
	configLoaded = true

	// Parse log level
	switch config.Level {
	case "debug":
		logLevel = LevelDebug
	case "info":
		logLevel = LevelInfo
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}

	return nil
}

// ReloadConfig reloads the config from disk.
// Call this if config changes at runtime.
func ReloadConfig() error {
	return loadConfig()
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if !config.DebugMode {
		return false
	}

	if config.Categories == nil {
		return true // All enabled by default in debug mode
	}

	enabled, exists := config.Categories[string(category)]
	if !exists {
		return true // Enable by default if not specified
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		// Return a no-op logger
		return &Logger{category: category}
	}

	if logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	// Create new logger
	loggersMu.Lock()
	defer loggersMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}

	// Create log file with date prefix for easy rotation
	date := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", date, category)
	logPath := filepath.Join(logsDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// Fall back to no-op logger
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l

	return l
}

// logJSON writes a structured JSON log entry
func (l *Logger) logJSON(level, msg string) {
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("[%s] %s", level, msg) // Fallback to text
		return
	}
	l.logger.Printf("%s", data)
}

// Debug logs a debug message (only if level <= debug)
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("debug", msg)
	} else {
		l.logger.Printf("[DEBUG] %s", msg)
	}
}

// Info logs an informational message (only if level <= info)
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("info", msg)
	} else {
		l.logger.Printf("[INFO] %s", msg)
	}
}

// Warn logs a warning message (only if level <= warn)
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("warn", msg)
	} else {
		l.logger.Printf("[WARN] %s", msg)
	}
}

// Error logs an error message (always logged if logger exists)
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("error", msg)
	} else {
		l.logger.Printf("[ERROR] %s", msg)
	}
}

// StructuredLog writes a fully structured log entry with custom fields
func (l *Logger) StructuredLog(level string, msg string, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
		Fields:    fields,
	}
	if config.JSONFormat {
		data, err := json.Marshal(entry)
		if err == nil {
			l.logger.Printf("%s", data)
			return
		}
	}
	// Fallback to text format with fields
	l.logger.Printf("[%s] %s | fields=%v", level, msg, fields)
}

// IsJSONFormat returns whether JSON logging is enabled
func IsJSONFormat() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.JSONFormat
}

// WithContext returns a context logger for structured logging
func (l *Logger) WithContext(ctx map[string]interface{}) *ContextLogger {
	return &ContextLogger{logger: l, context: ctx}
}

// ContextLogger provides structured logging with key-value context
type ContextLogger struct {
	logger  *Logger
	context map[string]interface{}
}

func (c *ContextLogger) Debug(format string, args ...interface{}) {
	if c.logger.logger == nil || logLevel > LevelDebug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	c.logger.logger.Printf("[DEBUG] %s | ctx=%v", msg, c.context)
}

func (c *ContextLogger) Info(format string, args ...interface{}) {
	if c.logger.logger == nil || logLevel > LevelInfo {
		return
	}
	msg := fmt.Sprintf(format, args...)
	c.logger.logger.Printf("[INFO] %s | ctx=%v", msg, c.context)
}

func (c *ContextLogger) Warn(format string, args ...interface{}) {
	if c.logger.logger == nil || logLevel > LevelWarn {
		return
	}
	msg := fmt.Sprintf(format, args...)
	c.logger.logger.Printf("[WARN] %s | ctx=%v", msg, c.context)
}

func (c *ContextLogger) Error(format string, args ...interface{}) {
	if c.logger.logger == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	c.logger.logger.Printf("[ERROR] %s | ctx=%v", msg, c.context)
}

// CloseAll closes all open log files (call at shutdown)
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// Task logs to the task category
func Task(format string, args ...interface{}) {
	Get(CategoryTask).Info(format, args...)
}

// TaskDebug logs debug to the task category
func TaskDebug(format string, args ...interface{}) {
	Get(CategoryTask).Debug(format, args...)
}

// Ground logs to the ground category
func Ground(format string, args ...interface{}) {
	Get(CategoryGround).Info(format, args...)
}

// GroundDebug logs debug to the ground category
func GroundDebug(format string, args ...interface{}) {
	Get(CategoryGround).Debug(format, args...)
}

// Relaxed logs to the relaxed category
func Relaxed(format string, args ...interface{}) {
	Get(CategoryRelaxed).Info(format, args...)
}

// RelaxedDebug logs debug to the relaxed category
func RelaxedDebug(format string, args ...interface{}) {
	Get(CategoryRelaxed).Debug(format, args...)
}

// Heuristic logs to the heuristic category
func Heuristic(format string, args ...interface{}) {
	Get(CategoryHeuristic).Info(format, args...)
}

// HeuristicDebug logs debug to the heuristic category
func HeuristicDebug(format string, args ...interface{}) {
	Get(CategoryHeuristic).Debug(format, args...)
}

// Landmarks logs to the landmarks category
func Landmarks(format string, args ...interface{}) {
	Get(CategoryLandmarks).Info(format, args...)
}

// LandmarksDebug logs debug to the landmarks category
func LandmarksDebug(format string, args ...interface{}) {
	Get(CategoryLandmarks).Debug(format, args...)
}

// Search logs to the search category
func Search(format string, args ...interface{}) {
	Get(CategorySearch).Info(format, args...)
}

// SearchDebug logs debug to the search category
func SearchDebug(format string, args ...interface{}) {
	Get(CategorySearch).Debug(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}

// Bench logs to the bench category
func Bench(format string, args ...interface{}) {
	Get(CategoryBench).Info(format, args...)
}

// BenchDebug logs debug to the bench category
func BenchDebug(format string, args ...interface{}) {
	Get(CategoryBench).Debug(format, args...)
}

// Performance logs to the performance category
func Performance(format string, args ...interface{}) {
	Get(CategoryPerformance).Info(format, args...)
}

// PerformanceDebug logs debug to the performance category
func PerformanceDebug(format string, args ...interface{}) {
	Get(CategoryPerformance).Debug(format, args...)
}

// =============================================================================
// WARN/ERROR CONVENIENCE FUNCTIONS
// =============================================================================

// BootWarn logs warning to the boot category
func BootWarn(format string, args ...interface{}) {
	Get(CategoryBoot).Warn(format, args...)
}

// BootError logs error to the boot category
func BootError(format string, args ...interface{}) {
	Get(CategoryBoot).Error(format, args...)
}

// TaskWarn logs warning to the task category
func TaskWarn(format string, args ...interface{}) {
	Get(CategoryTask).Warn(format, args...)
}

// TaskError logs error to the task category
func TaskError(format string, args ...interface{}) {
	Get(CategoryTask).Error(format, args...)
}

// GroundWarn logs warning to the ground category
func GroundWarn(format string, args ...interface{}) {
	Get(CategoryGround).Warn(format, args...)
}

// GroundError logs error to the ground category
func GroundError(format string, args ...interface{}) {
	Get(CategoryGround).Error(format, args...)
}

// RelaxedWarn logs warning to the relaxed category
func RelaxedWarn(format string, args ...interface{}) {
	Get(CategoryRelaxed).Warn(format, args...)
}

// RelaxedError logs error to the relaxed category
func RelaxedError(format string, args ...interface{}) {
	Get(CategoryRelaxed).Error(format, args...)
}

// HeuristicWarn logs warning to the heuristic category
func HeuristicWarn(format string, args ...interface{}) {
	Get(CategoryHeuristic).Warn(format, args...)
}

// HeuristicError logs error to the heuristic category
func HeuristicError(format string, args ...interface{}) {
	Get(CategoryHeuristic).Error(format, args...)
}

// LandmarksWarn logs warning to the landmarks category
func LandmarksWarn(format string, args ...interface{}) {
	Get(CategoryLandmarks).Warn(format, args...)
}

// LandmarksError logs error to the landmarks category
func LandmarksError(format string, args ...interface{}) {
	Get(CategoryLandmarks).Error(format, args...)
}

// SearchWarn logs warning to the search category
func SearchWarn(format string, args ...interface{}) {
	Get(CategorySearch).Warn(format, args...)
}

// SearchError logs error to the search category
func SearchError(format string, args ...interface{}) {
	Get(CategorySearch).Error(format, args...)
}

// StoreWarn logs warning to the store category
func StoreWarn(format string, args ...interface{}) {
	Get(CategoryStore).Warn(format, args...)
}

// StoreError logs error to the store category
func StoreError(format string, args ...interface{}) {
	Get(CategoryStore).Error(format, args...)
}

// BenchWarn logs warning to the bench category
func BenchWarn(format string, args ...interface{}) {
	Get(CategoryBench).Warn(format, args...)
}

// BenchError logs error to the bench category
func BenchError(format string, args ...interface{}) {
	Get(CategoryBench).Error(format, args...)
}

// =============================================================================
// RUN ID TRACING - For correlating log lines across one planner run
// =============================================================================

// RunLogger provides run-scoped logging with a correlation ID
type RunLogger struct {
	logger *Logger
	runID  string
	fields map[string]interface{}
}

// WithRunID creates a run-scoped logger so solve/bench runs can be correlated
func WithRunID(category Category, runID string) *RunLogger {
	return &RunLogger{
		logger: Get(category),
		runID:  runID,
		fields: make(map[string]interface{}),
	}
}

// WithField adds a field to the run logger
func (r *RunLogger) WithField(key string, value interface{}) *RunLogger {
	r.fields[key] = value
	return r
}

func (r *RunLogger) formatMsg(format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if len(r.fields) > 0 {
		return fmt.Sprintf("[run:%s] %s | %v", r.runID, msg, r.fields)
	}
	return fmt.Sprintf("[run:%s] %s", r.runID, msg)
}

func (r *RunLogger) Debug(format string, args ...interface{}) {
	if r.logger.logger == nil || logLevel > LevelDebug {
		return
	}
	r.logger.logger.Printf("[DEBUG] %s", r.formatMsg(format, args...))
}

func (r *RunLogger) Info(format string, args ...interface{}) {
	if r.logger.logger == nil || logLevel > LevelInfo {
		return
	}
	r.logger.logger.Printf("[INFO] %s", r.formatMsg(format, args...))
}

func (r *RunLogger) Warn(format string, args ...interface{}) {
	if r.logger.logger == nil || logLevel > LevelWarn {
		return
	}
	r.logger.logger.Printf("[WARN] %s", r.formatMsg(format, args...))
}

func (r *RunLogger) Error(format string, args ...interface{}) {
	if r.logger.logger == nil {
		return
	}
	r.logger.logger.Printf("[ERROR] %s", r.formatMsg(format, args...))
}

// =============================================================================
// TIMING HELPERS - For performance logging
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithInfo ends the timer and logs at info level
func (t *Timer) StopWithInfo() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Info("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
