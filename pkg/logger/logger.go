package logger

import (
	"fmt"
	"io"
	"os"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

// Logger handles all logging for the emulator
type Logger struct {
	level         LogLevel
	writer        io.Writer
	cpuEnabled    bool
	ppuEnabled    bool
	apuEnabled    bool
	mapperEnabled bool
}

var globalLogger *Logger

// Initialize sets up the global logger
func Initialize(level LogLevel, filename string) error {
	var writer io.Writer = os.Stdout

	if filename != "" {
		file, err := os.Create(filename)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		writer = file
	}

	globalLogger = &Logger{
		level:  level,
		writer: writer,
	}

	return nil
}

// SetCPULogging enables or disables CPU trace logging
func SetCPULogging(enabled bool) {
	if globalLogger != nil {
		globalLogger.cpuEnabled = enabled
	}
}

// SetPPULogging enables or disables PPU logging
func SetPPULogging(enabled bool) {
	if globalLogger != nil {
		globalLogger.ppuEnabled = enabled
	}
}

// SetAPULogging enables or disables APU logging
func SetAPULogging(enabled bool) {
	if globalLogger != nil {
		globalLogger.apuEnabled = enabled
	}
}

// SetMapperLogging enables or disables mapper logging
func SetMapperLogging(enabled bool) {
	if globalLogger != nil {
		globalLogger.mapperEnabled = enabled
	}
}

// CPUTraceEnabled reports whether CPU trace lines should be produced.
// The disassembler checks this before doing any formatting work.
func CPUTraceEnabled() bool {
	return globalLogger != nil && globalLogger.cpuEnabled
}

// LogCPU logs one CPU trace line
func LogCPU(format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.cpuEnabled {
		fmt.Fprintf(globalLogger.writer, format+"\n", args...)
	}
}

// LogPPU logs PPU operations
func LogPPU(format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.ppuEnabled && globalLogger.level >= LogLevelTrace {
		fmt.Fprintf(globalLogger.writer, "PPU: "+format+"\n", args...)
	}
}

// LogAPU logs APU operations
func LogAPU(format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.apuEnabled && globalLogger.level >= LogLevelDebug {
		fmt.Fprintf(globalLogger.writer, "APU: "+format+"\n", args...)
	}
}

// LogMapper logs mapper operations
func LogMapper(format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.mapperEnabled && globalLogger.level >= LogLevelDebug {
		fmt.Fprintf(globalLogger.writer, "MAPPER: "+format+"\n", args...)
	}
}

// LogInfo logs general information
func LogInfo(format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.level >= LogLevelInfo {
		fmt.Fprintf(globalLogger.writer, "INFO: "+format+"\n", args...)
	}
}

// LogError logs errors
func LogError(format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.level >= LogLevelError {
		fmt.Fprintf(globalLogger.writer, "ERROR: "+format+"\n", args...)
	}
}

// LogDebug logs debug information
func LogDebug(format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.level >= LogLevelDebug {
		fmt.Fprintf(globalLogger.writer, "DEBUG: "+format+"\n", args...)
	}
}

// GetLogLevelFromString converts string to LogLevel
func GetLogLevelFromString(level string) LogLevel {
	switch level {
	case "off":
		return LogLevelOff
	case "error":
		return LogLevelError
	case "warn":
		return LogLevelWarn
	case "info":
		return LogLevelInfo
	case "debug":
		return LogLevelDebug
	case "trace":
		return LogLevelTrace
	default:
		return LogLevelInfo
	}
}

// Close closes the logger and any associated files
func Close() {
	if globalLogger != nil {
		if file, ok := globalLogger.writer.(*os.File); ok && file != os.Stdout && file != os.Stderr {
			file.Close()
		}
	}
}
