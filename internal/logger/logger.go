package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"imc-manager/internal/config"
	"imc-manager/internal/env"
)

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

// Logger 日志结构体
type Logger struct {
	debugLogger *log.Logger
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
}

// LogLevel 日志级别类型
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// GetLogLevelFromString 将字符串转换为日志级别
func GetLogLevelFromString(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return WARN
	}
}

/**
 * Initialize logging according to run mode
 * @param {*config.LogConfig} cfg - Log level and path
 * @param {bool} isServerMode - true for the HTTP server, false for CLI commands
 * @description
 * - Empty path or "console" logs to <data dir>/logs/imc-manager.log
 * - Server mode additionally mirrors everything to stdout
 * - CLI mode keeps stdout clean for command output
 */
func InitLoggerWithMode(cfg *config.LogConfig, isServerMode bool) {
	logPath := cfg.Path
	if logPath == "" || logPath == "console" {
		logPath = filepath.Join(env.LogsDir(), "imc-manager.log")
	}
	output := setupLogFileOutput(logPath)

	// 服务器模式同时输出到控制台
	if isServerMode {
		output = io.MultiWriter(os.Stdout, output)
	}
	SetOutput(output, cfg.Level)
}

/**
 * Route all levels at or above the given level to w
 * @param {io.Writer} w - Destination writer
 * @param {string} level - Minimum level name
 * @description
 * - Levels below the threshold write to io.Discard
 * - Used directly by tests to capture log output
 */
func SetOutput(w io.Writer, level string) {
	logLevel := GetLogLevelFromString(level)
	flags := log.LstdFlags | log.Lshortfile

	l := &Logger{
		debugLogger: log.New(io.Discard, "DEBUG: ", flags),
		infoLogger:  log.New(io.Discard, "INFO: ", flags),
		warnLogger:  log.New(io.Discard, "WARN: ", flags),
		errorLogger: log.New(io.Discard, "ERROR: ", flags),
	}
	if logLevel <= DEBUG {
		l.debugLogger.SetOutput(w)
	}
	if logLevel <= INFO {
		l.infoLogger.SetOutput(w)
	}
	if logLevel <= WARN {
		l.warnLogger.SetOutput(w)
	}
	if logLevel <= ERROR {
		l.errorLogger.SetOutput(w)
	}

	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

// Writer 供gin等第三方组件复用日志输出
func Writer() io.Writer {
	l := current()
	if l == nil {
		return os.Stdout
	}
	return l.infoLogger.Writer()
}

// setupLogFileOutput 设置日志文件输出
func setupLogFileOutput(logPath string) io.Writer {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "创建日志目录失败: %v\n", err)
		return os.Stdout
	}

	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		// 日志系统初始化失败时退回标准输出
		fmt.Fprintf(os.Stderr, "打开日志文件失败: %v\n", err)
		return os.Stdout
	}
	return file
}

func current() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// Debug 输出调试日志
func Debug(v ...interface{}) {
	if l := current(); l != nil {
		l.debugLogger.Output(2, fmt.Sprintln(v...))
	}
}

// Debugf 输出格式化调试日志
func Debugf(format string, v ...interface{}) {
	if l := current(); l != nil {
		l.debugLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// Info 输出信息日志
func Info(v ...interface{}) {
	if l := current(); l != nil {
		l.infoLogger.Output(2, fmt.Sprintln(v...))
	}
}

// Infof 输出格式化信息日志
func Infof(format string, v ...interface{}) {
	if l := current(); l != nil {
		l.infoLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// Warn 输出警告日志
func Warn(v ...interface{}) {
	if l := current(); l != nil {
		l.warnLogger.Output(2, fmt.Sprintln(v...))
	}
}

// Warnf 输出格式化警告日志
func Warnf(format string, v ...interface{}) {
	if l := current(); l != nil {
		l.warnLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// Error 输出错误日志
func Error(v ...interface{}) {
	if l := current(); l != nil {
		l.errorLogger.Output(2, fmt.Sprintln(v...))
	}
}

// Errorf 输出格式化错误日志
func Errorf(format string, v ...interface{}) {
	if l := current(); l != nil {
		l.errorLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// Fatal 输出致命错误日志并退出程序
func Fatal(v ...interface{}) {
	if l := current(); l != nil {
		l.errorLogger.Output(2, fmt.Sprintln(v...))
	}
	fmt.Fprintln(os.Stderr, append([]interface{}{"FATAL:"}, v...)...)
	os.Exit(1)
}

// Fatalf 输出格式化致命错误日志并退出程序
func Fatalf(format string, v ...interface{}) {
	if l := current(); l != nil {
		l.errorLogger.Output(2, fmt.Sprintf(format, v...))
	}
	fmt.Fprintf(os.Stderr, "FATAL: "+format+"\n", v...)
	os.Exit(1)
}
