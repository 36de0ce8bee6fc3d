package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	AppLogger   *logrus.Logger
	ProxyLogger *logrus.Logger
	ErrorLogger *logrus.Logger

	mu           sync.Mutex
	logLevel     string
	appLogFile   *lumberjack.Logger
	proxyLogFile *lumberjack.Logger
	initialized  bool
)

func parseLevel(level string) (string, logrus.Level) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return "DEBUG", logrus.DebugLevel
	case "WARN", "WARNING":
		return "WARN", logrus.WarnLevel
	case "ERROR":
		return "ERROR", logrus.ErrorLevel
	default:
		return "INFO", logrus.InfoLevel
	}
}

func newFileLogger(path, scope string, level logrus.Level) (*logrus.Logger, *lumberjack.Logger) {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	l.SetLevel(level)
	l.SetOutput(io.Discard)

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		ErrorLogger.Errorf("Failed to create %s log directory %s: %v. %s logs will be discarded.", scope, filepath.Dir(path), err, scope)
		return l, nil
	}
	rotating := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}
	l.SetOutput(rotating)
	return l, rotating
}

// InitGlobalLoggers (re)creates the app and proxy loggers. Errors are always mirrored to stderr.
func InitGlobalLoggers(appLogPath, proxyLogPath, level string) error {
	mu.Lock()
	defer mu.Unlock()

	name, lvl := parseLevel(level)
	if initialized && name == logLevel && appLogFile != nil && proxyLogFile != nil &&
		appLogFile.Filename == appLogPath && proxyLogFile.Filename == proxyLogPath {
		return nil
	}
	closeFiles()
	logLevel = name

	ErrorLogger = logrus.New()
	ErrorLogger.SetOutput(os.Stderr)
	ErrorLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	ErrorLogger.SetLevel(logrus.ErrorLevel)

	AppLogger, appLogFile = newFileLogger(appLogPath, "app", lvl)
	ProxyLogger, proxyLogFile = newFileLogger(proxyLogPath, "proxy", lvl)

	if !initialized {
		AppLogger.Infof("App logger initialized. Log level: %s. Output file: %s", logLevel, appLogPath)
		ProxyLogger.Infof("Proxy logger initialized. Log level: %s. Output file: %s", logLevel, proxyLogPath)
	}
	initialized = true
	return nil
}

// SetOutput redirects both file loggers, mostly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	ensureDefaults()
	AppLogger.SetOutput(w)
	ProxyLogger.SetOutput(w)
	ErrorLogger.SetOutput(w)
}

// ensureDefaults lets packages log before InitGlobalLoggers ran (tests, early startup).
func ensureDefaults() {
	if ErrorLogger == nil {
		ErrorLogger = logrus.New()
		ErrorLogger.SetOutput(os.Stderr)
		ErrorLogger.SetLevel(logrus.ErrorLevel)
	}
	if AppLogger == nil {
		AppLogger = logrus.New()
		AppLogger.SetOutput(io.Discard)
	}
	if ProxyLogger == nil {
		ProxyLogger = logrus.New()
		ProxyLogger.SetOutput(io.Discard)
	}
}

func get() (app, proxy, errs *logrus.Logger) {
	mu.Lock()
	defer mu.Unlock()
	ensureDefaults()
	return AppLogger, ProxyLogger, ErrorLogger
}

func Info(format string, v ...interface{}) {
	app, _, _ := get()
	app.Infof(format, v...)
}

func Debug(format string, v ...interface{}) {
	app, _, _ := get()
	app.Debugf(format, v...)
}

func Warn(format string, v ...interface{}) {
	app, _, _ := get()
	app.Warnf(format, v...)
}

func Error(format string, v ...interface{}) {
	app, _, errs := get()
	message := fmt.Sprintf(format, v...)
	errs.Error(message)
	app.Error(message)
}

func Fatal(format string, v ...interface{}) {
	_, _, errs := get()
	errs.Fatalf(format, v...)
}

func ProxyInfo(format string, v ...interface{}) {
	_, proxy, _ := get()
	proxy.Infof(format, v...)
}

func ProxyDebug(format string, v ...interface{}) {
	_, proxy, _ := get()
	proxy.Debugf(format, v...)
}

func ProxyWarn(format string, v ...interface{}) {
	_, proxy, _ := get()
	proxy.Warnf(format, v...)
}

func ProxyError(format string, v ...interface{}) {
	_, proxy, errs := get()
	message := fmt.Sprintf(format, v...)
	errs.Error(message)
	proxy.Error(message)
}

func closeFiles() {
	if appLogFile != nil {
		appLogFile.Close()
		appLogFile = nil
	}
	if proxyLogFile != nil {
		proxyLogFile.Close()
		proxyLogFile = nil
	}
}

func CloseLogFiles() {
	mu.Lock()
	defer mu.Unlock()
	if AppLogger != nil && appLogFile != nil {
		AppLogger.Info("Closing app log file.")
	}
	if ProxyLogger != nil && proxyLogFile != nil {
		ProxyLogger.Info("Closing proxy log file.")
	}
	closeFiles()
	initialized = false // Allow re-initialization (tests)
}
