// Package logger owns the process log: a size-rotated JSON file written through
// zap, with old files zipped after the retention period.
package logger

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerService struct {
	Config        map[string]interface{}
	file          *os.File
	mu            sync.Mutex
	stopCh        chan struct{}
	wg            sync.WaitGroup
	currentLog    string
	maxFileBytes  int64
	retentionDays int
	folderPath    string
	level         zapcore.Level
	console       bool
	zl            *zap.Logger
	undoStdLog    func()
}

func NewLoggerService(config map[string]interface{}) *LoggerService {
	folder, _ := config["folder_path"].(string)
	if folder == "" {
		folder = "./logs"
	}
	level := zapcore.InfoLevel
	if s, ok := config["level"].(string); ok {
		_ = level.Set(s)
	}
	console, _ := config["console"].(bool)
	return &LoggerService{
		Config:        config,
		stopCh:        make(chan struct{}),
		maxFileBytes:  int64(intValue(config["max_file_mb"])) * 1024 * 1024,
		retentionDays: intValue(config["retention_days"]),
		folderPath:    folder,
		level:         level,
		console:       console,
	}
}

// yaml.v3 decodes whole numbers as int, JSON as float64.
func intValue(v interface{}) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	}
	return 0
}

func (l *LoggerService) Name() string {
	return "logger"
}

func (l *LoggerService) Start() error {
	if err := os.MkdirAll(l.folderPath, 0755); err != nil {
		return err
	}
	l.mu.Lock()
	logFile := l.nextLogFileName()
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	l.file = file
	l.currentLog = logFile
	l.mu.Unlock()

	l.zl = l.build()
	l.undoStdLog = zap.RedirectStdLog(l.zl)
	l.zl.Info("logger started", zap.String("file", logFile))

	// rotation and retention
	l.wg.Add(1)
	go l.backgroundWorker()

	return nil
}

func (l *LoggerService) build() *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(l), l.level),
	}
	if l.console {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), l.level))
	}
	zl := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		zl = zl.With(zap.String("hostname", hostname))
	}
	return zl
}

// Write sends p to the current log file.
func (l *LoggerService) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return len(p), nil
	}
	return l.file.Write(p)
}

func (l *LoggerService) Stop() error {
	close(l.stopCh)
	l.wg.Wait()
	if l.zl != nil {
		l.zl.Info("logger stopping")
		_ = l.zl.Sync()
	}
	if l.undoStdLog != nil {
		l.undoStdLog()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *LoggerService) CurrentFile() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentLog
}

func (l *LoggerService) nextLogFileName() string {
	timestamp := time.Now().Format("20060102_150405.000")
	return filepath.Join(l.folderPath, fmt.Sprintf("app_%s.log", timestamp))
}

func (l *LoggerService) rotateIfNeeded() error {
	l.mu.Lock()
	if l.file == nil || l.maxFileBytes <= 0 {
		l.mu.Unlock()
		return nil
	}
	info, err := l.file.Stat()
	if err != nil {
		l.mu.Unlock()
		return err
	}
	if info.Size() < l.maxFileBytes {
		l.mu.Unlock()
		return nil
	}
	newLog := l.nextLogFileName()
	if newLog == l.currentLog {
		newLog = filepath.Join(l.folderPath, fmt.Sprintf("app_%s_%d.log", time.Now().Format("20060102_150405.000"), time.Now().UnixNano()))
	}
	file, err := os.OpenFile(newLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	l.file.Close()
	l.file = file
	l.currentLog = newLog
	l.mu.Unlock()

	if l.zl != nil {
		l.zl.Info("rotated log file", zap.String("file", newLog))
	}
	return nil
}

func (l *LoggerService) backgroundWorker() {
	defer l.wg.Done()
	ticker := time.NewTicker(10 * time.Second)
	retentionTicker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	defer retentionTicker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			if err := l.rotateIfNeeded(); err != nil && l.zl != nil {
				l.zl.Warn("log rotation failed", zap.Error(err))
			}
		case <-retentionTicker.C:
			l.zipAndCleanOldLogs(time.Now())
		}
	}
}

// zipAndCleanOldLogs moves .log files older than the retention period into a
// dated zip in the log folder.
func (l *LoggerService) zipAndCleanOldLogs(now time.Time) (archived int) {
	if l.retentionDays <= 0 {
		return 0
	}
	cutoff := now.AddDate(0, 0, -l.retentionDays)
	files, err := os.ReadDir(l.folderPath)
	if err != nil {
		return 0
	}
	current := l.CurrentFile()

	var old []string
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".log" {
			continue
		}
		fullPath := filepath.Join(l.folderPath, f.Name())
		if fullPath == current {
			continue
		}
		info, err := os.Stat(fullPath)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		old = append(old, fullPath)
	}
	if len(old) == 0 {
		return 0
	}

	zipName := filepath.Join(l.folderPath, fmt.Sprintf("logs_%s.zip", now.Format("20060102")))
	zipFile, err := os.Create(zipName)
	if err != nil {
		return 0
	}
	defer zipFile.Close()
	zipWriter := zip.NewWriter(zipFile)
	defer zipWriter.Close()

	for _, fullPath := range old {
		w, err := zipWriter.Create(filepath.Base(fullPath))
		if err != nil {
			continue
		}
		src, err := os.Open(fullPath)
		if err != nil {
			continue
		}
		_, err = io.Copy(w, src)
		src.Close()
		if err != nil {
			continue
		}
		os.Remove(fullPath)
		archived++
	}
	return archived
}

// LogAudit records an audit line.
func (l *LoggerService) LogAudit(msg string) {
	l.Logger().Info(msg, zap.Bool("audit", true))
}

// Logger is the service's zap logger, or a no-op before Start.
func (l *LoggerService) Logger() *zap.Logger {
	if l == nil || l.zl == nil {
		return zap.NewNop()
	}
	return l.zl
}

var (
	globalMu     sync.RWMutex
	GlobalLogger *LoggerService
)

func SetGlobalLogger(l *LoggerService) {
	globalMu.Lock()
	defer globalMu.Unlock()
	GlobalLogger = l
}

// L returns the process logger. It is safe to call before the logger service
// starts.
func L() *zap.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return GlobalLogger.Logger()
}
