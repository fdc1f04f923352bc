package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// 日志按自然日分文件，跨天写入时自动滚动到新文件
type sink struct {
	mu        sync.Mutex
	logsDir   string
	debugMode bool
	file      *os.File
	out       *log.Logger
	day       string
}

var global sink

// Init 初始化日志系统
// debug: 是否为调试模式(日志同时输出到控制台,并启用 Debug 级别)
func Init(logsDir string, debug bool) error {
	global.mu.Lock()
	defer global.mu.Unlock()

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	global.logsDir = logsDir
	global.debugMode = debug

	if err := global.openForDay(time.Now()); err != nil {
		return err
	}

	if debug {
		fmt.Printf("🐛 调试模式已启用,日志输出到控制台和文件: %s\n", global.currentPath())
	}

	global.out.Output(2, fmt.Sprintf("[INFO] 日志系统初始化完成,日志文件: %s", global.currentPath()))
	return nil
}

// Close 关闭日志文件
func Close() {
	global.mu.Lock()
	defer global.mu.Unlock()

	if global.file != nil {
		global.file.Close()
		global.file = nil
		global.out = nil
	}
}

// openForDay 打开给定日期的日志文件，调用方持有锁
func (s *sink) openForDay(now time.Time) error {
	day := now.Format("2006-01-02")

	logPath := filepath.Join(s.logsDir, "reportbot_"+day+".log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if s.file != nil {
		s.file.Close()
	}

	var w io.Writer = f
	if s.debugMode {
		w = io.MultiWriter(os.Stdout, f)
	}

	s.file = f
	s.out = log.New(w, "", log.Ldate|log.Ltime|log.Lshortfile)
	s.day = day
	return nil
}

func (s *sink) currentPath() string {
	return filepath.Join(s.logsDir, "reportbot_"+s.day+".log")
}

// write 写一条带级别前缀的日志
// 未初始化时退回控制台输出，组件在 Init 之前也可以打日志
func (s *sink) write(level, format string, v ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.out == nil {
		fmt.Printf("["+level+"] "+format+"\n", v...)
		return
	}

	if day := time.Now().Format("2006-01-02"); day != s.day {
		if err := s.openForDay(time.Now()); err != nil {
			fmt.Printf("[ERROR] 日志滚动失败: %v\n", err)
		}
	}

	s.out.Output(3, fmt.Sprintf("[%s] %s", level, fmt.Sprintf(format, v...)))
}

// Info 信息日志
func Info(format string, v ...interface{}) {
	global.write("INFO", format, v...)
}

// Warn 警告日志
func Warn(format string, v ...interface{}) {
	global.write("WARN", format, v...)
}

// Error 错误日志
func Error(format string, v ...interface{}) {
	global.write("ERROR", format, v...)
}

// Debug 调试日志，仅调试模式下写入
func Debug(format string, v ...interface{}) {
	if !global.debugMode {
		return
	}
	global.write("DEBUG", format, v...)
}
