package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Logger 全局日志实例
	Logger *logrus.Logger
	// savedConfig 保存的日志配置（用于创建组件专用日志文件）
	savedConfig Config
	// fileLoggers 组件专用日志（按文件名复用）
	fileLoggers = map[string]*logrus.Entry{}
	// logMu 日志初始化锁
	logMu sync.Mutex
)

// Config 日志配置
type Config struct {
	Level      string // 日志级别: debug, info, warn, error
	OutputFile string // 日志文件路径（可选，为空则只输出到控制台）
	MaxSize    int    // 日志文件最大大小（MB）
	MaxBackups int    // 保留的旧日志文件数量
	MaxAge     int    // 保留旧日志文件的天数
	Compress   bool   // 是否压缩旧日志文件
}

func textFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "06-01-02 15:04:05", // 格式: yy-mm-dd HH:MM:ss
	}
}

func rotatingWriter(path string, c Config) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
	}, nil
}

// Init 初始化日志系统
func Init(config Config) error {
	logMu.Lock()
	defer logMu.Unlock()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	writers := []io.Writer{os.Stdout}
	if config.OutputFile != "" {
		w, err := rotatingWriter(config.OutputFile, config)
		if err != nil {
			return err
		}
		writers = append(writers, w)
	}
	savedConfig = config
	fileLoggers = map[string]*logrus.Entry{}

	multiWriter := io.MultiWriter(writers...)
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(textFormatter())
	logger.SetOutput(multiWriter)

	// 同时设置全局 logrus，模块里 logrus.WithField() 创建的 logger 也能写入文件
	logrus.SetOutput(multiWriter)
	logrus.SetLevel(level)
	logrus.SetFormatter(textFormatter())

	Logger = logger
	return nil
}

// InitDefault 使用默认配置初始化日志系统
func InitDefault() error {
	return Init(Config{
		Level:      "info",
		OutputFile: "logs/wfmtrader.log",
		MaxSize:    100, // 100MB
		MaxBackups: 3,
		MaxAge:     7, // 7天
		Compress:   true,
	})
}

// LogPath 返回组件专用日志文件的路径；未配置日志文件时返回空串
func LogPath(name string) string {
	logMu.Lock()
	defer logMu.Unlock()
	if savedConfig.OutputFile == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(savedConfig.OutputFile), name+".log")
}

// NewFileLogger 返回写入独立轮转文件的日志（与主日志同目录，如 logs/live_trader.log）。
// 未配置日志文件时退化为全局 logrus。
func NewFileLogger(name string) *logrus.Entry {
	logMu.Lock()
	defer logMu.Unlock()

	if e, ok := fileLoggers[name]; ok {
		return e
	}
	if savedConfig.OutputFile == "" {
		e := logrus.WithField("log", name)
		fileLoggers[name] = e
		return e
	}

	path := filepath.Join(filepath.Dir(savedConfig.OutputFile), name+".log")
	w, err := rotatingWriter(path, savedConfig)
	if err != nil {
		logrus.Warnf("创建日志文件失败 %s: %v", path, err)
		return logrus.WithField("log", name)
	}

	l := logrus.New()
	l.SetLevel(logrus.GetLevel())
	l.SetFormatter(textFormatter())
	l.SetOutput(w)
	e := l.WithField("log", name)
	fileLoggers[name] = e
	return e
}

// Debugf 记录格式化的 DEBUG 级别日志
func Debugf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Debugf(format, args...)
	}
}

// Infof 记录格式化的 INFO 级别日志
func Infof(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Infof(format, args...)
	}
}

// Warnf 记录格式化的 WARN 级别日志
func Warnf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Warnf(format, args...)
	}
}

// Errorf 记录格式化的 ERROR 级别日志
func Errorf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Errorf(format, args...)
	}
}

// WithField 添加字段到日志上下文
func WithField(key string, value interface{}) *logrus.Entry {
	if Logger != nil {
		return Logger.WithField(key, value)
	}
	return logrus.WithField(key, value)
}
