package log

import (
	"highlight-ai/internal/appdirs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Logger *zap.Logger

const logFileName = "app.log"

var appDirsResolver = appdirs.Resolve

// consoleLevel can be raised or lowered after startup, e.g. from config.
var consoleLevel = zap.NewAtomicLevelAt(zap.InfoLevel)

func InitLogger() {
	logDir, err := ResolveLogDir()
	if err != nil {
		panic("无法解析日志目录: " + err.Error())
	}

	if err = os.MkdirAll(logDir, 0o755); err != nil {
		panic("无法创建日志目录: " + err.Error())
	}

	logFilePath := filepath.Join(logDir, logFileName)
	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		panic("无法打开日志文件: " + err.Error())
	}

	fileSyncer := zapcore.AddSync(file)
	consoleSyncer := zapcore.AddSync(os.Stdout)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), fileSyncer, zap.DebugLevel),   // 写入文件（JSON 格式）
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), consoleSyncer, consoleLevel), // 输出到终端
	)

	Logger = zap.New(core, zap.AddCaller())
}

// SetConsoleLevel changes the terminal verbosity; the file core always keeps
// debug output. Unknown names are ignored.
func SetConsoleLevel(level string) {
	level = strings.TrimSpace(level)
	if level == "" {
		return
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return
	}
	consoleLevel.SetLevel(l)
}

func ResolveLogDir() (string, error) {
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}

	logDir := strings.TrimSpace(dirs.LogDir)
	if logDir == "" {
		return ".", nil
	}

	return logDir, nil
}

func ResolveLogFilePath() (string, error) {
	logDir, err := ResolveLogDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(logDir, logFileName), nil
}

// GetLogger returns a no-op logger until InitLogger has run, so library code
// and tests never need to initialize logging first.
func GetLogger() *zap.Logger {
	if Logger == nil {
		return zap.NewNop()
	}
	return Logger
}
