package logger

import (
	"io"
	stdlog "log"

	"github.com/aleister1102/designdiff/internal/common"
	"github.com/aleister1102/designdiff/internal/config"
	"github.com/rs/zerolog"
)

// LoggerBuilder assembles a zerolog logger from config.LogConfig
type LoggerBuilder struct {
	config    LoggerConfig
	configErr error
	factory   *WriterFactory
	converter *ConfigConverter
}

func NewLoggerBuilder() *LoggerBuilder {
	return &LoggerBuilder{
		config:    DefaultLoggerConfig(),
		factory:   NewWriterFactory(),
		converter: NewConfigConverter(),
	}
}

// WithConfig applies cfg. An invalid level is reported by Build.
func (lb *LoggerBuilder) WithConfig(cfg config.LogConfig) *LoggerBuilder {
	lb.config, lb.configErr = lb.converter.ConvertConfig(cfg)
	return lb
}

// WithRunID tags every entry with the run id and keeps the log file under runs/<id>/
func (lb *LoggerBuilder) WithRunID(runID string) *LoggerBuilder {
	lb.config.RunID = runID
	return lb
}

// WithConsoleOutput redirects console output, mostly useful in tests
func (lb *LoggerBuilder) WithConsoleOutput(w io.Writer) *LoggerBuilder {
	lb.factory.console = w
	return lb
}

func (lb *LoggerBuilder) Build() (*Logger, error) {
	if lb.configErr != nil {
		return nil, lb.configErr
	}
	switch {
	case lb.config.EnableFile && lb.config.FilePath == "":
		return nil, common.NewValidationError("file_path", lb.config.FilePath, "file path required when file logging enabled")
	case lb.config.MaxSizeMB <= 0:
		return nil, common.NewValidationError("max_size_mb", lb.config.MaxSizeMB, "max size must be positive")
	}

	var writers []io.Writer
	if lb.config.EnableConsole {
		writers = append(writers, lb.factory.CreateConsoleWriter(lb.config.Format))
	}
	if lb.config.EnableFile {
		writers = append(writers, lb.factory.CreateFileWriter(lb.config))
	}
	if len(writers) == 0 {
		return nil, common.NewError("no output writers configured")
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lb.config.Level).
		With().
		Timestamp()
	if lb.config.RunID != "" {
		ctx = ctx.Str("run_id", lb.config.RunID)
	}
	zl := ctx.Logger()

	// rod and net/http report through the standard logger
	zerolog.SetGlobalLevel(lb.config.Level)
	stdlog.SetOutput(zl)
	stdlog.SetFlags(0)

	return &Logger{zerolog: zl, config: lb.config}, nil
}
