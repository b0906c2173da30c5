package helpers

import (
	"io"
	"os"
	"path/filepath"

	"github.com/FlashPrepProject/flashprep-core/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var baseWriter io.Writer = os.Stderr

func InitLogging(logDir string, writers []io.Writer) error {
	err := os.MkdirAll(logDir, 0o750)
	if err != nil {
		return err
	}

	logWriters := []io.Writer{&lumberjack.Logger{
		Filename:   filepath.Join(logDir, config.LogFile),
		MaxSize:    1,
		MaxBackups: 2,
	}}

	if len(writers) > 0 {
		logWriters = append(logWriters, writers...)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	baseWriter = io.MultiWriter(logWriters...)
	log.Logger = log.Output(baseWriter).
		With().Timestamp().Caller().Logger()

	return nil
}

// LogWriter returns the writer configured by InitLogging so additional
// sinks can be layered on top of it.
func LogWriter() io.Writer {
	return baseWriter
}
