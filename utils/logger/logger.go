package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/datazip-inc/olake-intercom/constants"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger zerolog.Logger

func init() {
	// usable before Init, console only
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}

// Init configures console logging on stderr and rotating file logs inside CONFIG_FOLDER.
// stdout stays reserved for the message stream written by the stdout destination.
func Init() {
	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}}

	if folder := viper.GetString(constants.ConfigFolder); folder != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(folder, "logs", "sync.log"),
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}

	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(viper.GetString("LOG_LEVEL"))); err == nil && parsed != zerolog.NoLevel {
		level = parsed
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp()
	if syncID := viper.GetString(constants.SyncID); syncID != "" {
		ctx = ctx.Str("sync_id", syncID)
	}
	logger = ctx.Logger()
}

func Info(v ...any) {
	logger.Info().Msg(fmt.Sprint(v...))
}

func Infof(format string, v ...any) {
	logger.Info().Msgf(format, v...)
}

func Debug(v ...any) {
	logger.Debug().Msg(fmt.Sprint(v...))
}

func Debugf(format string, v ...any) {
	logger.Debug().Msgf(format, v...)
}

func Warn(v ...any) {
	logger.Warn().Msg(fmt.Sprint(v...))
}

func Warnf(format string, v ...any) {
	logger.Warn().Msgf(format, v...)
}

func Error(v ...any) {
	logger.Error().Msg(fmt.Sprint(v...))
}

func Errorf(format string, v ...any) {
	logger.Error().Msgf(format, v...)
}

func Fatal(v ...any) {
	logger.Error().Msg(fmt.Sprint(v...))
	os.Exit(1)
}

func Fatalf(format string, v ...any) {
	logger.Error().Msgf(format, v...)
	os.Exit(1)
}

// LogState persists the state to STATE_PATH; a failure only gets logged since the
// sink already received the same state
func LogState(state any) {
	path := viper.GetString(constants.StatePath)
	if path == "" {
		return
	}

	if err := writeJSON(path, state); err != nil {
		Errorf("failed to write state file[%s]: %s", path, err)
	}
}

// LogCatalog writes the discovered catalog to STREAMS_PATH and echoes it to stdout
func LogCatalog(catalog any) {
	if path := viper.GetString(constants.StreamsPath); path != "" {
		if err := writeJSON(path, catalog); err != nil {
			Errorf("failed to write streams file[%s]: %s", path, err)
		}
	}

	data, err := json.Marshal(catalog)
	if err != nil {
		Errorf("failed to marshal catalog: %s", err)
		return
	}
	fmt.Fprintln(os.Stdout, string(data))
}

// FileLogger writes content as JSON to <CONFIG_FOLDER>/<fileName><fileExtension>
func FileLogger(content any, fileName, fileExtension string) {
	folder := viper.GetString(constants.ConfigFolder)
	if folder == "" {
		folder = os.TempDir()
	}

	path := filepath.Join(folder, fileName+fileExtension)
	if err := writeJSON(path, content); err != nil {
		Errorf("failed to write %s: %s", path, err)
		return
	}
	Infof("%s written to %s", fileName, path)
}

// writeJSON replaces path through a temp file so a crash never leaves a half written state
func writeJSON(path string, content any) error {
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
