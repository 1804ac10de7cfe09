// Package zerolog adapts rs/zerolog to logger.Logger with a goterm coloured console writer.
package zerolog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/goterm/term"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	messageWidth = 80
	fileWidth    = 18
	lineWidth    = 4
)

// New creates a console logger on stdout. jsonFormat writes plain JSON lines instead.
func New(level, dateTimeLayout string, colored, jsonFormat bool) (*Adapter, error) {
	return NewWithWriter(os.Stdout, level, dateTimeLayout, colored, jsonFormat)
}

// NewWithWriter creates a logger writing to w
func NewWithWriter(w io.Writer, level, dateTimeLayout string, colored, jsonFormat bool) (*Adapter, error) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(logLevel)

	if jsonFormat {
		return NewAdapter(zerolog.New(w).Level(logLevel).With().Timestamp().Caller().Logger()), nil
	}

	output := zerolog.ConsoleWriter{
		Out:           w,
		NoColor:       !colored,
		TimeFormat:    dateTimeLayout,
		FormatLevel:   formatLevel,
		FormatMessage: formatMessage,
		FormatCaller:  formatCaller,
		FormatTimestamp: func(i any) string {
			return formatTimestamp(i, dateTimeLayout)
		},
	}

	return NewAdapter(zerolog.New(output).
		Level(logLevel).
		With().
		Timestamp().
		CallerWithSkipFrameCount(3).
		Logger()), nil
}

// Nop returns a logger that discards everything
func Nop() *Adapter {
	return NewAdapter(zerolog.Nop())
}

var levelTags = map[string]func(string, ...any) string{
	zerolog.LevelTraceValue: term.Cyanf,
	zerolog.LevelDebugValue: term.Cyanf,
	zerolog.LevelInfoValue:  term.Greenf,
	zerolog.LevelWarnValue:  term.Yellowf,
	zerolog.LevelErrorValue: term.Redf,
	zerolog.LevelFatalValue: term.Redf,
	zerolog.LevelPanicValue: term.Redf,
}

// formatLevel renders a level as a coloured three letter tag, e.g. [INF]
func formatLevel(i any) string {
	level, ok := i.(string)
	if !ok {
		return "UNKNOWN"
	}

	colour, ok := levelTags[level]
	if !ok {
		return term.Whitef("[UNK]")
	}

	tag := strings.ToUpper(level)
	if len(tag) > 3 {
		tag = tag[:3]
	}
	return colour("[%s]", tag)
}

func formatMessage(i any) string {
	msg, ok := i.(string)
	if !ok || len(msg) == 0 {
		return ">"
	}

	if len(msg) > messageWidth {
		msg = msg[:messageWidth]
	}
	return term.Whitef("> %-*s", messageWidth, msg)
}

// formatCaller pads file:line to a fixed width so messages line up
func formatCaller(i any) string {
	name, ok := i.(string)
	if !ok || len(name) == 0 {
		return ""
	}

	caller := filepath.Base(name)
	file, line, found := strings.Cut(caller, ":")
	if !found {
		return caller
	}

	if len(file) > fileWidth {
		file = file[:fileWidth]
	}
	if len(line) > lineWidth {
		line = line[len(line)-lineWidth:]
	}

	return term.Yellowf("[%s]", fmt.Sprintf("%-*s:%*s", fileWidth, file, lineWidth, line))
}

func formatTimestamp(i any, layout string) string {
	value, ok := i.(string)
	if !ok {
		return term.Cyanf("[%v]", i)
	}

	if ts, err := time.ParseInLocation(time.RFC3339, value, time.Local); err == nil {
		value = ts.In(time.Local).Format(layout)
	}
	return term.Cyanf("[%s]", value)
}
