package zerolog

import (
	"fmt"

	"github.com/raykavin/fibscan/pkg/logger"
	"github.com/rs/zerolog"
)

// Adapter implements logger.Logger on a zerolog.Logger
type Adapter struct {
	log zerolog.Logger
}

// NewAdapter wraps log
func NewAdapter(log zerolog.Logger) *Adapter {
	return &Adapter{log: log}
}

func (a *Adapter) with(ctx zerolog.Context) logger.Logger {
	return &Adapter{log: ctx.Logger()}
}

func (a *Adapter) WithField(key string, value any) logger.Logger {
	return a.with(a.log.With().Interface(key, value))
}

func (a *Adapter) WithFields(fields map[string]any) logger.Logger {
	return a.with(a.log.With().Fields(fields))
}

func (a *Adapter) WithError(err error) logger.Logger {
	return a.with(a.log.With().Err(err))
}

func (a *Adapter) Print(args ...any)                 { a.log.Print(args...) }
func (a *Adapter) Printf(format string, args ...any) { a.log.Printf(format, args...) }

func (a *Adapter) Trace(args ...any) { a.log.Trace().Msg(fmt.Sprint(args...)) }
func (a *Adapter) Debug(args ...any) { a.log.Debug().Msg(fmt.Sprint(args...)) }
func (a *Adapter) Info(args ...any)  { a.log.Info().Msg(fmt.Sprint(args...)) }
func (a *Adapter) Warn(args ...any)  { a.log.Warn().Msg(fmt.Sprint(args...)) }
func (a *Adapter) Error(args ...any) { a.log.Error().Msg(fmt.Sprint(args...)) }
func (a *Adapter) Fatal(args ...any) { a.log.Fatal().Msg(fmt.Sprint(args...)) }
func (a *Adapter) Panic(args ...any) { a.log.Panic().Msg(fmt.Sprint(args...)) }

func (a *Adapter) Tracef(format string, args ...any) { a.log.Trace().Msgf(format, args...) }
func (a *Adapter) Debugf(format string, args ...any) { a.log.Debug().Msgf(format, args...) }
func (a *Adapter) Infof(format string, args ...any)  { a.log.Info().Msgf(format, args...) }
func (a *Adapter) Warnf(format string, args ...any)  { a.log.Warn().Msgf(format, args...) }
func (a *Adapter) Errorf(format string, args ...any) { a.log.Error().Msgf(format, args...) }
func (a *Adapter) Fatalf(format string, args ...any) { a.log.Fatal().Msgf(format, args...) }
func (a *Adapter) Panicf(format string, args ...any) { a.log.Panic().Msgf(format, args...) }

// SetLevel changes the global zerolog level, so it affects every derived logger
func (a *Adapter) SetLevel(level logger.Level) {
	zerolog.SetGlobalLevel(toZerolog(level))
}

func (a *Adapter) GetLevel() logger.Level {
	level := a.log.GetLevel()
	if global := zerolog.GlobalLevel(); global > level {
		level = global
	}
	return fromZerolog(level)
}

var levels = []struct {
	own logger.Level
	z   zerolog.Level
}{
	{logger.Disabled, zerolog.Disabled},
	{logger.TraceLevel, zerolog.TraceLevel},
	{logger.DebugLevel, zerolog.DebugLevel},
	{logger.InfoLevel, zerolog.InfoLevel},
	{logger.WarnLevel, zerolog.WarnLevel},
	{logger.ErrorLevel, zerolog.ErrorLevel},
	{logger.FatalLevel, zerolog.FatalLevel},
	{logger.PanicLevel, zerolog.PanicLevel},
}

func fromZerolog(level zerolog.Level) logger.Level {
	for _, l := range levels {
		if l.z == level {
			return l.own
		}
	}
	return logger.NoLevel
}

func toZerolog(level logger.Level) zerolog.Level {
	for _, l := range levels {
		if l.own == level {
			return l.z
		}
	}
	return zerolog.NoLevel
}
