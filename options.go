package fibscan

import (
	"io"

	"github.com/raykavin/fibscan/pkg/core"
	"github.com/raykavin/fibscan/pkg/logger"
	"github.com/raykavin/fibscan/pkg/scanner"
)

// Option is a functional option for configuring an App instance
type Option func(*App)

// WithStorage sets the storage for the app, by default it opens the configured files
func WithStorage(storage core.Storage) Option {
	return func(app *App) {
		app.storage = storage
	}
}

// WithLogger replaces DefaultLog for this app
func WithLogger(log logger.Logger) Option {
	return func(app *App) {
		app.log = log
	}
}

// WithLogLevel sets the log level. eg: logger.DebugLevel, logger.InfoLevel, logger.WarnLevel
func WithLogLevel(level logger.Level) Option {
	return func(app *App) {
		app.log.SetLevel(level)
	}
}

// WithProgress draws the progress of each scan cycle to w
func WithProgress(w io.Writer) Option {
	return func(app *App) {
		app.progress = w
	}
}

// WithScannerOptions passes extra options to the scanner controller
func WithScannerOptions(options ...scanner.Option) Option {
	return func(app *App) {
		app.scannerOptions = append(app.scannerOptions, options...)
	}
}
