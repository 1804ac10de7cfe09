package fibscan

import (
	"errors"
	"fmt"
	"io"

	"github.com/raykavin/fibscan/pkg/activity"
	"github.com/raykavin/fibscan/pkg/api"
	"github.com/raykavin/fibscan/pkg/config"
	"github.com/raykavin/fibscan/pkg/core"
	"github.com/raykavin/fibscan/pkg/logger"
	"github.com/raykavin/fibscan/pkg/notification"
	"github.com/raykavin/fibscan/pkg/scanner"
	"github.com/raykavin/fibscan/pkg/storage"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultLog is the default logger instance
var DefaultLog logger.Logger

// App wires the scanner to its storage, notification and HTTP surfaces
type App struct {
	config     *config.Config
	market     core.MarketData
	storage    core.Storage
	settings   *config.Provider
	activity   *activity.Log
	scanner    *scanner.Controller
	telegram   *notification.Telegram
	dispatcher *notification.Dispatcher
	api        *api.Server
	log        logger.Logger

	progress       io.Writer
	scannerOptions []scanner.Option
}

// New creates an application over the given market data source
func New(cfg *config.Config, market core.MarketData, options ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{
		config: cfg,
		market: market,
		log:    DefaultLog,
	}

	// Apply custom options
	for _, option := range options {
		option(app)
	}

	if err := initializeStorage(app); err != nil {
		return nil, err
	}

	app.settings = config.NewProvider(cfg.Scanner.ScanConfig, app.storage)
	if err := app.settings.SeedPeriods(); err != nil {
		return nil, fmt.Errorf("failed to seed periods: %w", err)
	}
	app.activity = activity.New(app.storage, app.log)

	initializeScanner(app)

	if err := initializeNotifications(app); err != nil {
		return nil, err
	}

	if cfg.API.Enabled {
		app.api = api.NewServer(api.Config{Listen: cfg.API.Listen, Release: cfg.API.Release}, app.scanner, app.log,
			api.WithSignals(app.storage),
			api.WithLogs(app.activity),
			api.WithSettings(app.settings),
		)
	}

	return app, nil
}

// initializeStorage opens the configured storage unless one was provided
func initializeStorage(app *App) error {
	if app.storage != nil {
		return nil
	}

	store, err := OpenStorage(app.config.Storage)
	if err != nil {
		return err
	}
	app.storage = store
	return nil
}

// OpenStorage opens the settings store and, when configured, a separate SQLite journal
func OpenStorage(cfg config.StorageConfig) (core.Storage, error) {
	base, err := storage.FromFile(cfg.Path)
	if err != nil {
		return nil, err
	}

	if cfg.Journal != config.JournalSQLite {
		return base, nil
	}

	journal, err := storage.FromSQLite(cfg.JournalPath, &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, errors.Join(err, base.Close())
	}
	return storage.NewSplit(base, journal), nil
}

func initializeScanner(app *App) {
	options := []scanner.Option{
		scanner.WithWorkers(app.config.Scanner.Workers),
		scanner.WithStopTimeout(app.config.Scanner.StopTimeout),
		scanner.WithActivity(app.activity),
		scanner.WithLogger(app.log),
	}
	if app.config.Telegram.Enabled {
		options = append(options, scanner.WithNotifier(notifierFunc(app.notify), app.storage))
	}
	if app.progress != nil {
		options = append(options, scanner.OnScanned(newCycleProgress(app.progress).update))
	}

	app.scanner = scanner.NewController(app.market, app.settings, append(options, app.scannerOptions...)...)
}

// initializeNotifications sets up the Telegram bot
func initializeNotifications(app *App) error {
	if !app.config.Telegram.Enabled {
		return nil
	}

	telegram, err := notification.NewTelegram(app.config.Telegram, app.scanner, app.storage, app.log,
		notification.WithSignals(app.storage),
		notification.WithLogs(app.activity),
		notification.WithLogger(app.log),
	)
	if err != nil {
		return err
	}

	app.telegram = telegram
	app.dispatcher = notification.NewDispatcher(telegram, app.storage, app.log)
	return nil
}

// notifierFunc adapts a function to core.Notifier
type notifierFunc func(userID int64, text string) error

func (f notifierFunc) Notify(userID int64, text string) error {
	return f(userID, text)
}

// notify resolves the bot lazily, it is created after the scanner
func (a *App) notify(userID int64, text string) error {
	if a.telegram == nil {
		return nil
	}
	return a.telegram.Notify(userID, text)
}

// broadcast sends text to every subscribed user when Telegram is enabled
func (a *App) broadcast(text string) {
	if a.dispatcher == nil {
		return
	}
	if _, err := a.dispatcher.Broadcast(text); err != nil {
		a.log.WithError(err).Warn("failed to broadcast")
	}
}

func (a *App) Scanner() *scanner.Controller {
	return a.scanner
}

func (a *App) Storage() core.Storage {
	return a.storage
}

func (a *App) Settings() *config.Provider {
	return a.settings
}

func (a *App) Activity() *activity.Log {
	return a.activity
}

// Close releases the storage
func (a *App) Close() error {
	return a.storage.Close()
}
