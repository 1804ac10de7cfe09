package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/raykavin/fibscan/pkg/core"
	"github.com/raykavin/fibscan/pkg/exchange"
	"github.com/raykavin/fibscan/pkg/indicator"
	"github.com/raykavin/fibscan/pkg/logger"
	"github.com/raykavin/fibscan/pkg/logger/zerolog"
	"github.com/raykavin/fibscan/pkg/strategy"
)

var (
	ErrAlreadyRunning = errors.New("scanner is already running")
	ErrNotRunning     = errors.New("scanner is not running")
)

const (
	DefaultWorkers     = 5
	DefaultStopTimeout = 10 * time.Second
	DefaultCycleWait   = 60 * time.Second

	// waits of the loop when a cycle cannot run
	ConfigRetryWait  = 60 * time.Second
	SymbolsRetryWait = 30 * time.Second
	FailureWait      = 60 * time.Second
)

// Display texts of the current symbol outside a cycle
const (
	waitingForConnection = "Waiting for connection..."
	waitingMode          = "In waiting mode..."
)

// Controller scans the instrument universe in cycles and publishes confirmed signals
type Controller struct {
	market   core.MarketData
	settings core.SettingsProvider
	strategy strategy.Strategy
	activity core.ActivityLogger
	users    core.UserStorage
	notifier core.Notifier
	queue    *SignalQueue
	log      logger.Logger

	workers     int
	stopTimeout time.Duration
	configWait  time.Duration
	symbolsWait time.Duration
	failureWait time.Duration
	now         func() time.Time

	onStart   func()
	onScanned func(scanned, total int64)

	stats Stats

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Controller
type Option func(*Controller)

func WithWorkers(workers int) Option {
	return func(c *Controller) {
		if workers > 0 {
			c.workers = workers
		}
	}
}

// WithStopTimeout bounds how long Stop waits for the loop to exit
func WithStopTimeout(timeout time.Duration) Option {
	return func(c *Controller) {
		if timeout > 0 {
			c.stopTimeout = timeout
		}
	}
}

// WithRetryWaits sets the waits after incomplete settings, a failed symbol list and a loop failure
func WithRetryWaits(config, symbols, failure time.Duration) Option {
	return func(c *Controller) {
		c.configWait = config
		c.symbolsWait = symbols
		c.failureWait = failure
	}
}

func WithStrategy(s strategy.Strategy) Option {
	return func(c *Controller) {
		c.strategy = s
	}
}

func WithActivity(activity core.ActivityLogger) Option {
	return func(c *Controller) {
		c.activity = activity
	}
}

// WithNotifier sends every signal to the active users of users
func WithNotifier(notifier core.Notifier, users core.UserStorage) Option {
	return func(c *Controller) {
		c.notifier = notifier
		c.users = users
	}
}

func WithQueue(queue *SignalQueue) Option {
	return func(c *Controller) {
		c.queue = queue
	}
}

func WithLogger(log logger.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// OnStart registers a callback run by Start before the loop is launched
func OnStart(fn func()) Option {
	return func(c *Controller) {
		c.onStart = fn
	}
}

// OnScanned registers a callback run each time a symbol is picked up by a worker
func OnScanned(fn func(scanned, total int64)) Option {
	return func(c *Controller) {
		c.onScanned = fn
	}
}

// NewController creates a stopped scanner
func NewController(market core.MarketData, settings core.SettingsProvider, options ...Option) *Controller {
	c := &Controller{
		market:      market,
		settings:    settings,
		strategy:    strategy.NewAxB(),
		activity:    nopActivity{},
		queue:       NewSignalQueue(),
		log:         zerolog.Nop(),
		workers:     DefaultWorkers,
		stopTimeout: DefaultStopTimeout,
		configWait:  ConfigRetryWait,
		symbolsWait: SymbolsRetryWait,
		failureWait: FailureWait,
		now:         time.Now,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Queue returns the sink confirmed signals are published to
func (c *Controller) Queue() *SignalQueue {
	return c.queue
}

// Status returns a snapshot of the live counters
func (c *Controller) Status() Status {
	return c.stats.Snapshot()
}

// Start resets the counters and launches the scan loop
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stats.State().Active() {
		return ErrAlreadyRunning
	}

	c.stats.reset()
	c.stats.setState(StateRunning)
	if c.onStart != nil {
		c.onStart()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.loop(ctx, c.done)

	c.log.Info("Scanner started")
	return nil
}

// Stop cancels the loop and waits up to the stop timeout for it to exit. The state keeps its
// last value while joining and is stopped afterwards, even if the loop did not exit in time.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.stats.State().Active() {
		return ErrNotRunning
	}

	c.cancel()

	select {
	case <-c.done:
	case <-time.After(c.stopTimeout):
		c.log.Warnf("scanner loop did not stop within %s", c.stopTimeout)
	}

	c.stats.setState(StateStopped)
	c.log.Info("Scanner stopped")
	return nil
}

// setState records a loop state unless a stop was requested
func (c *Controller) setState(ctx context.Context, state State) {
	if ctx.Err() == nil {
		c.stats.setState(state)
	}
}

func (c *Controller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for ctx.Err() == nil {
		wait := c.cycle(ctx)
		if err := sleep(ctx, wait); err != nil {
			return
		}
	}
}

// cycle runs one pass over the universe and returns how long to wait before the next one
func (c *Controller) cycle(ctx context.Context) (wait time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			c.activity.Error("ScannerLoopError", fmt.Sprint(r))
			c.setState(ctx, StateWaiting)
			wait = c.failureWait
		}
	}()

	c.setState(ctx, StateRunning)

	settings, err := c.settings.Settings()
	if err != nil {
		c.activity.Error("ScannerLoopError", err.Error())
		c.setState(ctx, StateWaiting)
		return c.failureWait
	}

	if missing := settings.Missing(); len(missing) > 0 {
		c.activity.Error("ScannerLoop",
			fmt.Sprintf("Settings (%s) could not be loaded completely.", strings.Join(missing, ", ")))
		return c.configWait
	}

	timeframes := []string{
		c.settings.ResolveTimeframe(settings.Timeframe1),
		c.settings.ResolveTimeframe(settings.Timeframe2),
	}

	instruments, err := c.market.Instruments(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return 0
		}
		c.activity.Alert("ScannerLoop",
			fmt.Sprintf("Could not retrieve symbol list: %v. Will retry in %s.", err, c.symbolsWait))
		c.stats.symbol.Set(waitingForConnection)
		c.setState(ctx, StateWaiting)
		return c.symbolsWait
	}
	instruments = exchange.FilterInstruments(instruments, settings.QuoteSuffix, settings.MinVolume)

	c.stats.total.Store(int64(len(instruments)))
	c.stats.scanned.Store(0)
	c.stats.found.Store(0)

	c.log.WithFields(map[string]any{
		"symbols":    len(instruments),
		"timeframes": strings.Join(timeframes, ","),
	}).Debug("scan cycle started")

	c.dispatch(ctx, instruments, timeframes, settings.PivotPeriod)
	if ctx.Err() != nil {
		return 0
	}

	wait = DefaultCycleWait
	if settings.WaitSeconds > 0 {
		wait = time.Duration(settings.WaitSeconds) * time.Second
	}

	c.stats.symbol.Set(waitingMode)
	c.stats.timeframe.Set(wait.String())
	c.stats.clearDisplay()
	c.setState(ctx, StateWaiting)

	return wait
}

// dispatch feeds the instruments to the worker pool and waits for every task to finish
func (c *Controller) dispatch(ctx context.Context, instruments []core.Instrument, timeframes []string, period int) {
	tasks := make(chan core.Instrument)

	var wg sync.WaitGroup
	for w := 0; w < c.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for instrument := range tasks {
				c.scan(ctx, instrument, timeframes, period)
			}
		}()
	}

send:
	for _, instrument := range instruments {
		select {
		case <-ctx.Done():
			break send
		case tasks <- instrument:
		}
	}

	close(tasks)
	wg.Wait()
}

// scan evaluates one symbol on every timeframe. A panic skips the symbol.
func (c *Controller) scan(ctx context.Context, instrument core.Instrument, timeframes []string, period int) {
	defer func() {
		if r := recover(); r != nil {
			c.activity.Error("ScanSymbol", fmt.Sprintf("%s: %v", instrument.Symbol, r))
		}
	}()

	scanned := c.stats.scanned.Add(1)
	if c.onScanned != nil {
		c.onScanned(scanned, c.stats.total.Load())
	}

	for _, timeframe := range timeframes {
		if ctx.Err() != nil {
			return
		}

		c.stats.symbol.Set(instrument.Symbol)
		c.stats.timeframe.Set(timeframe)

		bars, err := c.market.Bars(ctx, instrument.Symbol, timeframe)
		if err != nil {
			if ctx.Err() == nil {
				c.log.WithError(err).WithField("symbol", instrument.Symbol).Warnf("no bars for %s", timeframe)
			}
			continue
		}
		if bars.Len() == 0 || bars.Validate() != nil {
			continue
		}

		price := c.observe(ctx, instrument.Symbol, bars, period)

		for _, direction := range []core.Direction{core.DirectionLong, core.DirectionShort} {
			result := c.strategy.Evaluate(bars, period, direction)
			if !result.Confirmed() {
				continue
			}
			c.emit(ctx, instrument, timeframe, price.OrElse(bars.LastClose().OrElse(0)), result)
		}
	}
}

// observe updates the display stats and returns the last price of symbol. Values that cannot
// be computed are cleared.
func (c *Controller) observe(ctx context.Context, symbol string, bars core.Bars, period int) core.Optional[float64] {
	price := core.None[float64]()
	if p, err := c.market.LastPrice(ctx, symbol); err == nil {
		price = core.Some(p)
		c.stats.price.Set(p)
	} else {
		c.stats.price.Clear()
	}

	if pivots := indicator.ZigZag(bars, period); len(pivots) > 0 {
		c.stats.pivot.Set(pivots[len(pivots)-1].Price)
	} else {
		c.stats.pivot.Clear()
	}

	if level, ok := indicator.LastLevels(bars, period).Get(core.Ratio0618); ok {
		c.stats.fibLevel.Set(level)
	} else {
		c.stats.fibLevel.Clear()
	}

	return price
}

// emit builds, records, notifies and publishes a confirmed signal. Signals without a stop loss
// or take profit level are dropped.
func (c *Controller) emit(ctx context.Context, instrument core.Instrument, timeframe string, price float64, result strategy.Result) {
	stopLoss, takeProfit := result.StopLoss(), result.TakeProfit()
	if stopLoss == 0 || takeProfit == 0 {
		c.log.WithFields(map[string]any{
			"symbol":    instrument.Symbol,
			"timeframe": timeframe,
			"direction": string(result.Signal),
		}).Debug("signal dropped without stop loss or take profit")
		return
	}

	volume := instrument.Volume
	if v, err := c.market.Volume24h(ctx, instrument.Symbol); err == nil {
		volume = v
	}

	now := c.now()
	signal := core.Signal{
		ID:         core.NewID(now),
		Time:       now,
		Symbol:     instrument.Symbol,
		Timeframe:  timeframe,
		Direction:  result.Signal,
		Price:      price,
		Volume:     volume,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Levels: result.Levels.Select(core.Ratio0, core.Ratio001, core.Ratio0236, core.Ratio0382,
			core.Ratio05, core.Ratio0618, core.Ratio1),
		Pattern: result.Signal.Pattern(),
	}

	c.stats.found.Add(1)
	c.stats.lastSignal.Set(now)

	title := "LongSignal"
	if signal.Direction == core.DirectionShort {
		title = "ShortSignal"
	}
	c.activity.Transaction(title, signal.String())

	c.notify(signal)
	c.queue.Publish(signal)
}

func (c *Controller) notify(signal core.Signal) {
	if c.notifier == nil || c.users == nil {
		return
	}

	users, err := c.users.ActiveUsers()
	if err != nil {
		c.log.WithError(err).Error("failed to load active users")
		return
	}

	message := signal.Message()
	for _, user := range users {
		if err := c.notifier.Notify(user.ID, message); err != nil {
			c.log.WithError(err).WithField("user", user.ID).Warn("failed to notify user")
		}
	}
}

// sleep waits for d or until the context is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type nopActivity struct{}

func (nopActivity) Error(string, string)       {}
func (nopActivity) Alert(string, string)       {}
func (nopActivity) Transaction(string, string) {}
