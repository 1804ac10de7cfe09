// Package notification delivers scanner signals and exposes the scanner commands over Telegram
package notification

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raykavin/fibscan/pkg/core"
	"github.com/raykavin/fibscan/pkg/logger"
	"github.com/raykavin/fibscan/pkg/scanner"

	"github.com/samber/lo"
	tb "gopkg.in/tucnak/telebot.v2"
)

// signalsShown is how many journal signals /signals replies with
const signalsShown = 5

// Scanner is the control surface the bot drives
type Scanner interface {
	Start() error
	Stop() error
	Status() scanner.Status
}

// LogReader returns the activity of one day, optionally of a single kind
type LogReader interface {
	Day(day time.Time, kind core.LogKind) ([]core.LogEntry, error)
}

// sender is the part of the telebot client used to reply
type sender interface {
	Send(to tb.Recipient, what interface{}, options ...interface{}) (*tb.Message, error)
}

// Telegram implements core.Notifier and answers the scanner commands
type Telegram struct {
	client  *tb.Bot
	sender  sender
	menu    *tb.ReplyMarkup
	scanner Scanner
	users   core.UserStorage
	signals core.SignalStorage
	logs    LogReader
	admins  []int64
	log     logger.Logger
	now     func() time.Time
}

// Option is a function that configures a telegram instance
type Option func(telegram *Telegram)

// WithSignals enables /signals over the given journal
func WithSignals(signals core.SignalStorage) Option {
	return func(t *Telegram) {
		t.signals = signals
	}
}

// WithLogs enables /logs over the given activity log
func WithLogs(logs LogReader) Option {
	return func(t *Telegram) {
		t.logs = logs
	}
}

func WithLogger(log logger.Logger) Option {
	return func(t *Telegram) {
		t.log = log
	}
}

// NewTelegram creates the bot client, its commands and the user registration middleware
func NewTelegram(settings core.TelegramSettings, control Scanner, users core.UserStorage, log logger.Logger,
	options ...Option) (*Telegram, error) {

	t := newTelegram(control, users, settings.Admins, log, options...)

	poller := &tb.LongPoller{Timeout: 10 * time.Second}
	client, err := tb.NewBot(tb.Settings{
		Token:  settings.Token,
		Poller: tb.NewMiddlewarePoller(poller, t.accept),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	if err := setupCommands(client); err != nil {
		return nil, fmt.Errorf("failed to set commands: %w", err)
	}

	t.client = client
	t.sender = client
	registerHandlers(client, t)

	return t, nil
}

func newTelegram(control Scanner, users core.UserStorage, admins []int64, log logger.Logger,
	options ...Option) *Telegram {

	menu := &tb.ReplyMarkup{ResizeReplyKeyboard: true}
	setupKeyboard(menu)

	t := &Telegram{
		menu:    menu,
		scanner: control,
		users:   users,
		admins:  admins,
		log:     log,
		now:     time.Now,
	}
	for _, option := range options {
		option(t)
	}
	return t
}

// commands lists every command with its description, in menu order
var commands = []tb.Command{
	{Text: "/help", Description: "Display help instructions"},
	{Text: "/status", Description: "Show the scanner status"},
	{Text: "/start", Description: "Start the scanner (admins only)"},
	{Text: "/stop", Description: "Stop the scanner (admins only)"},
	{Text: "/subscribe", Description: "Receive signal notifications"},
	{Text: "/unsubscribe", Description: "Stop receiving signal notifications"},
	{Text: "/logs", Description: "Today's activity, optionally of one kind: error, alert, transaction"},
	{Text: "/signals", Description: "Last signals found"},
}

func setupKeyboard(menu *tb.ReplyMarkup) {
	var (
		statusBtn  = menu.Text("/status")
		signalsBtn = menu.Text("/signals")
		logsBtn    = menu.Text("/logs")
		startBtn   = menu.Text("/start")
		stopBtn    = menu.Text("/stop")
	)

	menu.Reply(
		menu.Row(statusBtn, signalsBtn, logsBtn),
		menu.Row(startBtn, stopBtn),
	)
}

func setupCommands(client *tb.Bot) error {
	return client.SetCommands(commands)
}

func registerHandlers(client *tb.Bot, t *Telegram) {
	client.Handle("/help", t.HelpHandle)
	client.Handle("/status", t.StatusHandle)
	client.Handle("/start", t.StartHandle)
	client.Handle("/stop", t.StopHandle)
	client.Handle("/subscribe", t.SubscribeHandle)
	client.Handle("/unsubscribe", t.UnsubscribeHandle)
	client.Handle("/logs", t.LogsHandle)
	client.Handle("/signals", t.SignalsHandle)
}

// accept registers the sender of every incoming message before it reaches a handler
func (t *Telegram) accept(u *tb.Update) bool {
	if u.Message == nil || u.Message.Sender == nil {
		return false
	}
	t.register(u.Message.Sender)
	return true
}

// register saves the sender as a user. New users start subscribed.
func (t *Telegram) register(sender *tb.User) {
	user, err := t.users.User(sender.ID)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			t.log.WithError(err).WithField("user", sender.ID).Error("failed to load user")
			return
		}
		user = core.User{ID: sender.ID, Active: true}
	}

	user.Name = displayName(sender)
	user.Admin = t.isAdmin(sender.ID)
	if err := t.users.SaveUser(user); err != nil {
		t.log.WithError(err).WithField("user", sender.ID).Error("failed to save user")
	}
}

func displayName(u *tb.User) string {
	if u.Username != "" {
		return u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (t *Telegram) isAdmin(id int64) bool {
	return lo.Contains(t.admins, id)
}

// Start begins polling in the background
func (t *Telegram) Start() {
	if t.client != nil {
		go t.client.Start()
	}
}

// Stop ends polling
func (t *Telegram) Stop() {
	if t.client != nil {
		t.client.Stop()
	}
}

// Notify sends text to a single user. The text is sent as is, without a parse mode.
func (t *Telegram) Notify(userID int64, text string) error {
	if _, err := t.sender.Send(&tb.User{ID: userID}, text); err != nil {
		return fmt.Errorf("failed to notify user %d: %w", userID, err)
	}
	return nil
}

// sendMessage sends a message to a specific user
func (t *Telegram) sendMessage(to *tb.User, text string, options ...interface{}) {
	_, err := t.sender.Send(to, text, options...)
	if err != nil {
		t.log.WithError(err).Error("failed to send message")
	}
}

// sendMarkdown sends a reply whose layout relies on Markdown code spans
func (t *Telegram) sendMarkdown(to *tb.User, text string, options ...interface{}) {
	t.sendMessage(to, text, append(options, tb.ModeMarkdown)...)
}

// codeBlock fences text. Backticks inside would close the block early.
func codeBlock(text string) string {
	return "```\n" + strings.ReplaceAll(text, "`", "'") + "```"
}

func inlineCode(text string) string {
	return "`" + strings.ReplaceAll(text, "`", "'") + "`"
}

// HelpHandle displays available commands
func (t *Telegram) HelpHandle(m *tb.Message) {
	lines := lo.Map(commands, func(command tb.Command, _ int) string {
		return fmt.Sprintf("%s - %s", command.Text, command.Description)
	})
	t.sendMessage(m.Sender, strings.Join(lines, "\n"), t.menu)
}

// StatusHandle displays the scanner status table
func (t *Telegram) StatusHandle(m *tb.Message) {
	t.sendMarkdown(m.Sender, codeBlock(t.scanner.Status().String()))
}

// StartHandle starts the scanner
func (t *Telegram) StartHandle(m *tb.Message) {
	if !t.isAdmin(m.Sender.ID) {
		t.sendMessage(m.Sender, "Only administrators can start the scanner.")
		return
	}

	switch err := t.scanner.Start(); {
	case errors.Is(err, scanner.ErrAlreadyRunning):
		t.sendMessage(m.Sender, "Scanner is already running.", t.menu)
	case err != nil:
		t.log.WithError(err).Error("failed to start scanner")
		t.sendMessage(m.Sender, "Failed to start the scanner.")
	default:
		t.sendMessage(m.Sender, "Scanner started.", t.menu)
	}
}

// StopHandle stops the scanner
func (t *Telegram) StopHandle(m *tb.Message) {
	if !t.isAdmin(m.Sender.ID) {
		t.sendMessage(m.Sender, "Only administrators can stop the scanner.")
		return
	}

	switch err := t.scanner.Stop(); {
	case errors.Is(err, scanner.ErrNotRunning):
		t.sendMessage(m.Sender, "Scanner is already stopped.", t.menu)
	case err != nil:
		t.log.WithError(err).Error("failed to stop scanner")
		t.sendMessage(m.Sender, "Failed to stop the scanner.")
	default:
		t.sendMessage(m.Sender, "Scanner stopped.", t.menu)
	}
}

func (t *Telegram) SubscribeHandle(m *tb.Message) {
	if t.setActive(m.Sender.ID, true) {
		t.sendMessage(m.Sender, "You will receive new signals.")
	}
}

func (t *Telegram) UnsubscribeHandle(m *tb.Message) {
	if t.setActive(m.Sender.ID, false) {
		t.sendMessage(m.Sender, "You will no longer receive signals.")
	}
}

func (t *Telegram) setActive(id int64, active bool) bool {
	user, err := t.users.User(id)
	if err != nil {
		t.log.WithError(err).WithField("user", id).Error("failed to load user")
		return false
	}

	user.Active = active
	if err := t.users.SaveUser(user); err != nil {
		t.log.WithError(err).WithField("user", id).Error("failed to save user")
		return false
	}
	return true
}

// LogsHandle lists today's activity. The payload may name a kind.
func (t *Telegram) LogsHandle(m *tb.Message) {
	if t.logs == nil {
		t.sendMessage(m.Sender, "Activity log is not available.")
		return
	}

	kind := core.LogKind(strings.ToLower(strings.TrimSpace(m.Payload)))
	if kind != "" && !kind.Valid() {
		t.sendMarkdown(m.Sender, "Invalid kind.\nExamples of usage:\n`/logs`\n\n`/logs error`")
		return
	}

	entries, err := t.logs.Day(t.now(), kind)
	if err != nil {
		t.log.WithError(err).Error("failed to load logs")
		t.sendMessage(m.Sender, "Failed to load the activity log.")
		return
	}
	if len(entries) == 0 {
		t.sendMessage(m.Sender, "No activity registered today.")
		return
	}

	var sb strings.Builder
	for _, entry := range entries {
		fmt.Fprintf(&sb, "%s [%s] %s: %s\n", entry.Time.Format(time.TimeOnly), entry.Kind, entry.Title, entry.Description)
	}
	t.sendMarkdown(m.Sender, codeBlock(sb.String()))
}

// SignalsHandle shows the most recent journal signals, newest first
func (t *Telegram) SignalsHandle(m *tb.Message) {
	if t.signals == nil {
		t.sendMessage(m.Sender, "Signal journal is not available.")
		return
	}

	signals, err := t.signals.Signals()
	if err != nil {
		t.log.WithError(err).Error("failed to load signals")
		t.sendMessage(m.Sender, "Failed to load signals.")
		return
	}
	if len(signals) == 0 {
		t.sendMessage(m.Sender, "No signals registered.")
		return
	}

	recent := lo.Reverse(lo.Subset(signals, -signalsShown, signalsShown))
	lines := lo.Map(recent, func(signal core.Signal, _ int) string {
		return signal.Time.Format(time.DateTime) + " " + inlineCode(signal.String())
	})
	t.sendMarkdown(m.Sender, strings.Join(lines, "\n"))
}

// Dispatcher fans a message out to every active user
type Dispatcher struct {
	notifier core.Notifier
	users    core.UserStorage
	log      logger.Logger
}

func NewDispatcher(notifier core.Notifier, users core.UserStorage, log logger.Logger) *Dispatcher {
	return &Dispatcher{notifier: notifier, users: users, log: log}
}

// Broadcast sends text to every active user and returns how many received it
func (d *Dispatcher) Broadcast(text string) (int, error) {
	users, err := d.users.ActiveUsers()
	if err != nil {
		return 0, fmt.Errorf("failed to load active users: %w", err)
	}

	var sent int
	for _, user := range users {
		if err := d.notifier.Notify(user.ID, text); err != nil {
			d.log.WithError(err).WithField("user", user.ID).Warn("failed to broadcast")
			continue
		}
		sent++
	}
	return sent, nil
}
