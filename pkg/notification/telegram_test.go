package notification

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/raykavin/fibscan/pkg/activity"
	"github.com/raykavin/fibscan/pkg/core"
	zlog "github.com/raykavin/fibscan/pkg/logger/zerolog"
	"github.com/raykavin/fibscan/pkg/scanner"
	"github.com/raykavin/fibscan/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tb "gopkg.in/tucnak/telebot.v2"
)

const (
	adminID = int64(1)
	userID  = int64(2)
)

type sent struct {
	to   string
	text string
	mode tb.ParseMode
}

type fakeSender struct {
	mu       sync.Mutex
	messages []sent
	fail     map[string]bool
}

func (s *fakeSender) Send(to tb.Recipient, what interface{}, options ...interface{}) (*tb.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[to.Recipient()] {
		return nil, errors.New("blocked by user")
	}

	message := sent{to: to.Recipient(), text: what.(string)}
	for _, option := range options {
		if mode, ok := option.(tb.ParseMode); ok {
			message.mode = mode
		}
	}
	s.messages = append(s.messages, message)
	return &tb.Message{}, nil
}

func (s *fakeSender) last() sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return sent{}
	}
	return s.messages[len(s.messages)-1]
}

type fakeScanner struct {
	running bool
	starts  int
	stops   int
}

func (s *fakeScanner) Start() error {
	if s.running {
		return scanner.ErrAlreadyRunning
	}
	s.running = true
	s.starts++
	return nil
}

func (s *fakeScanner) Stop() error {
	if !s.running {
		return scanner.ErrNotRunning
	}
	s.running = false
	s.stops++
	return nil
}

func (s *fakeScanner) Status() scanner.Status {
	state := scanner.StateStopped
	if s.running {
		state = scanner.StateRunning
	}
	return scanner.Status{State: state, TotalSymbols: 10, ScannedSymbols: 4}
}

type fixture struct {
	bot     *Telegram
	sender  *fakeSender
	scanner *fakeScanner
	db      *storage.BuntStorage
	logs    *activity.Log
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := storage.FromMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logs := activity.New(db, zlog.Nop())
	control := &fakeScanner{}
	bot := newTelegram(control, db, []int64{adminID}, zlog.Nop(), WithSignals(db), WithLogs(logs))
	sender := &fakeSender{}
	bot.sender = sender

	return fixture{bot: bot, sender: sender, scanner: control, db: db, logs: logs}
}

// message simulates an update going through the middleware
func (f fixture) message(t *testing.T, from int64, text, payload string) *tb.Message {
	t.Helper()
	m := &tb.Message{
		Sender:  &tb.User{ID: from, Username: "user" + strconv.FormatInt(from, 10)},
		Text:    text,
		Payload: payload,
	}
	require.True(t, f.bot.accept(&tb.Update{Message: m}))
	return m
}

func TestTelegram_RegistersSenders(t *testing.T) {
	f := newFixture(t)

	assert.False(t, f.bot.accept(&tb.Update{}))

	f.message(t, adminID, "/help", "")
	f.message(t, userID, "/help", "")

	admin, err := f.db.User(adminID)
	require.NoError(t, err)
	assert.True(t, admin.Admin)
	assert.True(t, admin.Active)
	assert.Equal(t, "user1", admin.Name)

	user, err := f.db.User(userID)
	require.NoError(t, err)
	assert.False(t, user.Admin)
	assert.True(t, user.Active)

	t.Run("unsubscribed users stay unsubscribed", func(t *testing.T) {
		f.bot.UnsubscribeHandle(f.message(t, userID, "/unsubscribe", ""))
		f.message(t, userID, "/status", "")

		user, err := f.db.User(userID)
		require.NoError(t, err)
		assert.False(t, user.Active)
	})
}

func TestTelegram_Subscription(t *testing.T) {
	f := newFixture(t)

	f.bot.UnsubscribeHandle(f.message(t, userID, "/unsubscribe", ""))
	assert.Equal(t, "You will no longer receive signals.", f.sender.last().text)

	active, err := f.db.ActiveUsers()
	require.NoError(t, err)
	assert.Empty(t, active)

	f.bot.SubscribeHandle(f.message(t, userID, "/subscribe", ""))
	assert.Equal(t, "You will receive new signals.", f.sender.last().text)

	active, err = f.db.ActiveUsers()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, userID, active[0].ID)
}

func TestTelegram_StartStop(t *testing.T) {
	f := newFixture(t)

	f.bot.StartHandle(f.message(t, userID, "/start", ""))
	assert.Equal(t, "Only administrators can start the scanner.", f.sender.last().text)
	assert.Zero(t, f.scanner.starts)

	f.bot.StopHandle(f.message(t, userID, "/stop", ""))
	assert.Equal(t, "Only administrators can stop the scanner.", f.sender.last().text)

	f.bot.StartHandle(f.message(t, adminID, "/start", ""))
	assert.Equal(t, "Scanner started.", f.sender.last().text)
	assert.Equal(t, "1", f.sender.last().to)

	f.bot.StartHandle(f.message(t, adminID, "/start", ""))
	assert.Equal(t, "Scanner is already running.", f.sender.last().text)
	assert.Equal(t, 1, f.scanner.starts)

	f.bot.StopHandle(f.message(t, adminID, "/stop", ""))
	assert.Equal(t, "Scanner stopped.", f.sender.last().text)

	f.bot.StopHandle(f.message(t, adminID, "/stop", ""))
	assert.Equal(t, "Scanner is already stopped.", f.sender.last().text)
	assert.Equal(t, 1, f.scanner.stops)
}

func TestTelegram_Status(t *testing.T) {
	f := newFixture(t)

	f.bot.StatusHandle(f.message(t, userID, "/status", ""))
	text := f.sender.last().text
	assert.Contains(t, text, "stopped")
	assert.Contains(t, text, "4/10")
}

func TestTelegram_Help(t *testing.T) {
	f := newFixture(t)

	f.bot.HelpHandle(f.message(t, userID, "/help", ""))
	text := f.sender.last().text
	for _, command := range commands {
		assert.Contains(t, text, command.Text)
	}
}

func TestTelegram_Logs(t *testing.T) {
	f := newFixture(t)

	f.bot.LogsHandle(f.message(t, userID, "/logs", ""))
	assert.Equal(t, "No activity registered today.", f.sender.last().text)

	f.logs.Error("ScanSymbol", "BTCUSDT: timeout")
	f.logs.Transaction("LongSignal", "LONG SIGNAL | Symbol: ETHUSDT")

	f.bot.LogsHandle(f.message(t, userID, "/logs", ""))
	text := f.sender.last().text
	assert.Contains(t, text, "[error] ScanSymbol: BTCUSDT: timeout")
	assert.Contains(t, text, "[transaction] LongSignal")

	f.bot.LogsHandle(f.message(t, userID, "/logs error", "ERROR"))
	text = f.sender.last().text
	assert.Contains(t, text, "ScanSymbol")
	assert.NotContains(t, text, "LongSignal")

	f.bot.LogsHandle(f.message(t, userID, "/logs debug", "debug"))
	assert.Contains(t, f.sender.last().text, "Invalid kind.")
}

func TestTelegram_Signals(t *testing.T) {
	f := newFixture(t)

	f.bot.SignalsHandle(f.message(t, userID, "/signals", ""))
	assert.Equal(t, "No signals registered.", f.sender.last().text)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		require.NoError(t, f.db.SaveSignal(core.Signal{
			Time:      base.Add(time.Duration(i) * time.Minute),
			Symbol:    "SYM" + strconv.Itoa(i) + "USDT",
			Timeframe: "1h",
			Direction: core.DirectionLong,
			Price:     1,
		}))
	}

	f.bot.SignalsHandle(f.message(t, userID, "/signals", ""))
	text := f.sender.last().text
	assert.NotContains(t, text, "SYM0USDT")
	assert.NotContains(t, text, "SYM1USDT")
	for i := 2; i < 7; i++ {
		assert.Contains(t, text, "SYM"+strconv.Itoa(i)+"USDT")
	}
	// newest first
	assert.Less(t, strings.Index(text, "SYM6USDT"), strings.Index(text, "SYM2USDT"))
}

func TestTelegram_Notify(t *testing.T) {
	f := newFixture(t)
	f.sender.fail = map[string]bool{"3": true}

	require.NoError(t, f.bot.Notify(userID, "hello"))
	assert.Equal(t, sent{to: "2", text: "hello"}, f.sender.last())

	err := f.bot.Notify(3, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user 3")
}

func TestTelegram_ParseMode(t *testing.T) {
	f := newFixture(t)

	// signal text goes out verbatim, so unbalanced markdown cannot be rejected
	text := "LONG SIGNAL | Symbol: 1000_PEPEUSDT | *Timeframe: 1h"
	require.NoError(t, f.bot.Notify(userID, text))
	assert.Equal(t, sent{to: "2", text: text}, f.sender.last())

	f.bot.HelpHandle(f.message(t, userID, "/help", ""))
	assert.Empty(t, f.sender.last().mode)

	f.bot.StatusHandle(f.message(t, userID, "/status", ""))
	assert.Equal(t, tb.ModeMarkdown, f.sender.last().mode)

	f.logs.Alert("Feed", "snake_case `quoted` *bold")
	f.bot.LogsHandle(f.message(t, userID, "/logs", ""))
	last := f.sender.last()
	assert.Equal(t, tb.ModeMarkdown, last.mode)
	assert.Contains(t, last.text, "snake_case 'quoted' *bold")
	assert.Equal(t, 2, strings.Count(last.text, "```"))
	assert.True(t, strings.HasPrefix(last.text, "```\n"))
	assert.True(t, strings.HasSuffix(last.text, "```"))
}

func TestDispatcher_Broadcast(t *testing.T) {
	f := newFixture(t)
	f.sender.fail = map[string]bool{"3": true}

	require.NoError(t, f.db.SaveUser(core.User{ID: 1, Active: true}))
	require.NoError(t, f.db.SaveUser(core.User{ID: 2, Active: false}))
	require.NoError(t, f.db.SaveUser(core.User{ID: 3, Active: true}))
	require.NoError(t, f.db.SaveUser(core.User{ID: 4, Active: true}))

	dispatcher := NewDispatcher(f.bot, f.db, zlog.Nop())
	count, err := dispatcher.Broadcast("Scanner started")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	recipients := make([]string, 0, len(f.sender.messages))
	for _, m := range f.sender.messages {
		recipients = append(recipients, m.to)
	}
	assert.ElementsMatch(t, []string{"1", "4"}, recipients)
}
