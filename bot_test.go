package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"
)

type telegramCall struct {
	method string
	params url.Values
}

// fakeTelegram answers Bot API requests and records the ones that change
// chat contents.
type fakeTelegram struct {
	mu      sync.Mutex
	calls   []telegramCall
	updates []string
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	method := path.Base(r.URL.Path)
	w.Header().Set("Content-Type", "application/json")

	switch method {
	case "getMe":
		io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"calcpad","username":"calcpad_bot"}}`)
	case "getUpdates":
		f.mu.Lock()
		var update string
		if len(f.updates) > 0 {
			update, f.updates = f.updates[0], f.updates[1:]
		}
		f.mu.Unlock()

		if update == "" {
			time.Sleep(10 * time.Millisecond)
			io.WriteString(w, `{"ok":true,"result":[]}`)
			return
		}
		io.WriteString(w, `{"ok":true,"result":[`+update+`]}`)
	case "answerCallbackQuery":
		io.WriteString(w, `{"ok":true,"result":true}`)
	default:
		f.mu.Lock()
		f.calls = append(f.calls, telegramCall{method: method, params: r.PostForm})
		f.mu.Unlock()
		io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`)
	}
}

func (f *fakeTelegram) sent() []telegramCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]telegramCall(nil), f.calls...)
}

func (f *fakeTelegram) last(t *testing.T) telegramCall {
	t.Helper()

	calls := f.sent()
	if len(calls) == 0 {
		t.Fatal("no message was sent")
	}
	return calls[len(calls)-1]
}

func newTestBot(t *testing.T) (*Bot, *Sessions, *fakeTelegram) {
	t.Helper()

	fake := &fakeTelegram{}
	ts := httptest.NewServer(fake)
	sessions := NewSessions(time.Minute, time.Minute)
	t.Cleanup(func() {
		ts.Close()
		sessions.Close()
	})

	config := &Config{
		BotToken:          "token",
		BotTimeout:        1,
		BotEndpoint:       ts.URL + "/bot%s/%s",
		SessionTTLTimeout: time.Minute,
	}
	bot, err := LoadBot(config, sessions, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("LoadBot: %v", err)
	}
	return bot, sessions, fake
}

func command(chatID, userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: userID},
	}
}

func callback(chatID, userID int64, messageText, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:   "cb",
		Data: data,
		From: &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{
			MessageID: 5,
			Text:      messageText,
			Chat:      &tgbotapi.Chat{ID: chatID},
		},
	}
}

func TestBotCommands(t *testing.T) {
	bot, _, fake := newTestBot(t)

	tests := []struct {
		text string
		want string
	}{
		{"/start", bot.welcome},
		{"/help", bot.help},
		{"/calc", "Unknown command. Try /help"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if err := bot.handleCommand(command(10, 20, tt.text)); err != nil {
				t.Fatalf("handleCommand: %v", err)
			}
			got := fake.last(t)
			if got.method != "sendMessage" || got.params.Get("text") != tt.want {
				t.Errorf("got %s %q, want sendMessage %q", got.method, got.params.Get("text"), tt.want)
			}
		})
	}
}

func TestBotOpen(t *testing.T) {
	bot, sessions, fake := newTestBot(t)

	if err := bot.handleCommand(command(10, 20, "/open")); err != nil {
		t.Fatalf("handleCommand: %v", err)
	}
	if sessions.Get(sessionKey(10, 20)) == nil {
		t.Fatal("/open did not store a session")
	}
	got := fake.last(t)
	if got.params.Get("text") != "0" || got.params.Get("chat_id") != "10" {
		t.Errorf("unexpected keypad message %v", got.params)
	}
	if !strings.Contains(got.params.Get("reply_markup"), `"callback_data":"sqrt"`) {
		t.Errorf("keypad markup missing from %q", got.params.Get("reply_markup"))
	}

	if err := bot.handleCommand(command(10, 20, "/open")); err != nil {
		t.Fatalf("handleCommand: %v", err)
	}
	if text := fake.last(t).params.Get("text"); text != "Your session is not expired!" {
		t.Errorf("second /open answered %q", text)
	}
	if n := sessions.Len(); n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}
}

func TestBotOpenDuringShutdown(t *testing.T) {
	bot, sessions, fake := newTestBot(t)
	sessions.inShutdown.Store(true)

	if err := bot.handleCommand(command(10, 20, "/open")); err != nil {
		t.Fatalf("handleCommand: %v", err)
	}
	if text := fake.last(t).params.Get("text"); text != "The calculator is shutting down, try again later." {
		t.Errorf("/open answered %q", text)
	}
	if !sessions.IsEmpty() {
		t.Error("session stored during shutdown")
	}
}

func TestBotCallbackPress(t *testing.T) {
	bot, sessions, fake := newTestBot(t)
	if err := bot.handleCommand(command(10, 20, "/open")); err != nil {
		t.Fatalf("handleCommand: %v", err)
	}
	opened := len(fake.sent())

	display := "0"
	for _, key := range []string{"7", "*", "6", "="} {
		if err := bot.handleCallback(callback(10, 20, display, key)); err != nil {
			t.Fatalf("press %q: %v", key, err)
		}
		display = sessions.Get(sessionKey(10, 20)).Snapshot().Display
	}

	var edits []string
	for _, call := range fake.sent()[opened:] {
		if call.method != "editMessageText" || call.params.Get("message_id") != "5" {
			t.Errorf("unexpected call %s %v", call.method, call.params)
		}
		edits = append(edits, call.params.Get("text"))
	}
	// "*" leaves the display at 7, so no edit is sent for it.
	want := []string{"7", "6", "42"}
	if diff := cmp.Diff(want, edits); diff != "" {
		t.Errorf("edits mismatch (-want +got):\n%s", diff)
	}
}

func TestBotCallbackExpired(t *testing.T) {
	bot, sessions, fake := newTestBot(t)

	err := bot.handleCallback(callback(10, 20, "12", "1"))
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("got %v, want ErrSessionExpired", err)
	}
	got := fake.last(t)
	if got.method != "editMessageText" || got.params.Get("text") != "Your session has expired, please /open a new one." {
		t.Errorf("unexpected call %s %v", got.method, got.params)
	}
	if !sessions.IsEmpty() {
		t.Error("callback created a session")
	}
}

func TestBotCallbackUnknownKey(t *testing.T) {
	bot, _, fake := newTestBot(t)
	if err := bot.handleCommand(command(10, 20, "/open")); err != nil {
		t.Fatalf("handleCommand: %v", err)
	}
	opened := len(fake.sent())

	if err := bot.handleCallback(callback(10, 20, "0", "tan")); !errors.Is(err, ErrUnsupported) {
		t.Errorf("got %v, want ErrUnsupported", err)
	}
	if n := len(fake.sent()); n != opened {
		t.Errorf("unknown key sent %d messages", n-opened)
	}
}

func TestBotRun(t *testing.T) {
	bot, _, fake := newTestBot(t)
	fake.updates = []string{
		`{"update_id":1,"message":{"message_id":1,"date":0,"chat":{"id":10,"type":"private"},"from":{"id":20,"is_bot":false,"first_name":"a"},"text":"/start"}}`,
	}

	done := make(chan error, 1)
	go func() {
		done <- bot.Run()
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(fake.sent()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("update was not handled")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := bot.Run(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Run: got %v, want ErrAlreadyStarted", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := bot.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := <-done; !errors.Is(err, ErrClosed) {
		t.Errorf("Run: got %v, want ErrClosed", err)
	}
	if text := fake.last(t).params.Get("text"); text != bot.welcome {
		t.Errorf("answered %q, want welcome message", text)
	}
}
