package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var (
	ErrClosed         = errors.New("bot has closed")
	ErrAlreadyStarted = errors.New("bot already started")
)

func keypadButton(label, key string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(label, key)
}

// Callback data are key tokens understood by ParseKey.
var botKeyboard = tgbotapi.NewInlineKeyboardMarkup(
	tgbotapi.NewInlineKeyboardRow(
		keypadButton("C", "C"),
		keypadButton("CE", "CE"),
		keypadButton("⌫", "bs"),
		keypadButton("%", "%"),
		keypadButton("xʸ", "^"),
		keypadButton("÷", "/"),
	),
	tgbotapi.NewInlineKeyboardRow(
		keypadButton("7", "7"),
		keypadButton("8", "8"),
		keypadButton("9", "9"),
		keypadButton("×", "*"),
		keypadButton("√", "sqrt"),
	),
	tgbotapi.NewInlineKeyboardRow(
		keypadButton("4", "4"),
		keypadButton("5", "5"),
		keypadButton("6", "6"),
		keypadButton("−", "-"),
		keypadButton("x²", "sq"),
	),
	tgbotapi.NewInlineKeyboardRow(
		keypadButton("1", "1"),
		keypadButton("2", "2"),
		keypadButton("3", "3"),
		keypadButton("+", "+"),
		keypadButton("1/x", "inv"),
	),
	tgbotapi.NewInlineKeyboardRow(
		keypadButton("±", "neg"),
		keypadButton("0", "0"),
		keypadButton(".", "."),
		keypadButton("=", "="),
		keypadButton("x!", "fact"),
	),
)

type Bot struct {
	sessions   *Sessions
	api        *tgbotapi.BotAPI
	config     *Config
	welcome    string
	help       string
	isStarted  atomic.Bool
	inShutdown atomic.Bool
	isDone     chan struct{}
	logger     *log.Logger
}

func LoadBot(config *Config, sessions *Sessions, logger *log.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(config.BotToken, config.BotEndpoint)
	if err != nil {
		return nil, err
	}

	return &Bot{
		api:      api,
		config:   config,
		logger:   logger,
		sessions: sessions,
		isDone:   make(chan struct{}),
		welcome: fmt.Sprintf(
			"%s%s %s of inactivity.",
			"Welcome! Type /open to get started.\n",
			"Note: the session expires after",
			config.SessionTTLTimeout,
		),
		help: strings.Join([]string{
			"Help:",
			"/start - welcome message.",
			"/open - open new session.",
			"/help - send this message.",
		}, "\n"),
	}, nil
}

func (b *Bot) Run() error {
	if b.isStarted.Swap(true) {
		return ErrAlreadyStarted
	}
	defer close(b.isDone)

	updateConfig := tgbotapi.NewUpdate(b.config.BotOffset)
	updateConfig.Timeout = b.config.BotTimeout
	updates := b.api.GetUpdatesChan(updateConfig)

	for update := range updates {
		if update.CallbackQuery != nil {
			if err := b.handleCallback(update.CallbackQuery); err != nil {
				b.logger.Printf("failed to handle callback, error: %v", err)
			}
			continue
		}

		if update.Message == nil {
			continue
		}

		if err := b.handleCommand(update.Message); err != nil {
			b.logger.Printf("failed to send message, error: %v", err)
		}
	}

	return ErrClosed
}

func sessionKey(chatID, userID int64) string {
	return fmt.Sprintf("tg:%d_%d", chatID, userID)
}

func (b *Bot) createMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		return err
	}
	return nil
}

func (b *Bot) createKeyboard(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = botKeyboard

	if _, err := b.api.Send(msg); err != nil {
		return err
	}
	return nil
}

func (b *Bot) updateKeyboard(callback *tgbotapi.CallbackQuery, text string) error {
	if text == callback.Message.Text {
		return nil
	}

	edit := tgbotapi.NewEditMessageText(
		callback.Message.Chat.ID,
		callback.Message.MessageID,
		text,
	)
	edit.ReplyMarkup = &botKeyboard

	if _, err := b.api.Send(edit); err != nil {
		return err
	}
	return nil
}

func (b *Bot) handleCommand(command *tgbotapi.Message) error {
	switch command.Text {
	case "/start":
		return b.createMessage(command.Chat.ID, b.welcome)
	case "/help":
		return b.createMessage(command.Chat.ID, b.help)
	case "/open":
		if command.From == nil {
			return b.createMessage(command.Chat.ID, "Sessions need a user, try a private chat.")
		}
		key := sessionKey(command.Chat.ID, command.From.ID)

		if b.sessions.Get(key) != nil {
			return b.createMessage(
				command.Chat.ID,
				"Your session is not expired!",
			)
		}

		session := NewSession()
		if err := b.sessions.Set(key, session); errors.Is(err, ErrSessionsClosed) {
			return b.createMessage(command.Chat.ID, "The calculator is shutting down, try again later.")
		}

		err := b.createKeyboard(command.Chat.ID, session.Snapshot().Display)
		if err != nil {
			b.sessions.Delete(key)
		}
		return err
	default:
		return b.createMessage(command.Chat.ID, "Unknown command. Try /help")
	}
}

func (b *Bot) handleCallback(callback *tgbotapi.CallbackQuery) error {
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		return err
	}
	if callback.Message == nil {
		return ErrUnsupported
	}

	key := sessionKey(callback.Message.Chat.ID, callback.From.ID)

	session := b.sessions.Get(key)
	if session == nil {
		err := b.updateKeyboard(
			callback,
			"Your session has expired, please /open a new one.",
		)
		if err != nil {
			return err
		}
		return ErrSessionExpired
	}

	snapshot, err := session.Press(callback.Data)
	if err != nil {
		return err
	}

	if err := b.updateKeyboard(callback, snapshot.Display); err != nil {
		return err
	}
	if !b.sessions.Refresh(key) {
		return ErrSessionExpired
	}
	return nil
}

// Shutdown stops polling and waits for the update loop to return. Sessions
// are drained by their owner beforehand.
func (b *Bot) Shutdown(ctx context.Context) error {
	b.inShutdown.Store(true)
	b.api.StopReceivingUpdates()

	select {
	case <-b.isDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bot) Close() error {
	if b.inShutdown.Swap(true) {
		return ErrClosed
	}
	b.api.StopReceivingUpdates()
	<-b.isDone
	return nil
}
