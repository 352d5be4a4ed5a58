package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turbekoff/calcpad/pkg/env"
)

type Config struct {
	BotToken              string        `env:"CALCPAD_TELEGRAM_TOKEN" validate:"required_without_all=HTTPAddr Terminal"`
	BotOffset             int           `env:"CALCPAD_TELEGRAM_OFFSET" env-default:"0" validate:"gte=0"`
	BotTimeout            int           `env:"CALCPAD_TELEGRAM_TIMEOUT" env-default:"60" validate:"gt=0"`
	BotEndpoint           string        `env:"CALCPAD_TELEGRAM_ENDPOINT" env-default:"https://api.telegram.org/bot%s/%s" validate:"required"`
	HTTPAddr              string        `env:"CALCPAD_HTTP_ADDR" validate:"omitempty,hostname_port"`
	Terminal              bool          `env:"CALCPAD_TERMINAL" env-default:"false"`
	SessionTTLTimeout     time.Duration `env:"CALCPAD_SESSION_TTL_TIMEOUT" env-default:"20m" validate:"required"`
	SessionCleanupTimeout time.Duration `env:"CALCPAD_SESSION_CLEANUP_TIMEOUT" env-default:"1m" validate:"required"`
	ShutdownTimeout       time.Duration `env:"CALCPAD_SHUTDOWN_TIMEOUT" env-default:"2m" validate:"required"`
}

func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Read(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// interrupt wakes main without blocking when a wake-up is already queued.
func interrupt(quit chan<- os.Signal) {
	select {
	case quit <- os.Interrupt:
	default:
	}
}

func main() {
	config, err := LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config, error: %v\n", err)
	}

	logger := log.Default()
	sessions := NewSessions(config.SessionTTLTimeout, config.SessionCleanupTimeout)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var bot *Bot
	if config.BotToken != "" {
		bot, err = LoadBot(config, sessions, logger)
		if err != nil {
			log.Fatalf("failed to connect telegram, error: %v\n", err)
		}

		go func() {
			log.Println("starting telegram bot")
			if err := bot.Run(); !errors.Is(err, ErrClosed) {
				log.Printf("failed to start telegram bot, error: %s\n", err)
			}
			interrupt(quit)
		}()
	}

	var server *Server
	if config.HTTPAddr != "" {
		server = NewServer(config.HTTPAddr, sessions, logger)

		go func() {
			log.Printf("starting http server on %s\n", config.HTTPAddr)
			if err := server.Run(); !errors.Is(err, ErrServerClosed) {
				log.Printf("failed to start http server, error: %s\n", err)
			}
			interrupt(quit)
		}()
	}

	if config.Terminal {
		go func() {
			if err := NewTerminal(os.Stdin, os.Stdout).Run(); err != nil {
				log.Printf("failed to read terminal input, error: %s\n", err)
			}
			interrupt(quit)
		}()
	}

	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	log.Println("draining sessions")
	if err := sessions.Shutdown(ctx); err != nil {
		log.Printf("failed to drain sessions, error: %s\n", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()

	if bot != nil {
		log.Println("stopping telegram bot")
		if err := bot.Shutdown(stopCtx); err != nil {
			log.Printf("failed to graceful shutdown telegram bot, error: %s\n", err)
		}
	}
	if server != nil {
		log.Println("stopping http server")
		if err := server.Shutdown(stopCtx); err != nil {
			log.Printf("failed to graceful shutdown http server, error: %s\n", err)
		}
	}
	log.Println("calcpad stopped")
}
