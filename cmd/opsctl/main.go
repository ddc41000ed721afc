package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"avatarbook/internal/config"
	"avatarbook/internal/infrastructure/logger"
	"avatarbook/internal/infrastructure/mysql"
	"avatarbook/internal/infrastructure/rabbitmq"
	"avatarbook/internal/notification"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "opsctl",
		Short:         "Operator tooling for avatar orders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the service config file")

	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(resubmitCmd())
	rootCmd.AddCommand(regenerateLinkCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env holds the shared dependencies opened by store-backed commands.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sql.DB
}

func openEnv() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &env{cfg: cfg, logger: zapLogger, db: db}, nil
}

func (e *env) Close() {
	e.db.Close()
	_ = e.logger.Sync()
}

// notifier publishes through RabbitMQ when configured so customers receive
// the same messages the server would send.
func (e *env) notifier() (*notification.Service, func()) {
	if e.cfg.RabbitMQ.URL != "" {
		pub, err := rabbitmq.NewPublisher(e.cfg.RabbitMQ.URL, e.cfg.RabbitMQ.Exchange)
		if err == nil {
			return notification.NewService(pub, e.cfg.Server.PublicBaseURL, e.logger), func() { pub.Close() }
		}
		e.logger.Warn("rabbitmq unavailable, notifications will only be logged", zap.Error(err))
	}
	return notification.NewService(notification.NewLogPublisher(e.logger), e.cfg.Server.PublicBaseURL, e.logger), func() {}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
