package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/localhook/localhook/internal/api"
	"github.com/localhook/localhook/internal/auth"
	"github.com/localhook/localhook/internal/config"
	"github.com/localhook/localhook/internal/reflector"
	"github.com/localhook/localhook/internal/relay"
	"github.com/localhook/localhook/internal/storage"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "localhook",
		Short: "localhook — relay public webhooks to a local dev server",
	}

	var configPath string
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(clientCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(userCmd(&configPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the localhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			log := setupLogger(cfg.Logging)

			store, err := setupStorage(cfg.Storage, log)
			if err != nil {
				return fmt.Errorf("failed to setup storage: %w", err)
			}
			defer store.Close()

			if err := store.Migrate(context.Background()); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info().Msg("database migrations completed")

			authSvc := auth.NewService(cfg.Auth, store, log)
			registry := relay.NewRegistry(log)

			server := api.NewServer(*cfg, store, authSvc, registry, log)
			go func() {
				if err := server.Start(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("server error")
				}
			}()

			log.Info().
				Str("version", version).
				Int("port", cfg.Server.Port).
				Str("origin", cfg.Server.Origin).
				Str("storage", cfg.Storage.Driver).
				Msg("localhook is running")

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Info().Msg("shutting down...")

			if err := server.Shutdown(10 * time.Second); err != nil {
				log.Error().Err(err).Msg("server shutdown error")
			}

			log.Info().Msg("localhook stopped")
			return nil
		},
	}
}

func clientCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Run the local reflector, replaying relayed webhooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if serverURL, _ := cmd.Flags().GetString("server-url"); serverURL != "" {
				cfg.Client.ServerURL = serverURL
			}
			if token, _ := cmd.Flags().GetString("token"); token != "" {
				cfg.Client.Token = token
			}
			if cfg.Client.Token == "" {
				return fmt.Errorf("--token is required (obtain one via the login API)")
			}

			log := setupLogger(cfg.Logging)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			r := reflector.New(cfg.Client, log)
			if err := r.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			log.Info().Msg("reflector stopped")
			return nil
		},
	}
	cmd.Flags().String("server-url", "", "base URL of the localhook server")
	cmd.Flags().String("token", "", "session token for the gateway handshake")
	return cmd
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cleanup, err := storeFromConfig(*configPath)
			if err != nil {
				return err
			}
			cleanup()
			fmt.Println("migrations completed successfully")
			return nil
		},
	}
}

func userCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user (the first one becomes admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			admin, _ := cmd.Flags().GetBool("admin")
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			store, cleanup, err := storeFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			log := setupLogger(cfg.Logging)
			svc := auth.NewService(cfg.Auth, store, log)

			user, err := svc.CreateUser(context.Background(), email, password, admin)
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}

			out, _ := json.MarshalIndent(user, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}
	createCmd.Flags().String("email", "", "user email")
	createCmd.Flags().String("password", "", "user password")
	createCmd.Flags().Bool("admin", false, "grant admin")

	inviteCmd := &cobra.Command{
		Use:   "invite",
		Short: "Create an invite token for a new user",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			inviter, _ := cmd.Flags().GetString("from")
			if email == "" || inviter == "" {
				return fmt.Errorf("--email and --from are required")
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			store, cleanup, err := storeFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			log := setupLogger(cfg.Logging)
			svc := auth.NewService(cfg.Auth, store, log)

			inv, err := svc.CreateInvite(context.Background(), inviter, email)
			if err != nil {
				return fmt.Errorf("failed to create invite: %w", err)
			}

			fmt.Printf("%s/?invite_token=%s\n", cfg.Server.Origin, inv.Token)
			return nil
		},
	}
	inviteCmd.Flags().String("email", "", "invitee email")
	inviteCmd.Flags().String("from", "", "inviting user id")

	cmd.AddCommand(createCmd, inviteCmd)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("localhook v%s\n", version)
		},
	}
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func setupStorage(cfg config.StorageConfig, log zerolog.Logger) (storage.Storage, error) {
	switch cfg.Driver {
	case "sqlite":
		log.Info().Str("path", cfg.SQLite.Path).Msg("using SQLite storage")
		return storage.NewSQLite(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

func storeFromConfig(configPath string) (storage.Storage, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg.Logging)
	store, err := setupStorage(cfg.Storage, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup storage: %w", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, func() { store.Close() }, nil
}
