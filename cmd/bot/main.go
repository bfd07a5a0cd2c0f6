// cmd/bot/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/robert-mccausland/wordle-tracker/internal/bot"
	"github.com/robert-mccausland/wordle-tracker/internal/config"
	"github.com/robert-mccausland/wordle-tracker/internal/database"
	"github.com/robert-mccausland/wordle-tracker/internal/ingest"
	"github.com/robert-mccausland/wordle-tracker/internal/ledger"
	"github.com/robert-mccausland/wordle-tracker/internal/logging"
	"github.com/robert-mccausland/wordle-tracker/internal/scanner"
	"github.com/robert-mccausland/wordle-tracker/internal/schedule"
	"github.com/robert-mccausland/wordle-tracker/internal/summary"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wordle-tracker",
		Short: "Discord bot that tracks daily Wordle results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().String("token", "", "Discord bot token (overrides env)")
	cmd.PersistentFlags().String("database-driver", defaults.GetString("database.driver"), "Database driver (sqlite or postgres)")
	cmd.PersistentFlags().String("database-dsn", defaults.GetString("database.dsn"), "Database DSN, or file path for sqlite")
	cmd.PersistentFlags().String("channel-name", defaults.GetString("channel.name"), "Channel name to track")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("timezone", defaults.GetString("timezone"), "Timezone for puzzle day boundaries")

	bindFlag(cmd, "token", "token")
	bindFlag(cmd, "database.driver", "database-driver")
	bindFlag(cmd, "database.dsn", "database-dsn")
	bindFlag(cmd, "channel.name", "channel-name")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "timezone", "timezone")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func run(ctx context.Context) error {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	location, err := appConfig.Location()
	if err != nil {
		return err
	}

	db, err := database.Open(appConfig.DatabaseDriver, appConfig.DatabaseDSN, logger)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	store, err := ledger.NewStore(db)
	if err != nil {
		return err
	}

	engine, err := ingest.NewEngine(ingest.Config{
		Store:    store,
		Location: location,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	discord, err := discordgo.New("Bot " + appConfig.Token)
	if err != nil {
		return fmt.Errorf("creating Discord session: %w", err)
	}

	channelScanner, err := scanner.New(scanner.Config{
		Store:   store,
		Engine:  engine,
		History: bot.NewChannelHistory(discord),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	aggregator, err := summary.NewAggregator(summary.Config{
		Store:    store,
		Location: location,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	handler, err := bot.NewHandler(bot.Config{
		Store:             store,
		Engine:            engine,
		Scanner:           channelScanner,
		Aggregator:        aggregator,
		Logger:            logger,
		ChannelName:       appConfig.ChannelName,
		SummaryLimit:      appConfig.SummaryLimit,
		UsernameMaxLength: appConfig.UsernameMaxLength,
		Location:          location,
	})
	if err != nil {
		return err
	}

	handler.SetSession(discord)

	discord.AddHandler(handler.OnMessageCreate)
	discord.AddHandler(handler.OnMessageUpdate)
	discord.AddHandler(handler.OnMessageDelete)

	discord.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := discord.Open(); err != nil {
		return fmt.Errorf("opening Discord connection: %w", err)
	}
	defer discord.Close()

	if appConfig.SyncCommands {
		if err := handler.RegisterCommands(); err != nil {
			return err
		}
	}

	scheduler, err := schedule.New(signalCtx, schedule.Config{
		Location:     location,
		ScanCron:     appConfig.ScanCron,
		SummaryCron:  appConfig.SummaryCron,
		Scan:         handler.ScanTrackedChannels,
		DailySummary: handler.PostDailySummaries,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	scheduler.Start()

	// Catch up on missed history as soon as the gateway is ready.
	go func() {
		select {
		case <-handler.Ready():
			handler.ScanTrackedChannels(signalCtx)
		case <-signalCtx.Done():
		}
	}()

	logger.Info("wordle tracker is running", zap.String("channel", appConfig.ChannelName))

	<-signalCtx.Done()

	logger.Info("shutting down")
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	scheduler.Stop(stopCtx)

	return nil
}
