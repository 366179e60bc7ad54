package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alpacavoice/alpaca/internal/profile"
	"github.com/alpacavoice/alpaca/server"
)

var (
	version = "0.1.0"

	rootCmd = &cobra.Command{
		Use:   "alpaca",
		Short: "Voice agent backend chaining speech-to-text, chat completion and speech synthesis",
		Run: func(_ *cobra.Command, _ []string) {
			instanceProfile := &profile.Profile{
				Mode:    viper.GetString("mode"),
				Addr:    viper.GetString("addr"),
				Port:    viper.GetInt("port"),
				Version: version,
			}
			instanceProfile.FromEnv()
			if err := instanceProfile.Validate(); err != nil {
				slog.Error("invalid configuration", "error", err)
				os.Exit(1)
			}

			setupLogger(instanceProfile)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			s, err := server.NewServer(instanceProfile)
			if err != nil {
				slog.Error("failed to create server", "error", err)
				os.Exit(1)
			}

			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			go func() {
				sig := <-c
				slog.Info("received signal, shutting down", "signal", sig.String())
				s.Shutdown(context.Background())
				cancel()
			}()

			if err := s.Start(ctx); err != nil {
				slog.Error("server stopped", "error", err)
				os.Exit(1)
			}
		},
	}
)

func setupLogger(instanceProfile *profile.Profile) {
	level := slog.LevelInfo
	if instanceProfile.IsDev() {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 8000)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of the server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "binding address for the server")
	rootCmd.PersistentFlags().Int("port", 8000, "binding port for the server")

	if err := viper.BindPFlag("mode", rootCmd.PersistentFlags().Lookup("mode")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("addr", rootCmd.PersistentFlags().Lookup("addr")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port")); err != nil {
		panic(err)
	}

	viper.SetEnvPrefix("alpaca")
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("failed to execute command", "error", err)
		os.Exit(1)
	}
}
