// Command modelfarm is a command-line client for the modelfarm service.
//
//	modelfarm chat "What is Go?"
//	modelfarm chat --choices 3 "Name a color"
//	modelfarm stream "Tell me a story"
//	modelfarm complete --stream "Hello"
//	modelfarm embed "first text" "second text"
//
// Configuration is read as described in package config; --config selects
// an explicit file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rhuss/modelfarm/pkg/config"
	"github.com/rhuss/modelfarm/pkg/modelfarm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	model       string
	temperature float64
	maxTokens   int
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "modelfarm",
		Short:        "Command-line client for the modelfarm service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: discovered)")
	root.PersistentFlags().StringVarP(&opts.model, "model", "m", "", "model to use (default depends on the command)")
	root.PersistentFlags().Float64VarP(&opts.temperature, "temperature", "t", -1, "sampling temperature between 0 and 1")
	root.PersistentFlags().IntVar(&opts.maxTokens, "max-tokens", 0, "maximum number of generated tokens")

	root.AddCommand(
		newChatCmd(opts),
		newStreamCmd(opts),
		newCompleteCmd(opts),
		newEmbedCmd(opts),
	)
	return root
}

// client loads configuration and builds a client.
func (o *options) client() (*modelfarm.Client, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	c, err := modelfarm.New(cfg)
	if err != nil {
		return nil, err
	}
	slog.Debug("using modelfarm", "base_url", cfg.Client.BaseURL)
	return c, nil
}

func (o *options) temperaturePtr() *float64 {
	if o.temperature < 0 {
		return nil
	}
	t := o.temperature
	return &t
}

func (o *options) maxTokensPtr() *int {
	if o.maxTokens <= 0 {
		return nil
	}
	n := o.maxTokens
	return &n
}

func (o *options) modelOr(def string) string {
	if o.model != "" {
		return o.model
	}
	return def
}

func requireArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%s needs at least one argument", cmd.Name())
	}
	return nil
}
