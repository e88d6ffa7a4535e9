package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"domainbot/internal/channel"
	"domainbot/internal/config"
	"domainbot/internal/dispatch"
	"domainbot/internal/policy"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:     "domainbot",
		Short:   "domainbot: domain policy dispatcher for a multi-domain assistant",
		Long:    "domainbot routes a request to a domain policy, gathers the capabilities it needs and returns a UI directive or a follow-up question.",
		Version: version,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.domainbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(routeCmd())
	root.AddCommand(handleCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(domainsCmd())
	root.AddCommand(metricsCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadApp loads config (falling back to defaults) and wires the app with a
// logger at the configured level.
func loadApp() (*app, func(), error) {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
	}

	l, closer, err := newLogger(cfg.General)
	if err != nil {
		return nil, nil, err
	}
	logger = l

	a, err := newApp(cfg, logger)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return a, closer, nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config and create the rules and fixtures directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			for _, dir := range []string{cfg.Policies.RulesDir, cfg.Fixtures.Dir} {
				if err := os.MkdirAll(config.ExpandPath(dir), 0o755); err != nil {
					return err
				}
			}
			logger.Info("initialized", "config", cfgPath, "rules", cfg.Policies.RulesDir, "fixtures", cfg.Fixtures.Dir)
			return nil
		},
	}
}

func routeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route [prompt]",
		Short: "Show the domain and capabilities a prompt would use",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closer, err := loadApp()
			if err != nil {
				return err
			}
			defer closer()

			prompt := strings.Join(args, " ")
			name := a.router.Route(prompt)
			p := a.policies.Get(name)
			if p == nil {
				return fmt.Errorf("%w: %q", dispatch.ErrUnknownDomain, name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "domain:       %s\n", name)
			fmt.Fprintf(cmd.OutOrStdout(), "capabilities: %v\n", p.RequiredCapabilities(prompt).Strings())
			return nil
		},
	}
}

func handleCmd() *cobra.Command {
	var (
		domainName  string
		modelText   string
		asJSON      bool
		showMetrics bool
	)
	cmd := &cobra.Command{
		Use:   "handle [prompt]",
		Short: "Run one request and print the UI directive or follow-up question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closer, err := loadApp()
			if err != nil {
				return err
			}
			defer closer()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out, err := a.dispatcher.Handle(ctx, dispatch.Input{
				Prompt:    strings.Join(args, " "),
				Domain:    domainName,
				ModelText: modelText,
			})
			if err != nil {
				return err
			}
			if err := channel.Render(cmd.OutOrStdout(), out, asJSON); err != nil {
				return err
			}
			return a.printMetrics(cmd.ErrOrStderr(), showMetrics)
		},
	}
	cmd.Flags().StringVarP(&domainName, "domain", "d", "", "handle with this domain instead of routing")
	cmd.Flags().StringVarP(&modelText, "model-text", "m", "", "model response text placed in userMessage")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the outcome as JSON")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print metrics after the run")
	return cmd
}

func chatCmd() *cobra.Command {
	var (
		domainName  string
		asJSON      bool
		showMetrics bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closer, err := loadApp()
			if err != nil {
				return err
			}
			defer closer()

			// Graceful shutdown on signals
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cli := channel.NewCLI(channel.CLIConfig{
				Handler: a.dispatcher,
				Logger:  a.logger,
				In:      cmd.InOrStdin(),
				Out:     cmd.OutOrStdout(),
				JSON:    asJSON,
				Domain:  domainName,
			})
			if err := cli.Start(ctx); err != nil {
				return err
			}
			return a.printMetrics(cmd.ErrOrStderr(), showMetrics)
		},
	}
	cmd.Flags().StringVarP(&domainName, "domain", "d", "", "pin the session to one domain")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print outcomes as JSON")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print metrics when the session ends")
	return cmd
}

func domainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List registered domains and their rule tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closer, err := loadApp()
			if err != nil {
				return err
			}
			defer closer()

			for _, name := range a.policies.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), policy.Describe(a.policies.Get(name)))
			}
			return nil
		},
	}
}

func metricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics [prompt...]",
		Short: "Run each prompt and print the collected metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closer, err := loadApp()
			if err != nil {
				return err
			}
			defer closer()

			ctx := context.Background()
			for _, prompt := range args {
				if _, err := a.dispatcher.Handle(ctx, dispatch.Input{Prompt: prompt}); err != nil {
					a.logger.Warn("request failed", "prompt", prompt, "err", err)
				}
			}
			return a.printMetrics(cmd.OutOrStdout(), true)
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. router.defaultDomain)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(config.Sanitize(cfg), args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. dispatch.providerTimeoutMs 2000)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			for _, e := range config.ListPaths(config.Sanitize(cfg)) {
				data, _ := json.Marshal(e.Value)
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", e.Path, data)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), resolveConfigPath())
		},
	})

	return cmd
}
