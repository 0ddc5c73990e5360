package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/research/internal/config"
	"github.com/Kocoro-lab/Shannon/go/research/internal/health"
	"github.com/Kocoro-lab/Shannon/go/research/internal/research"
	"github.com/Kocoro-lab/Shannon/go/research/internal/search"
	"github.com/Kocoro-lab/Shannon/go/research/internal/server"
	"github.com/Kocoro-lab/Shannon/go/research/internal/tokenguard"
	"github.com/Kocoro-lab/Shannon/go/research/internal/tools"
)

// Set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	var cfgPath string
	root := &cobra.Command{
		Use:           "research",
		Short:         "Research assistant orchestration: search fan-out, summarization and tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default $CONFIG_PATH or "+config.DefaultPath+")")

	root.AddCommand(
		searchCMD(&cfgPath),
		serveCMD(&cfgPath),
		toolsCMD(&cfgPath),
		checkCMD(&cfgPath),
		versionCMD(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func searchCMD(cfgPath *string) *cobra.Command {
	var (
		topic      string
		maxResults int
		summary    int
	)
	cmd := &cobra.Command{
		Use:   "search QUERY [QUERY...]",
		Short: "Run queries through search, dedup and summarization and print the report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, *cfgPath, os.Stdout)
			if err != nil {
				return err
			}
			defer a.Close()

			pipeline, err := research.NewFromConfig(a.cfg, a.creds, a.session.Log(), a.logger)
			if err != nil {
				return err
			}
			params := pipeline.Params()
			if topic != "" {
				if params.Topic, err = search.ParseTopic(topic); err != nil {
					return err
				}
			}
			if maxResults > 0 {
				params.MaxResults = maxResults
			}

			report, err := pipeline.RunWithParams(ctx, args, params)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report)
			if summary > 0 {
				a.session.Log().Summary(summary).Render(cmd.OutOrStdout())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "search topic: general, news or finance (default from config)")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "results per query (default from config)")
	cmd.Flags().IntVar(&summary, "summary", 10, "thoughts shown in the decision summary, 0 to skip")
	return cmd
}

func serveCMD(cfgPath *string) *cobra.Command {
	var (
		addr  string
		stdio bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the research tools over MCP with health and metrics endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// stdout carries the protocol in stdio mode.
			a, err := bootstrap(ctx, *cfgPath, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			descriptors, err := a.buildTools()
			if err != nil {
				return err
			}
			mcpServer := server.New("shannon-research", version, descriptors, a.logger)
			a.logger.Info("Research tools registered",
				zap.Strings("tools", mcpServer.Tools()),
				zap.String("session_id", a.session.ID),
			)

			if stdio {
				return mcpServer.ServeStdio()
			}

			hm := health.NewManager(a.logger)
			if a.cfg.Search.API != config.SearchAPINone {
				_ = hm.RegisterChecker(health.NewBreakerHealthChecker("search", true))
			}
			_ = hm.RegisterChecker(health.NewBreakerHealthChecker("condense", false))
			if a.redis != nil {
				_ = hm.RegisterChecker(health.NewRedisHealthChecker(a.redis, a.logger))
			}

			mux := http.NewServeMux()
			mux.Handle("/mcp", mcpServer.Handler())
			mux.Handle("/metrics", promhttp.Handler())
			health.NewHTTPHandler(hm, a.logger).RegisterRoutes(mux)

			srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("Research server listening", zap.String("address", addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			a.logger.Info("Shutting down research server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address for /mcp, /health and /metrics")
	cmd.Flags().BoolVar(&stdio, "stdio", false, "serve MCP on stdin/stdout instead of HTTP")
	return cmd
}

func toolsCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools available for the configured search API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), *cfgPath, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			descriptors, err := a.buildTools()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tDESCRIPTION")
			for _, d := range descriptors {
				desc, _, _ := strings.Cut(d.Tool.Description, ".")
				fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, d.Type, desc)
			}
			return w.Flush()
		},
	}
}

func checkCMD(cfgPath *string) *cobra.Command {
	var limitsPath string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and report credential and token limit status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), *cfgPath, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Config: %s (search.api=%s, model=%s)\n\n", a.loader.Path(), a.cfg.Search.API, a.cfg.Summarization.Model)

			mode := "environment"
			if a.creds.FromConfig() {
				mode = "config"
			}
			fmt.Fprintf(out, "Credentials (from %s):\n", mode)
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, st := range a.creds.Status() {
				value := "missing"
				if st.Present {
					value = st.Masked
				}
				fmt.Fprintf(w, "  %s\t%s\t%s\n", st.Provider, st.Name, value)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			limits, err := tokenguard.LoadLimits(limitsPath)
			if err != nil {
				a.logger.Warn("Using built-in token limits", zap.Error(err))
			}
			fmt.Fprintln(out, "\nToken limits (first match wins):")
			w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, e := range limits.Entries() {
				fmt.Fprintf(w, "  %s\t%d\n", e.Key, e.Limit)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if limit, ok := limits.Lookup(a.cfg.Summarization.Model); ok {
				fmt.Fprintf(out, "\n%s -> %d tokens\n", a.cfg.Summarization.Model, limit)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&limitsPath, "limits", "", "token limit overrides file (default $"+tokenguard.LimitsPathEnv+")")
	return cmd
}

func versionCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// buildTools assembles the registry for the configured search API.
func (a *app) buildTools() ([]tools.Descriptor, error) {
	deps := tools.Deps{Log: a.session.Log(), Logger: a.logger}
	if a.cfg.Search.API != config.SearchAPINone {
		pipeline, err := research.NewFromConfig(a.cfg, a.creds, a.session.Log(), a.logger)
		if err != nil {
			return nil, err
		}
		deps.Search = pipeline
	}
	return tools.Build(a.cfg.Search.API, deps)
}
