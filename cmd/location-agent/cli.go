package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BearBump/FieldTrack/config"
	"github.com/BearBump/FieldTrack/internal/models"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type cli struct {
	factories agentFactories
	cfgPath   string
	cfg       *config.Config
}

func newRootCmd(f agentFactories) *cobra.Command {
	c := &cli{factories: f}

	root := &cobra.Command{
		Use:           "location-agent",
		Short:         "Field rep location agent",
		Long:          "Resolves the device location, logs field activities and keeps a local fallback of records the activity API did not accept.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.cfgPath == "" {
				return errors.New("config path is required (--config or configPath env var)")
			}
			cfg, err := config.LoadConfig(c.cfgPath)
			if err != nil {
				return fmt.Errorf("ошибка парсинга конфига, %w", err)
			}
			c.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.cfgPath, "config", os.Getenv("configPath"), "path to the YAML config")

	root.AddCommand(
		c.serveCmd(),
		c.locateCmd(),
		c.permissionCmd(),
		c.logCmd(),
		c.replayCmd(),
	)
	return root
}

func (c *cli) withAgent(ctx context.Context, fn func(a *agent) error) error {
	a, err := buildAgent(ctx, c.cfg, c.factories)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func (c *cli) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agent HTTP API and the fallback replayer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.cfg.Agent.HTTPAddr
			}
			return c.withAgent(cmd.Context(), func(a *agent) error {
				return serveAgent(cmd.Context(), a, agentHTTPOpts{httpAddr: addr})
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides agent.http_addr)")
	return cmd
}

// serveAgent runs the replayer next to the HTTP server until ctx is done.
func serveAgent(ctx context.Context, a *agent, opts agentHTTPOpts) error {
	opts.agent = a
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	replayErr := make(chan error, 1)
	go func() {
		replayErr <- a.replayer.Run(runCtx)
	}()

	slog.Info("location agent listening", "addr", opts.httpAddr)
	err := runAgentHTTPServer(runCtx, opts)
	cancel()
	<-replayErr
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (c *cli) locateCmd() *cobra.Command {
	var waitAddress bool
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Resolve the current location once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withAgent(cmd.Context(), func(a *agent) error {
				sample := a.location.GetCurrentLocation(cmd.Context())
				if waitAddress {
					a.location.WaitEnrichment()
					if enriched, ok := a.location.LastKnown(cmd.Context()); ok && enriched.SameCoordinates(sample.Latitude, sample.Longitude) {
						sample = enriched
					}
				}
				return printJSON(cmd, sample)
			})
		},
	}
	cmd.Flags().BoolVar(&waitAddress, "wait-address", false, "wait for reverse geocoding before printing")
	return cmd
}

func (c *cli) permissionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "permission",
		Short: "Request geolocation permission",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withAgent(cmd.Context(), func(a *agent) error {
				return printJSON(cmd, a.location.RequestPermission(cmd.Context()))
			})
		},
	}
}

func (c *cli) logCmd() *cobra.Command {
	var (
		userID  string
		details []string
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "log <type>",
		Short: "Log an activity (login, clinic_registration, order, visit, payment)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := models.ActivityType(args[0])
			if !t.Valid() {
				return fmt.Errorf("unknown activity type %q", args[0])
			}
			if userID == "" {
				return errors.New("--user is required")
			}
			d, err := parseDetails(details)
			if err != nil {
				return err
			}
			return c.withAgent(cmd.Context(), func(a *agent) error {
				id := a.logger.LogActivity(cmd.Context(), t, userID, d, force)
				_, err := fmt.Fprintln(cmd.OutOrStdout(), id)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringArrayVar(&details, "detail", nil, "detail as key=value, repeatable")
	cmd.Flags().BoolVar(&force, "force-location", false, "acquire a fresh location even without granted permission")
	return cmd
}

func (c *cli) replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Re-send queued fallback records once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withAgent(cmd.Context(), func(a *agent) error {
				sent, err := a.replayer.ReplayOnce(cmd.Context())
				left, lenErr := a.fallback.Len(cmd.Context())
				if lenErr != nil {
					return lenErr
				}
				if _, werr := fmt.Fprintf(cmd.OutOrStdout(), "sent %d, queued %d\n", sent, left); werr != nil {
					return werr
				}
				return err
			})
		},
	}
}

func parseDetails(kvs []string) (map[string]any, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("detail %q is not key=value", kv)
		}
		out[k] = v
	}
	return out, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
