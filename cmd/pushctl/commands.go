package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/AgentOS/push/internal/client"
	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
)

type globalFlags struct {
	addr    string
	grant   string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "pushctl",
		Short:         "Manage push registrations on a pushd daemon",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&g.addr, "addr", envOr("PUSHD_URL", "http://127.0.0.1:8070"), "pushd base URL")
	root.PersistentFlags().StringVar(&g.grant, "grant", os.Getenv("PUSHD_GRANT_TOKEN"), "grant token for restricted schemes")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 10*time.Second, "request timeout")

	root.AddCommand(
		registerCmd(g),
		unregisterCmd(g),
		listCmd(g),
		takeCmd(g),
		lookupCmd(g),
		ownersCmd(g),
		removeOwnerCmd(g),
		statsCmd(g),
	)
	return root
}

func (g *globalFlags) client() *client.Client {
	opts := client.DefaultOptions()
	opts.Timeout = g.timeout
	opts.Grant = g.grant
	return client.New(g.addr, opts)
}

func registerCmd(g *globalFlags) *cobra.Command {
	var target, filter string
	cmd := &cobra.Command{
		Use:   "register <owner> <connection>",
		Short: "Reserve a connection and launch target when data arrives",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := types.ParseOwnerID(args[0])
			if err != nil {
				return err
			}
			rec, err := g.client().Register(cmd.Context(), owner, client.RegisterRequest{
				Connection: args[1],
				Target:     target,
				Filter:     filter,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "launch target (required)")
	cmd.Flags().StringVar(&filter, "filter", "", "sender filter glob")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func unregisterCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "unregister <owner> <connection>",
		Short: "Release a connection and forget it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := types.ParseOwnerID(args[0])
			if err != nil {
				return err
			}
			removed, err := g.client().Unregister(cmd.Context(), owner, args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"connection": args[1], "removed": removed})
		},
	}
}

func takeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "take <owner> <connection>",
		Short: "Collect the data buffered on a connection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := types.ParseOwnerID(args[0])
			if err != nil {
				return err
			}
			items, err := g.client().Take(cmd.Context(), owner, args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"connection": args[1], "items": items})
		},
	}
}

func listCmd(g *globalFlags) *cobra.Command {
	var available bool
	cmd := &cobra.Command{
		Use:   "list <owner>",
		Short: "List an owner's live connections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := types.ParseOwnerID(args[0])
			if err != nil {
				return err
			}
			conns, err := g.client().List(cmd.Context(), owner, available)
			if err != nil {
				return err
			}
			for _, c := range conns {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&available, "available", false, "only connections with pending data")
	return cmd
}

func lookupCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <connection>",
		Short: "Show which owner holds a connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, ok, err := g.client().Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s is not registered", args[0])
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func ownersCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "owners",
		Short: "List owners with live registrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owners, err := g.client().Owners(cmd.Context())
			if err != nil {
				return err
			}
			for _, o := range owners {
				fmt.Fprintln(cmd.OutOrStdout(), o)
			}
			return nil
		},
	}
}

func removeOwnerCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-owner <owner>",
		Short: "Drop every registration of an uninstalled owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := types.ParseOwnerID(args[0])
			if err != nil {
				return err
			}
			n, err := g.client().RemoveOwner(cmd.Context(), owner)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"owner": owner, "released": n})
		},
	}
}

func statsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show daemon counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := g.client().Stats(cmd.Context())
			if err != nil {
				return err
			}
			var v any
			if err := sonic.Unmarshal(raw, &v); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
}

func printJSON(w io.Writer, v any) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
