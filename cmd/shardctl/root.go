package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ceyewan/shardkit/assign"
	"github.com/ceyewan/shardkit/idgen"
	"github.com/ceyewan/shardkit/shardmap"
	"github.com/ceyewan/shardkit/xerrors"
)

var errNotSupported = xerrors.Wrap(xerrors.ErrConfiguration, "shardctl: not supported by the configured backend")

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "shardctl",
		Short:         "Inspect and operate a shardkit deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: ./config.yaml or ./config/config.yaml)")

	// withApp 为每次命令装配组件并在结束时释放
	withApp := func(fn func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := openApp(ctx, configFile)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			return fn(ctx, cmd, a, args)
		}
	}

	root.AddCommand(
		newShardsCmd(withApp),
		newMigrateCmd(withApp),
		newNextIDCmd(withApp),
		newClearCounterCmd(withApp),
		newRecordCmd(withApp),
		newLookupCmd(withApp),
		newAssignCmd(withApp),
	)
	return root
}

type runner func(fn func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error

func newShardsCmd(withApp runner) *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "shards",
		Short: "List configured shards, or the primary shards of a group",
		Args:  cobra.NoArgs,
		RunE: withApp(func(_ context.Context, cmd *cobra.Command, a *app, _ []string) error {
			out := cmd.OutOrStdout()
			if cmd.Flags().Changed("group") {
				for _, name := range a.topo.PrimaryShardsFor(group) {
					fmt.Fprintln(out, name)
				}
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tGROUP\tROLE")
			for _, s := range a.topo.Shards() {
				role := "primary"
				if !s.IsPrimary() {
					role = "replica of " + s.Primary
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, s.ShardGroup, role)
			}
			return w.Flush()
		}),
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "print the primary shards of this group")
	return cmd
}

func newMigrateCmd(withApp runner) *cobra.Command {
	var namespaces []string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the mapping table and the id counter tables on every primary shard",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			out := cmd.OutOrStdout()
			if a.migrator != nil {
				if err := a.migrator.Migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintln(out, "mapping store migrated")
			}
			if len(namespaces) == 0 {
				return nil
			}
			table, ok := a.ids.(*idgen.TableStrategy)
			if !ok {
				return xerrors.Wrapf(errNotSupported, "counter tables need the %s id strategy", idgen.StrategyTable)
			}
			for _, group := range a.topo.Groups() {
				for _, shard := range a.topo.PrimaryShardsFor(group) {
					for _, ns := range namespaces {
						if err := table.EnsureNamespace(ctx, shard, ns); err != nil {
							return err
						}
						fmt.Fprintf(out, "counter %s ready on %s\n", ns, shard)
					}
				}
			}
			return nil
		}),
	}
	cmd.Flags().StringSliceVarP(&namespaces, "namespace", "n", nil, "id namespaces to create counter tables for")
	return cmd
}

func newNextIDCmd(withApp runner) *cobra.Command {
	var sharded bool
	cmd := &cobra.Command{
		Use:   "next-id <shard> <namespace>",
		Short: "Generate the next id of a namespace on a shard",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			id, err := a.ids.NextID(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if sharded {
				fmt.Fprintln(cmd.OutOrStdout(), idgen.ShardedID{Shard: args[0], Seq: id})
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatInt(id, 10))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&sharded, "sharded", false, "print as <shard>:<seq>")
	return cmd
}

func newClearCounterCmd(withApp runner) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-counter <shard> <namespace>",
		Short: "Remove rows left behind in a counter table",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			table, ok := a.ids.(*idgen.TableStrategy)
			if !ok {
				return xerrors.Wrapf(errNotSupported, "clear-counter needs the %s id strategy", idgen.StrategyTable)
			}
			n, err := table.Clear(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d rows\n", n)
			return nil
		}),
	}
}

func newRecordCmd(withApp runner) *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "record <shard-key> <shard>",
		Short: "Record the shard of a shard key",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			store, err := a.mappingStore()
			if err != nil {
				return err
			}
			if group != "" {
				store = shardmap.Validated(store, a.topo, group)
			}
			if err := store.Record(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", args[0], args[1])
			return nil
		}),
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "reject shards that are not primary shards of this group")
	return cmd
}

func newLookupCmd(withApp runner) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <shard-key>",
		Short: "Print the recorded shard of a shard key",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			store, err := a.mappingStore()
			if err != nil {
				return err
			}
			shard, err := store.Lookup(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), shard)
			return nil
		}),
	}
}

// keyEntity 只携带哈希键，用于预览分配结果
type keyEntity struct {
	group string
	key   string
	assign.ShardField
}

func (e *keyEntity) ShardGroup() string { return e.group }

func newAssignCmd(withApp runner) *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "assign <key>...",
		Short: "Preview which primary shard each key hashes to",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			assigner, err := assign.New(a.topo, assign.NewHash(func(e assign.Entity) string {
				return e.(*keyEntity).key
			}), assign.WithLogger(a.logger), assign.WithMeter(a.meter))
			if err != nil {
				return err
			}
			for _, key := range args {
				shard, err := assigner.Assign(ctx, &keyEntity{group: group, key: key})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", key, shard)
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "shard group")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}

func (a *app) mappingStore() (shardmap.Store, error) {
	if a.store == nil {
		return nil, xerrors.Wrap(errNotSupported, "no mapping store configured, set mapping.database or mapping.backend")
	}
	return a.store, nil
}

