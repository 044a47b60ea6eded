package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nlbdev/MathCAT/internal/adapters/redis"
	"github.com/nlbdev/MathCAT/internal/store"
)

// CacheStats is the JSON payload of cache stats.
type CacheStats struct {
	Renders  int64                `json:"renders"`
	RuleSets []store.RuleSetCount `json:"rule_sets"`
}

// NewCacheCommand creates the cache command group.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the render cache",
		Long: `Inspect and maintain a render cache.

Cached renders are keyed by rule set ID, which includes a digest of the
rule files. Editing rules never serves stale output, but leaves the old
entries behind; clear or prune removes them.`,
	}
	cmd.AddCommand(newCacheStatsCommand(rootOpts))
	cmd.AddCommand(newCacheClearCommand(rootOpts))
	cmd.AddCommand(newCachePruneCommand(rootOpts))
	return cmd
}

func newCacheStatsCommand(rootOpts *RootOptions) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:           "stats",
		Short:         "Show cached renders per rule set",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			return withStore(formatter, path, func(s *store.Store) error {
				ctx := cmd.Context()
				total, err := s.Count(ctx)
				if err != nil {
					return formatter.Fail(ExitFailure, err)
				}
				sets, err := s.RuleSets(ctx)
				if err != nil {
					return formatter.Fail(ExitFailure, err)
				}

				var b strings.Builder
				fmt.Fprintf(&b, "Renders: %d\n", total)
				for _, rs := range sets {
					fmt.Fprintf(&b, "  %-40s %d\n", rs.RuleSet, rs.Renders)
				}
				return formatter.Success(CacheStats{Renders: total, RuleSets: sets}, b.String())
			})
		},
	}
	cmd.Flags().StringVar(&path, "cache", "", "SQLite render cache file")
	_ = cmd.MarkFlagRequired("cache")
	return cmd
}

func newCacheClearCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		cache    CacheOptions
		ruleSets []string
	)
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the cached renders of rule sets",
		Long: `Delete the cached renders of the given rule sets.

Without --rule-set, every rule set in a SQLite cache is cleared.
Redis caches need explicit --rule-set values.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			ctx := cmd.Context()

			c, closeCache, err := cache.open()
			if err != nil {
				return formatter.Fail(ExitCommandError, err)
			}
			defer closeCache()

			var inv func(context.Context, string) (int64, error)
			switch backend := c.(type) {
			case *store.Store:
				inv = backend.Invalidate
				if len(ruleSets) == 0 {
					sets, err := backend.RuleSets(ctx)
					if err != nil {
						return formatter.Fail(ExitFailure, err)
					}
					for _, rs := range sets {
						ruleSets = append(ruleSets, rs.RuleSet)
					}
				}
			case *redis.Cache:
				inv = backend.Invalidate
				if len(ruleSets) == 0 {
					return formatter.Fail(ExitCommandError, argErrorf("--rule-set is required with --redis"))
				}
			default:
				return formatter.Fail(ExitCommandError, argErrorf("one of --cache or --redis is required"))
			}

			removed := make(map[string]int64, len(ruleSets))
			var b strings.Builder
			for _, rs := range ruleSets {
				n, err := inv(ctx, rs)
				if err != nil {
					return formatter.Fail(ExitFailure, err)
				}
				removed[rs] = n
				fmt.Fprintf(&b, "Cleared %d render(s) of %s\n", n, rs)
			}
			if len(ruleSets) == 0 {
				b.WriteString("Cache is empty\n")
			}
			return formatter.Success(map[string]any{"removed": removed}, b.String())
		},
	}
	cache.register(cmd)
	cmd.Flags().StringArrayVar(&ruleSets, "rule-set", nil, "rule set ID to clear (repeatable)")
	return cmd
}

func newCachePruneCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		path string
		keep int
	)
	cmd := &cobra.Command{
		Use:           "prune",
		Short:         "Keep only the newest renders",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			if keep < 0 {
				return formatter.Fail(ExitCommandError, argErrorf("--keep must not be negative"))
			}
			return withStore(formatter, path, func(s *store.Store) error {
				n, err := s.Prune(cmd.Context(), keep)
				if err != nil {
					return formatter.Fail(ExitFailure, err)
				}
				return formatter.Success(map[string]int64{"removed": n}, fmt.Sprintf("Pruned %d render(s)\n", n))
			})
		},
	}
	cmd.Flags().StringVar(&path, "cache", "", "SQLite render cache file")
	cmd.Flags().IntVar(&keep, "keep", 10000, "number of newest renders to keep")
	_ = cmd.MarkFlagRequired("cache")
	return cmd
}

func withStore(formatter *OutputFormatter, path string, fn func(*store.Store) error) error {
	s, err := store.Open(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	defer s.Close()
	return fn(s)
}
