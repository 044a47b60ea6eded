package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nlbdev/MathCAT"
	"github.com/nlbdev/MathCAT/internal/adapters/redis"
	"github.com/nlbdev/MathCAT/internal/rules"
	"github.com/nlbdev/MathCAT/internal/store"
)

// loadRepository loads the rules below --rules-dir, or the embedded
// rules when the flag is empty. Load warnings are logged.
func loadRepository(opts *RootOptions, logger *slog.Logger) (*rules.Repository, error) {
	if opts.RulesDir == "" {
		return rules.Default()
	}
	repo, err := rules.LoadDir(opts.RulesDir)
	if err != nil {
		return nil, err
	}
	for _, w := range repo.Warnings() {
		logger.Warn("rule warning", "file", w.File, "code", w.Code, "msg", w.Message)
	}
	logger.Debug("loaded rules", "dir", opts.RulesDir, "languages", repo.Languages(), "braille_codes", repo.BrailleCodes())
	return repo, nil
}

// CacheOptions selects the render cache shared by the sessions of a
// command. At most one backend may be set.
type CacheOptions struct {
	Path     string // SQLite database file
	Redis    string // Redis address
	Password string
	DB       int
}

func (c *CacheOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.Path, "cache", "", "SQLite render cache file")
	cmd.Flags().StringVar(&c.Redis, "redis", "", "Redis render cache address (host:port)")
	cmd.Flags().StringVar(&c.Password, "redis-password", os.Getenv("MATHCAT_REDIS_PASSWORD"), "Redis password")
	cmd.Flags().IntVar(&c.DB, "redis-db", 0, "Redis database number")
}

// open returns the selected cache, or nil when none is configured.
// The returned close func is never nil.
func (c *CacheOptions) open() (mathcat.Cache, func() error, error) {
	noop := func() error { return nil }
	switch {
	case c.Path != "" && c.Redis != "":
		return nil, noop, errors.New("--cache and --redis are mutually exclusive")
	case c.Path != "":
		s, err := store.Open(c.Path)
		if err != nil {
			return nil, noop, fmt.Errorf("open cache %s: %w", c.Path, err)
		}
		return s, s.Close, nil
	case c.Redis != "":
		r := redis.New(c.Redis, c.Password, c.DB)
		return r, r.Close, nil
	default:
		return nil, noop, nil
	}
}
