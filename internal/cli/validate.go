package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/nlbdev/MathCAT/internal/rules"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Watch    bool
	Debounce time.Duration
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                    `json:"valid"`
	Errors   []rules.ValidationError `json:"errors,omitempty"`
	Warnings []rules.ValidationError `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [rules-dir]",
		Short: "Validate rule files without rendering",
		Long: `Validate a directory of rule files.

Checks YAML syntax, the rule file schema, includes, XPath expressions
and rule conflicts. Warnings (such as a missing catch-all rule) are
reported but do not fail validation.

Without an argument, --rules-dir or else the built-in rules are checked.
With --watch the directory is re-validated whenever a file changes.

Exit codes:
  0 - Rules valid
  1 - Validation errors
  2 - Command error (directory not found)`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := rootOpts.RulesDir
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(opts, dir, cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "re-validate on file changes")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 200*time.Millisecond, "quiet period before re-validating")

	return cmd
}

func runValidate(opts *ValidateOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	var fsys fs.FS
	if dir == "" {
		if opts.Watch {
			return formatter.Fail(ExitCommandError, argErrorf("--watch needs a rules directory"))
		}
		fsys = rules.Data()
		formatter.VerboseLog("Validating built-in rules")
	} else {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			formatter.Error(ErrCodeNotFound, fmt.Sprintf("rules directory not found: %s", dir), nil)
			return &ExitError{Code: ExitCommandError, Message: "rules directory not found: " + dir, Reported: true}
		}
		fsys = os.DirFS(dir)
		formatter.VerboseLog("Validating %s", dir)
	}

	err := outputValidation(formatter, rules.Validate(fsys))
	if !opts.Watch {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := opts.logger(cmd)
	logger.Info("watching rules", "dir", dir)
	return watchRules(ctx, dir, opts.Debounce, func() {
		logger.Debug("rules changed, re-validating", "dir", dir)
		_ = outputValidation(formatter, rules.Validate(os.DirFS(dir)))
	})
}

// outputValidation reports problems and returns the exit error, if any.
func outputValidation(formatter *OutputFormatter, problems []rules.ValidationError) error {
	result := ValidationResult{Valid: true}
	for _, p := range problems {
		if p.IsWarning() {
			result.Warnings = append(result.Warnings, p)
		} else {
			result.Errors = append(result.Errors, p)
		}
	}
	result.Valid = len(result.Errors) == 0

	if formatter.Format == "json" {
		if result.Valid {
			if err := formatter.Success(result, ""); err != nil {
				return err
			}
			return nil
		}
		first := result.Errors[0]
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: first.Code, Message: first.Message},
		}
		if err := jsonIndent(formatter.Writer, response); err != nil {
			return err
		}
		return validationFailed(len(result.Errors))
	}

	w := formatter.Writer
	if result.Valid {
		fmt.Fprintln(w, "✓ All rules valid")
	} else {
		fmt.Fprintln(w, "✗ Validation failed")
		fmt.Fprintln(w)
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\n", e.Error())
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%d warning(s):\n", len(result.Warnings))
		for _, warn := range result.Warnings {
			fmt.Fprintf(w, "  %s\n", warn.Error())
		}
	}
	if !result.Valid {
		return validationFailed(len(result.Errors))
	}
	return nil
}

func validationFailed(n int) error {
	return &ExitError{
		Code:     ExitFailure,
		Message:  fmt.Sprintf("validation failed with %d error(s)", n),
		Reported: true,
	}
}

// watchRules calls onChange after each burst of file events below dir,
// once the burst has been quiet for debounce. New subdirectories are
// watched as they appear. It returns when ctx is done.
func watchRules(ctx context.Context, dir string, debounce time.Duration, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addTree(watcher, dir); err != nil {
		return err
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addTree(watcher, event.Name)
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			timer.Reset(debounce)

		case <-timer.C:
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
}

// addTree watches dir and every directory below it.
func addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
