package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nlbdev/MathCAT"
	"github.com/nlbdev/MathCAT/internal/prefs"
	"github.com/nlbdev/MathCAT/internal/rules"
)

// SampleMathML is rendered when speak or trace get no input.
const SampleMathML = `<math><mo>(</mo><mn>1</mn><mo>)</mo></math>`

// SpeakOptions holds flags for the speak command.
type SpeakOptions struct {
	*RootOptions
	Cache    CacheOptions
	Language string
	Profile  string   // preference profile file
	Prefs    []string // name=value overrides
	Braille  bool
	NavHint  string
}

// SpeakResult is the JSON payload of speak.
type SpeakResult struct {
	Canonical string `json:"canonical"`
	Speech    string `json:"speech"`
	Braille   string `json:"braille,omitempty"`
}

// NewSpeakCommand creates the speak command.
func NewSpeakCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SpeakOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "speak [file]",
		Short: "Render MathML as speech (and braille)",
		Long: `Render a MathML expression as speech text and optionally braille.

The expression is read from file, from stdin when file is "-", or a
built-in sample when no file is given.

Preferences start from a fixed profile (verbose ClearSpeak, Nemeth
braille), then --prefs, then each --pref in order.

Examples:
  mathcat speak expr.xml
  mathcat speak --language nb --braille expr.xml
  echo '<math><mn>2</mn></math>' | mathcat speak -
  mathcat speak --pref Verbosity=Terse --pref SpeechStyle=SimpleSpeak expr.xml`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpeak(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Language, "language", "l", "en", "speech language")
	cmd.Flags().StringVar(&opts.Profile, "prefs", "", "preference profile (YAML)")
	cmd.Flags().StringArrayVar(&opts.Prefs, "pref", nil, "preference override name=value (repeatable)")
	cmd.Flags().BoolVarP(&opts.Braille, "braille", "b", false, "also render braille")
	cmd.Flags().StringVar(&opts.NavHint, "nav-hint", "", "node id to focus in braille")
	opts.Cache.register(cmd)

	return cmd
}

// demoProfile is the starting preference set of speak. BrailleCode is
// left at its default when repo has no Nemeth rules.
func demoProfile(language string, repo *rules.Repository) map[string]string {
	values := map[string]string{
		prefs.Language:                   language,
		prefs.SpeechStyle:                "ClearSpeak",
		prefs.Verbosity:                  prefs.VerbosityVerbose,
		prefs.DecimalSeparator:           "Auto",
		prefs.IntentErrorRecovery:        prefs.RecoveryError,
		"TTS":                            "None",
		"NavVerbosity":                   prefs.VerbosityVerbose,
		"NavMode":                        "Enhanced",
		"Impairment":                     "Blindness",
		"SpeechOverrides_CapitalLetters": "",
		"MathRate":                       "80",
		"CapitalLetters_Beep":            "true",
		"Bookmark":                       "false",
	}
	if repo.HasBrailleCode("Nemeth") {
		values[prefs.BrailleCode] = "Nemeth"
	}
	return values
}

// resolvePreferences layers the demo profile, the profile file and the
// --pref overrides.
func resolvePreferences(opts *SpeakOptions, repo *rules.Repository) (map[string]string, error) {
	values := demoProfile(opts.Language, repo)
	if opts.Profile != "" {
		profile, err := prefs.LoadProfile(opts.Profile)
		if err != nil {
			return nil, err
		}
		for k, v := range profile {
			values[k] = v
		}
	}
	overrides, err := parsePrefFlags(opts.Prefs)
	if err != nil {
		return nil, err
	}
	for k, v := range overrides {
		values[k] = v
	}
	return values, nil
}

// parsePrefFlags splits name=value pairs. The value may be empty.
func parsePrefFlags(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, argErrorf("invalid --pref %q: expected name=value", p)
		}
		out[name] = value
	}
	return out, nil
}

// readInput returns the markup named by args: a file, stdin for "-",
// or SampleMathML.
func readInput(args []string, stdin io.Reader) (string, error) {
	if len(args) == 0 {
		return SampleMathML, nil
	}
	if args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func runSpeak(opts *SpeakOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd)

	markup, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	repo, err := loadRepository(opts.RootOptions, logger)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}
	values, err := resolvePreferences(opts, repo)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	cache, closeCache, err := opts.Cache.open()
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	defer closeCache()

	session, err := mathcat.NewSession(
		mathcat.WithRepository(repo),
		mathcat.WithLogger(logger),
		mathcat.WithCache(cache),
	)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}
	logSupported(logger, session)

	ctx := cmd.Context()
	res, err := session.Process(ctx, mathcat.OutputSpeech, mathcat.Request{MathML: markup, Preferences: values})
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}
	formatter.VerboseLog("canonical: %s", res.Canonical)

	result := SpeakResult{Canonical: res.Canonical, Speech: res.Output}
	if opts.Braille {
		result.Braille, err = session.BrailleContext(ctx, opts.NavHint)
		if err != nil {
			return formatter.Fail(ExitFailure, err)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Speech: %s\n", result.Speech)
	if opts.Braille {
		fmt.Fprintf(&b, "Braille: %s\n", result.Braille)
	}
	return formatter.Success(result, b.String())
}

func logSupported(logger *slog.Logger, s *mathcat.Session) {
	languages := s.SupportedLanguages()
	logger.Info("supported languages", "languages", languages)
	for _, lang := range languages {
		logger.Debug("speech styles", "language", lang, "styles", s.SupportedSpeechStyles(lang))
	}
	logger.Debug("braille codes", "codes", s.SupportedBrailleCodes())
}
