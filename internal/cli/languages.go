package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nlbdev/MathCAT"
)

// LanguageInfo describes one speech language.
type LanguageInfo struct {
	Language string   `json:"language"`
	Styles   []string `json:"styles"`
}

// LanguagesResult is the JSON payload of languages.
type LanguagesResult struct {
	Languages    []LanguageInfo `json:"languages"`
	BrailleCodes []string       `json:"braille_codes"`
}

// NewLanguagesCommand creates the languages command.
func NewLanguagesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "languages",
		Short:         "List speech languages, styles and braille codes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			repo, err := loadRepository(rootOpts, rootOpts.logger(cmd))
			if err != nil {
				return formatter.Fail(ExitFailure, err)
			}

			result := LanguagesResult{Languages: []LanguageInfo{}, BrailleCodes: repo.BrailleCodes()}
			var b strings.Builder
			fmt.Fprintln(&b, "Languages:")
			for _, lang := range repo.Languages() {
				styles := repo.Styles(lang)
				result.Languages = append(result.Languages, LanguageInfo{Language: lang, Styles: styles})
				fmt.Fprintf(&b, "  %-6s %s\n", lang, strings.Join(styles, ", "))
			}
			fmt.Fprintf(&b, "Braille codes: %s\n", strings.Join(result.BrailleCodes, ", "))
			return formatter.Success(result, b.String())
		},
	}
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of mathcat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.formatter(cmd).Success(
				map[string]string{"version": mathcat.Version},
				fmt.Sprintf("mathcat version %s\n", mathcat.Version),
			)
		},
	}
}
