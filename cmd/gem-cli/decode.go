package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"gem-finder/internal/gems/decoder"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [file]",
	Short: "Decode raw recommendation output into the canonical result",
	Long: `Reads model output from a file, or stdin when no file is given, and
prints the canonical result as JSON along with the strategy that produced it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			raw []byte
			err error
		)
		if len(args) == 1 && args[0] != "-" {
			raw, err = os.ReadFile(args[0])
		} else {
			raw, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		result, strategy := decoder.Trace(string(raw))
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}

		fmt.Fprintln(cmd.ErrOrStderr(), "strategy:", strategy)
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}
