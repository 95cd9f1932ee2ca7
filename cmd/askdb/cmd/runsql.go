package cmd

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var runsqlCmd = &cobra.Command{
	Use:   "runsql [sql]",
	Short: "Validate and execute read-only SQL, printing the result as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRunSQL,
}

func init() {
	rootCmd.AddCommand(runsqlCmd)
}

func runRunSQL(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	b, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = b.close() }()

	result := b.executor.Execute(cmd.Context(), strings.Join(args, " "))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if !result.OK() {
		return errors.New(result.ErrorMessage)
	}
	return nil
}
