package main

import (
	"fmt"
	"os/exec"
	"sort"

	"github.com/spf13/cobra"

	"github.com/aretw0/reel/internal/validator"
	"github.com/aretw0/reel/pkg/adapters/process"
)

var validateCmd = &cobra.Command{
	Use:   "validate [config]",
	Short: "Check the configuration and the workflow graph",
	Long: `Loads the configuration, checks the revision budgets against the step ceiling,
crawls the workflow graph for unreachable or non-terminating steps and reports
external commands missing from PATH.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 && !cmd.Flags().Changed("config") {
			if err := cmd.Flags().Set("config", args[0]); err != nil {
				return err
			}
		}
		if err := runValidate(cmd); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Configuration and graph are valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command) error {
	app, err := loadApp(cmd, map[string]string{})
	if err != nil {
		return err
	}
	defer app.Close()

	if err := validator.ValidateGraph(app.Generator.Graph()); err != nil {
		return err
	}

	commands, err := process.LoadCommands(app.Config.Render.CommandsFile)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := exec.LookPath(commands[name].Command); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s command %q not found in PATH\n", name, commands[name].Command)
		}
	}
	return nil
}
