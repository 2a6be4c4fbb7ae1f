package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/reel/internal/cli"
	"github.com/aretw0/reel/internal/presentation/tui"
	"github.com/aretw0/reel/pkg/domain"
)

var runCmd = &cobra.Command{
	Use:   "run <concept>",
	Short: "Generate one video and print a summary",
	Long:  `Runs the whole pipeline for a single concept in the foreground. Interrupting the command aborts the run at the next step boundary.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		language, _ := cmd.Flags().GetString("language")
		asJSON, _ := cmd.Flags().GetBool("json")

		app, err := loadApp(cmd, map[string]string{})
		if err != nil {
			return err
		}
		defer app.Close()

		req, err := app.Generator.NewRequest(strings.Join(args, " "), language)
		if err != nil {
			return err
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		out := cmd.OutOrStdout()
		if !asJSON {
			tui.PrintBanner(out)
			fmt.Fprintf(out, "Generating %q (%s) as run %s...\n", req.Concept, req.Language, req.ID)
		}

		rec := app.Generator.Execute(ctx, req)
		if sig := ctx.Signal(); sig != nil {
			app.Logger.Warn("run interrupted", "signal", sig.String(), "run_id", rec.ID)
		}

		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(rec); err != nil {
				return err
			}
		} else {
			render := tui.NewRenderer()
			md, err := render(tui.SummaryMarkdown(rec))
			if err != nil {
				md = tui.SummaryMarkdown(rec)
			}
			fmt.Fprintln(out, tui.Badge(rec.Status))
			fmt.Fprint(out, md)
		}

		if rec.Status != domain.StatusSuccess {
			return errors.New(rec.Result().Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("language", "l", "", "Narration language code (default en-US)")
	runCmd.Flags().Bool("json", false, "Print the run record as JSON instead of a summary")
}
