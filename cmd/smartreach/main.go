// Command smartreach runs campaign stages against the configured store without the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/smartreach/internal/app"
	"github.com/AngelCh415/smartreach/internal/config"
	"github.com/AngelCh415/smartreach/internal/models"
	"github.com/AngelCh415/smartreach/internal/orchestrator"
)

type builder func(ctx context.Context, log *slog.Logger) (*app.App, error)

func fromEnv(ctx context.Context, log *slog.Logger) (*app.App, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, log)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	root, closeApp := newRootCmd(fromEnv)
	err := root.ExecuteContext(ctx)
	if cerr := closeApp(); cerr != nil {
		fmt.Fprintln(os.Stderr, "close store:", cerr)
	}
	if err != nil {
		stop()
		os.Exit(1)
	}
}

// newRootCmd returns the command tree and a func that releases whatever app a command built.
// Cobra skips post-run hooks when RunE fails, so callers run closeApp after Execute returns.
func newRootCmd(build builder) (*cobra.Command, func() error) {
	var (
		verbose bool
		a       *app.App
	)
	root := &cobra.Command{
		Use:          "smartreach",
		Short:        "Research companies and draft outreach campaigns",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			var err error
			a, err = build(cmd.Context(), log)
			return err
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline progress to stderr")

	orch := func() *orchestrator.Orchestrator { return a.Orchestrator }
	root.AddCommand(
		researchCmd(orch),
		generateCmd(orch),
		restoreCmd(orch),
		historyCmd(func() *app.App { return a }),
	)
	closeApp := func() error {
		if a == nil {
			return nil
		}
		err := a.Close()
		a = nil
		return err
	}
	return root, closeApp
}

func researchCmd(orch func() *orchestrator.Orchestrator) *cobra.Command {
	var crit models.Criteria
	cmd := &cobra.Command{
		Use:   "research",
		Short: "Start a campaign and find matching companies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := orch().BeginResearch(cmd.Context(), crit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&crit.ProductService, "product", "", "Product or service being offered (required)")
	cmd.Flags().StringVar(&crit.Area, "area", "", "Target geographic area (required)")
	cmd.Flags().StringVar(&crit.Context, "context", "", "Additional targeting context")
	cmd.Flags().StringVar(&crit.Angle, "angle", "", "Messaging angle")
	cmd.Flags().IntVar(&crit.MaxLeads, "max-leads", orchestrator.DefaultMaxLeads, "Maximum leads to return")
	cmd.Flags().StringVar(&crit.CampaignID, "campaign", "", "Re-run research for an existing campaign")
	cmd.MarkFlagRequired("product")
	cmd.MarkFlagRequired("area")
	return cmd
}

func generateCmd(orch func() *orchestrator.Orchestrator) *cobra.Command {
	var (
		req orchestrator.GenerateRequest
		all bool
	)
	cmd := &cobra.Command{
		Use:   "generate <campaign-id>",
		Short: "Draft and score messages for selected leads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.CampaignID = args[0]
			if all {
				w, err := orch().Restore(cmd.Context(), req.CampaignID)
				if err != nil {
					return err
				}
				req.SelectedIDs = req.SelectedIDs[:0]
				for _, l := range w.Leads {
					req.SelectedIDs = append(req.SelectedIDs, l.ID)
				}
			}
			msgs, err := orch().GenerateForSelection(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"campaign_id":           req.CampaignID,
				"messages":              msgs,
				"average_quality_score": orchestrator.AverageQuality(msgs),
			})
		},
	}
	cmd.Flags().StringSliceVar(&req.SelectedIDs, "leads", nil, "Lead ids to write for")
	cmd.Flags().BoolVar(&all, "all", false, "Write for every researched lead")
	cmd.Flags().BoolVar(&req.Refine, "refine", false, "Rewrite drafts that score below the threshold")
	cmd.Flags().StringVar(&req.Angle, "angle", "", "Override the campaign's messaging angle")
	return cmd
}

func restoreCmd(orch func() *orchestrator.Orchestrator) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <campaign-id>",
		Short: "Show the working state of an unfinished campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := orch().Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), w)
		},
	}
}

func historyCmd(get func() *app.App) *cobra.Command {
	var status, from, to string
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List campaigns, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			for k, v := range map[string]string{"status": status, "from": from, "to": to} {
				if v != "" {
					q.Set(k, v)
				}
			}
			q.Set("limit", strconv.Itoa(limit))
			page, err := get().History.History(cmd.Context(), q)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tPRODUCT\tAREA\tFOUND\tSELECTED\tCREATED")
			for _, c := range page.Campaigns {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
					c.ID, c.Status, c.ProductService, c.Area, c.LeadsFound, c.LeadsSelected, c.CreatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only campaigns in this status")
	cmd.Flags().StringVar(&from, "from", "", "Created on or after (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Created on or before (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
