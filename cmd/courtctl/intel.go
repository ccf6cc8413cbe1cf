package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/david/court-scout/internal/ai"
	"github.com/david/court-scout/internal/db"
	"github.com/david/court-scout/internal/intel"
)

var (
	intelSource string
	intelDryRun bool
	intelNoLLM  bool
)

var intelCmd = &cobra.Command{
	Use:   "intel",
	Short: "Competitor web intel",
}

var intelSourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured competitor sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := intel.LoadRegistry(cfg.IntelSources)
		if err != nil {
			return err
		}
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Source", "Competitor", "Base URL", "Max Articles", "Detail"})
		for _, s := range reg.Sources {
			base := s.BaseURL
			if base == "" {
				base = "(disabled)"
			}
			t.AppendRow(table.Row{s.ID, s.Competitor, base, s.MaxArticles, s.Detail.Enabled})
		}
		t.Render()
		return nil
	},
}

var intelRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Crawl competitor sites and store new articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		reg, err := intel.LoadRegistry(cfg.IntelSources)
		if err != nil {
			return err
		}
		if intelSource != "" {
			src, ok := reg.Get(intelSource)
			if !ok {
				return fmt.Errorf("unknown source %q", intelSource)
			}
			reg = &intel.Registry{Sources: []intel.Source{src}}
		}

		r := &intel.Refresher{
			Registry: reg,
			Crawler:  intel.NewCrawler(logger.Named("crawler")),
			Logger:   logger.Named("intel"),
		}
		if !intelNoLLM {
			r.LLM = ai.NewOllamaClient(cfg.OllamaHost, "", cfg.OllamaModel)
		}
		if !intelDryRun {
			pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			r.Store = db.NewStore(pool)
		}

		res, err := r.Run(ctx)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Competitor", "Date", "Headline"})
		for _, it := range res.Items {
			date := ""
			if it.Date != nil {
				date = it.Date.Format("2006-01-02")
			}
			t.AppendRow(table.Row{it.CompetitorName, date, it.Headline})
		}
		t.AppendFooter(table.Row{fmt.Sprintf("%d sources", res.Sources), fmt.Sprintf("%d saved", res.Saved), fmt.Sprintf("%d articles", res.Articles)})
		t.Render()

		for _, e := range res.Errors {
			fmt.Fprintf(os.Stderr, "source %s failed: %s\n", e.SourceID, e.Error)
		}
		return nil
	},
}

func init() {
	intelRefreshCmd.Flags().StringVar(&intelSource, "source", "", "Only crawl this source id")
	intelRefreshCmd.Flags().BoolVar(&intelDryRun, "dry-run", false, "Crawl and print without saving")
	intelRefreshCmd.Flags().BoolVar(&intelNoLLM, "no-llm", false, "Skip model extraction and keep page summaries")
	intelCmd.AddCommand(intelSourcesCmd, intelRefreshCmd)
}
