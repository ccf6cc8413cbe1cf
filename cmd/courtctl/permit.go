package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/david/court-scout/internal/ai"
	"github.com/david/court-scout/internal/geo"
	"github.com/david/court-scout/internal/intel"
)

var (
	permitLat  float64
	permitLng  float64
	permitLLM  bool
	permitJSON bool
)

var permitCmd = &cobra.Command{
	Use:   "permit [file.pdf]",
	Short: "Parse a building permit PDF into a scored lead",
	Long: `Extracts the permit number, address, project type, contractor and
valuation from a permit PDF and scores it as a lead. With --llm the
configured Ollama model scores the lead; otherwise keywords do.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		text, err := intel.ExtractPDFText(content)
		if err != nil {
			return err
		}
		permit := intel.ParsePermit(text)

		opts := intel.LeadOptions{
			Coords: geo.LatLng{Lat: permitLat, Lng: permitLng},
			Logger: logger,
		}
		if permitLLM {
			opts.LLM = ai.NewOllamaClient(cfg.OllamaHost, "", cfg.OllamaModel)
		}
		lead := intel.PermitLead(cmd.Context(), permit, opts)

		if permitJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(lead)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendRow(table.Row{"ID", lead.ID})
		t.AppendRow(table.Row{"Name", lead.Name})
		t.AppendRow(table.Row{"Score", fmt.Sprintf("%d/10", lead.AIScore)})
		t.AppendRow(table.Row{"Court", lead.CourtType})
		t.AppendRow(table.Row{"Contractor", lead.Contractor})
		for k, v := range lead.ExtractedData {
			t.AppendRow(table.Row{k, v})
		}
		t.AppendRow(table.Row{"Summary", lead.AISummary})
		t.Render()
		return nil
	},
}

func init() {
	f := permitCmd.Flags()
	f.Float64Var(&permitLat, "lat", 0, "Latitude of the permit site")
	f.Float64Var(&permitLng, "lng", 0, "Longitude of the permit site")
	f.BoolVar(&permitLLM, "llm", false, "Score with the configured Ollama model")
	f.BoolVar(&permitJSON, "json", false, "Print the lead as JSON")
}
