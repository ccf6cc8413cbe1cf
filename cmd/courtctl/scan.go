package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/david/court-scout/internal/db"
	"github.com/david/court-scout/internal/geo"
	"github.com/david/court-scout/internal/scan"
)

var (
	scanSW        string
	scanNE        string
	scanPolygon   string
	scanShapefile string
	scanArea      string
	scanAreaField string
	scanSeed      uint64
	scanDuration  time.Duration
	scanRecord    bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a radar sweep over an area and print what it reveals",
	Long: `Generates residential prospects inside a bounding box or polygon and
reveals them in sweep order, exactly as the dashboard does.

The area is given as corners, a GeoJSON polygon file, or a named area
from a shapefile:

  courtctl scan --sw 33.50,-112.00 --ne 33.52,-111.97
  courtctl scan --polygon area.geojson
  courtctl scan --shapefile territories.shp --area "Arcadia"`,
	RunE: runScan,
}

func init() {
	f := scanCmd.Flags()
	f.StringVar(&scanSW, "sw", "", "South-west corner as lat,lng")
	f.StringVar(&scanNE, "ne", "", "North-east corner as lat,lng")
	f.StringVar(&scanPolygon, "polygon", "", "GeoJSON file with a Polygon or Feature")
	f.StringVar(&scanShapefile, "shapefile", "", "Shapefile with named service areas")
	f.StringVar(&scanArea, "area", "", "Service area name to scan (with --shapefile)")
	f.StringVar(&scanAreaField, "area-field", "NAME", "DBF attribute holding area names")
	f.Uint64Var(&scanSeed, "seed", 0, "Seed for reproducible prospects (0 = random)")
	f.DurationVar(&scanDuration, "duration", 0, "Sweep duration (default from SCAN_DURATION_MS)")
	f.BoolVar(&scanRecord, "record", false, "Record the run in the database")
}

func parseLatLng(s string) (geo.LatLng, error) {
	lat, lng, ok := strings.Cut(s, ",")
	if !ok {
		return geo.LatLng{}, fmt.Errorf("expected lat,lng, got %q", s)
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return geo.LatLng{}, fmt.Errorf("invalid latitude %q: %w", lat, err)
	}
	ln, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return geo.LatLng{}, fmt.Errorf("invalid longitude %q: %w", lng, err)
	}
	return geo.LatLng{Lat: la, Lng: ln}, nil
}

// scanRegion resolves the flags into a region. Exactly one of the area forms
// must be given.
func scanRegion() (scan.Region, error) {
	switch {
	case scanShapefile != "":
		if scanArea == "" {
			return scan.Region{}, fmt.Errorf("--area is required with --shapefile")
		}
		areas, err := geo.LoadServiceAreas(scanShapefile, scanAreaField)
		if err != nil {
			return scan.Region{}, err
		}
		area, ok := geo.FindServiceArea(areas, scanArea)
		if !ok {
			return scan.Region{}, fmt.Errorf("no area named %q in %s", scanArea, scanShapefile)
		}
		return areaRegion(area)

	case scanPolygon != "":
		raw, err := os.ReadFile(scanPolygon)
		if err != nil {
			return scan.Region{}, err
		}
		ring, err := geo.ParsePolygon(raw)
		if err != nil {
			return scan.Region{}, err
		}
		bounds, err := ring.Bounds()
		if err != nil {
			return scan.Region{}, err
		}
		return scan.Region{Bounds: bounds, Polygon: ring}, nil

	case scanSW != "" && scanNE != "":
		sw, err := parseLatLng(scanSW)
		if err != nil {
			return scan.Region{}, err
		}
		ne, err := parseLatLng(scanNE)
		if err != nil {
			return scan.Region{}, err
		}
		return scan.Region{Bounds: geo.Bounds{SouthWest: sw, NorthEast: ne}}, nil
	}
	return scan.Region{}, fmt.Errorf("give --sw and --ne, --polygon, or --shapefile with --area")
}

// areaRegion turns a single-ring service area into a scan region. Multi-part
// areas, including polygons with holes, are refused rather than scanned as
// their first ring.
func areaRegion(area geo.ServiceArea) (scan.Region, error) {
	switch len(area.Parts) {
	case 0:
		return scan.Region{}, fmt.Errorf("area %q has no polygon", area.Name)
	case 1:
	default:
		return scan.Region{}, fmt.Errorf("area %q has %d parts; only single-ring areas can be scanned", area.Name, len(area.Parts))
	}
	ring := area.Parts[0]
	bounds, err := ring.Bounds()
	if err != nil {
		return scan.Region{}, fmt.Errorf("area %q: %w", area.Name, err)
	}
	return scan.Region{Bounds: bounds, Polygon: ring}, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	region, err := scanRegion()
	if err != nil {
		return err
	}

	opts := cfg.Scan.Options()
	opts.Logger = logger.Named("scan")
	if scanDuration > 0 {
		opts.Duration = scanDuration
	}
	if scanSeed != 0 {
		opts.Generator = scan.NewSeededGenerator(scanSeed, cfg.Scan.Locality)
	}
	if scanRecord {
		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()
		opts.Recorder = db.NewStore(pool)
	}

	sess := scan.NewSession(opts)
	sink := scan.NewChannelSink()
	snap, err := sess.Start(ctx, scan.Request{Region: region, Owner: "courtctl"}, sink)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Scan %s: %d candidates, %d outside the area\n", snap.ScanID, snap.Requested, snap.Dropped)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"At", "Bearing", "Address", "Court", "Score", "Condition"})

	var summary *scan.Summary
	for ev := range sink.Events() {
		switch ev.Kind {
		case scan.EventReveal:
			p := ev.Reveal.Prospect
			fmt.Fprintf(os.Stdout, "  %5dms  %-40s %s\n", ev.Reveal.DelayMS, p.Address, p.CourtType)
			t.AppendRow(table.Row{
				fmt.Sprintf("%dms", ev.Reveal.DelayMS),
				fmt.Sprintf("%.0f°", ev.Reveal.Bearing),
				p.Address,
				p.CourtType,
				fmt.Sprintf("%.1f", p.ConditionScore),
				p.Condition,
			})
		case scan.EventComplete:
			summary = ev.Summary
		case scan.EventCancelled:
			fmt.Fprintln(os.Stdout, "Scan cancelled")
		}
	}
	if scanRecord {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		err := sess.Wait(flushCtx)
		if err == nil {
			err = sess.Flush(flushCtx)
		}
		cancel()
		if err != nil {
			logger.Warn("scan run records may be incomplete", zap.Error(err))
		}
	}
	if summary == nil {
		return ctx.Err()
	}

	t.AppendFooter(table.Row{"", "", "Revealed", summary.Revealed, "", summary.CompletedAt.Sub(summary.StartedAt).Round(time.Millisecond)})
	t.Render()
	return nil
}
