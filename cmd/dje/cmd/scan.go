package cmd

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/balusarakesh/dje-license-search/internal/app"
	"github.com/balusarakesh/dje-license-search/internal/domain/index"
)

var (
	scanMinScore   float64
	scanNoNegative bool
	scanStrict     bool
	scanJSON       bool
	scanTexts      bool
	scanJobs       int
	scanWatch      bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <path>...",
	Short: "Scan files or directories for license matches",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().Float64Var(&scanMinScore, "min-score", 100, "minimum match score (0-100)")
	scanCmd.Flags().BoolVar(&scanNoNegative, "no-negative", false, "disable negative-rule suppression")
	scanCmd.Flags().BoolVar(&scanStrict, "strict", false, "strictly contiguous alignment (enables the starter-phrase prefilter)")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "JSON output")
	scanCmd.Flags().BoolVar(&scanTexts, "texts", false, "print aligned matched texts")
	scanCmd.Flags().IntVar(&scanJobs, "jobs", 0, "concurrent scan workers (0 = NumCPU)")
	scanCmd.Flags().BoolVar(&scanWatch, "watch", false, "re-scan when the catalog changes")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanMinScore < 0 || scanMinScore > 100 {
		return fmt.Errorf("min-score must be between 0 and 100")
	}
	cfg, err := serviceConfig()
	if err != nil {
		return err
	}

	locations, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(locations) == 0 {
		return fmt.Errorf("no files to scan")
	}

	opts := index.DefaultOptions()
	opts.MinScore = scanMinScore
	opts.CheckNegative = !scanNoNegative
	if scanStrict {
		opts.MaxTokenDist = 0
	}

	svc := app.NewService(cfg)
	defer svc.Close()

	if err := scanOnce(svc, locations, opts); err != nil {
		return err
	}
	if !scanWatch {
		return nil
	}

	rescan := make(chan struct{}, 1)
	if err := svc.Watch(func() {
		select {
		case rescan <- struct{}{}:
		default:
		}
	}); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	for {
		select {
		case <-rescan:
			fmt.Println("--- catalog changed, re-scanning ---")
			if err := scanOnce(svc, locations, opts); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		case <-stop:
			return nil
		}
	}
}

func scanOnce(svc *app.Service, locations []string, opts index.Options) error {
	results, err := svc.ScanFiles(locations, opts, scanJobs)
	if err != nil {
		return err
	}
	if scanJSON {
		return printJSON(results)
	}
	return printResults(results)
}

// collectFiles expands directory arguments into the regular files beneath
// them; plain file arguments pass through.
func collectFiles(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && d.Type().IsRegular() {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func printResults(results []app.FileResult) error {
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", res.Location, res.Err)
			continue
		}
		if len(res.Matches) == 0 {
			continue
		}
		fmt.Println(res.Location)
		for _, m := range res.Matches {
			fmt.Printf("  %-24s %6.2f  lines %d-%d  rule %s\n",
				licenseList(m), m.Score, m.Lines[0], m.Lines[1], m.Rule.Identifier())
			if scanTexts {
				if err := printTexts(m, res.Location); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func licenseList(m index.Match) string {
	out := ""
	for i, key := range m.Rule.Licenses {
		if i > 0 {
			if m.Rule.LicenseChoice {
				out += " OR "
			} else {
				out += " AND "
			}
		}
		out += key
	}
	return out
}

func printTexts(m index.Match, location string) error {
	data, err := os.ReadFile(location)
	if err != nil {
		return err
	}
	texts, err := app.MatchTexts(m, string(data))
	if err != nil {
		return err
	}
	fmt.Printf("    matched text:\n%s\n", indent(texts.Query, "      "))
	fmt.Printf("    rule text:\n%s\n", indent(texts.Rule, "      "))
	return nil
}

func indent(s, prefix string) string {
	out := prefix
	for _, r := range s {
		out += string(r)
		if r == '\n' {
			out += prefix
		}
	}
	return out
}

type matchJSON struct {
	Licenses      []string `json:"licenses"`
	LicenseChoice bool     `json:"license_choice,omitempty"`
	Score         float64  `json:"score"`
	Rule          string   `json:"rule"`
	StartLine     int32    `json:"start_line"`
	EndLine       int32    `json:"end_line"`
	QueryStart    int      `json:"query_start"`
	QueryEnd      int      `json:"query_end"`
}

type fileJSON struct {
	Location string      `json:"location"`
	Error    string      `json:"error,omitempty"`
	Matches  []matchJSON `json:"matches"`
}

func printJSON(results []app.FileResult) error {
	out := make([]fileJSON, 0, len(results))
	for _, res := range results {
		fj := fileJSON{Location: res.Location, Matches: []matchJSON{}}
		if res.Err != nil {
			fj.Error = res.Err.Error()
		}
		for _, m := range res.Matches {
			fj.Matches = append(fj.Matches, matchJSON{
				Licenses:      m.Rule.Licenses,
				LicenseChoice: m.Rule.LicenseChoice,
				Score:         m.Score,
				Rule:          m.Rule.Identifier(),
				StartLine:     m.Lines[0],
				EndLine:       m.Lines[1],
				QueryStart:    m.QSpan.Start(),
				QueryEnd:      m.QSpan.End(),
			})
		}
		out = append(out, fj)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
