// Command resolvr resolves a list of hostnames against every configured
// nameserver independently, so disagreeing answers across nameservers
// all surface in the output instead of being hidden by resolver-side
// fallback.
//
// Hosts are read from a file or from standard input, one per line. The
// deduplicated results are written as JSON or CSV, to standard output
// or to a file.
//
// Usage:
//
//	cat hosts.txt | resolvr
//	resolvr -i hosts.txt -o records -f csv
//	resolvr -i hosts.txt -r resolvers.txt -c 200 -t 10
//
// The default nameserver set is Google and Cloudflare public DNS; -r
// replaces it with a file of IP addresses, one per line.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lc/resolvr/internal/buildinfo"
	"github.com/lc/resolvr/internal/config"
	"github.com/lc/resolvr/internal/dnsclient"
	"github.com/lc/resolvr/internal/filesys"
	"github.com/lc/resolvr/internal/input"
	"github.com/lc/resolvr/internal/log"
	"github.com/lc/resolvr/internal/pipeline"
	"github.com/lc/resolvr/internal/records"
	"github.com/lc/resolvr/internal/results"
)

func main() {
	var (
		inputFile     string
		resolversFile string
		outputPath    string
		outputFormat  string
		concurrency   int
		timeoutSecs   int
		attempts      int
		verbose       bool
	)

	root := &cobra.Command{
		Use:   "resolvr",
		Short: "Resolve hostnames against every configured nameserver",
		Long: `Resolvr resolves a list of hostnames against a set of DNS nameservers,
querying every nameserver independently per host so that inconsistent
answers across nameservers are all captured. Results are deduplicated
and written as JSON or CSV.`,
		Example:       "cat hosts.txt | resolvr -f csv -o records",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if verbose {
				log.SetLevel(zap.DebugLevel)
			}

			cfg, err := config.New().Load()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if cmd.Flags().Changed("timeout") {
				cfg.Resolve.Timeout = time.Duration(timeoutSecs) * time.Second
			}
			if cmd.Flags().Changed("attempts") {
				cfg.Resolve.Attempts = attempts
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Resolve.HostConcurrency = concurrency
			}
			if cmd.Flags().Changed("output-format") {
				cfg.Output.Format = outputFormat
			}
			if cmd.Flags().Changed("output") {
				cfg.Output.Path = outputPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return run(cfg, inputFile, resolversFile)
		},
	}

	root.Flags().StringVarP(&inputFile, "input-file", "i", "", "file of hostnames, one per line (default: stdin)")
	root.Flags().StringVarP(&resolversFile, "resolvers", "r", "", "file of nameserver IPs replacing the built-in set")
	root.Flags().StringVarP(&outputPath, "output", "o", "", "output file path; the format is appended as extension (default: stdout)")
	root.Flags().StringVarP(&outputFormat, "output-format", "f", config.DefaultFormat, "output format: json or csv")
	root.Flags().IntVarP(&concurrency, "concurrency", "c", config.DefaultHostConcurrency, "max hosts resolved concurrently")
	root.Flags().IntVarP(&timeoutSecs, "timeout", "t", int(config.DefaultTimeout/time.Second), "per-query timeout in seconds")
	root.Flags().IntVarP(&attempts, "attempts", "a", config.DefaultAttempts, "tries per query")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("version: %s\n", buildinfo.Version)
			fmt.Printf("commit: %s\n", buildinfo.Commit)
		},
	}
	root.AddCommand(versionCmd)

	if err := root.Execute(); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, inputFile, resolversFile string) error {
	fs := filesys.OS()

	hosts, err := input.Hosts(fs, inputFile, os.Stdin)
	if err != nil {
		return err
	}

	nameservers := dnsclient.DefaultNameservers
	if resolversFile != "" {
		nameservers, err = input.Nameservers(fs, resolversFile)
		if err != nil {
			return err
		}
	}

	client := dnsclient.New(cfg.Resolve.Timeout,
		dnsclient.WithAttempts(cfg.Resolve.Attempts),
		dnsclient.WithCache(cfg.Resolve.CacheSize),
	)

	store, err := pipeline.Resolve(context.Background(), client, hosts, nameservers, cfg.Resolve.HostConcurrency)
	if err != nil {
		return err
	}

	format, err := results.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	out, err := store.Serialize(format)
	if err != nil {
		return err
	}

	if cfg.Output.Path == "" {
		fmt.Println(string(out))
		return nil
	}

	dst := fmt.Sprintf("%s.%s", cfg.Output.Path, format)
	if err := filesys.AtomicWrite(fs, dst, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}

	summarize(store, dst)
	return nil
}

// summarize prints the end-of-run status line and a per-kind breakdown
// of the stored records.
func summarize(store *results.Store, dst string) {
	counts := store.CountsByKind()
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Kind", "Count"})
	table.SetHeaderColor(
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
	)
	table.SetBorder(false)
	for _, k := range kinds {
		table.Append([]string{k, fmt.Sprintf("%d", counts[records.Kind(k)])})
	}

	color.New(color.FgGreen, color.Bold).Printf("✓ Done! ")
	color.New(color.FgHiWhite).Printf("%d records written to %s\n", store.Count(), dst)
	table.Render()
}
