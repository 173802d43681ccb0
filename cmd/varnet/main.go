package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is set at build time.
var version = "dev"

func main() {
	var (
		configPath string
		inputPath  string
	)

	rootCmd := &cobra.Command{
		Use:           "varnet",
		Short:         "Inspect the variable network of a design document",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")
	rootCmd.PersistentFlags().StringVar(&inputPath, "input", "", "Document snapshot (JSON or YAML), overrides document.path")

	var censusJSON bool
	censusCmd := &cobra.Command{
		Use:   "census",
		Short: "Count every variable by type",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCensus(cmd.Context(), configPath, inputPath, censusJSON)
		},
	}
	censusCmd.Flags().BoolVar(&censusJSON, "json", false, "Output as JSON")

	var (
		scanTypes   []string
		scanFormat  string
		scanOutput  string
		scanMetrics bool
		scanJSON    bool
	)
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan variables of the selected types and report their usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), configPath, inputPath, scanOptions{
				types:       scanTypes,
				format:      scanFormat,
				output:      scanOutput,
				showMetrics: scanMetrics,
				jsonMetrics: scanJSON,
			})
		},
	}
	scanCmd.Flags().StringSliceVar(&scanTypes, "types", nil, "Variable types to scan (default from config)")
	scanCmd.Flags().StringVar(&scanFormat, "format", "json", "Output format: json, graph, dot, mermaid, stats, summary")
	scanCmd.Flags().StringVar(&scanOutput, "output", "", "Output file (default stdout)")
	scanCmd.Flags().BoolVar(&scanMetrics, "metrics", false, "Print a run report to stderr")
	scanCmd.Flags().BoolVar(&scanJSON, "json-metrics", false, "Print the run report as JSON")

	var (
		nodesVariable string
		nodesTypes    []string
	)
	nodesCmd := &cobra.Command{
		Use:   "nodes",
		Short: "List the nodes that bind a variable",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNodes(cmd.Context(), configPath, inputPath, nodesVariable, nodesTypes)
		},
	}
	nodesCmd.Flags().StringVar(&nodesVariable, "variable", "", "Variable id or name")
	nodesCmd.Flags().StringSliceVar(&nodesTypes, "types", nil, "Variable types to scan (default from config)")
	_ = nodesCmd.MarkFlagRequired("variable")

	var (
		browseTypes []string
		browseMarks string
	)
	browseCmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse scanned variables interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd.Context(), configPath, inputPath, browseTypes, browseMarks)
		},
	}
	browseCmd.Flags().StringSliceVar(&browseTypes, "types", nil, "Variable types to scan (default from config)")
	browseCmd.Flags().StringVar(&browseMarks, "marks", "", "Write keep/deprecate marks to this JSON file")

	var (
		checkTypes []string
		checkJSON  bool
	)
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Scan and fail when the network breaks the configured limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd.OutOrStdout(), configPath, inputPath, checkTypes, checkJSON)
		},
	}
	checkCmd.Flags().StringSliceVar(&checkTypes, "types", nil, "Variable types to scan (default from config)")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output as JSON")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scan API with health checks and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, inputPath)
		},
	}

	var publishTypes []string
	publishCmd := &cobra.Command{
		Use:   "publish",
		Short: "Scan and export the report to the configured graph and vector stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context(), configPath, inputPath, publishTypes)
		},
	}
	publishCmd.Flags().StringSliceVar(&publishTypes, "types", nil, "Variable types to scan (default from config)")

	var (
		submitTypes   []string
		submitPublish bool
		submitWait    bool
	)
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a scan workflow to Temporal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd.Context(), configPath, inputPath, submitTypes, submitPublish, submitWait)
		},
	}
	submitCmd.Flags().StringSliceVar(&submitTypes, "types", nil, "Variable types to scan (default from config)")
	submitCmd.Flags().BoolVar(&submitPublish, "publish", false, "Publish the report from the worker")
	submitCmd.Flags().BoolVar(&submitWait, "wait", true, "Wait for the workflow result")

	var (
		nearestHex  string
		nearestTopK int
	)
	nearestCmd := &cobra.Command{
		Use:   "nearest",
		Short: "Find published colour variables closest to a hex colour",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNearest(cmd.Context(), configPath, nearestHex, nearestTopK)
		},
	}
	nearestCmd.Flags().StringVar(&nearestHex, "hex", "", "Colour as #RGB, #RRGGBB or #RRGGBBAA")
	nearestCmd.Flags().IntVar(&nearestTopK, "top", 5, "Number of matches")
	_ = nearestCmd.MarkFlagRequired("hex")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("varnet", version)
		},
	}

	rootCmd.AddCommand(censusCmd, scanCmd, nodesCmd, browseCmd, checkCmd, serveCmd, publishCmd, submitCmd, nearestCmd,
		newSnapshotCmd(&configPath, &inputPath), versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
