package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"tidbyt.dev/gtfsgraph/zone"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Builds the service graph and prints a summary",
	Args:  cobra.NoArgs,
	RunE:  build,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func build(cmd *cobra.Command, args []string) error {
	result, err := runBuild(cmd.Context())
	if err != nil {
		return err
	}

	s := result.Summary
	fmt.Printf("service nodes: %d\n", s.Nodes)
	fmt.Printf("legs:          %d\n", s.Legs)
	fmt.Printf("segments:      %d\n", s.Segments)
	fmt.Printf("lines:         %d\n", s.Lines)
	fmt.Printf("trips:         %d\n", s.Trips)
	fmt.Printf("zones:         %d (%d new)\n", result.Zoning.Len(), len(result.Zoning.Created()))

	outcomes := []zone.Outcome{}
	for outcome := range s.Zones {
		outcomes = append(outcomes, outcome)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i] < outcomes[j] })
	for _, outcome := range outcomes {
		fmt.Printf("  stops %s: %d\n", outcome, s.Zones[outcome])
	}
	if s.SkippedStops > 0 {
		fmt.Printf("  stops skipped: %d\n", s.SkippedStops)
	}

	reasons := []string{}
	for reason := range s.SkippedStopTimes {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Printf("stop times skipped (%s): %d\n", reason, s.SkippedStopTimes[reason])
	}

	return nil
}
