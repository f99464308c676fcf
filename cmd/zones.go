package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tidbyt.dev/gtfsgraph/storage"
	"tidbyt.dev/gtfsgraph/zone"
)

var zonesCmd = &cobra.Command{
	Use:   "zones",
	Short: "Reconciles feed stops with zones and prints the mapping",
	Args:  cobra.NoArgs,
	RunE:  zones,
}

var zonesImportCmd = &cobra.Command{
	Use:   "import <file.geojson>",
	Short: "Replaces the zone inventory with zones from a GeoJSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  zonesImport,
}

func init() {
	zonesCmd.AddCommand(zonesImportCmd)
	rootCmd.AddCommand(zonesCmd)
}

func zones(cmd *cobra.Command, args []string) error {
	result, err := runBuild(cmd.Context())
	if err != nil {
		return err
	}

	for _, a := range result.Assignments() {
		fmt.Printf("%s -> %s (%d) %.1fm\n", a.StopID, a.Zone, a.ZoneID, a.Distance)
	}

	return nil
}

func zonesImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	loaded, err := storage.LoadGeoJSONZones(data)
	if err != nil {
		return err
	}

	// Hands out ids to zones lacking one
	zoning := zone.NewZoning()
	for _, z := range loaded {
		if z.ID != 0 {
			zoning.Add(z)
		}
	}
	for _, z := range loaded {
		if z.ID == 0 {
			zoning.Add(z)
		}
	}

	s, err := openStorage()
	if err != nil {
		return fmt.Errorf("opening zone inventory: %w", err)
	}
	defer s.Close()

	err = s.WriteZones(zoning.All())
	if err != nil {
		return err
	}

	fmt.Printf("imported %d zones\n", zoning.Len())
	return nil
}
