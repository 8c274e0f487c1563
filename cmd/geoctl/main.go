package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/ride-geo-service/internal/domain"
	"github.com/couchcryptid/ride-geo-service/internal/fare"
	"github.com/couchcryptid/ride-geo-service/internal/gazetteer"
	"github.com/couchcryptid/ride-geo-service/internal/linkparse"
)

var rootCmd = &cobra.Command{
	Use:   "geoctl",
	Short: "Offline helpers for the ride geocoding service",
	Long:  `Inspect map links, the built-in gazetteer, and the fare schedule without hitting any provider.`,
}

var parseLinkCmd = &cobra.Command{
	Use:   "parse-link <url>",
	Short: "Extract a location intent from a shared map link",
	Args:  cobra.ExactArgs(1),
	RunE:  runParseLink,
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <text>",
	Short: "Query the built-in gazetteer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLookup,
}

var fareCmd = &cobra.Command{
	Use:   "fare <origin-lat,lon> <dest-lat,lon>",
	Short: "Compute a fare quote between two coordinates",
	Args:  cobra.ExactArgs(2),
	RunE:  runFare,
}

func init() {
	rootCmd.AddCommand(parseLinkCmd, lookupCmd, fareCmd)
}

func runParseLink(_ *cobra.Command, args []string) error {
	intent := linkparse.Parse(args[0])
	if intent.Empty() {
		return fmt.Errorf("no location intent found in %q", args[0])
	}
	return printJSON(intent)
}

func runLookup(_ *cobra.Command, args []string) error {
	text := args[0]
	for _, a := range args[1:] {
		text += " " + a
	}
	loc, ok := gazetteer.Default().Lookup(text)
	if !ok {
		return fmt.Errorf("no gazetteer entry matches %q", text)
	}
	return printJSON(loc)
}

func runFare(_ *cobra.Command, args []string) error {
	origin, ok := linkparse.CoordinateText(args[0])
	if !ok {
		return fmt.Errorf("invalid origin %q, expected lat,lon", args[0])
	}
	destination, ok := linkparse.CoordinateText(args[1])
	if !ok {
		return fmt.Errorf("invalid destination %q, expected lat,lon", args[1])
	}

	schedule := fare.DefaultSchedule()
	distance := domain.HaversineKm(origin, destination)
	return printJSON(domain.FareQuote{
		Origin:      origin,
		Destination: destination,
		DistanceKm:  distance,
		Amount:      schedule.Amount(distance),
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
