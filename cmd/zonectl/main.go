package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"zonewatch/internal/model"
	"zonewatch/internal/zone"
)

// zonectl checks a zones file and resolves points against it:
//
//	zonectl -zones data/zones.json 0.5,0.5 0.05,0.05
func main() {
	zonesFile := flag.String("zones", "data/zones.json", "Zones file")
	format := flag.Bool("fmt", false, "Rewrite the zones file in canonical form")
	flag.Parse()

	registry := zone.NewRegistry()
	if err := registry.LoadFile(*zonesFile); err != nil {
		log.Fatalf("❌ %v", err)
	}

	fmt.Printf("✅ %s: %d zone(s)\n", *zonesFile, registry.Len())
	for i, z := range registry.Zones() {
		fmt.Printf("   %d. %s (%d points)\n", i+1, z.Name, len(z.Points))
	}

	if *format {
		if err := registry.SaveFile(*zonesFile); err != nil {
			log.Fatalf("Failed to rewrite zones file: %v", err)
		}
		fmt.Printf("📝 Rewrote %s\n", *zonesFile)
	}

	failed := false
	for _, arg := range flag.Args() {
		p, err := parsePoint(arg)
		if err != nil {
			fmt.Printf("⚠️  %s: %v\n", arg, err)
			failed = true
			continue
		}
		if name := registry.ZoneForPoint(p); name != nil {
			fmt.Printf("   (%g, %g) -> %s\n", p.X, p.Y, *name)
		} else {
			fmt.Printf("   (%g, %g) -> no zone\n", p.X, p.Y)
		}
	}
	if failed {
		os.Exit(1)
	}
}

// parsePoint reads "x,y" in normalized coordinates.
func parsePoint(s string) (model.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return model.Point{}, fmt.Errorf("expected x,y")
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return model.Point{}, fmt.Errorf("bad x: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return model.Point{}, fmt.Errorf("bad y: %w", err)
	}
	return model.Point{X: x, Y: y}, nil
}
