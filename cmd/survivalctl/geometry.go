package main

import (
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
)

// DiskGeometry is one named media preset `format` can build an image for.
// The field set is narrower than the teacher's own DiskGeometry (no heads,
// tracks, or address-unit bit widths — every medium this workstation
// targets is already byte-addressable block storage), but the loading
// mechanism is identical: an embedded CSV unmarshalled through gocsv.
type DiskGeometry struct {
	Slug        string `csv:"slug"`
	Name        string `csv:"name"`
	TotalBytes  uint64 `csv:"total_bytes"`
	BlockSize   uint   `csv:"block_size"`
	Removable   bool   `csv:"removable"`
	Notes       string `csv:"notes"`
}

// TotalBlocks is the geometry's capacity expressed in BlockSize units.
func (g DiskGeometry) TotalBlocks() uint64 {
	return g.TotalBytes / uint64(g.BlockSize)
}

//go:embed disk-geometries.csv
var diskGeometriesRawCSV string

var diskGeometries = map[string]DiskGeometry{}

func init() {
	reader := strings.NewReader(diskGeometriesRawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row DiskGeometry) error {
		if _, exists := diskGeometries[row.Slug]; exists {
			return fmt.Errorf("duplicate definition for disk geometry %q", row.Slug)
		}
		diskGeometries[row.Slug] = row
		return nil
	})
	if err != nil && err != io.EOF {
		panic(err)
	}
}

// lookupGeometry finds a preset by slug.
func lookupGeometry(slug string) (DiskGeometry, error) {
	g, ok := diskGeometries[slug]
	if !ok {
		return DiskGeometry{}, fmt.Errorf("no predefined disk geometry named %q (see %q for the list)", slug, "survivalctl geometries")
	}
	return g, nil
}

// geometrySlugs returns every known slug, sorted, for the help text and the
// "geometries" command.
func geometrySlugs() []string {
	out := make([]string, 0, len(diskGeometries))
	for slug := range diskGeometries {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}
