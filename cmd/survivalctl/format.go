package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/lowlevel-dev/survival/exfat"
	"github.com/lowlevel-dev/survival/fat32"
	"github.com/lowlevel-dev/survival/gpt"
	"github.com/lowlevel-dev/survival/platform"
	"github.com/lowlevel-dev/survival/platform/simdevice"
)

var formatCommand = &cli.Command{
	Name:      "format",
	Usage:     "Create a fresh disk image at a named geometry",
	ArgsUsage: "IMAGE_FILE",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "geometry", Required: true, Usage: "predefined disk geometry slug, see the \"geometries\" command"},
		&cli.StringFlag{Name: "fs", Value: "fat32", Usage: "filesystem to write: fat32 or exfat"},
		&cli.StringFlag{Name: "label", Usage: "volume label"},
		&cli.BoolFlag{Name: "no-gpt", Usage: "skip the protective MBR/GPT wrapper and format the whole image directly"},
	},
	Action: runFormat,
}

func runFormat(c *cli.Context) error {
	imagePath := c.Args().First()
	if imagePath == "" {
		return fmt.Errorf("missing IMAGE_FILE argument")
	}
	dev, err := formatImage(c.String("geometry"), c.String("fs"), c.String("label"), c.Bool("no-gpt"))
	if err != nil {
		return err
	}
	return saveImageFile(imagePath, dev)
}

// formatImage builds a fresh in-memory image at the named geometry,
// wrapping it in a protective MBR/GPT unless skipped or the geometry's
// block size doesn't match GPT's fixed 512-byte sector assumption. It's
// split out from runFormat so it can be exercised directly by tests without
// constructing a cli.Context.
func formatImage(geometrySlug, fsKind, label string, noGPT bool) (*simdevice.Device, error) {
	geo, err := lookupGeometry(geometrySlug)
	if err != nil {
		return nil, err
	}

	dev := simdevice.New(geo.BlockSize, geo.TotalBlocks())
	wantGPT := !noGPT && geo.BlockSize == gpt.SectorSize
	fsDev := platform.BlockDevice(dev)

	if wantGPT {
		diskGUID, err := randomGUID()
		if err != nil {
			return nil, err
		}
		espGUID, err := randomGUID()
		if err != nil {
			return nil, err
		}
		layout, err := gpt.BuildLayout(dev.TotalBlocks(), diskGUID, espGUID, "ESP")
		if err != nil {
			return nil, err
		}
		if err := writeGPTLayout(dev, layout); err != nil {
			return nil, err
		}
		fsDev = espDevice(dev)
	}

	switch fsKind {
	case "fat32":
		if err := fat32.Format(fsDev, fat32.FormatOptions{Label: label}); err != nil {
			return nil, err
		}
	case "exfat":
		if err := exfat.Format(fsDev, exfat.FormatOptions{Label: label}); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown --fs %q (want fat32 or exfat)", fsKind)
	}

	return dev, nil
}

var geometriesCommand = &cli.Command{
	Name:  "geometries",
	Usage: "List the predefined disk geometries format accepts",
	Action: func(c *cli.Context) error {
		for _, slug := range geometrySlugs() {
			g := diskGeometries[slug]
			fmt.Printf("%-12s %-28s %12d bytes  block=%d  removable=%v\n", g.Slug, g.Name, g.TotalBytes, g.BlockSize, g.Removable)
		}
		return nil
	},
}
