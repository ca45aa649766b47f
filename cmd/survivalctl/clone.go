package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/lowlevel-dev/survival/clone"
)

var cloneCommand = &cli.Command{
	Name:      "clone",
	Usage:     "Mirror a boot volume onto a target volume",
	ArgsUsage: "BOOT_IMAGE TARGET_IMAGE",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "yes", Usage: "skip the confirmation prompt (non-interactive)"},
	},
	Action: func(c *cli.Context) error {
		bootVol, _, err := openVolumeFromImage(c.Args().First())
		if err != nil {
			return err
		}
		targetVol, targetDev, err := openVolumeFromImage(c.Args().Get(1))
		if err != nil {
			return err
		}

		e := clone.NewEngine(bootVol, targetVol)
		if !c.Bool("yes") {
			fmt.Println(clone.WarningText)
			return cli.Exit("refusing to clone without --yes", 1)
		}
		e.Confirm('Y')

		err = e.Run("/", "/", func(status string) { fmt.Println(status) })
		if err != nil {
			return err
		}
		return saveImageFile(c.Args().Get(1), targetDev)
	},
}
