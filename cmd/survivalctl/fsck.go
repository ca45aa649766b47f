package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/lowlevel-dev/survival/volume"
)

var fsckCommand = &cli.Command{
	Name:      "fsck",
	Usage:     "Check a volume's structural invariants",
	ArgsUsage: "IMAGE_FILE",
	Action: func(c *cli.Context) error {
		vol, _, err := openVolumeFromImage(c.Args().First())
		if err != nil {
			return err
		}
		checker, ok := vol.(volume.Checker)
		if !ok {
			fmt.Println("volume does not support invariant checking")
			return nil
		}
		if err := volume.Verify(checker); err != nil {
			fmt.Println(err)
			return cli.Exit("fsck found violations", 1)
		}
		fmt.Println("OK")
		return nil
	},
}
