// Command survivalctl is the host-side development and testing entry point
// that stands in for the UEFI firmware boot path spec.md's own components
// run under. It operates on plain image files via platform/simdevice
// instead of real block I/O, and exposes one subcommand per top-level
// operation a user of the real firmware could reach from the keyboard.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Usage: "Inspect, format, and clone survival-workstation disk images",
		Commands: []*cli.Command{
			formatCommand,
			geometriesCommand,
			lsCommand,
			catCommand,
			putCommand,
			renameCommand,
			rmCommand,
			cloneCommand,
			decodePNGCommand,
			decodeJPEGCommand,
			fsckCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}
