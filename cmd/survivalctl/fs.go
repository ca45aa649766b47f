package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/lowlevel-dev/survival/volume"
)

var lsCommand = &cli.Command{
	Name:      "ls",
	Usage:     "List a directory",
	ArgsUsage: "IMAGE_FILE [PATH]",
	Action: func(c *cli.Context) error {
		vol, _, err := openVolumeFromImage(c.Args().First())
		if err != nil {
			return err
		}
		path := c.Args().Get(1)
		if path == "" {
			path = "/"
		}
		entries, err := vol.OpenDir(path)
		if err != nil {
			return err
		}
		volume.SortEntries(entries)
		for _, e := range entries {
			kind := "-"
			if e.IsDir {
				kind = "d"
			}
			fmt.Printf("%s %10s  %s\n", kind, humanize.Bytes(e.Size), e.Name)
		}
		return nil
	},
}

var catCommand = &cli.Command{
	Name:      "cat",
	Usage:     "Print a file's contents to stdout",
	ArgsUsage: "IMAGE_FILE PATH",
	Action: func(c *cli.Context) error {
		vol, _, err := openVolumeFromImage(c.Args().First())
		if err != nil {
			return err
		}
		data, err := vol.ReadFile(c.Args().Get(1))
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var putCommand = &cli.Command{
	Name:      "put",
	Usage:     "Copy a host file into the image",
	ArgsUsage: "IMAGE_FILE HOST_FILE DEST_PATH",
	Action: func(c *cli.Context) error {
		vol, dev, err := openVolumeFromImage(c.Args().First())
		if err != nil {
			return err
		}
		data, err := os.ReadFile(c.Args().Get(1))
		if err != nil {
			return err
		}
		destPath := c.Args().Get(2)
		if err := vol.WriteFile(destPath, data, nil); err != nil {
			return err
		}
		return saveImageFile(c.Args().First(), dev)
	},
}

var renameCommand = &cli.Command{
	Name:      "rename",
	Usage:     "Rename a file or directory within the image",
	ArgsUsage: "IMAGE_FILE OLD_PATH NEW_PATH",
	Action: func(c *cli.Context) error {
		vol, dev, err := openVolumeFromImage(c.Args().First())
		if err != nil {
			return err
		}
		if err := vol.Rename(c.Args().Get(1), c.Args().Get(2)); err != nil {
			return err
		}
		return saveImageFile(c.Args().First(), dev)
	},
}

var rmCommand = &cli.Command{
	Name:      "rm",
	Usage:     "Remove a file or empty directory",
	ArgsUsage: "IMAGE_FILE PATH",
	Action: func(c *cli.Context) error {
		vol, dev, err := openVolumeFromImage(c.Args().First())
		if err != nil {
			return err
		}
		if err := vol.Remove(c.Args().Get(1)); err != nil {
			return err
		}
		return saveImageFile(c.Args().First(), dev)
	},
}
