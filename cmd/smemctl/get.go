package main

import (
	"encoding/hex"
	"os"

	"github.com/spf13/cobra"
)

var getRaw bool

func init() {
	cmd := newGetCmd()
	cmd.Flags().BoolVar(&getRaw, "raw", false, "Write raw payload bytes to stdout")
	rootCmd.AddCommand(cmd)
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <image> <host> <item>",
		Short: "Print an item's payload",
		Long: `The get command looks an item up and prints its payload as a hex
dump, or raw with --raw for piping into other tools.

Example:
  smemctl get smem.img 5 100
  smemctl get smem.img none 20 --raw > payload.bin`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(args)
		},
	}
}

func runGet(args []string) error {
	host, err := parseHost(args[1])
	if err != nil {
		return err
	}
	item, err := parseItem(args[2])
	if err != nil {
		return err
	}

	h, cleanup, err := openImage(args[0], true)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := h.Get(host, item)
	if err != nil {
		return err
	}

	if getRaw {
		_, err = os.Stdout.Write(p)
		return err
	}

	printInfo("Item %d (%d bytes):\n", item, len(p))
	printInfo("%s", hex.Dump(p))
	return nil
}
