package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newAllocCmd())
}

func newAllocCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alloc <image> <host> <item> <size>",
		Short: "Allocate an item",
		Long: `The alloc command reserves space for an item in the heap an
operation for the given host routes to. Items cannot be freed; the
binding is permanent for the life of the image.

Example:
  smemctl alloc smem.img 5 100 256
  smemctl alloc smem.img none 20 64`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlloc(args)
		},
	}
}

func runAlloc(args []string) error {
	host, err := parseHost(args[1])
	if err != nil {
		return err
	}
	item, err := parseItem(args[2])
	if err != nil {
		return err
	}
	size, err := strconv.ParseUint(args[3], 0, 32)
	if err != nil {
		return fmt.Errorf("bad size %q: %w", args[3], err)
	}

	h, cleanup, err := openImage(args[0], false)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := h.Alloc(host, item, uint32(size)); err != nil {
		return err
	}

	p, err := h.Get(host, item)
	if err != nil {
		return err
	}
	printInfo("Allocated item %d: %d usable bytes\n", item, len(p))
	return nil
}
