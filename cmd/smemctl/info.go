package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <image>",
		Short: "Validate a heap image and report basic metadata",
		Long: `The info command opens a heap image read-only and displays its
protocol version, item capacity, and the partitions resolved for the
local host.

Example:
  smemctl info smem.img
  smemctl info smem.img --local-host 5 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args)
		},
	}
}

func runInfo(args []string) error {
	h, cleanup, err := openImage(args[0], true)
	if err != nil {
		return err
	}
	defer cleanup()

	regions := h.Regions()
	parts := h.Partitions()

	if jsonOut {
		return printJSON(map[string]interface{}{
			"file":       args[0],
			"protocol":   h.Protocol(),
			"item_count": h.ItemCount(),
			"size":       len(regions[0].Data),
			"partitions": parts,
		})
	}

	printInfo("\nHeap Information:\n")
	printInfo("  File: %s\n", args[0])
	printInfo("  Size: %d bytes\n", len(regions[0].Data))
	printInfo("  Protocol: %d\n", h.Protocol())
	printInfo("  Item capacity: %d\n", h.ItemCount())

	printInfo("\nPartitions:\n")
	if len(parts) == 0 {
		printInfo("  (none; legacy global heap)\n")
	}
	for _, p := range parts {
		kind := "private"
		if p.Global {
			kind = "global"
		}
		printInfo("  %d:%d  offset 0x%X  size %d  cacheline %d  (%s)\n",
			p.Host0, p.Host1, p.Offset, p.Size, p.Cacheline, kind)
	}
	return nil
}
