package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/soclabs/smemkit/smem/builder"
	"github.com/spf13/cobra"
)

var (
	buildSize      uint32
	buildProtocol  uint32
	buildItems     uint16
	buildPartSpecs []string
)

func init() {
	cmd := newBuildCmd()
	cmd.Flags().Uint32Var(&buildSize, "size", 1<<20, "Region size in bytes")
	cmd.Flags().Uint32Var(&buildProtocol, "protocol", 12, "Heap protocol version (11 or 12)")
	cmd.Flags().Uint16Var(&buildItems, "items", 0, "Item count descriptor value (0 for the default 512)")
	cmd.Flags().StringArrayVar(&buildPartSpecs, "partition", nil,
		"Partition as host0:host1:size[:cacheline], repeatable")
	rootCmd.AddCommand(cmd)
}

func newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build <image>",
		Short: "Write a freshly initialized heap image",
		Long: `The build command writes a new heap image the way the boot loader
initializes the physical window: header, partition table, and empty
partitions.

Example:
  smemctl build smem.img --size 1048576 --partition 0:1:65536
  smemctl build legacy.img --protocol 11`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(args)
		},
	}
}

func runBuild(args []string) error {
	opts := builder.Options{
		RegionSize: buildSize,
		Protocol:   buildProtocol,
		NumItems:   buildItems,
	}
	for _, spec := range buildPartSpecs {
		p, err := parsePartitionSpec(spec)
		if err != nil {
			return err
		}
		opts.Partitions = append(opts.Partitions, p)
	}

	if err := builder.WriteFile(args[0], opts); err != nil {
		return fmt.Errorf("build %s: %w", args[0], err)
	}

	printInfo("Wrote %s (%d bytes, protocol %d, %d partitions)\n",
		args[0], buildSize, buildProtocol, len(opts.Partitions))
	return nil
}

func parsePartitionSpec(spec string) (builder.PartitionSpec, error) {
	fields := strings.Split(spec, ":")
	if len(fields) != 3 && len(fields) != 4 {
		return builder.PartitionSpec{}, fmt.Errorf("bad partition %q: want host0:host1:size[:cacheline]", spec)
	}

	nums := make([]uint64, len(fields))
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 0, 32)
		if err != nil {
			return builder.PartitionSpec{}, fmt.Errorf("bad partition %q: %w", spec, err)
		}
		nums[i] = n
	}

	p := builder.PartitionSpec{
		Host0: uint16(nums[0]),
		Host1: uint16(nums[1]),
		Size:  uint32(nums[2]),
	}
	if len(nums) == 4 {
		p.Cacheline = uint32(nums[3])
	}
	return p, nil
}
