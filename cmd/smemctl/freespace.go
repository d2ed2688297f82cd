package main

import (
	"github.com/spf13/cobra"
)

var freeHost string

func init() {
	cmd := newFreeSpaceCmd()
	cmd.Flags().StringVar(&freeHost, "host", "none", "Peer host to report free space for (number or \"none\")")
	rootCmd.AddCommand(cmd)
}

func newFreeSpaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "free-space <image>",
		Short: "Report bytes available for allocation",
		Long: `The free-space command reports the bytes left in the heap an
operation for the given host routes to.

Example:
  smemctl free-space smem.img --host 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFreeSpace(args)
		},
	}
}

func runFreeSpace(args []string) error {
	host, err := parseHost(freeHost)
	if err != nil {
		return err
	}

	h, cleanup, err := openImage(args[0], true)
	if err != nil {
		return err
	}
	defer cleanup()

	free, err := h.FreeSpace(host)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(map[string]interface{}{"host": freeHost, "free": free})
	}
	printInfo("%d bytes free\n", free)
	return nil
}
