package main

import (
	"github.com/spf13/cobra"
)

var lsHost string

func init() {
	cmd := newLsCmd()
	cmd.Flags().StringVar(&lsHost, "host", "none", "Peer host to list items for (number or \"none\")")
	rootCmd.AddCommand(cmd)
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <image>",
		Short: "List allocated items",
		Long: `The ls command lists the items allocated in the heap an operation
for the given host routes to.

Example:
  smemctl ls smem.img --host 5
  smemctl ls smem.img --host none --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLs(args)
		},
	}
}

func runLs(args []string) error {
	host, err := parseHost(lsHost)
	if err != nil {
		return err
	}

	h, cleanup, err := openImage(args[0], true)
	if err != nil {
		return err
	}
	defer cleanup()

	items, err := h.Items(host)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(items)
	}

	printInfo("%-8s %-10s %s\n", "ITEM", "SIZE", "KIND")
	for _, it := range items {
		kind := "uncached"
		if it.Cached {
			kind = "cached"
		}
		printInfo("%-8d %-10d %s\n", it.Item, it.Size, kind)
	}
	printInfo("\n%d item(s)\n", len(items))
	return nil
}
