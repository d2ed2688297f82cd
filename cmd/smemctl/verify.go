package main

import (
	"os"

	"github.com/soclabs/smemkit/smem/verify"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newVerifyCmd())
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <image>",
		Short: "Check heap structure invariants",
		Long: `The verify command checks a heap image for structural integrity:
header fields, partition table consistency, partition item lists, and the
global slot table.

Example:
  smemctl verify smem.img
  smemctl verify smem.img --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(args)
		},
	}
}

func runVerify(args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	err = verify.AllInvariants(data)

	result := map[string]interface{}{
		"file":  args[0],
		"valid": err == nil,
	}
	if err != nil {
		result["error"] = err.Error()
	}

	if jsonOut {
		return printJSON(result)
	}

	if err != nil {
		printInfo("Result: INVALID\n")
		return err
	}
	printInfo("Result: VALID\n")
	return nil
}
