package cli

import (
	"github.com/spf13/cobra"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "evacuation job control commands",
	Long:  "evacuation job control commands",
	Run:   jobRun,
}

func jobRun(cmd *cobra.Command, args []string) {
	cmd.Help()
}

func init() {
	jobCmd.AddCommand(jobStartCmd)
	jobCmd.AddCommand(jobStatusCmd)
	jobCmd.AddCommand(jobAbortCmd)
	jobCmd.AddCommand(jobObjectsCmd)
}
