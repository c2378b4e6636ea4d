package cli

import (
	"fmt"
	"log"
	"net/rpc"
	"time"

	"github.com/chanyoung/evac/pkg/evacrpc"
	"github.com/chanyoung/evac/pkg/util/config"
	"github.com/spf13/cobra"
)

var jobObjectsCmd = &cobra.Command{
	Use:   "objects",
	Short: "list objects of job [job id]",
	Long:  "list objects of job [job id]",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("requires a job id")
		}
		return nil
	},
	Run: jobObjectsRun,
}

var jobObjectsNonTerminal bool

func jobObjectsRun(cmd *cobra.Command, args []string) {
	conn, err := evacrpc.Dial(evaccfg.ServerAddr+":"+evaccfg.ServerPort, evacrpc.RPCEvac, time.Duration(2*time.Second))
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	req := &evacrpc.EVJListObjectsRequest{
		JobID:           args[0],
		NonTerminalOnly: jobObjectsNonTerminal,
	}
	res := &evacrpc.EVJListObjectsResponse{}

	cli := rpc.NewClient(conn)
	if err := cli.Call(evacrpc.EvacJobListObjects.String(), req, res); err != nil {
		log.Fatal(err)
	}

	for _, o := range res.Objects {
		reconcile := ""
		if o.NeedsReconcile {
			reconcile = " reconcile"
		}
		fmt.Printf("%s\t%d\t%s\t%s%s\n", o.Key, o.Size, o.Status, o.AssignedShark, reconcile)
	}
}

func init() {
	jobObjectsCmd.Flags().StringVarP(&evaccfg.ServerAddr, "bind", "b", config.Get("evac.addr"), "will ask the orchestrator of this address")
	jobObjectsCmd.Flags().StringVarP(&evaccfg.ServerPort, "port", "p", config.Get("evac.port"), "will ask the orchestrator of this port")
	jobObjectsCmd.Flags().BoolVarP(&jobObjectsNonTerminal, "non-terminal", "n", false, "list only objects not yet finished")
}
