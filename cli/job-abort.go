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

var jobAbortCmd = &cobra.Command{
	Use:   "abort",
	Short: "abort job [job id]",
	Long:  "abort job [job id]",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("requires a job id")
		}
		return nil
	},
	Run: jobAbortRun,
}

func jobAbortRun(cmd *cobra.Command, args []string) {
	conn, err := evacrpc.Dial(evaccfg.ServerAddr+":"+evaccfg.ServerPort, evacrpc.RPCEvac, time.Duration(2*time.Second))
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	req := &evacrpc.EVJAbortRequest{JobID: args[0]}
	res := &evacrpc.EVJAbortResponse{}

	cli := rpc.NewClient(conn)
	if err := cli.Call(evacrpc.EvacJobAbort.String(), req, res); err != nil {
		log.Fatal(err)
	}
}

func init() {
	jobAbortCmd.Flags().StringVarP(&evaccfg.ServerAddr, "bind", "b", config.Get("evac.addr"), "will ask the orchestrator of this address")
	jobAbortCmd.Flags().StringVarP(&evaccfg.ServerPort, "port", "p", config.Get("evac.port"), "will ask the orchestrator of this port")
}
