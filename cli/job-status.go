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

var jobStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "status of job [job id]",
	Long:  "status of job [job id]",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("requires a job id")
		}
		return nil
	},
	Run: jobStatusRun,
}

func jobStatusRun(cmd *cobra.Command, args []string) {
	conn, err := evacrpc.Dial(evaccfg.ServerAddr+":"+evaccfg.ServerPort, evacrpc.RPCEvac, time.Duration(2*time.Second))
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	req := &evacrpc.EVJStatusRequest{JobID: args[0]}
	res := &evacrpc.EVJStatusResponse{}

	cli := rpc.NewClient(conn)
	if err := cli.Call(evacrpc.EvacJobStatus.String(), req, res); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("state: %s\n", res.State)
	fmt.Printf("total: %d\n", res.Total)
	fmt.Printf("skipped: %d\n", res.Skipped)
	fmt.Printf("complete: %d\n", res.Complete)
	fmt.Printf("failed: %d\n", res.Failed)
}

func init() {
	jobStatusCmd.Flags().StringVarP(&evaccfg.ServerAddr, "bind", "b", config.Get("evac.addr"), "will ask the orchestrator of this address")
	jobStatusCmd.Flags().StringVarP(&evaccfg.ServerPort, "port", "p", config.Get("evac.port"), "will ask the orchestrator of this port")
}
