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

var jobStartCmd = &cobra.Command{
	Use:   "start",
	Short: "start job [source shark]",
	Long:  "start job [source shark]",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 {
			return fmt.Errorf("requires a source shark")
		}
		if len(args) > 1 {
			return fmt.Errorf("requires only one source shark")
		}
		return nil
	},
	Run: jobStartRun,
}

var (
	jobStartID   string
	jobStartMode string
)

func jobStartRun(cmd *cobra.Command, args []string) {
	source := args[0]

	conn, err := evacrpc.Dial(evaccfg.ServerAddr+":"+evaccfg.ServerPort, evacrpc.RPCEvac, time.Duration(2*time.Second))
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	req := &evacrpc.EVJStartRequest{
		JobID:       jobStartID,
		SourceShark: source,
		Mode:        jobStartMode,
	}
	res := &evacrpc.EVJStartResponse{}

	cli := rpc.NewClient(conn)
	if err := cli.Call(evacrpc.EvacJobStart.String(), req, res); err != nil {
		log.Fatal(err)
	}

	fmt.Println(res.JobID)
}

func init() {
	jobStartCmd.Flags().StringVarP(&evaccfg.ServerAddr, "bind", "b", config.Get("evac.addr"), "will ask the orchestrator of this address")
	jobStartCmd.Flags().StringVarP(&evaccfg.ServerPort, "port", "p", config.Get("evac.port"), "will ask the orchestrator of this port")
	jobStartCmd.Flags().StringVarP(&jobStartID, "job-id", "j", "", "resume the job with this id")
	jobStartCmd.Flags().StringVarP(&jobStartMode, "mode", "m", "", "object source mode: live or resume")
}
