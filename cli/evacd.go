package cli

import (
	"log"
	"os"

	"github.com/chanyoung/evac/app/evac"
	"github.com/chanyoung/evac/pkg/util/config"
	"github.com/spf13/cobra"
)

var (
	evaccfg config.Evac
)

var evacdCmd = &cobra.Command{
	Use:   "evacd",
	Short: "run the evacuation orchestrator",
	Long:  "run the evacuation orchestrator",
	Run:   evacdRun,
}

func evacdRun(cmd *cobra.Command, args []string) {
	if err := os.Chdir(evaccfg.WorkDir); err != nil {
		log.Fatal(err)
	}

	if err := evac.Bootstrap(evaccfg); err != nil {
		log.Fatal(err)
	}
}

func init() {
	evacdCmd.Flags().StringVarP(&evaccfg.ServerAddr, "bind", "b", config.Get("evac.addr"), "address to which the orchestrator will bind")
	evacdCmd.Flags().StringVarP(&evaccfg.ServerPort, "port", "p", config.Get("evac.port"), "port on which the orchestrator will listen")

	evacdCmd.Flags().StringVarP(&evaccfg.WorkDir, "work-dir", "", config.Get("evac.work_dir"), "working directory")

	evacdCmd.Flags().StringVarP(&evaccfg.MySQLUser, "mysql-user", "", config.Get("evac.mysql_user"), "user id to mysql server")
	evacdCmd.Flags().StringVarP(&evaccfg.MySQLPassword, "mysql-password", "", config.Get("evac.mysql_password"), "password of mysql user")
	evacdCmd.Flags().StringVarP(&evaccfg.MySQLHost, "mysql-host", "", config.Get("evac.mysql_host"), "host address of mysql server")
	evacdCmd.Flags().StringVarP(&evaccfg.MySQLPort, "mysql-port", "", config.Get("evac.mysql_port"), "port number of mysql server")
	evacdCmd.Flags().StringVarP(&evaccfg.MySQLDatabase, "mysql-database", "", config.Get("evac.mysql_database"), "mysql schema name")

	evacdCmd.Flags().StringVarP(&evaccfg.SpotterAddr, "spotter-addr", "", config.Get("evac.spotter_addr"), "end point of the object discovery crawler")
	evacdCmd.Flags().StringVarP(&evaccfg.TelemetryAddr, "telemetry-addr", "", config.Get("evac.telemetry_addr"), "end point of the capacity telemetry service")
	evacdCmd.Flags().StringVarP(&evaccfg.MetaAddr, "meta-addr", "", config.Get("evac.meta_addr"), "end point of the object metadata store")
	evacdCmd.Flags().StringVarP(&evaccfg.AgentPort, "agent-port", "", config.Get("evac.agent_port"), "port on which every shark agent listens")

	evacdCmd.Flags().StringVarP(&evaccfg.DiscoveryBatch, "discovery-batch", "", config.Get("evac.discovery_batch"), "number of records fetched per crawler call")
	evacdCmd.Flags().StringVarP(&evaccfg.DiscoveryRetry, "discovery-retry", "", config.Get("evac.discovery_retry"), "retry bound for transient discovery errors")
	evacdCmd.Flags().StringVarP(&evaccfg.DiscoveryBackoff, "discovery-backoff", "", config.Get("evac.discovery_backoff"), "base backoff between discovery retries")

	evacdCmd.Flags().StringVarP(&evaccfg.AssignmentMaxObjects, "assignment-max-objects", "", config.Get("evac.assignment_max_objects"), "object count bound of one assignment")
	evacdCmd.Flags().StringVarP(&evaccfg.AssignmentMaxBytes, "assignment-max-bytes", "", config.Get("evac.assignment_max_bytes"), "byte size bound of one assignment")
	evacdCmd.Flags().StringVarP(&evaccfg.AssignmentMaxOpen, "assignment-max-open", "", config.Get("evac.assignment_max_open"), "longest time an assignment stays open")

	evacdCmd.Flags().StringVarP(&evaccfg.PostWorkers, "post-workers", "", config.Get("evac.post_workers"), "number of concurrent assignment posters")
	evacdCmd.Flags().StringVarP(&evaccfg.PostRetry, "post-retry", "", config.Get("evac.post_retry"), "retry bound for agent communication timeouts")
	evacdCmd.Flags().StringVarP(&evaccfg.PostTimeout, "post-timeout", "", config.Get("evac.post_timeout"), "dial and call timeout to shark agents")
	evacdCmd.Flags().StringVarP(&evaccfg.CompletionTimeout, "completion-timeout", "", config.Get("evac.completion_timeout"), "longest time an accepted assignment may stay without reports")

	evacdCmd.Flags().StringVarP(&evaccfg.CapacityHeadroom, "capacity-headroom", "", config.Get("evac.capacity_headroom"), "required free space factor per object")
	evacdCmd.Flags().StringVarP(&evaccfg.RemoveSourceReplica, "remove-source-replica", "", config.Get("evac.remove_source_replica"), "drop the source shark from metadata after a move")

	evacdCmd.Flags().StringVarP(&evaccfg.QueueSize, "queue-size", "", config.Get("evac.queue_size"), "size of the channels between pipeline stages")

	evacdCmd.Flags().StringVarP(&evaccfg.Security.CertsDir, "secure-certs-dir", "", config.Get("security.certs_dir"), "directory path of secure configuration files")
	evacdCmd.Flags().StringVarP(&evaccfg.Security.RootCAPem, "secure-rootca-pem", "", config.Get("security.rootca_pem"), "file name of rootCA.pem")
	evacdCmd.Flags().StringVarP(&evaccfg.Security.ServerKey, "secure-server-key", "", config.Get("security.server_key"), "file name of server key")
	evacdCmd.Flags().StringVarP(&evaccfg.Security.ServerCrt, "secure-server-crt", "", config.Get("security.server_crt"), "file name of server crt")

	evacdCmd.Flags().StringVarP(&evaccfg.LogLocation, "log", "l", config.Get("evac.log_location"), "log location of the orchestrator will print out")
}
