package config

// Evac holds info required to set an evacuation orchestrator.
type Evac struct {
	// ID is the uuid of the orchestrator.
	ID string

	// ServerAddr is the address of the orchestrator.
	ServerAddr string
	// ServerPort is the port of the orchestrator.
	ServerPort string

	// WorkDir is the working directory of the orchestrator.
	WorkDir string

	// MySQLUser is the user ID of MySQL database.
	MySQLUser string
	// MySQLPassword is the password of MySQL user.
	MySQLPassword string
	// MySQLDatabase is the schema name.
	MySQLDatabase string
	// MySQLHost is the host address of MySQL server.
	MySQLHost string
	// MySQLPort is the port number of MySQL server.
	MySQLPort string

	// SpotterAddr is the end point of the object discovery crawler.
	SpotterAddr string
	// TelemetryAddr is the end point of the capacity telemetry service.
	TelemetryAddr string
	// MetaAddr is the end point of the object metadata store.
	MetaAddr string
	// AgentPort is the port on which every shark agent listens.
	AgentPort string

	// DiscoveryBatch is the number of records fetched per crawler call.
	DiscoveryBatch string
	// DiscoveryRetry is the retry bound for transient discovery errors.
	DiscoveryRetry string
	// DiscoveryBackoff is the base backoff between discovery retries.
	DiscoveryBackoff string

	// AssignmentMaxObjects is the object count bound of one assignment.
	AssignmentMaxObjects string
	// AssignmentMaxBytes is the byte size bound of one assignment.
	AssignmentMaxBytes string
	// AssignmentMaxOpen is the longest time an assignment stays open.
	AssignmentMaxOpen string

	// PostWorkers is the number of concurrent assignment posters.
	PostWorkers string
	// PostRetry is the retry bound for agent communication timeouts.
	PostRetry string
	// PostTimeout is the dial and call timeout to shark agents.
	PostTimeout string
	// CompletionTimeout bounds how long an accepted assignment may
	// stay without completion reports before its objects fail.
	CompletionTimeout string

	// CapacityHeadroom scales the required free space per object, >= 1.0.
	CapacityHeadroom string
	// RemoveSourceReplica drops the source shark from the metadata
	// record after a successful move.
	RemoveSourceReplica string

	// QueueSize bounds the channels between the pipeline stages.
	QueueSize string

	// Security config.
	Security Security

	// LogLocation is the file path of orchestrator logging.
	// Default output path is stderr.
	LogLocation string
}
