package evacrpc

import (
	"crypto/tls"
	"net"
	"time"

	"github.com/chanyoung/evac/pkg/security"
)

// Prefixes for rpc methods.
const (
	// EvacJobPrefix is the prefix for calling job control rpc methods.
	EvacJobPrefix = "EVJ"
	// EvacReportPrefix is the prefix for calling completion report rpc methods.
	EvacReportPrefix = "EVC"
	// AgentPrefix is the prefix for calling shark agent rpc methods.
	AgentPrefix = "AGT"
	// SpotterPrefix is the prefix for calling object discovery crawler rpc methods.
	SpotterPrefix = "SPT"
	// TelemetryPrefix is the prefix for calling capacity telemetry rpc methods.
	TelemetryPrefix = "TEL"
	// MetaPrefix is the prefix for calling metadata store rpc methods.
	MetaPrefix = "MDM"
)

// MethodName indicates what procedure will be called.
type MethodName int

const (
	// Job control methods.
	EvacJobStart MethodName = iota
	EvacJobStatus
	EvacJobAbort
	EvacJobListObjects

	// Completion report methods.
	EvacReport

	// Shark agent methods.
	AgentAssign

	// Discovery crawler methods.
	SpotterNext

	// Capacity telemetry methods.
	TelemetryUsage

	// Metadata store methods.
	MetaUpdateLocation
)

func (m MethodName) String() string {
	switch m {
	case EvacJobStart:
		return EvacJobPrefix + "." + "Start"
	case EvacJobStatus:
		return EvacJobPrefix + "." + "Status"
	case EvacJobAbort:
		return EvacJobPrefix + "." + "Abort"
	case EvacJobListObjects:
		return EvacJobPrefix + "." + "ListObjects"
	case EvacReport:
		return EvacReportPrefix + "." + "Report"
	case AgentAssign:
		return AgentPrefix + "." + "Assign"
	case SpotterNext:
		return SpotterPrefix + "." + "Next"
	case TelemetryUsage:
		return TelemetryPrefix + "." + "Usage"
	case MetaUpdateLocation:
		return MetaPrefix + "." + "UpdateLocation"
	default:
		return "unknown"
	}
}

// RPCType is the first byte of connection and it implies the type of the RPC.
type RPCType byte

const (
	// RPCEvac used when job control connection.
	RPCEvac RPCType = 0x02
	// RPCReport used when agent completion report connection.
	RPCReport RPCType = 0x03
)

// Dial dials with the given rpc type connection to the address.
func Dial(addr string, rpcType RPCType, timeout time.Duration) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: timeout}

	config := security.DefaultTLSConfig()

	conn, err := tls.DialWithDialer(dialer, "tcp", addr, config)
	if err != nil {
		return nil, err
	}

	// Write RPC header.
	_, err = conn.Write([]byte{
		byte(rpcType),
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	return conn, err
}
