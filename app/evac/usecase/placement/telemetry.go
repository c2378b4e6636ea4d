package placement

import (
	"net"
	"net/rpc"
	"time"

	"github.com/chanyoung/evac/pkg/evacrpc"
	"github.com/pkg/errors"
)

// Telemetry returns a snapshot function which fetches the capacity
// records of all known sharks over rpc. Agent addresses are the
// telemetry host joined with the cluster-wide agent port.
func Telemetry(addr, agentPort string, timeout time.Duration) func() ([]Candidate, error) {
	return func() ([]Candidate, error) {
		conn, err := evacrpc.Dial(addr, evacrpc.RPCEvac, timeout)
		if err != nil {
			return nil, errors.Wrap(err, "failed to dial")
		}
		defer conn.Close()
		conn.SetDeadline(time.Now().Add(timeout))

		req := &evacrpc.TELUsageRequest{}
		res := &evacrpc.TELUsageResponse{}

		cli := rpc.NewClient(conn)
		defer cli.Close()
		if err := cli.Call(evacrpc.TelemetryUsage.String(), req, res); err != nil {
			return nil, err
		}

		snapshot := make([]Candidate, 0, len(res.Sharks))
		for _, s := range res.Sharks {
			snapshot = append(snapshot, Candidate{
				ID:          s.ID,
				FaultDomain: s.FaultDomain,
				Addr:        net.JoinHostPort(s.Addr, agentPort),
				Total:       s.Total,
				Available:   s.Available,
			})
		}
		return snapshot, nil
	}
}
