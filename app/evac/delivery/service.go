package delivery

import (
	"net"
	"net/rpc"

	"github.com/chanyoung/evac/pkg/evacmux"
	"github.com/chanyoung/evac/pkg/evacrpc"
	"github.com/chanyoung/evac/pkg/util/config"
	"github.com/chanyoung/evac/pkg/util/mlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger *logrus.Entry

// Service serves the two rpc surfaces of the orchestrator on one tls
// socket: job control for operators and completion reports for agents.
type Service struct {
	cfg *config.Evac

	joh JobHandlers
	reh ReportHandlers

	jobLayer    *evacmux.Layer
	reportLayer *evacmux.Layer

	mux       *evacmux.Mux
	jobRPCSrv *rpc.Server
	repRPCSrv *rpc.Server
}

// NewDeliveryService creates a delivery service with necessary dependencies.
func NewDeliveryService(cfg *config.Evac, joh JobHandlers, reh ReportHandlers) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("invalid argument")
	}
	logger = mlog.GetPackageLogger("app/evac/delivery")

	rAddr, err := net.ResolveTCPAddr("tcp", cfg.ServerAddr+":"+cfg.ServerPort)
	if err != nil {
		return nil, errors.Wrap(err, "resolve evac address failed")
	}

	// Create transport layers.
	jobL := evacmux.NewLayer(jobTypeBytes(), rAddr)
	reportL := evacmux.NewLayer(reportTypeBytes(), rAddr)

	// Create a mux and register layers.
	m := evacmux.NewMux(cfg.ServerAddr+":"+cfg.ServerPort, &cfg.Security)
	m.RegisterLayer(jobL)
	m.RegisterLayer(reportL)

	// Create rpc servers.
	jobSrv := rpc.NewServer()
	if err := jobSrv.RegisterName(evacrpc.EvacJobPrefix, joh); err != nil {
		return nil, err
	}
	repSrv := rpc.NewServer()
	if err := repSrv.RegisterName(evacrpc.EvacReportPrefix, reh); err != nil {
		return nil, err
	}

	return &Service{
		cfg: cfg,

		joh: joh,
		reh: reh,

		jobLayer:    jobL,
		reportLayer: reportL,

		mux:       m,
		jobRPCSrv: jobSrv,
		repRPCSrv: repSrv,
	}, nil
}

// Run starts to listen and serve the rpc surfaces.
func (s *Service) Run() error {
	go s.mux.ListenAndServeTLS()
	go s.serveJobRPC()
	go s.serveReportRPC()
	return nil
}

// Stop closes the listening socket and its layers.
func (s *Service) Stop() error {
	return s.mux.Close()
}

func (s *Service) serveJobRPC() {
	ctxLogger := mlog.GetMethodLogger(logger, "Service.serveJobRPC")

	for {
		conn, err := s.jobLayer.Accept()
		if err != nil {
			ctxLogger.Error(err)
			return
		}
		go s.jobRPCSrv.ServeConn(conn)
	}
}

func (s *Service) serveReportRPC() {
	ctxLogger := mlog.GetMethodLogger(logger, "Service.serveReportRPC")

	for {
		conn, err := s.reportLayer.Accept()
		if err != nil {
			ctxLogger.Error(err)
			return
		}
		go s.repRPCSrv.ServeConn(conn)
	}
}

// JobHandlers is the interface that provides job control rpc handlers.
type JobHandlers interface {
	Start(req *evacrpc.EVJStartRequest, res *evacrpc.EVJStartResponse) error
	Status(req *evacrpc.EVJStatusRequest, res *evacrpc.EVJStatusResponse) error
	Abort(req *evacrpc.EVJAbortRequest, res *evacrpc.EVJAbortResponse) error
	ListObjects(req *evacrpc.EVJListObjectsRequest, res *evacrpc.EVJListObjectsResponse) error
}

// ReportHandlers is the interface that provides completion report rpc handlers.
type ReportHandlers interface {
	Report(req *evacrpc.EVCReportRequest, res *evacrpc.EVCReportResponse) error
}
