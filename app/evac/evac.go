package evac

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/chanyoung/evac/app/evac/delivery"
	"github.com/chanyoung/evac/app/evac/repository/mysql"
	"github.com/chanyoung/evac/app/evac/usecase/completion"
	"github.com/chanyoung/evac/app/evac/usecase/job"
	"github.com/chanyoung/evac/pkg/util/config"
	"github.com/chanyoung/evac/pkg/util/mlog"
	"github.com/chanyoung/evac/pkg/util/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger *logrus.Entry

// Bootstrap build up the evacuation orchestrator.
func Bootstrap(cfg config.Evac) error {
	// Setup logger.
	if err := mlog.Init(cfg.LogLocation); err != nil {
		return errors.Wrap(err, "init log failed")
	}
	logger = mlog.GetPackageLogger("app/evac")

	ctxLogger := mlog.GetFunctionLogger(logger, "Bootstrap")
	ctxLogger.Info("start bootstrap evac ...")

	// Generates orchestrator ID.
	cfg.ID = uuid.Gen()

	// Setup repositories.
	store, err := mysql.New(&cfg)
	if err != nil {
		return errors.Wrap(err, "failed to open job state store")
	}
	jobStore := mysql.NewJobRepository(store)
	discoveryStore := mysql.NewDiscoveryRepository(store)
	assignmentStore := mysql.NewAssignmentRepository(store)

	// Setup completion broker.
	removeSource := false
	if cfg.RemoveSourceReplica != "" {
		if removeSource, err = strconv.ParseBool(cfg.RemoveSourceReplica); err != nil {
			return errors.Wrap(err, "invalid remove source replica flag")
		}
	}
	postTimeout, err := time.ParseDuration(cfg.PostTimeout)
	if err != nil {
		return errors.Wrap(err, "invalid post timeout")
	}
	completionTimeout, err := time.ParseDuration(cfg.CompletionTimeout)
	if err != nil {
		return errors.Wrap(err, "invalid completion timeout")
	}
	broker := completion.NewBroker(
		completion.MetaUpdater(cfg.MetaAddr, postTimeout),
		removeSource,
		completionTimeout,
	)

	// Setup usecase handlers.
	jobHandlers, err := job.NewHandlers(&cfg, jobStore, discoveryStore, assignmentStore, broker, job.Probes{})
	if err != nil {
		return err
	}

	// Setup delivery service.
	delivery, err := delivery.NewDeliveryService(&cfg, jobHandlers, broker)
	if err != nil {
		return err
	}
	if err := delivery.Run(); err != nil {
		return err
	}

	ctxLogger.Info("bootstrap evac succeeded")

	// Make channel for Ctrl-C or other terminate signal is received.
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt, os.Kill)

	for {
		select {
		case <-sigc:
			ctxLogger.Info("Received stop signal from OS")
			delivery.Stop()
			store.Close()
			return nil
		}
	}
}
