// Command topomon connects a Topology to a deployment and, until
// interrupted, logs topology opening, topology description changes and
// failed heartbeats. It has no wire protocol of its own —
// see demoHeartbeat — so it is a harness for watching the state machine
// run, not a production monitoring tool.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"

	"github.com/ikmak/topologycore/event"
	"github.com/ikmak/topologycore/readpref"
	"github.com/ikmak/topologycore/topology"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("topomon: failed to load config")
	}

	monitor := &event.Monitor{
		TopologyOpening: func(e *event.TopologyOpeningEvent) {
			log.Infof("topology %s opening", e.TopologyID)
		},
		TopologyDescriptionChanged: func(e *event.TopologyDescriptionChangedEvent) {
			log.Infof("topology %s: %s -> %s", e.TopologyID, e.PreviousDescription.Type, e.NewDescription.Type)
			pretty.Println(e.NewDescription)
		},
		ServerHeartbeatFailed: func(e *event.ServerHeartbeatFailedEvent) {
			log.WithError(e.Failure).Warnf("heartbeat failed: %s", e.Address)
		},
	}

	topo, err := topology.New(
		topology.WithSeedList(cfg.addresses()...),
		topology.WithReplicaSetName(cfg.ReplicaSet),
		topology.WithHeartbeatInterval(cfg.heartbeatInterval()),
		topology.WithServerSelectionTimeout(cfg.serverSelectionTimeout()),
		topology.WithHeartbeatFunc(demoHeartbeat),
		topology.WithMonitor(monitor),
		topology.WithLogger(log),
	)
	if err != nil {
		log.WithError(err).Fatal("topomon: failed to start topology")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go watchSelection(ctx, topo, log)

	<-ctx.Done()
	log.Info("topomon: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.serverSelectionTimeout())
	defer cancel()
	if err := topo.Close(shutdownCtx); err != nil {
		log.WithError(err).Error("topomon: error during shutdown")
	}
}

func watchSelection(ctx context.Context, topo *topology.Topology, log *logrus.Logger) {
	sel := readpref.Selector(readpref.Primary())
	for {
		addr, err := topo.SelectServer(ctx, topology.Selector(sel))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Warn("topomon: no primary available")
		} else {
			log.Debugf("topomon: primary is %s", addr)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}
