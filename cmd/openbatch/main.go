package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/openbatch/openbatch/internal/common"
	"github.com/openbatch/openbatch/internal/jobdb"
	"github.com/openbatch/openbatch/internal/nodedb"
	"github.com/openbatch/openbatch/internal/openbatch/configuration"
	"github.com/openbatch/openbatch/internal/openbatch/relay"
	"github.com/openbatch/openbatch/internal/openbatch/repository"
	"github.com/openbatch/openbatch/internal/openbatch/scheduling"
	"github.com/openbatch/openbatch/internal/openbatch/server"
	"github.com/openbatch/openbatch/internal/resources"
)

const CustomConfigLocation string = "config"

func init() {
	pflag.String(CustomConfigLocation, "", "Fully qualified path to application configuration file")
	pflag.Parse()
}

func main() {
	common.ConfigureLogging()
	common.BindCommandlineArguments()

	var config configuration.OpenbatchConfig
	userSpecifiedConfig := viper.GetString(CustomConfigLocation)
	common.LoadConfig(&config, "./config/openbatch", userSpecifiedConfig)

	log.Info("openbatch job-control server starting")

	db := redis.NewUniversalClient(&config.Redis)
	defer func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Error("failed to close Redis client")
		}
	}()
	store := repository.NewRedisObjectStore(db)

	jobs, err := jobdb.NewJobDb()
	if err != nil {
		log.Fatal(err)
	}
	nodes, err := nodedb.NewNodeDb()
	if err != nil {
		log.Fatal(err)
	}
	alloc := resources.NewAllocator(nodes)
	sched := scheduling.NewNotifier()

	completions := make(chan func(), 1024)
	agent := relay.NewHttpAgentClient(config.Agent.Url, config.Agent.Timeout, config.Agent.RetryAttempts)
	agentRelay := relay.NewAgentRelay(agent, config.Agent.Workers, config.Agent.QueueSize, completions)
	defer agentRelay.Stop()

	srv := server.NewServer(jobs, nodes, store, alloc, agentRelay, sched, completions)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stopSignal
		cancel()
	}()

	shutdownMetricServer := common.ServeMetrics(config.MetricsPort)
	defer shutdownMetricServer()

	shutdownFrontend := common.ServeHttp(config.HttpPort, srv.Handler())
	defer shutdownFrontend()

	if err := srv.Run(ctx); err != nil && err != context.Canceled {
		log.WithError(err).Error("control loop exited")
	}
	log.Info("openbatch job-control server shutting down")
}
