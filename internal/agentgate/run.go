package agentgate

import (
	"github.com/go-redis/redis"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/agentgate/agentgate/internal/common"
	"github.com/agentgate/agentgate/internal/common/app"
	"github.com/agentgate/agentgate/internal/common/health"
	"github.com/agentgate/agentgate/internal/common/logging"
	"github.com/agentgate/agentgate/internal/scheduler"
	"github.com/agentgate/agentgate/internal/scheduler/configuration"
	"github.com/agentgate/agentgate/internal/scheduler/dispatch"
	"github.com/agentgate/agentgate/internal/server"
)

// Run sets up an agentgate application and runs it until a SIGTERM is received
func Run(config configuration.Configuration) error {
	if err := logging.ConfigureApplicationLogging(config.Logging); err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(app.CreateContextWithShutdown())

	startupCompleteCheck := health.NewStartupCompleteChecker()
	healthChecks := health.NewMultiChecker(startupCompleteCheck)

	//////////////////////////////////////////////////////////////////////////
	// Dispatch
	//////////////////////////////////////////////////////////////////////////
	var redisClient redis.UniversalClient
	if config.Redis.Enabled() {
		log.Infof("Dispatching jobs to redis at %v", config.Redis.Addrs)
		redisClient = redis.NewUniversalClient(config.Redis.AsUniversalOptions())
		defer func() {
			err := redisClient.Close()
			if err != nil {
				log.WithError(errors.WithStack(err)).Warnf("Redis client didn't close down cleanly")
			}
		}()
		healthChecks.Add(NewRedisChecker(redisClient))
	} else {
		log.Info("No redis configured; dispatched jobs will only be logged")
	}
	publisher := NewPublisher(config.Dispatch, redisClient)

	//////////////////////////////////////////////////////////////////////////
	// Scheduler
	//////////////////////////////////////////////////////////////////////////
	metrics, err := scheduler.NewSchedulerMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	sched, err := scheduler.New(
		config.Scheduling,
		scheduler.WithPublisher(publisher),
		scheduler.WithMetrics(metrics),
		scheduler.WithCompletionMemory(config.CompletionMemory),
	)
	if err != nil {
		return errors.WithMessage(err, "error creating scheduler")
	}

	//////////////////////////////////////////////////////////////////////////
	// Serving
	//////////////////////////////////////////////////////////////////////////
	shutdownMetricServer := common.ServeMetrics(config.MetricsPort, prometheus.DefaultGatherer)
	defer shutdownMetricServer()

	shutdownHttpServer := common.ServeHttp(config.HttpPort, server.New(sched, healthChecks))
	defer shutdownHttpServer()

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down")
		return nil
	})

	startupCompleteCheck.MarkComplete()
	return g.Wait()
}

// NewPublisher returns a publisher pushing to redis, or one that only logs if redisClient is nil.
func NewPublisher(config configuration.DispatchConfig, redisClient redis.UniversalClient) dispatch.Publisher {
	if redisClient == nil {
		return dispatch.NewLogPublisher(log.WithField("component", "dispatch"))
	}
	return dispatch.NewRedisPublisher(redisClient, config.KeyPrefix, config.Retention)
}
