// Package statsd is a helper package that wraps some common statsd methods.
// It hides the datadog dependency so a future migration away from datadog
// only needs to edit this single file.
package statsd

import (
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

var client ddstatsd.ClientInterface = &ddstatsd.NoOpClient{}

func Client() ddstatsd.ClientInterface {
	return client
}

// EmitStageStat emits one pipeline stage duration, tagged with the stage
// name (copy_to_host, add_to_history, tick). Diagnostics only; it never
// affects correctness or output values.
func EmitStageStat(stage string, duration time.Duration) {
	err := Client().Timing("tick", duration, []string{"stage:" + stage}, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit stage stat: %v", err)
	}
}

// EmitTickStat emits the elapsed time of one committed tick.
func EmitTickStat(start time.Time) {
	EmitStageStat("tick", time.Since(start))
}

// EmitRunStats emits the committed tick count and the run's real-time
// factor after a Run call completes.
func EmitRunStats(tick uint64, realTimeFactor float64) {
	if err := Client().Gauge("current_tick", float64(tick), nil, 1); err != nil {
		log.Logger.Warn().Msgf("failed to emit tick gauge: %v", err)
	}
	if realTimeFactor > 0 {
		if err := Client().Gauge("real_time_factor", realTimeFactor, nil, 1); err != nil {
			log.Logger.Warn().Msgf("failed to emit real time factor: %v", err)
		}
	}
}

func Init(address string, tags []string) error {
	if address == "" {
		return eris.New("address must not be empty")
	}
	opts := []ddstatsd.Option{
		// The statsd namespace is the prefix of all metrics
		ddstatsd.WithNamespace("elodin"),
	}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}

	newClient, err := ddstatsd.New(address, opts...)
	if err != nil {
		return err
	}
	// Success! replace the global client
	client = newClient
	return nil
}
