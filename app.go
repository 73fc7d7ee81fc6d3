package main

import (
	"github.com/sony/gobreaker/v2"

	"github.com/unclealek/SmartHome/internal/config"
	"github.com/unclealek/SmartHome/internal/fetch"
	"github.com/unclealek/SmartHome/internal/logger"
	"github.com/unclealek/SmartHome/internal/metric"
	"github.com/unclealek/SmartHome/internal/poller"
	"github.com/unclealek/SmartHome/internal/sensor"
)

const appID = "smart-home"

// app bundles the components every command needs.
type app struct {
	poller *poller.Poller
	metric *metric.Metric
}

func newApp(cfg *config.Config, log *logger.Logger) (*app, error) {
	m := metric.New(appID)

	client := fetch.New(nil,
		fetch.WithTimeout(cfg.Poll.Timeout),
		fetch.WithBreaker(cfg.Poll.BreakerFailures, cfg.Poll.BreakerCooldown),
		fetch.WithBreakerObserver(func(endpoint string, from, to gobreaker.State) {
			m.BreakerChanged(endpoint, to)
			log.Warnw("circuit breaker state changed",
				"endpoint", endpoint,
				"from", from.String(),
				"to", to.String(),
			)
		}),
	)

	light, err := sensor.NewLightInterpreter(sensor.LightMode(cfg.Light.Mode), cfg.Light.Threshold)
	if err != nil {
		return nil, err
	}

	e := cfg.Endpoints
	p, err := poller.New(poller.Config{
		Endpoints: poller.Endpoints{
			RoomTemp:     e.RoomTemp,
			CityWeather:  e.CityWeather,
			Sound:        e.Sound,
			Humidity:     e.Humidity,
			Light:        e.Light,
			LightControl: e.LightControl,
			Reset:        e.Reset,
		},
		Light:     light,
		Interval:  cfg.Poll.Interval,
		Overlap:   poller.OverlapPolicy(cfg.Poll.Overlap),
		NoticeTTL: cfg.Poll.NoticeTTL,
		Getter:    client,
		Logger:    log,
		Recorder:  m,
	})
	if err != nil {
		return nil, err
	}

	return &app{poller: p, metric: m}, nil
}
