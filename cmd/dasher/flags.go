package main

import (
	"flag"
	"time"

	"github.com/caarlos0/env"
)

type Config struct {
	APIAddress       string        `env:"DISPATCH_ADDRESS" envDefault:"http://localhost:8080"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"INFO"`
	FacebookToken    string        `env:"FACEBOOK_ACCESS_TOKEN"`
	LocationInterval time.Duration `env:"LOCATION_INTERVAL" envDefault:"30s"`
	RefreshInterval  time.Duration `env:"REFRESH_INTERVAL" envDefault:"15s"`
	Latitude         float64       `env:"DASHER_LATITUDE" envDefault:"25.0330"`
	Longitude        float64       `env:"DASHER_LONGITUDE" envDefault:"121.5654"`
	DemoMode         bool          `env:"DEMO_MODE" envDefault:"true"`
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	address := flag.String("a", cfg.APIAddress, "Dispatch backend base URL")
	loglevel := flag.String("l", cfg.LogLevel, "Log level")
	fbToken := flag.String("f", cfg.FacebookToken, "Facebook access token for login")
	locInterval := flag.Duration("i", cfg.LocationInterval, "Location report interval")
	refInterval := flag.Duration("r", cfg.RefreshInterval, "Order refresh interval")
	demo := flag.Bool("demo", cfg.DemoMode, "Fall back to placeholder data when the backend is unreachable")

	flag.Parse()

	cfg.APIAddress = *address
	cfg.LogLevel = *loglevel
	cfg.FacebookToken = *fbToken
	cfg.LocationInterval = *locInterval
	cfg.RefreshInterval = *refInterval
	cfg.DemoMode = *demo

	return cfg, nil
}
