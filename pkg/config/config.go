package config

import (
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"go.uber.org/multierr"

	"github.com/arnac-io/fundquorum/pkg/core"
)

type Config struct {
	API struct {
		Port        int      `env:"PORT" envDefault:"8081"`
		RateLimit   int      `env:"RATE_LIMIT" envDefault:"50"`
		CorsOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	}
	App struct {
		LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`
		MetricsPort int    `env:"METRICS_PORT" envDefault:"9010"`
	}
	Multisig struct {
		Address  core.Address `env:"MULTISIG_ADDRESS"`
		Owners   ownersList   `env:"OWNERS,required"`
		Required int          `env:"REQUIRED" envDefault:"1"`
	}
	Fund struct {
		Address   core.Address `env:"FUND_ADDRESS"`
		MinChecks int          `env:"WITHDRAWAL_MIN_CHECKS" envDefault:"1"`
	}
	Indexer struct {
		URL             string        `env:"INDEXER_URL"`
		RefreshInterval time.Duration `env:"INDEXER_REFRESH_INTERVAL" envDefault:"30s"`
		Attempts        uint          `env:"INDEXER_ATTEMPTS" envDefault:"3"`
	}
}

type ownersList []core.Address

func parseOwners(v string) (interface{}, error) {
	var owners ownersList
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		a, err := core.ParseAddress(s)
		if err != nil {
			return nil, err
		}
		owners = append(owners, a)
	}
	return owners, nil
}

func parseAddress(v string) (interface{}, error) {
	return core.ParseAddress(v)
}

// Parse reads the configuration from the environment.
func Parse() (Config, error) {
	var c Config
	if err := env.ParseWithFuncs(&c, map[reflect.Type]env.ParserFunc{
		reflect.TypeOf(ownersList{}):     parseOwners,
		reflect.TypeOf(core.Address("")): parseAddress,
	}); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func Load() Config {
	c, err := Parse()
	if err != nil {
		log.Panicf("[‼️  Config parsing failed] %+v\n", err)
	}
	return c
}

// OwnerSet builds the owner set of the multisig.
func (c Config) OwnerSet() (core.OwnerSet, error) {
	return core.NewOwnerSet(c.Multisig.Owners)
}

func (c Config) Validate() error {
	var err error
	if _, e := c.OwnerSet(); e != nil {
		err = multierr.Append(err, e)
	}
	if c.Multisig.Required < 1 || c.Multisig.Required > len(c.Multisig.Owners) {
		err = multierr.Append(err, fmt.Errorf("REQUIRED must be in [1, %d], got %d", len(c.Multisig.Owners), c.Multisig.Required))
	}
	if c.Fund.MinChecks < 1 {
		err = multierr.Append(err, fmt.Errorf("WITHDRAWAL_MIN_CHECKS must be positive, got %d", c.Fund.MinChecks))
	}
	if c.Indexer.RefreshInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("INDEXER_REFRESH_INTERVAL must be positive"))
	}
	if c.Indexer.Attempts == 0 {
		err = multierr.Append(err, fmt.Errorf("INDEXER_ATTEMPTS must be positive"))
	}
	if c.API.RateLimit < 1 {
		err = multierr.Append(err, fmt.Errorf("RATE_LIMIT must be positive, got %d", c.API.RateLimit))
	}
	return err
}
