package configuration

import (
	"os"

	"github.com/pitkley/watchpost/cmd/watchpost/globflags"
	"github.com/pitkley/watchpost/internal/engine"
	"github.com/pitkley/watchpost/internal/executor"
	"github.com/pitkley/watchpost/internal/metricsrv"
	"github.com/pitkley/watchpost/internal/storage"
	"github.com/pitkley/watchpost/internal/watchsrv"
	"github.com/pitkley/watchpost/pkg/common/wplog"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"
)

type Config struct {
	fx.Out

	Logging  wplog.Config     `json:"logging" yaml:"logging"`
	Serve    watchsrv.Config  `json:"serve" yaml:"serve"`
	Metrics  metricsrv.Config `json:"metrics" yaml:"metrics"`
	Engine   engine.Config    `json:"engine" yaml:"engine"`
	Executor executor.Config  `json:"executor" yaml:"executor"`
	Cache    Cache            `json:"cache" yaml:"cache"`
}

// Cache selects the storage tiers behind the result cache. The in-memory
// tier is always present; Disk and Redis are appended as deeper tiers when
// configured.
type Cache struct {
	Memory storage.MemoryConfig `json:"memory" yaml:"memory"`
	Disk   *storage.DiskConfig  `json:"disk" yaml:"disk"`
	Redis  *Redis               `json:"redis" yaml:"redis"`
}

func defaultConfig() *Config {
	return &Config{
		Logging: wplog.DefaultConfig(),
		Serve: watchsrv.Config{
			Port: 6556,
		},
		Metrics: metricsrv.Config{
			Port: 9656,
		},
	}
}

func Read() (Config, error) {
	confPath := globflags.ConfigPath

	if confPath == "" {
		return *defaultConfig(), nil
	}

	data, err := os.ReadFile(confPath)
	if err != nil {
		return Config{}, errors.Wrapf(err, "cannot read config at %s", confPath)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, errors.Wrap(err, "cannot parse config as yaml")
	}

	if err := Validate(&c); err != nil {
		return Config{}, errors.Wrap(err, "invalid config provided")
	}

	return c, nil
}

func Validate(c *Config) error {
	var merr *multierror.Error

	if c.Serve.Port == 0 {
		merr = multierror.Append(merr, errors.New("config.serve.port must be provided"))
	}
	if c.Metrics.Port == 0 {
		merr = multierror.Append(merr, errors.New("config.metrics.port must be provided"))
	}
	if c.Engine.ExecutionEnvironment == "" {
		merr = multierror.Append(merr, errors.New("config.engine.execution_environment must be provided"))
	}
	if c.Cache.Disk != nil && c.Cache.Disk.Dir == "" {
		merr = multierror.Append(merr, errors.New("config.cache.disk.dir must be provided"))
	}
	if c.Cache.Redis != nil {
		if err := c.Cache.Redis.Validate(); err != nil {
			merr = multierror.Append(merr, errors.Wrap(err, "config.cache.redis"))
		}
	}

	return merr.ErrorOrNil()
}
