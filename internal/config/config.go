package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bentolab/nhsn-backfill/internal/bayes"
)

// Config holds the full application configuration.
type Config struct {
	Archive  ArchiveConfig  `yaml:"archive" mapstructure:"archive"`
	Backfill BackfillConfig `yaml:"backfill" mapstructure:"backfill"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ArchiveConfig configures where the snapshot history lives and where
// outputs go.
type ArchiveConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // fs, sqlite, postgres
	Dir         string `yaml:"dir" mapstructure:"dir"`
	OutDir      string `yaml:"out_dir" mapstructure:"out_dir"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// BackfillConfig configures the estimation itself: window length, model
// variant, prior parameters, rounding.
type BackfillConfig struct {
	Window    int                  `yaml:"window" mapstructure:"window"` // trailing aligned records; 0 = all
	Variant   string               `yaml:"variant" mapstructure:"variant"`
	Precision int                  `yaml:"precision" mapstructure:"precision"`
	Intervals bool                 `yaml:"intervals" mapstructure:"intervals"`
	Dirichlet bayes.DirichletPrior `yaml:"dirichlet" mapstructure:"dirichlet"`
	Beta      bayes.BetaPrior      `yaml:"beta" mapstructure:"beta"`
	Hazard    bayes.HazardPrior    `yaml:"hazard" mapstructure:"hazard"`
}

// BayesConfig assembles the estimator configuration.
func (b BackfillConfig) BayesConfig() bayes.Config {
	return bayes.Config{
		Variant:   bayes.Variant(b.Variant),
		Intervals: b.Intervals,
		Dirichlet: b.Dirichlet,
		Beta:      b.Beta,
		Hazard:    b.Hazard,
	}
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BACKFILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// SetDefaults installs the default configuration values on a viper
// instance. The hazard prior defaults encode roughly 90% immediate
// reporting and 80% of the remainder arriving within one week; the
// dirichlet mean matches the same regime.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("archive.driver", "fs")
	v.SetDefault("archive.dir", "data/preliminary")
	v.SetDefault("archive.out_dir", "data/preliminary_backfilled")

	v.SetDefault("backfill.window", 4)
	v.SetDefault("backfill.variant", string(bayes.VariantHazard))
	v.SetDefault("backfill.precision", 3)
	v.SetDefault("backfill.intervals", false)

	v.SetDefault("backfill.dirichlet.kappa", 50.0)
	v.SetDefault("backfill.dirichlet.mean", []float64{0.95, 0.04, 0.01})

	v.SetDefault("backfill.beta.alpha_02", 45.0)
	v.SetDefault("backfill.beta.beta_02", 5.0)
	v.SetDefault("backfill.beta.alpha_12", 49.0)
	v.SetDefault("backfill.beta.beta_12", 1.0)

	v.SetDefault("backfill.hazard.a0", 45.0)
	v.SetDefault("backfill.hazard.b0", 5.0)
	v.SetDefault("backfill.hazard.a1", 40.0)
	v.SetDefault("backfill.hazard.b1", 10.0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
