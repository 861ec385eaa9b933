package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "jobradar"
)

type Config struct {
	Postgres  *PostgresConfig  `mapstructure:"postgres"`
	Redis     *RedisConfig     `mapstructure:"redis"`
	Scoring   *ScoringConfig   `mapstructure:"scoring"`
	Matching  *MatchingConfig  `mapstructure:"matching"`
	Notify    *NotifyConfig    `mapstructure:"notify"`
	Retention *RetentionConfig `mapstructure:"retention"`
}

// DSN and URL may carry credentials, so they are kept out of the debug
// config dump. Prefer the -file variants or the environment.
type PostgresConfig struct {
	DSN     string `mapstructure:"dsn" json:"-"`
	DSNFile string `mapstructure:"dsn-file"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url" json:"-"`
	URLFile string `mapstructure:"url-file"`
}

type ScoringConfig struct {
	Provider       string        `mapstructure:"provider"`
	MinDelay       time.Duration `mapstructure:"min-delay"`
	MaxDelay       time.Duration `mapstructure:"max-delay"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
	Gemini         *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type MatchingConfig struct {
	PublishThreshold int           `mapstructure:"publish-threshold"`
	NotifyThreshold  int           `mapstructure:"notify-threshold"`
	Workers          int           `mapstructure:"workers"`
	RunTimeout       time.Duration `mapstructure:"run-timeout"`
	RecomputeWindow  time.Duration `mapstructure:"recompute-window"`
	RecomputeLimit   int           `mapstructure:"recompute-limit"`
	BatchSize        int           `mapstructure:"batch-size"`
}

type NotifyConfig struct {
	SendTimeout time.Duration `mapstructure:"send-timeout"`
	Email       *EmailConfig  `mapstructure:"email"`
	Push        *PushConfig   `mapstructure:"push"`
	Feed        *FeedConfig   `mapstructure:"feed"`
}

type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	From     string `mapstructure:"from"`
}

type PushConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

type FeedConfig struct {
	Disabled   bool `mapstructure:"disabled"`
	MaxEntries int  `mapstructure:"max-entries"`
}

type RetentionConfig struct {
	MaxAge    time.Duration `mapstructure:"max-age"`
	BatchSize int           `mapstructure:"batch-size"`
	Schedule  string        `mapstructure:"schedule"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "jobradar matches job postings against user search profiles and notifies on strong fits",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("postgres.dsn-file", "JOBRADAR_DSN_FILE"); err != nil {
		log.Fatalf("binding JOBRADAR_DSN_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("scoring.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobradar.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Only commands that talk to the stores need a config file.
	if !configNeeded() {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func configNeeded() bool {
	for _, cmd := range []*cobra.Command{runCmd, recomputeCmd, sweepCmd, matchesCmd} {
		if cmd.CalledAs() != "" {
			return true
		}
	}
	return false
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
