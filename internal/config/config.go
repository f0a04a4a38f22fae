package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Analyzer  AnalyzerConfig  `mapstructure:"analyzer"`
	Staging   StagingConfig   `mapstructure:"staging"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// ProviderConfig holds mail-provider client configuration
type ProviderConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	UserEmail    string `mapstructure:"user_email"`
	UseIMAP      bool   `mapstructure:"use_imap"`
	IMAPHost     string `mapstructure:"imap_host"`
	IMAPPort     int    `mapstructure:"imap_port"`
	IMAPUser     string `mapstructure:"imap_user"`
	IMAPPassword string `mapstructure:"imap_password"`
}

// AnalyzerConfig holds pattern analysis configuration
type AnalyzerConfig struct {
	WindowDays            int `mapstructure:"window_days"`
	RecentWindowDays      int `mapstructure:"recent_window_days"`
	MinSenderEvents       int `mapstructure:"min_sender_events"`
	MinFolderMoves        int `mapstructure:"min_folder_moves"`
	MinObservationDays    int `mapstructure:"min_observation_days"`
	RejectionCooldownDays int `mapstructure:"rejection_cooldown_days"`
}

// StagingConfig holds staged-action pipeline configuration
type StagingConfig struct {
	HoldingFolder string `mapstructure:"holding_folder"`
	DeletedFolder string `mapstructure:"deleted_folder"`
	SweepBatch    int    `mapstructure:"sweep_batch"`
	SweepChunk    int    `mapstructure:"sweep_chunk"`
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	AnalysisIntervalMinutes int `mapstructure:"analysis_interval_minutes"`
	SweepIntervalMinutes    int `mapstructure:"sweep_interval_minutes"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)

	viper.SetDefault("provider.use_imap", false)
	viper.SetDefault("provider.imap_host", "imap.gmail.com")
	viper.SetDefault("provider.imap_port", 993)

	viper.SetDefault("analyzer.window_days", 90)
	viper.SetDefault("analyzer.recent_window_days", 7)
	viper.SetDefault("analyzer.min_sender_events", 10)
	viper.SetDefault("analyzer.min_folder_moves", 5)
	viper.SetDefault("analyzer.min_observation_days", 14)
	viper.SetDefault("analyzer.rejection_cooldown_days", 30)

	viper.SetDefault("staging.holding_folder", "Pending Deletion")
	viper.SetDefault("staging.deleted_folder", "Trash")
	viper.SetDefault("staging.sweep_batch", 100)
	viper.SetDefault("staging.sweep_chunk", 5)

	viper.SetDefault("scheduler.analysis_interval_minutes", 360)
	viper.SetDefault("scheduler.sweep_interval_minutes", 15)
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.port", "DB_PORT")
	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("database.dbname", "DB_NAME")

	viper.BindEnv("provider.client_id", "PROVIDER_CLIENT_ID")
	viper.BindEnv("provider.client_secret", "PROVIDER_CLIENT_SECRET")
	viper.BindEnv("provider.refresh_token", "PROVIDER_REFRESH_TOKEN")
	viper.BindEnv("provider.user_email", "PROVIDER_USER_EMAIL")
	viper.BindEnv("provider.use_imap", "PROVIDER_USE_IMAP")
	viper.BindEnv("provider.imap_host", "PROVIDER_IMAP_HOST")
	viper.BindEnv("provider.imap_port", "PROVIDER_IMAP_PORT")
	viper.BindEnv("provider.imap_user", "PROVIDER_IMAP_USER")
	viper.BindEnv("provider.imap_password", "PROVIDER_IMAP_PASSWORD")

	viper.BindEnv("staging.holding_folder", "STAGING_HOLDING_FOLDER")
	viper.BindEnv("staging.deleted_folder", "STAGING_DELETED_FOLDER")
	viper.BindEnv("staging.sweep_batch", "STAGING_SWEEP_BATCH")
	viper.BindEnv("staging.sweep_chunk", "STAGING_SWEEP_CHUNK")

	viper.BindEnv("scheduler.analysis_interval_minutes", "SCHEDULER_ANALYSIS_INTERVAL_MINUTES")
	viper.BindEnv("scheduler.sweep_interval_minutes", "SCHEDULER_SWEEP_INTERVAL_MINUTES")
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return fmt.Errorf("database host, user, and dbname are required")
	}

	if !c.Provider.UseIMAP {
		if c.Provider.ClientID == "" || c.Provider.ClientSecret == "" || c.Provider.RefreshToken == "" {
			return fmt.Errorf("provider OAuth2 credentials are required when not using IMAP")
		}
	} else {
		if c.Provider.IMAPUser == "" || c.Provider.IMAPPassword == "" {
			return fmt.Errorf("IMAP credentials are required when using IMAP")
		}
	}

	if c.Analyzer.WindowDays <= 0 || c.Analyzer.RecentWindowDays <= 0 {
		return fmt.Errorf("analyzer windows must be greater than 0")
	}
	if c.Analyzer.MinObservationDays <= 0 {
		return fmt.Errorf("analyzer minimum observation days must be greater than 0")
	}

	if c.Staging.HoldingFolder == "" || c.Staging.DeletedFolder == "" {
		return fmt.Errorf("staging holding and deleted folders are required")
	}
	if c.Staging.SweepBatch <= 0 || c.Staging.SweepChunk <= 0 {
		return fmt.Errorf("staging sweep batch and chunk must be greater than 0")
	}

	if c.Scheduler.AnalysisIntervalMinutes <= 0 || c.Scheduler.SweepIntervalMinutes <= 0 {
		return fmt.Errorf("scheduler intervals must be greater than 0")
	}

	return nil
}
