package config

import (
	"errors"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"` // "gorm" or "sql"
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// GameConfig holds the round timing and stake parameters.
type GameConfig struct {
	SelectionTime     int     `mapstructure:"selection_time"`      // seconds
	WinnerDisplayTime int     `mapstructure:"winner_display_time"` // seconds
	StakeAmount       float64 `mapstructure:"stake_amount"`
	CallInterval      int     `mapstructure:"call_interval"` // seconds between number calls
	RestartDelay      int     `mapstructure:"restart_delay"` // grace after all numbers called
}

func setDefaults() {
	viper.SetDefault("server.http_address", ":8080")
	viper.SetDefault("server.rpc_address", ":8081")
	viper.SetDefault("server.metrics_address", ":2112")

	viper.SetDefault("database.driver", "gorm")
	viper.SetDefault("database.postgres.host", "localhost")
	viper.SetDefault("database.postgres.port", 5432)
	viper.SetDefault("database.postgres.user", "postgres")
	viper.SetDefault("database.postgres.dbname", "bingo")

	viper.SetDefault("game.selection_time", 45)
	viper.SetDefault("game.winner_display_time", 5)
	viper.SetDefault("game.stake_amount", 10)
	viper.SetDefault("game.call_interval", 3)
	viper.SetDefault("game.restart_delay", 5)
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	setDefaults()
	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		// the defaults cover a full local setup, so a missing file is fine
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
	}

	err = viper.Unmarshal(&config)
	return
}
