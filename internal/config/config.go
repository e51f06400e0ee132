package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

type Configuration struct {
	Server struct {
		Host string `envconfig:"SERVER_HOST" default:""`
		Port string `envconfig:"SERVER_PORT" default:"8080" validate:"required,numeric"`
	}
	Storage struct {
		Driver string `envconfig:"STORAGE_DRIVER" default:"memory" validate:"oneof=mongo sqlite memory"`
	}
	Database struct {
		Address      string `envconfig:"MONGO_ADDRESS" default:"mongodb://localhost:27017"`
		DatabaseName string `envconfig:"MONGO_DATABASE" default:"puzzles"`
		Collection   string `envconfig:"MONGO_COLLECTION" default:"puzzles"`
	}
	SQLite struct {
		Path string `envconfig:"SQLITE_PATH" default:"puzzles.db"`
	}
	Stockfish struct {
		Path  string   `envconfig:"STOCKFISH_PATH"`
		Args  []string `envconfig:"STOCKFISH_ARGS"`
		Depth int      `envconfig:"STOCKFISH_DEPTH" default:"10" validate:"min=1,max=40"`
	}
	Lichess struct {
		URL      string `envconfig:"LICHESS_URL" default:"https://lichess.org" validate:"url"`
		MaxGames int    `envconfig:"LICHESS_MAX_GAMES" default:"20" validate:"min=1,max=300"`
	}
	PGN struct {
		RequireHeaders  bool `envconfig:"PGN_REQUIRE_HEADERS" default:"false"`
		ParseVariations bool `envconfig:"PGN_PARSE_VARIATIONS" default:"true"`
	}
}

// InitConfig reads the configuration from the environment and checks it.
func InitConfig() (*Configuration, error) {
	cfg := &Configuration{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Configuration) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Storage.Driver == DriverMongo && cfg.Database.Address == "" {
		return fmt.Errorf("invalid configuration: MONGO_ADDRESS is required for the mongo driver")
	}
	if cfg.Storage.Driver == DriverSQLite && cfg.SQLite.Path == "" {
		return fmt.Errorf("invalid configuration: SQLITE_PATH is required for the sqlite driver")
	}
	return nil
}
