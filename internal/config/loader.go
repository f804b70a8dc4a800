package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/consiglab/importer/internal/db"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// ImportConfig holds pipeline settings: upload directory, size cap and the
// named batch presets.
type ImportConfig struct {
	UploadDir   string
	MaxFileSize int64
	Presets     map[string]int
}

// Config is the full application configuration.
type Config struct {
	DB       db.Config
	Server   ServerConfig
	Import   ImportConfig
	LogLevel string
}

// Load reads config.yaml from configPath with environment overrides.
func Load(configPath string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults and env vars")
	}

	cfg := Config{
		DB: db.DefaultConfig(),
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Import: ImportConfig{
			UploadDir:   "./uploads",
			MaxFileSize: 600 << 20,
			Presets: map[string]int{
				"conservative": 50,
				"balanced":     150,
				"aggressive":   500,
			},
		},
		LogLevel: "info",
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("IMPORTER")

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("server.addr")
	v.BindEnv("log.level")

	if err := v.ReadInConfig(); err != nil {
		log.Println("No config.yaml found, using defaults and env vars")
	}

	if v.IsSet("database.host") {
		cfg.DB.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.DB.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.DB.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.DB.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.DB.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.DB.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("import.upload_dir") {
		cfg.Import.UploadDir = v.GetString("import.upload_dir")
	}
	if v.IsSet("import.max_file_size") {
		cfg.Import.MaxFileSize = v.GetInt64("import.max_file_size")
	}
	if v.IsSet("import.presets") {
		presets := map[string]int{}
		for name, size := range v.GetStringMap("import.presets") {
			if n, ok := size.(int); ok && n > 0 {
				presets[name] = n
			}
		}
		if len(presets) > 0 {
			cfg.Import.Presets = presets
		}
	}
	if v.IsSet("log.level") {
		cfg.LogLevel = v.GetString("log.level")
	}

	return cfg, nil
}
