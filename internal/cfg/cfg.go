package cfg

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"traffic-predictor/internal/common"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Port           int
	Env            string
	LogLevel       string
	StaticDir      string
	AllowedOrigins []string

	BasePath       string
	ModelFile      string
	EncodersFile   string
	DetectorsFile  string
	TrafficFile    string
	ClusteringFile string
	ForecastPrefix string
	CityCode       string
	CachePath      string

	RemoteBaseURL    string
	RemoteModelID    string
	RemoteEncodersID string
	RemoteTrafficID  string
	DownloadTimeout  time.Duration
}

type ConfigFile struct {
	Server struct {
		Port           int      `yaml:"port"`
		Env            string   `yaml:"env"`
		LogLevel       string   `yaml:"logLevel"`
		StaticDir      string   `yaml:"staticDir"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`

	Data struct {
		BasePath       string `yaml:"basePath"`
		DetectorsFile  string `yaml:"detectorsFile"`
		TrafficFile    string `yaml:"trafficFile"`
		ClusteringFile string `yaml:"clusteringFile"`
		ForecastPrefix string `yaml:"forecastPrefix"`
		CityCode       string `yaml:"cityCode"`
		CachePath      string `yaml:"cachePath"`
	} `yaml:"data"`

	Model struct {
		ModelFile    string `yaml:"modelFile"`
		EncodersFile string `yaml:"encodersFile"`
	} `yaml:"model"`

	Remote struct {
		BaseURL    string `yaml:"baseURL"`
		Timeout    string `yaml:"timeout"`
		ModelID    string `yaml:"modelID"`
		EncodersID string `yaml:"encodersID"`
		TrafficID  string `yaml:"trafficID"`
	} `yaml:"remote"`
}

// Load reads .env (when present), then CONFIG_FILE if set, otherwise the environment.
func Load() (Settings, error) {
	_ = godotenv.Load()

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	timeout, err := time.ParseDuration(config.Remote.Timeout)
	if err != nil {
		timeout = 5 * time.Minute
	}

	settings := Settings{
		Port:           getIntFromEnvOrConfig(common.EnvPort, config.Server.Port, common.DefaultPort),
		Env:            appEnv(config.Server.Env),
		LogLevel:       getEnvOrDefault(common.EnvLogLevel, orDefault(config.Server.LogLevel, common.DefaultLogLevel)),
		StaticDir:      getEnvOrDefault(common.EnvStaticDir, config.Server.StaticDir),
		AllowedOrigins: getListFromEnvOrConfig(common.EnvAllowedOrigins, config.Server.AllowedOrigins),

		BasePath:       getEnvOrDefault(common.EnvBasePath, orDefault(config.Data.BasePath, common.DefaultBasePath)),
		ModelFile:      getEnvOrDefault(common.EnvModelFile, orDefault(config.Model.ModelFile, common.DefaultModelFile)),
		EncodersFile:   getEnvOrDefault(common.EnvEncodersFile, orDefault(config.Model.EncodersFile, common.DefaultEncodersFile)),
		DetectorsFile:  getEnvOrDefault(common.EnvDetectorsFile, orDefault(config.Data.DetectorsFile, common.DefaultDetectorsFile)),
		TrafficFile:    getEnvOrDefault(common.EnvTrafficFile, orDefault(config.Data.TrafficFile, common.DefaultTrafficFile)),
		ClusteringFile: getEnvOrDefault(common.EnvClusteringFile, orDefault(config.Data.ClusteringFile, common.DefaultClusteringFile)),
		ForecastPrefix: getEnvOrDefault(common.EnvForecastPrefix, orDefault(config.Data.ForecastPrefix, common.DefaultForecastPrefix)),
		CityCode:       getEnvOrDefault(common.EnvCityCode, orDefault(config.Data.CityCode, common.DefaultCityCode)),
		CachePath:      getEnvOrDefault(common.EnvCachePath, config.Data.CachePath),

		RemoteBaseURL:    getEnvOrDefault(common.EnvRemoteBaseURL, orDefault(config.Remote.BaseURL, common.DefaultRemoteBaseURL)),
		RemoteModelID:    getEnvOrDefault(common.EnvRemoteModelID, config.Remote.ModelID),
		RemoteEncodersID: getEnvOrDefault(common.EnvRemoteEncoderID, config.Remote.EncodersID),
		RemoteTrafficID:  getEnvOrDefault(common.EnvRemoteTrafficID, config.Remote.TrafficID),
		DownloadTimeout:  getDurationOrDefault(common.EnvDownloadTimeout, timeout),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		Port:           getIntOrDefault(common.EnvPort, common.DefaultPort),
		Env:            appEnv(""),
		LogLevel:       getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		StaticDir:      os.Getenv(common.EnvStaticDir), // optional
		AllowedOrigins: splitOrDefault(os.Getenv(common.EnvAllowedOrigins), []string{"*"}),

		BasePath:       getEnvOrDefault(common.EnvBasePath, common.DefaultBasePath),
		ModelFile:      getEnvOrDefault(common.EnvModelFile, common.DefaultModelFile),
		EncodersFile:   getEnvOrDefault(common.EnvEncodersFile, common.DefaultEncodersFile),
		DetectorsFile:  getEnvOrDefault(common.EnvDetectorsFile, common.DefaultDetectorsFile),
		TrafficFile:    getEnvOrDefault(common.EnvTrafficFile, common.DefaultTrafficFile),
		ClusteringFile: getEnvOrDefault(common.EnvClusteringFile, common.DefaultClusteringFile),
		ForecastPrefix: getEnvOrDefault(common.EnvForecastPrefix, common.DefaultForecastPrefix),
		CityCode:       getEnvOrDefault(common.EnvCityCode, common.DefaultCityCode),
		CachePath:      os.Getenv(common.EnvCachePath), // optional

		RemoteBaseURL:    getEnvOrDefault(common.EnvRemoteBaseURL, common.DefaultRemoteBaseURL),
		RemoteModelID:    os.Getenv(common.EnvRemoteModelID),
		RemoteEncodersID: os.Getenv(common.EnvRemoteEncoderID),
		RemoteTrafficID:  os.Getenv(common.EnvRemoteTrafficID),
		DownloadTimeout:  getDurationOrDefault(common.EnvDownloadTimeout, 5*time.Minute),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// Debug reports whether the process runs in development mode.
func (s *Settings) Debug() bool {
	return s.Env == common.DefaultAppEnv
}

// Resolve joins name onto BasePath unless it is already absolute.
func (s *Settings) Resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.BasePath, name)
}

// appEnv prefers APP_ENV, then the legacy FLASK_ENV, then the config value.
func appEnv(configValue string) string {
	if v := os.Getenv(common.EnvAppEnv); v != "" {
		return v
	}
	if v := os.Getenv(common.EnvFlaskEnv); v != "" {
		return v
	}
	return orDefault(configValue, common.DefaultAppEnv)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getListFromEnvOrConfig(key string, configValue []string) []string {
	if env := os.Getenv(key); env != "" {
		return splitOrDefault(env, nil)
	}
	if len(configValue) > 0 {
		return configValue
	}
	return []string{"*"}
}

// validateSettings rejects values the server cannot start with.
func validateSettings(settings *Settings) error {
	if settings.Port < common.MinPort || settings.Port > common.MaxPort {
		return fmt.Errorf("port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.Port)
	}

	if settings.DownloadTimeout < time.Second || settings.DownloadTimeout > time.Hour {
		return fmt.Errorf("download timeout must be between 1s and 1h, got %v", settings.DownloadTimeout)
	}

	if strings.TrimSpace(settings.CityCode) == "" {
		return fmt.Errorf("city code cannot be empty")
	}

	if settings.BasePath == "" {
		return fmt.Errorf("base path cannot be empty")
	}

	if settings.ModelFile == "" || settings.EncodersFile == "" {
		return fmt.Errorf("model and encoders file names are required")
	}

	if settings.RemoteBaseURL == "" && (settings.RemoteModelID != "" || settings.RemoteEncodersID != "" || settings.RemoteTrafficID != "") {
		return fmt.Errorf("remote base URL is required when remote artifact ids are set")
	}

	return nil
}
