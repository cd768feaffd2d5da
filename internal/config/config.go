package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "compass.cfg.json"

// CurrentVersion is written by this release; older files trigger a warning.
const CurrentVersion = "1.2.0"

// DetectionConfig holds detection pipeline settings
type DetectionConfig struct {
	MaxDistance    float32 `json:"maxDistance" mapstructure:"maxDistance"`
	ClosestSummary bool    `json:"closestSummary" mapstructure:"closestSummary"`
}

// IslandConfig holds settings for the island sanctuary policy
type IslandConfig struct {
	Enabled                bool   `json:"enabled" mapstructure:"enabled"`
	DetectGathering        bool   `json:"detectGathering" mapstructure:"detectGathering"`
	DetectAnimals          bool   `json:"detectAnimals" mapstructure:"detectAnimals"`
	GatheringMask          uint32 `json:"gatheringMask" mapstructure:"gatheringMask"`
	AnimalMask             uint32 `json:"animalMask" mapstructure:"animalMask"`
	ShowNameGathering      bool   `json:"showNameGathering" mapstructure:"showNameGathering"`
	ShowNameAnimals        bool   `json:"showNameAnimals" mapstructure:"showNameAnimals"`
	HideOffscreenGathering bool   `json:"hideOffscreenGathering" mapstructure:"hideOffscreenGathering"`
	HideOffscreenAnimals   bool   `json:"hideOffscreenAnimals" mapstructure:"hideOffscreenAnimals"`
	AnimalSpecificIcons    bool   `json:"animalSpecificIcons" mapstructure:"animalSpecificIcons"`
}

// NotifyConfig holds notification settings
type NotifyConfig struct {
	Chat     bool          `json:"chat" mapstructure:"chat"`
	Toast    bool          `json:"toast" mapstructure:"toast"`
	Cue      bool          `json:"cue" mapstructure:"cue"`
	CueID    int           `json:"cueId" mapstructure:"cueId"`
	Cooldown time.Duration `json:"cooldown" mapstructure:"cooldown"`
}

// ZoneDataConfig selects where territory and map sheets are read from
type ZoneDataConfig struct {
	Type       string `json:"type" mapstructure:"type"`
	SQLitePath string `json:"sqlitePath" mapstructure:"sqlitePath"`
	SeedFile   string `json:"seedFile" mapstructure:"seedFile"`
}

// DBConfig holds Postgres connection settings
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// InfluxConfig holds InfluxDB settings
type InfluxConfig struct {
	Enabled  bool          `json:"enabled" mapstructure:"enabled"`
	Host     string        `json:"host" mapstructure:"host"`
	Port     string        `json:"port" mapstructure:"port"`
	Protocol string        `json:"protocol" mapstructure:"protocol"`
	Token    string        `json:"token" mapstructure:"token"`
	Org      string        `json:"org" mapstructure:"org"`
	Bucket   string        `json:"bucket" mapstructure:"bucket"`
	Interval time.Duration `json:"interval" mapstructure:"interval"`
}

// GraylogConfig holds GELF output settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// OverlayConfig holds the websocket overlay sink settings
type OverlayConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	URL     string `json:"url" mapstructure:"url"`
	Secret  string `json:"secret" mapstructure:"secret"`
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./compasslogs")
	viper.SetDefault("language", "en")
	viper.SetDefault("configVersion", CurrentVersion)

	viper.SetDefault("detection.maxDistance", 0)
	viper.SetDefault("detection.closestSummary", true)

	viper.SetDefault("island.enabled", true)
	viper.SetDefault("island.detectGathering", true)
	viper.SetDefault("island.detectAnimals", true)
	viper.SetDefault("island.gatheringMask", uint32(0xFFFFFFFF))
	viper.SetDefault("island.animalMask", uint32(0xFFFFFFFF))
	viper.SetDefault("island.showNameGathering", true)
	viper.SetDefault("island.showNameAnimals", true)
	viper.SetDefault("island.hideOffscreenGathering", false)
	viper.SetDefault("island.hideOffscreenAnimals", false)
	viper.SetDefault("island.animalSpecificIcons", true)

	viper.SetDefault("notify.chat", true)
	viper.SetDefault("notify.toast", false)
	viper.SetDefault("notify.cue", true)
	viper.SetDefault("notify.cueId", 1)
	viper.SetDefault("notify.cooldown", "3s")

	viper.SetDefault("zonedata.type", "memory")
	viper.SetDefault("zonedata.sqlitePath", "")
	viper.SetDefault("zonedata.seedFile", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "compass")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "compass-metrics")
	viper.SetDefault("influx.bucket", "compass_performance")
	viper.SetDefault("influx.interval", "10s")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "compass-radar")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("overlay.enabled", false)
	viper.SetDefault("overlay.url", "ws://localhost:5000/overlay")
	viper.SetDefault("overlay.secret", "")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// LoadDefaults installs the defaults without reading a file.
func LoadDefaults() {
	setDefaults()
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDetectionConfig returns the detection pipeline configuration
func GetDetectionConfig() DetectionConfig {
	return DetectionConfig{
		MaxDistance:    float32(viper.GetFloat64("detection.maxDistance")),
		ClosestSummary: viper.GetBool("detection.closestSummary"),
	}
}

// GetIslandConfig returns the island sanctuary policy configuration
func GetIslandConfig() IslandConfig {
	return IslandConfig{
		Enabled:                viper.GetBool("island.enabled"),
		DetectGathering:        viper.GetBool("island.detectGathering"),
		DetectAnimals:          viper.GetBool("island.detectAnimals"),
		GatheringMask:          viper.GetUint32("island.gatheringMask"),
		AnimalMask:             viper.GetUint32("island.animalMask"),
		ShowNameGathering:      viper.GetBool("island.showNameGathering"),
		ShowNameAnimals:        viper.GetBool("island.showNameAnimals"),
		HideOffscreenGathering: viper.GetBool("island.hideOffscreenGathering"),
		HideOffscreenAnimals:   viper.GetBool("island.hideOffscreenAnimals"),
		AnimalSpecificIcons:    viper.GetBool("island.animalSpecificIcons"),
	}
}

// GetNotifyConfig returns the notification configuration
func GetNotifyConfig() NotifyConfig {
	return NotifyConfig{
		Chat:     viper.GetBool("notify.chat"),
		Toast:    viper.GetBool("notify.toast"),
		Cue:      viper.GetBool("notify.cue"),
		CueID:    viper.GetInt("notify.cueId"),
		Cooldown: viper.GetDuration("notify.cooldown"),
	}
}

// GetZoneDataConfig returns the zone data source configuration
func GetZoneDataConfig() ZoneDataConfig {
	return ZoneDataConfig{
		Type:       viper.GetString("zonedata.type"),
		SQLitePath: viper.GetString("zonedata.sqlitePath"),
		SeedFile:   viper.GetString("zonedata.seedFile"),
	}
}

// GetDBConfig returns the Postgres connection configuration
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns the InfluxDB configuration
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
		Interval: viper.GetDuration("influx.interval"),
	}
}

// GetGraylogConfig returns the GELF output configuration
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetOverlayConfig returns the overlay sink configuration
func GetOverlayConfig() OverlayConfig {
	return OverlayConfig{
		Enabled: viper.GetBool("overlay.enabled"),
		URL:     viper.GetString("overlay.url"),
		Secret:  viper.GetString("overlay.secret"),
	}
}
