package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Sink types
const (
	SinkFile   = "file"
	SinkSheets = "sheets"
	SinkSQLite = "sqlite"
	SinkInflux = "influx"
	SinkMQTT   = "mqtt"
	SinkMemory = "memory"
)

// Sensor types
const (
	SensorMock = "mock"
	SensorDHT  = "dht"
)

// Config holds application configuration
type Config struct {
	SensorType  string // "mock" | "dht"
	SensorKind  string // "DHT22" | "DHT11"
	SensorPin   string // BCM number or periph pin name
	ReadRetries int

	MoistureEnabled bool
	MoistureChannel int    // MCP3008 channel, 0-7
	MoistureSPIPort string // empty picks the first SPI port

	PollInterval  time.Duration
	ReadCooldown  time.Duration
	WriteBackoff  time.Duration
	MaxReconnects int

	SinkType string // one of the Sink* constants

	FilePath string

	CredentialsFile string
	SheetName       string
	SheetID         string

	DBPath string

	InfluxURL         string
	InfluxToken       string
	InfluxOrg         string
	InfluxBucket      string
	InfluxMeasurement string

	MQTTBroker   string
	MQTTClientID string
	MQTTTopic    string
	MQTTUsername string
	MQTTPassword string

	StatusAddr string // gRPC health address; empty disables
	TLSCert    string // path to this service's certificate
	TLSKey     string // path to this service's private key
	TLSCA      string // path to the CA certificate

	LogLevel string
}

// Load reads configuration from the environment, after loading .env if present
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads configuration from environment variables only
func FromEnv() (Config, error) {
	var errs []error

	interval := durationEnv("POLL_INTERVAL", 10*time.Second, &errs)

	cfg := Config{
		SensorType:  getEnv("SENSOR_TYPE", SensorMock),
		SensorKind:  strings.ToUpper(getEnv("SENSOR_KIND", "DHT22")),
		SensorPin:   getEnv("SENSOR_PIN", "4"),
		ReadRetries: intEnv("SENSOR_READ_RETRIES", 15, &errs),

		MoistureEnabled: boolEnv("MOISTURE_ENABLED", false, &errs),
		MoistureChannel: intEnv("MOISTURE_CHANNEL", 0, &errs),
		MoistureSPIPort: os.Getenv("MOISTURE_SPI_PORT"),

		PollInterval:  interval,
		ReadCooldown:  durationEnv("READ_COOLDOWN", 2*time.Second, &errs),
		WriteBackoff:  durationEnv("WRITE_BACKOFF", interval, &errs),
		MaxReconnects: intEnv("MAX_RECONNECTS", 5, &errs),

		SinkType: getEnv("SINK_TYPE", SinkFile),
		FilePath: getEnv("FILE_PATH", "readings.csv"),

		CredentialsFile: os.Getenv("GOOGLE_CREDENTIALS_FILE"),
		SheetName:       getEnv("GOOGLE_SHEET_NAME", "dht22sensor"),
		SheetID:         os.Getenv("GOOGLE_SHEET_ID"),

		DBPath: getEnv("DB_PATH", "./climate.db"),

		InfluxURL:         os.Getenv("INFLUX_URL"),
		InfluxToken:       os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:         os.Getenv("INFLUX_ORG"),
		InfluxBucket:      os.Getenv("INFLUX_BUCKET"),
		InfluxMeasurement: getEnv("INFLUX_MEASUREMENT", "climate"),

		MQTTBroker:   os.Getenv("MQTT_BROKER"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "climate-logger"),
		MQTTTopic:    getEnv("MQTT_TOPIC", "plant/climate"),
		MQTTUsername: os.Getenv("MQTT_USERNAME"),
		MQTTPassword: os.Getenv("MQTT_PASSWORD"),

		StatusAddr: os.Getenv("STATUS_ADDR"),
		TLSCert:    os.Getenv("TLS_CERT"),
		TLSKey:     os.Getenv("TLS_KEY"),
		TLSCA:      os.Getenv("TLS_CA"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, errors.Join(errs...)
}

// Validate reports every configuration problem at once
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.SensorType {
	case SensorMock, SensorDHT:
	default:
		add("SENSOR_TYPE %q: want mock or dht", c.SensorType)
	}
	if c.SensorKind != "DHT22" && c.SensorKind != "DHT11" {
		add("SENSOR_KIND %q: want DHT22 or DHT11", c.SensorKind)
	}
	if c.SensorPin == "" {
		add("SENSOR_PIN is required")
	}
	if c.ReadRetries < 1 {
		add("SENSOR_READ_RETRIES must be at least 1")
	}
	if c.MoistureEnabled && (c.MoistureChannel < 0 || c.MoistureChannel > 7) {
		add("MOISTURE_CHANNEL %d: want 0-7", c.MoistureChannel)
	}

	if c.PollInterval <= 0 {
		add("POLL_INTERVAL must be positive")
	}
	if c.ReadCooldown <= 0 || c.ReadCooldown >= c.PollInterval {
		add("READ_COOLDOWN %v must be positive and shorter than POLL_INTERVAL %v", c.ReadCooldown, c.PollInterval)
	}
	if c.WriteBackoff <= 0 {
		add("WRITE_BACKOFF must be positive")
	}
	if c.MaxReconnects < 0 {
		add("MAX_RECONNECTS must not be negative")
	}

	switch c.SinkType {
	case SinkFile:
		if c.FilePath == "" {
			add("FILE_PATH is required for the file sink")
		}
	case SinkSheets:
		if c.CredentialsFile == "" {
			add("GOOGLE_CREDENTIALS_FILE is required for the sheets sink")
		}
		if c.SheetName == "" && c.SheetID == "" {
			add("GOOGLE_SHEET_NAME or GOOGLE_SHEET_ID is required for the sheets sink")
		}
	case SinkSQLite:
		if c.DBPath == "" {
			add("DB_PATH is required for the sqlite sink")
		}
	case SinkInflux:
		if c.InfluxURL == "" || c.InfluxOrg == "" || c.InfluxBucket == "" {
			add("INFLUX_URL, INFLUX_ORG and INFLUX_BUCKET are required for the influx sink")
		}
	case SinkMQTT:
		if c.MQTTBroker == "" || c.MQTTTopic == "" {
			add("MQTT_BROKER and MQTT_TOPIC are required for the mqtt sink")
		}
	case SinkMemory:
	default:
		add("SINK_TYPE %q: want file, sheets, sqlite, influx, mqtt or memory", c.SinkType)
	}

	if n := countSet(c.TLSCert, c.TLSKey, c.TLSCA); n != 0 && n != 3 {
		add("TLS_CERT, TLS_KEY and TLS_CA must be set together")
	}

	return errors.Join(errs...)
}

// TLSEnabled reports whether certificates were configured
func (c Config) TLSEnabled() bool {
	return c.TLSCert != ""
}

func countSet(vals ...string) int {
	n := 0
	for _, v := range vals {
		if v != "" {
			n++
		}
	}
	return n
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func intEnv(key string, defaultValue int, errs *[]error) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return v
}

func boolEnv(key string, defaultValue bool, errs *[]error) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return v
}

// durationEnv accepts Go durations ("30s") or a bare number of seconds ("30")
func durationEnv(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}
