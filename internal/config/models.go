package config

import (
	"time"

	"github.com/sinopehome/gt125/internal/gateway"
)

// CurrentVersion is the only file version this package reads.
const CurrentVersion = 1

// Serve mode defaults.
const (
	DefaultListen          = ":8080"
	DefaultPollInterval    = 15 * time.Minute
	DefaultReportInterval  = time.Hour
	DefaultRequestInterval = 250 * time.Millisecond
	DefaultTopicPrefix     = "gt125"
	DefaultMQTTClientID    = "gt125"
)

// Outdoor temperature providers.
const (
	OutdoorNone      = "none"
	OutdoorOpenMeteo = "open-meteo"
)

// Config is the whole configuration file.
type Config struct {
	Version  int           `yaml:"version"`
	Gateway  Gateway       `yaml:"gateway"`
	Devices  []DeviceEntry `yaml:"devices,omitempty"`
	Location Location      `yaml:"location,omitempty"`
	Serve    Serve         `yaml:"serve,omitempty"`
}

// Gateway locates and authenticates the GT125.
type Gateway struct {
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port,omitempty"`
	APIID     string        `yaml:"api_id"`  // 16 hex digits, wire order
	APIKey    string        `yaml:"api_key"` // 16 hex digits
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	KeepAlive bool          `yaml:"keep_alive,omitempty"`
}

// DeviceEntry is one paired device.
type DeviceEntry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name,omitempty"`
	Type int    `yaml:"type"`
}

// Location drives time reports and sunrise/sunset computation.
type Location struct {
	Timezone  string   `yaml:"timezone,omitempty"`
	Latitude  *float64 `yaml:"latitude,omitempty"`
	Longitude *float64 `yaml:"longitude,omitempty"`
}

// Serve configures the long-running mode.
type Serve struct {
	Listen          string        `yaml:"listen,omitempty"`
	PollInterval    time.Duration `yaml:"poll_interval,omitempty"`
	ReportInterval  time.Duration `yaml:"report_interval,omitempty"` // negative disables reports
	RequestInterval time.Duration `yaml:"request_interval,omitempty"`
	Outdoor         Outdoor       `yaml:"outdoor,omitempty"`
	MQTT            *MQTT         `yaml:"mqtt,omitempty"`
	LogFile         string        `yaml:"log_file,omitempty"`
}

// Outdoor selects where the outdoor temperature report comes from.
type Outdoor struct {
	Provider string `yaml:"provider,omitempty"`
}

// MQTT enables publishing device snapshots to a broker.
type MQTT struct {
	Broker      string `yaml:"broker"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
	ClientID    string `yaml:"client_id,omitempty"`
}

// New returns a configuration with defaults filled in.
func New() *Config {
	c := &Config{Version: CurrentVersion}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills every unset option that has a default.
func (c *Config) ApplyDefaults() {
	if c.Gateway.Port == 0 {
		c.Gateway.Port = gateway.DefaultPort
	}
	if c.Gateway.Timeout == 0 {
		c.Gateway.Timeout = gateway.DefaultTimeout
	}
	s := &c.Serve
	if s.Listen == "" {
		s.Listen = DefaultListen
	}
	if s.PollInterval == 0 {
		s.PollInterval = DefaultPollInterval
	}
	if s.ReportInterval == 0 {
		s.ReportInterval = DefaultReportInterval
	}
	if s.RequestInterval == 0 {
		s.RequestInterval = DefaultRequestInterval
	}
	if s.Outdoor.Provider == "" {
		s.Outdoor.Provider = OutdoorNone
	}
	if s.MQTT != nil {
		if s.MQTT.TopicPrefix == "" {
			s.MQTT.TopicPrefix = DefaultTopicPrefix
		}
		if s.MQTT.ClientID == "" {
			s.MQTT.ClientID = DefaultMQTTClientID
		}
	}
}

// HasCoordinates reports whether both latitude and longitude are set.
func (l Location) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}
