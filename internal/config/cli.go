package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// CliConfig holds the daemon options. It is filled by multiconfig from
// struct defaults, environment variables and flags.
type CliConfig struct {
	SettingsFile string `default:"/etc/solard.yaml"`
	CountersFile string `default:"/var/lib/solard/power.yaml"`
	LogFile      string `default:"/var/log/solard.log"`
	DataFile     string `default:"/run/shm/solard_data.csv"`
	TableFile    string `default:"/run/shm/solard_current.txt"`
	JSONFile     string `default:"/run/shm/solard_current.json"`
	EnvFile      string `default:"/etc/solard.env"`
	LogLevel     string `default:"info"`

	HTTPAddr       string `default:":80"`
	Broker         string
	EmbeddedBroker string
	ClientID       string `default:"solard"`

	GPIOChip       string `default:"gpiochip0"`
	PinPump1       int    `default:"17"`
	PinPump2       int    `default:"18"`
	PinValve       int    `default:"27"`
	PinHeater      int    `default:"22"`
	PinBattery     int    `default:"23"`
	RelayActiveLow bool

	SensorFurnace    string `default:"/sys/bus/w1/devices/28-0000025ec0f1/w1_slave"`
	SensorCollector  string `default:"/sys/bus/w1/devices/28-00000245b8b2/w1_slave"`
	SensorBoilerHigh string `default:"/sys/bus/w1/devices/28-0000025f49a4/w1_slave"`
	SensorBoilerLow  string `default:"/sys/bus/w1/devices/28-000002469e28/w1_slave"`

	PrintState bool
}

// SensorPaths returns the sensor files in channel order.
func (c *CliConfig) SensorPaths() []string {
	return []string{c.SensorFurnace, c.SensorCollector, c.SensorBoilerHigh, c.SensorBoilerLow}
}

// Environment variable names for broker credentials.
const (
	EnvMQTTUsername = "SOLARD_MQTT_USERNAME"
	EnvMQTTPassword = "SOLARD_MQTT_PASSWORD"
)

// Credentials for the MQTT broker.
type Credentials struct {
	Username string
	Password string
}

// LoadCredentials reads broker credentials from the process environment,
// falling back to the env file at path. A missing file is not an error.
func LoadCredentials(path string) (Credentials, error) {
	vals := map[string]string{}
	if path != "" {
		m, err := godotenv.Read(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, fmt.Errorf("read env file: %w", err)
		}
		if m != nil {
			vals = m
		}
	}

	get := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return vals[key]
	}
	return Credentials{
		Username: get(EnvMQTTUsername),
		Password: get(EnvMQTTPassword),
	}, nil
}
