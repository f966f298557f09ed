package config

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/viper"
)

type AppCfg struct {
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

type JWTCfg struct {
	Secret   string `mapstructure:"secret"`
	TTLHours int    `mapstructure:"ttl_hours"`
}

type MongoCfg struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisCfg struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaCfg struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicEvents string   `mapstructure:"topic_events"`
}

type GroupCfg struct {
	ConfirmationWindowHours  int `mapstructure:"confirmation_window_hours"`
	ExpireBufferMinutes      int `mapstructure:"expire_buffer_minutes"`
	SchedulerIntervalSeconds int `mapstructure:"scheduler_interval_seconds"`
	MaxActivePerCreator      int `mapstructure:"max_active_per_creator"`
}

type WSCfg struct {
	PingIntervalSeconds  int   `mapstructure:"ping_interval_seconds"`
	WriteDeadlineSeconds int   `mapstructure:"write_deadline_seconds"`
	ReadDeadlineSeconds  int   `mapstructure:"read_deadline_seconds"`
	MaxMessageSizeBytes  int64 `mapstructure:"max_message_size_bytes"`
}

type OverpassCfg struct {
	Enabled        bool   `mapstructure:"enabled"`
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type RateLimitCfg struct {
	AuthPerMinute int `mapstructure:"auth_per_minute"`
}

type Config struct {
	App       AppCfg       `mapstructure:"app"`
	JWT       JWTCfg       `mapstructure:"jwt"`
	Mongo     MongoCfg     `mapstructure:"mongo"`
	Redis     RedisCfg     `mapstructure:"redis"`
	Kafka     KafkaCfg     `mapstructure:"kafka"`
	Group     GroupCfg     `mapstructure:"group"`
	WS        WSCfg        `mapstructure:"ws"`
	Overpass  OverpassCfg  `mapstructure:"overpass"`
	RateLimit RateLimitCfg `mapstructure:"rate_limit"`

	// derived
	JWTTTL             time.Duration
	ConfirmationWindow time.Duration
	ExpireBuffer       time.Duration
	SchedulerInterval  time.Duration
	PingInterval       time.Duration
	WriteDeadline      time.Duration
	ReadDeadline       time.Duration
	OverpassTimeout    time.Duration
}

// Load reads the config file at path (if it exists) with APP_* env overrides.
// A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if c.JWT.Secret == "" {
		c.JWT.Secret = os.Getenv("APP_JWT_SECRET")
	}
	if c.JWT.Secret == "" {
		return nil, errors.New("jwt secret is required (jwt.secret or APP_JWT_SECRET)")
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Port == "" {
		c.App.Port = "8080"
	}
	if c.JWT.TTLHours == 0 {
		c.JWT.TTLHours = 72
	}
	if c.Group.ConfirmationWindowHours == 0 {
		c.Group.ConfirmationWindowHours = 24
	}
	if c.Group.ExpireBufferMinutes == 0 {
		c.Group.ExpireBufferMinutes = 30
	}
	if c.Group.SchedulerIntervalSeconds == 0 {
		c.Group.SchedulerIntervalSeconds = 60
	}
	if c.Group.MaxActivePerCreator == 0 {
		c.Group.MaxActivePerCreator = 2
	}
	if c.WS.PingIntervalSeconds == 0 {
		c.WS.PingIntervalSeconds = 25
	}
	if c.WS.WriteDeadlineSeconds == 0 {
		c.WS.WriteDeadlineSeconds = 10
	}
	if c.WS.ReadDeadlineSeconds == 0 {
		c.WS.ReadDeadlineSeconds = 60
	}
	if c.WS.MaxMessageSizeBytes == 0 {
		c.WS.MaxMessageSizeBytes = 65536
	}
	if c.Overpass.URL == "" {
		c.Overpass.URL = "https://overpass-api.de/api/interpreter"
	}
	if c.Overpass.TimeoutSeconds == 0 {
		c.Overpass.TimeoutSeconds = 10
	}
	if c.RateLimit.AuthPerMinute == 0 {
		c.RateLimit.AuthPerMinute = 10
	}
	if c.Kafka.TopicEvents == "" {
		c.Kafka.TopicEvents = "localgroup.events"
	}

	c.JWTTTL = time.Duration(c.JWT.TTLHours) * time.Hour
	c.ConfirmationWindow = time.Duration(c.Group.ConfirmationWindowHours) * time.Hour
	c.ExpireBuffer = time.Duration(c.Group.ExpireBufferMinutes) * time.Minute
	c.SchedulerInterval = time.Duration(c.Group.SchedulerIntervalSeconds) * time.Second
	c.PingInterval = time.Duration(c.WS.PingIntervalSeconds) * time.Second
	c.WriteDeadline = time.Duration(c.WS.WriteDeadlineSeconds) * time.Second
	c.ReadDeadline = time.Duration(c.WS.ReadDeadlineSeconds) * time.Second
	c.OverpassTimeout = time.Duration(c.Overpass.TimeoutSeconds) * time.Second
}
