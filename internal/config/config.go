package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Supabase SupabaseConfig
	Firebase FirebaseConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port string
}

type SupabaseConfig struct {
	URL            string
	ServiceRoleKey string `mapstructure:"service_role_key"`
	Profile        string
}

type FirebaseConfig struct {
	ProjectID          string `mapstructure:"project_id"`
	ServiceAccountJSON string `mapstructure:"service_account_json"`
	TokenURL           string `mapstructure:"token_url"`
	SendBaseURL        string `mapstructure:"send_base_url"`
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RabbitMQConfig struct {
	URL          string
	Exchange     string
	ResultsQueue string `mapstructure:"results_queue"`
}

type AuthConfig struct {
	WebhookSecret string `mapstructure:"webhook_secret"`
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Set defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.service_role_key", "")
	v.SetDefault("supabase.profile", "rpl")
	v.SetDefault("firebase.project_id", "")
	v.SetDefault("firebase.service_account_json", "")
	v.SetDefault("firebase.token_url", "https://oauth2.googleapis.com/token")
	v.SetDefault("firebase.send_base_url", "https://fcm.googleapis.com")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.exchange", "notifications.direct")
	v.SetDefault("rabbitmq.results_queue", "push.results")
	v.SetDefault("auth.webhook_secret", "")

	// Read from environment
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The deployment sets these under their Supabase/Firebase names.
	v.BindEnv("supabase.url", "SUPABASE_URL")
	v.BindEnv("supabase.service_role_key", "SUPABASE_SERVICE_ROLE_KEY")
	v.BindEnv("firebase.project_id", "FIREBASE_PROJECT_ID")
	v.BindEnv("firebase.service_account_json", "GOOGLE_SERVICE_ACCOUNT_JSON")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found, use environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// MissingEnv reports whether any of the four required values is absent.
// The push handler refuses to do any outbound work without them.
func (c *Config) MissingEnv() bool {
	return c.Supabase.URL == "" ||
		c.Supabase.ServiceRoleKey == "" ||
		c.Firebase.ProjectID == "" ||
		c.Firebase.ServiceAccountJSON == ""
}
