package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Printer   PrinterConfig
	Razorpay  RazorpayConfig
	Seed      SeedConfig
}

type AppConfig struct {
	Name  string
	Env   string
	Port  string
	Debug bool
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite"
	Driver     string
	Host       string
	Port       string
	Name       string
	User       string
	Password   string
	SSLMode    string
	Timezone   string
	SQLitePath string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours time.Duration
	Issuer      string
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Requests int
	Duration int
}

// PrinterConfig controls the printer link and the print orchestrator
type PrinterConfig struct {
	// Mode is "network" for raw TCP printers or "none" to discard output
	Mode             string
	CharWidth        int
	PrintTimeout     time.Duration
	PingTimeout      time.Duration
	MaxAttempts      int
	RetryDelay       time.Duration
	SameProductGap   time.Duration
	ProductGap       time.Duration
	BillGap          time.Duration
	LogoPath         string
	DisableLogo      bool
	Workers          int
	QueueSize        int
	DiscoveryTimeout time.Duration
	Timezone         string
}

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	Currency  string
}

// Enabled reports whether gateway credentials are present
func (c *RazorpayConfig) Enabled() bool {
	return c.KeyID != "" && c.KeySecret != ""
}

// SeedConfig describes the unit created on first start when no units exist
type SeedConfig struct {
	UnitName    string
	UnitCode    string
	PrinterHost string
	PrinterPort int
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables: %v", err)
	}

	// Set defaults
	viper.SetDefault("APP_NAME", "canteen-kiosk")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_DEBUG", true)
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "canteen")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_TIMEZONE", "Asia/Kolkata")
	viper.SetDefault("DB_SQLITE_PATH", "canteen.db")
	viper.SetDefault("JWT_SECRET", "change-this-secret-in-production")
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("JWT_ISSUER", "canteen-kiosk")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{})
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_DURATION", 60)
	viper.SetDefault("PRINTER_MODE", "network")
	viper.SetDefault("PRINTER_CHAR_WIDTH", 32)
	viper.SetDefault("PRINTER_PRINT_TIMEOUT_MS", 5000)
	viper.SetDefault("PRINTER_PING_TIMEOUT_MS", 2000)
	viper.SetDefault("PRINTER_MAX_ATTEMPTS", 3)
	viper.SetDefault("PRINTER_RETRY_DELAY_MS", 1000)
	viper.SetDefault("PRINTER_SAME_PRODUCT_GAP_MS", 500)
	viper.SetDefault("PRINTER_PRODUCT_GAP_MS", 300)
	viper.SetDefault("PRINTER_BILL_GAP_MS", 300)
	viper.SetDefault("PRINTER_LOGO_PATH", "")
	viper.SetDefault("PRINTER_DISABLE_LOGO", false)
	viper.SetDefault("PRINTER_WORKERS", 2)
	viper.SetDefault("PRINTER_QUEUE_SIZE", 64)
	viper.SetDefault("PRINTER_DISCOVERY_TIMEOUT_MS", 3000)
	viper.SetDefault("PRINTER_TIMEZONE", "Asia/Kolkata")
	viper.SetDefault("RAZORPAY_CURRENCY", "INR")
	viper.SetDefault("SEED_UNIT_NAME", "Main Canteen")
	viper.SetDefault("SEED_UNIT_CODE", "MAIN")
	viper.SetDefault("SEED_UNIT_PRINTER_PORT", 9100)

	return &Config{
		App: AppConfig{
			Name:  viper.GetString("APP_NAME"),
			Env:   viper.GetString("APP_ENV"),
			Port:  viper.GetString("APP_PORT"),
			Debug: viper.GetBool("APP_DEBUG"),
		},
		Database: DatabaseConfig{
			Driver:     viper.GetString("DB_DRIVER"),
			Host:       viper.GetString("DB_HOST"),
			Port:       viper.GetString("DB_PORT"),
			Name:       viper.GetString("DB_NAME"),
			User:       viper.GetString("DB_USER"),
			Password:   viper.GetString("DB_PASSWORD"),
			SSLMode:    viper.GetString("DB_SSL_MODE"),
			Timezone:   viper.GetString("DB_TIMEZONE"),
			SQLitePath: viper.GetString("DB_SQLITE_PATH"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			ExpiryHours: time.Duration(viper.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
			Issuer:      viper.GetString("JWT_ISSUER"),
		},
		CORS: CORSConfig{
			AllowedOrigins: viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders: viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Duration: viper.GetInt("RATE_LIMIT_DURATION"),
		},
		Printer: PrinterConfig{
			Mode:             viper.GetString("PRINTER_MODE"),
			CharWidth:        viper.GetInt("PRINTER_CHAR_WIDTH"),
			PrintTimeout:     millis("PRINTER_PRINT_TIMEOUT_MS"),
			PingTimeout:      millis("PRINTER_PING_TIMEOUT_MS"),
			MaxAttempts:      viper.GetInt("PRINTER_MAX_ATTEMPTS"),
			RetryDelay:       millis("PRINTER_RETRY_DELAY_MS"),
			SameProductGap:   millis("PRINTER_SAME_PRODUCT_GAP_MS"),
			ProductGap:       millis("PRINTER_PRODUCT_GAP_MS"),
			BillGap:          millis("PRINTER_BILL_GAP_MS"),
			LogoPath:         viper.GetString("PRINTER_LOGO_PATH"),
			DisableLogo:      viper.GetBool("PRINTER_DISABLE_LOGO"),
			Workers:          viper.GetInt("PRINTER_WORKERS"),
			QueueSize:        viper.GetInt("PRINTER_QUEUE_SIZE"),
			DiscoveryTimeout: millis("PRINTER_DISCOVERY_TIMEOUT_MS"),
			Timezone:         viper.GetString("PRINTER_TIMEZONE"),
		},
		Razorpay: RazorpayConfig{
			KeyID:     viper.GetString("RAZORPAY_KEY_ID"),
			KeySecret: viper.GetString("RAZORPAY_KEY_SECRET"),
			Currency:  viper.GetString("RAZORPAY_CURRENCY"),
		},
		Seed: SeedConfig{
			UnitName:    viper.GetString("SEED_UNIT_NAME"),
			UnitCode:    viper.GetString("SEED_UNIT_CODE"),
			PrinterHost: viper.GetString("SEED_UNIT_PRINTER_HOST"),
			PrinterPort: viper.GetInt("SEED_UNIT_PRINTER_PORT"),
		},
	}
}

func millis(key string) time.Duration {
	return time.Duration(viper.GetInt(key)) * time.Millisecond
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.Timezone
}
