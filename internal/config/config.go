package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// EnvPrefix is prepended to every automatically bound environment variable.
// Credentials keep their historical unprefixed names, see bindCredentials.
const EnvPrefix = "MTGPIPE"

// Config holds the full application configuration
type Config struct {
	App          AppConfig
	Paths        PathsConfig
	HTTP         HTTPConfig
	Browser      BrowserConfig
	DragonShield DragonShieldConfig
	Moxfield     MoxfieldConfig
	Oracle       OracleConfig
	Convert      ConvertConfig
	Kafka        KafkaConfig
	Report       ReportConfig
}

type AppConfig struct {
	Name      string
	LogLevel  string
	LogFormat string
}

type PathsConfig struct {
	WorkDir string
}

type HTTPConfig struct {
	Timeout time.Duration
}

// BrowserConfig drives the headless Chrome used for interactive logins
type BrowserConfig struct {
	Bin               string
	Headless          bool
	NavigationTimeout time.Duration
}

type DragonShieldConfig struct {
	Username   string
	Password   string
	Token      string
	APIURL     string
	LoginURL   string
	FoldersURL string
	Folder     string
}

type MoxfieldConfig struct {
	Username  string
	Password  string
	Token     string
	APIURL    string
	SignInURL string
}

type OracleConfig struct {
	BulkIndexURL string
	DatasetType  string
	Snapshot     string
	MaxAge       time.Duration
}

type ConvertConfig struct {
	SkipInvalidRows bool
}

type KafkaConfig struct {
	Brokers    string
	RunsTopic  string
	CardsTopic string
}

// Enabled reports whether run events should be published
func (k KafkaConfig) Enabled() bool {
	return strings.TrimSpace(k.Brokers) != ""
}

type ReportConfig struct {
	XLSXPath string
}

// Load reads configuration from the optional config file, the environment and
// an optional .env file. An empty path searches the default locations.
func Load(path string) (*Config, error) {
	// .env only fills variables that are not already set
	if _, err := os.Stat(".env"); err == nil {
		if err := gotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindCredentials(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults and environment variables
	}

	return fromViper(v), nil
}

func bindCredentials(v *viper.Viper) error {
	bindings := map[string]string{
		"dragonshield.username": "DRAGONSHIELD_USERNAME",
		"dragonshield.password": "DRAGONSHIELD_PASSWORD",
		"dragonshield.token":    "DRAGONSHIELD_TOKEN",
		"moxfield.username":     "MOXFIELD_USERNAME",
		"moxfield.password":     "MOXFIELD_PASSWORD",
		"moxfield.token":        "MOXFIELD_TOKEN",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "mtg-collection-pipe")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "text")

	v.SetDefault("paths.work_dir", "downloads")
	v.SetDefault("http.timeout", 30*time.Minute)

	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout", 60*time.Second)

	v.SetDefault("dragonshield.api_url", "https://api-mtg.dragonshield.com/api/v1")
	v.SetDefault("dragonshield.login_url", "https://auth.dragonshield.com/Account/Login")
	v.SetDefault("dragonshield.folders_url", "https://mtg.dragonshield.com/folders")
	v.SetDefault("dragonshield.folder", "AUTO-IMPORT")

	v.SetDefault("moxfield.api_url", "https://api2.moxfield.com")
	v.SetDefault("moxfield.signin_url", "https://www.moxfield.com/account/signin")

	v.SetDefault("oracle.bulk_index_url", "https://api.scryfall.com/bulk-data")
	v.SetDefault("oracle.dataset_type", "oracle_cards")
	v.SetDefault("oracle.snapshot", "data.json")
	v.SetDefault("oracle.max_age", 7*24*time.Hour)

	v.SetDefault("convert.skip_invalid_rows", false)

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topics.runs", "mtg.collection.runs")
	v.SetDefault("kafka.topics.cards", "mtg.collection.cards")

	v.SetDefault("report.xlsx_path", "")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Name:      v.GetString("app.name"),
			LogLevel:  v.GetString("app.log_level"),
			LogFormat: v.GetString("app.log_format"),
		},
		Paths: PathsConfig{
			WorkDir: v.GetString("paths.work_dir"),
		},
		HTTP: HTTPConfig{
			Timeout: v.GetDuration("http.timeout"),
		},
		Browser: BrowserConfig{
			Bin:               v.GetString("browser.bin"),
			Headless:          v.GetBool("browser.headless"),
			NavigationTimeout: v.GetDuration("browser.navigation_timeout"),
		},
		DragonShield: DragonShieldConfig{
			Username:   v.GetString("dragonshield.username"),
			Password:   v.GetString("dragonshield.password"),
			Token:      v.GetString("dragonshield.token"),
			APIURL:     strings.TrimRight(v.GetString("dragonshield.api_url"), "/"),
			LoginURL:   v.GetString("dragonshield.login_url"),
			FoldersURL: v.GetString("dragonshield.folders_url"),
			Folder:     v.GetString("dragonshield.folder"),
		},
		Moxfield: MoxfieldConfig{
			Username:  v.GetString("moxfield.username"),
			Password:  v.GetString("moxfield.password"),
			Token:     v.GetString("moxfield.token"),
			APIURL:    strings.TrimRight(v.GetString("moxfield.api_url"), "/"),
			SignInURL: v.GetString("moxfield.signin_url"),
		},
		Oracle: OracleConfig{
			BulkIndexURL: v.GetString("oracle.bulk_index_url"),
			DatasetType:  v.GetString("oracle.dataset_type"),
			Snapshot:     v.GetString("oracle.snapshot"),
			MaxAge:       v.GetDuration("oracle.max_age"),
		},
		Convert: ConvertConfig{
			SkipInvalidRows: v.GetBool("convert.skip_invalid_rows"),
		},
		Kafka: KafkaConfig{
			Brokers:    v.GetString("kafka.brokers"),
			RunsTopic:  v.GetString("kafka.topics.runs"),
			CardsTopic: v.GetString("kafka.topics.cards"),
		},
		Report: ReportConfig{
			XLSXPath: v.GetString("report.xlsx_path"),
		},
	}
}
