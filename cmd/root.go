package main

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/Granipouss/mtg-collection-pipe/internal/auth"
	"github.com/Granipouss/mtg-collection-pipe/internal/config"
	"github.com/Granipouss/mtg-collection-pipe/internal/dragonshield"
	"github.com/Granipouss/mtg-collection-pipe/internal/moxfield"
	"github.com/Granipouss/mtg-collection-pipe/internal/oracle"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *logrus.Logger
)

// rootCmd runs the full import when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "mtg-collection-pipe",
	Short: "Move cards from a DragonShield folder into a Moxfield collection",
	Long: `mtg-collection-pipe exports the AUTO-IMPORT folder of a DragonShield account,
converts it to a Moxfield collection import, uploads it and empties the folder
so it is ready for the next batch of scanned cards.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.App.LogLevel = logLevel
		}
		logger = newLogger(cfg.App)
		return nil
	},
	RunE: runImport,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is ./configs/config.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override app.log_level")

	rootCmd.AddCommand(runCmd, convertCmd, lookupCmd, refreshCmd, folderCmd)
}

func newLogger(app config.AppConfig) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	if app.LogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(app.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	return l
}

func httpClient() *http.Client {
	return &http.Client{Timeout: cfg.HTTP.Timeout}
}

func snapshotPath() string {
	if filepath.IsAbs(cfg.Oracle.Snapshot) {
		return cfg.Oracle.Snapshot
	}
	return filepath.Join(cfg.Paths.WorkDir, cfg.Oracle.Snapshot)
}

func newCache() *oracle.Cache {
	fetcher := oracle.NewFetcher(logger, httpClient(), cfg.Oracle.BulkIndexURL)
	return oracle.NewCache(fetcher, oracle.CacheConfig{
		Path:        snapshotPath(),
		MaxAge:      cfg.Oracle.MaxAge,
		DatasetType: cfg.Oracle.DatasetType,
	}, logger)
}

func newBrowser() *auth.Browser {
	return auth.NewBrowser(auth.BrowserConfig{
		Bin:               cfg.Browser.Bin,
		Headless:          cfg.Browser.Headless,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
	}, logger)
}

// dragonShieldAuth prefers a configured token over the browser login
func dragonShieldAuth() auth.Authenticator {
	ds := cfg.DragonShield
	if ds.Token != "" {
		logger.Debug("Using static DragonShield token")
		return auth.Static(ds.Token)
	}
	creds := auth.Credentials{Username: ds.Username, Password: ds.Password}
	return dragonshield.NewLogin(newBrowser(), creds, ds.LoginURL, ds.FoldersURL)
}

func moxfieldAuth() auth.Authenticator {
	mf := cfg.Moxfield
	if mf.Token != "" {
		logger.Debug("Using static Moxfield token")
		return auth.Static(mf.Token)
	}
	creds := auth.Credentials{Username: mf.Username, Password: mf.Password}
	return moxfield.NewLogin(newBrowser(), creds, mf.SignInURL, mf.APIURL)
}

func dragonShieldClient() *dragonshield.Client {
	return dragonshield.NewClient(logger, httpClient(), cfg.DragonShield.APIURL)
}
