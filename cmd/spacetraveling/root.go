package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	st "github.com/eringen/spacetraveling"
	"github.com/eringen/spacetraveling/logger"
	"github.com/eringen/spacetraveling/publish"
)

var (
	cfgFile string
	conf    *viper.Viper
	log     = slog.Default()
	flush   = func() {}
)

var rootCmd = &cobra.Command{
	Use:           "spacetraveling",
	Short:         "A blog front end for a headless content API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v, err := loadConfig(cfgFile)
		if err != nil {
			return err
		}
		conf = v
		log, flush = logger.Init(logger.Options{
			Dev:         v.GetBool("log.dev"),
			Level:       v.GetString("log.level"),
			SentryDSN:   v.GetString("log.sentry_dsn"),
			Environment: v.GetString("log.environment"),
			Release:     version,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./spacetraveling.yaml)")
	rootCmd.AddCommand(serveCmd, buildCmd, publishCmd, localAPICmd, seedCmd, versionCmd)
}

var defaults = map[string]any{
	"site.name":        "spacetraveling",
	"site.url":         "http://localhost:3000",
	"site.description": "",
	"site.author":      "",
	"site.locale":      "pt_BR",

	"server.addr":            ":3000",
	"server.session_secret":  "",
	"server.cookie_secure":   false,
	"server.more_rate_limit": 30,
	"server.prerender_limit": 20,

	"content.endpoint":      "http://localhost:4000/api/v2",
	"content.access_token":  "",
	"content.document_type": "posts",
	"content.page_size":     1,
	"content.timeout":       10 * time.Second,

	"build.output_dir": "out",
	"build.static_dir": "public",

	"publish.bucket":     "",
	"publish.region":     "us-east-1",
	"publish.prefix":     "",
	"publish.access_key": "",
	"publish.secret_key": "",
	"publish.endpoint":   "",

	"localapi.addr":         ":4000",
	"localapi.db":           "data/content.db",
	"localapi.media_dir":    "data/media",
	"localapi.base_url":     "http://localhost:4000",
	"localapi.access_token": "",
	"localapi.content_dir":  "content",

	"log.dev":         false,
	"log.level":       "",
	"log.sentry_dsn":  "",
	"log.environment": "development",
}

// loadConfig reads .env, the config file and SPACETRAVELING_* variables,
// in increasing order of precedence.
func loadConfig(path string) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("spacetraveling")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix("SPACETRAVELING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

func siteConfig(v *viper.Viper) st.SiteConfig {
	return st.SiteConfig{
		Name:           v.GetString("site.name"),
		URL:            v.GetString("site.url"),
		Description:    v.GetString("site.description"),
		Author:         v.GetString("site.author"),
		Locale:         v.GetString("site.locale"),
		Addr:           v.GetString("server.addr"),
		APIEndpoint:    v.GetString("content.endpoint"),
		AccessToken:    v.GetString("content.access_token"),
		DocumentType:   v.GetString("content.document_type"),
		PageSize:       v.GetInt("content.page_size"),
		PrerenderLimit: v.GetInt("server.prerender_limit"),
		OutputDir:      v.GetString("build.output_dir"),
		StaticDir:      v.GetString("build.static_dir"),
		SessionSecret:  v.GetString("server.session_secret"),
		CookieSecure:   v.GetBool("server.cookie_secure"),
		RequestTimeout: v.GetDuration("content.timeout"),
		MoreRateLimit:  v.GetInt("server.more_rate_limit"),
	}
}

func publishConfig(v *viper.Viper) publish.Config {
	return publish.Config{
		Region:    v.GetString("publish.region"),
		Bucket:    v.GetString("publish.bucket"),
		Prefix:    v.GetString("publish.prefix"),
		AccessKey: v.GetString("publish.access_key"),
		SecretKey: v.GetString("publish.secret_key"),
		Endpoint:  v.GetString("publish.endpoint"),
		Logger:    log,
	}
}
