package config

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mattsolo1/grove-casebook/pkg/handle"
	"github.com/mattsolo1/grove-casebook/pkg/handle/osfs"
	"github.com/mattsolo1/grove-casebook/pkg/handle/s3fs"
	"github.com/mattsolo1/grove-casebook/pkg/metrics"
	"github.com/mattsolo1/grove-casebook/pkg/registry"
	"github.com/mattsolo1/grove-casebook/pkg/session"
)

var (
	cfgFile  string
	rootFlag string
	UseS3    bool
)

func InitConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		configDir := filepath.Join(home, ".config", "cb")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CB")

	// Set defaults
	def := DefaultFile()
	viper.SetDefault("data_dir", def.DataDir)
	viper.SetDefault("editor", os.Getenv("EDITOR"))
	viper.SetDefault("log_level", def.LogLevel)
	viper.SetDefault("search.concurrency", def.Search.Concurrency)
	viper.SetDefault("watch", def.Watch)
	viper.SetDefault("metrics_addr", "")
	viper.SetDefault("s3.region", def.S3.Region)

	if err := viper.ReadInConfig(); err == nil {
		// Do not print this in normal operation, it's noisy.
		// fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/cb/config.yaml)")
	cmd.PersistentFlags().StringVarP(&rootFlag, "root", "R", "", "Directory to open instead of asking")
	cmd.PersistentFlags().BoolVar(&UseS3, "s3", false, "Open the configured S3 bucket/prefix instead of a local directory")
	cmd.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	viper.BindPFlag("metrics_addr", cmd.PersistentFlags().Lookup("metrics-addr"))
	viper.BindPFlag("root", cmd.PersistentFlags().Lookup("root"))
}

// NewLogger creates the process logger, writing to stderr at the configured
// level.
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)
	return logger
}

// App is everything a command needs. It is created once before any
// subcommand runs.
type App struct {
	Session  *session.Session
	Logger   *logrus.Logger
	Metrics  *metrics.Metrics
	Registry *registry.Registry
	Editor   string

	metricsServer *http.Server
}

func InitApp(ctx context.Context) (*App, error) {
	logger := NewLogger()
	app := &App{
		Logger:  logger,
		Metrics: metrics.New(),
		Editor:  viper.GetString("editor"),
	}

	reg, err := OpenRegistry()
	if err != nil {
		logger.WithError(err).Warn("Failed to open recent roots registry")
	}
	app.Registry = reg

	picker, err := NewPicker(ctx, reg, logger)
	if err != nil {
		return nil, err
	}

	app.Session = session.New(picker,
		session.WithLogger(logger),
		session.WithMetrics(app.Metrics),
		session.WithConcurrency(viper.GetInt("search.concurrency")),
	)

	if addr := viper.GetString("metrics_addr"); addr != "" {
		app.serveMetrics(addr)
	}
	return app, nil
}

// OpenRegistry opens the recent roots database in data_dir.
func OpenRegistry() (*registry.Registry, error) {
	return registry.NewRegistry(viper.GetString("data_dir"))
}

// NewPicker chooses how the root directory is obtained: the S3 bucket with
// --s3, the --root directory (or root in the config file), or an
// interactive prompt that defaults to the last local root.
func NewPicker(ctx context.Context, reg *registry.Registry, logger logrus.FieldLogger) (handle.Picker, error) {
	var picker handle.Picker
	switch {
	case UseS3:
		cfg := s3fs.Config{
			Endpoint:  viper.GetString("s3.endpoint"),
			Bucket:    viper.GetString("s3.bucket"),
			Prefix:    viper.GetString("s3.prefix"),
			Region:    viper.GetString("s3.region"),
			AccessKey: viper.GetString("s3.access_key"),
			SecretKey: viper.GetString("s3.secret_key"),
		}
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("--s3 requires s3.bucket to be configured")
		}
		client, err := s3fs.NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 client: %w", err)
		}
		picker = s3fs.Picker{Bucket: s3fs.NewBucket(client, cfg.Bucket), Prefix: cfg.Prefix}
	case viper.GetString("root") != "":
		picker = osfs.PathPicker{Path: viper.GetString("root")}
	default:
		prompt := osfs.PromptPicker{In: os.Stdin, Out: os.Stderr}
		if reg != nil {
			if last, err := reg.Last(registry.BackendOS); err == nil && last != nil {
				prompt.Default = last.Location
			}
		}
		picker = prompt
	}

	if reg == nil {
		return picker, nil
	}
	return &registry.RememberingPicker{Picker: picker, Registry: reg, Logger: logger}, nil
}

// Open picks and loads the root directory.
func (a *App) Open(ctx context.Context) error {
	if err := a.Session.OpenDirectory(ctx); err != nil {
		if errors.Is(err, handle.ErrCancelled) {
			return fmt.Errorf("no directory selected")
		}
		return err
	}
	return nil
}

func (a *App) serveMetrics(addr string) {
	a.metricsServer = &http.Server{
		Addr:              addr,
		Handler:           a.Metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.Logger.WithField("addr", addr).Info("Serving metrics")
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.WithError(err).Error("Metrics server failed")
		}
	}()
}

// Close releases the session, the registry and the metrics server.
func (a *App) Close() error {
	var errs []error
	if a.Session != nil {
		errs = append(errs, a.Session.Close())
	}
	if a.Registry != nil {
		errs = append(errs, a.Registry.Close())
	}
	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		errs = append(errs, a.metricsServer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
