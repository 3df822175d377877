package main

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/ideaboard/internal/config"
	"github.com/MarcoPoloResearchLab/ideaboard/internal/database"
	"github.com/MarcoPoloResearchLab/ideaboard/internal/ideas"
	"github.com/MarcoPoloResearchLab/ideaboard/internal/logging"
	"github.com/MarcoPoloResearchLab/ideaboard/internal/server"
	"github.com/MarcoPoloResearchLab/ideaboard/internal/uploads"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ideaboard-api",
		Short: "Idea board backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
		SilenceUsage: true,
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-host", defaults.GetString("http.host"), "HTTP listen host")
	cmd.PersistentFlags().Int("http-port", defaults.GetInt("http.port"), "HTTP listen port")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("uploads-dir", defaults.GetString("uploads.dir"), "Directory holding uploaded files")
	cmd.PersistentFlags().Int64("upload-max-bytes", defaults.GetInt64("uploads.max_bytes"), "Maximum upload and JSON body size in bytes")
	cmd.PersistentFlags().String("static-dir", defaults.GetString("static.dir"), "Directory holding the browser client")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Int("shutdown-timeout-seconds", defaults.GetInt("shutdown.timeout_seconds"), "Graceful shutdown timeout in seconds")

	bindFlag(cmd, "http.host", "http-host")
	bindFlag(cmd, "http.port", "http-port")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "uploads.dir", "uploads-dir")
	bindFlag(cmd, "uploads.max_bytes", "upload-max-bytes")
	bindFlag(cmd, "static.dir", "static-dir")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "shutdown.timeout_seconds", "shutdown-timeout-seconds")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if logging.ParseLevel(appConfig.LogLevel) != zapcore.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}

	store, err := ideas.NewStore(ideas.StoreConfig{
		Database: db,
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	fileStore, err := uploads.NewDiskStore(appConfig.UploadsDir)
	if err != nil {
		closeStore(store, logger)
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		IdeaStore:    store,
		FileStore:    fileStore,
		IDProvider:   ideas.NewUUIDProvider(),
		Logger:       logger,
		MaxBodyBytes: appConfig.UploadMaxBytes,
		StaticDir:    appConfig.StaticDir,
	})
	if err != nil {
		closeStore(store, logger)
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		closeStore(store, logger)
		return err
	}
	logger.Info("server starting", zap.String("address", listener.Addr().String()))

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(signalCtx, httpServer, listener, store, appConfig.ShutdownTimeout, logger)
}
