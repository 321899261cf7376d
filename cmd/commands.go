package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"recipebox/config"
	"recipebox/middlewares"
	"recipebox/routes"
	"recipebox/services"
	"recipebox/utils"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "recipebox",
		Short:         "Recipe manager web application",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env)")

	load := func() (*config.Config, error) {
		var files []string
		if envFile != "" {
			files = append(files, envFile)
		}
		cfg, err := config.Load(files...)
		if err != nil {
			return nil, err
		}
		utils.InitLogger(utils.LogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})
		return cfg, nil
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and serve HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := config.OpenDB(cfg)
			if err != nil {
				return err
			}
			if err := config.Migrate(db); err != nil {
				return err
			}
			utils.Logger().Info().Str("driver", cfg.DBDriver).Msg("database migrated")
			return nil
		},
	}

	var subject string
	var ttl time.Duration
	token := &cobra.Command{
		Use:   "token",
		Short: "Print an API token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			tok, err := utils.GenerateJWT(cfg.JWTSecret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	token.Flags().StringVar(&subject, "subject", "recipebox", "token subject")
	token.Flags().DurationVar(&ttl, "ttl", 72*time.Hour, "token lifetime")

	root.AddCommand(serve, migrate, token)
	root.RunE = serve.RunE
	return root
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	db, err := config.OpenDB(cfg)
	if err != nil {
		return err
	}
	if err := config.Migrate(db); err != nil {
		return err
	}

	deps := routes.Deps{
		DB:        db,
		Metrics:   middlewares.NewMetrics(),
		JWTSecret: cfg.JWTSecret,
	}

	switch cfg.PictureStorage {
	case "s3":
		awsCfg, err := utils.LoadAWSConfig(ctx, cfg.S3Region)
		if err != nil {
			return err
		}
		deps.Pictures = services.NewS3PictureStore(utils.NewS3Client(awsCfg), cfg.S3Bucket, cfg.S3Region, cfg.PicturesPublicURL)
	default:
		deps.Pictures = services.NewLocalPictureStore(cfg.MediaRoot, "/media")
		deps.MediaRoot = cfg.MediaRoot
	}

	if cfg.RekognitionEnabled {
		awsCfg, err := utils.LoadAWSConfig(ctx, cfg.S3Region)
		if err != nil {
			return err
		}
		deps.Suggester = services.NewRekognitionService(utils.NewRekognitionClient(awsCfg))
	}

	r, err := routes.SetupRouter(deps)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log := utils.WithComponent("server")
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("db", cfg.DBDriver).
			Str("pictures", cfg.PictureStorage).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}
