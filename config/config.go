package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string
	GinMode  string

	DBDriver   string // postgres, mysql or sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string // sqlite file, ":memory:" allowed

	PictureStorage    string // local or s3
	MediaRoot         string
	S3Bucket          string
	S3Region          string
	PicturesPublicURL string

	RekognitionEnabled bool
	JWTSecret          string

	LogLevel  string
	LogFormat string
}

// Load reads .env (when present) and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	cfg := &Config{
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		GinMode:           os.Getenv("GIN_MODE"),
		DBDriver:          strings.ToLower(getenv("DB_DRIVER", "postgres")),
		DBHost:            getenv("DB_HOST", "localhost"),
		DBPort:            os.Getenv("DB_PORT"),
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBName:            getenv("DB_NAME", "recipes"),
		DBPath:            getenv("DB_PATH", "recipes.db"),
		PictureStorage:    strings.ToLower(getenv("PICTURE_STORAGE", "local")),
		MediaRoot:         getenv("MEDIA_ROOT", "media"),
		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3Region:          getenv("S3_REGION", os.Getenv("AWS_REGION")),
		PicturesPublicURL: strings.TrimSuffix(os.Getenv("PICTURES_PUBLIC_URL"), "/"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		LogFormat:         getenv("LOG_FORMAT", "json"),
	}

	if v := os.Getenv("REKOGNITION_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("REKOGNITION_ENABLED: %w", err)
		}
		cfg.RekognitionEnabled = enabled
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.PictureStorage {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when PICTURE_STORAGE=s3")
		}
	default:
		return fmt.Errorf("unsupported PICTURE_STORAGE %q", c.PictureStorage)
	}
	if c.RekognitionEnabled && c.S3Region == "" {
		return errors.New("AWS_REGION is required when REKOGNITION_ENABLED is set")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
