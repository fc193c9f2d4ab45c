package ioc

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	common "github.com/matchcore/core/pkg/domain"
)

// buildMongoURI constructs a MongoDB connection URI with credentials if provided.
func buildMongoURI() string {
	uri := os.Getenv("MONGO_URI")

	user := os.Getenv("MONGODB_USER")
	password := os.Getenv("MONGODB_PASSWORD")

	if user != "" && password != "" && uri != "" {
		parsed, err := url.Parse(uri)
		if err == nil && parsed.User == nil {
			parsed.User = url.UserPassword(user, password)
			q := parsed.Query()
			if q.Get("authSource") == "" {
				q.Set("authSource", "admin")
				parsed.RawQuery = q.Encode()
			}
			return parsed.String()
		}
	}

	if uri == "" {
		host := os.Getenv("MONGODB_HOST")
		port := os.Getenv("MONGODB_PORT")
		dbName := os.Getenv("MONGODB_DATABASE")
		if host != "" && port != "" && dbName != "" {
			if user != "" && password != "" {
				uri = fmt.Sprintf("mongodb://%s:%s@%s:%s/%s?authSource=admin",
					url.QueryEscape(user), url.QueryEscape(password), host, port, dbName)
			} else {
				uri = fmt.Sprintf("mongodb://%s:%s/%s", host, port, dbName)
			}
		}
	}

	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	return uri
}

func envInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envFloat(name string, fallback float64) float64 {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// EnvironmentConfig loads the process Config from the environment, with
// sane defaults for local/dev runs.
func EnvironmentConfig() (common.Config, error) {
	dbName := os.Getenv("MONGODB_DATABASE")
	if dbName == "" {
		dbName = "matchcore"
	}

	lockBackend := os.Getenv("LOCK_BACKEND")
	if lockBackend == "" {
		lockBackend = "memory"
	}

	config := common.Config{
		Env: os.Getenv("ENV"),
		Mongo: common.MongoConfig{
			URI:    buildMongoURI(),
			DBName: dbName,
		},
		Redis: common.RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
		},
		JWT: common.JWTConfig{
			Secret:   os.Getenv("JWT_SECRET"),
			Issuer:   os.Getenv("JWT_ISSUER"),
			Audience: os.Getenv("JWT_AUDIENCE"),
		},
		Scheduler: common.SchedulerConfig{
			TickInterval:      envDuration("SCHEDULER_TICK_INTERVAL", 5*time.Second),
			RelaxationStep:    envDuration("SCHEDULER_RELAXATION_STEP", 30*time.Second),
			MaxRelaxationStep: envInt("SCHEDULER_MAX_RELAXATION_STEP", 10),
			RelaxationFloor:   envFloat("SCHEDULER_RELAXATION_FLOOR", 0.35),
		},
		Lock: common.LockConfig{
			Backend: lockBackend,
			TTL:     envDuration("LOCK_TTL", 10*time.Second),
		},
	}

	return config, nil
}
