package common

import "time"

// MongoConfig points the persistence adapters at a database.
type MongoConfig struct {
	URI    string
	DBName string
}

// RedisConfig backs the distributed LockManager.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig verifies the bearer credential presented on a WebSocket
// handshake.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// SchedulerConfig tunes the matchmaking scheduler tick. RelaxationStep,
// MaxRelaxationStep and RelaxationFloor are loaded from the environment but
// not read by the relaxation ladder, which uses package constants.
type SchedulerConfig struct {
	TickInterval      time.Duration
	RelaxationStep    time.Duration
	MaxRelaxationStep int
	RelaxationFloor   float64
}

// LockConfig selects and tunes the LockManager implementation.
type LockConfig struct {
	// Backend is "redis" or "memory".
	Backend string
	TTL     time.Duration
}

type Config struct {
	Env       string
	Mongo     MongoConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Scheduler SchedulerConfig
	Lock      LockConfig
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == ""
}
