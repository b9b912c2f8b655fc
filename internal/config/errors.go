package config

import "errors"

// Config errors.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config")
	ErrDataDirEmpty       = errors.New("data_dir cannot be empty")
	ErrSlotEmpty          = errors.New("slot cannot be empty")
	ErrBackendUnknown     = errors.New("unknown backend")
	ErrRedisAddrEmpty     = errors.New("redis_addr is required for the redis backend")
	ErrRedisDBInvalid     = errors.New("redis_db must not be negative")
	ErrLockTimeout        = errors.New("invalid lock_timeout")
	ErrLogLevel           = errors.New("invalid log_level")
)
