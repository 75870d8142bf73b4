package config

import (
	"fmt"

	mongostore "github.com/evroam/roaminghub/infra/store/mongo"
	pgstore "github.com/evroam/roaminghub/infra/store/postgres"
	redisstore "github.com/evroam/roaminghub/infra/store/redis"
)

// StoresConfig selects the persistence backends.
type StoresConfig struct {
	// SessionBackend is "memory" or "redis".
	SessionBackend string `json:"session_backend"`
	// ReservationBackend is "memory" or "mongo".
	ReservationBackend string `json:"reservation_backend"`
	// LedgerBackend is "none" or "postgres".
	LedgerBackend string `json:"ledger_backend"`

	Redis    redisstore.Config `json:"redis"`
	Mongo    mongostore.Config `json:"mongo"`
	Postgres pgstore.Config    `json:"postgres"`
}

// SetDefaults applies sane defaults.
func (c *StoresConfig) SetDefaults() {
	if c.SessionBackend == "" {
		c.SessionBackend = "memory"
	}
	if c.ReservationBackend == "" {
		c.ReservationBackend = "memory"
	}
	if c.LedgerBackend == "" {
		c.LedgerBackend = "none"
	}
}

// Validate checks backend names and mandatory connection settings.
func (c StoresConfig) Validate() error {
	switch c.SessionBackend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("stores: redis session backend needs an addr")
		}
	default:
		return fmt.Errorf("stores: unknown session backend %s", c.SessionBackend)
	}
	switch c.ReservationBackend {
	case "memory":
	case "mongo":
		if c.Mongo.URI == "" {
			return fmt.Errorf("stores: mongo reservation backend needs a uri")
		}
	default:
		return fmt.Errorf("stores: unknown reservation backend %s", c.ReservationBackend)
	}
	switch c.LedgerBackend {
	case "none":
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("stores: postgres ledger backend needs a dsn")
		}
	default:
		return fmt.Errorf("stores: unknown ledger backend %s", c.LedgerBackend)
	}
	return nil
}

// APIConfig defines the admin/inspection HTTP API settings.
type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}
