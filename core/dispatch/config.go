package dispatch

import "time"

// Config defines dispatch-related settings.
type Config struct {
	// AuthTimeoutSeconds bounds the authorization race when the caller's
	// context carries no sooner deadline.
	AuthTimeoutSeconds int `json:"auth_timeout_seconds"`
	// LockTimeoutSeconds bounds registry lock acquisition.
	LockTimeoutSeconds int `json:"lock_timeout_seconds"`
	// MaxReservationMinutes caps reservation durations; longer requests are
	// clamped to this value.
	MaxReservationMinutes int `json:"max_reservation_minutes"`
	// Disabled starts the dispatcher in the administratively-down state.
	Disabled bool `json:"disabled"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.AuthTimeoutSeconds <= 0 {
		c.AuthTimeoutSeconds = 45
	}
	if c.LockTimeoutSeconds <= 0 {
		c.LockTimeoutSeconds = 5
	}
	if c.MaxReservationMinutes <= 0 {
		c.MaxReservationMinutes = 15
	}
}

// AuthTimeout returns the configured race timeout.
func (c Config) AuthTimeout() time.Duration {
	return time.Duration(c.AuthTimeoutSeconds) * time.Second
}

// MaxReservationDuration returns the configured reservation cap.
func (c Config) MaxReservationDuration() time.Duration {
	return time.Duration(c.MaxReservationMinutes) * time.Minute
}
