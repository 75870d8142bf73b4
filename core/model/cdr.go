package model

import "time"

// ChargeDetailRecord is the settlement record for a completed charging
// session. EMPRoamingProviderID, when set, is the explicit settlement target;
// records without it are resolved by the settlement cascade.
type ChargeDetailRecord struct {
	SessionID            string   `json:"session_id"`
	EMPRoamingProviderID string   `json:"emp_roaming_provider_id,omitempty"`
	ProviderID           string   `json:"provider_id,omitempty"`
	Location             Location `json:"location"`

	StartIdentification Identification `json:"start_identification,omitempty"`
	StopIdentification  Identification `json:"stop_identification,omitempty"`

	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at"`
	EnergyKWh float64   `json:"energy_kwh"`
}
