package model

// Location references a charging location at any granularity. Any subset of
// the ids may be set; they are used to resolve the operator owning the
// location.
type Location struct {
	OperatorID string `json:"operator_id,omitempty"`
	PoolID     string `json:"pool_id,omitempty"`
	StationID  string `json:"station_id,omitempty"`
	EVSEID     string `json:"evse_id,omitempty"`
}

// IsZero reports whether no reference is set at all.
func (l Location) IsZero() bool {
	return l.OperatorID == "" && l.PoolID == "" && l.StationID == "" && l.EVSEID == ""
}

// Refs returns the non-empty references in operator, pool, station, EVSE order.
func (l Location) Refs() []string {
	refs := make([]string, 0, 4)
	for _, id := range []string{l.OperatorID, l.PoolID, l.StationID, l.EVSEID} {
		if id != "" {
			refs = append(refs, id)
		}
	}
	return refs
}

// ReservationLevel defines the granularity at which capacity is held.
type ReservationLevel int

const (
	LevelEVSE ReservationLevel = iota
	LevelStation
	LevelPool
)

// String returns a human-readable representation of the level.
func (l ReservationLevel) String() string {
	switch l {
	case LevelEVSE:
		return "EVSE"
	case LevelStation:
		return "Station"
	case LevelPool:
		return "Pool"
	default:
		return "unknown"
	}
}
