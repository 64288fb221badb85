package domain

// Status is the SOS state-machine state.
type Status string

const (
	StatusIdle             Status = "IDLE"
	StatusGettingLocation  Status = "GETTING_LOCATION"
	StatusFindingHospitals Status = "FINDING_HOSPITALS"
	StatusContacting       Status = "CONTACTING"
	StatusCompleted        Status = "COMPLETED"
	StatusError            Status = "ERROR"
)

// Terminal reports whether only a reset can leave this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}
