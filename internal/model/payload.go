package model

// WelcomePayload is the broker message body for a welcome notification.
// It is rebuilt from a fresh employee fetch on every (re)publish so retries
// carry current data, never the snapshot taken at create time.
type WelcomePayload struct {
	EmployeeID uint64 `json:"employee_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Position   string `json:"position"`
	JobLevel   string `json:"job_level"`
	Department string `json:"department"`
}

// FromEmployee builds the wire payload for e.
func FromEmployee(e *Employee) WelcomePayload {
	return WelcomePayload{
		EmployeeID: e.ID,
		Name:       e.Name,
		Email:      e.Email,
		Position:   e.Position,
		JobLevel:   e.JobLevel,
		Department: e.Department,
	}
}
