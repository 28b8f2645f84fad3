package events

import "time"

const (
	EmployeeCreatedTopic     = "hr.employee.lifecycle.v1"
	EmployeeCreatedEventType = "employee_created"
)

type EmployeeCreatedEvent struct {
	EventType     string     `json:"event_type"`
	RequestID     string     `json:"request_id,omitempty"`
	EmployeeID    string     `json:"employee_id"`
	CompanyID     string     `json:"company_id"`
	DateOfJoining *time.Time `json:"date_of_joining,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}
