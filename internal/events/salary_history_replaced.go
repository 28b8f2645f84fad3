package events

import "time"

const (
	SalaryHistoryReplacedTopic     = "hr.compensation.salary_history.v1"
	SalaryHistoryReplacedEventType = "salary_history_replaced"

	// CompensationAggregateType tags outbox rows keyed by employee id.
	CompensationAggregateType = "employee_compensation"
)

// SalaryHistoryReplacedEvent is emitted after every committed overwrite of an
// employee's salary history. Operations lists the ledger operations applied
// in order.
type SalaryHistoryReplacedEvent struct {
	EventType         string    `json:"event_type"`
	RequestID         string    `json:"request_id,omitempty"`
	CompanyID         string    `json:"company_id"`
	EmployeeID        string    `json:"employee_id"`
	Mode              string    `json:"mode"`
	Operations        []string  `json:"operations"`
	CurrentRevisionID string    `json:"current_revision_id,omitempty"`
	Basic             string    `json:"basic"`
	OtherAllowance    string    `json:"other_allowance"`
	EntryCount        int       `json:"entry_count"`
	OccurredAt        time.Time `json:"occurred_at"`
}
