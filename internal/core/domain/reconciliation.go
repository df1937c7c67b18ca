package domain

import "time"

// Reconciliation records a saga that failed after one or more writes were
// applied and whose compensating writes also failed. The rows it names are
// in an inconsistent state until an operator repairs them by hand.
type Reconciliation struct {
	Operation string            `json:"operation"`
	Step      string            `json:"step"`
	Detail    map[string]string `json:"detail,omitempty"`
	Cause     string            `json:"cause"`
	UndoCause string            `json:"undo_cause"`
	At        time.Time         `json:"at"`
}
