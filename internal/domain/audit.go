package domain

import (
	"encoding/json"
	"time"
)

// AuditLog represents an audit trail entry for compliance and debugging
type AuditLog struct {
	ID           string
	ActorID      string // Who performed the action
	Action       string // What action (distribution.settle, wallet.credit, ...)
	ResourceType string // Type of resource (distribution, wallet)
	ResourceID   string // ID of the resource
	RequestID    string // Request ID for tracing
	AfterState   JSON   // State after the action
	Status       string // success, failure, error
	ErrorMessage string // If status=error, the error message
	CreatedAt    time.Time
}

// JSON is a type alias for JSON data
type JSON map[string]any

// AuditAction represents different types of auditable actions
type AuditAction string

const (
	AuditActionDistributionSettle AuditAction = "distribution.settle"
	AuditActionWalletCredit       AuditAction = "wallet.credit"
	AuditActionWalletDebit        AuditAction = "wallet.debit"
	AuditActionWalletHold         AuditAction = "wallet.hold"
	AuditActionWalletRelease      AuditAction = "wallet.release"
)

// AuditStatus represents the status of an audited action
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
)

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// AuditFilter defines filters for querying audit logs
type AuditFilter struct {
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
	Limit        int
	Offset       int
}
