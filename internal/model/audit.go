package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	Actor      string          `json:"actor" db:"actor"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   string          `json:"entity_id" db:"entity_id"`
	Changes    json.RawMessage `json:"changes" db:"changes"`
	Metadata   json.RawMessage `json:"metadata" db:"metadata"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	// Action types
	AuditActionConfirm    = "confirm"
	AuditActionReschedule = "reschedule"
	AuditActionCancel     = "cancel"
	AuditActionSetDay     = "set_day"

	// Entity types
	AuditEntityAppointment  = "appointment"
	AuditEntityAvailability = "availability_day"

	// Actors
	AuditActorCustomer = "customer"
	AuditActorOperator = "operator"
	AuditActorSystem   = "system"
)

type AuditLogFilters struct {
	EntityType string
	EntityID   string
	Action     string
	Since      time.Time
	Limit      int
}
