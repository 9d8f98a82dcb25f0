package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	"github.com/angelmondragon/haulmart-backend/pkg/types"
)

// AuditLog is an append-only record of a money or state affecting action.
type AuditLog struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Action      enums.AuditAction     `gorm:"column:action;not null"`
	EntityType  enums.AuditEntityType `gorm:"column:entity_type;not null"`
	EntityID    uuid.UUID             `gorm:"column:entity_id;type:uuid;not null;index"`
	PerformedBy *uuid.UUID            `gorm:"column:performed_by;type:uuid"`
	ActorRole   *enums.ActorRole      `gorm:"column:actor_role"`
	Details     types.AuditDetails    `gorm:"column:details;type:jsonb;serializer:json"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (a *AuditLog) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}
