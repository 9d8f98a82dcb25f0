package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	"github.com/angelmondragon/haulmart-backend/pkg/types"
)

// Service appends audit entries. Callers pass the transaction the audited
// change runs in so both commit or neither does.
type Service interface {
	LogAction(ctx context.Context, tx *gorm.DB, entry Entry) (*models.AuditLog, error)
	History(ctx context.Context, entityType enums.AuditEntityType, entityID uuid.UUID) ([]models.AuditLog, error)
}

type service struct {
	repo Repository
}

// Entry captures the immutable data of one audited action.
type Entry struct {
	Action      enums.AuditAction
	EntityType  enums.AuditEntityType
	EntityID    uuid.UUID
	PerformedBy *uuid.UUID
	ActorRole   enums.ActorRole
	Details     types.AuditDetails
}

// NewService wires an audit service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) LogAction(ctx context.Context, tx *gorm.DB, entry Entry) (*models.AuditLog, error) {
	if !entry.Action.IsValid() {
		return nil, fmt.Errorf("invalid audit action %q", entry.Action)
	}
	if !entry.EntityType.IsValid() {
		return nil, fmt.Errorf("invalid audit entity type %q", entry.EntityType)
	}
	if entry.EntityID == uuid.Nil {
		return nil, fmt.Errorf("entity id is required")
	}

	record := &models.AuditLog{
		Action:      entry.Action,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		PerformedBy: entry.PerformedBy,
		Details:     entry.Details,
	}
	if entry.ActorRole != "" {
		role := entry.ActorRole
		record.ActorRole = &role
	}

	if err := s.repo.WithTx(tx).Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) History(ctx context.Context, entityType enums.AuditEntityType, entityID uuid.UUID) ([]models.AuditLog, error) {
	if entityID == uuid.Nil {
		return nil, fmt.Errorf("entity id is required")
	}
	return s.repo.ListByEntity(ctx, entityType, entityID)
}
