package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mgmassand/life-curriculum-assistant/db"
	"github.com/mgmassand/life-curriculum-assistant/logger"
	"github.com/mgmassand/life-curriculum-assistant/model"
)

// IFamilyRepository defines the contract for family (tenant) database operations.
type IFamilyRepository interface {
	Create(ctx context.Context, q db.DBTX, family *model.Family) error
	GetByID(ctx context.Context, q db.DBTX, id uuid.UUID) (*model.Family, error)
}

type FamilyRepository struct{}

func NewFamilyRepository() *FamilyRepository {
	return &FamilyRepository{}
}

// Create adds a new family to the database.
func (r *FamilyRepository) Create(ctx context.Context, q db.DBTX, family *model.Family) error {
	log := logger.Log.WithField("family_id", family.ID)
	log.Info("Executing query to create a new family")

	query := `INSERT INTO families (id, name) VALUES ($1, $2)
		RETURNING subscription_tier, is_active, created_at, updated_at`
	err := q.QueryRowContext(ctx, query, family.ID, family.Name).
		Scan(&family.SubscriptionTier, &family.IsActive, &family.CreatedAt, &family.UpdatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create family query")
		return fmt.Errorf("create family: %w", err)
	}
	return nil
}

func (r *FamilyRepository) GetByID(ctx context.Context, q db.DBTX, id uuid.UUID) (*model.Family, error) {
	log := logger.Log.WithField("family_id", id)

	family := &model.Family{}
	query := `SELECT id, name, subscription_tier, is_active, created_at, updated_at FROM families WHERE id = $1`
	err := q.QueryRowContext(ctx, query, id).
		Scan(&family.ID, &family.Name, &family.SubscriptionTier, &family.IsActive, &family.CreatedAt, &family.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Info("Family not found")
			return nil, ErrNotFound
		}
		log.WithError(err).Error("Failed to execute get family query")
		return nil, fmt.Errorf("get family: %w", err)
	}
	return family, nil
}
