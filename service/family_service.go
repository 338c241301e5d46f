package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mgmassand/life-curriculum-assistant/db"
	"github.com/mgmassand/life-curriculum-assistant/model"
	"github.com/mgmassand/life-curriculum-assistant/repository"
)

// FamilyService exposes tenant data to members of that tenant only.
type FamilyService struct {
	conn     db.DBTX
	families repository.IFamilyRepository
}

func NewFamilyService(conn db.DBTX, families repository.IFamilyRepository) *FamilyService {
	return &FamilyService{conn: conn, families: families}
}

// VerifyFamilyAccess fails with ErrForbidden when user belongs to another family.
func VerifyFamilyAccess(user *model.User, familyID uuid.UUID) error {
	if user == nil || user.FamilyID != familyID {
		return ErrForbidden
	}
	return nil
}

func (s *FamilyService) GetFamily(ctx context.Context, user *model.User, familyID uuid.UUID) (*model.Family, error) {
	if err := VerifyFamilyAccess(user, familyID); err != nil {
		return nil, err
	}

	family, err := s.families.GetByID(ctx, s.conn, familyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFamilyNotFound
		}
		return nil, err
	}
	return family, nil
}
