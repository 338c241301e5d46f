package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/mgmassand/life-curriculum-assistant/common"
	"github.com/mgmassand/life-curriculum-assistant/logger"
	"github.com/mgmassand/life-curriculum-assistant/model"
	"github.com/mgmassand/life-curriculum-assistant/service"
	"github.com/sirupsen/logrus"
)

type IFamilyService interface {
	GetFamily(ctx context.Context, user *model.User, familyID uuid.UUID) (*model.Family, error)
}

type FamilyHandler struct {
	service IFamilyService
}

func NewFamilyHandler(service IFamilyService) *FamilyHandler {
	return &FamilyHandler{service: service}
}

// GetFamily godoc
// @Summary      Get the caller's family
// @Tags         families
// @Produce      json
// @Param        familyId path string true "Family ID"
// @Success      200  {object}  model.Family
// @Failure      401  {object}  common.AppError
// @Failure      403  {object}  common.AppError
// @Failure      404  {object}  common.AppError
// @Router       /api/families/{familyId} [get]
func (h *FamilyHandler) GetFamily(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, ok := CurrentUser(r.Context())
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Not authenticated", nil)
	}

	familyID, err := uuid.Parse(r.PathValue("familyId"))
	if err != nil {
		return common.NewAppError(http.StatusNotFound, "Family not found", nil)
	}

	family, err := h.service.GetFamily(r.Context(), user, familyID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			logger.Log.WithFields(logrus.Fields{
				"user_id":   user.ID,
				"family_id": familyID,
			}).Warn("Cross-family access denied")
			return common.NewAppError(http.StatusForbidden, "Access denied to this family's data", nil)
		case errors.Is(err, service.ErrFamilyNotFound):
			return common.NewAppError(http.StatusNotFound, "Family not found", nil)
		default:
			return common.Internal(err)
		}
	}

	common.WriteJSON(w, http.StatusOK, family)
	return nil
}
