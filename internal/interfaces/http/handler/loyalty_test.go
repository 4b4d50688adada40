package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apployalty "github.com/storefront/backend/internal/application/loyalty"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func loyaltyRouter(svc LoyaltyService) *gin.Engine {
	h := NewLoyaltyHandler(svc)
	return newTestRouter(func(r *gin.Engine) {
		r.GET("/api/v1/loyalty", h.Get)
		r.POST("/api/v1/loyalty/redeem", h.Redeem)
		r.GET("/api/v1/admin/loyalty/:user_id", h.GetForUser)
		r.POST("/api/v1/admin/loyalty/:user_id/adjust", h.Adjust)
	})
}

func TestLoyaltyHandler_CustomerRoutes(t *testing.T) {
	svc := new(mockLoyaltyService)
	svc.On("Get", mock.Anything, sameActor(customer)).
		Return(&apployalty.AccountResponse{UserID: customer.UserID, AvailablePoints: 120, Tier: "SILVER"}, nil)
	svc.On("Redeem", mock.Anything, sameActor(customer), apployalty.RedeemRequest{Points: 500}).
		Return(nil, shared.NewDomainError(shared.CodeInsufficientPoints, "Not enough points"))
	r := loyaltyRouter(svc)

	w := do(r, customer, http.MethodGet, "/api/v1/loyalty", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got apployalty.AccountResponse
	dataInto(t, w, &got)
	assert.Equal(t, 120, got.AvailablePoints)

	w = do(r, customer, http.MethodPost, "/api/v1/loyalty/redeem", `{"points":500}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, shared.CodeInsufficientPoints, decode(t, w).Error.Code)

	w = do(r, customer, http.MethodPost, "/api/v1/loyalty/redeem", `{"points":-5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestLoyaltyHandler_StaffRoutes(t *testing.T) {
	userID := uuid.New()
	svc := new(mockLoyaltyService)
	svc.On("GetFor", mock.Anything, sameActor(manager), userID).
		Return(&apployalty.AccountResponse{UserID: userID}, nil)
	svc.On("Adjust", mock.Anything, sameActor(manager), userID, apployalty.AdjustRequest{Points: -20, Reason: "goodwill reversal"}).
		Return(&apployalty.AccountResponse{UserID: userID, AvailablePoints: 80}, nil)
	r := loyaltyRouter(svc)

	w := do(r, manager, http.MethodGet, "/api/v1/admin/loyalty/"+userID.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, manager, http.MethodPost, "/api/v1/admin/loyalty/"+userID.String()+"/adjust",
		`{"points":-20,"reason":"goodwill reversal"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	svc.AssertExpectations(t)
}
