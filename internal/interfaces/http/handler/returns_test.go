package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apporder "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func returnRouter(svc ReturnService) *gin.Engine {
	h := NewReturnHandler(svc)
	return newTestRouter(func(r *gin.Engine) {
		r.POST("/api/v1/orders/:id/returns", h.Request)
		r.GET("/api/v1/orders/:id/returns", h.ListForOrder)
		r.GET("/api/v1/returns/:id", h.Get)
		r.POST("/api/v1/returns/:id/approve", h.Approve)
		r.POST("/api/v1/returns/:id/reject", h.Reject)
		r.POST("/api/v1/returns/:id/refund", h.Refund)
	})
}

func TestReturnHandler_Request(t *testing.T) {
	orderID, itemID := uuid.New(), uuid.New()
	svc := new(mockReturnService)
	svc.On("Request", mock.Anything, sameActor(customer), orderID, apporder.CreateReturnRequest{
		OrderItemID: itemID,
		Quantity:    1,
		Reason:      "damaged",
	}).Return(&apporder.ReturnResponse{ID: uuid.New(), OrderID: orderID, Status: "REQUESTED"}, nil)

	body := `{"order_item_id":"` + itemID.String() + `","quantity":1,"reason":"damaged"}`
	w := do(returnRouter(svc), customer, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/returns", body)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var got apporder.ReturnResponse
	dataInto(t, w, &got)
	assert.Equal(t, "REQUESTED", got.Status)
	svc.AssertExpectations(t)
}

func TestReturnHandler_RequestValidation(t *testing.T) {
	svc := new(mockReturnService)
	body := `{"order_item_id":"` + uuid.NewString() + `","quantity":0}`
	w := do(returnRouter(svc), customer, http.MethodPost, "/api/v1/orders/"+uuid.NewString()+"/returns", body)

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	fields := make([]string, 0, len(resp.Error.Fields))
	for _, f := range resp.Error.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"quantity", "reason"}, fields)
	assert.Empty(t, svc.Calls)
}

func TestReturnHandler_StaffDecisions(t *testing.T) {
	id := uuid.New()
	svc := new(mockReturnService)
	svc.On("Approve", mock.Anything, sameActor(manager), id).Return(&apporder.ReturnResponse{ID: id, Status: "APPROVED"}, nil)
	svc.On("Reject", mock.Anything, sameActor(manager), id, apporder.RejectReturnRequest{Reason: "worn"}).
		Return(&apporder.ReturnResponse{ID: id, Status: "REJECTED"}, nil)
	svc.On("Refund", mock.Anything, sameActor(manager), id).
		Return(nil, shared.NewDomainError(shared.CodeInvalidState, "Return is not approved"))
	r := returnRouter(svc)

	w := do(r, manager, http.MethodPost, "/api/v1/returns/"+id.String()+"/approve", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, manager, http.MethodPost, "/api/v1/returns/"+id.String()+"/reject", `{"reason":"worn"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, manager, http.MethodPost, "/api/v1/returns/"+id.String()+"/refund", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	svc.AssertExpectations(t)
}

func TestReturnHandler_ListForOrder(t *testing.T) {
	orderID := uuid.New()
	svc := new(mockReturnService)
	svc.On("ListForOrder", mock.Anything, sameActor(customer), orderID).
		Return([]apporder.ReturnResponse{{ID: uuid.New()}, {ID: uuid.New()}}, nil)

	w := do(returnRouter(svc), customer, http.MethodGet, "/api/v1/orders/"+orderID.String()+"/returns", "")

	require.Equal(t, http.StatusOK, w.Code)
	var got []apporder.ReturnResponse
	dataInto(t, w, &got)
	assert.Len(t, got, 2)
}
