package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appcart "github.com/storefront/backend/internal/application/cart"
	appcheckout "github.com/storefront/backend/internal/application/checkout"
	appevent "github.com/storefront/backend/internal/application/event"
	appinventory "github.com/storefront/backend/internal/application/inventory"
	apployalty "github.com/storefront/backend/internal/application/loyalty"
	apporder "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

var (
	customer = shared.Actor{UserID: uuid.New(), Email: "ana@example.com", Roles: []string{shared.RoleCustomer}}
	manager  = shared.Actor{UserID: uuid.New(), Email: "lee@example.com", Roles: []string{shared.RoleManager}}
	sale     = shared.Actor{UserID: uuid.New(), Email: "kim@example.com", Roles: []string{shared.RoleSale}}
)

// newTestRouter wires the request-id and gateway-header identity middleware
// the production router runs before every handler.
func newTestRouter(register func(r *gin.Engine)) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Identity(middleware.IdentityConfig{TrustHeaders: true}))
	register(r)
	return r
}

// do sends a request as actor; an anonymous actor sends no identity headers
func do(r http.Handler, as shared.Actor, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if !as.IsAnonymous() {
		req.Header.Set(middleware.UserIDHeader, as.UserID.String())
		req.Header.Set(middleware.UserEmailHeader, as.Email)
		req.Header.Set(middleware.UserRolesHeader, strings.Join(as.Roles, ","))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// dataInto re-decodes the response data into out
func dataInto(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func sameActor(want shared.Actor) any {
	return mock.MatchedBy(func(a shared.Actor) bool {
		return a.UserID == want.UserID
	})
}

type mockCheckoutService struct{ mock.Mock }

func (m *mockCheckoutService) Checkout(ctx context.Context, req appcheckout.Request) (*appcheckout.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcheckout.Result), args.Error(1)
}

type mockCartService struct{ mock.Mock }

func (m *mockCartService) cart(args mock.Arguments) (*appcart.CartResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcart.CartResponse), args.Error(1)
}

func (m *mockCartService) Get(ctx context.Context, actor shared.Actor) (*appcart.CartResponse, error) {
	return m.cart(m.Called(ctx, actor))
}

func (m *mockCartService) AddItem(ctx context.Context, actor shared.Actor, req appcart.AddItemRequest) (*appcart.CartResponse, error) {
	return m.cart(m.Called(ctx, actor, req))
}

func (m *mockCartService) UpdateItem(ctx context.Context, actor shared.Actor, productID uuid.UUID, req appcart.UpdateItemRequest) (*appcart.CartResponse, error) {
	return m.cart(m.Called(ctx, actor, productID, req))
}

func (m *mockCartService) RemoveItem(ctx context.Context, actor shared.Actor, productID uuid.UUID) (*appcart.CartResponse, error) {
	return m.cart(m.Called(ctx, actor, productID))
}

func (m *mockCartService) ApplyCoupon(ctx context.Context, actor shared.Actor, req appcart.ApplyCouponRequest) (*appcart.CartResponse, error) {
	return m.cart(m.Called(ctx, actor, req))
}

func (m *mockCartService) RemoveCoupon(ctx context.Context, actor shared.Actor) (*appcart.CartResponse, error) {
	return m.cart(m.Called(ctx, actor))
}

func (m *mockCartService) SetShipping(ctx context.Context, actor shared.Actor, req appcart.SetShippingRequest) (*appcart.CartResponse, error) {
	return m.cart(m.Called(ctx, actor, req))
}

func (m *mockCartService) Clear(ctx context.Context, actor shared.Actor) (*appcart.CartResponse, error) {
	return m.cart(m.Called(ctx, actor))
}

type mockOrderService struct{ mock.Mock }

func (m *mockOrderService) order(args mock.Arguments) (*apporder.OrderResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporder.OrderResponse), args.Error(1)
}

func (m *mockOrderService) Get(ctx context.Context, actor shared.Actor, id uuid.UUID) (*apporder.OrderResponse, error) {
	return m.order(m.Called(ctx, actor, id))
}

func (m *mockOrderService) List(ctx context.Context, actor shared.Actor, filter apporder.OrderListFilter) ([]apporder.OrderListItemResponse, int64, error) {
	args := m.Called(ctx, actor, filter)
	items, _ := args.Get(0).([]apporder.OrderListItemResponse)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *mockOrderService) History(ctx context.Context, actor shared.Actor, id uuid.UUID) ([]apporder.HistoryResponse, error) {
	args := m.Called(ctx, actor, id)
	h, _ := args.Get(0).([]apporder.HistoryResponse)
	return h, args.Error(1)
}

func (m *mockOrderService) Confirm(ctx context.Context, actor shared.Actor, id uuid.UUID, req apporder.TransitionRequest) (*apporder.OrderResponse, error) {
	return m.order(m.Called(ctx, actor, id, req))
}

func (m *mockOrderService) MarkPaid(ctx context.Context, actor shared.Actor, id uuid.UUID, req apporder.TransitionRequest) (*apporder.OrderResponse, error) {
	return m.order(m.Called(ctx, actor, id, req))
}

func (m *mockOrderService) Fulfill(ctx context.Context, actor shared.Actor, id uuid.UUID, req apporder.TransitionRequest) (*apporder.OrderResponse, error) {
	return m.order(m.Called(ctx, actor, id, req))
}

func (m *mockOrderService) Ship(ctx context.Context, actor shared.Actor, id uuid.UUID, req apporder.ShipOrderRequest) (*apporder.OrderResponse, error) {
	return m.order(m.Called(ctx, actor, id, req))
}

func (m *mockOrderService) Deliver(ctx context.Context, actor shared.Actor, id uuid.UUID, req apporder.TransitionRequest) (*apporder.OrderResponse, error) {
	return m.order(m.Called(ctx, actor, id, req))
}

func (m *mockOrderService) Complete(ctx context.Context, actor shared.Actor, id uuid.UUID, req apporder.TransitionRequest) (*apporder.OrderResponse, error) {
	return m.order(m.Called(ctx, actor, id, req))
}

func (m *mockOrderService) ResetToDraft(ctx context.Context, actor shared.Actor, id uuid.UUID, req apporder.TransitionRequest) (*apporder.OrderResponse, error) {
	return m.order(m.Called(ctx, actor, id, req))
}

func (m *mockOrderService) Cancel(ctx context.Context, actor shared.Actor, id uuid.UUID, req apporder.CancelOrderRequest) (*apporder.OrderResponse, error) {
	return m.order(m.Called(ctx, actor, id, req))
}

type mockReturnService struct{ mock.Mock }

func (m *mockReturnService) ret(args mock.Arguments) (*apporder.ReturnResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporder.ReturnResponse), args.Error(1)
}

func (m *mockReturnService) Request(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req apporder.CreateReturnRequest) (*apporder.ReturnResponse, error) {
	return m.ret(m.Called(ctx, actor, orderID, req))
}

func (m *mockReturnService) Get(ctx context.Context, actor shared.Actor, id uuid.UUID) (*apporder.ReturnResponse, error) {
	return m.ret(m.Called(ctx, actor, id))
}

func (m *mockReturnService) ListForOrder(ctx context.Context, actor shared.Actor, orderID uuid.UUID) ([]apporder.ReturnResponse, error) {
	args := m.Called(ctx, actor, orderID)
	list, _ := args.Get(0).([]apporder.ReturnResponse)
	return list, args.Error(1)
}

func (m *mockReturnService) Approve(ctx context.Context, actor shared.Actor, id uuid.UUID) (*apporder.ReturnResponse, error) {
	return m.ret(m.Called(ctx, actor, id))
}

func (m *mockReturnService) Reject(ctx context.Context, actor shared.Actor, id uuid.UUID, req apporder.RejectReturnRequest) (*apporder.ReturnResponse, error) {
	return m.ret(m.Called(ctx, actor, id, req))
}

func (m *mockReturnService) Refund(ctx context.Context, actor shared.Actor, id uuid.UUID) (*apporder.ReturnResponse, error) {
	return m.ret(m.Called(ctx, actor, id))
}

type mockInventoryService struct{ mock.Mock }

func (m *mockInventoryService) Stock(ctx context.Context, productID uuid.UUID) (*appinventory.StockLevel, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinventory.StockLevel), args.Error(1)
}

func (m *mockInventoryService) Adjust(ctx context.Context, productID uuid.UUID, delta int, reason string) (*appinventory.StockLevel, error) {
	args := m.Called(ctx, productID, delta, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinventory.StockLevel), args.Error(1)
}

type mockLoyaltyService struct{ mock.Mock }

func (m *mockLoyaltyService) account(args mock.Arguments) (*apployalty.AccountResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apployalty.AccountResponse), args.Error(1)
}

func (m *mockLoyaltyService) Get(ctx context.Context, actor shared.Actor) (*apployalty.AccountResponse, error) {
	return m.account(m.Called(ctx, actor))
}

func (m *mockLoyaltyService) GetFor(ctx context.Context, actor shared.Actor, userID uuid.UUID) (*apployalty.AccountResponse, error) {
	return m.account(m.Called(ctx, actor, userID))
}

func (m *mockLoyaltyService) Redeem(ctx context.Context, actor shared.Actor, req apployalty.RedeemRequest) (*apployalty.AccountResponse, error) {
	return m.account(m.Called(ctx, actor, req))
}

func (m *mockLoyaltyService) Adjust(ctx context.Context, actor shared.Actor, userID uuid.UUID, req apployalty.AdjustRequest) (*apployalty.AccountResponse, error) {
	return m.account(m.Called(ctx, actor, userID, req))
}

type mockOutboxService struct{ mock.Mock }

func (m *mockOutboxService) DeadLetters(ctx context.Context, actor shared.Actor, filter appevent.DeadLetterFilter) (*appevent.DeadLetterPage, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appevent.DeadLetterPage), args.Error(1)
}

func (m *mockOutboxService) Retry(ctx context.Context, actor shared.Actor, id uuid.UUID) (*appevent.OutboxEntryResponse, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appevent.OutboxEntryResponse), args.Error(1)
}

func (m *mockOutboxService) RetryAll(ctx context.Context, actor shared.Actor) (int64, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOutboxService) Stats(ctx context.Context, actor shared.Actor) (*appevent.OutboxStats, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appevent.OutboxStats), args.Error(1)
}

func anonymous() shared.Actor { return shared.Actor{} }
