package dashboardservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"almox/internal/domain"
	apperror "almox/internal/errors"
	"almox/internal/pkg/cache"
	"almox/internal/pkg/logger"
	"almox/internal/service/dashboardservice"
)

// MockRequestCounter é uma implementação mock da interface RequestCounter
type MockRequestCounter struct {
	mock.Mock
}

func (m *MockRequestCounter) CountByStatus(ctx context.Context, statuses ...domain.RequestStatus) (int, error) {
	callArgs := make([]interface{}, 0, len(statuses)+1)
	callArgs = append(callArgs, ctx)
	for _, st := range statuses {
		callArgs = append(callArgs, st)
	}
	args := m.Called(callArgs...)
	return args.Int(0), args.Error(1)
}

func (m *MockRequestCounter) CountDispatchedSince(ctx context.Context, since time.Time) (int, error) {
	args := m.Called(ctx, since)
	return args.Int(0), args.Error(1)
}

// MockItemCounter é uma implementação mock da interface ItemCounter
type MockItemCounter struct {
	mock.Mock
}

func (m *MockItemCounter) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockRevenueReader é uma implementação mock da interface RevenueReader
type MockRevenueReader struct {
	mock.Mock
}

func (m *MockRevenueReader) Revenue(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

// MockCache é uma implementação mock da interface cache.Client
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) GetInt(ctx context.Context, key string) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Incr(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// TestGetSummary_CacheMiss testa a agregação completa no DB e a gravação do
// resultado no cache.
func TestGetSummary_CacheMiss(t *testing.T) {
	mockRequests := new(MockRequestCounter)
	mockItems := new(MockItemCounter)
	mockRevenue := new(MockRevenueReader)
	mockCache := new(MockCache)
	svc := dashboardservice.NewService(mockRequests, mockItems, mockRevenue, mockCache, time.Minute, logger.NewLogger("error"))

	mockCache.On("Get", mock.Anything, "dashboard:summary").Return("", cache.ErrCacheMiss)
	mockItems.On("Count", mock.Anything).Return(42, nil)
	mockRequests.On("CountByStatus", mock.Anything, domain.StatusRequested).Return(7, nil)
	mockRequests.On("CountByStatus", mock.Anything,
		domain.StatusApproved, domain.StatusInvoiceUploaded, domain.StatusInvoiceUploadedByUser, domain.StatusDispatched).
		Return(19, nil)
	// O corte de "expedições de hoje" é a meia-noite no fuso LOCAL, não UTC.
	mockRequests.On("CountDispatchedSince", mock.Anything, mock.MatchedBy(func(since time.Time) bool {
		now := time.Now()
		localMidnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return since.Equal(localMidnight)
	})).Return(3, nil)
	mockRevenue.On("Revenue", mock.Anything).Return(1250.5, nil)
	mockCache.On("Set", mock.Anything, "dashboard:summary", mock.AnythingOfType("string"), time.Minute).Return(nil)

	summary, err := svc.GetSummary(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 42, summary.TotalItems)
	assert.Equal(t, 7, summary.PendingRequests)
	assert.Equal(t, 19, summary.PurchaseOrders)
	assert.Equal(t, 3, summary.DispatchesToday)
	assert.Equal(t, 1250.5, summary.Revenue)
	mockCache.AssertExpectations(t)
}

// TestGetSummary_CacheHit testa que um resumo cacheado dispensa o DB.
func TestGetSummary_CacheHit(t *testing.T) {
	mockRequests := new(MockRequestCounter)
	mockItems := new(MockItemCounter)
	mockRevenue := new(MockRevenueReader)
	mockCache := new(MockCache)
	svc := dashboardservice.NewService(mockRequests, mockItems, mockRevenue, mockCache, time.Minute, logger.NewLogger("error"))

	mockCache.On("Get", mock.Anything, "dashboard:summary").
		Return(`{"total_items":42,"pending_requests":7,"purchase_orders":19,"dispatches_today":3,"revenue":1250.5}`, nil)

	summary, err := svc.GetSummary(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 42, summary.TotalItems)
	assert.Equal(t, 1250.5, summary.Revenue)
	mockItems.AssertNotCalled(t, "Count", mock.Anything)
	mockRevenue.AssertNotCalled(t, "Revenue", mock.Anything)
}

// TestGetSummary_Fail_DBError testa que a falha de agregação vira InternalError.
func TestGetSummary_Fail_DBError(t *testing.T) {
	mockRequests := new(MockRequestCounter)
	mockItems := new(MockItemCounter)
	mockRevenue := new(MockRevenueReader)
	mockCache := new(MockCache)
	svc := dashboardservice.NewService(mockRequests, mockItems, mockRevenue, mockCache, time.Minute, logger.NewLogger("error"))

	mockCache.On("Get", mock.Anything, "dashboard:summary").Return("", cache.ErrCacheMiss)
	mockItems.On("Count", mock.Anything).Return(0, apperror.NewDBError("Falha ao contar itens", assert.AnError))

	_, err := svc.GetSummary(context.Background())

	assert.Error(t, err)
	assert.IsType(t, &apperror.InternalError{}, err)
}
