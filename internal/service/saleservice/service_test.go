package saleservice_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"almox/internal/domain"
	apperror "almox/internal/errors"
	"almox/internal/pkg/logger"
	"almox/internal/pkg/middleware"
	"almox/internal/service/saleservice"
)

// MockSaleRepository é uma implementação mock da interface SaleRepository
type MockSaleRepository struct {
	mock.Mock
}

func (m *MockSaleRepository) Save(ctx context.Context, sale domain.Sale) (domain.Sale, error) {
	args := m.Called(ctx, sale)
	return args.Get(0).(domain.Sale), args.Error(1)
}

func (m *MockSaleRepository) FindBySeller(ctx context.Context, sellerID string) ([]domain.Sale, error) {
	args := m.Called(ctx, sellerID)
	return args.Get(0).([]domain.Sale), args.Error(1)
}

func (m *MockSaleRepository) AttachInvoice(ctx context.Context, saleID, sellerID string, inv domain.Invoice) error {
	args := m.Called(ctx, saleID, sellerID, inv)
	return args.Error(0)
}

// MockStockDebiter é uma implementação mock da interface StockDebiter
type MockStockDebiter struct {
	mock.Mock
}

func (m *MockStockDebiter) Debit(ctx context.Context, key domain.StockKey, quantity int) (domain.StockRecord, error) {
	args := m.Called(ctx, key, quantity)
	return args.Get(0).(domain.StockRecord), args.Error(1)
}

// MockItemCatalog é uma implementação mock da interface ItemCatalog
type MockItemCatalog struct {
	mock.Mock
}

func (m *MockItemCatalog) FindByName(ctx context.Context, name string) (domain.Item, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(domain.Item), args.Error(1)
}

func sellerClaims(sellerID string) middleware.UserClaims {
	return middleware.UserClaims{UserID: sellerID, Role: domain.RoleUser, Branch: "matriz"}
}

// TestRecord_Success testa o registro de uma venda: o débito do estoque
// pessoal do vendedor vem antes da persistência da venda.
func TestRecord_Success(t *testing.T) {
	mockRepo := new(MockSaleRepository)
	mockStock := new(MockStockDebiter)
	mockCatalog := new(MockItemCatalog)
	svc := saleservice.NewService(mockRepo, mockStock, mockCatalog, logger.NewLogger("error"))

	sellerID := uuid.New().String()
	itemID := uuid.New().String()

	mockCatalog.On("FindByName", mock.Anything, "Parafuso M8").
		Return(domain.Item{ID: itemID}, nil)

	expectedKey := domain.StockKey{ItemID: itemID, OwnerID: sellerID, OwnerKind: domain.OwnerUser, Branch: "matriz"}
	mockStock.On("Debit", mock.Anything, expectedKey, 3).
		Return(domain.StockRecord{ItemID: itemID, Quantity: 7}, nil)

	mockRepo.On("Save", mock.Anything, mock.MatchedBy(func(sale domain.Sale) bool {
		return sale.SellerID == sellerID && sale.ItemID == itemID && sale.Quantity == 3 && sale.Price == 4.0
	})).Return(domain.Sale{ID: uuid.New().String(), SellerID: sellerID, Quantity: 3, Price: 4.0, TotalAmount: 12.0}, nil)

	sale, err := svc.Record(context.Background(), sellerClaims(sellerID), domain.SaleCreate{
		ItemName:     "Parafuso M8",
		Quantity:     3,
		Price:        4.0,
		CustomerName: "Oficina do Zé",
	})

	assert.NoError(t, err)
	assert.Equal(t, 12.0, sale.TotalAmount)
	mockStock.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

// TestRecord_Fail_InsufficientStock testa a regra central do razão de vendas:
// débito rejeitado significa que NENHUMA venda é criada.
func TestRecord_Fail_InsufficientStock(t *testing.T) {
	mockRepo := new(MockSaleRepository)
	mockStock := new(MockStockDebiter)
	mockCatalog := new(MockItemCatalog)
	svc := saleservice.NewService(mockRepo, mockStock, mockCatalog, logger.NewLogger("error"))

	sellerID := uuid.New().String()
	itemID := uuid.New().String()

	mockCatalog.On("FindByName", mock.Anything, "Parafuso M8").
		Return(domain.Item{ID: itemID}, nil)
	mockStock.On("Debit", mock.Anything, mock.AnythingOfType("domain.StockKey"), 10).
		Return(domain.StockRecord{}, apperror.NewInsufficientStockError(2, 10))

	_, err := svc.Record(context.Background(), sellerClaims(sellerID), domain.SaleCreate{
		ItemName:     "Parafuso M8",
		Quantity:     10,
		Price:        4.0,
		CustomerName: "Oficina do Zé",
	})

	assert.Error(t, err)
	var stockErr *apperror.InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestRecord_Fail_MissingCustomer testa a validação do nome do cliente antes
// de qualquer acesso a catálogo ou estoque.
func TestRecord_Fail_MissingCustomer(t *testing.T) {
	mockRepo := new(MockSaleRepository)
	mockStock := new(MockStockDebiter)
	mockCatalog := new(MockItemCatalog)
	svc := saleservice.NewService(mockRepo, mockStock, mockCatalog, logger.NewLogger("error"))

	_, err := svc.Record(context.Background(), sellerClaims(uuid.New().String()), domain.SaleCreate{
		ItemName:     "Parafuso M8",
		Quantity:     1,
		Price:        4.0,
		CustomerName: "  ",
	})

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockCatalog.AssertNotCalled(t, "FindByName", mock.Anything, mock.Anything)
	mockStock.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything)
}

// TestUploadInvoice_SetsUploader testa que o descritor da nota carrega o
// vendedor como autor do upload.
func TestUploadInvoice_SetsUploader(t *testing.T) {
	mockRepo := new(MockSaleRepository)
	svc := saleservice.NewService(mockRepo, new(MockStockDebiter), new(MockItemCatalog), logger.NewLogger("error"))

	sellerID := uuid.New().String()
	saleID := uuid.New().String()

	mockRepo.On("AttachInvoice", mock.Anything, saleID, sellerID, mock.MatchedBy(func(inv domain.Invoice) bool {
		return inv.UploadedBy == sellerID && !inv.UploadedAt.IsZero()
	})).Return(nil)

	err := svc.UploadInvoice(context.Background(), sellerClaims(sellerID), saleID,
		domain.Invoice{FilePath: "/uploads/sales/nf-789.pdf", FileType: "pdf"})

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

// TestUploadInvoice_Fail_MissingFile testa a validação do arquivo obrigatório.
func TestUploadInvoice_Fail_MissingFile(t *testing.T) {
	mockRepo := new(MockSaleRepository)
	svc := saleservice.NewService(mockRepo, new(MockStockDebiter), new(MockItemCatalog), logger.NewLogger("error"))

	err := svc.UploadInvoice(context.Background(), sellerClaims(uuid.New().String()), uuid.New().String(), domain.Invoice{})

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockRepo.AssertNotCalled(t, "AttachInvoice", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
