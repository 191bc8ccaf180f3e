package requestservice_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"almox/internal/domain"
	apperror "almox/internal/errors"
	"almox/internal/notifier"
	"almox/internal/pkg/logger"
	"almox/internal/pkg/middleware"
	"almox/internal/service/requestservice"
)

// MockRequestRepository é uma implementação mock da interface RequestRepository
type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) Save(ctx context.Context, req domain.Request) (domain.Request, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.Request), args.Error(1)
}

func (m *MockRequestRepository) FindByID(ctx context.Context, id string) (domain.Request, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Request), args.Error(1)
}

func (m *MockRequestRepository) FindByCompany(ctx context.Context, companyID string) ([]domain.Request, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).([]domain.Request), args.Error(1)
}

func (m *MockRequestRepository) FindByRequester(ctx context.Context, requesterID string) ([]domain.Request, error) {
	args := m.Called(ctx, requesterID)
	return args.Get(0).([]domain.Request), args.Error(1)
}

func (m *MockRequestRepository) FindAllCompanies(ctx context.Context) ([]domain.Request, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Request), args.Error(1)
}

func (m *MockRequestRepository) Approve(ctx context.Context, id, token string, at time.Time) (domain.Request, error) {
	args := m.Called(ctx, id, token, at)
	return args.Get(0).(domain.Request), args.Error(1)
}

func (m *MockRequestRepository) Reject(ctx context.Context, id, reason string, at time.Time) (domain.Request, error) {
	args := m.Called(ctx, id, reason, at)
	return args.Get(0).(domain.Request), args.Error(1)
}

func (m *MockRequestRepository) AttachInvoice(ctx context.Context, id string, inv domain.Invoice, newStatus domain.RequestStatus, at time.Time) (domain.Request, error) {
	args := m.Called(ctx, id, inv, newStatus, at)
	return args.Get(0).(domain.Request), args.Error(1)
}

// MockDispatchRepository é uma implementação mock da interface DispatchRepository
type MockDispatchRepository struct {
	mock.Mock
}

func (m *MockDispatchRepository) Execute(ctx context.Context, entry domain.DispatchEntry) (domain.DispatchEntry, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(domain.DispatchEntry), args.Error(1)
}

func (m *MockDispatchRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.DispatchEntry, error) {
	args := m.Called(ctx, requestID)
	return args.Get(0).([]domain.DispatchEntry), args.Error(1)
}

// MockItemCatalog é uma implementação mock da interface ItemCatalog
type MockItemCatalog struct {
	mock.Mock
}

func (m *MockItemCatalog) FindByName(ctx context.Context, name string) (domain.Item, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(domain.Item), args.Error(1)
}

// MockUserDirectory é uma implementação mock da interface UserDirectory
type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) FindByID(ctx context.Context, id string) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}

// newTestService monta o serviço com todos os mocks e o sink nulo de notificações.
func newTestService(repo *MockRequestRepository, dispatch *MockDispatchRepository, catalog *MockItemCatalog, users *MockUserDirectory) *requestservice.Service {
	return requestservice.NewService(repo, dispatch, catalog, users, notifier.NopSink{}, logger.NewLogger("error"))
}

func adminClaims(adminID string) middleware.UserClaims {
	return middleware.UserClaims{UserID: adminID, Role: domain.RoleAdmin, Branch: "matriz"}
}

// TestCreate_Success testa a abertura de uma solicitação com prioridade padrão
// e endereço de entrega vindo do cadastro do solicitante.
func TestCreate_Success(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockUsers := new(MockUserDirectory)
	svc := newTestService(mockRepo, new(MockDispatchRepository), new(MockItemCatalog), mockUsers)

	requesterID := uuid.New().String()
	companyID := uuid.New().String()
	claims := middleware.UserClaims{UserID: requesterID, Role: domain.RoleUser}

	mockUsers.On("FindByID", mock.Anything, companyID).
		Return(domain.User{ID: companyID, Role: domain.RoleAdmin}, nil)
	mockUsers.On("FindByID", mock.Anything, requesterID).
		Return(domain.User{ID: requesterID, Location: "Rua dos Andradas, 100"}, nil)

	mockRepo.On("Save", mock.Anything, mock.MatchedBy(func(req domain.Request) bool {
		return req.Priority == domain.PriorityMedium &&
			req.DeliveryAddress == "Rua dos Andradas, 100" &&
			req.CompanyID == companyID
	})).Return(domain.Request{ID: uuid.New().String(), Status: domain.StatusRequested}, nil)

	created, err := svc.Create(context.Background(), claims, domain.RequestCreate{
		ItemName:  "Parafuso M8",
		Quantity:  10,
		CompanyID: companyID,
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusRequested, created.Status)
	mockRepo.AssertExpectations(t)
	mockUsers.AssertExpectations(t)
}

// TestCreate_Fail_InvalidQuantity testa a rejeição de quantidade não positiva
// antes de qualquer acesso ao repositório.
func TestCreate_Fail_InvalidQuantity(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	svc := newTestService(mockRepo, new(MockDispatchRepository), new(MockItemCatalog), new(MockUserDirectory))

	_, err := svc.Create(context.Background(), adminClaims(uuid.New().String()), domain.RequestCreate{
		ItemName:  "Parafuso M8",
		Quantity:  0,
		CompanyID: uuid.New().String(),
	})

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestCreate_Fail_CompanyNotAdmin testa que a empresa de destino precisa ser um admin.
func TestCreate_Fail_CompanyNotAdmin(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockUsers := new(MockUserDirectory)
	svc := newTestService(mockRepo, new(MockDispatchRepository), new(MockItemCatalog), mockUsers)

	companyID := uuid.New().String()
	mockUsers.On("FindByID", mock.Anything, companyID).
		Return(domain.User{ID: companyID, Role: domain.RoleUser}, nil)

	_, err := svc.Create(context.Background(), middleware.UserClaims{UserID: uuid.New().String(), Role: domain.RoleUser}, domain.RequestCreate{
		ItemName:  "Parafuso M8",
		Quantity:  5,
		CompanyID: companyID,
	})

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestList_ScopeByRole testa o alcance da listagem por papel: superadmin vê
// todas as empresas, admin vê a própria empresa, usuário vê as que abriu.
func TestList_ScopeByRole(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	svc := newTestService(mockRepo, new(MockDispatchRepository), new(MockItemCatalog), new(MockUserDirectory))

	superID := uuid.New().String()
	adminID := uuid.New().String()
	userID := uuid.New().String()

	all := []domain.Request{{ID: uuid.New().String()}, {ID: uuid.New().String()}}
	mockRepo.On("FindAllCompanies", mock.Anything).Return(all, nil)
	mockRepo.On("FindByCompany", mock.Anything, adminID).Return(all[:1], nil)
	mockRepo.On("FindByRequester", mock.Anything, userID).Return(all[1:], nil)

	superList, err := svc.List(context.Background(),
		middleware.UserClaims{UserID: superID, Role: domain.RoleSuperAdmin})
	assert.NoError(t, err)
	assert.Len(t, superList, 2)
	// O superadmin nunca deve ser tratado como "empresa dona do próprio ID".
	mockRepo.AssertNotCalled(t, "FindByCompany", mock.Anything, superID)

	adminList, err := svc.List(context.Background(), adminClaims(adminID))
	assert.NoError(t, err)
	assert.Len(t, adminList, 1)

	userList, err := svc.List(context.Background(),
		middleware.UserClaims{UserID: userID, Role: domain.RoleUser})
	assert.NoError(t, err)
	assert.Len(t, userList, 1)
}

// TestApprove_Success testa a transição requested -> approved com o token de
// acompanhamento no formato REQ-<ano>-<sufixo>.
func TestApprove_Success(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockUsers := new(MockUserDirectory)
	svc := newTestService(mockRepo, new(MockDispatchRepository), new(MockItemCatalog), mockUsers)

	adminID := uuid.New().String()
	requesterID := uuid.New().String()
	requestID := "4f2a9c31-77aa-4e0b-9a10-aabbccdde2f1"
	expectedToken := fmt.Sprintf("REQ-%d-DE2F1", time.Now().Year())

	pending := domain.Request{
		ID: requestID, RequesterID: requesterID, CompanyID: adminID,
		ItemName: "parafuso m8", Status: domain.StatusRequested,
	}
	approved := pending
	approved.Status = domain.StatusApproved
	approved.Token = expectedToken

	mockRepo.On("FindByID", mock.Anything, requestID).Return(pending, nil)
	mockRepo.On("Approve", mock.Anything, requestID, expectedToken, mock.AnythingOfType("time.Time")).
		Return(approved, nil)
	mockUsers.On("FindByID", mock.Anything, requesterID).
		Return(domain.User{ID: requesterID, Email: "solicitante@example.com"}, nil)

	result, err := svc.Approve(context.Background(), adminClaims(adminID), requestID)

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, result.Status)
	assert.Equal(t, expectedToken, result.Token)
	mockRepo.AssertExpectations(t)
}

// TestApprove_Fail_WrongCompany testa que um admin não aprova solicitação de
// outra empresa: a transição nem chega ao repositório.
func TestApprove_Fail_WrongCompany(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	svc := newTestService(mockRepo, new(MockDispatchRepository), new(MockItemCatalog), new(MockUserDirectory))

	requestID := uuid.New().String()
	mockRepo.On("FindByID", mock.Anything, requestID).Return(domain.Request{
		ID: requestID, CompanyID: uuid.New().String(), Status: domain.StatusRequested,
	}, nil)

	_, err := svc.Approve(context.Background(), adminClaims(uuid.New().String()), requestID)

	assert.Error(t, err)
	assert.IsType(t, &apperror.ForbiddenError{}, err)
	mockRepo.AssertNotCalled(t, "Approve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestApprove_Fail_AlreadyProcessed testa o conflito de estado quando a
// precondição de status falha no repositório (segundo aprovador perde).
func TestApprove_Fail_AlreadyProcessed(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	svc := newTestService(mockRepo, new(MockDispatchRepository), new(MockItemCatalog), new(MockUserDirectory))

	adminID := uuid.New().String()
	requestID := uuid.New().String()

	mockRepo.On("FindByID", mock.Anything, requestID).Return(domain.Request{
		ID: requestID, CompanyID: adminID, Status: domain.StatusRequested,
	}, nil)
	mockRepo.On("Approve", mock.Anything, requestID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Return(domain.Request{}, apperror.NewConflictError("Solicitação já processada (status atual: approved)."))

	_, err := svc.Approve(context.Background(), adminClaims(adminID), requestID)

	assert.Error(t, err)
	assert.IsType(t, &apperror.ConflictError{}, err)
	assert.Contains(t, err.Error(), "já processada")
	mockRepo.AssertExpectations(t)
}

// TestReject_DefaultReason testa que a rejeição sem motivo usa o motivo padrão.
func TestReject_DefaultReason(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockUsers := new(MockUserDirectory)
	svc := newTestService(mockRepo, new(MockDispatchRepository), new(MockItemCatalog), mockUsers)

	adminID := uuid.New().String()
	requesterID := uuid.New().String()
	requestID := uuid.New().String()

	pending := domain.Request{ID: requestID, RequesterID: requesterID, CompanyID: adminID, Status: domain.StatusRequested}
	rejected := pending
	rejected.Status = domain.StatusRejected
	rejected.RejectionReason = "No reason provided"

	mockRepo.On("FindByID", mock.Anything, requestID).Return(pending, nil)
	mockRepo.On("Reject", mock.Anything, requestID, "No reason provided", mock.AnythingOfType("time.Time")).
		Return(rejected, nil)
	mockUsers.On("FindByID", mock.Anything, requesterID).
		Return(domain.User{ID: requesterID, Email: "solicitante@example.com"}, nil)

	result, err := svc.Reject(context.Background(), adminClaims(adminID), requestID, "   ")

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, result.Status)
	assert.Equal(t, "No reason provided", result.RejectionReason)
	mockRepo.AssertExpectations(t)
}

// TestUploadInvoice_ByRequester testa que o próprio solicitante anexando a
// nota resulta no status invoice_uploaded_by_user.
func TestUploadInvoice_ByRequester(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	svc := newTestService(mockRepo, new(MockDispatchRepository), new(MockItemCatalog), new(MockUserDirectory))

	requesterID := uuid.New().String()
	requestID := uuid.New().String()
	inv := domain.Invoice{FilePath: "/uploads/requests/nf-123.pdf", FileType: "pdf"}

	mockRepo.On("FindByID", mock.Anything, requestID).Return(domain.Request{
		ID: requestID, RequesterID: requesterID, CompanyID: uuid.New().String(), Status: domain.StatusApproved,
	}, nil)
	mockRepo.On("AttachInvoice", mock.Anything, requestID, mock.MatchedBy(func(got domain.Invoice) bool {
		return got.FilePath == inv.FilePath && got.UploadedBy == requesterID
	}), domain.StatusInvoiceUploadedByUser, mock.AnythingOfType("time.Time")).
		Return(domain.Request{ID: requestID, Status: domain.StatusInvoiceUploadedByUser}, nil)

	result, err := svc.UploadInvoice(context.Background(), middleware.UserClaims{UserID: requesterID, Role: domain.RoleUser}, requestID, inv)

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusInvoiceUploadedByUser, result.Status)
	mockRepo.AssertExpectations(t)
}

// TestUploadInvoice_ByCompany testa que o admin da empresa anexando a nota
// resulta no status invoice_uploaded.
func TestUploadInvoice_ByCompany(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	svc := newTestService(mockRepo, new(MockDispatchRepository), new(MockItemCatalog), new(MockUserDirectory))

	adminID := uuid.New().String()
	requestID := uuid.New().String()
	inv := domain.Invoice{FilePath: "/uploads/requests/nf-456.png", FileType: "image"}

	mockRepo.On("FindByID", mock.Anything, requestID).Return(domain.Request{
		ID: requestID, RequesterID: uuid.New().String(), CompanyID: adminID, Status: domain.StatusApproved,
	}, nil)
	mockRepo.On("AttachInvoice", mock.Anything, requestID, mock.AnythingOfType("domain.Invoice"),
		domain.StatusInvoiceUploaded, mock.AnythingOfType("time.Time")).
		Return(domain.Request{ID: requestID, Status: domain.StatusInvoiceUploaded}, nil)

	result, err := svc.UploadInvoice(context.Background(), adminClaims(adminID), requestID, inv)

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusInvoiceUploaded, result.Status)
	mockRepo.AssertExpectations(t)
}

// TestDispatch_Success testa a expedição completa: resolução do item por nome
// normalizado e execução da transação de expedição.
func TestDispatch_Success(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockDispatch := new(MockDispatchRepository)
	mockCatalog := new(MockItemCatalog)
	mockUsers := new(MockUserDirectory)
	svc := newTestService(mockRepo, mockDispatch, mockCatalog, mockUsers)

	adminID := uuid.New().String()
	requesterID := uuid.New().String()
	requestID := uuid.New().String()
	itemID := uuid.New().String()

	mockRepo.On("FindByID", mock.Anything, requestID).Return(domain.Request{
		ID: requestID, RequesterID: requesterID, CompanyID: adminID,
		ItemName: "Parafuso M8", Quantity: 10, Status: domain.StatusInvoiceUploaded,
	}, nil)
	mockCatalog.On("FindByName", mock.Anything, "Parafuso M8").
		Return(domain.Item{ID: itemID, Name: "parafuso m8"}, nil)
	mockDispatch.On("Execute", mock.Anything, mock.MatchedBy(func(entry domain.DispatchEntry) bool {
		return entry.RequestID == requestID &&
			entry.ItemID == itemID &&
			entry.Quantity == 10 &&
			entry.DispatchedBy == adminID &&
			entry.DispatchedTo == requesterID &&
			strings.HasPrefix(entry.Reference, "INV-")
	})).Return(domain.DispatchEntry{ID: uuid.New().String(), RequestID: requestID, Quantity: 10, Rate: 2.5}, nil)
	mockUsers.On("FindByID", mock.Anything, requesterID).
		Return(domain.User{ID: requesterID, Email: "solicitante@example.com", Branch: "matriz"}, nil)

	entry, err := svc.Dispatch(context.Background(), adminClaims(adminID), requestID)

	assert.NoError(t, err)
	assert.Equal(t, requestID, entry.RequestID)
	assert.Equal(t, 10, entry.Quantity)
	mockDispatch.AssertExpectations(t)
}

// TestDispatch_CreditsRequesterRegisteredBranch testa que o crédito da
// expedição é chaveado pela filial CADASTRADA do solicitante, mesmo quando o
// admin expede de outra filial. Se o crédito usasse a filial do admin, o saldo
// entregue nunca seria encontrado pelo débito da venda do usuário.
func TestDispatch_CreditsRequesterRegisteredBranch(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockDispatch := new(MockDispatchRepository)
	mockCatalog := new(MockItemCatalog)
	mockUsers := new(MockUserDirectory)
	svc := newTestService(mockRepo, mockDispatch, mockCatalog, mockUsers)

	adminID := uuid.New().String()
	requesterID := uuid.New().String()
	requestID := uuid.New().String()
	itemID := uuid.New().String()

	mockRepo.On("FindByID", mock.Anything, requestID).Return(domain.Request{
		ID: requestID, RequesterID: requesterID, CompanyID: adminID,
		ItemName: "Parafuso M8", Quantity: 10, Status: domain.StatusInvoiceUploaded,
	}, nil)
	mockCatalog.On("FindByName", mock.Anything, "Parafuso M8").
		Return(domain.Item{ID: itemID}, nil)
	// Solicitante cadastrado na filial "centro"; admin expede da "matriz".
	mockUsers.On("FindByID", mock.Anything, requesterID).
		Return(domain.User{ID: requesterID, Branch: "centro", Email: "solicitante@example.com"}, nil)
	mockDispatch.On("Execute", mock.Anything, mock.MatchedBy(func(entry domain.DispatchEntry) bool {
		return entry.Branch == "matriz" && entry.DestinationBranch == "centro"
	})).Return(domain.DispatchEntry{ID: uuid.New().String(), RequestID: requestID}, nil)

	_, err := svc.Dispatch(context.Background(), adminClaims(adminID), requestID)

	assert.NoError(t, err)
	mockDispatch.AssertExpectations(t)
}

// TestDispatch_Fail_NotAwaiting testa que uma solicitação sem nota fiscal
// anexada não chega à transação de expedição.
func TestDispatch_Fail_NotAwaiting(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockDispatch := new(MockDispatchRepository)
	svc := newTestService(mockRepo, mockDispatch, new(MockItemCatalog), new(MockUserDirectory))

	adminID := uuid.New().String()
	requestID := uuid.New().String()

	mockRepo.On("FindByID", mock.Anything, requestID).Return(domain.Request{
		ID: requestID, CompanyID: adminID, Status: domain.StatusApproved,
	}, nil)

	_, err := svc.Dispatch(context.Background(), adminClaims(adminID), requestID)

	assert.Error(t, err)
	assert.IsType(t, &apperror.ConflictError{}, err)
	mockDispatch.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

// TestDispatch_Fail_ItemNotFound testa que item ausente do catálogo aborta a
// expedição sem auto-criação e sem tocar o estoque.
func TestDispatch_Fail_ItemNotFound(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockDispatch := new(MockDispatchRepository)
	mockCatalog := new(MockItemCatalog)
	svc := newTestService(mockRepo, mockDispatch, mockCatalog, new(MockUserDirectory))

	adminID := uuid.New().String()
	requestID := uuid.New().String()

	mockRepo.On("FindByID", mock.Anything, requestID).Return(domain.Request{
		ID: requestID, CompanyID: adminID, ItemName: "Item Fantasma",
		Quantity: 1, Status: domain.StatusInvoiceUploadedByUser,
	}, nil)
	mockCatalog.On("FindByName", mock.Anything, "Item Fantasma").
		Return(domain.Item{}, apperror.NewNotFoundError(`Item "item fantasma" não encontrado.`))

	_, err := svc.Dispatch(context.Background(), adminClaims(adminID), requestID)

	assert.Error(t, err)
	assert.IsType(t, &apperror.NotFoundError{}, err)
	mockDispatch.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

// TestDispatch_Fail_InsufficientStock testa que a falta de saldo na transação
// propaga o erro com disponível vs. necessário, sem mudar o status.
func TestDispatch_Fail_InsufficientStock(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockDispatch := new(MockDispatchRepository)
	mockCatalog := new(MockItemCatalog)
	mockUsers := new(MockUserDirectory)
	svc := newTestService(mockRepo, mockDispatch, mockCatalog, mockUsers)

	adminID := uuid.New().String()
	requesterID := uuid.New().String()
	requestID := uuid.New().String()
	itemID := uuid.New().String()

	mockRepo.On("FindByID", mock.Anything, requestID).Return(domain.Request{
		ID: requestID, RequesterID: requesterID, CompanyID: adminID,
		ItemName: "Parafuso M8", Quantity: 50, Status: domain.StatusInvoiceUploaded,
	}, nil)
	mockCatalog.On("FindByName", mock.Anything, "Parafuso M8").
		Return(domain.Item{ID: itemID}, nil)
	mockUsers.On("FindByID", mock.Anything, requesterID).
		Return(domain.User{ID: requesterID, Branch: "matriz"}, nil)
	mockDispatch.On("Execute", mock.Anything, mock.AnythingOfType("domain.DispatchEntry")).
		Return(domain.DispatchEntry{}, apperror.NewInsufficientStockError(30, 50))

	_, err := svc.Dispatch(context.Background(), adminClaims(adminID), requestID)

	assert.Error(t, err)
	var stockErr *apperror.InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 30, stockErr.Available)
	assert.Equal(t, 50, stockErr.Required)
}

// TestNewRequestToken_Format testa o formato do token de acompanhamento.
func TestNewRequestToken_Format(t *testing.T) {
	at := time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)

	token := requestservice.NewRequestToken("4f2a9c31-77aa-4e0b-9a10-aabbccdde2f1", at)
	assert.Equal(t, "REQ-2026-DE2F1", token)

	// IDs curtos usam o ID inteiro como sufixo.
	short := requestservice.NewRequestToken("ab1", at)
	assert.Equal(t, "REQ-2026-AB1", short)
}
