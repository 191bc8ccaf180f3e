package requestservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"almox/internal/domain"
	apperror "almox/internal/errors"
	"almox/internal/notifier"
	"almox/internal/pkg/logger"
	"almox/internal/pkg/middleware"
	"almox/internal/repository/dispatchrepo"
)

// RequestRepository define o contrato que o motor de solicitações espera da
// camada de persistência. As transições condicionais (Approve, Reject,
// AttachInvoice) retornam ConflictError quando a precondição de status falha.
type RequestRepository interface {
	Save(ctx context.Context, req domain.Request) (domain.Request, error)
	FindByID(ctx context.Context, id string) (domain.Request, error)
	FindByCompany(ctx context.Context, companyID string) ([]domain.Request, error)
	FindByRequester(ctx context.Context, requesterID string) ([]domain.Request, error)
	FindAllCompanies(ctx context.Context) ([]domain.Request, error)
	Approve(ctx context.Context, id, token string, at time.Time) (domain.Request, error)
	Reject(ctx context.Context, id, reason string, at time.Time) (domain.Request, error)
	AttachInvoice(ctx context.Context, id string, inv domain.Invoice, newStatus domain.RequestStatus, at time.Time) (domain.Request, error)
}

// DispatchRepository executa a transação de expedição e lê o histórico.
type DispatchRepository interface {
	Execute(ctx context.Context, entry domain.DispatchEntry) (domain.DispatchEntry, error)
	ListByRequest(ctx context.Context, requestID string) ([]domain.DispatchEntry, error)
}

// ItemCatalog resolve itens por nome normalizado.
// Na expedição só se usa FindByName: item inexistente é erro, nunca auto-criação.
type ItemCatalog interface {
	FindByName(ctx context.Context, name string) (domain.Item, error)
}

// UserDirectory fornece os dados de usuário necessários ao motor
// (resolução da empresa no create, destinatário das notificações).
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (domain.User, error)
}

// Service é o motor de solicitações: dono exclusivo da máquina de estados.
// Valida transições, autoriza atores por papel e escopo de empresa e orquestra
// a transferência de estoque na expedição.
type Service struct {
	repo     RequestRepository
	dispatch DispatchRepository
	catalog  ItemCatalog
	users    UserDirectory
	sink     notifier.Sink
	logger   logger.Logger
}

// NewService cria e retorna uma nova instância do motor de solicitações.
func NewService(repo RequestRepository, dispatch DispatchRepository, catalog ItemCatalog, users UserDirectory, sink notifier.Sink, logger logger.Logger) *Service {
	return &Service{
		repo:     repo,
		dispatch: dispatch,
		catalog:  catalog,
		users:    users,
		sink:     sink,
		logger:   logger,
	}
}

// NewRequestToken gera o token legível atribuído na aprovação:
// REQ-<ano>-<5 últimos caracteres do ID, maiúsculos>.
func NewRequestToken(requestID string, at time.Time) string {
	suffix := requestID
	if len(suffix) > 5 {
		suffix = suffix[len(suffix)-5:]
	}
	return fmt.Sprintf("REQ-%d-%s", at.Year(), strings.ToUpper(suffix))
}

// authorizeCompany garante que o ator pode agir sobre a solicitação: um admin
// só age sobre solicitações cuja empresa é a própria identidade (modelo
// empresa-por-admin); superadmin age sobre qualquer uma. A violação falha com
// erro de autorização, nunca com no-op silencioso.
func authorizeCompany(claims middleware.UserClaims, req domain.Request) error {
	if claims.Role == domain.RoleSuperAdmin {
		return nil
	}
	if claims.Role != domain.RoleAdmin {
		return apperror.NewForbiddenError("Apenas o admin da empresa pode executar esta operação.")
	}
	if req.CompanyID != claims.UserID {
		return apperror.NewForbiddenError("Esta solicitação pertence a outra empresa.")
	}
	return nil
}

// Create abre uma nova solicitação no estado "requested".
func (s *Service) Create(ctx context.Context, claims middleware.UserClaims, input domain.RequestCreate) (domain.Request, error) {
	s.logger.Debug("Iniciando criação de solicitação no serviço.", map[string]interface{}{
		"requester_id": claims.UserID, "item_name": input.ItemName, "quantity": input.Quantity,
	})

	// 1. Validação de entrada — rejeitada antes de qualquer mudança de estado.
	if strings.TrimSpace(input.ItemName) == "" {
		return domain.Request{}, apperror.NewValidationError("O nome do item é obrigatório.")
	}
	if input.Quantity <= 0 {
		return domain.Request{}, apperror.NewValidationError("A quantidade deve ser maior que zero.")
	}
	if input.CompanyID == "" {
		return domain.Request{}, apperror.NewValidationError("A empresa de destino é obrigatória.")
	}

	// 2. Resolver a empresa: precisa existir e ser um admin.
	company, err := s.users.FindByID(ctx, input.CompanyID)
	if err != nil {
		return domain.Request{}, err
	}
	if company.Role != domain.RoleAdmin {
		return domain.Request{}, apperror.NewValidationError("A empresa de destino informada não é um admin.")
	}

	priority := input.Priority
	switch priority {
	case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh:
	case "":
		priority = domain.PriorityMedium
	default:
		return domain.Request{}, apperror.NewValidationError("Prioridade inválida. Use Low, Medium ou High.")
	}

	// 3. Endereço de entrega: payload ou, na ausência, o cadastro do solicitante.
	deliveryAddress := strings.TrimSpace(input.DeliveryAddress)
	if deliveryAddress == "" {
		requester, findErr := s.users.FindByID(ctx, claims.UserID)
		if findErr != nil {
			return domain.Request{}, findErr
		}
		deliveryAddress = requester.Location
	}

	req := domain.Request{
		RequesterID:     claims.UserID,
		CompanyID:       company.ID,
		ItemName:        input.ItemName,
		Quantity:        input.Quantity,
		Priority:        priority,
		DeliveryAddress: deliveryAddress,
	}

	created, err := s.repo.Save(ctx, req)
	if err != nil {
		s.logger.Error("Falha ao salvar solicitação no repositório.", err)
		return domain.Request{}, err
	}

	s.logger.Info("Solicitação criada.", map[string]interface{}{"request_id": created.ID})
	return created, nil
}

// List retorna as solicitações visíveis ao ator: o superadmin vê todas as
// empresas (mesmo alcance que ele tem nas transições), o admin vê as da
// própria empresa e o usuário vê as que abriu.
func (s *Service) List(ctx context.Context, claims middleware.UserClaims) ([]domain.Request, error) {
	switch claims.Role {
	case domain.RoleSuperAdmin:
		return s.repo.FindAllCompanies(ctx)
	case domain.RoleAdmin:
		return s.repo.FindByCompany(ctx, claims.UserID)
	default:
		return s.repo.FindByRequester(ctx, claims.UserID)
	}
}

// Approve executa a transição requested -> approved, atribui o token e
// notifica o solicitante. A falha de notificação nunca reverte a aprovação.
func (s *Service) Approve(ctx context.Context, claims middleware.UserClaims, requestID string) (domain.Request, error) {
	req, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return domain.Request{}, err
	}
	if err := authorizeCompany(claims, req); err != nil {
		return domain.Request{}, err
	}

	now := time.Now()
	token := NewRequestToken(req.ID, now)

	approved, err := s.repo.Approve(ctx, requestID, token, now)
	if err != nil {
		s.logger.Error("Falha ao aprovar solicitação.", err)
		return domain.Request{}, err
	}

	s.notify(ctx, approved.RequesterID,
		fmt.Sprintf("Solicitação aprovada: %s", approved.Token),
		fmt.Sprintf("Sua solicitação do item \"%s\" foi aprovada.\n\nToken: %s", approved.ItemName, approved.Token),
	)

	s.logger.Info("Solicitação aprovada no serviço.", map[string]interface{}{"request_id": requestID, "token": token})
	return approved, nil
}

// Reject executa a transição requested -> rejected com o motivo informado
// (ou o motivo padrão, quando omitido) e notifica o solicitante.
func (s *Service) Reject(ctx context.Context, claims middleware.UserClaims, requestID, reason string) (domain.Request, error) {
	req, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return domain.Request{}, err
	}
	if err := authorizeCompany(claims, req); err != nil {
		return domain.Request{}, err
	}

	if strings.TrimSpace(reason) == "" {
		reason = "No reason provided"
	}

	rejected, err := s.repo.Reject(ctx, requestID, reason, time.Now())
	if err != nil {
		s.logger.Error("Falha ao rejeitar solicitação.", err)
		return domain.Request{}, err
	}

	s.notify(ctx, rejected.RequesterID,
		"Solicitação rejeitada",
		fmt.Sprintf("Sua solicitação do item \"%s\" foi rejeitada.\nMotivo: %s", rejected.ItemName, rejected.RejectionReason),
	)

	return rejected, nil
}

// UploadInvoice anexa a nota fiscal a uma solicitação aprovada.
// O admin da empresa ou o próprio solicitante podem anexar; quando é o
// solicitante, o status resultante é invoice_uploaded_by_user.
func (s *Service) UploadInvoice(ctx context.Context, claims middleware.UserClaims, requestID string, inv domain.Invoice) (domain.Request, error) {
	req, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return domain.Request{}, err
	}

	newStatus := domain.StatusInvoiceUploaded
	if claims.UserID == req.RequesterID && claims.Role == domain.RoleUser {
		newStatus = domain.StatusInvoiceUploadedByUser
	} else if err := authorizeCompany(claims, req); err != nil {
		return domain.Request{}, err
	}

	if inv.FilePath == "" {
		return domain.Request{}, apperror.NewValidationError("O arquivo da nota fiscal é obrigatório.")
	}
	inv.UploadedBy = claims.UserID

	updated, err := s.repo.AttachInvoice(ctx, requestID, inv, newStatus, time.Now())
	if err != nil {
		s.logger.Error("Falha ao anexar nota fiscal.", err)
		return domain.Request{}, err
	}

	return updated, nil
}

// Dispatch executa a transição invoice_uploaded(_by_user) -> dispatched.
//
// O item é resolvido por nome normalizado contra o catálogo: item inexistente
// falha com NotFound em vez de auto-criar, para nunca expedir contra um item
// fantasma. A transferência de estoque, a virada de status e o registro de
// auditoria acontecem em uma única transação no repositório de expedições —
// qualquer falha deixa solicitação e estoques exatamente como estavam.
func (s *Service) Dispatch(ctx context.Context, claims middleware.UserClaims, requestID string) (domain.DispatchEntry, error) {
	req, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return domain.DispatchEntry{}, err
	}
	if err := authorizeCompany(claims, req); err != nil {
		return domain.DispatchEntry{}, err
	}

	// Checagem antecipada de estado para falhar barato; a garantia real de
	// "exatamente um vencedor" é a precondição no UPDATE da transação.
	if !req.AwaitingDispatch() {
		return domain.DispatchEntry{}, apperror.NewConflictError(
			fmt.Sprintf("Solicitação não está pronta para expedição (status atual: %s).", req.Status))
	}

	item, err := s.catalog.FindByName(ctx, req.ItemName)
	if err != nil {
		return domain.DispatchEntry{}, err
	}

	// O crédito vai para a filial CADASTRADA do solicitante, não para a filial
	// do admin que expede: é sob a filial cadastrada que o usuário debita o
	// próprio estoque (venda), então chavear o crédito pela filial do admin
	// deixaria o saldo entregue fora do alcance do ciclo de venda.
	requester, err := s.users.FindByID(ctx, req.RequesterID)
	if err != nil {
		return domain.DispatchEntry{}, err
	}

	now := time.Now()
	entry := domain.DispatchEntry{
		Reference:         dispatchrepo.NewReference(now),
		RequestID:         req.ID,
		ItemID:            item.ID,
		Quantity:          req.Quantity,
		Branch:            claims.Branch,
		DispatchedBy:      req.CompanyID,
		DispatchedTo:      req.RequesterID,
		DispatchedAt:      now,
		DestinationBranch: requester.Branch,
	}

	recorded, err := s.dispatch.Execute(ctx, entry)
	if err != nil {
		s.logger.Error("Falha na transação de expedição.", err)
		return domain.DispatchEntry{}, err
	}

	s.notify(ctx, req.RequesterID,
		fmt.Sprintf("Solicitação expedida: %s", req.Token),
		fmt.Sprintf("Sua solicitação do item \"%s\" (quantidade %d) foi expedida.\nReferência: %s",
			req.ItemName, req.Quantity, recorded.Reference),
	)

	s.logger.Info("Expedição concluída no serviço.", map[string]interface{}{
		"request_id": requestID, "reference": recorded.Reference,
	})
	return recorded, nil
}

// History retorna a trilha de expedições de uma solicitação.
func (s *Service) History(ctx context.Context, claims middleware.UserClaims, requestID string) ([]domain.DispatchEntry, error) {
	req, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	// O solicitante vê o próprio histórico; admin/superadmin, o da empresa.
	if claims.UserID != req.RequesterID {
		if err := authorizeCompany(claims, req); err != nil {
			return nil, err
		}
	}

	return s.dispatch.ListByRequest(ctx, requestID)
}

// notify envia a notificação em modo fire-and-forget: o destinatário é
// resolvido pelo diretório de usuários e qualquer falha é apenas logada —
// nunca falha nem reverte a transição que a originou.
func (s *Service) notify(ctx context.Context, userID, subject, body string) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.logger.Warn("Não foi possível resolver o destinatário da notificação.", map[string]interface{}{
			"user_id": userID, "error": err.Error(),
		})
		return
	}

	if err := s.sink.Send(ctx, user.Email, subject, body); err != nil {
		s.logger.Warn("Falha ao enviar notificação.", map[string]interface{}{
			"recipient": user.Email, "subject": subject, "error": err.Error(),
		})
	}
}
