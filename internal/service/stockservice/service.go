package stockservice

import (
	"context"
	"strings"

	"almox/internal/domain"
	apperror "almox/internal/errors"
	"almox/internal/pkg/logger"
	"almox/internal/pkg/middleware"
)

// StockRepository define o contrato que o Serviço de Estoque espera da camada
// de persistência. Credit/Debit/Transfer são atômicos por chave de registro.
type StockRepository interface {
	Get(ctx context.Context, key domain.StockKey) (domain.StockRecord, error)
	Credit(ctx context.Context, key domain.StockKey, quantity int, rate float64) (domain.StockRecord, error)
	Debit(ctx context.Context, key domain.StockKey, quantity int) (domain.StockRecord, error)
	Transfer(ctx context.Context, itemID string, from, to domain.StockOwner, quantity int, branch string) (domain.TransferResult, error)
	ListByOwner(ctx context.Context, owner domain.StockOwner) ([]domain.StockSummaryEntry, error)
	ListAllByKind(ctx context.Context, kind domain.OwnerKind) ([]domain.OwnerStockSummaryEntry, error)
}

// ItemCatalog resolve itens por nome normalizado. A adição de estoque usa o
// find-or-create (criação preguiçosa); a transferência usa só o lookup.
type ItemCatalog interface {
	FindByName(ctx context.Context, name string) (domain.Item, error)
	FindOrCreateByName(ctx context.Context, name, category, unit, description string) (domain.Item, error)
}

// Service é a camada de lógica de negócio do razão de estoque.
type Service struct {
	repo    StockRepository
	catalog ItemCatalog
	logger  logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Estoque.
func NewService(repo StockRepository, catalog ItemCatalog, logger logger.Logger) *Service {
	return &Service{repo: repo, catalog: catalog, logger: logger}
}

// Add repõe o estoque do próprio ator na filial dele: o saldo da empresa
// quando o ator é admin, o saldo pessoal quando é usuário final (reposição
// própria, fora do ciclo de solicitação).
// O item é criado de forma preguiçosa na primeira gravação; a taxa informada
// sobrescreve a anterior e o valor derivado é recalculado.
func (s *Service) Add(ctx context.Context, claims middleware.UserClaims, input domain.StockAddRequest) (domain.StockRecord, error) {
	s.logger.Debug("Iniciando adição de estoque no serviço.", map[string]interface{}{
		"owner_id": claims.UserID, "item_name": input.ItemName, "quantity": input.Quantity,
	})

	if strings.TrimSpace(input.ItemName) == "" {
		return domain.StockRecord{}, apperror.NewValidationError("O nome do item é obrigatório.")
	}
	if input.Quantity <= 0 {
		return domain.StockRecord{}, apperror.NewValidationError("A quantidade deve ser maior que zero.")
	}
	if input.Rate < 0 {
		return domain.StockRecord{}, apperror.NewValidationError("A taxa não pode ser negativa.")
	}

	item, err := s.catalog.FindOrCreateByName(ctx, input.ItemName, input.Category, input.Unit, input.Description)
	if err != nil {
		return domain.StockRecord{}, err
	}

	key := domain.StockKey{
		ItemID:    item.ID,
		OwnerID:   claims.UserID,
		OwnerKind: ownerKindForRole(claims.Role),
		Branch:    claims.Branch,
	}

	record, err := s.repo.Credit(ctx, key, input.Quantity, input.Rate)
	if err != nil {
		s.logger.Error("Falha ao creditar estoque no repositório.", err)
		return domain.StockRecord{}, err
	}

	s.logger.Info("Estoque adicionado com sucesso.", map[string]interface{}{
		"item_id": item.ID, "owner_id": claims.UserID, "new_quantity": record.Quantity,
	})
	return record, nil
}

// Transfer move estoque da empresa do ator para outro detentor, fora do ciclo
// de solicitação (emissão direta). A origem é sempre o próprio ator: não há
// como movimentar estoque de terceiros por esta operação.
func (s *Service) Transfer(ctx context.Context, claims middleware.UserClaims, input domain.StockTransferRequest) (domain.TransferResult, error) {
	if strings.TrimSpace(input.ItemName) == "" {
		return domain.TransferResult{}, apperror.NewValidationError("O nome do item é obrigatório.")
	}
	if input.Quantity <= 0 {
		return domain.TransferResult{}, apperror.NewValidationError("A quantidade deve ser maior que zero.")
	}
	if input.ToOwnerID == "" {
		return domain.TransferResult{}, apperror.NewValidationError("O detentor de destino é obrigatório.")
	}
	if input.ToKind != domain.OwnerCompany && input.ToKind != domain.OwnerUser {
		return domain.TransferResult{}, apperror.NewValidationError("Tipo de detentor de destino inválido.")
	}

	// A transferência não auto-cria itens: origem sem item é origem sem saldo.
	item, err := s.catalog.FindByName(ctx, input.ItemName)
	if err != nil {
		return domain.TransferResult{}, err
	}

	branch := input.Branch
	if branch == "" {
		branch = claims.Branch
	}

	from := domain.StockOwner{ID: claims.UserID, Kind: domain.OwnerCompany}
	to := domain.StockOwner{ID: input.ToOwnerID, Kind: input.ToKind}

	result, err := s.repo.Transfer(ctx, item.ID, from, to, input.Quantity, branch)
	if err != nil {
		s.logger.Error("Falha na transferência de estoque.", err)
		return domain.TransferResult{}, err
	}

	s.logger.Info("Transferência de estoque concluída.", map[string]interface{}{
		"item_id": item.ID, "from": from.ID, "to": to.ID, "quantity": input.Quantity,
	})
	return result, nil
}

// Summary retorna o resumo de estoque do próprio ator: a visão da empresa para
// admin/superadmin, a visão pessoal para o usuário.
func (s *Service) Summary(ctx context.Context, claims middleware.UserClaims) ([]domain.StockSummaryEntry, error) {
	owner := domain.StockOwner{ID: claims.UserID, Kind: ownerKindForRole(claims.Role)}

	entries, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		s.logger.Error("Falha ao listar resumo de estoque.", err)
		return nil, err
	}
	return entries, nil
}

// SummaryOf retorna o estoque pessoal de um usuário específico. Operação de
// inspeção restrita a admin/superadmin.
func (s *Service) SummaryOf(ctx context.Context, claims middleware.UserClaims, ownerID string) ([]domain.StockSummaryEntry, error) {
	if claims.Role != domain.RoleAdmin && claims.Role != domain.RoleSuperAdmin {
		return nil, apperror.NewForbiddenError("Apenas admins podem inspecionar o estoque de outros usuários.")
	}

	entries, err := s.repo.ListByOwner(ctx, domain.StockOwner{ID: ownerID, Kind: domain.OwnerUser})
	if err != nil {
		s.logger.Error("Falha ao listar estoque do usuário inspecionado.", err)
		return nil, err
	}
	return entries, nil
}

// SummaryAll retorna o estoque pessoal de TODOS os usuários, com a identidade
// do dono em cada linha. Operação de inspeção restrita a admin/superadmin.
func (s *Service) SummaryAll(ctx context.Context, claims middleware.UserClaims) ([]domain.OwnerStockSummaryEntry, error) {
	if claims.Role != domain.RoleAdmin && claims.Role != domain.RoleSuperAdmin {
		return nil, apperror.NewForbiddenError("Apenas admins podem inspecionar o estoque global de usuários.")
	}

	entries, err := s.repo.ListAllByKind(ctx, domain.OwnerUser)
	if err != nil {
		s.logger.Error("Falha ao listar estoque global de usuários.", err)
		return nil, err
	}
	return entries, nil
}

// ownerKindForRole mapeia o papel do ator para o tipo de detentor do saldo
// que ele movimenta e enxerga como próprio.
func ownerKindForRole(role domain.UserRole) domain.OwnerKind {
	if role == domain.RoleAdmin || role == domain.RoleSuperAdmin {
		return domain.OwnerCompany
	}
	return domain.OwnerUser
}
