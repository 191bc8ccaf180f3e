package saleservice

import (
	"context"
	"strings"
	"time"

	"almox/internal/domain"
	apperror "almox/internal/errors"
	"almox/internal/pkg/logger"
	"almox/internal/pkg/middleware"
)

// SaleRepository persiste as vendas já validadas.
type SaleRepository interface {
	Save(ctx context.Context, sale domain.Sale) (domain.Sale, error)
	FindBySeller(ctx context.Context, sellerID string) ([]domain.Sale, error)
	AttachInvoice(ctx context.Context, saleID, sellerID string, inv domain.Invoice) error
}

// StockDebiter é o pedaço do razão de estoque que a venda precisa: o débito
// atômico do estoque do vendedor.
type StockDebiter interface {
	Debit(ctx context.Context, key domain.StockKey, quantity int) (domain.StockRecord, error)
}

// ItemCatalog resolve itens por nome normalizado (sem auto-criação: o usuário
// só vende o que já detém).
type ItemCatalog interface {
	FindByName(ctx context.Context, name string) (domain.Item, error)
}

// Service é o razão de vendas. Compartilha com o razão de estoque o padrão
// valida-depois-muta, com uma regra de ordem estrita: o débito do estoque vem
// ANTES da criação da venda. Se o débito falha, nenhuma venda é gravada —
// nunca criar-e-compensar.
type Service struct {
	repo    SaleRepository
	stock   StockDebiter
	catalog ItemCatalog
	logger  logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Vendas.
func NewService(repo SaleRepository, stock StockDebiter, catalog ItemCatalog, logger logger.Logger) *Service {
	return &Service{repo: repo, stock: stock, catalog: catalog, logger: logger}
}

// Record registra uma venda do usuário a partir do próprio estoque.
func (s *Service) Record(ctx context.Context, claims middleware.UserClaims, input domain.SaleCreate) (domain.Sale, error) {
	s.logger.Debug("Iniciando registro de venda no serviço.", map[string]interface{}{
		"seller_id": claims.UserID, "item_name": input.ItemName, "quantity": input.Quantity,
	})

	// 1. Validação de entrada
	if strings.TrimSpace(input.ItemName) == "" {
		return domain.Sale{}, apperror.NewValidationError("O nome do item é obrigatório.")
	}
	if input.Quantity <= 0 {
		return domain.Sale{}, apperror.NewValidationError("A quantidade deve ser maior que zero.")
	}
	if input.Price < 0 {
		return domain.Sale{}, apperror.NewValidationError("O preço não pode ser negativo.")
	}
	if strings.TrimSpace(input.CustomerName) == "" {
		return domain.Sale{}, apperror.NewValidationError("O nome do cliente é obrigatório.")
	}

	// 2. Resolver o item (sem auto-criação)
	item, err := s.catalog.FindByName(ctx, input.ItemName)
	if err != nil {
		return domain.Sale{}, err
	}

	// 3. Debitar o estoque do vendedor PRIMEIRO. InsufficientStock aqui
	// significa que nenhuma venda será criada.
	key := domain.StockKey{
		ItemID:    item.ID,
		OwnerID:   claims.UserID,
		OwnerKind: domain.OwnerUser,
		Branch:    claims.Branch,
	}
	if _, err := s.stock.Debit(ctx, key, input.Quantity); err != nil {
		s.logger.Warn("Débito de estoque da venda rejeitado.", map[string]interface{}{
			"seller_id": claims.UserID, "item_id": item.ID, "error": err.Error(),
		})
		return domain.Sale{}, err
	}

	// 4. Só com o débito confirmado a venda é persistida.
	sale := domain.Sale{
		SellerID:        claims.UserID,
		CustomerName:    input.CustomerName,
		CustomerEmail:   input.CustomerEmail,
		CustomerAddress: input.CustomerAddress,
		ItemID:          item.ID,
		Quantity:        input.Quantity,
		Price:           input.Price,
		SaleDate:        time.Now(),
	}

	created, err := s.repo.Save(ctx, sale)
	if err != nil {
		s.logger.Error("Falha ao persistir venda após débito de estoque.", err)
		return domain.Sale{}, err
	}

	s.logger.Info("Venda registrada com sucesso.", map[string]interface{}{
		"sale_id": created.ID, "total_amount": created.TotalAmount,
	})
	return created, nil
}

// List retorna as vendas do próprio vendedor.
func (s *Service) List(ctx context.Context, claims middleware.UserClaims) ([]domain.Sale, error) {
	return s.repo.FindBySeller(ctx, claims.UserID)
}

// UploadInvoice anexa a nota fiscal de uma venda do próprio vendedor.
func (s *Service) UploadInvoice(ctx context.Context, claims middleware.UserClaims, saleID string, inv domain.Invoice) error {
	if inv.FilePath == "" {
		return apperror.NewValidationError("O arquivo da nota fiscal é obrigatório.")
	}
	inv.UploadedBy = claims.UserID
	if inv.UploadedAt.IsZero() {
		inv.UploadedAt = time.Now()
	}
	return s.repo.AttachInvoice(ctx, saleID, claims.UserID, inv)
}
