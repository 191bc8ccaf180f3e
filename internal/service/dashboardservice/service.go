package dashboardservice

import (
	"context"
	"encoding/json"
	"time"

	"almox/internal/domain"
	apperror "almox/internal/errors"
	"almox/internal/pkg/cache"
	"almox/internal/pkg/logger"
)

// Chave de cache do resumo do dashboard.
const summaryCacheKey = "dashboard:summary"

// Summary é o resumo agregado exibido ao admin.
type Summary struct {
	TotalItems      int     `json:"total_items"`
	PendingRequests int     `json:"pending_requests"`
	PurchaseOrders  int     `json:"purchase_orders"` // aprovadas + expedidas
	DispatchesToday int     `json:"dispatches_today"`
	Revenue         float64 `json:"revenue"` // soma de quantity * rate das expedições
}

// RequestCounter fornece as contagens de solicitações.
type RequestCounter interface {
	CountByStatus(ctx context.Context, statuses ...domain.RequestStatus) (int, error)
	CountDispatchedSince(ctx context.Context, since time.Time) (int, error)
}

// ItemCounter fornece o total de itens do catálogo.
type ItemCounter interface {
	Count(ctx context.Context) (int, error)
}

// RevenueReader soma a receita das expedições.
type RevenueReader interface {
	Revenue(ctx context.Context) (float64, error)
}

// Service agrega as contagens do dashboard. Consumidor somente-leitura do
// núcleo: nunca muta solicitações nem estoque. O resumo é cacheado no Redis
// com TTL curto para não martelar o DB a cada refresh de tela.
type Service struct {
	requests RequestCounter
	items    ItemCounter
	revenue  RevenueReader
	cache    cache.Client
	ttl      time.Duration
	logger   logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Dashboard.
func NewService(requests RequestCounter, items ItemCounter, revenue RevenueReader, cacheClient cache.Client, ttl time.Duration, logger logger.Logger) *Service {
	return &Service{
		requests: requests,
		items:    items,
		revenue:  revenue,
		cache:    cacheClient,
		ttl:      ttl,
		logger:   logger,
	}
}

// GetSummary monta o resumo do dia, com estratégia Cache-Aside.
func (s *Service) GetSummary(ctx context.Context) (Summary, error) {
	// 1. Tentar o Cache primeiro
	if cached, err := s.cache.Get(ctx, summaryCacheKey); err == nil {
		var summary Summary
		if jsonErr := json.Unmarshal([]byte(cached), &summary); jsonErr == nil {
			s.logger.Debug("Resumo de dashboard servido do cache.", nil)
			return summary, nil
		}
		s.cache.Delete(ctx, summaryCacheKey)
	}

	// 2. Cache miss: agregar do DB
	var summary Summary
	var err error

	if summary.TotalItems, err = s.items.Count(ctx); err != nil {
		return Summary{}, s.wrap(err)
	}
	if summary.PendingRequests, err = s.requests.CountByStatus(ctx, domain.StatusRequested); err != nil {
		return Summary{}, s.wrap(err)
	}
	if summary.PurchaseOrders, err = s.requests.CountByStatus(ctx,
		domain.StatusApproved, domain.StatusInvoiceUploaded, domain.StatusInvoiceUploadedByUser, domain.StatusDispatched); err != nil {
		return Summary{}, s.wrap(err)
	}

	// Meia-noite no fuso local do processo; Truncate(24h) daria meia-noite UTC
	// e contaria o "hoje" errado em qualquer implantação fora de UTC.
	now := time.Now()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if summary.DispatchesToday, err = s.requests.CountDispatchedSince(ctx, startOfToday); err != nil {
		return Summary{}, s.wrap(err)
	}
	if summary.Revenue, err = s.revenue.Revenue(ctx); err != nil {
		return Summary{}, s.wrap(err)
	}

	// 3. Popular o cache
	if data, jsonErr := json.Marshal(summary); jsonErr == nil {
		s.cache.Set(ctx, summaryCacheKey, string(data), s.ttl)
	}

	return summary, nil
}

func (s *Service) wrap(err error) error {
	s.logger.Error("Falha ao montar resumo de dashboard.", err)
	if _, ok := err.(apperror.AppError); ok {
		return err
	}
	return apperror.NewInternalError("Falha ao montar resumo de dashboard.", err)
}
