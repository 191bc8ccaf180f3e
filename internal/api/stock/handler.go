package stock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"almox/internal/domain"
	apperror "almox/internal/errors"
	"almox/internal/pkg/logger"
	"almox/internal/pkg/middleware"
)

// StockService define o contrato que o Handler espera da camada de Serviço.
type StockService interface {
	Add(ctx context.Context, claims middleware.UserClaims, input domain.StockAddRequest) (domain.StockRecord, error)
	Transfer(ctx context.Context, claims middleware.UserClaims, input domain.StockTransferRequest) (domain.TransferResult, error)
	Summary(ctx context.Context, claims middleware.UserClaims) ([]domain.StockSummaryEntry, error)
	SummaryOf(ctx context.Context, claims middleware.UserClaims, ownerID string) ([]domain.StockSummaryEntry, error)
	SummaryAll(ctx context.Context, claims middleware.UserClaims) ([]domain.OwnerStockSummaryEntry, error)
}

// Handler agrupa todos os métodos de Handler de estoque.
type Handler struct {
	Service StockService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc StockService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// handleServiceResponse processa erros de serviço e envia respostas padronizadas ao cliente.
func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err == nil {
		// Sucesso
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)
		if data != nil {
			if jsonErr := json.NewEncoder(w).Encode(data); jsonErr != nil {
				h.Logger.Error("Falha ao codificar JSON de resposta", jsonErr)
				http.Error(w, "Erro ao codificar resposta", http.StatusInternalServerError)
			}
		}
		return
	}

	// TRATAMENTO DE ERROS
	status, category, message := apperror.MapToHTTPStatus(err)

	if status >= 500 {
		h.Logger.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	} else {
		h.Logger.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category), map[string]interface{}{"path": r.URL.Path})
	}

	errorResponse := map[string]interface{}{
		"code":     status,
		"category": category,
		"message":  message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse)
}

func (h *Handler) claims(w http.ResponseWriter, r *http.Request) (middleware.UserClaims, bool) {
	claims, ok := middleware.GetUserClaimsFromContext(r.Context())
	if !ok {
		h.handleServiceResponse(w, r, nil, apperror.NewUnauthorizedError("Credenciais não encontradas no contexto."), http.StatusOK)
	}
	return claims, ok
}

// AddStockHandler lida com a requisição POST /v1/stock.
// @Summary Credita estoque do próprio ator
// @Description Resolve (ou cria) o item pelo nome normalizado e credita a quantidade no saldo do ator: da empresa quando admin, pessoal quando usuário. A taxa informada sobrescreve a anterior.
// @Tags stock
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param addition body domain.StockAddRequest true "Item, quantidade e taxa"
// @Success 200 {object} domain.StockRecord
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 403 {object} domain.ErrorResponse "Papel insuficiente"
// @Router /stock [post]
func (h *Handler) AddStockHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	var input domain.StockAddRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusOK)
		return
	}

	record, err := h.Service.Add(r.Context(), claims, input)
	h.handleServiceResponse(w, r, record, err, http.StatusOK)
}

// TransferStockHandler lida com a requisição POST /v1/stock/transfer.
// @Summary Transfere estoque da empresa do admin para outro dono
// @Description Move a quantidade entre saldos na mesma transação; qualquer falha deixa ambos intactos.
// @Tags stock
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param transfer body domain.StockTransferRequest true "Item, destino e quantidade"
// @Success 200 {object} domain.TransferResult
// @Failure 404 {object} domain.ErrorResponse "Item não encontrado"
// @Failure 422 {object} domain.ErrorResponse "Estoque insuficiente"
// @Router /stock/transfer [post]
func (h *Handler) TransferStockHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	var input domain.StockTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusOK)
		return
	}

	result, err := h.Service.Transfer(r.Context(), claims, input)
	h.handleServiceResponse(w, r, result, err, http.StatusOK)
}

// StockSummaryHandler lida com a requisição GET /v1/stock/summary.
// @Summary Lista o estoque do dono autenticado
// @Description Usuário vê o próprio saldo pessoal; admin vê o saldo da empresa.
// @Tags stock
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.StockSummaryEntry
// @Router /stock/summary [get]
func (h *Handler) StockSummaryHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	entries, err := h.Service.Summary(r.Context(), claims)
	h.handleServiceResponse(w, r, entries, err, http.StatusOK)
}

// UserStockHandler lida com a requisição GET /v1/users/{id}/stock.
// @Summary Lista o estoque pessoal de um usuário específico (admin)
// @Description Inspeção do saldo pessoal de qualquer usuário pela administração.
// @Tags stock
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do usuário"
// @Success 200 {array} domain.StockSummaryEntry
// @Failure 403 {object} domain.ErrorResponse "Papel insuficiente"
// @Router /users/{id}/stock [get]
func (h *Handler) UserStockHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	entries, err := h.Service.SummaryOf(r.Context(), claims, r.PathValue("id"))
	h.handleServiceResponse(w, r, entries, err, http.StatusOK)
}

// AllStockSummaryHandler lida com a requisição GET /v1/stock/all.
// @Summary Lista o estoque pessoal de todos os usuários (admin)
// @Description Visão global dos saldos pessoais, com a identidade do dono em cada linha.
// @Tags stock
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.OwnerStockSummaryEntry
// @Failure 403 {object} domain.ErrorResponse "Papel insuficiente"
// @Router /stock/all [get]
func (h *Handler) AllStockSummaryHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	entries, err := h.Service.SummaryAll(r.Context(), claims)
	h.handleServiceResponse(w, r, entries, err, http.StatusOK)
}
