package request

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"almox/internal/domain"
	apperror "almox/internal/errors"
	"almox/internal/pkg/filestore"
	"almox/internal/pkg/logger"
	"almox/internal/pkg/middleware"
)

// Limite de tamanho do upload de nota fiscal (10 MB).
const maxInvoiceUploadBytes = 10 << 20

// RequestService define o contrato que o Handler espera do motor de solicitações.
type RequestService interface {
	Create(ctx context.Context, claims middleware.UserClaims, input domain.RequestCreate) (domain.Request, error)
	List(ctx context.Context, claims middleware.UserClaims) ([]domain.Request, error)
	Approve(ctx context.Context, claims middleware.UserClaims, requestID string) (domain.Request, error)
	Reject(ctx context.Context, claims middleware.UserClaims, requestID, reason string) (domain.Request, error)
	UploadInvoice(ctx context.Context, claims middleware.UserClaims, requestID string, inv domain.Invoice) (domain.Request, error)
	Dispatch(ctx context.Context, claims middleware.UserClaims, requestID string) (domain.DispatchEntry, error)
	History(ctx context.Context, claims middleware.UserClaims, requestID string) ([]domain.DispatchEntry, error)
}

// Handler agrupa todos os métodos de Handler de solicitações.
type Handler struct {
	Service RequestService
	Files   filestore.Store
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando Service, Store de arquivos e Logger.
func NewHandler(svc RequestService, files filestore.Store, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Files:   files,
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

// claims extrai as credenciais injetadas pelo AuthMiddleware. A ausência
// indica rota mal configurada (sem o middleware), tratada como 401.
func (h *Handler) claims(w http.ResponseWriter, r *http.Request) (middleware.UserClaims, bool) {
	claims, ok := middleware.GetUserClaimsFromContext(r.Context())
	if !ok {
		h.handleServiceResponse(w, r, nil, apperror.NewUnauthorizedError("Credenciais não encontradas no contexto."), http.StatusOK)
	}
	return claims, ok
}

// CreateRequestHandler lida com a requisição POST /v1/requests.
// @Summary Abre uma nova solicitação de item
// @Description Cria a solicitação no estado "requested", endereçada à empresa (admin) informada.
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body domain.RequestCreate true "Dados da solicitação"
// @Success 201 {object} domain.Request
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 404 {object} domain.ErrorResponse "Empresa de destino não encontrada"
// @Router /requests [post]
func (h *Handler) CreateRequestHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	var input domain.RequestCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusCreated)
		return
	}

	created, err := h.Service.Create(r.Context(), claims, input)
	h.handleServiceResponse(w, r, created, err, http.StatusCreated)
}

// ListRequestsHandler lida com a requisição GET /v1/requests.
// @Summary Lista as solicitações visíveis ao ator
// @Description Admin vê as solicitações endereçadas à própria empresa; usuário vê as que abriu.
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Request
// @Router /requests [get]
func (h *Handler) ListRequestsHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	requests, err := h.Service.List(r.Context(), claims)
	h.handleServiceResponse(w, r, requests, err, http.StatusOK)
}

// ApproveRequestHandler lida com a requisição POST /v1/requests/{id}/approve.
// @Summary Aprova uma solicitação pendente
// @Description Transição requested -> approved; atribui o token de acompanhamento.
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID da solicitação"
// @Success 200 {object} domain.Request
// @Failure 403 {object} domain.ErrorResponse "Solicitação de outra empresa"
// @Failure 404 {object} domain.ErrorResponse "Solicitação não encontrada"
// @Failure 409 {object} domain.ErrorResponse "Solicitação já processada"
// @Router /requests/{id}/approve [post]
func (h *Handler) ApproveRequestHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	approved, err := h.Service.Approve(r.Context(), claims, r.PathValue("id"))
	h.handleServiceResponse(w, r, approved, err, http.StatusOK)
}

// RejectRequestHandler lida com a requisição POST /v1/requests/{id}/reject.
// @Summary Rejeita uma solicitação pendente
// @Description Transição requested -> rejected com o motivo informado (ou o padrão, quando omitido).
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID da solicitação"
// @Param rejection body domain.RequestReject false "Motivo da rejeição"
// @Success 200 {object} domain.Request
// @Failure 409 {object} domain.ErrorResponse "Solicitação já processada"
// @Router /requests/{id}/reject [post]
func (h *Handler) RejectRequestHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	// Corpo opcional: sem payload, o serviço aplica o motivo padrão.
	var rejection domain.RequestReject
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&rejection)
	}

	rejected, err := h.Service.Reject(r.Context(), claims, r.PathValue("id"), rejection.Reason)
	h.handleServiceResponse(w, r, rejected, err, http.StatusOK)
}

// UploadInvoiceHandler lida com a requisição POST /v1/requests/{id}/invoice.
// @Summary Anexa a nota fiscal a uma solicitação aprovada
// @Description Recebe multipart/form-data com o campo "invoice" (PDF ou imagem) e grava o arquivo no storage local.
// @Tags requests
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID da solicitação"
// @Param invoice formData file true "Arquivo da nota fiscal"
// @Success 200 {object} domain.Request
// @Failure 400 {object} domain.ErrorResponse "Arquivo ausente ou inválido"
// @Failure 409 {object} domain.ErrorResponse "Solicitação não está aprovada"
// @Router /requests/{id}/invoice [post]
func (h *Handler) UploadInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxInvoiceUploadBytes); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Formulário multipart inválido ou arquivo grande demais."), http.StatusOK)
		return
	}

	file, header, err := r.FormFile("invoice")
	if err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("O campo de arquivo \"invoice\" é obrigatório."), http.StatusOK)
		return
	}
	defer file.Close()

	filePath, fileType, err := h.Files.Save("requests", header.Filename, file)
	if err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewInternalError("Falha ao gravar o arquivo da nota fiscal.", err), http.StatusOK)
		return
	}

	inv := domain.Invoice{FilePath: filePath, FileType: fileType}
	updated, err := h.Service.UploadInvoice(r.Context(), claims, r.PathValue("id"), inv)
	h.handleServiceResponse(w, r, updated, err, http.StatusOK)
}

// DispatchRequestHandler lida com a requisição POST /v1/requests/{id}/dispatch.
// @Summary Expede uma solicitação com nota fiscal anexada
// @Description Transição invoice_uploaded(_by_user) -> dispatched; transfere o estoque da empresa para o solicitante e registra a expedição, tudo em uma única transação.
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID da solicitação"
// @Success 200 {object} domain.DispatchEntry
// @Failure 404 {object} domain.ErrorResponse "Item do catálogo não encontrado"
// @Failure 409 {object} domain.ErrorResponse "Solicitação já processada ou sem nota fiscal"
// @Failure 422 {object} domain.ErrorResponse "Estoque insuficiente"
// @Router /requests/{id}/dispatch [post]
func (h *Handler) DispatchRequestHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	entry, err := h.Service.Dispatch(r.Context(), claims, r.PathValue("id"))
	h.handleServiceResponse(w, r, entry, err, http.StatusOK)
}

// RequestHistoryHandler lida com a requisição GET /v1/requests/{id}/history.
// @Summary Lista as expedições registradas para uma solicitação
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID da solicitação"
// @Success 200 {array} domain.DispatchEntry
// @Failure 404 {object} domain.ErrorResponse "Solicitação não encontrada"
// @Router /requests/{id}/history [get]
func (h *Handler) RequestHistoryHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	entries, err := h.Service.History(r.Context(), claims, r.PathValue("id"))
	h.handleServiceResponse(w, r, entries, err, http.StatusOK)
}
