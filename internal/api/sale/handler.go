package sale

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

// Limite de tamanho do upload de nota fiscal de venda (10 MB).
const maxInvoiceUploadBytes = 10 << 20

// SaleService define o contrato que o Handler espera da camada de Serviço.
type SaleService interface {
	Record(ctx context.Context, claims middleware.UserClaims, input domain.SaleCreate) (domain.Sale, error)
	List(ctx context.Context, claims middleware.UserClaims) ([]domain.Sale, error)
	UploadInvoice(ctx context.Context, claims middleware.UserClaims, saleID string, inv domain.Invoice) error
}

// Handler agrupa todos os métodos de Handler de vendas.
type Handler struct {
	Service SaleService
	Files   filestore.Store
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando Service, Store de arquivos e Logger.
func NewHandler(svc SaleService, files filestore.Store, log logger.Logger) *Handler {
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

func (h *Handler) claims(w http.ResponseWriter, r *http.Request) (middleware.UserClaims, bool) {
	claims, ok := middleware.GetUserClaimsFromContext(r.Context())
	if !ok {
		h.handleServiceResponse(w, r, nil, apperror.NewUnauthorizedError("Credenciais não encontradas no contexto."), http.StatusOK)
	}
	return claims, ok
}

// RecordSaleHandler lida com a requisição POST /v1/sales.
// @Summary Registra uma venda do usuário a um cliente externo
// @Description Debita o estoque pessoal do vendedor antes de criar a venda; sem saldo, a venda não é registrada.
// @Tags sales
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sale body domain.SaleCreate true "Item, quantidade, preço e dados do cliente"
// @Success 201 {object} domain.Sale
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 404 {object} domain.ErrorResponse "Item não encontrado"
// @Failure 422 {object} domain.ErrorResponse "Estoque pessoal insuficiente"
// @Router /sales [post]
func (h *Handler) RecordSaleHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	var input domain.SaleCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusCreated)
		return
	}

	sale, err := h.Service.Record(r.Context(), claims, input)
	h.handleServiceResponse(w, r, sale, err, http.StatusCreated)
}

// ListSalesHandler lida com a requisição GET /v1/sales.
// @Summary Lista as vendas do vendedor autenticado
// @Tags sales
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Sale
// @Router /sales [get]
func (h *Handler) ListSalesHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	sales, err := h.Service.List(r.Context(), claims)
	h.handleServiceResponse(w, r, sales, err, http.StatusOK)
}

// UploadInvoiceHandler lida com a requisição POST /v1/sales/{id}/invoice.
// @Summary Anexa a nota fiscal de uma venda
// @Description Recebe multipart/form-data com o campo "invoice"; apenas o vendedor dono da venda pode anexar.
// @Tags sales
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID da venda"
// @Param invoice formData file true "Arquivo da nota fiscal"
// @Success 204 "Nota fiscal anexada"
// @Failure 400 {object} domain.ErrorResponse "Arquivo ausente ou inválido"
// @Failure 404 {object} domain.ErrorResponse "Venda não encontrada para este vendedor"
// @Router /sales/{id}/invoice [post]
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

	filePath, fileType, err := h.Files.Save("sales", header.Filename, file)
	if err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewInternalError("Falha ao gravar o arquivo da nota fiscal.", err), http.StatusOK)
		return
	}

	inv := domain.Invoice{FilePath: filePath, FileType: fileType}
	err = h.Service.UploadInvoice(r.Context(), claims, r.PathValue("id"), inv)
	h.handleServiceResponse(w, r, nil, err, http.StatusNoContent)
}
