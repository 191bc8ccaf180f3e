package dashboard

import (
	"context"
	"encoding/json"
	"net/http"

	apperror "almox/internal/errors"
	"almox/internal/pkg/logger"
	"almox/internal/service/dashboardservice"
)

// DashboardService define o contrato que o Handler espera da camada de Serviço.
type DashboardService interface {
	GetSummary(ctx context.Context) (dashboardservice.Summary, error)
}

// Handler agrupa os métodos de Handler do dashboard.
type Handler struct {
	Service DashboardService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc DashboardService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// SummaryHandler lida com a requisição GET /v1/dashboard.
// @Summary Resumo agregado para o painel do admin
// @Description Contagens de itens e solicitações, expedições do dia e receita acumulada. Resultado cacheado com TTL curto.
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dashboardservice.Summary
// @Failure 403 {object} domain.ErrorResponse "Papel insuficiente"
// @Router /dashboard [get]
func (h *Handler) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.GetSummary(r.Context())
	if err != nil {
		status, category, message := apperror.MapToHTTPStatus(err)
		if status >= 500 {
			h.Logger.Error("Erro interno no serviço de dashboard:", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":     status,
			"category": category,
			"message":  message,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(summary)
}
