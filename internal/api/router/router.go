package router

import (
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"almox/internal/api/dashboard"
	"almox/internal/api/request"
	"almox/internal/api/sale"
	"almox/internal/api/stock"
	"almox/internal/api/user"
	"almox/internal/domain"
	"almox/internal/pkg/cache"
	"almox/internal/pkg/middleware"
)

// Handlers agrupa os Handlers já inicializados, por injeção de dependências.
type Handlers struct {
	User      *user.Handler
	Request   *request.Handler
	Stock     *stock.Handler
	Sale      *sale.Handler
	Dashboard *dashboard.Handler
}

// NewRouter configura e retorna o roteador HTTP principal.
// Usamos o ServeMux padrão do net/http com os padrões de método e wildcard
// (Go 1.22+); a autorização por papel fica nos middlewares, o escopo de
// empresa fica no serviço.
func NewRouter(h Handlers, tokenSvc middleware.TokenService, cacheClient cache.Client, rateLimit int, ratePeriod time.Duration) http.Handler {
	mux := http.NewServeMux()

	auth := middleware.NewAuthMiddleware(tokenSvc)
	adminOnly := middleware.PermissionMiddleware(domain.RoleAdmin, domain.RoleSuperAdmin)
	superOnly := middleware.PermissionMiddleware(domain.RoleSuperAdmin)
	userOnly := middleware.PermissionMiddleware(domain.RoleUser)

	// --- 1. Rotas de Health Check ---
	mux.HandleFunc("GET /ping", PingHandler)

	// --- 2. Autenticação (públicas) ---
	mux.HandleFunc("POST /v1/auth/register", h.User.RegisterUserHandler)
	mux.HandleFunc("POST /v1/auth/login", h.User.LoginUserHandler)

	// --- 3. Usuários ---
	mux.HandleFunc("GET /v1/users/me", auth(h.User.ProfileHandler))
	mux.HandleFunc("GET /v1/users", auth(superOnly(h.User.ListUsersHandler)))

	// --- 4. Solicitações (máquina de estados) ---
	// Criar e anexar nota são abertas a qualquer papel autenticado: o serviço
	// decide o status resultante conforme quem anexa. Aprovar, rejeitar e
	// expedir são atos da empresa (admin).
	mux.HandleFunc("POST /v1/requests", auth(h.Request.CreateRequestHandler))
	mux.HandleFunc("GET /v1/requests", auth(h.Request.ListRequestsHandler))
	mux.HandleFunc("POST /v1/requests/{id}/approve", auth(adminOnly(h.Request.ApproveRequestHandler)))
	mux.HandleFunc("POST /v1/requests/{id}/reject", auth(adminOnly(h.Request.RejectRequestHandler)))
	mux.HandleFunc("POST /v1/requests/{id}/invoice", auth(h.Request.UploadInvoiceHandler))
	mux.HandleFunc("POST /v1/requests/{id}/dispatch", auth(adminOnly(h.Request.DispatchRequestHandler)))
	mux.HandleFunc("GET /v1/requests/{id}/history", auth(h.Request.RequestHistoryHandler))

	// --- 5. Estoque ---
	// A adição credita o saldo do próprio ator (empresa para admin, pessoal
	// para usuário), então fica aberta a qualquer papel autenticado. As rotas
	// de inspeção de saldos alheios são da administração.
	mux.HandleFunc("POST /v1/stock", auth(h.Stock.AddStockHandler))
	mux.HandleFunc("POST /v1/stock/transfer", auth(adminOnly(h.Stock.TransferStockHandler)))
	mux.HandleFunc("GET /v1/stock/summary", auth(h.Stock.StockSummaryHandler))
	mux.HandleFunc("GET /v1/stock/all", auth(adminOnly(h.Stock.AllStockSummaryHandler)))
	mux.HandleFunc("GET /v1/users/{id}/stock", auth(adminOnly(h.Stock.UserStockHandler)))

	// --- 6. Vendas (estoque pessoal do usuário) ---
	mux.HandleFunc("POST /v1/sales", auth(userOnly(h.Sale.RecordSaleHandler)))
	mux.HandleFunc("GET /v1/sales", auth(h.Sale.ListSalesHandler))
	mux.HandleFunc("POST /v1/sales/{id}/invoice", auth(h.Sale.UploadInvoiceHandler))

	// --- 7. Dashboard (admin) ---
	mux.HandleFunc("GET /v1/dashboard", auth(adminOnly(h.Dashboard.SummaryHandler)))

	// --- 8. Documentação Swagger ---
	mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// --- 9. Middlewares globais ---
	// O rate limiter (Redis) envolve o mux inteiro, inclusive as rotas públicas.
	return middleware.RateLimiter(cacheClient, rateLimit, ratePeriod)(mux)
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
