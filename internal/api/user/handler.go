package user

import (
	"context"
	"encoding/json"
	"net/http"

	"almox/internal/domain"
	apperror "almox/internal/errors"
	"almox/internal/pkg/logger"
	"almox/internal/pkg/middleware"
)

// UserService define o contrato para as operações de registro, login e perfil.
type UserService interface {
	Register(ctx context.Context, registration domain.UserRegistration) (domain.User, error)
	Login(ctx context.Context, email string, password string) (string, error)
	Profile(ctx context.Context, userID string) (domain.User, error)
	ListAll(ctx context.Context) ([]domain.User, error)
}

// LoginRequest representa o payload de entrada para o login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Handler agrupa todos os métodos de Handler do usuário.
type Handler struct {
	Service UserService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc UserService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// handleServiceResponse padroniza o tratamento de erros e respostas HTTP.
func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)
		if data != nil {
			json.NewEncoder(w).Encode(data)
		}
		return
	}

	// Mapeamento de Erros de Negócio para Status HTTP
	status, category, message := apperror.MapToHTTPStatus(err)

	// Log apenas de erros graves
	if status >= 500 {
		h.Logger.Error("Erro interno no serviço de usuário:", err)
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

// RegisterUserHandler lida com a requisição POST /v1/auth/register.
// @Summary Registra um novo usuário
// @Description Cria um novo usuário com papel "user", hasheia a senha e salva no banco de dados.
// @Tags users
// @Accept json
// @Produce json
// @Param registration body domain.UserRegistration true "Dados de registro"
// @Success 201 {object} domain.User "Usuário criado com sucesso"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido (JSON malformado ou campos obrigatórios ausentes)"
// @Failure 409 {object} domain.ErrorResponse "Email já cadastrado"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /auth/register [post]
func (h *Handler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reg domain.UserRegistration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusCreated)
		return
	}

	// O objeto retornado pelo serviço já tem o PasswordHash oculto,
	// pois a struct domain.User usa a tag `json:"-"`.
	newUser, err := h.Service.Register(ctx, reg)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusCreated)
		return
	}

	h.handleServiceResponse(w, r, newUser, nil, http.StatusCreated)
}

// LoginUserHandler lida com a requisição POST /v1/auth/login.
// @Summary Autentica um usuário e retorna um JWT
// @Description Recebe email/senha, verifica a validade e emite um JSON Web Token com papel e filial.
// @Tags users
// @Accept json
// @Produce json
// @Param login body LoginRequest true "Credenciais do usuário (email e senha)"
// @Success 200 {object} map[string]string "Token JWT emitido"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 401 {object} domain.ErrorResponse "Credenciais inválidas"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /auth/login [post]
func (h *Handler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var loginReq LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusOK)
		return
	}

	token, err := h.Service.Login(ctx, loginReq.Email, loginReq.Password)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	response := map[string]string{"token": token}
	h.handleServiceResponse(w, r, response, nil, http.StatusOK)
}

// ProfileHandler lida com a requisição GET /v1/users/me.
// @Summary Retorna o perfil do usuário autenticado
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.User
// @Failure 401 {object} domain.ErrorResponse "Token ausente ou inválido"
// @Failure 404 {object} domain.ErrorResponse "Usuário não encontrado"
// @Router /users/me [get]
func (h *Handler) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := middleware.GetUserClaimsFromContext(ctx)
	if !ok {
		h.handleServiceResponse(w, r, nil, apperror.NewUnauthorizedError("Credenciais não encontradas no contexto."), http.StatusOK)
		return
	}

	profile, err := h.Service.Profile(ctx, claims.UserID)
	h.handleServiceResponse(w, r, profile, err, http.StatusOK)
}

// ListUsersHandler lida com a requisição GET /v1/users (somente superadmin).
// @Summary Lista todos os usuários
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.User
// @Failure 403 {object} domain.ErrorResponse "Papel insuficiente"
// @Router /users [get]
func (h *Handler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListAll(r.Context())
	h.handleServiceResponse(w, r, users, err, http.StatusOK)
}
