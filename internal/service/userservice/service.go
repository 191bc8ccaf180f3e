package userservice

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"almox/internal/domain"
	apperror "almox/internal/errors"
	"almox/internal/pkg/logger"
)

// UserRepository define o contrato de persistência para a entidade User.
type UserRepository interface {
	Save(ctx context.Context, user domain.User) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByID(ctx context.Context, id string) (domain.User, error)
	FindAll(ctx context.Context) ([]domain.User, error)
}

// TokenService é o contrato da camada de token (internal/pkg/token).
type TokenService interface {
	GenerateToken(userID string, userRole string, branch string) (string, error)
}

// Service é a camada de lógica de negócio para a entidade User.
type Service struct {
	repo     UserRepository
	tokenSvc TokenService
	logger   logger.Logger
}

// NewService cria uma nova instância do Serviço de Usuário.
func NewService(repo UserRepository, tokenSvc TokenService, logger logger.Logger) *Service {
	return &Service{repo: repo, tokenSvc: tokenSvc, logger: logger}
}

// Register registra um novo usuário no sistema com o papel padrão "user".
// Faz o hashing da senha e lida com validações básicas.
func (s *Service) Register(ctx context.Context, registration domain.UserRegistration) (domain.User, error) {
	// 1. Validação Básica
	if strings.TrimSpace(registration.Name) == "" {
		return domain.User{}, apperror.NewValidationError("O nome é obrigatório.")
	}
	if registration.Email == "" || registration.Password == "" {
		return domain.User{}, apperror.NewValidationError("Email e senha são obrigatórios.")
	}
	if len(registration.Password) < 6 {
		return domain.User{}, apperror.NewValidationError("A senha deve ter pelo menos 6 caracteres.")
	}

	// 2. Hashing da Senha
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(registration.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, apperror.NewInternalError("Falha ao gerar hash da senha.", err)
	}

	// 3. Criação do Objeto User
	newUser := domain.User{
		Name:         registration.Name,
		Email:        strings.ToLower(strings.TrimSpace(registration.Email)),
		PasswordHash: string(hashedPassword),
		Phone:        registration.Phone,
		Location:     registration.Location,
		Branch:       registration.Branch,
		Role:         domain.RoleUser,
	}

	// 4. Chamada ao Repositório para Persistência
	// O repositório já traduz e-mail duplicado em ConflictError (409).
	user, err := s.repo.Save(ctx, newUser)
	if err != nil {
		return domain.User{}, err
	}

	s.logger.Info("Usuário registrado.", map[string]interface{}{"user_id": user.ID, "email": user.Email})
	return user, nil
}

// Login autentica um usuário, verifica a senha e gera um JWT carregando
// o contexto de autorização (papel e filial).
func (s *Service) Login(ctx context.Context, email string, password string) (string, error) {
	// 1. Validação Básica
	if email == "" || password == "" {
		return "", apperror.NewUnauthorizedError("Email e senha são obrigatórios.")
	}

	// 2. Buscar Usuário pelo Email
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		// NotFound vira Unauthorized para não dar dicas a invasores.
		if _, ok := err.(*apperror.NotFoundError); ok {
			return "", apperror.NewUnauthorizedError("Credenciais inválidas.")
		}
		return "", err
	}

	// 3. Comparar Senhas (Hashing)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", apperror.NewUnauthorizedError("Credenciais inválidas.")
	}

	// 4. Gerar JWT
	tokenString, err := s.tokenSvc.GenerateToken(user.ID, string(user.Role), user.Branch)
	if err != nil {
		return "", apperror.NewInternalError("Falha ao gerar token de autenticação.", err)
	}

	return tokenString, nil
}

// Profile retorna os dados do próprio usuário autenticado.
func (s *Service) Profile(ctx context.Context, userID string) (domain.User, error) {
	return s.repo.FindByID(ctx, userID)
}

// ListAll lista todos os usuários (restrito a admin/superadmin na rota).
func (s *Service) ListAll(ctx context.Context) ([]domain.User, error) {
	return s.repo.FindAll(ctx)
}
