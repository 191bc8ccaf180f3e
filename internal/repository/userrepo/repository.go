package userrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"almox/internal/domain"
	apperror "almox/internal/errors"
	"almox/internal/pkg/logger"
)

// Código de erro do PostgreSQL para violação de chave única (e-mail duplicado).
const pqUniqueViolation = "23505"

// UserRepository implementa a persistência da entidade User.
type UserRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewUserRepository cria uma nova instância do UserRepository, injetando o DB.
func NewUserRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *UserRepository {
	return &UserRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

const userColumns = `id, name, email, password_hash, phone, location, branch, role, created_at, updated_at`

// Save insere um novo usuário no banco de dados.
func (r *UserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	r.logger.Debug("Iniciando Save de usuário no repositório.", map[string]interface{}{"email": user.Email})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	query := `
        INSERT INTO users (id, name, email, password_hash, phone, location, branch, role, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.DB.ExecContext(ctxTimeout, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Phone,
		user.Location, user.Branch, user.Role, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == pqUniqueViolation {
			return domain.User{}, apperror.NewConflictError(fmt.Sprintf("O email '%s' já está em uso.", user.Email))
		}
		r.logger.Error("Falha ao inserir usuário no DB.", err)
		return domain.User{}, apperror.NewDBError("Falha ao inserir usuário", err)
	}

	r.logger.Info("Usuário salvo com sucesso no repositório.", map[string]interface{}{"user_id": user.ID, "email": user.Email})
	return user, nil
}

// FindByEmail busca um usuário pelo endereço de e-mail.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := r.scanUser(r.DB.QueryRowContext(ctxTimeout, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, apperror.NewNotFoundError(fmt.Sprintf("Usuário com email '%s' não encontrado.", email))
		}
		r.logger.Error("Falha ao buscar usuário por email no DB.", err)
		return domain.User{}, apperror.NewDBError("Falha ao buscar usuário por email", err)
	}
	return user, nil
}

// FindByID busca um usuário pelo ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := r.scanUser(r.DB.QueryRowContext(ctxTimeout, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, apperror.NewNotFoundError(fmt.Sprintf("Usuário %s não encontrado.", id))
		}
		r.logger.Error("Falha ao buscar usuário por ID no DB.", err)
		return domain.User{}, apperror.NewDBError("Falha ao buscar usuário por ID", err)
	}
	return user, nil
}

// FindAll lista todos os usuários (visão do admin; o hash nunca sai no JSON).
func (r *UserRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctxTimeout, query)
	if err != nil {
		r.logger.Error("Falha ao listar usuários no DB.", err)
		return nil, apperror.NewDBError("Falha ao listar usuários", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, scanErr := r.scanUser(rows)
		if scanErr != nil {
			return nil, apperror.NewDBError("Falha ao ler linha de usuário", scanErr)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Falha ao iterar usuários", err)
	}
	return users, nil
}

func (r *UserRepository) scanUser(row interface{ Scan(...interface{}) error }) (domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Phone,
		&user.Location, &user.Branch, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	return user, err
}
