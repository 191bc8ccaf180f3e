package errors

import (
	"fmt"
	"net/http"
)

// AppError é a interface central para todos os erros customizados do almox.
// Ela permite que o código externo (Handler) acesse a Categoria e a Mensagem do erro.
type AppError interface {
	Error() string    // Implementa a interface error padrão do Go
	Category() string // Categoria do erro (e.g., "VALIDATION_ERROR", "STATE_CONFLICT")
	HTTPStatus() int  // Código HTTP sugerido para o Handler
	Unwrap() error    // Permite encapsular erros subjacentes (original error)
}

// --- Tipos de Erro Específicos (Erros de Domínio) ---

// ValidationError representa falhas de validação de dados de entrada.
// Rejeitado antes de qualquer mudança de estado; o cliente não deve repetir sem corrigir.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string    { return fmt.Sprintf("Erro de Validação: %s", e.Msg) }
func (e *ValidationError) Category() string { return "VALIDATION_ERROR" }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest } // 400
func (e *ValidationError) Unwrap() error    { return nil }

// NewValidationError cria um novo erro de validação.
func NewValidationError(msg string) AppError {
	return &ValidationError{Msg: msg}
}

// UnauthorizedError representa falha de autenticação (token ausente/inválido,
// credenciais incorretas).
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string    { return fmt.Sprintf("Não autenticado: %s", e.Msg) }
func (e *UnauthorizedError) Category() string { return "UNAUTHORIZED" }
func (e *UnauthorizedError) HTTPStatus() int  { return http.StatusUnauthorized } // 401
func (e *UnauthorizedError) Unwrap() error    { return nil }

// NewUnauthorizedError cria um novo erro de autenticação.
func NewUnauthorizedError(msg string) AppError {
	return &UnauthorizedError{Msg: msg}
}

// ForbiddenError representa falha de autorização: papel errado, escopo de
// empresa/filial errado ou ator que não é dono do recurso. Rejeitado antes
// de qualquer mudança de estado — nunca um no-op silencioso.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string    { return fmt.Sprintf("Acesso negado: %s", e.Msg) }
func (e *ForbiddenError) Category() string { return "FORBIDDEN" }
func (e *ForbiddenError) HTTPStatus() int  { return http.StatusForbidden } // 403
func (e *ForbiddenError) Unwrap() error    { return nil }

// NewForbiddenError cria um novo erro de autorização.
func NewForbiddenError(msg string) AppError {
	return &ForbiddenError{Msg: msg}
}

// NotFoundError representa a ausência de um recurso solicitado.
// Cobre também o ItemNotFound da expedição (lookup por nome normalizado).
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string    { return fmt.Sprintf("Recurso não encontrado: %s", e.Msg) }
func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound } // 404
func (e *NotFoundError) Unwrap() error    { return nil }

// NewNotFoundError cria um novo erro de recurso não encontrado.
func NewNotFoundError(msg string) AppError {
	return &NotFoundError{Msg: msg}
}

// ConflictError representa um conflito de estado: transição inválida da
// máquina de estados ("já processado") ou recurso duplicado. Terminal para o
// cliente — repetir a mesma transição nunca terá sucesso.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string    { return fmt.Sprintf("Conflito de estado: %s", e.Msg) }
func (e *ConflictError) Category() string { return "STATE_CONFLICT" }
func (e *ConflictError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *ConflictError) Unwrap() error    { return nil }

// NewConflictError cria um novo erro de conflito de estado.
func NewConflictError(msg string) AppError {
	return &ConflictError{Msg: msg}
}

// InsufficientStockError representa falha de regra de negócio: saldo
// insuficiente para o débito solicitado. Carrega disponível vs. necessário
// para que o chamador possa repor e tentar de novo.
type InsufficientStockError struct {
	Available int
	Required  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Estoque insuficiente. Disponível: %d, Necessário: %d", e.Available, e.Required)
}
func (e *InsufficientStockError) Category() string { return "INSUFFICIENT_STOCK" }
func (e *InsufficientStockError) HTTPStatus() int  { return http.StatusUnprocessableEntity } // 422
func (e *InsufficientStockError) Unwrap() error    { return nil }

// NewInsufficientStockError cria um erro de saldo insuficiente com as quantidades.
func NewInsufficientStockError(available, required int) AppError {
	return &InsufficientStockError{Available: available, Required: required}
}

// IntegrityError representa a violação de um invariante que nunca deveria
// acontecer (colisão de token, transferência pela metade). Nunca é engolido
// silenciosamente: é sinal de bug, logado e propagado como 500.
type IntegrityError struct {
	Msg string
	Err error
}

func (e *IntegrityError) Error() string    { return fmt.Sprintf("Violação de integridade: %s", e.Msg) }
func (e *IntegrityError) Category() string { return "INTEGRITY_ERROR" }
func (e *IntegrityError) HTTPStatus() int  { return http.StatusInternalServerError } // 500
func (e *IntegrityError) Unwrap() error    { return e.Err }

// NewIntegrityError cria um erro de violação de invariante.
func NewIntegrityError(msg string, err error) AppError {
	return &IntegrityError{Msg: msg, Err: err}
}

// --- Tipos de Erro de Infraestrutura (Encapsulamento) ---

// InternalError representa falhas inesperadas no servidor, serviço ou repositório.
type InternalError struct {
	Msg string
	Err error // Erro original subjacente (e.g., erro do driver SQL)
}

func (e *InternalError) Error() string    { return fmt.Sprintf("Erro Interno: %s", e.Msg) }
func (e *InternalError) Category() string { return "INTERNAL_ERROR" }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError } // 500
func (e *InternalError) Unwrap() error    { return e.Err }

// NewInternalError cria um erro de servidor (para falhas de lógica ou código não esperado).
func NewInternalError(msg string, err error) AppError {
	return &InternalError{Msg: msg, Err: err}
}

// NewDBError é um atalho para criar um InternalError específico de falhas no DB.
func NewDBError(msg string, err error) AppError {
	return NewInternalError(fmt.Sprintf("%s (DB): %s", msg, err.Error()), err)
}

// --- Helper para o Handler (Tradução Final) ---

// MapToHTTPStatus recebe um erro e o traduz para o código HTTP e corpo de resposta.
func MapToHTTPStatus(err error) (int, string, string) {
	if appErr, ok := err.(AppError); ok {
		// O erro é tipado (ValidationError, ConflictError, etc.)
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}

	// Erro não tipado (e.g., erro simples de pacote Go que não implementa AppError)
	// Tratar como erro interno genérico.
	return http.StatusInternalServerError, "UNKNOWN_ERROR", "Ocorreu um erro inesperado."
}
