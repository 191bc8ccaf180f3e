package requestrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"almox/internal/domain"
	apperror "almox/internal/errors"
	"almox/internal/pkg/logger"
)

// Código de erro do PostgreSQL para violação de chave única.
const pqUniqueViolation = "23505"

// RequestRepository persiste as solicitações e executa as transições da
// máquina de estados. Cada transição compila a precondição de status na
// cláusula WHERE do UPDATE: duas chamadas concorrentes da mesma transição
// produzem exatamente um sucesso e um conflito de estado, nunca dois sucessos.
type RequestRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewRequestRepository cria e retorna uma nova instância do Repositório de Solicitações.
func NewRequestRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *RequestRepository {
	return &RequestRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

const requestColumns = `
    id, requester_id, company_id, item_name, item_id, quantity, priority,
    delivery_address, status, token, invoice_file_path, invoice_file_type,
    invoice_uploaded_by, invoice_uploaded_at, rejection_reason,
    requested_at, approved_at, dispatched_at, created_at, updated_at`

// scanRequest mapeia uma linha para a struct de domínio, tratando os NULLs.
func scanRequest(row interface{ Scan(...interface{}) error }) (domain.Request, error) {
	var req domain.Request
	var itemID, token, rejectionReason sql.NullString
	var invPath, invType, invBy sql.NullString
	var invAt, approvedAt, dispatchedAt sql.NullTime

	err := row.Scan(
		&req.ID, &req.RequesterID, &req.CompanyID, &req.ItemName, &itemID, &req.Quantity, &req.Priority,
		&req.DeliveryAddress, &req.Status, &token, &invPath, &invType,
		&invBy, &invAt, &rejectionReason,
		&req.RequestedAt, &approvedAt, &dispatchedAt, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return domain.Request{}, err
	}

	req.ItemID = itemID.String
	req.Token = token.String
	req.RejectionReason = rejectionReason.String
	if approvedAt.Valid {
		req.ApprovedAt = &approvedAt.Time
	}
	if dispatchedAt.Valid {
		req.DispatchedAt = &dispatchedAt.Time
	}
	if invPath.Valid {
		req.Invoice = &domain.Invoice{
			FilePath:   invPath.String,
			FileType:   invType.String,
			UploadedBy: invBy.String,
		}
		if invAt.Valid {
			req.Invoice.UploadedAt = invAt.Time
			req.InvoiceUploadedAt = &invAt.Time
		}
	}
	return req, nil
}

// Save insere uma nova solicitação no estado inicial "requested".
func (r *RequestRepository) Save(ctx context.Context, req domain.Request) (domain.Request, error) {
	r.logger.Debug("Iniciando Save de solicitação no repositório.", map[string]interface{}{
		"requester_id": req.RequesterID, "company_id": req.CompanyID, "item_name": req.ItemName,
	})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	req.ID = uuid.NewString()
	now := time.Now()
	req.Status = domain.StatusRequested
	req.RequestedAt = now
	req.CreatedAt = now
	req.UpdatedAt = now

	query := `
        INSERT INTO requests (id, requester_id, company_id, item_name, quantity, priority,
                              delivery_address, status, requested_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`

	_, err := r.DB.ExecContext(ctxTimeout, query,
		req.ID, req.RequesterID, req.CompanyID, req.ItemName, req.Quantity, req.Priority,
		req.DeliveryAddress, req.Status, req.RequestedAt, now,
	)
	if err != nil {
		r.logger.Error("Falha ao inserir solicitação no DB.", err)
		return domain.Request{}, apperror.NewDBError("Falha ao inserir solicitação", err)
	}

	r.logger.Info("Solicitação criada.", map[string]interface{}{"request_id": req.ID})
	return req, nil
}

// FindByID busca uma solicitação pelo ID.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (domain.Request, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`
	req, err := scanRequest(r.DB.QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		return domain.Request{}, apperror.NewNotFoundError(fmt.Sprintf("Solicitação %s não encontrada.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar solicitação no DB.", err)
		return domain.Request{}, apperror.NewDBError("Falha ao buscar solicitação", err)
	}
	return req, nil
}

// FindByCompany lista as solicitações destinadas a uma empresa (admin).
func (r *RequestRepository) FindByCompany(ctx context.Context, companyID string) ([]domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE company_id = $1 ORDER BY requested_at DESC`
	return r.findAll(ctx, query, companyID)
}

// FindByRequester lista as solicitações abertas por um usuário.
func (r *RequestRepository) FindByRequester(ctx context.Context, requesterID string) ([]domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE requester_id = $1 ORDER BY requested_at DESC`
	return r.findAll(ctx, query, requesterID)
}

// FindAllCompanies lista as solicitações de TODAS as empresas (visão do superadmin).
func (r *RequestRepository) FindAllCompanies(ctx context.Context) ([]domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests ORDER BY requested_at DESC`
	return r.findAll(ctx, query)
}

func (r *RequestRepository) findAll(ctx context.Context, query string, args ...interface{}) ([]domain.Request, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar solicitações no DB.", err)
		return nil, apperror.NewDBError("Falha ao listar solicitações", err)
	}
	defer rows.Close()

	var requests []domain.Request
	for rows.Next() {
		req, scanErr := scanRequest(rows)
		if scanErr != nil {
			return nil, apperror.NewDBError("Falha ao ler linha de solicitação", scanErr)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Falha ao iterar solicitações", err)
	}
	return requests, nil
}

// Approve executa a transição requested -> approved, gravando o token.
// A precondição (status = requested) está no WHERE: zero linhas afetadas com a
// solicitação existente significa "já processada". Uma colisão de token é uma
// violação de invariante — falha alto como IntegrityError, nunca sobrescreve.
func (r *RequestRepository) Approve(ctx context.Context, id, token string, at time.Time) (domain.Request, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        UPDATE requests
        SET status = $2, token = $3, approved_at = $4, updated_at = $4
        WHERE id = $1 AND status = $5
        RETURNING ` + requestColumns

	req, err := scanRequest(r.DB.QueryRowContext(ctxTimeout, query,
		id, domain.StatusApproved, token, at, domain.StatusRequested,
	))
	if err != nil {
		return domain.Request{}, r.transitionError(ctxTimeout, id, "aprovar", err)
	}

	r.logger.Info("Solicitação aprovada.", map[string]interface{}{"request_id": id, "token": token})
	return req, nil
}

// Reject executa a transição requested -> rejected com o motivo informado.
func (r *RequestRepository) Reject(ctx context.Context, id, reason string, at time.Time) (domain.Request, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        UPDATE requests
        SET status = $2, rejection_reason = $3, updated_at = $4
        WHERE id = $1 AND status = $5
        RETURNING ` + requestColumns

	req, err := scanRequest(r.DB.QueryRowContext(ctxTimeout, query,
		id, domain.StatusRejected, reason, at, domain.StatusRequested,
	))
	if err != nil {
		return domain.Request{}, r.transitionError(ctxTimeout, id, "rejeitar", err)
	}

	r.logger.Info("Solicitação rejeitada.", map[string]interface{}{"request_id": id, "reason": reason})
	return req, nil
}

// AttachInvoice executa a transição approved -> invoice_uploaded(_by_user),
// gravando o descritor do arquivo retornado pelo FileStore.
func (r *RequestRepository) AttachInvoice(ctx context.Context, id string, inv domain.Invoice, newStatus domain.RequestStatus, at time.Time) (domain.Request, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        UPDATE requests
        SET status = $2, invoice_file_path = $3, invoice_file_type = $4,
            invoice_uploaded_by = $5, invoice_uploaded_at = $6, updated_at = $6
        WHERE id = $1 AND status = $7
        RETURNING ` + requestColumns

	req, err := scanRequest(r.DB.QueryRowContext(ctxTimeout, query,
		id, newStatus, inv.FilePath, inv.FileType, inv.UploadedBy, at, domain.StatusApproved,
	))
	if err != nil {
		return domain.Request{}, r.transitionError(ctxTimeout, id, "anexar nota fiscal", err)
	}

	r.logger.Info("Nota fiscal anexada à solicitação.", map[string]interface{}{"request_id": id, "status": newStatus})
	return req, nil
}

// transitionError traduz a falha de uma transição condicional: linha inexistente
// vira NotFound; linha existente em outro estado vira conflito "já processada";
// colisão de token vira IntegrityError; o resto é erro de DB.
func (r *RequestRepository) transitionError(ctx context.Context, id, action string, err error) error {
	if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == pqUniqueViolation {
		r.logger.Error("Colisão de token de solicitação detectada.", err)
		return apperror.NewIntegrityError(fmt.Sprintf("Colisão de token ao %s a solicitação %s.", action, id), err)
	}

	if err == sql.ErrNoRows {
		var status string
		checkErr := r.DB.QueryRowContext(ctx, `SELECT status FROM requests WHERE id = $1`, id).Scan(&status)
		if checkErr == sql.ErrNoRows {
			return apperror.NewNotFoundError(fmt.Sprintf("Solicitação %s não encontrada.", id))
		}
		if checkErr != nil {
			r.logger.Error("Falha ao verificar status da solicitação.", checkErr)
			return apperror.NewDBError("Falha ao verificar status da solicitação", checkErr)
		}
		r.logger.Warn("Transição rejeitada por estado inválido.", map[string]interface{}{
			"request_id": id, "action": action, "current_status": status,
		})
		return apperror.NewConflictError(fmt.Sprintf("Solicitação já processada (status atual: %s).", status))
	}

	r.logger.Error("Falha ao executar transição de solicitação no DB.", err)
	return apperror.NewDBError(fmt.Sprintf("Falha ao %s solicitação", action), err)
}

// CountByStatus conta solicitações por status (usado pelo dashboard).
func (r *RequestRepository) CountByStatus(ctx context.Context, statuses ...domain.RequestStatus) (int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	list := make([]string, len(statuses))
	for i, s := range statuses {
		list[i] = string(s)
	}

	var count int
	err := r.DB.QueryRowContext(ctxTimeout,
		`SELECT COUNT(*) FROM requests WHERE status = ANY($1)`, pq.Array(list),
	).Scan(&count)
	if err != nil {
		r.logger.Error("Falha ao contar solicitações por status no DB.", err)
		return 0, apperror.NewDBError("Falha ao contar solicitações", err)
	}
	return count, nil
}

// CountDispatchedSince conta solicitações expedidas a partir de um instante.
func (r *RequestRepository) CountDispatchedSince(ctx context.Context, since time.Time) (int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var count int
	err := r.DB.QueryRowContext(ctxTimeout,
		`SELECT COUNT(*) FROM requests WHERE status = $1 AND dispatched_at >= $2`,
		domain.StatusDispatched, since,
	).Scan(&count)
	if err != nil {
		r.logger.Error("Falha ao contar expedições no DB.", err)
		return 0, apperror.NewDBError("Falha ao contar expedições", err)
	}
	return count, nil
}
