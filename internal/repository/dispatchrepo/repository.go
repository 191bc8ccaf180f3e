package dispatchrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"almox/internal/domain"
	apperror "almox/internal/errors"
	"almox/internal/pkg/logger"
)

// DispatchRepository executa a expedição e mantém a trilha de auditoria.
//
// A expedição inteira é UMA transação: virada de status da solicitação, débito
// do estoque da empresa, crédito do estoque do usuário e gravação do
// DispatchEntry entram juntos ou não entram. Uma transferência pela metade
// (estoque que some) é o pior modo de falha deste sistema e é impedida aqui
// por construção, não por lógica de compensação depois do fato.
type DispatchRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewDispatchRepository cria e retorna uma nova instância do Repositório de Expedições.
func NewDispatchRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *DispatchRepository {
	return &DispatchRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// Execute realiza a expedição da solicitação. entry.Rate é preenchido aqui com
// a taxa do estoque de ORIGEM no momento da transferência (ela sobrescreve a
// taxa anterior do destino). Retorna o DispatchEntry gravado.
//
// Garantias de concorrência:
//   - a virada de status tem a precondição no WHERE: entre duas expedições
//     concorrentes da mesma solicitação, exatamente uma vence e a outra recebe
//     conflito de estado;
//   - o débito usa UPDATE condicional (quantity >= pedido): a checagem de
//     suficiência e a subtração são um único comando, nunca duas idas ao banco;
//   - se qualquer passo falhar, o rollback devolve solicitação e estoques
//     exatamente como estavam antes da chamada.
func (r *DispatchRepository) Execute(ctx context.Context, entry domain.DispatchEntry) (domain.DispatchEntry, error) {
	r.logger.Debug("Iniciando transação de expedição.", map[string]interface{}{
		"request_id": entry.RequestID, "item_id": entry.ItemID, "quantity": entry.Quantity,
	})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return domain.DispatchEntry{}, apperror.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback() // Rollback em caso de erro

	// 1. Reivindicar a transição invoice_uploaded(_by_user) -> dispatched.
	claimSQL := `
        UPDATE requests
        SET status = $2, item_id = $3, dispatched_at = $4, updated_at = $4
        WHERE id = $1 AND status IN ($5, $6)`

	result, err := tx.ExecContext(ctxTimeout, claimSQL,
		entry.RequestID, domain.StatusDispatched, entry.ItemID, entry.DispatchedAt,
		domain.StatusInvoiceUploaded, domain.StatusInvoiceUploadedByUser,
	)
	if err != nil {
		r.logger.Error("Falha ao atualizar status da solicitação na expedição.", err)
		return domain.DispatchEntry{}, apperror.NewDBError("Falha ao atualizar solicitação", err)
	}
	claimed, err := result.RowsAffected()
	if err != nil {
		return domain.DispatchEntry{}, apperror.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if claimed == 0 {
		r.logger.Warn("Expedição rejeitada por estado inválido da solicitação.", map[string]interface{}{
			"request_id": entry.RequestID,
		})
		return domain.DispatchEntry{}, apperror.NewConflictError("Solicitação já processada ou sem nota fiscal anexada.")
	}

	// 2. Debitar o estoque da empresa. Checagem de suficiência e subtração em
	// um único UPDATE condicional; o valor derivado é recalculado junto.
	debitSQL := `
        UPDATE stocks
        SET quantity = quantity - $5, value = (quantity - $5) * rate, updated_at = $6
        WHERE item_id = $1 AND owner_id = $2 AND owner_kind = $3 AND branch = $4 AND quantity >= $5
        RETURNING rate`

	var sourceRate float64
	err = tx.QueryRowContext(ctxTimeout, debitSQL,
		entry.ItemID, entry.DispatchedBy, domain.OwnerCompany, entry.Branch, entry.Quantity, entry.DispatchedAt,
	).Scan(&sourceRate)

	if err == sql.ErrNoRows {
		// Registro ausente ou saldo insuficiente: consultar o saldo para
		// reportar disponível vs. necessário ao chamador.
		var available int
		checkErr := tx.QueryRowContext(ctxTimeout,
			`SELECT quantity FROM stocks WHERE item_id = $1 AND owner_id = $2 AND owner_kind = $3 AND branch = $4`,
			entry.ItemID, entry.DispatchedBy, domain.OwnerCompany, entry.Branch,
		).Scan(&available)
		if checkErr != nil && checkErr != sql.ErrNoRows {
			r.logger.Error("Falha ao consultar saldo da origem na expedição.", checkErr)
			return domain.DispatchEntry{}, apperror.NewDBError("Falha ao consultar saldo da origem", checkErr)
		}
		r.logger.Warn("Expedição rejeitada por saldo insuficiente.", map[string]interface{}{
			"request_id": entry.RequestID, "available": available, "required": entry.Quantity,
		})
		return domain.DispatchEntry{}, apperror.NewInsufficientStockError(available, entry.Quantity)
	}
	if err != nil {
		r.logger.Error("Falha ao debitar estoque da empresa na expedição.", err)
		return domain.DispatchEntry{}, apperror.NewDBError("Falha ao debitar estoque da empresa", err)
	}

	entry.Rate = sourceRate

	// 3. Creditar o estoque do usuário com a taxa da origem (UPSERT atômico).
	// A chave do crédito usa a filial cadastrada do destinatário, que é onde
	// os débitos subsequentes do próprio usuário (venda) procuram o saldo.
	creditSQL := `
        INSERT INTO stocks (id, item_id, owner_id, owner_kind, branch, quantity, rate, value, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $6 * $7, $8, $8)
        ON CONFLICT (item_id, owner_id, owner_kind, branch) DO UPDATE SET
            quantity   = stocks.quantity + EXCLUDED.quantity,
            rate       = EXCLUDED.rate,
            value      = (stocks.quantity + EXCLUDED.quantity) * EXCLUDED.rate,
            updated_at = EXCLUDED.updated_at`

	_, err = tx.ExecContext(ctxTimeout, creditSQL,
		uuid.NewString(), entry.ItemID, entry.DispatchedTo, domain.OwnerUser, entry.DestinationBranch,
		entry.Quantity, sourceRate, entry.DispatchedAt,
	)
	if err != nil {
		r.logger.Error("Falha ao creditar estoque do usuário na expedição.", err)
		return domain.DispatchEntry{}, apperror.NewDBError("Falha ao creditar estoque do usuário", err)
	}

	// 4. Gravar a entrada imutável de auditoria.
	entry.ID = uuid.NewString()
	entrySQL := `
        INSERT INTO dispatches (id, reference, request_id, item_id, quantity, rate, branch,
                                dispatched_by, dispatched_to, dispatched_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = tx.ExecContext(ctxTimeout, entrySQL,
		entry.ID, entry.Reference, entry.RequestID, entry.ItemID, entry.Quantity, entry.Rate,
		entry.Branch, entry.DispatchedBy, entry.DispatchedTo, entry.DispatchedAt,
	)
	if err != nil {
		r.logger.Error("Falha ao gravar entrada de expedição.", err)
		return domain.DispatchEntry{}, apperror.NewDBError("Falha ao gravar entrada de expedição", err)
	}

	// 5. Commit: tudo junto ou nada.
	if commitErr := tx.Commit(); commitErr != nil {
		r.logger.Error("Falha ao commitar transação de expedição.", commitErr)
		return domain.DispatchEntry{}, apperror.NewDBError("Falha ao commitar transação", commitErr)
	}

	r.logger.Info("Expedição concluída.", map[string]interface{}{
		"request_id": entry.RequestID, "reference": entry.Reference, "quantity": entry.Quantity, "rate": entry.Rate,
	})
	return entry, nil
}

// ListByRequest retorna o histórico de expedições de uma solicitação, em ordem
// cronológica. Somente leitura: o histórico nunca é alterado ou removido.
func (r *DispatchRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.DispatchEntry, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT id, reference, request_id, item_id, quantity, rate, branch,
               dispatched_by, dispatched_to, dispatched_at
        FROM dispatches
        WHERE request_id = $1
        ORDER BY dispatched_at`

	rows, err := r.DB.QueryContext(ctxTimeout, query, requestID)
	if err != nil {
		r.logger.Error("Falha ao listar expedições no DB.", err)
		return nil, apperror.NewDBError("Falha ao listar expedições", err)
	}
	defer rows.Close()

	var entries []domain.DispatchEntry
	for rows.Next() {
		var e domain.DispatchEntry
		if err := rows.Scan(&e.ID, &e.Reference, &e.RequestID, &e.ItemID, &e.Quantity, &e.Rate,
			&e.Branch, &e.DispatchedBy, &e.DispatchedTo, &e.DispatchedAt); err != nil {
			return nil, apperror.NewDBError("Falha ao ler linha de expedição", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Falha ao iterar expedições", err)
	}
	return entries, nil
}

// Revenue soma quantity * rate sobre todas as expedições (usado pelo dashboard).
func (r *DispatchRepository) Revenue(ctx context.Context) (float64, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var revenue float64
	err := r.DB.QueryRowContext(ctxTimeout,
		`SELECT COALESCE(SUM(quantity * rate), 0) FROM dispatches`,
	).Scan(&revenue)
	if err != nil {
		r.logger.Error("Falha ao somar receita de expedições no DB.", err)
		return 0, apperror.NewDBError("Falha ao calcular receita", err)
	}
	return revenue, nil
}

// NewReference gera a referência legível de uma expedição: INV-<timestamp>-<aleatório>.
// Usada apenas para rastreabilidade; nunca consultada para derivar estoque.
func NewReference(at time.Time) string {
	return fmt.Sprintf("INV-%d-%s", at.Unix(), uuid.NewString()[:4])
}
