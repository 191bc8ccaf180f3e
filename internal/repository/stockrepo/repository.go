package stockrepo

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

// StockRepository implementa o razão de estoque por detentor.
// Invariantes garantidos aqui, por construção:
//   - Quantity nunca fica negativa (checagem dentro da transação, sob lock de linha);
//   - Value é sempre recalculado como Quantity * Rate, nunca gravado solto;
//   - check-then-act é uma unidade atômica: o SELECT ... FOR UPDATE serializa
//     mutações concorrentes da mesma chave (itemId, ownerId, ownerKind, branch).
type StockRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewStockRepository cria e retorna uma nova instância do Repositório de Estoque.
func NewStockRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *StockRepository {
	return &StockRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

const selectForUpdateSQL = `
    SELECT id, item_id, owner_id, owner_kind, branch, quantity, rate, value, created_at, updated_at
    FROM stocks
    WHERE item_id = $1 AND owner_id = $2 AND owner_kind = $3 AND branch = $4
    FOR UPDATE`

// lockRecord busca e bloqueia a linha de estoque da chave dentro da transação.
// found=false indica que ainda não existe registro para a chave.
func lockRecord(ctx context.Context, tx *sql.Tx, key domain.StockKey) (domain.StockRecord, bool, error) {
	var rec domain.StockRecord
	err := tx.QueryRowContext(ctx, selectForUpdateSQL, key.ItemID, key.OwnerID, key.OwnerKind, key.Branch).Scan(
		&rec.ID, &rec.ItemID, &rec.OwnerID, &rec.OwnerKind, &rec.Branch,
		&rec.Quantity, &rec.Rate, &rec.Value, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return domain.StockRecord{}, false, nil
	}
	if err != nil {
		return domain.StockRecord{}, false, err
	}
	return rec, true, nil
}

// upsertRecord cria a linha de estoque inicial para a chave. O FOR UPDATE do
// lockRecord não bloqueia linha ausente, então duas primeiras gravações
// concorrentes da mesma chave podem chegar aqui juntas: o ON CONFLICT faz a
// perdedora somar ao registro da vencedora em vez de estourar a constraint
// de unicidade.
func upsertRecord(ctx context.Context, tx *sql.Tx, key domain.StockKey, quantity int, rate float64) (domain.StockRecord, error) {
	now := time.Now()
	query := `
        INSERT INTO stocks (id, item_id, owner_id, owner_kind, branch, quantity, rate, value, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $6 * $7, $8, $8)
        ON CONFLICT (item_id, owner_id, owner_kind, branch) DO UPDATE SET
            quantity   = stocks.quantity + EXCLUDED.quantity,
            rate       = EXCLUDED.rate,
            value      = (stocks.quantity + EXCLUDED.quantity) * EXCLUDED.rate,
            updated_at = EXCLUDED.updated_at
        RETURNING id, item_id, owner_id, owner_kind, branch, quantity, rate, value, created_at, updated_at`

	var rec domain.StockRecord
	err := tx.QueryRowContext(ctx, query,
		uuid.NewString(), key.ItemID, key.OwnerID, key.OwnerKind, key.Branch, quantity, rate, now,
	).Scan(
		&rec.ID, &rec.ItemID, &rec.OwnerID, &rec.OwnerKind, &rec.Branch,
		&rec.Quantity, &rec.Rate, &rec.Value, &rec.CreatedAt, &rec.UpdatedAt,
	)
	return rec, err
}

// updateRecord grava a nova quantidade e taxa, recalculando o valor derivado.
func updateRecord(ctx context.Context, tx *sql.Tx, id string, quantity int, rate float64) error {
	query := `
        UPDATE stocks
        SET quantity = $2, rate = $3, value = $2 * $3, updated_at = $4
        WHERE id = $1`
	_, err := tx.ExecContext(ctx, query, id, quantity, rate, time.Now())
	return err
}

// Get busca o registro de estoque da chave (sem lock).
func (r *StockRepository) Get(ctx context.Context, key domain.StockKey) (domain.StockRecord, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT id, item_id, owner_id, owner_kind, branch, quantity, rate, value, created_at, updated_at
        FROM stocks
        WHERE item_id = $1 AND owner_id = $2 AND owner_kind = $3 AND branch = $4`

	var rec domain.StockRecord
	err := r.DB.QueryRowContext(ctxTimeout, query, key.ItemID, key.OwnerID, key.OwnerKind, key.Branch).Scan(
		&rec.ID, &rec.ItemID, &rec.OwnerID, &rec.OwnerKind, &rec.Branch,
		&rec.Quantity, &rec.Rate, &rec.Value, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return domain.StockRecord{}, apperror.NewNotFoundError("Registro de estoque não encontrado para a chave informada.")
	}
	if err != nil {
		r.logger.Error("Falha ao buscar registro de estoque no DB.", err)
		return domain.StockRecord{}, apperror.NewDBError("Falha ao buscar registro de estoque", err)
	}
	return rec, nil
}

// Credit adiciona quantidade ao estoque da chave, criando o registro se for a
// primeira gravação. A taxa informada SOBRESCREVE a taxa anterior (última taxa
// gravada, não média ponderada) e o valor é recalculado.
func (r *StockRepository) Credit(ctx context.Context, key domain.StockKey, quantity int, rate float64) (domain.StockRecord, error) {
	r.logger.Debug("Iniciando crédito de estoque no repositório.", map[string]interface{}{
		"item_id": key.ItemID, "owner_id": key.OwnerID, "owner_kind": key.OwnerKind, "branch": key.Branch, "quantity": quantity,
	})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return domain.StockRecord{}, apperror.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback() // Rollback em caso de erro

	rec, found, err := lockRecord(ctxTimeout, tx, key)
	if err != nil {
		r.logger.Error("Falha ao bloquear registro de estoque para crédito.", err)
		return domain.StockRecord{}, apperror.NewDBError("Falha ao bloquear registro de estoque", err)
	}

	if !found {
		rec, err = upsertRecord(ctxTimeout, tx, key, quantity, rate)
		if err != nil {
			r.logger.Error("Falha ao inserir novo registro de estoque.", err)
			return domain.StockRecord{}, apperror.NewDBError("Falha ao inserir registro de estoque", err)
		}
	} else {
		rec.Quantity += quantity
		rec.Rate = rate
		rec.Value = float64(rec.Quantity) * rec.Rate
		if err := updateRecord(ctxTimeout, tx, rec.ID, rec.Quantity, rec.Rate); err != nil {
			r.logger.Error("Falha ao atualizar registro de estoque no crédito.", err)
			return domain.StockRecord{}, apperror.NewDBError("Falha ao atualizar registro de estoque", err)
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		r.logger.Error("Falha ao commitar transação de crédito de estoque.", commitErr)
		return domain.StockRecord{}, apperror.NewDBError("Falha ao commitar transação", commitErr)
	}

	r.logger.Info("Crédito de estoque aplicado.", map[string]interface{}{
		"item_id": key.ItemID, "owner_id": key.OwnerID, "new_quantity": rec.Quantity, "rate": rec.Rate,
	})
	return rec, nil
}

// Debit subtrai quantidade do estoque da chave. Falha com InsufficientStock se
// o registro não existe ou se a quantidade pedida excede o saldo — a checagem e
// a subtração acontecem sob o mesmo lock de linha, nunca em duas idas ao banco.
func (r *StockRepository) Debit(ctx context.Context, key domain.StockKey, quantity int) (domain.StockRecord, error) {
	r.logger.Debug("Iniciando débito de estoque no repositório.", map[string]interface{}{
		"item_id": key.ItemID, "owner_id": key.OwnerID, "owner_kind": key.OwnerKind, "branch": key.Branch, "quantity": quantity,
	})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return domain.StockRecord{}, apperror.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	rec, found, err := lockRecord(ctxTimeout, tx, key)
	if err != nil {
		r.logger.Error("Falha ao bloquear registro de estoque para débito.", err)
		return domain.StockRecord{}, apperror.NewDBError("Falha ao bloquear registro de estoque", err)
	}
	if !found {
		return domain.StockRecord{}, apperror.NewInsufficientStockError(0, quantity)
	}
	if rec.Quantity < quantity {
		r.logger.Warn("Débito rejeitado por saldo insuficiente.", map[string]interface{}{
			"item_id": key.ItemID, "owner_id": key.OwnerID, "available": rec.Quantity, "required": quantity,
		})
		return domain.StockRecord{}, apperror.NewInsufficientStockError(rec.Quantity, quantity)
	}

	rec.Quantity -= quantity
	rec.Value = float64(rec.Quantity) * rec.Rate
	if err := updateRecord(ctxTimeout, tx, rec.ID, rec.Quantity, rec.Rate); err != nil {
		r.logger.Error("Falha ao atualizar registro de estoque no débito.", err)
		return domain.StockRecord{}, apperror.NewDBError("Falha ao atualizar registro de estoque", err)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		r.logger.Error("Falha ao commitar transação de débito de estoque.", commitErr)
		return domain.StockRecord{}, apperror.NewDBError("Falha ao commitar transação", commitErr)
	}

	r.logger.Info("Débito de estoque aplicado.", map[string]interface{}{
		"item_id": key.ItemID, "owner_id": key.OwnerID, "new_quantity": rec.Quantity,
	})
	return rec, nil
}

// Transfer move quantidade da origem para o destino em UMA transação: débito e
// crédito nunca ficam pela metade. A taxa do destino é sobrescrita com a taxa
// da ORIGEM no momento da transferência. As duas linhas são bloqueadas em ordem
// determinística de chave para evitar deadlock entre transferências cruzadas.
func (r *StockRepository) Transfer(ctx context.Context, itemID string, from, to domain.StockOwner, quantity int, branch string) (domain.TransferResult, error) {
	r.logger.Debug("Iniciando transferência de estoque no repositório.", map[string]interface{}{
		"item_id": itemID, "from": from.ID, "to": to.ID, "quantity": quantity, "branch": branch,
	})

	fromKey := domain.StockKey{ItemID: itemID, OwnerID: from.ID, OwnerKind: from.Kind, Branch: branch}
	toKey := domain.StockKey{ItemID: itemID, OwnerID: to.ID, OwnerKind: to.Kind, Branch: branch}
	if fromKey == toKey {
		return domain.TransferResult{}, apperror.NewValidationError("Origem e destino da transferência não podem ser iguais.")
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return domain.TransferResult{}, apperror.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	// Ordem determinística de lock: a chave "menor" primeiro.
	first, second := fromKey, toKey
	if lockOrder(toKey) < lockOrder(fromKey) {
		first, second = toKey, fromKey
	}

	records := map[domain.StockKey]*lockedRecord{}
	for _, key := range []domain.StockKey{first, second} {
		rec, found, lockErr := lockRecord(ctxTimeout, tx, key)
		if lockErr != nil {
			r.logger.Error("Falha ao bloquear registro de estoque na transferência.", lockErr)
			return domain.TransferResult{}, apperror.NewDBError("Falha ao bloquear registro de estoque", lockErr)
		}
		records[key] = &lockedRecord{rec: rec, found: found}
	}

	source := records[fromKey]
	dest := records[toKey]

	// 1. Validar e debitar a origem
	if !source.found {
		return domain.TransferResult{}, apperror.NewInsufficientStockError(0, quantity)
	}
	if source.rec.Quantity < quantity {
		r.logger.Warn("Transferência rejeitada por saldo insuficiente na origem.", map[string]interface{}{
			"item_id": itemID, "from": from.ID, "available": source.rec.Quantity, "required": quantity,
		})
		return domain.TransferResult{}, apperror.NewInsufficientStockError(source.rec.Quantity, quantity)
	}

	sourceRate := source.rec.Rate
	source.rec.Quantity -= quantity
	source.rec.Value = float64(source.rec.Quantity) * source.rec.Rate
	if err := updateRecord(ctxTimeout, tx, source.rec.ID, source.rec.Quantity, source.rec.Rate); err != nil {
		r.logger.Error("Falha ao debitar a origem na transferência.", err)
		return domain.TransferResult{}, apperror.NewDBError("Falha ao debitar a origem", err)
	}

	// 2. Creditar o destino com a taxa da origem
	if !dest.found {
		created, insErr := upsertRecord(ctxTimeout, tx, toKey, quantity, sourceRate)
		if insErr != nil {
			r.logger.Error("Falha ao criar o destino na transferência.", insErr)
			return domain.TransferResult{}, apperror.NewDBError("Falha ao creditar o destino", insErr)
		}
		dest.rec = created
	} else {
		dest.rec.Quantity += quantity
		dest.rec.Rate = sourceRate
		dest.rec.Value = float64(dest.rec.Quantity) * dest.rec.Rate
		if err := updateRecord(ctxTimeout, tx, dest.rec.ID, dest.rec.Quantity, dest.rec.Rate); err != nil {
			r.logger.Error("Falha ao creditar o destino na transferência.", err)
			return domain.TransferResult{}, apperror.NewDBError("Falha ao creditar o destino", err)
		}
	}

	// 3. Commit: débito e crédito entram juntos ou não entram
	if commitErr := tx.Commit(); commitErr != nil {
		r.logger.Error("Falha ao commitar transação de transferência.", commitErr)
		return domain.TransferResult{}, apperror.NewDBError("Falha ao commitar transação", commitErr)
	}

	r.logger.Info("Transferência de estoque aplicada.", map[string]interface{}{
		"item_id": itemID, "from": from.ID, "to": to.ID, "quantity": quantity, "rate": sourceRate,
	})
	return domain.TransferResult{From: source.rec, To: dest.rec}, nil
}

type lockedRecord struct {
	rec   domain.StockRecord
	found bool
}

// lockOrder serializa a chave composta para comparação lexicográfica estável.
func lockOrder(key domain.StockKey) string {
	return fmt.Sprintf("%s|%s|%s|%s", key.ItemID, key.OwnerID, key.OwnerKind, key.Branch)
}

// ListByOwner retorna o resumo de estoque de um detentor, com metadados do item.
func (r *StockRepository) ListByOwner(ctx context.Context, owner domain.StockOwner) ([]domain.StockSummaryEntry, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT i.name, i.category, i.description, s.branch, s.quantity, s.rate, s.value
        FROM stocks s
        JOIN items i ON i.id = s.item_id
        WHERE s.owner_id = $1 AND s.owner_kind = $2
        ORDER BY i.name, s.branch`

	rows, err := r.DB.QueryContext(ctxTimeout, query, owner.ID, owner.Kind)
	if err != nil {
		r.logger.Error("Falha ao listar estoque por detentor no DB.", err)
		return nil, apperror.NewDBError("Falha ao listar estoque", err)
	}
	defer rows.Close()

	var entries []domain.StockSummaryEntry
	for rows.Next() {
		var e domain.StockSummaryEntry
		if err := rows.Scan(&e.ItemName, &e.Category, &e.Description, &e.Branch, &e.Quantity, &e.Rate, &e.Value); err != nil {
			return nil, apperror.NewDBError("Falha ao ler linha de estoque", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Falha ao iterar estoque", err)
	}
	return entries, nil
}

// ListAllByKind retorna o resumo de estoque de TODOS os detentores de um tipo,
// com a identidade do dono em cada linha (visão de inspeção do admin).
func (r *StockRepository) ListAllByKind(ctx context.Context, kind domain.OwnerKind) ([]domain.OwnerStockSummaryEntry, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT u.id, u.name, i.name, i.category, i.description, s.branch, s.quantity, s.rate, s.value
        FROM stocks s
        JOIN items i ON i.id = s.item_id
        JOIN users u ON u.id = s.owner_id
        WHERE s.owner_kind = $1
        ORDER BY u.name, i.name, s.branch`

	rows, err := r.DB.QueryContext(ctxTimeout, query, kind)
	if err != nil {
		r.logger.Error("Falha ao listar estoque global por tipo de detentor no DB.", err)
		return nil, apperror.NewDBError("Falha ao listar estoque global", err)
	}
	defer rows.Close()

	var entries []domain.OwnerStockSummaryEntry
	for rows.Next() {
		var e domain.OwnerStockSummaryEntry
		if err := rows.Scan(&e.OwnerID, &e.OwnerName, &e.ItemName, &e.Category, &e.Description,
			&e.Branch, &e.Quantity, &e.Rate, &e.Value); err != nil {
			return nil, apperror.NewDBError("Falha ao ler linha de estoque global", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Falha ao iterar estoque global", err)
	}
	return entries, nil
}
