package itemrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"almox/internal/domain"
	apperror "almox/internal/errors"
	"almox/internal/pkg/cache"
	"almox/internal/pkg/logger"
)

// Chave de cache para lookup de item por nome normalizado.
const itemCacheKey = "item:name:%s"

// ItemRepository implementa o catálogo canônico de itens.
// A resolução por nome normalizado é a operação quente (toda expedição passa
// por aqui), então o lookup usa a estratégia Cache-Aside sobre o Redis.
type ItemRepository struct {
	DB        *sql.DB
	Cache     cache.Client
	DBTimeout time.Duration
	CacheTTL  time.Duration
	logger    logger.Logger
}

// NewItemRepository cria e retorna uma nova instância do Repositório de Itens.
func NewItemRepository(db *sql.DB, cacheClient cache.Client, dbTimeout, cacheTTL time.Duration, logger logger.Logger) *ItemRepository {
	return &ItemRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		CacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// FindByName busca um item pelo nome normalizado.
// Usado na expedição e na venda: se o item não existe, retorna NotFoundError —
// a criação automática é reservada ao caminho de adição de estoque, para nunca
// expedir contra um item fantasma.
func (r *ItemRepository) FindByName(ctx context.Context, name string) (domain.Item, error) {
	normalized := domain.NormalizeItemName(name)
	if normalized == "" {
		return domain.Item{}, apperror.NewValidationError("O nome do item não pode ser vazio.")
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	// 1. Tentar o Cache primeiro (Cache-Aside)
	key := fmt.Sprintf(itemCacheKey, normalized)
	if cached, err := r.Cache.Get(ctxTimeout, key); err == nil {
		var item domain.Item
		if jsonErr := json.Unmarshal([]byte(cached), &item); jsonErr == nil {
			r.logger.Debug("Item encontrado no cache.", map[string]interface{}{"name": normalized})
			return item, nil
		}
		// Entrada corrompida: descarta e segue para o DB
		r.Cache.Delete(ctxTimeout, key)
	}

	// 2. Cache miss: buscar no DB
	query := `
        SELECT id, name, category, unit, description, created_at, updated_at
        FROM items
        WHERE name = $1`

	var item domain.Item
	err := r.DB.QueryRowContext(ctxTimeout, query, normalized).Scan(
		&item.ID, &item.Name, &item.Category, &item.Unit, &item.Description, &item.CreatedAt, &item.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		r.logger.Info("Item não encontrado no catálogo.", map[string]interface{}{"name": normalized})
		return domain.Item{}, apperror.NewNotFoundError(fmt.Sprintf("Item \"%s\" não encontrado.", name))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar item no DB.", err)
		return domain.Item{}, apperror.NewDBError("Falha ao buscar item", err)
	}

	// 3. Popular o cache para os próximos lookups
	if data, jsonErr := json.Marshal(item); jsonErr == nil {
		r.Cache.Set(ctxTimeout, key, string(data), r.CacheTTL)
	}

	return item, nil
}

// FindOrCreateByName resolve o item pelo nome normalizado, criando-o de forma
// preguiçosa se ainda não existir. A criação é idempotente: o UPSERT garante no
// máximo um Item por nome normalizado mesmo sob chamadas concorrentes.
// Metadados (categoria, unidade, descrição) são atualizados quando informados.
func (r *ItemRepository) FindOrCreateByName(ctx context.Context, name, category, unit, description string) (domain.Item, error) {
	normalized := domain.NormalizeItemName(name)
	if normalized == "" {
		return domain.Item{}, apperror.NewValidationError("O nome do item não pode ser vazio.")
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if category == "" {
		category = "Uncategorized"
	}
	if description == "" {
		description = "No description provided"
	}
	if unit == "" {
		unit = "un"
	}

	now := time.Now()
	query := `
        INSERT INTO items (id, name, category, unit, description, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $6)
        ON CONFLICT (name) DO UPDATE SET
            category    = EXCLUDED.category,
            unit        = EXCLUDED.unit,
            description = EXCLUDED.description,
            updated_at  = EXCLUDED.updated_at
        RETURNING id, name, category, unit, description, created_at, updated_at`

	var item domain.Item
	err := r.DB.QueryRowContext(ctxTimeout, query,
		uuid.NewString(), normalized, category, unit, description, now,
	).Scan(
		&item.ID, &item.Name, &item.Category, &item.Unit, &item.Description, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Falha ao criar/atualizar item no DB.", err)
		return domain.Item{}, apperror.NewDBError("Falha ao criar/atualizar item", err)
	}

	// Metadados podem ter mudado: invalida a entrada de cache antiga.
	r.Cache.Delete(ctxTimeout, fmt.Sprintf(itemCacheKey, normalized))

	r.logger.Debug("Item resolvido no catálogo.", map[string]interface{}{"item_id": item.ID, "name": item.Name})
	return item, nil
}

// Count retorna o total de itens do catálogo (usado pelo dashboard).
func (r *ItemRepository) Count(ctx context.Context) (int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var count int
	if err := r.DB.QueryRowContext(ctxTimeout, `SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		r.logger.Error("Falha ao contar itens no DB.", err)
		return 0, apperror.NewDBError("Falha ao contar itens", err)
	}
	return count, nil
}
