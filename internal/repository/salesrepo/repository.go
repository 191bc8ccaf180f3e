package salesrepo

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

// SaleRepository persiste as vendas dos usuários.
// A ordem débito-antes-de-criar é garantida pela camada de serviço: quando o
// Save roda, o estoque do vendedor já foi debitado com sucesso.
type SaleRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewSaleRepository cria e retorna uma nova instância do Repositório de Vendas.
func NewSaleRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *SaleRepository {
	return &SaleRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// Save insere uma venda. TotalAmount é derivado (Quantity * Price) e
// recalculado aqui, nunca aceito do chamador.
func (r *SaleRepository) Save(ctx context.Context, sale domain.Sale) (domain.Sale, error) {
	r.logger.Debug("Iniciando Save de venda no repositório.", map[string]interface{}{
		"seller_id": sale.SellerID, "item_id": sale.ItemID, "quantity": sale.Quantity,
	})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	sale.ID = uuid.NewString()
	sale.TotalAmount = float64(sale.Quantity) * sale.Price
	if sale.SaleDate.IsZero() {
		sale.SaleDate = time.Now()
	}

	query := `
        INSERT INTO sales (id, seller_id, customer_name, customer_email, customer_address,
                           item_id, quantity, price, total_amount, sale_date)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.DB.ExecContext(ctxTimeout, query,
		sale.ID, sale.SellerID, sale.CustomerName, sale.CustomerEmail, sale.CustomerAddress,
		sale.ItemID, sale.Quantity, sale.Price, sale.TotalAmount, sale.SaleDate,
	)
	if err != nil {
		r.logger.Error("Falha ao inserir venda no DB.", err)
		return domain.Sale{}, apperror.NewDBError("Falha ao inserir venda", err)
	}

	r.logger.Info("Venda registrada.", map[string]interface{}{"sale_id": sale.ID, "total_amount": sale.TotalAmount})
	return sale, nil
}

// FindBySeller lista as vendas de um usuário, mais recentes primeiro.
func (r *SaleRepository) FindBySeller(ctx context.Context, sellerID string) ([]domain.Sale, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT id, seller_id, customer_name, customer_email, customer_address,
               item_id, quantity, price, total_amount,
               invoice_file_path, invoice_file_type, invoice_uploaded_at, sale_date
        FROM sales
        WHERE seller_id = $1
        ORDER BY sale_date DESC`

	rows, err := r.DB.QueryContext(ctxTimeout, query, sellerID)
	if err != nil {
		r.logger.Error("Falha ao listar vendas no DB.", err)
		return nil, apperror.NewDBError("Falha ao listar vendas", err)
	}
	defer rows.Close()

	var sales []domain.Sale
	for rows.Next() {
		var (
			sale             domain.Sale
			invPath, invType sql.NullString
			invAt            sql.NullTime
		)
		if err := rows.Scan(&sale.ID, &sale.SellerID, &sale.CustomerName, &sale.CustomerEmail, &sale.CustomerAddress,
			&sale.ItemID, &sale.Quantity, &sale.Price, &sale.TotalAmount,
			&invPath, &invType, &invAt, &sale.SaleDate); err != nil {
			return nil, apperror.NewDBError("Falha ao ler linha de venda", err)
		}
		if invPath.Valid {
			sale.Invoice = &domain.Invoice{FilePath: invPath.String, FileType: invType.String, UploadedBy: sale.SellerID}
			if invAt.Valid {
				sale.Invoice.UploadedAt = invAt.Time
			}
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Falha ao iterar vendas", err)
	}
	return sales, nil
}

// AttachInvoice grava o descritor da nota fiscal de uma venda.
// A cláusula de dono no WHERE impede anexar nota em venda de outro usuário.
func (r *SaleRepository) AttachInvoice(ctx context.Context, saleID, sellerID string, inv domain.Invoice) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        UPDATE sales
        SET invoice_file_path = $3, invoice_file_type = $4, invoice_uploaded_at = $5
        WHERE id = $1 AND seller_id = $2`

	result, err := r.DB.ExecContext(ctxTimeout, query, saleID, sellerID, inv.FilePath, inv.FileType, inv.UploadedAt)
	if err != nil {
		r.logger.Error("Falha ao anexar nota fiscal à venda no DB.", err)
		return apperror.NewDBError("Falha ao anexar nota fiscal à venda", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperror.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if affected == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("Venda %s não encontrada para este usuário.", saleID))
	}
	return nil
}
