package dispatchrepo_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"almox/internal/domain"
	apperror "almox/internal/errors"
	"almox/internal/pkg/logger"
	"almox/internal/repository/dispatchrepo"
)

func testEntry() domain.DispatchEntry {
	return domain.DispatchEntry{
		Reference:         "INV-1735689600-4821",
		RequestID:         "req-1",
		ItemID:            "item-1",
		Quantity:          10,
		Branch:            "matriz",
		DispatchedBy:      "empresa-1",
		DispatchedTo:      "usuario-1",
		DispatchedAt:      time.Now(),
		DestinationBranch: "centro",
	}
}

// TestExecute_Success testa o caminho feliz da expedição em UMA transação:
// virada de status, débito da empresa com a taxa retornada, crédito do usuário
// na filial CADASTRADA dele (não na filial do admin) e trilha de auditoria.
func TestExecute_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := dispatchrepo.NewDispatchRepository(db, time.Second, logger.NewLogger("error"))
	entry := testEntry()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE requests").
		WithArgs(entry.RequestID, domain.StatusDispatched, entry.ItemID, sqlmock.AnyArg(),
			domain.StatusInvoiceUploaded, domain.StatusInvoiceUploadedByUser).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Débito da origem: suficiência e subtração no mesmo comando, retornando a taxa.
	mock.ExpectQuery(regexp.QuoteMeta(`RETURNING rate`)).
		WithArgs(entry.ItemID, entry.DispatchedBy, domain.OwnerCompany, entry.Branch,
			entry.Quantity, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"rate"}).AddRow(2.5))
	// Crédito do destinatário: chaveado pela filial cadastrada dele ("centro"),
	// que difere da filial da origem ("matriz").
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (item_id, owner_id, owner_kind, branch) DO UPDATE`)).
		WithArgs(sqlmock.AnyArg(), entry.ItemID, entry.DispatchedTo, domain.OwnerUser,
			entry.DestinationBranch, entry.Quantity, 2.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO dispatches").
		WithArgs(sqlmock.AnyArg(), entry.Reference, entry.RequestID, entry.ItemID, entry.Quantity,
			2.5, entry.Branch, entry.DispatchedBy, entry.DispatchedTo, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	recorded, err := repo.Execute(context.Background(), entry)

	assert.NoError(t, err)
	assert.Equal(t, 2.5, recorded.Rate)
	assert.NotEmpty(t, recorded.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestExecute_Fail_StateConflict testa que a precondição de status no WHERE
// garante exatamente um vencedor: quando a virada não afeta nenhuma linha,
// nada mais é executado e o rollback deixa os estoques intactos.
func TestExecute_Fail_StateConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := dispatchrepo.NewDispatchRepository(db, time.Second, logger.NewLogger("error"))
	entry := testEntry()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE requests").
		WithArgs(entry.RequestID, domain.StatusDispatched, entry.ItemID, sqlmock.AnyArg(),
			domain.StatusInvoiceUploaded, domain.StatusInvoiceUploadedByUser).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = repo.Execute(context.Background(), entry)

	assert.Error(t, err)
	assert.IsType(t, &apperror.ConflictError{}, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestExecute_Fail_InsufficientStock testa que o débito condicional sem linha
// afetada consulta o saldo real para reportar disponível vs. necessário, e que
// a virada de status é revertida junto.
func TestExecute_Fail_InsufficientStock(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := dispatchrepo.NewDispatchRepository(db, time.Second, logger.NewLogger("error"))
	entry := testEntry()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE requests").
		WithArgs(entry.RequestID, domain.StatusDispatched, entry.ItemID, sqlmock.AnyArg(),
			domain.StatusInvoiceUploaded, domain.StatusInvoiceUploadedByUser).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`RETURNING rate`)).
		WithArgs(entry.ItemID, entry.DispatchedBy, domain.OwnerCompany, entry.Branch,
			entry.Quantity, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"rate"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT quantity FROM stocks`)).
		WithArgs(entry.ItemID, entry.DispatchedBy, domain.OwnerCompany, entry.Branch).
		WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(3))
	mock.ExpectRollback()

	_, err = repo.Execute(context.Background(), entry)

	assert.Error(t, err)
	var stockErr *apperror.InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, 10, stockErr.Required)
	assert.NoError(t, mock.ExpectationsWereMet())
}
