package domain

import "time"

// OwnerKind indica quem detém o estoque: a empresa (admin) ou um usuário final.
type OwnerKind string

const (
	OwnerCompany OwnerKind = "company"
	OwnerUser    OwnerKind = "user"
)

// StockOwner identifica o detentor de um registro de estoque.
type StockOwner struct {
	ID   string    `json:"id"`
	Kind OwnerKind `json:"kind"`
}

// StockKey é a chave composta que identifica um StockRecord.
// Toda mutação de estoque é serializada por esta chave (lock de linha no DB).
type StockKey struct {
	ItemID    string    `json:"item_id"`
	OwnerID   string    `json:"owner_id"`
	OwnerKind OwnerKind `json:"owner_kind"`
	Branch    string    `json:"branch"`
}

// StockRecord representa o saldo de estoque de um item para um detentor em uma filial.
// Invariantes: Quantity >= 0 sempre; Value é derivado (Quantity * Rate) e
// recalculado a cada mutação, nunca gravado de forma independente.
type StockRecord struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	OwnerID   string    `json:"owner_id"`
	OwnerKind OwnerKind `json:"owner_kind"`
	Branch    string    `json:"branch"`
	Quantity  int       `json:"quantity"`
	Rate      float64   `json:"rate"` // Última taxa gravada (sobrescrita a cada crédito)
	Value     float64   `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key retorna a chave composta do registro.
func (s StockRecord) Key() StockKey {
	return StockKey{ItemID: s.ItemID, OwnerID: s.OwnerID, OwnerKind: s.OwnerKind, Branch: s.Branch}
}

// StockAddRequest é o payload para adição/reposição de estoque pelo admin.
// O item é criado de forma preguiçosa (find-or-create) se ainda não existir.
type StockAddRequest struct {
	ItemName    string  `json:"item_name"`
	Category    string  `json:"category"`
	Unit        string  `json:"unit"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Rate        float64 `json:"rate"`
}

// StockTransferRequest é o payload para transferência direta de estoque
// entre detentores (sem passar pelo ciclo de solicitação).
type StockTransferRequest struct {
	ItemName  string    `json:"item_name"`
	ToOwnerID string    `json:"to_owner_id"`
	ToKind    OwnerKind `json:"to_kind"`
	Quantity  int       `json:"quantity"`
	Branch    string    `json:"branch"`
}

// TransferResult carrega os dois lados de uma transferência concluída.
// From e To refletem os saldos já depois da mutação; a soma das quantidades
// do item é conservada (o crédito é exatamente igual ao débito).
type TransferResult struct {
	From StockRecord `json:"from"`
	To   StockRecord `json:"to"`
}

// OwnerStockSummaryEntry é a linha do resumo global de estoque por detentor
// (visão do admin sobre os saldos de todos os usuários).
type OwnerStockSummaryEntry struct {
	OwnerID   string `json:"owner_id"`
	OwnerName string `json:"owner_name"`
	StockSummaryEntry
}

// StockSummaryEntry é a linha de resumo de estoque exibida nos painéis.
type StockSummaryEntry struct {
	ItemName    string  `json:"item_name"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Branch      string  `json:"branch"`
	Quantity    int     `json:"quantity"`
	Rate        float64 `json:"rate"`
	Value       float64 `json:"value"`
}
