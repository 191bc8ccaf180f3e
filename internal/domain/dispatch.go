package domain

import "time"

// DispatchEntry é o registro imutável de auditoria de uma expedição concluída.
// Escrito uma única vez, nunca alterado ou removido. Nunca é consultado para
// derivar saldos: o StockRecord é a única fonte de verdade do estoque atual.
type DispatchEntry struct {
	ID           string    `json:"id"`
	Reference    string    `json:"reference"` // Ex: INV-1735689600-4821
	RequestID    string    `json:"request_id"`
	ItemID       string    `json:"item_id"`
	Quantity     int       `json:"quantity"`
	Rate         float64   `json:"rate"`   // Taxa da origem no momento da transferência
	Branch       string    `json:"branch"` // Filial da ORIGEM (estoque da empresa debitado)
	DispatchedBy string    `json:"dispatched_by"`
	DispatchedTo string    `json:"dispatched_to"`
	DispatchedAt time.Time `json:"dispatched_at"`

	// DestinationBranch é a filial CADASTRADA do destinatário, usada apenas
	// como chave do crédito no estoque do usuário. Precisa ser a mesma filial
	// sob a qual o usuário debita o próprio estoque depois (venda), senão o
	// saldo creditado fica inalcançável. Não compõe a trilha de auditoria.
	DestinationBranch string `json:"-"`
}
