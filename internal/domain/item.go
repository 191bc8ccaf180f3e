package domain

import (
	"strings"
	"time"
)

// Item representa o item canônico do catálogo.
// O nome normalizado é a chave natural: existe no máximo um Item por nome.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"` // Sempre armazenado normalizado (trim + minúsculas)
	Category    string    `json:"category"`
	Unit        string    `json:"unit"` // Ex: "un", "kg", "cx"
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NormalizeItemName aplica a normalização usada como chave natural do catálogo.
// Toda busca e toda criação de Item passa por aqui — nunca comparar nomes crus.
func NormalizeItemName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
