package database

import (
	"database/sql"
	"fmt"
	"time"

	// Driver pq para PostgreSQL (registrado via side effect)
	_ "github.com/lib/pq"
)

// NewPostgresDB inicializa e configura o pool de conexões com o PostgreSQL.
// Retorna a conexão *sql.DB pronta para uso.
func NewPostgresDB(dataSourceName string) (*sql.DB, error) {

	// 1. Abrir a Conexão
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir a conexão com o DB: %w", err)
	}

	// 2. Testar a Conexão Imediatamente
	// Garante que as credenciais e o servidor estão corretos
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("falha ao realizar o ping inicial no DB: %w", err)
	}

	// 3. Configuração do Connection Pool
	// Cada operação de expedição/venda roda em sua própria transação com locks
	// de linha, então o pool precisa comportar chamadas concorrentes sem fila longa.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	return db, nil
}
