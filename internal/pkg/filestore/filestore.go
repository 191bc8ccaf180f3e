package filestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store define o contrato de persistência de arquivos (notas fiscais).
// O núcleo só armazena o descritor retornado; a mecânica de upload vive aqui.
type Store interface {
	Save(prefix string, originalName string, content io.Reader) (filePath string, fileType string, err error)
}

// LocalStore é a implementação concreta da interface Store usando o disco local.
type LocalStore struct {
	baseDir string
}

// NewLocalStore cria o diretório base (se necessário) e retorna o Store.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("falha ao criar diretório de uploads %s: %w", baseDir, err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// Save grava o conteúdo em disco sob um nome único e retorna o descritor
// {filePath, fileType}. fileType é "pdf" ou "image", derivado da extensão.
func (s *LocalStore) Save(prefix string, originalName string, content io.Reader) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))

	fileType := "image"
	if ext == ".pdf" {
		fileType = "pdf"
	}

	// Nome único: prefixo + timestamp + sufixo aleatório, preservando a extensão.
	name := fmt.Sprintf("%s_%d_%s%s", prefix, time.Now().Unix(), uuid.NewString()[:8], ext)
	fullPath := filepath.Join(s.baseDir, name)

	f, err := os.Create(fullPath)
	if err != nil {
		return "", "", fmt.Errorf("falha ao criar arquivo %s: %w", fullPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		os.Remove(fullPath)
		return "", "", fmt.Errorf("falha ao gravar arquivo %s: %w", fullPath, err)
	}

	return fullPath, fileType, nil
}
