package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"almox/internal/pkg/logger"
)

// Sink define o contrato de notificação do núcleo (fire-and-forget).
// Uma falha de notificação nunca falha ou reverte a transição que a originou:
// o chamador apenas registra o erro e segue.
type Sink interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// Message é o payload enviado à API do Resend.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// ResendSink é a implementação concreta da interface Sink, usando a API
// de e-mail do Resend (https://resend.com) via resty.
type ResendSink struct {
	client *resty.Client
	from   string
	logger logger.Logger
}

// NewResendSink cria o cliente HTTP e retorna o Sink.
func NewResendSink(apiKey, from string, log logger.Logger) *ResendSink {
	client := resty.New().
		SetBaseURL("https://api.resend.com").
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", apiKey)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)

	return &ResendSink{client: client, from: from, logger: log}
}

// Send envia um e-mail simples de texto.
func (s *ResendSink) Send(ctx context.Context, recipient, subject, body string) error {
	msg := Message{
		From:    s.from,
		To:      recipient,
		Subject: subject,
		Text:    body,
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(msg).
		Post("/emails")

	if err != nil {
		return fmt.Errorf("falha ao chamar API de e-mail: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("API de e-mail retornou status %d: %s", resp.StatusCode(), resp.String())
	}

	s.logger.Debug("Notificação enviada.", map[string]interface{}{"recipient": recipient, "subject": subject})
	return nil
}

// NopSink descarta notificações. Usado em desenvolvimento e em testes,
// quando não há chave de API configurada.
type NopSink struct{}

// Send não faz nada.
func (NopSink) Send(ctx context.Context, recipient, subject, body string) error { return nil }
