package domain

import "time"

// RequestStatus é o campo da máquina de estados da solicitação.
// Transições são unidirecionais; nenhum estado é reentrável.
//
//	requested -> approved -> invoice_uploaded(_by_user) -> dispatched
//	requested -> rejected
//
// Estados terminais: dispatched e rejected.
type RequestStatus string

const (
	StatusRequested             RequestStatus = "requested"
	StatusApproved              RequestStatus = "approved"
	StatusInvoiceUploaded       RequestStatus = "invoice_uploaded"
	StatusInvoiceUploadedByUser RequestStatus = "invoice_uploaded_by_user"
	StatusDispatched            RequestStatus = "dispatched"
	StatusRejected              RequestStatus = "rejected"
)

// Priority indica a urgência declarada pelo solicitante.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Invoice guarda o descritor do arquivo de nota fiscal retornado pelo FileStore.
// O núcleo só armazena o descritor; a mecânica de upload fica na borda.
type Invoice struct {
	FilePath   string    `json:"file_path"`
	FileType   string    `json:"file_type"` // "pdf" ou "image"
	UploadedBy string    `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Request representa uma solicitação de item de um usuário a uma empresa.
// É mutada exclusivamente pelo motor de solicitações (requestservice).
type Request struct {
	ID              string        `json:"id"`
	RequesterID     string        `json:"requester_id"`
	CompanyID       string        `json:"company_id"` // FK explícita: o admin dono da solicitação
	ItemName        string        `json:"item_name"`  // Texto informado pelo solicitante
	ItemID          string        `json:"item_id,omitempty"`
	Quantity        int           `json:"quantity"`
	Priority        Priority      `json:"priority"`
	DeliveryAddress string        `json:"delivery_address"`
	Status          RequestStatus `json:"status"`
	Token           string        `json:"token,omitempty"` // Atribuído na aprovação, único
	Invoice         *Invoice      `json:"invoice,omitempty"`
	RejectionReason string        `json:"rejection_reason,omitempty"`

	RequestedAt       time.Time  `json:"requested_at"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
	InvoiceUploadedAt *time.Time `json:"invoice_uploaded_at,omitempty"`
	DispatchedAt      *time.Time `json:"dispatched_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AwaitingDispatch informa se a solicitação está em um estado do qual a
// expedição é permitida (nota fiscal já anexada, por admin ou pelo solicitante).
func (r Request) AwaitingDispatch() bool {
	return r.Status == StatusInvoiceUploaded || r.Status == StatusInvoiceUploadedByUser
}

// Terminal informa se a solicitação atingiu um estado final.
func (r Request) Terminal() bool {
	return r.Status == StatusDispatched || r.Status == StatusRejected
}

// RequestCreate é o payload de abertura de solicitação.
type RequestCreate struct {
	ItemName        string   `json:"item_name"`
	Quantity        int      `json:"quantity"`
	CompanyID       string   `json:"company_id"`
	Priority        Priority `json:"priority"`
	DeliveryAddress string   `json:"delivery_address"`
}

// RequestReject é o payload de rejeição.
type RequestReject struct {
	Reason string `json:"reason"`
}
