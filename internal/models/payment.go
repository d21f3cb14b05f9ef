package models

import "time"

// PaymentStatus tracks the state of a gateway transaction.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// PaymentTransaction records one payment attempt against a tuition bill.
// Status is only ever updated by callback processing or status polling.
type PaymentTransaction struct {
	ID         string        `db:"id" json:"id"`
	OrderID    string        `db:"order_id" json:"order_id"`
	StudentID  string        `db:"student_id" json:"student_id"`
	SemesterID string        `db:"semester_id" json:"semester_id"`
	Amount     float64       `db:"amount" json:"amount"`
	Provider   string        `db:"provider" json:"provider"`
	Status     PaymentStatus `db:"status" json:"status"`
	PayURL     string        `db:"pay_url" json:"pay_url"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// PaymentCallbackLog is the append-only audit record of every gateway
// callback, persisted regardless of processing outcome.
type PaymentCallbackLog struct {
	ID             string    `db:"id" json:"id"`
	OrderID        string    `db:"order_id" json:"order_id"`
	Provider       string    `db:"provider" json:"provider"`
	ExternalStatus string    `db:"external_status" json:"external_status"`
	Payload        []byte    `db:"payload" json:"payload"`
	ReceivedAt     time.Time `db:"received_at" json:"received_at"`
}
