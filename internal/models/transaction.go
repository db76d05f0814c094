package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionInput is one imported bank row before the store assigns an id.
type TransactionInput struct {
	AccountName     string
	AccountIBAN     string
	AccountBIC      string
	AccountBankName string

	TransactionBookingDate time.Time
	TransactionValueDate   time.Time `gorm:"index"`

	CounterpartyName string
	CounterpartyIBAN string
	CounterpartyBIC  string

	TransactionDescription string
	TransactionPurpose     string
	AdditionalInformation  string

	TransactionAmount       decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	TransactionCurrency     string
	BalanceAfterTransaction decimal.Decimal `gorm:"type:numeric(14,2)"`

	TransactionCategory  string `gorm:"index"`
	TaxRelevantIndicator string
	CreditorIdentifier   string
	MandateReference     string
}

type Transaction struct {
	ID uint `gorm:"primaryKey" json:"id"`
	TransactionInput
	Exclude       bool       `gorm:"not null;default:false"`
	ImportBatchID *uuid.UUID `gorm:"type:uuid;index" json:",omitempty"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TransactionPatch lists the only fields a client may change after import.
// Nil fields are left untouched.
type TransactionPatch struct {
	Exclude               *bool   `json:"Exclude"`
	TransactionCategory   *string `json:"TransactionCategory"`
	AdditionalInformation *string `json:"AdditionalInformation"`
}

func (p TransactionPatch) IsEmpty() bool {
	return p.Exclude == nil && p.TransactionCategory == nil && p.AdditionalInformation == nil
}
