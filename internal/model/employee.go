package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Employee struct {
	ID            uint64          `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"size:64;not null" json:"name"`
	Email         string          `gorm:"size:128;not null" json:"email"`
	Gender        string          `gorm:"size:8" json:"gender"`
	Position      string          `gorm:"size:64;not null" json:"position"`
	JobLevel      string          `gorm:"size:64;not null" json:"job_level"`
	Department    string          `gorm:"size:64;not null" json:"department"`
	BeginContract time.Time       `gorm:"not null" json:"begin_contract"`
	EndContract   time.Time       `gorm:"not null" json:"end_contract"`
	ContractTerm  decimal.Decimal `gorm:"type:numeric(6,2);not null" json:"contract_term"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Employee) TableName() string { return "employee" }

// ComputeContractTerm returns the contract length in years with two decimals,
// counted in whole months between the contract dates.
func ComputeContractTerm(begin, end time.Time) decimal.Decimal {
	months := (end.Year()-begin.Year())*12 + int(end.Month()) - int(begin.Month())
	return decimal.NewFromInt(int64(months)).
		Div(decimal.NewFromInt(12)).
		Round(2)
}
