package core

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Exclusion reasons, one per classifier rule. A valid transaction carries none.
const (
	ReasonSelfTransfer   ExclusionReason = "self_transfer"
	ReasonSameSurname    ExclusionReason = "same_surname"
	ReasonKinship        ExclusionReason = "kinship"
	ReasonProhibitedType ExclusionReason = "prohibited_transaction_type"
	ReasonGamblingOrigin ExclusionReason = "gambling_origin"
	ReasonPayrollNaming  ExclusionReason = "payroll_naming"
	ReasonBelowMinimum   ExclusionReason = "below_minimum"
	ReasonChurnPattern   ExclusionReason = "churn_pattern"
	ReasonOutOfWindow    ExclusionReason = "out_of_window"
)

type (
	ExclusionReason string

	Money struct {
		Cents int64
	}

	// Month identifies a calendar month within a verification window.
	Month struct {
		Year  int
		Month time.Month
	}

	// CaseContext carries the identity data a classification run needs.
	// Father and mother names are optional.
	CaseContext struct {
		ClientName string `json:"clientName"`
		FatherName string `json:"fatherName,omitempty"`
		MotherName string `json:"motherName,omitempty"`
	}

	// Candidate is one record produced by the statement segmenter, before
	// classification. Outflow marks money leaving the account; outflows are
	// never income but feed the round-trip detection. ValidHint is the
	// segmenter's provisional judgment and carries no authority here.
	Candidate struct {
		Date        time.Time `json:"date"`
		Description string    `json:"description"`
		Amount      Money     `json:"amount"`
		Bank        string    `json:"bank"`
		Sender      string    `json:"sender"`
		Outflow     bool      `json:"outflow,omitempty"`
		ValidHint   *bool     `json:"isValid,omitempty"`
	}

	// Transaction is a classified statement inflow. Only IsValid and Amount
	// may change after classification, and only through the ledger operations.
	Transaction struct {
		ID              string          `json:"id"`
		Date            time.Time       `json:"date"`
		Description     string          `json:"description"`
		Amount          Money           `json:"amount"`
		Bank            string          `json:"bank"`
		Sender          string          `json:"sender"`
		IsValid         bool            `json:"isValid"`
		ExclusionReason ExclusionReason `json:"exclusionReason,omitempty"`
	}

	// MonthBucket groups the transactions of one window month in
	// classification order. Total is always derived from the valid
	// transactions, never stored as ground truth.
	MonthBucket struct {
		Month        Month         `json:"-"`
		Label        string        `json:"month"`
		Transactions []Transaction `json:"transactions"`
		Total        Money         `json:"total"`
	}

	// IncomeVerification is one complete income analysis run for a client.
	// Identity is immutable; content changes only through SetValidity and
	// SetAmount, which re-derive every aggregate.
	IncomeVerification struct {
		ID            string        `json:"id"`
		ClientName    string        `json:"clientName"`
		FatherName    string        `json:"fatherName,omitempty"`
		MotherName    string        `json:"motherName,omitempty"`
		CreatedAt     time.Time     `json:"createdAt"`
		PeriodStart   string        `json:"periodStart"`
		PeriodEnd     string        `json:"periodEnd"`
		MonthlyData   []MonthBucket `json:"monthlyData"`
		TotalIncome   Money         `json:"totalIncome"`
		AverageIncome Money         `json:"averageIncome"`
		RawInput      string        `json:"rawInput"`
	}
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmptyClientName      = errors.New("empty client name")
	ErrNotFound             = errors.New("transaction not found")
	ErrMalformedInput       = errors.New("malformed segmenter output")
	ErrSegmenterUnavailable = errors.New("segmenter unavailable")
)

var monthNames = [13]string{"",
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Label renders the canonical "Month/Year" identifier, e.g. "Janeiro/2026".
func (m Month) Label() string {
	name := ""
	if m.Month >= 1 && m.Month <= 12 {
		name = monthNames[m.Month]
	}
	return name + "/" + strconv.Itoa(m.Year)
}

// Before reports chronological order.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (cc CaseContext) Validate() error {
	if strings.TrimSpace(cc.ClientName) == "" {
		return ErrEmptyClientName
	}
	return nil
}

// Validate checks the fields a candidate must carry before classification.
// A candidate failing here makes the whole batch malformed.
func (c Candidate) Validate() error {
	if c.Date.IsZero() {
		return errors.New("candidate missing date")
	}
	if strings.TrimSpace(c.Sender) == "" {
		return errors.New("candidate missing sender")
	}
	if err := c.Amount.Validate(); err != nil {
		return err
	}
	return nil
}

// NewTransactionID returns a fresh synthetic transaction identifier.
func NewTransactionID() string {
	return uuid.NewString()
}

// NewVerificationID returns a fresh verification identifier.
func NewVerificationID() string {
	return uuid.NewString()
}
