package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single signed ledger entry for a user account.
// Negative amounts are outflows, positive amounts are inflows.
type Transaction struct {
	ID        int64
	UserID    string
	AccountID string
	Date      time.Time
	Amount    decimal.Decimal
	Merchant  string
	Category  string
	CreatedAt time.Time
}

// AccountSnapshot captures the state of one account as of a given date.
// Credit fields are nil for non-credit accounts.
type AccountSnapshot struct {
	ID             int64
	UserID         string
	AccountID      string
	Type           string
	Subtype        string
	AsOf           time.Time
	Balance        decimal.Decimal
	CreditLimit    *decimal.Decimal
	MinimumPayment *decimal.Decimal
	LastPayment    *decimal.Decimal
	Overdue        bool
	CreatedAt      time.Time
}

// Account type/subtype values the detectors care about.
const (
	AccountTypeDepository = "depository"
	AccountTypeCredit     = "credit"

	AccountSubtypeChecking   = "checking"
	AccountSubtypeSavings    = "savings"
	AccountSubtypeCreditCard = "credit_card"
)

// CategoryPayroll tags inflows originating from payroll. The income
// detector only considers transactions carrying this category.
const CategoryPayroll = "payroll"

// AssignmentRecord is the audit row written after each evaluation.
type AssignmentRecord struct {
	ID               int64
	UserID           string
	ReferenceDate    time.Time
	PersonaID        string
	PriorityRank     int
	ResolutionReason string
	MatchedCount     int
	Evidence         []byte
	CreatedAt        time.Time
}
