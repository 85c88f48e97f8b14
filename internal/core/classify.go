package core

import (
	"strings"
	"time"
	"unicode"
)

// ClassifierConfig holds the tunable thresholds of the rule table.
type ClassifierConfig struct {
	// MinAmountCents is the smallest inflow counted as income.
	MinAmountCents int64
	// ChurnWindow is how long after an inflow an equal outflow to the same
	// counterparty still marks the pair as a round-trip.
	ChurnWindow time.Duration
}

// DefaultClassifierConfig returns the operational defaults: R$ 30,00 minimum
// and a 7-day churn window.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		MinAmountCents: 3000,
		ChurnWindow:    7 * 24 * time.Hour,
	}
}

// Classifier decides income eligibility for statement inflows. Rules are
// evaluated in a fixed order and the first match determines the recorded
// exclusion reason.
type Classifier struct {
	cfg           ClassifierConfig
	window        map[Month]struct{}
	client        string
	clientSurname string
	father        string
	mother        string
}

// NewClassifier builds a classifier for one case context over the resolved
// month window. Names are normalized once here.
func NewClassifier(cc CaseContext, window []Month, cfg ClassifierConfig) *Classifier {
	if cfg.MinAmountCents <= 0 {
		cfg.MinAmountCents = DefaultClassifierConfig().MinAmountCents
	}
	if cfg.ChurnWindow <= 0 {
		cfg.ChurnWindow = DefaultClassifierConfig().ChurnWindow
	}
	w := make(map[Month]struct{}, len(window))
	for _, m := range window {
		w[m] = struct{}{}
	}
	return &Classifier{
		cfg:           cfg,
		window:        w,
		client:        NormalizeName(cc.ClientName),
		clientSurname: SurnameToken(cc.ClientName),
		father:        NormalizeName(cc.FatherName),
		mother:        NormalizeName(cc.MotherName),
	}
}

// Classify tags every inflow candidate, preserving input order. Outflow
// records never become transactions; they only feed round-trip detection.
// Segmenter validity hints are ignored: this table is the authority of record.
func (c *Classifier) Classify(cands []Candidate) []Transaction {
	churned := churnMatches(cands, c.cfg.ChurnWindow)
	txs := make([]Transaction, 0, len(cands))
	for i, cand := range cands {
		if cand.Outflow {
			continue
		}
		valid, reason := c.classifyOne(cand, churned[i])
		txs = append(txs, Transaction{
			ID:              NewTransactionID(),
			Date:            cand.Date,
			Description:     cand.Description,
			Amount:          cand.Amount,
			Bank:            cand.Bank,
			Sender:          cand.Sender,
			IsValid:         valid,
			ExclusionReason: reason,
		})
	}
	return txs
}

// classifyOne applies the rule table. The window check runs first so that an
// out-of-window inflow always reports out_of_window regardless of what else
// would match; the remaining rules follow the prescribed order.
func (c *Classifier) classifyOne(cand Candidate, churned bool) (bool, ExclusionReason) {
	if _, ok := c.window[MonthOf(cand.Date)]; !ok {
		return false, ReasonOutOfWindow
	}
	sender := NormalizeName(cand.Sender)
	desc := NormalizeName(cand.Description)
	switch {
	case sender == c.client:
		return false, ReasonSelfTransfer
	case c.clientSurname != "" && SurnameToken(cand.Sender) == c.clientSurname:
		return false, ReasonSameSurname
	case (c.father != "" && sender == c.father) || (c.mother != "" && sender == c.mother):
		return false, ReasonKinship
	case containsAny(desc, prohibitedTypeTerms):
		return false, ReasonProhibitedType
	case hasGamblingTerm(sender) || hasGamblingTerm(desc):
		return false, ReasonGamblingOrigin
	case containsAny(desc, payrollTerms):
		return false, ReasonPayrollNaming
	case cand.Amount.Cents < c.cfg.MinAmountCents:
		return false, ReasonBelowMinimum
	case churned:
		return false, ReasonChurnPattern
	}
	return true, ""
}

// churnMatches flags inflows that round-trip: an outflow of equal magnitude to
// the same counterparty within the window after the inflow. Deliberately
// conservative: exact amount, exact normalized counterparty, same statement.
func churnMatches(cands []Candidate, window time.Duration) []bool {
	flagged := make([]bool, len(cands))
	for i, in := range cands {
		if in.Outflow {
			continue
		}
		sender := NormalizeName(in.Sender)
		for _, out := range cands {
			if !out.Outflow || out.Amount.Cents != in.Amount.Cents {
				continue
			}
			if NormalizeName(out.Sender) != sender {
				continue
			}
			delta := out.Date.Sub(in.Date)
			if delta >= 0 && delta <= window {
				flagged[i] = true
				break
			}
		}
	}
	return flagged
}

// prohibitedTypeTerms covers credit-card Pix, refunds, chargebacks,
// investment yield/redemption and bill-payment receipts. Matched against the
// normalized description.
var prohibitedTypeTerms = []string{
	"cartao de credito",
	"reembolso",
	"estorno",
	"chargeback",
	"rendimento",
	"aplicacao",
	"resgate",
	"investimento",
	"boleto",
}

// payrollTerms excludes inflows named as salary, which may duplicate income
// already counted from another source.
var payrollTerms = []string{
	"salario",
	"liquido de vencimento",
}

var gamblingTokens = map[string]bool{
	"bet":         true,
	"aposta":      true,
	"apostas":     true,
	"cassino":     true,
	"casino":      true,
	"jogo":        true,
	"jogos":       true,
	"game":        true,
	"games":       true,
	"bingo":       true,
	"loteria":     true,
	"loterias":    true,
	"betano":      true,
	"sportingbet": true,
	"pixbet":      true,
	"blaze":       true,
}

func containsAny(normalized string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(normalized, t) {
			return true
		}
	}
	return false
}

// hasGamblingTerm matches whole tokens against the keyword set, plus the
// "bet"-prefixed brand pattern (bet365 and the like). Token-exact matching
// keeps names such as "Beto" from triggering the rule.
func hasGamblingTerm(normalized string) bool {
	for _, tok := range strings.Fields(normalized) {
		if gamblingTokens[tok] {
			return true
		}
		if strings.HasPrefix(tok, "bet") && strings.IndexFunc(tok, unicode.IsDigit) >= 0 {
			return true
		}
	}
	return false
}
