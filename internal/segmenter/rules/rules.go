// Package rules implements a deterministic, regex-based statement segmenter.
// It is a local fallback for development and tests: one statement line per
// candidate, fields guessed from common Brazilian bank wording. It never
// fabricates records; lines it cannot read are skipped.
package rules

import (
	"context"
	"regexp"
	"strings"
	"time"

	"renda/internal/core"
)

type Segmenter struct{}

func New() *Segmenter { return &Segmenter{} }

var (
	dateRes = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{2})/(\d{2})/(\d{4})\b`), // DD/MM/YYYY
		regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`), // YYYY-MM-DD
	}
	amountRe = regexp.MustCompile(`(?i)R\$\s*([0-9][0-9.,]*)`)
	senderRe = regexp.MustCompile(`(?i)\b(?:de|para)\s+([^,;]+?)(?:\s+R\$|\s+-\s|$)`)
	bankRe   = regexp.MustCompile(`(?i)\b(banco\s+\S+|nubank|itau|itaú|bradesco|caixa|santander|inter|sicredi)\b`)
)

// outflowTerms marks money leaving the account. Outflow lines are kept as
// candidates so the round-trip rule can see them.
var outflowTerms = []string{"enviado", "enviada", "pago", "pagamento efetuado", "saida", "saída", "transferencia para", "transferência para"}

// Segment parses each non-empty line into a candidate. Lines without a
// readable date, amount and counterparty are dropped.
func (s *Segmenter) Segment(_ context.Context, raw string, _ core.CaseContext) ([]core.Candidate, error) {
	var cands []core.Candidate
	for _, line := range strings.Split(raw, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		cand, ok := parseLine(line)
		if !ok {
			continue
		}
		cands = append(cands, cand)
	}
	return cands, nil
}

func parseLine(line string) (core.Candidate, bool) {
	date, ok := parseDate(line)
	if !ok {
		return core.Candidate{}, false
	}
	cents, ok := parseAmount(line)
	if !ok {
		return core.Candidate{}, false
	}

	sender := ""
	if m := senderRe.FindStringSubmatch(line); len(m) >= 2 {
		sender = strings.TrimSpace(m[1])
	}
	if sender == "" {
		return core.Candidate{}, false
	}
	bank := ""
	if m := bankRe.FindStringSubmatch(line); len(m) >= 2 {
		bank = strings.TrimSpace(m[1])
	}

	lower := strings.ToLower(line)
	outflow := false
	for _, term := range outflowTerms {
		if strings.Contains(lower, term) {
			outflow = true
			break
		}
	}

	return core.Candidate{
		Date:        date,
		Description: line,
		Amount:      core.Money{Cents: cents},
		Bank:        bank,
		Sender:      sender,
		Outflow:     outflow,
	}, true
}

func parseDate(line string) (time.Time, bool) {
	if m := dateRes[0].FindStringSubmatch(line); len(m) == 4 {
		t, err := time.Parse("02/01/2006", m[0])
		if err == nil {
			return t, true
		}
	}
	if m := dateRes[1].FindStringSubmatch(line); len(m) == 4 {
		t, err := time.Parse("2006-01-02", m[0])
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseAmount reads a BRL amount. With both separators present the dots are
// thousands marks ("1.500,00"); a lone comma is the decimal separator.
func parseAmount(line string) (int64, bool) {
	m := amountRe.FindStringSubmatch(line)
	if len(m) < 2 {
		return 0, false
	}
	s := m[1]
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
	}
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return 0, false
	}
	return cents, true
}
