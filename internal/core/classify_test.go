package core

import (
	"testing"
	"time"
)

var testWindow = ResolveWindow(time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC))

func inflow(day int, amount int64, sender, desc string) Candidate {
	return Candidate{
		Date:        time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC),
		Description: desc,
		Amount:      Money{Cents: amount},
		Bank:        "Banco Azul",
		Sender:      sender,
	}
}

func classifyOne(t *testing.T, cc CaseContext, cand Candidate) Transaction {
	t.Helper()
	txs := NewClassifier(cc, testWindow, DefaultClassifierConfig()).Classify([]Candidate{cand})
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	return txs[0]
}

func TestClassifyRuleTable(t *testing.T) {
	cc := CaseContext{ClientName: "João Lima", FatherName: "Pedro Alves", MotherName: "Rita Alves"}

	cases := []struct {
		name   string
		cand   Candidate
		valid  bool
		reason ExclusionReason
	}{
		{"plain income", inflow(10, 150000, "Empresa XYZ", "Pix recebido"), true, ""},
		{"self transfer", inflow(10, 5000, "joao lima", "Pix recebido"), false, ReasonSelfTransfer},
		{"self transfer accented", inflow(10, 5000, "João  Lima", "Pix recebido"), false, ReasonSelfTransfer},
		{"same surname exact", inflow(10, 5000, "Maria Souza Lima", "Pix recebido"), false, ReasonSameSurname},
		{"surname truncated no match", inflow(10, 5000, "Maria Souza Lim", "Pix recebido"), true, ""},
		{"surname suffixed no match", inflow(10, 5000, "Maria Souza Lima Jr", "Pix recebido"), true, ""},
		{"father", inflow(10, 5000, "Pedro Alves", "Pix recebido"), false, ReasonKinship},
		{"mother", inflow(10, 5000, "rita alves", "Pix recebido"), false, ReasonKinship},
		{"credit card pix", inflow(10, 5000, "Empresa XYZ", "Pix cartão de crédito"), false, ReasonProhibitedType},
		{"refund", inflow(10, 5000, "Loja ABC", "Reembolso de compra"), false, ReasonProhibitedType},
		{"chargeback", inflow(10, 5000, "Loja ABC", "Estorno"), false, ReasonProhibitedType},
		{"investment yield", inflow(10, 5000, "Corretora", "Rendimento de aplicação"), false, ReasonProhibitedType},
		{"redemption", inflow(10, 5000, "Corretora", "Resgate CDB"), false, ReasonProhibitedType},
		{"bill receipt", inflow(10, 5000, "Cliente", "Recebimento de boleto"), false, ReasonProhibitedType},
		{"gambling brand", inflow(10, 5000, "Betano Pagamentos", "Pix recebido"), false, ReasonGamblingOrigin},
		{"gambling bet365", inflow(10, 5000, "Empresa XYZ", "saque bet365"), false, ReasonGamblingOrigin},
		{"gambling casino", inflow(10, 5000, "Cassino Royal", "Pix recebido"), false, ReasonGamblingOrigin},
		{"beto is not a bookmaker", inflow(10, 5000, "Beto Carvalho", "Pix recebido"), true, ""},
		{"payroll salary", inflow(10, 500000, "Outra Empresa", "Salário"), false, ReasonPayrollNaming},
		{"payroll net wording", inflow(10, 500000, "Outra Empresa", "Líquido de vencimento"), false, ReasonPayrollNaming},
		{"just below minimum", inflow(10, 2999, "Empresa XYZ", "Pix recebido"), false, ReasonBelowMinimum},
		{"exactly minimum", inflow(10, 3000, "Empresa XYZ", "Pix recebido"), true, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := classifyOne(t, cc, tc.cand)
			if tx.IsValid != tc.valid {
				t.Fatalf("expected valid=%v, got %v (reason %q)", tc.valid, tx.IsValid, tx.ExclusionReason)
			}
			if tx.ExclusionReason != tc.reason {
				t.Fatalf("expected reason %q, got %q", tc.reason, tx.ExclusionReason)
			}
		})
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// The client's own name also matches the surname rule; the recorded
	// reason must come from the earlier rule.
	cc := CaseContext{ClientName: "João Lima"}
	tx := classifyOne(t, cc, inflow(10, 5000, "João Lima", "Pix recebido"))
	if tx.ExclusionReason != ReasonSelfTransfer {
		t.Fatalf("expected self_transfer, got %q", tx.ExclusionReason)
	}
}

func TestClassifyOutOfWindow(t *testing.T) {
	cc := CaseContext{ClientName: "João Lima"}
	cand := inflow(10, 5000, "Empresa XYZ", "Pix recebido")
	cand.Date = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	tx := classifyOne(t, cc, cand)
	if tx.IsValid || tx.ExclusionReason != ReasonOutOfWindow {
		t.Fatalf("expected out_of_window, got valid=%v reason=%q", tx.IsValid, tx.ExclusionReason)
	}
}

func TestClassifyChurn(t *testing.T) {
	cc := CaseContext{ClientName: "João Lima"}
	out := func(day int, amount int64, sender string) Candidate {
		c := inflow(day, amount, sender, "Pix enviado")
		c.Outflow = true
		return c
	}

	t.Run("round trip within window", func(t *testing.T) {
		txs := NewClassifier(cc, testWindow, DefaultClassifierConfig()).Classify([]Candidate{
			inflow(10, 50000, "Carlos Pereira", "Pix recebido"),
			out(12, 50000, "Carlos Pereira"),
		})
		if len(txs) != 1 {
			t.Fatalf("outflow must not become a transaction, got %d", len(txs))
		}
		if txs[0].IsValid || txs[0].ExclusionReason != ReasonChurnPattern {
			t.Fatalf("expected churn_pattern, got valid=%v reason=%q", txs[0].IsValid, txs[0].ExclusionReason)
		}
	})

	t.Run("outflow too late", func(t *testing.T) {
		txs := NewClassifier(cc, testWindow, DefaultClassifierConfig()).Classify([]Candidate{
			inflow(2, 50000, "Carlos Pereira", "Pix recebido"),
			out(20, 50000, "Carlos Pereira"),
		})
		if !txs[0].IsValid {
			t.Fatalf("outflow outside churn window must not flag, got reason %q", txs[0].ExclusionReason)
		}
	})

	t.Run("different counterparty", func(t *testing.T) {
		txs := NewClassifier(cc, testWindow, DefaultClassifierConfig()).Classify([]Candidate{
			inflow(10, 50000, "Carlos Pereira", "Pix recebido"),
			out(12, 50000, "Outra Pessoa"),
		})
		if !txs[0].IsValid {
			t.Fatalf("different counterparty must not flag, got reason %q", txs[0].ExclusionReason)
		}
	})
}

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  João   Lima ", "joao lima"},
		{"MARIA SOUZA", "maria souza"},
		{"José Ângelo Conceição", "jose angelo conceicao"},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestSurnameToken(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"João Lima", "lima"},
		{"Maria Souza Lima Jr", "jr"},
		{"Ana", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SurnameToken(tc.in); got != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
