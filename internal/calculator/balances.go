package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitit/internal/models"
)

// settleEpsilon hides floating point noise below half a cent.
const settleEpsilon = 0.005

// Balances folds expenses into one signed balance per counterparty of userID.
// A positive balance means the counterparty owes userID, a negative one means
// userID owes the counterparty.
//
// For each expense:
//   - userID paid: every other participant j adds +owed(j) to the balance with j
//   - j paid and userID participates: −owed(userID) is added to the balance with j
//
// Contributions are accumulated exactly, so the result does not depend on the order
// of expenses and recomputing it always yields identical output.
func Balances(expenses []*models.Expense, userID string) map[string]float64 {
	sums := make(map[string]decimal.Decimal)

	for _, e := range expenses {
		if e.PaidBy == userID {
			for _, p := range e.Participants {
				if p.ID == userID {
					continue
				}
				sums[p.ID] = sums[p.ID].Add(decimal.NewFromFloat(Owed(e.Amount, p.Share)))
			}
			continue
		}

		self, ok := e.Participant(userID)
		if !ok {
			continue
		}
		sums[e.PaidBy] = sums[e.PaidBy].Sub(decimal.NewFromFloat(Owed(e.Amount, self.Share)))
	}

	balances := make(map[string]float64, len(sums))
	for id, sum := range sums {
		balances[id] = sum.InexactFloat64()
	}
	return balances
}

// GroupBalances is Balances restricted to the expenses of one group.
func GroupBalances(expenses []*models.Expense, userID, groupID string) map[string]float64 {
	var inGroup []*models.Expense
	for _, e := range expenses {
		if e.GroupID == groupID {
			inGroup = append(inGroup, e)
		}
	}
	return Balances(inGroup, userID)
}

// TotalBalance sums userID's net position over all expenses.
func TotalBalance(expenses []*models.Expense, userID string) float64 {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(decimal.NewFromFloat(NetPosition(e, userID)))
	}
	return total.InexactFloat64()
}

// IsSettled reports whether a balance rounds to zero.
func IsSettled(balance float64) bool {
	return balance > -settleEpsilon && balance < settleEpsilon
}

// MemberBalance is one member's position across a set of expenses.
type MemberBalance struct {
	UserID     string  `json:"userId"`
	NetBalance float64 `json:"netBalance"` // Positive = owed money, Negative = owes money
	TotalPaid  float64 `json:"totalPaid"`  // Total amount paid across all expenses
	TotalOwed  float64 `json:"totalOwed"`  // Total amount attributed to this member
}

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From   string  `json:"from"` // Person who owes
	To     string  `json:"to"`   // Person who is owed
	Amount float64 `json:"amount"`
}

// SettleUp computes every member's net position over expenses and a minimal-ish
// list of payments that would settle the group.
//
// Algorithm:
//   - payer contributed +amount, each participant owes their split
//   - net = paid − owed
//   - greedy matching of the largest debtor with the largest creditor
func SettleUp(expenses []*models.Expense) ([]MemberBalance, []DebtEdge) {
	paid := make(map[string]decimal.Decimal)
	owed := make(map[string]decimal.Decimal)

	for _, e := range expenses {
		paid[e.PaidBy] = paid[e.PaidBy].Add(decimal.NewFromFloat(e.Amount))
		if _, ok := owed[e.PaidBy]; !ok {
			owed[e.PaidBy] = decimal.Zero
		}
		for _, p := range e.Participants {
			owed[p.ID] = owed[p.ID].Add(decimal.NewFromFloat(Owed(e.Amount, p.Share)))
			if _, ok := paid[p.ID]; !ok {
				paid[p.ID] = decimal.Zero
			}
		}
	}

	balances := make([]MemberBalance, 0, len(paid))
	for id := range paid {
		balances = append(balances, MemberBalance{
			UserID:     id,
			TotalPaid:  paid[id].InexactFloat64(),
			TotalOwed:  owed[id].InexactFloat64(),
			NetBalance: paid[id].Sub(owed[id]).InexactFloat64(),
		})
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].UserID < balances[j].UserID })

	// Create lists of creditors (owed money) and debtors (owe money)
	var creditors, debtors []MemberBalance
	for _, b := range balances {
		switch {
		case b.NetBalance >= settleEpsilon:
			creditors = append(creditors, b)
		case b.NetBalance <= -settleEpsilon:
			debtors = append(debtors, b)
		}
	}
	sort.SliceStable(creditors, func(i, j int) bool { return creditors[i].NetBalance > creditors[j].NetBalance })
	sort.SliceStable(debtors, func(i, j int) bool { return debtors[i].NetBalance < debtors[j].NetBalance })

	remainingDebt := make([]float64, len(debtors))
	for i, d := range debtors {
		remainingDebt[i] = -d.NetBalance
	}
	remainingCredit := make([]float64, len(creditors))
	for i, c := range creditors {
		remainingCredit[i] = c.NetBalance
	}

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := remainingDebt[i]
		if remainingCredit[j] < amount {
			amount = remainingCredit[j]
		}

		if amount >= settleEpsilon {
			edges = append(edges, DebtEdge{
				From:   debtors[i].UserID,
				To:     creditors[j].UserID,
				Amount: amount,
			})
		}

		remainingDebt[i] -= amount
		remainingCredit[j] -= amount

		if remainingDebt[i] < settleEpsilon {
			i++
		}
		if remainingCredit[j] < settleEpsilon {
			j++
		}
	}

	return balances, edges
}
