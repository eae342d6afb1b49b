package calculator

import (
	"fmt"
	"math"

	"github.com/mmynk/splitit/internal/models"
)

// ShareTolerance is how far, in percentage points, stored shares may drift from 100.
const ShareTolerance = 0.1

// Split is the result of splitting one expense.
type Split struct {
	// Participants carry normalized shares summing to 100. These are persisted.
	Participants []models.Participant

	// Owed maps participant ID to the amount attributed to them.
	Owed map[string]float64

	// Net maps participant ID to their signed position for this expense:
	// positive means they get money back, negative means they owe it.
	Net map[string]float64
}

// CalculateSplit validates the participants, derives their shares from mode and computes
// every participant's obligation and net position.
//
// Algorithm:
//   - equal: share = 100 / n
//   - custom: share = raw / Σraw × 100
//   - owed = amount × share / 100
//   - net(payer) = amount − owed(payer), net(other) = −owed(other)
func CalculateSplit(amount float64, payerID string, mode models.SplitMode, participants []models.Participant) (*Split, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, models.Invalid("amount", models.ErrNonPositiveAmount)
	}

	shares, err := Shares(mode, participants)
	if err != nil {
		return nil, err
	}

	if _, ok := findParticipant(shares, payerID); !ok {
		return nil, models.Invalid("paidBy", models.ErrPayerNotParticipant)
	}

	split := &Split{
		Participants: shares,
		Owed:         make(map[string]float64, len(shares)),
		Net:          make(map[string]float64, len(shares)),
	}
	for _, p := range shares {
		owed := Owed(amount, p.Share)
		split.Owed[p.ID] = owed
		if p.ID == payerID {
			split.Net[p.ID] = amount - owed
		} else {
			split.Net[p.ID] = -owed
		}
	}

	return split, nil
}

// Shares returns a copy of participants with shares derived from mode.
// It rejects fewer than two participants, duplicate IDs and negative shares.
func Shares(mode models.SplitMode, participants []models.Participant) ([]models.Participant, error) {
	if len(participants) < 2 {
		return nil, models.Invalid("participants", models.ErrInsufficientParticipants)
	}

	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if p.ID == "" {
			return nil, models.Invalid("participants", models.ErrUnknownUser)
		}
		if seen[p.ID] {
			return nil, models.Invalid("participants", fmt.Errorf("%w: %s", models.ErrDuplicateParticipant, p.ID))
		}
		seen[p.ID] = true
	}

	switch mode {
	case models.SplitEqual, "":
		return EqualShares(participants), nil
	case models.SplitCustom:
		return NormalizeShares(participants)
	default:
		return nil, models.Invalid("splitMode", fmt.Errorf("%w: %q", models.ErrInvalidSplitMode, mode))
	}
}

// EqualShares gives each participant 100/n percent.
func EqualShares(participants []models.Participant) []models.Participant {
	out := make([]models.Participant, len(participants))
	if len(participants) == 0 {
		return out
	}
	share := 100 / float64(len(participants))
	for i, p := range participants {
		p.Share = share
		out[i] = p
	}
	return out
}

// NormalizeShares scales non-negative raw shares so they sum to exactly 100.
func NormalizeShares(participants []models.Participant) ([]models.Participant, error) {
	var largest float64
	for _, p := range participants {
		if math.IsNaN(p.Share) || math.IsInf(p.Share, 0) || p.Share < 0 {
			return nil, models.Invalid("share", fmt.Errorf("%w: %s", models.ErrNegativeShare, p.ID))
		}
		largest = math.Max(largest, p.Share)
	}
	if largest == 0 {
		return nil, models.Invalid("share", models.ErrDegenerateSplit)
	}

	// Scaling by the largest share keeps the sum finite for any finite input.
	var total float64
	for _, p := range participants {
		total += p.Share / largest
	}

	out := make([]models.Participant, len(participants))
	for i, p := range participants {
		p.Share = p.Share / largest / total * 100
		out[i] = p
	}
	return out, nil
}

// Owed is the monetary amount attributed to a share of amount.
func Owed(amount, share float64) float64 {
	return amount * share / 100
}

// SumShares adds up the shares of participants.
func SumShares(participants []models.Participant) float64 {
	var total float64
	for _, p := range participants {
		total += p.Share
	}
	return total
}

// SharesBalanced reports whether the shares sum to 100 within ShareTolerance.
func SharesBalanced(participants []models.Participant) bool {
	return math.Abs(SumShares(participants)-100) <= ShareTolerance
}

// NetPosition is userID's signed position for a stored expense.
// It is zero when the user neither paid nor participates.
func NetPosition(e *models.Expense, userID string) float64 {
	var owed float64
	if p, ok := e.Participant(userID); ok {
		owed = Owed(e.Amount, p.Share)
	}
	if e.PaidBy == userID {
		return e.Amount - owed
	}
	return -owed
}

// UserShare is the amount of a stored expense attributed to userID.
func UserShare(e *models.Expense, userID string) float64 {
	p, ok := e.Participant(userID)
	if !ok {
		return 0
	}
	return Owed(e.Amount, p.Share)
}

func findParticipant(participants []models.Participant, id string) (models.Participant, bool) {
	for _, p := range participants {
		if p.ID == id {
			return p, true
		}
	}
	return models.Participant{}, false
}
