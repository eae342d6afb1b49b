package calculator

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/mmynk/splitit/internal/models"
)

func TestCalculateSplit(t *testing.T) {
	tests := []struct {
		name         string
		amount       float64
		payer        string
		mode         models.SplitMode
		participants []models.Participant
		wantErr      error
		validateFunc func(t *testing.T, split *Split)
	}{
		{
			name:   "custom shares already summing to 100",
			amount: 100,
			payer:  "payer",
			mode:   models.SplitCustom,
			participants: []models.Participant{
				{ID: "payer", Name: "Payer", Share: 60},
				{ID: "other", Name: "Other", Share: 40},
			},
			validateFunc: func(t *testing.T, split *Split) {
				if math.Abs(split.Owed["other"]-40) > 1e-9 {
					t.Errorf("owed other = %v, want 40", split.Owed["other"])
				}
				if math.Abs(split.Net["payer"]-60) > 1e-9 {
					t.Errorf("net payer = %v, want 60", split.Net["payer"])
				}
				if math.Abs(split.Net["other"]+40) > 1e-9 {
					t.Errorf("net other = %v, want -40", split.Net["other"])
				}
			},
		},
		{
			name:   "equal split of 90 among three",
			amount: 90,
			payer:  "a",
			mode:   models.SplitEqual,
			participants: []models.Participant{
				{ID: "a"}, {ID: "b"}, {ID: "c"},
			},
			validateFunc: func(t *testing.T, split *Split) {
				var sumOwed float64
				for _, p := range split.Participants {
					if math.Abs(p.Share-100.0/3) > 1e-9 {
						t.Errorf("%s share = %v, want 33.333...", p.ID, p.Share)
					}
					owed := split.Owed[p.ID]
					if math.Abs(owed-30) > 1e-9 {
						t.Errorf("%s owed = %v, want 30", p.ID, owed)
					}
					sumOwed += owed
				}
				if math.Abs(sumOwed-90) > 1e-9 {
					t.Errorf("sum owed = %v, want 90", sumOwed)
				}
			},
		},
		{
			name:   "custom raw shares are normalized",
			amount: 50,
			payer:  "a",
			mode:   models.SplitCustom,
			participants: []models.Participant{
				{ID: "a", Share: 30}, {ID: "b", Share: 30},
			},
			validateFunc: func(t *testing.T, split *Split) {
				for _, p := range split.Participants {
					if math.Abs(p.Share-50) > 1e-9 {
						t.Errorf("%s share = %v, want 50", p.ID, p.Share)
					}
				}
				if math.Abs(split.Net["a"]-25) > 1e-9 {
					t.Errorf("net a = %v, want 25", split.Net["a"])
				}
			},
		},
		{
			name:   "equal mode ignores raw shares",
			amount: 10,
			payer:  "b",
			mode:   models.SplitEqual,
			participants: []models.Participant{
				{ID: "a", Share: 90}, {ID: "b", Share: 10},
			},
			validateFunc: func(t *testing.T, split *Split) {
				if math.Abs(split.Owed["a"]-5) > 1e-9 {
					t.Errorf("owed a = %v, want 5", split.Owed["a"])
				}
			},
		},
		{
			name:         "single participant is rejected",
			amount:       10,
			payer:        "a",
			mode:         models.SplitEqual,
			participants: []models.Participant{{ID: "a", Share: 100}},
			wantErr:      models.ErrInsufficientParticipants,
		},
		{
			name:    "zero-sum custom split is degenerate",
			amount:  10,
			payer:   "a",
			mode:    models.SplitCustom,
			wantErr: models.ErrDegenerateSplit,
			participants: []models.Participant{
				{ID: "a", Share: 0}, {ID: "b", Share: 0},
			},
		},
		{
			name:    "negative share",
			amount:  10,
			payer:   "a",
			mode:    models.SplitCustom,
			wantErr: models.ErrNegativeShare,
			participants: []models.Participant{
				{ID: "a", Share: 120}, {ID: "b", Share: -20},
			},
		},
		{
			name:    "non-positive amount",
			amount:  0,
			payer:   "a",
			mode:    models.SplitEqual,
			wantErr: models.ErrNonPositiveAmount,
			participants: []models.Participant{
				{ID: "a"}, {ID: "b"},
			},
		},
		{
			name:    "payer outside participants",
			amount:  10,
			payer:   "z",
			mode:    models.SplitEqual,
			wantErr: models.ErrPayerNotParticipant,
			participants: []models.Participant{
				{ID: "a"}, {ID: "b"},
			},
		},
		{
			name:    "duplicate participant",
			amount:  10,
			payer:   "a",
			mode:    models.SplitEqual,
			wantErr: models.ErrDuplicateParticipant,
			participants: []models.Participant{
				{ID: "a"}, {ID: "a"},
			},
		},
		{
			name:    "unknown split mode",
			amount:  10,
			payer:   "a",
			mode:    models.SplitMode("weighted"),
			wantErr: models.ErrInvalidSplitMode,
			participants: []models.Participant{
				{ID: "a"}, {ID: "b"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			split, err := CalculateSplit(tt.amount, tt.payer, tt.mode, tt.participants)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CalculateSplit() error = %v, want %v", err, tt.wantErr)
				}
				var verr *models.ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("expected *models.ValidationError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CalculateSplit() unexpected error: %v", err)
			}
			tt.validateFunc(t, split)
		})
	}
}

func TestNormalizeSharesSumsTo100(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		n := 2 + rng.Intn(10)
		participants := make([]models.Participant, n)
		for j := range participants {
			participants[j] = models.Participant{ID: string(rune('a' + j)), Share: rng.Float64() * 1000}
		}
		// Always keep at least one positive share.
		participants[0].Share += 0.01

		normalized, err := NormalizeShares(participants)
		if err != nil {
			t.Fatalf("NormalizeShares: %v", err)
		}
		if sum := SumShares(normalized); math.Abs(sum-100) > 0.001 {
			t.Fatalf("iteration %d: sum = %v, want 100", i, sum)
		}
		if !SharesBalanced(normalized) {
			t.Fatalf("iteration %d: shares not balanced", i)
		}
	}
}

func TestNormalizeSharesExtremeMagnitudes(t *testing.T) {
	tests := []struct {
		name   string
		shares []float64
		want   []float64
	}{
		{"max float shares", []float64{math.MaxFloat64, math.MaxFloat64}, []float64{50, 50}},
		{"sum overflows", []float64{math.MaxFloat64, math.MaxFloat64 / 2, math.MaxFloat64 / 2}, []float64{50, 25, 25}},
		{"subnormal shares", []float64{math.SmallestNonzeroFloat64, math.SmallestNonzeroFloat64}, []float64{50, 50}},
		{"huge and zero", []float64{math.MaxFloat64, 0}, []float64{100, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			participants := make([]models.Participant, len(tt.shares))
			for i, share := range tt.shares {
				participants[i] = models.Participant{ID: string(rune('a' + i)), Share: share}
			}
			got, err := Shares(models.SplitCustom, participants)
			if err != nil {
				t.Fatalf("Shares() unexpected error: %v", err)
			}
			if sum := SumShares(got); math.Abs(sum-100) > 0.001 {
				t.Errorf("sum = %v, want 100", sum)
			}
			for i, p := range got {
				if math.Abs(p.Share-tt.want[i]) > 1e-9 {
					t.Errorf("share[%d] = %v, want %v", i, p.Share, tt.want[i])
				}
			}
		})
	}
}

func TestNormalizeSharesDoesNotMutateInput(t *testing.T) {
	in := []models.Participant{{ID: "a", Share: 1}, {ID: "b", Share: 3}}
	if _, err := NormalizeShares(in); err != nil {
		t.Fatal(err)
	}
	if in[0].Share != 1 || in[1].Share != 3 {
		t.Errorf("input mutated: %+v", in)
	}
}

func TestNetPosition(t *testing.T) {
	e := &models.Expense{
		Amount: 120,
		PaidBy: "alice",
		Participants: []models.Participant{
			{ID: "alice", Share: 50},
			{ID: "bob", Share: 25},
			{ID: "carol", Share: 25},
		},
	}

	tests := []struct {
		user string
		want float64
	}{
		{"alice", 60},
		{"bob", -30},
		{"carol", -30},
		{"dave", 0},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			if got := NetPosition(e, tt.user); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("NetPosition(%s) = %v, want %v", tt.user, got, tt.want)
			}
		})
	}

	if got := UserShare(e, "bob"); math.Abs(got-30) > 1e-9 {
		t.Errorf("UserShare(bob) = %v, want 30", got)
	}
}
