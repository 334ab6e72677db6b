package economy

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
	"github.com/louisbranch/arena/internal/services/arena/domain/definition"
)

var fixedNow = func() time.Time {
	return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
}

func stakes() []Stake {
	return []Stake{
		{ParticipantID: "p1", UserID: "u1", EntryFee: 100},
		{ParticipantID: "p2", UserID: "u2", EntryFee: 100},
		{ParticipantID: "p3", UserID: "u3", EntryFee: 100},
	}
}

func TestSettleEvenSplit(t *testing.T) {
	def := definition.Definition{Economy: definition.Economy{Distribution: DistributionEvenSplit}}

	settlement, err := Settle(def, "sess-1", 300, []string{"p1", "p3"}, stakes(), fixedNow)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if len(settlement.Payouts) != 2 {
		t.Fatalf("payouts = %+v", settlement.Payouts)
	}
	if settlement.Payouts[0].Amount != 150 || settlement.Payouts[1].Amount != 150 {
		t.Fatalf("payouts = %+v", settlement.Payouts)
	}
	if settlement.Payouts[0].Reason != "win" {
		t.Fatalf("reason = %q", settlement.Payouts[0].Reason)
	}
}

func TestSettleEvenSplitRemainderGoesFirst(t *testing.T) {
	def := definition.Definition{}

	settlement, err := Settle(def, "sess-1", 100, []string{"p1", "p2", "p3"}, stakes(), fixedNow)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	var total int64
	for _, payout := range settlement.Payouts {
		total += payout.Amount
	}
	if total != 100 {
		t.Fatalf("disbursed = %d, want the full pool", total)
	}
	if settlement.Payouts[0].Amount != 34 {
		t.Fatalf("first payout = %d, want 34", settlement.Payouts[0].Amount)
	}
}

func TestSettleRanked(t *testing.T) {
	def := definition.Definition{Economy: definition.Economy{
		Distribution: DistributionRanked,
		RankedSplit:  []int{70, 30},
	}}

	settlement, err := Settle(def, "sess-1", 200, []string{"p1", "p2"}, stakes(), fixedNow)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settlement.Payouts[0].Amount != 140 || settlement.Payouts[1].Amount != 60 {
		t.Fatalf("payouts = %+v", settlement.Payouts)
	}
}

func TestSettleRankedBadTable(t *testing.T) {
	def := definition.Definition{Economy: definition.Economy{
		Distribution: DistributionRanked,
		RankedSplit:  []int{70, 20},
	}}

	_, err := Settle(def, "sess-1", 200, []string{"p1"}, stakes(), fixedNow)
	if !errors.Is(err, apperrors.New(apperrors.CodeSettlementBadRankTable, "")) {
		t.Fatalf("err = %v, want bad rank table", err)
	}
}

func TestSettleNoWinnerRefundsStakes(t *testing.T) {
	settlement, err := Settle(definition.Definition{}, "sess-1", 300, nil, stakes(), fixedNow)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if len(settlement.Payouts) != 3 {
		t.Fatalf("payouts = %+v", settlement.Payouts)
	}
	for _, payout := range settlement.Payouts {
		if payout.Amount != 100 || payout.Reason != "refund" {
			t.Fatalf("payout = %+v", payout)
		}
	}
}

func TestSettleEmptyPool(t *testing.T) {
	settlement, err := Settle(definition.Definition{}, "sess-1", 0, []string{"p1"}, stakes(), fixedNow)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if len(settlement.Payouts) != 0 {
		t.Fatalf("payouts = %+v", settlement.Payouts)
	}
}
