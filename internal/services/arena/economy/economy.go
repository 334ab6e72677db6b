// Package economy settles prize pools when a session finishes. Settlement
// is a pure computation over the definition's economy block; persistence
// and idempotency live in the storage layer.
package economy

import (
	"fmt"
	"time"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
	"github.com/louisbranch/arena/internal/services/arena/domain/definition"
)

// Distribution labels accepted in a definition's economy block.
const (
	DistributionEvenSplit = "even_split"
	DistributionRanked    = "ranked"
)

// Payout is one participant's share of a settled pool.
type Payout struct {
	ParticipantID string
	UserID        string
	Amount        int64
	Reason        string // "win", "rank", or "refund"
}

// Settlement records how a session's prize pool was distributed.
type Settlement struct {
	SessionID string
	Payouts   []Payout
	CreatedAt time.Time
}

// Stake identifies a participant and the entry fee they paid.
type Stake struct {
	ParticipantID string
	UserID        string
	EntryFee      int64
}

// Settle divides the prize pool among the winning participants. With no
// winners every stake is refunded in full. Even split gives each winner an
// equal share with the remainder going to the first winner; ranked applies
// the definition's percentage table in winner order. Integer division means
// a few units can be left over, and those always land on the first payout
// so the pool is fully disbursed.
func Settle(def definition.Definition, sessionID string, prizePool int64, winners []string, stakes []Stake, now func() time.Time) (Settlement, error) {
	if now == nil {
		now = time.Now
	}

	settlement := Settlement{SessionID: sessionID, CreatedAt: now().UTC()}
	if prizePool <= 0 {
		return settlement, nil
	}

	winning := stakesFor(stakes, winners)
	if len(winning) == 0 {
		for _, stake := range stakes {
			if stake.EntryFee <= 0 {
				continue
			}
			settlement.Payouts = append(settlement.Payouts, Payout{
				ParticipantID: stake.ParticipantID,
				UserID:        stake.UserID,
				Amount:        stake.EntryFee,
				Reason:        "refund",
			})
		}
		return settlement, nil
	}

	switch def.Economy.Distribution {
	case DistributionRanked:
		payouts, err := rankedPayouts(def.Economy.RankedSplit, prizePool, winning)
		if err != nil {
			return Settlement{}, err
		}
		settlement.Payouts = payouts
	case DistributionEvenSplit, "":
		settlement.Payouts = evenPayouts(prizePool, winning)
	default:
		return Settlement{}, apperrors.WithMetadata(apperrors.CodeSettlementBadRankTable, "unknown distribution", map[string]string{"Distribution": def.Economy.Distribution})
	}
	return settlement, nil
}

func evenPayouts(pool int64, winning []Stake) []Payout {
	share := pool / int64(len(winning))
	remainder := pool - share*int64(len(winning))

	payouts := make([]Payout, 0, len(winning))
	for i, stake := range winning {
		amount := share
		if i == 0 {
			amount += remainder
		}
		payouts = append(payouts, Payout{
			ParticipantID: stake.ParticipantID,
			UserID:        stake.UserID,
			Amount:        amount,
			Reason:        "win",
		})
	}
	return payouts
}

func rankedPayouts(split []int, pool int64, winning []Stake) ([]Payout, error) {
	if len(split) == 0 {
		return nil, apperrors.New(apperrors.CodeSettlementBadRankTable, "ranked distribution requires a split table")
	}
	total := 0
	for _, pct := range split {
		if pct < 0 {
			return nil, apperrors.WithMetadata(apperrors.CodeSettlementBadRankTable, "negative rank percentage", map[string]string{"Percent": fmt.Sprint(pct)})
		}
		total += pct
	}
	if total != 100 {
		return nil, apperrors.WithMetadata(apperrors.CodeSettlementBadRankTable, "rank percentages must sum to 100", map[string]string{"Total": fmt.Sprint(total)})
	}

	payouts := make([]Payout, 0, len(winning))
	var disbursed int64
	for i, stake := range winning {
		if i >= len(split) {
			break
		}
		amount := pool * int64(split[i]) / 100
		disbursed += amount
		payouts = append(payouts, Payout{
			ParticipantID: stake.ParticipantID,
			UserID:        stake.UserID,
			Amount:        amount,
			Reason:        "rank",
		})
	}
	if len(payouts) > 0 && disbursed < pool && len(winning) >= len(split) {
		payouts[0].Amount += pool - disbursed
	}
	return payouts, nil
}

func stakesFor(stakes []Stake, winners []string) []Stake {
	byID := make(map[string]bool, len(winners))
	for _, id := range winners {
		byID[id] = true
	}
	var selected []Stake
	for _, stake := range stakes {
		if byID[stake.ParticipantID] {
			selected = append(selected, stake)
		}
	}
	return selected
}
