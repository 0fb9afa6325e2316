package platform

import (
	"github.com/shopspring/decimal"

	"github.com/hermes/platform/internal/address"
	"github.com/hermes/platform/internal/metrics"
	"github.com/hermes/platform/internal/model"
	"github.com/hermes/platform/internal/pricing"
	"github.com/hermes/platform/internal/registry"
)

// Reward is one referral payout.
type Reward struct {
	Level    int             `json:"level"`
	Referrer string          `json:"referrer"`
	Amount   decimal.Decimal `json:"amount"`
}

// payout is the split of a value between referrers and the rest.
type payout struct {
	rewards []Reward
	paid    decimal.Decimal // sent to referrers
	unpaid  decimal.Decimal // shares with no referrer at that level
}

// payReferrers pays subject's referral chain its shares of value. Shares
// whose level has no referrer are returned as unpaid.
func (tx *txn) payReferrers(kind, subject string, value decimal.Decimal, bps [registry.ChainDepth]int64, orderID *uint64) (payout, error) {
	out := payout{paid: decimal.Zero, unpaid: decimal.Zero}
	refs := tx.st.accounts.Referrers(subject)

	for i, ref := range refs {
		share := pricing.Share(value, bps[i])
		if address.IsZero(ref) {
			out.unpaid = out.unpaid.Add(share)
			continue
		}
		if !share.IsPositive() {
			continue
		}
		if err := tx.pay(ref, share); err != nil {
			return payout{}, err
		}
		out.paid = out.paid.Add(share)
		out.rewards = append(out.rewards, Reward{Level: i + 1, Referrer: ref, Amount: share})
		tx.record(model.Entry{
			Kind:         model.EntryReward,
			Account:      ref,
			Counterparty: subject,
			OrderID:      orderID,
			Value:        share,
		})
		metrics.RewardsPaid.WithLabelValues(kind, level(i)).Inc()
	}
	return out, nil
}
