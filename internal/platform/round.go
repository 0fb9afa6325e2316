package platform

import (
	"context"
	"log/slog"

	"github.com/hermes/platform/internal/access"
	"github.com/hermes/platform/internal/model"
)

// AdvanceRound moves the platform to its next phase. Only CHAIR_PERSON
// holders may call it, and only once the active round is over.
func (p *Platform) AdvanceRound(ctx context.Context, caller string) (RoundInfo, error) {
	caller, err := parseAccount("caller", caller)
	if err != nil {
		return RoundInfo{}, err
	}

	var info RoundInfo
	err = p.run(ctx, "advance_round", func(tx *txn) error {
		if err := p.requireRole(ctx, access.RoleChairPerson, caller); err != nil {
			return err
		}
		if _, err := tx.st.rounds.Advance(tx.now); err != nil {
			return err
		}

		info = roundInfo(tx.st)
		tx.record(model.Entry{
			Kind:    model.EntryRound,
			Account: caller,
			Units:   info.SaleSupply,
			Price:   info.Price,
		})
		return nil
	})
	if err != nil {
		return RoundInfo{}, err
	}

	slog.Info("round advanced",
		"round", info.Round.Number,
		"phase", info.Round.Phase,
		"price", info.Price.String(),
		"sale_supply", info.SaleSupply.String(),
	)
	return info, nil
}
