package logic

import (
	"time"

	"stonks-api/internal/types"
	"stonks-api/pkg/market"
	"stonks-api/pkg/portfolio"
	"stonks-api/pkg/resistance"
	"stonks-api/pkg/trend"
)

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func instrumentView(inst market.Instrument, board *market.Board, now time.Time) types.InstrumentView {
	view := types.InstrumentView{
		Symbol:     inst.Symbol,
		Price:      inst.Price,
		Ceiling:    inst.Ceiling,
		Ratio:      resistance.Ratio(inst.Price, inst.Ceiling),
		Zone:       string(resistance.Classify(inst.Price, inst.Ceiling).Name),
		Volatility: string(inst.Volatility),
		LastChange: inst.LastChange,
		LastUpdate: unixMilli(inst.LastUpdate),
		Terms:      inst.Terms,
	}
	if board != nil {
		if ev, ok := board.For(inst.Symbol, now); ok {
			view.Event = ev.EventName
		}
	}
	return view
}

func instrumentViews(instruments []market.Instrument, board *market.Board, now time.Time) []types.InstrumentView {
	out := make([]types.InstrumentView, 0, len(instruments))
	for _, inst := range instruments {
		out = append(out, instrumentView(inst, board, now))
	}
	return out
}

func updateView(u market.Update) types.PriceUpdate {
	return types.PriceUpdate{
		Symbol:     u.Symbol,
		OldPrice:   u.OldPrice,
		NewPrice:   u.NewPrice,
		ChangePct:  u.ChangePct,
		Zone:       string(u.Zone),
		TrendScore: u.TrendScore,
		Event:      u.Event,
	}
}

func outcomeView(o trend.Outcome) types.SourceOutcome {
	return types.SourceOutcome{
		Kind:      string(o.Kind),
		Value:     o.Value,
		Weight:    o.Weight,
		Weighted:  o.Weighted(),
		Fallback:  o.Fallback,
		Reason:    o.Reason,
		ElapsedMs: o.Elapsed.Milliseconds(),
	}
}

func eventView(t market.Triggered) types.EventView {
	return types.EventView{
		ID:                  t.ID,
		EventName:           t.EventName,
		AffectedInstruments: t.AffectedInstruments,
		StartsAt:            unixMilli(t.StartsAt),
		EndsAt:              unixMilli(t.EndsAt),
	}
}

func entryView(e portfolio.Entry) types.LeaderboardEntry {
	view := types.LeaderboardEntry{
		Rank:           e.Rank,
		UserID:         e.UserID,
		Balance:        e.Balance,
		PortfolioValue: e.PortfolioValue,
		TotalValue:     e.TotalValue,
		Profit:         e.Profit,
		ProfitPct:      e.ProfitPct,
		LastDaily:      unixMilli(e.LastDaily),
		LastMessage:    unixMilli(e.LastMessage),
	}
	for _, p := range e.Holdings {
		view.Holdings = append(view.Holdings, types.PositionView{
			Symbol:   p.Symbol,
			Quantity: p.Quantity,
			Price:    p.Price,
			Value:    p.Value,
		})
	}
	return view
}
