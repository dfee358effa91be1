// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package types

type AdvanceResponse struct {
	StartedMs  int64             `json:"startedMs"`
	DurationMs int64             `json:"durationMs"`
	Persisted  bool              `json:"persisted"`
	Updates    []PriceUpdate     `json:"updates"`
	Failures   map[string]string `json:"failures,omitempty"`
}

type CancelEventRequest struct {
	ID string `path:"id"`
}

type CancelEventResponse struct {
	ID        string `json:"id"`
	Cancelled bool   `json:"cancelled"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type EventSpec struct {
	Name       string  `json:"name"`
	Volatility float64 `json:"volatility"`
	Drift      float64 `json:"drift"`
	DurationMs int64   `json:"durationMs"`
	Share      float64 `json:"share"`
}

type EventView struct {
	ID                  string   `json:"id"`
	EventName           string   `json:"eventName"`
	AffectedInstruments []string `json:"affectedInstruments"`
	StartsAt            int64    `json:"startsAt"`
	EndsAt              int64    `json:"endsAt"`
}

type EventsResponse struct {
	Active  []EventView `json:"active"`
	Catalog []EventSpec `json:"catalog"`
}

type HistoryRequest struct {
	UserID string `path:"id"`
	Limit  int    `form:"limit,default=20"`
}

type HistoryResponse struct {
	UserID       string            `json:"userId"`
	Transactions []TransactionView `json:"transactions"`
}

type InstrumentView struct {
	Symbol     string   `json:"symbol"`
	Price      float64  `json:"price"`
	Ceiling    float64  `json:"ceiling"`
	Ratio      float64  `json:"ratio"`
	Zone       string   `json:"zone"`
	Volatility string   `json:"volatility"`
	LastChange float64  `json:"lastChange"`
	LastUpdate int64    `json:"lastUpdate"`
	Event      string   `json:"event,omitempty"`
	Terms      []string `json:"terms,omitempty"`
}

type LeaderboardEntry struct {
	Rank           int            `json:"rank"`
	UserID         string         `json:"userId"`
	Balance        float64        `json:"balance"`
	PortfolioValue float64        `json:"portfolioValue"`
	TotalValue     float64        `json:"totalValue"`
	Profit         float64        `json:"profit"`
	ProfitPct      float64        `json:"profitPct"`
	LastDaily      int64          `json:"lastDaily,omitempty"`
	LastMessage    int64          `json:"lastMessage,omitempty"`
	Holdings       []PositionView `json:"holdings,omitempty"`
}

type LeaderboardRequest struct {
	Limit    int  `form:"limit,optional"`
	Holdings bool `form:"holdings,optional"`
}

type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}

type MarketResponse struct {
	Instruments    []InstrumentView `json:"instruments"`
	SchedulerState string           `json:"schedulerState"`
	Ticks          int64            `json:"ticks"`
	IntervalMs     int64            `json:"intervalMs"`
}

type MoversRequest struct {
	N int `form:"n,default=5"`
}

type MoversResponse struct {
	Gainers []InstrumentView `json:"gainers"`
	Losers  []InstrumentView `json:"losers"`
}

type PositionView struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Value    float64 `json:"value"`
}

type PriceUpdate struct {
	Symbol     string  `json:"symbol"`
	OldPrice   float64 `json:"oldPrice"`
	NewPrice   float64 `json:"newPrice"`
	ChangePct  float64 `json:"changePct"`
	Zone       string  `json:"zone"`
	TrendScore float64 `json:"trendScore"`
	Event      string  `json:"event,omitempty"`
}

type PricesResponse struct {
	Prices map[string]float64 `json:"prices"`
	Source string             `json:"source"`
}

type SourceOutcome struct {
	Kind      string  `json:"kind"`
	Value     float64 `json:"value"`
	Weight    float64 `json:"weight"`
	Weighted  float64 `json:"weighted"`
	Fallback  bool    `json:"fallback"`
	Reason    string  `json:"reason,omitempty"`
	ElapsedMs int64   `json:"elapsedMs"`
}

type TransactionView struct {
	ID        string  `json:"id"`
	Symbol    string  `json:"symbol"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

type TrendRequest struct {
	Symbol string `path:"symbol"`
}

type TrendResponse struct {
	Symbol    string          `json:"symbol"`
	Value     float64         `json:"value"`
	Timestamp int64           `json:"timestamp"`
	Outcomes  []SourceOutcome `json:"outcomes"`
}

type TriggerEventRequest struct {
	Type       string `json:"type"`
	DurationMs int64  `json:"durationMs,optional"`
}

type ZoneView struct {
	Name                 string  `json:"name"`
	MinRatio             float64 `json:"minRatio"`
	VolatilityMultiplier float64 `json:"volatilityMultiplier"`
	UpwardBias           float64 `json:"upwardBias"`
}

type ZonesResponse struct {
	Zones []ZoneView `json:"zones"`
}
