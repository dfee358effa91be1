package marketpersist

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"

	cachekeys "stonks-api/internal/cache"
	"stonks-api/pkg/market"
	"stonks-api/pkg/scheduler"
)

// Quote is the cached latest price of one symbol.
type Quote struct {
	Symbol      string  `json:"symbol"`
	Price       float64 `json:"price"`
	ChangePct   float64 `json:"change_pct"`
	Zone        string  `json:"zone"`
	TimestampMS int64   `json:"ts"`
}

// PriceCache mirrors each tick's prices into the shared cache so readers do
// not hit the instrument store.
type PriceCache struct {
	cache gocache.Cache
	ttl   cachekeys.TTLSet
}

// NewPriceCache wires a price cache observer. Returns nil when the cache is missing.
func NewPriceCache(c gocache.Cache, ttl cachekeys.TTLSet) *PriceCache {
	if c == nil {
		return nil
	}
	return &PriceCache{cache: c, ttl: ttl}
}

// OnTick implements scheduler.Observer.
func (p *PriceCache) OnTick(ctx context.Context, report scheduler.Report) error {
	if p == nil || len(report.Updates) == 0 {
		return nil
	}
	for _, upd := range report.Updates {
		p.cachePrice(ctx, upd)
	}
	return p.updatePrices(ctx, report.Instruments)
}

// Latest returns the cached quote for symbol.
func (p *PriceCache) Latest(ctx context.Context, symbol string) (Quote, bool, error) {
	var q Quote
	if p == nil {
		return q, false, nil
	}
	if err := p.cache.GetCtx(ctx, cachekeys.PriceLatestKey(symbol), &q); err != nil {
		if p.cache.IsNotFound(err) {
			return Quote{}, false, nil
		}
		return Quote{}, false, err
	}
	return q, true, nil
}

// Prices returns the bundled symbol → price map, empty when nothing is cached.
func (p *PriceCache) Prices(ctx context.Context) (map[string]float64, error) {
	payload := make(map[string]float64)
	if p == nil {
		return payload, nil
	}
	if err := p.cache.GetCtx(ctx, cachekeys.PricesKey(), &payload); err != nil && !p.cache.IsNotFound(err) {
		return nil, err
	}
	return payload, nil
}

func (p *PriceCache) cachePrice(ctx context.Context, upd market.Update) {
	ttl := cachekeys.PriceTTL(p.ttl)
	if ttl <= 0 {
		return
	}
	at := upd.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	key := cachekeys.PriceLatestKey(upd.Symbol)
	q := Quote{
		Symbol:      upd.Symbol,
		Price:       upd.NewPrice,
		ChangePct:   upd.ChangePct,
		Zone:        string(upd.Zone),
		TimestampMS: at.UnixMilli(),
	}
	if err := p.cache.SetWithExpireCtx(ctx, key, q, ttl); err != nil {
		logx.WithContext(ctx).Errorf("marketpersist: cache price key=%s err=%v", key, err)
	}
}

func (p *PriceCache) updatePrices(ctx context.Context, instruments []market.Instrument) error {
	ttl := cachekeys.PricesTTL(p.ttl)
	if ttl <= 0 || len(instruments) == 0 {
		return nil
	}
	payload, err := p.Prices(ctx)
	if err != nil {
		logx.WithContext(ctx).Errorf("marketpersist: load prices key=%s err=%v", cachekeys.PricesKey(), err)
		return err
	}
	for sym, px := range market.Prices(instruments) {
		payload[sym] = px
	}
	return p.cache.SetWithExpireCtx(ctx, cachekeys.PricesKey(), payload, ttl)
}
