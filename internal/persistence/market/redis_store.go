package marketpersist

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/redis"

	cachekeys "stonks-api/internal/cache"
	"stonks-api/pkg/market"
)

// RedisStore keeps instrument state in one Redis hash, a msgpack-encoded
// field per symbol. HMSET applies a batch atomically.
type RedisStore struct {
	rds *redis.Redis
	key string
}

// NewRedisStore returns nil when rds is nil.
func NewRedisStore(rds *redis.Redis) *RedisStore {
	if rds == nil {
		return nil
	}
	return &RedisStore{rds: rds, key: cachekeys.InstrumentsHashKey()}
}

type instrumentRecord struct {
	Symbol     string   `msgpack:"symbol"`
	Price      float64  `msgpack:"price"`
	Ceiling    float64  `msgpack:"ceiling"`
	Volatility string   `msgpack:"volatility"`
	LastChange float64  `msgpack:"last_change"`
	LastUpdate int64    `msgpack:"last_update_ms"`
	Terms      []string `msgpack:"terms,omitempty"`
}

// Load implements market.Store. Fields that fail to decode are logged and
// skipped.
func (s *RedisStore) Load(ctx context.Context) ([]market.Instrument, error) {
	fields, err := s.rds.HgetallCtx(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("marketpersist: hgetall %s: %w", s.key, err)
	}
	out := make([]market.Instrument, 0, len(fields))
	for symbol, raw := range fields {
		inst, err := decodeInstrument([]byte(raw))
		if err != nil {
			logx.WithContext(ctx).Errorf("marketpersist: skip %s in %s: %v", symbol, s.key, err)
			continue
		}
		out = append(out, inst)
	}
	market.SortBySymbol(out)
	return out, nil
}

// SaveBatch implements market.Store.
func (s *RedisStore) SaveBatch(ctx context.Context, batch []market.Instrument) error {
	if err := market.ValidateBatch(batch); err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}
	fields := make(map[string]string, len(batch))
	for _, inst := range batch {
		raw, err := encodeInstrument(inst)
		if err != nil {
			return fmt.Errorf("marketpersist: encode %s: %w", inst.Symbol, err)
		}
		fields[inst.Symbol] = string(raw)
	}
	if err := s.rds.HmsetCtx(ctx, s.key, fields); err != nil {
		return fmt.Errorf("marketpersist: hmset %s: %w", s.key, err)
	}
	return nil
}

func encodeInstrument(inst market.Instrument) ([]byte, error) {
	rec := instrumentRecord{
		Symbol:     inst.Symbol,
		Price:      inst.Price,
		Ceiling:    inst.Ceiling,
		Volatility: string(inst.Volatility),
		LastChange: inst.LastChange,
		Terms:      inst.Terms,
	}
	if !inst.LastUpdate.IsZero() {
		rec.LastUpdate = inst.LastUpdate.UnixMilli()
	}
	return msgpack.Marshal(&rec)
}

func decodeInstrument(raw []byte) (market.Instrument, error) {
	var rec instrumentRecord
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return market.Instrument{}, err
	}
	class, err := market.ParseVolatilityClass(rec.Volatility)
	if err != nil {
		return market.Instrument{}, err
	}
	inst := market.Instrument{
		Symbol:     rec.Symbol,
		Price:      rec.Price,
		Ceiling:    rec.Ceiling,
		Volatility: class,
		LastChange: rec.LastChange,
		Terms:      rec.Terms,
	}
	if rec.LastUpdate != 0 {
		inst.LastUpdate = time.UnixMilli(rec.LastUpdate).UTC()
	}
	return inst, nil
}
