package repo

// Schema creates the ledger tables.
const Schema = `
CREATE TABLE IF NOT EXISTS public.users (
    id           TEXT PRIMARY KEY,
    balance      DOUBLE PRECISION NOT NULL DEFAULT 1000,
    last_daily   TIMESTAMPTZ,
    last_message TIMESTAMPTZ,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS public.holdings (
    user_id  TEXT NOT NULL REFERENCES public.users (id),
    symbol   TEXT NOT NULL,
    quantity NUMERIC NOT NULL,
    PRIMARY KEY (user_id, symbol)
);

CREATE TABLE IF NOT EXISTS public.transactions (
    id       TEXT PRIMARY KEY,
    user_id  TEXT NOT NULL REFERENCES public.users (id),
    symbol   TEXT NOT NULL,
    quantity NUMERIC NOT NULL,
    price    DOUBLE PRECISION NOT NULL,
    ts       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS transactions_user_ts_idx ON public.transactions (user_id, ts DESC);`
