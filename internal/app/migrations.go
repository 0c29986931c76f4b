package app

// SQL-миграции встроены в код для упрощения деплоя.
// Деньги хранятся целыми числами в минимальных единицах,
// все таймстемпы — UTC.

var migration001Catalog = `
CREATE TABLE IF NOT EXISTS products (
    id BIGSERIAL PRIMARY KEY,
    title VARCHAR(512) NOT NULL,
    author_id BIGINT NOT NULL,
    cp_yn CHAR(1) NOT NULL DEFAULT 'N',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_products_author ON products(author_id);

CREATE TABLE IF NOT EXISTS episodes (
    id BIGSERIAL PRIMARY KEY,
    product_id BIGINT NOT NULL REFERENCES products(id),
    seq INTEGER NOT NULL,
    title VARCHAR(512) NOT NULL,
    price_type VARCHAR(16) NOT NULL DEFAULT 'paid',
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_episodes_product ON episodes(product_id, seq);

CREATE TABLE IF NOT EXISTS product_read_log (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    product_id BIGINT NOT NULL,
    episode_id BIGINT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, episode_id)
);
CREATE INDEX IF NOT EXISTS idx_read_log_product ON product_read_log(product_id, user_id);
`

var migration002Ledger = `
CREATE TABLE IF NOT EXISTS cashbook (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    balance BIGINT NOT NULL,
    reason VARCHAR(64) NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_cashbook_user ON cashbook(user_id);

CREATE TABLE IF NOT EXISTS cashbook_transaction (
    id BIGSERIAL PRIMARY KEY,
    from_user_id BIGINT,
    to_user_id BIGINT,
    amount BIGINT NOT NULL,
    sponsor_type VARCHAR(16) NOT NULL DEFAULT 'none',
    product_id BIGINT,
    description TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_cash_tx_from ON cashbook_transaction(from_user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_cash_tx_to ON cashbook_transaction(to_user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS sales_summary (
    id BIGSERIAL PRIMARY KEY,
    item_type VARCHAR(16) NOT NULL,
    item_name VARCHAR(512) NOT NULL,
    item_price BIGINT NOT NULL,
    quantity INTEGER NOT NULL DEFAULT 1,
    device_type VARCHAR(16) NOT NULL DEFAULT 'web',
    user_id BIGINT NOT NULL,
    product_id BIGINT NOT NULL,
    episode_id BIGINT,
    author_id BIGINT NOT NULL,
    pay_type VARCHAR(16) NOT NULL,
    ticket_kind VARCHAR(16),
    order_date TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_sales_order_date ON sales_summary(order_date);
CREATE INDEX IF NOT EXISTS idx_sales_product ON sales_summary(product_id, order_date);

CREATE TABLE IF NOT EXISTS sponsorship_records (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    author_id BIGINT NOT NULL,
    product_id BIGINT NOT NULL,
    amount BIGINT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_sponsorship_product ON sponsorship_records(product_id);

CREATE TABLE IF NOT EXISTS stat_logs (
    id BIGSERIAL PRIMARY KEY,
    kind VARCHAR(32) NOT NULL,
    user_id BIGINT NOT NULL,
    amount BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_stat_logs_kind ON stat_logs(kind, created_at DESC);
`

var migration003Wallet = `
CREATE TABLE IF NOT EXISTS productbook (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    profile_id BIGINT NOT NULL DEFAULT 0,
    product_id BIGINT,
    episode_id BIGINT,
    own_type VARCHAR(16) NOT NULL,
    ticket_type VARCHAR(16) NOT NULL,
    acquisition_type VARCHAR(32),
    acquisition_id BIGINT,
    promotion_type VARCHAR(32),
    use_yn CHAR(1) NOT NULL DEFAULT 'N',
    rental_expired_date TIMESTAMP,
    created_date TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_date TIMESTAMP NOT NULL DEFAULT NOW(),
    CHECK (NOT (product_id IS NULL AND episode_id IS NOT NULL))
);
CREATE INDEX IF NOT EXISTS idx_productbook_user ON productbook(user_id, use_yn);
CREATE INDEX IF NOT EXISTS idx_productbook_scope ON productbook(user_id, product_id, episode_id);
`

var migration004Giftbox = `
CREATE TABLE IF NOT EXISTS giftbook (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    profile_id BIGINT NOT NULL DEFAULT 0,
    product_id BIGINT,
    episode_id BIGINT,
    own_type VARCHAR(16) NOT NULL,
    ticket_type VARCHAR(16) NOT NULL,
    acquisition_type VARCHAR(32) NOT NULL,
    acquisition_id BIGINT,
    promotion_type VARCHAR(32),
    amount INTEGER NOT NULL DEFAULT 1,
    reason VARCHAR(256) NOT NULL DEFAULT '',
    received_yn CHAR(1) NOT NULL DEFAULT 'N',
    received_date TIMESTAMP,
    created_date TIMESTAMP NOT NULL DEFAULT NOW(),
    CHECK (NOT (product_id IS NULL AND episode_id IS NOT NULL))
);
CREATE INDEX IF NOT EXISTS idx_giftbook_user ON giftbook(user_id, received_yn, created_date DESC);

CREATE TABLE IF NOT EXISTS giftbook_log (
    id BIGSERIAL PRIMARY KEY,
    gift_id BIGINT NOT NULL REFERENCES giftbook(id),
    user_id BIGINT NOT NULL,
    action VARCHAR(16) NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_giftbook_log_user ON giftbook_log(user_id, created_at DESC);
`

var migration005Promotion = `
CREATE TABLE IF NOT EXISTS applied_promotion (
    id BIGSERIAL PRIMARY KEY,
    product_id BIGINT NOT NULL REFERENCES products(id),
    type VARCHAR(32) NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'apply',
    start_date TIMESTAMP NOT NULL,
    end_date TIMESTAMP,
    num_of_ticket_per_person INTEGER NOT NULL DEFAULT 1,
    status_changed_by BIGINT,
    status_changed_at TIMESTAMP,
    created_date TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_applied_promo_status ON applied_promotion(status, start_date);

CREATE TABLE IF NOT EXISTS direct_promotion (
    id BIGSERIAL PRIMARY KEY,
    product_id BIGINT NOT NULL REFERENCES products(id),
    type VARCHAR(32) NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'ing',
    num_of_ticket_per_person INTEGER NOT NULL DEFAULT 1,
    created_date TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_direct_promo_product ON direct_promotion(product_id, status);

CREATE TABLE IF NOT EXISTS direct_promotion_claim (
    id BIGSERIAL PRIMARY KEY,
    promotion_id BIGINT NOT NULL REFERENCES direct_promotion(id),
    user_id BIGINT NOT NULL,
    week_index INTEGER NOT NULL,
    created_date TIMESTAMP NOT NULL DEFAULT NOW(),
    UNIQUE (promotion_id, user_id, week_index)
);
`

var migration006Payment = `
CREATE TABLE IF NOT EXISTS store_order (
    id BIGSERIAL PRIMARY KEY,
    order_no VARCHAR(32) UNIQUE NOT NULL,
    user_id BIGINT NOT NULL,
    total_price BIGINT NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_store_order_user ON store_order(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS store_order_item (
    id BIGSERIAL PRIMARY KEY,
    order_id BIGINT NOT NULL REFERENCES store_order(id),
    item_name VARCHAR(512) NOT NULL,
    item_price BIGINT NOT NULL,
    quantity INTEGER NOT NULL DEFAULT 1,
    cancel_yn CHAR(1) NOT NULL DEFAULT 'N',
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS store_payment (
    id BIGSERIAL PRIMARY KEY,
    order_id BIGINT NOT NULL REFERENCES store_order(id),
    pg_payment_id VARCHAR(128) UNIQUE NOT NULL,
    pg_tx_id VARCHAR(128) NOT NULL DEFAULT '',
    method VARCHAR(32) NOT NULL DEFAULT '',
    amount BIGINT NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
`

var migration007Settlement = `
CREATE TABLE IF NOT EXISTS monthly_sales (
    id BIGSERIAL PRIMARY KEY,
    product_id BIGINT NOT NULL,
    author_id BIGINT NOT NULL,
    month VARCHAR(7) NOT NULL,
    web_sum_normal BIGINT NOT NULL DEFAULT 0,
    web_sum_ticket BIGINT NOT NULL DEFAULT 0,
    web_sum_refund BIGINT NOT NULL DEFAULT 0,
    web_fee BIGINT NOT NULL DEFAULT 0,
    web_rate BIGINT NOT NULL DEFAULT 70,
    ios_sum_normal BIGINT NOT NULL DEFAULT 0,
    ios_sum_ticket BIGINT NOT NULL DEFAULT 0,
    ios_sum_refund BIGINT NOT NULL DEFAULT 0,
    ios_fee BIGINT NOT NULL DEFAULT 0,
    ios_rate BIGINT NOT NULL DEFAULT 70,
    playstore_sum_normal BIGINT NOT NULL DEFAULT 0,
    playstore_sum_ticket BIGINT NOT NULL DEFAULT 0,
    playstore_sum_refund BIGINT NOT NULL DEFAULT 0,
    playstore_fee BIGINT NOT NULL DEFAULT 0,
    playstore_rate BIGINT NOT NULL DEFAULT 70,
    onestore_sum_normal BIGINT NOT NULL DEFAULT 0,
    onestore_sum_ticket BIGINT NOT NULL DEFAULT 0,
    onestore_sum_refund BIGINT NOT NULL DEFAULT 0,
    onestore_fee BIGINT NOT NULL DEFAULT 0,
    onestore_rate BIGINT NOT NULL DEFAULT 70,
    sum_comped_ticket BIGINT NOT NULL DEFAULT 0,
    sum_refund_comped BIGINT NOT NULL DEFAULT 0,
    fee_comped BIGINT NOT NULL DEFAULT 0,
    rate_comped BIGINT NOT NULL DEFAULT 70,
    tax_override BIGINT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
    UNIQUE (product_id, month)
);

CREATE TABLE IF NOT EXISTS income_records (
    id BIGSERIAL PRIMARY KEY,
    product_id BIGINT NOT NULL,
    month VARCHAR(7) NOT NULL,
    kind VARCHAR(32) NOT NULL,
    amount BIGINT NOT NULL,
    comment TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_income_product_month ON income_records(product_id, month);

CREATE TABLE IF NOT EXISTS sponsorship_summary (
    id BIGSERIAL PRIMARY KEY,
    product_id BIGINT UNIQUE NOT NULL,
    author_id BIGINT NOT NULL,
    gross_amount BIGINT NOT NULL DEFAULT 0,
    net_amount BIGINT NOT NULL DEFAULT 0,
    status VARCHAR(32) NOT NULL DEFAULT 'not_in_settlement',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS product_contract_offer (
    id BIGSERIAL PRIMARY KEY,
    product_id BIGINT NOT NULL,
    partner_id BIGINT NOT NULL,
    split_rate BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_contract_partner ON product_contract_offer(partner_id);
`
