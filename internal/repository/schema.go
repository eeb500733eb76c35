package repository

// SchemaStatements holds the idempotent DDL for the prepared layer. Raw
// tables (cdr_data.*, forex_data.*, crm_system.*) belong to the producers
// and are never created here.
var SchemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS prepared_layers`,

	`CREATE TABLE IF NOT EXISTS prepared_layers.forex_ohlc_m1 (
		id SERIAL PRIMARY KEY,
		datetime TIMESTAMP NOT NULL,
		pair_name VARCHAR(20) NOT NULL,
		open_price DECIMAL(10, 4) NOT NULL,
		high_price DECIMAL(10, 4) NOT NULL,
		low_price DECIMAL(10, 4) NOT NULL,
		close_price DECIMAL(10, 4) NOT NULL,
		ema_8 DECIMAL(10, 4),
		ema_21 DECIMAL(10, 4),
		atr_8 DECIMAL(10, 4),
		atr_21 DECIMAL(10, 4),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(datetime, pair_name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_forex_m1_datetime ON prepared_layers.forex_ohlc_m1(datetime)`,
	`CREATE INDEX IF NOT EXISTS idx_forex_m1_pair ON prepared_layers.forex_ohlc_m1(pair_name)`,

	`CREATE TABLE IF NOT EXISTS prepared_layers.forex_ohlc_m30 (
		id SERIAL PRIMARY KEY,
		datetime TIMESTAMP NOT NULL,
		pair_name VARCHAR(20) NOT NULL,
		open_price DECIMAL(10, 4) NOT NULL,
		high_price DECIMAL(10, 4) NOT NULL,
		low_price DECIMAL(10, 4) NOT NULL,
		close_price DECIMAL(10, 4) NOT NULL,
		ema_8 DECIMAL(10, 4),
		ema_21 DECIMAL(10, 4),
		atr_8 DECIMAL(10, 4),
		atr_21 DECIMAL(10, 4),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(datetime, pair_name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_forex_m30_datetime ON prepared_layers.forex_ohlc_m30(datetime)`,
	`CREATE INDEX IF NOT EXISTS idx_forex_m30_pair ON prepared_layers.forex_ohlc_m30(pair_name)`,

	`CREATE TABLE IF NOT EXISTS prepared_layers.forex_ohlc_h1 (
		id SERIAL PRIMARY KEY,
		datetime TIMESTAMP NOT NULL,
		pair_name VARCHAR(20) NOT NULL,
		open_price DECIMAL(10, 4) NOT NULL,
		high_price DECIMAL(10, 4) NOT NULL,
		low_price DECIMAL(10, 4) NOT NULL,
		close_price DECIMAL(10, 4) NOT NULL,
		ema_8 DECIMAL(10, 4),
		ema_21 DECIMAL(10, 4),
		atr_8 DECIMAL(10, 4),
		atr_21 DECIMAL(10, 4),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(datetime, pair_name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_forex_h1_datetime ON prepared_layers.forex_ohlc_h1(datetime)`,
	`CREATE INDEX IF NOT EXISTS idx_forex_h1_pair ON prepared_layers.forex_ohlc_h1(pair_name)`,

	`CREATE TABLE IF NOT EXISTS prepared_layers.cdr_usage_summary_15min (
		id SERIAL PRIMARY KEY,
		datetime TIMESTAMP NOT NULL,
		msisdn VARCHAR(20) NOT NULL,
		call_cost_zar DECIMAL(15, 4) DEFAULT 0,
		data_cost_zar DECIMAL(15, 4) DEFAULT 0,
		total_cost_zar DECIMAL(15, 4) DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(datetime, msisdn)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cdr_summary_15min_datetime ON prepared_layers.cdr_usage_summary_15min(datetime)`,
	`CREATE INDEX IF NOT EXISTS idx_cdr_summary_15min_msisdn ON prepared_layers.cdr_usage_summary_15min(msisdn)`,

	`CREATE TABLE IF NOT EXISTS prepared_layers.cdr_usage_summary_30min (
		id SERIAL PRIMARY KEY,
		datetime TIMESTAMP NOT NULL,
		msisdn VARCHAR(20) NOT NULL,
		call_cost_zar DECIMAL(15, 4) DEFAULT 0,
		data_cost_zar DECIMAL(15, 4) DEFAULT 0,
		total_cost_zar DECIMAL(15, 4) DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(datetime, msisdn)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cdr_summary_30min_datetime ON prepared_layers.cdr_usage_summary_30min(datetime)`,
	`CREATE INDEX IF NOT EXISTS idx_cdr_summary_30min_msisdn ON prepared_layers.cdr_usage_summary_30min(msisdn)`,

	`CREATE TABLE IF NOT EXISTS prepared_layers.cdr_usage_summary_1hr (
		id SERIAL PRIMARY KEY,
		datetime TIMESTAMP NOT NULL,
		msisdn VARCHAR(20) NOT NULL,
		call_cost_zar DECIMAL(15, 4) DEFAULT 0,
		data_cost_zar DECIMAL(15, 4) DEFAULT 0,
		total_cost_zar DECIMAL(15, 4) DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(datetime, msisdn)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cdr_summary_1hr_datetime ON prepared_layers.cdr_usage_summary_1hr(datetime)`,
	`CREATE INDEX IF NOT EXISTS idx_cdr_summary_1hr_msisdn ON prepared_layers.cdr_usage_summary_1hr(msisdn)`,

	`CREATE TABLE IF NOT EXISTS prepared_layers.cdr_tower_sessions (
		id SERIAL PRIMARY KEY,
		msisdn VARCHAR(20) NOT NULL,
		tower_id INTEGER NOT NULL,
		session_start TIMESTAMP NOT NULL,
		session_end TIMESTAMP NOT NULL,
		interaction_count INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(msisdn, tower_id, session_start)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tower_sessions_msisdn ON prepared_layers.cdr_tower_sessions(msisdn)`,
	`CREATE INDEX IF NOT EXISTS idx_tower_sessions_tower_id ON prepared_layers.cdr_tower_sessions(tower_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tower_sessions_start ON prepared_layers.cdr_tower_sessions(session_start)`,

	`CREATE TABLE IF NOT EXISTS prepared_layers.crm_user_balance_hourly (
		id SERIAL PRIMARY KEY,
		datetime TIMESTAMP NOT NULL,
		account_id INTEGER NOT NULL,
		owner_name VARCHAR(100),
		email VARCHAR(100),
		phone_number VARCHAR(100),
		street_address VARCHAR(100),
		city VARCHAR(100),
		state VARCHAR(100),
		postal_code VARCHAR(100),
		country VARCHAR(100),
		device_id INTEGER,
		device_name VARCHAR(100),
		device_type VARCHAR(100),
		device_os VARCHAR(100),
		call_cost_zar DECIMAL(15, 4) DEFAULT 0,
		data_cost_zar DECIMAL(15, 4) DEFAULT 0,
		total_cost_zar DECIMAL(15, 4) DEFAULT 0,
		avg_secondary_rate_1 DECIMAL(10, 4),
		avg_secondary_rate_2 DECIMAL(10, 4),
		call_cost_secondary DECIMAL(15, 4) DEFAULT 0,
		data_cost_secondary DECIMAL(15, 4) DEFAULT 0,
		total_cost_secondary DECIMAL(15, 4) DEFAULT 0,
		accumulated_cost_secondary DECIMAL(15, 4) DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(datetime, account_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_crm_balance_datetime ON prepared_layers.crm_user_balance_hourly(datetime)`,
	`CREATE INDEX IF NOT EXISTS idx_crm_balance_account ON prepared_layers.crm_user_balance_hourly(account_id)`,

	`CREATE TABLE IF NOT EXISTS prepared_layers.processing_state (
		id SERIAL PRIMARY KEY,
		layer_name VARCHAR(100) UNIQUE NOT NULL,
		last_processed_datetime TIMESTAMP,
		last_run_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
}
