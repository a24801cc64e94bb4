package storage

const querySchemaLock = `SELECT pg_advisory_xact_lock(72140531)`

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT UNIQUE,
		email_verified BOOLEAN NOT NULL DEFAULT false,
		password_hash TEXT,
		tier TEXT NOT NULL DEFAULT 'free' CHECK (tier IN ('free', 'premium')),
		subscription_expires_at TIMESTAMPTZ,
		default_model_key TEXT NOT NULL DEFAULT 'fast',
		is_admin BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS user_accounts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		provider TEXT NOT NULL,
		provider_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (provider, provider_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_user_accounts_user ON user_accounts (user_id, provider)`,

	`CREATE TABLE IF NOT EXISTS chats (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		model_key TEXT NOT NULL,
		title VARCHAR(28),
		is_active BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_interaction_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// at most one active chat per user
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_chats_one_active ON chats (user_id) WHERE is_active`,

	`CREATE INDEX IF NOT EXISTS idx_chats_user_last_interaction ON chats (user_id, last_interaction_at DESC)`,

	`CREATE TABLE IF NOT EXISTS messages (
		id BIGSERIAL PRIMARY KEY,
		chat_id BIGINT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
		role TEXT NOT NULL CHECK (role IN ('user', 'bot')),
		content TEXT NOT NULL,
		prompt_tokens INTEGER,
		completion_tokens INTEGER,
		total_tokens INTEGER,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_messages_chat_created ON messages (chat_id, created_at, id)`,

	`CREATE TABLE IF NOT EXISTS usage_counters (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		usage_date DATE NOT NULL,
		model_key TEXT NOT NULL,
		count BIGINT NOT NULL DEFAULT 0,
		UNIQUE (user_id, usage_date, model_key)
	)`,

	`CREATE TABLE IF NOT EXISTS guest_sessions (
		id BIGSERIAL PRIMARY KEY,
		session_token TEXT NOT NULL UNIQUE,
		identity TEXT UNIQUE,
		request_count BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_request_at TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS confirmation_codes (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL,
		code TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		confirmed BOOLEAN NOT NULL DEFAULT false,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_confirmation_codes_email ON confirmation_codes (email, created_at DESC)`,
}
