package users

const userColumns = `u.id, u.email, u.email_verified, COALESCE(u.password_hash, ''), u.tier,
	u.subscription_expires_at, u.default_model_key, u.is_admin, u.created_at, u.updated_at`

const (
	queryFindByID = `
		SELECT ` + userColumns + `
		FROM users u
		WHERE u.id = $1
	`

	queryFindByEmail = `
		SELECT ` + userColumns + `
		FROM users u
		WHERE u.email = $1
	`

	queryFindByAccount = `
		SELECT ` + userColumns + `
		FROM user_accounts a
		JOIN users u ON u.id = a.user_id
		WHERE a.provider = $1 AND a.provider_id = $2
	`

	queryInsertUser = `
		INSERT INTO users AS u (email, email_verified)
		VALUES ($1, $2)
		RETURNING ` + userColumns

	queryInsertAccount = `
		INSERT INTO user_accounts (user_id, provider, provider_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider, provider_id) DO NOTHING
		RETURNING user_id
	`

	queryRegister = `
		INSERT INTO users AS u (email, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (email)
		DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			updated_at = NOW()
		WHERE u.email_verified = false
		RETURNING ` + userColumns

	queryVerifyEmail = `
		UPDATE users AS u
		SET email_verified = true, updated_at = NOW()
		WHERE u.email = $1
		RETURNING ` + userColumns

	queryLinkAccount = `
		INSERT INTO user_accounts (user_id, provider, provider_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider, provider_id)
		DO UPDATE SET user_id = EXCLUDED.user_id
	`

	queryCountAccounts = `
		SELECT COUNT(*)
		FROM user_accounts
		WHERE user_id = $1 AND provider = $2
	`

	querySetSubscription = `
		UPDATE users AS u
		SET tier = $2, subscription_expires_at = $3, updated_at = NOW()
		WHERE u.id = $1
		RETURNING ` + userColumns
)
