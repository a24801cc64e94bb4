package confirmations

const (
	queryCreate = `
		INSERT INTO confirmation_codes (email, code, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, email, code, attempts, confirmed, expires_at, created_at
	`

	queryLatestPending = `
		SELECT id, email, code, attempts, confirmed, expires_at, created_at
		FROM confirmation_codes
		WHERE email = $1 AND confirmed = false
		ORDER BY created_at DESC, id DESC
		LIMIT 1
		FOR UPDATE
	`

	queryIncrementAttempts = `
		UPDATE confirmation_codes SET attempts = attempts + 1 WHERE id = $1
	`

	queryConfirm = `
		UPDATE confirmation_codes SET confirmed = true WHERE id = $1
	`

	queryDeleteExpired = `
		DELETE FROM confirmation_codes WHERE expires_at < $1
	`
)
