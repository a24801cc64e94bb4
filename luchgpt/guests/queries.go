package guests

const sessionColumns = `id, session_token, identity, request_count, created_at, last_request_at`

const (
	// a no-op update makes RETURNING yield the existing row on conflict
	queryGetOrCreate = `
		INSERT INTO guest_sessions (session_token, identity)
		VALUES ($1, $2)
		ON CONFLICT (identity)
		DO UPDATE SET identity = EXCLUDED.identity
		RETURNING ` + sessionColumns

	queryIncrementRequest = `
		INSERT INTO guest_sessions (session_token, request_count, last_request_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (session_token)
		DO UPDATE SET
			request_count = guest_sessions.request_count + 1,
			last_request_at = NOW()
		RETURNING request_count
	`

	queryGetByToken = `
		SELECT ` + sessionColumns + `
		FROM guest_sessions
		WHERE session_token = $1
	`
)
