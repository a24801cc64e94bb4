package chats

const chatColumns = `id, user_id, model_key, title, is_active, created_at, last_interaction_at`

const messageColumns = `id, chat_id, role, content, prompt_tokens, completion_tokens, total_tokens, created_at`

const (
	// serializes activation swaps for one user
	queryLockUser = `
		SELECT id FROM users WHERE id = $1 FOR UPDATE
	`

	queryDeactivateAll = `
		UPDATE chats
		SET is_active = false
		WHERE user_id = $1 AND is_active
	`

	queryInsertChat = `
		INSERT INTO chats (user_id, model_key, is_active)
		VALUES ($1, $2, true)
		RETURNING ` + chatColumns

	queryActivateChat = `
		UPDATE chats
		SET is_active = true, model_key = COALESCE($3, model_key)
		WHERE id = $2 AND user_id = $1
		RETURNING ` + chatColumns

	queryGetActiveChat = `
		SELECT ` + chatColumns + `
		FROM chats
		WHERE user_id = $1 AND is_active
	`

	queryGetChat = `
		SELECT ` + chatColumns + `
		FROM chats
		WHERE id = $1
	`

	queryFinishChat = `
		UPDATE chats
		SET is_active = false, title = COALESCE($2, title)
		WHERE id = $1 AND is_active
	`

	queryDeleteChat = `
		DELETE FROM chats WHERE id = $1
	`

	queryListChats = `
		SELECT ` + chatColumns + `
		FROM chats
		WHERE user_id = $1
		ORDER BY last_interaction_at DESC, id DESC
		LIMIT $2
	`

	queryCountChats = `
		SELECT COUNT(*) FROM chats WHERE user_id = $1
	`

	queryRenameChat = `
		UPDATE chats
		SET title = $2
		WHERE id = $1
		RETURNING ` + chatColumns

	queryCountUserMessages = `
		SELECT COUNT(*) FROM messages WHERE chat_id = $1 AND role = 'user'
	`

	queryInsertMessage = `
		INSERT INTO messages (chat_id, role, content, prompt_tokens, completion_tokens, total_tokens)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + messageColumns

	queryTouchChat = `
		UPDATE chats
		SET last_interaction_at = NOW()
		WHERE id = $1
	`

	// newest perRole messages of each role, replayed oldest first
	queryRecentMessages = `
		SELECT ` + messageColumns + `
		FROM (
			SELECT ` + messageColumns + `,
				ROW_NUMBER() OVER (PARTITION BY role ORDER BY created_at DESC, id DESC) AS rn
			FROM messages
			WHERE chat_id = $1
		) ranked
		WHERE rn <= $2
		ORDER BY created_at, id
	`

	queryMessages = `
		SELECT ` + messageColumns + `
		FROM (
			SELECT ` + messageColumns + `
			FROM messages
			WHERE chat_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) latest
		ORDER BY created_at, id
	`
)
