package usage

const (
	queryIncrementUsage = `
		INSERT INTO usage_counters (user_id, usage_date, model_key, count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id, usage_date, model_key)
		DO UPDATE SET count = usage_counters.count + 1
		RETURNING count
	`

	queryGetUsage = `
		SELECT COALESCE(SUM(count), 0)::BIGINT
		FROM usage_counters
		WHERE user_id = $1 AND usage_date = $2 AND model_key = $3
	`

	queryGetTotalUsage = `
		SELECT COALESCE(SUM(count), 0)::BIGINT
		FROM usage_counters
		WHERE user_id = $1 AND usage_date = $2
	`

	queryUsageForDay = `
		SELECT model_key, count
		FROM usage_counters
		WHERE user_id = $1 AND usage_date = $2
	`

	queryResetUsage = `
		DELETE FROM usage_counters
		WHERE user_id = $1 AND usage_date = $2
	`
)
