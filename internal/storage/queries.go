package storage

// Postgres queries. Count queries are assembled with the window operators,
// see TransactionCountByEmailQuery.
const (
	// Transaction queries
	CheckTransactionExistsQuery = `
		SELECT EXISTS(
			SELECT 1
			FROM transactions
			WHERE transaction_id = $1
		)
	`

	CreateTransactionQuery = `
		INSERT INTO transactions (
			transaction_id, timestamp, customer_email, customer_ip,
			billing_country, shipping_country, card_bin, payment_method,
			amount_usd, status, product_category, quantity, unit_price,
			device_fingerprint, is_first_purchase
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at
	`

	GetTransactionByIDQuery = `
		SELECT transaction_id, timestamp, customer_email, customer_ip,
			billing_country, shipping_country, card_bin, payment_method,
			amount_usd, status, product_category, quantity, unit_price,
			device_fingerprint, is_first_purchase, created_at
		FROM transactions
		WHERE transaction_id = $1
	`

	countByEmailTemplate = `
		SELECT COUNT(*)
		FROM transactions
		WHERE customer_email = $1
		  AND timestamp %s $2
		  AND timestamp %s $3
	`

	countByEmailAndStatusTemplate = `
		SELECT COUNT(*)
		FROM transactions
		WHERE customer_email = $1
		  AND status = ANY($2)
		  AND timestamp %s $3
		  AND timestamp %s $4
	`

	// Alert queries
	CreateAlertQuery = `
		INSERT INTO fraud_alerts (alert_id, transaction_id, risk_score, triggered_rules, alert_status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	GetAlertByTransactionIDQuery = `
		SELECT alert_id, transaction_id, risk_score, triggered_rules, alert_status, created_at, updated_at
		FROM fraud_alerts
		WHERE transaction_id = $1
	`
)

// SQLite queries use positional ? placeholders; timestamps are unix nanoseconds.
const (
	SQLiteCheckTransactionExistsQuery = `
		SELECT EXISTS(
			SELECT 1
			FROM transactions
			WHERE transaction_id = ?
		)
	`

	SQLiteCreateTransactionQuery = `
		INSERT INTO transactions (
			transaction_id, timestamp, customer_email, customer_ip,
			billing_country, shipping_country, card_bin, payment_method,
			amount_usd, status, product_category, quantity, unit_price,
			device_fingerprint, is_first_purchase, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	SQLiteGetTransactionByIDQuery = `
		SELECT transaction_id, timestamp, customer_email, customer_ip,
			billing_country, shipping_country, card_bin, payment_method,
			amount_usd, status, product_category, quantity, unit_price,
			device_fingerprint, is_first_purchase, created_at
		FROM transactions
		WHERE transaction_id = ?
	`

	sqliteCountByEmailTemplate = `
		SELECT COUNT(*)
		FROM transactions
		WHERE customer_email = ?
		  AND timestamp %s ?
		  AND timestamp %s ?
	`

	sqliteCountByEmailAndStatusTemplate = `
		SELECT COUNT(*)
		FROM transactions
		WHERE customer_email = ?
		  AND status IN (%s)
		  AND timestamp %s ?
		  AND timestamp %s ?
	`

	SQLiteCreateAlertQuery = `
		INSERT INTO fraud_alerts (alert_id, transaction_id, risk_score, triggered_rules, alert_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	SQLiteGetAlertByTransactionIDQuery = `
		SELECT alert_id, transaction_id, risk_score, triggered_rules, alert_status, created_at, updated_at
		FROM fraud_alerts
		WHERE transaction_id = ?
	`
)
