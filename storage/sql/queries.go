package sql

const (
	// marginChannel is the LISTEN / NOTIFY channel of margin config changes
	marginChannel = "margin_config"

	saveTransaction = `
INSERT INTO transactions (id, user_id, from_currency, to_currency, status,
                          amount_send, amount_receive, rate_applied, snapshot_version,
                          recipient, user_receipt_url, admin_receipt_url,
                          created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	updateTransaction = `
UPDATE transactions
SET status            = $2,
    recipient         = $3,
    user_receipt_url  = $4,
    admin_receipt_url = $5,
    updated_at        = $6
WHERE id = $1
  AND status = $7`

	transactionExists = `SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1)`

	transactionColumns = `
id, user_id, from_currency, to_currency, status,
amount_send, amount_receive, rate_applied, snapshot_version,
recipient, user_receipt_url, admin_receipt_url,
created_at, updated_at`

	transactionByID = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	transactionsQuery = `
SELECT ` + transactionColumns + `, COUNT(*) OVER () AS total
FROM transactions
WHERE ($1::TEXT IS NULL OR user_id = $1)
  AND ($2::TEXT IS NULL OR status = $2)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4`

	saveAccount = `
INSERT INTO admin_accounts (id, bank_name, account_holder, national_id,
                            account_type, account_number, email, updated_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE
    SET bank_name      = EXCLUDED.bank_name,
        account_holder = EXCLUDED.account_holder,
        national_id    = EXCLUDED.national_id,
        account_type   = EXCLUDED.account_type,
        account_number = EXCLUDED.account_number,
        email          = EXCLUDED.email,
        updated_by     = EXCLUDED.updated_by`

	deleteAccount = `DELETE FROM admin_accounts WHERE id = $1`

	listAccounts = `
SELECT id, bank_name, account_holder, national_id, account_type,
       account_number, email, updated_by, created_at
FROM admin_accounts
ORDER BY created_at, id`

	selectMargins = `
SELECT discount_wld_clp, discount_clp_ves, margin_usdt_clp, updated_by, updated_at
FROM margin_config
WHERE id = 1`

	saveMargins = `
INSERT INTO margin_config (id, discount_wld_clp, discount_clp_ves, margin_usdt_clp, updated_by, updated_at)
VALUES (1, $1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
    SET discount_wld_clp = EXCLUDED.discount_wld_clp,
        discount_clp_ves = EXCLUDED.discount_clp_ves,
        margin_usdt_clp  = EXCLUDED.margin_usdt_clp,
        updated_by       = EXCLUDED.updated_by,
        updated_at       = EXCLUDED.updated_at`
)
