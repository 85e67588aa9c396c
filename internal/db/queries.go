package db

const (
	insertItem = `
		INSERT INTO items (code, customer_id, department_id, status_id, intake_window_id, item_description, problem_description, registered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectItemDetail = `
		SELECT i.id, i.code, i.customer_id, i.department_id, i.status_id, i.intake_window_id,
		       i.item_description, i.problem_description, i.advice,
		       i.registered_at, i.started_at, i.ready_at, i.delivered_at,
		       s.name, c.name, c.phone, ct.name, d.name,
		       COALESCE(ro.outcome, '')
		FROM items i
		JOIN statuses s ON s.id = i.status_id
		JOIN customers c ON c.id = i.customer_id
		JOIN customer_types ct ON ct.id = c.customer_type_id
		JOIN departments d ON d.id = i.department_id
		LEFT JOIN repair_outcomes ro ON ro.item_id = i.id
	`

	getItemByCode = selectItemDetail + ` WHERE i.code = ?`

	listItems = selectItemDetail + ` ORDER BY i.registered_at DESC`

	listItemSummaries = `
		SELECT i.code, s.name, i.item_description, d.name, i.registered_at
		FROM items i
		JOIN statuses s ON s.id = i.status_id
		JOIN departments d ON d.id = i.department_id
		ORDER BY i.registered_at DESC
	`

	itemCodeExists = `SELECT EXISTS(SELECT 1 FROM items WHERE code = ?)`

	markItemInProgress = `UPDATE items SET status_id = ?, started_at = ? WHERE id = ?`

	markItemDelivered = `UPDATE items SET status_id = ?, delivered_at = ? WHERE id = ?`

	completeItem = `UPDATE items SET status_id = ?, advice = ?, ready_at = ? WHERE id = ?`

	upsertOutcome = `
		INSERT INTO repair_outcomes (item_id, outcome, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET outcome = excluded.outcome, updated_at = excluded.updated_at
	`

	listItemUsage = `
		SELECT mu.material_id, m.name, mu.quantity, m.unit_price_cents, mu.quantity * m.unit_price_cents
		FROM material_usage mu
		JOIN materials m ON m.id = mu.material_id
		WHERE mu.item_id = ?
		ORDER BY m.name ASC
	`

	addUsage = `
		INSERT INTO material_usage (item_id, material_id, quantity)
		VALUES (?, ?, ?)
		ON CONFLICT(item_id, material_id) DO UPDATE SET quantity = quantity + excluded.quantity
	`

	setUsage = `
		INSERT INTO material_usage (item_id, material_id, quantity)
		VALUES (?, ?, ?)
		ON CONFLICT(item_id, material_id) DO UPDATE SET quantity = excluded.quantity
	`

	pruneUsage = `DELETE FROM material_usage WHERE item_id = ? AND material_id = ? AND quantity <= 0`

	removeUsage = `DELETE FROM material_usage WHERE item_id = ? AND material_id = ?`
)

const (
	insertCustomer = `INSERT INTO customers (name, phone, customer_type_id) VALUES (?, ?, ?)`

	findCustomer = `
		SELECT c.id, c.name, COALESCE(c.phone, ''), c.customer_type_id, ct.name, c.created_at
		FROM customers c
		JOIN customer_types ct ON ct.id = c.customer_type_id
		WHERE c.name = ? AND COALESCE(c.phone, '') = ?
	`

	listCustomers = `
		SELECT c.id, c.name, COALESCE(c.phone, ''), c.customer_type_id, ct.name, c.created_at
		FROM customers c
		JOIN customer_types ct ON ct.id = c.customer_type_id
		ORDER BY c.name ASC
	`
)

const (
	insertPrinter = `
		INSERT INTO printers (name, connection_id, connected, last_connected_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(name) DO UPDATE SET
			connection_id = excluded.connection_id,
			connected = 1,
			last_connected_at = excluded.last_connected_at
	`

	getPrinterByName = `
		SELECT id, name, connection_id, connected, last_connected_at
		FROM printers WHERE name = ?
	`

	getPrinterByID = `
		SELECT id, name, connection_id, connected, last_connected_at
		FROM printers WHERE id = ?
	`

	listPrinters = `
		SELECT id, name, connection_id, connected, last_connected_at
		FROM printers ORDER BY name ASC
	`

	listConnectedPrinters = `
		SELECT id, name, connection_id, connected, last_connected_at
		FROM printers WHERE connected = 1 ORDER BY name ASC
	`

	disconnectPrinter = `UPDATE printers SET connected = 0, connection_id = '' WHERE connection_id = ?`

	insertPrintJob = `
		INSERT INTO print_jobs (printer_id, item_id, payload, status)
		VALUES (?, ?, ?, 'pending')
	`

	getPrintJob = `
		SELECT id, printer_id, item_id, payload, status, error_message, created_at, sent_at, completed_at
		FROM print_jobs WHERE id = ?
	`

	listPendingJobs = `
		SELECT id, printer_id, item_id, payload, status, error_message, created_at, sent_at, completed_at
		FROM print_jobs WHERE printer_id = ? AND status = 'pending'
		ORDER BY created_at ASC, id ASC
	`

	markPrintJobSent = `UPDATE print_jobs SET status = 'sent', sent_at = ? WHERE id = ?`

	finishPrintJob = `UPDATE print_jobs SET status = ?, error_message = ?, completed_at = ? WHERE id = ?`

	resetPrintJob = `
		UPDATE print_jobs SET status = 'pending', error_message = '', sent_at = NULL, completed_at = NULL
		WHERE id = ? AND status IN ('pending', 'failed')
	`
)

const (
	getUserByUsername = `
		SELECT u.id, u.username, u.name, u.password_hash, u.user_type_id, ut.name, u.created_at
		FROM users u
		JOIN user_types ut ON ut.id = u.user_type_id
		WHERE u.username = ?
	`

	listUsers = `
		SELECT u.id, u.username, u.name, u.password_hash, u.user_type_id, ut.name, u.created_at
		FROM users u
		JOIN user_types ut ON ut.id = u.user_type_id
		ORDER BY u.username ASC
	`

	insertUser = `INSERT INTO users (username, name, password_hash, user_type_id) VALUES (?, ?, ?, ?)`

	updateUser = `UPDATE users SET name = ?, user_type_id = ? WHERE id = ?`

	updateUserPassword = `UPDATE users SET password_hash = ? WHERE id = ?`

	deleteUser = `DELETE FROM users WHERE id = ?`
)

const (
	activeWindow = `
		SELECT id, starts_at, ends_at FROM intake_windows
		WHERE starts_at <= ? AND ends_at >= ?
		ORDER BY starts_at ASC LIMIT 1
	`

	listWindows = `SELECT id, starts_at, ends_at FROM intake_windows ORDER BY starts_at DESC`

	insertWindow = `INSERT INTO intake_windows (starts_at, ends_at) VALUES (?, ?)`

	updateWindow = `UPDATE intake_windows SET starts_at = ?, ends_at = ? WHERE id = ?`

	deleteWindow = `DELETE FROM intake_windows WHERE id = ?`
)
