package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"bahari-bites/internal/config"
	"bahari-bites/internal/logger"
	"bahari-bites/internal/models"

	"github.com/go-sql-driver/mysql"
)

type MySQLStore struct {
	db  *sql.DB
	log *logger.Logger
}

func NewMySQLStore(cfg config.DatabaseConfig, log *logger.Logger) (*MySQLStore, error) {
	log.LogDatabase("CONNECT", "mysql", fmt.Sprintf("Connecting to MySQL at %s:%s", cfg.Host, cfg.Port))

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Error("DATABASE", "Failed to open MySQL connection: "+err.Error())
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	if err := db.Ping(); err != nil {
		log.Error("DATABASE", "Failed to ping MySQL: "+err.Error())
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &MySQLStore{db: db, log: log}

	if err := store.initTables(); err != nil {
		log.Error("DATABASE", "Failed to initialize tables: "+err.Error())
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	log.LogDatabase("SUCCESS", "mysql", "MySQL connection established and tables initialized")
	return store, nil
}

func (s *MySQLStore) initTables() error {
	s.log.LogDatabase("MIGRATE", "mysql", "Creating tables if not exist")

	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(50) NOT NULL,
			email VARCHAR(100) NOT NULL,
			phone VARCHAR(15) NULL,
			password_hash VARCHAR(100) NOT NULL,
			role VARCHAR(20) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_username (username),
			UNIQUE KEY uniq_email (email),
			UNIQUE KEY uniq_phone (phone)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS inventory (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			item_name VARCHAR(100) NOT NULL,
			quantity INT NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS menu_items (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			description VARCHAR(255),
			price_cents BIGINT NOT NULL,
			category VARCHAR(50),
			image_url VARCHAR(255),
			inventory_id BIGINT NULL,
			FOREIGN KEY (inventory_id) REFERENCES inventory(id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS cart_lines (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			account_id BIGINT NOT NULL,
			menu_item_id BIGINT NOT NULL,
			quantity INT NOT NULL,
			UNIQUE KEY uniq_cart_line (account_id, menu_item_id),
			FOREIGN KEY (account_id) REFERENCES accounts(id),
			FOREIGN KEY (menu_item_id) REFERENCES menu_items(id),
			INDEX idx_cart_account (account_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS orders (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			account_id BIGINT NOT NULL,
			status VARCHAR(20) NOT NULL,
			phone VARCHAR(15) NOT NULL,
			total_cents BIGINT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (account_id) REFERENCES accounts(id),
			INDEX idx_orders_account (account_id),
			INDEX idx_orders_status (status)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS order_lines (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			order_id BIGINT NOT NULL,
			menu_item_id BIGINT NOT NULL,
			item_name VARCHAR(100) NOT NULL,
			unit_price_cents BIGINT NOT NULL,
			quantity INT NOT NULL,
			FOREIGN KEY (order_id) REFERENCES orders(id),
			INDEX idx_order_lines_order (order_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS reservations (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			account_id BIGINT NOT NULL,
			reservation_time DATETIME NOT NULL,
			table_number INT NOT NULL,
			phone VARCHAR(15) NOT NULL,
			status VARCHAR(20) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (account_id) REFERENCES accounts(id),
			INDEX idx_reservations_account (account_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS mpesa_transactions (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			merchant_request_id VARCHAR(100) NOT NULL,
			checkout_request_id VARCHAR(100) NOT NULL,
			result_code INT NOT NULL,
			result_description VARCHAR(255) NOT NULL,
			amount_cents BIGINT NOT NULL,
			mpesa_receipt_number VARCHAR(50),
			transaction_date DATETIME NOT NULL,
			phone_number VARCHAR(15) NOT NULL,
			order_id BIGINT NULL,
			reservation_id BIGINT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_checkout_request (checkout_request_id),
			FOREIGN KEY (order_id) REFERENCES orders(id),
			FOREIGN KEY (reservation_id) REFERENCES reservations(id),
			CHECK ((order_id IS NULL) <> (reservation_id IS NULL))
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	s.log.LogDatabase("SUCCESS", "mysql", "All tables ready")
	return nil
}

// isDuplicateKey reports whether err is a MySQL unique-constraint violation.
func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// --- accounts ---

func (s *MySQLStore) CreateAccount(account *models.Account) error {
	s.log.LogDatabase("INSERT", "accounts", fmt.Sprintf("Creating account %s", account.Email))

	query := `
    INSERT INTO accounts (username, email, phone, password_hash, role, created_at)
    VALUES (?, ?, NULLIF(?, ''), ?, ?, ?)
    `
	res, err := s.db.Exec(query,
		account.Username, account.Email, account.Phone, account.PasswordHash, account.Role, account.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to create account %s: %s", account.Email, err.Error()))
		return fmt.Errorf("failed to create account: %w", err)
	}
	account.ID, _ = res.LastInsertId()

	s.log.LogDatabase("SUCCESS", "accounts", fmt.Sprintf("Account %d created", account.ID))
	return nil
}

func (s *MySQLStore) GetAccount(id int64) (*models.Account, error) {
	query := `
    SELECT id, username, email, IFNULL(phone, ''), password_hash, role, created_at
    FROM accounts WHERE id = ?
    `
	account := &models.Account{}
	err := s.db.QueryRow(query, id).Scan(
		&account.ID, &account.Username, &account.Email, &account.Phone,
		&account.PasswordHash, &account.Role, &account.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (s *MySQLStore) GetAccountByCredential(credential string) (*models.Account, error) {
	query := `
    SELECT id, username, email, IFNULL(phone, ''), password_hash, role, created_at
    FROM accounts WHERE username = ? OR email = ?
    `
	account := &models.Account{}
	err := s.db.QueryRow(query, credential, credential).Scan(
		&account.ID, &account.Username, &account.Email, &account.Phone,
		&account.PasswordHash, &account.Role, &account.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// --- menu & inventory ---

func (s *MySQLStore) CreateMenuItem(item *models.MenuItem) error {
	s.log.LogDatabase("INSERT", "menu_items", fmt.Sprintf("Creating menu item %s", item.Name))

	query := `
    INSERT INTO menu_items (name, description, price_cents, category, image_url, inventory_id)
    VALUES (?, ?, ?, ?, ?, NULLIF(?, 0))
    `
	res, err := s.db.Exec(query,
		item.Name, item.Description, item.PriceCents, item.Category, item.ImageURL, item.InventoryID,
	)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to create menu item %s: %s", item.Name, err.Error()))
		return fmt.Errorf("failed to create menu item: %w", err)
	}
	item.ID, _ = res.LastInsertId()
	return nil
}

func (s *MySQLStore) UpdateMenuItem(item *models.MenuItem) error {
	query := `
    UPDATE menu_items SET
        name = ?, description = ?, price_cents = ?, category = ?, image_url = ?, inventory_id = NULLIF(?, 0)
    WHERE id = ?
    `
	res, err := s.db.Exec(query,
		item.Name, item.Description, item.PriceCents, item.Category, item.ImageURL, item.InventoryID, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update menu item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MySQLStore) GetMenuItem(id int64) (*models.MenuItem, error) {
	query := `
    SELECT id, name, IFNULL(description, ''), price_cents, IFNULL(category, ''), IFNULL(image_url, ''), IFNULL(inventory_id, 0)
    FROM menu_items WHERE id = ?
    `
	item := &models.MenuItem{}
	err := s.db.QueryRow(query, id).Scan(
		&item.ID, &item.Name, &item.Description, &item.PriceCents,
		&item.Category, &item.ImageURL, &item.InventoryID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get menu item: %w", err)
	}
	return item, nil
}

func (s *MySQLStore) ListMenuItems() ([]*models.MenuItem, error) {
	query := `
    SELECT id, name, IFNULL(description, ''), price_cents, IFNULL(category, ''), IFNULL(image_url, ''), IFNULL(inventory_id, 0)
    FROM menu_items ORDER BY category, name
    `
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}
	defer rows.Close()

	var items []*models.MenuItem
	for rows.Next() {
		item := &models.MenuItem{}
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Description, &item.PriceCents,
			&item.Category, &item.ImageURL, &item.InventoryID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// --- cart ---

func (s *MySQLStore) AddCartLine(accountID, menuItemID int64, quantity int) error {
	s.log.LogDatabase("UPSERT", "cart_lines", fmt.Sprintf("Account %d adding item %d x%d", accountID, menuItemID, quantity))

	// Adding the same item again bumps the quantity rather than duplicating
	// the line; uniq_cart_line makes this race-safe.
	query := `
    INSERT INTO cart_lines (account_id, menu_item_id, quantity)
    VALUES (?, ?, ?)
    ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)
    `
	if _, err := s.db.Exec(query, accountID, menuItemID, quantity); err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to add cart line for account %d: %s", accountID, err.Error()))
		return fmt.Errorf("failed to add cart line: %w", err)
	}
	return nil
}

func (s *MySQLStore) RemoveCartLine(accountID, menuItemID int64) error {
	query := `DELETE FROM cart_lines WHERE account_id = ? AND menu_item_id = ?`
	res, err := s.db.Exec(query, accountID, menuItemID)
	if err != nil {
		return fmt.Errorf("failed to remove cart line: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MySQLStore) GetCartLines(accountID int64) ([]*models.CartLine, error) {
	query := `
    SELECT cl.id, cl.account_id, cl.menu_item_id, cl.quantity, m.name, m.price_cents
    FROM cart_lines cl
    JOIN menu_items m ON m.id = cl.menu_item_id
    WHERE cl.account_id = ?
    ORDER BY cl.id
    `
	rows, err := s.db.Query(query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart lines: %w", err)
	}
	defer rows.Close()

	var lines []*models.CartLine
	for rows.Next() {
		line := &models.CartLine{}
		if err := rows.Scan(
			&line.ID, &line.AccountID, &line.MenuItemID, &line.Quantity,
			&line.ItemName, &line.UnitPriceCents,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// --- orders ---

func (s *MySQLStore) CreateOrder(order *models.Order) error {
	s.log.LogDatabase("INSERT", "orders", fmt.Sprintf("Creating order for account %d", order.AccountID))

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO orders (account_id, status, phone, total_cents, created_at) VALUES (?, ?, ?, ?, ?)`,
		order.AccountID, order.Status, order.Phone, order.TotalCents, order.CreatedAt,
	)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to create order: %s", err.Error()))
		return fmt.Errorf("failed to create order: %w", err)
	}
	order.ID, _ = res.LastInsertId()

	for _, line := range order.Lines {
		line.OrderID = order.ID
		lineRes, err := tx.Exec(
			`INSERT INTO order_lines (order_id, menu_item_id, item_name, unit_price_cents, quantity) VALUES (?, ?, ?, ?, ?)`,
			line.OrderID, line.MenuItemID, line.ItemName, line.UnitPriceCents, line.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to create order line: %w", err)
		}
		line.ID, _ = lineRes.LastInsertId()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	s.log.LogDatabase("SUCCESS", "orders", fmt.Sprintf("Order %d created with %d lines", order.ID, len(order.Lines)))
	return nil
}

func (s *MySQLStore) GetOrder(id int64) (*models.Order, error) {
	order := &models.Order{}
	err := s.db.QueryRow(
		`SELECT id, account_id, status, phone, total_cents, created_at FROM orders WHERE id = ?`, id,
	).Scan(&order.ID, &order.AccountID, &order.Status, &order.Phone, &order.TotalCents, &order.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT id, order_id, menu_item_id, item_name, unit_price_cents, quantity FROM order_lines WHERE order_id = ? ORDER BY id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		line := &models.OrderLine{}
		if err := rows.Scan(&line.ID, &line.OrderID, &line.MenuItemID, &line.ItemName, &line.UnitPriceCents, &line.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		order.Lines = append(order.Lines, line)
	}
	return order, rows.Err()
}

func (s *MySQLStore) UpdateOrderStatus(id int64, status models.OrderStatus) error {
	s.log.LogDatabase("UPDATE", "orders", fmt.Sprintf("Order %d -> %s", id, status))

	res, err := s.db.Exec(`UPDATE orders SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MySQLStore) ListOrdersByAccount(accountID int64) ([]*models.Order, error) {
	rows, err := s.db.Query(
		`SELECT id, account_id, status, phone, total_cents, created_at FROM orders WHERE account_id = ? ORDER BY created_at DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		if err := rows.Scan(&order.ID, &order.AccountID, &order.Status, &order.Phone, &order.TotalCents, &order.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// --- reservations ---

func (s *MySQLStore) CreateReservation(reservation *models.Reservation) error {
	s.log.LogDatabase("INSERT", "reservations", fmt.Sprintf("Creating reservation for account %d", reservation.AccountID))

	res, err := s.db.Exec(
		`INSERT INTO reservations (account_id, reservation_time, table_number, phone, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		reservation.AccountID, reservation.ReservationTime, reservation.TableNumber,
		reservation.Phone, reservation.Status, reservation.CreatedAt,
	)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to create reservation: %s", err.Error()))
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	reservation.ID, _ = res.LastInsertId()
	return nil
}

func (s *MySQLStore) GetReservation(id int64) (*models.Reservation, error) {
	reservation := &models.Reservation{}
	err := s.db.QueryRow(
		`SELECT id, account_id, reservation_time, table_number, phone, status, created_at FROM reservations WHERE id = ?`, id,
	).Scan(
		&reservation.ID, &reservation.AccountID, &reservation.ReservationTime,
		&reservation.TableNumber, &reservation.Phone, &reservation.Status, &reservation.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return reservation, nil
}

func (s *MySQLStore) UpdateReservationStatus(id int64, status models.ReservationStatus) error {
	s.log.LogDatabase("UPDATE", "reservations", fmt.Sprintf("Reservation %d -> %s", id, status))

	res, err := s.db.Exec(`UPDATE reservations SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- payment transactions ---

func (s *MySQLStore) GetTransactionByCheckoutRequestID(checkoutRequestID string) (*models.PaymentTransaction, error) {
	query := `
    SELECT id, merchant_request_id, checkout_request_id, result_code, result_description,
           amount_cents, IFNULL(mpesa_receipt_number, ''), transaction_date, phone_number,
           IFNULL(order_id, 0), IFNULL(reservation_id, 0), created_at
    FROM mpesa_transactions WHERE checkout_request_id = ?
    `
	txn := &models.PaymentTransaction{}
	err := s.db.QueryRow(query, checkoutRequestID).Scan(
		&txn.ID, &txn.MerchantRequestID, &txn.CheckoutRequestID, &txn.ResultCode, &txn.ResultDescription,
		&txn.AmountCents, &txn.ReceiptNumber, &txn.TransactionDate, &txn.Phone,
		&txn.OrderID, &txn.ReservationID, &txn.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

func (s *MySQLStore) ReconcilePayment(txn *models.PaymentTransaction) error {
	s.log.LogDatabase("RECONCILE", "mpesa_transactions",
		fmt.Sprintf("Reconciling checkout request %s (result %d)", txn.CheckoutRequestID, txn.ResultCode))

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO mpesa_transactions
        (merchant_request_id, checkout_request_id, result_code, result_description,
         amount_cents, mpesa_receipt_number, transaction_date, phone_number,
         order_id, reservation_id, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, 0), NULLIF(?, 0), ?)`,
		txn.MerchantRequestID, txn.CheckoutRequestID, txn.ResultCode, txn.ResultDescription,
		txn.AmountCents, txn.ReceiptNumber, txn.TransactionDate, txn.Phone,
		txn.OrderID, txn.ReservationID, txn.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			s.log.LogDatabase("DUPLICATE", "mpesa_transactions",
				fmt.Sprintf("Checkout request %s already reconciled", txn.CheckoutRequestID))
			return ErrDuplicateTransaction
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to insert transaction: %s", err.Error()))
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	txn.ID, _ = res.LastInsertId()

	success := txn.ResultCode == 0

	switch {
	case txn.OrderID != 0:
		status := models.OrderFailed
		if success {
			status = models.OrderPaid
		}
		if _, err := tx.Exec(`UPDATE orders SET status = ? WHERE id = ?`, status, txn.OrderID); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		if success {
			// Consume the cart and the stock behind the ordered items in the
			// same commit as the transaction row.
			if _, err := tx.Exec(
				`DELETE FROM cart_lines WHERE account_id = (SELECT account_id FROM orders WHERE id = ?)`,
				txn.OrderID,
			); err != nil {
				return fmt.Errorf("failed to purge cart lines: %w", err)
			}
			if _, err := tx.Exec(
				`UPDATE inventory i
                 JOIN menu_items m ON m.inventory_id = i.id
                 JOIN order_lines ol ON ol.menu_item_id = m.id
                 SET i.quantity = i.quantity - ol.quantity
                 WHERE ol.order_id = ?`,
				txn.OrderID,
			); err != nil {
				return fmt.Errorf("failed to decrement inventory: %w", err)
			}
		}
	case txn.ReservationID != 0:
		status := models.ReservationFailed
		if success {
			status = models.ReservationConfirmed
		}
		if _, err := tx.Exec(`UPDATE reservations SET status = ? WHERE id = ?`, status, txn.ReservationID); err != nil {
			return fmt.Errorf("failed to update reservation status: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reconciliation: %w", err)
	}

	s.log.LogDatabase("SUCCESS", "mpesa_transactions",
		fmt.Sprintf("Transaction %d reconciled for checkout request %s", txn.ID, txn.CheckoutRequestID))
	return nil
}

func (s *MySQLStore) Close() error {
	s.log.LogDatabase("CLOSE", "mysql", "Closing MySQL connection")
	return s.db.Close()
}

func (s *MySQLStore) HealthCheck() error {
	return s.db.Ping()
}
