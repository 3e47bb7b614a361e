/*
Package sqlite provides the SQLite-backed implementation of the storage
contracts.

PURPOSE:
  Implements every interface in ledger/stores.go plus the Committer
  capability, so one reconciliation's ledger entry and derived records
  commit or roll back as a unit.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE on ledger_entries, bonus_records,
    commission_records or rejected_transactions
  - Corrections happen via compensating records only
  - UNIQUE(account_num, ref) backstops the engine's duplicate check

SEQUENCES:
  The sequences table is bumped with a single upsert-returning statement,
  atomic under SQLite's writer lock. Never scan-then-increment.

WAL MODE:
  Opened with WAL so readers do not block the single writer.

USAGE:
  store, err := sqlite.New("./data/settlements.db")
  ...
  engine := ledger.NewEngine(store.Stores(), rules, logger)
  engine.Committer = store

MIGRATION:
  Schema is auto-migrated on New(). For production, use a versioned
  migration tool.

SEE ALSO:
  - ledger/stores.go: contract definitions
  - store/memory: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/settlement-engine/ledger"
	"github.com/warp/settlement-engine/settlement"
)

// dbtx abstracts *sql.DB and *sql.Tx so every query runs either directly
// or inside a WithTx transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements the storage contracts over SQLite.
type Store struct {
	db *sql.DB
	q  dbtx
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, q: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Stores bundles the store for engine construction.
func (s *Store) Stores() ledger.Stores {
	return ledger.Stores{
		Cases:        s,
		Settlements:  s,
		Negotiations: s,
		Ledger:       s,
		Rejections:   s,
		Bonuses:      s,
		Commissions:  s,
		Sequences:    s,
	}
}

// WithTx runs fn against store handles bound to one transaction.
// An error from fn rolls everything back.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Stores) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	bound := &Store{db: s.db, q: tx}
	if err := fn(bound.Stores()); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) migrate() error {
	schema := `
	-- Recovery cases
	CREATE TABLE IF NOT EXISTS cases (
		id INTEGER PRIMARY KEY,
		account_num TEXT NOT NULL,
		phase TEXT NOT NULL,
		status TEXT NOT NULL,
		commission_rule TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS case_status_history (
		case_id INTEGER NOT NULL REFERENCES cases(id),
		status TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		expire_at TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_case_history_case
		ON case_status_history(case_id, created_at);

	-- Settlement plans and their schedules
	CREATE TABLE IF NOT EXISTS settlements (
		id INTEGER PRIMARY KEY,
		case_id INTEGER NOT NULL REFERENCES cases(id),
		type TEXT NOT NULL,
		phase TEXT NOT NULL,
		status TEXT NOT NULL,
		amount TEXT NOT NULL,
		initial_amount TEXT NOT NULL,
		drc_id INTEGER NOT NULL DEFAULT 0,
		ro_id INTEGER NOT NULL DEFAULT 0,
		created_by TEXT NOT NULL DEFAULT '',
		created_on TEXT NOT NULL,
		status_on TEXT NOT NULL,
		expire_at TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_settlements_case
		ON settlements(case_id);

	CREATE TABLE IF NOT EXISTS installments (
		settlement_id INTEGER NOT NULL REFERENCES settlements(id),
		seq INTEGER NOT NULL,
		settle_amount TEXT NOT NULL,
		accumulated TEXT NOT NULL,
		due_date TEXT NOT NULL,
		PRIMARY KEY (settlement_id, seq)
	);

	CREATE TABLE IF NOT EXISTS settlement_summaries (
		settlement_id INTEGER PRIMARY KEY REFERENCES settlements(id),
		status TEXT NOT NULL,
		status_on TEXT NOT NULL
	);

	-- Negotiation records, keyed by recovery company
	CREATE TABLE IF NOT EXISTS negotiations (
		drc_id INTEGER PRIMARY KEY,
		ro_id INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- Ledger entries (append-only)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		case_id INTEGER NOT NULL,
		settlement_id INTEGER NOT NULL,
		account_num TEXT NOT NULL,
		ref INTEGER NOT NULL,
		type TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		drc_id INTEGER NOT NULL DEFAULT 0,
		ro_id INTEGER NOT NULL DEFAULT 0,
		running_credit TEXT NOT NULL,
		running_debit TEXT NOT NULL,
		cumulative TEXT NOT NULL,
		installment_seq INTEGER NOT NULL DEFAULT 0,
		category TEXT NOT NULL,
		commissioning_amount TEXT NOT NULL,
		first_settled_month INTEGER NOT NULL DEFAULT 0,
		completed_month INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		UNIQUE(account_num, ref)
	);

	CREATE INDEX IF NOT EXISTS idx_entries_pair_seq
		ON ledger_entries(case_id, settlement_id, seq DESC);

	-- Rejected submissions (audit trail, never replayed)
	CREATE TABLE IF NOT EXISTS rejected_transactions (
		id TEXT PRIMARY KEY,
		case_id INTEGER NOT NULL,
		settlement_id INTEGER NOT NULL,
		account_num TEXT NOT NULL,
		ref INTEGER NOT NULL,
		type TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		reason TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Derived records (append-only)
	CREATE TABLE IF NOT EXISTS bonus_records (
		seq INTEGER PRIMARY KEY,
		entry_id TEXT NOT NULL,
		case_id INTEGER NOT NULL,
		drc_id INTEGER NOT NULL,
		ro_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		amount TEXT NOT NULL,
		month INTEGER NOT NULL,
		active INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bonus_case ON bonus_records(case_id);

	CREATE TABLE IF NOT EXISTS commission_records (
		seq INTEGER PRIMARY KEY,
		entry_id TEXT NOT NULL,
		case_id INTEGER NOT NULL,
		drc_id INTEGER NOT NULL,
		ro_id INTEGER NOT NULL,
		rule TEXT NOT NULL,
		category TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Named atomic counters
	CREATE TABLE IF NOT EXISTS sequences (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// CASE STORE
// =============================================================================

func (s *Store) FindCase(ctx context.Context, id settlement.CaseID) (*ledger.Case, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, account_num, phase, status, commission_rule FROM cases WHERE id = ?`, id)

	var c ledger.Case
	if err := row.Scan(&c.ID, &c.AccountNum, &c.Phase, &c.Status, &c.CommissionRule); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying case %d: %w", id, err)
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT status, reason, created_by, created_at, expire_at
		 FROM case_status_history WHERE case_id = ? ORDER BY created_at, rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("querying case history %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e ledger.CaseStatusEntry
		var createdAt, expireAt string
		if err := rows.Scan(&e.Status, &e.Reason, &e.CreatedBy, &createdAt, &expireAt); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(createdAt)
		e.ExpireAt = parseTime(expireAt)
		c.StatusHistory = append(c.StatusHistory, e)
	}
	return &c, rows.Err()
}

func (s *Store) UpdateCaseStatus(ctx context.Context, id settlement.CaseID, status string, entry ledger.CaseStatusEntry) error {
	res, err := s.q.ExecContext(ctx, `UPDATE cases SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("updating case %d status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrCaseNotFound
	}
	_, err = s.q.ExecContext(ctx,
		`INSERT INTO case_status_history (case_id, status, reason, created_by, created_at, expire_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, entry.Status, entry.Reason, entry.CreatedBy, fmtTime(entry.CreatedAt), fmtTime(entry.ExpireAt))
	if err != nil {
		return fmt.Errorf("appending case %d history: %w", id, err)
	}
	return nil
}

// SaveCase inserts or replaces a case with its history. Seeding and admin use.
func (s *Store) SaveCase(ctx context.Context, c *ledger.Case) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT OR REPLACE INTO cases (id, account_num, phase, status, commission_rule)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.AccountNum, c.Phase, c.Status, c.CommissionRule)
	if err != nil {
		return fmt.Errorf("saving case %d: %w", c.ID, err)
	}
	for _, e := range c.StatusHistory {
		_, err = s.q.ExecContext(ctx,
			`INSERT INTO case_status_history (case_id, status, reason, created_by, created_at, expire_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, e.Status, e.Reason, e.CreatedBy, fmtTime(e.CreatedAt), fmtTime(e.ExpireAt))
		if err != nil {
			return fmt.Errorf("saving case %d history: %w", c.ID, err)
		}
	}
	return nil
}

// =============================================================================
// SETTLEMENT STORE
// =============================================================================

func (s *Store) FindPlan(ctx context.Context, id settlement.SettlementID) (*settlement.Plan, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, case_id, type, phase, status, amount, initial_amount,
		        drc_id, ro_id, created_by, created_on, status_on, expire_at
		 FROM settlements WHERE id = ?`, id)

	var p settlement.Plan
	var amount, initial, createdOn, statusOn, expireAt string
	err := row.Scan(&p.SettlementID, &p.CaseID, &p.Type, &p.Phase, &p.Status,
		&amount, &initial, &p.DRCID, &p.ROID, &p.CreatedBy, &createdOn, &statusOn, &expireAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying settlement %d: %w", id, err)
	}
	p.Amount = parseDecimal(amount)
	p.InitialAmount = parseDecimal(initial)
	p.CreatedOn = parseTime(createdOn)
	p.StatusOn = parseTime(statusOn)
	p.ExpireAt = parseTime(expireAt)

	rows, err := s.q.QueryContext(ctx,
		`SELECT seq, settle_amount, accumulated, due_date
		 FROM installments WHERE settlement_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("querying installments %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var inst settlement.Installment
		var settleAmount, accumulated, dueDate string
		if err := rows.Scan(&inst.Seq, &settleAmount, &accumulated, &dueDate); err != nil {
			return nil, err
		}
		inst.SettleAmount = parseDecimal(settleAmount)
		inst.Accumulated = parseDecimal(accumulated)
		inst.DueDate = parseTime(dueDate)
		p.Installments = append(p.Installments, inst)
	}
	return &p, rows.Err()
}

func (s *Store) SavePlan(ctx context.Context, plan *settlement.Plan) error {
	var exists int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM settlements WHERE id = ?`, plan.SettlementID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking settlement %d: %w", plan.SettlementID, err)
	}
	if exists > 0 {
		return ledger.ErrDuplicateSettlement
	}

	_, err = s.q.ExecContext(ctx,
		`INSERT INTO settlements (id, case_id, type, phase, status, amount, initial_amount,
		                          drc_id, ro_id, created_by, created_on, status_on, expire_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.SettlementID, plan.CaseID, plan.Type, plan.Phase, plan.Status,
		plan.Amount.String(), plan.InitialAmount.String(),
		plan.DRCID, plan.ROID, plan.CreatedBy,
		fmtTime(plan.CreatedOn), fmtTime(plan.StatusOn), fmtTime(plan.ExpireAt))
	if err != nil {
		return fmt.Errorf("inserting settlement %d: %w", plan.SettlementID, err)
	}

	for _, inst := range plan.Installments {
		_, err = s.q.ExecContext(ctx,
			`INSERT INTO installments (settlement_id, seq, settle_amount, accumulated, due_date)
			 VALUES (?, ?, ?, ?, ?)`,
			plan.SettlementID, inst.Seq, inst.SettleAmount.String(),
			inst.Accumulated.String(), fmtTime(inst.DueDate))
		if err != nil {
			return fmt.Errorf("inserting installment %d/%d: %w", plan.SettlementID, inst.Seq, err)
		}
	}

	_, err = s.q.ExecContext(ctx,
		`INSERT INTO settlement_summaries (settlement_id, status, status_on) VALUES (?, ?, ?)`,
		plan.SettlementID, plan.Status, fmtTime(plan.StatusOn))
	if err != nil {
		return fmt.Errorf("inserting summary %d: %w", plan.SettlementID, err)
	}
	return nil
}

func (s *Store) UpdatePlanStatus(ctx context.Context, id settlement.SettlementID, status settlement.Status, at time.Time) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE settlements SET status = ?, status_on = ? WHERE id = ?`,
		status, fmtTime(at), id)
	if err != nil {
		return fmt.Errorf("updating settlement %d status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrSettlementNotFound
	}
	return nil
}

func (s *Store) UpdateSummaryStatus(ctx context.Context, id settlement.SettlementID, status settlement.Status, at time.Time) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE settlement_summaries SET status = ?, status_on = ? WHERE settlement_id = ?`,
		status, fmtTime(at), id)
	if err != nil {
		return fmt.Errorf("updating summary %d status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrSettlementNotFound
	}
	return nil
}

// =============================================================================
// NEGOTIATION STORE
// =============================================================================

func (s *Store) FindNegotiation(ctx context.Context, drcID settlement.DRCID) (*ledger.Negotiation, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT drc_id, ro_id, created_at FROM negotiations WHERE drc_id = ?`, drcID)

	var n ledger.Negotiation
	var createdAt string
	if err := row.Scan(&n.DRCID, &n.ROID, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying negotiation %d: %w", drcID, err)
	}
	n.CreatedAt = parseTime(createdAt)
	return &n, nil
}

// SaveNegotiation records that a DRC negotiated. Seeding and admin use.
func (s *Store) SaveNegotiation(ctx context.Context, n *ledger.Negotiation) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT OR REPLACE INTO negotiations (drc_id, ro_id, created_at) VALUES (?, ?, ?)`,
		n.DRCID, n.ROID, fmtTime(n.CreatedAt))
	return err
}

// =============================================================================
// LEDGER STORE
// =============================================================================

const entryColumns = `id, seq, case_id, settlement_id, account_num, ref, type, amount, date,
	drc_id, ro_id, running_credit, running_debit, cumulative,
	installment_seq, category, commissioning_amount,
	first_settled_month, completed_month, created_at`

func scanEntry(row interface{ Scan(...any) error }) (*ledger.Entry, error) {
	var e ledger.Entry
	var amount, date, credit, debit, cumulative, commissioning, createdAt string
	err := row.Scan(&e.ID, &e.Seq, &e.CaseID, &e.SettlementID, &e.AccountNum, &e.Ref,
		&e.Type, &amount, &date, &e.DRCID, &e.ROID,
		&credit, &debit, &cumulative,
		&e.InstallmentSeq, &e.Category, &commissioning,
		&e.FirstSettledMonth, &e.CompletedMonth, &createdAt)
	if err != nil {
		return nil, err
	}
	e.Amount = parseDecimal(amount)
	e.Date = parseTime(date)
	e.RunningCredit = parseDecimal(credit)
	e.RunningDebit = parseDecimal(debit)
	e.Cumulative = parseDecimal(cumulative)
	e.CommissioningAmount = parseDecimal(commissioning)
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

func (s *Store) FindLatest(ctx context.Context, caseID settlement.CaseID, settlementID settlement.SettlementID) (*ledger.Entry, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries
		 WHERE case_id = ? AND settlement_id = ? ORDER BY seq DESC LIMIT 1`,
		caseID, settlementID)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (s *Store) FindLatestNonReversal(ctx context.Context, caseID settlement.CaseID, settlementID settlement.SettlementID) (*ledger.Entry, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries
		 WHERE case_id = ? AND settlement_id = ? AND type NOT IN (?, ?)
		 ORDER BY seq DESC LIMIT 1`,
		caseID, settlementID, ledger.TxBill, ledger.TxReturnCheque)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (s *Store) RefExists(ctx context.Context, accountNum string, ref int64) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM ledger_entries WHERE account_num = ? AND ref = ?`,
		accountNum, ref).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking reference %s/%d: %w", accountNum, ref, err)
	}
	return n > 0, nil
}

func (s *Store) Append(ctx context.Context, e ledger.Entry) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO ledger_entries (`+entryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Seq, e.CaseID, e.SettlementID, e.AccountNum, e.Ref,
		e.Type, e.Amount.String(), fmtTime(e.Date), e.DRCID, e.ROID,
		e.RunningCredit.String(), e.RunningDebit.String(), e.Cumulative.String(),
		e.InstallmentSeq, e.Category, e.CommissioningAmount.String(),
		e.FirstSettledMonth, e.CompletedMonth, fmtTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("appending entry %s: %w", e.ID, err)
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, caseID settlement.CaseID) ([]ledger.Entry, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE case_id = ? ORDER BY seq`, caseID)
	if err != nil {
		return nil, fmt.Errorf("listing entries for case %d: %w", caseID, err)
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// =============================================================================
// REJECTION LOG, BONUSES, COMMISSIONS
// =============================================================================

func (s *Store) AppendRejected(ctx context.Context, r ledger.RejectedTransaction) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO rejected_transactions
		 (id, case_id, settlement_id, account_num, ref, type, amount, date, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Transaction.CaseID, r.Transaction.SettlementID,
		r.Transaction.AccountNum, r.Transaction.Ref, r.Transaction.Type,
		r.Transaction.Amount.String(), fmtTime(r.Transaction.Date),
		r.Reason, fmtTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("appending rejection %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) AppendBonus(ctx context.Context, b ledger.BonusRecord) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO bonus_records
		 (seq, entry_id, case_id, drc_id, ro_id, type, amount, month, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Seq, b.EntryID, b.CaseID, b.DRCID, b.ROID, b.Type,
		b.Amount.String(), b.Month, b.Active, fmtTime(b.CreatedAt))
	if err != nil {
		return fmt.Errorf("appending bonus %d: %w", b.Seq, err)
	}
	return nil
}

func (s *Store) ListBonuses(ctx context.Context, caseID settlement.CaseID) ([]ledger.BonusRecord, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT seq, entry_id, case_id, drc_id, ro_id, type, amount, month, active, created_at
		 FROM bonus_records WHERE case_id = ? ORDER BY seq`, caseID)
	if err != nil {
		return nil, fmt.Errorf("listing bonuses for case %d: %w", caseID, err)
	}
	defer rows.Close()

	var out []ledger.BonusRecord
	for rows.Next() {
		var b ledger.BonusRecord
		var amount, createdAt string
		if err := rows.Scan(&b.Seq, &b.EntryID, &b.CaseID, &b.DRCID, &b.ROID,
			&b.Type, &amount, &b.Month, &b.Active, &createdAt); err != nil {
			return nil, err
		}
		b.Amount = parseDecimal(amount)
		b.CreatedAt = parseTime(createdAt)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) AppendCommission(ctx context.Context, c ledger.CommissionRecord) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO commission_records
		 (seq, entry_id, case_id, drc_id, ro_id, rule, category, amount, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Seq, c.EntryID, c.CaseID, c.DRCID, c.ROID, c.Rule, c.Category,
		c.Amount.String(), c.Status, fmtTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("appending commission %d: %w", c.Seq, err)
	}
	return nil
}

// =============================================================================
// SEQUENCES
// =============================================================================

// Next bumps the named counter in one statement; SQLite's writer lock
// makes the upsert atomic.
func (s *Store) Next(ctx context.Context, name string) (int64, error) {
	var value int64
	err := s.q.QueryRowContext(ctx,
		`INSERT INTO sequences (name, value) VALUES (?, 1)
		 ON CONFLICT(name) DO UPDATE SET value = value + 1
		 RETURNING value`, name).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("allocating sequence %q: %w", name, err)
	}
	return value, nil
}
