package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/dtk-group/quote-engine/internal/model"
	"github.com/dtk-group/quote-engine/internal/partnum"
)

// shippedStatus is the archive status marker after lower/space folding.
const shippedStatus = "shipped"

// SQLiteStore implements Store on modernc.org/sqlite, for local and
// single-host deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens the database and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS code_book (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	part_number      TEXT NOT NULL,
	part_number_norm TEXT NOT NULL,
	purpose          TEXT,
	warehouse        TEXT,
	cost_price       TEXT
);

CREATE TABLE IF NOT EXISTS purchase_buy (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	part_number      TEXT NOT NULL,
	part_number_norm TEXT NOT NULL,
	client           TEXT,
	purpose          TEXT
);

CREATE TABLE IF NOT EXISTS purchase_want (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	part_number      TEXT NOT NULL,
	part_number_norm TEXT NOT NULL,
	client           TEXT,
	buy_customized   TEXT,
	purchase_amount  TEXT,
	shop             TEXT,
	assessed_value   TEXT
);

CREATE TABLE IF NOT EXISTS archive (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	part_number      TEXT NOT NULL,
	part_number_norm TEXT NOT NULL,
	spare_value      TEXT,
	spare_cost       TEXT,
	service_comment  TEXT,
	purpose          TEXT,
	amount           REAL,
	request_number   TEXT,
	category         TEXT
);

CREATE TABLE IF NOT EXISTS chassis (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	part_number      TEXT NOT NULL,
	part_number_norm TEXT NOT NULL,
	power_unit       TEXT,
	fan_unit         TEXT,
	comment          TEXT
);

CREATE TABLE IF NOT EXISTS statuses (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	request_number TEXT NOT NULL,
	status         TEXT
);

CREATE TABLE IF NOT EXISTS main_categories (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	category    TEXT NOT NULL,
	repair_cost REAL,
	labor_hours REAL
);

CREATE TABLE IF NOT EXISTS second_categories (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	letters  TEXT NOT NULL,
	category TEXT
);

CREATE TABLE IF NOT EXISTS collisions (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	description_content TEXT,
	category            TEXT
);

CREATE TABLE IF NOT EXISTS agreements (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	project_code TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS agreement_exclusions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	project_code TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_code_book_norm ON code_book(part_number_norm);
CREATE INDEX IF NOT EXISTS idx_purchase_buy_norm ON purchase_buy(part_number_norm);
CREATE INDEX IF NOT EXISTS idx_purchase_want_norm ON purchase_want(part_number_norm);
CREATE INDEX IF NOT EXISTS idx_archive_norm ON archive(part_number_norm);
CREATE INDEX IF NOT EXISTS idx_chassis_norm ON chassis(part_number_norm);
CREATE INDEX IF NOT EXISTS idx_statuses_request ON statuses(request_number);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// agreement filter: the row's purpose must reference an active project
// code that is not excluded.
const sqliteAgreementFilter = `EXISTS (
		SELECT 1 FROM agreements a
		WHERE INSTR(t.purpose, a.project_code) > 0
		  AND a.project_code NOT IN (SELECT project_code FROM agreement_exclusions)
	)`

// sqliteStrategy returns the predicate, ordering prefix and bound args
// for one search strategy. Containment hits order by closest normalized
// length, then primary key.
func sqliteStrategy(strategy Strategy, key string) (pred, order string, args []any) {
	switch strategy {
	case StrategyExact:
		return "t.part_number_norm = ?", "", []any{key}
	case StrategyContains:
		return "t.part_number_norm LIKE '%' || ? || '%'",
			"ABS(LENGTH(t.part_number_norm) - LENGTH(?)), ",
			[]any{key, key}
	default:
		return "INSTR(?, t.part_number_norm) > 0 AND t.part_number_norm <> ''",
			"ABS(LENGTH(t.part_number_norm) - LENGTH(?)), ",
			[]any{key, key}
	}
}

func (s *SQLiteStore) Search(ctx context.Context, kind Kind, strategy Strategy, key string) (*model.MatchResult, error) {
	if !kind.Searchable() {
		return nil, eris.Errorf("sqlite: kind %s is not searchable", kind)
	}
	if key == "" {
		return nil, nil
	}

	pred, order, args := sqliteStrategy(strategy, key)

	var (
		query string
		scan  func(rowScanner) (*model.MatchResult, error)
	)
	switch kind {
	case KindCodeBook:
		query = fmt.Sprintf(`
			SELECT t.part_number, COALESCE(t.purpose,''), COALESCE(t.warehouse,''), COALESCE(t.cost_price,'')
			FROM code_book t
			WHERE %s AND %s
			ORDER BY %st.cost_price DESC, t.id
			LIMIT 1`, pred, sqliteAgreementFilter, order)
		scan = scanCodeBook
	case KindPurchaseBuy:
		query = fmt.Sprintf(`
			SELECT t.part_number, COALESCE(t.client,''), COALESCE(t.purpose,'')
			FROM purchase_buy t
			WHERE %s AND %s
			ORDER BY %st.id
			LIMIT 1`, pred, sqliteAgreementFilter, order)
		scan = scanPurchaseBuy
	case KindPurchaseWant:
		query = fmt.Sprintf(`
			SELECT t.part_number, COALESCE(t.client,''), COALESCE(t.buy_customized,''),
			       COALESCE(t.purchase_amount,''), COALESCE(t.shop,''), COALESCE(t.assessed_value,'')
			FROM purchase_want t
			WHERE %s
			ORDER BY %st.purchase_amount DESC, t.id
			LIMIT 1`, pred, order)
		scan = scanPurchaseWant
	case KindArchive:
		query = fmt.Sprintf(`
			SELECT t.part_number_norm, COALESCE(t.spare_value,''), COALESCE(t.spare_cost,''),
			       COALESCE(t.service_comment,''), COALESCE(t.purpose,''), COALESCE(t.request_number,'')
			FROM archive t
			JOIN statuses s ON s.request_number = t.request_number
			WHERE %s
			  AND LOWER(REPLACE(s.status, ' ', '')) = '%s'
			  AND t.spare_value IS NOT NULL AND t.spare_value NOT IN ('', '-', '0')
			  AND NOT EXISTS (
				SELECT 1 FROM agreement_exclusions e WHERE INSTR(t.purpose, e.project_code) > 0
			  )
			ORDER BY %st.id
			LIMIT 1`, pred, shippedStatus, order)
		scan = scanArchive
	}

	res, err := scan(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: search %s", kind)
	}
	res.Kind = strategy.Kind()
	return res, nil
}

func scanCodeBook(row rowScanner) (*model.MatchResult, error) {
	var pn, purpose, warehouse, cost string
	if err := row.Scan(&pn, &purpose, &warehouse, &cost); err != nil {
		return nil, err
	}
	return &model.MatchResult{
		Value:      pn,
		Provenance: model.ProvenanceCodeBook,
		Fields: map[string]string{
			model.FieldPurpose:      purpose,
			model.FieldWarehouse:    warehouse,
			model.FieldPurchaseCost: cost,
		},
	}, nil
}

func scanPurchaseBuy(row rowScanner) (*model.MatchResult, error) {
	var pn, client, purpose string
	if err := row.Scan(&pn, &client, &purpose); err != nil {
		return nil, err
	}
	return &model.MatchResult{
		Value:      pn,
		Provenance: model.ProvenancePurchaseBuy,
		Fields: map[string]string{
			model.FieldEngineerComment: client,
			model.FieldPurpose:         purpose,
		},
	}, nil
}

func scanPurchaseWant(row rowScanner) (*model.MatchResult, error) {
	var pn, client, customized, amount, shop, assessed string
	if err := row.Scan(&pn, &client, &customized, &amount, &shop, &assessed); err != nil {
		return nil, err
	}
	return &model.MatchResult{
		Value:      pn,
		Provenance: model.ProvenancePurchaseWant,
		Fields: map[string]string{
			model.FieldPurchaseCost:    amount,
			model.FieldPurpose:         shop,
			model.FieldEngineerComment: wantComment(client, customized, assessed),
		},
	}, nil
}

// wantComment renders the purchase-want engineer note.
func wantComment(client, customized, assessed string) string {
	who := client
	if customized != "" {
		who = customized
	}
	return fmt.Sprintf("Want to buy for %s at %s", who, assessed)
}

func scanArchive(row rowScanner) (*model.MatchResult, error) {
	var norm, spare, cost, comment, purpose, request string
	if err := row.Scan(&norm, &spare, &cost, &comment, &purpose, &request); err != nil {
		return nil, err
	}
	return &model.MatchResult{
		Value:          spare,
		Provenance:     model.ProvenanceArchive,
		PartNumberNorm: norm,
		Fields: map[string]string{
			model.FieldPurchaseCost:    cost,
			model.FieldEngineerComment: comment,
			model.FieldPurpose:         purpose,
			model.FieldRequestNumber:   request,
		},
	}, nil
}

func (s *SQLiteStore) ArchiveQuantity(ctx context.Context, key string) (*ArchiveQuantity, error) {
	if key == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT SUM(t.amount), MIN(COALESCE(t.request_number,''))
		FROM archive t
		JOIN statuses s ON s.request_number = t.request_number
		WHERE t.part_number_norm = ?
		  AND LOWER(REPLACE(s.status, ' ', '')) = '`+shippedStatus+`'`,
		key,
	)
	var (
		qty     sql.NullFloat64
		request sql.NullString
	)
	if err := row.Scan(&qty, &request); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: archive quantity")
	}
	if !qty.Valid {
		return nil, nil
	}
	return &ArchiveQuantity{Quantity: qty.Float64, RequestNumber: request.String}, nil
}

func (s *SQLiteStore) Chassis(ctx context.Context, key string) (*model.ChassisInfo, error) {
	if key == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT part_number, COALESCE(power_unit,''), COALESCE(fan_unit,''), COALESCE(comment,'')
		FROM chassis
		WHERE part_number_norm LIKE ? || '%'
		ORDER BY id
		LIMIT 1`,
		key,
	)
	var info model.ChassisInfo
	if err := row.Scan(&info.PartNumber, &info.PowerUnit, &info.FanUnit, &info.Comment); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: chassis")
	}
	return &info, nil
}

func (s *SQLiteStore) ArchiveCategoryEntries(ctx context.Context) ([]CategoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT part_number, part_number_norm, category
		FROM archive
		WHERE category IS NOT NULL AND category <> ''
		ORDER BY part_number_norm, id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: archive category entries")
	}
	defer rows.Close()

	var out []CategoryEntry
	for rows.Next() {
		var e CategoryEntry
		if err := rows.Scan(&e.PartNumber, &e.PartNumberNorm, &e.Category); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan category entry")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate category entries")
}

func (s *SQLiteStore) RatesForCategory(ctx context.Context, category string) (*model.CategoryRule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT category, COALESCE(repair_cost, 0), COALESCE(labor_hours, 0)
		FROM main_categories
		WHERE category = ?
		LIMIT 1`,
		category,
	)
	return scanCategoryRule(row, "sqlite: rates for category")
}

func (s *SQLiteStore) CategoryByDescription(ctx context.Context, foldedDescription string) (*model.CategoryRule, error) {
	if foldedDescription == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT m.category, COALESCE(m.repair_cost, 0), COALESCE(m.labor_hours, 0)
		FROM collisions c
		JOIN main_categories m ON m.category = c.category
		WHERE COALESCE(c.description_content, '') <> ''
		  AND INSTR(?, LOWER(REPLACE(c.description_content, ' ', ''))) > 0
		ORDER BY c.id
		LIMIT 1`,
		foldedDescription,
	)
	return scanCategoryRule(row, "sqlite: category by description")
}

func (s *SQLiteStore) CategoryByPrefix(ctx context.Context, key string) (*model.CategoryRule, error) {
	if key == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT m.category, COALESCE(m.repair_cost, 0), COALESCE(m.labor_hours, 0)
		FROM second_categories s
		JOIN main_categories m ON m.category = s.category
		WHERE s.letters <> '' AND INSTR(?, s.letters) = 1
		ORDER BY LENGTH(s.letters) DESC, s.id
		LIMIT 1`,
		key,
	)
	return scanCategoryRule(row, "sqlite: category by prefix")
}

func scanCategoryRule(row rowScanner, wrap string) (*model.CategoryRule, error) {
	var rule model.CategoryRule
	if err := row.Scan(&rule.Category, &rule.RepairBaseCost, &rule.LaborBaseHours); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, eris.Wrap(err, wrap)
	}
	return &rule, nil
}

func (s *SQLiteStore) ReplaceCatalog(ctx context.Context, kind Kind, rows []Row) (int64, error) {
	spec := kind.Spec()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin replace")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+spec.Table); err != nil {
		return 0, eris.Wrapf(err, "sqlite: clear %s", spec.Table)
	}

	columns, placeholders := insertShape(spec, "?")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		spec.Table, strings.Join(columns, ", "), strings.Join(placeholders, ", "),
	))
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: prepare insert %s", spec.Table)
	}
	defer stmt.Close()

	var n int64
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, rowValues(spec, r)...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert into %s", spec.Table)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "sqlite: commit replace %s", spec.Table)
	}
	return n, nil
}

// numericColumns lists logical columns stored as REAL; ingestion parses
// them so aggregation works identically across drivers.
var numericColumns = map[string]bool{
	"amount":      true,
	"repair_cost": true,
	"labor_hours": true,
}

// insertShape returns the physical insert columns and placeholders for a
// kind. Placeholder "?" yields ?, ?, ...; "$" yields $1, $2, ...
func insertShape(spec Spec, style string) (columns, placeholders []string) {
	columns = append(columns, spec.Columns...)
	if spec.HasPartNumber {
		columns = append(columns, "part_number_norm")
	}
	for i := range columns {
		if style == "?" {
			placeholders = append(placeholders, "?")
		} else {
			placeholders = append(placeholders, "$"+strconv.Itoa(i+1))
		}
	}
	return columns, placeholders
}

// rowValues orders a row's values to match insertShape, deriving the
// normalized key column and parsing numeric columns.
func rowValues(spec Spec, r Row) []any {
	vals := make([]any, 0, len(spec.Columns)+1)
	for _, col := range spec.Columns {
		raw := r[col]
		if numericColumns[col] {
			if raw == "" {
				vals = append(vals, nil)
				continue
			}
			f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
			if err != nil {
				vals = append(vals, nil)
				continue
			}
			vals = append(vals, f)
			continue
		}
		vals = append(vals, raw)
	}
	if spec.HasPartNumber {
		vals = append(vals, partnum.Normalize(r["part_number"]))
	}
	return vals
}
