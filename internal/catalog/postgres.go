package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/dtk-group/quote-engine/internal/db"
	"github.com/dtk-group/quote-engine/internal/model"
)

// PostgresStore implements Store on a pgx pool, for shared deployments.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres wraps an existing pool. Tests pass a pgxmock pool here.
func NewPostgres(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// OpenPostgres connects to the database URL and verifies the connection.
func OpenPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS code_book (
	id               SERIAL PRIMARY KEY,
	part_number      TEXT NOT NULL,
	part_number_norm TEXT NOT NULL,
	purpose          TEXT,
	warehouse        TEXT,
	cost_price       TEXT
);

CREATE TABLE IF NOT EXISTS purchase_buy (
	id               SERIAL PRIMARY KEY,
	part_number      TEXT NOT NULL,
	part_number_norm TEXT NOT NULL,
	client           TEXT,
	purpose          TEXT
);

CREATE TABLE IF NOT EXISTS purchase_want (
	id               SERIAL PRIMARY KEY,
	part_number      TEXT NOT NULL,
	part_number_norm TEXT NOT NULL,
	client           TEXT,
	buy_customized   TEXT,
	purchase_amount  TEXT,
	shop             TEXT,
	assessed_value   TEXT
);

CREATE TABLE IF NOT EXISTS archive (
	id               SERIAL PRIMARY KEY,
	part_number      TEXT NOT NULL,
	part_number_norm TEXT NOT NULL,
	spare_value      TEXT,
	spare_cost       TEXT,
	service_comment  TEXT,
	purpose          TEXT,
	amount           DOUBLE PRECISION,
	request_number   TEXT,
	category         TEXT
);

CREATE TABLE IF NOT EXISTS chassis (
	id               SERIAL PRIMARY KEY,
	part_number      TEXT NOT NULL,
	part_number_norm TEXT NOT NULL,
	power_unit       TEXT,
	fan_unit         TEXT,
	comment          TEXT
);

CREATE TABLE IF NOT EXISTS statuses (
	id             SERIAL PRIMARY KEY,
	request_number TEXT NOT NULL,
	status         TEXT
);

CREATE TABLE IF NOT EXISTS main_categories (
	id          SERIAL PRIMARY KEY,
	category    TEXT NOT NULL,
	repair_cost DOUBLE PRECISION,
	labor_hours DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS second_categories (
	id       SERIAL PRIMARY KEY,
	letters  TEXT NOT NULL,
	category TEXT
);

CREATE TABLE IF NOT EXISTS collisions (
	id                  SERIAL PRIMARY KEY,
	description_content TEXT,
	category            TEXT
);

CREATE TABLE IF NOT EXISTS agreements (
	id           SERIAL PRIMARY KEY,
	project_code TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS agreement_exclusions (
	id           SERIAL PRIMARY KEY,
	project_code TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_code_book_norm ON code_book(part_number_norm);
CREATE INDEX IF NOT EXISTS idx_purchase_buy_norm ON purchase_buy(part_number_norm);
CREATE INDEX IF NOT EXISTS idx_purchase_want_norm ON purchase_want(part_number_norm);
CREATE INDEX IF NOT EXISTS idx_archive_norm ON archive(part_number_norm);
CREATE INDEX IF NOT EXISTS idx_chassis_norm ON chassis(part_number_norm);
CREATE INDEX IF NOT EXISTS idx_statuses_request ON statuses(request_number);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const pgAgreementFilter = `EXISTS (
		SELECT 1 FROM agreements a
		WHERE POSITION(a.project_code IN t.purpose) > 0
		  AND a.project_code NOT IN (SELECT project_code FROM agreement_exclusions)
	)`

// pgStrategy mirrors sqliteStrategy with numbered parameters. The key
// binds once; $1 repeats in the ordering clause.
func pgStrategy(strategy Strategy) (pred, order string) {
	switch strategy {
	case StrategyExact:
		return "t.part_number_norm = $1", ""
	case StrategyContains:
		return "t.part_number_norm LIKE '%' || $1 || '%'",
			"ABS(LENGTH(t.part_number_norm) - LENGTH($1)), "
	default:
		return "POSITION(t.part_number_norm IN $1) > 0 AND t.part_number_norm <> ''",
			"ABS(LENGTH(t.part_number_norm) - LENGTH($1)), "
	}
}

func (s *PostgresStore) Search(ctx context.Context, kind Kind, strategy Strategy, key string) (*model.MatchResult, error) {
	if !kind.Searchable() {
		return nil, eris.Errorf("postgres: kind %s is not searchable", kind)
	}
	if key == "" {
		return nil, nil
	}

	pred, order := pgStrategy(strategy)

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
			LIMIT 1`, pred, pgAgreementFilter, order)
		scan = scanCodeBook
	case KindPurchaseBuy:
		query = fmt.Sprintf(`
			SELECT t.part_number, COALESCE(t.client,''), COALESCE(t.purpose,'')
			FROM purchase_buy t
			WHERE %s AND %s
			ORDER BY %st.id
			LIMIT 1`, pred, pgAgreementFilter, order)
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
				SELECT 1 FROM agreement_exclusions e WHERE POSITION(e.project_code IN t.purpose) > 0
			  )
			ORDER BY %st.id
			LIMIT 1`, pred, shippedStatus, order)
		scan = scanArchive
	}

	res, err := scan(s.pool.QueryRow(ctx, query, key))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: search %s", kind)
	}
	res.Kind = strategy.Kind()
	return res, nil
}

func (s *PostgresStore) ArchiveQuantity(ctx context.Context, key string) (*ArchiveQuantity, error) {
	if key == "" {
		return nil, nil
	}
	row := s.pool.QueryRow(ctx, `
		SELECT SUM(t.amount), MIN(COALESCE(t.request_number,''))
		FROM archive t
		JOIN statuses s ON s.request_number = t.request_number
		WHERE t.part_number_norm = $1
		  AND LOWER(REPLACE(s.status, ' ', '')) = '`+shippedStatus+`'`,
		key,
	)
	var (
		qty     *float64
		request *string
	)
	if err := row.Scan(&qty, &request); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: archive quantity")
	}
	if qty == nil {
		return nil, nil
	}
	out := &ArchiveQuantity{Quantity: *qty}
	if request != nil {
		out.RequestNumber = *request
	}
	return out, nil
}

func (s *PostgresStore) Chassis(ctx context.Context, key string) (*model.ChassisInfo, error) {
	if key == "" {
		return nil, nil
	}
	row := s.pool.QueryRow(ctx, `
		SELECT part_number, COALESCE(power_unit,''), COALESCE(fan_unit,''), COALESCE(comment,'')
		FROM chassis
		WHERE part_number_norm LIKE $1 || '%'
		ORDER BY id
		LIMIT 1`,
		key,
	)
	var info model.ChassisInfo
	if err := row.Scan(&info.PartNumber, &info.PowerUnit, &info.FanUnit, &info.Comment); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: chassis")
	}
	return &info, nil
}

func (s *PostgresStore) ArchiveCategoryEntries(ctx context.Context) ([]CategoryEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT part_number, part_number_norm, category
		FROM archive
		WHERE category IS NOT NULL AND category <> ''
		ORDER BY part_number_norm, id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: archive category entries")
	}
	defer rows.Close()

	var out []CategoryEntry
	for rows.Next() {
		var e CategoryEntry
		if err := rows.Scan(&e.PartNumber, &e.PartNumberNorm, &e.Category); err != nil {
			return nil, eris.Wrap(err, "postgres: scan category entry")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate category entries")
}

func (s *PostgresStore) RatesForCategory(ctx context.Context, category string) (*model.CategoryRule, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT category, COALESCE(repair_cost, 0), COALESCE(labor_hours, 0)
		FROM main_categories
		WHERE category = $1
		LIMIT 1`,
		category,
	)
	return scanCategoryRule(row, "postgres: rates for category")
}

func (s *PostgresStore) CategoryByDescription(ctx context.Context, foldedDescription string) (*model.CategoryRule, error) {
	if foldedDescription == "" {
		return nil, nil
	}
	row := s.pool.QueryRow(ctx, `
		SELECT m.category, COALESCE(m.repair_cost, 0), COALESCE(m.labor_hours, 0)
		FROM collisions c
		JOIN main_categories m ON m.category = c.category
		WHERE COALESCE(c.description_content, '') <> ''
		  AND POSITION(LOWER(REPLACE(c.description_content, ' ', '')) IN $1) > 0
		ORDER BY c.id
		LIMIT 1`,
		foldedDescription,
	)
	return scanCategoryRule(row, "postgres: category by description")
}

func (s *PostgresStore) CategoryByPrefix(ctx context.Context, key string) (*model.CategoryRule, error) {
	if key == "" {
		return nil, nil
	}
	row := s.pool.QueryRow(ctx, `
		SELECT m.category, COALESCE(m.repair_cost, 0), COALESCE(m.labor_hours, 0)
		FROM second_categories s
		JOIN main_categories m ON m.category = s.category
		WHERE s.letters <> '' AND POSITION(s.letters IN $1) = 1
		ORDER BY LENGTH(s.letters) DESC, s.id
		LIMIT 1`,
		key,
	)
	return scanCategoryRule(row, "postgres: category by prefix")
}

// ReplaceCatalog truncates the kind's table and reloads it with COPY
// inside one transaction.
func (s *PostgresStore) ReplaceCatalog(ctx context.Context, kind Kind, rows []Row) (int64, error) {
	spec := kind.Spec()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin replace")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "TRUNCATE "+spec.Table); err != nil {
		return 0, eris.Wrapf(err, "postgres: truncate %s", spec.Table)
	}

	columns, _ := insertShape(spec, "$")
	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		values = append(values, rowValues(spec, r))
	}

	n, err := db.CopyFromTx(ctx, tx, spec.Table, columns, values)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: reload %s", spec.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "postgres: commit replace %s", spec.Table)
	}
	return n, nil
}

var _ Store = (*PostgresStore)(nil)
var _ Store = (*SQLiteStore)(nil)
