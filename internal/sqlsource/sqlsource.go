// Package sqlsource pages feature tables straight from the ERP's MySQL
// database, for installs that run without the REST API.
package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/erpdesk/erpdesk/internal/api"
	"github.com/erpdesk/erpdesk/internal/catalog"
	"github.com/erpdesk/erpdesk/internal/tui/workspace/data"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Source is an open database.
type Source struct {
	db *sql.DB
}

// Open connects to dsn, which is either a mysql:// URL or a driver DSN
// (user:pass@tcp(host:3306)/db).
func Open(ctx context.Context, dsn string) (*Source, error) {
	driverDSN, err := DriverDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", driverDSN)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(4)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return &Source{db: db}, nil
}

// Close closes the pool.
func (s *Source) Close() error {
	return s.db.Close()
}

// DriverDSN converts a mysql:// URL into a driver DSN and validates either
// form. parseTime is always enabled.
func DriverDSN(dsn string) (string, error) {
	var cfg *mysql.Config
	if strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("invalid dsn: %w", err)
		}
		cfg = mysql.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		if u.Port() == "" {
			cfg.Addr = u.Host + ":3306"
		}
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		if cfg.DBName == "" {
			return "", fmt.Errorf("invalid dsn: database name missing")
		}
		for k, v := range u.Query() {
			if cfg.Params == nil {
				cfg.Params = map[string]string{}
			}
			cfg.Params[k] = v[0]
		}
	} else {
		var err error
		if cfg, err = mysql.ParseDSN(dsn); err != nil {
			return "", fmt.Errorf("invalid dsn: %w", err)
		}
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// Query describes what to page out of a table.
type Query struct {
	Table   string
	Columns []string
	Search  string
	// SearchColumns are matched with LIKE when Search is set.
	SearchColumns []string
	Status        string
	Limit         int
}

// QueryFor builds a query for a catalog feature. The id column is always
// selected; the label column is searched.
func QueryFor(f catalog.Feature, search, status string, limit int) (Query, error) {
	if f.Table == "" {
		return Query{}, fmt.Errorf("feature %s has no table configured", f.Href)
	}
	cols := []string{"id"}
	for _, c := range f.Columns {
		if c.Key != "id" {
			cols = append(cols, c.Key)
		}
	}
	label := f.Label
	if label == "" {
		label = "name"
	}
	return Query{
		Table:         f.Table,
		Columns:       cols,
		Search:        search,
		SearchColumns: []string{label},
		Status:        status,
		Limit:         limit,
	}, nil
}

func quote(ident string) (string, error) {
	if !identRe.MatchString(ident) {
		return "", fmt.Errorf("invalid identifier %q", ident)
	}
	return "`" + ident + "`", nil
}

// where returns the WHERE clause and its arguments.
func (q Query) where() (string, []any, error) {
	var conds []string
	var args []any
	if q.Search != "" && len(q.SearchColumns) > 0 {
		var ors []string
		for _, c := range q.SearchColumns {
			qc, err := quote(c)
			if err != nil {
				return "", nil, err
			}
			ors = append(ors, qc+" LIKE ?")
			args = append(args, "%"+q.Search+"%")
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}
	if q.Status != "" {
		conds = append(conds, "`status` = ?")
		args = append(args, q.Status)
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// Build returns the page query and the count query with their arguments.
// Rows are ordered newest id first, matching the API.
func (q Query) Build(page int) (selectSQL string, selectArgs []any, countSQL string, countArgs []any, err error) {
	table, err := quote(q.Table)
	if err != nil {
		return "", nil, "", nil, err
	}
	if len(q.Columns) == 0 {
		return "", nil, "", nil, fmt.Errorf("no columns to select")
	}
	cols := make([]string, len(q.Columns))
	for i, c := range q.Columns {
		if cols[i], err = quote(c); err != nil {
			return "", nil, "", nil, err
		}
	}
	where, args, err := q.where()
	if err != nil {
		return "", nil, "", nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	page = max(page, 1)

	selectSQL = fmt.Sprintf("SELECT %s FROM %s%s ORDER BY `id` DESC LIMIT ? OFFSET ?",
		strings.Join(cols, ", "), table, where)
	selectArgs = append(append([]any{}, args...), limit, (page-1)*limit)
	countSQL = fmt.Sprintf("SELECT COUNT(*) FROM %s%s", table, where)
	return selectSQL, selectArgs, countSQL, args, nil
}

// ByID returns the query selecting one row by primary key.
func (q Query) ByID() (string, error) {
	table, err := quote(q.Table)
	if err != nil {
		return "", err
	}
	cols := make([]string, len(q.Columns))
	for i, c := range q.Columns {
		if cols[i], err = quote(c); err != nil {
			return "", err
		}
	}
	if len(cols) == 0 {
		return "", fmt.Errorf("no columns to select")
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE `id` = ? LIMIT 1", strings.Join(cols, ", "), table), nil
}

// Get reads one row. It returns sql.ErrNoRows when id does not exist.
func (s *Source) Get(ctx context.Context, q Query, id string) (api.Record, error) {
	query, err := q.ByID()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", q.Table, err)
	}
	defer rows.Close()
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", q.Table, err)
	}
	if len(recs) == 0 {
		return nil, sql.ErrNoRows
	}
	return recs[0], nil
}

// PageFunc returns a page source for the fetcher.
func (s *Source) PageFunc(q Query) data.PageFunc[api.Record] {
	return func(ctx context.Context, page int) (data.Page[api.Record], error) {
		selectSQL, selectArgs, countSQL, countArgs, err := q.Build(page)
		if err != nil {
			return data.Page[api.Record]{}, err
		}

		var total int
		if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
			return data.Page[api.Record]{}, fmt.Errorf("counting %s: %w", q.Table, err)
		}

		rows, err := s.db.QueryContext(ctx, selectSQL, selectArgs...)
		if err != nil {
			return data.Page[api.Record]{}, fmt.Errorf("querying %s: %w", q.Table, err)
		}
		defer rows.Close()

		items, err := scanRecords(rows)
		if err != nil {
			return data.Page[api.Record]{}, fmt.Errorf("reading %s: %w", q.Table, err)
		}

		limit := q.Limit
		if limit <= 0 {
			limit = 20
		}
		return data.Page[api.Record]{
			Items:    items,
			LastPage: LastPage(total, limit),
			Total:    &total,
		}, nil
	}
}

// LastPage is the number of pages needed for total rows, at least 1.
func LastPage(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 1
	}
	return (total + limit - 1) / limit
}

func scanRecords(rows *sql.Rows) ([]api.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []api.Record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(api.Record, len(cols))
		for i, c := range cols {
			rec[c] = normalize(vals[i])
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// normalize turns driver values into what the JSON API would have sent.
func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return x
	}
}
