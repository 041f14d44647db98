package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the log-side view of a failed request: the storefront code with its
// HTTP mapping, every wrapped layer, and the database error underneath when there is one.
type ErrorDump struct {
	Message   string
	Code      Code
	Status    int
	Retryable bool
	Chain     []string
	DB        *DBError
}

// DBError is the driver-level cause of a failure.
type DBError struct {
	Driver     string
	Code       string
	Constraint string
	Table      string
	Column     string
	Detail     string
}

// Dump flattens err for logging. Untyped errors are reported as INTERNAL_ERROR, the
// code WriteError answers them with.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	code := CodeInternal
	if typed := As(err); typed != nil {
		code = typed.Code()
	}
	meta := MetadataFor(code)
	d := ErrorDump{
		Message:   err.Error(),
		Code:      code,
		Status:    meta.HTTPStatus,
		Retryable: meta.Retryable,
		DB:        dbCause(err),
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	return d
}

func dbCause(err error) *DBError {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &DBError{
			Driver:     "pgx",
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     firstNonEmpty(pgxErr.Detail, pgxErr.Message),
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &DBError{
			Driver:     "pq",
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     firstNonEmpty(pqErr.Detail, pqErr.Message),
		}
	}

	// sqlite only reports constraint failures as text, e.g.
	// "UNIQUE constraint failed: cart_items.user_id, cart_items.product_id".
	msg := err.Error()
	idx := strings.Index(msg, " constraint failed")
	if idx < 0 {
		return nil
	}
	kind := msg[:idx]
	if space := strings.LastIndex(kind, " "); space >= 0 {
		kind = kind[space+1:]
	}
	out := &DBError{Driver: "sqlite", Code: strings.ToLower(kind), Detail: msg}
	if _, target, ok := strings.Cut(msg[idx:], ": "); ok {
		out.Constraint = strings.TrimSpace(target)
		if table, _, ok := strings.Cut(out.Constraint, "."); ok {
			out.Table = table
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Fields renders the dump as log fields, omitting empty database attributes. The code
// itself is left to the logger, which stamps error_code on every error line.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error_chain": d.Chain,
		"http_status": d.Status,
		"retryable":   d.Retryable,
	}
	if d.DB == nil {
		return fields
	}
	for key, value := range map[string]string{
		"db_driver":     d.DB.Driver,
		"db_code":       d.DB.Code,
		"db_constraint": d.DB.Constraint,
		"db_table":      d.DB.Table,
		"db_column":     d.DB.Column,
		"db_detail":     d.DB.Detail,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}
