package database

import (
	"context"
	"database/sql/driver"
	"math/rand"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Primary SQLite result codes for a busy or locked database.
const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// busyMessages are SQLite's own texts for SQLITE_BUSY and SQLITE_LOCKED, for
// drivers whose errors carry no code (mattn/go-sqlite3 reports them as-is).
var busyMessages = []string{
	"database is locked",
	"database table is locked",
	"SQLITE_BUSY",
	"SQLITE_LOCKED",
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}

	// modernc.org/sqlite errors expose the (possibly extended) result code.
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		primary := coded.Code() & 0xff
		return primary == sqliteBusy || primary == sqliteLocked
	}

	msg := err.Error()
	for _, m := range busyMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// retrier re-runs an operation while it fails with a busy error, backing off
// exponentially with up to 25% jitter.
type retrier struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func newRetrier(maxRetries int) retrier {
	return retrier{
		maxRetries: maxRetries,
		baseDelay:  50 * time.Millisecond,
		maxDelay:   2 * time.Second,
	}
}

func (r retrier) delay(attempt int) time.Duration {
	d := r.baseDelay * time.Duration(1<<attempt)
	d += time.Duration(rand.Int63n(int64(d/4) + 1))
	if d > r.maxDelay {
		d = r.maxDelay
	}
	return d
}

func (r retrier) do(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !isBusyError(err) || attempt >= r.maxRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.delay(attempt)):
		}
	}
}

// retryWithBackoff runs fn with up to maxRetries retries on busy errors.
func retryWithBackoff(ctx context.Context, maxRetries int, fn func() error) error {
	return newRetrier(maxRetries).do(ctx, fn)
}

// driverConnector adapts a driver.Driver without OpenConnector to driver.Connector.
type driverConnector struct {
	driver driver.Driver
	dsn    string
}

func newDriverConnector(drv driver.Driver, dsn string) *driverConnector {
	return &driverConnector{driver: drv, dsn: dsn}
}

func (dc *driverConnector) Connect(_ context.Context) (driver.Conn, error) {
	return dc.driver.Open(dc.dsn)
}

func (dc *driverConnector) Driver() driver.Driver {
	return dc.driver
}

// retryConnector hands out connections whose statements are retried on
// SQLITE_BUSY.
type retryConnector struct {
	connector driver.Connector
	retry     retrier
}

func newRetryConnector(connector driver.Connector, maxRetries int) *retryConnector {
	return &retryConnector{connector: connector, retry: newRetrier(maxRetries)}
}

func (rc *retryConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := rc.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return &retryConn{conn: conn, retry: rc.retry}, nil
}

func (rc *retryConnector) Driver() driver.Driver {
	return rc.connector.Driver()
}

type retryConn struct {
	conn  driver.Conn
	retry retrier
}

func (c *retryConn) Prepare(query string) (driver.Stmt, error) {
	stmt, err := c.conn.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &retryStmt{stmt: stmt, retry: c.retry}, nil
}

func (c *retryConn) Close() error {
	return c.conn.Close()
}

func (c *retryConn) Begin() (driver.Tx, error) {
	var tx driver.Tx
	err := c.retry.do(context.Background(), func() (err error) {
		tx, err = c.conn.Begin() //nolint:staticcheck // required by driver.Conn
		return err
	})
	return tx, err
}

func (c *retryConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	beginner, ok := c.conn.(driver.ConnBeginTx)
	if !ok {
		return c.Begin()
	}
	var tx driver.Tx
	err := c.retry.do(ctx, func() (err error) {
		tx, err = beginner.BeginTx(ctx, opts)
		return err
	})
	return tx, err
}

func (c *retryConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	preparer, ok := c.conn.(driver.ConnPrepareContext)
	if !ok {
		return c.Prepare(query)
	}
	stmt, err := preparer.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return &retryStmt{stmt: stmt, retry: c.retry}, nil
}

func (c *retryConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	execer, ok := c.conn.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	var result driver.Result
	err := c.retry.do(ctx, func() (err error) {
		result, err = execer.ExecContext(ctx, query, args)
		return err
	})
	return result, err
}

func (c *retryConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	queryer, ok := c.conn.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	var rows driver.Rows
	err := c.retry.do(ctx, func() (err error) {
		rows, err = queryer.QueryContext(ctx, query, args)
		return err
	})
	return rows, err
}

func (c *retryConn) Ping(ctx context.Context) error {
	if pinger, ok := c.conn.(driver.Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

func (c *retryConn) ResetSession(ctx context.Context) error {
	if resetter, ok := c.conn.(driver.SessionResetter); ok {
		return resetter.ResetSession(ctx)
	}
	return nil
}

func (c *retryConn) IsValid() bool {
	if validator, ok := c.conn.(driver.Validator); ok {
		return validator.IsValid()
	}
	return true
}

type retryStmt struct {
	stmt  driver.Stmt
	retry retrier
}

func (s *retryStmt) Close() error {
	return s.stmt.Close()
}

func (s *retryStmt) NumInput() int {
	return s.stmt.NumInput()
}

func (s *retryStmt) Exec(args []driver.Value) (driver.Result, error) {
	var result driver.Result
	err := s.retry.do(context.Background(), func() (err error) {
		result, err = s.stmt.Exec(args) //nolint:staticcheck // required by driver.Stmt
		return err
	})
	return result, err
}

func (s *retryStmt) Query(args []driver.Value) (driver.Rows, error) {
	var rows driver.Rows
	err := s.retry.do(context.Background(), func() (err error) {
		rows, err = s.stmt.Query(args) //nolint:staticcheck // required by driver.Stmt
		return err
	})
	return rows, err
}

func (s *retryStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	execer, ok := s.stmt.(driver.StmtExecContext)
	if !ok {
		return s.Exec(namedToValues(args))
	}
	var result driver.Result
	err := s.retry.do(ctx, func() (err error) {
		result, err = execer.ExecContext(ctx, args)
		return err
	})
	return result, err
}

func (s *retryStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	queryer, ok := s.stmt.(driver.StmtQueryContext)
	if !ok {
		return s.Query(namedToValues(args))
	}
	var rows driver.Rows
	err := s.retry.do(ctx, func() (err error) {
		rows, err = queryer.QueryContext(ctx, args)
		return err
	})
	return rows, err
}

func namedToValues(args []driver.NamedValue) []driver.Value {
	values := make([]driver.Value, len(args))
	for i, arg := range args {
		values[i] = arg.Value
	}
	return values
}
