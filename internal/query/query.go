// Package query implements the read-only API surface as bounded prefix
// scans over Store. Every method returns (result, ClientError) rather than
// a bare error, mirroring the { success, data?, error? } envelope every
// downstream response carries.
package query

import (
	"bytes"
	"fmt"
	"time"

	"spinpet-indexer/internal/domain"
	"spinpet-indexer/internal/observability"
	"spinpet-indexer/internal/record"
	"spinpet-indexer/internal/store"
)

const maxLimit = 1000

// ClientError is a structured, user-facing failure with a stable code.
type ClientError struct {
	Code    string
	Message string
}

func (e *ClientError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func badRequest(format string, args ...any) *ClientError {
	return &ClientError{Code: "bad_request", Message: fmt.Sprintf(format, args...)}
}

// Order selects scan direction for paginated list operations.
type Order string

const (
	OrderAsc  Order = "order_asc"
	OrderDesc Order = "order_desc"
)

func (o Order) direction() store.Direction {
	if o == OrderDesc {
		return store.Reverse
	}
	return store.Forward
}

// Query is a read-only view over Store.
type Query struct {
	st store.Store
}

// New builds a Query over the given Store.
func New(st store.Store) *Query {
	return &Query{st: st}
}

func checkLimit(limit int) *ClientError {
	if limit <= 0 || limit > maxLimit {
		return badRequest("limit must be in (0, %d], got %d", maxLimit, limit)
	}
	return nil
}

// errCode extracts the stable code an observed ClientError carries, or ""
// for a nil (successful) result.
func errCode(cerr *ClientError) string {
	if cerr == nil {
		return ""
	}
	return cerr.Code
}

// recordQuery times one query operation and reports it under name,
// mirroring the teacher's observability.RecordQuery(operation, seconds,
// errCode) shape.
func recordQuery(name string, start time.Time, cerr *ClientError) {
	observability.RecordQuery(name, time.Since(start).Seconds(), errCode(cerr))
}

// ListTokens scans mt: and deduplicates by mint, since the same mint
// appears once per slot it was touched.
func (q *Query) ListTokens(limit int) (mints []string, cerr *ClientError) {
	start := time.Now()
	defer func() { recordQuery("list_tokens", start, cerr) }()

	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	rows, err := q.st.Scan(store.MintPrefix(), nil, maxLimit, store.Forward)
	if err != nil {
		return nil, badRequest("scan failed: %v", err)
	}

	seen := make(map[string]bool)
	for _, row := range rows {
		mint := mintFromMintKey(row.Key)
		if mint == "" || seen[mint] {
			continue
		}
		seen[mint] = true
		mints = append(mints, mint)
		if len(mints) >= limit {
			break
		}
	}
	return mints, nil
}

// mintFromMintKey extracts the mint segment from mt:{mint}:{slot_be}.
func mintFromMintKey(key []byte) string {
	parts := bytes.SplitN(key, []byte(":"), 3)
	if len(parts) < 2 {
		return ""
	}
	return string(parts[1])
}

// ListEvents scans a single mint's event log, bounded and ordered.
func (q *Query) ListEvents(mint string, fromKey []byte, limit int, order Order) (out []domain.Event, cerr *ClientError) {
	start := time.Now()
	defer func() { recordQuery("list_events", start, cerr) }()

	if mint == "" {
		return nil, badRequest("mint is required")
	}
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	rows, err := q.st.Scan(store.TokenEventPrefix(mint), fromKey, limit, order.direction())
	if err != nil {
		return nil, badRequest("scan failed: %v", err)
	}
	out = make([]domain.Event, 0, len(rows))
	for _, row := range rows {
		ev, err := record.UnmarshalEvent(row.Value)
		if err != nil {
			return nil, badRequest("corrupt event record: %v", err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// GetTokenDetails performs one point lookup per requested mint. Mints with
// no in: row are simply omitted from the result rather than erroring.
func (q *Query) GetTokenDetails(mints []string) (out []domain.Token, cerr *ClientError) {
	start := time.Now()
	defer func() { recordQuery("get_token_details", start, cerr) }()

	if len(mints) == 0 {
		return nil, badRequest("mints is required")
	}
	out = make([]domain.Token, 0, len(mints))
	for _, mint := range mints {
		b, err := q.st.Get(store.TokenSummaryKey(mint))
		if err == store.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, badRequest("lookup failed for %s: %v", mint, err)
		}
		tok, err := record.UnmarshalToken(b)
		if err != nil {
			return nil, badRequest("corrupt token record: %v", err)
		}
		out = append(out, tok)
	}
	return out, nil
}

// ListOrders scans the open orders on one side of a mint.
func (q *Query) ListOrders(mint, side string) (out []domain.Order, cerr *ClientError) {
	start := time.Now()
	defer func() { recordQuery("list_orders", start, cerr) }()

	if mint == "" || side == "" {
		return nil, badRequest("mint and side are required")
	}
	rows, err := q.st.Scan(store.OrderPrefix(mint, side), nil, maxLimit, store.Forward)
	if err != nil {
		return nil, badRequest("scan failed: %v", err)
	}
	out = make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		o, err := record.UnmarshalOrder(row.Value)
		if err != nil {
			return nil, badRequest("corrupt order record: %v", err)
		}
		out = append(out, o)
	}
	return out, nil
}

// ListUserEvents scans a user's activity log, optionally narrowed to one mint.
func (q *Query) ListUserEvents(user, mint string, fromKey []byte, limit int, order Order) (out []domain.UserActivity, cerr *ClientError) {
	start := time.Now()
	defer func() { recordQuery("list_user_events", start, cerr) }()

	if user == "" {
		return nil, badRequest("user is required")
	}
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	prefix := store.UserActivityPrefix(user)
	if mint != "" {
		prefix = store.UserMintActivityPrefix(user, mint)
	}
	rows, err := q.st.Scan(prefix, fromKey, limit, order.direction())
	if err != nil {
		return nil, badRequest("scan failed: %v", err)
	}
	out = make([]domain.UserActivity, 0, len(rows))
	for _, row := range rows {
		a, err := record.UnmarshalUserActivity(row.Value)
		if err != nil {
			return nil, badRequest("corrupt activity record: %v", err)
		}
		out = append(out, a)
	}
	return out, nil
}

// ListCandles performs a bounded range scan over kl:{mint}:{interval}:,
// optionally seeked to a from key and bounded above by to.
func (q *Query) ListCandles(mint string, interval domain.Interval, fromKey []byte, to *int64, limit int, order Order) (out []domain.Candle, cerr *ClientError) {
	start := time.Now()
	defer func() { recordQuery("list_candles", start, cerr) }()

	if mint == "" {
		return nil, badRequest("mint is required")
	}
	if _, ok := domain.IntervalSeconds[interval]; !ok {
		return nil, badRequest("unknown interval %q", interval)
	}
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	rows, err := q.st.Scan(store.CandlePrefix(mint, interval), fromKey, limit, order.direction())
	if err != nil {
		return nil, badRequest("scan failed: %v", err)
	}
	out = make([]domain.Candle, 0, len(rows))
	for _, row := range rows {
		c, err := record.UnmarshalCandle(row.Value)
		if err != nil {
			return nil, badRequest("corrupt candle record: %v", err)
		}
		if to != nil && c.BucketStartTs > *to {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
