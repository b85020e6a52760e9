// Package record encodes and decodes the domain types stored as Store
// values. JSON is used because no example repo in the corpus serializes
// values for an embedded key-value engine — the teacher's storage stack
// (Postgres, ClickHouse) relies on the database's own column typing instead
// of an application-level wire format, so there is no library precedent to
// follow here; JSON keeps values human-inspectable, which matches the
// spec's own preference for printable, inspectable keys.
package record

import (
	"encoding/json"
	"fmt"

	"spinpet-indexer/internal/domain"
)

func Marshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Every value here is a plain struct of strings/ints; a marshal
		// failure indicates a programming error, not a runtime condition.
		panic(fmt.Sprintf("record: marshal failed: %v", err))
	}
	return b
}

func UnmarshalEvent(b []byte) (domain.Event, error) {
	var e domain.Event
	err := json.Unmarshal(b, &e)
	return e, err
}

func UnmarshalToken(b []byte) (domain.Token, error) {
	var t domain.Token
	err := json.Unmarshal(b, &t)
	return t, err
}

func UnmarshalOrder(b []byte) (domain.Order, error) {
	var o domain.Order
	err := json.Unmarshal(b, &o)
	return o, err
}

func UnmarshalCandle(b []byte) (domain.Candle, error) {
	var c domain.Candle
	err := json.Unmarshal(b, &c)
	return c, err
}

func UnmarshalUserActivity(b []byte) (domain.UserActivity, error) {
	var u domain.UserActivity
	err := json.Unmarshal(b, &u)
	return u, err
}
