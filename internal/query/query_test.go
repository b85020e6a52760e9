package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spinpet-indexer/internal/domain"
	"spinpet-indexer/internal/indexer"
	"spinpet-indexer/internal/store"
	"spinpet-indexer/internal/store/memstore"
)

func seedTwoTokens(t *testing.T) (*Query, *memstore.Store) {
	t.Helper()
	ms := memstore.New()
	ix := indexer.New(ms)

	_, _, err := ix.Apply(domain.Event{
		Envelope:     domain.Envelope{Kind: domain.EventTokenCreated, Mint: "M1", Slot: 1, Signature: "s1"},
		TokenCreated: &domain.TokenCreatedPayload{Name: "One"},
	})
	require.NoError(t, err)
	_, _, err = ix.Apply(domain.Event{
		Envelope:     domain.Envelope{Kind: domain.EventTokenCreated, Mint: "M2", Slot: 2, Signature: "s2"},
		TokenCreated: &domain.TokenCreatedPayload{Name: "Two"},
	})
	require.NoError(t, err)
	return New(ms), ms
}

func TestListTokensDeduplicatesByMint(t *testing.T) {
	q, ms := seedTwoTokens(t)
	// Touch M1 again at a later slot: a second mt: row for the same mint.
	require.NoError(t, ms.Put(store.MintKey("M1", 50), nil))

	mints, cerr := q.ListTokens(10)
	require.Nil(t, cerr)
	assert.ElementsMatch(t, []string{"M1", "M2"}, mints)
}

func TestListTokensRejectsOversizedLimit(t *testing.T) {
	q, _ := seedTwoTokens(t)
	_, cerr := q.ListTokens(5000)
	require.NotNil(t, cerr)
	assert.Equal(t, "bad_request", cerr.Code)
}

func TestGetTokenDetailsSkipsUnknownMints(t *testing.T) {
	q, _ := seedTwoTokens(t)
	toks, cerr := q.GetTokenDetails([]string{"M1", "does-not-exist"})
	require.Nil(t, cerr)
	require.Len(t, toks, 1)
	assert.Equal(t, "M1", toks[0].Mint)
}

func TestListEventsPagingRoundTrip(t *testing.T) {
	ms := memstore.New()
	ix := indexer.New(ms)
	for i := uint64(1); i <= 5; i++ {
		_, _, err := ix.Apply(domain.Event{
			Envelope: domain.Envelope{Kind: domain.EventBuySell, Mint: "M1", Slot: i, Signature: string(rune('a' + i))},
			BuySell:  &domain.BuySellPayload{TokenAmount: "1", SolAmount: "1", LatestPrice: "1"},
		})
		require.NoError(t, err)
	}
	q := New(ms)

	full, cerr := q.ListEvents("M1", nil, 100, OrderAsc)
	require.Nil(t, cerr)
	require.Len(t, full, 5)

	var paged []domain.Event
	var cursor []byte
	for {
		page, cerr := q.ListEvents("M1", cursor, 2, OrderAsc)
		require.Nil(t, cerr)
		if len(page) == 0 {
			break
		}
		paged = append(paged, page...)
		if len(page) < 2 {
			break
		}
		cursor = []byte(store.TokenEventKey(page[len(page)-1].Mint, page[len(page)-1].Slot+1, "", ""))
	}
	assert.Len(t, paged, 5)
}

func TestListOrdersRequiresMintAndSide(t *testing.T) {
	q, _ := seedTwoTokens(t)
	_, cerr := q.ListOrders("", "up")
	require.NotNil(t, cerr)
	assert.Equal(t, "bad_request", cerr.Code)
}

func TestListCandlesRejectsUnknownInterval(t *testing.T) {
	q, _ := seedTwoTokens(t)
	_, cerr := q.ListCandles("M1", domain.Interval("bogus"), nil, nil, 10, OrderAsc)
	require.NotNil(t, cerr)
	assert.Equal(t, "bad_request", cerr.Code)
}
