package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/items/page", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("pageNo"))
		assert.Equal(t, "10", r.URL.Query().Get("pageSize"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"total": 25,
			"pages": 3,
			"list": [
				{"id": 11, "name": "Widget", "price": 1999},
				{"id": 12, "name": "Gadget"}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	page, err := client.FetchPage(context.Background(), PageQuery{PageNo: 2, PageSize: 10})
	require.NoError(t, err)

	assert.Equal(t, int64(25), page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(11), page.Items[0].ID)
	require.NotNil(t, page.Items[0].Price)
	assert.Equal(t, int64(1999), *page.Items[0].Price)
	assert.Nil(t, page.Items[1].Price)
}

func TestFetchPageWithoutTotals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"list": [{"id": 1, "name": "Widget"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	page, err := client.FetchPage(context.Background(), PageQuery{PageNo: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Zero(t, page.TotalItems)
	assert.Zero(t, page.TotalPages)
	assert.Len(t, page.Items, 1)
}

func TestFetchPageServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.FetchPage(context.Background(), PageQuery{PageNo: 1, PageSize: 10})
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestFetchPageMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.FetchPage(context.Background(), PageQuery{PageNo: 1, PageSize: 10})
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestFetchItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/items/42", r.URL.Path)
		w.Write([]byte(`{"id": 42, "name": "Widget", "brand": "Acme"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	item, err := client.FetchItem(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), item.ID)
	assert.Equal(t, "Widget", item.Name)
	require.NotNil(t, item.Brand)
	assert.Equal(t, "Acme", *item.Brand)
}

func TestFetchItemNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.FetchItem(context.Background(), 404)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestFetchPageContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(srv.URL)
	_, err := client.FetchPage(ctx, PageQuery{PageNo: 1, PageSize: 10})
	assert.Error(t, err)
}
