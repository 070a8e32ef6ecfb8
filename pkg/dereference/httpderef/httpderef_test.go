package httpderef_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripplecache/ripplecache/pkg/dereference/httpderef"
	"github.com/ripplecache/ripplecache/pkg/redirect"
	"github.com/ripplecache/ripplecache/pkg/store/memstore"
)

func newDereferencer(t *testing.T) *httpderef.Dereferencer {
	t.Helper()

	d, err := httpderef.New(httpderef.Options{
		Redirects: redirect.New(0),
		Store:     memstore.NewFactory(memstore.New()),
	})
	require.NoError(t, err)

	return d
}

func TestDereferenceFetchesBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/turtle; charset=utf-8")
		_, _ = w.Write([]byte("<a> <b> <c> ."))
	}))
	defer srv.Close()

	d := newDereferencer(t)

	rep, err := d.Dereference(context.Background(), srv.URL)
	require.NoError(t, err)
	defer rep.Body.Close()

	assert.Equal(t, "text/turtle", rep.MediaType)

	body, err := io.ReadAll(rep.Body)
	require.NoError(t, err)
	assert.Equal(t, "<a> <b> <c> .", string(body))
}

func TestDereferenceRedirectReturnsNil(t *testing.T) {
	t.Parallel()

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer target.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusMovedPermanently)
	}))
	defer srv.Close()

	d := newDereferencer(t)

	rep, err := d.Dereference(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Nil(t, rep)
}

func TestDereferenceUnexpectedStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := newDereferencer(t)

	_, err := d.Dereference(context.Background(), srv.URL)
	assert.ErrorIs(t, err, httpderef.ErrUnexpectedStatus)
}
