package objectstore_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crickyard/registration/go/clients/objectstore"
	"github.com/crickyard/registration/go/internal/storage"
)

func TestPutReturnsRequestURLOnEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/registrations/req-1/team/receipt", r.URL.Path)
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "content", string(body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := objectstore.NewClient(srv.URL)
	url, err := c.Put(context.Background(), "registrations/req-1/team/receipt", "application/pdf", []byte("content"))

	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/registrations/req-1/team/receipt", url)
}

func TestPutPrefersProviderURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		// Provider suffixed the filename to disambiguate.
		_, _ = w.Write([]byte("https://cdn.example.com/registrations/req-1/team/receipt-2"))
	}))
	defer srv.Close()

	c := objectstore.NewClient(srv.URL)
	url, err := c.Put(context.Background(), "registrations/req-1/team/receipt", "application/pdf", []byte("content"))

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/registrations/req-1/team/receipt-2", url)
}

func TestPutClassifies4xxAsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	c := objectstore.NewClient(srv.URL)
	_, err := c.Put(context.Background(), "a/b", "application/pdf", []byte("content"))

	require.Error(t, err)
	assert.True(t, storage.IsPermanent(err))
}

func TestPutClassifies5xxAsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "try later", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := objectstore.NewClient(srv.URL)
	_, err := c.Put(context.Background(), "a/b", "application/pdf", []byte("content"))

	require.Error(t, err)
	assert.False(t, storage.IsPermanent(err))
}

func TestPutClassifiesNetworkErrorAsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	c := objectstore.NewClient(srv.URL)
	_, err := c.Put(context.Background(), "a/b", "application/pdf", []byte("content"))

	require.Error(t, err)
	assert.False(t, storage.IsPermanent(err))
}
