package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"snapback/internal/httpclient"
	"snapback/internal/replica"
)

const self = "http://cn1.test"

func newTestClient(t *testing.T, h http.Handler) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	hc := httpclient.New(httpclient.Config{
		Timeout:      time.Second,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: time.Millisecond,
	}, nil)
	return New(srv.URL, WithHTTPClient(hc), WithLogger(zaptest.NewLogger(t)))
}

func TestClient_NodeUsers(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/full/users/content_node/all", r.URL.Path)
		assert.Equal(t, self, r.URL.Query().Get("creator_node_endpoint"))
		w.Write([]byte(`{"data":[
			{"user_id":1,"wallet":"0xa","primary":"http://cn1.test","secondary1":"http://cn2.test","secondary2":"http://cn3.test"},
			{"user_id":2,"wallet":"0xb","primary":"http://cn2.test","secondary1":"http://cn1.test","secondary2":null}
		]}`))
	}))

	users, err := c.NodeUsers(context.Background(), self)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, replica.Assignment{
		UserID:     1,
		Wallet:     "0xa",
		Primary:    "http://cn1.test",
		Secondary1: "http://cn2.test",
		Secondary2: "http://cn3.test",
	}, users[0])
	assert.Empty(t, users[1].Secondary2)
}

func TestClient_MissingField(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"user_id":1,"wallet":"0xa","primary":"p","secondary1":"s1"}]}`))
	}))

	_, err := c.NodeUsers(context.Background(), self)
	require.ErrorIs(t, err, ErrMalformedResponse)
	assert.Contains(t, err.Error(), "secondary2")
}

func TestClient_UsersPage(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "50", q.Get("prev_user_id"))
		assert.Equal(t, "100", q.Get("max_users"))
		w.Write([]byte(`{"data":[]}`))
	}))

	users, err := c.UsersPage(context.Background(), self, 50, 100)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestClient_LatestUserID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/user", r.URL.Path)
		w.Write([]byte(`{"data":4242}`))
	}))

	id, err := c.LatestUserID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4242), id)
}

func TestClient_NoDiscovery(t *testing.T) {
	_, err := New("").NodeUsers(context.Background(), self)
	assert.ErrorIs(t, err, ErrNoDiscovery)
}

type fakeFetcher struct {
	nodeUsers    []replica.Assignment
	nodeErr      error
	primaryUsers []replica.Assignment
	primaryErr   error
	legacyCalls  int
}

func (f *fakeFetcher) NodeUsers(context.Context, string) ([]replica.Assignment, error) {
	return f.nodeUsers, f.nodeErr
}

func (f *fakeFetcher) PrimaryUsers(context.Context, string) ([]replica.Assignment, error) {
	f.legacyCalls++
	return f.primaryUsers, f.primaryErr
}

func TestResolve(t *testing.T) {
	all := []replica.Assignment{{UserID: 1, Wallet: "a"}, {UserID: 2, Wallet: "b"}}
	primaries := []replica.Assignment{{UserID: 1, Wallet: "a"}}

	t.Run("full query", func(t *testing.T) {
		f := &fakeFetcher{nodeUsers: all}
		users, err := Resolve(context.Background(), f, self, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.Equal(t, all, users)
		assert.Zero(t, f.legacyCalls)
	})

	t.Run("legacy fallback", func(t *testing.T) {
		f := &fakeFetcher{nodeErr: errors.New("404"), primaryUsers: primaries}
		users, err := Resolve(context.Background(), f, self, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.Equal(t, primaries, users)
	})

	t.Run("malformed full query does not fall back", func(t *testing.T) {
		f := &fakeFetcher{
			nodeErr:      fmt.Errorf("%w: user 1 missing secondary2", ErrMalformedResponse),
			primaryUsers: primaries,
		}
		_, err := Resolve(context.Background(), f, self, zaptest.NewLogger(t))
		require.ErrorIs(t, err, ErrMalformedResponse)
		assert.NotErrorIs(t, err, ErrUnavailable)
		assert.Zero(t, f.legacyCalls)
	})

	t.Run("both fail", func(t *testing.T) {
		f := &fakeFetcher{
			nodeErr:    errors.New("404"),
			primaryErr: ErrMalformedResponse,
		}
		_, err := Resolve(context.Background(), f, self, nil)
		require.ErrorIs(t, err, ErrUnavailable)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestResolve_AgainstServer(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/creator_node":
			w.Write([]byte(`{"data":[{"user_id":7,"wallet":"0xc","primary":"http://cn1.test","secondary1":"","secondary2":""}]}`))
		default:
			http.NotFound(w, r)
		}
	}))

	users, err := Resolve(context.Background(), c, self, nil)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(7), users[0].UserID)
}

func TestResolve_MalformedFullQueryAgainstServer(t *testing.T) {
	var legacyHits int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/full/users/content_node/all":
			w.Write([]byte(`{"data":[{"user_id":1,"wallet":"0xa","primary":"http://cn1.test","secondary1":"http://cn2.test"}]}`))
		case "/users/creator_node":
			legacyHits++
			w.Write([]byte(`{"data":[{"user_id":7,"wallet":"0xc","primary":"http://cn1.test","secondary1":"","secondary2":""}]}`))
		default:
			http.NotFound(w, r)
		}
	}))

	users, err := Resolve(context.Background(), c, self, zaptest.NewLogger(t))
	require.ErrorIs(t, err, ErrMalformedResponse)
	assert.Contains(t, err.Error(), "secondary2")
	assert.Nil(t, users)
	assert.Zero(t, legacyHits, "a malformed response must not fall back to the legacy query")
}
