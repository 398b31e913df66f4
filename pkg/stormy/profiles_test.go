package stormy_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"skyfed/pkg/stormy"
)

func TestGetProfiles(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/xrpc/app.bsky.actor.getProfiles", r.URL.Path)
		require.Equal(t, []string{"did:plc:alice", "did:plc:bob"}, r.URL.Query()["actors"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"profiles":[{"did":"did:plc:alice","handle":"alice.bsky.social"},{"did":"did:plc:bob","handle":"bob.bsky.social"}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := stormy.NewClient(&stormy.ClientConfig{
		BaseURL:           srv.URL,
		TransportSettings: stormy.DefaultConfig.TransportSettings,
	})
	defer client.Close()

	profiles, err := client.GetProfiles(context.Background(), "did:plc:alice", "did:plc:bob")
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	require.Equal(t, "alice.bsky.social", profiles[0].Handle)
	require.Equal(t, "did:plc:bob", profiles[1].DID)
}

func TestGetProfilesError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := stormy.NewClient(&stormy.ClientConfig{
		BaseURL:           srv.URL,
		TransportSettings: stormy.DefaultConfig.TransportSettings,
	})
	defer client.Close()

	_, err := client.GetProfiles(context.Background(), "did:plc:alice")
	require.Error(t, err)
}

func TestHandles(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		actors := r.URL.Query()["actors"]
		profiles := lo.FilterMap(actors, func(did string, _ int) (string, bool) {
			if did == "did:plc:unknown" {
				return "", false
			}
			return fmt.Sprintf(`{"did":%q,"handle":%q}`, did, strings.TrimPrefix(did, "did:plc:")+".bsky.social"), true
		})

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"profiles":[%s]}`, strings.Join(profiles, ","))
	}))
	defer srv.Close()

	client := stormy.NewClient(&stormy.ClientConfig{
		BaseURL:           srv.URL,
		TransportSettings: stormy.DefaultConfig.TransportSettings,
	})
	defer client.Close()

	dids := lo.Times(stormy.MaxProfiles+5, func(i int) string { return fmt.Sprintf("did:plc:u%d", i) })
	dids = append(dids, "did:plc:unknown", "did:plc:u0")

	handles, err := client.Handles(context.Background(), dids...)
	require.NoError(t, err)

	require.Len(t, handles, stormy.MaxProfiles+5)
	require.Equal(t, "u7.bsky.social", handles["did:plc:u7"])
	require.NotContains(t, handles, "did:plc:unknown")
	require.Equal(t, int32(2), calls.Load())
}

func TestGetProfilesTooMany(t *testing.T) {
	t.Parallel()

	client := stormy.NewClient(stormy.DefaultConfig)
	defer client.Close()

	_, err := client.GetProfiles(context.Background(), lo.Times(stormy.MaxProfiles+1, func(i int) string { return "did" })...)
	require.Error(t, err)
}
