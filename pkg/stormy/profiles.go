package stormy

import (
	"context"
	"fmt"
	"net/url"

	"github.com/samber/lo"
)

const (
	getProfiles = "/xrpc/app.bsky.actor.getProfiles"

	// MaxProfiles is the most actors one getProfiles call accepts.
	MaxProfiles = 25
)

type Profile struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}

type profilesResponse struct {
	Profiles []*Profile `json:"profiles"`
}

// GetProfiles fetches up to MaxProfiles profiles by DID or handle.
// https://docs.bsky.app/docs/api/app-bsky-actor-get-profiles
func (c *Client) GetProfiles(ctx context.Context, actors ...string) ([]*Profile, error) {
	if len(actors) > MaxProfiles {
		return nil, fmt.Errorf("getProfiles: %d actors requested, at most %d allowed", len(actors), MaxProfiles)
	}

	res, err := c.r(ctx).
		SetQueryParamsFromValues(url.Values{"actors": actors}).
		SetResult(&profilesResponse{}).
		Get(getProfiles)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("getProfiles: unexpected status %d", res.StatusCode())
	}

	return res.Result().(*profilesResponse).Profiles, nil
}

// Handles maps each DID to its handle, batching requests. DIDs the AppView does not know are absent.
func (c *Client) Handles(ctx context.Context, dids ...string) (map[string]string, error) {
	handles := make(map[string]string, len(dids))

	for _, batch := range lo.Chunk(lo.Uniq(dids), MaxProfiles) {
		profiles, err := c.GetProfiles(ctx, batch...)
		if err != nil {
			return nil, err
		}
		for _, p := range profiles {
			if p.Handle != "" {
				handles[p.DID] = p.Handle
			}
		}
	}

	return handles, nil
}
