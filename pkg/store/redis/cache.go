// Package redis caches completed analysis results keyed by a fingerprint
// of the inputs and configuration, so resubmitting an identical dataset
// does not recompute the reconciliation.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/glottolab/lateral/pkg/engine"
	"github.com/glottolab/lateral/pkg/matrix"
	"github.com/glottolab/lateral/pkg/tree"
)

const keyPrefix = "lateral:result:"

type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{client: client, ttl: ttl}
}

// Fingerprint derives a stable key from the tree topology, the character
// matrix and the run configuration. Any change to any of them changes the
// key.
func Fingerprint(t *tree.Tree, m *matrix.Matrix, cfg engine.Config) string {
	h := sha256.New()

	for _, id := range t.Postorder() {
		fmt.Fprintf(h, "n:%s:%d\n", t.Name(id), t.Parent(id))
	}
	for i := 0; i < m.Len(); i++ {
		c := m.At(i)
		fmt.Fprintf(h, "c:%s:%g:", c.ID, c.Weight)
		taxa, _ := m.PresentTaxa(c.ID)
		for _, taxon := range taxa {
			fmt.Fprintf(h, "%s,", taxon)
		}
		fmt.Fprintln(h)
	}
	groups := make([]string, 0)
	for _, taxon := range t.Taxa() {
		if g, ok := m.GroupOf(taxon); ok {
			groups = append(groups, taxon+"="+g)
		}
	}
	sort.Strings(groups)
	for _, g := range groups {
		fmt.Fprintf(h, "grp:%s\n", g)
	}

	cfgJSON, _ := json.Marshal(cfg)
	h.Write(cfgJSON)

	return hex.EncodeToString(h.Sum(nil))
}

// Get looks up a cached result. A miss is (nil, false), never an error;
// cache failures are logged and treated as misses.
func (c *ResultCache) Get(ctx context.Context, fingerprint string) (*engine.Result, bool) {
	data, err := c.client.Get(ctx, keyPrefix+fingerprint).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("result cache GET failed: %v", err)
		}
		return nil, false
	}
	var res engine.Result
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		log.Printf("result cache holds invalid JSON for %s: %v", fingerprint, err)
		return nil, false
	}
	return &res, true
}

// Lookup fingerprints the inputs and checks the cache.
func (c *ResultCache) Lookup(ctx context.Context, t *tree.Tree, m *matrix.Matrix, cfg engine.Config) (*engine.Result, bool) {
	return c.Get(ctx, Fingerprint(t, m, cfg))
}

// Store fingerprints the inputs and caches the result.
func (c *ResultCache) Store(ctx context.Context, t *tree.Tree, m *matrix.Matrix, cfg engine.Config, res *engine.Result) {
	c.Set(ctx, Fingerprint(t, m, cfg), res)
}

// Set stores a result under its fingerprint with the cache TTL.
func (c *ResultCache) Set(ctx context.Context, fingerprint string, res *engine.Result) {
	data, err := json.Marshal(res)
	if err != nil {
		log.Printf("failed to marshal result for cache: %v", err)
		return
	}
	if err := c.client.Set(ctx, keyPrefix+fingerprint, data, c.ttl).Err(); err != nil {
		log.Printf("result cache SET failed: %v", err)
	}
}
