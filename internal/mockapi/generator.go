package mockapi

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/claim-panel/tui/internal/client"
	"github.com/google/uuid"
)

// Catalog is the fixed set of sites the mock backend claims from.
var Catalog = []client.FaucetSite{
	{Name: "Cointiply", URL: "https://cointiply.com/faucet", Cooldown: 60},
	{Name: "FireFaucet", URL: "https://firefaucet.win/", Cooldown: 60},
	{Name: "FaucetCrypto", URL: "https://faucetcrypto.com/", Cooldown: 30},
	{Name: "Freebitco.in", URL: "https://freebitco.in/", Cooldown: 60},
	{Name: "BonusBitcoin", URL: "https://bonusbitcoin.co/", Cooldown: 15},
	{Name: "Bitcoinker", URL: "https://bitcoinker.com/faucet", Cooldown: 5},
	{Name: "MoonBitcoin", URL: "https://moonbitcoin.cash/faucet", Cooldown: 5},
	{Name: "BitFun", URL: "https://bitfun.co/", Cooldown: 3},
	{Name: "BTCClicks", URL: "https://btcclicks.com/faucet", Cooldown: 10},
	{Name: "ExpressCrypto", URL: "https://expresscrypto.io/faucet", Cooldown: 30},
	{Name: "Pipeflare", URL: "https://pipeflare.io/faucet", Cooldown: 240},
	{Name: "ClaimBTC", URL: "https://claimbtc.com/faucet", Cooldown: 20},
}

var claimErrors = []string{
	"claim button not found",
	"page load timeout",
	"proxy connection reset",
	"balance below minimum",
}

const (
	minClaimAmount = 0.00000001
	maxClaimAmount = 0.00001
)

// Generator produces simulated claims for running sessions.
type Generator struct {
	store         *Store
	sites         []client.FaucetSite
	claimsPerStep int

	mu    sync.Mutex
	faker *gofakeit.Faker
}

// NewGenerator creates a generator over sites. A zero seed picks a random
// one; tests pass a fixed seed.
func NewGenerator(store *Store, sites []client.FaucetSite, seed uint64) *Generator {
	if len(sites) == 0 {
		sites = Catalog
	}
	return &Generator{
		store:         store,
		sites:         sites,
		claimsPerStep: 5,
		faker:         gofakeit.New(seed),
	}
}

// Step records one round of claims for every running session and returns
// how many were recorded. A session completes after one claim per site per
// requested session.
func (g *Generator) Step() int {
	running := g.store.running()
	ids := make([]string, 0, len(running))
	for id := range running {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	recorded := 0
	for _, id := range ids {
		cfg := running[id]
		limit := cfg.SessionCount * len(g.sites)
		n := min(cfg.SessionCount, g.claimsPerStep)
		for i := 0; i < n; i++ {
			if !g.store.Record(g.claim(id), limit) {
				break
			}
			recorded++
		}
	}
	return recorded
}

// Run steps every interval until ctx is done.
func (g *Generator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Step()
		}
	}
}

func (g *Generator) claim(sessionID string) client.ClaimLogEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	site := g.sites[g.faker.IntRange(0, len(g.sites)-1)]
	entry := client.ClaimLogEntry{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		FaucetName: site.Name,
	}
	switch roll := g.faker.IntRange(1, 100); {
	case roll <= 60:
		entry.Status = client.ClaimSuccess
		entry.Amount = g.faker.Float64Range(minClaimAmount, maxClaimAmount)
	case roll <= 75:
		entry.Status = client.ClaimCaptchaFailed
	case roll <= 90:
		entry.Status = client.ClaimFailed
		entry.Error = g.faker.RandomString(claimErrors)
	default:
		entry.Status = client.ClaimCooldown
	}
	return entry
}
