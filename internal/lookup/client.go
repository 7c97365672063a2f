// Package lookup resolves recognized card names against the Scryfall card
// database. Recognition output is approximate, so resolution uses fuzzy
// name search; an unmatched name is a normal outcome (ErrNotFound), not a
// failure. Resolved records are cached because binder pages repeat staples.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	scryfall "github.com/BlueMonday/go-scryfall"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// ErrNotFound reports that Scryfall has no card matching the name, even
// fuzzily. Callers surface this as "unmatched", not as a failed request.
var ErrNotFound = errors.New("card not found")

// Record is the subset of card metadata the service returns to clients.
type Record struct {
	Name            string           `json:"name"`
	Set             string           `json:"set"`
	SetName         string           `json:"set_name"`
	CollectorNumber string           `json:"collector_number"`
	TypeLine        string           `json:"type_line"`
	ManaCost        string           `json:"mana_cost,omitempty"`
	Rarity          string           `json:"rarity"`
	PriceUSD        *decimal.Decimal `json:"price_usd,omitempty"`
	ImageURL        string           `json:"image_url,omitempty"`
	ScryfallID      string           `json:"scryfall_id"`
}

// Options tunes the Scryfall client.
type Options struct {
	// RequestsPerSecond caps outbound API calls. Scryfall asks clients to
	// stay near 10 requests per second; the default honors that.
	RequestsPerSecond float64

	// CacheSize bounds the resolved-name cache.
	CacheSize int
}

// DefaultOptions returns the client tuning used by the service.
func DefaultOptions() Options {
	return Options{
		RequestsPerSecond: 10,
		CacheSize:         512,
	}
}

// Client resolves card names through the Scryfall API. Safe for concurrent
// use.
type Client struct {
	sf     *scryfall.Client
	cache  *recordCache
	logger *log.Logger
}

// apiLimiter adapts a token-bucket rate.Limiter to the blocking Take call
// the Scryfall client makes before each request.
type apiLimiter struct {
	bucket *rate.Limiter
}

// Take blocks until the limiter admits the next request and returns the
// time it fired. Wait cannot fail here: the context is never canceled and
// the single-token request never exceeds the burst.
func (l apiLimiter) Take() time.Time {
	_ = l.bucket.Wait(context.Background())
	return time.Now()
}

// New builds a Client with a shared rate limiter sized by opts.
func New(opts Options, logger *log.Logger) (*Client, error) {
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = DefaultOptions().RequestsPerSecond
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultOptions().CacheSize
	}
	if logger == nil {
		logger = log.Default()
	}

	limiter := apiLimiter{bucket: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)}
	sf, err := scryfall.NewClient(scryfall.WithLimiter(limiter))
	if err != nil {
		return nil, fmt.Errorf("scryfall client: %w", err)
	}

	return &Client{
		sf:     sf,
		cache:  newRecordCache(opts.CacheSize),
		logger: logger,
	}, nil
}

// ResolveName looks up a recognized card name, fuzzily. The name should
// already be cleaned; resolution is case-insensitive and cached.
func (c *Client) ResolveName(ctx context.Context, name string) (Record, error) {
	key := cacheKey(name)
	if rec, ok := c.cache.get(key); ok {
		return rec, nil
	}

	card, err := c.sf.GetCardByName(ctx, name, false, scryfall.GetCardByNameOptions{})
	if err != nil {
		if isNotFound(err) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("scryfall lookup %q: %w", name, err)
	}

	rec := toRecord(card)
	c.cache.put(key, rec)
	c.logger.Printf("lookup: resolved %q to %q (%s)", name, rec.Name, rec.Set)
	return rec, nil
}

// CacheSize reports how many resolved names are currently held.
func (c *Client) CacheSize() int { return c.cache.size() }

func cacheKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// isNotFound unwraps the Scryfall API error shape for a 404.
func isNotFound(err error) bool {
	var sfErr *scryfall.Error
	return errors.As(err, &sfErr) && sfErr.Status == http.StatusNotFound
}

func toRecord(card scryfall.Card) Record {
	rec := Record{
		Name:            card.Name,
		Set:             card.Set,
		SetName:         card.SetName,
		CollectorNumber: card.CollectorNumber,
		TypeLine:        card.TypeLine,
		ManaCost:        card.ManaCost,
		Rarity:          string(card.Rarity),
		ScryfallID:      card.ID,
	}

	if price, err := decimal.NewFromString(card.Prices.USD); err == nil && card.Prices.USD != "" {
		rec.PriceUSD = &price
	}

	if card.ImageURIs != nil {
		rec.ImageURL = card.ImageURIs.Normal
		if rec.ImageURL == "" {
			rec.ImageURL = card.ImageURIs.Large
		}
	}

	return rec
}
