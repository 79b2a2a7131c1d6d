package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"courseharvest/internal/components/telemetry"

	"github.com/PuerkitoBio/purell"
	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var errPageNotCached = errors.New("storefront: page not cached")

type cachedPage struct {
	Status   int    `json:"status"`
	Body     []byte `json:"body"`
	CachedAt int64  `json:"cached_at"`
}

// OpenCache opens the badger database used to cache fetched pages, an empty
// dir keeps it in memory.
func OpenCache(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	return badger.Open(opts)
}

type pageCache struct {
	db       *badger.DB
	lifetime time.Duration
}

func (c pageCache) key(rawUrl string) (string, error) {
	parsed, err := url.Parse(rawUrl)
	if err != nil {
		return "", err
	}
	normalized := purell.NormalizeURL(
		parsed,
		purell.FlagsSafe|
			purell.FlagRemoveFragment|
			purell.FlagRemoveDuplicateSlashes|
			purell.FlagSortQuery,
	)
	return "page:" + normalized, nil
}

func (c pageCache) get(ctx context.Context, rawUrl string) (cachedPage, error) {
	_, span := tracer.Start(ctx, "cache:get")
	defer span.End()

	key, err := c.key(rawUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create cache key")
		return cachedPage{}, err
	}
	span.SetAttributes(attribute.String("custom.url", telemetry.ScrubUrl(rawUrl)))

	var serialized []byte
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		serialized, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return cachedPage{}, errPageNotCached
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read item from badger")
		return cachedPage{}, err
	}

	var cached cachedPage
	err = json.Unmarshal(serialized, &cached)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to deserialize cached item")
		return cachedPage{}, err
	}
	span.SetAttributes(attribute.Int("custom.contentlength", len(cached.Body)))
	return cached, nil
}

func (c pageCache) set(ctx context.Context, rawUrl string, page cachedPage) error {
	_, span := tracer.Start(ctx, "cache:set")
	defer span.End()

	key, err := c.key(rawUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create cache key")
		return err
	}
	span.SetAttributes(attribute.String("custom.url", telemetry.ScrubUrl(rawUrl)))

	serialized, err := json.Marshal(page)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize page")
		return err
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), serialized)
		if c.lifetime > 0 {
			entry = entry.WithTTL(c.lifetime)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set badger item")
		return err
	}
	return nil
}
