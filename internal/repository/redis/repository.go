package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/joshdurbin/hashlink/internal/domain"
	"github.com/joshdurbin/hashlink/internal/repository"
)

// DefaultKeyPrefix namespaces every key written by the repository
const DefaultKeyPrefix = "hashlink:"

// maxResolveAttempts bounds how often a script is rerun after the active
// index moved between reading it and running the script
const maxResolveAttempts = 3

var errActiveLinkChanged = errors.New("active link changed during update")

// document is the stored form of a link. Visits live in a separate list.
type document struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Hash        string `json:"hash"`
	Protocol    string `json:"protocol"`
	Domain      string `json:"domain"`
	Path        string `json:"path"`
	IsCustom    bool   `json:"isCustom"`
	RemoveToken string `json:"removeToken"`
	Active      bool   `json:"active"`
	CreatedAt   int64  `json:"createdAt"`
	RemovedAt   *int64 `json:"removedAt"`
}

// Repository implements repository.LinkRepository on Redis. Every mutation is
// a Lua script so the match and the write happen in one step.
type Repository struct {
	client *goredis.Client
	prefix string
}

// New connects to the Redis server at redisURL
func New(ctx context.Context, redisURL, prefix string) (*Repository, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewWithClient(client, prefix), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *goredis.Client, prefix string) *Repository {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Repository{client: client, prefix: prefix}
}

func (r *Repository) activeKey(hash string) string {
	return r.prefix + "{" + hash + "}:active"
}

func (r *Repository) docKey(hash, id string) string {
	return r.prefix + "{" + hash + "}:link:" + id
}

func (r *Repository) visitsKey(hash, id string) string {
	return r.docKey(hash, id) + ":visits"
}

// runOnActive resolves the id behind the active hash and runs script on that
// link's keys. The script rechecks the id; when it moved the run is retried.
func (r *Repository) runOnActive(ctx context.Context, script *goredis.Script, hash string, args ...interface{}) ([]interface{}, error) {
	for attempt := 0; attempt < maxResolveAttempts; attempt++ {
		id, err := r.client.Get(ctx, r.activeKey(hash)).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return nil, domain.ErrNotFound
			}
			return nil, err
		}

		keys := []string{r.activeKey(hash), r.docKey(hash, id), r.visitsKey(hash, id)}
		res, err := script.Run(ctx, r.client, keys, append([]interface{}{id}, args...)...).Slice()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return nil, domain.ErrNotFound
			}
			return nil, err
		}
		if len(res) == 1 {
			continue
		}
		return res, nil
	}
	return nil, errActiveLinkChanged
}

// CreateLink stores a new active link
func (r *Repository) CreateLink(ctx context.Context, link *domain.Link) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}

	doc := document{
		ID:          uuid.NewString(),
		URL:         link.URL,
		Hash:        link.Hash,
		Protocol:    link.Protocol,
		Domain:      link.Domain,
		Path:        link.Path,
		IsCustom:    link.IsCustom,
		RemoveToken: link.RemoveToken,
		Active:      true,
		CreatedAt:   link.CreatedAt.UnixMilli(),
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode link: %w", err)
	}

	created, err := createScript.Run(ctx, r.client,
		[]string{r.activeKey(link.Hash), r.docKey(link.Hash, doc.ID)},
		string(payload), doc.ID,
	).Int()
	if err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}
	if created == 0 {
		return domain.ErrHashConflict
	}

	link.ID = doc.ID
	link.Active = true
	link.CreatedAt = time.UnixMilli(doc.CreatedAt).UTC()
	link.Visits = []domain.Visit{}
	return nil
}

// RegisterVisit appends a visit to the active link
func (r *Repository) RegisterVisit(ctx context.Context, hash string, visitedAt time.Time) (*domain.Link, error) {
	res, err := r.runOnActive(ctx, visitScript, hash, visitedAt.UnixMilli())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to register visit: %w", err)
	}

	link, err := decodeReply(res)
	if err != nil {
		return nil, fmt.Errorf("failed to register visit: %w", err)
	}
	return link, nil
}

// Deactivate soft-deletes the active link when the remove token matches
func (r *Repository) Deactivate(ctx context.Context, hash, removeToken string, removedAt time.Time) (*domain.Link, error) {
	res, err := r.runOnActive(ctx, deactivateScript, hash, removeToken, removedAt.UnixMilli())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to deactivate link: %w", err)
	}

	link, err := decodeReply(res)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate link: %w", err)
	}
	return link, nil
}

// Ping checks the server connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client
func (r *Repository) Close() error {
	return r.client.Close()
}

// decodeReply converts a {document, visits} script reply to domain.Link
func decodeReply(res []interface{}) (*domain.Link, error) {
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected script reply length %d", len(res))
	}

	raw, ok := res[0].(string)
	if !ok {
		return nil, fmt.Errorf("unexpected document type %T", res[0])
	}

	var doc document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode link: %w", err)
	}

	rawVisits, ok := res[1].([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected visits type %T", res[1])
	}

	visits := make([]domain.Visit, 0, len(rawVisits))
	for _, v := range rawVisits {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected visit type %T", v)
		}
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode visit: %w", err)
		}
		visits = append(visits, domain.Visit{Date: time.UnixMilli(ms).UTC()})
	}

	link := &domain.Link{
		ID:          doc.ID,
		URL:         doc.URL,
		Hash:        doc.Hash,
		Protocol:    doc.Protocol,
		Domain:      doc.Domain,
		Path:        doc.Path,
		IsCustom:    doc.IsCustom,
		RemoveToken: doc.RemoveToken,
		Active:      doc.Active,
		CreatedAt:   time.UnixMilli(doc.CreatedAt).UTC(),
		Visits:      visits,
	}
	if doc.RemovedAt != nil {
		t := time.UnixMilli(*doc.RemovedAt).UTC()
		link.RemovedAt = &t
	}

	return link, nil
}

// Ensure Repository implements the interface
var _ repository.LinkRepository = (*Repository)(nil)
