package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pricewatch/internal/storage"
)

// DefaultKey is the storage key holding the whole alert collection.
const DefaultKey = "userAlerts"

// Options tune Store behaviour.
type Options struct {
	Key        string
	DateFormat string
	Now        func() time.Time
	NewID      func() string
}

// Store owns the authoritative alert collection and persists it as one document.
// Callers serialise mutations; Store does no locking of its own.
type Store struct {
	kv         storage.KV
	key        string
	dateFormat string
	now        func() time.Time
	newID      func() string
	logger     zerolog.Logger

	alerts []UserAlert
}

// CreateResult describes a successful creation.
// PersistErr is non-nil when the alert exists in memory but could not be written.
type CreateResult struct {
	Alert      UserAlert
	PersistErr error
}

// Message is a short confirmation suitable for display.
func (r CreateResult) Message() string {
	return fmt.Sprintf("Alert created for %s in %s at %s", r.Alert.Commodity, r.Alert.Region, r.Alert.Threshold.StringFixed(2))
}

// DeleteResult describes a delete call.
type DeleteResult struct {
	Removed    bool
	PersistErr error
}

// NewStore constructs an empty store backed by kv. Call Load to restore persisted alerts.
func NewStore(kv storage.KV, opts Options, logger zerolog.Logger) *Store {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.DateFormat == "" {
		opts.DateFormat = DefaultDateFormat
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	return &Store{
		kv:         kv,
		key:        opts.Key,
		dateFormat: opts.DateFormat,
		now:        opts.Now,
		newID:      opts.NewID,
		logger:     logger.With().Str("component", "alert_store").Logger(),
	}
}

// Load replaces the in-memory collection with the persisted one.
// Missing, unreadable, or malformed data yields an empty collection.
func (s *Store) Load(ctx context.Context) []UserAlert {
	s.alerts = nil

	if s.kv == nil {
		return s.List()
	}

	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.logger.Warn().Err(&PersistenceError{Op: "read", Err: err}).Msg("alert storage unreadable; starting empty")
		return s.List()
	}
	if !ok || raw == "" {
		return s.List()
	}

	loaded, err := decode(raw)
	if err != nil {
		s.logger.Warn().Err(err).Msg("alert storage malformed; starting empty")
		return s.List()
	}

	s.alerts = loaded
	s.logger.Debug().Int("alerts", len(loaded)).Msg("alerts loaded")
	return s.List()
}

// List returns a copy of the collection in insertion order.
func (s *Store) List() []UserAlert {
	out := make([]UserAlert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// Get looks up an alert by id.
func (s *Store) Get(id string) (UserAlert, bool) {
	for _, a := range s.alerts {
		if a.ID == id {
			return a, true
		}
	}
	return UserAlert{}, false
}

// Create validates input, appends a new alert, and persists the full collection.
func (s *Store) Create(ctx context.Context, commodity, region string, threshold decimal.Decimal) (CreateResult, error) {
	if err := validate(commodity, region, threshold); err != nil {
		return CreateResult{}, err
	}

	alert := UserAlert{
		ID:        s.uniqueID(),
		Commodity: commodity,
		Region:    region,
		Threshold: threshold,
		CreatedAt: s.now().Format(s.dateFormat),
	}

	next := make([]UserAlert, 0, len(s.alerts)+1)
	next = append(next, s.alerts...)
	next = append(next, alert)
	s.alerts = next

	res := CreateResult{Alert: alert, PersistErr: s.persist(ctx, "create")}
	s.logger.Info().Str("id", alert.ID).
		Str("commodity", commodity).
		Str("region", region).
		Str("threshold", threshold.String()).
		Msg("alert created")
	return res, nil
}

// Delete removes the alert with id. Unknown ids are a no-op.
func (s *Store) Delete(ctx context.Context, id string) DeleteResult {
	next := make([]UserAlert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if a.ID != id {
			next = append(next, a)
		}
	}
	removed := len(next) != len(s.alerts)
	s.alerts = next

	res := DeleteResult{Removed: removed, PersistErr: s.persist(ctx, "delete")}
	if removed {
		s.logger.Info().Str("id", id).Msg("alert deleted")
	}
	return res
}

func (s *Store) uniqueID() string {
	for i := 0; i < 8; i++ {
		id := s.newID()
		if _, taken := s.Get(id); id != "" && !taken {
			return id
		}
	}
	return uuid.NewString()
}

func (s *Store) persist(ctx context.Context, op string) error {
	if s.kv == nil {
		return nil
	}

	payload, err := json.Marshal(s.List())
	if err != nil {
		return &PersistenceError{Op: op, Err: err}
	}
	if err := s.kv.Set(ctx, s.key, string(payload)); err != nil {
		perr := &PersistenceError{Op: op, Err: err}
		s.logger.Warn().Err(perr).Msg("alert changes kept in memory only")
		return perr
	}
	return nil
}

func decode(raw string) ([]UserAlert, error) {
	var loaded []UserAlert
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		return nil, fmt.Errorf("decode alerts: %w", err)
	}

	seen := make(map[string]struct{}, len(loaded))
	for i, a := range loaded {
		if !a.valid() {
			return nil, fmt.Errorf("decode alerts: record %d is incomplete", i)
		}
		if _, dup := seen[a.ID]; dup {
			return nil, errors.New("decode alerts: duplicate id " + a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	return loaded, nil
}
