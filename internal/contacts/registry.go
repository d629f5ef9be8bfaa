package contacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"veilchat/internal/cache"
	"veilchat/internal/domain"
	"veilchat/internal/replica"
)

// Registry merges the durable contact cache with the replica's live
// channel-list feed for one user.
type Registry struct {
	user    domain.Username
	replica domain.Replica
	dir     domain.Directory
	cache   domain.DurableCache
	log     *logrus.Logger

	mu        sync.Mutex
	byChannel map[domain.ChannelID]domain.Contact
	sub       domain.Subscription
	onChange  func([]domain.Contact)
}

// New returns a Registry for the given user. A nil logger falls back to
// logrus.New().
func New(user domain.Username, r domain.Replica, dir domain.Directory, c domain.DurableCache, log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.New()
	}
	return &Registry{
		user:      user,
		replica:   r,
		dir:       dir,
		cache:     c,
		log:       log,
		byChannel: make(map[domain.ChannelID]domain.Contact),
	}
}

// Load seeds the registry from the durable cache, returns that snapshot
// immediately, and subscribes to the replica's channel list. onChange, if
// non-nil, fires with a fresh snapshot whenever a remote entry merges in.
func (r *Registry) Load(onChange func([]domain.Contact)) ([]domain.Contact, error) {
	var cached []domain.Contact
	if _, err := r.cache.Get(cache.ContactsKey(r.user), &cached); err != nil {
		// Stale-but-available beats failing the whole load.
		r.log.WithError(err).Warn("contact cache unreadable, starting from remote only")
	}

	r.mu.Lock()
	r.onChange = onChange
	for _, c := range cached {
		if _, ok := r.byChannel[c.Channel]; !ok {
			r.byChannel[c.Channel] = c
		}
	}
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	sub, err := r.replica.SubscribeMap(replica.UserChannelsPath(r.user), r.ingest)
	if err != nil {
		return snapshot, fmt.Errorf("subscribe channel list: %w", err)
	}
	r.mu.Lock()
	r.sub = sub
	r.mu.Unlock()
	return snapshot, nil
}

// Contacts returns the current merged snapshot, sorted by partner.
func (r *Registry) Contacts() []domain.Contact {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// StartChat validates the partner against the directory, derives the
// deterministic channel id, and registers it under both users' channel
// lists. The dual write is best-effort: the partner-side write may fail
// without failing the call.
func (r *Registry) StartChat(ctx context.Context, partner domain.Username) (domain.ChannelID, error) {
	ch, err := domain.ChannelFor(r.user, partner)
	if err != nil {
		return "", err
	}
	if _, err := r.dir.Resolve(ctx, partner); err != nil {
		if errors.Is(err, domain.ErrPartnerNotFound) {
			return "", err
		}
		return "", fmt.Errorf("validate partner %q: %w", partner, err)
	}

	r.mu.Lock()
	_, known := r.byChannel[ch]
	r.mu.Unlock()
	if known {
		return ch, nil
	}

	mine, err := json.Marshal(domain.Contact{Partner: partner, Channel: ch})
	if err != nil {
		return "", err
	}
	if _, err := r.replica.Add(ctx, replica.UserChannelsPath(r.user), mine); err != nil {
		return "", fmt.Errorf("register channel %q: %w", ch, err)
	}

	// Second half of the dual write. No transaction covers both sides:
	// if this fails the partner discovers the channel from its traffic.
	theirs, err := json.Marshal(domain.Contact{Partner: r.user, Channel: ch})
	if err == nil {
		_, err = r.replica.Add(ctx, replica.UserChannelsPath(partner), theirs)
	}
	if err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"partner": partner,
			"channel": ch,
		}).Warn("partner-side channel registration failed, relying on self-heal")
	}

	r.merge(domain.Contact{Partner: partner, Channel: ch})
	return ch, nil
}

// Observe merges a contact discovered outside the channel-list feed, e.g.
// re-derived from traffic seen on a shared channel.
func (r *Registry) Observe(c domain.Contact) { r.merge(c) }

// Close tears down the live subscription and persists the merged list.
func (r *Registry) Close() {
	r.mu.Lock()
	sub := r.sub
	r.sub = nil
	r.onChange = nil
	r.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
	r.persist()
}

// ingest handles one channel-list entry from the replica feed. Entries
// written by older clients may carry only the channel id; the partner leg
// is then re-derived from it.
func (r *Registry) ingest(key string, value []byte) {
	var c domain.Contact
	if err := json.Unmarshal(value, &c); err != nil {
		c = domain.Contact{Channel: domain.ChannelID(value)}
	}
	if c.Channel == "" {
		r.log.WithField("entry", key).Debug("skipping malformed channel-list entry")
		return
	}
	if c.Partner == "" {
		p, ok := domain.PartnerOf(c.Channel, r.user)
		if !ok {
			r.log.WithField("channel", c.Channel).Debug("skipping channel we are not a member of")
			return
		}
		c.Partner = p
	}
	r.merge(c)
}

func (r *Registry) merge(c domain.Contact) {
	r.mu.Lock()
	if _, ok := r.byChannel[c.Channel]; ok {
		r.mu.Unlock()
		return
	}
	for _, cur := range r.byChannel {
		if cur.Partner == c.Partner {
			r.mu.Unlock()
			return
		}
	}
	r.byChannel[c.Channel] = c
	snapshot := r.snapshotLocked()
	onChange := r.onChange
	r.mu.Unlock()

	r.persist()
	if onChange != nil {
		onChange(snapshot)
	}
}

// persist is best-effort: quota pressure degrades to remote-only.
func (r *Registry) persist() {
	r.mu.Lock()
	snapshot := r.snapshotLocked()
	r.mu.Unlock()
	if err := r.cache.Set(cache.ContactsKey(r.user), snapshot); err != nil {
		if errors.Is(err, domain.ErrStorageQuotaExceeded) {
			r.log.WithError(err).Warn("contact list not cached")
			return
		}
		r.log.WithError(err).Warn("contact cache write failed")
	}
}

func (r *Registry) snapshotLocked() []domain.Contact {
	out := make([]domain.Contact, 0, len(r.byChannel))
	for _, c := range r.byChannel {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Partner < out[j].Partner })
	return out
}
