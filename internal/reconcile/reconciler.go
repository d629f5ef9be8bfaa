package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"veilchat/internal/cache"
	"veilchat/internal/codec"
	"veilchat/internal/domain"
	"veilchat/internal/replica"
)

// State is the per-channel lifecycle phase.
type State int

const (
	Idle State = iota
	Hydrating
	Live
)

// SentinelText is rendered in place of a message whose ciphertext did not
// authenticate.
const SentinelText = "[decryption failed]"

// Reconciler drives the timeline for one channel at a time.
type Reconciler struct {
	self    domain.Username
	replica domain.Replica
	keys    domain.KeySource
	cache   domain.DurableCache
	log     *logrus.Logger

	mu       sync.Mutex
	state    State
	channel  domain.ChannelID
	partner  domain.Username
	key      domain.SharedKey
	gen      int
	sub      domain.Subscription
	byKey     map[string]domain.Message
	order     []string
	rendered  map[string]domain.RenderedMessage
	onUpdate  func([]domain.RenderedMessage)
	onContact func(domain.Contact)
}

// New returns a Reconciler for the logged-in user. A nil logger falls
// back to logrus.New().
func New(self domain.Username, r domain.Replica, keys domain.KeySource, c domain.DurableCache, log *logrus.Logger) *Reconciler {
	if log == nil {
		log = logrus.New()
	}
	return &Reconciler{
		self:    self,
		replica: r,
		keys:    keys,
		cache:   c,
		log:     log,
		state:   Idle,
	}
}

// OnContact registers a hook that fires when a message from a partner
// merges into the timeline, carrying the contact re-derived from that
// traffic. It is how a channel list that missed its registration entry
// heals: wire it to the contact registry's Observe. The hook survives
// channel switches.
func (r *Reconciler) OnContact(fn func(domain.Contact)) {
	r.mu.Lock()
	r.onContact = fn
	r.mu.Unlock()
}

// Open switches the reconciler to the channel shared with partner. Any
// previously open channel is torn down first, its in-memory timeline
// cleared. The cached timeline is rendered through onUpdate before the
// live subscription starts. A directory not-found for the partner is
// fatal to the call.
func (r *Reconciler) Open(ctx context.Context, partner domain.Username, onUpdate func([]domain.RenderedMessage)) error {
	ch, err := domain.ChannelFor(r.self, partner)
	if err != nil {
		return err
	}
	key, err := r.keys.SharedKey(ctx, partner)
	if err != nil {
		return err
	}

	r.teardown()

	r.mu.Lock()
	r.state = Hydrating
	r.channel = ch
	r.partner = partner
	r.key = key
	r.gen++
	gen := r.gen
	r.byKey = make(map[string]domain.Message)
	r.order = nil
	r.rendered = make(map[string]domain.RenderedMessage)
	r.onUpdate = onUpdate

	// Hydrate from the durable cache: stale but immediately available.
	var cached []domain.CachedMessage
	if _, err := r.cache.Get(cache.MessagesKey(ch), &cached); err != nil {
		r.log.WithError(err).WithField("channel", ch).Warn("message cache unreadable, starting from remote only")
	}
	for _, cm := range cached {
		if _, seen := r.byKey[cm.Key]; seen {
			continue
		}
		r.byKey[cm.Key] = cm.Message
		r.order = append(r.order, cm.Key)
	}
	snapshot := r.renderLocked()
	emit := r.onUpdate
	r.mu.Unlock()

	if emit != nil {
		emit(snapshot)
	}

	sub, err := r.replica.SubscribeMap(replica.ChannelMessagesPath(ch), func(key string, value []byte) {
		r.ingest(gen, key, value)
	})
	if err != nil {
		return fmt.Errorf("subscribe channel %q: %w", ch, err)
	}

	r.mu.Lock()
	if r.gen != gen {
		// The channel changed while we were subscribing.
		r.mu.Unlock()
		sub.Cancel()
		return nil
	}
	r.sub = sub
	r.state = Live
	r.mu.Unlock()
	return nil
}

// Send encrypts text under the channel key and appends it to the replica
// feed. The sent message reaches the local timeline through the same
// subscription as everything else.
func (r *Reconciler) Send(ctx context.Context, text string) error {
	r.mu.Lock()
	ch, key := r.channel, r.key
	r.mu.Unlock()
	if ch == "" {
		return fmt.Errorf("no open channel")
	}

	env, err := codec.EncryptText(key, text)
	if err != nil {
		return err
	}
	msg := domain.Message{
		Sender: r.self,
		SentAt: time.Now().UnixMilli(),
		Cipher: env.Cipher,
		Nonce:  env.Nonce,
		Echo:   text,
	}
	return r.publish(ctx, ch, msg)
}

// SendFile encrypts a whole file payload and appends it to the feed.
// Payloads over domain.MaxFileBytes are rejected before encryption.
func (r *Reconciler) SendFile(ctx context.Context, name, mimeType string, data []byte) error {
	if len(data) > domain.MaxFileBytes {
		return fmt.Errorf("%w: %d bytes", domain.ErrFileTooLarge, len(data))
	}
	r.mu.Lock()
	ch, key := r.channel, r.key
	r.mu.Unlock()
	if ch == "" {
		return fmt.Errorf("no open channel")
	}

	env, err := codec.EncryptFile(key, data)
	if err != nil {
		return err
	}
	msg := domain.Message{
		Sender:   r.self,
		SentAt:   time.Now().UnixMilli(),
		Cipher:   env.Cipher,
		Nonce:    env.Nonce,
		IsFile:   true,
		FileName: name,
		MimeType: mimeType,
	}
	return r.publish(ctx, ch, msg)
}

// Messages returns the current rendered timeline.
func (r *Reconciler) Messages() []domain.RenderedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renderLocked()
}

// State returns the current lifecycle phase.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Channel returns the currently open channel, or "" when idle.
func (r *Reconciler) Channel() domain.ChannelID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel
}

// Close tears down the live subscription. No callback fires after it
// returns.
func (r *Reconciler) Close() {
	r.teardown()
}

func (r *Reconciler) publish(ctx context.Context, ch domain.ChannelID, msg domain.Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := r.replica.Add(ctx, replica.ChannelMessagesPath(ch), b); err != nil {
		return fmt.Errorf("send to %q: %w", ch, err)
	}
	return nil
}

// ingest merges one remote entry into the timeline. gen pins the entry to
// the channel that was active when the subscription was created, so a
// late callback from a stale subscription is dropped.
func (r *Reconciler) ingest(gen int, key string, value []byte) {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return
	}
	if _, seen := r.byKey[key]; seen {
		r.mu.Unlock()
		return
	}
	var msg domain.Message
	if err := json.Unmarshal(value, &msg); err != nil {
		r.mu.Unlock()
		r.log.WithError(err).WithField("entry", key).Warn("dropping malformed channel entry")
		return
	}
	r.byKey[key] = msg
	r.order = append(r.order, key)
	snapshot := r.renderLocked()
	docs := make([]domain.CachedMessage, 0, len(snapshot))
	for _, rm := range snapshot {
		docs = append(docs, domain.CachedMessage{Key: rm.Key, Message: r.byKey[rm.Key]})
	}
	emit := r.onUpdate
	observe := r.onContact
	ch := r.channel
	partner := r.partner
	r.mu.Unlock()

	r.persist(gen, ch, docs)
	if observe != nil && msg.Sender == partner {
		observe(domain.Contact{Partner: partner, Channel: ch})
	}
	if emit != nil {
		emit(snapshot)
	}
}

// renderLocked builds the canonical timeline: arrival order, stably
// re-sorted by sender timestamp, one decrypted rendering per entry key.
func (r *Reconciler) renderLocked() []domain.RenderedMessage {
	keys := append([]string(nil), r.order...)
	sort.SliceStable(keys, func(i, j int) bool {
		return r.byKey[keys[i]].SentAt < r.byKey[keys[j]].SentAt
	})

	out := make([]domain.RenderedMessage, 0, len(keys))
	for _, k := range keys {
		rm, ok := r.rendered[k]
		if !ok {
			rm = r.decrypt(k, r.byKey[k])
			r.rendered[k] = rm
		}
		out = append(out, rm)
	}
	return out
}

// decrypt produces the display form of one message. Failures yield a
// sentinel for that message only.
func (r *Reconciler) decrypt(key string, msg domain.Message) domain.RenderedMessage {
	rm := domain.RenderedMessage{
		Key:      key,
		Sender:   msg.Sender,
		SentAt:   msg.SentAt,
		IsFile:   msg.IsFile,
		FileName: msg.FileName,
		MimeType: msg.MimeType,
	}
	env := codec.Envelope{Cipher: msg.Cipher, Nonce: msg.Nonce}

	switch {
	case msg.IsFile:
		data, err := codec.DecryptFile(r.key, env)
		if err != nil {
			rm.Failed = true
			rm.Text = SentinelText
			r.log.WithField("entry", key).Debug("file payload failed authentication")
			break
		}
		rm.Data = data
		rm.Text = msg.FileName
	case msg.Sender == r.self && msg.Echo != "":
		// Our own plaintext echo; never trusted for anyone else.
		rm.Text = msg.Echo
	default:
		text, err := codec.DecryptText(r.key, env)
		if err != nil {
			rm.Failed = true
			rm.Text = SentinelText
			r.log.WithField("entry", key).Debug("message failed authentication")
			break
		}
		rm.Text = text
	}
	return rm
}

// persist writes the merged timeline back to the durable cache. gen pins
// the write to the subscription that built docs, so a persist racing a
// channel reopen is dropped instead of clobbering the fresh state.
// Failure degrades to remote-only and never blocks delivery.
func (r *Reconciler) persist(gen int, ch domain.ChannelID, docs []domain.CachedMessage) {
	r.mu.Lock()
	stale := gen != r.gen
	r.mu.Unlock()
	if stale {
		return
	}

	if err := r.cache.Set(cache.MessagesKey(ch), docs); err != nil {
		if errors.Is(err, domain.ErrStorageQuotaExceeded) {
			r.log.WithField("channel", ch).Warn("message cache over quota, serving remote only")
			return
		}
		r.log.WithError(err).WithField("channel", ch).Warn("message cache write failed")
	}
}

func (r *Reconciler) teardown() {
	r.mu.Lock()
	sub := r.sub
	r.sub = nil
	r.state = Idle
	r.channel = ""
	r.partner = ""
	r.key = domain.SharedKey{}
	r.gen++
	r.byKey = nil
	r.order = nil
	r.rendered = nil
	r.onUpdate = nil
	r.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
}
