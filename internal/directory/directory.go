package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"veilchat/internal/domain"
	"veilchat/internal/replica"
)

// RetryPolicy bounds directory lookups. Delay grows multiplicatively per
// attempt and is capped at MaxDelay.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Growth    float64
}

// DefaultRetryPolicy matches the engine's lookup contract: five attempts,
// 700ms initial backoff doubling up to a 2s cap.
var DefaultRetryPolicy = RetryPolicy{
	Attempts:  5,
	BaseDelay: 700 * time.Millisecond,
	MaxDelay:  2000 * time.Millisecond,
	Growth:    2,
}

// Delay returns the backoff after the given zero-based attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 0; i < attempt; i++ {
		d *= p.Growth
	}
	if max := float64(p.MaxDelay); d > max {
		d = max
	}
	return time.Duration(d)
}

// Directory resolves usernames to public keys via the replica.
type Directory struct {
	replica domain.Replica
	policy  RetryPolicy
	log     *logrus.Logger

	// sleep is replaced in tests to observe backoff without real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Directory using the given retry policy. A nil logger
// falls back to logrus.New().
func New(r domain.Replica, policy RetryPolicy, log *logrus.Logger) *Directory {
	if log == nil {
		log = logrus.New()
	}
	return &Directory{
		replica: r,
		policy:  policy,
		log:     log,
		sleep:   sleepCtx,
	}
}

// Publish stores pub under the user's well-known path. It fails loudly
// when the replica is unreachable.
func (d *Directory) Publish(ctx context.Context, username domain.Username, pub domain.X25519Public) error {
	if !domain.ValidUsername(username) {
		return fmt.Errorf("invalid username %q", username)
	}
	if err := d.replica.Put(ctx, replica.UserKeyPath(username), pub.Slice()); err != nil {
		return fmt.Errorf("%w: publish %q: %v", domain.ErrDirectoryUnavailable, username, err)
	}
	return nil
}

// Resolve looks up the user's public key with bounded retries. It returns
// domain.ErrPartnerNotFound only after exhausting every attempt.
func (d *Directory) Resolve(ctx context.Context, username domain.Username) (domain.X25519Public, error) {
	var pub domain.X25519Public
	if !domain.ValidUsername(username) {
		return pub, fmt.Errorf("invalid username %q", username)
	}
	path := replica.UserKeyPath(username)

	for attempt := 0; attempt < d.policy.Attempts; attempt++ {
		v, ok, err := d.replica.GetOnce(ctx, path, d.policy.BaseDelay)
		if err != nil {
			if ctx.Err() != nil {
				return pub, ctx.Err()
			}
			return pub, fmt.Errorf("%w: resolve %q: %v", domain.ErrDirectoryUnavailable, username, err)
		}
		if ok {
			if len(v) != len(pub) {
				return pub, fmt.Errorf("directory entry for %q has bad key length %d", username, len(v))
			}
			copy(pub[:], v)
			return pub, nil
		}

		if attempt == d.policy.Attempts-1 {
			break
		}
		backoff := d.policy.Delay(attempt)
		d.log.WithFields(logrus.Fields{
			"username": username,
			"attempt":  attempt + 1,
			"backoff":  backoff,
		}).Debug("directory entry not yet visible, retrying")
		if err := d.sleep(ctx, backoff); err != nil {
			return pub, err
		}
	}
	return pub, fmt.Errorf("%w: %q after %d attempts", domain.ErrPartnerNotFound, username, d.policy.Attempts)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Compile-time assertion that Directory implements domain.Directory.
var _ domain.Directory = (*Directory)(nil)
