package replica

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"veilchat/internal/domain"
)

// pollWindow is how long a single long-poll request is allowed to hang.
const pollWindow = 25 * time.Second

// Client is the HTTP implementation of domain.Replica against a
// veilchat-relay host.
type Client struct {
	base string
	http *http.Client
	log  *logrus.Logger
}

// NewClient returns a Client for the relay at base, e.g.
// http://127.0.0.1:8080. A nil logger falls back to logrus.New().
func NewClient(base string, hc *http.Client, log *logrus.Logger) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	if log == nil {
		log = logrus.New()
	}
	return &Client{base: base, http: hc, log: log}
}

// Put stores value at a scalar path.
func (c *Client) Put(ctx context.Context, path string, value []byte) error {
	return c.post(ctx, "/v1/put", PutRequest{Path: path, Value: value}, nil)
}

// Add appends value under a map path and returns the host-assigned key.
func (c *Client) Add(ctx context.Context, path string, value []byte) (string, error) {
	var out AddResponse
	if err := c.post(ctx, "/v1/add", AddRequest{Path: path, Value: value}, &out); err != nil {
		return "", err
	}
	return out.Key, nil
}

// GetOnce reads a scalar path, letting the host hold the request open for
// up to timeout before reporting absence.
func (c *Client) GetOnce(ctx context.Context, path string, timeout time.Duration) ([]byte, bool, error) {
	u := "/v1/get?path=" + url.QueryEscape(path) +
		"&timeout_ms=" + strconv.FormatInt(timeout.Milliseconds(), 10)
	var out GetResponse
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, false, err
	}
	return out.Value, out.Found, nil
}

// SubscribeMap long-polls the map at path from a dedicated goroutine,
// replaying existing entries first. Cancel must not be called from inside fn.
func (c *Client) SubscribeMap(path string, fn func(key string, value []byte)) (domain.Subscription, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &clientSub{cancel: cancel}
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		var after uint64
		for {
			u := "/v1/entries?path=" + url.QueryEscape(path) +
				"&after=" + strconv.FormatUint(after, 10) +
				"&timeout_ms=" + strconv.FormatInt(pollWindow.Milliseconds(), 10)
			var out EntriesResponse
			if err := c.getJSON(ctx, u, &out); err != nil {
				if ctx.Err() != nil {
					return
				}
				c.log.WithError(err).WithField("path", path).Warn("replica poll failed, backing off")
				select {
				case <-ctx.Done():
					return
				case <-time.After(2 * time.Second):
				}
				continue
			}
			for _, e := range out.Entries {
				if ctx.Err() != nil {
					return
				}
				fn(e.Key, e.Value)
			}
			if out.Next > after {
				after = out.Next
			}
		}
	}()
	return s, nil
}

type clientSub struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Cancel aborts the poll loop and waits for it to stop. Once it returns,
// the callback will not be invoked again.
func (s *clientSub) Cancel() {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("relay post %s: %s", c.base+path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("relay get %s: %s", c.base+path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Compile-time assertion that Client implements domain.Replica.
var _ domain.Replica = (*Client)(nil)
