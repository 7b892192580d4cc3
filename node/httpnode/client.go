package httpnode

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ipfs/go-cid"

	"xdao.co/streams-tangle/cidutil"
	"xdao.co/streams-tangle/ledger"
	"xdao.co/streams-tangle/node"
)

const (
	// maxReplyBytes caps the body of single-message and status replies.
	maxReplyBytes = 4 * ledger.MaxMessageBytes
	// maxLookupReplyBytes caps index lookup replies, which list one hex id
	// (about 70 bytes of JSON) per message under the index.
	maxLookupReplyBytes = 16 << 20
)

// ErrReplyTooLarge reports a reply body that exceeds the client's read cap.
var ErrReplyTooLarge = errors.New("httpnode: reply too large")

// Client implements node.Node over a node's REST API.
type Client struct {
	base *url.URL
	hc   *http.Client

	// Timeout applies per request when non-zero and the caller's context has no deadline.
	Timeout time.Duration
}

var _ node.Node = (*Client)(nil)

type Options struct {
	// HTTPClient overrides http.DefaultClient.
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New returns a client for the node at baseURL (scheme http or https).
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("httpnode: invalid url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("httpnode: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("httpnode: missing host in %q", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{base: u, hc: hc, Timeout: opts.Timeout}, nil
}

// URL returns the node's base URL.
func (c *Client) URL() string { return c.base.String() }

func (c *Client) Info(ctx context.Context) (node.Info, error) {
	var j infoJSON
	if err := c.do(ctx, maxReplyBytes, http.MethodGet, "/api/v1/info", nil, nil, &j); err != nil {
		return node.Info{}, err
	}
	return infoFromJSON(j)
}

func (c *Client) Tips(ctx context.Context) (ledger.Tips, error) {
	var j tipsJSON
	if err := c.do(ctx, maxReplyBytes, http.MethodGet, "/api/v1/tips", nil, nil, &j); err != nil {
		return ledger.Tips{}, err
	}
	ids, err := idsFromJSON(j.TipMessageIDs)
	if err != nil {
		return ledger.Tips{}, err
	}
	if len(ids) != 2 {
		return ledger.Tips{}, fmt.Errorf("httpnode: want 2 tips, got %d", len(ids))
	}
	return ledger.Tips{ids[0], ids[1]}, nil
}

func (c *Client) Submit(ctx context.Context, msg *ledger.Message) (cid.Cid, error) {
	if err := msg.Validate(); err != nil {
		return cid.Undef, err
	}
	var j submitJSON
	if err := c.do(ctx, maxReplyBytes, http.MethodPost, "/api/v1/messages", nil, messageToJSON(msg), &j); err != nil {
		return cid.Undef, err
	}
	id, err := cidutil.FromHex(j.MessageID)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", node.ErrInvalidID, err)
	}
	return id, nil
}

func (c *Client) Lookup(ctx context.Context, index []byte) ([]cid.Cid, error) {
	q := url.Values{"index": {hex.EncodeToString(index)}}
	var j indexJSON
	if err := c.do(ctx, maxLookupReplyBytes, http.MethodGet, "/api/v1/messages", q, nil, &j); err != nil {
		return nil, err
	}
	return idsFromJSON(j.MessageIDs)
}

func (c *Client) Fetch(ctx context.Context, id cid.Cid) (*ledger.Message, error) {
	digest := cidutil.Hex(id)
	if digest == "" {
		return nil, node.ErrInvalidID
	}
	var j messageJSON
	if err := c.do(ctx, maxReplyBytes, http.MethodGet, "/api/v1/messages/"+digest, nil, nil, &j); err != nil {
		return nil, err
	}
	msg, err := messageFromJSON(j)
	if err != nil {
		return nil, err
	}
	got, err := ledger.ID(msg)
	if err != nil {
		return nil, err
	}
	if !got.Equals(id) {
		return nil, node.ErrIDMismatch
	}
	return msg, nil
}

// do sends one request and decodes the reply envelope, reading at most limit
// bytes of it.
func (c *Client) do(ctx context.Context, limit int64, method, path string, query url.Values, in, out any) error {
	if _, ok := ctx.Deadline(); !ok && c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", node.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", node.ErrUnavailable, err)
	}
	if int64(len(raw)) > limit {
		return fmt.Errorf("%w: %s %s exceeds %d bytes", ErrReplyTooLarge, method, path, limit)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			return statusError(resp.StatusCode, nil)
		}
		return fmt.Errorf("httpnode: decode %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 300 || env.Error != nil {
		return statusError(resp.StatusCode, env.Error)
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 {
		return errors.New("httpnode: empty reply")
	}
	return json.Unmarshal(env.Data, out)
}

// statusError maps a REST error reply to the node package's sentinel errors.
func statusError(status int, e *apiError) error {
	msg := http.StatusText(status)
	code := ""
	if e != nil {
		code, msg = e.Code, e.Message
	}
	switch {
	case code == codeNotFound || (code == "" && status == http.StatusNotFound):
		return node.ErrNotFound
	case code == codeInvalidID:
		return fmt.Errorf("%w: %s", node.ErrInvalidID, msg)
	case code == codeIDMismatch:
		return node.ErrIDMismatch
	case code == codeRejected:
		return fmt.Errorf("%w: %s", node.ErrRejected, msg)
	case code == codeUnavailable || status == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", node.ErrUnavailable, msg)
	default:
		return fmt.Errorf("httpnode: status %d: %s", status, msg)
	}
}
