package node

import (
	"context"
	"fmt"
	"sync"

	"github.com/ipfs/go-cid"

	"xdao.co/streams-tangle/ledger"
)

// SubmitPolicy selects which pool members receive submitted messages.
type SubmitPolicy string

const (
	// SubmitFirst writes only to the first node; reads fall back in order.
	SubmitFirst SubmitPolicy = "first"
	// SubmitAll writes to every node and requires all returned ids to match.
	SubmitAll SubmitPolicy = "all"
)

// Named associates a node connection with a stable name (usually its URL).
type Named struct {
	Name string
	Node Node
}

// Pool provides deterministic, ordered fallback across node connections.
//
// Read order is insertion order. Lookup returns the first non-empty answer
// and Fetch falls back only on ErrNotFound; any other error is returned as is.
// Nodes can be appended while the pool is in use.
type Pool struct {
	mu     sync.RWMutex
	nodes  []Named
	policy SubmitPolicy
}

var _ Node = (*Pool)(nil)

func NewPool(policy SubmitPolicy, nodes ...Named) *Pool {
	if policy == "" {
		policy = SubmitFirst
	}
	return &Pool{nodes: append([]Named(nil), nodes...), policy: policy}
}

// Add appends n to the fallback order.
func (p *Pool) Add(n Named) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nodes = append(p.nodes, n)
}

func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.nodes)
}

// Names returns member names in fallback order.
func (p *Pool) Names() []string {
	nodes := p.snapshot()
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

// Members returns a copy of the pool members in fallback order.
func (p *Pool) Members() []Named { return p.snapshot() }

func (p *Pool) Policy() SubmitPolicy { return p.policy }

func (p *Pool) snapshot() []Named {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Named(nil), p.nodes...)
}

func (p *Pool) first() (Named, error) {
	nodes := p.snapshot()
	if len(nodes) == 0 {
		return Named{}, fmt.Errorf("%w: pool has no nodes", ErrUnavailable)
	}
	return nodes[0], nil
}

func (p *Pool) Info(ctx context.Context) (Info, error) {
	n, err := p.first()
	if err != nil {
		return Info{}, err
	}
	return n.Node.Info(ctx)
}

func (p *Pool) Tips(ctx context.Context) (ledger.Tips, error) {
	n, err := p.first()
	if err != nil {
		return ledger.Tips{}, err
	}
	return n.Node.Tips(ctx)
}

func (p *Pool) Submit(ctx context.Context, msg *ledger.Message) (cid.Cid, error) {
	id, _, err := p.SubmitAll(ctx, msg)
	return id, err
}

// SubmitAll submits msg according to the pool's policy and returns the id
// together with the per-node ids. Under SubmitAll, differing ids yield
// ErrIDMismatch.
func (p *Pool) SubmitAll(ctx context.Context, msg *ledger.Message) (cid.Cid, map[string]cid.Cid, error) {
	nodes := p.snapshot()
	if len(nodes) == 0 {
		return cid.Undef, nil, fmt.Errorf("%w: pool has no nodes", ErrUnavailable)
	}
	if p.policy != SubmitAll {
		nodes = nodes[:1]
	}

	out := make(map[string]cid.Cid, len(nodes))
	var want cid.Cid
	for i, n := range nodes {
		if n.Node == nil {
			return cid.Undef, out, fmt.Errorf("node: nil connection for %q", n.Name)
		}
		got, err := n.Node.Submit(ctx, msg)
		if err != nil {
			return cid.Undef, out, err
		}
		out[n.Name] = got
		if i == 0 {
			want = got
			continue
		}
		if !got.Equals(want) {
			return cid.Undef, out, ErrIDMismatch
		}
	}
	return want, out, nil
}

func (p *Pool) Lookup(ctx context.Context, index []byte) ([]cid.Cid, error) {
	nodes := p.snapshot()
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: pool has no nodes", ErrUnavailable)
	}
	for _, n := range nodes {
		ids, err := n.Node.Lookup(ctx, index)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			return ids, nil
		}
	}
	return nil, nil
}

func (p *Pool) Fetch(ctx context.Context, id cid.Cid) (*ledger.Message, error) {
	for _, n := range p.snapshot() {
		if n.Node == nil {
			continue
		}
		msg, err := n.Node.Fetch(ctx, id)
		if err == nil {
			return msg, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}
