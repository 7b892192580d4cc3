package memnode

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ipfs/go-cid"

	"xdao.co/streams-tangle/cidutil"
	"xdao.co/streams-tangle/ledger"
	"xdao.co/streams-tangle/ledger/pow"
	"xdao.co/streams-tangle/node"
	"xdao.co/streams-tangle/node/fsstore"
)

// Version is reported by Info.
const Version = "memnode/1"

type Options struct {
	Name      string
	NetworkID uint64

	// MinWeightMagnitude is the proof of work required of submitted messages.
	MinWeightMagnitude uint8
	// RemotePoW makes the ledger mine messages that arrive without enough work
	// instead of rejecting them.
	RemotePoW bool
	// PoWWorkers bounds remote mining goroutines; <1 means one.
	PoWWorkers int

	// Dir, when set, persists messages as files (see Open).
	Dir string
}

// Ledger is an in-process tangle. Messages are stored immutably, keyed by
// their content id, and indexed by indexation index.
//
// Tips are the messages no other message references yet. Until something is
// attached, the only tip is a synthetic genesis id that cannot be fetched.
type Ledger struct {
	opts    Options
	genesis cid.Cid
	store   *fsstore.Store

	mu       sync.RWMutex
	messages map[cid.Cid][]byte
	index    map[string][]cid.Cid
	tips     []cid.Cid
}

var _ node.Node = (*Ledger)(nil)

func New(opts Options) *Ledger {
	if opts.Name == "" {
		opts.Name = "memnode"
	}
	genesis, err := cidutil.MessageCID([]byte(fmt.Sprintf("genesis/%d", opts.NetworkID)))
	if err != nil {
		// blake2b-256 is registered by cidutil; Sum cannot fail for it.
		panic(err)
	}
	return &Ledger{
		opts:     opts,
		genesis:  genesis,
		messages: map[cid.Cid][]byte{},
		index:    map[string][]cid.Cid{},
		tips:     []cid.Cid{genesis},
	}
}

// Open is New plus persistence: with opts.Dir set, messages already stored
// there are loaded and every accepted message is written there. The index of
// reloaded messages follows id order, not submission order.
func Open(opts Options) (*Ledger, error) {
	l := New(opts)
	if opts.Dir == "" {
		return l, nil
	}
	store, err := fsstore.New(opts.Dir)
	if err != nil {
		return nil, err
	}
	l.store = store

	referenced := map[cid.Cid]bool{}
	var order []cid.Cid
	err = store.Walk(func(id cid.Cid, b []byte) error {
		msg, err := ledger.Decode(b)
		if err != nil {
			return fmt.Errorf("memnode: stored message %s: %w", cidutil.Hex(id), err)
		}
		l.messages[id] = b
		if idx := msg.Index(); idx != nil {
			l.index[string(idx)] = append(l.index[string(idx)], id)
		}
		referenced[msg.Parents[0]] = true
		referenced[msg.Parents[1]] = true
		order = append(order, id)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var tips []cid.Cid
	for _, id := range order {
		if !referenced[id] {
			tips = append(tips, id)
		}
	}
	if len(tips) > 0 {
		l.tips = tips
	}
	return l, nil
}

// Genesis returns the synthetic root id.
func (l *Ledger) Genesis() cid.Cid { return l.genesis }

// Len returns the number of attached messages.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

func (l *Ledger) Info(ctx context.Context) (node.Info, error) {
	if err := ctx.Err(); err != nil {
		return node.Info{}, err
	}
	return node.Info{
		Name:               l.opts.Name,
		Version:            Version,
		NetworkID:          l.opts.NetworkID,
		Healthy:            true,
		MinWeightMagnitude: l.opts.MinWeightMagnitude,
		RemotePoW:          l.opts.RemotePoW,
	}, nil
}

// Tips returns the two most recently attached tips. A lone tip is returned twice.
func (l *Ledger) Tips(ctx context.Context) (ledger.Tips, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Tips{}, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := len(l.tips)
	if n == 1 {
		return ledger.Tips{l.tips[0], l.tips[0]}, nil
	}
	return ledger.Tips{l.tips[n-2], l.tips[n-1]}, nil
}

func (l *Ledger) Submit(ctx context.Context, msg *ledger.Message) (cid.Cid, error) {
	if err := ctx.Err(); err != nil {
		return cid.Undef, err
	}
	if err := msg.Validate(); err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", node.ErrRejected, err)
	}
	if l.opts.NetworkID != 0 && msg.NetworkID != l.opts.NetworkID {
		return cid.Undef, fmt.Errorf("%w: network id %d, want %d", node.ErrRejected, msg.NetworkID, l.opts.NetworkID)
	}
	for _, p := range msg.Parents {
		if !l.known(p) {
			return cid.Undef, fmt.Errorf("%w: unknown parent %s", node.ErrRejected, p)
		}
	}

	ok, err := pow.Check(msg, l.opts.MinWeightMagnitude)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", node.ErrRejected, err)
	}
	if !ok {
		if !l.opts.RemotePoW {
			return cid.Undef, fmt.Errorf("%w: insufficient proof of work", node.ErrRejected)
		}
		cp := *msg
		if err := pow.Apply(ctx, &cp, l.opts.MinWeightMagnitude, l.opts.PoWWorkers); err != nil {
			return cid.Undef, err
		}
		msg = &cp
	}

	b, err := ledger.Encode(msg)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", node.ErrRejected, err)
	}
	id, err := cidutil.MessageCID(b)
	if err != nil {
		return cid.Undef, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.messages[id]; exists {
		return id, nil
	}
	if l.store != nil {
		if _, err := l.store.Put(b); err != nil {
			return cid.Undef, fmt.Errorf("%w: persist: %v", node.ErrUnavailable, err)
		}
	}
	l.messages[id] = b
	if idx := msg.Index(); idx != nil {
		l.index[string(idx)] = append(l.index[string(idx)], id)
	}
	l.attach(id, msg.Parents)
	return id, nil
}

func (l *Ledger) Lookup(ctx context.Context, index []byte) ([]cid.Cid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]cid.Cid(nil), l.index[string(index)]...), nil
}

func (l *Ledger) Fetch(ctx context.Context, id cid.Cid) (*ledger.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cidutil.Check(id); err != nil {
		return nil, node.ErrInvalidID
	}
	l.mu.RLock()
	b, ok := l.messages[id]
	l.mu.RUnlock()
	if !ok {
		return nil, node.ErrNotFound
	}
	msg, err := ledger.Verify(id, b)
	if errors.Is(err, ledger.ErrIDMismatch) {
		return nil, fmt.Errorf("%w: %w", node.ErrIDMismatch, err)
	}
	return msg, err
}

func (l *Ledger) known(id cid.Cid) bool {
	if id.Equals(l.genesis) {
		return true
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.messages[id]
	return ok
}

// attach removes the parents from the tip set and adds id. Callers hold mu.
func (l *Ledger) attach(id cid.Cid, parents ledger.Tips) {
	kept := l.tips[:0]
	for _, t := range l.tips {
		if !t.Equals(parents[0]) && !t.Equals(parents[1]) {
			kept = append(kept, t)
		}
	}
	l.tips = append(kept, id)
}
