// Package fsstore keeps encoded ledger messages as immutable files keyed by
// message id.
package fsstore

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ipfs/go-cid"

	"xdao.co/streams-tangle/cidutil"
	"xdao.co/streams-tangle/node"
)

// ErrImmutable is returned when a stored file no longer matches its id.
var ErrImmutable = errors.New("fsstore: stored message differs")

// Store is a directory of message files, laid out as <root>/<ab>/<hex digest>.
// It never rewrites a file once created.
type Store struct {
	root string
}

// New returns a store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("fsstore: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func (s *Store) Root() string { return s.root }

// Put stores b under its message id. Storing identical bytes again is a no-op.
func (s *Store) Put(b []byte) (cid.Cid, error) {
	id, err := cidutil.MessageCID(b)
	if err != nil {
		return cid.Undef, err
	}
	path := s.pathFor(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cid.Undef, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if os.IsExist(err) {
			existing, rerr := s.Get(id)
			if rerr != nil || !bytes.Equal(existing, b) {
				return cid.Undef, ErrImmutable
			}
			return id, nil
		}
		return cid.Undef, err
	}

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return cid.Undef, err
	}
	return id, nil
}

// Get returns the bytes stored for id after checking they hash to it.
func (s *Store) Get(id cid.Cid) ([]byte, error) {
	if err := cidutil.Check(id); err != nil {
		return nil, node.ErrInvalidID
	}
	b, err := os.ReadFile(s.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, node.ErrNotFound
		}
		return nil, err
	}
	got, err := cidutil.MessageCID(b)
	if err != nil {
		return nil, err
	}
	if !got.Equals(id) {
		return nil, node.ErrIDMismatch
	}
	return b, nil
}

func (s *Store) Has(id cid.Cid) bool {
	if cidutil.Check(id) != nil {
		return false
	}
	_, err := os.Stat(s.pathFor(id))
	return err == nil
}

// Walk calls fn for every stored message in lexical id order. Files whose
// name is not a message digest are skipped.
func (s *Store) Walk(fn func(id cid.Cid, b []byte) error) error {
	return filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		id, err := cidutil.FromHex(d.Name())
		if err != nil {
			return nil
		}
		b, err := s.Get(id)
		if err != nil {
			return err
		}
		return fn(id, b)
	})
}

func (s *Store) pathFor(id cid.Cid) string {
	h := cidutil.Hex(id)
	return filepath.Join(s.root, h[:2], h)
}
