package httpnode

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ipfs/go-cid"

	"xdao.co/streams-tangle/cidutil"
	"xdao.co/streams-tangle/ledger"
	"xdao.co/streams-tangle/node"
)

// REST bodies follow the node API layout: every reply is {"data": ...} or
// {"error": {...}}; ids are hex blake2b digests; byte fields are hex.

type envelope struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error *apiError       `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	codeNotFound    = "not_found"
	codeInvalidID   = "invalid_id"
	codeIDMismatch  = "id_mismatch"
	codeRejected    = "rejected"
	codeUnavailable = "unavailable"
	codeBadRequest  = "bad_request"
	codeInternal    = "internal"
)

type infoJSON struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	IsHealthy   bool   `json:"isHealthy"`
	NetworkID   string `json:"networkId"`
	MinPowScore uint8  `json:"minPowScore"`
	RemotePow   bool   `json:"remotePow"`
}

type tipsJSON struct {
	TipMessageIDs []string `json:"tipMessageIds"`
}

type submitJSON struct {
	MessageID string `json:"messageId"`
}

type indexJSON struct {
	Index      string   `json:"index"`
	Count      int      `json:"count"`
	MessageIDs []string `json:"messageIds"`
}

type messageJSON struct {
	NetworkID        string       `json:"networkId"`
	ParentMessageIDs []string     `json:"parentMessageIds"`
	Payload          *payloadJSON `json:"payload,omitempty"`
	Nonce            string       `json:"nonce"`
}

type payloadJSON struct {
	Type  uint32 `json:"type"`
	Index string `json:"index,omitempty"`
	Data  string `json:"data,omitempty"`
}

func infoToJSON(i node.Info) infoJSON {
	return infoJSON{
		Name:        i.Name,
		Version:     i.Version,
		IsHealthy:   i.Healthy,
		NetworkID:   strconv.FormatUint(i.NetworkID, 10),
		MinPowScore: i.MinWeightMagnitude,
		RemotePow:   i.RemotePoW,
	}
}

func infoFromJSON(j infoJSON) (node.Info, error) {
	var network uint64
	if j.NetworkID != "" {
		n, err := strconv.ParseUint(j.NetworkID, 10, 64)
		if err != nil {
			return node.Info{}, fmt.Errorf("httpnode: invalid networkId %q", j.NetworkID)
		}
		network = n
	}
	return node.Info{
		Name:               j.Name,
		Version:            j.Version,
		NetworkID:          network,
		Healthy:            j.IsHealthy,
		MinWeightMagnitude: j.MinPowScore,
		RemotePoW:          j.RemotePow,
	}, nil
}

func idsToJSON(ids []cid.Cid) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, cidutil.Hex(id))
	}
	return out
}

func idsFromJSON(ss []string) ([]cid.Cid, error) {
	out := make([]cid.Cid, 0, len(ss))
	for _, s := range ss {
		id, err := cidutil.FromHex(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", node.ErrInvalidID, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func messageToJSON(m *ledger.Message) messageJSON {
	j := messageJSON{
		NetworkID:        strconv.FormatUint(m.NetworkID, 10),
		ParentMessageIDs: idsToJSON(m.Parents[:]),
		Nonce:            strconv.FormatUint(m.Nonce, 10),
	}
	switch p := m.Payload.(type) {
	case *ledger.Indexation:
		j.Payload = &payloadJSON{
			Type:  uint32(ledger.KindIndexation),
			Index: hex.EncodeToString(p.Index),
			Data:  hex.EncodeToString(p.Data),
		}
	case *ledger.Opaque:
		j.Payload = &payloadJSON{Type: uint32(p.Type), Data: hex.EncodeToString(p.Bytes)}
	}
	return j
}

func messageFromJSON(j messageJSON) (*ledger.Message, error) {
	m := &ledger.Message{}
	var err error
	if j.NetworkID != "" {
		if m.NetworkID, err = strconv.ParseUint(j.NetworkID, 10, 64); err != nil {
			return nil, fmt.Errorf("%w: networkId: %v", ledger.ErrMalformedMessage, err)
		}
	}
	if j.Nonce != "" {
		if m.Nonce, err = strconv.ParseUint(j.Nonce, 10, 64); err != nil {
			return nil, fmt.Errorf("%w: nonce: %v", ledger.ErrMalformedMessage, err)
		}
	}
	if len(j.ParentMessageIDs) != 2 {
		return nil, fmt.Errorf("%w: want 2 parents, got %d", ledger.ErrMalformedMessage, len(j.ParentMessageIDs))
	}
	parents, err := idsFromJSON(j.ParentMessageIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrMalformedMessage, err)
	}
	m.Parents = ledger.Tips{parents[0], parents[1]}

	if p := j.Payload; p != nil {
		data, err := hex.DecodeString(p.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: payload data: %v", ledger.ErrMalformedMessage, err)
		}
		if ledger.PayloadKind(p.Type) == ledger.KindIndexation {
			index, err := hex.DecodeString(p.Index)
			if err != nil {
				return nil, fmt.Errorf("%w: payload index: %v", ledger.ErrMalformedMessage, err)
			}
			m.Payload = &ledger.Indexation{Index: index, Data: data}
		} else {
			m.Payload = &ledger.Opaque{Type: ledger.PayloadKind(p.Type), Bytes: data}
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
