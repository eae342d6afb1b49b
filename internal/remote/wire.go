// Package remote implements sync remotes: a Connect client that pushes records to
// another instance, and the last-writer-wins targets that instance stores them in.
//
// Records travel as a google.protobuf.Struct so both ends need no generated code:
//
//	{"records": [{"kind": "expense", "id": "...", "updatedAt": "RFC 3339", "payload": {...}}]}
//
// and the reply lists record keys: {"accepted": ["expense/...", "group/...", ...]}.
package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/splitit/internal/syncer"
)

// PushProcedure is the Connect procedure served by the sync endpoint.
const PushProcedure = "/splitit.v1.SyncService/Push"

// ErrMalformed is returned for sync messages that do not follow the wire format.
var ErrMalformed = errors.New("malformed sync message")

// EncodePush builds the request message for records.
func EncodePush(records []syncer.Record) (*structpb.Struct, error) {
	list := make([]any, 0, len(records))
	for _, r := range records {
		var payload map[string]any
		if err := json.Unmarshal(r.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to decode payload of %s: %w", r.Key(), err)
		}
		list = append(list, map[string]any{
			"kind":      string(r.Kind),
			"id":        r.ID,
			"updatedAt": r.UpdatedAt.UTC().Format(time.RFC3339Nano),
			"payload":   payload,
		})
	}
	msg, err := structpb.NewStruct(map[string]any{"records": list})
	if err != nil {
		return nil, fmt.Errorf("failed to build push message: %w", err)
	}
	return msg, nil
}

// DecodePush parses a request message built by EncodePush.
func DecodePush(msg *structpb.Struct) ([]syncer.Record, error) {
	field, ok := msg.GetFields()["records"]
	if !ok {
		return nil, fmt.Errorf("%w: missing records", ErrMalformed)
	}
	list := field.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("%w: records is not a list", ErrMalformed)
	}

	records := make([]syncer.Record, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		s := v.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("%w: record %d is not an object", ErrMalformed, i)
		}
		fields := s.GetFields()

		kind := syncer.Kind(fields["kind"].GetStringValue())
		if kind != syncer.KindGroup && kind != syncer.KindExpense {
			return nil, fmt.Errorf("%w: record %d has kind %q", ErrMalformed, i, kind)
		}
		id := fields["id"].GetStringValue()
		if id == "" {
			return nil, fmt.Errorf("%w: record %d has no id", ErrMalformed, i)
		}
		updatedAt, err := time.Parse(time.RFC3339Nano, fields["updatedAt"].GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformed, i, err)
		}
		body := fields["payload"].GetStructValue()
		if body == nil {
			return nil, fmt.Errorf("%w: record %d has no payload", ErrMalformed, i)
		}
		payload, err := protojson.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d payload: %v", ErrMalformed, i, err)
		}

		records = append(records, syncer.Record{Kind: kind, ID: id, UpdatedAt: updatedAt, Payload: payload})
	}
	return records, nil
}

// EncodeResult builds the reply message.
func EncodeResult(res syncer.PushResult) (*structpb.Struct, error) {
	ids := make([]any, len(res.Accepted))
	for i, id := range res.Accepted {
		ids[i] = id
	}
	return structpb.NewStruct(map[string]any{"accepted": ids})
}

// DecodeResult parses a reply built by EncodeResult.
func DecodeResult(msg *structpb.Struct) (syncer.PushResult, error) {
	var res syncer.PushResult
	list := msg.GetFields()["accepted"].GetListValue()
	if list == nil {
		return res, fmt.Errorf("%w: missing accepted", ErrMalformed)
	}
	for _, v := range list.GetValues() {
		res.Accepted = append(res.Accepted, v.GetStringValue())
	}
	return res, nil
}
