// Package events publishes notifications about committed signatures.
//
// Publication happens after the signing transaction committed. A failing
// Publisher never changes the outcome of a signing request; errors are only
// logged.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
)

// Type is the type of an Event
type Type string

// Event types
const (
	TypeSignatureCreated Type = "signature.created"
)

// Event describes something that happened to a contract
type Event struct {
	ID         string    `msgpack:"id" json:"id"`
	Type       Type      `msgpack:"type" json:"type"`
	Hash       string    `msgpack:"hash" json:"hash"`
	PageID     string    `msgpack:"page_id" json:"pageId"`
	AccountID  string    `msgpack:"account_id" json:"accountId"`
	Signatures int       `msgpack:"signatures" json:"signatures"`
	OccurredAt time.Time `msgpack:"occurred_at" json:"occurredAt"`
}

// NewSignatureCreated creates a signature.created Event with a fresh id
func NewSignatureCreated(hash, pageID, accountID string, signatures int, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       TypeSignatureCreated,
		Hash:       hash,
		PageID:     pageID,
		AccountID:  accountID,
		Signatures: signatures,
		OccurredAt: at.UTC(),
	}
}

// Encode returns the wire encoding of the Event
func (e Event) Encode() ([]byte, error) {
	data, err := msgpack.Marshal(e)
	return data, errors.Wrap(err, "events: encoding failed")
}

// Decode parses the wire encoding of an Event
func Decode(data []byte) (Event, error) {
	var e Event
	err := msgpack.Unmarshal(data, &e)
	return e, errors.Wrap(err, "events: decoding failed")
}

// Publisher delivers events
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher only logs events. It is used if no other publisher is
// configured.
type LogPublisher struct{}

// Publish implements the Publisher interface
func (LogPublisher) Publish(_ context.Context, e Event) error {
	log.WithFields(
		log.Fields{
			"event":   e.Type,
			"id":      e.ID,
			"hash":    e.Hash,
			"page":    e.PageID,
			"account": e.AccountID,
		},
	).Info("event")
	return nil
}

// Close implements the Publisher interface
func (LogPublisher) Close() error {
	return nil
}

// Multi publishes each event to all of its publishers
type Multi []Publisher

// Publish implements the Publisher interface. All publishers are tried; the
// first error is returned.
func (m Multi) Publish(ctx context.Context, e Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close implements the Publisher interface
func (m Multi) Close() error {
	var first error
	for _, p := range m {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Dispatch publishes e with p and logs a failure instead of returning it
func Dispatch(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		log.WithError(err).WithFields(
			log.Fields{
				"event": e.Type,
				"id":    e.ID,
			},
		).Error("could not publish event")
	}
}
