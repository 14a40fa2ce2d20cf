package events

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const outboxPrefix = "outbox:"

// BadgerOutbox durably stores events in a badger database until they are
// acknowledged
type BadgerOutbox struct {
	db *badger.DB
}

// OpenBadgerOutbox opens (or creates) an outbox in dir. An empty dir opens an
// in-memory outbox.
func OpenBadgerOutbox(dir string) (*BadgerOutbox, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "events: could not open outbox")
	}
	return &BadgerOutbox{db: db}, nil
}

// outboxKey orders events by their occurrence
func outboxKey(e Event) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", outboxPrefix, e.OccurredAt.UnixNano(), e.ID))
}

// Publish implements the Publisher interface by appending e to the outbox
func (o *BadgerOutbox) Publish(_ context.Context, e Event) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	err = o.db.Update(
		func(txn *badger.Txn) error {
			return txn.Set(outboxKey(e), data)
		},
	)
	return errors.Wrap(err, "events: could not write to outbox")
}

// Pending returns up to limit stored events, oldest first. A limit <= 0
// returns all events.
func (o *BadgerOutbox) Pending(limit int) ([]Event, error) {
	pending := make([]Event, 0)
	err := o.db.View(
		func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			prefix := []byte(outboxPrefix)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				if limit > 0 && len(pending) >= limit {
					return nil
				}
				if err := it.Item().Value(
					func(val []byte) error {
						e, err := Decode(val)
						if err != nil {
							return err
						}
						pending = append(pending, e)
						return nil
					},
				); err != nil {
					return err
				}
			}
			return nil
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "events: could not read outbox")
	}
	return pending, nil
}

// Ack removes delivered events from the outbox
func (o *BadgerOutbox) Ack(delivered ...Event) error {
	if len(delivered) == 0 {
		return nil
	}
	err := o.db.Update(
		func(txn *badger.Txn) error {
			for _, e := range delivered {
				if err := txn.Delete(outboxKey(e)); err != nil {
					return err
				}
			}
			return nil
		},
	)
	return errors.Wrap(err, "events: could not acknowledge events")
}

// Drain delivers all pending events to target and acknowledges the delivered
// ones. It stops at the first delivery failure, so ordering is kept.
func (o *BadgerOutbox) Drain(ctx context.Context, target Publisher) (int, error) {
	pending, err := o.Pending(0)
	if err != nil {
		return 0, err
	}
	delivered := make([]Event, 0, len(pending))
	var deliveryErr error
	for _, e := range pending {
		if deliveryErr = target.Publish(ctx, e); deliveryErr != nil {
			break
		}
		delivered = append(delivered, e)
	}
	if err = o.Ack(delivered...); err != nil {
		return 0, err
	}
	return len(delivered), deliveryErr
}

// Close implements the Publisher interface
func (o *BadgerOutbox) Close() error {
	return o.db.Close()
}

// Buffered publishes to Primary and falls back to storing the event in
// Outbox if that fails. Buffered events are delivered later by draining the
// outbox.
type Buffered struct {
	Primary Publisher
	Outbox  *BadgerOutbox
}

// Publish implements the Publisher interface
func (b Buffered) Publish(ctx context.Context, e Event) error {
	err := b.Primary.Publish(ctx, e)
	if err == nil {
		return nil
	}
	log.WithError(err).WithField("id", e.ID).Warn("event delivery failed, storing it in the outbox")
	return b.Outbox.Publish(ctx, e)
}

// Flush drains the outbox into the primary publisher
func (b Buffered) Flush(ctx context.Context) (int, error) {
	return b.Outbox.Drain(ctx, b.Primary)
}

// Close implements the Publisher interface
func (b Buffered) Close() error {
	return Multi{b.Primary, b.Outbox}.Close()
}
