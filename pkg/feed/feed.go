// Package feed implements a signed status feed: short messages grouped
// into fixed-size chunks, each chunk independently signed so a reader can
// verify any slice of the feed without the rest of it.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paladin-privacy/go-profiles/pkg/keychain"
	"github.com/paladin-privacy/go-profiles/pkg/models"
)

var (
	ErrNoKeychain     = errors.New("a keychain is required")
	ErrStatusNotFound = errors.New("status is not in the feed")
	ErrInvalidChunk   = errors.New("feed chunk signature is invalid")
)

const timeLayout = "2006-01-02T15:04:05.000Z"

// Feed is an append-only sequence of signed status chunks belonging to one
// identity.
type Feed struct {
	data     models.Feed
	settings models.Settings
	kc       *keychain.Keychain
	now      func() time.Time
}

// New returns an empty feed bound to a keychain.
func New(kc *keychain.Keychain, settings ...models.Settings) (*Feed, error) {
	if kc == nil {
		return nil, ErrNoKeychain
	}
	s := models.DefaultSettings()
	if len(settings) > 0 && settings[0].ChunkSize > 0 {
		s = settings[0]
	}
	return &Feed{settings: s, kc: kc, now: time.Now}, nil
}

// FromData reconstructs a feed and verifies every chunk signature against
// the keychain. A feed containing a chunk that does not verify is
// rejected.
func FromData(raw []byte, kc *keychain.Keychain, settings ...models.Settings) (*Feed, error) {
	f, err := New(kc, settings...)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &f.data); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	for i := range f.data.Chunks {
		ok, err := f.verifyChunk(f.data.Chunks[i])
		if err != nil || !ok {
			return nil, fmt.Errorf("%w: chunk %d", ErrInvalidChunk, i)
		}
	}
	return f, nil
}

// Post appends a status to the newest chunk, rolling over to a fresh
// chunk once the configured chunk size is reached. The touched chunk is
// re-signed.
func (f *Feed) Post(message string) (models.Status, error) {
	now := f.now().UTC().Format(timeLayout)
	status := models.Status{
		ID:         uuid.NewString(),
		Message:    message,
		CreatedOn:  now,
		ModifiedOn: now,
	}

	last := len(f.data.Chunks) - 1
	if last < 0 || len(f.data.Chunks[last].Body.Contents) >= f.settings.ChunkSize {
		f.data.Chunks = append(f.data.Chunks, models.FeedChunk{
			Body: models.FeedChunkBody{ID: uuid.NewString()},
		})
		last = len(f.data.Chunks) - 1
	}

	chunk := &f.data.Chunks[last]
	chunk.Body.Contents = append(chunk.Body.Contents, status)
	if err := f.signChunk(chunk); err != nil {
		chunk.Body.Contents = chunk.Body.Contents[:len(chunk.Body.Contents)-1]
		return models.Status{}, err
	}
	return status, nil
}

// EditStatus replaces the message of an existing status, stamps its
// modification time and re-signs the containing chunk.
func (f *Feed) EditStatus(id, message string) (models.Status, error) {
	for ci := range f.data.Chunks {
		chunk := &f.data.Chunks[ci]
		for si := range chunk.Body.Contents {
			if chunk.Body.Contents[si].ID != id {
				continue
			}
			prev := chunk.Body.Contents[si]
			chunk.Body.Contents[si].Message = message
			chunk.Body.Contents[si].ModifiedOn = f.now().UTC().Format(timeLayout)
			if err := f.signChunk(chunk); err != nil {
				chunk.Body.Contents[si] = prev
				return models.Status{}, err
			}
			return chunk.Body.Contents[si], nil
		}
	}
	return models.Status{}, fmt.Errorf("%w: %s", ErrStatusNotFound, id)
}

// Statuses returns every status in feed order.
func (f *Feed) Statuses() []models.Status {
	var out []models.Status
	for _, chunk := range f.data.Chunks {
		out = append(out, chunk.Body.Contents...)
	}
	return out
}

// Verify reports whether every chunk signature holds.
func (f *Feed) Verify() bool {
	for _, chunk := range f.data.Chunks {
		ok, err := f.verifyChunk(chunk)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// Export serializes the feed.
func (f *Feed) Export() ([]byte, error) {
	return json.Marshal(f.data)
}

// Data returns a copy of the serializable feed.
func (f *Feed) Data() models.Feed {
	out := models.Feed{Chunks: append([]models.FeedChunk(nil), f.data.Chunks...)}
	return out
}

func (f *Feed) signChunk(chunk *models.FeedChunk) error {
	body, err := json.Marshal(chunk.Body)
	if err != nil {
		return fmt.Errorf("serialize chunk body: %w", err)
	}
	sig, err := f.kc.Sign(body)
	if err != nil {
		return err
	}
	chunk.Signature = sig
	return nil
}

func (f *Feed) verifyChunk(chunk models.FeedChunk) (bool, error) {
	body, err := json.Marshal(chunk.Body)
	if err != nil {
		return false, err
	}
	return f.kc.Verify(body, chunk.Signature)
}
