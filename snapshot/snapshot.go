// Package snapshot persists the live entries of a store to a file and reads
// them back.
//
// A snapshot is a stream of JSON documents: one header followed by one
// record per entry. Keys and values are stored in their serializer string
// form, and TTLs are stored as the time remaining when the snapshot was
// taken, so a restored entry expires the same amount of time after loading
// as it had left when saved. The stream may be gzip-compressed; Read
// detects compression on its own.
package snapshot

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gozephyr/kvstore/errors"
	"github.com/gozephyr/kvstore/serializer"
	"github.com/gozephyr/kvstore/store"
)

// FormatVersion is written into every header
const FormatVersion = 1

const maxPrealloc = 4096

// Header describes a snapshot
type Header struct {
	Version   int       `json:"version"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Count     int       `json:"count"`
}

type record struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	TTLMs *int64 `json:"ttl_ms,omitempty"`
}

// Source is anything that can list its live entries
type Source[K comparable, V any] interface {
	Entries() []store.Item[K, V]
}

// Sink is anything that can take entries back
type Sink[K comparable, V any] interface {
	Import(items []store.Item[K, V])
}

// Options configures how snapshots are written
type Options struct {
	// Compress enables gzip compression
	Compress bool

	// Level is the gzip compression level
	Level int
}

// Option is a function that configures snapshot options
type Option func(*Options)

// WithCompression enables gzip compression at the given level
func WithCompression(level int) Option {
	return func(o *Options) {
		o.Compress = true
		o.Level = level
	}
}

// Write encodes items to w
func Write[K comparable, V any](w io.Writer, items []store.Item[K, V], keys serializer.Serializer[K], values serializer.Serializer[V], opts ...Option) (Header, error) {
	options := Options{Level: gzip.DefaultCompression}
	for _, opt := range opts {
		opt(&options)
	}

	header := Header{
		Version:   FormatVersion,
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Count:     len(items),
	}

	var gz *gzip.Writer
	if options.Compress {
		var err error
		gz, err = gzip.NewWriterLevel(w, options.Level)
		if err != nil {
			return Header{}, errors.Wrapf("Write", nil, errors.ErrSnapshot, "%w", err)
		}
		w = gz
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(header); err != nil {
		return Header{}, errors.Wrapf("Write", nil, errors.ErrSnapshot, "%w", err)
	}

	for _, item := range items {
		key, err := serializer.Encode(keys, item.Key)
		if err != nil {
			return Header{}, errors.Wrapf("Write", item.Key, errors.ErrSerialization, "key: %w", err)
		}
		value, err := serializer.Encode(values, item.Value)
		if err != nil {
			return Header{}, errors.Wrapf("Write", item.Key, errors.ErrSerialization, "value: %w", err)
		}

		rec := record{Key: key, Value: value}
		if item.HasTTL {
			ms := toMillis(item.TTL)
			rec.TTLMs = &ms
		}
		if err := enc.Encode(rec); err != nil {
			return Header{}, errors.Wrapf("Write", item.Key, errors.ErrSnapshot, "%w", err)
		}
	}

	if gz != nil {
		if err := gz.Close(); err != nil {
			return Header{}, errors.Wrapf("Write", nil, errors.ErrSnapshot, "%w", err)
		}
	}
	return header, nil
}

// Read decodes a snapshot written by Write
func Read[K comparable, V any](r io.Reader, keys serializer.Serializer[K], values serializer.Serializer[V]) ([]store.Item[K, V], Header, error) {
	br := bufio.NewReader(r)

	var src io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, Header{}, errors.Wrapf("Read", nil, errors.ErrSnapshot, "%w", err)
		}
		defer gz.Close()
		src = gz
	}

	dec := json.NewDecoder(src)

	var header Header
	if err := dec.Decode(&header); err != nil {
		return nil, Header{}, errors.Wrapf("Read", nil, errors.ErrSnapshot, "bad header: %w", err)
	}
	if header.Version != FormatVersion {
		return nil, Header{}, errors.Wrapf("Read", nil, errors.ErrSnapshot, "unsupported version %d", header.Version)
	}

	if header.Count < 0 {
		return nil, Header{}, errors.Wrapf("Read", nil, errors.ErrSnapshot, "negative record count %d", header.Count)
	}

	// Count comes from the file and only caps the preallocation
	items := make([]store.Item[K, V], 0, min(header.Count, maxPrealloc))
	for {
		var rec record
		err := dec.Decode(&rec)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, header, errors.Wrapf("Read", nil, errors.ErrSnapshot, "record %d: %w", len(items), err)
		}

		key, err := keys.FromString(rec.Key)
		if err != nil {
			return nil, header, errors.Wrapf("Read", rec.Key, errors.ErrDeserialization, "key: %w", err)
		}
		value, err := values.FromString(rec.Value)
		if err != nil {
			return nil, header, errors.Wrapf("Read", rec.Key, errors.ErrDeserialization, "value: %w", err)
		}

		item := store.Item[K, V]{Key: key, Value: value}
		if rec.TTLMs != nil {
			item.HasTTL = true
			item.TTL = time.Duration(*rec.TTLMs) * time.Millisecond
		}
		items = append(items, item)
	}

	if len(items) != header.Count {
		return nil, header, errors.Wrapf("Read", nil, errors.ErrSnapshot, "header promises %d records, found %d", header.Count, len(items))
	}
	return items, header, nil
}

// Save writes the live entries of src to path. The file is written to a
// temporary name in the same directory and renamed into place, so readers
// never see a partial snapshot.
func Save[K comparable, V any](path string, src Source[K, V], keys serializer.Serializer[K], values serializer.Serializer[V], opts ...Option) (Header, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Header{}, errors.Wrapf("Save", path, errors.ErrSnapshot, "%w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return Header{}, errors.Wrapf("Save", path, errors.ErrSnapshot, "%w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once the rename has succeeded
		_ = os.Remove(tmpName)
	}()

	header, err := Write(tmp, src.Entries(), keys, values, opts...)
	if err != nil {
		tmp.Close()
		return Header{}, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return Header{}, errors.Wrapf("Save", path, errors.ErrSnapshot, "%w", err)
	}
	if err := tmp.Close(); err != nil {
		return Header{}, errors.Wrapf("Save", path, errors.ErrSnapshot, "%w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return Header{}, errors.Wrapf("Save", path, errors.ErrSnapshot, "%w", err)
	}
	return header, nil
}

// Load reads the snapshot at path into dst. Nothing is imported if the file
// is unreadable or corrupted.
func Load[K comparable, V any](path string, dst Sink[K, V], keys serializer.Serializer[K], values serializer.Serializer[V]) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, errors.Wrapf("Load", path, errors.ErrSnapshot, "%w", err)
	}
	defer f.Close()

	items, header, err := Read(f, keys, values)
	if err != nil {
		return Header{}, err
	}
	dst.Import(items)
	return header, nil
}

// toMillis rounds d up to whole milliseconds so a live entry never comes
// back already expired
func toMillis(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Millisecond - 1) / time.Millisecond)
}
