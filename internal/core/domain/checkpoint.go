package domain

import (
	"encoding/base64"
	"encoding/json"
	"sort"
	"time"
)

// CheckpointVersion is the current checkpoint schema version.
const CheckpointVersion = 1

// Checkpoint holds the per-resource watermarks of a source.
// It is stored encoded in SyncState.Cursor.
type Checkpoint struct {
	// Version is the schema version for future migrations.
	Version int `json:"v"`

	// Resources maps resource name to its watermark.
	Resources map[string]ResourceMark `json:"resources"`
}

// ResourceMark is the last-seen position of a single resource.
type ResourceMark struct {
	// Watermark is the maximum cursor-field value observed.
	Watermark time.Time `json:"watermark"`

	// UpdatedAt is when the watermark was last advanced.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCheckpoint creates a new empty checkpoint.
func NewCheckpoint() *Checkpoint {
	return &Checkpoint{
		Version:   CheckpointVersion,
		Resources: make(map[string]ResourceMark),
	}
}

// Encode serialises the checkpoint to a base64-encoded JSON string.
func (c *Checkpoint) Encode() string {
	if c == nil {
		return ""
	}
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeCheckpoint deserialises a checkpoint from a base64-encoded JSON string.
// Returns a new empty checkpoint if the input is empty.
func DecodeCheckpoint(s string) (*Checkpoint, error) {
	if s == "" {
		return NewCheckpoint(), nil
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCheckpoint
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, ErrInvalidCheckpoint
	}

	if cp.Resources == nil {
		cp.Resources = make(map[string]ResourceMark)
	}

	return &cp, nil
}

// Watermark returns the stored watermark for a resource.
func (c *Checkpoint) Watermark(resource string) (time.Time, bool) {
	mark, ok := c.Resources[resource]
	if !ok || mark.Watermark.IsZero() {
		return time.Time{}, false
	}
	return mark.Watermark, true
}

// Advance moves the resource watermark forward to t.
// A watermark never moves backwards; an older or zero t is ignored.
func (c *Checkpoint) Advance(resource string, t time.Time, now time.Time) bool {
	if t.IsZero() {
		return false
	}
	if c.Resources == nil {
		c.Resources = make(map[string]ResourceMark)
	}
	current, ok := c.Resources[resource]
	if ok && !t.After(current.Watermark) {
		return false
	}
	c.Resources[resource] = ResourceMark{Watermark: t.UTC(), UpdatedAt: now.UTC()}
	return true
}

// Reset removes the watermark of a resource. An empty resource clears all.
func (c *Checkpoint) Reset(resource string) {
	if resource == "" {
		c.Resources = make(map[string]ResourceMark)
		return
	}
	delete(c.Resources, resource)
}

// ResourceNames returns the resources with a stored watermark, sorted.
func (c *Checkpoint) ResourceNames() []string {
	names := make([]string, 0, len(c.Resources))
	for name := range c.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
