package memory

import "encoding/json"

// Metadata carries the fixed semantic-memory fields plus an open extension
// bag for caller-defined keys.
type Metadata struct {
	Source  string
	Section string
	Tags    []string
	PII     bool
	Extra   map[string]any
}

var metadataWireKeys = map[string]bool{
	"source": true, "section": true, "tags": true, "pii": true,
}

// field resolves a filter key against the fixed fields, falling back to Extra.
func (m *Metadata) field(key string) (any, bool) {
	switch key {
	case "source":
		return m.Source, true
	case "section":
		return m.Section, true
	case "pii":
		return m.PII, true
	}
	v, ok := m.Extra[key]
	return v, ok
}

func (m *Metadata) clone() Metadata {
	cp := *m
	if m.Tags != nil {
		cp.Tags = append([]string(nil), m.Tags...)
	}
	if m.Extra != nil {
		cp.Extra = make(map[string]any, len(m.Extra))
		for k, v := range m.Extra {
			cp.Extra[k] = v
		}
	}
	return cp
}

// UnmarshalJSON decodes metadata, routing unknown keys into Extra.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["source"]; ok {
		_ = json.Unmarshal(v, &m.Source)
	}
	if v, ok := raw["section"]; ok {
		_ = json.Unmarshal(v, &m.Section)
	}
	if v, ok := raw["pii"]; ok {
		_ = json.Unmarshal(v, &m.PII)
	}
	m.Tags = nil
	if v, ok := raw["tags"]; ok {
		_ = json.Unmarshal(v, &m.Tags)
	}
	m.Extra = nil
	for key, v := range raw {
		if metadataWireKeys[key] {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			continue
		}
		if m.Extra == nil {
			m.Extra = make(map[string]any)
		}
		m.Extra[key] = val
	}
	return nil
}

// MarshalJSON encodes metadata with Extra flattened into top-level keys.
func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+4)
	for k, v := range m.Extra {
		if !metadataWireKeys[k] {
			out[k] = v
		}
	}
	out["source"] = m.Source
	out["section"] = m.Section
	out["pii"] = m.PII
	if m.Tags != nil {
		out["tags"] = m.Tags
	}
	return json.Marshal(out)
}

// Document is a semantic memory item. Text is stored post PII-scrub when
// scrubbing is enabled; Embedding is the unit-normalized vector the store
// computed at upsert time.
type Document struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Metadata  Metadata  `json:"metadata"`
	Embedding []float64 `json:"embedding,omitempty"`
}

func (d *Document) clone() Document {
	cp := *d
	cp.Metadata = d.Metadata.clone()
	if d.Embedding != nil {
		cp.Embedding = append([]float64(nil), d.Embedding...)
	}
	return cp
}

// matchDocumentFilters applies equality filters against metadata, with the
// same all-of tag containment semantics the episodic filters use.
func matchDocumentFilters(meta *Metadata, filters map[string]any) bool {
	for key, want := range filters {
		if key == "tags" {
			if !matchTags(meta.Tags, want) {
				return false
			}
			continue
		}
		got, ok := meta.field(key)
		if !ok || !looseEqual(got, want) {
			return false
		}
	}
	return true
}
