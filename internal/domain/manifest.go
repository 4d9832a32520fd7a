package domain

// Operation is a single archive from a parsed manifest, before it becomes a
// Request.
type Operation struct {
	Source          Source            `json:"-"`
	Name            string            `json:"name"`
	Size            int64             `json:"size"`
	Hash            string            `json:"hash,omitempty"`
	HashAlgorithm   HashAlgorithm     `json:"hash_algorithm,omitempty"`
	Priority        int               `json:"priority"`
	DestinationHint string            `json:"destination_hint,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Manifest is the normalized form of a modlist. Operations keep the order
// of the source document.
type Manifest struct {
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	Author      string      `json:"author"`
	Game        string      `json:"game"`
	Description string      `json:"description,omitempty"`
	Operations  []Operation `json:"operations"`
}

// TotalSize sums the declared sizes of all operations.
func (m *Manifest) TotalSize() int64 {
	var total int64
	for _, op := range m.Operations {
		total += op.Size
	}
	return total
}
