package model

// Identifiable is implemented by every persisted record.
// Stores use it to address records generically by id.
type Identifiable interface {
	GetID() string
}

// Part is a stocked component owned through a user's Parts list.
type Part struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PartNumber  string `json:"partNumber,omitempty"`
	Description string `json:"description,omitempty"`
	Quantity    uint   `json:"quantity"`
	BinID       string `json:"binId,omitempty"`
}

// GetID implements Identifiable.
func (p Part) GetID() string { return p.ID }

// Bin is a physical storage location.
type Bin struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// GetID implements Identifiable.
func (b Bin) GetID() string { return b.ID }

// IDs returns the ids of records in order.
func IDs[T Identifiable](records []T) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.GetID()
	}
	return ids
}
