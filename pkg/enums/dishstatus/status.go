package dishstatus

import (
	"fmt"
	"strings"
)

// Status is the preparation state of a single dish line. Name is the
// identifier used inside the service; Code is the value the order service
// stores.
type Status struct {
	Name string
	Code string
}

func (s Status) String() string {
	return s.Name
}

func (s Status) Label() string {
	parts := strings.Split(s.Name, "_")
	for i := range parts {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, " ")
}

// IsZero reports whether the status was never assigned.
func (s Status) IsZero() bool {
	return s.Name == ""
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.Name), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = Status{}
		return nil
	}
	found := ByName(string(text))
	if found == nil {
		return fmt.Errorf("unknown dish status %q", string(text))
	}
	*s = *found
	return nil
}

type Enum struct {
	Queued         Status
	Preparing      Status
	ReadyToCollect Status
	Delivered      Status
	OutOfStock     Status
}

var Statuses = Enum{
	Queued:         Status{Name: "queued", Code: "pendiente"},
	Preparing:      Status{Name: "preparing", Code: "preparacion"},
	ReadyToCollect: Status{Name: "ready_to_collect", Code: "recoger"},
	Delivered:      Status{Name: "delivered", Code: "entregado"},
	OutOfStock:     Status{Name: "out_of_stock", Code: "nostock"},
}

var All = []Status{
	Statuses.Queued,
	Statuses.Preparing,
	Statuses.ReadyToCollect,
	Statuses.Delivered,
	Statuses.OutOfStock,
}

// ByName returns the status matching a name or a wire code, or nil if not found.
func ByName(name string) *Status {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range All {
		if s.Name == name || s.Code == name {
			return &s
		}
	}
	return nil
}
