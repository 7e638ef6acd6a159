package vertical

import (
	"strings"

	"github.com/verticore/backend/internal/domain/shared"
)

// Vertical identifies a business-domain profile. The catalog is closed:
// tenants can only be migrated between the verticals listed here.
type Vertical string

const (
	General       Vertical = "general"
	Computers     Vertical = "computers"
	Retail        Vertical = "retail"
	Restaurants   Vertical = "restaurants"
	Services      Vertical = "services"
	Manufacturing Vertical = "manufacturing"
)

// AllVerticals returns the closed catalog of verticals
func AllVerticals() []Vertical {
	return []Vertical{General, Computers, Retail, Restaurants, Services, Manufacturing}
}

// IsValid reports whether v is part of the catalog
func (v Vertical) IsValid() bool {
	switch v {
	case General, Computers, Retail, Restaurants, Services, Manufacturing:
		return true
	}
	return false
}

// String returns the vertical name
func (v Vertical) String() string {
	return string(v)
}

// ParseVertical parses a vertical name, case-insensitively
func ParseVertical(s string) (Vertical, error) {
	v := Vertical(strings.ToLower(strings.TrimSpace(s)))
	if !v.IsValid() {
		return "", shared.NewDomainError("INVALID_VERTICAL", "Unknown business vertical: "+s)
	}
	return v, nil
}
