package betterurl

import (
	"encoding/json"
	"fmt"
)

var bareParts = map[string]Part{
	"Whole":           Whole(),
	"Scheme":          Scheme(),
	"Username":        Username(),
	"Password":        Password(),
	"Host":            Host(),
	"Port":            Port(),
	"Path":            Path(),
	"Query":           Query(),
	"Fragment":        Fragment(),
	"Domain":          Domain(),
	"Subdomain":       Subdomain(),
	"RegDomain":       RegDomain(),
	"DomainMiddle":    DomainMiddle(),
	"DomainSuffix":    DomainSuffix(),
	"NotDomainSuffix": NotDomainSuffix(),
}

// ParsePart decodes a Part from its JSON form: a bare string for the
// zero-argument parts listed above, or a single-key tagged object for
// the parameterized ones (spec.md §4.B / §6).
func ParsePart(data []byte) (Part, error) {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		if p, ok := bareParts[name]; ok {
			return p, nil
		}
		return Part{}, fmt.Errorf("%w: unknown part %q", ErrInvalidPartValue, name)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return Part{}, fmt.Errorf("%w: part must be a string or single-key object: %v", ErrInvalidPartValue, err)
	}
	if len(obj) != 1 {
		return Part{}, fmt.Errorf("%w: tagged part object must have exactly one key, got %d", ErrInvalidPartValue, len(obj))
	}
	for tag, payload := range obj {
		switch tag {
		case "DomainSegment":
			var f struct{ N int `json:"n"` }
			if err := json.Unmarshal(payload, &f); err != nil {
				return Part{}, fmt.Errorf("%w: %v", ErrInvalidPartValue, err)
			}
			return DomainSegment(f.N), nil
		case "SubdomainSegment":
			var f struct{ N int `json:"n"` }
			if err := json.Unmarshal(payload, &f); err != nil {
				return Part{}, fmt.Errorf("%w: %v", ErrInvalidPartValue, err)
			}
			return SubdomainSegment(f.N), nil
		case "DomainSuffixSegment":
			var f struct{ N int `json:"n"` }
			if err := json.Unmarshal(payload, &f); err != nil {
				return Part{}, fmt.Errorf("%w: %v", ErrInvalidPartValue, err)
			}
			return DomainSuffixSegment(f.N), nil
		case "PathSegment":
			var f struct{ N int `json:"n"` }
			if err := json.Unmarshal(payload, &f); err != nil {
				return Part{}, fmt.Errorf("%w: %v", ErrInvalidPartValue, err)
			}
			return PathSegment(f.N), nil
		case "PathSegments":
			var f struct {
				Start int `json:"start"`
				End   int `json:"end"`
			}
			if err := json.Unmarshal(payload, &f); err != nil {
				return Part{}, fmt.Errorf("%w: %v", ErrInvalidPartValue, err)
			}
			return PathSegments(f.Start, f.End), nil
		case "BeforePathSegment":
			var f struct{ N int `json:"n"` }
			if err := json.Unmarshal(payload, &f); err != nil {
				return Part{}, fmt.Errorf("%w: %v", ErrInvalidPartValue, err)
			}
			return BeforePathSegment(f.N), nil
		case "AfterPathSegment":
			var f struct{ N int `json:"n"` }
			if err := json.Unmarshal(payload, &f); err != nil {
				return Part{}, fmt.Errorf("%w: %v", ErrInvalidPartValue, err)
			}
			return AfterPathSegment(f.N), nil
		case "QueryParam":
			var f struct{ Name string `json:"name"` }
			if err := json.Unmarshal(payload, &f); err != nil {
				return Part{}, fmt.Errorf("%w: %v", ErrInvalidPartValue, err)
			}
			return QueryParam(f.Name), nil
		case "NthQueryParam":
			var f struct {
				Name string `json:"name"`
				N    int    `json:"n"`
			}
			if err := json.Unmarshal(payload, &f); err != nil {
				return Part{}, fmt.Errorf("%w: %v", ErrInvalidPartValue, err)
			}
			return NthQueryParam(f.Name, f.N), nil
		case "NthQueryPair":
			var f struct{ N int `json:"n"` }
			if err := json.Unmarshal(payload, &f); err != nil {
				return Part{}, fmt.Errorf("%w: %v", ErrInvalidPartValue, err)
			}
			return NthQueryPair(f.N), nil
		default:
			return Part{}, fmt.Errorf("%w: unknown part tag %q", ErrInvalidPartValue, tag)
		}
	}
	return Part{}, fmt.Errorf("%w: empty part object", ErrInvalidPartValue)
}
