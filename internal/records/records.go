// Package records defines the structured record types a resolution run
// produces. A Record is a tagged variant: the Kind discriminant says
// which fields are meaningful, and serialization flattens each variant
// to the field set callers expect on the wire.
package records

import (
	"encoding/json"
	"net"
	"strconv"
)

// Kind discriminates the record variants.
type Kind string

const (
	// KindAddress is an A or AAAA answer.
	KindAddress Kind = "address"
	// KindAlias is a CNAME answer.
	KindAlias Kind = "alias"
	// KindOther is any answer type not specially modeled.
	KindOther Kind = "other"
	// KindError is a classified resolution failure.
	KindError Kind = "error"
)

// Record is one resolved answer or classified failure.
//
// Field usage by Kind:
//
//	KindAddress: Name, Addr (may be nil), Type, TTL, Wildcard
//	KindAlias:   Query, Name, Type, TTL, Wildcard
//	KindOther:   Name, Type, TTL, Wildcard
//	KindError:   Query, Code
//
// For aliases, Query is the hostname that originated the lookup, not
// the owner of the CNAME answer, so alias chains can be traced back to
// their trigger.
type Record struct {
	Kind     Kind
	Query    string
	Name     string
	Addr     net.IP
	Type     string
	TTL      uint32
	Wildcard bool
	Code     string
}

// Key returns the dedup key the results store indexes by: the textual
// address for address records, the owner name for aliases and other
// records, and the query name for errors. Identical answers from
// different nameservers collapse to one key.
func (r Record) Key() string {
	switch r.Kind {
	case KindAddress:
		if r.Addr == nil {
			return ""
		}
		return r.Addr.String()
	case KindError:
		return r.Query
	default:
		return r.Name
	}
}

type addressJSON struct {
	Name     string `json:"name"`
	IP       string `json:"ip"`
	Type     string `json:"type"`
	TTL      uint32 `json:"ttl"`
	Wildcard bool   `json:"is_wildcard"`
}

type aliasJSON struct {
	Query    string `json:"query"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	TTL      uint32 `json:"ttl"`
	Wildcard bool   `json:"is_wildcard"`
}

type otherJSON struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	TTL      uint32 `json:"ttl"`
	Wildcard bool   `json:"is_wildcard"`
}

type errorJSON struct {
	Query string `json:"query"`
	Code  string `json:"response_code"`
}

// MarshalJSON flattens the variant to its wire layout. The Kind tag is
// folded into the "type" field for answers and into the shape of the
// object for errors.
func (r Record) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case KindAlias:
		return json.Marshal(aliasJSON{
			Query:    r.Query,
			Name:     r.Name,
			Type:     r.Type,
			TTL:      r.TTL,
			Wildcard: r.Wildcard,
		})
	case KindError:
		return json.Marshal(errorJSON{
			Query: r.Query,
			Code:  r.Code,
		})
	case KindOther:
		return json.Marshal(otherJSON{
			Name:     r.Name,
			Type:     r.Type,
			TTL:      r.TTL,
			Wildcard: r.Wildcard,
		})
	default:
		ip := ""
		if r.Addr != nil {
			ip = r.Addr.String()
		}
		return json.Marshal(addressJSON{
			Name:     r.Name,
			IP:       ip,
			Type:     r.Type,
			TTL:      r.TTL,
			Wildcard: r.Wildcard,
		})
	}
}

// CSVHeader is the union of fields across all variants; fields a
// variant lacks are left as empty cells in its rows.
func CSVHeader() []string {
	return []string{"query", "name", "ip", "type", "ttl", "is_wildcard", "response_code"}
}

// CSVRow renders the record as one row under CSVHeader.
func (r Record) CSVRow() []string {
	switch r.Kind {
	case KindError:
		return []string{r.Query, "", "", "", "", "", r.Code}
	case KindAlias:
		return []string{r.Query, r.Name, "", r.Type, strconv.FormatUint(uint64(r.TTL), 10), strconv.FormatBool(r.Wildcard), ""}
	case KindOther:
		return []string{"", r.Name, "", r.Type, strconv.FormatUint(uint64(r.TTL), 10), strconv.FormatBool(r.Wildcard), ""}
	default:
		ip := ""
		if r.Addr != nil {
			ip = r.Addr.String()
		}
		return []string{"", r.Name, ip, r.Type, strconv.FormatUint(uint64(r.TTL), 10), strconv.FormatBool(r.Wildcard), ""}
	}
}
