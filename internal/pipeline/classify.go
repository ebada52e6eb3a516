package pipeline

import (
	"errors"
	"strings"

	"github.com/miekg/dns"

	"github.com/lc/resolvr/internal/dnsclient"
	"github.com/lc/resolvr/internal/log"
	"github.com/lc/resolvr/internal/records"
)

// classifyResult turns one raw lookup outcome into structured records.
//
// Failures carrying a response code become a single error record keyed
// by the query name. Transport-level failures (timeouts, socket errors)
// carry no diagnostic value and are dropped without a record.
func classifyResult(res rawResult) []records.Record {
	if res.err != nil {
		var lerr *dnsclient.LookupError
		if errors.As(res.err, &lerr) {
			return []records.Record{{
				Kind:  records.KindError,
				Query: trimDot(lerr.Query),
				Code:  lerr.Code,
			}}
		}
		log.Debug("dropping lookup failure", "query", res.query, "error", res.err)
		return nil
	}

	batch := make([]records.Record, 0, len(res.answers))
	for _, rr := range res.answers {
		batch = append(batch, fromRR(rr, res.query))
	}
	return batch
}

// fromRR converts one answer record. A and AAAA answers keep their
// parsed address; CNAME answers carry the originating query so alias
// chains stay traceable; everything else falls through to the generic
// variant. An owner name under a wildcard label marks the record as
// wildcard-matched.
func fromRR(rr dns.RR, query string) records.Record {
	hdr := rr.Header()
	rec := records.Record{
		Name:     trimDot(hdr.Name),
		Type:     dns.TypeToString[hdr.Rrtype],
		TTL:      hdr.Ttl,
		Wildcard: strings.HasPrefix(hdr.Name, "*."),
	}

	switch v := rr.(type) {
	case *dns.A:
		rec.Kind = records.KindAddress
		rec.Addr = v.A
	case *dns.AAAA:
		rec.Kind = records.KindAddress
		rec.Addr = v.AAAA
	case *dns.CNAME:
		rec.Kind = records.KindAlias
		rec.Query = trimDot(query)
		rec.Name = trimDot(v.Target)
	default:
		rec.Kind = records.KindOther
	}
	return rec
}

func trimDot(name string) string {
	return strings.TrimSuffix(name, ".")
}
