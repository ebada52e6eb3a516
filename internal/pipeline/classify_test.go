package pipeline

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lc/resolvr/internal/dnsclient"
	"github.com/lc/resolvr/internal/records"
)

func TestClassifyResult(t *testing.T) {
	testCases := []struct {
		name     string
		raw      rawResult
		expected []records.Record
	}{
		{
			name: "a record",
			raw: rawResult{
				query:   "example.com",
				answers: []dns.RR{aRecord("example.com", "93.184.216.34", 300)},
			},
			expected: []records.Record{{
				Kind: records.KindAddress,
				Name: "example.com",
				Addr: net.ParseIP("93.184.216.34"),
				Type: "A",
				TTL:  300,
			}},
		},
		{
			name: "aaaa record",
			raw: rawResult{
				query: "example.com",
				answers: []dns.RR{&dns.AAAA{
					Hdr:  dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: 300},
					AAAA: net.ParseIP("2606:2800:220:1::1946"),
				}},
			},
			expected: []records.Record{{
				Kind: records.KindAddress,
				Name: "example.com",
				Addr: net.ParseIP("2606:2800:220:1::1946"),
				Type: "AAAA",
				TTL:  300,
			}},
		},
		{
			name: "cname takes query from the originating lookup",
			raw: rawResult{
				query:   "www.example.com",
				answers: []dns.RR{cnameRecord("www.example.com", "cdn.example.net", 120)},
			},
			expected: []records.Record{{
				Kind:  records.KindAlias,
				Query: "www.example.com",
				Name:  "cdn.example.net",
				Type:  "CNAME",
				TTL:   120,
			}},
		},
		{
			name: "unmodeled type falls through to other",
			raw: rawResult{
				query: "example.com",
				answers: []dns.RR{&dns.TXT{
					Hdr: dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: 600},
					Txt: []string{"v=spf1 -all"},
				}},
			},
			expected: []records.Record{{
				Kind: records.KindOther,
				Name: "example.com",
				Type: "TXT",
				TTL:  600,
			}},
		},
		{
			name: "wildcard owner name sets the flag",
			raw: rawResult{
				query:   "anything.example.com",
				answers: []dns.RR{aRecord("*.example.com", "10.0.0.1", 60)},
			},
			expected: []records.Record{{
				Kind:     records.KindAddress,
				Name:     "*.example.com",
				Addr:     net.ParseIP("10.0.0.1"),
				Type:     "A",
				TTL:      60,
				Wildcard: true,
			}},
		},
		{
			name: "coded failure becomes an error record",
			raw: rawResult{
				query: "missing.example.com",
				err:   &dnsclient.LookupError{Query: "missing.example.com", Code: "NXDOMAIN"},
			},
			expected: []records.Record{{
				Kind:  records.KindError,
				Query: "missing.example.com",
				Code:  "NXDOMAIN",
			}},
		},
		{
			name: "wrapped coded failure is still recognized",
			raw: rawResult{
				query: "missing.example.com",
				err:   fmt.Errorf("lookup: %w", &dnsclient.LookupError{Query: "missing.example.com", Code: "SERVFAIL"}),
			},
			expected: []records.Record{{
				Kind:  records.KindError,
				Query: "missing.example.com",
				Code:  "SERVFAIL",
			}},
		},
		{
			name: "transport failure produces nothing",
			raw: rawResult{
				query: "example.com",
				err:   errors.New("read udp: i/o timeout"),
			},
			expected: nil,
		},
		{
			name:     "empty answer set produces an empty batch",
			raw:      rawResult{query: "example.com"},
			expected: []records.Record{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyResult(tc.raw)
			if tc.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.Len(t, got, len(tc.expected))
			for i := range tc.expected {
				assert.Equal(t, tc.expected[i].Kind, got[i].Kind)
				assert.Equal(t, tc.expected[i].Query, got[i].Query)
				assert.Equal(t, tc.expected[i].Name, got[i].Name)
				assert.Equal(t, tc.expected[i].Type, got[i].Type)
				assert.Equal(t, tc.expected[i].TTL, got[i].TTL)
				assert.Equal(t, tc.expected[i].Wildcard, got[i].Wildcard)
				assert.Equal(t, tc.expected[i].Code, got[i].Code)
				assert.True(t, tc.expected[i].Addr.Equal(got[i].Addr))
			}
		})
	}
}
