package results_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lc/resolvr/internal/records"
	"github.com/lc/resolvr/internal/results"
)

type StoreTestSuite struct {
	suite.Suite
	store *results.Store
}

func (s *StoreTestSuite) SetupTest() {
	s.store = results.NewStore()
}

func addressRecord(name, ip string, ttl uint32) records.Record {
	return records.Record{
		Kind: records.KindAddress,
		Name: name,
		Addr: net.ParseIP(ip),
		Type: "A",
		TTL:  ttl,
	}
}

func (s *StoreTestSuite) TestInsertDeduplicatesByKey() {
	// The same address answered by two nameservers collapses to one entry.
	s.store.Insert([]records.Record{addressRecord("example.com", "93.184.216.34", 300)})
	s.store.Insert([]records.Record{addressRecord("example.com", "93.184.216.34", 300)})

	s.Equal(1, s.store.Count())
}

func (s *StoreTestSuite) TestInsertLastWriteWins() {
	s.store.Insert([]records.Record{addressRecord("example.com", "93.184.216.34", 300)})
	s.store.Insert([]records.Record{addressRecord("other.example.com", "93.184.216.34", 60)})

	snap := s.store.Snapshot()
	s.Require().Len(snap, 1)
	s.Equal("other.example.com", snap[0].Name)
	s.Equal(uint32(60), snap[0].TTL)
}

func (s *StoreTestSuite) TestDistinctKeysCoexist() {
	// Conflicting answers from different nameservers survive when their
	// addresses differ.
	s.store.Insert([]records.Record{
		addressRecord("example.com", "93.184.216.34", 300),
		addressRecord("example.com", "93.184.216.35", 300),
	})

	s.Equal(2, s.store.Count())
}

func (s *StoreTestSuite) TestInsertEmptyBatch() {
	s.store.Insert(nil)
	s.Equal(0, s.store.Count())
}

func (s *StoreTestSuite) TestCountsByKind() {
	s.store.Insert([]records.Record{
		addressRecord("example.com", "93.184.216.34", 300),
		addressRecord("example.com", "93.184.216.35", 300),
		{Kind: records.KindError, Query: "missing.example.com", Code: "NXDOMAIN"},
	})

	counts := s.store.CountsByKind()
	s.Equal(2, counts[records.KindAddress])
	s.Equal(1, counts[records.KindError])
}

func (s *StoreTestSuite) TestSerializeJSONScenario() {
	s.store.Insert([]records.Record{addressRecord("example.com", "93.184.216.34", 300)})

	out, err := s.store.Serialize(results.FormatJSON)
	s.Require().NoError(err)
	s.JSONEq(`[{"name":"example.com","ip":"93.184.216.34","type":"A","ttl":300,"is_wildcard":false}]`, string(out))
}

func (s *StoreTestSuite) TestSerializeIsDeterministic() {
	s.store.Insert([]records.Record{
		addressRecord("b.example.com", "10.0.0.2", 60),
		addressRecord("a.example.com", "10.0.0.1", 60),
		{Kind: records.KindError, Query: "missing.example.com", Code: "NXDOMAIN"},
	})

	for _, format := range []results.Format{results.FormatJSON, results.FormatCSV} {
		first, err := s.store.Serialize(format)
		s.Require().NoError(err)
		second, err := s.store.Serialize(format)
		s.Require().NoError(err)
		s.Equal(first, second)
	}
}

func (s *StoreTestSuite) TestSerializeEmptyStore() {
	out, err := s.store.Serialize(results.FormatJSON)
	s.Require().NoError(err)
	s.Equal("[]", string(out))

	out, err = s.store.Serialize(results.FormatCSV)
	s.Require().NoError(err)
	s.Equal("query,name,ip,type,ttl,is_wildcard,response_code\n", string(out))
}

func (s *StoreTestSuite) TestSerializeCSV() {
	s.store.Insert([]records.Record{
		addressRecord("example.com", "93.184.216.34", 300),
		{Kind: records.KindError, Query: "missing.example.com", Code: "NXDOMAIN"},
	})

	out, err := s.store.Serialize(results.FormatCSV)
	s.Require().NoError(err)
	s.Equal("query,name,ip,type,ttl,is_wildcard,response_code\n"+
		",example.com,93.184.216.34,A,300,false,\n"+
		"missing.example.com,,,,,,NXDOMAIN\n", string(out))
}

func (s *StoreTestSuite) TestParseFormat() {
	testCases := []struct {
		in       string
		expected results.Format
		wantErr  bool
	}{
		{in: "json", expected: results.FormatJSON},
		{in: "csv", expected: results.FormatCSV},
		{in: "xml", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range testCases {
		s.Run(tc.in, func() {
			f, err := results.ParseFormat(tc.in)
			if tc.wantErr {
				s.Error(err)
				return
			}
			s.Require().NoError(err)
			s.Equal(tc.expected, f)
		})
	}
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
