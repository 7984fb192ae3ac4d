package kb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitQName(t *testing.T) {
	prefix, local, err := SplitQName("sm:HardwareProduct")
	require.Nil(t, err)
	assert.Equal(t, "sm", prefix)
	assert.Equal(t, "HardwareProduct", local)
}

func TestSplitQNameInvalid(t *testing.T) {
	cases := []string{"", "noColon", "sm:", ":local"}
	for _, c := range cases {
		_, _, err := SplitQName(c)
		require.NotNil(t, err, "expected error for %q", c)
		assert.Equal(t, "ONTOLOGY_INVALID_QNAME", string(err.Code))
	}
}

func TestNamespaceIndexResolve(t *testing.T) {
	idx := NewNamespaceIndex([]Namespace{
		{Prefix: "sm", URI: "http://example.org/sm#"},
	})

	ns, err := idx.Resolve("sm")
	require.Nil(t, err)
	assert.Equal(t, "http://example.org/sm#", ns.URI)

	_, err = idx.Resolve("unknown")
	require.NotNil(t, err)
	assert.Equal(t, "ONTOLOGY_UNKNOWN_PREFIX", string(err.Code))
}

func TestValidateQName(t *testing.T) {
	idx := NewNamespaceIndex([]Namespace{{Prefix: "sm", URI: "u"}})
	assert.Nil(t, idx.ValidateQName("sm:Thing"))
	assert.NotNil(t, idx.ValidateQName("xx:Thing"))
	assert.NotNil(t, idx.ValidateQName("malformed"))
}

func TestPrimitiveForRange(t *testing.T) {
	p, ok := PrimitiveForRange("xsd:base64Binary")
	require.True(t, ok)
	assert.Equal(t, "bytes", p)

	p, ok = PrimitiveForRange("xsd:anyURI")
	require.True(t, ok)
	assert.Equal(t, "string", p)

	_, ok = PrimitiveForRange("sm:HardwareProduct")
	assert.False(t, ok)
}

func TestReservedIDLikeNames(t *testing.T) {
	assert.True(t, IsReservedIDLikeName("oid"))
	assert.True(t, IsReservedIDLikeName("version"))
	assert.False(t, IsReservedIDLikeName("mass"))
}
