package postal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagSimpleAddress(t *testing.T) {
	tokens, err := Tag("2526 MORTON AVE NASHVILLE, TN 37208")
	require.NoError(t, err)

	set := Labels(tokens)
	assert.True(t, set[AddressNumber])
	assert.True(t, set[StreetName])
	assert.True(t, set[StreetNamePostType])
	assert.True(t, set[PlaceName])
	assert.True(t, set[StateName])
	assert.True(t, set[ZipCode])
	assert.True(t, IsComplete(tokens))

	assert.Equal(t, TaggedToken{"2526", AddressNumber}, tokens[0])
	assert.Equal(t, TaggedToken{"37208", ZipCode}, tokens[len(tokens)-1])
}

func TestTagWithOccupancy(t *testing.T) {
	tokens, err := Tag("100 N MAIN ST APT 12 NASHVILLE TN 37210")
	require.NoError(t, err)

	set := Labels(tokens)
	assert.True(t, set[StreetNamePreDirectional])
	assert.True(t, set[OccupancyType])
	assert.True(t, set[OccupancyIdentifier])
	assert.True(t, IsComplete(tokens))
}

func TestTagMultiWordCity(t *testing.T) {
	tokens, err := Tag("501 OLD HICKORY BLVD OLD HICKORY TN 37138")
	require.NoError(t, err)
	assert.True(t, IsComplete(tokens))

	var city []string
	for _, tok := range tokens {
		if tok.Label == PlaceName {
			city = append(city, tok.Text)
		}
	}
	assert.Equal(t, []string{"OLD", "HICKORY"}, city)
}

func TestTagZipPlusFour(t *testing.T) {
	tokens, err := Tag("2526 MORTON AVE NASHVILLE TN 37208-1234")
	require.NoError(t, err)
	assert.True(t, IsComplete(tokens))
}

func TestTagRejectsFragments(t *testing.T) {
	_, err := Tag("NASHVILLE TN")
	assert.Error(t, err)

	_, err = Tag("SOME APARTMENT COMPLEX NASHVILLE TN 37208")
	assert.Error(t, err)

	_, err = Tag("2526 MORTON AVE NASHVILLE TN")
	assert.Error(t, err)

	_, err = Tag("2526 MORTON AVE NASHVILLE 37208 99999")
	assert.Error(t, err)
}

func TestTagFullStateName(t *testing.T) {
	tokens, err := Tag("2526 MORTON AVE NASHVILLE TENNESSEE 37208")
	require.NoError(t, err)
	assert.True(t, IsComplete(tokens))
}
