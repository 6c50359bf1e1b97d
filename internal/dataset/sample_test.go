package dataset

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleCorpus(t *testing.T) {
	table := SampleCorpus(400, 7)
	require.Equal(t, 400, table.Len())
	assert.Equal(t, SampleHeader, table.Header)

	missingRating := 0
	brands := make(map[string]bool)
	for _, r := range table.Records {
		brands[r[ColBrandName]] = true

		price, ok := r.Float(ColPrice)
		require.True(t, ok)
		assert.GreaterOrEqual(t, price, 4.0)

		for _, col := range FlagColumns {
			v, ok := r.Float(col)
			require.True(t, ok, col)
			assert.Contains(t, []float64{0, 1}, v)
		}

		rating, ok := r.Float(ColRating)
		if !ok {
			missingRating++
			continue
		}
		assert.GreaterOrEqual(t, rating, 1.0)
		assert.LessOrEqual(t, rating, 5.0)
		_, ok = r.Float(ColLoves)
		assert.True(t, ok)
	}
	assert.Greater(t, len(brands), 5)
	assert.Positive(t, missingRating, "some rows should miss their rating")
	assert.Less(t, missingRating, 60)
}

func TestSampleCorpus_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, Write(&a, SampleCorpus(50, 3)))
	require.NoError(t, Write(&b, SampleCorpus(50, 3)))
	assert.Equal(t, a.String(), b.String())

	var c bytes.Buffer
	require.NoError(t, Write(&c, SampleCorpus(50, 4)))
	assert.NotEqual(t, a.String(), c.String())
}
