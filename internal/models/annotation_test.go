package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatingForPrefersRatingsMap(t *testing.T) {
	a := &Annotation{
		Rating:  3,
		Ratings: map[string]float64{"q1": 5},
	}

	v, ok := a.RatingFor("q1")
	assert.True(t, ok)
	assert.Equal(t, 5.0, v)
}

func TestRatingForBinaryZeroIsPresent(t *testing.T) {
	a := &Annotation{
		Rating:  4,
		Ratings: map[string]float64{"q-binary": 0},
	}

	// 0 is a valid fail value and must not fall through to the legacy field.
	v, ok := a.RatingFor("q-binary")
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestRatingForLegacyFallback(t *testing.T) {
	a := &Annotation{Rating: 4}

	v, ok := a.RatingFor("q1")
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)

	empty := &Annotation{}
	_, ok = empty.RatingFor("q1")
	assert.False(t, ok)
}

func TestSameContent(t *testing.T) {
	a := &Annotation{
		Ratings: map[string]float64{"q1": 4, "q2": 1},
		Comment: "ok",
	}

	assert.True(t, a.SameContent(map[string]float64{"q1": 4, "q2": 1}, "ok", nil))
	assert.False(t, a.SameContent(map[string]float64{"q1": 4, "q2": 2}, "ok", nil))
	assert.False(t, a.SameContent(map[string]float64{"q1": 4, "q2": 1}, "changed", nil))

	// A key present before but absent now counts as a change.
	assert.False(t, a.SameContent(map[string]float64{"q1": 4}, "ok", nil))
}

func TestSameContentFreeformAnswers(t *testing.T) {
	a := &Annotation{
		Ratings:         map[string]float64{"q1": 4},
		Comment:         "ok",
		FreeformAnswers: map[string]string{"q3": "misses the constraint"},
	}

	assert.True(t, a.SameContent(map[string]float64{"q1": 4}, "ok",
		map[string]string{"q3": "misses the constraint"}))
	assert.False(t, a.SameContent(map[string]float64{"q1": 4}, "ok",
		map[string]string{"q3": "edited"}))
	assert.False(t, a.SameContent(map[string]float64{"q1": 4}, "ok", nil))
}

func TestCommentCodecRoundTrip(t *testing.T) {
	answers := map[string]string{"q3": "the output misses the second constraint"}
	wire := EncodeComment("solid overall", answers)

	comment, decoded := DecodeComment(wire)
	assert.Equal(t, "solid overall", comment)
	assert.Equal(t, answers, decoded)
}

func TestCommentCodecPassthrough(t *testing.T) {
	wire := EncodeComment("plain comment", nil)
	assert.Equal(t, "plain comment", wire)

	comment, decoded := DecodeComment("plain comment")
	assert.Equal(t, "plain comment", comment)
	assert.Nil(t, decoded)
}

func TestDecodeCommentMalformedPayload(t *testing.T) {
	wire := "note[[freeform]]{not json[[/freeform]]"

	comment, decoded := DecodeComment(wire)
	assert.Equal(t, wire, comment)
	assert.Nil(t, decoded)
}
