package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDrawOpArities(t *testing.T) {
	cases := []struct {
		op   DrawOp
		want int
	}{
		{SetSourceRgb, 3},
		{SetSourceRgba, 4},
		{Rect, 4},
		{Fill, 0},
		{Stroke, 0},
		{Paint, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.op.Arity(), "%s arity", c.op)
	}
}

func TestRecordingSinkCaptures(t *testing.T) {
	s := &RecordingSink{}
	err := s.Output(Rect, VMHandle{Op: Rect, Args: []any{int64(0), int64(0), int64(10), int64(20)}})
	assert.NoError(t, err)
	assert.Len(t, s.Records, 1)
	assert.Equal(t, Rect, s.Records[0].Op)
}
