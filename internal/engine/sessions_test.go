package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/contextrank/pkg/types"
)

func TestSessions(t *testing.T) {
	s := NewSessions(WithWorkers(1))

	a := s.Get("/work/shop")
	assert.Same(t, a, s.Get("/work/shop/"))
	assert.Same(t, a, s.Get("/work/./shop"))

	b := s.Get("/work/blog")
	assert.NotSame(t, a, b)
	assert.Equal(t, []string{"/work/blog", "/work/shop"}, s.Roots())

	s.Remove("/work/blog")
	assert.Equal(t, []string{"/work/shop"}, s.Roots())
}

func TestProgressChannel_DoesNotBlock(t *testing.T) {
	ch := make(ProgressChannel, 1)
	ch.Report(types.Progress{Done: 1})
	ch.Report(types.Progress{Done: 2})

	got := <-ch
	assert.Equal(t, 1, got.Done)
}
