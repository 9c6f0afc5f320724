package stop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	name  string
	order *[]string
	err   error
}

func (r recorder) Stop() Result {
	c := make(Channel)
	go func() {
		*r.order = append(*r.order, r.name)
		c.Done(r.err)
	}()
	return c.Result()
}

func TestGroupStopsInReverseOrder(t *testing.T) {
	var order []string
	failure := errors.New("store did not close")

	g := NewGroup()
	g.Add(recorder{name: "store", order: &order, err: failure})
	g.Add(recorder{name: "frontend", order: &order})
	g.AddFunc(AlreadyStoppedFunc)

	errs := g.Stop().Wait()
	require.Equal(t, []string{"frontend", "store"}, order)
	require.Equal(t, []error{failure}, errs)

	require.Nil(t, g.Stop().Wait(), "a stopped group should have no members left")
}

func TestDoneDropsNilErrors(t *testing.T) {
	c := make(Channel)
	go c.Done(nil, nil)
	require.Nil(t, c.Result().Wait())
}
