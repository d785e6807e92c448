package loadbalancer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundRobin(t *testing.T) {
	lb, err := NewLoadBalancer([]string{"http://a:1", "", "http://b:2"})
	require.NoError(t, err)
	assert.Equal(t, 2, lb.Len())

	var hosts []string
	for i := 0; i < 4; i++ {
		hosts = append(hosts, lb.Next().Host)
	}
	assert.Equal(t, []string{"a:1", "b:2", "a:1", "b:2"}, hosts)
}

func TestNewLoadBalancerErrors(t *testing.T) {
	_, err := NewLoadBalancer(nil)
	assert.ErrorIs(t, err, ErrNoBackends)

	_, err = NewLoadBalancer([]string{"localhost"})
	assert.Error(t, err)
}
