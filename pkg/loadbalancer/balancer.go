// Package loadbalancer picks backends in round-robin order.
package loadbalancer

import (
	"errors"
	"net/url"
	"sync"
)

var ErrNoBackends = errors.New("loadbalancer: no backends configured")

type LoadBalancer struct {
	servers []*url.URL
	mu      sync.Mutex
	current int
}

// NewLoadBalancer parses every backend URL up front.
func NewLoadBalancer(servers []string) (*LoadBalancer, error) {
	lb := &LoadBalancer{}
	for _, s := range servers {
		if s == "" {
			continue
		}
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, errors.New("loadbalancer: bad backend url " + s)
		}
		lb.servers = append(lb.servers, u)
	}
	if len(lb.servers) == 0 {
		return nil, ErrNoBackends
	}
	return lb, nil
}

func (lb *LoadBalancer) Next() *url.URL {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	server := lb.servers[lb.current]
	lb.current = (lb.current + 1) % len(lb.servers)
	return server
}

func (lb *LoadBalancer) Len() int {
	return len(lb.servers)
}
