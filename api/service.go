package api

import (
	"fmt"

	"AdvisorDesk/internal/serviceiface"
)

const defaultGatewayPort = 8080

// GatewayService fronts the importer backends.
type GatewayService struct {
	*serviceiface.HTTPService
	config map[string]interface{}
}

// NewGatewayService reads "port" and "routes" (prefix to backend list) from cfg.
func NewGatewayService(cfg map[string]interface{}) (*GatewayService, error) {
	port := defaultGatewayPort
	switch v := cfg["port"].(type) {
	case int:
		port = v
	case float64:
		port = int(v)
	}

	routes := map[string][]string{}
	if raw, ok := cfg["routes"].(map[string]interface{}); ok {
		for prefix, v := range raw {
			switch backends := v.(type) {
			case string:
				routes[prefix] = []string{backends}
			case []interface{}:
				for _, b := range backends {
					if s, ok := b.(string); ok {
						routes[prefix] = append(routes[prefix], s)
					}
				}
			}
		}
	}
	if len(routes) == 0 {
		routes["/import/"] = []string{"http://localhost:6143"}
	}

	mux, err := NewGatewayMux(routes)
	if err != nil {
		return nil, err
	}
	return &GatewayService{
		HTTPService: serviceiface.NewHTTPService("gateway", fmt.Sprintf(":%d", port), mux),
		config:      cfg,
	}, nil
}
