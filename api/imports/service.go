package imports

import (
	"fmt"

	"AdvisorDesk/internal/config"
	"AdvisorDesk/internal/serviceiface"
)

// ImportService serves the import API on its own port.
type ImportService struct {
	*serviceiface.HTTPService
	config map[string]interface{}
}

func NewImportService(cfg map[string]interface{}, deps Deps) *ImportService {
	port := config.DefaultPort
	switch v := cfg["port"].(type) {
	case int:
		port = v
	case float64:
		port = int(v)
	}
	addr := fmt.Sprintf(":%d", port)
	if host, ok := cfg["host"].(string); ok {
		addr = fmt.Sprintf("%s:%d", host, port)
	}
	return &ImportService{
		HTTPService: serviceiface.NewHTTPService("importer", addr, NewRouter(NewHandler(deps))),
		config:      cfg,
	}
}
