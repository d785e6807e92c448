package appmanager

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"AdvisorDesk/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sequenceYAML = `
services:
  - name: gateway
    start_order: 4
    config:
      port: 0
      routes:
        /import/: ["http://127.0.0.1:1"]
  - name: logger
    start_order: 1
    config:
      folder_path: %s
  - name: importer
    start_order: 3
    config:
      port: 0
      session_ttl: 30m
  - name: cron
    start_order: 2
    config:
      purge_schedule: "@every 1m"
`

func writeSequence(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "services.yaml")
	body := []byte(fmt.Sprintf(sequenceYAML, filepath.Join(dir, "logs")))
	require.NoError(t, os.WriteFile(path, body, 0644))
	return path
}

func TestLoadAndRunServices(t *testing.T) {
	SetDB(nil)
	SetPgxPool(nil)
	t.Setenv(GenAIKeyEnv, "")

	cfgs, err := LoadServiceSequence(writeSequence(t))
	require.NoError(t, err)
	var names []string
	for _, c := range cfgs {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"logger", "cron", "importer", "gateway"}, names)

	am := NewAppManager()
	require.NoError(t, am.AutoRegisterServices(cfgs))
	require.NotNil(t, am.Sessions())
	for _, n := range names {
		assert.NotNil(t, am.GetServiceByName(n), n)
	}
	assert.Same(t, logger.GlobalLogger, am.GetServiceByName("logger"))

	require.NoError(t, am.StartAll())
	require.NoError(t, am.StopAll())
	logger.SetGlobalLogger(nil)
}

func TestAutoRegisterErrors(t *testing.T) {
	am := NewAppManager()
	assert.Error(t, am.AutoRegisterServices([]ServiceConfig{{Name: "fx"}}))

	am = NewAppManager()
	assert.Error(t, am.AutoRegisterServices([]ServiceConfig{{Name: "importer", Config: map[string]interface{}{"session_ttl": "soon"}}}))

	am = NewAppManager()
	assert.Error(t, am.AutoRegisterServices([]ServiceConfig{{Name: "importer", Config: map[string]interface{}{"timezone": "Nowhere/City"}}}))
}

type stubService struct {
	name    string
	stopErr error
	stopped *[]string
}

func (s stubService) Name() string { return s.name }
func (s stubService) Start() error { return nil }
func (s stubService) Stop() error {
	*s.stopped = append(*s.stopped, s.name)
	return s.stopErr
}

func TestStopAllReverseOrder(t *testing.T) {
	var stopped []string
	am := NewAppManager()
	am.RegisterService(stubService{name: "a", stopped: &stopped})
	am.RegisterService(stubService{name: "b", stopErr: errors.New("boom"), stopped: &stopped})
	am.RegisterService(stubService{name: "c", stopped: &stopped})

	err := am.StopAll()
	assert.ErrorContains(t, err, "b")
	assert.Equal(t, []string{"c", "b", "a"}, stopped)
}
