package serviceiface

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPServiceLifecycle(t *testing.T) {
	var svc Service = NewHTTPService("echo", "127.0.0.1:0", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	require.NoError(t, svc.Start())
	assert.Equal(t, "echo", svc.Name())

	resp, err := http.Get("http://" + svc.(*HTTPService).Addr())
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	require.NoError(t, svc.Stop())
	_, err = http.Get("http://" + svc.(*HTTPService).Addr())
	assert.Error(t, err)
}
