package api

import "os"

// TLSConfig holds optional certificate paths for the API listener.
type TLSConfig struct {
	CertFile string
	KeyFile  string
}

func loadTLSFromEnv() *TLSConfig {
	return &TLSConfig{
		CertFile: os.Getenv("CONTROLROOM_TLS_CERT"),
		KeyFile:  os.Getenv("CONTROLROOM_TLS_KEY"),
	}
}

func (t *TLSConfig) enabled() bool {
	return t.CertFile != "" && t.KeyFile != ""
}
