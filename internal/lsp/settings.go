package lsp

import (
	"encoding/json"
	"time"
)

const maxDebounce = 10 * time.Second

// handleDidChangeConfiguration reads the "owlsight" section of the pushed
// settings. Malformed settings are ignored; the notification has no reply.
func (s *Server) handleDidChangeConfiguration(msg *rpcMessage) error {
	var params didChangeConfigurationParams
	if len(msg.Params) == 0 || json.Unmarshal(msg.Params, &params) != nil || len(params.Settings) == 0 {
		return nil
	}
	var settings lspSettings
	if err := json.Unmarshal(params.Settings, &settings); err != nil {
		s.logf("ignoring settings: %v", err)
		return nil
	}
	s.applySettings(settings.Owlsight)
	return nil
}

func (s *Server) applySettings(o owlsightSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.Trace != nil {
		s.traceLSP = *o.Trace
	}
	if o.DebounceMS != nil {
		d := time.Duration(*o.DebounceMS) * time.Millisecond
		s.debounce = min(max(d, 0), maxDebounce)
	}
}
