package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pion/turn/v4"
	"github.com/pion/webrtc/v4"
)

// ICEConfig describes the STUN/TURN servers handed to call participants.
type ICEConfig struct {
	STUNURLs   []string
	TURNURLs   []string
	TURNSecret string
	TURNTTL    time.Duration
}

// Servers returns the ICE servers for userID. TURN entries carry
// time-limited credentials in the TURN REST API scheme shared with coturn's
// use-auth-secret mode.
func (c ICEConfig) Servers(userID uuid.UUID) ([]webrtc.ICEServer, error) {
	servers := make([]webrtc.ICEServer, 0, 2)
	if len(c.STUNURLs) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: c.STUNURLs})
	}
	if len(c.TURNURLs) > 0 && c.TURNSecret != "" {
		username, credential, err := turn.GenerateLongTermTURNRESTCredentials(c.TURNSecret, userID.String(), c.TURNTTL)
		if err != nil {
			return nil, fmt.Errorf("generate turn credentials: %w", err)
		}
		servers = append(servers, webrtc.ICEServer{
			URLs:       c.TURNURLs,
			Username:   username,
			Credential: credential,
		})
	}
	return servers, nil
}
