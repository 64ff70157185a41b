package utils

import (
	"github.com/pion/webrtc/v3"

	"github.com/IamSiddharthChoudhary/Assessly/internal/config"
)

// WebRTCConfig builds the client-side peer connection configuration from the
// configured STUN/TURN servers. The engine never opens a peer connection
// itself; this is advertised so both participants negotiate against the same
// ICE servers.
func WebRTCConfig(cfg *config.Config) webrtc.Configuration {
	var iceServers []webrtc.ICEServer
	for _, stun := range cfg.STUNServers {
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs: []string{stun},
		})
	}
	if cfg.TURNURL != "" {
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       []string{cfg.TURNURL},
			Username:   cfg.TURNUsername,
			Credential: cfg.TURNPassword,
		})
	}
	return webrtc.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: webrtc.ICETransportPolicyAll,
		BundlePolicy:       webrtc.BundlePolicyMaxBundle,
		RTCPMuxPolicy:      webrtc.RTCPMuxPolicyRequire,
	}
}
