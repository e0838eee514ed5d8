package utils

import (
	"os"
)

func GetEnv(env string) string {
	switch env {
	case "USER_AGENT":
		// Set the custom User-Agent header
		userAgent, userAgentExists := os.LookupEnv("USER_AGENT")
		if !userAgentExists {
			userAgent = "IPTV Smarters/1.0.3 (iPad; iOS 16.6.1; Scale/2.00)"
		}
		return userAgent
	case "FFPROBE_PATH":
		path, exists := os.LookupEnv("FFPROBE_PATH")
		if !exists {
			path = "ffprobe"
		}
		return path
	default:
		return ""
	}
}
