package mainconfig

import (
	"testing"

	appconfig "github.com/wolfman30/clinical-agent-platform/internal/config"
)

func TestNeedsAWS(t *testing.T) {
	cases := []struct {
		name string
		cfg  appconfig.Config
		want bool
	}{
		{name: "nothing configured", cfg: appconfig.Config{}, want: false},
		{name: "bedrock fallback", cfg: appconfig.Config{BedrockModelID: "anthropic.claude-3-haiku"}, want: true},
		{name: "attachments bucket", cfg: appconfig.Config{AttachmentsBucket: "reports"}, want: true},
		{name: "sqs queue", cfg: appconfig.Config{ExtractionQueueURL: "http://localhost:4566/q"}, want: true},
		{name: "memory queue wins", cfg: appconfig.Config{ExtractionQueueURL: "http://localhost:4566/q", UseMemoryQueue: true}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NeedsAWS(&tc.cfg); got != tc.want {
				t.Fatalf("NeedsAWS() = %v, want %v", got, tc.want)
			}
		})
	}
}
