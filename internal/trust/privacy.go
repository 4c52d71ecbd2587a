package trust

import (
	"context"
	"fmt"

	"github.com/ktiyab/coheara/internal/repository"
)

// PrivacyInfo states, in patient-facing terms, what Coheara does and does
// not do with this profile's data — it exists so the app's offline/
// no-telemetry claims are verifiable rather than asserted.
type PrivacyInfo struct {
	DocumentCount       int
	TotalDataSizeBytes  int64
	EncryptionAlgorithm string
	NetworkPermissions  string
	Telemetry           string
}

// GetPrivacyInfo reports the document count and on-disk footprint for one
// profile.
func GetPrivacyInfo(ctx context.Context, documents *repository.DocumentRepo, profileDir string) (PrivacyInfo, error) {
	docs, err := documents.List(ctx)
	if err != nil {
		return PrivacyInfo{}, fmt.Errorf("trust.GetPrivacyInfo: %w", err)
	}
	return PrivacyInfo{
		DocumentCount:       len(docs),
		TotalDataSizeBytes:  calculateDirSize(profileDir),
		EncryptionAlgorithm: "AES-256-GCM",
		NetworkPermissions:  "offline by default; loopback-only LLM calls, paired-device HTTPS only",
		Telemetry:           "None collected or transmitted",
	}, nil
}
