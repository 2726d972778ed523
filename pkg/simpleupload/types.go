package simpleupload

import "time"

// Well-known secret names understood by the credential resolver. A
// provider may expose them as four independent secrets, or as one
// structured JSON secret (SecretStructured) whose fields carry the same
// names; the structured form takes precedence when present.
const (
	SecretAccessKeyID     = "access_key_id"
	SecretSecretAccessKey = "secret_access_key"
	SecretRegion          = "region"
	SecretBucketName      = "bucket_name"

	// SecretStructured is the name of the optional structured secret
	// holding all four fields as a single JSON document.
	SecretStructured = "aws_credentials"
)

// CredentialBundle is the resolved, complete set of values needed to
// sign storage requests. It is immutable once resolved and shared
// read-only across requests. The secret access key must never appear
// in logs or error text.
type CredentialBundle struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Region          string `json:"region"`
	Bucket          string `json:"bucket_name"`
}

// missingFields returns the names of required fields that are empty,
// in the canonical field order.
func (b CredentialBundle) missingFields() []string {
	var missing []string
	if b.AccessKeyID == "" {
		missing = append(missing, SecretAccessKeyID)
	}
	if b.SecretAccessKey == "" {
		missing = append(missing, SecretSecretAccessKey)
	}
	if b.Region == "" {
		missing = append(missing, SecretRegion)
	}
	if b.Bucket == "" {
		missing = append(missing, SecretBucketName)
	}
	return missing
}

// Complete reports whether all four required fields are non-empty.
func (b CredentialBundle) Complete() bool {
	return len(b.missingFields()) == 0
}

// PresignedUpload is a time-limited write grant for a single object.
// It is returned to the caller and never persisted server-side; once
// ExpiresAt passes the URL is simply invalid.
type PresignedUpload struct {
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	ObjectKey string            `json:"object_key"`
	ExpiresAt time.Time         `json:"expires_at"`
	Headers   map[string]string `json:"headers,omitempty"`
}
