package paymongo

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
)

// SignatureHeader is the webhook signature header name.
const SignatureHeader = "Paymongo-Signature"

// VerifySignature checks the webhook signature header against the raw
// payload. The header carries a timestamp plus test and live HMACs; either
// HMAC may match since the secret is environment-specific.
func VerifySignature(payload []byte, header, secret string) error {
	if secret == "" {
		return pkgerrors.New(pkgerrors.CodeInternal, "webhook secret not configured")
	}
	if strings.TrimSpace(header) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "signature header missing")
	}

	var timestamp string
	signatures := map[string]string{}
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "te", "li":
			signatures[key] = value
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "malformed signature header")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(expected), []byte(signature)) {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "signature mismatch")
}
